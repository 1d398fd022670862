// Package toolchain wraps the external C++ compiler: executable builds and
// shared-object builds under the lockfile protocol.
package toolchain

import (
	"fmt"
	"os"
	"os/exec"
)

// BuildError carries the compiler's captured diagnostics. Toolchain exit
// codes propagate as values; callers decide whether a failure is fatal.
type BuildError struct {
	Op     string
	Output string
	Err    error
}

func (e *BuildError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v\n%s", e.Op, e.Err, e.Output)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// Invoker runs a resolved C++ compiler.
type Invoker struct {
	compiler string
}

// NewInvoker creates an invoker for the given compiler executable.
func NewInvoker(compiler string) *Invoker {
	return &Invoker{compiler: compiler}
}

// Compiler returns the wrapped compiler executable.
func (k *Invoker) Compiler() string {
	return k.compiler
}

// BuildExecutable compiles the main translation unit into the program
// binary, linked against the dynamic loader.
func (k *Invoker) BuildExecutable(mainSrc, outExe string) error {
	cmd := exec.Command(k.compiler, "-std=c++17", "-O2", "-o", outExe, mainSrc, "-ldl")
	if out, err := cmd.CombinedOutput(); err != nil {
		return &BuildError{Op: "build executable", Output: string(out), Err: err}
	}
	return nil
}

// BuildSharedObject compiles one per-function translation unit into its
// shared object under the lockfile protocol: take the lock, write the
// source, compile to a scratch file, rename over the library, drop the lock.
// The rename keeps the library's mtime at build completion and never exposes
// a half-written object; on compiler failure the library is left untouched.
func (k *Invoker) BuildSharedObject(source, srcPath, libPath, lockPath string) error {
	lock, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return &BuildError{Op: "acquire lock " + lockPath, Err: err}
	}
	lock.Close()

	fail := func(op string, out string, err error) error {
		os.Remove(lockPath)
		return &BuildError{Op: op, Output: out, Err: err}
	}

	if err := os.WriteFile(srcPath, []byte(source), 0644); err != nil {
		return fail("write source "+srcPath, "", err)
	}

	scratch := libPath + ".tmp"
	cmd := exec.Command(k.compiler, "-std=c++17", "-O2", "-shared", "-fPIC", "-o", scratch, srcPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		os.Remove(scratch)
		return fail("compile "+srcPath, string(out), err)
	}

	if err := os.Rename(scratch, libPath); err != nil {
		os.Remove(scratch)
		return fail("publish "+libPath, "", err)
	}

	if err := os.Remove(lockPath); err != nil {
		return &BuildError{Op: "release lock " + lockPath, Err: err}
	}
	return nil
}
