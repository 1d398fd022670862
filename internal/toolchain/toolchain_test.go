package toolchain

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCompiler writes a shell script that mimics a compiler: it writes its
// marker to the -o argument. The lockfile protocol can then be exercised
// without a real toolchain on the test host.
func stubCompiler(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cxx")
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

const okCompiler = `#!/bin/sh
out=""
prev=""
for a in "$@"; do
  if [ "$prev" = "-o" ]; then out="$a"; fi
  prev="$a"
done
echo "object" > "$out"
`

const failCompiler = `#!/bin/sh
echo "error: something went wrong" >&2
exit 1
`

func unitPaths(t *testing.T) (src, lib, lock string) {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "f.cpp"), filepath.Join(dir, "f.lib.so"), filepath.Join(dir, "f.lock")
}

func TestBuildSharedObject(t *testing.T) {
	k := NewInvoker(stubCompiler(t, okCompiler))
	src, lib, lock := unitPaths(t)

	require.NoError(t, k.BuildSharedObject("int f;", src, lib, lock))

	data, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, "int f;", string(data))

	obj, err := os.ReadFile(lib)
	require.NoError(t, err)
	assert.Equal(t, "object\n", string(obj))

	_, err = os.Stat(lock)
	assert.True(t, os.IsNotExist(err), "lock must be released after a build")
	_, err = os.Stat(lib + ".tmp")
	assert.True(t, os.IsNotExist(err), "scratch object must not survive")
}

func TestBuildSharedObjectFailureLeavesLibUntouched(t *testing.T) {
	k := NewInvoker(stubCompiler(t, failCompiler))
	src, lib, lock := unitPaths(t)
	require.NoError(t, os.WriteFile(lib, []byte("previous"), 0644))

	err := k.BuildSharedObject("int f;", src, lib, lock)
	require.Error(t, err)

	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Contains(t, buildErr.Output, "something went wrong")

	data, err := os.ReadFile(lib)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))

	_, err = os.Stat(lock)
	assert.True(t, os.IsNotExist(err), "lock must be released after a failed build")
}

func TestBuildSharedObjectRefusesHeldLock(t *testing.T) {
	k := NewInvoker(stubCompiler(t, okCompiler))
	src, lib, lock := unitPaths(t)
	require.NoError(t, os.WriteFile(lock, nil, 0644))

	err := k.BuildSharedObject("int f;", src, lib, lock)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lock")

	_, err = os.Stat(lib)
	assert.True(t, os.IsNotExist(err))
}

func TestBuildSharedObjectHoldsLockDuringBuild(t *testing.T) {
	slow := `#!/bin/sh
out=""
prev=""
for a in "$@"; do
  if [ "$prev" = "-o" ]; then out="$a"; fi
  prev="$a"
done
sleep 1
echo "object" > "$out"
`
	k := NewInvoker(stubCompiler(t, slow))
	src, lib, lock := unitPaths(t)

	done := make(chan error, 1)
	go func() { done <- k.BuildSharedObject("int f;", src, lib, lock) }()

	// While the compiler runs, the lock exists and the lib does not.
	require.Eventually(t, func() bool {
		_, err := os.Stat(lock)
		return err == nil
	}, 500*time.Millisecond, 10*time.Millisecond)
	_, err := os.Stat(lib)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, <-done)
	_, err = os.Stat(lock)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(lib)
	assert.NoError(t, err)
}

func TestBuildExecutable(t *testing.T) {
	k := NewInvoker(stubCompiler(t, okCompiler))
	dir := t.TempDir()
	mainSrc := filepath.Join(dir, "main.cpp")
	outExe := filepath.Join(dir, "main.exe")
	require.NoError(t, os.WriteFile(mainSrc, []byte("int main() {}"), 0644))

	require.NoError(t, k.BuildExecutable(mainSrc, outExe))
	data, err := os.ReadFile(outExe)
	require.NoError(t, err)
	assert.Equal(t, "object\n", string(data))
}

func TestBuildExecutableFailure(t *testing.T) {
	k := NewInvoker(stubCompiler(t, failCompiler))
	dir := t.TempDir()

	err := k.BuildExecutable(filepath.Join(dir, "main.cpp"), filepath.Join(dir, "main.exe"))
	require.Error(t, err)

	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Contains(t, buildErr.Output, "something went wrong")
}
