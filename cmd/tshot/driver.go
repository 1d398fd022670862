package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"tshot-runtime/internal/artifact"
	"tshot-runtime/internal/config"
	"tshot-runtime/internal/interp"
	"tshot-runtime/internal/lang"
	"tshot-runtime/internal/lower"
	"tshot-runtime/internal/observability"
	"tshot-runtime/internal/toolchain"
	"tshot-runtime/internal/validate"
	"tshot-runtime/internal/watch"
)

// Driver ties the pipeline together: front-end, lowering, initial build,
// launch, and the watch/reconcile loop for the lifetime of the program.
type Driver struct {
	opts *config.Options
	log  *observability.Logger
}

// NewDriver creates a driver with resolved options.
func NewDriver(opts *config.Options, log *observability.Logger) *Driver {
	return &Driver{opts: opts, log: log}
}

// Run executes the program at srcPath and returns its exit code. A non-nil
// error means a driver-fatal condition (malformed DSL, initial build
// failure); reload-time errors are logged and never surface here.
func (d *Driver) Run(srcPath string) (int, error) {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return 1, fmt.Errorf("failed to read %s: %w", srcPath, err)
	}
	prog, err := lang.Parse(string(data))
	if err != nil {
		return 1, fmt.Errorf("%s: %w", srcPath, err)
	}
	checked, err := validate.Check(prog)
	if err != nil {
		return 1, fmt.Errorf("%s: %w", srcPath, err)
	}

	if d.opts.Backend == config.BackendInterp {
		d.log.Info("interp backend selected; live patching requires the native backend")
		if err := interp.Run(checked, os.Stdout); err != nil {
			return 1, err
		}
		return 0, nil
	}

	return d.runNative(srcPath, checked)
}

func (d *Driver) runNative(srcPath string, checked *validate.Checked) (int, error) {
	compiler, err := d.opts.ResolveToolchain()
	if err != nil {
		return 1, err
	}
	invoker := toolchain.NewInvoker(compiler)

	artifacts, err := artifact.NewManager()
	if err != nil {
		return 1, err
	}
	defer func() {
		if err := artifacts.Close(); err != nil {
			d.log.Warn("cleanup of %s failed: %v", artifacts.Dir(), err)
		}
	}()

	patches := lower.Patches(checked)
	cells := make(map[string]lower.CellPaths, len(patches))
	for _, name := range lower.Names(patches) {
		p := artifacts.PathsFor(name)
		cells[name] = lower.CellPaths{Lib: p.Lib, Copy: p.Copy, Lock: p.Lock}
	}
	mainSrc, err := lower.MainTU(checked, cells)
	if err != nil {
		return 1, err
	}
	if d.opts.ShowGenerated {
		fmt.Fprintln(os.Stderr, mainSrc)
	}

	for _, name := range lower.Names(patches) {
		p := artifacts.PathsFor(name)
		if err := invoker.BuildSharedObject(patches[name].Source, p.Src, p.Lib, p.Lock); err != nil {
			return 1, fmt.Errorf("initial build of %q failed: %w", name, err)
		}
	}
	if err := os.WriteFile(artifacts.MainSource(), []byte(mainSrc), 0644); err != nil {
		return 1, fmt.Errorf("failed to write main unit: %w", err)
	}
	if err := invoker.BuildExecutable(artifacts.MainSource(), artifacts.Executable()); err != nil {
		return 1, fmt.Errorf("initial build failed: %w", err)
	}

	child := exec.Command(artifacts.Executable())
	child.Stdout = os.Stdout
	child.Stderr = os.Stderr
	if err := child.Start(); err != nil {
		return 1, fmt.Errorf("failed to launch program: %w", err)
	}
	d.log.Info("launched %s (pid %d), watching %s", artifacts.Executable(), child.Process.Pid, srcPath)

	watchCtx, cancelWatch := context.WithCancel(context.Background())
	defer cancelWatch()

	reconciler := watch.NewReconciler(d.log, invoker, artifacts, patches)
	watcher := watch.NewWatcher(srcPath, d.opts.Debounce, func() {
		reconciler.OnSourceChange(srcPath)
	}, d.log)
	go func() {
		if err := watcher.Run(watchCtx); err != nil {
			d.log.Warn("watcher stopped: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan error, 1)
	go func() { done <- child.Wait() }()

	select {
	case sig := <-sigCh:
		d.log.Info("received %v, shutting down", sig)
		_ = child.Process.Signal(syscall.SIGTERM)
		<-done
		return 0, nil
	case err := <-done:
		if err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				return exitErr.ExitCode(), nil
			}
			return 1, fmt.Errorf("program wait failed: %w", err)
		}
		return 0, nil
	}
}
