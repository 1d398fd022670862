package watch

import (
	"os"
	"sync"

	"tshot-runtime/internal/artifact"
	"tshot-runtime/internal/lang"
	"tshot-runtime/internal/lower"
	"tshot-runtime/internal/observability"
	"tshot-runtime/internal/validate"
)

// Builder produces shared objects under the lockfile protocol.
type Builder interface {
	BuildSharedObject(source, srcPath, libPath, lockPath string) error
}

// UnitState is the reconciler's view of one reloadable function.
type UnitState int

const (
	StateRegistered UnitState = iota
	StateUpToDate
	StateRebuilding
	StateFailed
)

// Reconciler compares each fresh lowering of the source file against the
// known patch set and rebuilds exactly the shared objects whose bodies
// changed. Reload-policy violations and toolchain failures are logged and
// leave the old state live; nothing here is fatal.
type Reconciler struct {
	log       *observability.Logger
	builder   Builder
	artifacts *artifact.Manager

	mu     sync.Mutex
	known  map[string]lower.Patch
	states map[string]UnitState
}

// NewReconciler creates a reconciler seeded with the initially built patch
// set, which is marked up to date.
func NewReconciler(log *observability.Logger, builder Builder, artifacts *artifact.Manager, initial map[string]lower.Patch) *Reconciler {
	r := &Reconciler{
		log:       log,
		builder:   builder,
		artifacts: artifacts,
		known:     make(map[string]lower.Patch, len(initial)),
		states:    make(map[string]UnitState, len(initial)),
	}
	for name, p := range initial {
		r.known[name] = p
		r.states[name] = StateUpToDate
	}
	return r
}

// State returns the reconciler's view of one unit.
func (r *Reconciler) State(name string) UnitState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[name]
}

// Known returns a snapshot of the live patch set.
func (r *Reconciler) Known() map[string]lower.Patch {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]lower.Patch, len(r.known))
	for name, p := range r.known {
		out[name] = p
	}
	return out
}

// OnSourceChange re-runs the front-end and lowering over the source file and
// reconciles the result. Front-end failures keep the old known state.
func (r *Reconciler) OnSourceChange(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		r.log.Warn("cannot read %s: %v", path, err)
		return
	}
	prog, err := lang.Parse(string(data))
	if err != nil {
		r.log.Warn("parse failed, keeping old state: %v", err)
		return
	}
	checked, err := validate.Check(prog)
	if err != nil {
		r.log.Warn("validation failed, keeping old state: %v", err)
		return
	}
	r.Reconcile(lower.Patches(checked))
}

// Reconcile applies a fresh patch set against the known one. Deletions and
// signature changes reject the whole pass; additions are ignored; changed
// bodies rebuild their shared objects one by one.
func (r *Reconciler) Reconcile(fresh map[string]lower.Patch) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range lower.Names(r.known) {
		if _, ok := fresh[name]; !ok {
			r.log.Warn("deletion of reloadable function %q is unsupported; keeping old implementations", name)
			return
		}
	}
	for _, name := range lower.Names(r.known) {
		if fresh[name].Signature != r.known[name].Signature {
			r.log.Warn("signature of %q changed from %s to %s; reload rejected, old implementation stays live",
				name, r.known[name].Signature, fresh[name].Signature)
			return
		}
	}
	for _, name := range lower.Names(fresh) {
		if _, ok := r.known[name]; !ok {
			r.log.Warn("addition of reloadable function %q after initial compile is unsupported; ignoring", name)
		}
	}

	for _, name := range lower.Names(r.known) {
		next := fresh[name]
		if next.BodyHash == r.known[name].BodyHash {
			continue
		}

		r.states[name] = StateRebuilding
		p := r.artifacts.PathsFor(name)
		if err := r.builder.BuildSharedObject(next.Source, p.Src, p.Lib, p.Lock); err != nil {
			// The live binary keeps loading the previous lib.
			r.states[name] = StateFailed
			r.log.Error("rebuild of %q failed: %v", name, err)
			continue
		}
		r.known[name] = next
		r.states[name] = StateUpToDate
		r.log.Info("rebuilt %q", name)
	}
}
