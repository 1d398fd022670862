// Package artifact owns the per-run temp directory and the file quadruple
// backing every reloadable function.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Paths is the file quadruple of one reloadable function. Lock is present on
// disk only while a shared-object build is in flight.
type Paths struct {
	Src  string
	Lib  string
	Copy string
	Lock string
}

// Manager allocates stable paths under a per-run directory. A fresh
// directory per run means locks left behind by a crashed prior run are never
// consulted.
type Manager struct {
	dir   string
	mu    sync.Mutex
	units map[string]Paths
}

// NewManager creates the per-run temp directory.
func NewManager() (*Manager, error) {
	dir := filepath.Join(os.TempDir(), "tshot-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}
	return &Manager{dir: dir, units: make(map[string]Paths)}, nil
}

// Dir returns the run directory.
func (m *Manager) Dir() string {
	return m.dir
}

// MainSource returns the path of the generated main translation unit.
func (m *Manager) MainSource() string {
	return filepath.Join(m.dir, "main.cpp")
}

// Executable returns the path of the built program binary.
func (m *Manager) Executable() string {
	return filepath.Join(m.dir, "main.exe")
}

// PathsFor returns the quadruple for a reloadable function. Once returned,
// the paths are stable for the lifetime of the process.
func (m *Manager) PathsFor(name string) Paths {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.units[name]; ok {
		return p
	}
	p := Paths{
		Src:  filepath.Join(m.dir, name+".cpp"),
		Lib:  filepath.Join(m.dir, name+".lib.so"),
		Copy: filepath.Join(m.dir, name+".copy.so"),
		Lock: filepath.Join(m.dir, name+".lock"),
	}
	m.units[name] = p
	return p
}

// Close removes the run directory, best-effort.
func (m *Manager) Close() error {
	return os.RemoveAll(m.dir)
}
