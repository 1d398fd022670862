// Package config resolves the driver's run options from defaults, an
// optional tshot.json project file, the environment, and CLI flags.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// Backend selects how a program is executed.
type Backend string

const (
	// BackendNative compiles the program with the C++ toolchain and hot
	// reloads its annotated functions through shared objects.
	BackendNative Backend = "native"
	// BackendInterp runs the program in-process on the JavaScript engine,
	// without hot reload.
	BackendInterp Backend = "interp"
)

// DefaultToolchain is used when neither tshot.json nor $CXX selects one.
const DefaultToolchain = "c++"

// DefaultDebounce coalesces editor write bursts before a reload pass.
const DefaultDebounce = 300 * time.Millisecond

// Options are the resolved run options.
type Options struct {
	Backend       Backend       `json:"backend,omitempty"`
	Toolchain     string        `json:"toolchain,omitempty"`
	DebounceMs    int           `json:"debounceMs,omitempty"`
	ShowGenerated bool          `json:"showGenerated,omitempty"`
	Debounce      time.Duration `json:"-"`
}

// GetDefaultOptions returns the defaults prior to file/env/flag overrides.
func GetDefaultOptions() *Options {
	return &Options{
		Backend:    BackendNative,
		Toolchain:  "",
		DebounceMs: 0,
		Debounce:   DefaultDebounce,
	}
}

// FindConfig searches for tshot.json in the directory and its parents.
func FindConfig(startDir string) (string, error) {
	dir := startDir
	for {
		configPath := filepath.Join(dir, "tshot.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached root
		}
		dir = parent
	}

	return "", fmt.Errorf("config file not found")
}

// LoadConfig loads options from a tshot.json file.
func LoadConfig(configPath string) (*Options, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	opts := GetDefaultOptions()
	if err := json.Unmarshal(data, opts); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if opts.DebounceMs > 0 {
		opts.Debounce = time.Duration(opts.DebounceMs) * time.Millisecond
	}

	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return opts, nil
}

// Validate validates the options.
func (o *Options) Validate() error {
	switch o.Backend {
	case BackendNative, BackendInterp:
	case "browser":
		return fmt.Errorf("the browser backend is not supported by this build")
	default:
		return fmt.Errorf("unknown backend %q", o.Backend)
	}
	if o.DebounceMs < 0 {
		return fmt.Errorf("debounceMs must not be negative")
	}
	return nil
}

// ResolveToolchain returns the C++ compiler to invoke: the configured
// toolchain if set, else $CXX, else the default. The result must be on PATH.
func (o *Options) ResolveToolchain() (string, error) {
	name := o.Toolchain
	if name == "" {
		name = os.Getenv("CXX")
	}
	if name == "" {
		name = DefaultToolchain
	}

	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("toolchain %q not found: %w", name, err)
	}
	return path, nil
}
