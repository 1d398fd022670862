// Package interp runs validated programs in-process on the JavaScript
// engine. It exists for fast program checking; there is no hot reload here.
package interp

import (
	"fmt"
	"sync"

	"github.com/dop251/goja"
)

// Engine represents the script execution engine.
type Engine struct {
	vm *goja.Runtime
	mu sync.Mutex
}

// NewEngine creates a new execution engine.
func NewEngine() *Engine {
	return &Engine{vm: goja.New()}
}

// Execute executes JavaScript code.
func (e *Engine) Execute(code string) (goja.Value, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	value, err := e.vm.RunString(code)
	if err != nil {
		return nil, fmt.Errorf("execution failed: %w", err)
	}
	return value, nil
}

// RegisterFunction registers a Go function in the JavaScript runtime.
func (e *Engine) RegisterFunction(name string, fn interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vm.Set(name, fn)
}
