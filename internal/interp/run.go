package interp

import (
	"fmt"
	"io"
	"time"

	"tshot-runtime/internal/validate"
)

// Run executes a validated program on the engine with the host API bound.
// The sleeps block, preserving the source's sequencing without an event loop.
func Run(c *validate.Checked, stdout io.Writer) error {
	e := NewEngine()
	e.RegisterFunction("print", func(n int) {
		fmt.Fprintf(stdout, "%d\n", n)
	})
	e.RegisterFunction("sleep_seconds", func(n int) {
		if n > 0 {
			time.Sleep(time.Duration(n) * time.Second)
		}
	})
	e.RegisterFunction("sleep_millis", func(n int) {
		if n > 0 {
			time.Sleep(time.Duration(n) * time.Millisecond)
		}
	})

	if _, err := e.Execute(JS(c)); err != nil {
		return err
	}
	return nil
}
