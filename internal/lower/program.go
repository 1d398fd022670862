package lower

import (
	"fmt"
	"sort"
	"strconv"

	"tshot-runtime/internal/lang"
	"tshot-runtime/internal/validate"
)

// CellPaths binds a reloadable function's cell to its artifact triplet.
type CellPaths struct {
	Lib  string
	Copy string
	Lock string
}

// FunctionTU emits the standalone translation unit for one reloadable method:
// the host-API prelude plus a single function with C linkage whose symbol is
// the method name.
func FunctionTU(c *validate.Checked, m *lang.Method) string {
	e := newEmitter(c)
	e.buf.WriteString(unitPrelude)
	e.buf.WriteString("\n")
	e.emitBody(`extern "C" `+funcHeader(m), m.Body)
	return e.buf.String()
}

// MainTU emits the program translation unit: the runtime header, forward
// declarations, static methods as free functions in source order, one
// HotReload cell per reloadable method in source order, and main last.
// Identical inputs produce byte-identical output.
func MainTU(c *validate.Checked, cells map[string]CellPaths) (string, error) {
	statics := c.Statics()
	reloadable := c.Reloadable()

	for _, m := range reloadable {
		if _, ok := cells[m.Name]; !ok {
			return "", fmt.Errorf("no cell paths for reloadable function %q", m.Name)
		}
	}

	e := newEmitter(c)
	e.buf.WriteString(runtimeHeader)
	e.buf.WriteString("\n// --- program ---\n\n")

	for _, m := range statics {
		e.writeLine(funcHeader(m) + ";")
	}
	for _, m := range reloadable {
		e.writeLine(fmt.Sprintf("extern HotReload<%s> %s;", Signature(m), m.Name))
	}
	if len(statics)+len(reloadable) > 0 {
		e.buf.WriteString("\n")
	}

	for _, m := range statics {
		e.emitBody(funcHeader(m), m.Body)
		e.buf.WriteString("\n")
	}

	for _, m := range reloadable {
		paths := cells[m.Name]
		e.writeLine(fmt.Sprintf("HotReload<%s> %s(%s, %s, %s, %s);",
			Signature(m), m.Name,
			cString(m.Name), cString(paths.Lib), cString(paths.Copy), cString(paths.Lock)))
	}
	if len(reloadable) > 0 {
		e.buf.WriteString("\n")
	}

	e.emitBody("int main()", c.Main().Body)
	return e.buf.String(), nil
}

// cString renders a C string literal. Go's quoting rules are a superset of
// what temp-directory paths need.
func cString(s string) string {
	return strconv.Quote(s)
}

// Patch is the reconciler's view of one reloadable function: its canonical
// signature, its emitted translation unit, and that unit's content hash.
type Patch struct {
	Name      string
	Signature string
	Source    string
	BodyHash  uint64
}

// Patches lowers every reloadable method of a checked program, keyed by
// function name.
func Patches(c *validate.Checked) map[string]Patch {
	out := make(map[string]Patch)
	for _, m := range c.Reloadable() {
		src := FunctionTU(c, m)
		out[m.Name] = Patch{
			Name:      m.Name,
			Signature: Signature(m),
			Source:    src,
			BodyHash:  Hash(src),
		}
	}
	return out
}

// Names returns the patch names sorted for stable iteration.
func Names(patches map[string]Patch) []string {
	names := make([]string, 0, len(patches))
	for name := range patches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
