// Package validate enforces the translatable DSL subset and classifies the
// program's methods for the backends.
package validate

import (
	"regexp"

	"tshot-runtime/internal/lang"
)

// BaseClass is the only base a program class may extend.
const BaseClass = "HotReloadProgram"

// ReloadDecorator marks a method as hot-reloadable.
const ReloadDecorator = "hotreload"

// MethodKind classifies a validated method.
type MethodKind int

const (
	KindMain MethodKind = iota
	KindHotReload
	KindStatic
)

// HostAPI maps the built-in host functions to their arity.
var HostAPI = map[string]int{
	"print":         1,
	"sleep_seconds": 1,
	"sleep_millis":  1,
}

var symbolRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Checked is a validated program: the AST with this-references expanded and
// every method classified.
type Checked struct {
	Program *lang.Program
	Kinds   map[string]MethodKind
	methods map[string]*lang.Method
}

// Main returns the program's entry method.
func (c *Checked) Main() *lang.Method {
	for _, m := range c.Program.Methods {
		if c.Kinds[m.Name] == KindMain {
			return m
		}
	}
	return nil
}

// Statics returns the non-reloadable helper methods in source order.
func (c *Checked) Statics() []*lang.Method {
	var out []*lang.Method
	for _, m := range c.Program.Methods {
		if c.Kinds[m.Name] == KindStatic {
			out = append(out, m)
		}
	}
	return out
}

// Reloadable returns the hot-reloadable methods in source order.
func (c *Checked) Reloadable() []*lang.Method {
	var out []*lang.Method
	for _, m := range c.Program.Methods {
		if c.Kinds[m.Name] == KindHotReload {
			out = append(out, m)
		}
	}
	return out
}

// Method looks up a method by name.
func (c *Checked) Method(name string) *lang.Method {
	return c.methods[name]
}

// Check validates a parsed program against the DSL subset. The returned
// Checked shares (and mutates) the AST: this.<method>(...) calls are expanded
// to bare calls; other this.<method> references are checked and left as
// MemberExpr nodes.
func Check(prog *lang.Program) (*Checked, error) {
	if prog.Base != BaseClass {
		return nil, lang.Errorf(prog.Pos, "class %s must extend %s, not %s", prog.ClassName, BaseClass, prog.Base)
	}

	c := &Checked{
		Program: prog,
		Kinds:   make(map[string]MethodKind),
		methods: make(map[string]*lang.Method),
	}

	for _, m := range prog.Methods {
		if _, dup := c.methods[m.Name]; dup {
			return nil, lang.Errorf(m.Pos, "duplicate method %q", m.Name)
		}
		if !symbolRe.MatchString(m.Name) {
			return nil, lang.Errorf(m.Pos, "method name %q is not a valid symbol", m.Name)
		}
		if _, host := HostAPI[m.Name]; host {
			return nil, lang.Errorf(m.Pos, "method %q shadows a host API function", m.Name)
		}
		c.methods[m.Name] = m

		reloadable, err := checkDecorators(m)
		if err != nil {
			return nil, err
		}
		switch {
		case m.Name == "main":
			if reloadable {
				return nil, lang.Errorf(m.Pos, "main may not be @%s", ReloadDecorator)
			}
			if len(m.Params) > 0 {
				return nil, lang.Errorf(m.Pos, "main takes no parameters")
			}
			c.Kinds[m.Name] = KindMain
		case reloadable:
			c.Kinds[m.Name] = KindHotReload
		default:
			c.Kinds[m.Name] = KindStatic
		}

		if err := checkTypes(m); err != nil {
			return nil, err
		}
	}

	if _, ok := c.methods["main"]; !ok {
		return nil, lang.Errorf(prog.Pos, "program has no main method")
	}

	for _, m := range prog.Methods {
		if err := c.checkBody(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func checkDecorators(m *lang.Method) (reloadable bool, err error) {
	if len(m.Decorators) > 1 {
		return false, lang.Errorf(m.Pos, "method %q has %d decorators; at most one is allowed", m.Name, len(m.Decorators))
	}
	if len(m.Decorators) == 1 {
		if m.Decorators[0] != ReloadDecorator {
			return false, lang.Errorf(m.Pos, "unsupported decorator @%s on method %q", m.Decorators[0], m.Name)
		}
		return true, nil
	}
	return false, nil
}

func checkTypes(m *lang.Method) error {
	if err := checkType(m.Return, true); err != nil {
		return err
	}
	for _, p := range m.Params {
		if err := checkType(p.Type, false); err != nil {
			return err
		}
	}
	return nil
}

// checkType admits number everywhere and Promise<number> in return position,
// where it is treated as number.
func checkType(t lang.TypeRef, isReturn bool) error {
	if t.Name == "number" {
		return nil
	}
	if isReturn && t.Name == "Promise<number>" {
		return nil
	}
	return lang.Errorf(t.Pos, "unsupported type %q; only number is supported", t.Name)
}

// checkBody walks a method body, expanding this.<method> references and
// checking every call site.
func (c *Checked) checkBody(m *lang.Method) error {
	reloadable := c.Kinds[m.Name] == KindHotReload
	return c.walkStmt(m, m.Body, reloadable)
}

func (c *Checked) walkStmt(m *lang.Method, s lang.Stmt, reloadable bool) error {
	switch st := s.(type) {
	case *lang.BlockStmt:
		for _, inner := range st.Stmts {
			if err := c.walkStmt(m, inner, reloadable); err != nil {
				return err
			}
		}
	case *lang.WhileStmt:
		if err := c.walkExpr(m, st.Cond, reloadable); err != nil {
			return err
		}
		return c.walkStmt(m, st.Body, reloadable)
	case *lang.ForStmt:
		if st.Init != nil {
			if err := c.walkStmt(m, st.Init, reloadable); err != nil {
				return err
			}
		}
		if st.Cond != nil {
			if err := c.walkExpr(m, st.Cond, reloadable); err != nil {
				return err
			}
		}
		if st.Post != nil {
			if err := c.walkExpr(m, st.Post, reloadable); err != nil {
				return err
			}
		}
		return c.walkStmt(m, st.Body, reloadable)
	case *lang.VarDecl:
		if st.Type != nil {
			if err := checkType(*st.Type, false); err != nil {
				return err
			}
		}
		if st.Value != nil {
			return c.walkExpr(m, st.Value, reloadable)
		}
	case *lang.ReturnStmt:
		if st.Value != nil {
			return c.walkExpr(m, st.Value, reloadable)
		}
	case *lang.ExprStmt:
		return c.walkExpr(m, st.X, reloadable)
	}
	return nil
}

func (c *Checked) walkExpr(m *lang.Method, e lang.Expr, reloadable bool) error {
	switch x := e.(type) {
	case *lang.MemberExpr:
		// this.<name> outside call position: admissible only for method
		// references, which expand to the bare name.
		if _, ok := c.methods[x.Name]; !ok {
			return lang.Errorf(x.Pos, "this.%s does not name a program method", x.Name)
		}
		return nil
	case *lang.CallExpr:
		if err := c.checkCall(m, x, reloadable); err != nil {
			return err
		}
		for _, arg := range x.Args {
			if err := c.walkExpr(m, arg, reloadable); err != nil {
				return err
			}
		}
	case *lang.BinaryExpr:
		if err := c.walkExpr(m, x.L, reloadable); err != nil {
			return err
		}
		return c.walkExpr(m, x.R, reloadable)
	case *lang.AssignExpr:
		return c.walkExpr(m, x.Value, reloadable)
	case *lang.UnaryExpr:
		return c.walkExpr(m, x.Operand, reloadable)
	case *lang.AwaitExpr:
		return c.walkExpr(m, x.Operand, reloadable)
	}
	return nil
}

func (c *Checked) checkCall(m *lang.Method, call *lang.CallExpr, reloadable bool) error {
	if call.ThisCall {
		if _, ok := c.methods[call.Callee]; !ok {
			return lang.Errorf(call.Pos, "this.%s does not name a program method", call.Callee)
		}
		call.ThisCall = false // expand to the bare name
	}

	if arity, host := HostAPI[call.Callee]; host {
		if len(call.Args) != arity {
			return lang.Errorf(call.Pos, "%s takes %d argument(s), got %d", call.Callee, arity, len(call.Args))
		}
		return nil
	}

	target, ok := c.methods[call.Callee]
	if !ok {
		return lang.Errorf(call.Pos, "call to unknown function %q", call.Callee)
	}
	if reloadable {
		// A reloadable body compiles into a standalone shared object where
		// sibling methods are not linkable.
		return lang.Errorf(call.Pos, "@%s method %q may not call program method %q; only the host API is available", ReloadDecorator, m.Name, call.Callee)
	}
	if target.Name == "main" {
		return lang.Errorf(call.Pos, "main may not be called")
	}
	if len(call.Args) != len(target.Params) {
		return lang.Errorf(call.Pos, "%s takes %d argument(s), got %d", call.Callee, len(target.Params), len(call.Args))
	}
	return nil
}
