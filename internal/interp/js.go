package interp

import (
	"fmt"
	"strings"

	"tshot-runtime/internal/lang"
	"tshot-runtime/internal/validate"
)

// JS lowers a validated program to plain JavaScript: every method becomes a
// free function in source order, main is invoked at the end. await erases
// because the host sleeps are blocking, and division truncates toward zero
// to match the native backend's integer semantics.
func JS(c *validate.Checked) string {
	var e jsEmitter
	for _, m := range c.Program.Methods {
		params := make([]string, len(m.Params))
		for i, p := range m.Params {
			params[i] = p.Name
		}
		e.writeLine(fmt.Sprintf("function %s(%s) {", m.Name, strings.Join(params, ", ")))
		e.indent++
		for _, s := range m.Body.Stmts {
			e.stmt(s)
		}
		e.indent--
		e.writeLine("}")
	}
	e.writeLine("main();")
	return e.buf.String()
}

type jsEmitter struct {
	buf    strings.Builder
	indent int
}

func (e *jsEmitter) writeLine(s string) {
	e.buf.WriteString(strings.Repeat("  ", e.indent))
	e.buf.WriteString(s)
	e.buf.WriteString("\n")
}

func (e *jsEmitter) stmt(s lang.Stmt) {
	switch st := s.(type) {
	case *lang.BlockStmt:
		e.writeLine("{")
		e.indent++
		for _, inner := range st.Stmts {
			e.stmt(inner)
		}
		e.indent--
		e.writeLine("}")
	case *lang.WhileStmt:
		e.writeLine(fmt.Sprintf("while (%s) {", e.expr(st.Cond)))
		e.indent++
		e.body(st.Body)
		e.indent--
		e.writeLine("}")
	case *lang.ForStmt:
		init := ""
		if st.Init != nil {
			init = e.inlineStmt(st.Init)
		}
		cond := ""
		if st.Cond != nil {
			cond = e.expr(st.Cond)
		}
		post := ""
		if st.Post != nil {
			post = e.expr(st.Post)
		}
		e.writeLine(fmt.Sprintf("for (%s; %s; %s) {", init, cond, post))
		e.indent++
		e.body(st.Body)
		e.indent--
		e.writeLine("}")
	case *lang.VarDecl:
		e.writeLine(e.varDecl(st) + ";")
	case *lang.ReturnStmt:
		if st.Value != nil {
			e.writeLine(fmt.Sprintf("return %s;", e.expr(st.Value)))
		} else {
			e.writeLine("return;")
		}
	case *lang.ExprStmt:
		e.writeLine(e.expr(st.X) + ";")
	}
}

func (e *jsEmitter) body(s lang.Stmt) {
	if block, ok := s.(*lang.BlockStmt); ok {
		for _, inner := range block.Stmts {
			e.stmt(inner)
		}
		return
	}
	e.stmt(s)
}

func (e *jsEmitter) inlineStmt(s lang.Stmt) string {
	switch st := s.(type) {
	case *lang.VarDecl:
		return e.varDecl(st)
	case *lang.ExprStmt:
		return e.expr(st.X)
	}
	return ""
}

func (e *jsEmitter) varDecl(d *lang.VarDecl) string {
	if d.Value == nil {
		return fmt.Sprintf("%s %s", d.Kw, d.Name)
	}
	return fmt.Sprintf("%s %s = %s", d.Kw, d.Name, e.expr(d.Value))
}

// expr renders fully parenthesized compound expressions, which sidesteps
// precedence bookkeeping in a lowering whose output is never read by people.
func (e *jsEmitter) expr(x lang.Expr) string {
	switch v := x.(type) {
	case *lang.NumberLit:
		return v.Value
	case *lang.BoolLit:
		if v.Value {
			return "true"
		}
		return "false"
	case *lang.Ident:
		return v.Name
	case *lang.MemberExpr:
		return v.Name
	case *lang.CallExpr:
		args := make([]string, len(v.Args))
		for i, a := range v.Args {
			args[i] = e.expr(a)
		}
		return fmt.Sprintf("%s(%s)", v.Callee, strings.Join(args, ", "))
	case *lang.BinaryExpr:
		if v.Op == "/" {
			return fmt.Sprintf("((%s / %s) | 0)", e.expr(v.L), e.expr(v.R))
		}
		return fmt.Sprintf("(%s %s %s)", e.expr(v.L), v.Op, e.expr(v.R))
	case *lang.AssignExpr:
		return fmt.Sprintf("(%s = %s)", v.Name, e.expr(v.Value))
	case *lang.UnaryExpr:
		if v.Prefix {
			return v.Op + e.expr(v.Operand)
		}
		return e.expr(v.Operand) + v.Op
	case *lang.AwaitExpr:
		return e.expr(v.Operand)
	}
	return ""
}
