// Package lower emits C++ translation units for validated programs: one
// standalone unit per reloadable method and one main unit carrying the
// hot-reload runtime, the static helpers, and the reload cells.
package lower

import (
	"fmt"
	"strings"

	"github.com/OneOfOne/xxhash"

	"tshot-runtime/internal/lang"
	"tshot-runtime/internal/validate"
)

// Hash is the content hash used to decide whether a translation unit needs a
// rebuild.
func Hash(src string) uint64 {
	return xxhash.Checksum64([]byte(src))
}

// Signature is the canonical C++ signature string of a method, used verbatim
// for the signature-stability check across reloads.
func Signature(m *lang.Method) string {
	params := make([]string, len(m.Params))
	for i := range m.Params {
		params[i] = "int"
	}
	return fmt.Sprintf("int(%s)", strings.Join(params, ", "))
}

// emitter lowers statements and expressions of one method body. reloadable
// names the program's reloadable methods so call sites can be rewritten to go
// through their cells.
type emitter struct {
	buf        strings.Builder
	indent     int
	reloadable map[string]bool
}

func newEmitter(c *validate.Checked) *emitter {
	e := &emitter{reloadable: make(map[string]bool)}
	for _, m := range c.Reloadable() {
		e.reloadable[m.Name] = true
	}
	return e
}

func (e *emitter) writeLine(s string) {
	e.buf.WriteString(strings.Repeat("  ", e.indent))
	e.buf.WriteString(s)
	e.buf.WriteString("\n")
}

// funcHeader renders "int name(int a, int b)".
func funcHeader(m *lang.Method) string {
	params := make([]string, len(m.Params))
	for i, p := range m.Params {
		params[i] = "int " + p.Name
	}
	return fmt.Sprintf("int %s(%s)", m.Name, strings.Join(params, ", "))
}

// emitBody renders a method body as a braced block following the header.
func (e *emitter) emitBody(header string, body *lang.BlockStmt) {
	e.writeLine(header + " {")
	e.indent++
	for _, s := range body.Stmts {
		e.stmt(s)
	}
	e.indent--
	e.writeLine("}")
}

func (e *emitter) stmt(s lang.Stmt) {
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
		e.writeLine(fmt.Sprintf("while (%s) {", e.expr(st.Cond, 0)))
		e.indent++
		e.stmtList(st.Body)
		e.indent--
		e.writeLine("}")
	case *lang.ForStmt:
		init := ""
		if st.Init != nil {
			init = e.inlineStmt(st.Init)
		}
		cond := ""
		if st.Cond != nil {
			cond = e.expr(st.Cond, 0)
		}
		post := ""
		if st.Post != nil {
			post = e.expr(st.Post, 0)
		}
		e.writeLine(fmt.Sprintf("for (%s; %s; %s) {", init, cond, post))
		e.indent++
		e.stmtList(st.Body)
		e.indent--
		e.writeLine("}")
	case *lang.VarDecl:
		e.writeLine(e.varDecl(st) + ";")
	case *lang.ReturnStmt:
		if st.Value != nil {
			e.writeLine(fmt.Sprintf("return %s;", e.expr(st.Value, 0)))
		} else {
			e.writeLine("return;")
		}
	case *lang.ExprStmt:
		e.writeLine(e.expr(st.X, 0) + ";")
	}
}

// stmtList flattens a loop body: a block's statements are emitted directly
// inside the loop's braces, anything else as a single statement.
func (e *emitter) stmtList(s lang.Stmt) {
	if block, ok := s.(*lang.BlockStmt); ok {
		for _, inner := range block.Stmts {
			e.stmt(inner)
		}
		return
	}
	e.stmt(s)
}

// inlineStmt renders a for-init without indentation or trailing semicolon.
func (e *emitter) inlineStmt(s lang.Stmt) string {
	switch st := s.(type) {
	case *lang.VarDecl:
		return e.varDecl(st)
	case *lang.ExprStmt:
		return e.expr(st.X, 0)
	}
	return ""
}

// varDecl lowers a declaration. auto appears only on locals without an
// explicit annotation; an explicit number annotation lowers to int.
func (e *emitter) varDecl(d *lang.VarDecl) string {
	typ := "auto"
	if d.Type != nil || d.Value == nil {
		typ = "int"
	}
	if d.Value == nil {
		return fmt.Sprintf("%s %s", typ, d.Name)
	}
	return fmt.Sprintf("%s %s = %s", typ, d.Name, e.expr(d.Value, 0))
}

// Operator precedence for minimal re-parenthesization, loosest first.
const (
	precAssign = iota + 1
	precEquality
	precRelational
	precAdditive
	precMultiplicative
	precUnary
	precPostfix
	precPrimary
)

func binaryPrec(op string) int {
	switch op {
	case "==", "!=":
		return precEquality
	case "<", ">", "<=", ">=":
		return precRelational
	case "+", "-":
		return precAdditive
	default:
		return precMultiplicative
	}
}

// expr renders an expression, parenthesizing when its precedence is looser
// than the context requires.
func (e *emitter) expr(x lang.Expr, ctx int) string {
	var out string
	prec := precPrimary

	switch v := x.(type) {
	case *lang.NumberLit:
		out = v.Value
	case *lang.BoolLit:
		if v.Value {
			out = "true"
		} else {
			out = "false"
		}
	case *lang.Ident:
		out = v.Name
	case *lang.MemberExpr:
		// Validated method reference, already admissible as a bare name.
		out = v.Name
	case *lang.CallExpr:
		args := make([]string, len(v.Args))
		for i, a := range v.Args {
			args[i] = e.expr(a, 0)
		}
		if e.reloadable[v.Callee] {
			out = fmt.Sprintf("%s.get()(%s)", v.Callee, strings.Join(args, ", "))
		} else {
			out = fmt.Sprintf("%s(%s)", v.Callee, strings.Join(args, ", "))
		}
		prec = precPostfix
	case *lang.BinaryExpr:
		prec = binaryPrec(v.Op)
		out = fmt.Sprintf("%s %s %s", e.expr(v.L, prec), v.Op, e.expr(v.R, prec+1))
	case *lang.AssignExpr:
		prec = precAssign
		out = fmt.Sprintf("%s = %s", v.Name, e.expr(v.Value, precAssign))
	case *lang.UnaryExpr:
		if v.Prefix {
			prec = precUnary
			out = v.Op + e.expr(v.Operand, precUnary)
		} else {
			prec = precPostfix
			out = e.expr(v.Operand, precPostfix) + v.Op
		}
	case *lang.AwaitExpr:
		// Sleeps block the sole user thread, so await erases to its operand.
		return e.expr(v.Operand, ctx)
	}

	if prec < ctx {
		return "(" + out + ")"
	}
	return out
}
