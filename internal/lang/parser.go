package lang

// Parser builds a Program from a token stream.
type Parser struct {
	toks []Token
	i    int
}

// Parse lexes and parses a DSL source file.
func Parse(src string) (*Program, error) {
	toks, err := NewLexer(src).Tokenize()
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks}
	return p.parseProgram()
}

func (p *Parser) cur() Token { return p.toks[p.i] }

func (p *Parser) peek() Token {
	if p.i+1 < len(p.toks) {
		return p.toks[p.i+1]
	}
	return p.toks[len(p.toks)-1]
}

func (p *Parser) advance() Token {
	tok := p.toks[p.i]
	if p.i < len(p.toks)-1 {
		p.i++
	}
	return tok
}

func (p *Parser) accept(lit string) bool {
	if p.cur().Is(lit) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(lit string) (Token, error) {
	if !p.cur().Is(lit) {
		return Token{}, Errorf(p.cur().Pos, "expected %q, found %q", lit, p.cur().Lit)
	}
	return p.advance(), nil
}

func (p *Parser) expectIdent() (Token, error) {
	if p.cur().Kind != TokenIdent {
		return Token{}, Errorf(p.cur().Pos, "expected identifier, found %q", p.cur().Lit)
	}
	return p.advance(), nil
}

func (p *Parser) parseProgram() (*Program, error) {
	start, err := p.expect("class")
	if err != nil {
		return nil, Errorf(p.cur().Pos, "program must start with a class declaration")
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect("extends"); err != nil {
		return nil, Errorf(name.Pos, "class %s must extend a base class", name.Lit)
	}
	base, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect("{"); err != nil {
		return nil, err
	}

	prog := &Program{ClassName: name.Lit, Base: base.Lit, Pos: start.Pos}
	for !p.cur().Is("}") {
		if p.cur().Kind == TokenEOF {
			return nil, Errorf(p.cur().Pos, "unexpected end of file in class body")
		}
		m, err := p.parseMethod()
		if err != nil {
			return nil, err
		}
		prog.Methods = append(prog.Methods, m)
	}
	p.advance() // }

	if p.cur().Kind != TokenEOF {
		return nil, Errorf(p.cur().Pos, "unexpected %q after class body; exactly one class is allowed", p.cur().Lit)
	}
	return prog, nil
}

func (p *Parser) parseMethod() (*Method, error) {
	m := &Method{Pos: p.cur().Pos}

	for p.accept("@") {
		dec, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		m.Decorators = append(m.Decorators, dec.Lit)
	}
	if p.accept("async") {
		m.Async = true
	}

	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	m.Name = name.Lit

	// A member that is not followed by a parameter list is a field or some
	// other non-method construct; name it in the diagnostic.
	if !p.cur().Is("(") {
		return nil, Errorf(name.Pos, "class member %q is not a method; only methods are allowed", name.Lit)
	}
	p.advance()

	for !p.cur().Is(")") {
		pname, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(":"); err != nil {
			return nil, Errorf(pname.Pos, "parameter %q is missing a type annotation", pname.Lit)
		}
		ptype, err := p.parseType()
		if err != nil {
			return nil, err
		}
		m.Params = append(m.Params, Param{Name: pname.Lit, Type: ptype, Pos: pname.Pos})
		if !p.accept(",") {
			break
		}
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}

	if _, err := p.expect(":"); err != nil {
		return nil, Errorf(name.Pos, "method %q is missing a return type annotation", name.Lit)
	}
	m.Return, err = p.parseType()
	if err != nil {
		return nil, err
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	m.Body = body
	return m, nil
}

func (p *Parser) parseType() (TypeRef, error) {
	name, err := p.expectIdent()
	if err != nil {
		return TypeRef{}, Errorf(p.cur().Pos, "expected type, found %q", p.cur().Lit)
	}
	ref := TypeRef{Name: name.Lit, Pos: name.Pos}
	if p.accept("<") {
		inner, err := p.parseType()
		if err != nil {
			return TypeRef{}, err
		}
		if _, err := p.expect(">"); err != nil {
			return TypeRef{}, err
		}
		ref.Name = ref.Name + "<" + inner.Name + ">"
	}
	return ref, nil
}

func (p *Parser) parseBlock() (*BlockStmt, error) {
	open, err := p.expect("{")
	if err != nil {
		return nil, err
	}
	block := &BlockStmt{Pos: open.Pos}
	for !p.cur().Is("}") {
		if p.cur().Kind == TokenEOF {
			return nil, Errorf(p.cur().Pos, "unexpected end of file in block")
		}
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		block.Stmts = append(block.Stmts, stmt)
	}
	p.advance() // }
	return block, nil
}

func (p *Parser) parseStmt() (Stmt, error) {
	tok := p.cur()
	switch {
	case tok.Is("{"):
		return p.parseBlock()
	case tok.Is("while"):
		return p.parseWhile()
	case tok.Is("for"):
		return p.parseFor()
	case tok.Is("let") || tok.Is("const") || tok.Is("var"):
		decl, err := p.parseVarDecl()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(";"); err != nil {
			return nil, err
		}
		return decl, nil
	case tok.Is("return"):
		p.advance()
		ret := &ReturnStmt{Pos: tok.Pos}
		if !p.cur().Is(";") {
			value, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			ret.Value = value
		}
		if _, err := p.expect(";"); err != nil {
			return nil, err
		}
		return ret, nil
	default:
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(";"); err != nil {
			return nil, err
		}
		return &ExprStmt{X: x, Pos: tok.Pos}, nil
	}
}

func (p *Parser) parseWhile() (Stmt, error) {
	tok := p.advance()
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	body, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	return &WhileStmt{Cond: cond, Body: body, Pos: tok.Pos}, nil
}

func (p *Parser) parseFor() (Stmt, error) {
	tok := p.advance()
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	loop := &ForStmt{Pos: tok.Pos}

	if !p.cur().Is(";") {
		if p.cur().Is("let") || p.cur().Is("const") || p.cur().Is("var") {
			decl, err := p.parseVarDecl()
			if err != nil {
				return nil, err
			}
			loop.Init = decl
		} else {
			x, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			loop.Init = &ExprStmt{X: x, Pos: x.Position()}
		}
	}
	if _, err := p.expect(";"); err != nil {
		return nil, err
	}

	if !p.cur().Is(";") {
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		loop.Cond = cond
	}
	if _, err := p.expect(";"); err != nil {
		return nil, err
	}

	if !p.cur().Is(")") {
		post, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		loop.Post = post
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}

	body, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	loop.Body = body
	return loop, nil
}

func (p *Parser) parseVarDecl() (*VarDecl, error) {
	kw := p.advance()
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	decl := &VarDecl{Kw: kw.Lit, Name: name.Lit, Pos: kw.Pos}
	if p.accept(":") {
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		decl.Type = &typ
	}
	if p.accept("=") {
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		decl.Value = value
	}
	return decl, nil
}

// Expression precedence, loosest first: assignment, equality, relational,
// additive, multiplicative, unary, postfix, primary.

func (p *Parser) parseExpr() (Expr, error) {
	return p.parseAssign()
}

func (p *Parser) parseAssign() (Expr, error) {
	if p.cur().Kind == TokenIdent && p.peek().Is("=") {
		name := p.advance()
		p.advance() // =
		value, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		return &AssignExpr{Name: name.Lit, Value: value, Pos: name.Pos}, nil
	}
	return p.parseBinary(0)
}

var binaryLevels = [][]string{
	{"==", "!="},
	{"<", ">", "<=", ">="},
	{"+", "-"},
	{"*", "/"},
}

func (p *Parser) parseBinary(level int) (Expr, error) {
	if level >= len(binaryLevels) {
		return p.parseUnary()
	}
	left, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		matched := false
		for _, op := range binaryLevels[level] {
			if p.cur().Is(op) {
				tok := p.advance()
				right, err := p.parseBinary(level + 1)
				if err != nil {
					return nil, err
				}
				left = &BinaryExpr{Op: op, L: left, R: right, Pos: tok.Pos}
				matched = true
				break
			}
		}
		if !matched {
			return left, nil
		}
	}
}

func (p *Parser) parseUnary() (Expr, error) {
	tok := p.cur()
	switch {
	case tok.Is("await"):
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &AwaitExpr{Operand: operand, Pos: tok.Pos}, nil
	case tok.Is("++") || tok.Is("--"):
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: tok.Lit, Prefix: true, Operand: operand, Pos: tok.Pos}, nil
	case tok.Is("+") || tok.Is("-"):
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: tok.Lit, Prefix: true, Operand: operand, Pos: tok.Pos}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (Expr, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.cur().Is("++") || p.cur().Is("--") {
		tok := p.advance()
		x = &UnaryExpr{Op: tok.Lit, Prefix: false, Operand: x, Pos: tok.Pos}
	}
	return x, nil
}

func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.cur()
	switch {
	case tok.Kind == TokenNumber:
		p.advance()
		return &NumberLit{Value: tok.Lit, Pos: tok.Pos}, nil
	case tok.Is("true"), tok.Is("false"):
		p.advance()
		return &BoolLit{Value: tok.Lit == "true", Pos: tok.Pos}, nil
	case tok.Is("this"):
		p.advance()
		if _, err := p.expect("."); err != nil {
			return nil, Errorf(tok.Pos, "bare %q is not allowed; use this.<member>", "this")
		}
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if p.cur().Is("(") {
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			return &CallExpr{Callee: name.Lit, ThisCall: true, Args: args, Pos: tok.Pos}, nil
		}
		return &MemberExpr{Name: name.Lit, Pos: tok.Pos}, nil
	case tok.Kind == TokenIdent:
		p.advance()
		if p.cur().Is("(") {
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			return &CallExpr{Callee: tok.Lit, Args: args, Pos: tok.Pos}, nil
		}
		return &Ident{Name: tok.Lit, Pos: tok.Pos}, nil
	case tok.Is("("):
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(")"); err != nil {
			return nil, err
		}
		return inner, nil
	}
	return nil, Errorf(tok.Pos, "unexpected %q in expression", tok.Lit)
}

func (p *Parser) parseArgs() ([]Expr, error) {
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	var args []Expr
	for !p.cur().Is(")") {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if !p.accept(",") {
			break
		}
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	return args, nil
}
