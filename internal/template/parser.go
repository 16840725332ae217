package template

import "strconv"

type parser struct {
	toks []token
	pos  int
	vars map[string]bool
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expect(kind tokenKind) (token, error) {
	t := p.next()
	if t.kind != kind {
		return t, syntaxErrorf(t.pos, "expected %s, found %s", kind, t.kind)
	}
	return t, nil
}

func (p *parser) parseTemplate() ([]node, error) {
	var nodes []node
	for {
		t := p.next()
		switch t.kind {
		case tokEOF:
			return nodes, nil
		case tokText:
			nodes = append(nodes, textNode{text: t.val})
		case tokOpen:
			if p.peek().kind == tokClose {
				return nil, syntaxErrorf(t.pos, "empty action")
			}
			n, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokClose); err != nil {
				return nil, err
			}
			nodes = append(nodes, n)
		default:
			return nil, syntaxErrorf(t.pos, "unexpected %s", t.kind)
		}
	}
}

func (p *parser) parseExpr() (node, error) {
	t := p.next()
	switch t.kind {
	case tokString:
		return literalNode{val: stringValue(t.val)}, nil
	case tokInt:
		n, err := strconv.Atoi(t.val)
		if err != nil {
			return nil, syntaxErrorf(t.pos, "integer %s out of range", t.val)
		}
		return literalNode{val: intValue(n)}, nil
	case tokIdent:
		if p.peek().kind == tokLParen {
			return p.parseCall(t)
		}
		vt, ok := variables[t.val]
		if !ok {
			return nil, syntaxErrorf(t.pos, "unknown variable %q", t.val)
		}
		p.vars[t.val] = true
		return varNode{name: t.val, vt: vt}, nil
	default:
		return nil, syntaxErrorf(t.pos, "expected expression, found %s", t.kind)
	}
}

type argument struct {
	name string
	pos  int
	expr node
}

func (p *parser) parseCall(name token) (node, error) {
	fn, ok := library[name.val]
	if !ok {
		return nil, syntaxErrorf(name.pos, "unknown function %q", name.val)
	}
	p.next() // (

	var args []argument
	if p.peek().kind != tokRParen {
		for {
			a, err := p.parseArgument()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
	}
	if _, err := p.expect(tokRParen); err != nil {
		return nil, err
	}

	bound, err := bindArguments(fn, name.pos, args)
	if err != nil {
		return nil, err
	}
	return callNode{fn: fn, args: bound}, nil
}

func (p *parser) parseArgument() (argument, error) {
	t := p.peek()
	if t.kind == tokIdent && p.toks[p.pos+1].kind == tokAssign {
		p.next()
		p.next()
		e, err := p.parseExpr()
		if err != nil {
			return argument{}, err
		}
		return argument{name: t.val, pos: t.pos, expr: e}, nil
	}
	e, err := p.parseExpr()
	if err != nil {
		return argument{}, err
	}
	return argument{pos: t.pos, expr: e}, nil
}

// bindArguments maps positional and named arguments onto fn's parameters,
// fills defaults and checks types.
func bindArguments(fn *function, pos int, args []argument) ([]node, error) {
	bound := make([]node, len(fn.params))
	seenNamed := false
	for i, a := range args {
		idx := i
		if a.name != "" {
			seenNamed = true
			idx = paramIndex(fn, a.name)
			if idx < 0 {
				return nil, syntaxErrorf(a.pos, "%s has no parameter %q", fn.name, a.name)
			}
		} else if seenNamed {
			return nil, syntaxErrorf(a.pos, "positional argument after named argument in call to %s", fn.name)
		} else if idx >= len(fn.params) {
			return nil, syntaxErrorf(a.pos, "%s takes at most %d arguments", fn.name, len(fn.params))
		}
		if bound[idx] != nil {
			return nil, syntaxErrorf(a.pos, "parameter %q of %s given more than once", fn.params[idx].name, fn.name)
		}
		want := fn.params[idx].typ
		if got := a.expr.typ(); got != want && !(got == typeInt && want == typeString) {
			return nil, syntaxErrorf(a.pos, "parameter %q of %s must be %s, got %s", fn.params[idx].name, fn.name, want, got)
		}
		bound[idx] = a.expr
	}
	for i, prm := range fn.params {
		if bound[i] != nil {
			continue
		}
		if prm.def == nil {
			return nil, syntaxErrorf(pos, "missing argument %q in call to %s", prm.name, fn.name)
		}
		bound[i] = literalNode{val: *prm.def}
	}
	return bound, nil
}

func paramIndex(fn *function, name string) int {
	for i, prm := range fn.params {
		if prm.name == name {
			return i
		}
	}
	return -1
}
