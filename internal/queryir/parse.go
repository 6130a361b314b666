package queryir

import (
	"fmt"
	"strconv"

	"github.com/roach88/mapql/internal/ir"
)

// Parse parses a query in the supported subset into a Select.
// Keywords are case-insensitive; aliases, entity and field names are not.
//
// Parse performs no schema lookups. Use Resolve to validate the result.
func Parse(query string) (*Select, error) {
	toks, err := lex(query)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	return p.parseSelect()
}

type parser struct {
	toks []token
	pos  int
	sel  *Select
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return &SyntaxError{Offset: t.pos, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(kw string) error {
	t := p.next()
	if !t.is(kw) {
		return p.errorf(t, "expected %s, found %s", kw, t)
	}
	return nil
}

func (p *parser) accept(kw string) bool {
	if p.peek().is(kw) {
		p.next()
		return true
	}
	return false
}

func (p *parser) ident(what string) (string, error) {
	t := p.next()
	if t.kind != tokIdent {
		return "", p.errorf(t, "expected %s, found %s", what, t)
	}
	return t.text, nil
}

func (p *parser) parseSelect() (*Select, error) {
	p.sel = &Select{}

	if err := p.expect("SELECT"); err != nil {
		return nil, err
	}

	for {
		proj, err := p.parseProjection()
		if err != nil {
			return nil, err
		}
		p.sel.Projections = append(p.sel.Projections, proj)
		if !p.accept(",") {
			break
		}
	}

	if err := p.expect("FROM"); err != nil {
		return nil, err
	}
	if err := p.parseFrom(); err != nil {
		return nil, err
	}

	if p.accept("WHERE") {
		pred, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}
		p.sel.Filter = pred
	}

	if p.accept("ORDER") {
		if err := p.expect("BY"); err != nil {
			return nil, err
		}
		path, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		p.sel.OrderBy = &path
		if t := p.peek(); t.is("DESC") {
			return nil, p.errorf(t, "descending order is not supported")
		}
		p.accept("ASC")
	}

	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errorf(t, "unexpected %s", t)
	}

	return p.sel, nil
}

// parseFrom parses "<Entity> [AS] <alias> [, IN(<alias>{.<field>}) [AS] <var>]".
// Every field of the IN path but the last is a ref navigated from the alias.
func (p *parser) parseFrom() error {
	rootType, err := p.ident("entity name")
	if err != nil {
		return err
	}
	p.accept("AS")
	rootAlias, err := p.ident("alias")
	if err != nil {
		return err
	}
	p.sel.RootType = rootType
	p.sel.RootAlias = rootAlias

	if !p.accept(",") {
		return nil
	}

	if err := p.expect("IN"); err != nil {
		return err
	}
	if err := p.expect("("); err != nil {
		return err
	}
	owner, err := p.ident("alias")
	if err != nil {
		return err
	}
	if t := p.peek(); !t.is(".") {
		return p.errorf(t, "IN path must name a map field, found %s", t)
	}
	fields, err := p.parseFields()
	if err != nil {
		return err
	}
	if err := p.expect(")"); err != nil {
		return err
	}
	p.accept("AS")
	v, err := p.ident("variable")
	if err != nil {
		return err
	}

	last := len(fields) - 1
	p.sel.MapOwner = owner
	p.sel.MapVia = fields[:last]
	p.sel.MapField = fields[last]
	p.sel.Var = v
	return nil
}

// parseProjection parses one select item or predicate operand.
func (p *parser) parseProjection() (Projection, error) {
	t := p.peek()
	if t.kind != tokIdent {
		return nil, p.errorf(t, "expected projection, found %s", t)
	}

	// KEY/VALUE/ENTRY/TYPE are operators only when followed by '('
	if p.toks[p.pos+1].is("(") {
		switch {
		case t.is("TYPE"):
			p.next()
			p.next()
			inner, err := p.parseProjection()
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			return TypeOf{Inner: inner}, nil

		case t.is("KEY"), t.is("VALUE"), t.is("ENTRY"):
			p.next()
			p.next()
			v, err := p.ident("variable")
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			fields, err := p.parseFields()
			if err != nil {
				return nil, err
			}
			switch {
			case t.is("KEY"):
				return Key{Var: v, Fields: fields}, nil
			case t.is("VALUE"):
				return Value{Var: v, Fields: fields}, nil
			default:
				return Entry{Var: v, Fields: fields}, nil
			}

		default:
			return nil, p.errorf(t, "unsupported function %s", t)
		}
	}

	return p.parsePath()
}

func (p *parser) parsePath() (Path, error) {
	alias, err := p.ident("alias")
	if err != nil {
		return Path{}, err
	}
	fields, err := p.parseFields()
	if err != nil {
		return Path{}, err
	}
	return Path{Alias: alias, Fields: fields}, nil
}

func (p *parser) parseFields() ([]string, error) {
	var fields []string
	for p.accept(".") {
		f, err := p.ident("field name")
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// parsePredicate parses "<operand> IS [NOT] NULL" or "<operand> <op> <rhs>".
func (p *parser) parsePredicate() (Predicate, error) {
	operand, err := p.parseProjection()
	if err != nil {
		return nil, err
	}

	if p.accept("IS") {
		negated := p.accept("NOT")
		if err := p.expect("NULL"); err != nil {
			return nil, err
		}
		return p.finishPredicate(IsNull{Operand: operand, Negated: negated})
	}

	opTok := p.next()
	if opTok.kind != tokPunct || !isComparison(opTok.text) {
		return nil, p.errorf(opTok, "expected IS or comparison operator, found %s", opTok)
	}
	cmp := Compare{Left: operand, Op: opTok.text}

	rhs := p.next()
	switch rhs.kind {
	case tokParam:
		n, err := strconv.Atoi(rhs.text)
		if err != nil || n < 1 {
			return nil, p.errorf(rhs, "invalid positional parameter ?%s", rhs.text)
		}
		cmp.Param = n
		if n > p.sel.MaxParam {
			p.sel.MaxParam = n
		}
	case tokNumber:
		n, err := strconv.ParseInt(rhs.text, 10, 64)
		if err != nil {
			return nil, p.errorf(rhs, "invalid integer literal %s", rhs.text)
		}
		cmp.Literal = ir.IRInt(n)
	case tokString:
		cmp.Literal = ir.IRString(rhs.text)
	case tokIdent:
		switch {
		case rhs.is("TRUE"):
			cmp.Literal = ir.IRBool(true)
		case rhs.is("FALSE"):
			cmp.Literal = ir.IRBool(false)
		default:
			return nil, p.errorf(rhs, "expected parameter or literal, found %s", rhs)
		}
	default:
		return nil, p.errorf(rhs, "expected parameter or literal, found %s", rhs)
	}

	return p.finishPredicate(cmp)
}

func (p *parser) finishPredicate(pred Predicate) (Predicate, error) {
	if t := p.peek(); t.is("AND") || t.is("OR") {
		return nil, p.errorf(t, "compound predicates are not supported")
	}
	return pred, nil
}

func isComparison(op string) bool {
	switch op {
	case "=", "<>", "!=", "<", "<=", ">", ">=":
		return true
	}
	return false
}
