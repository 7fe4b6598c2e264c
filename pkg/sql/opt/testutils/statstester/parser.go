// Copyright 2024 The Quarry Authors.
//
// Use of this software is governed by the Apache License, Version 2.0,
// included in the file LICENSE.

package statstester

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/quarrydb/quarry/pkg/sql/opt"
	"github.com/quarrydb/quarry/pkg/sql/sem/tree"
	"github.com/quarrydb/quarry/pkg/sql/types"
)

// ParsePredicate parses a SQL-like predicate over the columns registered in
// md into a scalar expression tree. Column references are resolved by name,
// or by ordinal with the @N syntax. The grammar covers the predicate shapes
// the estimators understand: boolean connectives, comparisons, IS [NOT]
// NULL, [NOT] BETWEEN, [NOT] IN, arithmetic, unary minus, ::type casts,
// COALESCE and function calls.
func ParsePredicate(md *opt.Metadata, input string) (opt.ScalarExpr, error) {
	toks, err := tokenize(input)
	if err != nil {
		return nil, err
	}
	p := parser{md: md, toks: toks}
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, errors.Newf("unexpected input at %q", p.peek().text)
	}
	return e, nil
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokSymbol
)

type token struct {
	kind tokenKind
	text string
}

func tokenize(input string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n':
			i++
		case isIdentStart(c):
			start := i
			for i < len(input) && isIdentPart(input[i]) {
				i++
			}
			toks = append(toks, token{tokIdent, input[start:i]})
		case c >= '0' && c <= '9' || c == '.' && i+1 < len(input) && input[i+1] >= '0' && input[i+1] <= '9':
			start := i
			for i < len(input) && (input[i] >= '0' && input[i] <= '9' || input[i] == '.') {
				i++
			}
			if i < len(input) && (input[i] == 'e' || input[i] == 'E') {
				i++
				if i < len(input) && (input[i] == '+' || input[i] == '-') {
					i++
				}
				for i < len(input) && input[i] >= '0' && input[i] <= '9' {
					i++
				}
			}
			toks = append(toks, token{tokNumber, input[start:i]})
		case c == '\'':
			i++
			start := i
			for i < len(input) && input[i] != '\'' {
				i++
			}
			if i == len(input) {
				return nil, errors.New("unterminated string literal")
			}
			toks = append(toks, token{tokString, input[start:i]})
			i++
		default:
			if i+1 < len(input) {
				two := input[i : i+2]
				switch two {
				case "<=", ">=", "<>", "!=", "::":
					toks = append(toks, token{tokSymbol, two})
					i += 2
					continue
				}
			}
			switch c {
			case '(', ')', ',', '=', '<', '>', '+', '-', '*', '/', '%', '@', '$':
				toks = append(toks, token{tokSymbol, string(c)})
				i++
			default:
				return nil, errors.Newf("unexpected character %q", string(c))
			}
		}
	}
	return toks, nil
}

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}

type parser struct {
	md   *opt.Metadata
	toks []token
	pos  int
}

func (p *parser) peek() token {
	if p.pos >= len(p.toks) {
		return token{kind: tokEOF}
	}
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.peek()
	p.pos++
	return t
}

func (p *parser) eatKeyword(kw string) bool {
	t := p.peek()
	if t.kind == tokIdent && strings.EqualFold(t.text, kw) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) eatSymbol(sym string) bool {
	t := p.peek()
	if t.kind == tokSymbol && t.text == sym {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expectSymbol(sym string) error {
	if !p.eatSymbol(sym) {
		return errors.Newf("expected %q, found %q", sym, p.peek().text)
	}
	return nil
}

func (p *parser) parseOr() (opt.ScalarExpr, error) {
	terms := []opt.ScalarExpr{}
	e, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	terms = append(terms, e)
	for p.eatKeyword("OR") {
		e, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		terms = append(terms, e)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return &opt.OrExpr{Terms: terms}, nil
}

func (p *parser) parseAnd() (opt.ScalarExpr, error) {
	terms := []opt.ScalarExpr{}
	e, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	terms = append(terms, e)
	for p.eatKeyword("AND") {
		e, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		terms = append(terms, e)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return &opt.AndExpr{Terms: terms}, nil
}

func (p *parser) parseNot() (opt.ScalarExpr, error) {
	if p.eatKeyword("NOT") {
		e, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &opt.NotExpr{Input: e}, nil
	}
	return p.parseComparison()
}

var comparisonOps = map[string]opt.ComparisonOperator{
	"=":  opt.EqOp,
	"<":  opt.LtOp,
	">":  opt.GtOp,
	"<=": opt.LeOp,
	">=": opt.GeOp,
	"<>": opt.NeOp,
	"!=": opt.NeOp,
}

func (p *parser) parseComparison() (opt.ScalarExpr, error) {
	e, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if p.eatKeyword("IS") {
		negated := p.eatKeyword("NOT")
		if !p.eatKeyword("NULL") {
			return nil, errors.Newf("expected NULL after IS, found %q", p.peek().text)
		}
		if negated {
			return &opt.IsNotNullExpr{Input: e}, nil
		}
		return &opt.IsNullExpr{Input: e}, nil
	}
	negated := p.eatKeyword("NOT")
	switch {
	case p.eatKeyword("BETWEEN"):
		lower, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		if !p.eatKeyword("AND") {
			return nil, errors.Newf("expected AND in BETWEEN, found %q", p.peek().text)
		}
		upper, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		var res opt.ScalarExpr = &opt.BetweenExpr{Input: e, Lower: lower, Upper: upper}
		if negated {
			res = &opt.NotExpr{Input: res}
		}
		return res, nil
	case p.eatKeyword("IN"):
		if err := p.expectSymbol("("); err != nil {
			return nil, err
		}
		var list []opt.ScalarExpr
		for {
			elem, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			list = append(list, elem)
			if !p.eatSymbol(",") {
				break
			}
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		var res opt.ScalarExpr = &opt.InExpr{Input: e, List: list}
		if negated {
			res = &opt.NotExpr{Input: res}
		}
		return res, nil
	case negated:
		return nil, errors.Newf("expected BETWEEN or IN after NOT, found %q", p.peek().text)
	}
	if t := p.peek(); t.kind == tokSymbol {
		if op, ok := comparisonOps[t.text]; ok {
			p.pos++
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			return &opt.ComparisonExpr{CompareOp: op, Left: e, Right: right}, nil
		}
	}
	return e, nil
}

func (p *parser) parseAdditive() (opt.ScalarExpr, error) {
	e, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		var op opt.BinaryOperator
		switch {
		case p.eatSymbol("+"):
			op = opt.PlusOp
		case p.eatSymbol("-"):
			op = opt.MinusOp
		default:
			return e, nil
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		e = &opt.BinaryExpr{BinOp: op, Left: e, Right: right}
	}
}

func (p *parser) parseMultiplicative() (opt.ScalarExpr, error) {
	e, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op opt.BinaryOperator
		switch {
		case p.eatSymbol("*"):
			op = opt.MultOp
		case p.eatSymbol("/"):
			op = opt.DivOp
		case p.eatSymbol("%"):
			op = opt.ModOp
		default:
			return e, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		e = &opt.BinaryExpr{BinOp: op, Left: e, Right: right}
	}
}

func (p *parser) parseUnary() (opt.ScalarExpr, error) {
	if p.eatSymbol("-") {
		e, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &opt.UnaryMinusExpr{Input: e}, nil
	}
	return p.parseCast()
}

func (p *parser) parseCast() (opt.ScalarExpr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.eatSymbol("::") {
		t := p.next()
		if t.kind != tokIdent {
			return nil, errors.Newf("expected type name, found %q", t.text)
		}
		typ, err := parseType(t.text)
		if err != nil {
			return nil, err
		}
		e = &opt.CastExpr{Input: e, Type: typ}
	}
	return e, nil
}

func parseType(name string) (*types.T, error) {
	switch strings.ToLower(name) {
	case "bool", "boolean":
		return types.Bool, nil
	case "int", "int8", "bigint":
		return types.Int, nil
	case "int4", "integer":
		return types.Int4, nil
	case "int2", "smallint":
		return types.Int2, nil
	case "float", "float8", "double":
		return types.Float, nil
	case "decimal", "numeric":
		return types.Decimal, nil
	case "string", "text", "varchar":
		return types.String, nil
	case "timestamp":
		return types.Timestamp, nil
	case "date":
		return types.Date, nil
	}
	return nil, errors.Newf("unknown type %q", name)
}

func (p *parser) parsePrimary() (opt.ScalarExpr, error) {
	t := p.next()
	switch t.kind {
	case tokSymbol:
		switch t.text {
		case "(":
			e, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if err := p.expectSymbol(")"); err != nil {
				return nil, err
			}
			return e, nil
		case "@":
			num := p.next()
			if num.kind != tokNumber {
				return nil, errors.Newf("expected column ordinal after @, found %q", num.text)
			}
			id, err := strconv.Atoi(num.text)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid column ordinal %q", num.text)
			}
			if !p.md.HasColumn(opt.ColumnID(id)) {
				return nil, errors.Newf("unknown column @%d", id)
			}
			return &opt.VariableExpr{Col: opt.ColumnID(id)}, nil
		case "$":
			name := p.next()
			if name.kind != tokIdent {
				return nil, errors.Newf("expected function name after $, found %q", name.text)
			}
			return p.parseFunctionCall("$" + name.text)
		}
	case tokNumber:
		return numberLiteral(t.text)
	case tokString:
		return &opt.ConstExpr{Value: tree.NewDString(t.text)}, nil
	case tokIdent:
		switch {
		case strings.EqualFold(t.text, "TRUE"):
			return opt.TrueExpr, nil
		case strings.EqualFold(t.text, "FALSE"):
			return opt.FalseExpr, nil
		case strings.EqualFold(t.text, "NULL"):
			return opt.NullExpr, nil
		case strings.EqualFold(t.text, "COALESCE"):
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			if len(args) == 0 {
				return nil, errors.New("COALESCE requires at least one argument")
			}
			return &opt.CoalesceExpr{Args: args}, nil
		}
		if p.peek().kind == tokSymbol && p.peek().text == "(" {
			return p.parseFunctionCall(t.text)
		}
		if col, ok := p.resolveColumn(t.text); ok {
			return &opt.VariableExpr{Col: col}, nil
		}
		return nil, errors.Newf("unknown column %q", t.text)
	}
	return nil, errors.Newf("unexpected token %q", t.text)
}

func (p *parser) parseFunctionCall(name string) (opt.ScalarExpr, error) {
	args, err := p.parseArgs()
	if err != nil {
		return nil, err
	}
	return &opt.FunctionExpr{Name: name, Args: args}, nil
}

func (p *parser) parseArgs() ([]opt.ScalarExpr, error) {
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	if p.eatSymbol(")") {
		return nil, nil
	}
	var args []opt.ScalarExpr
	for {
		arg, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if !p.eatSymbol(",") {
			break
		}
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *parser) resolveColumn(name string) (opt.ColumnID, bool) {
	for i := 1; i <= p.md.NumColumns(); i++ {
		id := opt.ColumnID(i)
		if p.md.ColumnMeta(id).Alias == name {
			return id, true
		}
	}
	return 0, false
}

func numberLiteral(text string) (opt.ScalarExpr, error) {
	if !strings.ContainsAny(text, ".eE") {
		if v, err := strconv.ParseInt(text, 10, 64); err == nil {
			return &opt.ConstExpr{Value: tree.NewDInt(v)}, nil
		}
	}
	d, err := tree.ParseDDecimal(text)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid numeric literal %q", text)
	}
	return &opt.ConstExpr{Value: d}, nil
}
