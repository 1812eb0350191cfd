package codegen

import (
	"fmt"
	"go/scanner"
	"go/token"
	"strconv"
	"strings"

	"github.com/solatis/ensuregen/internal/rules"
	"github.com/solatis/ensuregen/internal/types"
)

// root is the name of the model parameter in generated methods.
const root = "x"

// accessor renders the Go expression reaching path from the model.
// The k-th wildcard segment is bound to idx[k].
func accessor(path []types.PathSegment, idx []string) string {
	var b strings.Builder
	b.WriteString(root)
	k := 0
	for _, seg := range path {
		switch {
		case seg.Wildcard:
			if k >= len(idx) {
				panic(fmt.Sprintf("codegen: wildcard %d of %s has no loop variable", k, rules.FormatPath(path)))
			}
			b.WriteString("[" + idx[k] + "]")
			k++
		case seg.IsIndex:
			b.WriteString("[" + strconv.Itoa(seg.Index) + "]")
		default:
			b.WriteString("." + seg.Key)
		}
	}
	return b.String()
}

// pathExpr renders a string expression for the error path of path.
// Static paths become one literal; each wildcard wraps the prefix in valid.Index.
func pathExpr(path []types.PathSegment, idx []string) string {
	var lit, expr string
	k := 0
	for _, seg := range path {
		switch {
		case seg.Wildcard:
			expr = "valid.Index(" + joinPath(expr, lit) + ", " + idx[k] + ")"
			lit = ""
			k++
		case seg.IsIndex:
			lit += "[" + strconv.Itoa(seg.Index) + "]"
		default:
			if lit != "" || expr != "" {
				lit += "."
			}
			lit += seg.Key
		}
	}
	return joinPath(expr, lit)
}

func joinPath(expr, lit string) string {
	switch {
	case expr == "":
		return strconv.Quote(lit)
	case lit == "":
		return expr
	default:
		return expr + " + " + strconv.Quote(lit)
	}
}

// guardExpr renders the boolean expression that holds when g holds.
// Model-scoped guards bind to the model, target-scoped ones to acc.
func (a *assembler) guardExpr(g *rules.Guard, acc string) string {
	value := acc
	if g.Scope == types.ScopeModel {
		value = root
	}
	return a.renderCondition(g.Cond, value)
}

// renderCondition renders c applied to value. Every shape goes through
// this switch; a BlankCondition has no expression of its own.
func (a *assembler) renderCondition(c rules.Condition, value string) string {
	switch c := c.(type) {
	case rules.BlankCondition:
		return ""
	case rules.BlockCondition:
		name := fmt.Sprintf("check%d", a.cur.next())
		a.hoisted.P(name, " := func(", c.Param, " ", c.ParamType, ") bool {")
		a.hoisted.In()
		a.hoisted.Lines(c.Body)
		a.hoisted.Out()
		a.hoisted.P("}")
		return name + "(" + value + ")"
	case rules.CallCondition:
		return c.Func + "(" + value + ")"
	case rules.ExprCondition:
		return "(" + substitute(c.Expr, c.Param, value) + ")"
	default:
		panic(fmt.Sprintf("codegen: unknown condition shape %T", c))
	}
}

// substitute replaces every use of the identifier param in expr with repl.
// Selector names (a.param) are left alone.
func substitute(expr, param, repl string) string {
	fset := token.NewFileSet()
	file := fset.AddFile("", fset.Base(), len(expr))
	var s scanner.Scanner
	s.Init(file, []byte(expr), nil, 0)

	if strings.HasPrefix(repl, "*") || strings.HasPrefix(repl, "&") {
		repl = "(" + repl + ")"
	}

	var b strings.Builder
	last := 0
	prev := token.ILLEGAL
	for {
		pos, tok, lit := s.Scan()
		if tok == token.EOF {
			break
		}
		if tok == token.IDENT && lit == param && prev != token.PERIOD {
			off := file.Offset(pos)
			b.WriteString(expr[last:off])
			b.WriteString(repl)
			last = off + len(lit)
		}
		prev = tok
	}
	b.WriteString(expr[last:])
	return b.String()
}
