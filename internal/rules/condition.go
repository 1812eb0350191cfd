// internal/rules/condition.go
package rules

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"github.com/solatis/ensuregen/internal/types"
)

/*
 * Condition shapes.
 *
 * A lambda written in a manifest is classified once, here, into one of four
 * shapes. The assembler renders every shape through a single switch.
 *
 *   - BlankCondition: no predicate; the rule's own call is the check
 *   - BlockCondition: a statement body, emitted as a local func
 *   - CallCondition:  body is fn(param); emitted as fn(accessor)
 *   - ExprCondition:  boolean expression inlined with param replaced
 */

// Condition is a classified predicate shape.
type Condition interface {
	isCondition()
}

// BlankCondition marks a rule whose function call is the check.
type BlankCondition struct{}

// BlockCondition is a multi-statement predicate body returning bool.
type BlockCondition struct {
	Param     string
	ParamType string
	Body      string
}

// CallCondition delegates to a named boolean function of one argument.
type CallCondition struct {
	Func string
}

// ExprCondition is a boolean expression over Param.
type ExprCondition struct {
	Param string
	Expr  string
}

func (BlankCondition) isCondition() {}
func (BlockCondition) isCondition() {}
func (CallCondition) isCondition()  {}
func (ExprCondition) isCondition()  {}

// Guard is a condition plus what its parameter binds to.
type Guard struct {
	Cond  Condition
	Scope types.LambdaScope
}

// classifyLambda parses l and picks its shape. paramType types the
// parameter of block-bodied lambdas.
func classifyLambda(l *types.Lambda, paramType string) (Condition, *types.Diagnostic) {
	param := strings.TrimSpace(l.Param)
	if param == "" {
		d := types.Errorf(types.CodeMissingLambdaParam, l.Loc, "lambda is missing its parameter name")
		return nil, &d
	}
	if !token.IsIdentifier(param) {
		d := types.Errorf(types.CodeMissingLambdaParam, l.Loc, "lambda parameter %q is not an identifier", param)
		return nil, &d
	}
	body := strings.TrimSpace(l.Body)
	if body == "" {
		d := types.Errorf(types.CodeMalformedLambda, l.Loc, "lambda has an empty body")
		return nil, &d
	}
	if paramType == "" {
		paramType = "any"
	}

	if l.Block {
		src := "func(" + param + " " + paramType + ") bool {\n" + body + "\n}"
		if _, err := parser.ParseExpr(src); err != nil {
			d := types.Errorf(types.CodeMalformedLambda, l.Loc, "malformed lambda body: %v", err)
			return nil, &d
		}
		return BlockCondition{Param: param, ParamType: paramType, Body: body}, nil
	}

	expr, err := parser.ParseExpr(body)
	if err != nil {
		d := types.Errorf(types.CodeMalformedLambda, l.Loc, "malformed lambda expression: %v", err)
		return nil, &d
	}
	if call, ok := expr.(*ast.CallExpr); ok && len(call.Args) == 1 && call.Ellipsis == token.NoPos {
		if id, ok := call.Args[0].(*ast.Ident); ok && id.Name == param && !mentions(call.Fun, param) {
			// ParseExpr positions are 1-based offsets into body
			return CallCondition{Func: body[call.Fun.Pos()-1 : call.Fun.End()-1]}, nil
		}
	}
	return ExprCondition{Param: param, Expr: body}, nil
}

// mentions reports whether node references the identifier name.
func mentions(node ast.Node, name string) bool {
	found := false
	ast.Inspect(node, func(n ast.Node) bool {
		if id, ok := n.(*ast.Ident); ok && id.Name == name {
			found = true
		}
		return !found
	})
	return found
}
