package formula

import (
	"fmt"

	"github.com/gyaneshwarpardhi/calcgraph/internal/dag"
)

// Build turns a parsed formula into graph nodes. Identifiers resolve through
// scope, so a name used twice becomes one shared node.
//
// The graph has no constant node kind: a literal is folded into its
// neighbour with AddConst/MulConst, and a subexpression made only of
// literals is rejected.
func Build(expr Expr, scope *dag.Scope) (*dag.Node, error) {
	t, err := build(expr, scope)
	if err != nil {
		return nil, err
	}
	if t.node == nil {
		return nil, fmt.Errorf("formula has no inputs: constant %g", t.value)
	}
	return t.node, nil
}

// Compile parses src and builds it in one step.
func Compile(src string, scope *dag.Scope) (*dag.Node, error) {
	expr, err := Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", src, err)
	}
	n, err := Build(expr, scope)
	if err != nil {
		return nil, fmt.Errorf("build %q: %w", src, err)
	}
	return n, nil
}

// term is either a node or a literal still waiting for a node to bind to.
type term struct {
	node  *dag.Node
	value float64
}

func build(expr Expr, scope *dag.Scope) (term, error) {
	switch e := expr.(type) {
	case *NumberExpr:
		return term{value: e.Value}, nil
	case *IdentExpr:
		n, ok := scope.Lookup(e.Name)
		if !ok {
			return term{}, fmt.Errorf("unknown name %q", e.Name)
		}
		return term{node: n}, nil
	case *BinaryExpr:
		return buildBinary(e, scope)
	case *PowerExpr:
		base, err := build(e.Base, scope)
		if err != nil {
			return term{}, err
		}
		if base.node == nil {
			return term{}, fmt.Errorf("cannot raise constant %g to a power", base.value)
		}
		return term{node: dag.Pow(base.node, e.Exponent)}, nil
	case *CallExpr:
		return buildCall(e, scope)
	default:
		return term{}, fmt.Errorf("unknown expr type %T", expr)
	}
}

func buildBinary(e *BinaryExpr, scope *dag.Scope) (term, error) {
	left, err := build(e.Left, scope)
	if err != nil {
		return term{}, err
	}
	right, err := build(e.Right, scope)
	if err != nil {
		return term{}, err
	}

	var both func(a, b *dag.Node) *dag.Node
	var withConst func(a *dag.Node, c float64) *dag.Node
	switch e.Op {
	case "+":
		both, withConst = dag.Add, dag.AddConst
	case "*":
		both, withConst = dag.Mul, dag.MulConst
	default:
		return term{}, fmt.Errorf("unknown binary op %q", e.Op)
	}

	switch {
	case left.node != nil && right.node != nil:
		return term{node: both(left.node, right.node)}, nil
	case left.node != nil:
		return term{node: withConst(left.node, right.value)}, nil
	case right.node != nil:
		return term{node: withConst(right.node, left.value)}, nil
	default:
		return term{}, fmt.Errorf("constant expression %g %s %g", left.value, e.Op, right.value)
	}
}

func buildCall(e *CallExpr, scope *dag.Scope) (term, error) {
	fn, ok := functions[e.Func]
	if !ok {
		return term{}, fmt.Errorf("unknown function %q", e.Func)
	}
	if len(e.Args) != fn.arity {
		return term{}, fmt.Errorf("%s expects %d argument(s), got %d", fn.name, fn.arity, len(e.Args))
	}
	arg, err := build(e.Args[0], scope)
	if err != nil {
		return term{}, err
	}
	if arg.node == nil {
		return term{}, fmt.Errorf("%s of constant %g", fn.name, arg.value)
	}
	consts := make([]float64, 0, len(e.Args)-1)
	for _, a := range e.Args[1:] {
		num, ok := a.(*NumberExpr)
		if !ok {
			return term{}, fmt.Errorf("%s: argument must be a number", fn.name)
		}
		consts = append(consts, num.Value)
	}
	return term{node: fn.build(arg.node, consts)}, nil
}
