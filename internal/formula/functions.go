package formula

import (
	"github.com/gyaneshwarpardhi/calcgraph/internal/dag"
)

// function describes a callable available in formulas. The first argument
// is always an expression; any further ones are numeric literals.
type function struct {
	name  string
	arity int
	build func(arg *dag.Node, consts []float64) *dag.Node
}

var functions = map[string]function{
	"sin": {
		name:  "sin",
		arity: 1,
		build: func(arg *dag.Node, _ []float64) *dag.Node { return dag.Sin(arg) },
	},
	"pow": {
		name:  "pow",
		arity: 2,
		build: func(arg *dag.Node, consts []float64) *dag.Node { return dag.Pow(arg, consts[0]) },
	},
}
