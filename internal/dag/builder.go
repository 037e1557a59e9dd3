package dag

import (
	"math"
	"runtime"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/calcgraph/internal/metrics"
)

// newNode allocates a node and wires it into the dependents of every operand.
// Operands must already exist, which is what keeps the graph acyclic.
func newNode(label string, op Operator, operands ...*Node) *Node {
	n := &Node{
		id:       uuid.New().String(),
		label:    label,
		op:       op,
		operands: operands,
	}
	for _, in := range operands {
		in.addDependent(n)
	}

	kind := op.kind().String()
	metrics.NodesCreated.WithLabelValues(kind).Inc()
	metrics.LiveNodes.Inc()
	runtime.AddCleanup(n, func(struct{}) { metrics.LiveNodes.Dec() }, struct{}{})
	return n
}

// CreateInput returns a new, unset parameter.
func CreateInput(label string) *Node {
	return newNode(label, Parameter{})
}

// Add returns a node computing a + b.
func Add(a, b *Node) *Node {
	return newNode("add", BinaryOperator{Fn: func(x, y float64) float64 { return x + y }}, a, b)
}

// Mul returns a node computing a * b.
func Mul(a, b *Node) *Node {
	return newNode("mul", BinaryOperator{Fn: func(x, y float64) float64 { return x * y }}, a, b)
}

// Pow returns a node computing a raised to a fixed real exponent.
func Pow(a *Node, exponent float64) *Node {
	return newNode("pow", BinaryOperatorWithConstant{Fn: math.Pow, Const: exponent}, a)
}

// Sin returns a node computing sin(a).
func Sin(a *Node) *Node {
	return newNode("sin", UnaryOperator{Fn: math.Sin}, a)
}

// AddConst returns a node computing a + c.
func AddConst(a *Node, c float64) *Node {
	return newNode("add_const", BinaryOperatorWithConstant{Fn: func(x, y float64) float64 { return x + y }, Const: c}, a)
}

// MulConst returns a node computing a * c.
func MulConst(a *Node, c float64) *Node {
	return newNode("mul_const", BinaryOperatorWithConstant{Fn: func(x, y float64) float64 { return x * y }, Const: c}, a)
}
