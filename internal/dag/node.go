package dag

import (
	"fmt"
	"weak"
)

// Kind discriminates the four operator variants.
type Kind int

const (
	KindParameter Kind = iota
	KindUnary
	KindBinary
	KindBinaryConst
)

func (k Kind) String() string {
	switch k {
	case KindParameter:
		return "parameter"
	case KindUnary:
		return "unary"
	case KindBinary:
		return "binary"
	case KindBinaryConst:
		return "binary_const"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------
// Operators
// -----------------------------------------------------------------------

// Operator is the closed set of node operators. Only the types in this file
// implement it.
type Operator interface {
	kind() Kind
}

// Parameter is a leaf whose value is supplied through Set.
type Parameter struct{}

// UnaryOperator applies Fn to its single operand.
type UnaryOperator struct {
	Fn func(float64) float64
}

// BinaryOperator applies Fn to its two operands, left first.
type BinaryOperator struct {
	Fn func(float64, float64) float64
}

// BinaryOperatorWithConstant applies Fn(operand, Const).
type BinaryOperatorWithConstant struct {
	Fn    func(float64, float64) float64
	Const float64
}

func (Parameter) kind() Kind                  { return KindParameter }
func (UnaryOperator) kind() Kind              { return KindUnary }
func (BinaryOperator) kind() Kind             { return KindBinary }
func (BinaryOperatorWithConstant) kind() Kind { return KindBinaryConst }

// -----------------------------------------------------------------------
// Node
// -----------------------------------------------------------------------

// Node is a vertex of the computation graph.
//
// Operands are owning references: a node keeps every operand alive.
// Dependents are weak, so a producer never keeps its dependents alive and
// reclaimed dependents simply stop resolving.
// Structure is fixed at construction; only the cache changes afterwards.
type Node struct {
	id         string
	label      string
	op         Operator
	operands   []*Node
	dependents []weak.Pointer[Node]

	value  float64
	cached bool
}

func (n *Node) ID() string         { return n.id }
func (n *Node) Label() string      { return n.label }
func (n *Node) Kind() Kind         { return n.op.kind() }
func (n *Node) Operator() Operator { return n.op }

// Operands returns a copy of the node's operands in order.
func (n *Node) Operands() []*Node {
	out := make([]*Node, len(n.operands))
	copy(out, n.operands)
	return out
}

// Dependents returns the dependents that are still alive, in registration
// order. A node used twice by the same dependent appears twice.
func (n *Node) Dependents() []*Node {
	out := make([]*Node, 0, len(n.dependents))
	for _, wp := range n.dependents {
		if d := wp.Value(); d != nil {
			out = append(out, d)
		}
	}
	return out
}

// Cached returns the memoized value and whether it is present.
func (n *Node) Cached() (float64, bool) {
	return n.value, n.cached
}

func (n *Node) String() string {
	if n.cached {
		return fmt.Sprintf("%s(%s)=%g", n.label, n.op.kind(), n.value)
	}
	return fmt.Sprintf("%s(%s)", n.label, n.op.kind())
}

// addDependent records d as a consumer of n. Entries whose referent has
// been reclaimed are dropped while we are here.
func (n *Node) addDependent(d *Node) {
	live := n.dependents[:0]
	for _, wp := range n.dependents {
		if wp.Value() != nil {
			live = append(live, wp)
		}
	}
	n.dependents = append(live, weak.Make(d))
}
