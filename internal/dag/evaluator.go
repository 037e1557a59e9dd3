package dag

import (
	"fmt"

	"github.com/gyaneshwarpardhi/calcgraph/internal/metrics"
)

// Compute returns the node's value, evaluating uncached operands on demand.
// Every node computed along the way keeps its result until invalidated, so a
// second call without an intervening Set is a cache hit.
func (n *Node) Compute() (float64, error) {
	if n.cached {
		metrics.CacheHits.Inc()
		return n.value, nil
	}

	var v float64
	switch op := n.op.(type) {
	case Parameter:
		metrics.UnsetParameters.Inc()
		return 0, fmt.Errorf("%w %q", ErrUnsetParameter, n.label)
	case UnaryOperator:
		x, err := n.operands[0].Compute()
		if err != nil {
			return 0, err
		}
		v = op.Fn(x)
	case BinaryOperator:
		x, err := n.operands[0].Compute()
		if err != nil {
			return 0, err
		}
		y, err := n.operands[1].Compute()
		if err != nil {
			return 0, err
		}
		v = op.Fn(x, y)
	case BinaryOperatorWithConstant:
		x, err := n.operands[0].Compute()
		if err != nil {
			return 0, err
		}
		v = op.Fn(x, op.Const)
	default:
		panic(fmt.Sprintf("dag: unknown operator %T", n.op))
	}

	metrics.Computations.WithLabelValues(n.op.kind().String()).Inc()
	n.value, n.cached = v, true
	return v, nil
}
