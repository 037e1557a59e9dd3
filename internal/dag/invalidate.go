package dag

import (
	"fmt"

	"github.com/gyaneshwarpardhi/calcgraph/internal/metrics"
)

// Set assigns a parameter's value. Everything downstream is invalidated
// first, so the next Compute on any dependent sees the new value.
func (n *Node) Set(value float64) error {
	if _, ok := n.op.(Parameter); !ok {
		return fmt.Errorf("set %q (%s): %w", n.label, n.op.kind(), ErrNotParameter)
	}
	n.Invalidate()
	n.value, n.cached = value, true
	metrics.ParameterSets.Inc()
	return nil
}

// Invalidate clears the cache of n and of every live node reachable through
// dependents. Each node is visited once, even through diamonds.
// Invalidating a parameter leaves it unset.
func (n *Node) Invalidate() {
	cleared := invalidate(n)
	metrics.NodesInvalidated.Add(float64(cleared))
}

// invalidate walks dependents depth-first and returns the number of nodes
// visited.
func invalidate(root *Node) int {
	visited := make(map[*Node]struct{})
	stack := []*Node{root}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := visited[cur]; seen {
			continue
		}
		visited[cur] = struct{}{}

		cur.value, cur.cached = 0, false
		for _, wp := range cur.dependents {
			if d := wp.Value(); d != nil {
				stack = append(stack, d)
			}
		}
	}
	return len(visited)
}
