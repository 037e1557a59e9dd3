package dag

import "fmt"

// Scope is a table of named nodes. It holds owning references, so every
// node it names (and everything those nodes depend on) stays alive while the
// scope does. It is not safe for concurrent use.
type Scope struct {
	nodes map[string]*Node
	order []string // definition order
}

// NewScope allocates an empty Scope.
func NewScope() *Scope {
	return &Scope{nodes: make(map[string]*Node)}
}

// Define binds name to n. Names are bound once.
func (s *Scope) Define(name string, n *Node) error {
	if name == "" {
		return fmt.Errorf("scope: empty name")
	}
	if _, exists := s.nodes[name]; exists {
		return fmt.Errorf("scope: %q already defined", name)
	}
	s.nodes[name] = n
	s.order = append(s.order, name)
	return nil
}

// Lookup returns the node bound to name.
func (s *Scope) Lookup(name string) (*Node, bool) {
	n, ok := s.nodes[name]
	return n, ok
}

// Names returns all bound names in definition order.
func (s *Scope) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of bound names.
func (s *Scope) Len() int {
	return len(s.nodes)
}
