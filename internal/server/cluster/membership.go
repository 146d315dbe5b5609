// Package cluster holds the static cluster membership, the per-node peer
// health table and the pool of gRPC connections to peers.
package cluster

import (
	"fmt"

	"github.com/dmitrijs2005/replichat/internal/common"
)

// Node is one member of the cluster. IDs start at 1; a lower id means a
// higher election priority.
type Node struct {
	ID      int
	Address string
}

// Membership is the fixed list of cluster members, known to every node at
// startup. It never changes at runtime.
type Membership struct {
	self  int
	nodes []Node
}

// NewMembership builds the membership from the ordered list of member
// addresses: addresses[i] gets id i+1.
func NewMembership(selfID int, addresses []string) (*Membership, error) {
	if len(addresses) == 0 {
		return nil, fmt.Errorf("empty member list: %w", common.ErrInvalidArgument)
	}
	if selfID < 1 || selfID > len(addresses) {
		return nil, fmt.Errorf("node id %d outside 1..%d: %w", selfID, len(addresses), common.ErrInvalidArgument)
	}

	seen := make(map[string]struct{}, len(addresses))
	nodes := make([]Node, 0, len(addresses))
	for i, a := range addresses {
		if _, dup := seen[a]; dup {
			return nil, fmt.Errorf("duplicate member address %q: %w", a, common.ErrInvalidArgument)
		}
		seen[a] = struct{}{}
		nodes = append(nodes, Node{ID: i + 1, Address: a})
	}

	return &Membership{self: selfID, nodes: nodes}, nil
}

// Self returns this node.
func (m *Membership) Self() Node {
	return m.nodes[m.self-1]
}

// Size is the static cluster size N.
func (m *Membership) Size() int {
	return len(m.nodes)
}

// Majority is floor(N/2)+1.
func (m *Membership) Majority() int {
	return Majority(len(m.nodes))
}

// Majority returns floor(n/2)+1.
func Majority(n int) int {
	return n/2 + 1
}

// Node looks a member up by id.
func (m *Membership) Node(id int) (Node, bool) {
	if id < 1 || id > len(m.nodes) {
		return Node{}, false
	}
	return m.nodes[id-1], true
}

// Peers returns every member except this node, in id order.
func (m *Membership) Peers() []Node {
	out := make([]Node, 0, len(m.nodes)-1)
	for _, n := range m.nodes {
		if n.ID != m.self {
			out = append(out, n)
		}
	}
	return out
}

// HigherPriority returns the members with a lower id than this node.
func (m *Membership) HigherPriority() []Node {
	return append([]Node(nil), m.nodes[:m.self-1]...)
}

// Addresses returns every member address in id order.
func (m *Membership) Addresses() []string {
	out := make([]string, len(m.nodes))
	for i, n := range m.nodes {
		out[i] = n.Address
	}
	return out
}
