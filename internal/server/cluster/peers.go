package cluster

import "sync"

// PeerState is a peer's standing in the current leader incarnation.
//
//	reachable   <-> unreachable   (election probes flip these freely)
//	reachable/unreachable -> down (a failed replication call; terminal)
//
// Only Reset, called when a node becomes leader, brings a down peer back.
type PeerState int

const (
	PeerReachable PeerState = iota
	PeerUnreachable
	PeerDown
)

func (s PeerState) String() string {
	switch s {
	case PeerReachable:
		return "reachable"
	case PeerUnreachable:
		return "unreachable"
	case PeerDown:
		return "down"
	default:
		return "unknown"
	}
}

// PeerTable is the per-node peer health table shared by the elector and the
// replication coordinator. Stale reads are tolerated: the table only decides
// which peers are worth calling.
type PeerTable struct {
	mu          sync.RWMutex
	peers       []Node
	state       map[int]PeerState
	incarnation int
}

// NewPeerTable starts with every peer reachable.
func NewPeerTable(peers []Node) *PeerTable {
	t := &PeerTable{peers: append([]Node(nil), peers...)}
	t.Reset()
	return t
}

// Reset starts a new incarnation in which every peer is reachable again.
func (t *PeerTable) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state = make(map[int]PeerState, len(t.peers))
	for _, p := range t.peers {
		t.state[p.ID] = PeerReachable
	}
	t.incarnation++
}

// Incarnation counts Reset calls, starting at 1.
func (t *PeerTable) Incarnation() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.incarnation
}

// Observe records a probe result. It never revives a down peer.
func (t *PeerTable) Observe(id int, alive bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur, ok := t.state[id]
	if !ok || cur == PeerDown {
		return
	}
	if alive {
		t.state[id] = PeerReachable
	} else {
		t.state[id] = PeerUnreachable
	}
}

// MarkDown records a failed replication call. The peer stays down until Reset.
func (t *PeerTable) MarkDown(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.state[id]; ok {
		t.state[id] = PeerDown
	}
}

// State returns the state of a peer; unknown ids report PeerDown.
func (t *PeerTable) State(id int) PeerState {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.state[id]
	if !ok {
		return PeerDown
	}
	return s
}

// Reachable lists the peers currently worth replicating to, in id order.
func (t *PeerTable) Reachable() []Node {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Node, 0, len(t.peers))
	for _, p := range t.peers {
		if t.state[p.ID] == PeerReachable {
			out = append(out, p)
		}
	}
	return out
}
