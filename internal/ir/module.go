package ir

import (
	"fmt"
	"sort"
)

// Module is the arena holding every node produced by one lowering run.
// All state is private to one pipeline invocation; modules are created
// once per run and discarded (or retained by the host) after emission.
type Module struct {
	ID         string            `json:"id"`
	SourceName string            `json:"source,omitempty"`
	Directives []string          `json:"directives,omitempty"`
	Body       []NodeID          `json:"body"`
	Exports    map[string]NodeID `json:"exports,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`

	Nodes map[NodeID]Node `json:"-"`
	CFGs  map[NodeID]*CFG `json:"-"` // keyed by function node id

	gen *IDGen
}

// NewModule creates an empty module whose id generator starts at seed.
// Callers may fix the seed for reproducibility.
func NewModule(id string, seed uint32) *Module {
	return &Module{
		ID:      id,
		Exports: make(map[string]NodeID),
		Nodes:   make(map[NodeID]Node),
		CFGs:    make(map[NodeID]*CFG),
		gen:     NewIDGen(seed),
	}
}

// NewID hands out the next deterministic node id.
func (m *Module) NewID() NodeID {
	return m.gen.Next()
}

// NodeCount reports how many nodes the module holds.
func (m *Module) NodeCount() int {
	return len(m.Nodes)
}

// Add places a node in the arena. Placing two nodes under the same id
// is a programming error, so it is made visible immediately.
func (m *Module) Add(n Node) NodeID {
	id := n.ID()
	if !id.IsValid() {
		panic("ir: node has no id")
	}
	if _, exists := m.Nodes[id]; exists {
		panic(fmt.Sprintf("ir: duplicate node id %d", id))
	}
	m.Nodes[id] = n
	return id
}

// Node looks up a node by id.
func (m *Module) Node(id NodeID) (Node, bool) {
	n, ok := m.Nodes[id]
	return n, ok
}

// MustNode looks up a node by id and panics when it is missing. Used
// after validation has established referential integrity.
func (m *Module) MustNode(id NodeID) Node {
	n, ok := m.Nodes[id]
	if !ok {
		panic(fmt.Sprintf("ir: dangling node id %d", id))
	}
	return n
}

// Rewrite installs replacement under its own id and rewrites the
// parent's reference from old to it. The old node stays in the arena
// (nodes are immutable; only references move), so rollbacks can point
// back at it.
func (m *Module) Rewrite(parent NodeID, old NodeID, replacement Node) error {
	if _, ok := m.Nodes[replacement.ID()]; !ok {
		m.Add(replacement)
	}
	if parent == NoNodeID {
		// old is a module body root
		for i, id := range m.Body {
			if id == old {
				m.Body[i] = replacement.ID()
				return nil
			}
		}
		return fmt.Errorf("ir: node %d is not a module body root", old)
	}
	p, ok := m.Nodes[parent]
	if !ok {
		return fmt.Errorf("ir: unknown parent node %d", parent)
	}
	rewritten, changed := WithChildReplaced(p, old, replacement.ID())
	if !changed {
		return fmt.Errorf("ir: node %d is not a child of %d", old, parent)
	}
	m.Nodes[parent] = rewritten
	return nil
}

// SortedNodeIDs returns every node id in ascending order, for
// deterministic iteration.
func (m *Module) SortedNodeIDs() []NodeID {
	ids := make([]NodeID, 0, len(m.Nodes))
	for id := range m.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Functions returns the ids of all FuncDecl/FuncLit nodes in ascending
// order. CFGs are built per function.
func (m *Module) Functions() []NodeID {
	var fns []NodeID
	for _, id := range m.SortedNodeIDs() {
		switch m.Nodes[id].Kind() {
		case KindFuncDecl, KindFuncLit:
			fns = append(fns, id)
		}
	}
	return fns
}
