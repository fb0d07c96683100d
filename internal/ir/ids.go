// Package ir provides the backend-agnostic intermediate representation
// produced by lowering and consumed by emitters.
//
// Nodes live in a per-module arena indexed by NodeID. Child and parent
// links are id-based, non-owning references, so transforms can replace
// a node by allocating a new one and rewriting the parent's reference
// without mutating anything already placed in the arena.
package ir

// NodeID identifies a node within a module.
type NodeID uint32

// BlockID identifies a basic block within a function's CFG.
type BlockID uint32

// Invalid ID constants (zero is sentinel).
const (
	NoNodeID  NodeID  = 0
	NoBlockID BlockID = 0
)

// IsValid returns true if the ID is valid (non-zero).
func (id NodeID) IsValid() bool  { return id != NoNodeID }
func (id BlockID) IsValid() bool { return id != NoBlockID }

// IDGen hands out deterministic, monotonically increasing node ids.
// The counter is scoped to one module, so repeated runs over identical
// input produce stable ids and concurrent module compiles never
// collide.
type IDGen struct {
	next uint32
}

// NewIDGen creates a generator whose first id is seed+1. A zero seed
// gives the default sequence; hosts may fix the seed for
// reproducibility across tool versions.
func NewIDGen(seed uint32) *IDGen {
	return &IDGen{next: seed}
}

// Next returns a fresh NodeID.
func (g *IDGen) Next() NodeID {
	g.next++
	return NodeID(g.next)
}

// Count reports how many ids have been handed out.
func (g *IDGen) Count() int {
	return int(g.next)
}
