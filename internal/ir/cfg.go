package ir

import "sort"

// Terminator describes how a basic block ends. Every reachable block
// has exactly one.
type Terminator int

const (
	TermInvalid Terminator = iota
	TermFallthrough
	TermCondBranch
	TermJump
	TermReturn
	TermThrow
)

func (t Terminator) String() string {
	switch t {
	case TermFallthrough:
		return "fallthrough"
	case TermCondBranch:
		return "cond-branch"
	case TermJump:
		return "jump"
	case TermReturn:
		return "return"
	case TermThrow:
		return "throw"
	default:
		return "invalid"
	}
}

// BasicBlock is a straight-line statement run with a single
// terminator.
type BasicBlock struct {
	ID    BlockID    `json:"id"`
	Stmts []NodeID   `json:"stmts"`
	Term  Terminator `json:"terminator"`
	Cond  NodeID     `json:"cond,omitempty"` // condition expression for TermCondBranch
	Succs []BlockID  `json:"successors"`
	Dead  bool       `json:"dead,omitempty"` // no live predecessor; warning, not error
}

// CFG is the per-function control-flow graph.
type CFG struct {
	Entry  BlockID                 `json:"entry"`
	Blocks map[BlockID]*BasicBlock `json:"blocks"`
}

// Block looks up a basic block by id.
func (c *CFG) Block(id BlockID) (*BasicBlock, bool) {
	b, ok := c.Blocks[id]
	return b, ok
}

// SortedBlockIDs returns every block id in ascending order.
func (c *CFG) SortedBlockIDs() []BlockID {
	ids := make([]BlockID, 0, len(c.Blocks))
	for id := range c.Blocks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Reachable computes the set of blocks reachable from the entry.
func (c *CFG) Reachable() map[BlockID]bool {
	seen := make(map[BlockID]bool)
	stack := []BlockID{c.Entry}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		if b, ok := c.Blocks[id]; ok {
			stack = append(stack, b.Succs...)
		}
	}
	return seen
}
