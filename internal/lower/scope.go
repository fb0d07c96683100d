package lower

import (
	"sort"

	"github.com/ssdajoker/LUASCRIPT-sub000/internal/ir"
)

// frame is one lexical scope. Child frames may shadow parent bindings;
// shadowing only changes lookup priority, the outer binding survives.
type frame struct {
	bindings map[string]ir.NodeID
	parent   *frame
}

// scopeStack tracks the current lexical nesting during lowering. An
// identifier that resolves to no frame is recorded as a global
// capture, never an error.
type scopeStack struct {
	top      *frame
	captures map[string]bool
}

func newScopeStack() *scopeStack {
	return &scopeStack{
		top:      &frame{bindings: make(map[string]ir.NodeID)},
		captures: make(map[string]bool),
	}
}

// push opens a new frame on entering a function or block.
func (s *scopeStack) push() {
	s.top = &frame{bindings: make(map[string]ir.NodeID), parent: s.top}
}

// pop closes the current frame.
func (s *scopeStack) pop() {
	if s.top.parent != nil {
		s.top = s.top.parent
	}
}

// bind records a declaration in the current frame.
func (s *scopeStack) bind(name string, decl ir.NodeID) {
	s.top.bindings[name] = decl
}

// resolve walks frames innermost-out until the name is found. The second
// result is false for an unresolved name, which the caller records as
// a global capture.
func (s *scopeStack) resolve(name string) (ir.NodeID, bool) {
	for f := s.top; f != nil; f = f.parent {
		if id, ok := f.bindings[name]; ok {
			return id, true
		}
	}
	s.captures[name] = true
	return ir.NoNodeID, false
}

// globalCaptures returns every recorded external capture, sorted.
func (s *scopeStack) globalCaptures() []string {
	names := make([]string, 0, len(s.captures))
	for name := range s.captures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
