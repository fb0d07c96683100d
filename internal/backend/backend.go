// Package backend defines the emitter contract shared by all code
// generators and a small caller-owned registry for them.
package backend

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ssdajoker/LUASCRIPT-sub000/internal/ir"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/source"
)

// MapEntry links one generated line back to the source span that
// produced it.
type MapEntry struct {
	Line int         `json:"line"` // 1-based line in the generated code
	Span source.Span `json:"span"`
}

// Output is the result of one emission.
type Output struct {
	Code      string     `json:"code"`
	SourceMap []MapEntry `json:"sourceMap,omitempty"`
}

// Emitter translates a validated module into target source text.
// Identical validated IR must always yield byte-identical output.
type Emitter interface {
	ID() string
	Emit(m *ir.Module) (*Output, error)
}

// UnsupportedError reports an IR node kind a backend cannot express.
// Emission aborts; there is no best-effort fallback.
type UnsupportedError struct {
	NodeKind  ir.Kind
	NodeID    ir.NodeID
	BackendID string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("backend %s does not support node kind %s (node %d)",
		e.BackendID, e.NodeKind, e.NodeID)
}

// Registry holds available emitters by id.
type Registry struct {
	mu       sync.Mutex
	emitters map[string]Emitter
}

func NewRegistry() *Registry {
	return &Registry{emitters: make(map[string]Emitter)}
}

func (r *Registry) Register(e Emitter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.emitters[e.ID()]; exists {
		return fmt.Errorf("backend %q registered twice", e.ID())
	}
	r.emitters[e.ID()] = e
	return nil
}

func (r *Registry) Get(id string) (Emitter, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.emitters[id]
	return e, ok
}

// IDs returns the registered backend ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.emitters))
	for id := range r.emitters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
