// Package passes implements the transform registry applied between
// validation and emission. Registries are caller-owned instances, not
// process globals, so concurrent module compiles never share state.
package passes

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ssdajoker/LUASCRIPT-sub000/internal/diagnostics"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/ir"
)

// APIVersion names the registry contract a pass was built against.
type APIVersion struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
}

func (v APIVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Current is the registry contract version. Passes declaring a
// different major are refused; minors below the deprecation floor load
// with a warning.
var Current = APIVersion{Major: 1, Minor: 2}

// deprecationFloor is the oldest minor still considered current.
const deprecationFloor = 1

// Compat grades a declared version against Current.
type Compat int

const (
	CompatIncompatible Compat = iota
	CompatDeprecated
	CompatPartial
	CompatFull
)

func (v APIVersion) Compat() Compat {
	switch {
	case v.Major != Current.Major:
		return CompatIncompatible
	case v.Minor < deprecationFloor:
		return CompatDeprecated
	case v.Minor != Current.Minor:
		return CompatPartial
	default:
		return CompatFull
	}
}

// Policy states what happens when a pass fails. The zero value is
// deliberately invalid: every pass must choose explicitly.
type Policy int

const (
	PolicyUnset Policy = iota
	Optional           // failures log and skip; the pipeline continues
	Mandatory          // failures abort the pipeline
)

func (p Policy) String() string {
	switch p {
	case Optional:
		return "optional"
	case Mandatory:
		return "mandatory"
	default:
		return "unset"
	}
}

// Context is handed to every transform invocation.
type Context struct {
	Module *ir.Module
	Diags  *diagnostics.Bag
}

// Pass is one registered transform. Transform returns a replacement
// node carrying a fresh id (or an existing node to graft in place), or
// nil for no change. Validate, when present, vets each replacement
// against the original. Rollback, when present, runs when a
// replacement is rejected.
type Pass struct {
	Name     string
	Version  APIVersion
	Priority int
	Policy   Policy

	Transform func(ctx *Context, n ir.Node) (ir.Node, error)
	Validate  func(ctx *Context, original, transformed ir.Node) error
	Rollback  func(ctx *Context, rejected ir.Node)
}

// Registry holds passes and applies them in ascending priority order.
type Registry struct {
	mu     sync.Mutex
	passes []Pass
	frozen bool
	diags  *diagnostics.Bag
}

func NewRegistry(diags *diagnostics.Bag) *Registry {
	if diags == nil {
		diags = diagnostics.NewBag()
	}
	return &Registry{diags: diags}
}

// Register admits a pass after the compatibility and policy gates.
func (r *Registry) Register(p Pass) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("registry is frozen, cannot register %q", p.Name)
	}
	if p.Name == "" || p.Transform == nil {
		return fmt.Errorf("pass needs a name and a transform")
	}
	if p.Policy == PolicyUnset {
		r.diags.Add(diagnostics.NewError(fmt.Sprintf("pass %q declares no failure policy", p.Name)).
			WithCode(diagnostics.ErrPassNoPolicy))
		return fmt.Errorf("pass %q declares no failure policy", p.Name)
	}
	for _, existing := range r.passes {
		if existing.Name == p.Name {
			r.diags.Add(diagnostics.NewError(fmt.Sprintf("pass %q registered twice", p.Name)).
				WithCode(diagnostics.ErrPassDuplicate))
			return fmt.Errorf("pass %q registered twice", p.Name)
		}
	}
	switch p.Version.Compat() {
	case CompatIncompatible:
		r.diags.Add(diagnostics.NewError(
			fmt.Sprintf("pass %q targets API %s, registry is %s", p.Name, p.Version, Current)).
			WithCode(diagnostics.ErrPassIncompatible))
		return fmt.Errorf("pass %q targets incompatible API %s", p.Name, p.Version)
	case CompatDeprecated:
		r.diags.Add(diagnostics.NewWarning(
			fmt.Sprintf("pass %q targets deprecated API %s", p.Name, p.Version)).
			WithCode(diagnostics.WarnPassDeprecated))
	}

	r.passes = append(r.passes, p)
	return nil
}

// Freeze closes the registry. Further registrations fail, and Run may
// assume a stable pass list.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Passes returns the registered passes in application order.
func (r *Registry) Passes() []Pass {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]Pass(nil), r.passes...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Run applies every pass across the module. Optional pass failures are
// logged and skipped; a mandatory failure aborts with an error.
func (r *Registry) Run(m *ir.Module, diags *diagnostics.Bag) error {
	ctx := &Context{Module: m, Diags: diags}
	for _, p := range r.Passes() {
		if err := r.runPass(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) runPass(ctx *Context, p Pass) error {
	parents := parentMap(ctx.Module)
	// snapshot: nodes a pass creates are not revisited in the same pass
	ids := ctx.Module.SortedNodeIDs()
	for _, id := range ids {
		original, ok := ctx.Module.Node(id)
		if !ok {
			continue
		}
		parent := parents[id]
		if parent == orphan {
			continue
		}

		replacement, err := safeTransform(ctx, p, original)
		if err != nil {
			ctx.Diags.Add(diagnostics.NewWarning(
				fmt.Sprintf("pass %q failed on node %d: %v", p.Name, id, err)).
				WithCode(diagnostics.ErrPassRuntime).
				WithNode(uint32(id)))
			if p.Policy == Mandatory {
				return fmt.Errorf("mandatory pass %q failed on node %d: %w", p.Name, id, err)
			}
			continue
		}
		if replacement == nil || replacement.ID() == id {
			continue
		}

		if p.Validate != nil {
			if verr := p.Validate(ctx, original, replacement); verr != nil {
				if p.Policy == Mandatory {
					// mandatory output cannot be discarded, so it
					// lands with a warning attached
					ctx.Diags.Add(diagnostics.NewWarning(
						fmt.Sprintf("pass %q output kept despite failed validation: %v", p.Name, verr)).
						WithCode(diagnostics.WarnPassOutputDemoted).
						WithNode(uint32(id)))
				} else {
					ctx.Diags.Add(diagnostics.NewWarning(
						fmt.Sprintf("pass %q output rejected for node %d: %v", p.Name, id, verr)).
						WithCode(diagnostics.ErrPassRejected).
						WithNode(uint32(id)))
					if p.Rollback != nil {
						p.Rollback(ctx, replacement)
					}
					continue
				}
			}
		}

		if err := ctx.Module.Rewrite(parent, id, replacement); err != nil {
			ctx.Diags.Add(diagnostics.NewWarning(
				fmt.Sprintf("pass %q could not graft node %d: %v", p.Name, id, err)).
				WithCode(diagnostics.ErrPassRuntime).
				WithNode(uint32(id)))
		}
	}
	return nil
}

// safeTransform shields the registry from a throwing pass.
func safeTransform(ctx *Context, p Pass, n ir.Node) (out ir.Node, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out, err = nil, fmt.Errorf("panic: %v", rec)
		}
	}()
	return p.Transform(ctx, n)
}

// orphan marks nodes with no owner in the tree (superseded originals
// kept for rollback). They are skipped, not transformed.
const orphan = ir.NodeID(^uint32(0))

// parentMap computes each node's owning parent. Module body roots map
// to NoNodeID; unowned nodes map to the orphan marker.
func parentMap(m *ir.Module) map[ir.NodeID]ir.NodeID {
	parents := make(map[ir.NodeID]ir.NodeID, len(m.Nodes))
	for _, id := range m.SortedNodeIDs() {
		parents[id] = orphan
	}
	for _, root := range m.Body {
		parents[root] = ir.NoNodeID
	}
	for _, id := range m.SortedNodeIDs() {
		for _, child := range ir.ChildRefs(m.Nodes[id]) {
			parents[child] = id
		}
	}
	return parents
}
