// Package validate checks a lowered module for structural soundness
// before any transform or backend touches it. Validation is
// non-mutating and exhaustive: one pass collects every violation
// instead of stopping at the first.
package validate

import (
	"fmt"

	"github.com/ssdajoker/LUASCRIPT-sub000/internal/diagnostics"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/ir"
)

// Problem is one violation found during validation.
type Problem struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	NodeID  ir.NodeID `json:"nodeId,omitempty"`
}

func (p Problem) String() string {
	if p.NodeID.IsValid() {
		return fmt.Sprintf("%s: %s (node %d)", p.Code, p.Message, p.NodeID)
	}
	return fmt.Sprintf("%s: %s", p.Code, p.Message)
}

// Result is the outcome of one validation pass.
type Result struct {
	OK     bool      `json:"ok"`
	Errors []Problem `json:"errors,omitempty"`
}

// declaringKinds are the node kinds an identifier binding may point at.
var declaringKinds = map[ir.Kind]bool{
	ir.KindVarDecl:  true,
	ir.KindParam:    true,
	ir.KindFuncDecl: true,
	ir.KindFuncLit:  true,
	ir.KindTypeDecl: true,
	ir.KindTry:      true,
}

// Module runs every check over the module and its graphs.
func Module(m *ir.Module) Result {
	v := &validator{mod: m}
	v.checkRoots()
	for _, id := range m.SortedNodeIDs() {
		n := m.Nodes[id]
		v.checkKind(id, n)
		v.checkShape(id, n)
		v.checkRefs(id, n)
		v.checkScope(id, n)
	}
	v.checkCFGs()
	return Result{OK: len(v.problems) == 0, Errors: v.problems}
}

// Report adds every problem in a result to a diagnostic bag.
func Report(r Result, bag *diagnostics.Bag) {
	for _, p := range r.Errors {
		bag.Add(diagnostics.NewError(p.Message).
			WithCode(p.Code).
			WithNode(uint32(p.NodeID)))
	}
}

type validator struct {
	mod      *ir.Module
	problems []Problem
}

func (v *validator) addf(code string, id ir.NodeID, format string, args ...any) {
	v.problems = append(v.problems, Problem{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		NodeID:  id,
	})
}

func (v *validator) exists(id ir.NodeID) bool {
	_, ok := v.mod.Nodes[id]
	return ok
}

func (v *validator) checkRoots() {
	for _, id := range v.mod.Body {
		if !v.exists(id) {
			v.addf(diagnostics.ErrDanglingRef, id, "module body references missing node %d", id)
		}
	}
	for name, id := range v.mod.Exports {
		if !v.exists(id) {
			v.addf(diagnostics.ErrDanglingRef, id, "export %q references missing node %d", name, id)
		}
	}
}

func (v *validator) checkKind(id ir.NodeID, n ir.Node) {
	if !n.Kind().Known() {
		v.addf(diagnostics.ErrUnknownKind, id, "unknown node kind %d", int(n.Kind()))
	}
	if n.ID() != id {
		v.addf(diagnostics.ErrSchemaShape, id, "node stored under id %d reports id %d", id, n.ID())
	}
}

func (v *validator) checkRefs(id ir.NodeID, n ir.Node) {
	for _, child := range ir.ChildRefs(n) {
		if !v.exists(child) {
			v.addf(diagnostics.ErrDanglingRef, id, "%s references missing node %d", n.Kind(), child)
		}
	}
	for _, back := range ir.BackRefs(n) {
		if !v.exists(back) {
			v.addf(diagnostics.ErrDanglingRef, id, "%s binding references missing node %d", n.Kind(), back)
		}
	}
}

// checkScope verifies that every identifier either resolves to a
// declaring node or is an explicit global capture.
func (v *validator) checkScope(id ir.NodeID, n ir.Node) {
	ident, ok := n.(*ir.Ident)
	if !ok {
		return
	}
	if ident.Global {
		if ident.Binding.IsValid() {
			v.addf(diagnostics.ErrSchemaShape, id, "identifier %q is marked global but carries a binding", ident.Name)
		}
		return
	}
	if !ident.Binding.IsValid() {
		v.addf(diagnostics.ErrUnboundReference, id, "identifier %q has neither binding nor global mark", ident.Name)
		return
	}
	decl, ok := v.mod.Nodes[ident.Binding]
	if !ok {
		// already reported by checkRefs
		return
	}
	if !declaringKinds[decl.Kind()] {
		v.addf(diagnostics.ErrUnboundReference, id, "identifier %q binds to non-declaring node kind %s", ident.Name, decl.Kind())
	}
}

func (v *validator) checkCFGs() {
	fns := make(map[ir.NodeID]bool)
	for _, fnID := range v.mod.Functions() {
		fns[fnID] = true
		if _, ok := v.mod.CFGs[fnID]; !ok {
			v.addf(diagnostics.ErrMissingEntry, fnID, "function %d has no control-flow graph", fnID)
		}
	}
	for owner, g := range v.mod.CFGs {
		if owner != ir.NoNodeID && !fns[owner] {
			v.addf(diagnostics.ErrMissingEntry, owner, "control-flow graph owner %d is not a function", owner)
			continue
		}
		v.checkGraph(owner, g)
	}
}

func (v *validator) checkGraph(owner ir.NodeID, g *ir.CFG) {
	if _, ok := g.Block(g.Entry); !ok {
		v.addf(diagnostics.ErrMissingEntry, owner, "entry block %d missing from graph", g.Entry)
		return
	}
	reachable := g.Reachable()
	for _, id := range g.SortedBlockIDs() {
		blk := g.Blocks[id]
		for _, succ := range blk.Succs {
			if _, ok := g.Block(succ); !ok {
				v.addf(diagnostics.ErrDanglingCFGEdge, owner, "block %d has edge to missing block %d", id, succ)
			}
		}
		for _, stmt := range blk.Stmts {
			if !v.exists(stmt) {
				v.addf(diagnostics.ErrDanglingRef, stmt, "block %d holds missing node %d", id, stmt)
			}
		}
		if !reachable[id] {
			if !blk.Dead {
				v.addf(diagnostics.ErrSchemaShape, owner, "block %d is unreachable but not flagged dead", id)
			}
			continue
		}
		if blk.Term == ir.TermInvalid {
			v.addf(diagnostics.ErrNoTerminator, owner, "reachable block %d has no terminator", id)
		}
		if (blk.Term == ir.TermReturn || blk.Term == ir.TermThrow) && len(blk.Succs) > 0 {
			v.addf(diagnostics.ErrManyTerminators, owner, "block %d terminates with %s but has successors", id, blk.Term)
		}
	}
}
