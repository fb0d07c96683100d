// Package cfg builds per-function control-flow graphs over lowered IR.
// The module's top-level statement list gets a graph of its own, stored
// in Module.CFGs under id 0.
package cfg

import (
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/diagnostics"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/ir"
)

// Builder constructs one graph at a time. Block ids restart at 1 per
// graph so repeated runs over identical IR produce identical graphs.
type Builder struct {
	mod     *ir.Module
	diags   *diagnostics.Bag
	cfg     *ir.CFG
	counter uint32
	targets *branchTargets
}

// branchTargets tracks the enclosing break/continue destinations.
// continueTo is 0 for non-loop targets (switch, labeled block).
type branchTargets struct {
	label      string
	breakTo    ir.BlockID
	continueTo ir.BlockID
	parent     *branchTargets
}

// BuildAll builds and stores a graph for the module body and for every
// function in the module.
func BuildAll(m *ir.Module, diags *diagnostics.Bag) {
	m.CFGs[ir.NoNodeID] = Build(m, m.Body, diags)
	for _, fnID := range m.Functions() {
		var body ir.NodeID
		switch fn := m.MustNode(fnID).(type) {
		case *ir.FuncDecl:
			body = fn.Body
		case *ir.FuncLit:
			body = fn.Body
		}
		block := m.MustNode(body).(*ir.Block)
		m.CFGs[fnID] = Build(m, block.Stmts, diags)
	}
}

// Build constructs the graph for one statement list.
func Build(m *ir.Module, stmts []ir.NodeID, diags *diagnostics.Bag) *ir.CFG {
	b := &Builder{
		mod:   m,
		diags: diags,
		cfg:   &ir.CFG{Blocks: make(map[ir.BlockID]*ir.BasicBlock)},
	}
	entry := b.newBlock()
	b.cfg.Entry = entry.ID

	last := b.buildStmts(stmts, entry)
	if last != nil && last.Term == ir.TermInvalid {
		// falling off the end returns to the caller
		last.Term = ir.TermFallthrough
	}

	b.finalize()
	return b.cfg
}

func (b *Builder) newBlock() *ir.BasicBlock {
	b.counter++
	blk := &ir.BasicBlock{ID: ir.BlockID(b.counter)}
	b.cfg.Blocks[blk.ID] = blk
	return blk
}

func (b *Builder) addEdge(from, to *ir.BasicBlock) {
	if from != nil && to != nil {
		from.Succs = append(from.Succs, to.ID)
	}
}

// finalize flags blocks the entry cannot reach and warns when they
// hold statements.
func (b *Builder) finalize() {
	reachable := b.cfg.Reachable()
	for _, id := range b.cfg.SortedBlockIDs() {
		blk := b.cfg.Blocks[id]
		if reachable[id] {
			continue
		}
		blk.Dead = true
		if len(blk.Stmts) > 0 {
			first := b.mod.MustNode(blk.Stmts[0])
			b.diags.Add(diagnostics.NewWarning("unreachable code").
				WithCode(diagnostics.WarnUnreachableBlock).
				WithNode(uint32(first.ID())).
				WithPrimaryLabel(first.Span(), "never executed"))
		}
	}
}

// buildStmts threads a statement list through the graph. A terminated
// current block means the following statements are unreachable; they
// still get blocks so dead code survives into the graph, just flagged.
func (b *Builder) buildStmts(stmts []ir.NodeID, current *ir.BasicBlock) *ir.BasicBlock {
	for _, id := range stmts {
		if current == nil {
			current = b.newBlock()
		}
		current = b.buildStmt(id, current)
	}
	return current
}

func (b *Builder) buildStmt(id ir.NodeID, current *ir.BasicBlock) *ir.BasicBlock {
	switch n := b.mod.MustNode(id).(type) {
	case *ir.Block:
		return b.buildBlock(n, current)
	case *ir.If:
		return b.buildIf(n, current)
	case *ir.While:
		return b.buildWhile(n, current)
	case *ir.IterLoop:
		return b.buildIterLoop(n, current)
	case *ir.Switch:
		return b.buildSwitch(n, current)
	case *ir.Try:
		return b.buildTry(n, current)
	case *ir.Break:
		return b.buildBreak(n, current)
	case *ir.Continue:
		return b.buildContinue(n, current)
	case *ir.Return:
		current.Stmts = append(current.Stmts, id)
		current.Term = ir.TermReturn
		return nil
	case *ir.Throw:
		current.Stmts = append(current.Stmts, id)
		current.Term = ir.TermThrow
		return nil
	default:
		// declarations and plain statements never branch
		current.Stmts = append(current.Stmts, id)
		return current
	}
}

func (b *Builder) buildBlock(n *ir.Block, current *ir.BasicBlock) *ir.BasicBlock {
	if n.Label == "" {
		return b.buildStmts(n.Stmts, current)
	}
	// labeled block: a break target, never a continue target
	after := b.newBlock()
	b.targets = &branchTargets{label: n.Label, breakTo: after.ID, parent: b.targets}
	last := b.buildStmts(n.Stmts, current)
	b.targets = b.targets.parent
	if last != nil && last.Term == ir.TermInvalid {
		last.Term = ir.TermFallthrough
		b.addEdge(last, after)
	}
	return after
}

func (b *Builder) buildIf(n *ir.If, current *ir.BasicBlock) *ir.BasicBlock {
	current.Term = ir.TermCondBranch
	current.Cond = n.Cond

	thenEntry := b.newBlock()
	b.addEdge(current, thenEntry)
	afterThen := b.buildStmt(n.Then, thenEntry)

	var afterElse *ir.BasicBlock
	hasElse := n.Else.IsValid()
	if hasElse {
		elseEntry := b.newBlock()
		b.addEdge(current, elseEntry)
		afterElse = b.buildStmt(n.Else, elseEntry)
	}

	merge := b.newBlock()
	if !hasElse {
		b.addEdge(current, merge)
	}
	joined := false
	if afterThen != nil && afterThen.Term == ir.TermInvalid {
		afterThen.Term = ir.TermFallthrough
		b.addEdge(afterThen, merge)
		joined = true
	}
	if afterElse != nil && afterElse.Term == ir.TermInvalid {
		afterElse.Term = ir.TermFallthrough
		b.addEdge(afterElse, merge)
		joined = true
	}
	if hasElse && !joined {
		// both arms left the graph; whatever follows is dead
		return nil
	}
	return merge
}

func (b *Builder) buildWhile(n *ir.While, current *ir.BasicBlock) *ir.BasicBlock {
	header := b.newBlock()
	current.Term = ir.TermFallthrough
	b.addEdge(current, header)

	header.Term = ir.TermCondBranch
	header.Cond = n.Cond

	bodyEntry := b.newBlock()
	after := b.newBlock()
	b.addEdge(header, bodyEntry)
	b.addEdge(header, after)

	// continue re-runs the post clause when the loop has one
	backTarget := header
	if n.Post.IsValid() {
		post := b.newBlock()
		postBlock := b.mod.MustNode(n.Post).(*ir.Block)
		lastPost := b.buildStmts(postBlock.Stmts, post)
		if lastPost != nil && lastPost.Term == ir.TermInvalid {
			lastPost.Term = ir.TermJump
			b.addEdge(lastPost, header)
		}
		backTarget = post
	}

	b.targets = &branchTargets{label: n.Label, breakTo: after.ID, continueTo: backTarget.ID, parent: b.targets}
	bodyBlock := b.mod.MustNode(n.Body).(*ir.Block)
	lastBody := b.buildStmts(bodyBlock.Stmts, bodyEntry)
	b.targets = b.targets.parent

	if lastBody != nil && lastBody.Term == ir.TermInvalid {
		lastBody.Term = ir.TermJump
		b.addEdge(lastBody, backTarget)
	}
	return after
}

func (b *Builder) buildIterLoop(n *ir.IterLoop, current *ir.BasicBlock) *ir.BasicBlock {
	header := b.newBlock()
	current.Term = ir.TermFallthrough
	b.addEdge(current, header)

	// the header branches on iterator exhaustion
	header.Term = ir.TermCondBranch
	header.Cond = n.Source
	header.Stmts = append(header.Stmts, n.Target)

	bodyEntry := b.newBlock()
	after := b.newBlock()
	b.addEdge(header, bodyEntry)
	b.addEdge(header, after)

	bodyEntry.Stmts = append(bodyEntry.Stmts, n.Prologue...)

	b.targets = &branchTargets{label: n.Label, breakTo: after.ID, continueTo: header.ID, parent: b.targets}
	bodyBlock := b.mod.MustNode(n.Body).(*ir.Block)
	lastBody := b.buildStmts(bodyBlock.Stmts, bodyEntry)
	b.targets = b.targets.parent

	if lastBody != nil && lastBody.Term == ir.TermInvalid {
		lastBody.Term = ir.TermJump
		b.addEdge(lastBody, header)
	}
	return after
}

// buildSwitch branches the discriminant block to every case entry.
// Case bodies fall through to the next case unless they break.
func (b *Builder) buildSwitch(n *ir.Switch, current *ir.BasicBlock) *ir.BasicBlock {
	current.Term = ir.TermCondBranch
	current.Cond = n.Disc

	after := b.newBlock()
	b.targets = &branchTargets{breakTo: after.ID, parent: b.targets}

	entries := make([]*ir.BasicBlock, len(n.Cases))
	for i := range n.Cases {
		entries[i] = b.newBlock()
		b.addEdge(current, entries[i])
	}

	hasDefault := false
	var prev *ir.BasicBlock
	for i, caseID := range n.Cases {
		c := b.mod.MustNode(caseID).(*ir.Case)
		if !c.Test.IsValid() {
			hasDefault = true
		}
		if prev != nil && prev.Term == ir.TermInvalid {
			prev.Term = ir.TermFallthrough
			b.addEdge(prev, entries[i])
		}
		prev = b.buildStmts(c.Body, entries[i])
	}
	if prev != nil && prev.Term == ir.TermInvalid {
		prev.Term = ir.TermFallthrough
		b.addEdge(prev, after)
	}
	if !hasDefault {
		// no match at all skips every case
		b.addEdge(current, after)
	}

	b.targets = b.targets.parent
	return after
}

// buildTry approximates throw points with one exceptional edge from
// the block entering the protected region to the handler. The edge
// hangs off the entering block rather than the region's first block,
// whose own terminator may be a throw or return. The finalizer sits
// on every path out.
func (b *Builder) buildTry(n *ir.Try, current *ir.BasicBlock) *ir.BasicBlock {
	tryEntry := b.newBlock()
	entering := current
	entering.Term = ir.TermFallthrough
	b.addEdge(entering, tryEntry)

	after := b.newBlock()

	exitTarget := after
	if n.Finalizer.IsValid() {
		finEntry := b.newBlock()
		finBlock := b.mod.MustNode(n.Finalizer).(*ir.Block)
		lastFin := b.buildStmts(finBlock.Stmts, finEntry)
		if lastFin != nil && lastFin.Term == ir.TermInvalid {
			lastFin.Term = ir.TermFallthrough
			b.addEdge(lastFin, after)
		}
		exitTarget = finEntry
	}

	tryBlock := b.mod.MustNode(n.Block).(*ir.Block)
	lastTry := b.buildStmts(tryBlock.Stmts, tryEntry)
	if lastTry != nil && lastTry.Term == ir.TermInvalid {
		lastTry.Term = ir.TermFallthrough
		b.addEdge(lastTry, exitTarget)
	}

	if n.Handler.IsValid() {
		handlerEntry := b.newBlock()
		b.addEdge(entering, handlerEntry)
		handlerBlock := b.mod.MustNode(n.Handler).(*ir.Block)
		lastHandler := b.buildStmts(handlerBlock.Stmts, handlerEntry)
		if lastHandler != nil && lastHandler.Term == ir.TermInvalid {
			lastHandler.Term = ir.TermFallthrough
			b.addEdge(lastHandler, exitTarget)
		}
	} else if n.Finalizer.IsValid() {
		// no handler: a throw still runs the finalizer before
		// propagating
		b.addEdge(entering, exitTarget)
	}

	return after
}

func (b *Builder) buildBreak(n *ir.Break, current *ir.BasicBlock) *ir.BasicBlock {
	current.Stmts = append(current.Stmts, n.NID)
	current.Term = ir.TermJump
	if t := b.findTarget(n.Label, false); t != nil {
		if blk, ok := b.cfg.Block(t.breakTo); ok {
			b.addEdge(current, blk)
		}
	}
	return nil
}

func (b *Builder) buildContinue(n *ir.Continue, current *ir.BasicBlock) *ir.BasicBlock {
	current.Stmts = append(current.Stmts, n.NID)
	current.Term = ir.TermJump
	if t := b.findTarget(n.Label, true); t != nil {
		if blk, ok := b.cfg.Block(t.continueTo); ok {
			b.addEdge(current, blk)
		}
	}
	return nil
}

// findTarget resolves the enclosing break/continue destination. The
// lowerer already rejected unresolved labels, so a miss here means the
// jump targets an outer graph and gets no edge.
func (b *Builder) findTarget(label string, needLoop bool) *branchTargets {
	for t := b.targets; t != nil; t = t.parent {
		if label != "" && t.label != label {
			continue
		}
		if needLoop && !t.continueTo.IsValid() {
			continue
		}
		return t
	}
	return nil
}
