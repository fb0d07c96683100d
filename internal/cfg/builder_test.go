package cfg

import (
	"testing"

	"github.com/nalgeon/be"

	"github.com/ssdajoker/LUASCRIPT-sub000/internal/diagnostics"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/frontend/ast"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/ir"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/lower"
)

func buildFrom(t *testing.T, stmts ...ast.Statement) (*ir.Module, *diagnostics.Bag) {
	t.Helper()
	bag := diagnostics.NewBag()
	mod, err := lower.Lower(&ast.Program{SourceName: "t.ls", Body: stmts}, lower.Options{
		ModuleID: "t",
		Diags:    bag,
	})
	be.Err(t, err, nil)
	BuildAll(mod, bag)
	return mod, bag
}

func ident(name string) *ast.Identifier { return &ast.Identifier{Name: name} }

func moduleGraph(t *testing.T, mod *ir.Module) *ir.CFG {
	t.Helper()
	graph, ok := mod.CFGs[ir.NoNodeID]
	be.True(t, ok)
	return graph
}

func TestStraightLineIsOneBlock(t *testing.T) {
	mod, _ := buildFrom(t,
		&ast.ExprStmt{X: ident("a")},
		&ast.ExprStmt{X: ident("b")},
	)
	graph := moduleGraph(t, mod)
	be.Equal(t, len(graph.Blocks), 1)
	entry := graph.Blocks[graph.Entry]
	be.Equal(t, len(entry.Stmts), 2)
	be.Equal(t, entry.Term, ir.TermFallthrough)
}

func TestIfElseMerges(t *testing.T) {
	mod, _ := buildFrom(t, &ast.IfStmt{
		Test: ident("c"),
		Then: &ast.Block{Body: []ast.Statement{&ast.ExprStmt{X: ident("a")}}},
		Else: &ast.Block{Body: []ast.Statement{&ast.ExprStmt{X: ident("b")}}},
	})
	graph := moduleGraph(t, mod)

	entry := graph.Blocks[graph.Entry]
	be.Equal(t, entry.Term, ir.TermCondBranch)
	be.Equal(t, len(entry.Succs), 2)
	be.True(t, entry.Cond.IsValid())

	// both arms reach the same merge block
	left := graph.Blocks[entry.Succs[0]]
	right := graph.Blocks[entry.Succs[1]]
	be.Equal(t, len(left.Succs), 1)
	be.Equal(t, len(right.Succs), 1)
	be.Equal(t, left.Succs[0], right.Succs[0])
}

func TestWhileBackEdge(t *testing.T) {
	mod, _ := buildFrom(t, &ast.WhileStmt{
		Test: ident("c"),
		Body: &ast.Block{Body: []ast.Statement{&ast.ExprStmt{X: ident("a")}}},
	})
	graph := moduleGraph(t, mod)

	var header *ir.BasicBlock
	for _, id := range graph.SortedBlockIDs() {
		if blk := graph.Blocks[id]; blk.Term == ir.TermCondBranch {
			header = blk
		}
	}
	be.True(t, header != nil)

	// some block jumps back to the header
	back := false
	for _, id := range graph.SortedBlockIDs() {
		blk := graph.Blocks[id]
		if blk == header {
			continue
		}
		for _, s := range blk.Succs {
			if s == header.ID {
				back = true
			}
		}
	}
	be.True(t, back)
}

func TestCodeAfterReturnIsDead(t *testing.T) {
	fn := &ast.FuncDecl{Name: "f", Fn: &ast.FuncLit{Body: &ast.Block{Body: []ast.Statement{
		&ast.ReturnStmt{},
		&ast.ExprStmt{X: ident("never")},
	}}}}
	mod, bag := buildFrom(t, fn)

	fnID := mod.Exports["f"]
	graph := mod.CFGs[fnID]
	be.True(t, graph != nil)

	deadWithStmts := false
	for _, blk := range graph.Blocks {
		if blk.Dead && len(blk.Stmts) > 0 {
			deadWithStmts = true
		}
	}
	be.True(t, deadWithStmts)

	found := false
	for _, d := range bag.Diagnostics() {
		if d.Code == diagnostics.WarnUnreachableBlock {
			found = true
		}
	}
	be.True(t, found)
	be.Equal(t, bag.ErrorCount(), 0)
}

func TestTryHasExceptionalEdge(t *testing.T) {
	mod, _ := buildFrom(t, &ast.TryStmt{
		Block: &ast.Block{Body: []ast.Statement{
			&ast.ExprStmt{X: &ast.CallExpr{Callee: ident("risky")}},
		}},
		CatchParam: ident("e"),
		Handler: &ast.Block{Body: []ast.Statement{
			&ast.ExprStmt{X: ident("e")},
		}},
	})
	graph := moduleGraph(t, mod)

	// two distinct blocks hold the protected call and the handler use,
	// and the protected block can branch to the handler block
	reach := graph.Reachable()
	twoWay := false
	for _, blk := range graph.Blocks {
		if len(blk.Succs) >= 2 && reach[blk.ID] {
			twoWay = true
		}
	}
	be.True(t, twoWay)
}

func TestEveryFunctionGetsAGraph(t *testing.T) {
	mod, _ := buildFrom(t,
		&ast.FuncDecl{Name: "a", Fn: &ast.FuncLit{Body: &ast.Block{}}},
		&ast.ExprStmt{X: &ast.FuncLit{Body: &ast.Block{}}},
	)
	for _, fnID := range mod.Functions() {
		_, ok := mod.CFGs[fnID]
		be.True(t, ok)
	}
	// plus the module body graph
	be.Equal(t, len(mod.CFGs), len(mod.Functions())+1)
}

func TestBlockIDsAreStable(t *testing.T) {
	build := func() *ir.CFG {
		mod, _ := buildFrom(t, &ast.IfStmt{
			Test: ident("c"),
			Then: &ast.Block{Body: []ast.Statement{&ast.ExprStmt{X: ident("a")}}},
		})
		return moduleGraph(t, mod)
	}
	first, second := build(), build()
	be.Equal(t, first.SortedBlockIDs(), second.SortedBlockIDs())
	be.Equal(t, first.Entry, second.Entry)
}

// A throw as the first statement of a try block terminates the
// region's first block; the exceptional edge to the handler hangs off
// the entering block, so the throw block keeps zero successors and the
// handler stays reachable.
func TestThrowLeadingTryBlock(t *testing.T) {
	mod, _ := buildFrom(t, &ast.TryStmt{
		Block: &ast.Block{Body: []ast.Statement{
			&ast.ThrowStmt{Arg: ident("x")},
		}},
		CatchParam: ident("e"),
		Handler: &ast.Block{Body: []ast.Statement{
			&ast.ExprStmt{X: ident("e")},
		}},
	})
	graph := moduleGraph(t, mod)

	sawThrow := false
	for _, blk := range graph.Blocks {
		if blk.Term == ir.TermThrow {
			sawThrow = true
			be.Equal(t, len(blk.Succs), 0)
		}
		be.True(t, !blk.Dead)
	}
	be.True(t, sawThrow)
}
