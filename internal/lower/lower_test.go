package lower

import (
	"testing"

	"github.com/nalgeon/be"

	"github.com/ssdajoker/LUASCRIPT-sub000/internal/diagnostics"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/frontend/ast"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/ir"
)

func lowerBody(t *testing.T, stmts ...ast.Statement) (*ir.Module, *diagnostics.Bag) {
	t.Helper()
	bag := diagnostics.NewBag()
	mod, err := Lower(&ast.Program{SourceName: "t.ls", Body: stmts}, Options{
		ModuleID: "t",
		Diags:    bag,
	})
	be.Err(t, err, nil)
	be.True(t, mod != nil)
	return mod, bag
}

func lowerFail(t *testing.T, stmts ...ast.Statement) *diagnostics.Bag {
	t.Helper()
	bag := diagnostics.NewBag()
	mod, err := Lower(&ast.Program{SourceName: "t.ls", Body: stmts}, Options{
		ModuleID: "t",
		Diags:    bag,
	})
	be.True(t, err != nil)
	be.True(t, mod == nil)
	return bag
}

func hasCode(bag *diagnostics.Bag, code string) bool {
	for _, d := range bag.Diagnostics() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func ident(name string) *ast.Identifier { return &ast.Identifier{Name: name} }

func num(v string) *ast.Literal { return &ast.Literal{Kind: ast.LitNumber, Value: v} }

func constDecl(target ast.Node, init ast.Expression) *ast.VarDecl {
	return &ast.VarDecl{
		Kind:  ast.DeclConst,
		Decls: []ast.Declarator{{Target: target, Init: init}},
	}
}

func bodyDecls(t *testing.T, mod *ir.Module) []*ir.VarDecl {
	t.Helper()
	var out []*ir.VarDecl
	for _, id := range mod.Body {
		if d, ok := mod.MustNode(id).(*ir.VarDecl); ok {
			out = append(out, d)
		}
	}
	return out
}

func TestArrayPatternExpansion(t *testing.T) {
	pattern := &ast.ArrayPattern{Elements: []ast.Node{
		ident("a"),
		ident("b"),
		&ast.RestElement{Target: ident("rest")},
	}}
	mod, _ := lowerBody(t, constDecl(pattern, ident("xs")))

	decls := bodyDecls(t, mod)
	be.Equal(t, len(decls), 4)
	be.Equal(t, decls[0].Name, "__arr_1")
	be.Equal(t, decls[1].Name, "a")
	be.Equal(t, decls[2].Name, "b")
	be.Equal(t, decls[3].Name, "rest")

	elem, ok := mod.MustNode(decls[1].Init).(*ir.Elem)
	be.True(t, ok)
	be.Equal(t, elem.Pos, 0)

	slice, ok := mod.MustNode(decls[3].Init).(*ir.RestSlice)
	be.True(t, ok)
	be.Equal(t, slice.From, 2)

	// every extraction reads the temp, so the source evaluates once
	src, ok := mod.MustNode(elem.X).(*ir.Ident)
	be.True(t, ok)
	be.Equal(t, src.Name, "__arr_1")
	be.Equal(t, src.Binding, decls[0].ID())
}

func TestArrayPatternHolesBindNothing(t *testing.T) {
	pattern := &ast.ArrayPattern{Elements: []ast.Node{nil, ident("b")}}
	mod, _ := lowerBody(t, constDecl(pattern, ident("xs")))

	decls := bodyDecls(t, mod)
	be.Equal(t, len(decls), 2)
	be.Equal(t, decls[1].Name, "b")
	elem := mod.MustNode(decls[1].Init).(*ir.Elem)
	be.Equal(t, elem.Pos, 1)
}

// A pattern default must fire only on the missing-value sentinel, so
// the expansion tests the extracted value against undefined, not
// against falsiness.
func TestPatternDefaultTestsUndefined(t *testing.T) {
	pattern := &ast.ObjectPattern{Props: []ast.PatternProp{
		{Key: "name", Value: &ast.AssignPattern{
			Target:  ident("name"),
			Default: &ast.Literal{Kind: ast.LitString, Value: "anon"},
		}},
	}}
	mod, _ := lowerBody(t, constDecl(pattern, ident("o")))

	decls := bodyDecls(t, mod)
	final := decls[len(decls)-1]
	be.Equal(t, final.Name, "name")

	cond, ok := mod.MustNode(final.Init).(*ir.Cond)
	be.True(t, ok)
	test := mod.MustNode(cond.Test).(*ir.Binary)
	be.Equal(t, test.Op, "===")
	sentinel := mod.MustNode(test.Y).(*ir.Literal)
	be.Equal(t, sentinel.Lit, ir.LitUndefined)
}

func TestRestMustBeLast(t *testing.T) {
	pattern := &ast.ArrayPattern{Elements: []ast.Node{
		&ast.RestElement{Target: ident("head")},
		ident("tail"),
	}}
	bag := lowerFail(t, constDecl(pattern, ident("xs")))
	be.True(t, hasCode(bag, diagnostics.ErrRestNotLast))
}

func TestPatternNeedsInitializer(t *testing.T) {
	pattern := &ast.ObjectPattern{Props: []ast.PatternProp{
		{Key: "a", Value: ident("a")},
	}}
	bag := lowerFail(t, &ast.VarDecl{
		Kind:  ast.DeclLet,
		Decls: []ast.Declarator{{Target: pattern}},
	})
	be.True(t, hasCode(bag, diagnostics.ErrInvalidPattern))
}

func TestFunctionHoisting(t *testing.T) {
	mod, _ := lowerBody(t,
		&ast.ExprStmt{X: &ast.CallExpr{Callee: ident("f")}},
		&ast.FuncDecl{Name: "f", Fn: &ast.FuncLit{Body: &ast.Block{}}},
	)

	call := mod.MustNode(mod.MustNode(mod.Body[0]).(*ir.ExprStmt).X).(*ir.Call)
	callee := mod.MustNode(call.Callee).(*ir.Ident)
	be.True(t, !callee.Global)

	fn, ok := mod.MustNode(callee.Binding).(*ir.FuncDecl)
	be.True(t, ok)
	be.Equal(t, fn.Name, "f")
}

func TestUnresolvedNamesAreGlobal(t *testing.T) {
	mod, _ := lowerBody(t, &ast.ExprStmt{X: ident("console")})
	id := mod.MustNode(mod.MustNode(mod.Body[0]).(*ir.ExprStmt).X).(*ir.Ident)
	be.True(t, id.Global)
	be.Equal(t, id.Binding, ir.NoNodeID)
	be.Equal(t, mod.Metadata["globalCaptures"], "console")
}

func TestBreakOutsideLoop(t *testing.T) {
	bag := lowerFail(t, &ast.BreakStmt{})
	be.True(t, hasCode(bag, diagnostics.ErrBreakOutsideLoop))
}

func TestContinueInSwitchIsRejected(t *testing.T) {
	bag := lowerFail(t, &ast.SwitchStmt{
		Disc: ident("x"),
		Cases: []ast.SwitchCase{
			{Test: num("1"), Body: []ast.Statement{&ast.ContinueStmt{}}},
		},
	})
	be.True(t, hasCode(bag, diagnostics.ErrContinueOutsideLoop))
}

func TestLabeledContinueNeedsLoopLabel(t *testing.T) {
	bag := lowerFail(t, &ast.LabeledStmt{
		Label: "blk",
		Body: &ast.Block{Body: []ast.Statement{
			&ast.WhileStmt{
				Test: ident("x"),
				Body: &ast.Block{Body: []ast.Statement{
					&ast.ContinueStmt{Label: "blk"},
				}},
			},
		}},
	})
	be.True(t, hasCode(bag, diagnostics.ErrUnresolvedLabel))
}

func TestLabeledBreakResolves(t *testing.T) {
	mod, _ := lowerBody(t, &ast.LabeledStmt{
		Label: "outer",
		Body: &ast.WhileStmt{
			Test: ident("x"),
			Body: &ast.Block{Body: []ast.Statement{
				&ast.BreakStmt{Label: "outer"},
			}},
		},
	})
	loop := mod.MustNode(mod.Body[0]).(*ir.While)
	be.Equal(t, loop.Label, "outer")
}

func TestForDesugarsToWhile(t *testing.T) {
	mod, _ := lowerBody(t, &ast.ForStmt{
		Init: constDecl(ident("i"), num("0")),
		Test: &ast.BinaryExpr{Op: "<", X: ident("i"), Y: num("3")},
		Post: &ast.AssignExpr{Op: "+=", Target: ident("i"), Value: num("1")},
		Body: &ast.Block{},
	})

	wrapper := mod.MustNode(mod.Body[0]).(*ir.Block)
	be.Equal(t, len(wrapper.Stmts), 2)
	_, ok := mod.MustNode(wrapper.Stmts[0]).(*ir.VarDecl)
	be.True(t, ok)
	loop, ok := mod.MustNode(wrapper.Stmts[1]).(*ir.While)
	be.True(t, ok)
	be.True(t, loop.Post.IsValid())
}

func TestForOfPatternTarget(t *testing.T) {
	pattern := &ast.ObjectPattern{Props: []ast.PatternProp{
		{Key: "id", Value: ident("id")},
	}}
	mod, _ := lowerBody(t, &ast.ForOfStmt{
		Kind:   ast.DeclConst,
		Target: pattern,
		Source: ident("items"),
		Body:   &ast.Block{},
	})

	loop := mod.MustNode(mod.Body[0]).(*ir.IterLoop)
	be.Equal(t, loop.Mode, ir.IterOf)
	target := mod.MustNode(loop.Target).(*ir.VarDecl)
	be.True(t, target.Name != "")
	be.True(t, len(loop.Prologue) > 0)
}

func TestCatchBindingResolvesToTry(t *testing.T) {
	mod, _ := lowerBody(t, &ast.TryStmt{
		Block:      &ast.Block{},
		CatchParam: ident("err"),
		Handler: &ast.Block{Body: []ast.Statement{
			&ast.ExprStmt{X: ident("err")},
		}},
	})

	try := mod.MustNode(mod.Body[0]).(*ir.Try)
	be.Equal(t, try.CatchName, "err")
	handler := mod.MustNode(try.Handler).(*ir.Block)
	use := mod.MustNode(mod.MustNode(handler.Stmts[0]).(*ir.ExprStmt).X).(*ir.Ident)
	be.Equal(t, use.Binding, try.ID())
}

func TestExportsRecorded(t *testing.T) {
	mod, _ := lowerBody(t,
		&ast.FuncDecl{Name: "run", Fn: &ast.FuncLit{Body: &ast.Block{}}},
		constDecl(ident("limit"), num("10")),
	)
	be.Equal(t, len(mod.Exports), 2)
	_, ok := mod.Exports["run"]
	be.True(t, ok)
	_, ok = mod.Exports["limit"]
	be.True(t, ok)
}

func TestDeterministicIDs(t *testing.T) {
	build := func() *ir.Module {
		mod, _ := lowerBody(t,
			constDecl(ident("x"), num("1")),
			&ast.ExprStmt{X: &ast.CallExpr{Callee: ident("print"), Args: []ast.Expression{ident("x")}}},
		)
		return mod
	}
	first, second := build(), build()
	be.Equal(t, first.SortedNodeIDs(), second.SortedNodeIDs())
	be.Equal(t, first.Body, second.Body)
}

func TestThisBoundInMethodNotArrow(t *testing.T) {
	fnBody := &ast.Block{Body: []ast.Statement{
		&ast.ReturnStmt{Arg: &ast.MemberExpr{X: ident("this"), Name: "x"}},
	}}
	mod, _ := lowerBody(t, &ast.FuncDecl{
		Name: "get",
		Fn:   &ast.FuncLit{Body: fnBody},
	})

	fn := mod.MustNode(mod.Body[0]).(*ir.FuncDecl)
	body := mod.MustNode(fn.Body).(*ir.Block)
	ret := mod.MustNode(body.Stmts[0]).(*ir.Return)
	member := mod.MustNode(ret.Arg).(*ir.Member)
	self := mod.MustNode(member.X).(*ir.Ident)
	be.Equal(t, self.Binding, fn.ID())
}

// Failure diagnostics come from the shared builders, so the recorded
// diagnostic carries the builder's label text, not just a code.
func TestFailureDiagnosticsUseSharedBuilders(t *testing.T) {
	bag := lowerFail(t, &ast.BreakStmt{})
	found := false
	for _, d := range bag.Diagnostics() {
		if d.Code != diagnostics.ErrBreakOutsideLoop {
			continue
		}
		found = true
		be.Equal(t, d.Message, "break statement outside loop or switch")
		be.True(t, len(d.Labels) > 0)
		be.Equal(t, d.Labels[0].Message, "not inside a loop")
	}
	be.True(t, found)
}
