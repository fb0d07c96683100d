package passes

import (
	"errors"
	"testing"

	"github.com/nalgeon/be"

	"github.com/ssdajoker/LUASCRIPT-sub000/internal/diagnostics"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/frontend/ast"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/ir"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/lower"
)

func noop(ctx *Context, n ir.Node) (ir.Node, error) { return nil, nil }

func pass(name string, priority int) Pass {
	return Pass{Name: name, Version: Current, Priority: priority, Policy: Optional, Transform: noop}
}

func hasCode(bag *diagnostics.Bag, code string) bool {
	for _, d := range bag.Diagnostics() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func foldableModule(t *testing.T) *ir.Module {
	t.Helper()
	bag := diagnostics.NewBag()
	mod, err := lower.Lower(&ast.Program{
		SourceName: "t.ls",
		Body: []ast.Statement{
			&ast.VarDecl{Kind: ast.DeclConst, Decls: []ast.Declarator{{
				Target: &ast.Identifier{Name: "x"},
				Init: &ast.BinaryExpr{
					Op: "*",
					X:  &ast.Literal{Kind: ast.LitNumber, Value: "6"},
					Y:  &ast.Literal{Kind: ast.LitNumber, Value: "7"},
				},
			}}},
		},
	}, lower.Options{ModuleID: "t", Diags: bag})
	be.Err(t, err, nil)
	return mod
}

func TestOrderedByPriorityThenName(t *testing.T) {
	reg := NewRegistry(nil)
	be.Err(t, reg.Register(pass("zeta", 10)), nil)
	be.Err(t, reg.Register(pass("alpha", 10)), nil)
	be.Err(t, reg.Register(pass("omega", 1)), nil)

	got := reg.Passes()
	be.Equal(t, got[0].Name, "omega")
	be.Equal(t, got[1].Name, "alpha")
	be.Equal(t, got[2].Name, "zeta")
}

func TestIncompatibleMajorRefused(t *testing.T) {
	bag := diagnostics.NewBag()
	reg := NewRegistry(bag)
	p := pass("future", 1)
	p.Version = APIVersion{Major: Current.Major + 1}
	err := reg.Register(p)
	be.True(t, err != nil)
	be.True(t, hasCode(bag, diagnostics.ErrPassIncompatible))
	be.Equal(t, len(reg.Passes()), 0)
}

func TestDeprecatedMinorWarnsButLoads(t *testing.T) {
	bag := diagnostics.NewBag()
	reg := NewRegistry(bag)
	p := pass("old", 1)
	p.Version = APIVersion{Major: Current.Major, Minor: 0}
	be.Err(t, reg.Register(p), nil)
	be.True(t, hasCode(bag, diagnostics.WarnPassDeprecated))
	be.Equal(t, len(reg.Passes()), 1)
	be.Equal(t, bag.ErrorCount(), 0)
}

func TestDuplicateNameRefused(t *testing.T) {
	bag := diagnostics.NewBag()
	reg := NewRegistry(bag)
	be.Err(t, reg.Register(pass("twice", 1)), nil)
	err := reg.Register(pass("twice", 2))
	be.True(t, err != nil)
	be.True(t, hasCode(bag, diagnostics.ErrPassDuplicate))
}

func TestPolicyMustBeExplicit(t *testing.T) {
	bag := diagnostics.NewBag()
	reg := NewRegistry(bag)
	p := Pass{Name: "lazy", Version: Current, Transform: noop}
	err := reg.Register(p)
	be.True(t, err != nil)
	be.True(t, hasCode(bag, diagnostics.ErrPassNoPolicy))
}

func TestFrozenRegistryRejectsRegistration(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Freeze()
	err := reg.Register(pass("late", 1))
	be.True(t, err != nil)
}

func TestConstFoldFoldsLiterals(t *testing.T) {
	mod := foldableModule(t)
	bag := diagnostics.NewBag()
	reg := NewRegistry(bag)
	be.Err(t, reg.Register(ConstFold()), nil)

	be.Err(t, reg.Run(mod, bag), nil)

	var decl *ir.VarDecl
	for _, id := range mod.SortedNodeIDs() {
		if d, ok := mod.Nodes[id].(*ir.VarDecl); ok {
			decl = d
		}
	}
	be.True(t, decl != nil)
	lit, ok := mod.MustNode(decl.Init).(*ir.Literal)
	be.True(t, ok)
	be.Equal(t, lit.Value, "42")
}

func TestConstFoldSkipsDivisionByZero(t *testing.T) {
	bag := diagnostics.NewBag()
	mod, err := lower.Lower(&ast.Program{
		SourceName: "t.ls",
		Body: []ast.Statement{
			&ast.ExprStmt{X: &ast.BinaryExpr{
				Op: "/",
				X:  &ast.Literal{Kind: ast.LitNumber, Value: "1"},
				Y:  &ast.Literal{Kind: ast.LitNumber, Value: "0"},
			}},
		},
	}, lower.Options{ModuleID: "t", Diags: bag})
	be.Err(t, err, nil)

	reg := NewRegistry(bag)
	be.Err(t, reg.Register(ConstFold()), nil)
	be.Err(t, reg.Run(mod, bag), nil)

	stmt := mod.MustNode(mod.Body[0]).(*ir.ExprStmt)
	_, stillBinary := mod.MustNode(stmt.X).(*ir.Binary)
	be.True(t, stillBinary)
}

func TestDeadBranchTakesTrueArm(t *testing.T) {
	bag := diagnostics.NewBag()
	mod, err := lower.Lower(&ast.Program{
		SourceName: "t.ls",
		Body: []ast.Statement{
			&ast.IfStmt{
				Test: &ast.Literal{Kind: ast.LitBool, Value: "true"},
				Then: &ast.Block{Body: []ast.Statement{
					&ast.ExprStmt{X: &ast.Identifier{Name: "kept"}},
				}},
				Else: &ast.Block{Body: []ast.Statement{
					&ast.ExprStmt{X: &ast.Identifier{Name: "dropped"}},
				}},
			},
		},
	}, lower.Options{ModuleID: "t", Diags: bag})
	be.Err(t, err, nil)

	reg := NewRegistry(bag)
	be.Err(t, reg.Register(DeadBranch()), nil)
	be.Err(t, reg.Run(mod, bag), nil)

	block, ok := mod.MustNode(mod.Body[0]).(*ir.Block)
	be.True(t, ok)
	be.Equal(t, len(block.Stmts), 1)
}

func TestOptionalPanicContinues(t *testing.T) {
	mod := foldableModule(t)
	bag := diagnostics.NewBag()
	reg := NewRegistry(bag)
	p := pass("explode", 1)
	p.Transform = func(ctx *Context, n ir.Node) (ir.Node, error) { panic("boom") }
	be.Err(t, reg.Register(p), nil)

	be.Err(t, reg.Run(mod, bag), nil)
	be.True(t, hasCode(bag, diagnostics.ErrPassRuntime))
}

func TestMandatoryErrorAborts(t *testing.T) {
	mod := foldableModule(t)
	bag := diagnostics.NewBag()
	reg := NewRegistry(bag)
	p := pass("strict", 1)
	p.Policy = Mandatory
	p.Transform = func(ctx *Context, n ir.Node) (ir.Node, error) {
		return nil, errors.New("no")
	}
	be.Err(t, reg.Register(p), nil)

	err := reg.Run(mod, bag)
	be.True(t, err != nil)
}

func TestRejectedOutputRolledBack(t *testing.T) {
	mod := foldableModule(t)
	bag := diagnostics.NewBag()
	reg := NewRegistry(bag)

	rolledBack := false
	p := pass("suspect", 1)
	p.Transform = func(ctx *Context, n ir.Node) (ir.Node, error) {
		lit, ok := n.(*ir.Literal)
		if !ok || lit.Lit != ir.LitNumber {
			return nil, nil
		}
		return &ir.Literal{NID: ctx.Module.NewID(), Lit: ir.LitNumber, Value: "0", Src: lit.Src}, nil
	}
	p.Validate = func(ctx *Context, original, transformed ir.Node) error {
		return errors.New("zeroing literals is wrong")
	}
	p.Rollback = func(ctx *Context, rejected ir.Node) { rolledBack = true }
	be.Err(t, reg.Register(p), nil)

	be.Err(t, reg.Run(mod, bag), nil)
	be.True(t, rolledBack)
	be.True(t, hasCode(bag, diagnostics.ErrPassRejected))

	// the original literals are untouched
	for _, id := range mod.SortedNodeIDs() {
		if lit, ok := mod.Nodes[id].(*ir.Literal); ok {
			be.True(t, lit.Value != "0")
		}
	}
}

func TestMandatoryRejectedOutputKept(t *testing.T) {
	mod := foldableModule(t)
	bag := diagnostics.NewBag()
	reg := NewRegistry(bag)

	p := pass("strict-suspect", 1)
	p.Policy = Mandatory
	p.Transform = func(ctx *Context, n ir.Node) (ir.Node, error) {
		lit, ok := n.(*ir.Literal)
		if !ok || lit.Lit != ir.LitNumber || lit.Value != "6" {
			return nil, nil
		}
		return &ir.Literal{NID: ctx.Module.NewID(), Lit: ir.LitNumber, Value: "8", Src: lit.Src}, nil
	}
	p.Validate = func(ctx *Context, original, transformed ir.Node) error {
		return errors.New("still wrong")
	}
	be.Err(t, reg.Register(p), nil)

	be.Err(t, reg.Run(mod, bag), nil)
	be.True(t, hasCode(bag, diagnostics.WarnPassOutputDemoted))

	found := false
	for _, id := range mod.SortedNodeIDs() {
		if lit, ok := mod.Nodes[id].(*ir.Literal); ok && lit.Value == "8" {
			found = true
		}
	}
	be.True(t, found)
}
