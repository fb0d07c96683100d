package validate

import (
	"testing"

	"github.com/nalgeon/be"

	"github.com/ssdajoker/LUASCRIPT-sub000/internal/cfg"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/diagnostics"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/frontend/ast"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/ir"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/lower"
)

func loweredModule(t *testing.T, stmts ...ast.Statement) *ir.Module {
	t.Helper()
	bag := diagnostics.NewBag()
	mod, err := lower.Lower(&ast.Program{SourceName: "t.ls", Body: stmts}, lower.Options{
		ModuleID: "t",
		Diags:    bag,
	})
	be.Err(t, err, nil)
	cfg.BuildAll(mod, bag)
	return mod
}

func hasProblem(r Result, code string) bool {
	for _, p := range r.Errors {
		if p.Code == code {
			return true
		}
	}
	return false
}

func sampleProgram() []ast.Statement {
	return []ast.Statement{
		&ast.VarDecl{
			Kind: ast.DeclConst,
			Decls: []ast.Declarator{{
				Target: &ast.Identifier{Name: "x"},
				Init:   &ast.Literal{Kind: ast.LitNumber, Value: "1"},
			}},
		},
		&ast.FuncDecl{Name: "f", Fn: &ast.FuncLit{
			Params: []ast.Node{&ast.Identifier{Name: "n"}},
			Body: &ast.Block{Body: []ast.Statement{
				&ast.ReturnStmt{Arg: &ast.Identifier{Name: "n"}},
			}},
		}},
		&ast.ExprStmt{X: &ast.CallExpr{
			Callee: &ast.Identifier{Name: "f"},
			Args:   []ast.Expression{&ast.Identifier{Name: "x"}},
		}},
	}
}

func TestValidModulePasses(t *testing.T) {
	mod := loweredModule(t, sampleProgram()...)
	res := Module(mod)
	if !res.OK {
		for _, p := range res.Errors {
			t.Logf("problem: %s", p)
		}
	}
	be.True(t, res.OK)
	be.Equal(t, len(res.Errors), 0)
}

// The validator must never change the module it checks.
func TestValidationDoesNotMutate(t *testing.T) {
	mod := loweredModule(t, sampleProgram()...)
	before, err := ir.EncodeModule(mod)
	be.Err(t, err, nil)

	Module(mod)

	after, err := ir.EncodeModule(mod)
	be.Err(t, err, nil)
	be.Equal(t, string(after), string(before))
}

func TestDanglingChildRef(t *testing.T) {
	mod := loweredModule(t, sampleProgram()...)
	// point a statement at a node id that was never allocated
	for _, id := range mod.SortedNodeIDs() {
		if es, ok := mod.Nodes[id].(*ir.ExprStmt); ok {
			es.X = ir.NodeID(999999)
		}
	}
	res := Module(mod)
	be.True(t, !res.OK)
	be.True(t, hasProblem(res, diagnostics.ErrDanglingRef))
}

func TestUnknownKindRejected(t *testing.T) {
	be.True(t, !ir.Kind(250).Known())
}

func TestUnboundIdentifier(t *testing.T) {
	mod := loweredModule(t, sampleProgram()...)
	for _, id := range mod.SortedNodeIDs() {
		if n, ok := mod.Nodes[id].(*ir.Ident); ok && n.Name == "x" {
			n.Binding = ir.NoNodeID
			n.Global = false
		}
	}
	res := Module(mod)
	be.True(t, !res.OK)
	be.True(t, hasProblem(res, diagnostics.ErrUnboundReference))
}

func TestBindingMustPointAtDeclaration(t *testing.T) {
	mod := loweredModule(t, sampleProgram()...)
	var litID ir.NodeID
	for _, id := range mod.SortedNodeIDs() {
		if _, ok := mod.Nodes[id].(*ir.Literal); ok {
			litID = id
		}
	}
	for _, id := range mod.SortedNodeIDs() {
		if n, ok := mod.Nodes[id].(*ir.Ident); ok && n.Name == "x" {
			n.Binding = litID
		}
	}
	res := Module(mod)
	be.True(t, !res.OK)
	be.True(t, hasProblem(res, diagnostics.ErrUnboundReference))
}

func TestFunctionWithoutGraph(t *testing.T) {
	mod := loweredModule(t, sampleProgram()...)
	for _, fnID := range mod.Functions() {
		delete(mod.CFGs, fnID)
	}
	res := Module(mod)
	be.True(t, !res.OK)
	be.True(t, hasProblem(res, diagnostics.ErrMissingEntry))
}

func TestGraphEdgeMustResolve(t *testing.T) {
	mod := loweredModule(t, sampleProgram()...)
	graph := mod.CFGs[ir.NoNodeID]
	entry := graph.Blocks[graph.Entry]
	entry.Succs = append(entry.Succs, ir.BlockID(777))
	res := Module(mod)
	be.True(t, !res.OK)
	be.True(t, hasProblem(res, diagnostics.ErrDanglingCFGEdge))
}

func TestEmptyOpRejected(t *testing.T) {
	mod := loweredModule(t, &ast.ExprStmt{X: &ast.BinaryExpr{
		Op: "+",
		X:  &ast.Literal{Kind: ast.LitNumber, Value: "1"},
		Y:  &ast.Literal{Kind: ast.LitNumber, Value: "2"},
	}})
	for _, id := range mod.SortedNodeIDs() {
		if n, ok := mod.Nodes[id].(*ir.Binary); ok {
			n.Op = ""
		}
	}
	res := Module(mod)
	be.True(t, !res.OK)
	be.True(t, hasProblem(res, diagnostics.ErrSchemaShape))
}

func TestReportFillsBag(t *testing.T) {
	mod := loweredModule(t, sampleProgram()...)
	for _, fnID := range mod.Functions() {
		delete(mod.CFGs, fnID)
	}
	res := Module(mod)
	bag := diagnostics.NewBag()
	Report(res, bag)
	be.True(t, bag.HasErrors())
}

func TestThrowingTryBlockValidates(t *testing.T) {
	mod := loweredModule(t, &ast.TryStmt{
		Block: &ast.Block{Body: []ast.Statement{
			&ast.ThrowStmt{Arg: &ast.Literal{Kind: ast.LitString, Value: "boom"}},
		}},
		CatchParam: &ast.Identifier{Name: "e"},
		Handler:    &ast.Block{},
	})
	r := Module(mod)
	be.True(t, r.OK)
	be.True(t, !hasProblem(r, diagnostics.ErrManyTerminators))
}
