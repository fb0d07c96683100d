package svm

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"

	"github.com/ssdajoker/LUASCRIPT-sub000/internal/diagnostics"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/frontend/ast"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/lower"
)

func emit(t *testing.T, stmts ...ast.Statement) string {
	t.Helper()
	bag := diagnostics.NewBag()
	mod, err := lower.Lower(&ast.Program{SourceName: "t.ls", Body: stmts}, lower.Options{
		ModuleID: "t",
		Diags:    bag,
	})
	be.Err(t, err, nil)
	out, err := New().Emit(mod)
	be.Err(t, err, nil)
	return out.Code
}

func ident(name string) *ast.Identifier { return &ast.Identifier{Name: name} }

func num(v string) *ast.Literal { return &ast.Literal{Kind: ast.LitNumber, Value: v} }

func TestListingEndsWithHalt(t *testing.T) {
	out := emit(t, &ast.ExprStmt{X: ident("x")})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	be.Equal(t, lines[len(lines)-1], "HALT")
}

func TestFunctionBrackets(t *testing.T) {
	out := emit(t, &ast.FuncDecl{Name: "f", Fn: &ast.FuncLit{
		Params: []ast.Node{ident("n")},
		Body: &ast.Block{Body: []ast.Statement{
			&ast.ReturnStmt{Arg: ident("n")},
		}},
	}})
	be.True(t, strings.Contains(out, "FUNC f (n)"))
	be.True(t, strings.Contains(out, "END_FUNC"))
	be.True(t, strings.Contains(out, "RETURN"))
}

func TestConditionalJumps(t *testing.T) {
	out := emit(t, &ast.IfStmt{
		Test: ident("c"),
		Then: &ast.Block{Body: []ast.Statement{&ast.ExprStmt{X: ident("a")}}},
		Else: &ast.Block{Body: []ast.Statement{&ast.ExprStmt{X: ident("b")}}},
	})
	be.True(t, strings.Contains(out, "JUMP_IF_FALSE L1"))
	be.True(t, strings.Contains(out, "L1:"))
	be.True(t, strings.Contains(out, "L2:"))
}

func TestLabelNumberingRestartsPerModule(t *testing.T) {
	build := func() string {
		return emit(t, &ast.WhileStmt{
			Test: ident("c"),
			Body: &ast.Block{Body: []ast.Statement{&ast.ExprStmt{X: ident("a")}}},
		})
	}
	be.Equal(t, build(), build())
}

func TestIterationProtocol(t *testing.T) {
	out := emit(t, &ast.ForOfStmt{
		Kind:   ast.DeclConst,
		Target: ident("item"),
		Source: ident("items"),
		Body:   &ast.Block{Body: []ast.Statement{&ast.ExprStmt{X: ident("item")}}},
	})
	be.True(t, strings.Contains(out, "ITER_OF"))
	be.True(t, strings.Contains(out, "ITER_NEXT"))
	be.True(t, strings.Contains(out, "STORE_NEW item"))
	be.True(t, strings.Contains(out, "ITER_END"))
}

func TestTryInstallsHandler(t *testing.T) {
	out := emit(t, &ast.TryStmt{
		Block: &ast.Block{Body: []ast.Statement{
			&ast.ExprStmt{X: &ast.CallExpr{Callee: ident("risky")}},
		}},
		CatchParam: ident("e"),
		Handler: &ast.Block{Body: []ast.Statement{
			&ast.ExprStmt{X: ident("e")},
		}},
		Finalizer: &ast.Block{Body: []ast.Statement{
			&ast.ExprStmt{X: &ast.CallExpr{Callee: ident("cleanup")}},
		}},
	})
	be.True(t, strings.Contains(out, "TRY "))
	be.True(t, strings.Contains(out, "TRY_POP"))
	be.True(t, strings.Contains(out, "STORE_NEW e"))
	be.True(t, strings.Contains(out, "FINALLY"))
	be.True(t, strings.Contains(out, "END_TRY"))
}

func TestClassMembers(t *testing.T) {
	out := emit(t, &ast.ClassDecl{
		Name: "A",
		Members: []ast.ClassMember{
			{Name: "m", Fn: &ast.FuncLit{Body: &ast.Block{}}},
			{Name: "s", Static: true, Fn: &ast.FuncLit{Body: &ast.Block{}}},
		},
	})
	be.True(t, strings.Contains(out, "CLASS A"))
	be.True(t, strings.Contains(out, "END_CLASS"))
	be.True(t, strings.Contains(out, "STATIC"))
}

func TestMemberCallUsesInvoke(t *testing.T) {
	out := emit(t, &ast.ExprStmt{X: &ast.CallExpr{
		Callee: &ast.MemberExpr{X: ident("obj"), Name: "run"},
		Args:   []ast.Expression{num("1"), num("2")},
	}})
	be.True(t, strings.Contains(out, "INVOKE run 2"))
	be.True(t, !strings.Contains(out, "CALL 2"))
}

func TestShortCircuitSkipsRightSide(t *testing.T) {
	out := emit(t, &ast.ExprStmt{X: &ast.LogicalExpr{
		Op: "&&",
		X:  ident("a"),
		Y:  ident("b"),
	}})
	be.True(t, strings.Contains(out, "JUMP_IF_FALSE"))
	be.True(t, strings.Contains(out, "POP"))
}

// A break leaving an open try must pop the armed handler and run the
// finalizer inline before its jump; the machine only unwinds on
// exceptional exits.
func TestBreakUnwindsOpenTry(t *testing.T) {
	out := emit(t, &ast.WhileStmt{
		Test: ident("go"),
		Body: &ast.Block{Body: []ast.Statement{
			&ast.TryStmt{
				Block: &ast.Block{Body: []ast.Statement{&ast.BreakStmt{}}},
				Finalizer: &ast.Block{Body: []ast.Statement{
					&ast.ExprStmt{X: &ast.CallExpr{Callee: ident("cleanup")}},
				}},
			},
		}},
	})
	// the escape path closes the region before jumping to the loop end
	be.True(t, strings.Contains(out, "TRY_POP\nFINALLY\n"))
	be.True(t, strings.Contains(out, "END_TRY\nJUMP L1\n"))
}

// A return inside a try runs the finalizer before RETURN.
func TestReturnUnwindsOpenTry(t *testing.T) {
	out := emit(t, &ast.FuncDecl{Name: "f", Fn: &ast.FuncLit{
		Body: &ast.Block{Body: []ast.Statement{
			&ast.TryStmt{
				Block: &ast.Block{Body: []ast.Statement{
					&ast.ReturnStmt{Arg: num("1")},
				}},
				Finalizer: &ast.Block{Body: []ast.Statement{
					&ast.ExprStmt{X: &ast.CallExpr{Callee: ident("cleanup")}},
				}},
			},
		}},
	}})
	be.True(t, strings.Contains(out, "TRY_POP"))
	finally := strings.Index(out, "FINALLY")
	ret := strings.Index(out, "RETURN")
	be.True(t, finally >= 0)
	be.True(t, ret > finally)
}
