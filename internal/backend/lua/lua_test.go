package lua

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"

	"github.com/ssdajoker/LUASCRIPT-sub000/internal/diagnostics"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/frontend/ast"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/ir"
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

func str(v string) *ast.Literal { return &ast.Literal{Kind: ast.LitString, Value: v} }

func num(v string) *ast.Literal { return &ast.Literal{Kind: ast.LitNumber, Value: v} }

func call(callee string, args ...ast.Expression) *ast.CallExpr {
	return &ast.CallExpr{Callee: ident(callee), Args: args}
}

func TestEmitIsDeterministic(t *testing.T) {
	build := func() string {
		return emit(t,
			&ast.VarDecl{Kind: ast.DeclConst, Decls: []ast.Declarator{{
				Target: &ast.ObjectPattern{Props: []ast.PatternProp{
					{Key: "a", Value: ident("a")},
					{Value: &ast.RestElement{Target: ident("more")}},
				}},
				Init: ident("o"),
			}}},
			&ast.ExprStmt{X: call("print", ident("a"))},
		)
	}
	first := build()
	for i := 0; i < 3; i++ {
		be.Equal(t, build(), first)
	}
}

func TestHelpersOnlyWhenNeeded(t *testing.T) {
	plain := emit(t, &ast.ExprStmt{X: call("print", num("1"))})
	be.True(t, !strings.Contains(plain, "__slice"))
	be.True(t, !strings.Contains(plain, "__nullish"))
	be.True(t, !strings.Contains(plain, "__BREAK"))

	sliced := emit(t, &ast.VarDecl{Kind: ast.DeclConst, Decls: []ast.Declarator{{
		Target: &ast.ArrayPattern{Elements: []ast.Node{
			&ast.RestElement{Target: ident("all")},
		}},
		Init: ident("xs"),
	}}})
	be.True(t, strings.Contains(sliced, "local function __slice"))
}

func TestNullishCoalescingShortCircuits(t *testing.T) {
	out := emit(t, &ast.ExprStmt{X: &ast.LogicalExpr{
		Op: "??",
		X:  ident("a"),
		Y:  call("fallback"),
	}})
	// the right side runs lazily, behind a closure
	be.True(t, strings.Contains(out, "__nullish(a, function() return fallback() end)"))
}

func TestReservedNamesMangled(t *testing.T) {
	out := emit(t, &ast.VarDecl{Kind: ast.DeclLet, Decls: []ast.Declarator{{
		Target: ident("end"),
		Init:   num("1"),
	}}},
		&ast.ExprStmt{X: call("print", ident("end"))},
	)
	be.True(t, strings.Contains(out, "local __end = 1"))
	be.True(t, strings.Contains(out, "print(__end)"))
	be.True(t, !strings.Contains(out, "local end"))
}

func TestClassEmission(t *testing.T) {
	out := emit(t, &ast.ClassDecl{
		Name: "Point",
		Members: []ast.ClassMember{
			{Name: "constructor", Fn: &ast.FuncLit{
				Params: []ast.Node{ident("x")},
				Body: &ast.Block{Body: []ast.Statement{
					&ast.ExprStmt{X: &ast.AssignExpr{
						Op:     "=",
						Target: &ast.MemberExpr{X: ident("this"), Name: "x"},
						Value:  ident("x"),
					}},
				}},
			}},
			{Name: "norm", Fn: &ast.FuncLit{Body: &ast.Block{Body: []ast.Statement{
				&ast.ReturnStmt{Arg: &ast.MemberExpr{X: ident("this"), Name: "x"}},
			}}}},
			{Name: "origin", Static: true, Fn: &ast.FuncLit{Body: &ast.Block{Body: []ast.Statement{
				&ast.ReturnStmt{Arg: &ast.NewExpr{Callee: ident("Point"), Args: []ast.Expression{num("0")}}},
			}}}},
		},
	})

	be.True(t, strings.Contains(out, "local Point = {}"))
	be.True(t, strings.Contains(out, "Point.__index = Point"))
	be.True(t, strings.Contains(out, "function Point.new("))
	be.True(t, strings.Contains(out, "function Point:norm("))
	be.True(t, strings.Contains(out, "function Point.origin("))
	// this becomes the method receiver
	be.True(t, strings.Contains(out, "self.x = x"))
	be.True(t, strings.Contains(out, "return self.x"))
}

func TestSubclassDelegatesToSuper(t *testing.T) {
	out := emit(t,
		&ast.ClassDecl{Name: "Base", Members: []ast.ClassMember{
			{Name: "greet", Fn: &ast.FuncLit{Body: &ast.Block{}}},
		}},
		&ast.ClassDecl{Name: "Derived", SuperClass: ident("Base"), Members: []ast.ClassMember{
			{Name: "greet", Fn: &ast.FuncLit{Body: &ast.Block{Body: []ast.Statement{
				&ast.ExprStmt{X: &ast.CallExpr{
					Callee: &ast.MemberExpr{X: ident("super"), Name: "greet"},
				}},
			}}}},
		}},
	)
	be.True(t, strings.Contains(out, "setmetatable(Derived, { __index = Base })"))
	be.True(t, strings.Contains(out, "Base.greet(self)"))
}

func TestAsyncWrapsInCoroutine(t *testing.T) {
	out := emit(t, &ast.FuncDecl{Name: "work", Fn: &ast.FuncLit{
		Async: true,
		Body: &ast.Block{Body: []ast.Statement{
			&ast.ReturnStmt{Arg: &ast.AwaitExpr{X: call("fetch")}},
		}},
	}})
	be.True(t, strings.Contains(out, "coroutine.wrap(function()"))
	// async runs immediately, so the wrapper is invoked
	be.True(t, strings.Contains(out, "end)()"))
}

func TestGeneratorHandsBackCoroutine(t *testing.T) {
	out := emit(t, &ast.FuncDecl{Name: "gen", Fn: &ast.FuncLit{
		Generator: true,
		Body: &ast.Block{Body: []ast.Statement{
			&ast.ExprStmt{X: &ast.YieldExpr{X: num("1")}},
		}},
	}})
	be.True(t, strings.Contains(out, "coroutine.wrap(function()"))
	be.True(t, strings.Contains(out, "coroutine.yield(1)"))
	be.True(t, !strings.Contains(out, "end)()"))
}

func TestTryEmitsProtectedCall(t *testing.T) {
	out := emit(t, &ast.TryStmt{
		Block: &ast.Block{Body: []ast.Statement{
			&ast.ExprStmt{X: call("risky")},
		}},
		CatchParam: ident("e"),
		Handler: &ast.Block{Body: []ast.Statement{
			&ast.ExprStmt{X: call("log", ident("e"))},
		}},
		Finalizer: &ast.Block{Body: []ast.Statement{
			&ast.ExprStmt{X: call("cleanup")},
		}},
	})
	be.True(t, strings.Contains(out, "pcall(function()"))
	be.True(t, strings.Contains(out, "cleanup()"))
	be.True(t, strings.Contains(out, "log("))
}

// A return inside try still runs the finalizer: the value travels out
// wrapped, and the epilogue unwraps it after the finally code.
func TestFinallyRunsBeforeReturn(t *testing.T) {
	out := emit(t, &ast.FuncDecl{Name: "f", Fn: &ast.FuncLit{
		Body: &ast.Block{Body: []ast.Statement{
			&ast.TryStmt{
				Block: &ast.Block{Body: []ast.Statement{
					&ast.ReturnStmt{Arg: num("1")},
				}},
				Finalizer: &ast.Block{Body: []ast.Statement{
					&ast.ExprStmt{X: call("cleanup")},
				}},
			},
		}},
	}})
	be.True(t, strings.Contains(out, "return { 1 }"))

	// the finalizer body precedes the unwrapping return
	cleanup := strings.Index(out, "cleanup()")
	unwrap := strings.Index(out, "table.unpack")
	be.True(t, cleanup >= 0)
	be.True(t, unwrap > cleanup)
}

func TestBreakInsideTryUsesSentinel(t *testing.T) {
	out := emit(t, &ast.WhileStmt{
		Test: ident("go"),
		Body: &ast.Block{Body: []ast.Statement{
			&ast.TryStmt{
				Block: &ast.Block{Body: []ast.Statement{&ast.BreakStmt{}}},
				Finalizer: &ast.Block{Body: []ast.Statement{
					&ast.ExprStmt{X: call("cleanup")},
				}},
			},
		}},
	})
	be.True(t, strings.Contains(out, "return __BREAK"))
	be.True(t, strings.Contains(out, "local __BREAK, __CONTINUE = {}, {}"))
}

func TestSwitchFallsThrough(t *testing.T) {
	out := emit(t, &ast.SwitchStmt{
		Disc: ident("x"),
		Cases: []ast.SwitchCase{
			{Test: num("1"), Body: []ast.Statement{&ast.ExprStmt{X: call("one")}}},
			{Test: num("2"), Body: []ast.Statement{
				&ast.ExprStmt{X: call("two")},
				&ast.BreakStmt{},
			}},
			{Body: []ast.Statement{&ast.ExprStmt{X: call("other")}}},
		},
	})
	// dispatch picks an index, the runner executes every later body
	be.True(t, strings.Contains(out, "repeat"))
	be.True(t, strings.Contains(out, "until true"))
	be.True(t, strings.Contains(out, "break"))
}

func TestStringConcatUsesDotDot(t *testing.T) {
	out := emit(t, &ast.ExprStmt{X: call("print", &ast.BinaryExpr{
		Op: "+",
		X:  str("a"),
		Y:  ident("b"),
	})})
	be.True(t, strings.Contains(out, `("a" .. b)`))
}

func TestTemplateInterpolation(t *testing.T) {
	out := emit(t, &ast.ExprStmt{X: call("print", &ast.TemplateLit{
		Quasis: []string{"id:", ""},
		Exprs:  []ast.Expression{ident("n")},
	})})
	be.True(t, strings.Contains(out, `"id:" .. tostring(n)`))
}

func TestLabeledBreakUsesGoto(t *testing.T) {
	out := emit(t, &ast.LabeledStmt{
		Label: "outer",
		Body: &ast.WhileStmt{
			Test: ident("a"),
			Body: &ast.Block{Body: []ast.Statement{
				&ast.WhileStmt{
					Test: ident("b"),
					Body: &ast.Block{Body: []ast.Statement{
						&ast.BreakStmt{Label: "outer"},
					}},
				},
			}},
		},
	})
	be.True(t, strings.Contains(out, "goto __break_"))
	be.True(t, strings.Contains(out, "::__break_"))
}

func TestForOfBecomesIpairs(t *testing.T) {
	out := emit(t, &ast.ForOfStmt{
		Kind:   ast.DeclConst,
		Target: ident("item"),
		Source: ident("items"),
		Body: &ast.Block{Body: []ast.Statement{
			&ast.ExprStmt{X: call("print", ident("item"))},
		}},
	})
	be.True(t, strings.Contains(out, "for _, item in ipairs(items) do"))
}

func TestUnsupportedNodeAborts(t *testing.T) {
	mod := ir.NewModule("t", 0)
	bad := &ir.Param{NID: mod.NewID(), Name: "p"}
	mod.Nodes[bad.NID] = bad
	mod.Body = []ir.NodeID{bad.NID}

	_, err := New().Emit(mod)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "lua"))
}

// A break whose loop sits inside the protected block never leaves the
// pcall closure, so it stays a plain break instead of a sentinel.
func TestBreakStaysInsideProtectedLoop(t *testing.T) {
	out := emit(t, &ast.TryStmt{
		Block: &ast.Block{Body: []ast.Statement{
			&ast.WhileStmt{
				Test: ident("go"),
				Body: &ast.Block{Body: []ast.Statement{&ast.BreakStmt{}}},
			},
		}},
		CatchParam: ident("e"),
		Handler:    &ast.Block{},
	})
	be.True(t, !strings.Contains(out, "return __BREAK"))
	be.True(t, strings.Contains(out, "break\n"))
}

// A labeled break crossing the pcall boundary carries its label in the
// sentinel, and the epilogue jumps to that loop's exit instead of
// whatever loop is innermost.
func TestLabeledBreakCrossesProtectedRegion(t *testing.T) {
	out := emit(t, &ast.LabeledStmt{
		Label: "outer",
		Body: &ast.WhileStmt{
			Test: ident("a"),
			Body: &ast.Block{Body: []ast.Statement{
				&ast.WhileStmt{
					Test: ident("b"),
					Body: &ast.Block{Body: []ast.Statement{
						&ast.TryStmt{
							Block: &ast.Block{Body: []ast.Statement{
								&ast.BreakStmt{Label: "outer"},
							}},
							Finalizer: &ast.Block{Body: []ast.Statement{
								&ast.ExprStmt{X: call("cleanup")},
							}},
						},
					}},
				},
			}},
		},
	})
	be.True(t, strings.Contains(out, `return { __BREAK, "outer" }`))
	be.True(t, strings.Contains(out, `[2] == "outer" then goto __break_2 end`))
	be.True(t, strings.Contains(out, "::__break_2::"))
	be.True(t, !strings.Contains(out, "return __BREAK\n"))
}

// A labeled continue crossing the boundary resumes the labeled loop's
// iteration from the epilogue.
func TestLabeledContinueCrossesProtectedRegion(t *testing.T) {
	out := emit(t, &ast.LabeledStmt{
		Label: "outer",
		Body: &ast.WhileStmt{
			Test: ident("a"),
			Body: &ast.Block{Body: []ast.Statement{
				&ast.WhileStmt{
					Test: ident("b"),
					Body: &ast.Block{Body: []ast.Statement{
						&ast.TryStmt{
							Block: &ast.Block{Body: []ast.Statement{
								&ast.ContinueStmt{Label: "outer"},
							}},
							CatchParam: ident("e"),
							Handler:    &ast.Block{},
						},
					}},
				},
			}},
		},
	})
	be.True(t, strings.Contains(out, `return { __CONTINUE, "outer" }`))
	be.True(t, strings.Contains(out, `[2] == "outer" then goto __continue_1 end`))
	be.True(t, strings.Contains(out, "::__continue_1::"))
}

// String literals must stay readable by a Lua 5.1 parser: control
// bytes become decimal escapes and anything else passes through as
// raw UTF-8, never \u or \x forms.
func TestStringEscapesAreLuaValid(t *testing.T) {
	out := emit(t, &ast.ExprStmt{X: call("print", str("héllo\n\x01"))})
	be.True(t, strings.Contains(out, `"héllo\n\001"`))
	be.True(t, !strings.Contains(out, `\u`))
	be.True(t, !strings.Contains(out, `\x`))
}
