package lower

import (
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/diagnostics"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/frontend/ast"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/ir"
)

func litKind(k ast.LitKind) ir.LitKind {
	switch k {
	case ast.LitNumber:
		return ir.LitNumber
	case ast.LitString:
		return ir.LitString
	case ast.LitBool:
		return ir.LitBool
	case ast.LitNull:
		return ir.LitNull
	default:
		return ir.LitUndefined
	}
}

func (l *Lowerer) lowerExpr(e ast.Expression) ir.NodeID {
	switch n := e.(type) {
	case *ast.Identifier:
		return l.identRef(n.Name, n.Span)

	case *ast.Literal:
		return l.add(&ir.Literal{NID: l.mod.NewID(), Lit: litKind(n.Kind), Value: n.Value, Src: n.Span})

	case *ast.TemplateLit:
		exprs := make([]ir.NodeID, 0, len(n.Exprs))
		for _, x := range n.Exprs {
			exprs = append(exprs, l.lowerExpr(x))
		}
		return l.add(&ir.Template{
			NID:    l.mod.NewID(),
			Quasis: append([]string(nil), n.Quasis...),
			Exprs:  exprs,
			Src:    n.Span,
		})

	case *ast.BinaryExpr:
		x := l.lowerExpr(n.X)
		y := l.lowerExpr(n.Y)
		return l.add(&ir.Binary{NID: l.mod.NewID(), Op: n.Op, X: x, Y: y, Src: n.Span})

	case *ast.LogicalExpr:
		x := l.lowerExpr(n.X)
		y := l.lowerExpr(n.Y)
		return l.add(&ir.Logical{NID: l.mod.NewID(), Op: n.Op, X: x, Y: y, Src: n.Span})

	case *ast.UnaryExpr:
		x := l.lowerExpr(n.X)
		return l.add(&ir.Unary{NID: l.mod.NewID(), Op: n.Op, X: x, Src: n.Span})

	case *ast.CondExpr:
		test := l.lowerExpr(n.Test)
		then := l.lowerExpr(n.Then)
		els := l.lowerExpr(n.Else)
		return l.add(&ir.Cond{NID: l.mod.NewID(), Test: test, Then: then, Else: els, Src: n.Span})

	case *ast.CallExpr:
		callee := l.lowerExpr(n.Callee)
		args := l.lowerArgs(n.Args)
		return l.add(&ir.Call{NID: l.mod.NewID(), Callee: callee, Args: args, Src: n.Span})

	case *ast.NewExpr:
		callee := l.lowerExpr(n.Callee)
		args := l.lowerArgs(n.Args)
		return l.add(&ir.New{NID: l.mod.NewID(), Callee: callee, Args: args, Src: n.Span})

	case *ast.MemberExpr:
		x := l.lowerExpr(n.X)
		return l.add(&ir.Member{NID: l.mod.NewID(), X: x, Name: n.Name, Src: n.Span})

	case *ast.IndexExpr:
		x := l.lowerExpr(n.X)
		key := l.lowerExpr(n.Key)
		return l.add(&ir.Index{NID: l.mod.NewID(), X: x, Key: key, Src: n.Span})

	case *ast.ArrayLit:
		elems := make([]ir.NodeID, 0, len(n.Elements))
		for _, el := range n.Elements {
			if el == nil {
				// holes surface as explicit undefined so backends
				// never see gaps
				elems = append(elems, l.add(&ir.Literal{NID: l.mod.NewID(), Lit: ir.LitUndefined, Src: n.Span}))
				continue
			}
			elems = append(elems, l.lowerArg(el))
		}
		return l.add(&ir.ArrayLit{NID: l.mod.NewID(), Elems: elems, Src: n.Span})

	case *ast.ObjectLit:
		props := make([]ir.NodeID, 0, len(n.Props))
		for _, p := range n.Props {
			var computed ir.NodeID
			if p.Computed != nil {
				computed = l.lowerExpr(p.Computed)
			}
			val := l.lowerExpr(p.Value)
			props = append(props, l.add(&ir.Property{
				NID:      l.mod.NewID(),
				Key:      p.Key,
				Computed: computed,
				Value:    val,
				Src:      p.Span,
			}))
		}
		return l.add(&ir.ObjectLit{NID: l.mod.NewID(), Props: props, Src: n.Span})

	case *ast.SpreadExpr:
		// spreads are consumed by call/array lowering; a bare one has
		// no meaning
		l.fail(diagnostics.ErrUnsupportedConstruct, "spread outside call or array literal", "SpreadExpr", n.Span)
		return ir.NoNodeID

	case *ast.FuncLit:
		return l.lowerFuncLit(n)

	case *ast.AwaitExpr:
		x := l.lowerExpr(n.X)
		return l.add(&ir.Await{NID: l.mod.NewID(), X: x, Src: n.Span})

	case *ast.YieldExpr:
		var x ir.NodeID
		if n.X != nil {
			x = l.lowerExpr(n.X)
		}
		return l.add(&ir.Yield{NID: l.mod.NewID(), X: x, Delegate: n.Delegate, Src: n.Span})

	case *ast.AssignExpr:
		l.fail(diagnostics.ErrUnsupportedConstruct, "assignment used as an expression", "AssignExpr", n.Span)
		return ir.NoNodeID

	default:
		l.unsupported(e)
		return ir.NoNodeID
	}
}

// lowerArg lowers one call/array operand, keeping spreads structural.
func (l *Lowerer) lowerArg(e ast.Expression) ir.NodeID {
	if sp, ok := e.(*ast.SpreadExpr); ok {
		x := l.lowerExpr(sp.X)
		return l.add(&ir.Spread{NID: l.mod.NewID(), X: x, Src: sp.Span})
	}
	return l.lowerExpr(e)
}

func (l *Lowerer) lowerArgs(args []ast.Expression) []ir.NodeID {
	out := make([]ir.NodeID, 0, len(args))
	for _, a := range args {
		out = append(out, l.lowerArg(a))
	}
	return out
}
