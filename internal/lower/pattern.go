package lower

import (
	"fmt"

	"github.com/ssdajoker/LUASCRIPT-sub000/internal/diagnostics"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/frontend/ast"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/ir"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/source"
)

// refFn produces a fresh reference to an already-materialized value.
// Every expansion branch calls it exactly once, so a one-shot closure
// over an unstored expression id is a valid ref.
type refFn func(span source.Span) ir.NodeID

// patMode distinguishes declaration expansion (fresh bindings) from
// assignment expansion (stores into existing targets). Temporaries are
// declared either way.
type patMode struct {
	declare bool
	bind    ir.BindKind
}

func once(id ir.NodeID) refFn {
	return func(source.Span) ir.NodeID { return id }
}

// expandPattern expands a destructuring target into an ordered
// declaration sequence. ref must reference the source value.
func (l *Lowerer) expandPattern(target ast.Node, ref refFn, bind ir.BindKind) []ir.NodeID {
	return l.expand(target, ref, patMode{declare: true, bind: bind})
}

func (l *Lowerer) lowerVarDecl(n *ast.VarDecl) []ir.NodeID {
	bind := bindKind(n.Kind)
	var out []ir.NodeID
	for _, d := range n.Decls {
		if ident, ok := d.Target.(*ast.Identifier); ok {
			var init ir.NodeID
			if d.Init != nil {
				init = l.lowerExpr(d.Init)
			}
			out = append(out, l.declare(ident.Name, bind, init, d.Span))
			continue
		}
		if d.Init == nil {
			l.fail(diagnostics.ErrInvalidPattern,
				"destructuring declaration requires an initializer",
				fmt.Sprintf("%T", d.Target), d.Span)
		}
		init := l.lowerExpr(d.Init)
		out = append(out, l.expand(d.Target, once(init), patMode{declare: true, bind: bind})...)
	}
	return out
}

// lowerAssign lowers an assignment statement. Pattern targets expand
// into a store sequence; compound operators are limited to simple
// targets.
func (l *Lowerer) lowerAssign(n *ast.AssignExpr) []ir.NodeID {
	switch t := n.Target.(type) {
	case *ast.Identifier:
		target := l.identRef(t.Name, t.Span)
		value := l.lowerExpr(n.Value)
		return []ir.NodeID{l.add(&ir.Assign{NID: l.mod.NewID(), Op: n.Op, Target: target, Value: value, Src: n.Span})}
	case *ast.MemberExpr:
		target := l.lowerExpr(t)
		value := l.lowerExpr(n.Value)
		return []ir.NodeID{l.add(&ir.Assign{NID: l.mod.NewID(), Op: n.Op, Target: target, Value: value, Src: n.Span})}
	case *ast.IndexExpr:
		target := l.lowerExpr(t)
		value := l.lowerExpr(n.Value)
		return []ir.NodeID{l.add(&ir.Assign{NID: l.mod.NewID(), Op: n.Op, Target: target, Value: value, Src: n.Span})}
	case *ast.ArrayPattern, *ast.ObjectPattern:
		if n.Op != "=" {
			l.fail(diagnostics.ErrInvalidAssignTarget,
				fmt.Sprintf("compound operator %q cannot target a pattern", n.Op),
				fmt.Sprintf("%T", t), n.Span)
		}
		value := l.lowerExpr(n.Value)
		return l.expand(n.Target, once(value), patMode{declare: false})
	default:
		l.fail(diagnostics.ErrInvalidAssignTarget, "invalid assignment target",
			fmt.Sprintf("%T", t), n.Span)
		return nil
	}
}

// expand recursively converts one binding target into the statements
// that realize it. Positional extraction uses dedicated Elem/RestSlice
// nodes so index bases stay out of backend code.
func (l *Lowerer) expand(target ast.Node, ref refFn, m patMode) []ir.NodeID {
	switch t := target.(type) {
	case *ast.Identifier:
		if m.declare {
			return []ir.NodeID{l.declare(t.Name, m.bind, ref(t.Span), t.Span)}
		}
		tgt := l.identRef(t.Name, t.Span)
		return []ir.NodeID{l.add(&ir.Assign{NID: l.mod.NewID(), Op: "=", Target: tgt, Value: ref(t.Span), Src: t.Span})}

	case *ast.MemberExpr:
		if m.declare {
			l.fail(diagnostics.ErrInvalidPattern, "cannot declare into a property", "MemberExpr", t.Span)
		}
		tgt := l.lowerExpr(t)
		return []ir.NodeID{l.add(&ir.Assign{NID: l.mod.NewID(), Op: "=", Target: tgt, Value: ref(t.Span), Src: t.Span})}

	case *ast.IndexExpr:
		if m.declare {
			l.fail(diagnostics.ErrInvalidPattern, "cannot declare into an index", "IndexExpr", t.Span)
		}
		tgt := l.lowerExpr(t)
		return []ir.NodeID{l.add(&ir.Assign{NID: l.mod.NewID(), Op: "=", Target: tgt, Value: ref(t.Span), Src: t.Span})}

	case *ast.AssignPattern:
		return l.expandDefault(t, ref, m)

	case *ast.ArrayPattern:
		return l.expandArray(t, ref, m)

	case *ast.ObjectPattern:
		return l.expandObject(t, ref, m)

	case *ast.RestElement:
		// rest is only legal inside array/object patterns, where the
		// enclosing expansion consumes it before recursing
		l.fail(diagnostics.ErrInvalidPattern, "rest element outside array or object pattern", "RestElement", t.Span)
		return nil

	default:
		l.fail(diagnostics.ErrInvalidPattern,
			fmt.Sprintf("invalid binding target %T", target),
			fmt.Sprintf("%T", target), target.Loc())
		return nil
	}
}

// expandDefault materializes the extracted value once, then selects
// between it and the default. Only the missing sentinel triggers the
// default; null and other falsy values pass through.
func (l *Lowerer) expandDefault(t *ast.AssignPattern, ref refFn, m patMode) []ir.NodeID {
	tmp := l.freshTmp("def")
	out := []ir.NodeID{l.declare(tmp, ir.BindConst, ref(t.Span), t.Span)}

	undef := l.add(&ir.Literal{NID: l.mod.NewID(), Lit: ir.LitUndefined, Src: t.Span})
	test := l.add(&ir.Binary{NID: l.mod.NewID(), Op: "===", X: l.identRef(tmp, t.Span), Y: undef, Src: t.Span})
	dflt := l.lowerExpr(t.Default)
	cond := l.add(&ir.Cond{NID: l.mod.NewID(), Test: test, Then: dflt, Else: l.identRef(tmp, t.Span), Src: t.Span})

	return append(out, l.expand(t.Target, once(cond), m)...)
}

func (l *Lowerer) expandArray(t *ast.ArrayPattern, ref refFn, m patMode) []ir.NodeID {
	tmp := l.freshTmp("arr")
	out := []ir.NodeID{l.declare(tmp, ir.BindConst, ref(t.Span), t.Span)}

	for i, el := range t.Elements {
		if el == nil {
			// hole, binds nothing
			continue
		}
		if rest, ok := el.(*ast.RestElement); ok {
			if i != len(t.Elements)-1 {
				l.failWith(diagnostics.RestNotLast(rest.Span), "RestElement", rest.Span)
			}
			val := l.add(&ir.RestSlice{NID: l.mod.NewID(), X: l.identRef(tmp, rest.Span), From: i, Src: rest.Span})
			out = append(out, l.expand(rest.Target, once(val), m)...)
			continue
		}
		val := l.add(&ir.Elem{NID: l.mod.NewID(), X: l.identRef(tmp, el.Loc()), Pos: i, Src: el.Loc()})
		out = append(out, l.expand(el, once(val), m)...)
	}
	return out
}

func (l *Lowerer) expandObject(t *ast.ObjectPattern, ref refFn, m patMode) []ir.NodeID {
	tmp := l.freshTmp("obj")
	out := []ir.NodeID{l.declare(tmp, ir.BindConst, ref(t.Span), t.Span)}

	var skip []string
	hasComputed := false
	for i, p := range t.Props {
		if rest, ok := p.Value.(*ast.RestElement); ok {
			if i != len(t.Props)-1 {
				l.failWith(diagnostics.RestNotLast(rest.Span), "RestElement", rest.Span)
			}
			if hasComputed {
				// Skip keys must be known statically for the rest copy
				l.fail(diagnostics.ErrInvalidPattern, "rest element cannot follow a computed key", "RestElement", rest.Span)
			}
			val := l.add(&ir.RestProps{NID: l.mod.NewID(), X: l.identRef(tmp, rest.Span), Skip: append([]string(nil), skip...), Src: rest.Span})
			out = append(out, l.expand(rest.Target, once(val), m)...)
			continue
		}

		var val ir.NodeID
		if p.Computed != nil {
			hasComputed = true
			key := l.lowerExpr(p.Computed)
			val = l.add(&ir.Index{NID: l.mod.NewID(), X: l.identRef(tmp, p.Span), Key: key, Src: p.Span})
		} else {
			skip = append(skip, p.Key)
			val = l.add(&ir.Member{NID: l.mod.NewID(), X: l.identRef(tmp, p.Span), Name: p.Key, Src: p.Span})
		}
		out = append(out, l.expand(p.Value, once(val), m)...)
	}
	return out
}
