package lower

import (
	"fmt"

	"github.com/ssdajoker/LUASCRIPT-sub000/internal/diagnostics"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/frontend/ast"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/ir"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/source"
)

// lowerFuncDecl lowers a hoisted function declaration. id was
// allocated (and the name bound) during the hoisting scan.
func (l *Lowerer) lowerFuncDecl(d *ast.FuncDecl, id ir.NodeID) ir.NodeID {
	params, body := l.lowerFuncParts(d.Fn, id)
	return l.add(&ir.FuncDecl{
		NID:       id,
		Name:      d.Name,
		Params:    params,
		Body:      body,
		Async:     d.Fn.Async,
		Generator: d.Fn.Generator,
		Src:       d.Span,
	})
}

// lowerFuncLit lowers a function expression. A named literal binds its
// own name inside the function scope for recursion.
func (l *Lowerer) lowerFuncLit(fn *ast.FuncLit) ir.NodeID {
	id := l.mod.NewID()
	params, body := l.lowerFuncParts(fn, id)
	return l.add(&ir.FuncLit{
		NID:       id,
		Name:      fn.Name,
		Params:    params,
		Body:      body,
		Async:     fn.Async,
		Generator: fn.Generator,
		Src:       fn.Span,
	})
}

// lowerFuncParts lowers a function's parameter list and body inside a
// fresh scope. selfID is the id of the function node under
// construction; names bound to it (the function's own name, "this")
// resolve against it.
func (l *Lowerer) lowerFuncParts(fn *ast.FuncLit, selfID ir.NodeID) (params []ir.NodeID, body ir.NodeID) {
	// break/continue/labels never cross a function boundary
	savedLabels, savedLoop, savedSwitch := l.labels, l.loopDepth, l.switchDepth
	l.labels, l.loopDepth, l.switchDepth = nil, 0, 0
	defer func() {
		l.labels, l.loopDepth, l.switchDepth = savedLabels, savedLoop, savedSwitch
	}()

	l.scopes.push()
	defer l.scopes.pop()

	if fn.Name != "" {
		l.scopes.bind(fn.Name, selfID)
	}
	if !fn.Arrow {
		// arrows resolve this lexically, so only plain functions
		// introduce the binding
		l.scopes.bind("this", selfID)
	}

	var prologue []ir.NodeID
	for i, p := range fn.Params {
		switch pt := p.(type) {
		case *ast.Identifier:
			params = append(params, l.declareParam(pt.Name, false, ir.NoNodeID, pt.Span))

		case *ast.AssignPattern:
			// defaults may reference earlier parameters, so they are
			// lowered after those bindings exist
			dflt := l.lowerExpr(pt.Default)
			if ident, ok := pt.Target.(*ast.Identifier); ok {
				params = append(params, l.declareParam(ident.Name, false, dflt, ident.Span))
				continue
			}
			tmp := l.freshTmp("p")
			params = append(params, l.declareParam(tmp, false, dflt, pt.Span))
			prologue = append(prologue, l.expandPattern(pt.Target, l.refTo(tmp), ir.BindLet)...)

		case *ast.RestElement:
			if i != len(fn.Params)-1 {
				l.failWith(diagnostics.RestNotLast(pt.Span), "RestElement", pt.Span)
			}
			if ident, ok := pt.Target.(*ast.Identifier); ok {
				params = append(params, l.declareParam(ident.Name, true, ir.NoNodeID, ident.Span))
				continue
			}
			tmp := l.freshTmp("p")
			params = append(params, l.declareParam(tmp, true, ir.NoNodeID, pt.Span))
			prologue = append(prologue, l.expandPattern(pt.Target, l.refTo(tmp), ir.BindLet)...)

		case *ast.ArrayPattern, *ast.ObjectPattern:
			tmp := l.freshTmp("p")
			params = append(params, l.declareParam(tmp, false, ir.NoNodeID, pt.Loc()))
			prologue = append(prologue, l.expandPattern(pt, l.refTo(tmp), ir.BindLet)...)

		default:
			l.fail(diagnostics.ErrInvalidPattern,
				fmt.Sprintf("invalid parameter %T", p), fmt.Sprintf("%T", p), p.Loc())
		}
	}

	stmts := l.lowerStmts(fn.Body.Body)
	body = l.add(&ir.Block{
		NID:   l.mod.NewID(),
		Stmts: append(prologue, stmts...),
		Src:   fn.Body.Span,
	})
	return params, body
}

func (l *Lowerer) declareParam(name string, rest bool, dflt ir.NodeID, span source.Span) ir.NodeID {
	id := l.mod.NewID()
	l.mod.Add(&ir.Param{NID: id, Name: name, Rest: rest, Default: dflt, Src: span})
	l.scopes.bind(name, id)
	return id
}

func (l *Lowerer) refTo(name string) refFn {
	return func(span source.Span) ir.NodeID { return l.identRef(name, span) }
}

// lowerClassDecl lowers a class to a TypeDecl holding its instance and
// static methods. The superclass is carried by name and resolved by
// the backend.
func (l *Lowerer) lowerClassDecl(d *ast.ClassDecl, id ir.NodeID) ir.NodeID {
	var superName string
	switch sc := d.SuperClass.(type) {
	case nil:
	case *ast.Identifier:
		superName = sc.Name
		l.scopes.resolve(sc.Name) // record unresolved bases as global captures
	default:
		l.fail(diagnostics.ErrUnsupportedConstruct,
			"superclass must be a simple name", fmt.Sprintf("%T", sc), d.Span)
	}

	var methods, statics []ir.NodeID
	for _, m := range d.Members {
		mid := l.mod.NewID()
		params, body := l.lowerFuncParts(m.Fn, mid)
		l.mod.Add(&ir.FuncDecl{
			NID:       mid,
			Name:      m.Name,
			Params:    params,
			Body:      body,
			Async:     m.Fn.Async,
			Generator: m.Fn.Generator,
			Src:       m.Span,
		})
		if m.Static {
			statics = append(statics, mid)
		} else {
			methods = append(methods, mid)
		}
	}

	return l.add(&ir.TypeDecl{
		NID:       id,
		Name:      d.Name,
		SuperName: superName,
		Methods:   methods,
		Statics:   statics,
		Src:       d.Span,
	})
}
