package astjson

import (
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/frontend/ast"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/source"
)

func decodeStmts(n rawNode, field, path string) ([]ast.Statement, error) {
	list, at, err := children(n, field, path)
	if err != nil {
		return nil, err
	}
	out := make([]ast.Statement, 0, len(list))
	for i, raw := range list {
		s, err := decodeStmt(raw, index(at, i))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func decodeStmt(n rawNode, path string) (ast.Statement, error) {
	t, err := nodeType(n)
	if err != nil {
		return nil, errf(path, "%v", err)
	}
	span := decodeSpan(n)
	switch t {
	case "VarDecl":
		kind, err := declKind(n, path)
		if err != nil {
			return nil, err
		}
		list, at, err := children(n, "decls", path)
		if err != nil {
			return nil, err
		}
		if len(list) == 0 {
			return nil, errf(at, "declaration needs at least one declarator")
		}
		decls := make([]ast.Declarator, 0, len(list))
		for i, raw := range list {
			d, err := decodeDeclarator(raw, index(at, i))
			if err != nil {
				return nil, err
			}
			decls = append(decls, d)
		}
		return &ast.VarDecl{Kind: kind, Decls: decls, Span: span}, nil

	case "FuncDecl":
		name, err := strField(n, "name", path)
		if err != nil {
			return nil, err
		}
		if name == "" {
			return nil, errf(path, "function declaration needs a name")
		}
		fn, err := decodeFuncParts(n, name, path)
		if err != nil {
			return nil, err
		}
		return &ast.FuncDecl{Name: name, Fn: fn, Span: span}, nil

	case "ClassDecl":
		return decodeClassDecl(n, span, path)

	case "Block":
		body, err := decodeStmts(n, "body", path)
		if err != nil {
			return nil, err
		}
		return &ast.Block{Body: body, Span: span}, nil

	case "ExprStmt":
		x, err := decodeExprField(n, "x", path, true)
		if err != nil {
			return nil, err
		}
		return &ast.ExprStmt{X: x, Span: span}, nil

	case "IfStmt":
		test, err := decodeExprField(n, "test", path, true)
		if err != nil {
			return nil, err
		}
		then, err := decodeStmtField(n, "then", path, true)
		if err != nil {
			return nil, err
		}
		els, err := decodeStmtField(n, "else", path, false)
		if err != nil {
			return nil, err
		}
		return &ast.IfStmt{Test: test, Then: then, Else: els, Span: span}, nil

	case "WhileStmt":
		test, err := decodeExprField(n, "test", path, true)
		if err != nil {
			return nil, err
		}
		body, err := decodeStmtField(n, "body", path, true)
		if err != nil {
			return nil, err
		}
		return &ast.WhileStmt{Test: test, Body: body, Span: span}, nil

	case "ForStmt":
		init, err := decodeStmtField(n, "init", path, false)
		if err != nil {
			return nil, err
		}
		test, err := decodeExprField(n, "test", path, false)
		if err != nil {
			return nil, err
		}
		post, err := decodeExprField(n, "post", path, false)
		if err != nil {
			return nil, err
		}
		body, err := decodeStmtField(n, "body", path, true)
		if err != nil {
			return nil, err
		}
		return &ast.ForStmt{Init: init, Test: test, Post: post, Body: body, Span: span}, nil

	case "ForOfStmt", "ForInStmt":
		kind, err := declKind(n, path)
		if err != nil {
			return nil, err
		}
		target, err := decodeTargetField(n, "target", path)
		if err != nil {
			return nil, err
		}
		src, err := decodeExprField(n, "source", path, true)
		if err != nil {
			return nil, err
		}
		body, err := decodeStmtField(n, "body", path, true)
		if err != nil {
			return nil, err
		}
		if t == "ForInStmt" {
			return &ast.ForInStmt{Kind: kind, Target: target, Source: src, Body: body, Span: span}, nil
		}
		return &ast.ForOfStmt{Kind: kind, Target: target, Source: src, Body: body, Span: span}, nil

	case "SwitchStmt":
		disc, err := decodeExprField(n, "disc", path, true)
		if err != nil {
			return nil, err
		}
		list, at, err := children(n, "cases", path)
		if err != nil {
			return nil, err
		}
		cases := make([]ast.SwitchCase, 0, len(list))
		for i, raw := range list {
			cat := index(at, i)
			test, err := decodeExprField(raw, "test", cat, false)
			if err != nil {
				return nil, err
			}
			body, err := decodeStmts(raw, "body", cat)
			if err != nil {
				return nil, err
			}
			cases = append(cases, ast.SwitchCase{Test: test, Body: body, Span: decodeSpan(raw)})
		}
		return &ast.SwitchStmt{Disc: disc, Cases: cases, Span: span}, nil

	case "TryStmt":
		block, err := decodeBlockField(n, "block", path, true)
		if err != nil {
			return nil, err
		}
		param, err := decodeTargetOptional(n, "catchParam", path)
		if err != nil {
			return nil, err
		}
		handler, err := decodeBlockField(n, "handler", path, false)
		if err != nil {
			return nil, err
		}
		finalizer, err := decodeBlockField(n, "finalizer", path, false)
		if err != nil {
			return nil, err
		}
		if handler == nil && finalizer == nil {
			return nil, errf(path, "try needs a handler or a finalizer")
		}
		return &ast.TryStmt{Block: block, CatchParam: param, Handler: handler, Finalizer: finalizer, Span: span}, nil

	case "LabeledStmt":
		label, err := strField(n, "label", path)
		if err != nil {
			return nil, err
		}
		if label == "" {
			return nil, errf(path, "labeled statement needs a label")
		}
		body, err := decodeStmtField(n, "body", path, true)
		if err != nil {
			return nil, err
		}
		return &ast.LabeledStmt{Label: label, Body: body, Span: span}, nil

	case "BreakStmt":
		label, err := strField(n, "label", path)
		if err != nil {
			return nil, err
		}
		return &ast.BreakStmt{Label: label, Span: span}, nil

	case "ContinueStmt":
		label, err := strField(n, "label", path)
		if err != nil {
			return nil, err
		}
		return &ast.ContinueStmt{Label: label, Span: span}, nil

	case "ReturnStmt":
		arg, err := decodeExprField(n, "arg", path, false)
		if err != nil {
			return nil, err
		}
		return &ast.ReturnStmt{Arg: arg, Span: span}, nil

	case "ThrowStmt":
		arg, err := decodeExprField(n, "arg", path, true)
		if err != nil {
			return nil, err
		}
		return &ast.ThrowStmt{Arg: arg, Span: span}, nil
	}
	return nil, errf(path, "unknown statement type %q", t)
}

func decodeStmtField(n rawNode, field, path string, required bool) (ast.Statement, error) {
	c, at, err := child(n, field, path)
	if err != nil {
		return nil, err
	}
	if c == nil {
		if required {
			return nil, errf(join(path, field), "missing required node")
		}
		return nil, nil
	}
	return decodeStmt(c, at)
}

func decodeBlockField(n rawNode, field, path string, required bool) (*ast.Block, error) {
	s, err := decodeStmtField(n, field, path, required)
	if err != nil || s == nil {
		return nil, err
	}
	b, ok := s.(*ast.Block)
	if !ok {
		return nil, errf(join(path, field), "expected Block")
	}
	return b, nil
}

func decodeDeclarator(n rawNode, path string) (ast.Declarator, error) {
	target, err := decodeTargetField(n, "target", path)
	if err != nil {
		return ast.Declarator{}, err
	}
	init, err := decodeExprField(n, "init", path, false)
	if err != nil {
		return ast.Declarator{}, err
	}
	return ast.Declarator{Target: target, Init: init, Span: decodeSpan(n)}, nil
}

func decodeClassDecl(n rawNode, span source.Span, path string) (ast.Statement, error) {
	name, err := strField(n, "name", path)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, errf(path, "class declaration needs a name")
	}
	super, err := decodeExprField(n, "superClass", path, false)
	if err != nil {
		return nil, err
	}
	list, at, err := children(n, "members", path)
	if err != nil {
		return nil, err
	}
	members := make([]ast.ClassMember, 0, len(list))
	for i, raw := range list {
		mat := index(at, i)
		mname, err := strField(raw, "name", mat)
		if err != nil {
			return nil, err
		}
		if mname == "" {
			return nil, errf(mat, "class member needs a name")
		}
		static, err := boolField(raw, "static", mat)
		if err != nil {
			return nil, err
		}
		fn, err := decodeFuncParts(raw, mname, mat)
		if err != nil {
			return nil, err
		}
		members = append(members, ast.ClassMember{Name: mname, Static: static, Fn: fn, Span: decodeSpan(raw)})
	}
	return &ast.ClassDecl{Name: name, SuperClass: super, Members: members, Span: span}, nil
}

// decodeFuncParts reads the params/body/flags shared by declarations,
// class members, and function literals.
func decodeFuncParts(n rawNode, name, path string) (*ast.FuncLit, error) {
	list, at, err := children(n, "params", path)
	if err != nil {
		return nil, err
	}
	params := make([]ast.Node, 0, len(list))
	for i, raw := range list {
		p, err := decodeTarget(raw, index(at, i))
		if err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	body, err := decodeBlockField(n, "body", path, true)
	if err != nil {
		return nil, err
	}
	async, err := boolField(n, "async", path)
	if err != nil {
		return nil, err
	}
	generator, err := boolField(n, "generator", path)
	if err != nil {
		return nil, err
	}
	arrow, err := boolField(n, "arrow", path)
	if err != nil {
		return nil, err
	}
	return &ast.FuncLit{
		Name:      name,
		Params:    params,
		Body:      body,
		Async:     async,
		Generator: generator,
		Arrow:     arrow,
		Span:      decodeSpan(n),
	}, nil
}
