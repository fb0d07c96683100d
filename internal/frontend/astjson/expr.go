package astjson

import (
	"encoding/json"

	"github.com/ssdajoker/LUASCRIPT-sub000/internal/frontend/ast"
)

func decodeExprField(n rawNode, field, path string, required bool) (ast.Expression, error) {
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
	return decodeExpr(c, at)
}

func decodeExprs(n rawNode, field, path string) ([]ast.Expression, error) {
	list, at, err := children(n, field, path)
	if err != nil {
		return nil, err
	}
	out := make([]ast.Expression, 0, len(list))
	for i, raw := range list {
		e, err := decodeExpr(raw, index(at, i))
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func decodeExpr(n rawNode, path string) (ast.Expression, error) {
	t, err := nodeType(n)
	if err != nil {
		return nil, errf(path, "%v", err)
	}
	span := decodeSpan(n)
	switch t {
	case "Identifier":
		name, err := strField(n, "name", path)
		if err != nil {
			return nil, err
		}
		if name == "" {
			return nil, errf(path, "identifier needs a name")
		}
		return &ast.Identifier{Name: name, Span: span}, nil

	case "Literal":
		kindName, err := strField(n, "kind", path)
		if err != nil {
			return nil, err
		}
		var kind ast.LitKind
		switch kindName {
		case "number":
			kind = ast.LitNumber
		case "string":
			kind = ast.LitString
		case "bool":
			kind = ast.LitBool
		case "null":
			kind = ast.LitNull
		case "undefined":
			kind = ast.LitUndefined
		default:
			return nil, errf(join(path, "kind"), "unknown literal kind %q", kindName)
		}
		value, err := strField(n, "value", path)
		if err != nil {
			return nil, err
		}
		return &ast.Literal{Kind: kind, Value: value, Span: span}, nil

	case "TemplateLit":
		var quasis []string
		if raw, ok := n["quasis"]; ok {
			if err := json.Unmarshal(raw, &quasis); err != nil {
				return nil, errf(join(path, "quasis"), "%v", err)
			}
		}
		exprs, err := decodeExprs(n, "exprs", path)
		if err != nil {
			return nil, err
		}
		if len(quasis) != len(exprs)+1 {
			return nil, errf(path, "template needs %d quasis for %d expressions, got %d",
				len(exprs)+1, len(exprs), len(quasis))
		}
		return &ast.TemplateLit{Quasis: quasis, Exprs: exprs, Span: span}, nil

	case "BinaryExpr", "LogicalExpr":
		op, err := strField(n, "op", path)
		if err != nil {
			return nil, err
		}
		if op == "" {
			return nil, errf(path, "%s needs an operator", t)
		}
		x, err := decodeExprField(n, "x", path, true)
		if err != nil {
			return nil, err
		}
		y, err := decodeExprField(n, "y", path, true)
		if err != nil {
			return nil, err
		}
		if t == "LogicalExpr" {
			return &ast.LogicalExpr{Op: op, X: x, Y: y, Span: span}, nil
		}
		return &ast.BinaryExpr{Op: op, X: x, Y: y, Span: span}, nil

	case "UnaryExpr":
		op, err := strField(n, "op", path)
		if err != nil {
			return nil, err
		}
		if op == "" {
			return nil, errf(path, "unary expression needs an operator")
		}
		x, err := decodeExprField(n, "x", path, true)
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: op, X: x, Span: span}, nil

	case "AssignExpr":
		op, err := strField(n, "op", path)
		if err != nil {
			return nil, err
		}
		if op == "" {
			op = "="
		}
		target, err := decodeTargetField(n, "target", path)
		if err != nil {
			return nil, err
		}
		value, err := decodeExprField(n, "value", path, true)
		if err != nil {
			return nil, err
		}
		return &ast.AssignExpr{Op: op, Target: target, Value: value, Span: span}, nil

	case "CondExpr":
		test, err := decodeExprField(n, "test", path, true)
		if err != nil {
			return nil, err
		}
		then, err := decodeExprField(n, "then", path, true)
		if err != nil {
			return nil, err
		}
		els, err := decodeExprField(n, "else", path, true)
		if err != nil {
			return nil, err
		}
		return &ast.CondExpr{Test: test, Then: then, Else: els, Span: span}, nil

	case "CallExpr", "NewExpr":
		callee, err := decodeExprField(n, "callee", path, true)
		if err != nil {
			return nil, err
		}
		args, err := decodeExprs(n, "args", path)
		if err != nil {
			return nil, err
		}
		if t == "NewExpr" {
			return &ast.NewExpr{Callee: callee, Args: args, Span: span}, nil
		}
		return &ast.CallExpr{Callee: callee, Args: args, Span: span}, nil

	case "MemberExpr":
		x, err := decodeExprField(n, "x", path, true)
		if err != nil {
			return nil, err
		}
		name, err := strField(n, "name", path)
		if err != nil {
			return nil, err
		}
		if name == "" {
			return nil, errf(path, "member access needs a property name")
		}
		return &ast.MemberExpr{X: x, Name: name, Span: span}, nil

	case "IndexExpr":
		x, err := decodeExprField(n, "x", path, true)
		if err != nil {
			return nil, err
		}
		key, err := decodeExprField(n, "key", path, true)
		if err != nil {
			return nil, err
		}
		return &ast.IndexExpr{X: x, Key: key, Span: span}, nil

	case "ArrayLit":
		list, at, err := children(n, "elements", path)
		if err != nil {
			return nil, err
		}
		elems := make([]ast.Expression, 0, len(list))
		for i, raw := range list {
			if raw == nil {
				elems = append(elems, nil) // elision
				continue
			}
			e, err := decodeExpr(raw, index(at, i))
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
		}
		return &ast.ArrayLit{Elements: elems, Span: span}, nil

	case "ObjectLit":
		list, at, err := children(n, "props", path)
		if err != nil {
			return nil, err
		}
		props := make([]ast.ObjectProp, 0, len(list))
		for i, raw := range list {
			pat := index(at, i)
			key, err := strField(raw, "key", pat)
			if err != nil {
				return nil, err
			}
			computed, err := decodeExprField(raw, "computed", pat, false)
			if err != nil {
				return nil, err
			}
			if key == "" && computed == nil {
				return nil, errf(pat, "property needs a key or a computed key")
			}
			value, err := decodeExprField(raw, "value", pat, true)
			if err != nil {
				return nil, err
			}
			props = append(props, ast.ObjectProp{Key: key, Computed: computed, Value: value, Span: decodeSpan(raw)})
		}
		return &ast.ObjectLit{Props: props, Span: span}, nil

	case "SpreadExpr":
		x, err := decodeExprField(n, "x", path, true)
		if err != nil {
			return nil, err
		}
		return &ast.SpreadExpr{X: x, Span: span}, nil

	case "FuncLit":
		name, err := strField(n, "name", path)
		if err != nil {
			return nil, err
		}
		return decodeFuncParts(n, name, path)

	case "AwaitExpr":
		x, err := decodeExprField(n, "x", path, true)
		if err != nil {
			return nil, err
		}
		return &ast.AwaitExpr{X: x, Span: span}, nil

	case "YieldExpr":
		x, err := decodeExprField(n, "x", path, false)
		if err != nil {
			return nil, err
		}
		delegate, err := boolField(n, "delegate", path)
		if err != nil {
			return nil, err
		}
		return &ast.YieldExpr{X: x, Delegate: delegate, Span: span}, nil
	}
	return nil, errf(path, "unknown expression type %q", t)
}
