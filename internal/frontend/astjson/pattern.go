package astjson

import (
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/frontend/ast"
)

// decodeTarget reads a binding or assignment target: an identifier, a
// member/index expression, a destructuring pattern, a default, or a
// rest element.
func decodeTarget(n rawNode, path string) (ast.Node, error) {
	t, err := nodeType(n)
	if err != nil {
		return nil, errf(path, "%v", err)
	}
	span := decodeSpan(n)
	switch t {
	case "ArrayPattern":
		list, at, err := children(n, "elements", path)
		if err != nil {
			return nil, err
		}
		elems := make([]ast.Node, 0, len(list))
		for i, raw := range list {
			if raw == nil {
				elems = append(elems, nil) // hole
				continue
			}
			e, err := decodeTarget(raw, index(at, i))
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
		}
		return &ast.ArrayPattern{Elements: elems, Span: span}, nil

	case "ObjectPattern":
		list, at, err := children(n, "props", path)
		if err != nil {
			return nil, err
		}
		props := make([]ast.PatternProp, 0, len(list))
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
			value, err := decodeTargetField(raw, "value", pat)
			if err != nil {
				return nil, err
			}
			if key == "" && computed == nil {
				if _, isRest := value.(*ast.RestElement); !isRest {
					return nil, errf(pat, "pattern property needs a key or a computed key")
				}
			}
			props = append(props, ast.PatternProp{Key: key, Computed: computed, Value: value, Span: decodeSpan(raw)})
		}
		return &ast.ObjectPattern{Props: props, Span: span}, nil

	case "AssignPattern":
		target, err := decodeTargetField(n, "target", path)
		if err != nil {
			return nil, err
		}
		def, err := decodeExprField(n, "default", path, true)
		if err != nil {
			return nil, err
		}
		return &ast.AssignPattern{Target: target, Default: def, Span: span}, nil

	case "RestElement":
		target, err := decodeTargetField(n, "target", path)
		if err != nil {
			return nil, err
		}
		return &ast.RestElement{Target: target, Span: span}, nil
	}
	// Anything else must be a plain expression target.
	return decodeExpr(n, path)
}

func decodeTargetField(n rawNode, field, path string) (ast.Node, error) {
	c, at, err := child(n, field, path)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, errf(join(path, field), "missing required node")
	}
	return decodeTarget(c, at)
}

func decodeTargetOptional(n rawNode, field, path string) (ast.Node, error) {
	c, at, err := child(n, field, path)
	if err != nil || c == nil {
		return nil, err
	}
	return decodeTarget(c, at)
}
