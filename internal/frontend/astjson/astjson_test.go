package astjson

import (
	"errors"
	"strings"
	"testing"

	"github.com/nalgeon/be"

	"github.com/ssdajoker/LUASCRIPT-sub000/internal/frontend/ast"
)

func TestDecodeProgram(t *testing.T) {
	prog, err := DecodeBytes([]byte(`{
		"type": "Program",
		"sourceName": "demo.ls",
		"directives": ["use strict"],
		"body": [
			{
				"type": "VarDecl",
				"kind": "const",
				"decls": [
					{
						"target": {"type": "Identifier", "name": "x"},
						"init": {"type": "Literal", "kind": "number", "value": "1"}
					}
				]
			},
			{
				"type": "ExprStmt",
				"x": {
					"type": "CallExpr",
					"callee": {"type": "Identifier", "name": "print"},
					"args": [{"type": "Identifier", "name": "x"}]
				}
			}
		]
	}`))
	be.Err(t, err, nil)
	be.Equal(t, prog.SourceName, "demo.ls")
	be.Equal(t, prog.Directives, []string{"use strict"})
	be.Equal(t, len(prog.Body), 2)

	decl, ok := prog.Body[0].(*ast.VarDecl)
	be.True(t, ok)
	be.Equal(t, decl.Kind, ast.DeclConst)
	be.Equal(t, decl.Decls[0].Target.(*ast.Identifier).Name, "x")

	call := prog.Body[1].(*ast.ExprStmt).X.(*ast.CallExpr)
	be.Equal(t, call.Callee.(*ast.Identifier).Name, "print")
	be.Equal(t, len(call.Args), 1)
}

func TestDecodeSpanForms(t *testing.T) {
	// full start/end span
	prog, err := DecodeBytes([]byte(`{
		"type": "Program",
		"body": [
			{
				"type": "ExprStmt",
				"sourceSpan": {"start": {"line": 3, "column": 5, "offset": 40}, "end": {"line": 3, "column": 9, "offset": 44}},
				"x": {"type": "Identifier", "name": "a"}
			}
		]
	}`))
	be.Err(t, err, nil)
	span := prog.Body[0].Loc()
	be.Equal(t, span.Start.Line, 3)
	be.Equal(t, span.End.Offset, 44)

	// flat single-point span
	prog, err = DecodeBytes([]byte(`{
		"type": "Program",
		"body": [
			{
				"type": "ExprStmt",
				"sourceSpan": {"line": 7, "column": 1, "offset": 90},
				"x": {"type": "Identifier", "name": "a"}
			}
		]
	}`))
	be.Err(t, err, nil)
	span = prog.Body[0].Loc()
	be.Equal(t, span.Start.Line, 7)
	be.Equal(t, span.End.Line, 7)
}

func TestDecodePatterns(t *testing.T) {
	prog, err := DecodeBytes([]byte(`{
		"type": "Program",
		"body": [
			{
				"type": "VarDecl",
				"kind": "let",
				"decls": [
					{
						"target": {
							"type": "ObjectPattern",
							"props": [
								{"key": "id", "value": {"type": "Identifier", "name": "id"}},
								{
									"key": "name",
									"value": {
										"type": "AssignPattern",
										"target": {"type": "Identifier", "name": "name"},
										"default": {"type": "Literal", "kind": "string", "value": "anon"}
									}
								},
								{"value": {"type": "RestElement", "target": {"type": "Identifier", "name": "more"}}}
							]
						},
						"init": {"type": "Identifier", "name": "o"}
					}
				]
			}
		]
	}`))
	be.Err(t, err, nil)

	pattern := prog.Body[0].(*ast.VarDecl).Decls[0].Target.(*ast.ObjectPattern)
	be.Equal(t, len(pattern.Props), 3)
	be.Equal(t, pattern.Props[0].Key, "id")
	def := pattern.Props[1].Value.(*ast.AssignPattern)
	be.Equal(t, def.Default.(*ast.Literal).Value, "anon")
	_, isRest := pattern.Props[2].Value.(*ast.RestElement)
	be.True(t, isRest)
}

func TestRootMustBeProgram(t *testing.T) {
	_, err := DecodeBytes([]byte(`{"type": "Block", "body": []}`))
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "Program"))
}

func TestUnknownTypeReportsPath(t *testing.T) {
	_, err := DecodeBytes([]byte(`{
		"type": "Program",
		"body": [
			{
				"type": "IfStmt",
				"test": {"type": "Identifier", "name": "c"},
				"then": {"type": "Block", "body": [{"type": "GotoStmt"}]}
			}
		]
	}`))
	be.True(t, err != nil)
	var derr *DecodeError
	be.True(t, errors.As(err, &derr))
	be.True(t, strings.Contains(derr.Path, "body[0].then.body[0]"))
	be.True(t, strings.Contains(derr.Message, "GotoStmt"))
}

func TestMissingRequiredField(t *testing.T) {
	_, err := DecodeBytes([]byte(`{
		"type": "Program",
		"body": [{"type": "IfStmt", "test": {"type": "Identifier", "name": "c"}}]
	}`))
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "then"))
}

func TestTemplateQuasiArity(t *testing.T) {
	_, err := DecodeBytes([]byte(`{
		"type": "Program",
		"body": [
			{
				"type": "ExprStmt",
				"x": {
					"type": "TemplateLit",
					"quasis": ["a"],
					"exprs": [{"type": "Identifier", "name": "b"}]
				}
			}
		]
	}`))
	be.True(t, err != nil)
}
