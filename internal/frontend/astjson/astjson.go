// Package astjson decodes the JSON tree handed over by the external
// parser into the ast package's node types. Every wire node is an
// object with a "type" tag, type-specific fields, and a "sourceSpan".
package astjson

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ssdajoker/LUASCRIPT-sub000/internal/frontend/ast"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/source"
)

// DecodeError reports a malformed wire node. Path is a dotted trail
// from the program root to the offending field.
type DecodeError struct {
	Path    string
	Message string
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func errf(path, format string, args ...any) error {
	return &DecodeError{Path: path, Message: fmt.Sprintf(format, args...)}
}

// rawNode is one undecoded wire node.
type rawNode map[string]json.RawMessage

// Decode reads a complete program tree from r.
func Decode(r io.Reader) (*ast.Program, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return DecodeBytes(data)
}

// DecodeBytes decodes a complete program tree from its JSON encoding.
func DecodeBytes(data []byte) (*ast.Program, error) {
	var root rawNode
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, errf("", "invalid JSON: %v", err)
	}
	if t, _ := nodeType(root); t != "Program" {
		return nil, errf("", "root node must be Program, got %q", t)
	}
	prog := &ast.Program{Span: decodeSpan(root)}
	if raw, ok := root["sourceName"]; ok {
		if err := json.Unmarshal(raw, &prog.SourceName); err != nil {
			return nil, errf("sourceName", "%v", err)
		}
	}
	if raw, ok := root["directives"]; ok {
		if err := json.Unmarshal(raw, &prog.Directives); err != nil {
			return nil, errf("directives", "%v", err)
		}
	}
	body, err := decodeStmts(root, "body", "body")
	if err != nil {
		return nil, err
	}
	prog.Body = body
	return prog, nil
}

func nodeType(n rawNode) (string, error) {
	raw, ok := n["type"]
	if !ok {
		return "", fmt.Errorf("missing \"type\"")
	}
	var t string
	if err := json.Unmarshal(raw, &t); err != nil {
		return "", err
	}
	return t, nil
}

// decodeSpan accepts either a {start, end, file} pair or a flat
// {line, column, offset} point. Absent spans decode to the zero span.
func decodeSpan(n rawNode) source.Span {
	raw, ok := n["sourceSpan"]
	if !ok {
		return source.Span{}
	}
	var probe struct {
		Start *source.Position `json:"start"`
		End   *source.Position `json:"end"`
		File  string           `json:"file"`
		source.Position
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return source.Span{}
	}
	if probe.Start != nil {
		end := *probe.Start
		if probe.End != nil {
			end = *probe.End
		}
		return source.Span{Start: *probe.Start, End: end, File: probe.File}
	}
	return source.Span{Start: probe.Position, End: probe.Position, File: probe.File}
}

func child(n rawNode, field, path string) (rawNode, string, error) {
	raw, ok := n[field]
	if !ok || string(raw) == "null" {
		return nil, "", nil
	}
	var c rawNode
	at := join(path, field)
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, "", errf(at, "%v", err)
	}
	return c, at, nil
}

func children(n rawNode, field, path string) ([]rawNode, string, error) {
	at := join(path, field)
	raw, ok := n[field]
	if !ok || string(raw) == "null" {
		return nil, at, nil
	}
	var list []rawNode
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, "", errf(at, "%v", err)
	}
	return list, at, nil
}

func join(path, field string) string {
	if path == "" {
		return field
	}
	return path + "." + field
}

func index(path string, i int) string {
	return fmt.Sprintf("%s[%d]", path, i)
}

func strField(n rawNode, field, path string) (string, error) {
	raw, ok := n[field]
	if !ok || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", errf(join(path, field), "%v", err)
	}
	return s, nil
}

func boolField(n rawNode, field, path string) (bool, error) {
	raw, ok := n[field]
	if !ok || string(raw) == "null" {
		return false, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, errf(join(path, field), "%v", err)
	}
	return b, nil
}

func declKind(n rawNode, path string) (ast.DeclKind, error) {
	s, err := strField(n, "kind", path)
	if err != nil {
		return ast.DeclVar, err
	}
	switch s {
	case "const":
		return ast.DeclConst, nil
	case "let":
		return ast.DeclLet, nil
	case "var", "":
		return ast.DeclVar, nil
	default:
		return ast.DeclVar, errf(join(path, "kind"), "unknown declaration kind %q", s)
	}
}
