package ast

import (
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/source"
)

// RestElement collects the remainder of an array or object pattern.
// Parsers may place it anywhere; the lowerer rejects any position but
// the last.
type RestElement struct {
	Target Node // identifier or nested pattern
	Span   source.Span
}

func (r *RestElement) INode()           {}
func (r *RestElement) Pat()             {}
func (r *RestElement) Loc() source.Span { return r.Span }

// ArrayPattern destructures positional elements. A nil element is a
// hole that binds nothing. Elements may contain one RestElement, which
// must be last.
type ArrayPattern struct {
	Elements []Node // identifiers, nested patterns, RestElement, or nil holes
	Span     source.Span
}

func (a *ArrayPattern) INode()           {}
func (a *ArrayPattern) Pat()             {}
func (a *ArrayPattern) Loc() source.Span { return a.Span }

// PatternProp is one property in an object pattern. Value may rename
// the binding or recurse into a nested pattern; a RestElement value
// captures the not-yet-destructured keys and must be last.
type PatternProp struct {
	Key      string
	Computed Expression // non-nil for computed keys
	Value    Node       // identifier, nested pattern, AssignPattern, or RestElement
	Span     source.Span
}

// ObjectPattern destructures named properties.
type ObjectPattern struct {
	Props []PatternProp
	Span  source.Span
}

func (o *ObjectPattern) INode()           {}
func (o *ObjectPattern) Pat()             {}
func (o *ObjectPattern) Loc() source.Span { return o.Span }

// AssignPattern supplies a default evaluated only when the extracted
// value is missing. A defined-but-falsy value bypasses the default.
type AssignPattern struct {
	Target  Node // identifier or nested pattern
	Default Expression
	Span    source.Span
}

func (a *AssignPattern) INode()           {}
func (a *AssignPattern) Pat()             {}
func (a *AssignPattern) Loc() source.Span { return a.Span }
