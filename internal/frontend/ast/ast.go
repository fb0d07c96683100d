package ast

import (
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/source"
)

// Node is the base interface for all AST nodes
type Node interface {
	INode()
	Loc() source.Span
}

// Expression represents any node that produces a value
type Expression interface {
	Node
	Expr()
}

// Statement represents any node that performs an action
type Statement interface {
	Node
	Stmt()
}

// Pattern represents a binding form that decomposes a composite value
// into named bindings
type Pattern interface {
	Node
	Pat()
}

// Program is the root node produced by the external parser for one module.
type Program struct {
	SourceName string
	Directives []string
	Body       []Statement
	Span       source.Span
}

func (p *Program) INode()           {}
func (p *Program) Loc() source.Span { return p.Span }
