package diagnostics

import (
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/source"
)

// Common diagnostic builders for the lowerer

// UnsupportedConstruct reports an AST node kind the lowerer cannot handle.
func UnsupportedConstruct(span source.Span, nodeType string) *Diagnostic {
	return NewError("unsupported construct: " + nodeType).
		WithCode(ErrUnsupportedConstruct).
		WithPrimaryLabel(span, "cannot lower this node").
		WithHelp("this construct is not part of the supported source language subset")
}

// RestNotLast reports a rest element that is not in final position.
func RestNotLast(span source.Span) *Diagnostic {
	return NewError("rest element must be last in pattern").
		WithCode(ErrRestNotLast).
		WithPrimaryLabel(span, "rest element here").
		WithHelp("move the rest element to the end of the pattern")
}

// UnresolvedLabel reports a break/continue naming a label that does not
// enclose it.
func UnresolvedLabel(span source.Span, label string) *Diagnostic {
	return NewError("label '" + label + "' does not enclose this statement").
		WithCode(ErrUnresolvedLabel).
		WithPrimaryLabel(span, "label not in scope here")
}

// BreakOutsideLoop reports a break statement with no surrounding loop or
// switch.
func BreakOutsideLoop(span source.Span) *Diagnostic {
	return NewError("break statement outside loop or switch").
		WithCode(ErrBreakOutsideLoop).
		WithPrimaryLabel(span, "not inside a loop")
}

// ContinueOutsideLoop reports a continue statement with no surrounding loop.
func ContinueOutsideLoop(span source.Span) *Diagnostic {
	return NewError("continue statement outside loop").
		WithCode(ErrContinueOutsideLoop).
		WithPrimaryLabel(span, "not inside a loop")
}
