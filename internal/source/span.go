package source

import "fmt"

// Position is a specific location in the original source text.
type Position struct {
	Line   int `json:"line"`   // 1-based line number
	Column int `json:"column"` // 1-based column number
	Offset int `json:"offset"` // 0-based byte offset
}

// Before reports whether p comes before other in source order.
func (p Position) Before(other Position) bool {
	return p.Offset < other.Offset
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Span is a half-open region of source text carried on every node so
// diagnostics can point back at the original program.
type Span struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
	File  string   `json:"file,omitempty"`
}

// NewSpan creates a Span covering start through end.
func NewSpan(file string, start, end Position) Span {
	return Span{Start: start, End: end, File: file}
}

// Merge returns the smallest span covering both s and other.
func (s Span) Merge(other Span) Span {
	out := s
	if other.Start.Before(s.Start) {
		out.Start = other.Start
	}
	if s.End.Before(other.End) {
		out.End = other.End
	}
	return out
}

// Contains checks if the given position is within this span.
func (s Span) Contains(pos Position) bool {
	if s.Start.Line > pos.Line || (s.Start.Line == pos.Line && s.Start.Column > pos.Column) {
		return false
	}
	if s.End.Line < pos.Line || (s.End.Line == pos.Line && s.End.Column < pos.Column) {
		return false
	}
	return true
}

// IsZero reports whether the span carries no location information.
func (s Span) IsZero() bool {
	return s.Start == Position{} && s.End == Position{}
}

func (s Span) String() string {
	if s.IsZero() {
		return "span(unknown)"
	}
	return fmt.Sprintf("span(%s - %s)", s.Start, s.End)
}
