package diagnostics

import (
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/source"
)

// Severity represents the severity level of a diagnostic
type Severity int

const (
	Error Severity = iota
	Warning
	Info
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	default:
		return "unknown"
	}
}

// Label represents a labeled section of code in a diagnostic
type Label struct {
	Span    source.Span
	Message string
	Style   LabelStyle
}

type LabelStyle int

const (
	Primary   LabelStyle = iota // The main error location (uses ^^^)
	Secondary                   // Additional context (uses ---)
)

// Diagnostic represents a pipeline diagnostic (error, warning, etc.)
type Diagnostic struct {
	Severity Severity
	Message  string
	Code     string // Stable code like "L0001"
	NodeID   uint32 // Originating IR node id, 0 when not node-specific
	Labels   []Label
	Notes    []string
	Help     string // Suggestion for fixing the error
}

// NewError creates a new error diagnostic
func NewError(message string) *Diagnostic {
	return &Diagnostic{
		Severity: Error,
		Message:  message,
	}
}

// NewWarning creates a new warning diagnostic
func NewWarning(message string) *Diagnostic {
	return &Diagnostic{
		Severity: Warning,
		Message:  message,
	}
}

// NewInfo creates a new info diagnostic
func NewInfo(message string) *Diagnostic {
	return &Diagnostic{
		Severity: Info,
		Message:  message,
	}
}

// WithCode sets the stable error code
func (d *Diagnostic) WithCode(code string) *Diagnostic {
	d.Code = code
	return d
}

// WithNode records the originating IR node id
func (d *Diagnostic) WithNode(id uint32) *Diagnostic {
	d.NodeID = id
	return d
}

// WithPrimaryLabel adds the main labeled location. At most one primary
// label is kept; later calls are ignored.
func (d *Diagnostic) WithPrimaryLabel(span source.Span, message string) *Diagnostic {
	for _, label := range d.Labels {
		if label.Style == Primary {
			return d
		}
	}
	d.Labels = append([]Label{{Span: span, Message: message, Style: Primary}}, d.Labels...)
	return d
}

// WithSecondaryLabel adds an additional context label.
func (d *Diagnostic) WithSecondaryLabel(span source.Span, message string) *Diagnostic {
	d.Labels = append(d.Labels, Label{Span: span, Message: message, Style: Secondary})
	return d
}

// WithNote adds a note to the diagnostic
func (d *Diagnostic) WithNote(message string) *Diagnostic {
	d.Notes = append(d.Notes, message)
	return d
}

// WithHelp sets helpful suggestion for fixing the error
func (d *Diagnostic) WithHelp(help string) *Diagnostic {
	d.Help = help
	return d
}

// PrimarySpan returns the span of the primary label, or the zero span.
func (d *Diagnostic) PrimarySpan() source.Span {
	for _, label := range d.Labels {
		if label.Style == Primary {
			return label.Span
		}
	}
	return source.Span{}
}
