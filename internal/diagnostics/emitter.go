package diagnostics

import (
	"fmt"
	"io"
	"strings"

	"github.com/ssdajoker/LUASCRIPT-sub000/colors"
)

// Emitter renders diagnostics as annotated text
type Emitter struct {
	writer  io.Writer
	sources map[string]string
}

// NewEmitter creates an emitter writing to w, reading source snippets
// from the given file → content map.
func NewEmitter(w io.Writer, sources map[string]string) *Emitter {
	if sources == nil {
		sources = make(map[string]string)
	}
	return &Emitter{writer: w, sources: sources}
}

// Emit renders a single diagnostic
func (e *Emitter) Emit(d *Diagnostic) {
	severityColor := colors.RED
	switch d.Severity {
	case Warning:
		severityColor = colors.ORANGE
	case Info:
		severityColor = colors.CYAN
	}

	if d.Code != "" {
		severityColor.Fprintf(e.writer, "%s[%s]", d.Severity, d.Code)
	} else {
		severityColor.Fprintf(e.writer, "%s", d.Severity)
	}
	fmt.Fprintf(e.writer, ": %s\n", d.Message)

	for _, label := range d.Labels {
		e.emitLabel(label, severityColor)
	}

	for _, note := range d.Notes {
		colors.CYAN.Fprintf(e.writer, "note")
		fmt.Fprintf(e.writer, ": %s\n", note)
	}
	if d.Help != "" {
		colors.GREEN.Fprintf(e.writer, "help")
		fmt.Fprintf(e.writer, ": %s\n", d.Help)
	}
	fmt.Fprintln(e.writer)
}

func (e *Emitter) emitLabel(label Label, severityColor colors.COLOR) {
	span := label.Span
	if span.IsZero() {
		if label.Message != "" {
			fmt.Fprintf(e.writer, "  = %s\n", label.Message)
		}
		return
	}

	marker := "-->"
	if label.Style == Secondary {
		marker = " ::"
	}
	colors.BLUE.Fprintf(e.writer, "  %s ", marker)
	fmt.Fprintf(e.writer, "%s:%d:%d\n", span.File, span.Start.Line, span.Start.Column)

	line, ok := e.sourceLine(span.File, span.Start.Line)
	if !ok {
		if label.Message != "" {
			fmt.Fprintf(e.writer, "      %s\n", label.Message)
		}
		return
	}

	gutter := fmt.Sprintf("%4d", span.Start.Line)
	colors.GREY.Fprintf(e.writer, "%s | ", gutter)
	fmt.Fprintln(e.writer, line)

	underline := underlineFor(span.Start.Column, span.End.Column, span.Start.Line == span.End.Line, len(line), label.Style)
	colors.GREY.Fprintf(e.writer, "%s | ", strings.Repeat(" ", len(gutter)))
	severityColor.Fprint(e.writer, underline)
	if label.Message != "" {
		fmt.Fprintf(e.writer, " %s", label.Message)
	}
	fmt.Fprintln(e.writer)
}

func (e *Emitter) sourceLine(file string, lineNum int) (string, bool) {
	content, ok := e.sources[file]
	if !ok || lineNum < 1 {
		return "", false
	}
	lines := strings.Split(content, "\n")
	if lineNum > len(lines) {
		return "", false
	}
	return lines[lineNum-1], true
}

func underlineFor(startCol, endCol int, sameLine bool, lineLen int, style LabelStyle) string {
	if startCol < 1 {
		startCol = 1
	}
	width := 1
	if sameLine && endCol > startCol {
		width = endCol - startCol
	} else if !sameLine {
		width = lineLen - startCol + 1
	}
	if width < 1 {
		width = 1
	}
	ch := "^"
	if style == Secondary {
		ch = "-"
	}
	return strings.Repeat(" ", startCol-1) + strings.Repeat(ch, width)
}
