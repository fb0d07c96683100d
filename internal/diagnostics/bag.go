package diagnostics

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ssdajoker/LUASCRIPT-sub000/colors"
)

const (
	lowerFailedMsg      = "\nLowering failed with %d error(s)"
	andWarningMsg       = " and %d warning(s)"
	successWithWarnings = "\nPipeline succeeded with %d warning(s)\n"
)

// Bag collects diagnostics during a pipeline run
type Bag struct {
	diagnostics []*Diagnostic
	mu          sync.Mutex
	errorCount  int
	warnCount   int
	sources     map[string]string
}

// NewBag creates a new diagnostic bag
func NewBag() *Bag {
	return &Bag{
		sources: make(map[string]string),
	}
}

// AddSourceContent adds source content for a file path so labels can
// render the offending line.
func (b *Bag) AddSourceContent(file, content string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sources[file] = content
}

// Add adds a diagnostic to the bag
func (b *Bag) Add(diag *Diagnostic) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.diagnostics = append(b.diagnostics, diag)

	switch diag.Severity {
	case Error:
		b.errorCount++
	case Warning:
		b.warnCount++
	}
}

// HasErrors returns true if there are any errors
func (b *Bag) HasErrors() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.errorCount > 0
}

// ErrorCount returns the number of errors
func (b *Bag) ErrorCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.errorCount
}

// WarningCount returns the number of warnings
func (b *Bag) WarningCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.warnCount
}

// Diagnostics returns a copy of all diagnostics (thread-safe)
func (b *Bag) Diagnostics() []*Diagnostic {
	b.mu.Lock()
	defer b.mu.Unlock()
	result := make([]*Diagnostic, len(b.diagnostics))
	copy(result, b.diagnostics)
	return result
}

// EmitAll renders every diagnostic to stderr followed by a summary line.
func (b *Bag) EmitAll() {
	b.emit(os.Stderr)
}

// EmitAllToString renders every diagnostic to a string with ANSI codes.
func (b *Bag) EmitAllToString() string {
	var buf bytes.Buffer
	b.emit(&buf)
	return buf.String()
}

func (b *Bag) emit(w io.Writer) {
	b.mu.Lock()
	diagnostics := make([]*Diagnostic, len(b.diagnostics))
	copy(diagnostics, b.diagnostics)
	sources := make(map[string]string, len(b.sources))
	for k, v := range b.sources {
		sources[k] = v
	}
	b.mu.Unlock()

	emitter := NewEmitter(w, sources)
	for _, diag := range diagnostics {
		emitter.Emit(diag)
	}

	b.printSummary(w)
}

func (b *Bag) printSummary(w io.Writer) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.errorCount > 0 {
		colors.RED.Fprintf(w, lowerFailedMsg, b.errorCount)
		if b.warnCount > 0 {
			colors.RED.Fprintf(w, andWarningMsg, b.warnCount)
		}
		fmt.Fprintln(w)
	} else if b.warnCount > 0 {
		colors.ORANGE.Fprintf(w, successWithWarnings, b.warnCount)
	}
}

// Clear removes all diagnostics
func (b *Bag) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.diagnostics = nil
	b.errorCount = 0
	b.warnCount = 0
}
