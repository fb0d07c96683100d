// Package testmark extracts conformance cases from markdown files.
// Each case starts at a heading prefixed "Test: ", carries one
// ast-json fence holding the input tree, and one or more expectation
// fences checked against the pipeline's output.
package testmark

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// FenceInput is the language tag of the fence holding the JSON tree.
const FenceInput = "ast-json"

// ExpectKind tags one expectation fence.
type ExpectKind string

const (
	ExpectLua         ExpectKind = "lua"         // byte-exact primary backend output
	ExpectSVM         ExpectKind = "svm"         // byte-exact stack listing output
	ExpectDiagnostics ExpectKind = "diagnostics" // diagnostic codes, one per line
)

// Expectation is a single expected-output fence.
type Expectation struct {
	Kind    ExpectKind
	Content string
}

// Case is one extracted conformance case.
type Case struct {
	Name   string
	Input  string
	Expect []Expectation
}

// Codes splits a diagnostics expectation into its code list.
func (e Expectation) Codes() []string {
	var codes []string
	for _, line := range strings.Split(e.Content, "\n") {
		if f := strings.Fields(line); len(f) > 0 {
			codes = append(codes, f[0])
		}
	}
	return codes
}

// Extract parses a markdown document and returns its cases in order.
func Extract(markdown []byte) ([]Case, error) {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(markdown))

	var cases []Case
	var current *Case

	flush := func() error {
		if current == nil {
			return nil
		}
		if current.Input == "" {
			return fmt.Errorf("test %q has no %s fence", current.Name, FenceInput)
		}
		if len(current.Expect) == 0 {
			return fmt.Errorf("test %q has no expectation fence", current.Name)
		}
		cases = append(cases, *current)
		current = nil
		return nil
	}

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := node.(type) {
		case *ast.Heading:
			heading := headingText(n, markdown)
			if !strings.HasPrefix(heading, "Test: ") {
				return ast.WalkContinue, nil
			}
			if err := flush(); err != nil {
				return ast.WalkStop, err
			}
			current = &Case{Name: strings.TrimPrefix(heading, "Test: ")}

		case *ast.FencedCodeBlock:
			language := string(n.Language(markdown))
			if language == "" {
				return ast.WalkContinue, nil
			}
			if current == nil {
				return ast.WalkStop, fmt.Errorf("%s fence outside of a test case", language)
			}
			content := fenceContent(n, markdown)
			switch {
			case language == FenceInput:
				if current.Input != "" {
					return ast.WalkStop, fmt.Errorf("test %q has multiple %s fences", current.Name, FenceInput)
				}
				current.Input = content
			case expectKind(language):
				current.Expect = append(current.Expect, Expectation{
					Kind:    ExpectKind(language),
					Content: strings.TrimRight(content, "\n"),
				})
			default:
				return ast.WalkStop, fmt.Errorf("test %q: unknown fence language %q", current.Name, language)
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return cases, nil
}

// ExtractFile extracts the cases of one markdown file.
func ExtractFile(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cases, err := Extract(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cases, nil
}

// ExtractDir extracts every case from the *.md files of a directory,
// in filename order.
func ExtractDir(dir string) ([]Case, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	var all []Case
	for _, path := range paths {
		cases, err := ExtractFile(path)
		if err != nil {
			return nil, err
		}
		all = append(all, cases...)
	}
	return all, nil
}

func expectKind(language string) bool {
	switch ExpectKind(language) {
	case ExpectLua, ExpectSVM, ExpectDiagnostics:
		return true
	}
	return false
}

func headingText(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if t, ok := n.(*ast.Text); ok {
				buf.Write(t.Segment.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func fenceContent(fence *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	for i := 0; i < fence.Lines().Len(); i++ {
		line := fence.Lines().At(i)
		buf.Write(line.Value(source))
	}
	return buf.String()
}
