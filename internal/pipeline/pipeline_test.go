package pipeline

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nalgeon/be"

	"github.com/ssdajoker/LUASCRIPT-sub000/internal/backend/lua"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/backend/svm"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/diagnostics"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/frontend/ast"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/frontend/astjson"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/ir"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/passes"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/testmark"
)

func runBackend(t *testing.T, input, backendID string) (string, *diagnostics.Bag) {
	t.Helper()
	prog, err := astjson.DecodeBytes([]byte(input))
	be.Err(t, err, nil)

	p := New(Options{ModuleID: "main", BackendID: backendID})
	res, err := p.Run(prog)
	if err != nil {
		return "", p.Diagnostics()
	}
	return res.Output.Code, p.Diagnostics()
}

func TestConformance(t *testing.T) {
	cases, err := testmark.ExtractDir("testdata")
	be.Err(t, err, nil)
	be.True(t, len(cases) > 0)

	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			for _, want := range tc.Expect {
				switch want.Kind {
				case testmark.ExpectLua, testmark.ExpectSVM:
					code, bag := runBackend(t, tc.Input, string(want.Kind))
					if bag.HasErrors() {
						t.Fatalf("unexpected diagnostics:\n%s", bag.EmitAllToString())
					}
					be.Equal(t, strings.TrimRight(code, "\n"), want.Content)
				case testmark.ExpectDiagnostics:
					_, bag := runBackend(t, tc.Input, lua.BackendID)
					got := map[string]bool{}
					for _, d := range bag.Diagnostics() {
						got[d.Code] = true
					}
					for _, code := range want.Codes() {
						if !got[code] {
							t.Errorf("missing diagnostic %s, got:\n%s", code, bag.EmitAllToString())
						}
					}
				}
			}
		})
	}
}

// Identical input must produce byte-identical output on repeated runs.
func TestDeterministicOutput(t *testing.T) {
	cases, err := testmark.ExtractDir("testdata")
	be.Err(t, err, nil)

	for _, tc := range cases {
		if len(tc.Expect) == 0 || tc.Expect[0].Kind == testmark.ExpectDiagnostics {
			continue
		}
		for _, id := range []string{lua.BackendID, svm.BackendID} {
			first, bag := runBackend(t, tc.Input, id)
			if bag.HasErrors() {
				continue
			}
			for i := 0; i < 3; i++ {
				again, _ := runBackend(t, tc.Input, id)
				be.Equal(t, again, first)
			}
		}
	}
}

func trivialProgram() *ast.Program {
	return &ast.Program{
		SourceName: "t.ls",
		Body: []ast.Statement{
			&ast.VarDecl{
				Kind: ast.DeclConst,
				Decls: []ast.Declarator{{
					Target: &ast.Identifier{Name: "x"},
					Init:   &ast.Literal{Kind: ast.LitNumber, Value: "1"},
				}},
			},
		},
	}
}

func TestNodeBudgetDiscardsModule(t *testing.T) {
	p := New(Options{ModuleID: "m", NodeBudget: 1})
	res, err := p.Run(trivialProgram())
	be.True(t, err != nil)
	be.True(t, res == nil)

	found := false
	for _, d := range p.Diagnostics().Diagnostics() {
		if d.Code == diagnostics.ErrBudgetExceeded {
			found = true
		}
	}
	be.True(t, found)
}

func TestDeadlineDiscardsModule(t *testing.T) {
	p := New(Options{ModuleID: "m", Deadline: time.Nanosecond})
	res, err := p.Run(trivialProgram())
	be.True(t, err != nil)
	be.True(t, res == nil)
}

// A throwing optional pass must not keep the module from reaching
// emission.
func TestOptionalPassFailureIsolated(t *testing.T) {
	bag := diagnostics.NewBag()
	reg := passes.NewRegistry(bag)
	err := reg.Register(passes.Pass{
		Name:     "explode",
		Version:  passes.Current,
		Priority: 5,
		Policy:   passes.Optional,
		Transform: func(ctx *passes.Context, n ir.Node) (ir.Node, error) {
			panic("boom")
		},
	})
	be.Err(t, err, nil)
	err = reg.Register(passes.ConstFold())
	be.Err(t, err, nil)
	reg.Freeze()

	p := New(Options{ModuleID: "m", Registry: reg, Diags: bag})
	res, err := p.Run(trivialProgram())
	be.Err(t, err, nil)
	be.True(t, res != nil)
	be.True(t, strings.Contains(res.Output.Code, "local x = 1"))

	found := false
	for _, d := range bag.Diagnostics() {
		if d.Code == diagnostics.ErrPassRuntime {
			found = true
		}
	}
	be.True(t, found)
}

func TestMandatoryPassFailureAborts(t *testing.T) {
	bag := diagnostics.NewBag()
	reg := passes.NewRegistry(bag)
	err := reg.Register(passes.Pass{
		Name:     "explode",
		Version:  passes.Current,
		Priority: 5,
		Policy:   passes.Mandatory,
		Transform: func(ctx *passes.Context, n ir.Node) (ir.Node, error) {
			return nil, errors.New("boom")
		},
	})
	be.Err(t, err, nil)
	reg.Freeze()

	p := New(Options{ModuleID: "m", Registry: reg, Diags: bag})
	res, err := p.Run(trivialProgram())
	be.True(t, err != nil)
	be.True(t, res == nil)
}

func TestUnknownBackend(t *testing.T) {
	p := New(Options{ModuleID: "m", BackendID: "jvm"})
	res, err := p.Run(trivialProgram())
	be.True(t, err != nil)
	be.True(t, res == nil)
}
