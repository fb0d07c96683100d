// Package pipeline coordinates one compilation: lowering, graph
// construction, validation, registered transforms, and emission.
package pipeline

import (
	"fmt"
	"time"

	"github.com/ssdajoker/LUASCRIPT-sub000/colors"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/backend"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/backend/lua"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/backend/svm"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/cfg"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/diagnostics"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/frontend/ast"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/ir"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/lower"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/passes"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/validate"
)

// Options configures one pipeline run.
type Options struct {
	ModuleID   string
	Seed       uint32        // id-generator seed, fixed for reproducible ids
	NodeBudget int           // maximum IR nodes; 0 means unlimited
	Deadline   time.Duration // wall-clock budget; 0 means none
	BackendID  string        // defaults to the lua backend
	Debug      bool

	Registry *passes.Registry  // nil gets the built-in passes
	Backends *backend.Registry // nil gets lua and svm
	Diags    *diagnostics.Bag
}

// Result is a completed run. Module is the transformed IR and Output
// the chosen backend's rendition of it.
type Result struct {
	Module *ir.Module
	Output *backend.Output
}

// Pipeline coordinates the compilation process.
type Pipeline struct {
	opts  Options
	diags *diagnostics.Bag
	start time.Time
}

// New creates a pipeline. Missing options get working defaults.
func New(opts Options) *Pipeline {
	if opts.Diags == nil {
		opts.Diags = diagnostics.NewBag()
	}
	if opts.BackendID == "" {
		opts.BackendID = lua.BackendID
	}
	if opts.Backends == nil {
		opts.Backends = backend.NewRegistry()
		_ = opts.Backends.Register(lua.New())
		_ = opts.Backends.Register(svm.New())
	}
	if opts.Registry == nil {
		opts.Registry = passes.NewRegistry(opts.Diags)
		_ = opts.Registry.Register(passes.ConstFold())
		_ = opts.Registry.Register(passes.DeadBranch())
		opts.Registry.Freeze()
	}
	return &Pipeline{opts: opts, diags: opts.Diags}
}

// Diagnostics exposes the bag collected during Run.
func (p *Pipeline) Diagnostics() *diagnostics.Bag {
	return p.diags
}

// Run executes the full pipeline over one parsed program. On any
// failure no partial IR or output is returned.
func (p *Pipeline) Run(prog *ast.Program) (*Result, error) {
	p.start = time.Now()

	p.phase(1, "Lowering")
	mod, err := lower.Lower(prog, lower.Options{
		ModuleID: p.opts.ModuleID,
		Seed:     p.opts.Seed,
		Diags:    p.diags,
	})
	if err != nil {
		return nil, err
	}
	if err := p.checkBudget(mod); err != nil {
		return nil, err
	}

	p.phase(2, "Control-flow graphs")
	cfg.BuildAll(mod, p.diags)
	if err := p.checkDeadline(); err != nil {
		return nil, err
	}

	p.phase(3, "Validation")
	if err := p.validate(mod); err != nil {
		return nil, err
	}

	p.phase(4, "Transforms")
	if err := p.opts.Registry.Run(mod, p.diags); err != nil {
		return nil, err
	}
	if err := p.checkBudget(mod); err != nil {
		return nil, err
	}

	p.phase(5, "Revalidation")
	if err := p.validate(mod); err != nil {
		return nil, err
	}

	p.phase(6, "Emission")
	emitter, ok := p.opts.Backends.Get(p.opts.BackendID)
	if !ok {
		err := fmt.Errorf("unknown backend %q", p.opts.BackendID)
		p.diags.Add(diagnostics.NewError(err.Error()).WithCode(diagnostics.ErrBackendUnsupported))
		return nil, err
	}
	out, err := emitter.Emit(mod)
	if err != nil {
		p.diags.Add(diagnostics.NewError(err.Error()).WithCode(diagnostics.ErrBackendUnsupported))
		return nil, err
	}

	if p.opts.Debug {
		colors.GREEN.Printf("✓ compiled %q: %d nodes, %d graphs\n",
			mod.ID, mod.NodeCount(), len(mod.CFGs))
	}
	return &Result{Module: mod, Output: out}, nil
}

func (p *Pipeline) validate(mod *ir.Module) error {
	res := validate.Module(mod)
	if res.OK {
		return nil
	}
	validate.Report(res, p.diags)
	return fmt.Errorf("validation failed with %d errors", len(res.Errors))
}

// checkBudget aborts a run whose module outgrew the node budget. The
// caller discards the partial IR by returning nil.
func (p *Pipeline) checkBudget(mod *ir.Module) error {
	if p.opts.NodeBudget > 0 && mod.NodeCount() > p.opts.NodeBudget {
		err := fmt.Errorf("module %q exceeds node budget (%d > %d)",
			mod.ID, mod.NodeCount(), p.opts.NodeBudget)
		p.diags.Add(diagnostics.NewError(err.Error()).WithCode(diagnostics.ErrBudgetExceeded))
		return err
	}
	return p.checkDeadline()
}

func (p *Pipeline) checkDeadline() error {
	if p.opts.Deadline <= 0 {
		return nil
	}
	if elapsed := time.Since(p.start); elapsed > p.opts.Deadline {
		err := fmt.Errorf("deadline exceeded after %s", elapsed.Round(time.Millisecond))
		p.diags.Add(diagnostics.NewError(err.Error()).WithCode(diagnostics.ErrDeadlineExceeded))
		return err
	}
	return nil
}

func (p *Pipeline) phase(n int, name string) {
	if p.opts.Debug {
		colors.CYAN.Printf("\n[Phase %d] %s\n", n, name)
	}
}
