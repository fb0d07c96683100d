// Package svm emits a stack-machine instruction listing from validated
// IR. It consumes the same modules as the table backend and must
// preserve the same observable ordering, only the encoding differs.
package svm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ssdajoker/LUASCRIPT-sub000/internal/backend"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/ir"
)

const BackendID = "svm"

// Emitter is the stack-machine backend.
type Emitter struct{}

func New() *Emitter { return &Emitter{} }

func (e *Emitter) ID() string { return BackendID }

func (e *Emitter) Emit(m *ir.Module) (*backend.Output, error) {
	g := &codegen{mod: m}
	g.comment("module: %s", m.ID)
	for _, id := range m.Body {
		if err := g.stmt(id); err != nil {
			return nil, err
		}
	}
	g.line("HALT")
	return &backend.Output{Code: g.out.String()}, nil
}

// loopLabels holds the jump targets of one enclosing loop.
type loopLabels struct {
	label string // source label, "" for unlabeled
	start string // where continue jumps to
	end   string // where break jumps to
}

// tryRegion is one open TRY between its TRY instruction and END_TRY.
// A jump leaving the region must pop the armed handler and run the
// finalizer inline before it goes; the machine only does that for
// exceptional exits.
type tryRegion struct {
	loopDepth      int // len(loopStack) when the region opened
	breakableDepth int // len(breakable) when the region opened
	finalizer      ir.NodeID
	armed          bool // protected block still emitting, TRY not yet popped
}

type codegen struct {
	mod       *ir.Module
	out       strings.Builder
	nextLabel int
	indent    int
	loopStack []loopLabels
	breakable []string // innermost break target (loops and switches)
	tryStack  []*tryRegion
}

func (g *codegen) newLabel() string {
	l := fmt.Sprintf("L%d", g.nextLabel)
	g.nextLabel++
	return l
}

func (g *codegen) line(format string, args ...any) {
	for i := 0; i < g.indent; i++ {
		g.out.WriteString("  ")
	}
	fmt.Fprintf(&g.out, format+"\n", args...)
}

func (g *codegen) label(name string) {
	fmt.Fprintf(&g.out, "%s:\n", name)
}

func (g *codegen) comment(format string, args ...any) {
	g.line("; "+format, args...)
}

func (g *codegen) node(id ir.NodeID) ir.Node {
	return g.mod.MustNode(id)
}

func (g *codegen) unsupported(n ir.Node) error {
	return &backend.UnsupportedError{NodeKind: n.Kind(), NodeID: n.ID(), BackendID: BackendID}
}

func (g *codegen) stmts(ids []ir.NodeID) error {
	for _, id := range ids {
		if err := g.stmt(id); err != nil {
			return err
		}
	}
	return nil
}

func (g *codegen) blockStmts(id ir.NodeID) []ir.NodeID {
	if b, ok := g.node(id).(*ir.Block); ok {
		return b.Stmts
	}
	return []ir.NodeID{id}
}

func (g *codegen) stmt(id ir.NodeID) error {
	switch n := g.node(id).(type) {
	case *ir.VarDecl:
		if n.Init.IsValid() {
			if err := g.expr(n.Init); err != nil {
				return err
			}
		} else {
			g.line("PUSH_NIL")
		}
		g.line("STORE_NEW %s", n.Name)
		return nil

	case *ir.FuncDecl:
		return g.function(n.Name, n.Params, n.Body, n.Async, n.Generator)

	case *ir.TypeDecl:
		return g.typeDecl(n)

	case *ir.Block:
		if n.Label == "" {
			return g.stmts(n.Stmts)
		}
		end := g.newLabel()
		g.loopStack = append(g.loopStack, loopLabels{label: n.Label, end: end})
		err := g.stmts(n.Stmts)
		g.loopStack = g.loopStack[:len(g.loopStack)-1]
		if err != nil {
			return err
		}
		g.label(end)
		return nil

	case *ir.ExprStmt:
		if err := g.expr(n.X); err != nil {
			return err
		}
		g.line("POP")
		return nil

	case *ir.Assign:
		return g.assign(n)

	case *ir.If:
		return g.ifStmt(n)

	case *ir.While:
		return g.whileStmt(n)

	case *ir.IterLoop:
		return g.iterLoop(n)

	case *ir.Switch:
		return g.switchStmt(n)

	case *ir.Try:
		return g.tryStmt(n)

	case *ir.Break:
		return g.breakStmt(n)

	case *ir.Continue:
		return g.continueStmt(n)

	case *ir.Return:
		if n.Arg.IsValid() {
			if err := g.expr(n.Arg); err != nil {
				return err
			}
			if err := g.unwindTrys(func(*tryRegion) bool { return true }); err != nil {
				return err
			}
			g.line("RETURN")
		} else {
			if err := g.unwindTrys(func(*tryRegion) bool { return true }); err != nil {
				return err
			}
			g.line("RETURN_NIL")
		}
		return nil

	case *ir.Throw:
		if err := g.expr(n.Arg); err != nil {
			return err
		}
		g.line("THROW")
		return nil

	default:
		return g.unsupported(n)
	}
}

func (g *codegen) function(name string, params []ir.NodeID, body ir.NodeID, async, generator bool) error {
	attrs := ""
	if async {
		attrs = " async"
	}
	if generator {
		attrs += " generator"
	}
	sig := make([]string, 0, len(params))
	for _, pid := range params {
		p := g.node(pid).(*ir.Param)
		if p.Rest {
			sig = append(sig, "..."+p.Name)
		} else {
			sig = append(sig, p.Name)
		}
	}
	g.line("FUNC %s (%s)%s", name, strings.Join(sig, ", "), attrs)
	g.indent++

	savedLoops, savedBreakable, savedTrys := g.loopStack, g.breakable, g.tryStack
	g.loopStack, g.breakable, g.tryStack = nil, nil, nil

	var err error
	for _, pid := range params {
		p := g.node(pid).(*ir.Param)
		if !p.Default.IsValid() {
			continue
		}
		skip := g.newLabel()
		g.line("LOAD %s", p.Name)
		g.line("JUMP_IF_DEFINED %s", skip)
		if err = g.expr(p.Default); err != nil {
			break
		}
		g.line("STORE %s", p.Name)
		g.label(skip)
	}
	if err == nil {
		err = g.stmts(g.blockStmts(body))
	}

	g.loopStack, g.breakable, g.tryStack = savedLoops, savedBreakable, savedTrys
	g.indent--
	if err != nil {
		return err
	}
	g.line("END_FUNC")
	return nil
}

func (g *codegen) typeDecl(n *ir.TypeDecl) error {
	super := ""
	if n.SuperName != "" {
		super = " extends " + n.SuperName
	}
	g.line("CLASS %s%s", n.Name, super)
	g.indent++
	for _, mid := range n.Methods {
		m := g.node(mid).(*ir.FuncDecl)
		if err := g.function(m.Name, m.Params, m.Body, m.Async, m.Generator); err != nil {
			g.indent--
			return err
		}
	}
	for _, mid := range n.Statics {
		m := g.node(mid).(*ir.FuncDecl)
		g.line("STATIC")
		if err := g.function(m.Name, m.Params, m.Body, m.Async, m.Generator); err != nil {
			g.indent--
			return err
		}
	}
	g.indent--
	g.line("END_CLASS")
	return nil
}

func (g *codegen) assign(n *ir.Assign) error {
	switch target := g.node(n.Target).(type) {
	case *ir.Ident:
		if n.Op != "=" {
			g.line("LOAD %s", target.Name)
		}
		if err := g.expr(n.Value); err != nil {
			return err
		}
		if n.Op != "=" {
			g.line("BINOP %s", strings.TrimSuffix(n.Op, "="))
		}
		g.line("STORE %s", target.Name)
		return nil

	case *ir.Member:
		if err := g.expr(target.X); err != nil {
			return err
		}
		if n.Op != "=" {
			g.line("DUP")
			g.line("GETPROP %s", target.Name)
		}
		if err := g.expr(n.Value); err != nil {
			return err
		}
		if n.Op != "=" {
			g.line("BINOP %s", strings.TrimSuffix(n.Op, "="))
		}
		g.line("SETPROP %s", target.Name)
		return nil

	case *ir.Index:
		if err := g.expr(target.X); err != nil {
			return err
		}
		if err := g.expr(target.Key); err != nil {
			return err
		}
		if n.Op != "=" {
			g.line("DUP2")
			g.line("GETINDEX")
		}
		if err := g.expr(n.Value); err != nil {
			return err
		}
		if n.Op != "=" {
			g.line("BINOP %s", strings.TrimSuffix(n.Op, "="))
		}
		g.line("SETINDEX")
		return nil

	default:
		return g.unsupported(target)
	}
}

func (g *codegen) ifStmt(n *ir.If) error {
	if err := g.expr(n.Cond); err != nil {
		return err
	}
	end := g.newLabel()
	if !n.Else.IsValid() {
		g.line("JUMP_IF_FALSE %s", end)
		if err := g.stmts(g.blockStmts(n.Then)); err != nil {
			return err
		}
		g.label(end)
		return nil
	}
	els := g.newLabel()
	g.line("JUMP_IF_FALSE %s", els)
	if err := g.stmts(g.blockStmts(n.Then)); err != nil {
		return err
	}
	g.line("JUMP %s", end)
	g.label(els)
	if err := g.stmts(g.blockStmts(n.Else)); err != nil {
		return err
	}
	g.label(end)
	return nil
}

func (g *codegen) whileStmt(n *ir.While) error {
	start := g.newLabel()
	end := g.newLabel()
	cont := start
	if n.Post.IsValid() {
		cont = g.newLabel()
	}

	g.label(start)
	if err := g.expr(n.Cond); err != nil {
		return err
	}
	g.line("JUMP_IF_FALSE %s", end)

	g.loopStack = append(g.loopStack, loopLabels{label: n.Label, start: cont, end: end})
	g.breakable = append(g.breakable, end)
	err := g.stmts(g.blockStmts(n.Body))
	g.loopStack = g.loopStack[:len(g.loopStack)-1]
	g.breakable = g.breakable[:len(g.breakable)-1]
	if err != nil {
		return err
	}

	if n.Post.IsValid() {
		g.label(cont)
		if err := g.stmts(g.blockStmts(n.Post)); err != nil {
			return err
		}
	}
	g.line("JUMP %s", start)
	g.label(end)
	return nil
}

func (g *codegen) iterLoop(n *ir.IterLoop) error {
	if err := g.expr(n.Source); err != nil {
		return err
	}
	if n.Mode == ir.IterOf {
		g.line("ITER_OF")
	} else {
		g.line("ITER_IN")
	}

	start := g.newLabel()
	end := g.newLabel()
	target := g.node(n.Target).(*ir.VarDecl)

	g.label(start)
	g.line("ITER_NEXT %s", end)
	g.line("STORE_NEW %s", target.Name)

	g.loopStack = append(g.loopStack, loopLabels{label: n.Label, start: start, end: end})
	g.breakable = append(g.breakable, end)
	err := g.stmts(n.Prologue)
	if err == nil {
		err = g.stmts(g.blockStmts(n.Body))
	}
	g.loopStack = g.loopStack[:len(g.loopStack)-1]
	g.breakable = g.breakable[:len(g.breakable)-1]
	if err != nil {
		return err
	}

	g.line("JUMP %s", start)
	g.label(end)
	g.line("ITER_END")
	return nil
}

// switchStmt dispatches to the first matching case, then falls through
// sequential case bodies until a break jumps to the end.
func (g *codegen) switchStmt(n *ir.Switch) error {
	if err := g.expr(n.Disc); err != nil {
		return err
	}
	end := g.newLabel()
	caseLabels := make([]string, len(n.Cases))
	defaultLabel := end
	for i, caseID := range n.Cases {
		caseLabels[i] = g.newLabel()
		if c := g.node(caseID).(*ir.Case); !c.Test.IsValid() {
			defaultLabel = caseLabels[i]
		}
	}

	for i, caseID := range n.Cases {
		c := g.node(caseID).(*ir.Case)
		if !c.Test.IsValid() {
			continue
		}
		g.line("DUP")
		if err := g.expr(c.Test); err != nil {
			return err
		}
		g.line("BINOP ===")
		g.line("JUMP_IF_TRUE %s", caseLabels[i])
	}
	g.line("JUMP %s", defaultLabel)

	g.breakable = append(g.breakable, end)
	for i, caseID := range n.Cases {
		c := g.node(caseID).(*ir.Case)
		g.label(caseLabels[i])
		if err := g.stmts(c.Body); err != nil {
			g.breakable = g.breakable[:len(g.breakable)-1]
			return err
		}
	}
	g.breakable = g.breakable[:len(g.breakable)-1]
	g.label(end)
	g.line("POP")
	return nil
}

// tryStmt installs a handler around the protected region. TRY_POP
// marks the normal exit; the machine runs the finalizer block on every
// path between FINALLY and END_TRY.
func (g *codegen) tryStmt(n *ir.Try) error {
	handler := g.newLabel()
	done := g.newLabel()

	region := &tryRegion{
		loopDepth:      len(g.loopStack),
		breakableDepth: len(g.breakable),
		finalizer:      n.Finalizer,
		armed:          true,
	}
	g.tryStack = append(g.tryStack, region)

	g.line("TRY %s", handler)
	if err := g.stmts(g.blockStmts(n.Block)); err != nil {
		g.tryStack = g.tryStack[:len(g.tryStack)-1]
		return err
	}
	g.line("TRY_POP")
	g.line("JUMP %s", done)

	// the machine pops the handler when it dispatches to it
	region.armed = false
	g.label(handler)
	if n.Handler.IsValid() {
		g.line("STORE_NEW %s", n.CatchName)
		if err := g.stmts(g.blockStmts(n.Handler)); err != nil {
			g.tryStack = g.tryStack[:len(g.tryStack)-1]
			return err
		}
	} else {
		g.line("RETHROW_PENDING")
	}
	g.tryStack = g.tryStack[:len(g.tryStack)-1]

	g.label(done)
	if n.Finalizer.IsValid() {
		g.line("FINALLY")
		if err := g.stmts(g.blockStmts(n.Finalizer)); err != nil {
			return err
		}
	}
	g.line("END_TRY")
	return nil
}

// unwindTrys closes every open try region the jump leaves, innermost
// first: pop the still-armed handler and run the finalizer inline. The
// region stack is trimmed while each finalizer emits so its own jumps
// do not unwind the same region again, and restored afterward since
// the escape is only one path through the block.
func (g *codegen) unwindTrys(crossed func(*tryRegion) bool) error {
	saved := g.tryStack
	defer func() { g.tryStack = saved }()
	for i := len(saved) - 1; i >= 0; i-- {
		r := saved[i]
		if !crossed(r) {
			break
		}
		g.tryStack = saved[:i]
		if r.armed {
			g.line("TRY_POP")
		}
		if r.finalizer.IsValid() {
			g.line("FINALLY")
			if err := g.stmts(g.blockStmts(r.finalizer)); err != nil {
				return err
			}
			g.line("END_TRY")
		}
	}
	return nil
}

func (g *codegen) breakStmt(n *ir.Break) error {
	if n.Label != "" {
		for i := len(g.loopStack) - 1; i >= 0; i-- {
			if g.loopStack[i].label == n.Label {
				target := i
				if err := g.unwindTrys(func(r *tryRegion) bool { return r.loopDepth > target }); err != nil {
					return err
				}
				g.line("JUMP %s", g.loopStack[target].end)
				return nil
			}
		}
		return fmt.Errorf("svm: unresolved break label %q", n.Label)
	}
	if len(g.breakable) == 0 {
		return fmt.Errorf("svm: break outside loop or switch")
	}
	target := len(g.breakable) - 1
	if err := g.unwindTrys(func(r *tryRegion) bool { return r.breakableDepth > target }); err != nil {
		return err
	}
	g.line("JUMP %s", g.breakable[target])
	return nil
}

func (g *codegen) continueStmt(n *ir.Continue) error {
	for i := len(g.loopStack) - 1; i >= 0; i-- {
		if !isLoop(g.loopStack[i]) {
			continue
		}
		if n.Label == "" || g.loopStack[i].label == n.Label {
			target := i
			if err := g.unwindTrys(func(r *tryRegion) bool { return r.loopDepth > target }); err != nil {
				return err
			}
			g.line("JUMP %s", g.loopStack[target].start)
			return nil
		}
	}
	return fmt.Errorf("svm: continue outside loop")
}

func isLoop(l loopLabels) bool {
	return l.start != ""
}

func (g *codegen) expr(id ir.NodeID) error {
	switch n := g.node(id).(type) {
	case *ir.Ident:
		g.line("LOAD %s", n.Name)
		return nil

	case *ir.Literal:
		switch n.Lit {
		case ir.LitNumber:
			g.line("PUSH_NUM %s", n.Value)
		case ir.LitString:
			g.line("PUSH_STR %s", strconv.Quote(n.Value))
		case ir.LitBool:
			g.line("PUSH_BOOL %s", n.Value)
		default:
			g.line("PUSH_NIL")
		}
		return nil

	case *ir.Template:
		count := 0
		for i, q := range n.Quasis {
			if q != "" {
				g.line("PUSH_STR %s", strconv.Quote(q))
				count++
			}
			if i < len(n.Exprs) {
				if err := g.expr(n.Exprs[i]); err != nil {
					return err
				}
				g.line("TO_STRING")
				count++
			}
		}
		if count == 0 {
			g.line("PUSH_STR \"\"")
			return nil
		}
		g.line("CONCAT %d", count)
		return nil

	case *ir.Binary:
		if err := g.expr(n.X); err != nil {
			return err
		}
		if err := g.expr(n.Y); err != nil {
			return err
		}
		g.line("BINOP %s", n.Op)
		return nil

	case *ir.Logical:
		return g.logical(n)

	case *ir.Unary:
		if err := g.expr(n.X); err != nil {
			return err
		}
		g.line("UNOP %s", n.Op)
		return nil

	case *ir.Cond:
		els := g.newLabel()
		end := g.newLabel()
		if err := g.expr(n.Test); err != nil {
			return err
		}
		g.line("JUMP_IF_FALSE %s", els)
		if err := g.expr(n.Then); err != nil {
			return err
		}
		g.line("JUMP %s", end)
		g.label(els)
		if err := g.expr(n.Else); err != nil {
			return err
		}
		g.label(end)
		return nil

	case *ir.Call:
		return g.call(n)

	case *ir.New:
		if err := g.expr(n.Callee); err != nil {
			return err
		}
		if err := g.pushArgs(n.Args); err != nil {
			return err
		}
		g.line("NEW %d", len(n.Args))
		return nil

	case *ir.Member:
		if err := g.expr(n.X); err != nil {
			return err
		}
		g.line("GETPROP %s", n.Name)
		return nil

	case *ir.Index:
		if err := g.expr(n.X); err != nil {
			return err
		}
		if err := g.expr(n.Key); err != nil {
			return err
		}
		g.line("GETINDEX")
		return nil

	case *ir.Elem:
		if err := g.expr(n.X); err != nil {
			return err
		}
		g.line("GETELEM %d", n.Pos)
		return nil

	case *ir.RestSlice:
		if err := g.expr(n.X); err != nil {
			return err
		}
		g.line("REST_SLICE %d", n.From)
		return nil

	case *ir.RestProps:
		if err := g.expr(n.X); err != nil {
			return err
		}
		g.line("REST_PROPS %s", strings.Join(n.Skip, ","))
		return nil

	case *ir.ArrayLit:
		for _, el := range n.Elems {
			if sp, ok := g.node(el).(*ir.Spread); ok {
				if err := g.expr(sp.X); err != nil {
					return err
				}
				g.line("SPREAD")
				continue
			}
			if err := g.expr(el); err != nil {
				return err
			}
		}
		g.line("MAKE_ARRAY %d", len(n.Elems))
		return nil

	case *ir.ObjectLit:
		for _, pid := range n.Props {
			p := g.node(pid).(*ir.Property)
			if p.Computed.IsValid() {
				if err := g.expr(p.Computed); err != nil {
					return err
				}
			} else {
				g.line("PUSH_STR %s", strconv.Quote(p.Key))
			}
			if err := g.expr(p.Value); err != nil {
				return err
			}
		}
		g.line("MAKE_OBJECT %d", len(n.Props))
		return nil

	case *ir.Spread:
		if err := g.expr(n.X); err != nil {
			return err
		}
		g.line("SPREAD")
		return nil

	case *ir.FuncLit:
		name := n.Name
		if name == "" {
			name = "<anon>"
		}
		if err := g.function(name, n.Params, n.Body, n.Async, n.Generator); err != nil {
			return err
		}
		g.line("CLOSURE")
		return nil

	case *ir.Await:
		if err := g.expr(n.X); err != nil {
			return err
		}
		g.line("AWAIT")
		return nil

	case *ir.Yield:
		if n.X.IsValid() {
			if err := g.expr(n.X); err != nil {
				return err
			}
		} else {
			g.line("PUSH_NIL")
		}
		if n.Delegate {
			g.line("YIELD_ALL")
		} else {
			g.line("YIELD")
		}
		return nil

	default:
		return g.unsupported(n)
	}
}

func (g *codegen) logical(n *ir.Logical) error {
	end := g.newLabel()
	if err := g.expr(n.X); err != nil {
		return err
	}
	g.line("DUP")
	switch n.Op {
	case "&&":
		g.line("JUMP_IF_FALSE %s", end)
	case "||":
		g.line("JUMP_IF_TRUE %s", end)
	case "??":
		g.line("JUMP_IF_DEFINED %s", end)
	default:
		return fmt.Errorf("svm: unknown logical operator %q", n.Op)
	}
	g.line("POP")
	if err := g.expr(n.Y); err != nil {
		return err
	}
	g.label(end)
	return nil
}

func (g *codegen) call(n *ir.Call) error {
	if member, ok := g.node(n.Callee).(*ir.Member); ok {
		if err := g.expr(member.X); err != nil {
			return err
		}
		if err := g.pushArgs(n.Args); err != nil {
			return err
		}
		g.line("INVOKE %s %d", member.Name, len(n.Args))
		return nil
	}
	if err := g.expr(n.Callee); err != nil {
		return err
	}
	if err := g.pushArgs(n.Args); err != nil {
		return err
	}
	g.line("CALL %d", len(n.Args))
	return nil
}

func (g *codegen) pushArgs(args []ir.NodeID) error {
	for _, a := range args {
		if err := g.expr(a); err != nil {
			return err
		}
	}
	return nil
}
