// Package lua emits Lua 5.2 source from validated IR. Tables carry
// objects and classes, coroutines carry async functions and
// generators, and pcall carries try/catch/finally. Emission is
// deterministic: identical IR yields byte-identical output.
package lua

import (
	"fmt"
	"strings"

	"github.com/ssdajoker/LUASCRIPT-sub000/internal/backend"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/ir"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/source"
)

// BackendID identifies this emitter in registries and errors.
const BackendID = "lua"

// Emitter is the table/coroutine backend. It is stateless; each Emit
// call runs on a private generator.
type Emitter struct{}

func New() *Emitter { return &Emitter{} }

func (e *Emitter) ID() string { return BackendID }

func (e *Emitter) Emit(m *ir.Module) (*backend.Output, error) {
	g := &generator{mod: m, indentStr: "    "}
	if err := g.run(); err != nil {
		return nil, err
	}
	return &backend.Output{Code: g.buf.String(), SourceMap: g.srcMap}, nil
}

type targetKind int

const (
	targetLoop targetKind = iota
	targetSwitch
	targetBlock
)

// jumpTarget is one enclosing statement a break or continue can land
// on. Goto labels are allocated up front and emitted only when a jump
// used them. depth records how many pcall closures were open when the
// target started, so a jump can tell whether it stays inside the
// innermost protected region or has to travel out as a sentinel.
type jumpTarget struct {
	kind         targetKind
	label        string // source label, "" when unlabeled
	depth        int
	continueName string
	continueUsed bool
	breakName    string
	breakUsed    bool
	post         ir.NodeID // post clause a continue must still run
}

// escape is a break or continue that left a protected closure as a
// sentinel value. Each pcall epilogue either dispatches it, when its
// target is in scope there, or forwards it to the next epilogue out.
type escape struct {
	isBreak bool
	label   string
}

func (e escape) sentinel() string {
	name := "__CONTINUE"
	if e.isBreak {
		name = "__BREAK"
	}
	if e.label == "" {
		return name
	}
	return fmt.Sprintf("{ %s, %s }", name, quote(e.label))
}

func (e escape) test(res string) string {
	name := "__CONTINUE"
	if e.isBreak {
		name = "__BREAK"
	}
	if e.label == "" {
		return fmt.Sprintf("%s == %s", res, name)
	}
	return fmt.Sprintf("%s[1] == %s and %s[2] == %s", res, name, res, quote(e.label))
}

// tryFrame is one open pcall closure and the escapes recorded while
// emitting its body.
type tryFrame struct {
	escapes []escape
}

type generator struct {
	mod       *ir.Module
	buf       strings.Builder
	indentStr string
	indent    int
	line      int
	srcMap    []backend.MapEntry

	labelCount int
	tmpCount   int
	frames     []*tryFrame // enclosing pcall closures in this function
	targets    []*jumpTarget
	superName  string // superclass name while emitting methods

	needs helperSet
}

type helperSet struct {
	slice     bool
	omit      bool
	nullish   bool
	ternary   bool
	sentinels bool
}

func (g *generator) run() error {
	g.scanHelpers()

	g.writeln("-- generated from module %q", g.mod.ID)
	g.emitPrelude()
	for _, id := range g.mod.Body {
		if err := g.emitStmt(id); err != nil {
			return err
		}
	}
	return nil
}

// scanHelpers decides which prelude helpers the module needs before
// any code is written, keeping the prelude stable.
func (g *generator) scanHelpers() {
	hasTry, hasJump := false, false
	for _, id := range g.mod.SortedNodeIDs() {
		switch n := g.mod.Nodes[id].(type) {
		case *ir.RestSlice:
			g.needs.slice = true
		case *ir.RestProps:
			g.needs.omit = true
		case *ir.Logical:
			if n.Op == "??" {
				g.needs.nullish = true
			}
		case *ir.Cond:
			g.needs.ternary = true
		case *ir.Try:
			hasTry = true
		case *ir.Break, *ir.Continue:
			hasJump = true
		}
	}
	g.needs.sentinels = hasTry && hasJump
}

func (g *generator) emitPrelude() {
	if g.needs.slice {
		g.writeln("local function __slice(t, from)")
		g.writeln("    local out = {}")
		g.writeln("    for i = from, #t do out[#out + 1] = t[i] end")
		g.writeln("    return out")
		g.writeln("end")
	}
	if g.needs.omit {
		g.writeln("local function __omit(t, skip)")
		g.writeln("    local out = {}")
		g.writeln("    for k, v in pairs(t) do")
		g.writeln("        if not skip[k] then out[k] = v end")
		g.writeln("    end")
		g.writeln("    return out")
		g.writeln("end")
	}
	if g.needs.nullish {
		g.writeln("local function __nullish(v, f)")
		g.writeln("    if v == nil then return f() end")
		g.writeln("    return v")
		g.writeln("end")
	}
	if g.needs.ternary {
		g.writeln("local function __ternary(c, a, b)")
		g.writeln("    if c then return a() end")
		g.writeln("    return b()")
		g.writeln("end")
	}
	if g.needs.sentinels {
		g.writeln("local __BREAK, __CONTINUE = {}, {}")
	}
	g.writeln("")
}

func (g *generator) write(format string, args ...any) {
	s := fmt.Sprintf(format, args...)
	g.line += strings.Count(s, "\n")
	g.buf.WriteString(s)
}

func (g *generator) writeIndent() {
	for i := 0; i < g.indent; i++ {
		g.buf.WriteString(g.indentStr)
	}
}

// writeln emits one indented line.
func (g *generator) writeln(format string, args ...any) {
	g.writeIndent()
	g.write(format, args...)
	g.write("\n")
}

// mark records the source span for the next generated line.
func (g *generator) mark(span source.Span) {
	if span.IsZero() {
		return
	}
	g.srcMap = append(g.srcMap, backend.MapEntry{Line: g.line + 1, Span: span})
}

func (g *generator) freshLabel(prefix string) string {
	g.labelCount++
	return fmt.Sprintf("__%s_%d", prefix, g.labelCount)
}

func (g *generator) freshTmp(prefix string) string {
	g.tmpCount++
	return fmt.Sprintf("__%s_%d", prefix, g.tmpCount)
}

func (g *generator) node(id ir.NodeID) ir.Node {
	return g.mod.MustNode(id)
}

func (g *generator) unsupported(n ir.Node) error {
	return &backend.UnsupportedError{NodeKind: n.Kind(), NodeID: n.ID(), BackendID: BackendID}
}

func (g *generator) emitStmts(ids []ir.NodeID) error {
	for _, id := range ids {
		if err := g.emitStmt(id); err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) emitStmt(id ir.NodeID) error {
	switch n := g.node(id).(type) {
	case *ir.VarDecl:
		return g.emitVarDecl(n)
	case *ir.FuncDecl:
		return g.emitFuncDecl(n)
	case *ir.TypeDecl:
		return g.emitTypeDecl(n)
	case *ir.Block:
		return g.emitBlockStmt(n)
	case *ir.ExprStmt:
		expr, err := g.exprString(n.X)
		if err != nil {
			return err
		}
		g.mark(n.Src)
		if isCallLike(g.node(n.X)) {
			g.writeln("%s", expr)
		} else {
			// Lua rejects bare expression statements
			g.writeln("local _ = %s", expr)
		}
		return nil
	case *ir.Assign:
		return g.emitAssign(n)
	case *ir.If:
		return g.emitIf(n)
	case *ir.While:
		return g.emitWhile(n)
	case *ir.IterLoop:
		return g.emitIterLoop(n)
	case *ir.Switch:
		return g.emitSwitch(n)
	case *ir.Try:
		return g.emitTry(n)
	case *ir.Break:
		return g.emitBreak(n)
	case *ir.Continue:
		return g.emitContinue(n)
	case *ir.Return:
		return g.emitReturn(n)
	case *ir.Throw:
		arg, err := g.exprString(n.Arg)
		if err != nil {
			return err
		}
		g.mark(n.Src)
		g.writeln("error(%s)", arg)
		return nil
	default:
		return g.unsupported(n)
	}
}

func isCallLike(n ir.Node) bool {
	switch n.Kind() {
	case ir.KindCall, ir.KindNew, ir.KindAwait, ir.KindYield:
		return true
	}
	return false
}

func (g *generator) emitVarDecl(n *ir.VarDecl) error {
	g.mark(n.Src)
	if !n.Init.IsValid() {
		g.writeln("local %s", luaName(n.Name))
		return nil
	}
	init, err := g.exprString(n.Init)
	if err != nil {
		return err
	}
	g.writeln("local %s = %s", luaName(n.Name), init)
	return nil
}

func (g *generator) emitBlockStmt(n *ir.Block) error {
	g.mark(n.Src)
	if n.Label != "" {
		// a labeled block is a break target
		g.targets = append(g.targets, &jumpTarget{
			kind:      targetBlock,
			label:     n.Label,
			depth:     len(g.frames),
			breakName: "__break_" + n.Label,
		})
	}
	g.writeln("do")
	g.indent++
	err := g.emitStmts(n.Stmts)
	g.indent--
	if n.Label != "" {
		g.targets = g.targets[:len(g.targets)-1]
	}
	if err != nil {
		return err
	}
	g.writeln("end")
	if n.Label != "" {
		g.writeln("::__break_%s::", n.Label)
	}
	return nil
}

func (g *generator) emitAssign(n *ir.Assign) error {
	target, err := g.exprString(n.Target)
	if err != nil {
		return err
	}
	value, err := g.exprString(n.Value)
	if err != nil {
		return err
	}
	g.mark(n.Src)
	if n.Op == "=" {
		g.writeln("%s = %s", target, value)
		return nil
	}
	// Lua has no compound assignment
	op := strings.TrimSuffix(n.Op, "=")
	if op == "+" && g.stringish(n.Value) {
		op = ".."
	}
	g.writeln("%s = %s %s (%s)", target, target, op, value)
	return nil
}

func (g *generator) emitIf(n *ir.If) error {
	cond, err := g.exprString(n.Cond)
	if err != nil {
		return err
	}
	g.mark(n.Src)
	g.writeln("if %s then", cond)
	g.indent++
	if err := g.emitStmts(g.blockStmts(n.Then)); err != nil {
		g.indent--
		return err
	}
	g.indent--
	if n.Else.IsValid() {
		g.writeln("else")
		g.indent++
		if err := g.emitStmts(g.blockStmts(n.Else)); err != nil {
			g.indent--
			return err
		}
		g.indent--
	}
	g.writeln("end")
	return nil
}

// blockStmts unwraps a Block child into its statement list.
func (g *generator) blockStmts(id ir.NodeID) []ir.NodeID {
	if b, ok := g.node(id).(*ir.Block); ok {
		return b.Stmts
	}
	return []ir.NodeID{id}
}

func (g *generator) emitWhile(n *ir.While) error {
	cond, err := g.exprString(n.Cond)
	if err != nil {
		return err
	}
	loop := &jumpTarget{
		kind:         targetLoop,
		label:        n.Label,
		depth:        len(g.frames),
		continueName: g.freshLabel("continue"),
		breakName:    g.freshLabel("break"),
		post:         n.Post,
	}
	g.targets = append(g.targets, loop)

	g.mark(n.Src)
	g.writeln("while %s do", cond)
	g.indent++
	err = g.emitStmts(g.blockStmts(n.Body))
	if err == nil {
		err = g.emitLoopTail(loop)
	}
	g.indent--
	g.targets = g.targets[:len(g.targets)-1]
	if err != nil {
		return err
	}
	g.writeln("end")
	if loop.breakUsed {
		g.writeln("::%s::", loop.breakName)
	}
	return nil
}

// emitLoopTail closes a loop body: the continue label (when used) and
// the post clause, which runs on every iteration.
func (g *generator) emitLoopTail(loop *jumpTarget) error {
	if loop.continueUsed {
		g.writeln("::%s::", loop.continueName)
	}
	if loop.post.IsValid() {
		return g.emitStmts(g.blockStmts(loop.post))
	}
	return nil
}

func (g *generator) emitIterLoop(n *ir.IterLoop) error {
	src, err := g.exprString(n.Source)
	if err != nil {
		return err
	}
	target := g.node(n.Target).(*ir.VarDecl)
	loop := &jumpTarget{
		kind:         targetLoop,
		label:        n.Label,
		depth:        len(g.frames),
		continueName: g.freshLabel("continue"),
		breakName:    g.freshLabel("break"),
	}
	g.targets = append(g.targets, loop)

	g.mark(n.Src)
	if n.Mode == ir.IterOf {
		g.writeln("for _, %s in ipairs(%s) do", luaName(target.Name), src)
	} else {
		g.writeln("for %s in pairs(%s) do", luaName(target.Name), src)
	}
	g.indent++
	err = g.emitStmts(n.Prologue)
	if err == nil {
		err = g.emitStmts(g.blockStmts(n.Body))
	}
	if err == nil {
		err = g.emitLoopTail(loop)
	}
	g.indent--
	g.targets = g.targets[:len(g.targets)-1]
	if err != nil {
		return err
	}
	g.writeln("end")
	if loop.breakUsed {
		g.writeln("::%s::", loop.breakName)
	}
	return nil
}

// breakTarget finds the innermost target a break with the given label
// lands on. An unlabeled break skips labeled blocks.
func (g *generator) breakTarget(label string) *jumpTarget {
	for i := len(g.targets) - 1; i >= 0; i-- {
		t := g.targets[i]
		if label == "" {
			if t.kind != targetBlock {
				return t
			}
			continue
		}
		if t.label == label {
			return t
		}
	}
	return nil
}

// continueTarget finds the innermost loop a continue with the given
// label lands on.
func (g *generator) continueTarget(label string) *jumpTarget {
	for i := len(g.targets) - 1; i >= 0; i-- {
		t := g.targets[i]
		if t.kind != targetLoop {
			continue
		}
		if label == "" || t.label == label {
			return t
		}
	}
	return nil
}

// recordEscape notes a sentinel jump leaving the innermost open pcall
// closure so its epilogue knows to dispatch or forward it.
func (g *generator) recordEscape(e escape) {
	f := g.frames[len(g.frames)-1]
	for _, have := range f.escapes {
		if have == e {
			return
		}
	}
	f.escapes = append(f.escapes, e)
}

func (g *generator) emitBreak(n *ir.Break) error {
	g.mark(n.Src)
	t := g.breakTarget(n.Label)
	if t == nil {
		if n.Label == "" {
			g.writeln("break")
			return nil
		}
		return fmt.Errorf("lua: unresolved break label %q at %s", n.Label, n.Src)
	}
	if t.depth < len(g.frames) {
		e := escape{isBreak: true, label: n.Label}
		g.recordEscape(e)
		g.writeln("return %s", e.sentinel())
		return nil
	}
	if n.Label == "" {
		g.writeln("break")
		return nil
	}
	t.breakUsed = true
	g.writeln("goto %s", t.breakName)
	return nil
}

func (g *generator) emitContinue(n *ir.Continue) error {
	g.mark(n.Src)
	t := g.continueTarget(n.Label)
	if t == nil {
		return fmt.Errorf("lua: continue outside loop at %s", n.Src)
	}
	if t.depth < len(g.frames) {
		e := escape{label: n.Label}
		g.recordEscape(e)
		g.writeln("return %s", e.sentinel())
		return nil
	}
	t.continueUsed = true
	g.writeln("goto %s", t.continueName)
	return nil
}

func (g *generator) emitReturn(n *ir.Return) error {
	g.mark(n.Src)
	if len(g.frames) > 0 {
		// wrapped so the protected-call epilogue can tell a return
		// from normal completion
		if !n.Arg.IsValid() {
			g.writeln("return {}")
			return nil
		}
		arg, err := g.exprString(n.Arg)
		if err != nil {
			return err
		}
		g.writeln("return { %s }", arg)
		return nil
	}
	if !n.Arg.IsValid() {
		g.writeln("return")
		return nil
	}
	arg, err := g.exprString(n.Arg)
	if err != nil {
		return err
	}
	g.writeln("return %s", arg)
	return nil
}
