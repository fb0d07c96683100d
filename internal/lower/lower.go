// Package lower converts the parsed AST into IR, expanding
// destructuring patterns and desugaring control-flow, class, and async
// constructs. Lowering is all-or-nothing: the first error aborts the
// module and no partial IR is produced.
package lower

import (
	"fmt"
	"strings"

	"github.com/ssdajoker/LUASCRIPT-sub000/internal/diagnostics"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/frontend/ast"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/ir"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/source"
)

// Error is a lowering failure with full source context.
type Error struct {
	Code     string
	Message  string
	NodeType string
	Span     source.Span
}

func (e *Error) Error() string {
	if e.NodeType != "" {
		return fmt.Sprintf("%s: %s (%s at %s)", e.Code, e.Message, e.NodeType, e.Span)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Span)
}

// abort carries an Error up to the Lower entry point, together with
// the fully built diagnostic when the failure came from one of the
// shared builders.
type abort struct {
	err  *Error
	diag *diagnostics.Diagnostic
}

type labelKind int

const (
	labelLoop labelKind = iota
	labelBlock
)

type labelEntry struct {
	name string
	kind labelKind
}

// Options configures one lowering run.
type Options struct {
	ModuleID string
	Seed     uint32 // id-generator seed; fix for reproducibility
	Diags    *diagnostics.Bag
}

// Lowerer holds per-run state. Never share one across concurrent
// invocations.
type Lowerer struct {
	mod         *ir.Module
	diags       *diagnostics.Bag
	scopes      *scopeStack
	labels      []labelEntry
	loopDepth   int
	switchDepth int
	tmpCount    int
}

// Lower converts a program to an IR module. On failure the diagnostic
// is recorded in the bag and no module is returned.
func Lower(prog *ast.Program, opts Options) (m *ir.Module, err error) {
	if opts.Diags == nil {
		opts.Diags = diagnostics.NewBag()
	}
	l := &Lowerer{
		mod:    ir.NewModule(opts.ModuleID, opts.Seed),
		diags:  opts.Diags,
		scopes: newScopeStack(),
	}

	defer func() {
		if r := recover(); r != nil {
			a, ok := r.(abort)
			if !ok {
				panic(r)
			}
			l.report(a)
			m, err = nil, a.err
		}
	}()

	l.mod.SourceName = prog.SourceName
	l.mod.Directives = append([]string(nil), prog.Directives...)
	l.mod.Body = l.lowerStmts(prog.Body)
	l.recordExports()

	if captures := l.scopes.globalCaptures(); len(captures) > 0 {
		if l.mod.Metadata == nil {
			l.mod.Metadata = make(map[string]string)
		}
		l.mod.Metadata["globalCaptures"] = strings.Join(captures, ",")
	}
	return l.mod, nil
}

func (l *Lowerer) report(a abort) {
	d := a.diag
	if d == nil {
		d = diagnostics.NewError(a.err.Message).
			WithCode(a.err.Code).
			WithPrimaryLabel(a.err.Span, "")
	}
	if a.err.NodeType != "" {
		d.WithNote("while lowering " + a.err.NodeType)
	}
	l.diags.Add(d)
}

func (l *Lowerer) fail(code, message, nodeType string, span source.Span) {
	panic(abort{err: &Error{Code: code, Message: message, NodeType: nodeType, Span: span}})
}

// failWith aborts with a diagnostic from one of the shared builders.
func (l *Lowerer) failWith(d *diagnostics.Diagnostic, nodeType string, span source.Span) {
	panic(abort{
		err:  &Error{Code: d.Code, Message: d.Message, NodeType: nodeType, Span: span},
		diag: d,
	})
}

func (l *Lowerer) unsupported(n ast.Node) {
	l.failWith(diagnostics.UnsupportedConstruct(n.Loc(), fmt.Sprintf("%T", n)), fmt.Sprintf("%T", n), n.Loc())
}

// add places a node in the module arena and returns its id.
func (l *Lowerer) add(n ir.Node) ir.NodeID {
	return l.mod.Add(n)
}

func (l *Lowerer) freshTmp(hint string) string {
	l.tmpCount++
	return fmt.Sprintf("__%s_%d", hint, l.tmpCount)
}

// recordExports registers top-level declarations in the module's
// export table.
func (l *Lowerer) recordExports() {
	for _, id := range l.mod.Body {
		switch n := l.mod.MustNode(id).(type) {
		case *ir.FuncDecl:
			l.mod.Exports[n.Name] = id
		case *ir.TypeDecl:
			l.mod.Exports[n.Name] = id
		case *ir.VarDecl:
			l.mod.Exports[n.Name] = id
		}
	}
}

// lowerStmts lowers a statement list into ir ids, hoisting function
// and class names so forward references resolve.
func (l *Lowerer) lowerStmts(stmts []ast.Statement) []ir.NodeID {
	// hoist: function/class names are visible to the whole block
	hoisted := make(map[string]ir.NodeID)
	for _, s := range stmts {
		switch d := s.(type) {
		case *ast.FuncDecl:
			id := l.mod.NewID()
			hoisted[d.Name] = id
			l.scopes.bind(d.Name, id)
		case *ast.ClassDecl:
			id := l.mod.NewID()
			hoisted[d.Name] = id
			l.scopes.bind(d.Name, id)
		}
	}

	var out []ir.NodeID
	for _, s := range stmts {
		switch d := s.(type) {
		case *ast.FuncDecl:
			out = append(out, l.lowerFuncDecl(d, hoisted[d.Name]))
		case *ast.ClassDecl:
			out = append(out, l.lowerClassDecl(d, hoisted[d.Name]))
		default:
			out = append(out, l.lowerStmt(s)...)
		}
	}
	return out
}

// lowerStmt lowers one statement. Statements that desugar to multiple
// effects return an ordered sequence substituted in place, preserving
// source-order evaluation.
func (l *Lowerer) lowerStmt(s ast.Statement) []ir.NodeID {
	switch n := s.(type) {
	case *ast.VarDecl:
		return l.lowerVarDecl(n)
	case *ast.Block:
		return []ir.NodeID{l.lowerBlock(n, "")}
	case *ast.ExprStmt:
		return l.lowerExprStmt(n)
	case *ast.IfStmt:
		return []ir.NodeID{l.lowerIf(n)}
	case *ast.WhileStmt:
		return []ir.NodeID{l.lowerWhile(n, "")}
	case *ast.ForStmt:
		return []ir.NodeID{l.lowerFor(n, "")}
	case *ast.ForOfStmt:
		return []ir.NodeID{l.lowerForOf(n, ir.IterOf, "")}
	case *ast.ForInStmt:
		fo := &ast.ForOfStmt{Kind: n.Kind, Target: n.Target, Source: n.Source, Body: n.Body, Span: n.Span}
		return []ir.NodeID{l.lowerForOf(fo, ir.IterIn, "")}
	case *ast.SwitchStmt:
		return []ir.NodeID{l.lowerSwitch(n)}
	case *ast.TryStmt:
		return []ir.NodeID{l.lowerTry(n)}
	case *ast.LabeledStmt:
		return []ir.NodeID{l.lowerLabeled(n)}
	case *ast.BreakStmt:
		return []ir.NodeID{l.lowerBreak(n)}
	case *ast.ContinueStmt:
		return []ir.NodeID{l.lowerContinue(n)}
	case *ast.ReturnStmt:
		var arg ir.NodeID
		if n.Arg != nil {
			arg = l.lowerExpr(n.Arg)
		}
		return []ir.NodeID{l.add(&ir.Return{NID: l.mod.NewID(), Arg: arg, Src: n.Span})}
	case *ast.ThrowStmt:
		arg := l.lowerExpr(n.Arg)
		return []ir.NodeID{l.add(&ir.Throw{NID: l.mod.NewID(), Arg: arg, Src: n.Span})}
	default:
		l.unsupported(s)
		return nil
	}
}

func (l *Lowerer) lowerBlock(b *ast.Block, label string) ir.NodeID {
	l.scopes.push()
	stmts := l.lowerStmts(b.Body)
	l.scopes.pop()
	return l.add(&ir.Block{NID: l.mod.NewID(), Stmts: stmts, Label: label, Src: b.Span})
}

// lowerBodyAsBlock lowers a statement that serves as a loop/branch
// body, wrapping single statements in a Block.
func (l *Lowerer) lowerBodyAsBlock(s ast.Statement) ir.NodeID {
	if b, ok := s.(*ast.Block); ok {
		return l.lowerBlock(b, "")
	}
	l.scopes.push()
	stmts := l.lowerStmt(s)
	l.scopes.pop()
	return l.add(&ir.Block{NID: l.mod.NewID(), Stmts: stmts, Src: s.Loc()})
}

func (l *Lowerer) lowerExprStmt(n *ast.ExprStmt) []ir.NodeID {
	if assign, ok := n.X.(*ast.AssignExpr); ok {
		return l.lowerAssign(assign)
	}
	x := l.lowerExpr(n.X)
	return []ir.NodeID{l.add(&ir.ExprStmt{NID: l.mod.NewID(), X: x, Src: n.Span})}
}

func (l *Lowerer) lowerIf(n *ast.IfStmt) ir.NodeID {
	cond := l.lowerExpr(n.Test)
	then := l.lowerBodyAsBlock(n.Then)
	var els ir.NodeID
	if n.Else != nil {
		els = l.lowerBodyAsBlock(n.Else)
	}
	return l.add(&ir.If{NID: l.mod.NewID(), Cond: cond, Then: then, Else: els, Src: n.Span})
}

func (l *Lowerer) lowerWhile(n *ast.WhileStmt, label string) ir.NodeID {
	cond := l.lowerExpr(n.Test)
	l.enterLoop(label)
	body := l.lowerBodyAsBlock(n.Body)
	l.exitLoop(label)
	return l.add(&ir.While{NID: l.mod.NewID(), Cond: cond, Body: body, Label: label, Src: n.Span})
}

// lowerFor desugars a classic three-clause loop into a scoped block
// holding the init followed by a canonical While with a post clause.
func (l *Lowerer) lowerFor(n *ast.ForStmt, label string) ir.NodeID {
	l.scopes.push()
	defer l.scopes.pop()

	var init []ir.NodeID
	if n.Init != nil {
		init = l.lowerStmt(n.Init)
	}

	var cond ir.NodeID
	if n.Test != nil {
		cond = l.lowerExpr(n.Test)
	} else {
		cond = l.add(&ir.Literal{NID: l.mod.NewID(), Lit: ir.LitBool, Value: "true", Src: n.Span})
	}

	l.enterLoop(label)
	body := l.lowerBodyAsBlock(n.Body)
	l.exitLoop(label)

	var post ir.NodeID
	if n.Post != nil {
		postStmts := l.lowerExprStmt(&ast.ExprStmt{X: n.Post, Span: n.Post.Loc()})
		post = l.add(&ir.Block{NID: l.mod.NewID(), Stmts: postStmts, Src: n.Post.Loc()})
	}

	loop := l.add(&ir.While{NID: l.mod.NewID(), Cond: cond, Body: body, Post: post, Label: label, Src: n.Span})
	if len(init) == 0 {
		return loop
	}
	return l.add(&ir.Block{NID: l.mod.NewID(), Stmts: append(init, loop), Src: n.Span})
}

// lowerForOf lowers for-of/for-in to the canonical iterator-protocol
// loop: bind the raw value each iteration, then run the destructuring
// prologue before the body.
func (l *Lowerer) lowerForOf(n *ast.ForOfStmt, mode ir.IterMode, label string) ir.NodeID {
	src := l.lowerExpr(n.Source)

	l.scopes.push()
	defer l.scopes.pop()

	bind := bindKind(n.Kind)
	var target ir.NodeID
	var prologue []ir.NodeID

	if ident, ok := n.Target.(*ast.Identifier); ok {
		target = l.declare(ident.Name, bind, ir.NoNodeID, ident.Span)
	} else {
		tmp := l.freshTmp("it")
		target = l.declare(tmp, bind, ir.NoNodeID, n.Target.Loc())
		tmpRef := func(span source.Span) ir.NodeID { return l.identRef(tmp, span) }
		prologue = l.expandPattern(n.Target, tmpRef, bind)
	}

	l.enterLoop(label)
	body := l.lowerBodyAsBlock(n.Body)
	l.exitLoop(label)

	return l.add(&ir.IterLoop{
		NID:      l.mod.NewID(),
		Mode:     mode,
		Target:   target,
		Prologue: prologue,
		Source:   src,
		Body:     body,
		Label:    label,
		Src:      n.Span,
	})
}

func (l *Lowerer) lowerSwitch(n *ast.SwitchStmt) ir.NodeID {
	disc := l.lowerExpr(n.Disc)
	l.switchDepth++
	cases := make([]ir.NodeID, 0, len(n.Cases))
	for _, c := range n.Cases {
		var test ir.NodeID
		if c.Test != nil {
			test = l.lowerExpr(c.Test)
		}
		l.scopes.push()
		body := l.lowerStmts(c.Body)
		l.scopes.pop()
		cases = append(cases, l.add(&ir.Case{NID: l.mod.NewID(), Test: test, Body: body, Src: c.Span}))
	}
	l.switchDepth--
	return l.add(&ir.Switch{NID: l.mod.NewID(), Disc: disc, Cases: cases, Src: n.Span})
}

func (l *Lowerer) lowerTry(n *ast.TryStmt) ir.NodeID {
	// the Try node itself declares the catch binding, so its id is
	// allocated up front for references inside the handler to point at
	tryID := l.mod.NewID()
	block := l.lowerBlock(n.Block, "")

	var catchName string
	var handler ir.NodeID
	if n.Handler != nil {
		l.scopes.push()
		switch param := n.CatchParam.(type) {
		case nil:
			catchName = l.freshTmp("err")
		case *ast.Identifier:
			catchName = param.Name
			l.scopes.bind(catchName, tryID)
		default:
			// destructured catch parameter: bind a temp, expand into
			// the handler prologue
			catchName = l.freshTmp("err")
			l.scopes.bind(catchName, tryID)
			tmpRef := func(span source.Span) ir.NodeID { return l.identRef(catchName, span) }
			prologue := l.expandPattern(param, tmpRef, ir.BindLet)
			stmts := l.lowerStmts(n.Handler.Body)
			handler = l.add(&ir.Block{NID: l.mod.NewID(), Stmts: append(prologue, stmts...), Src: n.Handler.Span})
		}
		if !handler.IsValid() {
			handler = l.lowerBlock(n.Handler, "")
		}
		l.scopes.pop()
	}

	var finalizer ir.NodeID
	if n.Finalizer != nil {
		finalizer = l.lowerBlock(n.Finalizer, "")
	}

	return l.add(&ir.Try{
		NID:       tryID,
		Block:     block,
		CatchName: catchName,
		Handler:   handler,
		Finalizer: finalizer,
		Src:       n.Span,
	})
}

// lowerLabeled attaches the label to the nearest enclosing loop or
// block instead of keeping a separate node.
func (l *Lowerer) lowerLabeled(n *ast.LabeledStmt) ir.NodeID {
	switch body := n.Body.(type) {
	case *ast.WhileStmt:
		return l.lowerWhile(body, n.Label)
	case *ast.ForStmt:
		return l.lowerFor(body, n.Label)
	case *ast.ForOfStmt:
		return l.lowerForOf(body, ir.IterOf, n.Label)
	case *ast.ForInStmt:
		fo := &ast.ForOfStmt{Kind: body.Kind, Target: body.Target, Source: body.Source, Body: body.Body, Span: body.Span}
		return l.lowerForOf(fo, ir.IterIn, n.Label)
	case *ast.Block:
		l.labels = append(l.labels, labelEntry{name: n.Label, kind: labelBlock})
		id := l.lowerBlock(body, n.Label)
		l.labels = l.labels[:len(l.labels)-1]
		return id
	default:
		// a labeled non-loop statement still provides a break target
		l.labels = append(l.labels, labelEntry{name: n.Label, kind: labelBlock})
		l.scopes.push()
		stmts := l.lowerStmt(body)
		l.scopes.pop()
		l.labels = l.labels[:len(l.labels)-1]
		return l.add(&ir.Block{NID: l.mod.NewID(), Stmts: stmts, Label: n.Label, Src: n.Span})
	}
}

func (l *Lowerer) lowerBreak(n *ast.BreakStmt) ir.NodeID {
	if n.Label != "" {
		if !l.labelInScope(n.Label, false) {
			l.failWith(diagnostics.UnresolvedLabel(n.Span, n.Label), "BreakStmt", n.Span)
		}
	} else if l.loopDepth == 0 && l.switchDepth == 0 {
		l.failWith(diagnostics.BreakOutsideLoop(n.Span), "BreakStmt", n.Span)
	}
	return l.add(&ir.Break{NID: l.mod.NewID(), Label: n.Label, Src: n.Span})
}

func (l *Lowerer) lowerContinue(n *ast.ContinueStmt) ir.NodeID {
	if n.Label != "" {
		if !l.labelInScope(n.Label, true) {
			l.failWith(diagnostics.UnresolvedLabel(n.Span, n.Label), "ContinueStmt", n.Span)
		}
	} else if l.loopDepth == 0 {
		l.failWith(diagnostics.ContinueOutsideLoop(n.Span), "ContinueStmt", n.Span)
	}
	return l.add(&ir.Continue{NID: l.mod.NewID(), Label: n.Label, Src: n.Span})
}

func (l *Lowerer) enterLoop(label string) {
	l.loopDepth++
	if label != "" {
		l.labels = append(l.labels, labelEntry{name: label, kind: labelLoop})
	}
}

func (l *Lowerer) exitLoop(label string) {
	l.loopDepth--
	if label != "" {
		l.labels = l.labels[:len(l.labels)-1]
	}
}

// labelInScope reports whether the named label encloses the current
// statement. Continue additionally requires a loop label.
func (l *Lowerer) labelInScope(name string, needLoop bool) bool {
	for i := len(l.labels) - 1; i >= 0; i-- {
		if l.labels[i].name == name {
			return !needLoop || l.labels[i].kind == labelLoop
		}
	}
	return false
}

func bindKind(k ast.DeclKind) ir.BindKind {
	switch k {
	case ast.DeclConst:
		return ir.BindConst
	case ast.DeclLet:
		return ir.BindLet
	default:
		return ir.BindVar
	}
}

// declare allocates a VarDecl, binds it in the current frame, and
// returns its id.
func (l *Lowerer) declare(name string, bind ir.BindKind, init ir.NodeID, span source.Span) ir.NodeID {
	id := l.mod.NewID()
	l.mod.Add(&ir.VarDecl{NID: id, Name: name, Bind: bind, Init: init, Src: span})
	l.scopes.bind(name, id)
	return id
}

// identRef builds a resolved identifier reference.
func (l *Lowerer) identRef(name string, span source.Span) ir.NodeID {
	binding, ok := l.scopes.resolve(name)
	return l.add(&ir.Ident{NID: l.mod.NewID(), Name: name, Binding: binding, Global: !ok, Src: span})
}
