package ir

import (
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/source"
)

// Node is the base interface for all IR nodes. Nodes are immutable
// once placed in a module; "changing" one means allocating a new node
// and rewriting the parent's reference.
type Node interface {
	irNode()
	ID() NodeID
	Kind() Kind
	Span() source.Span
}

// BindKind distinguishes const/let/var bindings.
type BindKind int

const (
	BindConst BindKind = iota
	BindLet
	BindVar
)

func (k BindKind) String() string {
	switch k {
	case BindConst:
		return "const"
	case BindLet:
		return "let"
	default:
		return "var"
	}
}

// LitKind defines the kinds of literal values.
type LitKind int

const (
	LitNumber LitKind = iota
	LitString
	LitBool
	LitNull
	LitUndefined // the "missing" sentinel; the only value that triggers pattern defaults
)

func (k LitKind) String() string {
	switch k {
	case LitNumber:
		return "number"
	case LitString:
		return "string"
	case LitBool:
		return "bool"
	case LitNull:
		return "null"
	case LitUndefined:
		return "undefined"
	default:
		return "unknown"
	}
}

// IterMode distinguishes value iteration (for-of) from key iteration
// (for-in).
type IterMode int

const (
	IterOf IterMode = iota
	IterIn
)

func (m IterMode) String() string {
	if m == IterIn {
		return "in"
	}
	return "of"
}

// VarDecl binds a single name. Destructuring declarations are expanded
// upstream, so one VarDecl always carries exactly one plain name.
type VarDecl struct {
	NID  NodeID      `json:"id"`
	Name string      `json:"name"`
	Bind BindKind    `json:"bind"`
	Init NodeID      `json:"init,omitempty"` // expression; NoNodeID for uninitialized let/var
	Src  source.Span `json:"span"`
}

func (n *VarDecl) irNode()           {}
func (n *VarDecl) ID() NodeID        { return n.NID }
func (n *VarDecl) Kind() Kind        { return KindVarDecl }
func (n *VarDecl) Span() source.Span { return n.Src }

// Param is a single function parameter.
type Param struct {
	NID     NodeID      `json:"id"`
	Name    string      `json:"name"`
	Rest    bool        `json:"rest,omitempty"`
	Default NodeID      `json:"default,omitempty"`
	Src     source.Span `json:"span"`
}

func (n *Param) irNode()           {}
func (n *Param) ID() NodeID        { return n.NID }
func (n *Param) Kind() Kind        { return KindParam }
func (n *Param) Span() source.Span { return n.Src }

// FuncDecl declares a named function. For async functions the body
// contains Await suspension markers; the pipeline itself never
// schedules anything.
type FuncDecl struct {
	NID       NodeID      `json:"id"`
	Name      string      `json:"name"`
	Params    []NodeID    `json:"params"`
	Body      NodeID      `json:"body"` // Block
	Async     bool        `json:"async,omitempty"`
	Generator bool        `json:"generator,omitempty"`
	Src       source.Span `json:"span"`
}

func (n *FuncDecl) irNode()           {}
func (n *FuncDecl) ID() NodeID        { return n.NID }
func (n *FuncDecl) Kind() Kind        { return KindFuncDecl }
func (n *FuncDecl) Span() source.Span { return n.Src }

// TypeDecl is a lowered class. The superclass is stored by name and
// resolved at emission time, not lowering time.
type TypeDecl struct {
	NID       NodeID      `json:"id"`
	Name      string      `json:"name"`
	SuperName string      `json:"superName,omitempty"`
	Methods   []NodeID    `json:"methods"`           // FuncDecl nodes; receiver is implicit
	Statics   []NodeID    `json:"statics,omitempty"` // FuncDecl nodes attached to the type itself
	Src       source.Span `json:"span"`
}

func (n *TypeDecl) irNode()           {}
func (n *TypeDecl) ID() NodeID        { return n.NID }
func (n *TypeDecl) Kind() Kind        { return KindTypeDecl }
func (n *TypeDecl) Span() source.Span { return n.Src }

// Block is an ordered statement list. A label, when set, names the
// block as a break target.
type Block struct {
	NID   NodeID      `json:"id"`
	Stmts []NodeID    `json:"stmts"`
	Label string      `json:"label,omitempty"`
	Src   source.Span `json:"span"`
}

func (n *Block) irNode()           {}
func (n *Block) ID() NodeID        { return n.NID }
func (n *Block) Kind() Kind        { return KindBlock }
func (n *Block) Span() source.Span { return n.Src }

// ExprStmt evaluates an expression for effect.
type ExprStmt struct {
	NID NodeID      `json:"id"`
	X   NodeID      `json:"x"`
	Src source.Span `json:"span"`
}

func (n *ExprStmt) irNode()           {}
func (n *ExprStmt) ID() NodeID        { return n.NID }
func (n *ExprStmt) Kind() Kind        { return KindExprStmt }
func (n *ExprStmt) Span() source.Span { return n.Src }

// If is a two-way branch.
type If struct {
	NID  NodeID      `json:"id"`
	Cond NodeID      `json:"cond"`
	Then NodeID      `json:"then"`
	Else NodeID      `json:"else,omitempty"`
	Src  source.Span `json:"span"`
}

func (n *If) irNode()           {}
func (n *If) ID() NodeID        { return n.NID }
func (n *If) Kind() Kind        { return KindIf }
func (n *If) Span() source.Span { return n.Src }

// While is the canonical pre-test loop; classic for loops desugar
// into it. Post, when set, runs after the body on every iteration,
// including ones cut short by continue.
type While struct {
	NID   NodeID      `json:"id"`
	Cond  NodeID      `json:"cond"`
	Body  NodeID      `json:"body"`
	Post  NodeID      `json:"post,omitempty"`
	Label string      `json:"label,omitempty"`
	Src   source.Span `json:"span"`
}

func (n *While) irNode()           {}
func (n *While) ID() NodeID        { return n.NID }
func (n *While) Kind() Kind        { return KindWhile }
func (n *While) Span() source.Span { return n.Src }

// IterLoop is the canonical iterator-protocol loop produced from
// for-of and for-in. Target binds the raw iterated value (or key);
// Prologue holds the VarDecls that destructure it, prepended to each
// iteration of Body.
type IterLoop struct {
	NID      NodeID      `json:"id"`
	Mode     IterMode    `json:"mode"`
	Target   NodeID      `json:"target"` // VarDecl without init; bound each iteration
	Prologue []NodeID    `json:"prologue,omitempty"`
	Source   NodeID      `json:"source"`
	Body     NodeID      `json:"body"`
	Label    string      `json:"label,omitempty"`
	Src      source.Span `json:"span"`
}

func (n *IterLoop) irNode()           {}
func (n *IterLoop) ID() NodeID        { return n.NID }
func (n *IterLoop) Kind() Kind        { return KindIterLoop }
func (n *IterLoop) Span() source.Span { return n.Src }

// Switch dispatches on a discriminant, preserving fallthrough unless a
// case body breaks.
type Switch struct {
	NID   NodeID      `json:"id"`
	Disc  NodeID      `json:"disc"`
	Cases []NodeID    `json:"cases"` // Case nodes; at most one default
	Src   source.Span `json:"span"`
}

func (n *Switch) irNode()           {}
func (n *Switch) ID() NodeID        { return n.NID }
func (n *Switch) Kind() Kind        { return KindSwitch }
func (n *Switch) Span() source.Span { return n.Src }

// Case is one switch clause. Test is NoNodeID for default, which
// matches only if no other case matched.
type Case struct {
	NID  NodeID      `json:"id"`
	Test NodeID      `json:"test,omitempty"`
	Body []NodeID    `json:"body"`
	Src  source.Span `json:"span"`
}

func (n *Case) irNode()           {}
func (n *Case) ID() NodeID        { return n.NID }
func (n *Case) Kind() Kind        { return KindCase }
func (n *Case) Span() source.Span { return n.Src }

// Try is try/catch/finally. The finalizer executes exactly once on
// every exit path out of Block.
type Try struct {
	NID       NodeID      `json:"id"`
	Block     NodeID      `json:"block"`
	CatchName string      `json:"catchName,omitempty"`
	Handler   NodeID      `json:"handler,omitempty"`
	Finalizer NodeID      `json:"finalizer,omitempty"`
	Src       source.Span `json:"span"`
}

func (n *Try) irNode()           {}
func (n *Try) ID() NodeID        { return n.NID }
func (n *Try) Kind() Kind        { return KindTry }
func (n *Try) Span() source.Span { return n.Src }

// Break exits the nearest enclosing loop/switch, or the one named by
// Label.
type Break struct {
	NID   NodeID      `json:"id"`
	Label string      `json:"label,omitempty"`
	Src   source.Span `json:"span"`
}

func (n *Break) irNode()           {}
func (n *Break) ID() NodeID        { return n.NID }
func (n *Break) Kind() Kind        { return KindBreak }
func (n *Break) Span() source.Span { return n.Src }

// Continue resumes the next iteration of the nearest (or labeled)
// enclosing loop.
type Continue struct {
	NID   NodeID      `json:"id"`
	Label string      `json:"label,omitempty"`
	Src   source.Span `json:"span"`
}

func (n *Continue) irNode()           {}
func (n *Continue) ID() NodeID        { return n.NID }
func (n *Continue) Kind() Kind        { return KindContinue }
func (n *Continue) Span() source.Span { return n.Src }

// Return exits the enclosing function.
type Return struct {
	NID NodeID      `json:"id"`
	Arg NodeID      `json:"arg,omitempty"`
	Src source.Span `json:"span"`
}

func (n *Return) irNode()           {}
func (n *Return) ID() NodeID        { return n.NID }
func (n *Return) Kind() Kind        { return KindReturn }
func (n *Return) Span() source.Span { return n.Src }

// Throw raises an error value.
type Throw struct {
	NID NodeID      `json:"id"`
	Arg NodeID      `json:"arg"`
	Src source.Span `json:"span"`
}

func (n *Throw) irNode()           {}
func (n *Throw) ID() NodeID        { return n.NID }
func (n *Throw) Kind() Kind        { return KindThrow }
func (n *Throw) Span() source.Span { return n.Src }

// Assign stores Value into Target (an Ident, Member, or Index).
type Assign struct {
	NID    NodeID      `json:"id"`
	Op     string      `json:"op"` // "=", "+=", ...
	Target NodeID      `json:"target"`
	Value  NodeID      `json:"value"`
	Src    source.Span `json:"span"`
}

func (n *Assign) irNode()           {}
func (n *Assign) ID() NodeID        { return n.NID }
func (n *Assign) Kind() Kind        { return KindAssign }
func (n *Assign) Span() source.Span { return n.Src }

// Ident is a resolved name reference. Binding points at the declaring
// VarDecl/Param/FuncDecl/TypeDecl; a reference that resolved to no
// frame is a deliberate global capture, not an error.
type Ident struct {
	NID     NodeID      `json:"id"`
	Name    string      `json:"name"`
	Binding NodeID      `json:"binding,omitempty"`
	Global  bool        `json:"global,omitempty"`
	Src     source.Span `json:"span"`
}

func (n *Ident) irNode()           {}
func (n *Ident) ID() NodeID        { return n.NID }
func (n *Ident) Kind() Kind        { return KindIdent }
func (n *Ident) Span() source.Span { return n.Src }

// Literal is a constant value. Value holds the numeric source text for
// numbers and the decoded text for strings.
type Literal struct {
	NID   NodeID      `json:"id"`
	Lit   LitKind     `json:"lit"`
	Value string      `json:"value,omitempty"`
	Src   source.Span `json:"span"`
}

func (n *Literal) irNode()           {}
func (n *Literal) ID() NodeID        { return n.NID }
func (n *Literal) Kind() Kind        { return KindLiteral }
func (n *Literal) Span() source.Span { return n.Src }

// Template is a template string; len(Quasis) == len(Exprs)+1.
type Template struct {
	NID    NodeID      `json:"id"`
	Quasis []string    `json:"quasis"`
	Exprs  []NodeID    `json:"exprs"`
	Src    source.Span `json:"span"`
}

func (n *Template) irNode()           {}
func (n *Template) ID() NodeID        { return n.NID }
func (n *Template) Kind() Kind        { return KindTemplate }
func (n *Template) Span() source.Span { return n.Src }

// Binary is an arithmetic/comparison operation.
type Binary struct {
	NID NodeID      `json:"id"`
	Op  string      `json:"op"`
	X   NodeID      `json:"x"`
	Y   NodeID      `json:"y"`
	Src source.Span `json:"span"`
}

func (n *Binary) irNode()           {}
func (n *Binary) ID() NodeID        { return n.NID }
func (n *Binary) Kind() Kind        { return KindBinary }
func (n *Binary) Span() source.Span { return n.Src }

// Logical is a short-circuit operation (&&, ||, ??).
type Logical struct {
	NID NodeID      `json:"id"`
	Op  string      `json:"op"`
	X   NodeID      `json:"x"`
	Y   NodeID      `json:"y"`
	Src source.Span `json:"span"`
}

func (n *Logical) irNode()           {}
func (n *Logical) ID() NodeID        { return n.NID }
func (n *Logical) Kind() Kind        { return KindLogical }
func (n *Logical) Span() source.Span { return n.Src }

// Unary is a prefix operation.
type Unary struct {
	NID NodeID      `json:"id"`
	Op  string      `json:"op"`
	X   NodeID      `json:"x"`
	Src source.Span `json:"span"`
}

func (n *Unary) irNode()           {}
func (n *Unary) ID() NodeID        { return n.NID }
func (n *Unary) Kind() Kind        { return KindUnary }
func (n *Unary) Span() source.Span { return n.Src }

// Cond is a ternary conditional expression.
type Cond struct {
	NID  NodeID      `json:"id"`
	Test NodeID      `json:"test"`
	Then NodeID      `json:"then"`
	Else NodeID      `json:"else"`
	Src  source.Span `json:"span"`
}

func (n *Cond) irNode()           {}
func (n *Cond) ID() NodeID        { return n.NID }
func (n *Cond) Kind() Kind        { return KindCond }
func (n *Cond) Span() source.Span { return n.Src }

// Call invokes a callee with arguments.
type Call struct {
	NID    NodeID      `json:"id"`
	Callee NodeID      `json:"callee"`
	Args   []NodeID    `json:"args"`
	Src    source.Span `json:"span"`
}

func (n *Call) irNode()           {}
func (n *Call) ID() NodeID        { return n.NID }
func (n *Call) Kind() Kind        { return KindCall }
func (n *Call) Span() source.Span { return n.Src }

// New instantiates a type.
type New struct {
	NID    NodeID      `json:"id"`
	Callee NodeID      `json:"callee"`
	Args   []NodeID    `json:"args"`
	Src    source.Span `json:"span"`
}

func (n *New) irNode()           {}
func (n *New) ID() NodeID        { return n.NID }
func (n *New) Kind() Kind        { return KindNew }
func (n *New) Span() source.Span { return n.Src }

// Member is static property access (x.name).
type Member struct {
	NID  NodeID      `json:"id"`
	X    NodeID      `json:"x"`
	Name string      `json:"name"`
	Src  source.Span `json:"span"`
}

func (n *Member) irNode()           {}
func (n *Member) ID() NodeID        { return n.NID }
func (n *Member) Kind() Kind        { return KindMember }
func (n *Member) Span() source.Span { return n.Src }

// Index is computed property access (x[key]).
type Index struct {
	NID NodeID      `json:"id"`
	X   NodeID      `json:"x"`
	Key NodeID      `json:"key"`
	Src source.Span `json:"span"`
}

func (n *Index) irNode()           {}
func (n *Index) ID() NodeID        { return n.NID }
func (n *Index) Kind() Kind        { return KindIndex }
func (n *Index) Span() source.Span { return n.Src }

// Elem extracts the positional element Pos (0-based) from a sequence.
// Produced by array-pattern expansion so backends never re-derive
// index bases.
type Elem struct {
	NID NodeID      `json:"id"`
	X   NodeID      `json:"x"`
	Pos int         `json:"pos"`
	Src source.Span `json:"span"`
}

func (n *Elem) irNode()           {}
func (n *Elem) ID() NodeID        { return n.NID }
func (n *Elem) Kind() Kind        { return KindElem }
func (n *Elem) Span() source.Span { return n.Src }

// RestSlice captures the elements of a sequence from position From
// (0-based) onward as a fresh sequence.
type RestSlice struct {
	NID  NodeID      `json:"id"`
	X    NodeID      `json:"x"`
	From int         `json:"from"`
	Src  source.Span `json:"span"`
}

func (n *RestSlice) irNode()           {}
func (n *RestSlice) ID() NodeID        { return n.NID }
func (n *RestSlice) Kind() Kind        { return KindRestSlice }
func (n *RestSlice) Span() source.Span { return n.Src }

// RestProps captures all properties of an object except the Skip keys
// as a fresh object.
type RestProps struct {
	NID  NodeID      `json:"id"`
	X    NodeID      `json:"x"`
	Skip []string    `json:"skip"`
	Src  source.Span `json:"span"`
}

func (n *RestProps) irNode()           {}
func (n *RestProps) ID() NodeID        { return n.NID }
func (n *RestProps) Kind() Kind        { return KindRestProps }
func (n *RestProps) Span() source.Span { return n.Src }

// ArrayLit is an array literal; holes are lowered to undefined
// literals upstream.
type ArrayLit struct {
	NID   NodeID      `json:"id"`
	Elems []NodeID    `json:"elems"`
	Src   source.Span `json:"span"`
}

func (n *ArrayLit) irNode()           {}
func (n *ArrayLit) ID() NodeID        { return n.NID }
func (n *ArrayLit) Kind() Kind        { return KindArrayLit }
func (n *ArrayLit) Span() source.Span { return n.Src }

// ObjectLit is an object literal made of Property nodes.
type ObjectLit struct {
	NID   NodeID      `json:"id"`
	Props []NodeID    `json:"props"`
	Src   source.Span `json:"span"`
}

func (n *ObjectLit) irNode()           {}
func (n *ObjectLit) ID() NodeID        { return n.NID }
func (n *ObjectLit) Kind() Kind        { return KindObjectLit }
func (n *ObjectLit) Span() source.Span { return n.Src }

// Property is one key/value pair in an object literal. Computed, when
// set, is an expression producing the key; Key is empty then.
type Property struct {
	NID      NodeID      `json:"id"`
	Key      string      `json:"key,omitempty"`
	Computed NodeID      `json:"computed,omitempty"`
	Value    NodeID      `json:"value"`
	Src      source.Span `json:"span"`
}

func (n *Property) irNode()           {}
func (n *Property) ID() NodeID        { return n.NID }
func (n *Property) Kind() Kind        { return KindProperty }
func (n *Property) Span() source.Span { return n.Src }

// Spread unpacks an iterable into a call or array literal.
type Spread struct {
	NID NodeID      `json:"id"`
	X   NodeID      `json:"x"`
	Src source.Span `json:"span"`
}

func (n *Spread) irNode()           {}
func (n *Spread) ID() NodeID        { return n.NID }
func (n *Spread) Kind() Kind        { return KindSpread }
func (n *Spread) Span() source.Span { return n.Src }

// FuncLit is a function expression.
type FuncLit struct {
	NID       NodeID      `json:"id"`
	Name      string      `json:"name,omitempty"`
	Params    []NodeID    `json:"params"`
	Body      NodeID      `json:"body"`
	Async     bool        `json:"async,omitempty"`
	Generator bool        `json:"generator,omitempty"`
	Src       source.Span `json:"span"`
}

func (n *FuncLit) irNode()           {}
func (n *FuncLit) ID() NodeID        { return n.NID }
func (n *FuncLit) Kind() Kind        { return KindFuncLit }
func (n *FuncLit) Span() source.Span { return n.Src }

// Await is a structural suspension marker. The pipeline never
// schedules; backends realize it as the target's native cooperative
// primitive.
type Await struct {
	NID NodeID      `json:"id"`
	X   NodeID      `json:"x"`
	Src source.Span `json:"span"`
}

func (n *Await) irNode()           {}
func (n *Await) ID() NodeID        { return n.NID }
func (n *Await) Kind() Kind        { return KindAwait }
func (n *Await) Span() source.Span { return n.Src }

// Yield yields a value from a generator.
type Yield struct {
	NID      NodeID      `json:"id"`
	X        NodeID      `json:"x,omitempty"`
	Delegate bool        `json:"delegate,omitempty"`
	Src      source.Span `json:"span"`
}

func (n *Yield) irNode()           {}
func (n *Yield) ID() NodeID        { return n.NID }
func (n *Yield) Kind() Kind        { return KindYield }
func (n *Yield) Span() source.Span { return n.Src }

// ArrayPattern destructures positional elements. Normally expanded by
// the lowerer; retained in the kind set for passes that introduce and
// then re-expand patterns.
type ArrayPattern struct {
	NID   NodeID      `json:"id"`
	Elems []NodeID    `json:"elems"`
	Rest  NodeID      `json:"rest,omitempty"`
	Src   source.Span `json:"span"`
}

func (n *ArrayPattern) irNode()           {}
func (n *ArrayPattern) ID() NodeID        { return n.NID }
func (n *ArrayPattern) Kind() Kind        { return KindArrayPattern }
func (n *ArrayPattern) Span() source.Span { return n.Src }

// ObjectPattern destructures named properties.
type ObjectPattern struct {
	NID   NodeID      `json:"id"`
	Props []NodeID    `json:"props"` // Property nodes whose Value is a binding target
	Rest  NodeID      `json:"rest,omitempty"`
	Src   source.Span `json:"span"`
}

func (n *ObjectPattern) irNode()           {}
func (n *ObjectPattern) ID() NodeID        { return n.NID }
func (n *ObjectPattern) Kind() Kind        { return KindObjectPattern }
func (n *ObjectPattern) Span() source.Span { return n.Src }

// AssignPattern supplies a default evaluated only when the extracted
// value is the missing sentinel.
type AssignPattern struct {
	NID     NodeID      `json:"id"`
	Target  NodeID      `json:"target"`
	Default NodeID      `json:"default"`
	Src     source.Span `json:"span"`
}

func (n *AssignPattern) irNode()           {}
func (n *AssignPattern) ID() NodeID        { return n.NID }
func (n *AssignPattern) Kind() Kind        { return KindAssignPattern }
func (n *AssignPattern) Span() source.Span { return n.Src }
