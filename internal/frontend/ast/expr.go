package ast

import (
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/source"
)

// LitKind defines the kinds of literal values.
type LitKind int

const (
	LitNumber LitKind = iota
	LitString
	LitBool
	LitNull
	LitUndefined
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

// Identifier is a name reference.
type Identifier struct {
	Name string
	Span source.Span
}

func (i *Identifier) INode()           {}
func (i *Identifier) Expr()            {}
func (i *Identifier) Pat()             {}
func (i *Identifier) Loc() source.Span { return i.Span }

// Literal is a basic literal value. Value holds the source text of the
// literal for numbers and the decoded value for strings.
type Literal struct {
	Kind  LitKind
	Value string
	Span  source.Span
}

func (l *Literal) INode()           {}
func (l *Literal) Expr()            {}
func (l *Literal) Loc() source.Span { return l.Span }

// TemplateLit is a template string: quasis are the literal chunks,
// Exprs the interpolations between them. len(Quasis) == len(Exprs)+1.
type TemplateLit struct {
	Quasis []string
	Exprs  []Expression
	Span   source.Span
}

func (t *TemplateLit) INode()           {}
func (t *TemplateLit) Expr()            {}
func (t *TemplateLit) Loc() source.Span { return t.Span }

// BinaryExpr is an arithmetic/comparison operation.
type BinaryExpr struct {
	Op   string
	X    Expression
	Y    Expression
	Span source.Span
}

func (b *BinaryExpr) INode()           {}
func (b *BinaryExpr) Expr()            {}
func (b *BinaryExpr) Loc() source.Span { return b.Span }

// LogicalExpr is a short-circuit operation (&&, ||, ??).
type LogicalExpr struct {
	Op   string
	X    Expression
	Y    Expression
	Span source.Span
}

func (l *LogicalExpr) INode()           {}
func (l *LogicalExpr) Expr()            {}
func (l *LogicalExpr) Loc() source.Span { return l.Span }

// UnaryExpr is a prefix operation (-, !, typeof).
type UnaryExpr struct {
	Op   string
	X    Expression
	Span source.Span
}

func (u *UnaryExpr) INode()           {}
func (u *UnaryExpr) Expr()            {}
func (u *UnaryExpr) Loc() source.Span { return u.Span }

// AssignExpr assigns Value to Target. Target may be an identifier, a
// member/index expression, or a destructuring pattern.
type AssignExpr struct {
	Op     string
	Target Node
	Value  Expression
	Span   source.Span
}

func (a *AssignExpr) INode()           {}
func (a *AssignExpr) Expr()            {}
func (a *AssignExpr) Loc() source.Span { return a.Span }

// CondExpr is a ternary conditional.
type CondExpr struct {
	Test Expression
	Then Expression
	Else Expression
	Span source.Span
}

func (c *CondExpr) INode()           {}
func (c *CondExpr) Expr()            {}
func (c *CondExpr) Loc() source.Span { return c.Span }

// CallExpr is a function or method call.
type CallExpr struct {
	Callee Expression
	Args   []Expression
	Span   source.Span
}

func (c *CallExpr) INode()           {}
func (c *CallExpr) Expr()            {}
func (c *CallExpr) Loc() source.Span { return c.Span }

// NewExpr constructs an instance of a class.
type NewExpr struct {
	Callee Expression
	Args   []Expression
	Span   source.Span
}

func (n *NewExpr) INode()           {}
func (n *NewExpr) Expr()            {}
func (n *NewExpr) Loc() source.Span { return n.Span }

// MemberExpr is static property access (x.name).
type MemberExpr struct {
	X    Expression
	Name string
	Span source.Span
}

func (m *MemberExpr) INode()           {}
func (m *MemberExpr) Expr()            {}
func (m *MemberExpr) Loc() source.Span { return m.Span }

// IndexExpr is computed property access (x[key]).
type IndexExpr struct {
	X    Expression
	Key  Expression
	Span source.Span
}

func (i *IndexExpr) INode()           {}
func (i *IndexExpr) Expr()            {}
func (i *IndexExpr) Loc() source.Span { return i.Span }

// ArrayLit is an array literal. A nil element is an elision (hole).
type ArrayLit struct {
	Elements []Expression
	Span     source.Span
}

func (a *ArrayLit) INode()           {}
func (a *ArrayLit) Expr()            {}
func (a *ArrayLit) Loc() source.Span { return a.Span }

// ObjectProp is a single property in an object literal.
type ObjectProp struct {
	Key      string
	Computed Expression // non-nil for computed keys; Key is empty then
	Value    Expression
	Span     source.Span
}

// ObjectLit is an object literal.
type ObjectLit struct {
	Props []ObjectProp
	Span  source.Span
}

func (o *ObjectLit) INode()           {}
func (o *ObjectLit) Expr()            {}
func (o *ObjectLit) Loc() source.Span { return o.Span }

// SpreadExpr spreads an iterable into a call or array literal.
type SpreadExpr struct {
	X    Expression
	Span source.Span
}

func (s *SpreadExpr) INode()           {}
func (s *SpreadExpr) Expr()            {}
func (s *SpreadExpr) Loc() source.Span { return s.Span }

// FuncLit is a function expression. Params may be identifiers or
// destructuring patterns.
type FuncLit struct {
	Name      string // empty for anonymous functions
	Params    []Node
	Body      *Block
	Async     bool
	Generator bool
	Arrow     bool
	Span      source.Span
}

func (f *FuncLit) INode()           {}
func (f *FuncLit) Expr()            {}
func (f *FuncLit) Loc() source.Span { return f.Span }

// AwaitExpr suspends an async function until X settles.
type AwaitExpr struct {
	X    Expression
	Span source.Span
}

func (a *AwaitExpr) INode()           {}
func (a *AwaitExpr) Expr()            {}
func (a *AwaitExpr) Loc() source.Span { return a.Span }

// YieldExpr yields a value from a generator.
type YieldExpr struct {
	X        Expression // may be nil
	Delegate bool       // yield*
	Span     source.Span
}

func (y *YieldExpr) INode()           {}
func (y *YieldExpr) Expr()            {}
func (y *YieldExpr) Loc() source.Span { return y.Span }
