package ast

import (
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/source"
)

// DeclKind distinguishes const/let/var declarations.
type DeclKind int

const (
	DeclConst DeclKind = iota
	DeclLet
	DeclVar
)

func (k DeclKind) String() string {
	switch k {
	case DeclConst:
		return "const"
	case DeclLet:
		return "let"
	default:
		return "var"
	}
}

// Declarator is one target/initializer pair in a declaration. Target is
// an identifier or a destructuring pattern.
type Declarator struct {
	Target Node
	Init   Expression // may be nil
	Span   source.Span
}

// VarDecl declares one or more bindings.
type VarDecl struct {
	Kind  DeclKind
	Decls []Declarator
	Span  source.Span
}

func (v *VarDecl) INode()           {}
func (v *VarDecl) Stmt()            {}
func (v *VarDecl) Loc() source.Span { return v.Span }

// FuncDecl is a named function declaration.
type FuncDecl struct {
	Name string
	Fn   *FuncLit
	Span source.Span
}

func (f *FuncDecl) INode()           {}
func (f *FuncDecl) Stmt()            {}
func (f *FuncDecl) Loc() source.Span { return f.Span }

// ClassMember is a method on a class body.
type ClassMember struct {
	Name   string
	Static bool
	Fn     *FuncLit
	Span   source.Span
}

// ClassDecl declares a class with an optional superclass.
type ClassDecl struct {
	Name       string
	SuperClass Expression // may be nil; resolved by name at emission
	Members    []ClassMember
	Span       source.Span
}

func (c *ClassDecl) INode()           {}
func (c *ClassDecl) Stmt()            {}
func (c *ClassDecl) Loc() source.Span { return c.Span }

// Block is a braced statement list.
type Block struct {
	Body []Statement
	Span source.Span
}

func (b *Block) INode()           {}
func (b *Block) Stmt()            {}
func (b *Block) Loc() source.Span { return b.Span }

// ExprStmt is an expression evaluated for effect.
type ExprStmt struct {
	X    Expression
	Span source.Span
}

func (e *ExprStmt) INode()           {}
func (e *ExprStmt) Stmt()            {}
func (e *ExprStmt) Loc() source.Span { return e.Span }

// IfStmt is a conditional with optional else branch.
type IfStmt struct {
	Test Expression
	Then Statement
	Else Statement // may be nil
	Span source.Span
}

func (i *IfStmt) INode()           {}
func (i *IfStmt) Stmt()            {}
func (i *IfStmt) Loc() source.Span { return i.Span }

// WhileStmt is a pre-test loop.
type WhileStmt struct {
	Test Expression
	Body Statement
	Span source.Span
}

func (w *WhileStmt) INode()           {}
func (w *WhileStmt) Stmt()            {}
func (w *WhileStmt) Loc() source.Span { return w.Span }

// ForStmt is a classic three-clause loop. Init may be a VarDecl or an
// ExprStmt; any clause may be nil.
type ForStmt struct {
	Init Statement
	Test Expression
	Post Expression
	Body Statement
	Span source.Span
}

func (f *ForStmt) INode()           {}
func (f *ForStmt) Stmt()            {}
func (f *ForStmt) Loc() source.Span { return f.Span }

// ForOfStmt iterates the values of an iterable. Target is an
// identifier or pattern bound fresh each iteration.
type ForOfStmt struct {
	Kind   DeclKind
	Target Node
	Source Expression
	Body   Statement
	Span   source.Span
}

func (f *ForOfStmt) INode()           {}
func (f *ForOfStmt) Stmt()            {}
func (f *ForOfStmt) Loc() source.Span { return f.Span }

// ForInStmt iterates the enumerable keys of an object.
type ForInStmt struct {
	Kind   DeclKind
	Target Node
	Source Expression
	Body   Statement
	Span   source.Span
}

func (f *ForInStmt) INode()           {}
func (f *ForInStmt) Stmt()            {}
func (f *ForInStmt) Loc() source.Span { return f.Span }

// SwitchCase is one case clause; Test is nil for default.
type SwitchCase struct {
	Test Expression
	Body []Statement
	Span source.Span
}

// SwitchStmt dispatches on a discriminant with fallthrough semantics.
type SwitchStmt struct {
	Disc  Expression
	Cases []SwitchCase
	Span  source.Span
}

func (s *SwitchStmt) INode()           {}
func (s *SwitchStmt) Stmt()            {}
func (s *SwitchStmt) Loc() source.Span { return s.Span }

// TryStmt is try/catch/finally. Handler and Finalizer may each be nil,
// but not both.
type TryStmt struct {
	Block      *Block
	CatchParam Node // identifier or pattern; may be nil
	Handler    *Block
	Finalizer  *Block
	Span       source.Span
}

func (t *TryStmt) INode()           {}
func (t *TryStmt) Stmt()            {}
func (t *TryStmt) Loc() source.Span { return t.Span }

// LabeledStmt attaches a label to a loop or block.
type LabeledStmt struct {
	Label string
	Body  Statement
	Span  source.Span
}

func (l *LabeledStmt) INode()           {}
func (l *LabeledStmt) Stmt()            {}
func (l *LabeledStmt) Loc() source.Span { return l.Span }

// BreakStmt exits the nearest (or labeled) loop/switch.
type BreakStmt struct {
	Label string // empty for unlabeled break
	Span  source.Span
}

func (b *BreakStmt) INode()           {}
func (b *BreakStmt) Stmt()            {}
func (b *BreakStmt) Loc() source.Span { return b.Span }

// ContinueStmt skips to the next iteration of the nearest (or labeled)
// loop.
type ContinueStmt struct {
	Label string
	Span  source.Span
}

func (c *ContinueStmt) INode()           {}
func (c *ContinueStmt) Stmt()            {}
func (c *ContinueStmt) Loc() source.Span { return c.Span }

// ReturnStmt returns from the enclosing function.
type ReturnStmt struct {
	Arg  Expression // may be nil
	Span source.Span
}

func (r *ReturnStmt) INode()           {}
func (r *ReturnStmt) Stmt()            {}
func (r *ReturnStmt) Loc() source.Span { return r.Span }

// ThrowStmt raises an error value.
type ThrowStmt struct {
	Arg  Expression
	Span source.Span
}

func (t *ThrowStmt) INode()           {}
func (t *ThrowStmt) Stmt()            {}
func (t *ThrowStmt) Loc() source.Span { return t.Span }
