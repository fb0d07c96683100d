package ir

// SchemaVersion identifies the closed node-kind set below. Any change
// to the set or to a kind's shape bumps this.
const SchemaVersion = "1.0"

// Kind tags every IR node. The set is closed: adding a kind means
// updating ChildRefs, WithChildReplaced, the validator's shape table,
// and every backend's dispatch.
type Kind int

const (
	KindInvalid Kind = iota

	// Declarations
	KindVarDecl
	KindFuncDecl
	KindTypeDecl
	KindParam

	// Statements
	KindBlock
	KindExprStmt
	KindIf
	KindWhile
	KindIterLoop
	KindSwitch
	KindCase
	KindTry
	KindBreak
	KindContinue
	KindReturn
	KindThrow
	KindAssign

	// Expressions
	KindIdent
	KindLiteral
	KindTemplate
	KindBinary
	KindLogical
	KindUnary
	KindCond
	KindCall
	KindNew
	KindMember
	KindIndex
	KindElem
	KindRestSlice
	KindRestProps
	KindArrayLit
	KindObjectLit
	KindProperty
	KindSpread
	KindFuncLit
	KindAwait
	KindYield

	// Patterns
	KindArrayPattern
	KindObjectPattern
	KindAssignPattern
)

var kindNames = map[Kind]string{
	KindVarDecl:       "VarDecl",
	KindFuncDecl:      "FuncDecl",
	KindTypeDecl:      "TypeDeclaration",
	KindParam:         "Param",
	KindBlock:         "Block",
	KindExprStmt:      "ExprStmt",
	KindIf:            "If",
	KindWhile:         "While",
	KindIterLoop:      "IterLoop",
	KindSwitch:        "Switch",
	KindCase:          "Case",
	KindTry:           "TryStatement",
	KindBreak:         "Break",
	KindContinue:      "Continue",
	KindReturn:        "Return",
	KindThrow:         "Throw",
	KindAssign:        "Assign",
	KindIdent:         "Ident",
	KindLiteral:       "Literal",
	KindTemplate:      "Template",
	KindBinary:        "Binary",
	KindLogical:       "Logical",
	KindUnary:         "Unary",
	KindCond:          "Cond",
	KindCall:          "Call",
	KindNew:           "New",
	KindMember:        "Member",
	KindIndex:         "Index",
	KindElem:          "Elem",
	KindRestSlice:     "RestSlice",
	KindRestProps:     "RestProps",
	KindArrayLit:      "ArrayLit",
	KindObjectLit:     "ObjectLit",
	KindProperty:      "Property",
	KindSpread:        "Spread",
	KindFuncLit:       "FuncLit",
	KindAwait:         "Await",
	KindYield:         "Yield",
	KindArrayPattern:  "ArrayPattern",
	KindObjectPattern: "ObjectPattern",
	KindAssignPattern: "AssignPattern",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Invalid"
}

// Known reports whether k is part of the closed kind set.
func (k Kind) Known() bool {
	_, ok := kindNames[k]
	return ok
}

// KindFromName resolves a serialized kind name back to its Kind.
func KindFromName(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	return KindInvalid, false
}

// IsDecl reports whether the kind is a declaration.
func (k Kind) IsDecl() bool {
	switch k {
	case KindVarDecl, KindFuncDecl, KindTypeDecl, KindParam:
		return true
	}
	return false
}

// IsStmt reports whether the kind is a statement.
func (k Kind) IsStmt() bool {
	switch k {
	case KindVarDecl, KindFuncDecl, KindTypeDecl,
		KindBlock, KindExprStmt, KindIf, KindWhile, KindIterLoop,
		KindSwitch, KindTry, KindBreak, KindContinue, KindReturn,
		KindThrow, KindAssign:
		return true
	}
	return false
}

// IsExpr reports whether the kind is an expression.
func (k Kind) IsExpr() bool {
	switch k {
	case KindIdent, KindLiteral, KindTemplate, KindBinary, KindLogical,
		KindUnary, KindCond, KindCall, KindNew, KindMember, KindIndex,
		KindElem, KindRestSlice, KindRestProps, KindArrayLit,
		KindObjectLit, KindSpread, KindFuncLit, KindAwait, KindYield:
		return true
	}
	return false
}

// IsPattern reports whether the kind is a destructuring pattern.
func (k Kind) IsPattern() bool {
	switch k {
	case KindArrayPattern, KindObjectPattern, KindAssignPattern:
		return true
	}
	return false
}
