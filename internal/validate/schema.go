package validate

import (
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/diagnostics"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/ir"
)

// checkShape verifies that a node's fields match its kind's declared
// shape. Dangling children are checkRefs territory; here only presence
// and child-kind constraints are enforced.
func (v *validator) checkShape(id ir.NodeID, n ir.Node) {
	switch t := n.(type) {
	case *ir.VarDecl:
		v.requireName(id, t.Kind(), t.Name)
	case *ir.Param:
		v.requireName(id, t.Kind(), t.Name)
	case *ir.FuncDecl:
		v.requireName(id, t.Kind(), t.Name)
		v.requireChild(id, t.Kind(), "body", t.Body)
		v.requireChildKind(id, t.Kind(), t.Body, ir.KindBlock)
		for _, p := range t.Params {
			v.requireChildKind(id, t.Kind(), p, ir.KindParam)
		}
	case *ir.FuncLit:
		v.requireChild(id, t.Kind(), "body", t.Body)
		v.requireChildKind(id, t.Kind(), t.Body, ir.KindBlock)
		for _, p := range t.Params {
			v.requireChildKind(id, t.Kind(), p, ir.KindParam)
		}
	case *ir.TypeDecl:
		v.requireName(id, t.Kind(), t.Name)
		for _, m := range t.Methods {
			v.requireChildKind(id, t.Kind(), m, ir.KindFuncDecl)
		}
		for _, m := range t.Statics {
			v.requireChildKind(id, t.Kind(), m, ir.KindFuncDecl)
		}
	case *ir.ExprStmt:
		v.requireChild(id, t.Kind(), "x", t.X)
	case *ir.If:
		v.requireChild(id, t.Kind(), "cond", t.Cond)
		v.requireChild(id, t.Kind(), "then", t.Then)
	case *ir.While:
		v.requireChild(id, t.Kind(), "cond", t.Cond)
		v.requireChild(id, t.Kind(), "body", t.Body)
		v.requireChildKind(id, t.Kind(), t.Body, ir.KindBlock)
		if t.Post.IsValid() {
			v.requireChildKind(id, t.Kind(), t.Post, ir.KindBlock)
		}
	case *ir.IterLoop:
		v.requireChild(id, t.Kind(), "target", t.Target)
		v.requireChildKind(id, t.Kind(), t.Target, ir.KindVarDecl)
		v.requireChild(id, t.Kind(), "source", t.Source)
		v.requireChild(id, t.Kind(), "body", t.Body)
		v.requireChildKind(id, t.Kind(), t.Body, ir.KindBlock)
	case *ir.Switch:
		v.requireChild(id, t.Kind(), "disc", t.Disc)
		defaults := 0
		for _, c := range t.Cases {
			v.requireChildKind(id, t.Kind(), c, ir.KindCase)
			if cn, ok := v.mod.Nodes[c]; ok {
				if caseNode, ok := cn.(*ir.Case); ok && !caseNode.Test.IsValid() {
					defaults++
				}
			}
		}
		if defaults > 1 {
			v.addf(diagnostics.ErrSchemaShape, id, "switch has %d default cases", defaults)
		}
	case *ir.Try:
		v.requireChild(id, t.Kind(), "block", t.Block)
		v.requireChildKind(id, t.Kind(), t.Block, ir.KindBlock)
		if !t.Handler.IsValid() && !t.Finalizer.IsValid() {
			v.addf(diagnostics.ErrSchemaShape, id, "try has neither handler nor finalizer")
		}
		if t.Handler.IsValid() && t.CatchName == "" {
			v.addf(diagnostics.ErrSchemaShape, id, "try handler has no catch binding name")
		}
	case *ir.Throw:
		v.requireChild(id, t.Kind(), "arg", t.Arg)
	case *ir.Assign:
		v.requireChild(id, t.Kind(), "target", t.Target)
		v.requireChild(id, t.Kind(), "value", t.Value)
		if tn, ok := v.mod.Nodes[t.Target]; ok {
			switch tn.Kind() {
			case ir.KindIdent, ir.KindMember, ir.KindIndex:
			default:
				v.addf(diagnostics.ErrSchemaShape, id, "assignment target has kind %s", tn.Kind())
			}
		}
		if t.Op == "" {
			v.addf(diagnostics.ErrSchemaShape, id, "assignment has empty operator")
		}
	case *ir.Ident:
		v.requireName(id, t.Kind(), t.Name)
	case *ir.Template:
		if len(t.Quasis) != len(t.Exprs)+1 {
			v.addf(diagnostics.ErrSchemaShape, id, "template has %d quasis for %d expressions", len(t.Quasis), len(t.Exprs))
		}
	case *ir.Binary:
		v.requireOp(id, t.Kind(), t.Op)
		v.requireChild(id, t.Kind(), "x", t.X)
		v.requireChild(id, t.Kind(), "y", t.Y)
	case *ir.Logical:
		v.requireOp(id, t.Kind(), t.Op)
		v.requireChild(id, t.Kind(), "x", t.X)
		v.requireChild(id, t.Kind(), "y", t.Y)
	case *ir.Unary:
		v.requireOp(id, t.Kind(), t.Op)
		v.requireChild(id, t.Kind(), "x", t.X)
	case *ir.Cond:
		v.requireChild(id, t.Kind(), "test", t.Test)
		v.requireChild(id, t.Kind(), "then", t.Then)
		v.requireChild(id, t.Kind(), "else", t.Else)
	case *ir.Call:
		v.requireChild(id, t.Kind(), "callee", t.Callee)
	case *ir.New:
		v.requireChild(id, t.Kind(), "callee", t.Callee)
	case *ir.Member:
		v.requireChild(id, t.Kind(), "x", t.X)
		v.requireName(id, t.Kind(), t.Name)
	case *ir.Index:
		v.requireChild(id, t.Kind(), "x", t.X)
		v.requireChild(id, t.Kind(), "key", t.Key)
	case *ir.Elem:
		v.requireChild(id, t.Kind(), "x", t.X)
		if t.Pos < 0 {
			v.addf(diagnostics.ErrSchemaShape, id, "element extraction at negative position %d", t.Pos)
		}
	case *ir.RestSlice:
		v.requireChild(id, t.Kind(), "x", t.X)
		if t.From < 0 {
			v.addf(diagnostics.ErrSchemaShape, id, "rest slice from negative position %d", t.From)
		}
	case *ir.RestProps:
		v.requireChild(id, t.Kind(), "x", t.X)
	case *ir.ObjectLit:
		for _, p := range t.Props {
			v.requireChildKind(id, t.Kind(), p, ir.KindProperty)
		}
	case *ir.Property:
		v.requireChild(id, t.Kind(), "value", t.Value)
		if t.Key == "" && !t.Computed.IsValid() {
			v.addf(diagnostics.ErrSchemaShape, id, "property has neither key nor computed key")
		}
	case *ir.Spread:
		v.requireChild(id, t.Kind(), "x", t.X)
	case *ir.Await:
		v.requireChild(id, t.Kind(), "x", t.X)
	case *ir.AssignPattern:
		v.requireChild(id, t.Kind(), "target", t.Target)
		v.requireChild(id, t.Kind(), "default", t.Default)
	}
}

func (v *validator) requireName(id ir.NodeID, kind ir.Kind, name string) {
	if name == "" {
		v.addf(diagnostics.ErrSchemaShape, id, "%s has empty name", kind)
	}
}

func (v *validator) requireOp(id ir.NodeID, kind ir.Kind, op string) {
	if op == "" {
		v.addf(diagnostics.ErrSchemaShape, id, "%s has empty operator", kind)
	}
}

func (v *validator) requireChild(id ir.NodeID, kind ir.Kind, field string, child ir.NodeID) {
	if !child.IsValid() {
		v.addf(diagnostics.ErrSchemaShape, id, "%s is missing required field %s", kind, field)
	}
}

// requireChildKind checks a child's kind when it resolves; dangling
// ids are reported elsewhere.
func (v *validator) requireChildKind(id ir.NodeID, kind ir.Kind, child ir.NodeID, want ir.Kind) {
	if !child.IsValid() {
		return
	}
	n, ok := v.mod.Nodes[child]
	if !ok {
		return
	}
	if n.Kind() != want {
		v.addf(diagnostics.ErrSchemaShape, id, "%s child %d has kind %s, want %s", kind, child, n.Kind(), want)
	}
}
