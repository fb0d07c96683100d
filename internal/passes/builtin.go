package passes

import (
	"strconv"

	"github.com/ssdajoker/LUASCRIPT-sub000/internal/ir"
)

// ConstFold folds binary/unary arithmetic over literal operands into a
// single literal. Optional: skipping a fold never changes behavior.
func ConstFold() Pass {
	return Pass{
		Name:      "constfold",
		Version:   Current,
		Priority:  10,
		Policy:    Optional,
		Transform: foldNode,
	}
}

// DeadBranch replaces an If whose condition is a boolean literal with
// the taken branch.
func DeadBranch() Pass {
	return Pass{
		Name:     "deadbranch",
		Version:  Current,
		Priority: 20,
		Policy:   Optional,
		Transform: func(ctx *Context, n ir.Node) (ir.Node, error) {
			stmt, ok := n.(*ir.If)
			if !ok {
				return nil, nil
			}
			cond, ok := ctx.Module.Node(stmt.Cond)
			if !ok {
				return nil, nil
			}
			lit, ok := cond.(*ir.Literal)
			if !ok || lit.Lit != ir.LitBool {
				return nil, nil
			}
			if lit.Value == "true" {
				return ctx.Module.MustNode(stmt.Then), nil
			}
			if stmt.Else.IsValid() {
				return ctx.Module.MustNode(stmt.Else), nil
			}
			// condition is false and there is no else: an empty block
			// takes the statement's place
			empty := &ir.Block{NID: ctx.Module.NewID(), Src: stmt.Src}
			return empty, nil
		},
	}
}

func foldNode(ctx *Context, n ir.Node) (ir.Node, error) {
	switch t := n.(type) {
	case *ir.Binary:
		x, okX := numericLiteral(ctx.Module, t.X)
		y, okY := numericLiteral(ctx.Module, t.Y)
		if !okX || !okY {
			return nil, nil
		}
		var folded float64
		switch t.Op {
		case "+":
			folded = x + y
		case "-":
			folded = x - y
		case "*":
			folded = x * y
		case "/":
			if y == 0 {
				// division by zero keeps its runtime semantics
				return nil, nil
			}
			folded = x / y
		default:
			return nil, nil
		}
		return &ir.Literal{
			NID:   ctx.Module.NewID(),
			Lit:   ir.LitNumber,
			Value: strconv.FormatFloat(folded, 'g', -1, 64),
			Src:   t.Src,
		}, nil

	case *ir.Unary:
		if t.Op != "-" {
			return nil, nil
		}
		x, ok := numericLiteral(ctx.Module, t.X)
		if !ok {
			return nil, nil
		}
		return &ir.Literal{
			NID:   ctx.Module.NewID(),
			Lit:   ir.LitNumber,
			Value: strconv.FormatFloat(-x, 'g', -1, 64),
			Src:   t.Src,
		}, nil
	}
	return nil, nil
}

func numericLiteral(m *ir.Module, id ir.NodeID) (float64, bool) {
	n, ok := m.Node(id)
	if !ok {
		return 0, false
	}
	lit, ok := n.(*ir.Literal)
	if !ok || lit.Lit != ir.LitNumber {
		return 0, false
	}
	f, err := strconv.ParseFloat(lit.Value, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
