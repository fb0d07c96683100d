package lua

import (
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/ir"
)

// emitSwitch renders fallthrough dispatch: the matching case index is
// computed first, then a repeat-until-true runs every case body from
// that index on. A break inside a body exits the repeat.
func (g *generator) emitSwitch(n *ir.Switch) error {
	disc, err := g.exprString(n.Disc)
	if err != nil {
		return err
	}
	sw := g.freshTmp("sw")
	match := g.freshTmp("case")

	g.mark(n.Src)
	g.writeln("local %s = %s", sw, disc)
	g.writeln("local %s = nil", match)

	defaultIdx := -1
	first := true
	for i, caseID := range n.Cases {
		c := g.node(caseID).(*ir.Case)
		if !c.Test.IsValid() {
			defaultIdx = i
			continue
		}
		test, err := g.exprString(c.Test)
		if err != nil {
			return err
		}
		if first {
			g.writeln("if %s == %s then", sw, test)
			first = false
		} else {
			g.writeln("elseif %s == %s then", sw, test)
		}
		g.indent++
		g.writeln("%s = %d", match, i+1)
		g.indent--
	}
	if !first {
		g.writeln("end")
	}
	if defaultIdx >= 0 {
		g.writeln("if %s == nil then %s = %d end", match, match, defaultIdx+1)
	}

	g.targets = append(g.targets, &jumpTarget{kind: targetSwitch, depth: len(g.frames)})
	g.writeln("repeat")
	g.indent++
	for i, caseID := range n.Cases {
		c := g.node(caseID).(*ir.Case)
		g.writeln("if %s ~= nil and %s <= %d then", match, match, i+1)
		g.indent++
		if err := g.emitStmts(c.Body); err != nil {
			g.indent -= 2
			g.targets = g.targets[:len(g.targets)-1]
			return err
		}
		g.indent--
		g.writeln("end")
	}
	g.indent--
	g.writeln("until true")
	g.targets = g.targets[:len(g.targets)-1]
	return nil
}

// emitTry renders the protected-call wrapper. The protected body runs
// in a closure so a thrown error surfaces as pcall's ok-flag; returns
// and loop jumps inside it come back as wrapped values the epilogue
// re-dispatches after the finalizer. The finalizer therefore runs
// exactly once on every exit path.
func (g *generator) emitTry(n *ir.Try) error {
	ok := g.freshTmp("ok")
	res := g.freshTmp("res")

	g.mark(n.Src)
	frame := &tryFrame{}
	g.frames = append(g.frames, frame)
	g.writeln("local %s, %s = pcall(function()", ok, res)
	g.indent++
	err := g.emitStmts(g.blockStmts(n.Block))
	g.indent--
	if err != nil {
		g.frames = g.frames[:len(g.frames)-1]
		return err
	}
	g.writeln("end)")

	if n.Handler.IsValid() {
		g.writeln("if not %s then", ok)
		g.indent++
		g.writeln("local %s = %s", n.CatchName, res)
		g.writeln("%s = (function()", res)
		g.indent++
		err = g.emitStmts(g.blockStmts(n.Handler))
		g.indent--
		if err != nil {
			g.frames = g.frames[:len(g.frames)-1]
			return err
		}
		g.writeln("end)()")
		g.writeln("%s = true", ok)
		g.indent--
		g.writeln("end")
	}
	g.frames = g.frames[:len(g.frames)-1]

	if n.Finalizer.IsValid() {
		if err := g.emitStmts(g.blockStmts(n.Finalizer)); err != nil {
			return err
		}
	}

	if !n.Handler.IsValid() {
		// unhandled errors propagate after the finalizer has run
		g.writeln("if not %s then error(%s) end", ok, res)
	}

	return g.emitUnwind(res, frame)
}

// emitUnwind re-dispatches a wrapped result that escaped a protected
// region. Each jump sentinel recorded inside the region either resumes
// its jump here, when its target is in scope, or is forwarded to the
// next epilogue out together with wrapped returns.
func (g *generator) emitUnwind(res string, frame *tryFrame) error {
	g.writeln("if %s ~= nil then", res)
	g.indent++
	for _, e := range frame.escapes {
		var t *jumpTarget
		if e.isBreak {
			t = g.breakTarget(e.label)
		} else {
			t = g.continueTarget(e.label)
		}
		if t == nil {
			continue
		}
		if t.depth < len(g.frames) {
			// still crossing a pcall; the outer epilogue takes over
			g.recordEscape(e)
			continue
		}
		switch {
		case e.isBreak && e.label == "":
			g.writeln("if %s then break end", e.test(res))
		case e.isBreak:
			t.breakUsed = true
			g.writeln("if %s then goto %s end", e.test(res), t.breakName)
		default:
			t.continueUsed = true
			g.writeln("if %s then goto %s end", e.test(res), t.continueName)
		}
	}
	if len(g.frames) > 0 {
		g.writeln("return %s", res)
	} else {
		g.writeln("return table.unpack(%s)", res)
	}
	g.indent--
	g.writeln("end")
	return nil
}
