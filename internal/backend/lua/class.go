package lua

import (
	"strings"

	"github.com/ssdajoker/LUASCRIPT-sub000/internal/ir"
)

func (g *generator) emitFuncDecl(n *ir.FuncDecl) error {
	g.mark(n.Src)
	sig, err := g.paramSignature(n.Params)
	if err != nil {
		return err
	}
	g.writeln("local function %s(%s)", luaName(n.Name), sig)
	g.indent++
	err = g.emitFuncBody(n.Params, n.Body, n.Async, n.Generator)
	g.indent--
	if err != nil {
		return err
	}
	g.writeln("end")
	return nil
}

// paramSignature renders the parameter list; a rest parameter becomes
// the vararg marker.
func (g *generator) paramSignature(params []ir.NodeID) (string, error) {
	names := make([]string, 0, len(params))
	for _, pid := range params {
		p := g.node(pid).(*ir.Param)
		if p.Rest {
			names = append(names, "...")
			continue
		}
		names = append(names, luaName(p.Name))
	}
	return strings.Join(names, ", "), nil
}

// emitFuncBody writes parameter fixups and the body statements at the
// current indent. Async bodies run inside a coroutine resumed at
// entry; generator bodies hand the coroutine back to the caller.
func (g *generator) emitFuncBody(params []ir.NodeID, body ir.NodeID, async, generator bool) error {
	savedTargets, savedFrames := g.targets, g.frames
	g.targets, g.frames = nil, nil
	defer func() { g.targets, g.frames = savedTargets, savedFrames }()

	for _, pid := range params {
		p := g.node(pid).(*ir.Param)
		if p.Rest {
			g.writeln("local %s = { ... }", luaName(p.Name))
			continue
		}
		if p.Default.IsValid() {
			dflt, err := g.exprString(p.Default)
			if err != nil {
				return err
			}
			g.writeln("if %s == nil then %s = %s end", luaName(p.Name), luaName(p.Name), dflt)
		}
	}

	stmts := g.blockStmts(body)
	if !async && !generator {
		return g.emitStmts(stmts)
	}

	g.writeln("return coroutine.wrap(function()")
	g.indent++
	err := g.emitStmts(stmts)
	g.indent--
	if err != nil {
		return err
	}
	if async {
		// async functions start running immediately; generators wait
		// for the first resume
		g.writeln("end)()")
	} else {
		g.writeln("end)")
	}
	return nil
}

// emitTypeDecl renders a class as a prototype table. Instances link to
// it through their metatable; a superclass links the prototype itself.
func (g *generator) emitTypeDecl(n *ir.TypeDecl) error {
	g.mark(n.Src)
	g.writeln("local %s = {}", n.Name)
	g.writeln("%s.__index = %s", n.Name, n.Name)
	if n.SuperName != "" {
		g.writeln("setmetatable(%s, { __index = %s })", n.Name, n.SuperName)
	}
	g.writeln("function %s.new(...)", n.Name)
	g.indent++
	g.writeln("local self = setmetatable({}, %s)", n.Name)
	g.writeln("if self.constructor then self:constructor(...) end")
	g.writeln("return self")
	g.indent--
	g.writeln("end")

	savedSuper := g.superName
	g.superName = n.SuperName
	defer func() { g.superName = savedSuper }()

	for _, mid := range n.Methods {
		if err := g.emitMethod(n.Name, g.node(mid).(*ir.FuncDecl), false); err != nil {
			return err
		}
	}
	for _, mid := range n.Statics {
		if err := g.emitMethod(n.Name, g.node(mid).(*ir.FuncDecl), true); err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) emitMethod(class string, m *ir.FuncDecl, static bool) error {
	g.mark(m.Src)
	sig, err := g.paramSignature(m.Params)
	if err != nil {
		return err
	}
	if static {
		g.writeln("function %s.%s(%s)", class, m.Name, sig)
	} else {
		g.writeln("function %s:%s(%s)", class, m.Name, sig)
	}
	g.indent++
	err = g.emitFuncBody(m.Params, m.Body, m.Async, m.Generator)
	g.indent--
	if err != nil {
		return err
	}
	g.writeln("end")
	return nil
}

// funcExprString renders a function literal as an expression. The body
// is built in a scratch buffer so it can be embedded in surrounding
// expression text.
func (g *generator) funcExprString(n *ir.FuncLit) (string, error) {
	sig, err := g.paramSignature(n.Params)
	if err != nil {
		return "", err
	}

	saved := g.buf
	savedLine := g.line
	g.buf = strings.Builder{}

	g.write("function(%s)\n", sig)
	g.indent++
	err = g.emitFuncBody(n.Params, n.Body, n.Async, n.Generator)
	g.indent--
	if err != nil {
		g.buf = saved
		g.line = savedLine
		return "", err
	}
	g.writeIndent()
	g.write("end")

	out := g.buf.String()
	g.buf = saved
	g.line = savedLine
	return out, nil
}
