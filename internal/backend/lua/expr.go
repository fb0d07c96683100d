package lua

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ssdajoker/LUASCRIPT-sub000/internal/ir"
)

var luaIdentRx = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var luaReserved = map[string]bool{
	"and": true, "break": true, "do": true, "else": true, "elseif": true,
	"end": true, "false": true, "for": true, "function": true, "goto": true,
	"if": true, "in": true, "local": true, "nil": true, "not": true,
	"or": true, "repeat": true, "return": true, "then": true, "true": true,
	"until": true, "while": true,
}

func luaName(name string) string {
	if luaReserved[name] {
		return "__" + name
	}
	return name
}

func (g *generator) exprString(id ir.NodeID) (string, error) {
	switch n := g.node(id).(type) {
	case *ir.Ident:
		if n.Name == "this" {
			return "self", nil
		}
		if n.Name == "super" && g.superName != "" {
			return g.superName, nil
		}
		return luaName(n.Name), nil

	case *ir.Literal:
		return g.literalString(n), nil

	case *ir.Template:
		return g.templateString(n)

	case *ir.Binary:
		return g.binaryString(n)

	case *ir.Logical:
		return g.logicalString(n)

	case *ir.Unary:
		return g.unaryString(n)

	case *ir.Cond:
		test, err := g.exprString(n.Test)
		if err != nil {
			return "", err
		}
		then, err := g.exprString(n.Then)
		if err != nil {
			return "", err
		}
		els, err := g.exprString(n.Else)
		if err != nil {
			return "", err
		}
		// both arms stay lazy, matching ternary evaluation
		return fmt.Sprintf("__ternary(%s, function() return %s end, function() return %s end)", test, then, els), nil

	case *ir.Call:
		return g.callString(n)

	case *ir.New:
		callee, err := g.exprString(n.Callee)
		if err != nil {
			return "", err
		}
		args, err := g.argStrings(n.Args)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s.new(%s)", callee, strings.Join(args, ", ")), nil

	case *ir.Member:
		x, err := g.exprString(n.X)
		if err != nil {
			return "", err
		}
		if !luaIdentRx.MatchString(n.Name) || luaReserved[n.Name] {
			return fmt.Sprintf("%s[%s]", x, quote(n.Name)), nil
		}
		return fmt.Sprintf("%s.%s", x, n.Name), nil

	case *ir.Index:
		x, err := g.exprString(n.X)
		if err != nil {
			return "", err
		}
		key, err := g.exprString(n.Key)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s[%s]", x, key), nil

	case *ir.Elem:
		x, err := g.exprString(n.X)
		if err != nil {
			return "", err
		}
		// sequences are 1-based here
		return fmt.Sprintf("%s[%d]", x, n.Pos+1), nil

	case *ir.RestSlice:
		x, err := g.exprString(n.X)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("__slice(%s, %d)", x, n.From+1), nil

	case *ir.RestProps:
		x, err := g.exprString(n.X)
		if err != nil {
			return "", err
		}
		skip := make([]string, 0, len(n.Skip))
		for _, k := range n.Skip {
			skip = append(skip, fmt.Sprintf("%s = true", k))
		}
		return fmt.Sprintf("__omit(%s, { %s })", x, strings.Join(skip, ", ")), nil

	case *ir.ArrayLit:
		return g.arrayString(n)

	case *ir.ObjectLit:
		return g.objectString(n)

	case *ir.Spread:
		x, err := g.exprString(n.X)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("table.unpack(%s)", x), nil

	case *ir.FuncLit:
		return g.funcExprString(n)

	case *ir.Await:
		x, err := g.exprString(n.X)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("coroutine.yield(%s)", x), nil

	case *ir.Yield:
		return g.yieldString(n)

	default:
		return "", g.unsupported(n)
	}
}

func (g *generator) literalString(n *ir.Literal) string {
	switch n.Lit {
	case ir.LitNumber:
		return n.Value
	case ir.LitString:
		return quote(n.Value)
	case ir.LitBool:
		return n.Value
	default:
		// null and the missing sentinel both collapse to nil
		return "nil"
	}
}

func (g *generator) templateString(n *ir.Template) (string, error) {
	var parts []string
	for i, q := range n.Quasis {
		if q != "" {
			parts = append(parts, quote(q))
		}
		if i < len(n.Exprs) {
			expr, err := g.exprString(n.Exprs[i])
			if err != nil {
				return "", err
			}
			parts = append(parts, fmt.Sprintf("tostring(%s)", expr))
		}
	}
	if len(parts) == 0 {
		return `""`, nil
	}
	return "(" + strings.Join(parts, " .. ") + ")", nil
}

func (g *generator) binaryString(n *ir.Binary) (string, error) {
	x, err := g.exprString(n.X)
	if err != nil {
		return "", err
	}
	y, err := g.exprString(n.Y)
	if err != nil {
		return "", err
	}
	op := n.Op
	switch op {
	case "===", "==":
		op = "=="
	case "!==", "!=":
		op = "~="
	case "+":
		if g.stringish(n.X) || g.stringish(n.Y) {
			op = ".."
		}
	}
	return fmt.Sprintf("(%s %s %s)", x, op, y), nil
}

func (g *generator) logicalString(n *ir.Logical) (string, error) {
	x, err := g.exprString(n.X)
	if err != nil {
		return "", err
	}
	y, err := g.exprString(n.Y)
	if err != nil {
		return "", err
	}
	switch n.Op {
	case "&&":
		return fmt.Sprintf("(%s and %s)", x, y), nil
	case "||":
		return fmt.Sprintf("(%s or %s)", x, y), nil
	case "??":
		// right side stays lazy
		return fmt.Sprintf("__nullish(%s, function() return %s end)", x, y), nil
	default:
		return "", fmt.Errorf("lua: unknown logical operator %q", n.Op)
	}
}

func (g *generator) unaryString(n *ir.Unary) (string, error) {
	x, err := g.exprString(n.X)
	if err != nil {
		return "", err
	}
	switch n.Op {
	case "!":
		return fmt.Sprintf("(not %s)", x), nil
	case "-":
		return fmt.Sprintf("(-%s)", x), nil
	case "+":
		return fmt.Sprintf("(tonumber(%s))", x), nil
	case "typeof":
		return fmt.Sprintf("type(%s)", x), nil
	default:
		return "", g.unsupported(n)
	}
}

// callString renders calls. Member calls pass the receiver with colon
// syntax unless the base is a class or a global namespace table, which
// take plain function access.
func (g *generator) callString(n *ir.Call) (string, error) {
	args, err := g.argStrings(n.Args)
	if err != nil {
		return "", err
	}

	if member, ok := g.node(n.Callee).(*ir.Member); ok {
		if base, ok := g.node(member.X).(*ir.Ident); ok {
			if base.Name == "super" && g.superName != "" {
				// receiver is forwarded explicitly on super calls
				all := append([]string{"self"}, args...)
				return fmt.Sprintf("%s.%s(%s)", g.superName, member.Name, strings.Join(all, ", ")), nil
			}
			if g.dotCallBase(base) {
				return fmt.Sprintf("%s.%s(%s)", luaName(base.Name), member.Name, strings.Join(args, ", ")), nil
			}
		}
		x, err := g.exprString(member.X)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s:%s(%s)", x, member.Name, strings.Join(args, ", ")), nil
	}

	callee, err := g.exprString(n.Callee)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s(%s)", callee, strings.Join(args, ", ")), nil
}

// dotCallBase reports whether a member call on this base uses plain
// access: global namespaces (console, Math) and class tables have no
// receiver to pass.
func (g *generator) dotCallBase(base *ir.Ident) bool {
	if base.Global {
		return true
	}
	if decl, ok := g.mod.Node(base.Binding); ok {
		return decl.Kind() == ir.KindTypeDecl
	}
	return false
}

func (g *generator) argStrings(args []ir.NodeID) ([]string, error) {
	out := make([]string, 0, len(args))
	for _, a := range args {
		s, err := g.exprString(a)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (g *generator) arrayString(n *ir.ArrayLit) (string, error) {
	hasSpread := false
	for _, el := range n.Elems {
		if g.node(el).Kind() == ir.KindSpread {
			hasSpread = true
			break
		}
	}
	if !hasSpread {
		elems, err := g.argStrings(n.Elems)
		if err != nil {
			return "", err
		}
		return "{ " + strings.Join(elems, ", ") + " }", nil
	}

	var b strings.Builder
	b.WriteString("(function()\n")
	b.WriteString("local __t = {}\n")
	for _, el := range n.Elems {
		if sp, ok := g.node(el).(*ir.Spread); ok {
			x, err := g.exprString(sp.X)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b, "for _, __v in ipairs(%s) do __t[#__t + 1] = __v end\n", x)
			continue
		}
		s, err := g.exprString(el)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "__t[#__t + 1] = %s\n", s)
	}
	b.WriteString("return __t\n")
	b.WriteString("end)()")
	return b.String(), nil
}

func (g *generator) objectString(n *ir.ObjectLit) (string, error) {
	parts := make([]string, 0, len(n.Props))
	for _, pid := range n.Props {
		p := g.node(pid).(*ir.Property)
		val, err := g.exprString(p.Value)
		if err != nil {
			return "", err
		}
		switch {
		case p.Computed.IsValid():
			key, err := g.exprString(p.Computed)
			if err != nil {
				return "", err
			}
			parts = append(parts, fmt.Sprintf("[%s] = %s", key, val))
		case luaIdentRx.MatchString(p.Key) && !luaReserved[p.Key]:
			parts = append(parts, fmt.Sprintf("%s = %s", p.Key, val))
		default:
			parts = append(parts, fmt.Sprintf("[%s] = %s", quote(p.Key), val))
		}
	}
	if len(parts) == 0 {
		return "{}", nil
	}
	return "{ " + strings.Join(parts, ", ") + " }", nil
}

func (g *generator) yieldString(n *ir.Yield) (string, error) {
	if !n.X.IsValid() {
		return "coroutine.yield()", nil
	}
	x, err := g.exprString(n.X)
	if err != nil {
		return "", err
	}
	if n.Delegate {
		return fmt.Sprintf("(function() for _, __v in ipairs(%s) do coroutine.yield(__v) end end)()", x), nil
	}
	return fmt.Sprintf("coroutine.yield(%s)", x), nil
}

// stringish reports whether an expression statically produces a
// string, which switches + to concatenation.
func (g *generator) stringish(id ir.NodeID) bool {
	switch n := g.node(id).(type) {
	case *ir.Literal:
		return n.Lit == ir.LitString
	case *ir.Template:
		return true
	case *ir.Binary:
		return n.Op == "+" && (g.stringish(n.X) || g.stringish(n.Y))
	}
	return false
}

// quote renders a double-quoted Lua string literal. Lua has no \u or
// \x escapes before 5.2/5.3, so control bytes use decimal \ddd escapes
// and everything else passes through as raw UTF-8.
func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if c < 0x20 || c == 0x7f {
				// three digits always, so a following digit
				// character cannot extend the escape
				fmt.Fprintf(&b, "\\%03d", c)
			} else {
				b.WriteByte(c)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
