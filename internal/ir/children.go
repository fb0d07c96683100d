package ir

// ChildRefs returns every node id a node references, in field order.
// The switch is exhaustive over the closed kind set; a new kind that
// forgets to appear here is caught by the validator's integrity walk.
func ChildRefs(n Node) []NodeID {
	var out []NodeID
	add := func(ids ...NodeID) {
		for _, id := range ids {
			if id.IsValid() {
				out = append(out, id)
			}
		}
	}

	switch v := n.(type) {
	case *VarDecl:
		add(v.Init)
	case *Param:
		add(v.Default)
	case *FuncDecl:
		add(v.Params...)
		add(v.Body)
	case *TypeDecl:
		add(v.Methods...)
		add(v.Statics...)
	case *Block:
		add(v.Stmts...)
	case *ExprStmt:
		add(v.X)
	case *If:
		add(v.Cond, v.Then, v.Else)
	case *While:
		add(v.Cond, v.Body, v.Post)
	case *IterLoop:
		add(v.Target)
		add(v.Prologue...)
		add(v.Source, v.Body)
	case *Switch:
		add(v.Disc)
		add(v.Cases...)
	case *Case:
		add(v.Test)
		add(v.Body...)
	case *Try:
		add(v.Block, v.Handler, v.Finalizer)
	case *Break, *Continue:
	case *Return:
		add(v.Arg)
	case *Throw:
		add(v.Arg)
	case *Assign:
		add(v.Target, v.Value)
	case *Ident:
		// Binding is a back-reference, not an owning child
	case *Literal:
	case *Template:
		add(v.Exprs...)
	case *Binary:
		add(v.X, v.Y)
	case *Logical:
		add(v.X, v.Y)
	case *Unary:
		add(v.X)
	case *Cond:
		add(v.Test, v.Then, v.Else)
	case *Call:
		add(v.Callee)
		add(v.Args...)
	case *New:
		add(v.Callee)
		add(v.Args...)
	case *Member:
		add(v.X)
	case *Index:
		add(v.X, v.Key)
	case *Elem:
		add(v.X)
	case *RestSlice:
		add(v.X)
	case *RestProps:
		add(v.X)
	case *ArrayLit:
		add(v.Elems...)
	case *ObjectLit:
		add(v.Props...)
	case *Property:
		add(v.Computed, v.Value)
	case *Spread:
		add(v.X)
	case *FuncLit:
		add(v.Params...)
		add(v.Body)
	case *Await:
		add(v.X)
	case *Yield:
		add(v.X)
	case *ArrayPattern:
		add(v.Elems...)
		add(v.Rest)
	case *ObjectPattern:
		add(v.Props...)
		add(v.Rest)
	case *AssignPattern:
		add(v.Target, v.Default)
	}
	return out
}

// BackRefs returns non-owning id references (binding links). They must
// resolve for integrity but do not form the ownership tree.
func BackRefs(n Node) []NodeID {
	if id, ok := n.(*Ident); ok && id.Binding.IsValid() {
		return []NodeID{id.Binding}
	}
	return nil
}

// WithChildReplaced returns a copy of n with every reference to old
// swapped to new, preserving n's id. The second result reports whether
// anything changed; nodes are never mutated in place.
func WithChildReplaced(n Node, old, new NodeID) (Node, bool) {
	changed := false
	swap := func(id NodeID) NodeID {
		if id == old {
			changed = true
			return new
		}
		return id
	}
	swapAll := func(ids []NodeID) []NodeID {
		out := make([]NodeID, len(ids))
		for i, id := range ids {
			out[i] = swap(id)
		}
		return out
	}

	switch v := n.(type) {
	case *VarDecl:
		c := *v
		c.Init = swap(v.Init)
		return &c, changed
	case *Param:
		c := *v
		c.Default = swap(v.Default)
		return &c, changed
	case *FuncDecl:
		c := *v
		c.Params = swapAll(v.Params)
		c.Body = swap(v.Body)
		return &c, changed
	case *TypeDecl:
		c := *v
		c.Methods = swapAll(v.Methods)
		c.Statics = swapAll(v.Statics)
		return &c, changed
	case *Block:
		c := *v
		c.Stmts = swapAll(v.Stmts)
		return &c, changed
	case *ExprStmt:
		c := *v
		c.X = swap(v.X)
		return &c, changed
	case *If:
		c := *v
		c.Cond, c.Then, c.Else = swap(v.Cond), swap(v.Then), swap(v.Else)
		return &c, changed
	case *While:
		c := *v
		c.Cond, c.Body, c.Post = swap(v.Cond), swap(v.Body), swap(v.Post)
		return &c, changed
	case *IterLoop:
		c := *v
		c.Target = swap(v.Target)
		c.Prologue = swapAll(v.Prologue)
		c.Source, c.Body = swap(v.Source), swap(v.Body)
		return &c, changed
	case *Switch:
		c := *v
		c.Disc = swap(v.Disc)
		c.Cases = swapAll(v.Cases)
		return &c, changed
	case *Case:
		c := *v
		c.Test = swap(v.Test)
		c.Body = swapAll(v.Body)
		return &c, changed
	case *Try:
		c := *v
		c.Block, c.Handler, c.Finalizer = swap(v.Block), swap(v.Handler), swap(v.Finalizer)
		return &c, changed
	case *Break:
		return v, false
	case *Continue:
		return v, false
	case *Return:
		c := *v
		c.Arg = swap(v.Arg)
		return &c, changed
	case *Throw:
		c := *v
		c.Arg = swap(v.Arg)
		return &c, changed
	case *Assign:
		c := *v
		c.Target, c.Value = swap(v.Target), swap(v.Value)
		return &c, changed
	case *Ident:
		return v, false
	case *Literal:
		return v, false
	case *Template:
		c := *v
		c.Exprs = swapAll(v.Exprs)
		return &c, changed
	case *Binary:
		c := *v
		c.X, c.Y = swap(v.X), swap(v.Y)
		return &c, changed
	case *Logical:
		c := *v
		c.X, c.Y = swap(v.X), swap(v.Y)
		return &c, changed
	case *Unary:
		c := *v
		c.X = swap(v.X)
		return &c, changed
	case *Cond:
		c := *v
		c.Test, c.Then, c.Else = swap(v.Test), swap(v.Then), swap(v.Else)
		return &c, changed
	case *Call:
		c := *v
		c.Callee = swap(v.Callee)
		c.Args = swapAll(v.Args)
		return &c, changed
	case *New:
		c := *v
		c.Callee = swap(v.Callee)
		c.Args = swapAll(v.Args)
		return &c, changed
	case *Member:
		c := *v
		c.X = swap(v.X)
		return &c, changed
	case *Index:
		c := *v
		c.X, c.Key = swap(v.X), swap(v.Key)
		return &c, changed
	case *Elem:
		c := *v
		c.X = swap(v.X)
		return &c, changed
	case *RestSlice:
		c := *v
		c.X = swap(v.X)
		return &c, changed
	case *RestProps:
		c := *v
		c.X = swap(v.X)
		return &c, changed
	case *ArrayLit:
		c := *v
		c.Elems = swapAll(v.Elems)
		return &c, changed
	case *ObjectLit:
		c := *v
		c.Props = swapAll(v.Props)
		return &c, changed
	case *Property:
		c := *v
		c.Computed, c.Value = swap(v.Computed), swap(v.Value)
		return &c, changed
	case *Spread:
		c := *v
		c.X = swap(v.X)
		return &c, changed
	case *FuncLit:
		c := *v
		c.Params = swapAll(v.Params)
		c.Body = swap(v.Body)
		return &c, changed
	case *Await:
		c := *v
		c.X = swap(v.X)
		return &c, changed
	case *Yield:
		c := *v
		c.X = swap(v.X)
		return &c, changed
	case *ArrayPattern:
		c := *v
		c.Elems = swapAll(v.Elems)
		c.Rest = swap(v.Rest)
		return &c, changed
	case *ObjectPattern:
		c := *v
		c.Props = swapAll(v.Props)
		c.Rest = swap(v.Rest)
		return &c, changed
	case *AssignPattern:
		c := *v
		c.Target, c.Default = swap(v.Target), swap(v.Default)
		return &c, changed
	}
	return n, false
}
