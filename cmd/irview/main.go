// irview is an interactive inspector for compiled modules: load an
// AST JSON file, then browse the lowered IR, its control-flow graphs,
// and each backend's rendition of it.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/ssdajoker/LUASCRIPT-sub000/internal/backend"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/backend/lua"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/backend/svm"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/diagnostics"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/frontend/astjson"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/ir"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/pipeline"
)

const historyFile = ".irview_history"

var commands = []string{"load", "nodes", "node", "exports", "cfg", "emit", "diags", "help", "quit"}

type session struct {
	mod  *ir.Module
	bag  *diagnostics.Bag
	back *backend.Registry
}

func main() {
	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(func(line string) (out []string) {
		for _, c := range commands {
			if strings.HasPrefix(c, strings.ToLower(line)) {
				out = append(out, c)
			}
		}
		return out
	})

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	s := &session{back: backend.NewRegistry()}
	_ = s.back.Register(lua.New())
	_ = s.back.Register(svm.New())

	if len(os.Args) > 1 {
		s.load(os.Args[1])
	}

	fmt.Println("irview - type 'help' for commands")
	for {
		line, err := ln.Prompt("irview> ")
		if err != nil {
			fmt.Println()
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ln.AppendHistory(line)
		if line == "quit" || line == "exit" {
			return
		}
		s.dispatch(line)
	}
}

func (s *session) dispatch(line string) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "help":
		fmt.Println("  load <file>      compile an AST JSON file")
		fmt.Println("  nodes            list node ids and kinds")
		fmt.Println("  node <id>        show one node")
		fmt.Println("  exports          list module exports")
		fmt.Println("  cfg [fnId]       show a control-flow graph (default: module body)")
		fmt.Println("  emit <lua|svm>   print a backend's output")
		fmt.Println("  diags            print collected diagnostics")
		fmt.Println("  quit             leave")
	case "load":
		if len(args) != 1 {
			fmt.Println("usage: load <file>")
			return
		}
		s.load(args[0])
	case "nodes":
		if s.mod == nil {
			fmt.Println("no module loaded")
			return
		}
		for _, id := range s.mod.SortedNodeIDs() {
			n := s.mod.MustNode(id)
			fmt.Printf("  %4d  %s\n", id, n.Kind())
		}
	case "node":
		if s.mod == nil || len(args) != 1 {
			fmt.Println("usage: node <id>")
			return
		}
		raw, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			fmt.Println("not a node id:", args[0])
			return
		}
		n, ok := s.mod.Node(ir.NodeID(raw))
		if !ok {
			fmt.Println("no such node")
			return
		}
		fmt.Printf("%s %+v\n", n.Kind(), n)
	case "exports":
		if s.mod == nil {
			fmt.Println("no module loaded")
			return
		}
		for name, id := range s.mod.Exports {
			fmt.Printf("  %s -> node %d\n", name, id)
		}
	case "cfg":
		s.showCFG(args)
	case "emit":
		if s.mod == nil || len(args) != 1 {
			fmt.Println("usage: emit <lua|svm>")
			return
		}
		em, ok := s.back.Get(args[0])
		if !ok {
			fmt.Println("unknown backend:", args[0])
			return
		}
		out, err := em.Emit(s.mod)
		if err != nil {
			fmt.Println("emit failed:", err)
			return
		}
		fmt.Print(out.Code)
	case "diags":
		if s.bag == nil {
			fmt.Println("no module loaded")
			return
		}
		fmt.Print(s.bag.EmitAllToString())
	default:
		fmt.Println("unknown command:", cmd)
	}
}

func (s *session) load(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Println("read failed:", err)
		return
	}
	prog, err := astjson.DecodeBytes(data)
	if err != nil {
		fmt.Println("decode failed:", err)
		return
	}
	bag := diagnostics.NewBag()
	p := pipeline.New(pipeline.Options{
		ModuleID: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Diags:    bag,
		Backends: s.back,
	})
	res, err := p.Run(prog)
	s.bag = bag
	if err != nil {
		fmt.Print(bag.EmitAllToString())
		fmt.Println("compilation failed:", err)
		return
	}
	s.mod = res.Module
	fmt.Printf("loaded %q: %d nodes, %d graphs\n",
		s.mod.ID, s.mod.NodeCount(), len(s.mod.CFGs))
}

func (s *session) showCFG(args []string) {
	if s.mod == nil {
		fmt.Println("no module loaded")
		return
	}
	owner := ir.NoNodeID
	if len(args) == 1 {
		raw, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			fmt.Println("not a node id:", args[0])
			return
		}
		owner = ir.NodeID(raw)
	}
	graph, ok := s.mod.CFGs[owner]
	if !ok {
		fmt.Println("no graph for that id")
		return
	}
	for _, bid := range graph.SortedBlockIDs() {
		block := graph.Blocks[bid]
		marker := " "
		if bid == graph.Entry {
			marker = "*"
		}
		dead := ""
		if block.Dead {
			dead = " (dead)"
		}
		fmt.Printf("%s block %d%s: %d stmts, %s -> %v\n",
			marker, bid, dead, len(block.Stmts), block.Term, block.Succs)
	}
}
