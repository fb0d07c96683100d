package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ssdajoker/LUASCRIPT-sub000/internal/diagnostics"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/frontend/astjson"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/ir"
	"github.com/ssdajoker/LUASCRIPT-sub000/internal/pipeline"
)

const version = "0.1.0"

func main() {
	debug := flag.Bool("d", false, "Enable debug output")
	showVersion := flag.Bool("v", false, "Show version")
	backendID := flag.String("b", "lua", "Backend to emit with (lua, svm)")
	output := flag.String("o", "", "Write emitted code to file instead of stdout")
	irOut := flag.String("ir", "", "Also write the post-transform IR module as JSON")
	moduleID := flag.String("m", "", "Module id (defaults to the input file base name)")
	flag.BoolVar(debug, "debug", false, "Enable debug output")
	flag.BoolVar(showVersion, "version", false, "Show version")
	flag.StringVar(backendID, "backend", "lua", "Backend to emit with (lua, svm)")

	flag.Parse()

	if *showVersion {
		fmt.Printf("luascript version %s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: luascript [options] <ast.json>")
		fmt.Fprintln(os.Stderr, "\nOptions:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	input := args[0]
	data, err := readInput(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	prog, err := astjson.DecodeBytes(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	id := *moduleID
	if id == "" {
		id = moduleName(input)
	}

	bag := diagnostics.NewBag()
	p := pipeline.New(pipeline.Options{
		ModuleID:  id,
		BackendID: *backendID,
		Debug:     *debug,
		Diags:     bag,
	})
	res, err := p.Run(prog)
	bag.EmitAll()
	if err != nil {
		os.Exit(1)
	}

	if *irOut != "" {
		encoded, err := ir.EncodeModule(res.Module)
		if err == nil {
			err = os.WriteFile(*irOut, encoded, 0644)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}

	if *output == "" {
		fmt.Print(res.Output.Code)
		return
	}
	if err := os.WriteFile(*output, []byte(res.Output.Code), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func moduleName(path string) string {
	if path == "-" {
		return "main"
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
