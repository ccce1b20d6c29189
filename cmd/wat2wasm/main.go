// Command wat2wasm compiles a WebAssembly text format file to the binary
// format.
//
//	wat2wasm -o out.wasm [-enable feature,...] [-validate] [-names] in.wat
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"golang.org/x/term"

	wkerrors "github.com/wasmkit/wasmkit/errors"
	"github.com/wasmkit/wasmkit/wasm"
	"github.com/wasmkit/wasmkit/wat"
)

var (
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	offsetStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB"))
	ctxStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

func main() {
	var (
		output   = flag.String("o", "", "Output file (defaults to input with .wasm extension)")
		features = flag.String("enable", "", "Comma-separated feature list (or 'all')")
		validate = flag.Bool("validate", false, "Validate the compiled module")
		names    = flag.Bool("names", false, "Emit a \"name\" custom section")
		verbose  = flag.Bool("v", false, "Verbose logging")
		noColor  = flag.Bool("no-color", false, "Disable colored diagnostics")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: wat2wasm [flags] <file.wat>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err == nil {
			wat.SetLogger(logger)
			wasm.SetLogger(logger)
			defer logger.Sync()
		}
	}

	color := !*noColor && term.IsTerminal(int(os.Stderr.Fd()))

	feats, err := parseFeatures(*features)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	in := flag.Arg(0)
	src, err := os.ReadFile(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wat2wasm: %v\n", err)
		os.Exit(1)
	}

	opts := []wat.Option{wat.WithFeatures(feats)}
	if *names {
		opts = append(opts, wat.WithNames())
	}
	mod, cerr := wat.CompileModule(string(src), opts...)
	if cerr != nil {
		printErrors(in, cerr, color)
		os.Exit(1)
	}

	if *validate {
		if verr := wasm.ValidateFull(context.Background(), mod, feats); verr != nil {
			printErrors(in, verr, color)
			os.Exit(1)
		}
	}

	bin, eerr := wasm.Encode(mod)
	if eerr != nil {
		printErrors(in, eerr, color)
		os.Exit(1)
	}

	out := *output
	if out == "" {
		out = strings.TrimSuffix(in, ".wat") + ".wasm"
	}
	if err := os.WriteFile(out, bin, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "wat2wasm: %v\n", err)
		os.Exit(1)
	}
}

func parseFeatures(spec string) (wasm.Features, error) {
	feats := wasm.DefaultFeatures()
	if spec == "" {
		return feats, nil
	}
	if spec == "all" {
		return feats.EnableAll(), nil
	}
	for _, name := range strings.Split(spec, ",") {
		if !feats.Set(strings.TrimSpace(name), true) {
			return feats, fmt.Errorf("wat2wasm: unknown feature %q", name)
		}
	}
	return feats, nil
}

// printErrors renders an error list with offsets and context trails.
func printErrors(file string, err error, color bool) {
	list, ok := err.(*wkerrors.List)
	if !ok {
		fmt.Fprintf(os.Stderr, "%s: %v\n", file, err)
		return
	}
	for _, e := range list.Errors {
		offset := fmt.Sprintf("%06x", e.Offset)
		trail := ""
		if len(e.Contexts) > 0 {
			trail = strings.Join(e.Contexts, ": ") + ": "
		}
		msg := e.Detail
		if msg == "" {
			msg = string(e.Kind)
		}
		if color {
			fmt.Fprintf(os.Stderr, "%s:%s: %s%s\n",
				file, offsetStyle.Render(offset), ctxStyle.Render(trail), errStyle.Render(msg))
		} else {
			fmt.Fprintf(os.Stderr, "%s:%s: %s%s\n", file, offset, trail, msg)
		}
	}
}
