// Command wasm-objdump inspects a WebAssembly binary module. By default it
// prints a section summary; with -i it opens an interactive section
// browser.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/wasmkit/wasmkit/wasm"
)

func main() {
	interactive := flag.Bool("i", false, "Interactive section browser")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: wasm-objdump [-i] <file.wasm>")
		os.Exit(1)
	}

	file := flag.Arg(0)
	data, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wasm-objdump: %v\n", err)
		os.Exit(1)
	}

	mod, derr := wasm.Decode(data, wasm.Features{}.EnableAll())
	if derr != nil {
		fmt.Fprintf(os.Stderr, "wasm-objdump: %s:\n%v\n", file, derr)
		os.Exit(1)
	}

	if *interactive {
		if err := runBrowser(file, mod); err != nil {
			fmt.Fprintf(os.Stderr, "wasm-objdump: %v\n", err)
			os.Exit(1)
		}
		return
	}

	for _, s := range summarize(mod) {
		fmt.Printf("%-12s %s\n", s.title, s.summary)
	}
}

type sectionInfo struct {
	title   string
	summary string
	detail  []string
}

func summarize(m *wasm.Module) []sectionInfo {
	var out []sectionInfo
	add := func(title, summary string, detail []string) {
		if summary != "" {
			out = append(out, sectionInfo{title: title, summary: summary, detail: detail})
		}
	}

	if len(m.Types) > 0 {
		detail := make([]string, len(m.Types))
		for i, ft := range m.Types {
			detail[i] = fmt.Sprintf("type[%d] %s", i, funcTypeString(ft))
		}
		add("Type", fmt.Sprintf("%d entries", len(m.Types)), detail)
	}
	if len(m.Imports) > 0 {
		detail := make([]string, len(m.Imports))
		for i, imp := range m.Imports {
			detail[i] = fmt.Sprintf("import[%d] %s.%s kind=%d", i, imp.Module, imp.Name, imp.Desc.Kind)
		}
		add("Import", fmt.Sprintf("%d entries", len(m.Imports)), detail)
	}
	if len(m.Funcs) > 0 {
		detail := make([]string, len(m.Funcs))
		for i, idx := range m.Funcs {
			detail[i] = fmt.Sprintf("func[%d] type=%d", i, idx)
		}
		add("Function", fmt.Sprintf("%d entries", len(m.Funcs)), detail)
	}
	if len(m.Tables) > 0 {
		detail := make([]string, len(m.Tables))
		for i, t := range m.Tables {
			detail[i] = fmt.Sprintf("table[%d] %s %s", i, t.ElemType, limitsString(t.Limits))
		}
		add("Table", fmt.Sprintf("%d entries", len(m.Tables)), detail)
	}
	if len(m.Memories) > 0 {
		detail := make([]string, len(m.Memories))
		for i, mem := range m.Memories {
			detail[i] = fmt.Sprintf("memory[%d] %s", i, limitsString(mem.Limits))
		}
		add("Memory", fmt.Sprintf("%d entries", len(m.Memories)), detail)
	}
	if len(m.Tags) > 0 {
		detail := make([]string, len(m.Tags))
		for i, t := range m.Tags {
			detail[i] = fmt.Sprintf("tag[%d] type=%d", i, t.TypeIdx)
		}
		add("Tag", fmt.Sprintf("%d entries", len(m.Tags)), detail)
	}
	if len(m.Globals) > 0 {
		detail := make([]string, len(m.Globals))
		for i, g := range m.Globals {
			mut := "const"
			if g.Type.Mutable {
				mut = "mut"
			}
			detail[i] = fmt.Sprintf("global[%d] %s %s", i, mut, g.Type.ValType)
		}
		add("Global", fmt.Sprintf("%d entries", len(m.Globals)), detail)
	}
	if len(m.Exports) > 0 {
		detail := make([]string, len(m.Exports))
		for i, e := range m.Exports {
			detail[i] = fmt.Sprintf("export[%d] %q kind=%d index=%d", i, e.Name, e.Kind, e.Idx)
		}
		add("Export", fmt.Sprintf("%d entries", len(m.Exports)), detail)
	}
	if m.Start != nil {
		add("Start", fmt.Sprintf("function %d", *m.Start), []string{fmt.Sprintf("start function %d", *m.Start)})
	}
	if len(m.Elements) > 0 {
		detail := make([]string, len(m.Elements))
		for i, seg := range m.Elements {
			detail[i] = fmt.Sprintf("elem[%d] mode=%d table=%d funcs=%d exprs=%d",
				i, seg.Mode, seg.TableIdx, len(seg.FuncIdxs), len(seg.Exprs))
		}
		add("Element", fmt.Sprintf("%d entries", len(m.Elements)), detail)
	}
	if len(m.Code) > 0 {
		detail := make([]string, len(m.Code))
		for i, body := range m.Code {
			detail[i] = fmt.Sprintf("code[%d] locals=%d instrs=%d", i, len(body.Locals), len(body.Body))
		}
		add("Code", fmt.Sprintf("%d entries", len(m.Code)), detail)
	}
	if len(m.Data) > 0 {
		detail := make([]string, len(m.Data))
		for i, seg := range m.Data {
			detail[i] = fmt.Sprintf("data[%d] mode=%d memory=%d %d bytes", i, seg.Mode, seg.MemIdx, len(seg.Init))
		}
		add("Data", fmt.Sprintf("%d entries", len(m.Data)), detail)
	}
	for _, c := range m.Customs {
		preview := c.Data
		if len(preview) > 16 {
			preview = preview[:16]
		}
		add("Custom", fmt.Sprintf("%q (%d bytes)", c.Name, len(c.Data)),
			[]string{fmt.Sprintf("custom %q: % x", c.Name, preview)})
	}
	return out
}

func funcTypeString(ft wasm.FuncType) string {
	params := ""
	for i, p := range ft.Params {
		if i > 0 {
			params += " "
		}
		params += p.String()
	}
	results := ""
	for i, r := range ft.Results {
		if i > 0 {
			results += " "
		}
		results += r.String()
	}
	return fmt.Sprintf("(%s) -> (%s)", params, results)
}

func limitsString(l wasm.Limits) string {
	if l.Max != nil {
		return fmt.Sprintf("min=%d max=%d", l.Min, *l.Max)
	}
	return fmt.Sprintf("min=%d", l.Min)
}
