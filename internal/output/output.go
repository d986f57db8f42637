// Package output writes decompilation results to files.
package output

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/segmentio/encoding/json"
	"undex/internal/dex"
	"undex/internal/disasm"
)

// ClassPath returns the path of a class's source file below dir.
// "Lcom/a/B$C;" → dir/com/a/B$C.java.
func ClassPath(dir, desc string) string {
	name := strings.TrimSuffix(strings.TrimPrefix(desc, "L"), ";")
	return filepath.Join(dir, filepath.FromSlash(name)+".java")
}

// WriteClass writes a class's generated source to its package directory.
func WriteClass(dir, desc, src string) error {
	path := ClassPath(dir, desc)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("output: mkdir %s: %w", dex.PackageName(desc), err)
	}
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		return fmt.Errorf("output: write %s: %w", path, err)
	}
	return nil
}

// WriteASM writes a method listing to asm/<name>.txt.
// name may contain path separators for directory grouping.
func WriteASM(dir string, name string, insts []disasm.Inst, annotators ...disasm.Annotator) error {
	path := filepath.Join(dir, "asm", name+".txt")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("output: mkdir asm: %w", err)
	}

	text := disasm.FormatListing(insts, annotators...)
	return os.WriteFile(path, []byte(text), 0644)
}

// WriteDOT writes a Graphviz graph to dot/<name>.dot.
func WriteDOT(dir, name, dot string) error {
	path := filepath.Join(dir, "dot", name+".dot")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("output: mkdir dot: %w", err)
	}
	return os.WriteFile(path, []byte(dot), 0644)
}

// Summary is the batch-level record written to summary.json.
type Summary struct {
	Classes  int            `json:"classes"`
	Methods  int            `json:"methods"`
	Status   map[string]int `json:"status"` // method count per status
	Excluded []string       `json:"excluded,omitempty"`
}

// Index holds the per-method records of a batch.
type Index struct {
	Methods    []disasm.MethodRecord
	CallEdges  []disasm.CallEdgeRecord
	StringRefs []disasm.StringRefRecord
}

// WriteIndex writes summary.json plus methods.jsonl, call_edges.jsonl and
// string_refs.jsonl.
func WriteIndex(dir string, sum Summary, idx Index) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("output: mkdir %s: %w", dir, err)
	}
	if err := writeJSON(filepath.Join(dir, "summary.json"), sum); err != nil {
		return err
	}
	if err := writeJSONL(filepath.Join(dir, "methods.jsonl"), idx.Methods); err != nil {
		return err
	}
	if err := writeJSONL(filepath.Join(dir, "call_edges.jsonl"), idx.CallEdges); err != nil {
		return err
	}
	return writeJSONL(filepath.Join(dir, "string_refs.jsonl"), idx.StringRefs)
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output: create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("output: encode %s: %w", path, err)
	}
	return nil
}

func writeJSONL[T any](path string, recs []T) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i := range recs {
		if err := enc.Encode(&recs[i]); err != nil {
			return fmt.Errorf("output: encode %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("output: write %s: %w", path, err)
	}
	return nil
}
