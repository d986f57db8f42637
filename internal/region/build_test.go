package region

import (
	"encoding/binary"
	"errors"
	"testing"

	"undex/internal/dex"
	"undex/internal/dexfmt"
	"undex/internal/disasm"
)

func code(units ...uint16) []byte {
	b := make([]byte, 2*len(units))
	for i, u := range units {
		binary.LittleEndian.PutUint16(b[2*i:], u)
	}
	return b
}

func build(t *testing.T, b []byte, tries []dex.Try, opts Options) (*disasm.FuncCFG, *Tree, error) {
	t.Helper()
	insts, err := disasm.Decode(b, disasm.Options{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	cfg := disasm.BuildCFG("m", insts, disasm.TryLeaders(tries)...)
	regions := disasm.ResolveExceptions(&cfg, tries, nil)
	tree, err := Build(&cfg, regions, opts)
	return &cfg, tree, err
}

func mustBuild(t *testing.T, b []byte, tries []dex.Try, opts Options) *Tree {
	t.Helper()
	_, tree, err := build(t, b, tries, opts)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return tree
}

func countLeaves(r Region) map[int]int {
	seen := make(map[int]int)
	Walk(r, func(r Region) {
		if b, ok := r.(*Block); ok {
			seen[b.ID]++
		}
	})
	return seen
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name  string
		code  []byte
		tries []dex.Try
		opts  Options
		want  string
	}{
		{
			// 0x00 if-eqz v0, :0x08
			// 0x04 const/4 v1, #1
			// 0x06 goto :0x0a
			// 0x08 const/4 v1, #2
			// 0x0a return v1
			name: "diamond",
			code: code(0x0038, 0x0004, 0x1112, 0x0228, 0x2112, 0x010f),
			want: "if B0\n  B2\nelse\n  B1\nB3\n",
		},
		{
			// 0x00 const/4 v0, #0
			// 0x02 if-ge v0, v1, :0x0c
			// 0x06 add-int/lit8 v0, v0, #1
			// 0x0a goto :0x02
			// 0x0c return v0
			name: "while",
			code: code(0x0012, 0x1035, 0x0005, 0x00d8, 0x0100, 0xfc28, 0x000f),
			want: "B0\nwhile !B1\n  B2\nB3\n",
		},
		{
			// 0x00 const/4 v0, #0
			// 0x02 add-int/lit8 v0, v0, #1
			// 0x06 if-lt v0, v1, :0x02
			// 0x0a return v0
			name: "do-while",
			code: code(0x0012, 0x00d8, 0x0100, 0x1034, 0xfffe, 0x000f),
			want: "B0\ndo\nwhile B1\nB2\n",
		},
		{
			// 0x00 const/4 v0, #0
			// 0x02 add-int/lit8 v0, v0, #1
			// 0x06 if-ge v0, v1, :0x10
			// 0x0a add-int/lit8 v0, v0, #2
			// 0x0e goto :0x02
			// 0x10 return v0
			name: "infinite with break",
			code: code(0x0012, 0x00d8, 0x0100, 0x1035, 0x0005, 0x00d8, 0x0200, 0xfa28, 0x000f),
			want: "B0\nloop\n  if B1\n    break B3\n  else\n    B2\nB3\n",
		},
		{
			name: "foldable header",
			code: code(0x0012, 0x00d8, 0x0100, 0x1035, 0x0005, 0x00d8, 0x0200, 0xfa28, 0x000f),
			opts: Options{FoldableHeader: func(b int) bool { return b == 1 }},
			want: "B0\nwhile !B1\n  B2\nB3\n",
		},
		{
			// 0x00 if-eqz v0, :0x0a
			// 0x04 add-int/lit8 v0, v0, #-1
			// 0x08 goto :0x00
			// 0x0a return-void
			name: "while at entry",
			code: code(0x0038, 0x0005, 0x00d8, 0xff00, 0xfc28, 0x000e),
			want: "while !B0\n  B1\nB2\n",
		},
		{
			// 0x00 packed-switch v0, :0x0a
			// 0x06 return-void
			// 0x08 return-void
			// 0x0a packed-switch-payload {5: 0x08}
			name: "switch",
			code: code(0x002b, 0x0005, 0x0000, 0x000e, 0x000e, 0x0100, 0x0001, 0x0005, 0x0000, 0x0004, 0x0000),
			want: "switch B0\ncase default\n  B1\ncase 5\n  B2\ndead B3\n",
		},
		{
			// 0x00 packed-switch v0, :0x0c
			// 0x06 const/4 v1, #1
			// 0x08 const/4 v1, #2
			// 0x0a return v1
			// 0x0c packed-switch-payload {0: 0x08}
			name: "switch with follow",
			code: code(0x002b, 0x0006, 0x0000, 0x1112, 0x2112, 0x010f, 0x0100, 0x0001, 0x0000, 0x0000, 0x0004, 0x0000),
			want: "switch B0\ncase default\n  B1\ncase 0\nB2\ndead B3\n",
		},
		{
			// 0x00 invoke-static {}, method@0
			// 0x06 return-void
			// 0x08 move-exception v0; return-void
			// 0x0c move-exception v0; throw v0
			name: "try catch finally",
			code: code(0x0071, 0x0000, 0x0000, 0x000e, 0x000d, 0x000e, 0x000d, 0x0027),
			tries: []dex.Try{{Start: 0x00, End: 0x06, Handlers: []dex.Handler{
				{Type: "Ljava/io/IOException;", Addr: 0x08},
				{Addr: 0x0c},
			}}},
			want: "try\n  B0\ncatch Ljava/io/IOException;\n  B2\nfinally\n  B3\nB1\n",
		},
		{
			// 0x00 invoke-static {}, method@0
			// 0x06 return-void
			// 0x08 move-exception v0; return-void
			name: "multi catch",
			code: code(0x0071, 0x0000, 0x0000, 0x000e, 0x000d, 0x000e),
			tries: []dex.Try{{Start: 0x00, End: 0x06, Handlers: []dex.Handler{
				{Type: "LA;", Addr: 0x08},
				{Type: "LB;", Addr: 0x08},
			}}},
			want: "try\n  B0\ncatch LA;|LB;\n  B2\nB1\n",
		},
		{
			// return-void; const/4 v0, #1; return-void
			name: "dead block",
			code: code(0x000e, 0x1012, 0x000e),
			want: "B0\ndead B1\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := mustBuild(t, tt.code, tt.tries, tt.opts)
			if got := Dump(tree.Root); got != tt.want {
				t.Errorf("Dump =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestBuild_DiamondShape(t *testing.T) {
	tree := mustBuild(t, code(0x0038, 0x0004, 0x1112, 0x0228, 0x2112, 0x010f), nil, Options{})
	seq, ok := tree.Root.(*Sequence)
	if !ok || len(seq.Items) != 2 {
		t.Fatalf("root = %T, want sequence of 2", tree.Root)
	}
	n, ok := seq.Items[0].(*If)
	if !ok {
		t.Fatalf("first item = %T, want *If", seq.Items[0])
	}
	if n.Negate {
		t.Error("diamond condition should not be negated")
	}
	if b, ok := n.Then.(*Block); !ok || b.ID != 2 {
		t.Errorf("then = %#v, want taken block 2", n.Then)
	}
	if b, ok := n.Else.(*Block); !ok || b.ID != 1 {
		t.Errorf("else = %#v, want fallthrough block 1", n.Else)
	}
	if b, ok := seq.Items[1].(*Block); !ok || b.ID != 3 {
		t.Errorf("join = %#v, want block 3", seq.Items[1])
	}
	if tree.Loops != 0 || len(tree.Gotos) != 0 {
		t.Errorf("loops=%d gotos=%v, want 0 none", tree.Loops, tree.Gotos)
	}
}

func TestBuild_Irreducible(t *testing.T) {
	// Two entries into the cycle B1 -> B2 -> B3 -> B1.
	// 0x00 if-eqz v0, :0x08
	// 0x04 if-eqz v1, :0x0e
	// 0x08 if-eqz v2, :0x0e
	// 0x0c goto :0x04
	// 0x0e return-void
	cfg, tree, err := build(t, code(0x0038, 0x0004, 0x0138, 0x0005, 0x0238, 0x0003, 0xfc28, 0x000e), nil, Options{})
	var irr *dexfmt.IrreducibleError
	if !errors.As(err, &irr) {
		t.Fatalf("err = %v, want IrreducibleError", err)
	}
	if tree == nil {
		t.Fatal("tree = nil, want a tree alongside the error")
	}
	if len(irr.Blocks) == 0 || len(tree.Gotos) != len(irr.Blocks) {
		t.Errorf("gotos = %v, error blocks = %v", tree.Gotos, irr.Blocks)
	}
	gotos := 0
	Walk(tree.Root, func(r Region) {
		if j, ok := r.(*Jump); ok && j.Kind == Goto {
			gotos++
		}
	})
	if gotos == 0 {
		t.Error("no goto jumps in tree")
	}
	seen := countLeaves(tree.Root)
	for id := range cfg.Blocks {
		if seen[id] != 1 {
			t.Errorf("block %d appears %d times, want 1", id, seen[id])
		}
	}
}

func TestBuild_Coverage(t *testing.T) {
	codes := [][]byte{
		code(0x0038, 0x0004, 0x1112, 0x0228, 0x2112, 0x010f),
		code(0x0012, 0x1035, 0x0005, 0x00d8, 0x0100, 0xfc28, 0x000f),
		code(0x002b, 0x0006, 0x0000, 0x1112, 0x2112, 0x010f, 0x0100, 0x0001, 0x0000, 0x0000, 0x0004, 0x0000),
		code(0x000e, 0x1012, 0x000e),
	}
	for i, c := range codes {
		cfg, tree, err := build(t, c, nil, Options{})
		if err != nil {
			t.Errorf("case %d: %v", i, err)
			continue
		}
		seen := countLeaves(tree.Root)
		for id := range cfg.Blocks {
			if seen[id] != 1 {
				t.Errorf("case %d: block %d appears %d times, want 1", i, id, seen[id])
			}
		}
	}
}

func TestCheckCoverage(t *testing.T) {
	root := &Sequence{Items: []Region{&Block{ID: 0}, &Block{ID: 0}}}
	err := checkCoverage(root, 2, "m")
	var se *dexfmt.StructuralError
	if !errors.As(err, &se) || se.Stage != "region" {
		t.Fatalf("err = %v, want region StructuralError", err)
	}
	if err := checkCoverage(&Sequence{Items: []Region{&Block{ID: 0}, &Block{ID: 1}}}, 2, "m"); err != nil {
		t.Errorf("err = %v, want nil", err)
	}
}

func TestBuild_Empty(t *testing.T) {
	tree, err := Build(&disasm.FuncCFG{Name: "m"}, nil, Options{})
	if err != nil || tree == nil {
		t.Fatalf("Build = %v, %v", tree, err)
	}
}

func TestDominators(t *testing.T) {
	g := newGraph(4)
	g.addEdge(0, 1)
	g.addEdge(0, 2)
	g.addEdge(1, 3)
	g.addEdge(2, 3)
	idom := g.idoms(0)
	want := []int{0, 0, 0, 0}
	for i := range want {
		if idom[i] != want[i] {
			t.Errorf("idom[%d] = %d, want %d", i, idom[i], want[i])
		}
	}
	if !dominates(idom, 0, 3) || dominates(idom, 1, 3) {
		t.Error("dominance relation wrong")
	}
}

func TestWalk_InfiniteLoop(t *testing.T) {
	tests := []struct {
		name string
		root Region
		want map[int]int
	}{
		{
			name: "loop without cond",
			root: &Loop{Kind: Infinite, Body: &Sequence{Items: []Region{&Block{ID: 1}, &Jump{Kind: Break}}}},
			want: map[int]int{1: 1},
		},
		{
			name: "nested in if",
			root: &If{Cond: &Block{ID: 0}, Then: &Loop{Kind: Infinite, Body: &Block{ID: 2}}},
			want: map[int]int{0: 1, 2: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := countLeaves(tt.root)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for id, n := range tt.want {
				if got[id] != n {
					t.Errorf("block %d: got %d, want %d", id, got[id], n)
				}
			}
		})
	}
}

func TestBuild_InfiniteCoverage(t *testing.T) {
	// 0x00 invoke-static {}, method@0
	// 0x06 sget v0, field@0
	// 0x0a if-nez v0, :0x16
	// 0x0e invoke-static {}, method@1
	// 0x14 goto :0x00
	// 0x16 return-void
	b := code(0x0071, 0x0000, 0x0000, 0x0060, 0x0000, 0x0039, 0x0006, 0x0071, 0x0001, 0x0000, 0xf628, 0x000e)
	cfg, tree, err := build(t, b, nil, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if tree.Loops != 1 {
		t.Errorf("got %d loops, want 1", tree.Loops)
	}
	seen := countLeaves(tree.Root)
	for id := range cfg.Blocks {
		if seen[id] != 1 {
			t.Errorf("block %d: got %d appearances, want 1", id, seen[id])
		}
	}
}
