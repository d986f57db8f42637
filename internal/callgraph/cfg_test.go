package callgraph

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/zboralski/lattice/render"
	"undex/internal/dex"
	"undex/internal/disasm"
)

func units(us ...uint16) []byte {
	b := make([]byte, len(us)*2)
	for i, u := range us {
		binary.LittleEndian.PutUint16(b[i*2:], u)
	}
	return b
}

func TestBuildCFG_DOTOutput(t *testing.T) {
	// B0: 0x00 invoke-static {}, La;->foo()V
	//     0x06 if-eqz v0, :0x10
	// B1: 0x0a invoke-static {}, Lb;->bar()V
	// B2: 0x10 return-void
	insts, err := disasm.Decode(units(0x0071, 0x0000, 0x0000, 0x0038, 0x0005, 0x0071, 0x0001, 0x0000, 0x000e), disasm.Options{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	pool := &dex.Pool{Methods: []dex.MethodRef{
		{Class: "La;", Name: "foo", Return: "V"},
		{Class: "Lb;", Name: "bar", Return: "V"},
	}}
	dcfg := disasm.BuildCFG("La;->m()V", insts)
	f := FuncInfo{
		Name:      "La;->m()V",
		CFG:       &dcfg,
		CallEdges: disasm.ExtractCallEdges(insts, pool),
	}

	cfg := BuildCFG([]FuncInfo{f})
	if len(cfg.Funcs) != 1 {
		t.Fatalf("expected 1 function, got %d", len(cfg.Funcs))
	}
	lf := cfg.Funcs[0]
	if lf.Name != "La;->m()V" {
		t.Errorf("func name = %q", lf.Name)
	}
	if len(lf.Blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(lf.Blocks))
	}
	if b0 := lf.Blocks[0]; len(b0.Calls) != 1 || b0.Calls[0].Callee != "La;->foo()V" {
		t.Errorf("B0 calls = %+v", b0.Calls)
	}
	if b0 := lf.Blocks[0]; len(b0.Succs) != 2 {
		t.Errorf("B0 succs = %+v", b0.Succs)
	}
	if b1 := lf.Blocks[1]; len(b1.Calls) != 1 || b1.Calls[0].Callee != "Lb;->bar()V" {
		t.Errorf("B1 calls = %+v", b1.Calls)
	}
	if !lf.Blocks[2].Term {
		t.Error("B2 should be terminal")
	}

	dot := render.DOTCFG(cfg, "undex CFG example")
	if dot == "" {
		t.Error("expected non-empty DOT output")
	}
}

func TestBuildFuncCFG_StringRefs(t *testing.T) {
	// const-string v0, "hello"; return-void
	insts, err := disasm.Decode(units(0x001a, 0x0000, 0x000e), disasm.Options{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	pool := &dex.Pool{Strings: []string{"hello"}}
	dcfg := disasm.BuildCFG("m", insts)
	lf, n := BuildFuncCFG(FuncInfo{Name: "m", CFG: &dcfg, StringRefs: disasm.StringRefs(insts, pool)})
	if n != 1 {
		t.Fatalf("blocks = %d, want 1", n)
	}
	calls := lf.Blocks[0].Calls
	if len(calls) != 1 || calls[0].Callee != `"hello"` {
		t.Errorf("calls = %+v, want one \"hello\" ref", calls)
	}
}

func TestEdgeCond(t *testing.T) {
	tests := []struct {
		s    disasm.Succ
		want string
	}{
		{disasm.Succ{Kind: disasm.EdgeCond, Cond: "T"}, "T"},
		{disasm.Succ{Kind: disasm.EdgeException}, "catch"},
		{disasm.Succ{Kind: disasm.EdgeException, Catch: "Ljava/io/IOException;"}, "Ljava/io/IOException;"},
		{disasm.Succ{Kind: disasm.EdgeSwitch, Key: 3}, "3"},
		{disasm.Succ{Kind: disasm.EdgeSwitch, Default: true}, "default"},
	}
	for _, tt := range tests {
		if got := edgeCond(tt.s); got != tt.want {
			t.Errorf("edgeCond(%+v) = %q, want %q", tt.s, got, tt.want)
		}
	}
}

func TestBuildCallGraph_DOTOutput(t *testing.T) {
	funcs := []FuncInfo{
		{
			Name: "LMain;->main()V",
			CallEdges: []disasm.CallEdge{
				{FromPC: 0x00, Kind: "static", TargetName: "LFoo;->init()V"},
				{FromPC: 0x06, Kind: "virtual", TargetName: "LBar;->run()V"},
				{FromPC: 0x0c, Kind: "virtual", TargetName: "method@9", Via: "unresolved"},
			},
		},
		{
			Name: "LFoo;->init()V",
			CallEdges: []disasm.CallEdge{
				{FromPC: 0x00, Kind: "static", TargetName: "LLogger;->log()V"},
			},
		},
		{
			Name: "LBar;->run()V",
			CallEdges: []disasm.CallEdge{
				{FromPC: 0x00, Kind: "static", TargetName: "LLogger;->log()V"},
			},
		},
		{Name: "LLogger;->log()V"},
	}

	cg := BuildCallGraph(funcs)
	if len(cg.Nodes) != 4 {
		t.Errorf("expected 4 nodes, got %d", len(cg.Nodes))
	}
	for _, e := range cg.Edges {
		if strings.HasPrefix(e.Callee, "method@") {
			t.Errorf("unresolved callee %q kept", e.Callee)
		}
	}

	dot := render.DOT(cg, "undex call graph example")
	if dot == "" {
		t.Error("expected non-empty DOT output")
	}
}
