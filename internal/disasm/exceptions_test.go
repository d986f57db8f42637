package disasm

import (
	"reflect"
	"testing"

	"undex/internal/dex"
	"undex/internal/dexfmt"
)

func buildWithTries(t *testing.T, b []byte, tries []dex.Try) (FuncCFG, []ExceptionRegion, *dexfmt.Diags) {
	t.Helper()
	cfg := BuildCFG("m", mustDecode(t, b), TryLeaders(tries)...)
	var diags dexfmt.Diags
	regions := ResolveExceptions(&cfg, tries, &diags)
	return cfg, regions, &diags
}

func TestResolveExceptions_CatchAndFinally(t *testing.T) {
	b := code(
		0x0071, 0x0000, 0x0000, // 0x00 invoke-static {}, method@0
		0x000e,                 // 0x06 return-void
		0x000d, 0x000e,         // 0x08 move-exception v0; return-void
		0x000d, 0x0027,         // 0x0c move-exception v0; throw v0
	)
	tries := []dex.Try{{Start: 0x00, End: 0x06, Handlers: []dex.Handler{
		{Type: "Ljava/io/IOException;", Addr: 0x08},
		{Addr: 0x0c},
	}}}
	cfg, regions, _ := buildWithTries(t, b, tries)

	if len(regions) != 1 {
		t.Fatalf("regions = %d, want 1", len(regions))
	}
	r := regions[0]
	if !reflect.DeepEqual(r.Blocks, []int{0}) {
		t.Errorf("region blocks = %v, want [0]", r.Blocks)
	}
	if !r.Finally || r.CatchAll != 3 {
		t.Errorf("finally=%v catchAll=%d, want true 3", r.Finally, r.CatchAll)
	}
	if !reflect.DeepEqual(r.Exits, []Edge{{From: 0, To: 1}}) {
		t.Errorf("exits = %v, want [{0 1}]", r.Exits)
	}
	wantSuccs := []Succ{
		{BlockID: 1, Kind: EdgeFallthrough},
		{BlockID: 2, Kind: EdgeException, Catch: "Ljava/io/IOException;"},
		{BlockID: 3, Kind: EdgeException},
	}
	if !reflect.DeepEqual(cfg.Blocks[0].Succs, wantSuccs) {
		t.Errorf("block 0 succs = %+v, want %+v", cfg.Blocks[0].Succs, wantSuccs)
	}
	if !hasEdge(&cfg, 2, 3) {
		t.Error("typed handler should flow to the catch-all handler")
	}
	for _, blk := range cfg.Blocks {
		if blk.Dead {
			t.Errorf("block %d dead, want reachable through exception edges", blk.ID)
		}
	}
	if !cfg.Blocks[2].Handler || !cfg.Blocks[3].Handler {
		t.Error("handler entry blocks not flagged")
	}
	if cfg.Blocks[0].Region != 0 || cfg.Blocks[1].Region != -1 {
		t.Errorf("block regions = %d %d, want 0 -1", cfg.Blocks[0].Region, cfg.Blocks[1].Region)
	}
}

func TestResolveExceptions_Coalesce(t *testing.T) {
	b := code(
		0x001a, 0x0000, // 0x00 const-string v0
		0x011a, 0x0000, // 0x04 const-string v1
		0x000e,         // 0x08 return-void
		0x000d, 0x0027, // 0x0a move-exception v0; throw v0
	)
	h := []dex.Handler{{Type: "Ljava/lang/Exception;", Addr: 0x0a}}
	tries := []dex.Try{
		{Start: 0x00, End: 0x04, Handlers: h},
		{Start: 0x04, End: 0x08, Handlers: h},
	}
	_, regions, _ := buildWithTries(t, b, tries)
	if len(regions) != 1 {
		t.Fatalf("regions = %d, want 1 after coalescing", len(regions))
	}
	if regions[0].Start != 0 || regions[0].End != 0x08 {
		t.Errorf("range = [0x%x,0x%x), want [0x0,0x8)", regions[0].Start, regions[0].End)
	}
	if !reflect.DeepEqual(regions[0].Blocks, []int{0, 1}) {
		t.Errorf("blocks = %v, want [0 1]", regions[0].Blocks)
	}
	if regions[0].Finally {
		t.Error("typed-only region should not be finally")
	}
}

func TestResolveExceptions_PartialOverlap(t *testing.T) {
	b := code(
		0x001a, 0x0000, // 0x00 const-string v0
		0x011a, 0x0000, // 0x04 const-string v1
		0x021a, 0x0000, // 0x08 const-string v2
		0x000e,         // 0x0c return-void
		0x000d, 0x0027, // 0x0e handler A
		0x000d, 0x0027, // 0x12 handler B
	)
	tries := []dex.Try{
		{Start: 0x00, End: 0x08, Handlers: []dex.Handler{{Type: "LA;", Addr: 0x0e}}},
		{Start: 0x04, End: 0x0c, Handlers: []dex.Handler{{Type: "LB;", Addr: 0x12}}},
	}
	cfg, regions, diags := buildWithTries(t, b, tries)
	if len(regions) != 2 {
		t.Fatalf("regions = %d, want 2", len(regions))
	}
	if !reflect.DeepEqual(regions[0].Blocks, []int{0, 1}) {
		t.Errorf("region 0 blocks = %v, want [0 1]", regions[0].Blocks)
	}
	if !reflect.DeepEqual(regions[1].Blocks, []int{2}) {
		t.Errorf("region 1 blocks = %v, want [2]", regions[1].Blocks)
	}
	if cfg.Blocks[1].Region != 0 {
		t.Errorf("overlapped block region = %d, want 0", cfg.Blocks[1].Region)
	}
	if diags.Len() != 1 || diags.Items()[0].Kind != dexfmt.DiagOverlap {
		t.Errorf("diags = %v, want one overlap", diags.Items())
	}
}

func TestResolveExceptions_BadHandler(t *testing.T) {
	b := code(0x001a, 0x0000, 0x000e)
	tries := []dex.Try{{Start: 0, End: 4, Handlers: []dex.Handler{{Addr: 0x02}}}}
	cfg := BuildCFG("m", mustDecode(t, b)) // no try leaders: 0x02 is mid-instruction
	var diags dexfmt.Diags
	regions := ResolveExceptions(&cfg, tries, &diags)
	if len(regions[0].Handlers) != 0 {
		t.Errorf("handlers = %v, want none", regions[0].Handlers)
	}
	if diags.Len() != 1 {
		t.Errorf("diags = %d, want 1", diags.Len())
	}
}

func TestPoolAnnotator(t *testing.T) {
	pool := &dex.Pool{
		Strings: []string{"hi"},
		Methods: []dex.MethodRef{{Class: "LA;", Name: "f", Return: "V"}},
	}
	ann := PoolAnnotator(pool)
	insts := mustDecode(t, code(0x001a, 0x0000, 0x0071, 0x0000, 0x0000, 0x0071, 0x0001, 0x0000))
	tests := []struct {
		i    int
		want string
	}{
		{0, `"hi"`},
		{1, "LA;->f()V"},
		{2, "unresolved method@1"},
	}
	for _, tt := range tests {
		if got := ann(insts[tt.i]); got != tt.want {
			t.Errorf("annotate[%d] = %q, want %q", tt.i, got, tt.want)
		}
	}
}
