package disasm

import (
	"reflect"
	"testing"
)

func TestBuildCFG_Linear(t *testing.T) {
	insts := mustDecode(t, code(0x1012, 0x2012, 0x000e)) // const/4, const/4, return-void
	cfg := BuildCFG("linear", insts)
	if len(cfg.Blocks) != 1 {
		t.Fatalf("blocks = %d, want 1", len(cfg.Blocks))
	}
	blk := cfg.Blocks[0]
	if blk.Start != 0 || blk.End != 3 {
		t.Errorf("block range = [%d,%d), want [0,3)", blk.Start, blk.End)
	}
	if !blk.IsTerm || !blk.IsEntry {
		t.Error("block should be entry and terminal")
	}
	if len(blk.Succs) != 0 {
		t.Errorf("succs = %d, want 0", len(blk.Succs))
	}
}

// diamond:
//
//	0x00 if-eqz v0, :0x08
//	0x04 const/4 v1, #1
//	0x06 goto :0x0a
//	0x08 const/4 v1, #2
//	0x0a return v1
func diamond(t *testing.T) FuncCFG {
	insts := mustDecode(t, code(0x0038, 0x0004, 0x1112, 0x0228, 0x2112, 0x010f))
	return BuildCFG("diamond", insts)
}

func TestBuildCFG_Diamond(t *testing.T) {
	cfg := diamond(t)
	if len(cfg.Blocks) != 4 {
		t.Fatalf("blocks = %d, want 4", len(cfg.Blocks))
	}
	want := []Succ{
		{BlockID: 2, Kind: EdgeCond, Cond: "T"},
		{BlockID: 1, Kind: EdgeCond, Cond: "F"},
	}
	if !reflect.DeepEqual(cfg.Blocks[0].Succs, want) {
		t.Errorf("block 0 succs = %+v, want %+v", cfg.Blocks[0].Succs, want)
	}
	if s := cfg.Blocks[1].Succs; len(s) != 1 || s[0].BlockID != 3 || s[0].Kind != EdgeGoto {
		t.Errorf("block 1 succs = %+v, want goto 3", s)
	}
	if s := cfg.Blocks[2].Succs; len(s) != 1 || s[0].BlockID != 3 || s[0].Kind != EdgeFallthrough {
		t.Errorf("block 2 succs = %+v, want fallthrough 3", s)
	}
	if p := cfg.Blocks[3].Preds; !reflect.DeepEqual(p, []int{1, 2}) {
		t.Errorf("block 3 preds = %v, want [1 2]", p)
	}
	for _, b := range cfg.Blocks {
		if b.Dead {
			t.Errorf("block %d marked dead", b.ID)
		}
	}
}

func TestBuildCFG_DeadBlock(t *testing.T) {
	// return-void; const/4 v0, #1; return-void
	insts := mustDecode(t, code(0x000e, 0x1012, 0x000e))
	cfg := BuildCFG("dead", insts)
	if len(cfg.Blocks) != 2 {
		t.Fatalf("blocks = %d, want 2", len(cfg.Blocks))
	}
	if cfg.Blocks[0].Dead || !cfg.Blocks[1].Dead {
		t.Errorf("dead flags = %v %v, want false true", cfg.Blocks[0].Dead, cfg.Blocks[1].Dead)
	}
}

func TestBuildCFG_Switch(t *testing.T) {
	insts := mustDecode(t, code(
		0x002b, 0x0005, 0x0000,
		0x000e,
		0x000e,
		0x0100, 0x0001, 0x0005, 0x0000, 0x0004, 0x0000,
	))
	cfg := BuildCFG("switch", insts)
	if len(cfg.Blocks) != 4 {
		t.Fatalf("blocks = %d, want 4", len(cfg.Blocks))
	}
	want := []Succ{
		{BlockID: 2, Kind: EdgeSwitch, Key: 5},
		{BlockID: 1, Kind: EdgeSwitch, Default: true},
	}
	if !reflect.DeepEqual(cfg.Blocks[0].Succs, want) {
		t.Errorf("switch succs = %+v, want %+v", cfg.Blocks[0].Succs, want)
	}
	payload := cfg.Blocks[3]
	if !payload.Data || !payload.Dead {
		t.Errorf("payload block data=%v dead=%v, want true true", payload.Data, payload.Dead)
	}
}

func TestBuildCFG_ExtraLeaders(t *testing.T) {
	insts := mustDecode(t, code(0x1012, 0x2012, 0x000e))
	cfg := BuildCFG("split", insts, 0x02)
	if len(cfg.Blocks) != 2 {
		t.Fatalf("blocks = %d, want 2", len(cfg.Blocks))
	}
	if id, ok := cfg.BlockAt(0x02); !ok || id != 1 {
		t.Errorf("BlockAt(0x02) = %d %v, want 1 true", id, ok)
	}
	if _, ok := cfg.BlockAt(0x04); ok {
		t.Error("BlockAt(0x04) should not start a block")
	}
}

func TestBuildCFG_Loop(t *testing.T) {
	// 0x00 if-eqz v0, :0x0a
	// 0x04 add-int/lit8 v0, v0, #-1
	// 0x08 goto :0x00
	// 0x0a return-void
	insts := mustDecode(t, code(0x0038, 0x0005, 0x00d8, 0xff00, 0xfc28, 0x000e))
	cfg := BuildCFG("loop", insts)
	if len(cfg.Blocks) != 3 {
		t.Fatalf("blocks = %d, want 3", len(cfg.Blocks))
	}
	if s := cfg.Blocks[1].Succs; len(s) != 1 || s[0].BlockID != 0 {
		t.Errorf("latch succs = %+v, want back edge to 0", s)
	}
	if p := cfg.Blocks[0].Preds; !reflect.DeepEqual(p, []int{1}) {
		t.Errorf("header preds = %v, want [1]", p)
	}
}

func TestDecodeBranch(t *testing.T) {
	insts := mustDecode(t, code(0x0038, 0x0003, 0x000e, 0x0027))
	if bi := DecodeBranch(&insts[0]); bi == nil || !bi.Cond || bi.Target != 0x06 {
		t.Errorf("if-eqz = %+v, want cond target 0x06", bi)
	}
	if bi := DecodeBranch(&insts[1]); bi == nil || !bi.IsRet {
		t.Errorf("return-void = %+v, want IsRet", bi)
	}
	if bi := DecodeBranch(&insts[2]); bi == nil || !bi.IsThrow {
		t.Errorf("throw = %+v, want IsThrow", bi)
	}
}
