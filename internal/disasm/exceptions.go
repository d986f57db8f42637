package disasm

import (
	"undex/internal/dex"
	"undex/internal/dexfmt"
)

// CatchHandler is a catch clause resolved to its entry block.
type CatchHandler struct {
	Type  string // exception type descriptor, "" = catch-all
	Addr  uint32
	Block int
}

// Edge is a normal control-flow edge between two blocks.
type Edge struct {
	From int
	To   int
}

// ExceptionRegion is a protected range resolved onto the CFG. Index is its
// priority: lower wins where ranges overlap.
type ExceptionRegion struct {
	Index    int
	Start    uint32
	End      uint32
	Blocks   []int // blocks this region won, ascending
	Handlers []CatchHandler
	CatchAll int  // catch-all handler block, -1 if none
	Finally  bool // a catch-all handler covers every exit
	Exits    []Edge
}

// TryLeaders returns the addresses that must start a basic block so that
// every block lies wholly inside or outside each range.
func TryLeaders(tries []dex.Try) []uint32 {
	var out []uint32
	for _, t := range tries {
		out = append(out, t.Start, t.End)
		for _, h := range t.Handlers {
			out = append(out, h.Addr)
		}
	}
	return out
}

// ResolveExceptions attaches declared try ranges to cfg. Adjacent ranges
// with identical handlers are coalesced first. Each block belongs to the
// first declared range covering it; a later range that partially overlaps an
// earlier one keeps only the blocks the earlier range does not cover. Every
// block of a region gains an EdgeException edge to each handler entry.
// Handlers whose address does not start a block are dropped and reported.
func ResolveExceptions(cfg *FuncCFG, tries []dex.Try, diags *dexfmt.Diags) []ExceptionRegion {
	merged := coalesce(cfg, tries)
	regions := make([]ExceptionRegion, 0, len(merged))

	for _, t := range merged {
		r := ExceptionRegion{Index: len(regions), Start: t.Start, End: t.End, CatchAll: -1}
		for _, h := range t.Handlers {
			b, ok := cfg.BlockAt(h.Addr)
			if !ok {
				diags.Addf(h.Addr, dexfmt.DiagInvalid, "handler for %q does not start a block", h.Type)
				continue
			}
			cfg.Blocks[b].Handler = true
			r.Handlers = append(r.Handlers, CatchHandler{Type: h.Type, Addr: h.Addr, Block: b})
			if h.CatchAll() && r.CatchAll < 0 {
				r.CatchAll = b
			}
		}
		regions = append(regions, r)
	}

	// Membership: first declared region wins.
	for i := range cfg.Blocks {
		blk := &cfg.Blocks[i]
		if blk.Data {
			continue
		}
		addr := cfg.BlockAddr(i)
		for ri := range regions {
			r := &regions[ri]
			if addr < r.Start || addr >= r.End {
				continue
			}
			if blk.Region < 0 {
				blk.Region = ri
				r.Blocks = append(r.Blocks, i)
			} else {
				diags.Addf(addr, dexfmt.DiagOverlap, "block %d in ranges %d and %d; keeping %d", i, blk.Region, ri, blk.Region)
			}
		}
	}

	// Exception edges and finally exits.
	for ri := range regions {
		r := &regions[ri]
		in := make(map[int]bool, len(r.Blocks))
		for _, b := range r.Blocks {
			in[b] = true
		}
		for _, b := range r.Blocks {
			if !blockThrows(cfg, b) {
				continue
			}
			for _, h := range r.Handlers {
				cfg.Blocks[b].Succs = append(cfg.Blocks[b].Succs, Succ{BlockID: h.Block, Kind: EdgeException, Catch: h.Type})
			}
		}
		if r.CatchAll < 0 {
			continue
		}
		r.Finally = true
		for _, b := range r.Blocks {
			for _, s := range cfg.Blocks[b].Succs {
				if s.Kind != EdgeException && !in[s.BlockID] {
					r.Exits = append(r.Exits, Edge{From: b, To: s.BlockID})
				}
			}
		}
		for _, h := range r.Handlers {
			if h.Type == "" || h.Block == r.CatchAll || hasEdge(cfg, h.Block, r.CatchAll) {
				continue
			}
			cfg.Blocks[h.Block].Succs = append(cfg.Blocks[h.Block].Succs, Succ{BlockID: r.CatchAll, Kind: EdgeException})
		}
	}

	cfg.Relink()
	return regions
}

// blockThrows reports whether any instruction of the block may throw.
func blockThrows(cfg *FuncCFG, b int) bool {
	blk := cfg.Blocks[b]
	for i := blk.Start; i < blk.End; i++ {
		if CanThrow(&cfg.Insts[i]) {
			return true
		}
	}
	return false
}

func hasEdge(cfg *FuncCFG, from, to int) bool {
	for _, s := range cfg.Blocks[from].Succs {
		if s.BlockID == to {
			return true
		}
	}
	return false
}

// coalesce merges consecutive ranges with identical handler lists when the
// gap between them holds no throwing instruction.
func coalesce(cfg *FuncCFG, tries []dex.Try) []dex.Try {
	var out []dex.Try
	for _, t := range tries {
		if n := len(out); n > 0 {
			prev := &out[n-1]
			if sameHandlers(prev.Handlers, t.Handlers) && t.Start >= prev.End && !gapThrows(cfg, prev.End, t.Start) {
				prev.End = t.End
				continue
			}
		}
		out = append(out, dex.Try{Start: t.Start, End: t.End, Handlers: t.Handlers})
	}
	return out
}

func sameHandlers(a, b []dex.Handler) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func gapThrows(cfg *FuncCFG, from, to uint32) bool {
	for i := range cfg.Insts {
		inst := &cfg.Insts[i]
		if inst.Addr >= from && inst.Addr < to && CanThrow(inst) {
			return true
		}
	}
	return false
}
