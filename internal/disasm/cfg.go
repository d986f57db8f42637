package disasm

import "sort"

// EdgeKind classifies a control-flow edge.
type EdgeKind uint8

const (
	EdgeFallthrough EdgeKind = iota
	EdgeCond                 // if-test, taken ("T") or not taken ("F")
	EdgeGoto
	EdgeSwitch
	EdgeException
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeCond:
		return "cond"
	case EdgeGoto:
		return "goto"
	case EdgeSwitch:
		return "switch"
	case EdgeException:
		return "exception"
	}
	return "fallthrough"
}

// BasicBlock represents a sequence of instructions with a single entry point.
type BasicBlock struct {
	ID      int
	Start   int    // index into FuncCFG.Insts (inclusive)
	End     int    // index into FuncCFG.Insts (exclusive)
	Succs   []Succ // successor edges
	Preds   []int  // predecessor block IDs, deduplicated, ascending
	IsEntry bool
	IsTerm  bool // ends with return or throw, or falls off the end of the code
	Dead    bool // unreachable from the entry, exception edges included
	Data    bool // holds only payload pseudo-instructions
	Region  int  // winning exception region index, -1 outside any
	Handler bool // first block of a catch handler
}

// Succ describes a control-flow successor edge.
type Succ struct {
	BlockID int
	Kind    EdgeKind
	Cond    string // "" = unconditional, "T" = taken/true, "F" = fallthrough/false
	Key     int32  // switch case key
	Default bool   // switch default arm
	Catch   string // exception type descriptor, "" = catch-all
}

// FuncCFG is a per-method control flow graph.
type FuncCFG struct {
	Name   string
	Blocks []BasicBlock
	Insts  []Inst
}

// BuildCFG constructs a control flow graph from a method's instruction stream.
// extra lists additional leader addresses (try range boundaries and handler
// entries). The algorithm:
//  1. Find block leaders: index 0, branch targets, instructions after
//     terminators, payloads, and extra addresses.
//  2. Partition instructions into blocks by leaders.
//  3. Compute successor edges from each block's last instruction.
//  4. Compute predecessors and reachability.
func BuildCFG(name string, insts []Inst, extra ...uint32) FuncCFG {
	if len(insts) == 0 {
		return FuncCFG{Name: name, Insts: insts}
	}

	addrToIdx := make(map[uint32]int, len(insts))
	for i := range insts {
		addrToIdx[insts[i].Addr] = i
	}

	// Pass 1: Identify block leaders.
	leaders := map[int]bool{0: true}
	mark := func(addr uint32) {
		if idx, ok := addrToIdx[addr]; ok {
			leaders[idx] = true
		}
	}
	for i := range insts {
		inst := &insts[i]
		if inst.Kind() == KindPayload {
			leaders[i] = true
			if i+1 < len(insts) {
				leaders[i+1] = true
			}
			continue
		}
		bi := DecodeBranch(inst)
		if bi == nil {
			continue
		}
		if i+1 < len(insts) {
			leaders[i+1] = true
		}
		if !bi.IsRet && !bi.IsThrow {
			mark(bi.Target)
		}
		for _, c := range bi.Cases {
			mark(c.Target)
		}
	}
	for _, addr := range extra {
		mark(addr)
	}

	sorted := make([]int, 0, len(leaders))
	for idx := range leaders {
		sorted = append(sorted, idx)
	}
	sort.Ints(sorted)

	// Pass 2: Partition into blocks.
	blocks := make([]BasicBlock, len(sorted))
	leaderToBlock := make(map[int]int, len(sorted))
	for i, start := range sorted {
		end := len(insts)
		if i+1 < len(sorted) {
			end = sorted[i+1]
		}
		blocks[i] = BasicBlock{
			ID:      i,
			Start:   start,
			End:     end,
			IsEntry: start == 0,
			Region:  -1,
			Data:    insts[start].Kind() == KindPayload,
		}
		leaderToBlock[start] = i
	}
	blockAt := func(addr uint32) int {
		if idx, ok := addrToIdx[addr]; ok {
			if bid, ok := leaderToBlock[idx]; ok {
				return bid
			}
		}
		return -1
	}

	// Pass 3: Compute successors.
	for i := range blocks {
		blk := &blocks[i]
		if blk.Data {
			continue
		}
		next, hasNext := leaderToBlock[blk.End]
		last := &insts[blk.End-1]
		bi := DecodeBranch(last)

		switch {
		case bi == nil:
			if hasNext {
				blk.Succs = append(blk.Succs, Succ{BlockID: next, Kind: EdgeFallthrough})
			} else {
				blk.IsTerm = true
			}
		case bi.IsRet || bi.IsThrow:
			blk.IsTerm = true
		case last.Kind() == KindSwitch:
			for _, c := range bi.Cases {
				if t := blockAt(c.Target); t >= 0 {
					blk.Succs = append(blk.Succs, Succ{BlockID: t, Kind: EdgeSwitch, Key: c.Key})
				}
			}
			if hasNext {
				blk.Succs = append(blk.Succs, Succ{BlockID: next, Kind: EdgeSwitch, Default: true})
			}
		case bi.Cond:
			// Conditional: taken (T) goes to target, fallthrough (F) goes to next.
			if t := blockAt(bi.Target); t >= 0 {
				blk.Succs = append(blk.Succs, Succ{BlockID: t, Kind: EdgeCond, Cond: "T"})
			}
			if hasNext {
				blk.Succs = append(blk.Succs, Succ{BlockID: next, Kind: EdgeCond, Cond: "F"})
			}
		default:
			if t := blockAt(bi.Target); t >= 0 {
				blk.Succs = append(blk.Succs, Succ{BlockID: t, Kind: EdgeGoto})
			} else {
				blk.IsTerm = true
			}
		}
	}

	cfg := FuncCFG{Name: name, Blocks: blocks, Insts: insts}
	cfg.Relink()
	return cfg
}

// Relink recomputes predecessor lists and the Dead flags from the current
// successor edges.
func (c *FuncCFG) Relink() {
	for i := range c.Blocks {
		c.Blocks[i].Preds = c.Blocks[i].Preds[:0]
		c.Blocks[i].Dead = true
	}
	for i := range c.Blocks {
		for _, s := range c.Blocks[i].Succs {
			p := &c.Blocks[s.BlockID].Preds
			if n := len(*p); n == 0 || (*p)[n-1] != i {
				*p = append(*p, i)
			}
		}
	}
	if len(c.Blocks) == 0 {
		return
	}
	stack := []int{0}
	c.Blocks[0].Dead = false
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, s := range c.Blocks[b].Succs {
			if c.Blocks[s.BlockID].Dead {
				c.Blocks[s.BlockID].Dead = false
				stack = append(stack, s.BlockID)
			}
		}
	}
}

// BlockAt returns the block whose first instruction is at addr.
func (c *FuncCFG) BlockAt(addr uint32) (int, bool) {
	i := sort.Search(len(c.Blocks), func(i int) bool {
		return c.Insts[c.Blocks[i].Start].Addr >= addr
	})
	if i < len(c.Blocks) && c.Insts[c.Blocks[i].Start].Addr == addr {
		return i, true
	}
	return -1, false
}

// BlockAddr returns the byte offset of a block's first instruction.
func (c *FuncCFG) BlockAddr(id int) uint32 { return c.Insts[c.Blocks[id].Start].Addr }

// Last returns the block's final instruction.
func (c *FuncCFG) Last(id int) *Inst { return &c.Insts[c.Blocks[id].End-1] }

// NormalSuccs returns the block's successors excluding exception edges.
func (c *FuncCFG) NormalSuccs(id int) []Succ {
	var out []Succ
	for _, s := range c.Blocks[id].Succs {
		if s.Kind != EdgeException {
			out = append(out, s)
		}
	}
	return out
}
