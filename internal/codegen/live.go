package codegen

import "undex/internal/disasm"

// bitset is a fixed-size register set.
type bitset []uint64

func newBitset(n int) bitset { return make(bitset, (n+63)/64) }

func (s bitset) set(i int) {
	if i >= 0 && i/64 < len(s) {
		s[i/64] |= 1 << (uint(i) % 64)
	}
}

func (s bitset) clear(i int) {
	if i >= 0 && i/64 < len(s) {
		s[i/64] &^= 1 << (uint(i) % 64)
	}
}

func (s bitset) has(i int) bool {
	return i >= 0 && i/64 < len(s) && s[i/64]&(1<<(uint(i)%64)) != 0
}

// or merges o into s and reports whether s changed.
func (s bitset) or(o bitset) bool {
	changed := false
	for i := range s {
		n := s[i] | o[i]
		if n != s[i] {
			s[i] = n
			changed = true
		}
	}
	return changed
}

// liveness holds per-block live-out register sets.
type liveness struct {
	out []bitset
}

// defRegs returns the registers an instruction writes.
func defRegs(inst *disasm.Inst) []int {
	if inst.Dst < 0 {
		return nil
	}
	if inst.Spec.Wide() {
		return []int{inst.Dst, inst.Dst + 1}
	}
	return []int{inst.Dst}
}

// computeLiveness runs backward data flow over every edge, exception edges
// included.
func computeLiveness(cfg *disasm.FuncCFG, regs int) *liveness {
	nb := len(cfg.Blocks)
	use := make([]bitset, nb)
	def := make([]bitset, nb)
	in := make([]bitset, nb)
	out := make([]bitset, nb)
	for b, blk := range cfg.Blocks {
		use[b], def[b] = newBitset(regs), newBitset(regs)
		in[b], out[b] = newBitset(regs), newBitset(regs)
		for i := blk.Start; i < blk.End; i++ {
			inst := &cfg.Insts[i]
			for _, r := range inst.Srcs {
				if !def[b].has(r) {
					use[b].set(r)
				}
			}
			for _, r := range defRegs(inst) {
				def[b].set(r)
			}
		}
	}
	for changed := true; changed; {
		changed = false
		for b := nb - 1; b >= 0; b-- {
			for _, s := range cfg.Blocks[b].Succs {
				if out[b].or(in[s.BlockID]) {
					changed = true
				}
			}
			next := newBitset(regs)
			copy(next, out[b])
			for r := 0; r < regs; r++ {
				if def[b].has(r) {
					next.clear(r)
				}
			}
			next.or(use[b])
			if in[b].or(next) {
				changed = true
			}
		}
	}
	return &liveness{out: out}
}

// singleUse finds the only instruction reading reg after instruction def in
// block b before reg is redefined. It fails when reg is read more than once,
// or stays live out of the block.
func (l *liveness) singleUse(cfg *disasm.FuncCFG, b, def, reg int) (int, bool) {
	blk := cfg.Blocks[b]
	use := -1
	for k := def + 1; k < blk.End; k++ {
		inst := &cfg.Insts[k]
		reads := 0
		for _, r := range inst.Srcs {
			if r == reg {
				reads++
			}
		}
		if reads > 0 {
			if use >= 0 || reads > 1 {
				return -1, false
			}
			use = k
		}
		for _, r := range defRegs(inst) {
			if r == reg {
				return use, use >= 0
			}
		}
	}
	if use < 0 || l.out[b].has(reg) {
		return -1, false
	}
	return use, true
}

// unused reports whether the value instruction def writes to reg is never
// read.
func (l *liveness) unused(cfg *disasm.FuncCFG, b, def, reg int) bool {
	blk := cfg.Blocks[b]
	for k := def + 1; k < blk.End; k++ {
		inst := &cfg.Insts[k]
		for _, r := range inst.Srcs {
			if r == reg {
				return false
			}
		}
		for _, r := range defRegs(inst) {
			if r == reg {
				return true
			}
		}
	}
	return !l.out[b].has(reg)
}
