package callgraph

import (
	"fmt"
	"sort"

	"github.com/zboralski/lattice"
	"undex/internal/disasm"
)

// BuildCFG constructs a lattice.CFGGraph from decompiled methods.
func BuildCFG(funcs []FuncInfo) *lattice.CFGGraph {
	cg := &lattice.CFGGraph{}
	for _, f := range funcs {
		if f.CFG == nil {
			continue
		}
		lcfg, _ := BuildFuncCFG(f)
		cg.Funcs = append(cg.Funcs, lcfg)
	}
	return cg
}

// BuildFuncCFG builds a single-method lattice.FuncCFG. It returns the
// number of basic blocks alongside, for filtering trivial methods.
func BuildFuncCFG(f FuncInfo) (*lattice.FuncCFG, int) {
	lcfg := convertFuncCFG(f.Name, f.CFG, f.CallEdges)
	injectStringRefs(lcfg, f.CFG, f.StringRefs)
	return lcfg, len(f.CFG.Blocks)
}

// injectStringRefs adds string reference CallSite entries into the appropriate blocks.
func injectStringRefs(lcfg *lattice.FuncCFG, dcfg *disasm.FuncCFG, strRefs map[uint32]string) {
	if len(strRefs) == 0 {
		return
	}
	for bi, db := range dcfg.Blocks {
		added := false
		for idx := db.Start; idx < db.End && idx < len(dcfg.Insts); idx++ {
			if val, ok := strRefs[dcfg.Insts[idx].Addr]; ok {
				if len(val) > 50 {
					val = val[:47] + "..."
				}
				lcfg.Blocks[bi].Calls = append(lcfg.Blocks[bi].Calls, lattice.CallSite{
					Offset: idx,
					Callee: fmt.Sprintf("%q", val),
				})
				added = true
			}
		}
		if added {
			sort.Slice(lcfg.Blocks[bi].Calls, func(i, j int) bool {
				return lcfg.Blocks[bi].Calls[i].Offset < lcfg.Blocks[bi].Calls[j].Offset
			})
		}
	}
}

// edgeCond labels a successor for the renderer. Exception edges carry the
// caught type, or "catch" for a catch-all.
func edgeCond(s disasm.Succ) string {
	switch s.Kind {
	case disasm.EdgeException:
		if s.Catch == "" {
			return "catch"
		}
		return s.Catch
	case disasm.EdgeSwitch:
		if s.Default {
			return "default"
		}
		return fmt.Sprintf("%d", s.Key)
	}
	return s.Cond
}

// convertFuncCFG maps a disasm.FuncCFG to a lattice.FuncCFG.
// Call edges are mapped into blocks by matching instruction addresses.
func convertFuncCFG(name string, dcfg *disasm.FuncCFG, edges []disasm.CallEdge) *lattice.FuncCFG {
	edgeByPC := make(map[uint32]disasm.CallEdge, len(edges))
	for _, e := range edges {
		edgeByPC[e.FromPC] = e
	}

	lcfg := &lattice.FuncCFG{Name: name}
	for _, db := range dcfg.Blocks {
		lb := &lattice.BasicBlock{
			ID:    db.ID,
			Start: db.Start,
			End:   db.End,
			Term:  db.IsTerm,
		}
		for _, ds := range db.Succs {
			lb.Succs = append(lb.Succs, lattice.Successor{
				BlockID: ds.BlockID,
				Cond:    edgeCond(ds),
			})
		}
		for idx := db.Start; idx < db.End && idx < len(dcfg.Insts); idx++ {
			if e, ok := edgeByPC[dcfg.Insts[idx].Addr]; ok {
				lb.Calls = append(lb.Calls, lattice.CallSite{
					Offset: idx,
					Callee: e.TargetName,
				})
			}
		}
		lcfg.Blocks = append(lcfg.Blocks, lb)
	}
	return lcfg
}
