// Package callgraph exports decompiled methods to lattice graphs: one CFG
// per method with its call sites, and a batch-wide call graph.
package callgraph

import (
	"github.com/zboralski/lattice"
	"undex/internal/disasm"
)

// FuncInfo holds the data needed to build call graph and CFG for one method.
type FuncInfo struct {
	Name       string // method signature
	CFG        *disasm.FuncCFG
	CallEdges  []disasm.CallEdge
	StringRefs map[uint32]string
}

// BuildCallGraph constructs a lattice.Graph from decompiled methods.
// Each method becomes a node and each resolved invoke an edge. Invokes of
// unresolved pool entries are skipped.
func BuildCallGraph(funcs []FuncInfo) *lattice.Graph {
	g := &lattice.Graph{}
	for _, f := range funcs {
		g.Nodes = append(g.Nodes, f.Name)
		for _, e := range f.CallEdges {
			if e.TargetName == "" || e.Via == "unresolved" {
				continue
			}
			g.Edges = append(g.Edges, lattice.Edge{
				Caller: f.Name,
				Callee: e.TargetName,
			})
		}
	}
	g.Dedup()
	return g
}
