package disasm

import (
	"fmt"

	"undex/internal/dex"
)

// CallEdge represents a call site extracted from an invoke instruction.
type CallEdge struct {
	FromPC     uint32 `json:"from_pc"`
	Kind       string `json:"kind"` // "virtual", "super", "direct", "static", "interface", "polymorphic", "custom"
	TargetName string `json:"target_name,omitempty"`
	Via        string `json:"via,omitempty"` // "unresolved" when the pool index does not resolve
}

var invokeKinds = [...]string{
	InvokeVirtual:     "virtual",
	InvokeSuper:       "super",
	InvokeDirect:      "direct",
	InvokeStatic:      "static",
	InvokeInterface:   "interface",
	InvokePolymorphic: "polymorphic",
	InvokeCustom:      "custom",
}

// ExtractCallEdges lists the invoke instructions of a method with their
// callees resolved through pool.
func ExtractCallEdges(insts []Inst, pool *dex.Pool) []CallEdge {
	var edges []CallEdge
	for i := range insts {
		inst := &insts[i]
		if inst.Kind() != KindInvoke {
			continue
		}
		e := CallEdge{FromPC: inst.Addr, Kind: invokeKinds[inst.Spec.Invoke]}
		if inst.Spec.Ref == RefMethod {
			if m, ok := pool.Method(inst.Index); ok {
				e.TargetName = m.String()
			} else {
				e.Via = "unresolved"
				e.TargetName = fmt.Sprintf("method@%d", inst.Index)
			}
		} else {
			e.TargetName = fmt.Sprintf("call_site@%d", inst.Index)
		}
		edges = append(edges, e)
	}
	return edges
}

// StringRefs maps the address of each const-string instruction to the
// string it loads. Unresolved indices are omitted.
func StringRefs(insts []Inst, pool *dex.Pool) map[uint32]string {
	refs := make(map[uint32]string)
	for i := range insts {
		inst := &insts[i]
		if inst.Kind() != KindConstString {
			continue
		}
		if s, ok := pool.String(inst.Index); ok {
			refs[inst.Addr] = s
		}
	}
	return refs
}
