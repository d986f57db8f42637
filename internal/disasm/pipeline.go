package disasm

import "fmt"

// MethodRecord is one line in methods.jsonl.
type MethodRecord struct {
	Method string `json:"method"`
	Class  string `json:"class"`
	Size   int    `json:"size"` // code bytes
	Blocks int    `json:"blocks"`
	Status string `json:"status"`          // "ok", "degraded", "goto", "abstract"
	Error  string `json:"error,omitempty"` // first failure, for degraded methods
}

// CallEdgeRecord is one line in call_edges.jsonl.
type CallEdgeRecord struct {
	FromFunc string `json:"from_func"`
	FromPC   string `json:"from_pc"`
	Kind     string `json:"kind"`
	Target   string `json:"target,omitempty"`
	Via      string `json:"via,omitempty"`
}

// StringRefRecord is one line in string_refs.jsonl.
type StringRefRecord struct {
	Func  string `json:"func"`
	PC    string `json:"pc"`
	Value string `json:"value"` // raw string value (unquoted)
}

// CallEdgeRecords converts a method's call edges to index records.
func CallEdgeRecords(fn string, edges []CallEdge) []CallEdgeRecord {
	out := make([]CallEdgeRecord, len(edges))
	for i, e := range edges {
		out[i] = CallEdgeRecord{
			FromFunc: fn,
			FromPC:   fmt.Sprintf("0x%04x", e.FromPC),
			Kind:     e.Kind,
			Target:   e.TargetName,
			Via:      e.Via,
		}
	}
	return out
}
