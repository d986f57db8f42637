package render

import (
	"sort"
	"strings"

	"undex/internal/disasm"
)

// FindEntryPoints returns methods that no other method in the batch invokes.
// Class initializers are always entry points: the runtime calls them.
func FindEntryPoints(methods []disasm.MethodRecord, edges []disasm.CallEdgeRecord) []string {
	called := make(map[string]bool)
	for _, e := range edges {
		if e.Via != "unresolved" && e.Target != "" && e.Target != e.FromFunc {
			called[e.Target] = true
		}
	}

	var entries []string
	for _, m := range methods {
		if strings.Contains(m.Method, "-><clinit>") || !called[m.Method] {
			entries = append(entries, m.Method)
		}
	}
	sort.Strings(entries)
	return entries
}

// ReachableSet performs BFS from entry points following invoke edges
// and returns the set of all reachable method signatures.
func ReachableSet(entryPoints []string, edges []disasm.CallEdgeRecord) map[string]bool {
	adj := make(map[string][]string)
	for _, e := range edges {
		if e.Via != "unresolved" && e.Target != "" {
			adj[e.FromFunc] = append(adj[e.FromFunc], e.Target)
		}
	}

	reachable := make(map[string]bool)
	queue := make([]string, 0, len(entryPoints))
	for _, ep := range entryPoints {
		if !reachable[ep] {
			reachable[ep] = true
			queue = append(queue, ep)
		}
	}

	for len(queue) > 0 {
		fn := queue[0]
		queue = queue[1:]
		for _, target := range adj[fn] {
			if !reachable[target] {
				reachable[target] = true
				queue = append(queue, target)
			}
		}
	}
	return reachable
}
