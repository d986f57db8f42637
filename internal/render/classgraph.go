package render

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"undex/internal/dex"
	"undex/internal/disasm"
)

// ClassgraphDOT renders a class-level callgraph where each class is one node
// and edges represent aggregated inter-class invokes. maxNodes limits rendered
// classes (0 = all). Callee classes outside the batch are drawn faded.
func ClassgraphDOT(methods []disasm.MethodRecord, edges []disasm.CallEdgeRecord, title string, t Theme, maxNodes int) string {
	// Map method signature → owner.
	methodOwner := make(map[string]string, len(methods))
	ownerMethodCount := make(map[string]int)
	for _, m := range methods {
		methodOwner[m.Method] = m.Class
		ownerMethodCount[m.Class]++
	}

	// Aggregate inter-class edges.
	type classEdge struct {
		from, to string
	}
	classCounts := make(map[classEdge]int)
	for _, e := range edges {
		if e.Via == "unresolved" {
			continue
		}
		src := methodOwner[e.FromFunc]
		if src == "" {
			src = ownerOf(e.FromFunc)
		}
		dst := ownerOf(e.Target)
		if src == "" || dst == "" || src == dst {
			continue
		}
		classCounts[classEdge{src, dst}]++
	}

	// Total edges touching each class.
	classInvolvement := make(map[string]int)
	for ce, count := range classCounts {
		classInvolvement[ce.from] += count
		classInvolvement[ce.to] += count
	}

	// Rank classes by involvement for maxNodes limit.
	type rankedClass struct {
		name        string
		involvement int
	}
	ranked := make([]rankedClass, 0, len(classInvolvement))
	for name, inv := range classInvolvement {
		ranked = append(ranked, rankedClass{name, inv})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].involvement != ranked[j].involvement {
			return ranked[i].involvement > ranked[j].involvement
		}
		return ranked[i].name < ranked[j].name
	})

	renderSet := make(map[string]bool)
	limit := len(ranked)
	if maxNodes > 0 && limit > maxNodes {
		limit = maxNodes
	}
	for _, rc := range ranked[:limit] {
		renderSet[rc.name] = true
	}

	var b strings.Builder
	b.WriteString("digraph classgraph {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  splines=true;\n")
	b.WriteString("  nodesep=0.5;\n")
	b.WriteString("  ranksep=0.8;\n")
	fmt.Fprintf(&b, "  bgcolor=%q;\n", t.Background)
	fmt.Fprintf(&b, "  node [shape=rect, style=\"filled,rounded\", fillcolor=%q, color=%q, penwidth=0.5, fontname=\"Helvetica Neue,Helvetica,Arial\", fontsize=10, fontcolor=%q, height=0.4, margin=\"0.15,0.08\"];\n",
		t.NodeFill, t.NodeBorder, t.TextColor)
	fmt.Fprintf(&b, "  edge [penwidth=0.5, arrowsize=0.5, arrowhead=vee, color=%q];\n", t.EdgeNormal)
	if title != "" {
		fmt.Fprintf(&b, "  labelloc=t;\n  labeljust=l;\n")
		fmt.Fprintf(&b, "  label=<<font face=\"Helvetica Neue,Helvetica\" point-size=\"8\" color=\"%s\">%s</font>>;\n",
			t.TextColor, dotEscape(title))
	}
	b.WriteByte('\n')

	maxMethods := 1
	for name := range renderSet {
		if c := ownerMethodCount[name]; c > maxMethods {
			maxMethods = c
		}
	}
	for _, rc := range ranked[:limit] {
		name := rc.name
		id := dotID(name)
		label := dex.JavaName(name)
		methods, inBatch := ownerMethodCount[name]

		if !inBatch {
			fmt.Fprintf(&b, "  %s [label=<%s>, style=\"rounded,dashed\", fontcolor=%q];\n",
				id, dotEscape(label), t.ExternalText)
			continue
		}

		// Scale node height by method count (log scale).
		height := 0.4 + 0.3*math.Log2(float64(methods)+1)/math.Log2(float64(maxMethods)+1)
		htmlLabel := fmt.Sprintf("<<font point-size=\"10\">%s</font><br/><font point-size=\"7\" color=\"%s\">%d methods</font>>",
			dotEscape(label), t.ExternalText, methods)
		fmt.Fprintf(&b, "  %s [label=%s, height=%.2f];\n", id, htmlLabel, height)
	}
	b.WriteByte('\n')

	// Edges in a stable order.
	var shown []classEdge
	maxEdgeCount := 1
	for ce, count := range classCounts {
		if !renderSet[ce.from] || !renderSet[ce.to] {
			continue
		}
		shown = append(shown, ce)
		if count > maxEdgeCount {
			maxEdgeCount = count
		}
	}
	sort.Slice(shown, func(i, j int) bool {
		if shown[i].from != shown[j].from {
			return shown[i].from < shown[j].from
		}
		return shown[i].to < shown[j].to
	})

	for _, ce := range shown {
		count := classCounts[ce]
		pw := 0.5 + 2.0*math.Log2(float64(count)+1)/math.Log2(float64(maxEdgeCount)+1)
		attrs := fmt.Sprintf("penwidth=%.1f", pw)
		if count > 1 {
			attrs += fmt.Sprintf(", label=<<font point-size=\"7\" color=\"%s\">%d</font>>",
				t.ExternalText, count)
		}
		fmt.Fprintf(&b, "  %s -> %s [%s];\n", dotID(ce.from), dotID(ce.to), attrs)
	}

	b.WriteString("}\n")
	return b.String()
}
