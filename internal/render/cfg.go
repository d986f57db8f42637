package render

import (
	"fmt"
	"strings"

	"undex/internal/disasm"
)

// CFGDOT renders a method's basic-block CFG as DOT.
// Each basic block is a node; edges represent control flow. The entry
// block is highlighted, dead blocks are grayed and dashed, exception edges
// are dashed and labeled with the caught type.
func CFGDOT(cfg *disasm.FuncCFG, t Theme) string {
	if len(cfg.Blocks) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("digraph cfg {\n")
	b.WriteString("  rankdir=TB;\n")
	b.WriteString("  nodesep=0.3;\n")
	b.WriteString("  ranksep=0.4;\n")
	fmt.Fprintf(&b, "  bgcolor=%q;\n", t.Background)
	fmt.Fprintf(&b, "  node [shape=rect, style=filled, fillcolor=%q, color=%q, penwidth=0.5, fontname=\"Courier,monospace\", fontsize=8, fontcolor=%q, margin=\"0.08,0.04\"];\n",
		t.NodeFill, t.NodeBorder, t.TextColor)
	fmt.Fprintf(&b, "  edge [penwidth=0.7, arrowsize=0.5, arrowhead=vee];\n")
	fmt.Fprintf(&b, "  labelloc=t;\n  labeljust=l;\n")
	fmt.Fprintf(&b, "  label=<<font face=\"Helvetica Neue,Helvetica\" point-size=\"9\" color=\"%s\">%s</font>>;\n",
		t.TextColor, dotEscape(cfg.Name))
	b.WriteByte('\n')

	for _, blk := range cfg.Blocks {
		id := fmt.Sprintf("bb%d", blk.ID)

		// One line per instruction; payloads are summarized.
		var lines []string
		end := blk.End
		if end > len(cfg.Insts) {
			end = len(cfg.Insts)
		}
		for i := blk.Start; i < end; i++ {
			inst := cfg.Insts[i]
			line := fmt.Sprintf("0x%04x: %s", inst.Addr, truncLabel(inst.Text, 80))
			lines = append(lines, dotEscape(line))
		}
		if len(lines) > 12 {
			kept := append(lines[:5], fmt.Sprintf("... (%d more)", len(lines)-10))
			lines = append(kept, lines[len(lines)-5:]...)
		}

		label := strings.Join(lines, "<br align=\"left\"/>")
		label += "<br align=\"left\"/>"

		attrs := ""
		switch {
		case blk.IsEntry:
			attrs = fmt.Sprintf(", penwidth=1.5, color=%q", t.EntryBorder)
		case blk.Handler:
			attrs = fmt.Sprintf(", penwidth=1.2, color=%q", t.HandlerBorder)
		}
		switch {
		case blk.Data:
			attrs += fmt.Sprintf(", shape=note, fontcolor=%q", t.ExternalText)
		case blk.Dead:
			attrs += fmt.Sprintf(", style=\"filled,dashed\", fillcolor=%q, fontcolor=%q", t.DeadFill, t.ExternalText)
		case blk.IsTerm:
			attrs += fmt.Sprintf(", fillcolor=%q", t.TermFill)
		}
		fmt.Fprintf(&b, "  %s [label=<%s>%s];\n", id, label, attrs)
	}
	b.WriteByte('\n')

	for _, blk := range cfg.Blocks {
		from := fmt.Sprintf("bb%d", blk.ID)
		for _, s := range blk.Succs {
			to := fmt.Sprintf("bb%d", s.BlockID)
			switch {
			case s.Kind == disasm.EdgeException:
				catch := "catch-all"
				if s.Catch != "" {
					catch = s.Catch
				}
				fmt.Fprintf(&b, "  %s -> %s [style=dashed, color=%q, label=<<font point-size=\"7\" color=\"%s\">%s</font>>];\n",
					from, to, t.EdgeException, t.EdgeException, dotEscape(catch))
			case s.Kind == disasm.EdgeSwitch:
				key := fmt.Sprintf("%d", s.Key)
				if s.Default {
					key = "default"
				}
				fmt.Fprintf(&b, "  %s -> %s [color=%q, label=<<font point-size=\"7\" color=\"%s\">%s</font>>];\n",
					from, to, t.EdgeNormal, t.EdgeNormal, key)
			case s.Cond == "T":
				fmt.Fprintf(&b, "  %s -> %s [color=%q, label=<<font point-size=\"7\" color=\"%s\">T</font>>];\n",
					from, to, t.EdgeTaken, t.EdgeTaken)
			case s.Cond == "F":
				fmt.Fprintf(&b, "  %s -> %s [color=%q, label=<<font point-size=\"7\" color=\"%s\">F</font>>];\n",
					from, to, t.EdgeNotTaken, t.EdgeNotTaken)
			default:
				fmt.Fprintf(&b, "  %s -> %s [color=%q];\n", from, to, t.EdgeNormal)
			}
		}
	}

	b.WriteString("}\n")
	return b.String()
}
