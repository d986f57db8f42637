package region

// graph is an int-indexed adjacency arena.
type graph struct {
	succs [][]int
	preds [][]int
}

func newGraph(n int) *graph {
	return &graph{succs: make([][]int, n), preds: make([][]int, n)}
}

func (g *graph) addEdge(from, to int) {
	for _, s := range g.succs[from] {
		if s == to {
			return
		}
	}
	g.succs[from] = append(g.succs[from], to)
	g.preds[to] = append(g.preds[to], from)
}

func (g *graph) reverse() *graph {
	return &graph{succs: g.preds, preds: g.succs}
}

// postorder numbers the nodes reachable from entry; unreachable nodes get -1.
func (g *graph) postorder(entry int) (order []int, num []int) {
	num = make([]int, len(g.succs))
	for i := range num {
		num[i] = -1
	}
	seen := make([]bool, len(g.succs))
	type frame struct{ n, i int }
	stack := []frame{{entry, 0}}
	seen[entry] = true
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.i < len(g.succs[top.n]) {
			s := g.succs[top.n][top.i]
			top.i++
			if !seen[s] {
				seen[s] = true
				stack = append(stack, frame{s, 0})
			}
			continue
		}
		num[top.n] = len(order)
		order = append(order, top.n)
		stack = stack[:len(stack)-1]
	}
	return order, num
}

// idoms computes immediate dominators with the Cooper-Harvey-Kennedy
// iteration. idom[entry] == entry; unreachable nodes get -1.
func (g *graph) idoms(entry int) []int {
	order, num := g.postorder(entry)
	idom := make([]int, len(g.succs))
	for i := range idom {
		idom[i] = -1
	}
	idom[entry] = entry

	intersect := func(a, b int) int {
		for a != b {
			for num[a] < num[b] {
				a = idom[a]
			}
			for num[b] < num[a] {
				b = idom[b]
			}
		}
		return a
	}

	for changed := true; changed; {
		changed = false
		for i := len(order) - 1; i >= 0; i-- {
			b := order[i]
			if b == entry {
				continue
			}
			nd := -1
			for _, p := range g.preds[b] {
				if idom[p] < 0 {
					continue
				}
				if nd < 0 {
					nd = p
				} else {
					nd = intersect(p, nd)
				}
			}
			if nd >= 0 && idom[b] != nd {
				idom[b] = nd
				changed = true
			}
		}
	}
	return idom
}

// dominates reports whether a dominates b under idom.
func dominates(idom []int, a, b int) bool {
	for steps := 0; b >= 0 && steps <= len(idom); steps++ {
		if a == b {
			return true
		}
		if idom[b] == b {
			return false
		}
		b = idom[b]
	}
	return false
}
