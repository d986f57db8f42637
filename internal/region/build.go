package region

import (
	"fmt"
	"sort"

	"undex/internal/dexfmt"
	"undex/internal/disasm"
)

// Options controls structuring.
type Options struct {
	// FoldableHeader reports whether every instruction of a loop header
	// block before its if-test can be folded into the loop condition. When
	// nil, only headers holding the test alone become pre-test loops.
	FoldableHeader func(block int) bool
}

// Tree is the structured form of one method.
type Tree struct {
	Root  Region
	Gotos []int // blocks reached through goto jumps, ascending
	Loops int
}

type loopInfo struct {
	header  int
	body    map[int]bool
	latches []int
}

type ctxKind uint8

const (
	ctxLoop ctxKind = iota
	ctxSwitch
)

// ctx is an enclosing breakable construct.
type ctx struct {
	kind   ctxKind
	cont   int // continue target (loops)
	follow int // break target
	body   map[int]bool
	loop   *Loop
	sw     *Switch

	caseTargets map[int]bool
	nextCase    int
}

type builder struct {
	cfg     *disasm.FuncCFG
	regions []disasm.ExceptionRegion
	opts    Options

	idom    []int
	ipdom   []int
	loops   map[int]*loopInfo
	visited []bool
	active  map[int]bool
	built   []bool
	ctxs    []*ctx
	stops   []int
	gotos   map[int]bool
	labels  int
	nloops  int
}

// Build structures cfg. regions must come from disasm.ResolveExceptions on
// the same CFG. A non-nil tree with a *dexfmt.IrreducibleError means some
// blocks are only reachable through goto jumps; a *dexfmt.StructuralError
// means the tree failed its coverage check and is not returned.
func Build(cfg *disasm.FuncCFG, regions []disasm.ExceptionRegion, opts Options) (*Tree, error) {
	n := len(cfg.Blocks)
	if n == 0 {
		return &Tree{Root: &Sequence{}}, nil
	}
	b := &builder{
		cfg:     cfg,
		regions: regions,
		opts:    opts,
		visited: make([]bool, n),
		active:  make(map[int]bool),
		built:   make([]bool, len(regions)),
		gotos:   make(map[int]bool),
	}
	b.analyze()

	items := []Region{b.seq(0, -1)}

	var frag []Region
	for id := range cfg.Blocks {
		if !b.visited[id] && !cfg.Blocks[id].Dead {
			b.gotos[id] = true
			frag = append(frag, b.seq(id, -1))
		}
	}
	if len(frag) > 0 {
		items = append(items, &Unstructured{Items: frag})
	}
	for id := range cfg.Blocks {
		if cfg.Blocks[id].Dead {
			b.visited[id] = true
			items = append(items, &Block{ID: id, Dead: true})
		}
	}

	tree := &Tree{Root: flatten(items), Loops: b.nloops}
	if err := checkCoverage(tree.Root, n, cfg.Name); err != nil {
		return nil, err
	}
	if len(b.gotos) > 0 {
		for id := range b.gotos {
			tree.Gotos = append(tree.Gotos, id)
		}
		sort.Ints(tree.Gotos)
		return tree, &dexfmt.IrreducibleError{Method: cfg.Name, Blocks: tree.Gotos}
	}
	return tree, nil
}

func (b *builder) analyze() {
	n := len(b.cfg.Blocks)
	full := newGraph(n)
	normal := newGraph(n + 1) // node n is the virtual exit
	for id := range b.cfg.Blocks {
		blk := &b.cfg.Blocks[id]
		hasNormal := false
		for _, s := range blk.Succs {
			full.addEdge(id, s.BlockID)
			if s.Kind != disasm.EdgeException {
				normal.addEdge(id, s.BlockID)
				hasNormal = true
			}
		}
		if !hasNormal && !blk.Dead {
			normal.addEdge(id, n)
		}
	}
	b.idom = full.idoms(0)
	pd := normal.reverse().idoms(n)
	b.ipdom = make([]int, n)
	for i := range b.ipdom {
		b.ipdom[i] = pd[i]
		if pd[i] == n {
			b.ipdom[i] = -1
		}
	}

	b.loops = make(map[int]*loopInfo)
	for t := range b.cfg.Blocks {
		if b.idom[t] < 0 {
			continue
		}
		for _, s := range b.cfg.NormalSuccs(t) {
			h := s.BlockID
			if !dominates(b.idom, h, t) {
				continue
			}
			li := b.loops[h]
			if li == nil {
				li = &loopInfo{header: h, body: map[int]bool{h: true}}
				b.loops[h] = li
			}
			if !containsInt(li.latches, t) {
				li.latches = append(li.latches, t)
			}
			stack := []int{t}
			for len(stack) > 0 {
				x := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if li.body[x] || b.idom[x] < 0 {
					continue
				}
				li.body[x] = true
				stack = append(stack, full.preds[x]...)
			}
		}
	}
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func flatten(items []Region) Region {
	var out []Region
	for _, it := range items {
		switch r := it.(type) {
		case nil:
		case *Sequence:
			out = append(out, r.Items...)
		default:
			out = append(out, it)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return &Sequence{Items: out}
}

// seq structures the blocks reached from entry until control reaches stop,
// leaves the enclosing construct, or ends.
func (b *builder) seq(entry, stop int) Region {
	b.stops = append(b.stops, stop)
	defer func() { b.stops = b.stops[:len(b.stops)-1] }()

	var items []Region
	for cur := entry; cur >= 0; {
		r, next := b.node(cur)
		items = append(items, r)
		if next < 0 {
			break
		}
		j, proceed := b.edge(next)
		if j != nil {
			items = append(items, j)
		}
		if !proceed {
			break
		}
		cur = next
	}
	return flatten(items)
}

// branch structures one arm of a conditional ending at join.
func (b *builder) branch(to, join int) Region {
	b.stops = append(b.stops, join)
	j, proceed := b.edge(to)
	b.stops = b.stops[:len(b.stops)-1]
	if !proceed {
		return j
	}
	return b.seq(to, join)
}

// edge decides how control reaching block to is expressed. It returns a
// jump leaf (possibly nil) and whether structuring continues into to.
func (b *builder) edge(to int) (Region, bool) {
	top := len(b.stops) - 1
	if to == b.stops[top] {
		return nil, false
	}
	// Falling out of nested tail constructs into an enclosing stop.
	for i := top - 1; i >= 0 && b.stops[i+1] == -1; i-- {
		if b.stops[i] == to {
			return nil, false
		}
	}
	for i := len(b.ctxs) - 1; i >= 0; i-- {
		c := b.ctxs[i]
		switch c.kind {
		case ctxLoop:
			if to == c.cont {
				return b.jump(Continue, to, i), false
			}
			if to == c.follow {
				return b.jump(Break, to, i), false
			}
		case ctxSwitch:
			if to == c.follow {
				return b.jump(Break, to, i), false
			}
			if c.caseTargets[to] {
				if to == c.nextCase && !b.visited[to] {
					return &Jump{Kind: Fallthrough, Target: to}, false
				}
				b.gotos[to] = true
				return &Jump{Kind: Goto, Target: to}, false
			}
		}
	}
	if b.visited[to] {
		if b.returnOnly(to) {
			return &Jump{Kind: Return, Target: to}, false
		}
		b.gotos[to] = true
		return &Jump{Kind: Goto, Target: to}, false
	}
	return nil, true
}

// jump builds a break or continue for the construct at ctxs[i], labeling it
// when an inner construct would capture the unlabeled form.
func (b *builder) jump(kind JumpKind, to, i int) *Jump {
	j := &Jump{Kind: kind, Target: to}
	need := false
	for k := i + 1; k < len(b.ctxs); k++ {
		if kind == Break || b.ctxs[k].kind == ctxLoop {
			need = true
		}
	}
	if !need {
		return j
	}
	c := b.ctxs[i]
	switch c.kind {
	case ctxLoop:
		if c.loop.Label == "" {
			b.labels++
			c.loop.Label = fmt.Sprintf("loop%d", b.labels)
		}
		j.Label = c.loop.Label
	case ctxSwitch:
		if c.sw.Label == "" {
			b.labels++
			c.sw.Label = fmt.Sprintf("switch%d", b.labels)
		}
		j.Label = c.sw.Label
	}
	return j
}

func (b *builder) push(c *ctx) { b.ctxs = append(b.ctxs, c) }
func (b *builder) pop()        { b.ctxs = b.ctxs[:len(b.ctxs)-1] }

// returnOnly reports whether the block is a lone return instruction.
func (b *builder) returnOnly(id int) bool {
	blk := b.cfg.Blocks[id]
	if blk.End-blk.Start != 1 {
		return false
	}
	k := b.cfg.Insts[blk.Start].Kind()
	return k == disasm.KindReturn || k == disasm.KindReturnVoid
}

func (b *builder) isIf(id int) bool {
	k := b.cfg.Last(id).Kind()
	return (k == disasm.KindIf || k == disasm.KindIfZ) && len(b.cfg.NormalSuccs(id)) == 2
}

// inLoop reports whether id lies in the innermost enclosing loop body.
func (b *builder) inLoop(id int) bool {
	for i := len(b.ctxs) - 1; i >= 0; i-- {
		if b.ctxs[i].kind == ctxLoop {
			return b.ctxs[i].body[id]
		}
	}
	return true
}

// node structures the construct starting at cur and returns it with the
// block control continues to, or -1.
func (b *builder) node(cur int) (Region, int) {
	if li := b.loops[cur]; li != nil && !b.active[cur] {
		if r := b.tryAt(cur, li.body); r >= 0 {
			return b.makeTry(r, cur)
		}
		return b.makeLoop(li)
	}
	if r := b.tryAt(cur, nil); r >= 0 {
		return b.makeTry(r, cur)
	}

	b.visited[cur] = true
	leaf := &Block{ID: cur}
	succs := b.cfg.NormalSuccs(cur)
	switch {
	case b.cfg.Last(cur).Kind() == disasm.KindSwitch && len(succs) > 0:
		return b.makeSwitch(cur, leaf, succs)
	case b.isIf(cur):
		return b.makeIf(cur, leaf, succs)
	case len(succs) == 0:
		return leaf, -1
	}
	return leaf, succs[0].BlockID
}

func (b *builder) makeIf(cur int, leaf *Block, succs []disasm.Succ) (Region, int) {
	t, f := succs[0].BlockID, succs[1].BlockID
	join := b.ipdom[cur]
	if join >= 0 && !b.inLoop(join) {
		join = -1
	}
	n := &If{Cond: leaf}
	n.Then = b.branch(t, join)
	n.Else = b.branch(f, join)
	if n.Then == nil && n.Else != nil {
		n.Then, n.Else, n.Negate = n.Else, nil, true
	}
	return n, join
}

func (b *builder) makeSwitch(cur int, leaf *Block, succs []disasm.Succ) (Region, int) {
	follow := b.ipdom[cur]
	if follow >= 0 && !b.inLoop(follow) {
		follow = -1
	}
	sw := &Switch{Header: leaf}
	byTarget := make(map[int]*Case)
	var targets []int
	for _, s := range succs {
		if s.Default && s.BlockID == follow {
			continue
		}
		c := byTarget[s.BlockID]
		if c == nil {
			c = &Case{}
			byTarget[s.BlockID] = c
			targets = append(targets, s.BlockID)
		}
		if s.Default {
			c.Default = true
		} else {
			c.Keys = append(c.Keys, s.Key)
		}
	}
	sort.SliceStable(targets, func(i, j int) bool {
		return b.cfg.BlockAddr(targets[i]) < b.cfg.BlockAddr(targets[j])
	})

	c := &ctx{kind: ctxSwitch, cont: -1, follow: follow, sw: sw, caseTargets: make(map[int]bool)}
	for _, t := range targets {
		c.caseTargets[t] = true
	}
	b.push(c)
	for i, t := range targets {
		arm := byTarget[t]
		sw.Cases = append(sw.Cases, arm)
		if t == follow {
			continue
		}
		c.nextCase = -1
		if i+1 < len(targets) {
			c.nextCase = targets[i+1]
		}
		if b.visited[t] {
			b.stops = append(b.stops, follow)
			arm.Body, _ = b.edge(t)
			b.stops = b.stops[:len(b.stops)-1]
			continue
		}
		arm.Body = b.seq(t, follow)
	}
	b.pop()
	return sw, follow
}

// classify picks the loop kind, its follow block and, for post-test loops,
// the latch holding the test.
func (b *builder) classify(li *loopInfo) (kind LoopKind, follow, latch int) {
	h := li.header
	if b.isIf(h) {
		hs := b.cfg.NormalSuccs(h)
		t, f := hs[0].BlockID, hs[1].BlockID
		blk := b.cfg.Blocks[h]
		foldable := blk.End-blk.Start == 1 || (b.opts.FoldableHeader != nil && b.opts.FoldableHeader(h))
		if li.body[t] != li.body[f] && t != h && f != h && foldable {
			if li.body[t] {
				return PreTest, f, -1
			}
			return PreTest, t, -1
		}
	}
	if len(li.latches) == 1 {
		l := li.latches[0]
		if b.isIf(l) {
			ls := b.cfg.NormalSuccs(l)
			t, f := ls[0].BlockID, ls[1].BlockID
			if t == h && !li.body[f] {
				return PostTest, f, l
			}
			if f == h && !li.body[t] {
				return PostTest, t, l
			}
		}
	}
	return Infinite, b.loopFollow(li), -1
}

func (b *builder) loopFollow(li *loopInfo) int {
	count := make(map[int]int)
	var targets []int
	for x := range li.body {
		for _, s := range b.cfg.NormalSuccs(x) {
			if li.body[s.BlockID] {
				continue
			}
			if count[s.BlockID] == 0 {
				targets = append(targets, s.BlockID)
			}
			count[s.BlockID]++
		}
	}
	if len(targets) == 0 {
		return -1
	}
	if p := b.ipdom[li.header]; p >= 0 && count[p] > 0 {
		return p
	}
	sort.Ints(targets)
	best := targets[0]
	for _, t := range targets[1:] {
		if count[t] > count[best] {
			best = t
		}
	}
	return best
}

func (b *builder) makeLoop(li *loopInfo) (Region, int) {
	h := li.header
	b.active[h] = true
	b.nloops++
	kind, follow, latch := b.classify(li)
	loop := &Loop{Kind: kind, Header: h}
	c := &ctx{kind: ctxLoop, cont: h, follow: follow, body: li.body, loop: loop}

	switch kind {
	case PreTest:
		b.visited[h] = true
		loop.Cond = &Block{ID: h}
		hs := b.cfg.NormalSuccs(h)
		in := hs[0].BlockID
		if !li.body[in] {
			in = hs[1].BlockID
			loop.Negate = true
		}
		b.push(c)
		loop.Body = b.branch(in, h)
		b.pop()
	case PostTest:
		c.cont = latch
		b.push(c)
		if latch == h {
			b.visited[h] = true
		} else {
			loop.Body = b.seq(h, latch)
		}
		b.pop()
		b.visited[latch] = true
		loop.Cond = &Block{ID: latch}
		loop.Negate = b.cfg.NormalSuccs(latch)[0].BlockID != h
	default:
		b.push(c)
		loop.Body = b.seq(h, h)
		b.pop()
	}
	return loop, follow
}

// tryAt returns the outermost unbuilt exception region whose range holds
// block cur, or -1. When body is non-nil the region must also cover every
// block of that loop body.
func (b *builder) tryAt(cur int, body map[int]bool) int {
	addr := b.cfg.BlockAddr(cur)
	best := -1
	for i, r := range b.regions {
		if b.built[i] || addr < r.Start || addr >= r.End || len(r.Handlers) == 0 {
			continue
		}
		if body != nil && !b.covers(r, body) {
			continue
		}
		if best < 0 || r.End-r.Start > b.regions[best].End-b.regions[best].Start {
			best = i
		}
	}
	return best
}

func (b *builder) covers(r disasm.ExceptionRegion, body map[int]bool) bool {
	for id := range body {
		if b.cfg.Blocks[id].Data {
			continue
		}
		if a := b.cfg.BlockAddr(id); a < r.Start || a >= r.End {
			return false
		}
	}
	return true
}

func (b *builder) inRange(r disasm.ExceptionRegion, id int) bool {
	a := b.cfg.BlockAddr(id)
	return a >= r.Start && a < r.End
}

// tryFollow picks the block control reaches after the protected range
// completes normally, or -1.
func (b *builder) tryFollow(ri, entry int) int {
	r := b.regions[ri]
	handler := make(map[int]bool)
	for _, h := range r.Handlers {
		handler[h.Block] = true
	}
	count := make(map[int]int)
	var targets []int
	for id := range b.cfg.Blocks {
		if b.cfg.Blocks[id].Data || !b.inRange(r, id) {
			continue
		}
		for _, s := range b.cfg.NormalSuccs(id) {
			if b.inRange(r, s.BlockID) || handler[s.BlockID] {
				continue
			}
			if count[s.BlockID] == 0 {
				targets = append(targets, s.BlockID)
			}
			count[s.BlockID]++
		}
	}
	switch len(targets) {
	case 0:
		return -1
	case 1:
		return targets[0]
	}
	if p := b.ipdom[entry]; p >= 0 && count[p] > 0 {
		return p
	}
	best := targets[0]
	for _, t := range targets[1:] {
		if count[t] > count[best] {
			best = t
		}
	}
	return best
}

func (b *builder) makeTry(ri, cur int) (Region, int) {
	b.built[ri] = true
	follow := b.tryFollow(ri, cur)
	if follow >= 0 && !b.inLoop(follow) {
		follow = -1
	}
	tc := &TryCatch{Index: ri, FinallyEntry: -1}
	tc.Body = b.seq(cur, follow)

	byBlock := make(map[int]*Catch)
	for _, h := range b.regions[ri].Handlers {
		if h.Type == "" {
			if tc.FinallyEntry < 0 && byBlock[h.Block] == nil {
				tc.FinallyEntry = h.Block
				tc.Finally = b.handler(h.Block, follow)
			}
			continue
		}
		if c := byBlock[h.Block]; c != nil {
			c.Types = append(c.Types, h.Type)
			continue
		}
		c := &Catch{Types: []string{h.Type}, Entry: h.Block}
		byBlock[h.Block] = c
		tc.Catches = append(tc.Catches, c)
		c.Body = b.handler(h.Block, follow)
	}
	return tc, follow
}

func (b *builder) handler(entry, follow int) Region {
	if b.visited[entry] {
		b.gotos[entry] = true
		return &Jump{Kind: Goto, Target: entry}
	}
	return b.seq(entry, follow)
}

// checkCoverage verifies every block appears in exactly one Block leaf.
func checkCoverage(root Region, n int, method string) error {
	seen := make([]int, n)
	bad := ""
	Walk(root, func(r Region) {
		blk, ok := r.(*Block)
		if !ok {
			return
		}
		if blk.ID < 0 || blk.ID >= n {
			bad = fmt.Sprintf("block %d out of range", blk.ID)
			return
		}
		seen[blk.ID]++
	})
	if bad != "" {
		return &dexfmt.StructuralError{Method: method, Stage: "region", Reason: bad}
	}
	for id, c := range seen {
		if c != 1 {
			return &dexfmt.StructuralError{
				Method: method,
				Stage:  "region",
				Reason: fmt.Sprintf("block %d appears %d times", id, c),
			}
		}
	}
	return nil
}
