// Package codegen renders a structured, typed method as Java-like source
// and assembles method bodies into class declarations.
package codegen

import (
	"bytes"
	"fmt"
	"strings"

	"undex/internal/dex"
	"undex/internal/disasm"
	"undex/internal/region"
	"undex/internal/typing"
)

// DeadPolicy says what happens to unreachable blocks.
type DeadPolicy uint8

const (
	DeadRender DeadPolicy = iota // commented listing
	DeadDrop
)

// Options controls rendering.
type Options struct {
	Dead   DeadPolicy
	Indent string // one level; default four spaces
}

func (o Options) indent() string {
	if o.Indent == "" {
		return "    "
	}
	return o.Indent
}

// Input is everything the generator needs for one method.
type Input struct {
	Method   *dex.Method
	Pool     *dex.Pool
	Universe *dex.Universe
	CFG      *disasm.FuncCFG
	Regions  []disasm.ExceptionRegion
	Types    *typing.Result
	Tree     *region.Tree
	Notes    []string // comment lines emitted at the top of the body
}

type gen struct {
	in    *Input
	opts  Options
	imp   *Imports
	lat   typing.Lattice
	live  *liveness
	ret   typing.Type
	hints []byte

	vars       map[varKey]*variable
	order      []*variable
	regClasses map[int]int
	params     []*variable

	skip       map[int]bool
	finally    map[*region.TryCatch]bool
	catchNames map[int]string
	ncatch     int

	lines   []string
	depth   int
	term    bool               // last statement leaves the enclosing block
	touched map[*variable]bool // read or written so far
	decl    map[*variable]int  // line of a top-level first assignment

	pend     map[int]*pending
	news     map[int]string
	call     *expr
	callDeps []int
	deps     []int
}

func newGen(in *Input, imp *Imports, opts Options) *gen {
	g := &gen{
		in:         in,
		opts:       opts,
		imp:        imp,
		lat:        typing.Lattice{Universe: in.Universe},
		live:       computeLiveness(in.CFG, in.Types.Registers),
		ret:        typing.FromDesc(in.Method.Return),
		vars:       make(map[varKey]*variable),
		regClasses: make(map[int]int),
	}
	g.computeHints()
	g.reset()
	n := 0
	for _, p := range in.Types.Params {
		name := "this"
		if !p.This {
			name = fmt.Sprintf("p%d", n)
			n++
		}
		c := g.classOf(p.Reg, p.Type, 0)
		v := &variable{name: name, class: c, typ: p.Type, param: true}
		g.vars[varKey{p.Reg, c}] = v
		g.regClasses[p.Reg]++
		g.params = append(g.params, v)
	}
	return g
}

func (g *gen) reset() {
	g.lines = g.lines[:0]
	g.depth = 2
	g.term = false
	g.skip = make(map[int]bool)
	g.finally = make(map[*region.TryCatch]bool)
	g.catchNames = make(map[int]string)
	g.ncatch = 0
	g.touched = make(map[*variable]bool)
	g.decl = make(map[*variable]int)
	g.pend = make(map[int]*pending)
	g.news = make(map[int]string)
	g.call = nil
}

func (g *gen) emit(line string) {
	g.lines = append(g.lines, strings.Repeat(g.opts.indent(), g.depth)+line)
	g.term = false
}

// run renders the whole tree into g.lines.
func (g *gen) run() {
	g.reset()
	if g.in.Tree == nil || g.in.Tree.Root == nil {
		return
	}
	g.markFinally(g.in.Tree.Root)
	g.region(g.in.Tree.Root)
	if n := len(g.lines); n > 0 && g.ret.Kind == typing.Unknown &&
		g.lines[n-1] == strings.Repeat(g.opts.indent(), 2)+"return;" {
		g.lines = g.lines[:n-1]
	}
}

// markFinally finds catch-all handlers shaped like a finally clause: bind
// the exception, run the cleanup, rethrow it. Their bind and rethrow are
// left out of the output, and so is the cleanup copy inlined at each
// normal exit of the range. A handler whose copies cannot all be found
// stays a catch of Throwable.
func (g *gen) markFinally(root region.Region) {
	region.Walk(root, func(r region.Region) {
		tc, ok := r.(*region.TryCatch)
		if !ok || tc.Finally == nil || tc.FinallyEntry < 0 {
			return
		}
		blk := g.in.CFG.Blocks[tc.FinallyEntry]
		if blk.Start >= blk.End {
			return
		}
		bind := blk.Start
		if g.insts()[bind].Kind() != disasm.KindMoveException {
			return
		}
		reg := g.insts()[bind].Dst
		var throws, cleanup []int
		clean := true
		region.Walk(tc.Finally, func(r region.Region) {
			b, ok := r.(*region.Block)
			if !ok {
				return
			}
			fb := g.in.CFG.Blocks[b.ID]
			for i := fb.Start; i < fb.End; i++ {
				in := &g.insts()[i]
				reads := false
				for _, s := range in.Srcs {
					reads = reads || s == reg
				}
				switch {
				case in.Kind() == disasm.KindThrow && reads:
					throws = append(throws, i)
				case reads:
					clean = false
				case i != bind && !ignorable(in):
					cleanup = append(cleanup, i)
				}
			}
		})
		if !clean || len(throws) == 0 {
			return
		}
		copies, ok := g.inlinedCopies(tc.Index, cleanup)
		if !ok {
			return
		}
		g.skip[bind] = true
		for _, i := range append(throws, copies...) {
			g.skip[i] = true
		}
		g.finally[tc] = true
	})
}

func ignorable(in *disasm.Inst) bool {
	switch in.Kind() {
	case disasm.KindNop, disasm.KindGoto, disasm.KindPayload:
		return true
	}
	return false
}

// inlinedCopies locates the cleanup sequence at the start of every normal
// exit of exception region ri and returns the instructions of those
// copies. An exit target must be entered from the range only.
func (g *gen) inlinedCopies(ri int, cleanup []int) ([]int, bool) {
	if ri < 0 || ri >= len(g.in.Regions) {
		return nil, false
	}
	r := g.in.Regions[ri]
	if len(cleanup) == 0 {
		return nil, true
	}
	inRange := make(map[int]bool, len(r.Blocks))
	for _, b := range r.Blocks {
		inRange[b] = true
	}
	var out []int
	done := make(map[int]bool)
	for _, e := range r.Exits {
		if done[e.To] {
			continue
		}
		done[e.To] = true
		for _, p := range g.in.CFG.Blocks[e.To].Preds {
			if !inRange[p] {
				return nil, false
			}
		}
		copies, ok := g.matchAt(e.To, cleanup)
		if !ok {
			return nil, false
		}
		out = append(out, copies...)
	}
	return out, true
}

// matchAt matches want against the straight-line code starting at block
// b, following sole successors that have no other entry.
func (g *gen) matchAt(b int, want []int) ([]int, bool) {
	var got []int
	cfg := g.in.CFG
	for k, hops := 0, 0; k < len(want) && hops <= len(cfg.Blocks); hops++ {
		blk := cfg.Blocks[b]
		for i := blk.Start; i < blk.End && k < len(want); i++ {
			in := &g.insts()[i]
			if ignorable(in) {
				continue
			}
			w := &g.insts()[want[k]]
			if in.Op != w.Op || !bytes.Equal(in.Raw, w.Raw) {
				return nil, false
			}
			got = append(got, i)
			k++
		}
		if k == len(want) {
			break
		}
		succs := cfg.NormalSuccs(b)
		if len(succs) != 1 || len(cfg.Blocks[succs[0].BlockID].Preds) != 1 {
			return nil, false
		}
		b = succs[0].BlockID
	}
	return got, len(got) == len(want)
}

// leaf renders one block as straight-line code.
func (g *gen) leaf(id int) {
	if g.in.CFG.Blocks[id].Data {
		return
	}
	if last := g.body(id); last >= 0 {
		g.inst(id, last)
	}
	g.flushAll()
}

func (g *gen) dead(id int) {
	blk := g.in.CFG.Blocks[id]
	if blk.Data || g.opts.Dead == DeadDrop {
		return
	}
	g.emit(fmt.Sprintf("// unreachable :L%d", id))
	for i := blk.Start; i < blk.End; i++ {
		g.emit("//   " + g.insts()[i].Text)
	}
}

func (g *gen) nested(r region.Region) {
	g.depth++
	if r != nil {
		g.region(r)
	}
	g.depth--
}

func labeled(label, s string) string {
	if label == "" {
		return s
	}
	return label + ": " + s
}

func (g *gen) region(r region.Region) {
	switch r := r.(type) {
	case *region.Block:
		if r.Dead {
			g.dead(r.ID)
		} else {
			g.leaf(r.ID)
		}
	case *region.Sequence:
		for _, it := range r.Items {
			g.region(it)
		}
	case *region.If:
		c := g.cond(r.Cond.ID)
		g.emit("if (" + c.String(r.Negate) + ") {")
		g.nested(r.Then)
		term := g.term && r.Then != nil
		if r.Else != nil {
			g.emit("} else {")
			g.nested(r.Else)
			term = term && g.term
		} else {
			term = false
		}
		g.emit("}")
		g.term = term
	case *region.Loop:
		g.loop(r)
	case *region.Switch:
		g.switchRegion(r)
	case *region.TryCatch:
		g.tryCatch(r)
	case *region.Jump:
		g.jump(r)
	case *region.Unstructured:
		for _, it := range r.Items {
			if id := firstBlock(it); id >= 0 {
				g.emit(fmt.Sprintf("// :L%d", id))
			}
			g.region(it)
		}
	default:
		panic(fmt.Sprintf("codegen: unexpected region %T", r))
	}
}

func firstBlock(r region.Region) int {
	id := -1
	region.Walk(r, func(r region.Region) {
		if b, ok := r.(*region.Block); ok && id < 0 {
			id = b.ID
		}
	})
	return id
}

func (g *gen) loop(r *region.Loop) {
	switch r.Kind {
	case region.PreTest:
		mark := len(g.lines)
		c := g.cond(r.Cond.ID)
		if len(g.lines) == mark {
			g.emit(labeled(r.Label, "while ("+c.String(r.Negate)+") {"))
			g.nested(r.Body)
			g.emit("}")
			break
		}
		// The header computes its test with statements: test inside.
		head := append([]string(nil), g.lines[mark:]...)
		g.lines = g.lines[:mark]
		for v, at := range g.decl {
			if at >= mark {
				delete(g.decl, v)
			}
		}
		g.emit(labeled(r.Label, "while (true) {"))
		for _, l := range head {
			g.lines = append(g.lines, g.opts.indent()+l)
		}
		g.depth++
		g.emit("if (" + c.String(!r.Negate) + ") {")
		g.depth++
		g.emit("break;")
		g.depth--
		g.emit("}")
		g.depth--
		g.nested(r.Body)
		g.emit("}")
	case region.PostTest:
		g.emit(labeled(r.Label, "do {"))
		g.depth++
		if r.Body != nil {
			g.region(r.Body)
		}
		c := g.cond(r.Cond.ID)
		g.depth--
		g.emit("} while (" + c.String(r.Negate) + ");")
	default:
		g.emit(labeled(r.Label, "while (true) {"))
		g.nested(r.Body)
		g.emit("}")
	}
	g.term = false
}

func (g *gen) switchRegion(r *region.Switch) {
	s, t := g.switchOf(r.Header.ID)
	g.emit(labeled(r.Label, "switch ("+s+") {"))
	g.depth++
	for k, c := range r.Cases {
		if c.Default {
			g.emit("default:")
		}
		for _, key := range c.Keys {
			g.emit("case " + Literal(int64(key), t, false) + ":")
		}
		g.term = false
		g.nested(c.Body)
		if !g.term && k < len(r.Cases)-1 {
			g.depth++
			g.emit("break;")
			g.depth--
		}
	}
	g.depth--
	g.emit("}")
	g.term = false
}

func (g *gen) tryCatch(r *region.TryCatch) {
	g.emit("try {")
	g.nested(r.Body)
	for _, c := range r.Catches {
		types := make([]string, len(c.Types))
		for i, t := range c.Types {
			types[i] = g.imp.Name(t)
		}
		g.emit("} catch (" + strings.Join(types, " | ") + " " + g.catchName(c.Entry) + ") {")
		g.nested(c.Body)
	}
	if r.Finally != nil {
		if g.finally[r] {
			g.emit("} finally {")
		} else {
			g.emit("} catch (Throwable " + g.catchName(r.FinallyEntry) + ") {")
		}
		g.nested(r.Finally)
	}
	g.emit("}")
	g.term = false
}

func (g *gen) jump(j *region.Jump) {
	switch j.Kind {
	case region.Break:
		g.emit(strings.TrimSpace("break "+j.Label) + ";")
	case region.Continue:
		g.emit(strings.TrimSpace("continue "+j.Label) + ";")
	case region.Return:
		g.leaf(j.Target)
	case region.Fallthrough:
		g.emit("// fall through")
	default:
		g.emit(fmt.Sprintf("// goto :L%d", j.Target))
	}
	g.term = true
}

// FoldableHeader reports, for a block ending in an if-test, whether every
// instruction before the test folds into the test expression.
func FoldableHeader(in *Input) func(int) bool {
	g := newGen(in, NewImports(in.Method.Class), Options{})
	return func(b int) bool {
		g.reset()
		g.cond(b)
		return len(g.lines) == 0
	}
}

// Method renders a method declaration with a decompiled body.
func Method(in *Input, imp *Imports, opts Options) string {
	g := newGen(in, imp, opts)
	// Constants are formatted from their variable's type, which is only
	// settled once every assignment has been seen.
	g.run()
	g.run()

	ind := opts.indent()
	names := make([]string, 0, len(g.params))
	types := make([]string, 0, len(g.params))
	for i, p := range in.Types.Params {
		if p.This {
			continue
		}
		names = append(names, g.params[i].name)
		types = append(types, g.typeName(p.Type))
	}
	var b strings.Builder
	b.WriteString(ind + declaration(in.Method, imp, types, names) + " {\n")
	for _, n := range in.Notes {
		b.WriteString(ind + ind + "// " + n + "\n")
	}
	for _, v := range g.order {
		if v.param {
			continue
		}
		if at, ok := g.decl[v]; ok {
			g.lines[at] = ind + ind + g.declType(v) + " " + strings.TrimPrefix(g.lines[at], ind+ind)
			continue
		}
		b.WriteString(ind + ind + g.declType(v) + " " + v.name + ";\n")
	}
	for _, l := range g.lines {
		b.WriteString(l + "\n")
	}
	b.WriteString(ind + "}\n")
	return b.String()
}

// Degraded renders a method that could not be decompiled: its listing as a
// comment and a body that throws.
func Degraded(m *dex.Method, imp *Imports, listing string, cause error, opts Options) string {
	ind := opts.indent()
	types, names := declaredParams(m, imp)
	var b strings.Builder
	b.WriteString(ind + declaration(m, imp, types, names) + " {\n")
	if cause != nil {
		b.WriteString(ind + ind + "// undex: " + cause.Error() + "\n")
	}
	for _, l := range strings.Split(strings.TrimRight(listing, "\n"), "\n") {
		if l != "" {
			b.WriteString(ind + ind + "// " + l + "\n")
		}
	}
	b.WriteString(ind + ind + "throw new UnsupportedOperationException(" +
		StringLiteral("Method not decompiled: "+m.Signature()) + ");\n")
	b.WriteString(ind + "}\n")
	return b.String()
}

// Abstract renders a method without code.
func Abstract(m *dex.Method, imp *Imports, opts Options) string {
	types, names := declaredParams(m, imp)
	return opts.indent() + declaration(m, imp, types, names) + ";\n"
}

func declaredParams(m *dex.Method, imp *Imports) (types, names []string) {
	for i, p := range m.Params {
		types = append(types, imp.Name(p))
		names = append(names, fmt.Sprintf("p%d", i))
	}
	return types, names
}

func declaration(m *dex.Method, imp *Imports, types, names []string) string {
	if m.Name == "<clinit>" {
		return "static"
	}
	params := make([]string, len(types))
	for i := range types {
		params[i] = types[i] + " " + names[i]
	}
	var head string
	if m.Name == "<init>" {
		head = dex.SimpleName(m.Class)
	} else {
		head = imp.Name(m.Return) + " " + m.Name
	}
	return modifiers(m.Flags, memberMethod) + head + "(" + strings.Join(params, ", ") + ")"
}

type memberKind uint8

const (
	memberClass memberKind = iota
	memberField
	memberMethod
)

func modifiers(flags uint32, kind memberKind) string {
	var mods []string
	add := func(f uint32, s string) {
		if flags&f != 0 {
			mods = append(mods, s)
		}
	}
	add(dex.AccPublic, "public")
	add(dex.AccPrivate, "private")
	add(dex.AccProtected, "protected")
	if kind != memberClass || flags&dex.AccInterface == 0 {
		add(dex.AccAbstract, "abstract")
	}
	add(dex.AccStatic, "static")
	add(dex.AccFinal, "final")
	switch kind {
	case memberMethod:
		add(dex.AccSynchronized, "synchronized")
		add(dex.AccNative, "native")
	case memberField:
		add(dex.AccVolatile, "volatile")
		add(dex.AccTransient, "transient")
	}
	if len(mods) == 0 {
		return ""
	}
	return strings.Join(mods, " ") + " "
}

// Class assembles a compilation unit from rendered members. Members must
// be rendered with imp before calling Class so their imports are known.
func Class(c *dex.Class, imp *Imports, members []string, opts Options) string {
	ind := opts.indent()
	var fields strings.Builder
	for _, f := range c.Fields {
		fields.WriteString(ind + modifiers(f.Flags, memberField) + imp.Name(f.Type) + " " + f.Name + ";\n")
	}

	kw := "class "
	switch {
	case c.Flags&dex.AccAnnotation != 0:
		kw = "@interface "
	case c.Flags&dex.AccInterface != 0:
		kw = "interface "
	}
	head := modifiers(c.Flags, memberClass) + kw + dex.SimpleName(c.Name)
	var supers []string
	if c.Flags&dex.AccInterface == 0 {
		if c.Super != "" && c.Super != dex.ObjectType {
			head += " extends " + imp.Name(c.Super)
		}
		for _, i := range c.Interfaces {
			supers = append(supers, imp.Name(i))
		}
		if len(supers) > 0 {
			head += " implements " + strings.Join(supers, ", ")
		}
	} else {
		for _, i := range c.Interfaces {
			if i != "Ljava/lang/annotation/Annotation;" {
				supers = append(supers, imp.Name(i))
			}
		}
		if len(supers) > 0 {
			head += " extends " + strings.Join(supers, ", ")
		}
	}

	var b strings.Builder
	if c.SourceFile != "" {
		b.WriteString("// source: " + c.SourceFile + "\n")
	}
	if pkg := dex.PackageName(c.Name); pkg != "" {
		b.WriteString("package " + pkg + ";\n\n")
	}
	if list := imp.List(); len(list) > 0 {
		for _, l := range list {
			b.WriteString("import " + l + ";\n")
		}
		b.WriteString("\n")
	}
	b.WriteString(head + " {\n")
	b.WriteString(fields.String())
	for i, m := range members {
		if i > 0 || fields.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m)
	}
	b.WriteString("}\n")
	return b.String()
}
