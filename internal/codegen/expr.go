package codegen

import (
	"fmt"
	"sort"
	"strings"

	"undex/internal/dex"
	"undex/internal/disasm"
	"undex/internal/typing"
)

// Java operator precedence, loosest first.
const (
	precAssign = iota + 1
	precTernary
	precOr
	precAnd
	precBitOr
	precXor
	precBitAnd
	precEq
	precRel
	precShift
	precAdd
	precMul
	precCast
	precUnary
	precPrimary
)

var binPrec = map[string]int{
	"*": precMul, "/": precMul, "%": precMul,
	"+": precAdd, "-": precAdd,
	"<<": precShift, ">>": precShift, ">>>": precShift,
	"<": precRel, "<=": precRel, ">": precRel, ">=": precRel,
	"==": precEq, "!=": precEq,
	"&": precBitAnd, "^": precXor, "|": precBitOr,
}

var inverse = map[string]string{
	"==": "!=", "!=": "==",
	"<": ">=", ">=": "<",
	">": "<=", "<=": ">",
}

// expr is a rendered source expression. Constants keep their raw value
// until a consumer supplies the type they are read as.
type expr struct {
	text   string
	prec   int
	impure bool // calls or reads memory

	isLit bool
	val   int64
	wide  bool

	cmp *cmpExpr

	// binary form, for compound assignment
	op    string
	left  string
	right string
	rlit  bool
	rval  int64
}

// cmpExpr is a three-way comparison that an if-test can turn into a
// relational expression.
type cmpExpr struct {
	a, b expr
	src  typing.Type
}

func lit(v int64, wide bool) expr {
	return expr{isLit: true, val: v, wide: wide, prec: precPrimary}
}

func primary(s string) expr { return expr{text: s, prec: precPrimary} }

// str renders e for a value of type ctx.
func str(e expr, ctx typing.Type) string {
	if e.isLit {
		return Literal(e.val, ctx, e.wide)
	}
	return e.text
}

// sub renders e as an operand that needs at least precedence min.
func sub(e expr, ctx typing.Type, min int) string {
	s := str(e, ctx)
	p := e.prec
	if e.isLit && strings.HasPrefix(s, "-") {
		p = precUnary
	}
	if p < min {
		return "(" + s + ")"
	}
	return s
}

func binary(op string, a, b expr, ctxA, ctxB typing.Type) expr {
	p := binPrec[op]
	l := sub(a, ctxA, p)
	r := sub(b, ctxB, p+1)
	e := expr{
		text:   l + " " + op + " " + r,
		prec:   p,
		impure: a.impure || b.impure,
		op:     op,
		left:   l,
		right:  r,
	}
	if b.isLit {
		e.rlit, e.rval = true, b.val
	}
	return e
}

// condition is an if-test that can be rendered either way round.
type condition struct {
	boolean bool   // truth test of a boolean value
	plain   string // boolean operand
	unary   string // boolean operand rendered for a prefix operator
	a, b    string
	op      string
}

func (c condition) String(negate bool) string {
	if c.boolean {
		truthy := c.op == "!="
		if negate {
			truthy = !truthy
		}
		if truthy {
			return c.plain
		}
		return "!" + c.unary
	}
	op := c.op
	if negate {
		op = inverse[op]
	}
	return c.a + " " + op + " " + c.b
}

// pending is a single-use definition waiting to be inlined at target.
type pending struct {
	reg    int
	def    int
	target int
	e      expr
	t      typing.Type
	deps   []int // registers read through variables
}

func (g *gen) insts() []disasm.Inst { return g.in.CFG.Insts }

// operandTypes returns the type each read of instruction i is consumed as,
// aligned with Srcs. Unknown means no expectation.
func (g *gen) operandTypes(i int) []typing.Type {
	in := &g.insts()[i]
	out := make([]typing.Type, len(in.Srcs))
	obj := typing.TObject
	set := func(k int, t typing.Type) {
		if k < len(out) {
			out[k] = t
		}
	}
	spec := in.Spec
	switch in.Kind() {
	case disasm.KindMove:
		set(0, typing.FromDesc(spec.Type))
	case disasm.KindReturn:
		set(0, g.ret)
	case disasm.KindIf:
		if len(in.Srcs) == 2 {
			set(0, g.in.Types.UseType(i, in.Srcs[1]))
			set(1, g.in.Types.UseType(i, in.Srcs[0]))
		}
	case disasm.KindSwitch, disasm.KindNewArray:
		set(0, typing.TInt)
	case disasm.KindMonitorEnter, disasm.KindMonitorExit, disasm.KindThrow, disasm.KindCheckCast,
		disasm.KindInstanceOf, disasm.KindArrayLength, disasm.KindFillArrayData, disasm.KindIGet:
		set(0, obj)
	case disasm.KindFilledNewArray:
		elem := typing.TUnknown
		if desc, ok := g.in.Pool.Type(in.Index); ok {
			elem = typing.FromDesc(dex.ElementType(desc))
		}
		for k := range out {
			out[k] = elem
		}
	case disasm.KindAGet:
		set(0, obj)
		set(1, typing.TInt)
	case disasm.KindAPut:
		set(0, typing.FromDesc(spec.Type))
		set(1, obj)
		set(2, typing.TInt)
	case disasm.KindIPut:
		set(0, g.fieldType(in))
		set(1, obj)
	case disasm.KindSPut:
		set(0, g.fieldType(in))
	case disasm.KindInvoke:
		params, recv := g.invokeParams(in)
		k := 0
		if recv {
			set(0, obj)
			k++
		}
		for _, p := range params {
			set(k, typing.FromDesc(p))
			k++
			if dex.IsWide(p) {
				set(k, typing.FromDesc(p))
				k++
			}
		}
	case disasm.KindUnop, disasm.KindConvert, disasm.KindCmp, disasm.KindBinopLit:
		for k := range out {
			out[k] = typing.FromDesc(spec.Src)
		}
	case disasm.KindBinop, disasm.KindBinop2Addr:
		src := typing.FromDesc(spec.Src)
		set(0, src)
		set(1, src)
		switch spec.Operator {
		case "<<", ">>", ">>>":
			set(1, typing.TInt)
		case "&", "|", "^":
			if spec.Type == "I" && len(in.Srcs) == 2 &&
				g.in.Types.UseType(i, in.Srcs[0]) == typing.TBoolean &&
				g.in.Types.UseType(i, in.Srcs[1]) == typing.TBoolean {
				set(0, typing.TBoolean)
				set(1, typing.TBoolean)
			}
		}
	}
	return out
}

// computeHints records, per register, the class its class-less values
// (constants, conflicts) are read as, when every such read agrees.
func (g *gen) computeHints() {
	const conflict = 0xff
	g.hints = make([]byte, g.in.Types.Registers)
	for i := range g.insts() {
		in := &g.insts()[i]
		if in.Kind() == disasm.KindPayload {
			continue
		}
		ctx := g.operandTypes(i)
		for k, r := range in.Srcs {
			if r < 0 || r >= len(g.hints) || g.in.Types.UseType(i, r).Class() != 0 {
				continue
			}
			c := ctx[k].Class()
			if ctx[k].Kind == typing.Ref {
				c = 'L'
			}
			if c == 0 {
				continue
			}
			switch g.hints[r] {
			case 0:
				g.hints[r] = c
			case c, conflict:
			default:
				g.hints[r] = conflict
			}
		}
	}
	for r, h := range g.hints {
		if h == conflict {
			g.hints[r] = 0
		}
	}
}

func (g *gen) fieldType(in *disasm.Inst) typing.Type {
	if f, ok := g.in.Pool.Field(in.Index); ok {
		return typing.FromDesc(f.Type)
	}
	return typing.FromDesc(in.Spec.Type)
}

// invokeParams returns the argument descriptors of an invoke and whether
// its first register is a receiver.
func (g *gen) invokeParams(in *disasm.Inst) ([]string, bool) {
	recv := in.Spec.Invoke != disasm.InvokeStatic && in.Spec.Invoke != disasm.InvokeCustom
	switch in.Spec.Ref {
	case disasm.RefMethod:
		if in.Spec.Invoke == disasm.InvokePolymorphic {
			if p, ok := g.in.Pool.Proto(in.Index2); ok {
				return p.Params, true
			}
			return nil, true
		}
		if m, ok := g.in.Pool.Method(in.Index); ok {
			return m.Params, recv
		}
	case disasm.RefCallSite:
		return nil, false
	}
	return nil, recv
}

// read returns the expression for register reg at instruction i, inlining a
// pending definition aimed at i.
func (g *gen) read(i, reg int, ctx typing.Type) expr {
	if p := g.pend[reg]; p != nil && p.target == i {
		delete(g.pend, reg)
		g.deps = append(g.deps, p.deps...)
		return p.e
	}
	if desc, ok := g.news[reg]; ok {
		delete(g.news, reg)
		g.assign(reg, typing.FromDesc(desc), expr{text: "new " + g.imp.Name(desc) + "()", prec: precPrimary, impure: true})
	}
	g.deps = append(g.deps, reg)
	t := g.in.Types.UseType(i, reg)
	c := ctx.Class()
	if ctx.Kind == typing.Ref {
		c = 'L'
	}
	return primary(g.useVar(reg, t, c).name)
}

// prepare materializes impure definitions that would otherwise be
// evaluated out of order once inlined into instruction i.
func (g *gen) prepare(i int) {
	in := &g.insts()[i]
	var mine []*pending
	lastOther := -1
	for _, p := range g.pend {
		if !p.e.impure {
			continue
		}
		if p.target == i {
			mine = append(mine, p)
		} else if p.def > lastOther {
			lastOther = p.def
		}
	}
	if len(mine) == 0 {
		return
	}
	sort.Slice(mine, func(a, b int) bool { return mine[a].def < mine[b].def })
	// Operand order must match definition order.
	pos := make(map[int]int)
	for k, r := range in.Srcs {
		if _, ok := pos[r]; !ok {
			pos[r] = k
		}
	}
	inOrder := true
	for k := 1; k < len(mine); k++ {
		if pos[mine[k].reg] < pos[mine[k-1].reg] {
			inOrder = false
		}
	}
	for _, p := range mine {
		if !inOrder || p.def < lastOther {
			g.materialize(p)
		}
	}
}

func (g *gen) sortedPending(pred func(*pending) bool) []*pending {
	var ps []*pending
	for _, p := range g.pend {
		if pred(p) {
			ps = append(ps, p)
		}
	}
	sort.Slice(ps, func(a, b int) bool { return ps[a].def < ps[b].def })
	return ps
}

func (g *gen) materialize(p *pending) {
	if g.pend[p.reg] != p {
		return
	}
	delete(g.pend, p.reg)
	if p.e.impure {
		g.flushImpure(p.def)
	}
	g.flushDeps(p.reg)
	g.store(p.reg, p.t, p.e)
}

// flushImpure materializes impure definitions made before instruction def.
func (g *gen) flushImpure(def int) {
	for _, p := range g.sortedPending(func(p *pending) bool { return p.e.impure && p.def < def }) {
		g.materialize(p)
	}
}

// flushDeps materializes definitions that read reg through its variable.
func (g *gen) flushDeps(reg int) {
	for _, p := range g.sortedPending(func(p *pending) bool {
		for _, d := range p.deps {
			if d == reg {
				return true
			}
		}
		return false
	}) {
		g.materialize(p)
	}
}

func (g *gen) flushAll() {
	for _, p := range g.sortedPending(func(*pending) bool { return true }) {
		g.materialize(p)
	}
	regs := make([]int, 0, len(g.news))
	for r := range g.news {
		regs = append(regs, r)
	}
	sort.Ints(regs)
	for _, r := range regs {
		desc := g.news[r]
		delete(g.news, r)
		g.assign(r, typing.FromDesc(desc), expr{text: "new " + g.imp.Name(desc) + "()", prec: precPrimary, impure: true})
	}
}

const maxInst = int(^uint(0) >> 1)

// assign writes e to reg at the current position.
func (g *gen) assign(reg int, t typing.Type, e expr) {
	g.flushDeps(reg)
	if t.IsWide() {
		g.flushDeps(reg + 1)
	}
	if e.impure {
		g.flushImpure(maxInst)
	}
	delete(g.news, reg)
	g.store(reg, t, e)
}

// store emits the assignment line.
func (g *gen) store(reg int, t typing.Type, e expr) {
	v := g.defVar(reg, t)
	first := !v.param && !g.touched[v] && g.depth == 2
	g.touched[v] = true
	ctx := v.typ
	switch ctx.Kind {
	case typing.Unknown, typing.Zero, typing.Narrow, typing.Wide, typing.Top:
		ctx = classType(v.class)
	}
	if e.op != "" && e.left == v.name {
		switch {
		case (e.op == "+" || e.op == "-") && e.rlit && e.rval == 1:
			g.emit(v.name + e.op + e.op + ";")
			return
		case binPrec[e.op] != precEq && binPrec[e.op] != precRel:
			g.emit(v.name + " " + e.op + "= " + e.right + ";")
			return
		}
	}
	if first {
		g.decl[v] = len(g.lines)
	}
	g.emit(v.name + " = " + str(e, ctx) + ";")
}

// statement emits a statement line, keeping impure evaluation order.
func (g *gen) statement(s string, impure bool) {
	if impure {
		g.flushImpure(maxInst)
	}
	g.emit(s + ";")
}

// define handles a register write: single-use values wait to be inlined,
// the rest are assigned.
func (g *gen) define(b, i, reg int, t typing.Type, e expr) {
	if tgt, ok := g.live.singleUse(g.in.CFG, b, i, reg); ok {
		deps := make([]int, len(g.deps))
		copy(deps, g.deps)
		delete(g.news, reg)
		g.pend[reg] = &pending{reg: reg, def: i, target: tgt, e: e, t: t, deps: deps}
		return
	}
	g.assign(reg, t, e)
}

// body translates block b up to its closing branch and returns the index
// of that if-test or switch, or -1.
func (g *gen) body(b int) int {
	g.pend = make(map[int]*pending)
	g.news = make(map[int]string)
	g.call = nil
	blk := g.in.CFG.Blocks[b]
	end, last := blk.End, -1
	if end > blk.Start {
		switch g.insts()[end-1].Kind() {
		case disasm.KindIf, disasm.KindIfZ, disasm.KindSwitch:
			last = end - 1
			end--
		}
	}
	for i := blk.Start; i < end; i++ {
		if !g.skip[i] {
			g.inst(b, i)
		}
	}
	return last
}

// test builds the condition of the if-test at i.
func (g *gen) test(i int) condition {
	in := &g.insts()[i]
	g.deps = nil
	g.prepare(i)
	ctx := g.operandTypes(i)
	op := in.Spec.Operator
	if in.Kind() == disasm.KindIf && len(in.Srcs) == 2 {
		t := g.lat.Merge(ctx[0], ctx[1])
		a := g.read(i, in.Srcs[0], ctx[0])
		b := g.read(i, in.Srcs[1], ctx[1])
		p := binPrec[op]
		return condition{a: sub(a, t, p), b: sub(b, t, p+1), op: op}
	}
	reg := in.Srcs[0]
	t := g.in.Types.UseType(i, reg)
	e := g.read(i, reg, t)
	if e.cmp != nil {
		p := binPrec[op]
		return condition{a: sub(e.cmp.a, e.cmp.src, p), b: sub(e.cmp.b, e.cmp.src, p+1), op: op}
	}
	p := binPrec[op]
	switch {
	case t.Kind == typing.Boolean && (op == "==" || op == "!="):
		return condition{boolean: true, plain: str(e, t), unary: sub(e, t, precUnary), op: op}
	case t.IsRef():
		return condition{a: sub(e, t, p), b: "null", op: op}
	}
	return condition{a: sub(e, t, p), b: "0", op: op}
}

// cond translates an if-ending block and returns its test. Statements of
// the block are emitted first.
func (g *gen) cond(b int) condition {
	last := g.body(b)
	var c condition
	if last >= 0 && g.insts()[last].Kind() != disasm.KindSwitch {
		c = g.test(last)
	} else {
		c = condition{boolean: true, plain: "true", unary: "true", op: "!="}
	}
	g.flushAll()
	return c
}

// switchOf translates a switch-ending block and returns the switched value
// and its type.
func (g *gen) switchOf(b int) (string, typing.Type) {
	last := g.body(b)
	s, t := "0", typing.TInt
	if last >= 0 && g.insts()[last].Kind() == disasm.KindSwitch {
		in := &g.insts()[last]
		g.deps = nil
		g.prepare(last)
		t = g.in.Types.UseType(last, in.Srcs[0])
		s = str(g.read(last, in.Srcs[0], typing.TInt), typing.TInt)
	}
	g.flushAll()
	return s, t
}

// inst translates one instruction of block b.
func (g *gen) inst(b, i int) {
	in := &g.insts()[i]
	g.deps = nil
	g.prepare(i)
	ctx := g.operandTypes(i)
	arg := func(k int) expr { return g.read(i, in.Srcs[k], ctx[k]) }
	def := func(e expr) { g.define(b, i, in.Dst, g.in.Types.DefType(i), e) }
	spec := in.Spec

	switch in.Kind() {
	case disasm.KindNop, disasm.KindPayload, disasm.KindGoto, disasm.KindUnused:
	case disasm.KindMove:
		def(arg(0))
	case disasm.KindMoveResult:
		e := primary("result")
		if g.call != nil {
			e = *g.call
			g.deps = append(g.deps, g.callDeps...)
			g.call = nil
		}
		def(e)
	case disasm.KindMoveException:
		// The catch clause already binds the exception.
		if !g.live.unused(g.in.CFG, b, i, in.Dst) {
			def(primary(g.catchName(b)))
		}
	case disasm.KindReturnVoid:
		g.flushAll()
		g.statement("return", false)
		g.term = true
	case disasm.KindReturn:
		e := arg(0)
		g.statement("return "+str(e, g.ret), e.impure)
		g.term = true
	case disasm.KindConst:
		def(lit(in.Literal, spec.Wide()))
	case disasm.KindConstString:
		s, ok := g.in.Pool.String(in.Index)
		if !ok {
			s = fmt.Sprintf("<unresolved string@%d>", in.Index)
		}
		def(primary(StringLiteral(s)))
	case disasm.KindConstClass:
		def(primary(g.typeRef(in.Index) + ".class"))
	case disasm.KindConstRef:
		def(expr{text: fmt.Sprintf("null /* %s@%d */", spec.Ref, in.Index), prec: precPrimary})
	case disasm.KindMonitorEnter, disasm.KindMonitorExit:
		e := arg(0)
		g.flushImpure(maxInst)
		g.emit(fmt.Sprintf("// %s(%s)", spec.Mnemonic, str(e, typing.TObject)))
	case disasm.KindCheckCast:
		e := arg(0)
		def(expr{text: "(" + g.typeRef(in.Index) + ") " + sub(e, typing.TObject, precCast), prec: precCast, impure: e.impure})
	case disasm.KindInstanceOf:
		e := arg(0)
		def(expr{text: sub(e, typing.TObject, precRel) + " instanceof " + g.typeRef(in.Index), prec: precRel, impure: e.impure})
	case disasm.KindArrayLength:
		e := arg(0)
		def(expr{text: sub(e, typing.TObject, precPrimary) + ".length", prec: precPrimary, impure: e.impure})
	case disasm.KindNewInstance:
		desc, ok := g.in.Pool.Type(in.Index)
		if !ok {
			desc = dex.UnresolvedType(in.Index)
		}
		g.flushDeps(in.Dst)
		g.news[in.Dst] = desc
	case disasm.KindNewArray:
		e := arg(0)
		def(expr{text: g.newArray(in.Index, str(e, typing.TInt)), prec: precPrimary, impure: e.impure})
	case disasm.KindFilledNewArray:
		elems := make([]string, len(in.Srcs))
		impure := false
		for k := range in.Srcs {
			e := arg(k)
			impure = impure || e.impure
			elems[k] = str(e, ctx[k])
		}
		desc := g.typeRef(in.Index)
		g.setCall(expr{text: "new " + desc + "{" + strings.Join(elems, ", ") + "}", prec: precPrimary, impure: impure}, i)
	case disasm.KindFillArrayData:
		g.fillArray(i, arg(0))
	case disasm.KindThrow:
		e := arg(0)
		g.statement("throw "+str(e, typing.TObject), e.impure)
		g.term = true
	case disasm.KindCmp:
		a, c := arg(0), arg(1)
		name := map[string]string{"J": "Long", "F": "Float", "D": "Double"}[spec.Src]
		def(expr{
			text:   fmt.Sprintf("%s.compare(%s, %s)", name, str(a, ctx[0]), str(c, ctx[1])),
			prec:   precPrimary,
			impure: a.impure || c.impure,
			cmp:    &cmpExpr{a: a, b: c, src: ctx[0]},
		})
	case disasm.KindAGet:
		a, k := arg(0), arg(1)
		def(expr{text: sub(a, typing.TObject, precPrimary) + "[" + str(k, typing.TInt) + "]", prec: precPrimary, impure: true})
	case disasm.KindAPut:
		v, a, k := arg(0), arg(1), arg(2)
		elem := ctx[0]
		if at := g.in.Types.UseType(i, in.Srcs[1]); at.Kind == typing.Ref && strings.HasPrefix(at.Name, "[") {
			elem = typing.FromDesc(dex.ElementType(at.Name))
		}
		g.statement(sub(a, typing.TObject, precPrimary)+"["+str(k, typing.TInt)+"] = "+str(v, elem), true)
	case disasm.KindIGet:
		obj := arg(0)
		def(expr{text: sub(obj, typing.TObject, precPrimary) + "." + g.fieldName(in.Index), prec: precPrimary, impure: true})
	case disasm.KindIPut:
		v, obj := arg(0), arg(1)
		g.statement(sub(obj, typing.TObject, precPrimary)+"."+g.fieldName(in.Index)+" = "+str(v, ctx[0]), true)
	case disasm.KindSGet:
		def(expr{text: g.staticField(in.Index), prec: precPrimary, impure: true})
	case disasm.KindSPut:
		v := arg(0)
		g.statement(g.staticField(in.Index)+" = "+str(v, ctx[0]), true)
	case disasm.KindInvoke:
		g.invoke(b, i)
	case disasm.KindUnop:
		e := arg(0)
		s := sub(e, ctx[0], precUnary)
		if strings.HasPrefix(s, "-") {
			s = "(" + s + ")"
		}
		def(expr{text: spec.Operator + s, prec: precUnary, impure: e.impure})
	case disasm.KindConvert:
		e := arg(0)
		def(expr{text: "(" + dex.JavaName(spec.Type) + ") " + sub(e, ctx[0], precCast), prec: precCast, impure: e.impure})
	case disasm.KindBinop, disasm.KindBinop2Addr:
		a, c := arg(0), arg(1)
		def(binary(spec.Operator, a, c, ctx[0], ctx[1]))
	case disasm.KindBinopLit:
		a := arg(0)
		l := lit(in.Literal, false)
		switch {
		case spec.Operator == "rsub":
			def(binary("-", l, a, ctx[0], ctx[0]))
		case spec.Operator == "^" && in.Literal == 1 && g.in.Types.UseType(i, in.Srcs[0]) == typing.TBoolean:
			def(expr{text: "!" + sub(a, typing.TBoolean, precUnary), prec: precUnary, impure: a.impure})
		default:
			def(binary(spec.Operator, a, l, ctx[0], ctx[0]))
		}
	case disasm.KindIf, disasm.KindIfZ:
		c := g.test(i)
		g.emit(fmt.Sprintf("// if (%s) goto :L%d", c.String(false), g.blockAt(in.Target)))
	case disasm.KindSwitch:
		e := arg(0)
		g.emit(fmt.Sprintf("// switch (%s)", str(e, typing.TInt)))
	}
}

func (g *gen) blockAt(addr uint32) int {
	id, _ := g.in.CFG.BlockAt(addr)
	return id
}

// setCall parks a call result for the move-result that follows it, or
// emits the call as a statement.
func (g *gen) setCall(e expr, i int) {
	insts := g.insts()
	if i+1 < len(insts) && insts[i+1].Kind() == disasm.KindMoveResult && !g.skip[i+1] {
		g.call = &e
		g.callDeps = append([]int(nil), g.deps...)
		return
	}
	g.statement(e.text, e.impure)
}

func (g *gen) typeRef(idx uint32) string {
	desc, ok := g.in.Pool.Type(idx)
	if !ok {
		desc = dex.UnresolvedType(idx)
	}
	return g.imp.Name(desc)
}

func (g *gen) newArray(idx uint32, size string) string {
	desc, ok := g.in.Pool.Type(idx)
	if !ok || !strings.HasPrefix(desc, "[") {
		return "new Object[" + size + "]"
	}
	dims := 0
	for dims < len(desc) && desc[dims] == '[' {
		dims++
	}
	return "new " + g.imp.Name(desc[dims:]) + "[" + size + "]" + strings.Repeat("[]", dims-1)
}

func (g *gen) fieldName(idx uint32) string {
	if f, ok := g.in.Pool.Field(idx); ok {
		return f.Name
	}
	return fmt.Sprintf("field$%d", idx)
}

func (g *gen) staticField(idx uint32) string {
	f, ok := g.in.Pool.Field(idx)
	if !ok {
		return fmt.Sprintf("field$%d", idx)
	}
	if f.Class == g.in.Method.Class {
		return f.Name
	}
	return g.imp.Name(f.Class) + "." + f.Name
}

// fillArray renders fill-array-data as a copy from an array initializer.
func (g *gen) fillArray(i int, arr expr) {
	in := &g.insts()[i]
	p := in.Payload
	if p == nil {
		g.emit("// fill-array-data " + str(arr, typing.TObject))
		return
	}
	at := g.in.Types.UseType(i, in.Srcs[0])
	elem := ""
	if at.Kind == typing.Ref && strings.HasPrefix(at.Name, "[") {
		elem = dex.ElementType(at.Name)
	}
	if elem == "" || !strings.ContainsAny(elem[:1], "ZBCSIJFD") {
		elem = map[int]string{1: "B", 2: "S", 4: "I", 8: "J"}[p.Width]
	}
	et := typing.FromDesc(elem)
	vals := make([]string, len(p.Elements))
	for k, v := range p.Elements {
		vals[k] = Literal(v, et, p.Width == 8)
	}
	g.statement(fmt.Sprintf("System.arraycopy(new %s[]{%s}, 0, %s, 0, %d)",
		dex.JavaName(elem), strings.Join(vals, ", "), str(arr, typing.TObject), len(vals)), true)
}

// invoke translates a method call, folding constructor calls into the
// pending new-instance of their receiver.
func (g *gen) invoke(b, i int) {
	in := &g.insts()[i]
	spec := in.Spec
	params, recv := g.invokeParams(in)

	var ref dex.MethodRef
	name := fmt.Sprintf("method$%d", in.Index)
	resolved := false
	if spec.Ref == disasm.RefMethod {
		if m, ok := g.in.Pool.Method(in.Index); ok {
			ref, name, resolved = m, m.Name, true
		}
	} else {
		name = fmt.Sprintf("callSite$%d", in.Index)
	}

	regs := in.Srcs
	if resolved || spec.Invoke == disasm.InvokePolymorphic {
		regs = in.ArgRegs(params, recv)
	}
	ctxOf := func(k int) typing.Type {
		if recv {
			if k == 0 {
				return typing.TObject
			}
			k--
		}
		if k < len(params) {
			return typing.FromDesc(params[k])
		}
		return typing.TUnknown
	}

	// Constructor of a pending new-instance.
	if resolved && name == "<init>" && len(regs) > 0 {
		if desc, ok := g.news[regs[0]]; ok {
			delete(g.news, regs[0])
			args := g.args(i, regs[1:], func(k int) typing.Type { return ctxOf(k + 1) })
			e := expr{text: "new " + g.imp.Name(desc) + "(" + args + ")", prec: precPrimary, impure: true}
			g.define(b, i, regs[0], typing.FromDesc(desc), e)
			return
		}
	}

	var recvText string
	first := 0
	if recv && len(regs) > 0 {
		first = 1
		r := g.read(i, regs[0], typing.TObject)
		recvText = sub(r, typing.TObject, precPrimary)
	}
	args := g.args(i, regs[first:], func(k int) typing.Type { return ctxOf(k + first) })

	var text string
	switch {
	case resolved && name == "<init>" && recvText == "this":
		if ref.Class != g.in.Method.Class && args == "" {
			return
		}
		kw := "super"
		if ref.Class == g.in.Method.Class {
			kw = "this"
		}
		text = kw + "(" + args + ")"
	case spec.Invoke == disasm.InvokeSuper:
		text = "super." + name + "(" + args + ")"
	case !recv:
		owner := ""
		if resolved && ref.Class != g.in.Method.Class {
			owner = g.imp.Name(ref.Class) + "."
		}
		text = owner + name + "(" + args + ")"
	default:
		text = recvText + "." + name + "(" + args + ")"
	}
	g.setCall(expr{text: text, prec: precPrimary, impure: true}, i)
}

func (g *gen) args(i int, regs []int, ctxOf func(int) typing.Type) string {
	parts := make([]string, len(regs))
	for k, r := range regs {
		t := ctxOf(k)
		parts[k] = str(g.read(i, r, t), t)
	}
	return strings.Join(parts, ", ")
}

// catchName returns the name bound by the catch clause entering block b.
func (g *gen) catchName(b int) string {
	if n, ok := g.catchNames[b]; ok {
		return n
	}
	n := "e"
	if g.ncatch > 0 {
		n = fmt.Sprintf("e%d", g.ncatch)
	}
	g.ncatch++
	g.catchNames[b] = n
	return n
}
