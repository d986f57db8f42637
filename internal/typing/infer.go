package typing

import (
	"fmt"

	"undex/internal/dex"
	"undex/internal/dexfmt"
	"undex/internal/disasm"
)

// TypedValue is the type of one register read or write at an instruction.
type TypedValue struct {
	Reg   int
	Point int // instruction index
	Type  Type
	Def   bool
}

// Options controls inference.
type Options struct {
	MaxSteps int      // pass cap; 0 derives it from block count and lattice height
	Hints    []string // parameter descriptors overriding the prototype
}

// latticeHeight bounds the longest strictly ascending chain: the primitive
// kinds plus a superclass chain capped by the universe.
const latticeHeight = 8 + 64

// Result holds the converged data-flow state of a method.
type Result struct {
	Registers int
	Entry     [][]Type // per block; the extra last slot is the pending invoke result
	Exit      [][]Type
	Values    [][]TypedValue // per instruction: reads in operand order, then the write
	Params    []Param
	Refs      []*dexfmt.UnresolvedRefError
	Passes    int
}

// Param is an incoming argument register.
type Param struct {
	Reg  int
	Type Type
	This bool
}

// Uses returns the register reads at instruction i.
func (r *Result) Uses(i int) []TypedValue {
	var out []TypedValue
	for _, v := range r.Values[i] {
		if !v.Def {
			out = append(out, v)
		}
	}
	return out
}

// Def returns the register write at instruction i.
func (r *Result) Def(i int) (TypedValue, bool) {
	vs := r.Values[i]
	if n := len(vs); n > 0 && vs[n-1].Def {
		return vs[n-1], true
	}
	return TypedValue{}, false
}

// DefType returns the type written by instruction i, or Unknown.
func (r *Result) DefType(i int) Type {
	if v, ok := r.Def(i); ok {
		return v.Type
	}
	return TUnknown
}

// UseType returns the type read from reg at instruction i, or Unknown.
func (r *Result) UseType(i, reg int) Type {
	for _, v := range r.Values[i] {
		if !v.Def && v.Reg == reg {
			return v.Type
		}
	}
	return TUnknown
}

type engine struct {
	cfg     *disasm.FuncCFG
	method  *dex.Method
	pool    *dex.Pool
	lat     Lattice
	regs    int
	catches []Type // per block: type bound by move-exception at handler entry
	refs    map[string]*dexfmt.UnresolvedRefError
	order   []*dexfmt.UnresolvedRefError
}

// Infer runs forward type inference to a fixed point. It fails with a
// *dexfmt.StructuralError when the pass cap is reached first.
func Infer(cfg *disasm.FuncCFG, regions []disasm.ExceptionRegion, m *dex.Method, pool *dex.Pool, u *dex.Universe, opts Options) (*Result, error) {
	regs := 0
	if m.Code != nil {
		regs = m.Code.Registers
	}
	e := &engine{
		cfg:    cfg,
		method: m,
		pool:   pool,
		lat:    Lattice{Universe: u},
		regs:   regs,
		refs:   make(map[string]*dexfmt.UnresolvedRefError),
	}
	e.catches = e.catchTypes(regions)

	nb := len(cfg.Blocks)
	res := &Result{
		Registers: regs,
		Entry:     make([][]Type, nb),
		Exit:      make([][]Type, nb),
		Values:    make([][]TypedValue, len(cfg.Insts)),
	}
	params, entry := e.paramState(opts.Hints)
	res.Params = params

	maxPasses := opts.MaxSteps
	if maxPasses <= 0 {
		maxPasses = 2 + (nb+1)*latticeHeight
	}
	order := reversePostorder(cfg)

	for i := range res.Entry {
		res.Entry[i] = e.blank()
		res.Exit[i] = e.blank()
	}

	visited := make([]bool, nb)
	converged := false
	for pass := 1; pass <= maxPasses; pass++ {
		res.Passes = pass
		changed := false
		for _, b := range order {
			in := e.blank()
			if b == 0 {
				copy(in, entry)
			}
			for _, p := range cfg.Blocks[b].Preds {
				exc := false
				for _, s := range cfg.Blocks[p].Succs {
					if s.BlockID != b {
						continue
					}
					if s.Kind == disasm.EdgeException {
						exc = true
					}
				}
				e.join(in, res.Exit[p])
				if exc {
					e.join(in, res.Entry[p])
				}
			}
			if visited[b] && equal(in, res.Entry[b]) {
				continue
			}
			visited[b] = true
			changed = true
			res.Entry[b] = in
			res.Exit[b] = e.transferBlock(b, in, nil)
		}
		if !changed {
			converged = true
			break
		}
	}
	if !converged {
		return nil, &dexfmt.StructuralError{
			Method: m.Signature(),
			Stage:  "typing",
			Reason: fmt.Sprintf("no fixed point after %d passes", maxPasses),
		}
	}

	for b := range cfg.Blocks {
		in := res.Entry[b]
		if !visited[b] {
			in = e.blank()
		}
		e.transferBlock(b, in, res.Values)
	}
	res.Refs = e.order
	return res, nil
}

func (e *engine) blank() []Type { return make([]Type, e.regs+1) }

func (e *engine) join(dst, src []Type) {
	for i := range dst {
		dst[i] = e.lat.Merge(dst[i], src[i])
	}
}

func equal(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// paramState places incoming arguments in the last Ins registers: the
// receiver first for instance methods, wide arguments in two registers.
func (e *engine) paramState(hints []string) ([]Param, []Type) {
	st := e.blank()
	m := e.method
	if m.Code == nil {
		return nil, st
	}
	descs := m.Params
	if len(hints) == len(m.Params) && len(hints) > 0 {
		descs = hints
	}
	reg := m.Code.Registers - m.Code.Ins
	var params []Param
	if !m.IsStatic() && reg >= 0 && reg < e.regs {
		t := Type{Kind: Ref, Name: m.Class}
		st[reg] = t
		params = append(params, Param{Reg: reg, Type: t, This: true})
		reg++
	}
	for _, d := range descs {
		if reg < 0 || reg >= e.regs {
			break
		}
		t := FromDesc(d)
		st[reg] = t
		params = append(params, Param{Reg: reg, Type: t})
		reg++
		if dex.IsWide(d) {
			reg++
		}
	}
	return params, st
}

// catchTypes computes the exception type bound at each handler entry.
func (e *engine) catchTypes(regions []disasm.ExceptionRegion) []Type {
	out := make([]Type, len(e.cfg.Blocks))
	for _, r := range regions {
		for _, h := range r.Handlers {
			t := Type{Kind: Ref, Name: "Ljava/lang/Throwable;"}
			if h.Type != "" {
				t = Type{Kind: Ref, Name: h.Type}
			}
			out[h.Block] = e.lat.Merge(out[h.Block], t)
		}
	}
	return out
}

func reversePostorder(cfg *disasm.FuncCFG) []int {
	n := len(cfg.Blocks)
	if n == 0 {
		return nil
	}
	seen := make([]bool, n)
	var post []int
	type frame struct{ b, i int }
	stack := []frame{{0, 0}}
	seen[0] = true
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		succs := cfg.Blocks[top.b].Succs
		if top.i < len(succs) {
			s := succs[top.i].BlockID
			top.i++
			if !seen[s] {
				seen[s] = true
				stack = append(stack, frame{s, 0})
			}
			continue
		}
		post = append(post, top.b)
		stack = stack[:len(stack)-1]
	}
	out := make([]int, len(post))
	for i, b := range post {
		out[len(post)-1-i] = b
	}
	return out
}

// transferBlock applies every instruction of block b to a copy of in. When
// values is non-nil the per-instruction reads and writes are recorded.
func (e *engine) transferBlock(b int, in []Type, values [][]TypedValue) []Type {
	st := make([]Type, len(in))
	copy(st, in)
	blk := e.cfg.Blocks[b]
	for i := blk.Start; i < blk.End; i++ {
		e.transfer(b, i, st, values)
	}
	return st
}

func (e *engine) transfer(b, idx int, st []Type, values [][]TypedValue) {
	inst := &e.cfg.Insts[idx]
	spec := inst.Spec
	result := len(st) - 1

	get := func(r int) Type {
		if r < 0 || r >= result {
			return TUnknown
		}
		return st[r]
	}
	if values != nil {
		for _, r := range inst.Srcs {
			values[idx] = append(values[idx], TypedValue{Reg: r, Point: idx, Type: get(r)})
		}
	}

	def := TUnknown
	hasDef := inst.Dst >= 0
	switch spec.Kind {
	case disasm.KindMove:
		def = get(inst.Srcs[0])
	case disasm.KindMoveResult:
		def = st[result]
		if def.Kind == Unknown {
			def = FromDesc(spec.Type)
		}
	case disasm.KindMoveException:
		def = e.catches[b]
		if def.Kind == Unknown {
			def = Type{Kind: Ref, Name: "Ljava/lang/Throwable;"}
		}
	case disasm.KindConst:
		switch {
		case spec.Wide():
			def = Type{Kind: Wide}
		case inst.Literal == 0:
			def = TZero
		default:
			def = Type{Kind: Narrow}
		}
	case disasm.KindConstString:
		def = TString
	case disasm.KindConstClass:
		def = Type{Kind: Ref, Name: "Ljava/lang/Class;"}
	case disasm.KindConstRef:
		def = Type{Kind: Ref, Name: "Ljava/lang/invoke/MethodType;"}
		if spec.Ref == disasm.RefMethodHandle {
			def = Type{Kind: Ref, Name: "Ljava/lang/invoke/MethodHandle;"}
		}
	case disasm.KindCheckCast, disasm.KindNewInstance, disasm.KindNewArray:
		def = e.typeRef(inst)
	case disasm.KindInstanceOf:
		def = TBoolean
	case disasm.KindArrayLength, disasm.KindCmp:
		def = TInt
	case disasm.KindFilledNewArray:
		st[result] = e.typeRef(inst)
	case disasm.KindAGet:
		def = FromDesc(spec.Type)
		if arr := get(inst.Srcs[0]); arr.Kind == Ref && len(arr.Name) > 1 && arr.Name[0] == '[' {
			def = FromDesc(dex.ElementType(arr.Name))
		}
	case disasm.KindIGet, disasm.KindSGet:
		def = e.fieldType(inst)
	case disasm.KindInvoke:
		st[result] = e.invokeResult(inst)
	case disasm.KindUnop, disasm.KindConvert, disasm.KindBinop, disasm.KindBinopLit:
		def = FromDesc(spec.Type)
	case disasm.KindBinop2Addr:
		def = FromDesc(spec.Type)
	}
	if spec.Kind == disasm.KindBinop || spec.Kind == disasm.KindBinop2Addr {
		switch spec.Operator {
		case "&", "|", "^":
			if spec.Type == "I" && get(inst.Srcs[0]) == TBoolean && get(inst.Srcs[1]) == TBoolean {
				def = TBoolean
			}
		}
	}

	if hasDef && inst.Dst < result {
		r := inst.Dst
		if r > 0 && st[r-1].IsWide() {
			st[r-1] = TUnknown
		}
		st[r] = def
		if def.IsWide() && r+1 < result {
			st[r+1] = TUnknown
		}
		if values != nil {
			values[idx] = append(values[idx], TypedValue{Reg: r, Point: idx, Type: def, Def: true})
		}
	}
	if spec.Kind != disasm.KindInvoke && spec.Kind != disasm.KindFilledNewArray && spec.Kind != disasm.KindNop {
		st[result] = TUnknown
	}
}

func (e *engine) unresolved(kind string, idx uint32, name string) {
	key := fmt.Sprintf("%s@%d", kind, idx)
	if _, ok := e.refs[key]; ok {
		return
	}
	err := &dexfmt.UnresolvedRefError{Kind: kind, Index: idx, Name: name}
	e.refs[key] = err
	e.order = append(e.order, err)
}

func (e *engine) typeRef(inst *disasm.Inst) Type {
	desc, ok := e.pool.Type(inst.Index)
	if !ok {
		name := dex.UnresolvedType(inst.Index)
		e.unresolved("type", inst.Index, name)
		return Type{Kind: Unresolved, Name: name}
	}
	return FromDesc(desc)
}

// refType types a member's declared type: references to classes the
// universe does not know become Unresolved.
func (e *engine) refType(desc string, ownerKnown bool) Type {
	t := FromDesc(desc)
	if t.Kind == Ref && !ownerKnown {
		if _, ok := e.lat.Universe.Lookup(desc); !ok && desc[0] == 'L' {
			return Type{Kind: Unresolved, Name: desc}
		}
	}
	return t
}

func (e *engine) fieldType(inst *disasm.Inst) Type {
	f, ok := e.pool.Field(inst.Index)
	if !ok {
		e.unresolved("field", inst.Index, "")
		return FromDesc(inst.Spec.Type)
	}
	resolved := e.lat.Universe.ResolveField(f)
	if !resolved {
		e.unresolved("field", inst.Index, f.String())
	}
	return e.refType(f.Type, resolved)
}

func (e *engine) invokeResult(inst *disasm.Inst) Type {
	var ref dex.MethodRef
	var ok bool
	switch inst.Spec.Ref {
	case disasm.RefMethod:
		ref, ok = e.pool.Method(inst.Index)
		if !ok {
			e.unresolved("method", inst.Index, "")
			return TUnknown
		}
		if inst.Spec.Invoke == disasm.InvokePolymorphic {
			if proto, pok := e.pool.Proto(inst.Index2); pok {
				return FromDesc(proto.Return)
			}
			return TObject
		}
		resolved := e.lat.Universe.ResolveMethod(ref)
		if !resolved {
			e.unresolved("method", inst.Index, ref.String())
		}
		return e.refType(ref.Return, resolved)
	case disasm.RefCallSite:
		return TUnknown
	}
	return TUnknown
}
