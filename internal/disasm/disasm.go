// Package disasm decodes Dalvik bytecode, builds per-method control flow
// graphs and resolves declared exception ranges onto them.
package disasm

import (
	"encoding/binary"
	"fmt"
	"strings"

	"undex/internal/dexfmt"
)

// Inst is a decoded instruction. Addresses are byte offsets from the first
// code unit of the method.
type Inst struct {
	Addr    uint32
	Op      byte
	Spec    *Spec
	Size    int    // bytes
	Raw     []byte // view into the method's code, not copied
	Dst     int    // register written, -1 if none
	Srcs    []int  // registers read, in operand order
	Literal int64
	Index   uint32 // pool index for RefKind operands
	Index2  uint32 // proto index for invoke-polymorphic
	Target  uint32 // branch target or payload address
	Cases   []Case // resolved switch cases, in payload order
	Payload *Payload
	Text    string
}

// Kind returns the opcode kind.
func (i *Inst) Kind() Kind { return i.Spec.Kind }

// End returns the byte offset just past the instruction.
func (i *Inst) End() uint32 { return i.Addr + uint32(i.Size) }

// Case is one switch arm with its absolute byte target.
type Case struct {
	Key    int32
	Target uint32
}

// Payload is the decoded body of a payload pseudo-instruction.
type Payload struct {
	Ident    uint16
	Keys     []int32 // switch keys (packed: first key + i)
	Rel      []int32 // switch targets, code units relative to the switch
	Width    int     // array element width in bytes
	Elements []int64 // array elements, sign-extended
}

// Options controls decoding.
type Options struct {
	MaxSteps  int // maximum instructions to decode; 0 = 10M
	Registers int // register frame size operands must fit in; 0 = unchecked
}

// Decode decodes a method body. The result covers every byte of code
// exactly once, in address order. A reserved opcode, truncated operand,
// dangling branch or malformed payload fails the whole method with a
// *dexfmt.DecodeError.
func Decode(code []byte, opts Options) ([]Inst, error) {
	if len(code)%2 != 0 {
		off := len(code) - 1
		return nil, &dexfmt.DecodeError{Offset: uint32(off), Opcode: uint16(code[off]), Reason: "odd trailing byte"}
	}
	d := decoder{code: code, units: len(code) / 2, frame: opts.Registers}
	maxSteps := dexfmt.MaxSteps(opts.MaxSteps)

	insts := make([]Inst, 0, d.units)
	for pos := 0; pos < d.units; {
		if len(insts) >= maxSteps {
			return nil, &dexfmt.DecodeError{Offset: uint32(pos * 2), Reason: fmt.Sprintf("more than %d instructions", maxSteps)}
		}
		inst, err := d.decodeOne(pos)
		if err != nil {
			return nil, err
		}
		insts = append(insts, inst)
		pos += inst.Size / 2
	}
	if err := link(insts); err != nil {
		return nil, err
	}
	return insts, nil
}

type decoder struct {
	code  []byte
	units int
	frame int
}

func (d *decoder) u16(pos int) uint16 {
	return binary.LittleEndian.Uint16(d.code[pos*2:])
}

func (d *decoder) u32(pos int) uint32 {
	return uint32(d.u16(pos)) | uint32(d.u16(pos+1))<<16
}

func truncated(addr uint32, op uint16) error {
	return &dexfmt.DecodeError{Offset: addr, Opcode: op, Reason: "truncated operands"}
}

func (d *decoder) decodeOne(pos int) (Inst, error) {
	addr := uint32(pos * 2)
	unit := d.u16(pos)
	op := byte(unit)
	hi := byte(unit >> 8)

	if op == 0x00 && hi >= 1 && hi <= 3 {
		return d.decodePayload(pos, unit)
	}

	spec := Lookup(op)
	if spec.Kind == KindUnused {
		return Inst{}, &dexfmt.DecodeError{Offset: addr, Opcode: uint16(op), Reason: "reserved opcode"}
	}
	n := spec.Format.Units()
	if pos+n > d.units {
		return Inst{}, truncated(addr, uint16(op))
	}

	inst := Inst{
		Addr: addr,
		Op:   op,
		Spec: spec,
		Size: n * 2,
		Raw:  d.code[pos*2 : (pos+n)*2],
		Dst:  -1,
	}
	rel := func(off int64) uint32 { return uint32(int64(addr) + off*2) }

	var regs []int // operand registers in encoding order
	a, b := int(hi&0x0f), int(hi>>4)
	aa := int(hi)

	switch spec.Format {
	case Fmt10x:
	case Fmt12x:
		regs = []int{a, b}
	case Fmt11n:
		regs = []int{a}
		inst.Literal = int64(int8(hi) >> 4)
	case Fmt11x:
		regs = []int{aa}
	case Fmt10t:
		inst.Target = rel(int64(int8(hi)))
	case Fmt20t:
		inst.Target = rel(int64(int16(d.u16(pos + 1))))
	case Fmt22x:
		regs = []int{aa, int(d.u16(pos + 1))}
	case Fmt21t:
		regs = []int{aa}
		inst.Target = rel(int64(int16(d.u16(pos + 1))))
	case Fmt21s:
		regs = []int{aa}
		inst.Literal = int64(int16(d.u16(pos + 1)))
	case Fmt21h:
		regs = []int{aa}
		if spec.Wide() {
			inst.Literal = int64(int16(d.u16(pos+1))) << 48
		} else {
			inst.Literal = int64(int16(d.u16(pos+1))) << 16
		}
	case Fmt21c:
		regs = []int{aa}
		inst.Index = uint32(d.u16(pos + 1))
	case Fmt23x:
		u := d.u16(pos + 1)
		regs = []int{aa, int(u & 0xff), int(u >> 8)}
	case Fmt22b:
		u := d.u16(pos + 1)
		regs = []int{aa, int(u & 0xff)}
		inst.Literal = int64(int8(u >> 8))
	case Fmt22t:
		regs = []int{a, b}
		inst.Target = rel(int64(int16(d.u16(pos + 1))))
	case Fmt22s:
		regs = []int{a, b}
		inst.Literal = int64(int16(d.u16(pos + 1)))
	case Fmt22c:
		regs = []int{a, b}
		inst.Index = uint32(d.u16(pos + 1))
	case Fmt30t:
		inst.Target = rel(int64(int32(d.u32(pos + 1))))
	case Fmt32x:
		regs = []int{int(d.u16(pos + 1)), int(d.u16(pos + 2))}
	case Fmt31i:
		regs = []int{aa}
		inst.Literal = int64(int32(d.u32(pos + 1)))
	case Fmt31t:
		regs = []int{aa}
		inst.Target = rel(int64(int32(d.u32(pos + 1))))
	case Fmt31c:
		regs = []int{aa}
		inst.Index = d.u32(pos + 1)
	case Fmt35c, Fmt45cc:
		count := b
		if count > 5 {
			return Inst{}, &dexfmt.DecodeError{Offset: addr, Opcode: uint16(op), Reason: fmt.Sprintf("argument count %d exceeds 5", count)}
		}
		inst.Index = uint32(d.u16(pos + 1))
		u := d.u16(pos + 2)
		all := [5]int{int(u & 0xf), int(u>>4) & 0xf, int(u>>8) & 0xf, int(u >> 12), a}
		regs = append([]int(nil), all[:count]...)
		if spec.Format == Fmt45cc {
			inst.Index2 = uint32(d.u16(pos + 3))
		}
	case Fmt3rc, Fmt4rcc:
		inst.Index = uint32(d.u16(pos + 1))
		first := int(d.u16(pos + 2))
		regs = make([]int, aa)
		for i := range regs {
			regs[i] = first + i
		}
		if spec.Format == Fmt4rcc {
			inst.Index2 = uint32(d.u16(pos + 3))
		}
	case Fmt51l:
		regs = []int{aa}
		inst.Literal = int64(d.u32(pos+1)) | int64(d.u32(pos+3))<<32
	}

	assignOperands(&inst, regs)
	if err := d.checkFrame(&inst, regs); err != nil {
		return Inst{}, err
	}
	inst.Text = instText(&inst, regs)
	return inst, nil
}

// checkFrame rejects operands outside the method's register frame. A wide
// result also needs the register after it.
func (d *decoder) checkFrame(inst *Inst, regs []int) error {
	if d.frame <= 0 {
		return nil
	}
	hi := -1
	for _, r := range regs {
		hi = max(hi, r)
	}
	if inst.Dst >= 0 && inst.Spec.Wide() {
		hi = max(hi, inst.Dst+1)
	}
	if hi < d.frame {
		return nil
	}
	return &dexfmt.DecodeError{
		Offset: inst.Addr,
		Opcode: uint16(inst.Op),
		Reason: fmt.Sprintf("register v%d outside a frame of %d", hi, d.frame),
	}
}

// assignOperands splits encoding-order registers into the written register
// and the read registers.
func assignOperands(inst *Inst, regs []int) {
	switch inst.Spec.Kind {
	case KindMove, KindUnop, KindConvert, KindArrayLength, KindInstanceOf, KindNewArray, KindIGet, KindBinopLit:
		inst.Dst, inst.Srcs = regs[0], regs[1:]
	case KindMoveResult, KindMoveException, KindConst, KindConstString, KindConstClass, KindConstRef, KindNewInstance, KindSGet:
		inst.Dst = regs[0]
	case KindCheckCast:
		inst.Dst, inst.Srcs = regs[0], regs[:1]
	case KindCmp, KindAGet, KindBinop:
		inst.Dst, inst.Srcs = regs[0], regs[1:]
	case KindBinop2Addr:
		inst.Dst, inst.Srcs = regs[0], regs
	default:
		inst.Srcs = regs
	}
}

func (d *decoder) decodePayload(pos int, ident uint16) (Inst, error) {
	addr := uint32(pos * 2)
	need := func(n int) bool { return pos+n <= d.units }
	p := &Payload{Ident: ident}
	var n int

	switch ident {
	case PackedSwitchPayload:
		if !need(4) {
			return Inst{}, truncated(addr, ident)
		}
		size := int(d.u16(pos + 1))
		first := int32(d.u32(pos + 2))
		n = 4 + size*2
		if !need(n) {
			return Inst{}, truncated(addr, ident)
		}
		for i := 0; i < size; i++ {
			p.Keys = append(p.Keys, first+int32(i))
			p.Rel = append(p.Rel, int32(d.u32(pos+4+i*2)))
		}
	case SparseSwitchPayload:
		if !need(2) {
			return Inst{}, truncated(addr, ident)
		}
		size := int(d.u16(pos + 1))
		n = 2 + size*4
		if !need(n) {
			return Inst{}, truncated(addr, ident)
		}
		for i := 0; i < size; i++ {
			p.Keys = append(p.Keys, int32(d.u32(pos+2+i*2)))
		}
		for i := 0; i < size; i++ {
			p.Rel = append(p.Rel, int32(d.u32(pos+2+size*2+i*2)))
		}
	case ArrayDataPayload:
		if !need(4) {
			return Inst{}, truncated(addr, ident)
		}
		width := int(d.u16(pos + 1))
		size := int(d.u32(pos + 2))
		switch width {
		case 1, 2, 4, 8:
		default:
			return Inst{}, &dexfmt.DecodeError{Offset: addr, Opcode: ident, Reason: fmt.Sprintf("array element width %d", width)}
		}
		if size > (d.units-pos)*2 {
			return Inst{}, truncated(addr, ident)
		}
		n = 4 + (size*width+1)/2
		if !need(n) {
			return Inst{}, truncated(addr, ident)
		}
		p.Width = width
		data := d.code[(pos+4)*2:]
		p.Elements = make([]int64, size)
		for i := range p.Elements {
			e := data[i*width:]
			switch width {
			case 1:
				p.Elements[i] = int64(int8(e[0]))
			case 2:
				p.Elements[i] = int64(int16(binary.LittleEndian.Uint16(e)))
			case 4:
				p.Elements[i] = int64(int32(binary.LittleEndian.Uint32(e)))
			case 8:
				p.Elements[i] = int64(binary.LittleEndian.Uint64(e))
			}
		}
	}

	spec := payloadSpecs[ident]
	inst := Inst{
		Addr:    addr,
		Spec:    spec,
		Size:    n * 2,
		Raw:     d.code[pos*2 : (pos+n)*2],
		Dst:     -1,
		Payload: p,
	}
	if ident == ArrayDataPayload {
		inst.Text = fmt.Sprintf("%s width=%d size=%d", spec.Mnemonic, p.Width, len(p.Elements))
	} else {
		inst.Text = fmt.Sprintf("%s size=%d", spec.Mnemonic, len(p.Keys))
	}
	return inst, nil
}

// link checks branch targets and attaches payloads to the switch and
// fill-array-data instructions that reference them.
func link(insts []Inst) error {
	byAddr := make(map[uint32]int, len(insts))
	for i := range insts {
		byAddr[insts[i].Addr] = i
	}
	isCode := func(addr uint32) bool {
		j, ok := byAddr[addr]
		return ok && insts[j].Kind() != KindPayload
	}

	for i := range insts {
		inst := &insts[i]
		switch inst.Kind() {
		case KindGoto, KindIf, KindIfZ:
			if !isCode(inst.Target) {
				return &dexfmt.DecodeError{Offset: inst.Addr, Opcode: uint16(inst.Op), Reason: fmt.Sprintf("branch target 0x%04x is not an instruction", inst.Target)}
			}
		case KindSwitch, KindFillArrayData:
			want := ArrayDataPayload
			if inst.Kind() == KindSwitch {
				want = PackedSwitchPayload
				if inst.Op == 0x2c {
					want = SparseSwitchPayload
				}
			}
			j, ok := byAddr[inst.Target]
			if !ok || insts[j].Payload == nil || insts[j].Payload.Ident != want {
				return &dexfmt.DecodeError{Offset: inst.Addr, Opcode: uint16(inst.Op), Reason: fmt.Sprintf("no %s at 0x%04x", payloadSpecs[want].Mnemonic, inst.Target)}
			}
			p := insts[j].Payload
			inst.Payload = p
			if inst.Kind() == KindFillArrayData {
				continue
			}
			inst.Cases = make([]Case, len(p.Keys))
			for k := range p.Keys {
				target := uint32(int64(inst.Addr) + int64(p.Rel[k])*2)
				if !isCode(target) {
					return &dexfmt.DecodeError{Offset: inst.Addr, Opcode: uint16(inst.Op), Reason: fmt.Sprintf("case target 0x%04x is not an instruction", target)}
				}
				inst.Cases[k] = Case{Key: p.Keys[k], Target: target}
			}
		}
	}
	return nil
}

func instText(inst *Inst, regs []int) string {
	spec := inst.Spec
	var ops []string
	reg := func(r int) string { return fmt.Sprintf("v%d", r) }
	label := fmt.Sprintf(":0x%04x", inst.Target)
	ref := func() string { return fmt.Sprintf("%s@%d", spec.Ref, inst.Index) }

	switch spec.Format {
	case Fmt10t, Fmt20t, Fmt30t:
		ops = append(ops, label)
	case Fmt35c, Fmt45cc, Fmt3rc, Fmt4rcc:
		rs := make([]string, len(regs))
		for i, r := range regs {
			rs[i] = reg(r)
		}
		ops = append(ops, "{"+strings.Join(rs, ", ")+"}", ref())
		if spec.Format == Fmt45cc || spec.Format == Fmt4rcc {
			ops = append(ops, fmt.Sprintf("proto@%d", inst.Index2))
		}
	default:
		for _, r := range regs {
			ops = append(ops, reg(r))
		}
		switch spec.Format {
		case Fmt11n, Fmt21s, Fmt21h, Fmt31i, Fmt51l, Fmt22b, Fmt22s:
			ops = append(ops, fmt.Sprintf("#%d", inst.Literal))
		case Fmt21t, Fmt22t, Fmt31t:
			ops = append(ops, label)
		case Fmt21c, Fmt22c, Fmt31c:
			ops = append(ops, ref())
		}
	}
	if len(ops) == 0 {
		return spec.Mnemonic
	}
	return spec.Mnemonic + " " + strings.Join(ops, ", ")
}

// ArgRegs maps an invoke's argument registers to one register per
// declared parameter, skipping the high half of wide arguments. When
// receiver is set the first entry is the receiver.
func (i *Inst) ArgRegs(params []string, receiver bool) []int {
	var out []int
	k := 0
	if receiver && k < len(i.Srcs) {
		out = append(out, i.Srcs[k])
		k++
	}
	for _, p := range params {
		if k >= len(i.Srcs) {
			break
		}
		out = append(out, i.Srcs[k])
		k++
		if p == "J" || p == "D" {
			k++
		}
	}
	return out
}

// FormatListing renders instructions as a stable listing.
// Each line: <addr>  <hex bytes>  <text>  ; <comment>
// Annotators are checked in order; first non-empty result is used.
func FormatListing(insts []Inst, annotators ...Annotator) string {
	var b strings.Builder
	for _, inst := range insts {
		fmt.Fprintf(&b, "0x%04x  ", inst.Addr)
		raw := inst.Raw
		more := false
		if len(raw) > 10 {
			raw, more = raw[:10], true
		}
		for k, c := range raw {
			if k > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%02x", c)
		}
		if more {
			b.WriteString(" ..")
		}
		b.WriteString("  ")
		b.WriteString(inst.Text)
		for _, ann := range annotators {
			if s := ann(inst); s != "" {
				fmt.Fprintf(&b, "  ; %s", s)
				break
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
