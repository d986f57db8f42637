package dex

import (
	"fmt"

	"undex/internal/dexfmt"
)

// Handler is one catch clause of a try range. An empty Type is the
// catch-all handler.
type Handler struct {
	Type string
	Addr uint32 // byte offset of the handler's first instruction
}

// CatchAll reports whether the handler catches every throwable.
func (h Handler) CatchAll() bool { return h.Type == "" }

// Try is a declared protected range [Start, End) in byte offsets, in
// declaration order.
type Try struct {
	Start    uint32
	End      uint32
	Handlers []Handler
}

// Contains reports whether addr lies inside the protected range.
func (t Try) Contains(addr uint32) bool { return addr >= t.Start && addr < t.End }

// Code is a method body.
type Code struct {
	Registers int
	Ins       int // registers holding incoming arguments (the last Ins registers)
	Outs      int
	Insns     []byte // raw 16-bit code units, little-endian
	Tries     []Try
}

// code_item header size: registers_size, ins_size, outs_size, tries_size,
// debug_info_off, insns_size.
const codeItemHeaderSize = 16

// ParseCode decodes a raw code_item. Handler type indices resolve through
// pool; an index outside the pool becomes an UnresolvedType placeholder and
// is reported in diags.
func ParseCode(data []byte, pool *Pool, diags *dexfmt.Diags) (*Code, error) {
	if len(data) < codeItemHeaderSize {
		return nil, fmt.Errorf("code: header: %w", dexfmt.ErrStreamEOF)
	}
	s := dexfmt.NewStream(data)
	regs, _ := s.ReadUint16()
	ins, _ := s.ReadUint16()
	outs, _ := s.ReadUint16()
	triesSize, _ := s.ReadUint16()
	_, _ = s.ReadUint32() // debug_info_off
	insnsSize, _ := s.ReadUint32()

	insns, err := s.ReadBytes(int(insnsSize) * 2)
	if err != nil {
		return nil, fmt.Errorf("code: insns (%d units): %w", insnsSize, err)
	}
	code := &Code{
		Registers: int(regs),
		Ins:       int(ins),
		Outs:      int(outs),
		Insns:     insns,
	}
	if int(ins) > int(regs) {
		return nil, fmt.Errorf("code: ins_size %d exceeds registers_size %d", ins, regs)
	}
	if triesSize == 0 {
		return code, nil
	}

	// Tries are 4-byte aligned: odd insns_size is followed by a padding unit.
	s.Align(4)

	type rawTry struct {
		start, count uint32
		handlerOff   uint16
	}
	raw := make([]rawTry, triesSize)
	for i := range raw {
		start, err := s.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("code: try %d: %w", i, err)
		}
		count, err := s.ReadUint16()
		if err != nil {
			return nil, fmt.Errorf("code: try %d: %w", i, err)
		}
		off, err := s.ReadUint16()
		if err != nil {
			return nil, fmt.Errorf("code: try %d: %w", i, err)
		}
		raw[i] = rawTry{start: start, count: uint32(count), handlerOff: off}
	}

	listBase := s.Position()
	for i, rt := range raw {
		hs, err := readCatchHandler(data, listBase+int(rt.handlerOff), pool, diags)
		if err != nil {
			return nil, fmt.Errorf("code: try %d handler: %w", i, err)
		}
		code.Tries = append(code.Tries, Try{
			Start:    rt.start * 2,
			End:      (rt.start + rt.count) * 2,
			Handlers: hs,
		})
	}
	return code, nil
}

// readCatchHandler decodes one encoded_catch_handler:
// sleb128 size (negative = has catch-all), size × (uleb128 type_idx,
// uleb128 addr), optional uleb128 catch_all_addr.
func readCatchHandler(data []byte, off int, pool *Pool, diags *dexfmt.Diags) ([]Handler, error) {
	if off >= len(data) {
		return nil, dexfmt.ErrStreamEOF
	}
	s := dexfmt.NewStreamAt(data, off)
	size, err := s.ReadSLEB128()
	if err != nil {
		return nil, err
	}
	catchAll := size <= 0
	if size < 0 {
		size = -size
	}
	var hs []Handler
	for i := int32(0); i < size; i++ {
		typeIdx, err := s.ReadULEB128()
		if err != nil {
			return nil, err
		}
		addr, err := s.ReadULEB128()
		if err != nil {
			return nil, err
		}
		typ, ok := pool.Type(typeIdx)
		if !ok {
			typ = UnresolvedType(typeIdx)
			diags.Addf(addr*2, dexfmt.DiagUnresolved, "catch type #%d", typeIdx)
		}
		hs = append(hs, Handler{Type: typ, Addr: addr * 2})
	}
	if catchAll {
		addr, err := s.ReadULEB128()
		if err != nil {
			return nil, err
		}
		hs = append(hs, Handler{Addr: addr * 2})
	}
	return hs, nil
}
