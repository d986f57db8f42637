package disasm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"undex/internal/dexfmt"
)

// code packs 16-bit code units little-endian.
func code(units ...uint16) []byte {
	b := make([]byte, len(units)*2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(b[i*2:], u)
	}
	return b
}

func mustDecode(t *testing.T, b []byte) []Inst {
	t.Helper()
	insts, err := Decode(b, Options{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return insts
}

func TestDecode_Const4(t *testing.T) {
	insts := mustDecode(t, []byte{0x12, 0x30})
	if len(insts) != 1 {
		t.Fatalf("got %d instructions, want 1", len(insts))
	}
	in := insts[0]
	if in.Op != 0x12 || in.Spec.Mnemonic != "const/4" {
		t.Errorf("op = 0x%02x %s, want 0x12 const/4", in.Op, in.Spec.Mnemonic)
	}
	if in.Dst != 0 || in.Literal != 3 {
		t.Errorf("dst=v%d lit=%d, want v0 3", in.Dst, in.Literal)
	}
	if in.Size != 2 || in.Addr != 0 {
		t.Errorf("addr=%d size=%d, want 0 2", in.Addr, in.Size)
	}
	if in.Text != "const/4 v0, #3" {
		t.Errorf("text = %q", in.Text)
	}
}

func TestDecode_Const4Negative(t *testing.T) {
	insts := mustDecode(t, code(0xf112)) // const/4 v1, #-1
	if insts[0].Dst != 1 || insts[0].Literal != -1 {
		t.Errorf("dst=v%d lit=%d, want v1 -1", insts[0].Dst, insts[0].Literal)
	}
}

func TestDecode_Literals(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		dst  int
		lit  int64
	}{
		{"const/16", code(0x0513, 0xff9c), 5, -100},
		{"const", code(0x0014, 0x4240, 0x000f), 0, 1000000},
		{"const/high16", code(0x0015, 0x3f80), 0, 0x3f800000},
		{"const-wide/16", code(0x0216, 0xffff), 2, -1},
		{"const-wide/high16", code(0x0019, 0x3ff0), 0, 0x3ff0000000000000},
		{"const-wide", code(0x0018, 0x5678, 0x1234, 0xdef0, 0x1abc), 0, 0x1abcdef012345678},
		{"add-int/lit8", code(0x01d8, 0xfe02), 1, -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			insts := mustDecode(t, tt.code)
			if len(insts) != 1 {
				t.Fatalf("got %d instructions, want 1", len(insts))
			}
			if insts[0].Spec.Mnemonic != tt.name {
				t.Errorf("mnemonic = %s, want %s", insts[0].Spec.Mnemonic, tt.name)
			}
			if insts[0].Dst != tt.dst || insts[0].Literal != tt.lit {
				t.Errorf("dst=v%d lit=%#x, want v%d %#x", insts[0].Dst, insts[0].Literal, tt.dst, tt.lit)
			}
		})
	}
}

func TestDecode_Operands(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		dst  int
		srcs []int
	}{
		{"move", code(0x2101), 1, []int{2}},
		{"move/from16", code(0x0302, 0x0100), 3, []int{256}},
		{"return", code(0x040f), -1, []int{4}},
		{"add-int", code(0x0090, 0x0201), 0, []int{1, 2}},
		{"add-int/2addr", code(0x21b0), 1, []int{1, 2}},
		{"aget", code(0x0044, 0x0201), 0, []int{1, 2}},
		{"aput", code(0x004b, 0x0201), -1, []int{0, 1, 2}},
		{"iget", code(0x2152, 0x0003), 1, []int{2}},
		{"iput", code(0x2159, 0x0003), -1, []int{1, 2}},
		{"check-cast", code(0x031f, 0x0000), 3, []int{3}},
		{"invoke-static", code(0x3071, 0x0007, 0x0321), -1, []int{1, 2, 3}},
		{"invoke-virtual/range", code(0x0374, 0x0002, 0x0010), -1, []int{16, 17, 18}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			insts := mustDecode(t, tt.code)
			in := insts[0]
			if in.Spec.Mnemonic != tt.name {
				t.Fatalf("mnemonic = %s, want %s", in.Spec.Mnemonic, tt.name)
			}
			if in.Dst != tt.dst {
				t.Errorf("dst = %d, want %d", in.Dst, tt.dst)
			}
			if !reflect.DeepEqual(in.Srcs, tt.srcs) {
				t.Errorf("srcs = %v, want %v", in.Srcs, tt.srcs)
			}
		})
	}
}

func TestDecode_Reserved(t *testing.T) {
	reserved := []byte{0x3e, 0x3f, 0x40, 0x41, 0x42, 0x43, 0x73, 0x79, 0x7a}
	for op := 0xe3; op <= 0xf9; op++ {
		reserved = append(reserved, byte(op))
	}
	for _, op := range reserved {
		// const/4 v0, #3 then the reserved opcode.
		_, err := Decode([]byte{0x12, 0x30, op, 0x00}, Options{})
		var de *dexfmt.DecodeError
		if !errors.As(err, &de) {
			t.Fatalf("op 0x%02x: err = %v, want DecodeError", op, err)
		}
		if de.Offset != 2 || de.Opcode != uint16(op) {
			t.Errorf("op 0x%02x: offset=%d opcode=0x%02x, want 2 0x%02x", op, de.Offset, de.Opcode, op)
		}
	}
}

func TestDecode_Truncated(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		off  uint32
	}{
		{"const/16 missing unit", code(0x0013), 0},
		{"odd byte", []byte{0x0e, 0x00, 0x0e}, 2},
		{"const-wide short", code(0x0000, 0x0018, 0x0001), 2},
		{"packed payload short", code(0x0100, 0x0004, 0x0000, 0x0000), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.code, Options{})
			var de *dexfmt.DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("err = %v, want DecodeError", err)
			}
			if de.Offset != tt.off {
				t.Errorf("offset = %d, want %d", de.Offset, tt.off)
			}
		})
	}
}

func TestDecode_RegisterFrame(t *testing.T) {
	tests := []struct {
		name  string
		code  []byte
		frame int
		bad   int // offending register, -1 = accepted
	}{
		{"inside", code(0x2101, 0x000e), 3, -1},
		{"source outside", code(0x4101, 0x000e), 3, 4},
		{"dest outside", code(0x0312, 0x000e), 3, 3},
		{"wide pair outside", code(0x0216, 0x0001, 0x000e), 3, 3},
		{"range invoke outside", code(0x0374, 0x0000, 0x0001, 0x000e), 3, 3},
		{"unchecked", code(0x4101, 0x000e), 0, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.code, Options{Registers: tt.frame})
			if tt.bad < 0 {
				if err != nil {
					t.Fatalf("got %v, want nil", err)
				}
				return
			}
			var de *dexfmt.DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("got %v, want DecodeError", err)
			}
			if de.Offset != 0 {
				t.Errorf("got offset 0x%x, want 0", de.Offset)
			}
			if want := fmt.Sprintf("register v%d outside a frame of %d", tt.bad, tt.frame); de.Reason != want {
				t.Errorf("got reason %q, want %q", de.Reason, want)
			}
		})
	}
}

func TestDecode_BadBranchTarget(t *testing.T) {
	// goto +1 past the end of the code.
	_, err := Decode(code(0x0128), Options{})
	var de *dexfmt.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want DecodeError", err)
	}
}

func TestDecode_PackedSwitch(t *testing.T) {
	b := code(
		0x002b, 0x0005, 0x0000, // 0x00 packed-switch v0, +5
		0x000e,                 // 0x06 return-void
		0x000e,                 // 0x08 return-void
		0x0100, 0x0001, 0x0005, 0x0000, 0x0004, 0x0000, // 0x0a payload: key 5 -> +4
	)
	insts := mustDecode(t, b)
	if len(insts) != 4 {
		t.Fatalf("got %d instructions, want 4", len(insts))
	}
	sw := insts[0]
	want := []Case{{Key: 5, Target: 0x08}}
	if !reflect.DeepEqual(sw.Cases, want) {
		t.Errorf("cases = %+v, want %+v", sw.Cases, want)
	}
	if insts[3].Kind() != KindPayload || insts[3].Size != 12 {
		t.Errorf("payload kind=%d size=%d, want payload 12", insts[3].Kind(), insts[3].Size)
	}
}

func TestDecode_SparseSwitch(t *testing.T) {
	b := code(
		0x002c, 0x0004, 0x0000, // 0x00 sparse-switch v0, +4
		0x000e,                 // 0x06 return-void
		0x0200, 0x0002, // 0x08 payload, 2 entries
		0xfff6, 0xffff, 0x0064, 0x0000, // keys -10, 100
		0x0003, 0x0000, 0x0003, 0x0000, // both -> 0x06
	)
	insts := mustDecode(t, b)
	want := []Case{{Key: -10, Target: 0x06}, {Key: 100, Target: 0x06}}
	if !reflect.DeepEqual(insts[0].Cases, want) {
		t.Errorf("cases = %+v, want %+v", insts[0].Cases, want)
	}
}

func TestDecode_SwitchWrongPayload(t *testing.T) {
	// packed-switch pointing at a sparse payload.
	b := code(
		0x002b, 0x0004, 0x0000,
		0x000e,
		0x0200, 0x0000,
	)
	_, err := Decode(b, Options{})
	var de *dexfmt.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want DecodeError", err)
	}
	if de.Opcode != 0x2b {
		t.Errorf("opcode = 0x%x, want 0x2b", de.Opcode)
	}
}

func TestDecode_FillArrayData(t *testing.T) {
	b := code(
		0x0026, 0x0004, 0x0000, // 0x00 fill-array-data v0, +4
		0x000e,                 // 0x06 return-void
		0x0300, 0x0002, 0x0003, 0x0000, // 0x08 width 2, 3 elements
		0x0001, 0x0002, 0xffff,
	)
	insts := mustDecode(t, b)
	p := insts[0].Payload
	if p == nil {
		t.Fatal("fill-array-data not linked to payload")
	}
	if p.Width != 2 || !reflect.DeepEqual(p.Elements, []int64{1, 2, -1}) {
		t.Errorf("width=%d elements=%v, want 2 [1 2 -1]", p.Width, p.Elements)
	}
}

func TestDecode_CoverageAndDeterminism(t *testing.T) {
	b := code(
		0x1012,                 // const/4 v0, #1
		0x0138, 0x0004,         // if-eqz v1, +4
		0x0290, 0x0100,         // add-int v2, v0, v1
		0x0228,                 // goto +2
		0x000e,                 // return-void
		0x020f,                 // return v2
	)
	first := mustDecode(t, b)
	second := mustDecode(t, b)
	if !reflect.DeepEqual(first, second) {
		t.Error("decoding is not deterministic")
	}
	var next uint32
	for _, in := range first {
		if in.Addr != next {
			t.Fatalf("inst at 0x%x, want 0x%x", in.Addr, next)
		}
		next = in.End()
	}
	if int(next) != len(b) {
		t.Errorf("covered %d bytes, want %d", next, len(b))
	}
}

func TestDecodeMaxSteps(t *testing.T) {
	_, err := Decode(code(0x0000, 0x0000, 0x000e), Options{MaxSteps: 2})
	if err == nil {
		t.Fatal("expected error when instruction cap is exceeded")
	}
}

func TestArgRegs(t *testing.T) {
	insts := mustDecode(t, code(0x3071, 0x0007, 0x0321))
	got := insts[0].ArgRegs([]string{"J", "I"}, false)
	if !reflect.DeepEqual(got, []int{1, 3}) {
		t.Errorf("ArgRegs = %v, want [1 3]", got)
	}
	got = insts[0].ArgRegs([]string{"I", "I"}, true)
	if !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Errorf("ArgRegs = %v, want [1 2 3]", got)
	}
}

func TestFormat(t *testing.T) {
	insts := mustDecode(t, []byte{0x12, 0x30, 0x0e, 0x00})
	got := FormatListing(insts)
	want := "0x0000  12 30  const/4 v0, #3\n0x0002  0e 00  return-void\n"
	if got != want {
		t.Errorf("Format:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatAnnotated(t *testing.T) {
	insts := mustDecode(t, code(0x011a, 0x0000)) // const-string v1, string@0
	ann := func(inst Inst) string {
		if inst.Spec.Ref == RefString {
			return "hello"
		}
		return ""
	}
	got := FormatListing(insts, ann)
	if !strings.HasSuffix(got, "const-string v1, string@0  ; hello\n") {
		t.Errorf("Format = %q", got)
	}
}

func TestOpcodeTable(t *testing.T) {
	used := 0
	for op := 0; op < 256; op++ {
		s := Lookup(byte(op))
		if s.Op != byte(op) {
			t.Errorf("table[0x%02x].Op = 0x%02x", op, s.Op)
		}
		if s.Kind != KindUnused {
			used++
			if s.Mnemonic == "" {
				t.Errorf("table[0x%02x] has no mnemonic", op)
			}
		}
	}
	if used != 224 {
		t.Errorf("used opcodes = %d, want 224", used)
	}
}
