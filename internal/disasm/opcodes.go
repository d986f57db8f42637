package disasm

// Format is a Dalvik instruction format; the leading digit is the size in
// 16-bit code units.
type Format uint8

const (
	Fmt10x Format = iota
	Fmt12x
	Fmt11n
	Fmt11x
	Fmt10t
	Fmt20t
	Fmt22x
	Fmt21t
	Fmt21s
	Fmt21h
	Fmt21c
	Fmt23x
	Fmt22b
	Fmt22t
	Fmt22s
	Fmt22c
	Fmt30t
	Fmt32x
	Fmt31i
	Fmt31t
	Fmt31c
	Fmt35c
	Fmt3rc
	Fmt45cc
	Fmt4rcc
	Fmt51l
)

// Units returns the instruction size in code units.
func (f Format) Units() int {
	switch f {
	case Fmt10x, Fmt12x, Fmt11n, Fmt11x, Fmt10t:
		return 1
	case Fmt30t, Fmt32x, Fmt31i, Fmt31t, Fmt31c, Fmt35c, Fmt3rc:
		return 3
	case Fmt45cc, Fmt4rcc:
		return 4
	case Fmt51l:
		return 5
	}
	return 2
}

// Kind groups opcodes with the same operand shape and semantics.
type Kind uint8

const (
	KindUnused Kind = iota
	KindNop
	KindMove
	KindMoveResult
	KindMoveException
	KindReturnVoid
	KindReturn
	KindConst
	KindConstString
	KindConstClass
	KindConstRef // method handle or method type
	KindMonitorEnter
	KindMonitorExit
	KindCheckCast
	KindInstanceOf
	KindArrayLength
	KindNewInstance
	KindNewArray
	KindFilledNewArray
	KindFillArrayData
	KindThrow
	KindGoto
	KindSwitch
	KindCmp
	KindIf
	KindIfZ
	KindAGet
	KindAPut
	KindIGet
	KindIPut
	KindSGet
	KindSPut
	KindInvoke
	KindUnop
	KindConvert
	KindBinop
	KindBinop2Addr
	KindBinopLit
	KindPayload
)

// RefKind says which pool an instruction's index operand points into.
type RefKind uint8

const (
	RefNone RefKind = iota
	RefString
	RefType
	RefField
	RefMethod
	RefCallSite
	RefMethodHandle
	RefProto
)

func (r RefKind) String() string {
	switch r {
	case RefString:
		return "string"
	case RefType:
		return "type"
	case RefField:
		return "field"
	case RefMethod:
		return "method"
	case RefCallSite:
		return "call_site"
	case RefMethodHandle:
		return "method_handle"
	case RefProto:
		return "proto"
	}
	return "none"
}

// InvokeKind is the dispatch flavour of an invoke instruction.
type InvokeKind uint8

const (
	InvokeNone InvokeKind = iota
	InvokeVirtual
	InvokeSuper
	InvokeDirect
	InvokeStatic
	InvokeInterface
	InvokePolymorphic
	InvokeCustom
)

// Spec describes one opcode. Type is the descriptor of the value the
// instruction produces or moves ("L" for any reference); Src is the operand
// type for conversions, comparisons and arithmetic.
type Spec struct {
	Op       byte
	Mnemonic string
	Format   Format
	Kind     Kind
	Type     string
	Src      string
	Operator string
	Ref      RefKind
	Invoke   InvokeKind
	Range    bool
	Payload  bool // operand is a relative offset to a payload pseudo-instruction
}

// Wide reports whether the instruction's value occupies a register pair.
func (s *Spec) Wide() bool { return s.Type == "J" || s.Type == "D" }

// Terminal reports whether control never falls through to the next
// instruction.
func (s *Spec) Terminal() bool {
	switch s.Kind {
	case KindReturnVoid, KindReturn, KindThrow, KindGoto:
		return true
	}
	return false
}

// Branches reports whether the instruction ends a basic block.
func (s *Spec) Branches() bool {
	switch s.Kind {
	case KindReturnVoid, KindReturn, KindThrow, KindGoto, KindSwitch, KindIf, KindIfZ:
		return true
	}
	return false
}

// Payload identifiers (low byte 0x00 = nop, high byte selects the kind).
const (
	PackedSwitchPayload uint16 = 0x0100
	SparseSwitchPayload uint16 = 0x0200
	ArrayDataPayload    uint16 = 0x0300
)

var payloadSpecs = map[uint16]*Spec{
	PackedSwitchPayload: {Mnemonic: "packed-switch-payload", Kind: KindPayload},
	SparseSwitchPayload: {Mnemonic: "sparse-switch-payload", Kind: KindPayload},
	ArrayDataPayload:    {Mnemonic: "fill-array-data-payload", Kind: KindPayload},
}

// Lookup returns the table entry for op. Reserved opcodes have Kind
// KindUnused.
func Lookup(op byte) *Spec { return &opcodes[op] }

// opcodes is read-only after init and shared by all decoders.
var opcodes = [256]Spec{
	0x00: {Op: 0x00, Mnemonic: "nop", Format: Fmt10x, Kind: KindNop},
	0x01: {Op: 0x01, Mnemonic: "move", Format: Fmt12x, Kind: KindMove, Type: "I"},
	0x02: {Op: 0x02, Mnemonic: "move/from16", Format: Fmt22x, Kind: KindMove, Type: "I"},
	0x03: {Op: 0x03, Mnemonic: "move/16", Format: Fmt32x, Kind: KindMove, Type: "I"},
	0x04: {Op: 0x04, Mnemonic: "move-wide", Format: Fmt12x, Kind: KindMove, Type: "J"},
	0x05: {Op: 0x05, Mnemonic: "move-wide/from16", Format: Fmt22x, Kind: KindMove, Type: "J"},
	0x06: {Op: 0x06, Mnemonic: "move-wide/16", Format: Fmt32x, Kind: KindMove, Type: "J"},
	0x07: {Op: 0x07, Mnemonic: "move-object", Format: Fmt12x, Kind: KindMove, Type: "L"},
	0x08: {Op: 0x08, Mnemonic: "move-object/from16", Format: Fmt22x, Kind: KindMove, Type: "L"},
	0x09: {Op: 0x09, Mnemonic: "move-object/16", Format: Fmt32x, Kind: KindMove, Type: "L"},
	0x0a: {Op: 0x0a, Mnemonic: "move-result", Format: Fmt11x, Kind: KindMoveResult, Type: "I"},
	0x0b: {Op: 0x0b, Mnemonic: "move-result-wide", Format: Fmt11x, Kind: KindMoveResult, Type: "J"},
	0x0c: {Op: 0x0c, Mnemonic: "move-result-object", Format: Fmt11x, Kind: KindMoveResult, Type: "L"},
	0x0d: {Op: 0x0d, Mnemonic: "move-exception", Format: Fmt11x, Kind: KindMoveException, Type: "L"},
	0x0e: {Op: 0x0e, Mnemonic: "return-void", Format: Fmt10x, Kind: KindReturnVoid},
	0x0f: {Op: 0x0f, Mnemonic: "return", Format: Fmt11x, Kind: KindReturn, Type: "I"},
	0x10: {Op: 0x10, Mnemonic: "return-wide", Format: Fmt11x, Kind: KindReturn, Type: "J"},
	0x11: {Op: 0x11, Mnemonic: "return-object", Format: Fmt11x, Kind: KindReturn, Type: "L"},
	0x12: {Op: 0x12, Mnemonic: "const/4", Format: Fmt11n, Kind: KindConst, Type: "I"},
	0x13: {Op: 0x13, Mnemonic: "const/16", Format: Fmt21s, Kind: KindConst, Type: "I"},
	0x14: {Op: 0x14, Mnemonic: "const", Format: Fmt31i, Kind: KindConst, Type: "I"},
	0x15: {Op: 0x15, Mnemonic: "const/high16", Format: Fmt21h, Kind: KindConst, Type: "I"},
	0x16: {Op: 0x16, Mnemonic: "const-wide/16", Format: Fmt21s, Kind: KindConst, Type: "J"},
	0x17: {Op: 0x17, Mnemonic: "const-wide/32", Format: Fmt31i, Kind: KindConst, Type: "J"},
	0x18: {Op: 0x18, Mnemonic: "const-wide", Format: Fmt51l, Kind: KindConst, Type: "J"},
	0x19: {Op: 0x19, Mnemonic: "const-wide/high16", Format: Fmt21h, Kind: KindConst, Type: "J"},
	0x1a: {Op: 0x1a, Mnemonic: "const-string", Format: Fmt21c, Kind: KindConstString, Type: "L", Ref: RefString},
	0x1b: {Op: 0x1b, Mnemonic: "const-string/jumbo", Format: Fmt31c, Kind: KindConstString, Type: "L", Ref: RefString},
	0x1c: {Op: 0x1c, Mnemonic: "const-class", Format: Fmt21c, Kind: KindConstClass, Type: "L", Ref: RefType},
	0x1d: {Op: 0x1d, Mnemonic: "monitor-enter", Format: Fmt11x, Kind: KindMonitorEnter},
	0x1e: {Op: 0x1e, Mnemonic: "monitor-exit", Format: Fmt11x, Kind: KindMonitorExit},
	0x1f: {Op: 0x1f, Mnemonic: "check-cast", Format: Fmt21c, Kind: KindCheckCast, Type: "L", Ref: RefType},
	0x20: {Op: 0x20, Mnemonic: "instance-of", Format: Fmt22c, Kind: KindInstanceOf, Type: "Z", Ref: RefType},
	0x21: {Op: 0x21, Mnemonic: "array-length", Format: Fmt12x, Kind: KindArrayLength, Type: "I"},
	0x22: {Op: 0x22, Mnemonic: "new-instance", Format: Fmt21c, Kind: KindNewInstance, Type: "L", Ref: RefType},
	0x23: {Op: 0x23, Mnemonic: "new-array", Format: Fmt22c, Kind: KindNewArray, Type: "L", Ref: RefType},
	0x24: {Op: 0x24, Mnemonic: "filled-new-array", Format: Fmt35c, Kind: KindFilledNewArray, Type: "L", Ref: RefType},
	0x25: {Op: 0x25, Mnemonic: "filled-new-array/range", Format: Fmt3rc, Kind: KindFilledNewArray, Type: "L", Ref: RefType, Range: true},
	0x26: {Op: 0x26, Mnemonic: "fill-array-data", Format: Fmt31t, Kind: KindFillArrayData, Payload: true},
	0x27: {Op: 0x27, Mnemonic: "throw", Format: Fmt11x, Kind: KindThrow},
	0x28: {Op: 0x28, Mnemonic: "goto", Format: Fmt10t, Kind: KindGoto},
	0x29: {Op: 0x29, Mnemonic: "goto/16", Format: Fmt20t, Kind: KindGoto},
	0x2a: {Op: 0x2a, Mnemonic: "goto/32", Format: Fmt30t, Kind: KindGoto},
	0x2b: {Op: 0x2b, Mnemonic: "packed-switch", Format: Fmt31t, Kind: KindSwitch, Payload: true},
	0x2c: {Op: 0x2c, Mnemonic: "sparse-switch", Format: Fmt31t, Kind: KindSwitch, Payload: true},
	0x2d: {Op: 0x2d, Mnemonic: "cmpl-float", Format: Fmt23x, Kind: KindCmp, Type: "I", Src: "F", Operator: "cmpl"},
	0x2e: {Op: 0x2e, Mnemonic: "cmpg-float", Format: Fmt23x, Kind: KindCmp, Type: "I", Src: "F", Operator: "cmpg"},
	0x2f: {Op: 0x2f, Mnemonic: "cmpl-double", Format: Fmt23x, Kind: KindCmp, Type: "I", Src: "D", Operator: "cmpl"},
	0x30: {Op: 0x30, Mnemonic: "cmpg-double", Format: Fmt23x, Kind: KindCmp, Type: "I", Src: "D", Operator: "cmpg"},
	0x31: {Op: 0x31, Mnemonic: "cmp-long", Format: Fmt23x, Kind: KindCmp, Type: "I", Src: "J", Operator: "cmp"},
	0x32: {Op: 0x32, Mnemonic: "if-eq", Format: Fmt22t, Kind: KindIf, Operator: "=="},
	0x33: {Op: 0x33, Mnemonic: "if-ne", Format: Fmt22t, Kind: KindIf, Operator: "!="},
	0x34: {Op: 0x34, Mnemonic: "if-lt", Format: Fmt22t, Kind: KindIf, Operator: "<"},
	0x35: {Op: 0x35, Mnemonic: "if-ge", Format: Fmt22t, Kind: KindIf, Operator: ">="},
	0x36: {Op: 0x36, Mnemonic: "if-gt", Format: Fmt22t, Kind: KindIf, Operator: ">"},
	0x37: {Op: 0x37, Mnemonic: "if-le", Format: Fmt22t, Kind: KindIf, Operator: "<="},
	0x38: {Op: 0x38, Mnemonic: "if-eqz", Format: Fmt21t, Kind: KindIfZ, Operator: "=="},
	0x39: {Op: 0x39, Mnemonic: "if-nez", Format: Fmt21t, Kind: KindIfZ, Operator: "!="},
	0x3a: {Op: 0x3a, Mnemonic: "if-ltz", Format: Fmt21t, Kind: KindIfZ, Operator: "<"},
	0x3b: {Op: 0x3b, Mnemonic: "if-gez", Format: Fmt21t, Kind: KindIfZ, Operator: ">="},
	0x3c: {Op: 0x3c, Mnemonic: "if-gtz", Format: Fmt21t, Kind: KindIfZ, Operator: ">"},
	0x3d: {Op: 0x3d, Mnemonic: "if-lez", Format: Fmt21t, Kind: KindIfZ, Operator: "<="},
	0x44: {Op: 0x44, Mnemonic: "aget", Format: Fmt23x, Kind: KindAGet, Type: "I"},
	0x45: {Op: 0x45, Mnemonic: "aget-wide", Format: Fmt23x, Kind: KindAGet, Type: "J"},
	0x46: {Op: 0x46, Mnemonic: "aget-object", Format: Fmt23x, Kind: KindAGet, Type: "L"},
	0x47: {Op: 0x47, Mnemonic: "aget-boolean", Format: Fmt23x, Kind: KindAGet, Type: "Z"},
	0x48: {Op: 0x48, Mnemonic: "aget-byte", Format: Fmt23x, Kind: KindAGet, Type: "B"},
	0x49: {Op: 0x49, Mnemonic: "aget-char", Format: Fmt23x, Kind: KindAGet, Type: "C"},
	0x4a: {Op: 0x4a, Mnemonic: "aget-short", Format: Fmt23x, Kind: KindAGet, Type: "S"},
	0x4b: {Op: 0x4b, Mnemonic: "aput", Format: Fmt23x, Kind: KindAPut, Type: "I"},
	0x4c: {Op: 0x4c, Mnemonic: "aput-wide", Format: Fmt23x, Kind: KindAPut, Type: "J"},
	0x4d: {Op: 0x4d, Mnemonic: "aput-object", Format: Fmt23x, Kind: KindAPut, Type: "L"},
	0x4e: {Op: 0x4e, Mnemonic: "aput-boolean", Format: Fmt23x, Kind: KindAPut, Type: "Z"},
	0x4f: {Op: 0x4f, Mnemonic: "aput-byte", Format: Fmt23x, Kind: KindAPut, Type: "B"},
	0x50: {Op: 0x50, Mnemonic: "aput-char", Format: Fmt23x, Kind: KindAPut, Type: "C"},
	0x51: {Op: 0x51, Mnemonic: "aput-short", Format: Fmt23x, Kind: KindAPut, Type: "S"},
	0x52: {Op: 0x52, Mnemonic: "iget", Format: Fmt22c, Kind: KindIGet, Type: "I", Ref: RefField},
	0x53: {Op: 0x53, Mnemonic: "iget-wide", Format: Fmt22c, Kind: KindIGet, Type: "J", Ref: RefField},
	0x54: {Op: 0x54, Mnemonic: "iget-object", Format: Fmt22c, Kind: KindIGet, Type: "L", Ref: RefField},
	0x55: {Op: 0x55, Mnemonic: "iget-boolean", Format: Fmt22c, Kind: KindIGet, Type: "Z", Ref: RefField},
	0x56: {Op: 0x56, Mnemonic: "iget-byte", Format: Fmt22c, Kind: KindIGet, Type: "B", Ref: RefField},
	0x57: {Op: 0x57, Mnemonic: "iget-char", Format: Fmt22c, Kind: KindIGet, Type: "C", Ref: RefField},
	0x58: {Op: 0x58, Mnemonic: "iget-short", Format: Fmt22c, Kind: KindIGet, Type: "S", Ref: RefField},
	0x59: {Op: 0x59, Mnemonic: "iput", Format: Fmt22c, Kind: KindIPut, Type: "I", Ref: RefField},
	0x5a: {Op: 0x5a, Mnemonic: "iput-wide", Format: Fmt22c, Kind: KindIPut, Type: "J", Ref: RefField},
	0x5b: {Op: 0x5b, Mnemonic: "iput-object", Format: Fmt22c, Kind: KindIPut, Type: "L", Ref: RefField},
	0x5c: {Op: 0x5c, Mnemonic: "iput-boolean", Format: Fmt22c, Kind: KindIPut, Type: "Z", Ref: RefField},
	0x5d: {Op: 0x5d, Mnemonic: "iput-byte", Format: Fmt22c, Kind: KindIPut, Type: "B", Ref: RefField},
	0x5e: {Op: 0x5e, Mnemonic: "iput-char", Format: Fmt22c, Kind: KindIPut, Type: "C", Ref: RefField},
	0x5f: {Op: 0x5f, Mnemonic: "iput-short", Format: Fmt22c, Kind: KindIPut, Type: "S", Ref: RefField},
	0x60: {Op: 0x60, Mnemonic: "sget", Format: Fmt21c, Kind: KindSGet, Type: "I", Ref: RefField},
	0x61: {Op: 0x61, Mnemonic: "sget-wide", Format: Fmt21c, Kind: KindSGet, Type: "J", Ref: RefField},
	0x62: {Op: 0x62, Mnemonic: "sget-object", Format: Fmt21c, Kind: KindSGet, Type: "L", Ref: RefField},
	0x63: {Op: 0x63, Mnemonic: "sget-boolean", Format: Fmt21c, Kind: KindSGet, Type: "Z", Ref: RefField},
	0x64: {Op: 0x64, Mnemonic: "sget-byte", Format: Fmt21c, Kind: KindSGet, Type: "B", Ref: RefField},
	0x65: {Op: 0x65, Mnemonic: "sget-char", Format: Fmt21c, Kind: KindSGet, Type: "C", Ref: RefField},
	0x66: {Op: 0x66, Mnemonic: "sget-short", Format: Fmt21c, Kind: KindSGet, Type: "S", Ref: RefField},
	0x67: {Op: 0x67, Mnemonic: "sput", Format: Fmt21c, Kind: KindSPut, Type: "I", Ref: RefField},
	0x68: {Op: 0x68, Mnemonic: "sput-wide", Format: Fmt21c, Kind: KindSPut, Type: "J", Ref: RefField},
	0x69: {Op: 0x69, Mnemonic: "sput-object", Format: Fmt21c, Kind: KindSPut, Type: "L", Ref: RefField},
	0x6a: {Op: 0x6a, Mnemonic: "sput-boolean", Format: Fmt21c, Kind: KindSPut, Type: "Z", Ref: RefField},
	0x6b: {Op: 0x6b, Mnemonic: "sput-byte", Format: Fmt21c, Kind: KindSPut, Type: "B", Ref: RefField},
	0x6c: {Op: 0x6c, Mnemonic: "sput-char", Format: Fmt21c, Kind: KindSPut, Type: "C", Ref: RefField},
	0x6d: {Op: 0x6d, Mnemonic: "sput-short", Format: Fmt21c, Kind: KindSPut, Type: "S", Ref: RefField},
	0x6e: {Op: 0x6e, Mnemonic: "invoke-virtual", Format: Fmt35c, Kind: KindInvoke, Ref: RefMethod, Invoke: InvokeVirtual},
	0x6f: {Op: 0x6f, Mnemonic: "invoke-super", Format: Fmt35c, Kind: KindInvoke, Ref: RefMethod, Invoke: InvokeSuper},
	0x70: {Op: 0x70, Mnemonic: "invoke-direct", Format: Fmt35c, Kind: KindInvoke, Ref: RefMethod, Invoke: InvokeDirect},
	0x71: {Op: 0x71, Mnemonic: "invoke-static", Format: Fmt35c, Kind: KindInvoke, Ref: RefMethod, Invoke: InvokeStatic},
	0x72: {Op: 0x72, Mnemonic: "invoke-interface", Format: Fmt35c, Kind: KindInvoke, Ref: RefMethod, Invoke: InvokeInterface},
	0x74: {Op: 0x74, Mnemonic: "invoke-virtual/range", Format: Fmt3rc, Kind: KindInvoke, Ref: RefMethod, Invoke: InvokeVirtual, Range: true},
	0x75: {Op: 0x75, Mnemonic: "invoke-super/range", Format: Fmt3rc, Kind: KindInvoke, Ref: RefMethod, Invoke: InvokeSuper, Range: true},
	0x76: {Op: 0x76, Mnemonic: "invoke-direct/range", Format: Fmt3rc, Kind: KindInvoke, Ref: RefMethod, Invoke: InvokeDirect, Range: true},
	0x77: {Op: 0x77, Mnemonic: "invoke-static/range", Format: Fmt3rc, Kind: KindInvoke, Ref: RefMethod, Invoke: InvokeStatic, Range: true},
	0x78: {Op: 0x78, Mnemonic: "invoke-interface/range", Format: Fmt3rc, Kind: KindInvoke, Ref: RefMethod, Invoke: InvokeInterface, Range: true},
	0x7b: {Op: 0x7b, Mnemonic: "neg-int", Format: Fmt12x, Kind: KindUnop, Type: "I", Src: "I", Operator: "-"},
	0x7c: {Op: 0x7c, Mnemonic: "not-int", Format: Fmt12x, Kind: KindUnop, Type: "I", Src: "I", Operator: "~"},
	0x7d: {Op: 0x7d, Mnemonic: "neg-long", Format: Fmt12x, Kind: KindUnop, Type: "J", Src: "J", Operator: "-"},
	0x7e: {Op: 0x7e, Mnemonic: "not-long", Format: Fmt12x, Kind: KindUnop, Type: "J", Src: "J", Operator: "~"},
	0x7f: {Op: 0x7f, Mnemonic: "neg-float", Format: Fmt12x, Kind: KindUnop, Type: "F", Src: "F", Operator: "-"},
	0x80: {Op: 0x80, Mnemonic: "neg-double", Format: Fmt12x, Kind: KindUnop, Type: "D", Src: "D", Operator: "-"},
	0x81: {Op: 0x81, Mnemonic: "int-to-long", Format: Fmt12x, Kind: KindConvert, Type: "J", Src: "I"},
	0x82: {Op: 0x82, Mnemonic: "int-to-float", Format: Fmt12x, Kind: KindConvert, Type: "F", Src: "I"},
	0x83: {Op: 0x83, Mnemonic: "int-to-double", Format: Fmt12x, Kind: KindConvert, Type: "D", Src: "I"},
	0x84: {Op: 0x84, Mnemonic: "long-to-int", Format: Fmt12x, Kind: KindConvert, Type: "I", Src: "J"},
	0x85: {Op: 0x85, Mnemonic: "long-to-float", Format: Fmt12x, Kind: KindConvert, Type: "F", Src: "J"},
	0x86: {Op: 0x86, Mnemonic: "long-to-double", Format: Fmt12x, Kind: KindConvert, Type: "D", Src: "J"},
	0x87: {Op: 0x87, Mnemonic: "float-to-int", Format: Fmt12x, Kind: KindConvert, Type: "I", Src: "F"},
	0x88: {Op: 0x88, Mnemonic: "float-to-long", Format: Fmt12x, Kind: KindConvert, Type: "J", Src: "F"},
	0x89: {Op: 0x89, Mnemonic: "float-to-double", Format: Fmt12x, Kind: KindConvert, Type: "D", Src: "F"},
	0x8a: {Op: 0x8a, Mnemonic: "double-to-int", Format: Fmt12x, Kind: KindConvert, Type: "I", Src: "D"},
	0x8b: {Op: 0x8b, Mnemonic: "double-to-long", Format: Fmt12x, Kind: KindConvert, Type: "J", Src: "D"},
	0x8c: {Op: 0x8c, Mnemonic: "double-to-float", Format: Fmt12x, Kind: KindConvert, Type: "F", Src: "D"},
	0x8d: {Op: 0x8d, Mnemonic: "int-to-byte", Format: Fmt12x, Kind: KindConvert, Type: "B", Src: "I"},
	0x8e: {Op: 0x8e, Mnemonic: "int-to-char", Format: Fmt12x, Kind: KindConvert, Type: "C", Src: "I"},
	0x8f: {Op: 0x8f, Mnemonic: "int-to-short", Format: Fmt12x, Kind: KindConvert, Type: "S", Src: "I"},
	0x90: {Op: 0x90, Mnemonic: "add-int", Format: Fmt23x, Kind: KindBinop, Type: "I", Src: "I", Operator: "+"},
	0x91: {Op: 0x91, Mnemonic: "sub-int", Format: Fmt23x, Kind: KindBinop, Type: "I", Src: "I", Operator: "-"},
	0x92: {Op: 0x92, Mnemonic: "mul-int", Format: Fmt23x, Kind: KindBinop, Type: "I", Src: "I", Operator: "*"},
	0x93: {Op: 0x93, Mnemonic: "div-int", Format: Fmt23x, Kind: KindBinop, Type: "I", Src: "I", Operator: "/"},
	0x94: {Op: 0x94, Mnemonic: "rem-int", Format: Fmt23x, Kind: KindBinop, Type: "I", Src: "I", Operator: "%"},
	0x95: {Op: 0x95, Mnemonic: "and-int", Format: Fmt23x, Kind: KindBinop, Type: "I", Src: "I", Operator: "&"},
	0x96: {Op: 0x96, Mnemonic: "or-int", Format: Fmt23x, Kind: KindBinop, Type: "I", Src: "I", Operator: "|"},
	0x97: {Op: 0x97, Mnemonic: "xor-int", Format: Fmt23x, Kind: KindBinop, Type: "I", Src: "I", Operator: "^"},
	0x98: {Op: 0x98, Mnemonic: "shl-int", Format: Fmt23x, Kind: KindBinop, Type: "I", Src: "I", Operator: "<<"},
	0x99: {Op: 0x99, Mnemonic: "shr-int", Format: Fmt23x, Kind: KindBinop, Type: "I", Src: "I", Operator: ">>"},
	0x9a: {Op: 0x9a, Mnemonic: "ushr-int", Format: Fmt23x, Kind: KindBinop, Type: "I", Src: "I", Operator: ">>>"},
	0x9b: {Op: 0x9b, Mnemonic: "add-long", Format: Fmt23x, Kind: KindBinop, Type: "J", Src: "J", Operator: "+"},
	0x9c: {Op: 0x9c, Mnemonic: "sub-long", Format: Fmt23x, Kind: KindBinop, Type: "J", Src: "J", Operator: "-"},
	0x9d: {Op: 0x9d, Mnemonic: "mul-long", Format: Fmt23x, Kind: KindBinop, Type: "J", Src: "J", Operator: "*"},
	0x9e: {Op: 0x9e, Mnemonic: "div-long", Format: Fmt23x, Kind: KindBinop, Type: "J", Src: "J", Operator: "/"},
	0x9f: {Op: 0x9f, Mnemonic: "rem-long", Format: Fmt23x, Kind: KindBinop, Type: "J", Src: "J", Operator: "%"},
	0xa0: {Op: 0xa0, Mnemonic: "and-long", Format: Fmt23x, Kind: KindBinop, Type: "J", Src: "J", Operator: "&"},
	0xa1: {Op: 0xa1, Mnemonic: "or-long", Format: Fmt23x, Kind: KindBinop, Type: "J", Src: "J", Operator: "|"},
	0xa2: {Op: 0xa2, Mnemonic: "xor-long", Format: Fmt23x, Kind: KindBinop, Type: "J", Src: "J", Operator: "^"},
	0xa3: {Op: 0xa3, Mnemonic: "shl-long", Format: Fmt23x, Kind: KindBinop, Type: "J", Src: "J", Operator: "<<"},
	0xa4: {Op: 0xa4, Mnemonic: "shr-long", Format: Fmt23x, Kind: KindBinop, Type: "J", Src: "J", Operator: ">>"},
	0xa5: {Op: 0xa5, Mnemonic: "ushr-long", Format: Fmt23x, Kind: KindBinop, Type: "J", Src: "J", Operator: ">>>"},
	0xa6: {Op: 0xa6, Mnemonic: "add-float", Format: Fmt23x, Kind: KindBinop, Type: "F", Src: "F", Operator: "+"},
	0xa7: {Op: 0xa7, Mnemonic: "sub-float", Format: Fmt23x, Kind: KindBinop, Type: "F", Src: "F", Operator: "-"},
	0xa8: {Op: 0xa8, Mnemonic: "mul-float", Format: Fmt23x, Kind: KindBinop, Type: "F", Src: "F", Operator: "*"},
	0xa9: {Op: 0xa9, Mnemonic: "div-float", Format: Fmt23x, Kind: KindBinop, Type: "F", Src: "F", Operator: "/"},
	0xaa: {Op: 0xaa, Mnemonic: "rem-float", Format: Fmt23x, Kind: KindBinop, Type: "F", Src: "F", Operator: "%"},
	0xab: {Op: 0xab, Mnemonic: "add-double", Format: Fmt23x, Kind: KindBinop, Type: "D", Src: "D", Operator: "+"},
	0xac: {Op: 0xac, Mnemonic: "sub-double", Format: Fmt23x, Kind: KindBinop, Type: "D", Src: "D", Operator: "-"},
	0xad: {Op: 0xad, Mnemonic: "mul-double", Format: Fmt23x, Kind: KindBinop, Type: "D", Src: "D", Operator: "*"},
	0xae: {Op: 0xae, Mnemonic: "div-double", Format: Fmt23x, Kind: KindBinop, Type: "D", Src: "D", Operator: "/"},
	0xaf: {Op: 0xaf, Mnemonic: "rem-double", Format: Fmt23x, Kind: KindBinop, Type: "D", Src: "D", Operator: "%"},
	0xb0: {Op: 0xb0, Mnemonic: "add-int/2addr", Format: Fmt12x, Kind: KindBinop2Addr, Type: "I", Src: "I", Operator: "+"},
	0xb1: {Op: 0xb1, Mnemonic: "sub-int/2addr", Format: Fmt12x, Kind: KindBinop2Addr, Type: "I", Src: "I", Operator: "-"},
	0xb2: {Op: 0xb2, Mnemonic: "mul-int/2addr", Format: Fmt12x, Kind: KindBinop2Addr, Type: "I", Src: "I", Operator: "*"},
	0xb3: {Op: 0xb3, Mnemonic: "div-int/2addr", Format: Fmt12x, Kind: KindBinop2Addr, Type: "I", Src: "I", Operator: "/"},
	0xb4: {Op: 0xb4, Mnemonic: "rem-int/2addr", Format: Fmt12x, Kind: KindBinop2Addr, Type: "I", Src: "I", Operator: "%"},
	0xb5: {Op: 0xb5, Mnemonic: "and-int/2addr", Format: Fmt12x, Kind: KindBinop2Addr, Type: "I", Src: "I", Operator: "&"},
	0xb6: {Op: 0xb6, Mnemonic: "or-int/2addr", Format: Fmt12x, Kind: KindBinop2Addr, Type: "I", Src: "I", Operator: "|"},
	0xb7: {Op: 0xb7, Mnemonic: "xor-int/2addr", Format: Fmt12x, Kind: KindBinop2Addr, Type: "I", Src: "I", Operator: "^"},
	0xb8: {Op: 0xb8, Mnemonic: "shl-int/2addr", Format: Fmt12x, Kind: KindBinop2Addr, Type: "I", Src: "I", Operator: "<<"},
	0xb9: {Op: 0xb9, Mnemonic: "shr-int/2addr", Format: Fmt12x, Kind: KindBinop2Addr, Type: "I", Src: "I", Operator: ">>"},
	0xba: {Op: 0xba, Mnemonic: "ushr-int/2addr", Format: Fmt12x, Kind: KindBinop2Addr, Type: "I", Src: "I", Operator: ">>>"},
	0xbb: {Op: 0xbb, Mnemonic: "add-long/2addr", Format: Fmt12x, Kind: KindBinop2Addr, Type: "J", Src: "J", Operator: "+"},
	0xbc: {Op: 0xbc, Mnemonic: "sub-long/2addr", Format: Fmt12x, Kind: KindBinop2Addr, Type: "J", Src: "J", Operator: "-"},
	0xbd: {Op: 0xbd, Mnemonic: "mul-long/2addr", Format: Fmt12x, Kind: KindBinop2Addr, Type: "J", Src: "J", Operator: "*"},
	0xbe: {Op: 0xbe, Mnemonic: "div-long/2addr", Format: Fmt12x, Kind: KindBinop2Addr, Type: "J", Src: "J", Operator: "/"},
	0xbf: {Op: 0xbf, Mnemonic: "rem-long/2addr", Format: Fmt12x, Kind: KindBinop2Addr, Type: "J", Src: "J", Operator: "%"},
	0xc0: {Op: 0xc0, Mnemonic: "and-long/2addr", Format: Fmt12x, Kind: KindBinop2Addr, Type: "J", Src: "J", Operator: "&"},
	0xc1: {Op: 0xc1, Mnemonic: "or-long/2addr", Format: Fmt12x, Kind: KindBinop2Addr, Type: "J", Src: "J", Operator: "|"},
	0xc2: {Op: 0xc2, Mnemonic: "xor-long/2addr", Format: Fmt12x, Kind: KindBinop2Addr, Type: "J", Src: "J", Operator: "^"},
	0xc3: {Op: 0xc3, Mnemonic: "shl-long/2addr", Format: Fmt12x, Kind: KindBinop2Addr, Type: "J", Src: "J", Operator: "<<"},
	0xc4: {Op: 0xc4, Mnemonic: "shr-long/2addr", Format: Fmt12x, Kind: KindBinop2Addr, Type: "J", Src: "J", Operator: ">>"},
	0xc5: {Op: 0xc5, Mnemonic: "ushr-long/2addr", Format: Fmt12x, Kind: KindBinop2Addr, Type: "J", Src: "J", Operator: ">>>"},
	0xc6: {Op: 0xc6, Mnemonic: "add-float/2addr", Format: Fmt12x, Kind: KindBinop2Addr, Type: "F", Src: "F", Operator: "+"},
	0xc7: {Op: 0xc7, Mnemonic: "sub-float/2addr", Format: Fmt12x, Kind: KindBinop2Addr, Type: "F", Src: "F", Operator: "-"},
	0xc8: {Op: 0xc8, Mnemonic: "mul-float/2addr", Format: Fmt12x, Kind: KindBinop2Addr, Type: "F", Src: "F", Operator: "*"},
	0xc9: {Op: 0xc9, Mnemonic: "div-float/2addr", Format: Fmt12x, Kind: KindBinop2Addr, Type: "F", Src: "F", Operator: "/"},
	0xca: {Op: 0xca, Mnemonic: "rem-float/2addr", Format: Fmt12x, Kind: KindBinop2Addr, Type: "F", Src: "F", Operator: "%"},
	0xcb: {Op: 0xcb, Mnemonic: "add-double/2addr", Format: Fmt12x, Kind: KindBinop2Addr, Type: "D", Src: "D", Operator: "+"},
	0xcc: {Op: 0xcc, Mnemonic: "sub-double/2addr", Format: Fmt12x, Kind: KindBinop2Addr, Type: "D", Src: "D", Operator: "-"},
	0xcd: {Op: 0xcd, Mnemonic: "mul-double/2addr", Format: Fmt12x, Kind: KindBinop2Addr, Type: "D", Src: "D", Operator: "*"},
	0xce: {Op: 0xce, Mnemonic: "div-double/2addr", Format: Fmt12x, Kind: KindBinop2Addr, Type: "D", Src: "D", Operator: "/"},
	0xcf: {Op: 0xcf, Mnemonic: "rem-double/2addr", Format: Fmt12x, Kind: KindBinop2Addr, Type: "D", Src: "D", Operator: "%"},
	0xd0: {Op: 0xd0, Mnemonic: "add-int/lit16", Format: Fmt22s, Kind: KindBinopLit, Type: "I", Src: "I", Operator: "+"},
	0xd1: {Op: 0xd1, Mnemonic: "rsub-int", Format: Fmt22s, Kind: KindBinopLit, Type: "I", Src: "I", Operator: "rsub"},
	0xd2: {Op: 0xd2, Mnemonic: "mul-int/lit16", Format: Fmt22s, Kind: KindBinopLit, Type: "I", Src: "I", Operator: "*"},
	0xd3: {Op: 0xd3, Mnemonic: "div-int/lit16", Format: Fmt22s, Kind: KindBinopLit, Type: "I", Src: "I", Operator: "/"},
	0xd4: {Op: 0xd4, Mnemonic: "rem-int/lit16", Format: Fmt22s, Kind: KindBinopLit, Type: "I", Src: "I", Operator: "%"},
	0xd5: {Op: 0xd5, Mnemonic: "and-int/lit16", Format: Fmt22s, Kind: KindBinopLit, Type: "I", Src: "I", Operator: "&"},
	0xd6: {Op: 0xd6, Mnemonic: "or-int/lit16", Format: Fmt22s, Kind: KindBinopLit, Type: "I", Src: "I", Operator: "|"},
	0xd7: {Op: 0xd7, Mnemonic: "xor-int/lit16", Format: Fmt22s, Kind: KindBinopLit, Type: "I", Src: "I", Operator: "^"},
	0xd8: {Op: 0xd8, Mnemonic: "add-int/lit8", Format: Fmt22b, Kind: KindBinopLit, Type: "I", Src: "I", Operator: "+"},
	0xd9: {Op: 0xd9, Mnemonic: "rsub-int/lit8", Format: Fmt22b, Kind: KindBinopLit, Type: "I", Src: "I", Operator: "rsub"},
	0xda: {Op: 0xda, Mnemonic: "mul-int/lit8", Format: Fmt22b, Kind: KindBinopLit, Type: "I", Src: "I", Operator: "*"},
	0xdb: {Op: 0xdb, Mnemonic: "div-int/lit8", Format: Fmt22b, Kind: KindBinopLit, Type: "I", Src: "I", Operator: "/"},
	0xdc: {Op: 0xdc, Mnemonic: "rem-int/lit8", Format: Fmt22b, Kind: KindBinopLit, Type: "I", Src: "I", Operator: "%"},
	0xdd: {Op: 0xdd, Mnemonic: "and-int/lit8", Format: Fmt22b, Kind: KindBinopLit, Type: "I", Src: "I", Operator: "&"},
	0xde: {Op: 0xde, Mnemonic: "or-int/lit8", Format: Fmt22b, Kind: KindBinopLit, Type: "I", Src: "I", Operator: "|"},
	0xdf: {Op: 0xdf, Mnemonic: "xor-int/lit8", Format: Fmt22b, Kind: KindBinopLit, Type: "I", Src: "I", Operator: "^"},
	0xe0: {Op: 0xe0, Mnemonic: "shl-int/lit8", Format: Fmt22b, Kind: KindBinopLit, Type: "I", Src: "I", Operator: "<<"},
	0xe1: {Op: 0xe1, Mnemonic: "shr-int/lit8", Format: Fmt22b, Kind: KindBinopLit, Type: "I", Src: "I", Operator: ">>"},
	0xe2: {Op: 0xe2, Mnemonic: "ushr-int/lit8", Format: Fmt22b, Kind: KindBinopLit, Type: "I", Src: "I", Operator: ">>>"},
	0xfa: {Op: 0xfa, Mnemonic: "invoke-polymorphic", Format: Fmt45cc, Kind: KindInvoke, Ref: RefMethod, Invoke: InvokePolymorphic},
	0xfb: {Op: 0xfb, Mnemonic: "invoke-polymorphic/range", Format: Fmt4rcc, Kind: KindInvoke, Ref: RefMethod, Invoke: InvokePolymorphic, Range: true},
	0xfc: {Op: 0xfc, Mnemonic: "invoke-custom", Format: Fmt35c, Kind: KindInvoke, Ref: RefCallSite, Invoke: InvokeCustom},
	0xfd: {Op: 0xfd, Mnemonic: "invoke-custom/range", Format: Fmt3rc, Kind: KindInvoke, Ref: RefCallSite, Invoke: InvokeCustom, Range: true},
	0xfe: {Op: 0xfe, Mnemonic: "const-method-handle", Format: Fmt21c, Kind: KindConstRef, Type: "L", Ref: RefMethodHandle},
	0xff: {Op: 0xff, Mnemonic: "const-method-type", Format: Fmt21c, Kind: KindConstRef, Type: "L", Ref: RefProto},
}

func init() {
	for i := range opcodes {
		if opcodes[i].Kind == KindUnused {
			opcodes[i] = Spec{Op: byte(i), Mnemonic: "unused", Format: Fmt10x}
		}
	}
}
