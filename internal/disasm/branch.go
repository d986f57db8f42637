package disasm

// Block terminator classification.
// These functions identify basic-block terminators and extract branch targets.

// BranchInfo describes the control transfer of a block-ending instruction.
type BranchInfo struct {
	Target  uint32 // goto or conditional target (0 if return/throw)
	Cond    bool   // true if conditional (has fallthrough)
	IsRet   bool   // return or return-void
	IsThrow bool
	Cases   []Case // switch arms; the default arm is the fallthrough
}

// DecodeBranch classifies a decoded instruction.
// Returns nil if the instruction does not end a basic block.
func DecodeBranch(inst *Inst) *BranchInfo {
	switch inst.Kind() {
	case KindReturn, KindReturnVoid:
		return &BranchInfo{IsRet: true}
	case KindThrow:
		return &BranchInfo{IsThrow: true}
	case KindGoto:
		return &BranchInfo{Target: inst.Target}
	case KindIf, KindIfZ:
		return &BranchInfo{Target: inst.Target, Cond: true}
	case KindSwitch:
		return &BranchInfo{Cases: inst.Cases, Cond: true}
	}
	return nil
}

// CanThrow reports whether executing the instruction may raise an
// exception, making it a source of exception edges inside a try range.
func CanThrow(inst *Inst) bool {
	switch inst.Kind() {
	case KindNop, KindMove, KindMoveResult, KindMoveException, KindReturnVoid,
		KindConst, KindGoto, KindSwitch, KindIf, KindIfZ, KindCmp, KindUnop,
		KindConvert, KindPayload, KindReturn:
		return false
	case KindBinop, KindBinop2Addr, KindBinopLit:
		switch inst.Spec.Operator {
		case "/", "%":
			return inst.Spec.Type == "I" || inst.Spec.Type == "J"
		}
		return false
	}
	return true
}
