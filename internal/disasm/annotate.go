package disasm

import (
	"fmt"

	"undex/internal/dex"
)

// Annotator returns an optional inline comment for an instruction.
// Empty string means no annotation.
type Annotator func(inst Inst) string

// PoolAnnotator resolves an instruction's pool index to the symbol it
// names. Indices outside the pool annotate as unresolved.
func PoolAnnotator(pool *dex.Pool) Annotator {
	return func(inst Inst) string {
		var (
			s  string
			ok bool
		)
		switch inst.Spec.Ref {
		case RefString:
			var v string
			if v, ok = pool.String(inst.Index); ok {
				s = fmt.Sprintf("%q", v)
			}
		case RefType:
			s, ok = pool.Type(inst.Index)
		case RefField:
			var f dex.FieldRef
			if f, ok = pool.Field(inst.Index); ok {
				s = f.String()
			}
		case RefMethod:
			var m dex.MethodRef
			if m, ok = pool.Method(inst.Index); ok {
				s = m.String()
			}
		case RefProto:
			var m dex.MethodRef
			if m, ok = pool.Proto(inst.Index); ok {
				s = m.Descriptor()
			}
		default:
			return ""
		}
		if !ok {
			return fmt.Sprintf("unresolved %s@%d", inst.Spec.Ref, inst.Index)
		}
		return s
	}
}

// TargetAnnotator comments switch instructions with their resolved arms.
func TargetAnnotator(inst Inst) string {
	if inst.Kind() != KindSwitch || len(inst.Cases) == 0 {
		return ""
	}
	s := ""
	for i, c := range inst.Cases {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%d->0x%04x", c.Key, c.Target)
	}
	return s
}
