package dexfmt

import "fmt"

// DecodeError reports a reserved opcode or truncated operand data.
// It is scoped to one method: sibling methods keep decompiling.
type DecodeError struct {
	Offset uint32 // byte offset of the offending instruction
	Opcode uint16
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode: opcode 0x%02x at 0x%04x: %s", e.Opcode, e.Offset, e.Reason)
}

// StructuralError reports an internal inconsistency: data flow that does not
// converge, or a region tree that does not cover every block exactly once.
type StructuralError struct {
	Method string
	Stage  string
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("structural: %s: %s: %s", e.Stage, e.Method, e.Reason)
}

// UnresolvedRefError reports a symbolic reference missing from the known
// universe. It never fails a method; the reference renders as a placeholder.
type UnresolvedRefError struct {
	Kind  string // "type", "field", "method", "string"
	Index uint32
	Name  string // best-effort symbolic name
}

func (e *UnresolvedRefError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("unresolved %s #%d (%s)", e.Kind, e.Index, e.Name)
	}
	return fmt.Sprintf("unresolved %s #%d", e.Kind, e.Index)
}

// IrreducibleError reports control flow the regionizer could not fully
// structure. The method still renders, using goto-style fragments.
type IrreducibleError struct {
	Method string
	Blocks []int // blocks reached only through goto edges
}

func (e *IrreducibleError) Error() string {
	return fmt.Sprintf("irreducible control flow in %s (%d goto blocks)", e.Method, len(e.Blocks))
}
