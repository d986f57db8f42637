// Package dex models the per-class input of the decompiler: class, field and
// method declarations, the constant/reference tables instructions index into,
// and method code with its declared exception ranges.
package dex

import (
	"fmt"
	"strings"
)

// Access flags (subset used by the decompiler).
const (
	AccPublic       = 0x1
	AccPrivate      = 0x2
	AccProtected    = 0x4
	AccStatic       = 0x8
	AccFinal        = 0x10
	AccSynchronized = 0x20
	AccVolatile     = 0x40
	AccBridge       = 0x40
	AccTransient    = 0x80
	AccVarargs      = 0x80
	AccNative       = 0x100
	AccInterface    = 0x200
	AccAbstract     = 0x400
	AccSynthetic    = 0x1000
	AccAnnotation   = 0x2000
	AccEnum         = 0x4000
	AccConstructor  = 0x10000
)

// FieldRef is a field_id: owner, name and type descriptor.
type FieldRef struct {
	Class string
	Name  string
	Type  string
}

func (f FieldRef) String() string {
	return f.Class + "->" + f.Name + ":" + f.Type
}

// MethodRef is a method_id: owner, name and prototype.
type MethodRef struct {
	Class  string
	Name   string
	Params []string
	Return string
}

// Descriptor returns the prototype descriptor, e.g. "(ILjava/lang/String;)V".
func (m MethodRef) Descriptor() string {
	return "(" + strings.Join(m.Params, "") + ")" + m.Return
}

func (m MethodRef) String() string {
	return m.Class + "->" + m.Name + m.Descriptor()
}

// Pool holds the constant/reference tables instructions index into.
type Pool struct {
	Strings []string
	Types   []string
	Fields  []FieldRef
	Methods []MethodRef
	Protos  []MethodRef // Class and Name unused; for invoke-polymorphic/custom
}

// String returns the string constant at idx.
func (p *Pool) String(idx uint32) (string, bool) {
	if p == nil || int(idx) >= len(p.Strings) {
		return "", false
	}
	return p.Strings[idx], true
}

// Type returns the type descriptor at idx.
func (p *Pool) Type(idx uint32) (string, bool) {
	if p == nil || int(idx) >= len(p.Types) {
		return "", false
	}
	return p.Types[idx], true
}

// Field returns the field reference at idx.
func (p *Pool) Field(idx uint32) (FieldRef, bool) {
	if p == nil || int(idx) >= len(p.Fields) {
		return FieldRef{}, false
	}
	return p.Fields[idx], true
}

// Method returns the method reference at idx.
func (p *Pool) Method(idx uint32) (MethodRef, bool) {
	if p == nil || int(idx) >= len(p.Methods) {
		return MethodRef{}, false
	}
	return p.Methods[idx], true
}

// Proto returns the prototype at idx.
func (p *Pool) Proto(idx uint32) (MethodRef, bool) {
	if p == nil || int(idx) >= len(p.Protos) {
		return MethodRef{}, false
	}
	return p.Protos[idx], true
}

// Field is a field declaration.
type Field struct {
	Name  string
	Type  string
	Flags uint32
}

// Method is a method declaration with optional code.
type Method struct {
	Class  string
	Name   string
	Params []string
	Return string
	Flags  uint32
	Code   *Code // nil for abstract and native methods
}

// Ref returns the method's reference form.
func (m *Method) Ref() MethodRef {
	return MethodRef{Class: m.Class, Name: m.Name, Params: m.Params, Return: m.Return}
}

// IsStatic reports whether the method has no receiver.
func (m *Method) IsStatic() bool { return m.Flags&AccStatic != 0 }

// IsConstructor reports whether the method is an instance or class initializer.
func (m *Method) IsConstructor() bool { return m.Name == "<init>" || m.Name == "<clinit>" }

// Signature returns the method's unique key, e.g. "Lcom/a/B;->m(I)V".
func (m *Method) Signature() string { return m.Ref().String() }

// Class is one input class: declarations plus the tables its code indexes.
type Class struct {
	Name       string // type descriptor, e.g. "Lcom/example/Foo;"
	Super      string // "" for java.lang.Object
	Interfaces []string
	Flags      uint32
	SourceFile string
	Fields     []*Field
	Methods    []*Method
	Pool       *Pool
}

// FullName returns the dotted name, e.g. "com.example.Foo".
func (c *Class) FullName() string { return JavaName(c.Name) }

// Source supplies input classes, already extracted from their container.
type Source interface {
	Classes() ([]*Class, error)
}

// Classes is a Source over an in-memory class list.
type Classes []*Class

func (c Classes) Classes() ([]*Class, error) { return c, nil }

// UnresolvedType returns the placeholder descriptor used when a type index
// does not resolve.
func UnresolvedType(idx uint32) string {
	return fmt.Sprintf("Lunresolved/Type%d;", idx)
}
