// Package typing infers a static type for every register at every
// instruction of a method by forward data flow over its CFG.
package typing

import (
	"strings"

	"undex/internal/dex"
)

// Kind is a lattice element class.
type Kind uint8

const (
	Unknown Kind = iota // bottom: no information yet
	Zero                // constant 0: int zero, false or null
	Narrow              // non-zero 32-bit constant: int family or float
	Wide                // 64-bit constant: long or double
	Boolean
	Byte
	Char
	Short
	Int
	Float
	Long
	Double
	Ref        // reference type; Name holds the descriptor
	Unresolved // reference to a class missing from the universe
	Top        // conflicting definitions
)

// Type is one lattice element.
type Type struct {
	Kind Kind
	Name string // descriptor for Ref and Unresolved
}

var (
	TUnknown = Type{Kind: Unknown}
	TTop     = Type{Kind: Top}
	TZero    = Type{Kind: Zero}
	TBoolean = Type{Kind: Boolean}
	TInt     = Type{Kind: Int}
	TLong    = Type{Kind: Long}
	TFloat   = Type{Kind: Float}
	TDouble  = Type{Kind: Double}
	TObject  = Type{Kind: Ref, Name: dex.ObjectType}
	TString  = Type{Kind: Ref, Name: "Ljava/lang/String;"}
)

// FromDesc returns the type of a descriptor. "L" alone means an unknown
// reference and maps to Object.
func FromDesc(desc string) Type {
	switch desc {
	case "Z":
		return TBoolean
	case "B":
		return Type{Kind: Byte}
	case "C":
		return Type{Kind: Char}
	case "S":
		return Type{Kind: Short}
	case "I":
		return TInt
	case "J":
		return TLong
	case "F":
		return TFloat
	case "D":
		return TDouble
	case "", "V":
		return TUnknown
	case "L":
		return TObject
	}
	return Type{Kind: Ref, Name: desc}
}

// IsRef reports whether values of t are references.
func (t Type) IsRef() bool { return t.Kind == Ref || t.Kind == Unresolved }

// IsWide reports whether t occupies a register pair.
func (t Type) IsWide() bool { return t.Kind == Wide || t.Kind == Long || t.Kind == Double }

func (t Type) isIntFamily() bool { return t.Kind >= Boolean && t.Kind <= Int }

// Desc returns the descriptor a variable of this type is declared with.
// Constants default to int and long; conflicts and unknowns to Object.
func (t Type) Desc() string {
	switch t.Kind {
	case Zero, Narrow, Int:
		return "I"
	case Wide, Long:
		return "J"
	case Boolean:
		return "Z"
	case Byte:
		return "B"
	case Char:
		return "C"
	case Short:
		return "S"
	case Float:
		return "F"
	case Double:
		return "D"
	case Ref, Unresolved:
		return t.Name
	}
	return dex.ObjectType
}

// Class returns the register class: 'I' (32-bit integral), 'F', 'J', 'D',
// 'L', or 0 for types compatible with several classes (Unknown, Zero,
// Narrow, Wide) and for Top.
func (t Type) Class() byte {
	switch {
	case t.isIntFamily():
		return 'I'
	case t.Kind == Float:
		return 'F'
	case t.Kind == Long:
		return 'J'
	case t.Kind == Double:
		return 'D'
	case t.IsRef():
		return 'L'
	}
	return 0
}

func (t Type) String() string {
	switch t.Kind {
	case Unknown:
		return "unknown"
	case Zero:
		return "zero"
	case Narrow:
		return "narrow"
	case Wide:
		return "wide"
	case Top:
		return "top"
	case Unresolved:
		return "unresolved " + dex.JavaName(t.Name)
	}
	return dex.JavaName(t.Desc())
}

// Lattice merges types using a class universe for references.
type Lattice struct {
	Universe *dex.Universe
}

// Merge returns the least upper bound of a and b. It is symmetric,
// idempotent and monotone; Unknown is the identity and Top absorbs.
func (l Lattice) Merge(a, b Type) Type {
	if a == b {
		return a
	}
	if a.Kind > b.Kind {
		a, b = b, a
	}
	// a.Kind <= b.Kind from here on.
	switch {
	case a.Kind == Unknown:
		return b
	case b.Kind == Top:
		return TTop
	case a.Kind == Zero:
		if b.Kind == Wide || b.Kind == Long || b.Kind == Double {
			return TTop
		}
		return b
	case a.Kind == Narrow:
		if b.isIntFamily() || b.Kind == Float {
			return b
		}
		return TTop
	case a.Kind == Wide:
		if b.Kind == Long || b.Kind == Double {
			return b
		}
		return TTop
	case a.isIntFamily() && b.isIntFamily():
		return TInt
	case a.IsRef() && b.IsRef():
		return l.mergeRefs(a, b)
	}
	return TTop
}

func (l Lattice) mergeRefs(a, b Type) Type {
	if a.Name == b.Name {
		if a.Kind == Unresolved || b.Kind == Unresolved {
			return Type{Kind: Unresolved, Name: a.Name}
		}
		return a
	}
	if a.Kind == Unresolved || b.Kind == Unresolved {
		return TObject
	}
	an, bn := strings.HasPrefix(a.Name, "["), strings.HasPrefix(b.Name, "[")
	if an || bn {
		return TObject
	}
	if l.Universe == nil {
		return TObject
	}
	return Type{Kind: Ref, Name: l.Universe.CommonSuperclass(a.Name, b.Name)}
}

// MergeAll folds Merge over ts, starting from Unknown.
func (l Lattice) MergeAll(ts ...Type) Type {
	out := TUnknown
	for _, t := range ts {
		out = l.Merge(out, t)
	}
	return out
}
