package codegen

import (
	"fmt"
	"sort"
	"strings"

	"undex/internal/dex"
	"undex/internal/typing"
)

// Imports collects the classes a compilation unit references and decides
// which can be spelled by simple name.
type Imports struct {
	pkg    string
	self   string
	simple map[string]string // simple name -> full name
}

// NewImports returns an empty set for the class with descriptor self.
func NewImports(self string) *Imports {
	return &Imports{
		pkg:    dex.PackageName(self),
		self:   self,
		simple: map[string]string{dex.SimpleName(self): dex.JavaName(self)},
	}
}

// Name returns the source spelling of desc, recording an import when the
// class lives outside java.lang and the current package.
func (im *Imports) Name(desc string) string {
	dims := 0
	for dims < len(desc) && desc[dims] == '[' {
		dims++
	}
	base := desc[dims:]
	if !strings.HasPrefix(base, "L") {
		return dex.JavaName(desc)
	}
	full := dex.JavaName(base)
	simple := dex.SimpleName(base)
	name := full
	switch prev, ok := im.simple[simple]; {
	case ok && prev == full:
		name = simple
	case !ok:
		im.simple[simple] = full
		name = simple
	}
	return name + strings.Repeat("[]", dims)
}

// List returns the import lines in order.
func (im *Imports) List() []string {
	var out []string
	for _, full := range im.simple {
		if full == dex.JavaName(im.self) {
			continue
		}
		dot := strings.LastIndexByte(full, '.')
		if dot < 0 {
			continue
		}
		if pkg := full[:dot]; pkg == "java.lang" || pkg == im.pkg {
			continue
		}
		out = append(out, full)
	}
	sort.Strings(out)
	return out
}

// typeName spells a lattice type.
func (g *gen) typeName(t typing.Type) string {
	return g.imp.Name(t.Desc())
}

// varKey identifies a source variable: one register holding values of one
// register class.
type varKey struct {
	reg   int
	class byte
}

type variable struct {
	name  string
	class byte
	typ   typing.Type
	param bool
}

// classOf picks the register class of a value. Constants without their own
// class take the class the register is read as elsewhere.
func (g *gen) classOf(reg int, t typing.Type, ctx byte) byte {
	if t.Kind == typing.Top {
		return 'L'
	}
	if c := t.Class(); c != 0 {
		return c
	}
	if reg >= 0 && reg < len(g.hints) && g.hints[reg] != 0 {
		return g.hints[reg]
	}
	if ctx != 0 {
		return ctx
	}
	switch t.Kind {
	case typing.Wide:
		return 'J'
	case typing.Unknown:
		return 'L'
	}
	return 'I'
}

// descClass maps a descriptor to its register class.
func descClass(desc string) byte {
	if desc == "" {
		return 0
	}
	switch desc[0] {
	case 'Z', 'B', 'C', 'S', 'I':
		return 'I'
	case 'J', 'F', 'D':
		return desc[0]
	case 'L', '[':
		return 'L'
	}
	return 0
}

func classType(c byte) typing.Type {
	switch c {
	case 'I':
		return typing.TInt
	case 'J':
		return typing.TLong
	case 'F':
		return typing.TFloat
	case 'D':
		return typing.TDouble
	}
	return typing.TObject
}

// variable returns the variable for reg read or written as class c,
// creating a local on first sight.
func (g *gen) variable(reg int, c byte) *variable {
	k := varKey{reg, c}
	if v := g.vars[k]; v != nil {
		return v
	}
	name := fmt.Sprintf("r%d", reg)
	if n := g.regClasses[reg]; n > 0 {
		name = fmt.Sprintf("r%d_%d", reg, n)
	}
	g.regClasses[reg]++
	v := &variable{name: name, class: c &^ 0x80}
	g.vars[k] = v
	g.order = append(g.order, v)
	return v
}

// defVar returns the variable a write of type t to reg assigns.
func (g *gen) defVar(reg int, t typing.Type) *variable {
	c := g.classOf(reg, t, 0)
	v := g.variable(reg, c)
	if v.name == "this" {
		v = g.variable(reg, c|0x80)
	}
	v.typ = g.lat.Merge(v.typ, t)
	return v
}

// useVar returns the variable a read of reg at type t names.
func (g *gen) useVar(reg int, t typing.Type, ctx byte) *variable {
	v := g.variable(reg, g.classOf(reg, t, ctx))
	g.touched[v] = true
	if !v.param {
		v.typ = g.lat.Merge(v.typ, t)
	}
	return v
}

// declType is the declared type of a local.
func (g *gen) declType(v *variable) string {
	t := v.typ
	switch t.Kind {
	case typing.Unknown, typing.Zero, typing.Narrow, typing.Wide:
		t = classType(v.class)
	}
	return g.typeName(t)
}
