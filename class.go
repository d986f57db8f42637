package undex

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"undex/internal/codegen"
	"undex/internal/dex"
)

// Class is the decompiled form of one input class. Its fields do not change
// after the batch publishes it.
type Class struct {
	Name       string // type descriptor
	Super      string
	Interfaces []string
	Fields     []*dex.Field
	Methods    []*Method

	decl *dex.Class
	src  string
	err  error
}

func newClass(decl *dex.Class) *Class {
	c := &Class{
		Name:       decl.Name,
		Super:      decl.Super,
		Interfaces: decl.Interfaces,
		Fields:     decl.Fields,
		decl:       decl,
	}
	for _, m := range decl.Methods {
		c.Methods = append(c.Methods, &Method{Decl: m, pool: decl.Pool})
	}
	return c
}

// FullName returns the dotted name.
func (c *Class) FullName() string { return c.decl.FullName() }

// Source returns the generated compilation unit, or "" before the class ran.
func (c *Class) Source() string { return c.src }

// Err combines the errors of the class's methods. A non-nil error does not
// mean the source is missing: failed methods render as stubs.
func (c *Class) Err() error { return c.err }

// Method finds a method by signature.
func (c *Class) Method(sig string) (*Method, bool) {
	for _, m := range c.Methods {
		if m.Signature() == sig {
			return m, true
		}
	}
	return nil, false
}

// Unload drops the intermediate state of every method.
func (c *Class) Unload() {
	for _, m := range c.Methods {
		m.release()
	}
}

func (b *Batch) decompile(c *Class) {
	imp := codegen.NewImports(c.Name)
	members := make([]string, 0, len(c.Methods))
	var err error
	for _, m := range c.Methods {
		b.method(m, imp)
		members = append(members, m.src)
		err = multierr.Append(err, m.err)
	}
	c.err = err
	c.src = codegen.Class(c.decl, imp, members, b.opts)
	b.log.Debug("class decompiled",
		zap.String("class", c.FullName()),
		zap.Int("methods", len(c.Methods)),
		zap.Int("errors", len(multierr.Errors(err))))
}
