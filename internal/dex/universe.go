package dex

// ObjectType is the root of the reference hierarchy.
const ObjectType = "Ljava/lang/Object;"

// ClassInfo is the universe's view of one class: hierarchy and members.
type ClassInfo struct {
	Name       string
	Super      string
	Interfaces []string
	Interface  bool
	Fields     map[string]string // name → type descriptor
	Methods    map[string]bool   // name + descriptor
	// Opaque classes are known by name and hierarchy only; member
	// references against them always resolve.
	Opaque bool
}

// builtins are the platform classes every program can rely on, with their
// superclass. They are opaque.
var builtins = map[string]string{
	ObjectType:                                  ObjectType,
	"Ljava/lang/String;":                        ObjectType,
	"Ljava/lang/CharSequence;":                  ObjectType,
	"Ljava/lang/Class;":                         ObjectType,
	"Ljava/lang/Enum;":                          ObjectType,
	"Ljava/lang/Number;":                        ObjectType,
	"Ljava/lang/Integer;":                       "Ljava/lang/Number;",
	"Ljava/lang/Long;":                          "Ljava/lang/Number;",
	"Ljava/lang/Float;":                         "Ljava/lang/Number;",
	"Ljava/lang/Double;":                        "Ljava/lang/Number;",
	"Ljava/lang/Short;":                         "Ljava/lang/Number;",
	"Ljava/lang/Byte;":                          "Ljava/lang/Number;",
	"Ljava/lang/Boolean;":                       ObjectType,
	"Ljava/lang/Character;":                     ObjectType,
	"Ljava/lang/StringBuilder;":                 ObjectType,
	"Ljava/lang/System;":                        ObjectType,
	"Ljava/lang/Math;":                          ObjectType,
	"Ljava/lang/Thread;":                        ObjectType,
	"Ljava/lang/Throwable;":                     ObjectType,
	"Ljava/lang/Exception;":                     "Ljava/lang/Throwable;",
	"Ljava/lang/Error;":                         "Ljava/lang/Throwable;",
	"Ljava/lang/RuntimeException;":              "Ljava/lang/Exception;",
	"Ljava/lang/IllegalArgumentException;":      "Ljava/lang/RuntimeException;",
	"Ljava/lang/IllegalStateException;":         "Ljava/lang/RuntimeException;",
	"Ljava/lang/NullPointerException;":          "Ljava/lang/RuntimeException;",
	"Ljava/lang/ClassCastException;":            "Ljava/lang/RuntimeException;",
	"Ljava/lang/ArithmeticException;":           "Ljava/lang/RuntimeException;",
	"Ljava/lang/IndexOutOfBoundsException;":     "Ljava/lang/RuntimeException;",
	"Ljava/lang/UnsupportedOperationException;": "Ljava/lang/RuntimeException;",
	"Ljava/io/IOException;":                     "Ljava/lang/Exception;",
	"Ljava/io/PrintStream;":                     ObjectType,
}

var objectMethods = map[string]bool{
	"<init>()V":                    true,
	"clone()Ljava/lang/Object;":    true,
	"equals(Ljava/lang/Object;)Z":  true,
	"finalize()V":                  true,
	"getClass()Ljava/lang/Class;":  true,
	"hashCode()I":                  true,
	"notify()V":                    true,
	"notifyAll()V":                 true,
	"toString()Ljava/lang/String;": true,
	"wait()V":                      true,
	"wait(J)V":                     true,
}

// Universe is the whole-program symbol table used for reference resolution
// and common-supertype queries. It is read-only after NewUniverse and safe
// for concurrent use.
type Universe struct {
	classes map[string]*ClassInfo
}

// NewUniverse indexes the given classes on top of the builtin platform
// classes. Input classes shadow builtins of the same name.
func NewUniverse(classes []*Class) *Universe {
	u := &Universe{classes: make(map[string]*ClassInfo, len(classes)+len(builtins))}
	for name, super := range builtins {
		ci := &ClassInfo{Name: name, Super: super, Opaque: true}
		if name == ObjectType {
			// Object is the ancestor of every class, so its members are
			// listed explicitly instead of resolving anything.
			ci.Super = ""
			ci.Opaque = false
			ci.Fields = map[string]string{}
			ci.Methods = objectMethods
		}
		if name == "Ljava/lang/CharSequence;" {
			ci.Interface = true
		}
		u.classes[name] = ci
	}
	for _, c := range classes {
		ci := &ClassInfo{
			Name:       c.Name,
			Super:      c.Super,
			Interfaces: c.Interfaces,
			Interface:  c.Flags&AccInterface != 0,
			Fields:     make(map[string]string, len(c.Fields)),
			Methods:    make(map[string]bool, len(c.Methods)),
		}
		if ci.Super == "" && c.Name != ObjectType {
			ci.Super = ObjectType
		}
		for _, f := range c.Fields {
			ci.Fields[f.Name] = f.Type
		}
		for _, m := range c.Methods {
			ci.Methods[m.Name+m.Ref().Descriptor()] = true
		}
		u.classes[c.Name] = ci
	}
	return u
}

// Lookup returns the class info for a descriptor.
func (u *Universe) Lookup(desc string) (*ClassInfo, bool) {
	if u == nil {
		return nil, false
	}
	ci, ok := u.classes[desc]
	return ci, ok
}

// Len returns the number of known classes, builtins included.
func (u *Universe) Len() int { return len(u.classes) }

// maxChain caps hierarchy walks so cyclic superclass declarations in
// malformed input terminate.
const maxChain = 64

// Chain returns desc followed by its known superclasses up to Object.
// Classes absent from the universe chain directly to Object.
func (u *Universe) Chain(desc string) []string {
	chain := []string{desc}
	cur := desc
	for i := 0; i < maxChain && cur != ObjectType; i++ {
		ci, ok := u.Lookup(cur)
		next := ObjectType
		if ok && ci.Super != "" {
			next = ci.Super
		}
		chain = append(chain, next)
		cur = next
	}
	if chain[len(chain)-1] != ObjectType {
		chain = append(chain, ObjectType)
	}
	return chain
}

// CommonSuperclass returns the nearest class both a and b extend.
// Interfaces are not considered; unrelated classes meet at Object.
func (u *Universe) CommonSuperclass(a, b string) string {
	if a == b {
		return a
	}
	seen := make(map[string]bool)
	for _, c := range u.Chain(a) {
		seen[c] = true
	}
	for _, c := range u.Chain(b) {
		if seen[c] {
			return c
		}
	}
	return ObjectType
}

// IsSubclass reports whether sub extends (or is) super.
func (u *Universe) IsSubclass(sub, super string) bool {
	for _, c := range u.Chain(sub) {
		if c == super {
			return true
		}
	}
	return false
}

// ResolveField reports whether ref names a field declared on its owner or a
// superclass known to the universe.
func (u *Universe) ResolveField(ref FieldRef) bool {
	return u.resolve(ref.Class, func(ci *ClassInfo) bool {
		_, ok := ci.Fields[ref.Name]
		return ok
	})
}

// ResolveMethod reports whether ref names a method declared on its owner,
// a superclass or a superinterface known to the universe.
func (u *Universe) ResolveMethod(ref MethodRef) bool {
	key := ref.Name + ref.Descriptor()
	return u.resolve(ref.Class, func(ci *ClassInfo) bool {
		return ci.Methods[key]
	})
}

func (u *Universe) resolve(owner string, has func(*ClassInfo) bool) bool {
	if owner != "" && owner[0] == '[' {
		// Array receivers: clone(), length and Object members.
		return true
	}
	visited := make(map[string]bool)
	queue := []string{owner}
	for len(queue) > 0 && len(visited) < maxChain {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		ci, ok := u.Lookup(cur)
		if !ok {
			continue
		}
		if ci.Opaque || has(ci) {
			return true
		}
		if ci.Super != "" {
			queue = append(queue, ci.Super)
		}
		queue = append(queue, ci.Interfaces...)
	}
	return false
}
