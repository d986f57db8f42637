package dex

import "strings"

// Primitive descriptor characters.
var primitiveNames = map[byte]string{
	'V': "void",
	'Z': "boolean",
	'B': "byte",
	'S': "short",
	'C': "char",
	'I': "int",
	'J': "long",
	'F': "float",
	'D': "double",
}

// IsWide reports whether a value of descriptor desc occupies two registers.
func IsWide(desc string) bool { return desc == "J" || desc == "D" }

// IsReference reports whether desc names a class or array type.
func IsReference(desc string) bool {
	return strings.HasPrefix(desc, "L") || strings.HasPrefix(desc, "[")
}

// JavaName converts a descriptor to its source spelling:
// "Lcom/a/B;" → "com.a.B", "[I" → "int[]", "J" → "long".
// Unknown spellings are returned unchanged.
func JavaName(desc string) string {
	dims := 0
	for dims < len(desc) && desc[dims] == '[' {
		dims++
	}
	base := desc[dims:]
	var name string
	switch {
	case len(base) == 1:
		n, ok := primitiveNames[base[0]]
		if !ok {
			return desc
		}
		name = n
	case strings.HasPrefix(base, "L") && strings.HasSuffix(base, ";"):
		name = strings.ReplaceAll(base[1:len(base)-1], "/", ".")
		name = strings.ReplaceAll(name, "$", ".")
	default:
		return desc
	}
	return name + strings.Repeat("[]", dims)
}

// SimpleName returns the unqualified class name of a descriptor,
// keeping array brackets: "[Ljava/lang/String;" → "String[]".
func SimpleName(desc string) string {
	n := JavaName(desc)
	if i := strings.LastIndexByte(n, '.'); i >= 0 {
		return n[i+1:]
	}
	return n
}

// PackageName returns the dotted package of a class descriptor, or "".
func PackageName(desc string) string {
	if !strings.HasPrefix(desc, "L") {
		return ""
	}
	inner := strings.TrimSuffix(desc[1:], ";")
	i := strings.LastIndexByte(inner, '/')
	if i < 0 {
		return ""
	}
	return strings.ReplaceAll(inner[:i], "/", ".")
}

// ElementType strips one array dimension: "[[I" → "[I".
func ElementType(desc string) string {
	if strings.HasPrefix(desc, "[") {
		return desc[1:]
	}
	return ""
}

// ParseParams splits a parameter descriptor list "ILjava/lang/String;[J"
// into individual descriptors.
func ParseParams(s string) []string {
	var out []string
	for i := 0; i < len(s); {
		start := i
		for i < len(s) && s[i] == '[' {
			i++
		}
		if i >= len(s) {
			break
		}
		if s[i] == 'L' {
			end := strings.IndexByte(s[i:], ';')
			if end < 0 {
				break
			}
			i += end + 1
		} else {
			i++
		}
		out = append(out, s[start:i])
	}
	return out
}
