package codegen

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"undex/internal/typing"
)

// Literal formats a raw constant for a value of type t. Constants whose
// type is still open (zero, narrow, wide, unknown) print as int, or as long
// when wide is set.
func Literal(v int64, t typing.Type, wide bool) string {
	switch t.Kind {
	case typing.Boolean:
		if v == 0 {
			return "false"
		}
		return "true"
	case typing.Char:
		return charLiteral(uint16(v))
	case typing.Byte, typing.Short, typing.Int:
		return strconv.FormatInt(int64(int32(v)), 10)
	case typing.Long:
		return strconv.FormatInt(v, 10) + "L"
	case typing.Float:
		return floatLiteral(math.Float32frombits(uint32(v)))
	case typing.Double:
		return doubleLiteral(math.Float64frombits(uint64(v)))
	case typing.Ref, typing.Unresolved:
		if v == 0 {
			return "null"
		}
	case typing.Wide:
		return strconv.FormatInt(v, 10) + "L"
	}
	if wide {
		return strconv.FormatInt(v, 10) + "L"
	}
	return strconv.FormatInt(int64(int32(v)), 10)
}

func floatLiteral(f float32) string {
	switch {
	case math.IsNaN(float64(f)):
		return "Float.NaN"
	case math.IsInf(float64(f), 1):
		return "Float.POSITIVE_INFINITY"
	case math.IsInf(float64(f), -1):
		return "Float.NEGATIVE_INFINITY"
	}
	return withPoint(strconv.FormatFloat(float64(f), 'g', -1, 32)) + "f"
}

func doubleLiteral(d float64) string {
	switch {
	case math.IsNaN(d):
		return "Double.NaN"
	case math.IsInf(d, 1):
		return "Double.POSITIVE_INFINITY"
	case math.IsInf(d, -1):
		return "Double.NEGATIVE_INFINITY"
	}
	return withPoint(strconv.FormatFloat(d, 'g', -1, 64))
}

// withPoint makes an integral rendering read as floating point.
func withPoint(s string) string {
	if strings.ContainsAny(s, ".eEIN") {
		return s
	}
	return s + ".0"
}

func charLiteral(c uint16) string {
	switch c {
	case '\'':
		return `'\''`
	case '\\':
		return `'\\'`
	}
	if esc, ok := simpleEscape(rune(c)); ok {
		return "'" + esc + "'"
	}
	if c >= 0x20 && c < 0x7f {
		return "'" + string(rune(c)) + "'"
	}
	return fmt.Sprintf(`'\u%04x'`, c)
}

func simpleEscape(r rune) (string, bool) {
	switch r {
	case '\n':
		return `\n`, true
	case '\t':
		return `\t`, true
	case '\r':
		return `\r`, true
	case '\b':
		return `\b`, true
	case '\f':
		return `\f`, true
	case 0:
		return `\0`, true
	}
	return "", false
}

// StringLiteral quotes s with Java escaping. Printable non-ASCII text is
// kept; control and unprintable characters become \uXXXX escapes.
func StringLiteral(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"':
			b.WriteString(`\"`)
		case r == '\\':
			b.WriteString(`\\`)
		default:
			if esc, ok := simpleEscape(r); ok {
				b.WriteString(esc)
				continue
			}
			if r < 0x20 || r == 0x7f || !unicode.IsPrint(r) {
				if r > 0xffff {
					hi, lo := surrogates(r)
					fmt.Fprintf(&b, `\u%04x\u%04x`, hi, lo)
				} else {
					fmt.Fprintf(&b, `\u%04x`, r)
				}
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func surrogates(r rune) (rune, rune) {
	r -= 0x10000
	return 0xd800 + (r>>10)&0x3ff, 0xdc00 + r&0x3ff
}
