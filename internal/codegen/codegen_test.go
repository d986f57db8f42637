package codegen

import (
	bin "encoding/binary"
	"errors"
	"strings"
	"testing"

	"undex/internal/dex"
	"undex/internal/disasm"
	"undex/internal/region"
	"undex/internal/typing"
)

func units(us ...uint16) []byte {
	b := make([]byte, len(us)*2)
	for i, u := range us {
		bin.LittleEndian.PutUint16(b[i*2:], u)
	}
	return b
}

func method(ret string, params []string, regs, ins int, code []byte, tries ...dex.Try) *dex.Method {
	return &dex.Method{
		Class:  "Lapp/Dog;",
		Name:   "f",
		Params: params,
		Return: ret,
		Flags:  dex.AccStatic,
		Code:   &dex.Code{Registers: regs, Ins: ins, Insns: code, Tries: tries},
	}
}

func input(t *testing.T, m *dex.Method, pool *dex.Pool) *Input {
	t.Helper()
	insts, err := disasm.Decode(m.Code.Insns, disasm.Options{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	cfg := disasm.BuildCFG(m.Name, insts, disasm.TryLeaders(m.Code.Tries)...)
	regions := disasm.ResolveExceptions(&cfg, m.Code.Tries, nil)
	u := dex.NewUniverse(nil)
	types, err := typing.Infer(&cfg, regions, m, pool, u, typing.Options{})
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	in := &Input{Method: m, Pool: pool, Universe: u, CFG: &cfg, Regions: regions, Types: types}
	tree, err := region.Build(&cfg, regions, region.Options{FoldableHeader: FoldableHeader(in)})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	in.Tree = tree
	return in
}

func render(t *testing.T, m *dex.Method, pool *dex.Pool) string {
	t.Helper()
	return Method(input(t, m, pool), NewImports(m.Class), Options{})
}

var utilPool = &dex.Pool{
	Methods: []dex.MethodRef{
		{Class: "Lapp/Util;", Name: "a", Return: "V"},
		{Class: "Lapp/Util;", Name: "b", Return: "V"},
		{Class: "Lapp/Util;", Name: "c", Return: "V"},
		{Class: "Lapp/Util;", Name: "use", Params: []string{"I"}, Return: "V"},
	},
}

func TestMethod(t *testing.T) {
	tests := []struct {
		name string
		m    *dex.Method
		pool *dex.Pool
		want string
	}{
		{
			// if-eqz v1, :0x08; const/4 v0, #1; goto :0x0a; const/4 v0, #2; return v0
			name: "diamond",
			m:    method("I", []string{"I"}, 2, 1, units(0x0138, 0x0004, 0x1012, 0x0228, 0x2012, 0x000f)),
			want: "    static int f(int p0) {\n" +
				"        int r0;\n" +
				"        if (p0 == 0) {\n" +
				"            r0 = 2;\n" +
				"        } else {\n" +
				"            r0 = 1;\n" +
				"        }\n" +
				"        return r0;\n" +
				"    }\n",
		},
		{
			// const/4 v0, #0; if-ge v0, v1, :0x0c; add-int/lit8 v0, v0, #1; goto :0x02; return v0
			name: "while",
			m:    method("I", []string{"I"}, 2, 1, units(0x0012, 0x1035, 0x0005, 0x00d8, 0x0100, 0xfc28, 0x000f)),
			want: "    static int f(int p0) {\n" +
				"        int r0 = 0;\n" +
				"        while (r0 < p0) {\n" +
				"            r0++;\n" +
				"        }\n" +
				"        return r0;\n" +
				"    }\n",
		},
		{
			// const/4 v1, #0; array-length v0, v2; if-ge v1, v0, :0x0e;
			// add-int/lit8 v1, v1, #1; goto :0x02; return-void
			name: "folded loop header",
			m:    method("V", []string{"[I"}, 3, 1, units(0x0112, 0x2021, 0x0135, 0x0005, 0x01d8, 0x0101, 0xfb28, 0x000e)),
			want: "    static void f(int[] p0) {\n" +
				"        int r1 = 0;\n" +
				"        while (r1 < p0.length) {\n" +
				"            r1++;\n" +
				"        }\n" +
				"    }\n",
		},
		{
			// new-instance v0, StringBuilder; invoke-direct {v0}, <init>;
			// const-string v1, "hi"; invoke-virtual {v0, v1}, append;
			// move-result-object v0; invoke-virtual {v0}, toString;
			// move-result-object v0; return-object v0
			name: "call chain",
			m: method("Ljava/lang/String;", nil, 2, 0, units(
				0x0022, 0x0000,
				0x1070, 0x0000, 0x0000,
				0x011a, 0x0000,
				0x206e, 0x0001, 0x0010,
				0x000c,
				0x106e, 0x0002, 0x0000,
				0x000c,
				0x0011,
			)),
			pool: &dex.Pool{
				Strings: []string{"hi"},
				Types:   []string{"Ljava/lang/StringBuilder;"},
				Methods: []dex.MethodRef{
					{Class: "Ljava/lang/StringBuilder;", Name: "<init>", Return: "V"},
					{Class: "Ljava/lang/StringBuilder;", Name: "append", Params: []string{"Ljava/lang/String;"}, Return: "Ljava/lang/StringBuilder;"},
					{Class: "Ljava/lang/StringBuilder;", Name: "toString", Return: "Ljava/lang/String;"},
				},
			},
			want: "    static String f() {\n" +
				"        return new StringBuilder().append(\"hi\").toString();\n" +
				"    }\n",
		},
		{
			// try { invoke-static run } catch (IOException) { move-exception v0;
			// invoke-virtual {v0}, printStackTrace; return-void }; return-void
			name: "try catch",
			m: method("V", nil, 1, 0, units(0x0071, 0x0000, 0x0000, 0x000e, 0x000d, 0x106e, 0x0001, 0x0000, 0x000e),
				dex.Try{Start: 0x00, End: 0x06, Handlers: []dex.Handler{{Type: "Ljava/io/IOException;", Addr: 0x08}}}),
			pool: &dex.Pool{
				Methods: []dex.MethodRef{
					{Class: "Lapp/Util;", Name: "run", Return: "V"},
					{Class: "Ljava/io/IOException;", Name: "printStackTrace", Return: "V"},
				},
			},
			want: "    static void f() {\n" +
				"        try {\n" +
				"            Util.run();\n" +
				"        } catch (IOException e) {\n" +
				"            e.printStackTrace();\n" +
				"            return;\n" +
				"        }\n" +
				"    }\n",
		},
		{
			// try { invoke-static a } catch (IOException) { move-exception v0;
			// return-void }; return-void
			name: "unused catch binding",
			m: method("V", nil, 1, 0, units(0x0071, 0x0000, 0x0000, 0x000e, 0x000d, 0x000e),
				dex.Try{Start: 0x00, End: 0x06, Handlers: []dex.Handler{{Type: "Ljava/io/IOException;", Addr: 0x08}}}),
			pool: utilPool,
			want: "    static void f() {\n" +
				"        try {\n" +
				"            Util.a();\n" +
				"        } catch (IOException e) {\n" +
				"            return;\n" +
				"        }\n" +
				"    }\n",
		},
		{
			// try { invoke-static a }; invoke-static b; return-void
			// catch-all: move-exception v0; invoke-static b; throw v0
			name: "finally",
			m: method("V", nil, 1, 0, units(
				0x0071, 0x0000, 0x0000,
				0x0071, 0x0001, 0x0000,
				0x000e,
				0x000d, 0x0071, 0x0001, 0x0000, 0x0027,
			), dex.Try{Start: 0x00, End: 0x06, Handlers: []dex.Handler{{Addr: 0x0e}}}),
			pool: utilPool,
			want: "    static void f() {\n" +
				"        try {\n" +
				"            Util.a();\n" +
				"        } finally {\n" +
				"            Util.b();\n" +
				"        }\n" +
				"    }\n",
		},
		{
			// as above, but the normal path calls c instead of b
			name: "catch-all without a normal copy",
			m: method("V", nil, 1, 0, units(
				0x0071, 0x0000, 0x0000,
				0x0071, 0x0002, 0x0000,
				0x000e,
				0x000d, 0x0071, 0x0001, 0x0000, 0x0027,
			), dex.Try{Start: 0x00, End: 0x06, Handlers: []dex.Handler{{Addr: 0x0e}}}),
			pool: utilPool,
			want: "    static void f() {\n" +
				"        try {\n" +
				"            Util.a();\n" +
				"        } catch (Throwable e) {\n" +
				"            Util.b();\n" +
				"            throw e;\n" +
				"        }\n" +
				"        Util.c();\n" +
				"    }\n",
		},
		{
			// const/4 v0, #7; invoke-static {v0}, use; invoke-static {v0}, use; return-void
			name: "declaration with initializer",
			m: method("V", nil, 1, 0, units(0x7012, 0x1071, 0x0003, 0x0000, 0x1071, 0x0003, 0x0000, 0x000e)),
			pool: utilPool,
			want: "    static void f() {\n" +
				"        int r0 = 7;\n" +
				"        Util.use(r0);\n" +
				"        Util.use(r0);\n" +
				"    }\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := render(t, tt.m, tt.pool); got != tt.want {
				t.Errorf("got\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestFoldableHeader(t *testing.T) {
	m := method("V", []string{"[I"}, 3, 1, units(0x0112, 0x2021, 0x0135, 0x0005, 0x01d8, 0x0101, 0xfb28, 0x000e))
	in := input(t, m, nil)
	fold := FoldableHeader(in)
	if !fold(1) {
		t.Error("header computing array length should fold")
	}
	m = method("I", []string{"I"}, 2, 1, units(0x0012, 0x1035, 0x0005, 0x00d8, 0x0100, 0xfc28, 0x000f))
	if fold := FoldableHeader(input(t, m, nil)); !fold(1) {
		t.Error("bare test header should fold")
	}
}

func TestDegraded(t *testing.T) {
	m := method("V", []string{"I", "Ljava/util/List;"}, 2, 2, nil)
	imp := NewImports(m.Class)
	got := Degraded(m, imp, "0000  e300  <unused>\n", errors.New("decode: unknown opcode 0xe3"), Options{})
	want := "    static void f(int p0, List p1) {\n" +
		"        // undex: decode: unknown opcode 0xe3\n" +
		"        // 0000  e300  <unused>\n" +
		"        throw new UnsupportedOperationException(\"Method not decompiled: Lapp/Dog;->f(ILjava/util/List;)V\");\n" +
		"    }\n"
	if got != want {
		t.Errorf("got\n%s\nwant\n%s", got, want)
	}
	if list := imp.List(); len(list) != 1 || list[0] != "java.util.List" {
		t.Errorf("imports = %v, want [java.util.List]", list)
	}
}

func TestAbstract(t *testing.T) {
	m := &dex.Method{Class: "Lapp/Dog;", Name: "bark", Params: []string{"J"}, Return: "Z", Flags: dex.AccPublic | dex.AccAbstract}
	if got, want := Abstract(m, NewImports(m.Class), Options{}), "    public abstract boolean bark(long p0);\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestClass(t *testing.T) {
	c := &dex.Class{
		Name:       "Lapp/Dog;",
		Super:      "Lapp/Animal;",
		Interfaces: []string{"Ljava/io/Serializable;"},
		Flags:      dex.AccPublic,
		Fields:     []*dex.Field{{Name: "name", Type: "Ljava/lang/String;", Flags: dex.AccPrivate}},
	}
	imp := NewImports(c.Name)
	got := Class(c, imp, []string{"    void m() {\n    }\n"}, Options{})
	want := "package app;\n\n" +
		"import java.io.Serializable;\n\n" +
		"public class Dog extends Animal implements Serializable {\n" +
		"    private String name;\n" +
		"\n" +
		"    void m() {\n" +
		"    }\n" +
		"}\n"
	if got != want {
		t.Errorf("got\n%s\nwant\n%s", got, want)
	}
}

func TestImports(t *testing.T) {
	imp := NewImports("Lapp/Dog;")
	tests := []struct {
		desc string
		want string
	}{
		{"Ljava/util/List;", "List"},
		{"Lother/List;", "other.List"},
		{"[Ljava/lang/String;", "String[]"},
		{"Lapp/Cat;", "Cat"},
		{"I", "int"},
		{"[[J", "long[][]"},
		{"Lapp/Dog;", "Dog"},
	}
	for _, tt := range tests {
		if got := imp.Name(tt.desc); got != tt.want {
			t.Errorf("Name(%q) = %q, want %q", tt.desc, got, tt.want)
		}
	}
	got := strings.Join(imp.List(), ",")
	if want := "java.util.List"; got != want {
		t.Errorf("List = %q, want %q", got, want)
	}
}

func TestLiteral(t *testing.T) {
	tests := []struct {
		v    int64
		t    typing.Type
		wide bool
		want string
	}{
		{1, typing.TBoolean, false, "true"},
		{0, typing.TBoolean, false, "false"},
		{0x41, typing.Type{Kind: typing.Char}, false, "'A'"},
		{'\n', typing.Type{Kind: typing.Char}, false, `'\n'`},
		{-1, typing.TInt, false, "-1"},
		{5, typing.TLong, true, "5L"},
		{0x3fc00000, typing.TFloat, false, "1.5f"},
		{0x3f800000, typing.TFloat, false, "1.0f"},
		{0x7fc00000, typing.TFloat, false, "Float.NaN"},
		{0x4000000000000000, typing.TDouble, true, "2.0"},
		{0, typing.TObject, false, "null"},
		{7, typing.TUnknown, true, "7L"},
		{3, typing.TZero, false, "3"},
	}
	for _, tt := range tests {
		if got := Literal(tt.v, tt.t, tt.wide); got != tt.want {
			t.Errorf("Literal(%#x, %v) = %s, want %s", tt.v, tt.t, got, tt.want)
		}
	}
}

func TestStringLiteral(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", `"plain"`},
		{"a\"b\\", `"a\"b\\"`},
		{"tab\tnl\n", `"tab\tnl\n"`},
		{"\x01", `"\u0001"`},
		{"café", `"café"`},
	}
	for _, tt := range tests {
		if got := StringLiteral(tt.in); got != tt.want {
			t.Errorf("StringLiteral(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestCondition(t *testing.T) {
	c := condition{a: "x", b: "0", op: "<"}
	if got := c.String(true); got != "x >= 0" {
		t.Errorf("negated = %s, want x >= 0", got)
	}
	b := condition{boolean: true, plain: "ok", unary: "ok", op: "=="}
	if got := b.String(false); got != "!ok" {
		t.Errorf("boolean == 0 = %s, want !ok", got)
	}
	if got := b.String(true); got != "ok" {
		t.Errorf("negated boolean = %s, want ok", got)
	}
}
