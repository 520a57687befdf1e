package tsparser_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/0x5457/dill/internal/models"
	"github.com/0x5457/dill/internal/parser/grammar"
	p "github.com/0x5457/dill/internal/parser/tsparser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mathC = `#include <math.h>

struct vec2 {
    float x;
    float y;
};

struct vec3 {
    float x, y, z;
};

float vec2_dot(struct vec2 a, struct vec2 b) {
    return a.x * b.x + a.y * b.y;
}

float vec2_len(struct vec2 v) {
    return sqrtf(vec2_dot(v, v));
}

float vec3_dot(struct vec3 a, struct vec3 b) {
    return a.x * b.x + a.y * b.y + a.z * b.z;
}
`

func newParser(t *testing.T) *p.TSParser {
	t.Helper()
	reg, err := grammar.Default()
	require.NoError(t, err)
	t.Cleanup(reg.Close)
	return p.New(reg)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func byName(symbols []models.Symbol) map[string]models.Symbol {
	out := make(map[string]models.Symbol, len(symbols))
	for _, s := range symbols {
		out[s.Name] = s
	}
	return out
}

func TestExtractMathFixture(t *testing.T) {
	parser := newParser(t)
	path := writeFile(t, t.TempDir(), "math.c", mathC)

	symbols, err := parser.ExtractFile(path, "")
	require.NoError(t, err)
	require.Len(t, symbols, 5)

	got := byName(symbols)
	for name, kind := range map[string]models.SymbolKind{
		"vec2":     models.SymbolStruct,
		"vec3":     models.SymbolStruct,
		"vec2_dot": models.SymbolFunction,
		"vec2_len": models.SymbolFunction,
		"vec3_dot": models.SymbolFunction,
	} {
		s, ok := got[name]
		require.True(t, ok, "missing %s", name)
		assert.Equal(t, kind, s.Kind, name)
		assert.Equal(t, "math.c", s.DisplayName)
		assert.Equal(t, "c", s.Language)
		assert.Equal(t, path, s.SourcePath)
	}

	dot := got["vec2_dot"]
	assert.Equal(t, 12, dot.StartLine)
	assert.Equal(t, 14, dot.EndLine)
	assert.Equal(t, mathC[dot.StartByte:dot.EndByte], dot.Text)
	assert.Contains(t, dot.Text, "return a.x * b.x + a.y * b.y;")

	vec2 := got["vec2"]
	assert.Equal(t, 3, vec2.StartLine)
	assert.Equal(t, 6, vec2.EndLine)
}

func TestExtractSingleFunctionPerGrammar(t *testing.T) {
	parser := newParser(t)

	tests := []struct {
		file string
		code string
		name string
		kind models.SymbolKind
	}{
		{"one.c", "int add(int a, int b) { return a + b; }\n", "add", models.SymbolFunction},
		{"one.cpp", "int add(int a, int b) { return a + b; }\n", "add", models.SymbolFunction},
		{"one.h", "static inline int add(int a, int b) { return a + b; }\n", "add", models.SymbolFunction},
		{"one.go", "package one\n\nfunc Add(a, b int) int { return a + b }\n", "Add", models.SymbolFunction},
		{"one.ts", "export function add(a: number, b: number): number { return a + b }\n", "add", models.SymbolFunction},
		{"one.tsx", "function View(): JSX.Element { return <div/> }\n", "View", models.SymbolFunction},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			symbols, err := parser.ExtractSymbols([]byte(tt.code), tt.file, "display")
			require.NoError(t, err)
			require.Len(t, symbols, 1)
			s := symbols[0]
			assert.Equal(t, tt.name, s.Name)
			assert.Equal(t, tt.kind, s.Kind)
			assert.Equal(t, "display", s.DisplayName)
			assert.Equal(t, 1, s.StartLine)
			assert.Equal(t, 1, s.EndLine, "code ends with a newline outside the node")
			assert.Equal(t, tt.code[s.StartByte:s.EndByte], s.Text)
		})
	}
}

func TestTemplateFunctionReportedOnce(t *testing.T) {
	parser := newParser(t)
	code := `template <typename T>
T max_of(T a, T b) {
    return a > b ? a : b;
}
`
	symbols, err := parser.ExtractSymbols([]byte(code), "tmpl.hpp", "")
	require.NoError(t, err)
	require.Len(t, symbols, 1)
	assert.Equal(t, "max_of", symbols[0].Name)
	assert.Equal(t, models.SymbolFunction, symbols[0].Kind)
	assert.Equal(t, 2, symbols[0].StartLine)
	assert.Equal(t, 4, symbols[0].EndLine)
}

func TestDeclaratorNameResolution(t *testing.T) {
	parser := newParser(t)

	tests := []struct {
		name string
		file string
		code string
		want []string
	}{
		{
			name: "pointer return",
			file: "ptr.c",
			code: "int *make(void) { return 0; }\n",
			want: []string{"make"},
		},
		{
			name: "double pointer return",
			file: "ptr2.c",
			code: "char **split(const char *s) { return 0; }\n",
			want: []string{"split"},
		},
		{
			name: "qualified method",
			file: "foo.cpp",
			code: "void Foo::bar() {}\n",
			want: []string{"bar"},
		},
		{
			name: "nested qualifier",
			file: "ns.cpp",
			code: "int a::b::run(int x) { return x; }\n",
			want: []string{"run"},
		},
		{
			name: "reference return",
			file: "ref.cpp",
			code: "int &get(int &x) { return x; }\n",
			want: []string{"get"},
		},
		{
			name: "destructor",
			file: "dtor.cpp",
			code: "Foo::~Foo() {}\n",
			want: []string{"~Foo"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			symbols, err := parser.ExtractSymbols([]byte(tt.code), tt.file, "")
			require.NoError(t, err)
			var names []string
			for _, s := range symbols {
				names = append(names, s.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestInlineClassMembers(t *testing.T) {
	parser := newParser(t)
	code := `class Counter {
public:
    int next() { return ++n; }
private:
    int n;
};
`
	symbols, err := parser.ExtractSymbols([]byte(code), "counter.hpp", "")
	require.NoError(t, err)

	got := byName(symbols)
	require.Len(t, got, 2)
	assert.Equal(t, models.SymbolClass, got["Counter"].Kind)
	assert.Equal(t, models.SymbolFunction, got["next"].Kind)
	assert.Equal(t, 3, got["next"].StartLine)
}

func TestGoAndTypeScriptKinds(t *testing.T) {
	parser := newParser(t)

	goCode := `package shapes

type Point struct{ X, Y int }

type Shape interface{ Area() float64 }

func (p Point) Norm() int { return p.X*p.X + p.Y*p.Y }
`
	symbols, err := parser.ExtractSymbols([]byte(goCode), "shapes.go", "")
	require.NoError(t, err)
	got := byName(symbols)
	assert.Equal(t, models.SymbolStruct, got["Point"].Kind)
	assert.Equal(t, models.SymbolInterface, got["Shape"].Kind)
	assert.Equal(t, models.SymbolMethod, got["Norm"].Kind)

	tsCode := `interface I { x: number }
type Alias = string
export enum E { A, B }
export class C {
  m(): void { }
}
const v = 1
`
	symbols, err = parser.ExtractSymbols([]byte(tsCode), "a.ts", "")
	require.NoError(t, err)
	got = byName(symbols)
	assert.Len(t, got, 5)
	assert.Equal(t, models.SymbolInterface, got["I"].Kind)
	assert.Equal(t, models.SymbolType, got["Alias"].Kind)
	assert.Equal(t, models.SymbolEnum, got["E"].Kind)
	assert.Equal(t, models.SymbolClass, got["C"].Kind)
	assert.Equal(t, models.SymbolMethod, got["m"].Kind)
	_, hasVar := got["v"]
	assert.False(t, hasVar)
}

func TestMalformedInputIsBestEffort(t *testing.T) {
	parser := newParser(t)
	code := `int ok(void) { return 1; }

int broken(int a {
`
	symbols, err := parser.ExtractSymbols([]byte(code), "broken.c", "")
	require.NoError(t, err)
	names := byName(symbols)
	assert.Contains(t, names, "ok")
}

func TestUnsupportedExtension(t *testing.T) {
	parser := newParser(t)

	symbols, err := parser.ExtractSymbols([]byte("def f(): pass\n"), "script.py", "")
	require.NoError(t, err)
	assert.Empty(t, symbols)
	assert.False(t, parser.Supports("script.py"))
	assert.True(t, parser.Supports("x.c"))

	// Unsupported files are not even opened.
	symbols, err = parser.ExtractFile(filepath.Join(t.TempDir(), "missing.py"), "")
	require.NoError(t, err)
	assert.Empty(t, symbols)
}

func TestExtractFileMissing(t *testing.T) {
	parser := newParser(t)
	_, err := parser.ExtractFile(filepath.Join(t.TempDir(), "missing.c"), "")
	require.Error(t, err)
}

func TestEmptyInput(t *testing.T) {
	parser := newParser(t)
	symbols, err := parser.ExtractSymbols(nil, "empty.c", "")
	require.NoError(t, err)
	assert.Empty(t, symbols)
}
