// Package grammar maps file extensions to tree-sitter grammars and the
// query that finds symbol definitions in each of them.
package grammar

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/0x5457/dill/internal/models"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// RoleKind tells what a query capture points at.
type RoleKind int

const (
	RoleIgnored RoleKind = iota
	RoleName
	RoleSymbol
)

// CaptureRole is the resolved meaning of one capture name.
type CaptureRole struct {
	Kind   RoleKind
	Symbol models.SymbolKind
}

// NameCapture marks the node the symbol name is resolved from.
func NameCapture() CaptureRole { return CaptureRole{Kind: RoleName} }

// SymbolCapture marks the node spanning a whole symbol definition.
func SymbolCapture(kind models.SymbolKind) CaptureRole {
	return CaptureRole{Kind: RoleSymbol, Symbol: kind}
}

// RoleFor resolves a capture name used in a symbol query.
func RoleFor(capture string) CaptureRole {
	switch capture {
	case "name":
		return NameCapture()
	case "function":
		return SymbolCapture(models.SymbolFunction)
	case "struct":
		return SymbolCapture(models.SymbolStruct)
	case "class":
		return SymbolCapture(models.SymbolClass)
	case "method":
		return SymbolCapture(models.SymbolMethod)
	case "interface":
		return SymbolCapture(models.SymbolInterface)
	case "enum":
		return SymbolCapture(models.SymbolEnum)
	case "type":
		return SymbolCapture(models.SymbolType)
	}
	return CaptureRole{}
}

// Spec describes one grammar before its query is compiled.
type Spec struct {
	Name       string
	Extensions []string
	Language   func() *tree_sitter.Language
	Query      string
}

// Grammar is a language with its compiled symbol query.
type Grammar struct {
	Name     string
	Language *tree_sitter.Language
	Query    *tree_sitter.Query
	roles    []CaptureRole
}

// Role returns the role of the capture with the given index.
func (g *Grammar) Role(index uint32) CaptureRole {
	if int(index) >= len(g.roles) {
		return CaptureRole{}
	}
	return g.roles[index]
}

func compile(spec Spec) (*Grammar, error) {
	lang := spec.Language()
	q, qerr := tree_sitter.NewQuery(lang, spec.Query)
	if qerr != nil {
		return nil, fmt.Errorf("compile %s symbol query: %s", spec.Name, qerr.Message)
	}
	names := q.CaptureNames()
	roles := make([]CaptureRole, len(names))
	for i, n := range names {
		roles[i] = RoleFor(n)
	}
	return &Grammar{Name: spec.Name, Language: lang, Query: q, roles: roles}, nil
}

// Registry selects a grammar by file extension.
type Registry struct {
	byExt    map[string]*Grammar
	grammars []*Grammar
}

// New compiles every spec into a registry. Later specs win on a shared extension.
func New(specs ...Spec) (*Registry, error) {
	r := &Registry{byExt: make(map[string]*Grammar)}
	for _, spec := range specs {
		g, err := compile(spec)
		if err != nil {
			r.Close()
			return nil, err
		}
		r.grammars = append(r.grammars, g)
		for _, ext := range spec.Extensions {
			r.byExt[strings.ToLower(ext)] = g
		}
	}
	return r, nil
}

// Default returns the registry for every built-in grammar.
func Default() (*Registry, error) {
	return New(Builtin()...)
}

// Lookup returns the grammar for path's extension.
func (r *Registry) Lookup(path string) (*Grammar, bool) {
	g, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return g, ok
}

// Supports reports whether path has a registered extension.
func (r *Registry) Supports(path string) bool {
	_, ok := r.Lookup(path)
	return ok
}

// Extensions lists registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Close releases the compiled queries.
func (r *Registry) Close() {
	for _, g := range r.grammars {
		g.Query.Close()
	}
	r.grammars = nil
	r.byExt = map[string]*Grammar{}
}
