package tsparser

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/0x5457/dill/internal/models"
	"github.com/0x5457/dill/internal/parser"
	"github.com/0x5457/dill/internal/parser/grammar"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// maxResolveDepth bounds declarator unwrapping on pathological trees.
const maxResolveDepth = 32

var identifierKinds = map[string]bool{
	"identifier":                  true,
	"field_identifier":            true,
	"type_identifier":             true,
	"property_identifier":         true,
	"private_property_identifier": true,
	"destructor_name":             true,
	"operator_name":               true,
}

// Declarators without a `declarator` field; the name sits in a named child.
var unfieldedDeclarators = map[string]bool{
	"reference_declarator":     true,
	"parenthesized_declarator": true,
	"attributed_declarator":    true,
}

type TSParser struct {
	reg *grammar.Registry
}

func New(reg *grammar.Registry) *TSParser { return &TSParser{reg: reg} }

func (p *TSParser) Supports(path string) bool { return p.reg.Supports(path) }

func (p *TSParser) ExtractFile(path, displayName string) ([]models.Symbol, error) {
	if !p.reg.Supports(path) {
		return nil, nil
	}
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return p.ExtractSymbols(code, path, displayName)
}

type span struct {
	start, end uint
}

// ExtractSymbols parses code with the grammar selected by path and returns
// every named symbol the grammar's query finds, each node span at most once.
func (p *TSParser) ExtractSymbols(code []byte, path, displayName string) ([]models.Symbol, error) {
	g, ok := p.reg.Lookup(path)
	if !ok {
		return nil, nil
	}
	if displayName == "" {
		displayName = filepath.Base(path)
	}

	tsParser := tree_sitter.NewParser()
	defer tsParser.Close()
	if err := tsParser.SetLanguage(g.Language); err != nil {
		return nil, fmt.Errorf("set %s language: %w", g.Name, err)
	}

	// Syntax errors do not fail the parse: they become ERROR nodes and the
	// symbol query simply finds nothing inside them. A nil tree only happens
	// when parsing is cancelled.
	tree := tsParser.Parse(code, nil)
	if tree == nil {
		return nil, nil
	}
	defer tree.Close()

	cursor := tree_sitter.NewQueryCursor()
	defer cursor.Close()

	seen := make(map[span]struct{})
	var symbols []models.Symbol
	matches := cursor.Matches(g.Query, tree.RootNode(), code)
	for m := matches.Next(); m != nil; m = matches.Next() {
		var nameNode, symNode *tree_sitter.Node
		var kind models.SymbolKind
		for i := range m.Captures {
			c := m.Captures[i]
			role := g.Role(c.Index)
			switch role.Kind {
			case grammar.RoleName:
				n := c.Node
				nameNode = &n
			case grammar.RoleSymbol:
				if symNode == nil {
					n := c.Node
					symNode = &n
					kind = role.Symbol
				}
			}
		}
		if symNode == nil {
			continue
		}

		key := span{start: symNode.StartByte(), end: symNode.EndByte()}
		if _, dup := seen[key]; dup {
			continue
		}

		from := nameNode
		if from == nil {
			from = symNode
		}
		name := resolveName(from, code, 0)
		if name == "" {
			continue
		}
		seen[key] = struct{}{}
		symbols = append(symbols, newSymbol(g.Name, path, displayName, code, symNode, kind, name))
	}
	return symbols, nil
}

// resolveName descends declarator and qualifier layers until it reaches the
// identifier that names the symbol. Returns "" when there is none.
func resolveName(n *tree_sitter.Node, code []byte, depth int) string {
	if n == nil || depth > maxResolveDepth {
		return ""
	}
	kind := n.Kind()
	if identifierKinds[kind] {
		return nodeText(n, code)
	}
	switch kind {
	case "qualified_identifier", "template_function", "template_type", "template_method":
		return resolveName(n.ChildByFieldName("name"), code, depth+1)
	}
	if d := n.ChildByFieldName("declarator"); d != nil {
		return resolveName(d, code, depth+1)
	}
	if nm := n.ChildByFieldName("name"); nm != nil {
		return resolveName(nm, code, depth+1)
	}
	if unfieldedDeclarators[kind] {
		for i := uint(0); i < n.NamedChildCount(); i++ {
			if name := resolveName(n.NamedChild(i), code, depth+1); name != "" {
				return name
			}
		}
	}
	return ""
}

func newSymbol(
	language, path, displayName string,
	code []byte,
	n *tree_sitter.Node,
	kind models.SymbolKind,
	name string,
) models.Symbol {
	return models.Symbol{
		Name:        name,
		Kind:        kind,
		Text:        nodeText(n, code),
		Language:    language,
		SourcePath:  path,
		DisplayName: displayName,
		StartLine:   int(n.StartPosition().Row) + 1,
		EndLine:     int(n.EndPosition().Row) + 1,
		StartByte:   int(n.StartByte()),
		EndByte:     int(n.EndByte()),
	}
}

func nodeText(n *tree_sitter.Node, code []byte) string {
	return string(code[n.StartByte():n.EndByte()])
}

var _ parser.Extractor = (*TSParser)(nil)
