package grammar

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_c "github.com/tree-sitter/tree-sitter-c/bindings/go"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tstypes "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// The @name capture is a starting point for name resolution, not the name
// itself: function declarators still have to be unwrapped.
const cQuery = `
(function_definition
  declarator: (_) @name) @function

(struct_specifier
  name: (_) @name
  body: (_)) @struct

(enum_specifier
  name: (_) @name
  body: (_)) @enum
`

// Template functions are reported by both function clauses.
const cppQuery = `
(function_definition
  declarator: (_) @name) @function

(template_declaration
  (function_definition) @function)

(struct_specifier
  name: (_) @name
  body: (_)) @struct

(class_specifier
  name: (_) @name
  body: (_)) @class

(enum_specifier
  name: (_) @name
  body: (_)) @enum
`

const goQuery = `
(function_declaration
  name: (_) @name) @function

(method_declaration
  name: (_) @name) @method

(type_spec
  name: (_) @name
  type: (struct_type)) @struct

(type_spec
  name: (_) @name
  type: (interface_type)) @interface
`

const typescriptQuery = `
(function_declaration
  name: (_) @name) @function

(class_declaration
  name: (_) @name) @class

(abstract_class_declaration
  name: (_) @name) @class

(method_definition
  name: (_) @name) @method

(interface_declaration
  name: (_) @name) @interface

(enum_declaration
  name: (_) @name) @enum

(type_alias_declaration
  name: (_) @name) @type
`

// Builtin returns the specs of every grammar shipped with dill.
// Headers are parsed as C++ since they are shared by both languages.
func Builtin() []Spec {
	return []Spec{
		{
			Name:       "c",
			Extensions: []string{".c"},
			Language:   func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_c.Language()) },
			Query:      cQuery,
		},
		{
			Name:       "cpp",
			Extensions: []string{".h", ".cpp", ".hpp", ".cc", ".cxx"},
			Language:   func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_cpp.Language()) },
			Query:      cppQuery,
		},
		{
			Name:       "go",
			Extensions: []string{".go"},
			Language:   func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_go.Language()) },
			Query:      goQuery,
		},
		{
			Name:       "typescript",
			Extensions: []string{".ts"},
			Language:   func() *tree_sitter.Language { return tree_sitter.NewLanguage(tstypes.LanguageTypescript()) },
			Query:      typescriptQuery,
		},
		{
			Name:       "tsx",
			Extensions: []string{".tsx"},
			Language:   func() *tree_sitter.Language { return tree_sitter.NewLanguage(tstypes.LanguageTSX()) },
			Query:      typescriptQuery,
		},
	}
}
