package parserfx

import (
	"context"

	"github.com/0x5457/dill/internal/parser"
	"github.com/0x5457/dill/internal/parser/grammar"
	"github.com/0x5457/dill/internal/parser/tsparser"
	"go.uber.org/fx"
)

// NewRegistry compiles the built-in grammars and releases their queries on stop.
func NewRegistry(lc fx.Lifecycle) (*grammar.Registry, error) {
	reg, err := grammar.Default()
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			reg.Close()
			return nil
		},
	})
	return reg, nil
}

// NewExtractor creates the tree-sitter symbol extractor.
func NewExtractor(reg *grammar.Registry) parser.Extractor {
	return tsparser.New(reg)
}

// Module provides parser components
var Module = fx.Module("parser",
	fx.Provide(NewRegistry, NewExtractor),
)
