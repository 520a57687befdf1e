package appfx

import (
	"github.com/0x5457/dill/cmd/cmdsfx"
	"github.com/0x5457/dill/internal/config/configfx"
	"github.com/0x5457/dill/internal/embeddings/embeddingsfx"
	"github.com/0x5457/dill/internal/indexer/indexerfx"
	"github.com/0x5457/dill/internal/logging/loggingfx"
	"github.com/0x5457/dill/internal/mcp/mcpfx"
	"github.com/0x5457/dill/internal/parser/parserfx"
	"github.com/0x5457/dill/internal/search/searchfx"
	"github.com/0x5457/dill/internal/storage/storagefx"
	"github.com/0x5457/dill/internal/telemetry/telemetryfx"
	"github.com/spf13/pflag"
	"go.uber.org/fx"
)

// Module combines all application modules
var Module = fx.Options(
	configfx.Module,
	loggingfx.Module,
	telemetryfx.Module,
	parserfx.Module,
	embeddingsfx.Module,
	storagefx.Module,
	searchfx.Module,
	indexerfx.Module,
	mcpfx.Module,
	cmdsfx.Module,
)

// NewAppWithConfig creates an Fx app reading the config file at path, with
// flags overriding it. Extra options are appended, typically an fx.Invoke
// running one command.
func NewAppWithConfig(path string, flags *pflag.FlagSet, opts ...fx.Option) *fx.App {
	supplied := []fx.Option{Module}
	if path != "" {
		supplied = append(supplied, fx.Supply(fx.Annotate(path, fx.ResultTags(`name:"configPath"`))))
	}
	if flags != nil {
		supplied = append(supplied, fx.Supply(flags))
	}
	return fx.New(append(supplied, opts...)...)
}

// NewApp creates an Fx app with default configuration
func NewApp(opts ...fx.Option) *fx.App {
	return NewAppWithConfig("", nil, opts...)
}
