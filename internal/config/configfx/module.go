package configfx

import (
	"github.com/0x5457/dill/internal/config"
	"github.com/spf13/pflag"
	"go.uber.org/fx"
)

// Params represents the parameters needed to create configuration
type Params struct {
	fx.In

	Path  string         `name:"configPath" optional:"true"`
	Flags *pflag.FlagSet `optional:"true"`
}

// NewConfig loads configuration from the supplied file and flags
func NewConfig(params Params) (*config.Config, error) {
	return config.Load(params.Path, params.Flags)
}

// Module provides configuration for the application
var Module = fx.Module("config",
	fx.Provide(NewConfig),
)
