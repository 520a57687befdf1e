package telemetryfx

import (
	"context"

	"github.com/0x5457/dill/internal/config"
	"github.com/0x5457/dill/internal/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params represents dependencies for tracing
type Params struct {
	fx.In

	Config    *config.Config
	Logger    *zap.Logger
	Lifecycle fx.Lifecycle
}

// NewProvider installs tracing and flushes it on stop
func NewProvider(params Params) (*telemetry.Provider, error) {
	p, err := telemetry.Init(context.Background(), params.Config.Tracing)
	if err != nil {
		return nil, err
	}
	if p.Enabled() {
		params.Logger.Info("tracing enabled", zap.String("endpoint", params.Config.Tracing.Endpoint))
	}
	params.Lifecycle.Append(fx.Hook{OnStop: p.Shutdown})
	return p, nil
}

// Module provides tracing; it is invoked so spans are exported even when no
// component asks for the provider
var Module = fx.Module("telemetry",
	fx.Provide(NewProvider),
	fx.Invoke(func(*telemetry.Provider) {}),
)
