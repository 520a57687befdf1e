package loggingfx

import (
	"context"

	"github.com/0x5457/dill/internal/config"
	"github.com/0x5457/dill/internal/logging"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Params represents dependencies for the logger
type Params struct {
	fx.In

	Config    *config.Config
	Lifecycle fx.Lifecycle
}

// NewLogger creates the application logger and flushes it on stop
func NewLogger(params Params) (*zap.Logger, error) {
	log, err := logging.New(params.Config.Log)
	if err != nil {
		return nil, err
	}
	params.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			// stderr cannot be synced on some platforms
			_ = log.Sync()
			return nil
		},
	})
	return log, nil
}

// Module provides the logger and routes fx's own events through it
var Module = fx.Module("logging",
	fx.Provide(NewLogger),
	fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
		l := &fxevent.ZapLogger{Logger: log.Named("fx")}
		l.UseLogLevel(zapcore.DebugLevel)
		return l
	}),
)
