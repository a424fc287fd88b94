package bootstrap

import (
	"log/slog"

	"redemption-guard/internal/handler/middleware"
	"redemption-guard/internal/pkg/config"

	"go.uber.org/fx"
)

var LoggerModule = fx.Module("logger",
	fx.Provide(
		NewLogger,
	),
	fx.Invoke(func(*slog.Logger) {}),
)

// NewLogger also installs the logger as the slog default used by the core.
func NewLogger(cfg config.Config) *slog.Logger {
	return middleware.NewLogger(cfg.Log).GetSlogLogger()
}
