package components

import (
	"redemption-guard/internal/handler"
	"redemption-guard/internal/handler/api"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		func(pool *pgxpool.Pool) api.Pinger { return pool },
		api.NewHealthHandler,
	),
	fx.Invoke(handler.NewRouter),
)
