package components

import (
	"redemption-guard/internal/infra/uow"

	"go.uber.org/fx"
)

// RepositoryModule provides the write side. Repositories are reached through
// the unit of work so detection always reads the primary.
var RepositoryModule = fx.Module("repository",
	fx.Provide(
		uow.NewPostgresUoW,
	),
)
