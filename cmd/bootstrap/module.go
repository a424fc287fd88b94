package bootstrap

import (
	"redemption-guard/cmd/bootstrap/components"

	"go.uber.org/fx"
)

// CoreModule wires the redemption core without any HTTP surface.
var CoreModule = fx.Options(
	ConfigModule,
	LoggerModule,
	TracingModule,
	DBModule,
	MetricsModule,
	components.PersistenceModule,
	components.RepositoryModule,
	components.DirectoryModule,
	components.UseCaseModule,
)

var Module = fx.Options(
	CoreModule,
	components.HandlerModule,
)
