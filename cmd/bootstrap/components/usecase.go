package components

import (
	"redemption-guard/internal/domain/fraud"
	"redemption-guard/internal/pkg/clock"
	"redemption-guard/internal/pkg/config"
	"redemption-guard/internal/usecase/commands"
	"redemption-guard/internal/usecase/queries"

	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	usecaseBaseOption,
	usecaseQueriesModule,
	usecaseCommandsModule,
)

var usecaseBaseOption = fx.Provide(
	clock.NewRealClock,
	commands.NewSettings,
	func(cfg config.Config) *fraud.Detector {
		return fraud.NewDetector(commands.NewThresholds(cfg.Fraud))
	},
)

var usecaseCommandsModule = fx.Module("usecase/commands",
	fx.Provide(
		commands.NewFraudCaseUseCase,
		commands.NewDetectionPipeline,
		commands.NewRedemptionUseCase,
		commands.NewReconcileUseCase,
	),
)

var usecaseQueriesModule = fx.Module("usecase/queries",
	fx.Provide(
		queries.NewRedemptionQueries,
		queries.NewFraudCaseQueries,
	),
)
