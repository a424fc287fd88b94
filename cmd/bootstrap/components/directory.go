package components

import (
	"redemption-guard/internal/infra/directory"
	"redemption-guard/internal/infra/lock"
	"redemption-guard/internal/pkg/config"
	"redemption-guard/internal/pkg/errs"
	"redemption-guard/internal/usecase/shared"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
)

// DirectoryModule provides the collaborators the core consults but does not
// own: voucher limits, provider locations and the per-customer lock.
var DirectoryModule = fx.Module("directory",
	fx.Provide(
		fx.Annotate(
			directory.NewVoucherCatalog,
			fx.As(new(shared.VoucherLimitsProvider)),
		),
		directory.NewProviderRegistry,
		fx.Annotate(
			NewProviderLocations,
			fx.As(new(shared.ProviderLocationProvider)),
		),
		NewPartitionLocker,
	),
)

func NewProviderLocations(registry *directory.ProviderRegistry, cfg config.Config) *directory.CachedProviders {
	return directory.NewCachedProviders(registry, cfg.Directory.CacheSize, cfg.Directory.CacheTTL, cfg.Redemption.LookupTimeout)
}

func NewPartitionLocker(cfg config.Config, pool *pgxpool.Pool) (shared.PartitionLocker, error) {
	switch cfg.Lock.Backend {
	case config.LockBackendMemory:
		return lock.NewKeyedMutex(), nil
	case config.LockBackendPostgres:
		return lock.NewAdvisoryLocker(pool), nil
	default:
		return nil, errs.Newf("unknown LOCK_BACKEND %q", cfg.Lock.Backend)
	}
}
