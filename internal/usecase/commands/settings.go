package commands

import (
	"context"
	"time"

	"redemption-guard/internal/domain/fraud"
	"redemption-guard/internal/pkg/config"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("redemption-guard/usecase/commands")

// Settings are the runtime tunables of the command side.
type Settings struct {
	HistoryLookback  time.Duration
	LookupTimeout    time.Duration
	DetectionTimeout time.Duration
	MaxClockSkew     time.Duration
	AttachMaxRetries int
	ReconcileWorkers int
}

func NewSettings(cfg config.Config) Settings {
	return Settings{
		HistoryLookback:  cfg.Fraud.HistoryLookback,
		LookupTimeout:    cfg.Redemption.LookupTimeout,
		DetectionTimeout: cfg.Redemption.DetectionTimeout,
		MaxClockSkew:     cfg.Redemption.MaxClockSkew,
		AttachMaxRetries: cfg.Fraud.AttachMaxRetries,
		ReconcileWorkers: cfg.Reconcile.Workers,
	}
}

func NewThresholds(cfg config.FraudConfig) fraud.Thresholds {
	return fraud.Thresholds{
		VelocityWindow:        cfg.VelocityWindow,
		VelocityLimit:         cfg.VelocityLimit,
		RapidInterval:         cfg.RapidInterval,
		MaxSpeedKmh:           cfg.MaxSpeedKmh,
		MaxProviderDistanceKm: cfg.MaxProviderDistanceKm,
		LocationJitterKm:      cfg.LocationJitterKm,
	}
}

// lookbackFor widens the history window so every time-based signal sees the
// predecessors it needs.
func lookbackFor(s Settings, t fraud.Thresholds) time.Duration {
	return max(s.HistoryLookback, t.VelocityWindow, t.RapidInterval)
}

// withTimeout bounds ctx by d; a non-positive d leaves it unbounded.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
