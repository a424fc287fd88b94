package bootstrap

import (
	"redemption-guard/internal/infra/metrics"
	"redemption-guard/internal/usecase/shared"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
)

var MetricsModule = fx.Module("metrics",
	fx.Provide(
		NewRegistry,
		fx.Annotate(
			NewObserver,
			fx.As(new(shared.Observer)),
		),
	),
)

func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func NewObserver(reg *prometheus.Registry) (*metrics.PrometheusObserver, error) {
	return metrics.NewPrometheusObserver(reg)
}
