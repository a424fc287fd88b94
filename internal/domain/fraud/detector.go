package fraud

import (
	"fmt"
	"math"
	"time"

	"redemption-guard/internal/domain/redemption"
	"redemption-guard/internal/pkg/geo"
	"redemption-guard/internal/pkg/slidingwindow"
)

// Thresholds are operator-supplied. A non-positive value disables its signal.
type Thresholds struct {
	VelocityWindow        time.Duration
	VelocityLimit         int
	RapidInterval         time.Duration
	MaxSpeedKmh           float64
	MaxProviderDistanceKm float64
	// Moves shorter than this are treated as GPS noise by the speed check.
	LocationJitterKm float64
}

// History is the evidence a redemption is judged against. The caller loads it;
// the detector never performs I/O.
type History struct {
	// Customer redemptions inside the lookback window, any voucher, any order.
	Customer         []*redemption.Redemption
	ProviderLocation *geo.Point
}

type Detector struct {
	thresholds Thresholds
}

func NewDetector(t Thresholds) *Detector {
	return &Detector{thresholds: t}
}

func (d *Detector) Thresholds() Thresholds { return d.thresholds }

// Evaluate returns every signal that fires for r, sorted by severity then type.
// Only history that causally precedes r is considered, so replaying a timeline
// in any arrival order yields the same flags as evaluating it live.
func (d *Detector) Evaluate(r *redemption.Redemption, h History) []Flag {
	prior := predecessors(r, h.Customer)

	var flags []Flag
	if f, ok := d.velocity(r, prior); ok {
		flags = append(flags, f)
	}

	var prev *redemption.Redemption
	if len(prior) > 0 {
		prev = prior[len(prior)-1]
	}
	if prev != nil {
		if f, ok := d.rapid(r, prev); ok {
			flags = append(flags, f)
		}
		if f, ok := d.locationAnomaly(r, prev); ok {
			flags = append(flags, f)
		}
	}
	if f, ok := d.distantLocation(r, h.ProviderLocation); ok {
		flags = append(flags, f)
	}

	SortFlags(flags)
	return flags
}

func (d *Detector) velocity(r *redemption.Redemption, prior []*redemption.Redemption) (Flag, bool) {
	limit := d.thresholds.VelocityLimit
	window := d.thresholds.VelocityWindow
	if limit <= 0 || window <= 0 {
		return Flag{}, false
	}

	ts := make([]time.Time, 0, len(prior)+1)
	for _, p := range prior {
		ts = append(ts, p.RedeemedAt())
	}
	ts = append(ts, r.RedeemedAt())

	count := slidingwindow.CountWithin(ts, r.RedeemedAt(), window)
	if count <= limit {
		return Flag{}, false
	}

	severity := SeverityMedium
	if float64(count) > 1.5*float64(limit) {
		severity = SeverityHigh
	}
	return Flag{
		Type:     FlagVelocity,
		Severity: severity,
		Message:  fmt.Sprintf("%d redemptions within %s exceeds limit of %d", count, window, limit),
		Details: map[string]any{
			"count":          count,
			"limit":          limit,
			"window_seconds": window.Seconds(),
		},
	}, true
}

func (d *Detector) rapid(r, prev *redemption.Redemption) (Flag, bool) {
	interval := d.thresholds.RapidInterval
	if interval <= 0 {
		return Flag{}, false
	}
	gap := r.RedeemedAt().Sub(prev.RedeemedAt())
	if gap >= interval {
		return Flag{}, false
	}
	return Flag{
		Type:     FlagRapidRedemption,
		Severity: SeverityHigh,
		Message:  fmt.Sprintf("redeemed %s after previous redemption (minimum %s)", gap, interval),
		Details: map[string]any{
			"elapsed_seconds":        gap.Seconds(),
			"min_interval_seconds":   interval.Seconds(),
			"previous_redemption_id": prev.ID().String(),
		},
	}, true
}

func (d *Detector) locationAnomaly(r, prev *redemption.Redemption) (Flag, bool) {
	maxSpeed := d.thresholds.MaxSpeedKmh
	if maxSpeed <= 0 {
		return Flag{}, false
	}
	cur, ok := r.Location().Point()
	if !ok {
		return Flag{}, false
	}
	last, ok := prev.Location().Point()
	if !ok {
		return Flag{}, false
	}

	distance := geo.DistanceKm(last, cur)
	if distance <= d.thresholds.LocationJitterKm {
		return Flag{}, false
	}
	elapsed := r.RedeemedAt().Sub(prev.RedeemedAt())
	speed := geo.ImpliedSpeedKmh(distance, elapsed)
	if speed <= maxSpeed {
		return Flag{}, false
	}

	details := map[string]any{
		"distance_km":            round2(distance),
		"elapsed_seconds":        elapsed.Seconds(),
		"max_speed_kmh":          maxSpeed,
		"previous_redemption_id": prev.ID().String(),
	}
	// +Inf does not survive JSON encoding of the details column
	if !math.IsInf(speed, 1) {
		details["speed_kmh"] = round2(speed)
	}
	return Flag{
		Type:     FlagLocationAnomaly,
		Severity: SeverityHigh,
		Message:  fmt.Sprintf("travelled %.1f km in %s, faster than %.0f km/h", distance, elapsed, maxSpeed),
		Details:  details,
	}, true
}

func (d *Detector) distantLocation(r *redemption.Redemption, provider *geo.Point) (Flag, bool) {
	maxDistance := d.thresholds.MaxProviderDistanceKm
	if maxDistance <= 0 || provider == nil {
		return Flag{}, false
	}
	cur, ok := r.Location().Point()
	if !ok {
		return Flag{}, false
	}

	distance := geo.DistanceKm(*provider, cur)
	if distance <= maxDistance {
		return Flag{}, false
	}
	severity := SeverityLow
	if distance > 2*maxDistance {
		severity = SeverityMedium
	}
	return Flag{
		Type:     FlagDistantLocation,
		Severity: severity,
		Message:  fmt.Sprintf("redeemed %.1f km from provider (limit %.0f km)", distance, maxDistance),
		Details: map[string]any{
			"distance_km":     round2(distance),
			"max_distance_km": maxDistance,
		},
	}, true
}

func predecessors(r *redemption.Redemption, history []*redemption.Redemption) []*redemption.Redemption {
	out := make([]*redemption.Redemption, 0, len(history))
	for _, h := range history {
		if h == nil || h.ID() == r.ID() || h.CustomerID() != r.CustomerID() {
			continue
		}
		if h.Precedes(r) {
			out = append(out, h)
		}
	}
	redemption.SortCausal(out)
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
