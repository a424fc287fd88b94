//go:build unit

package geo_test

import (
	"math"
	"testing"
	"time"

	"redemption-guard/internal/pkg/geo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPoint(t *testing.T) {
	tests := []struct {
		name    string
		lat     float64
		lng     float64
		wantErr bool
	}{
		{name: "origin", lat: 0, lng: 0},
		{name: "poles and antimeridian", lat: -90, lng: 180},
		{name: "latitude too high", lat: 90.0001, lng: 0, wantErr: true},
		{name: "longitude too low", lat: 0, lng: -180.5, wantErr: true},
		{name: "NaN", lat: math.NaN(), lng: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := geo.NewPoint(tt.lat, tt.lng)
			if tt.wantErr {
				assert.ErrorIs(t, err, geo.ErrInvalidCoordinate)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDistanceKm(t *testing.T) {
	paris := geo.Point{Lat: 48.8566, Lng: 2.3522}
	london := geo.Point{Lat: 51.5074, Lng: -0.1278}

	t.Run("same point", func(t *testing.T) {
		assert.Zero(t, geo.DistanceKm(paris, paris))
	})

	t.Run("paris to london", func(t *testing.T) {
		d := geo.DistanceKm(paris, london)
		assert.InDelta(t, 343.5, d, 1.0)
	})

	t.Run("symmetric", func(t *testing.T) {
		assert.InDelta(t, geo.DistanceKm(paris, london), geo.DistanceKm(london, paris), 1e-9)
	})

	t.Run("antipodal points stay finite", func(t *testing.T) {
		d := geo.DistanceKm(geo.Point{Lat: 0, Lng: 0}, geo.Point{Lat: 0, Lng: 180})
		require.False(t, math.IsNaN(d))
		assert.InDelta(t, math.Pi*geo.EarthRadiusKm, d, 0.01)
	})
}

func TestImpliedSpeedKmh(t *testing.T) {
	assert.InDelta(t, 30000.0, geo.ImpliedSpeedKmh(500, time.Minute), 1e-6)
	assert.InDelta(t, 50.0, geo.ImpliedSpeedKmh(500, 10*time.Hour), 1e-9)
	assert.Zero(t, geo.ImpliedSpeedKmh(0, 0))
	assert.True(t, math.IsInf(geo.ImpliedSpeedKmh(1, 0), 1))
	assert.True(t, math.IsInf(geo.ImpliedSpeedKmh(1, -time.Second), 1))
}
