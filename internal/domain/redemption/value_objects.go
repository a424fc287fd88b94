package redemption

import (
	"strings"
	"time"

	"redemption-guard/internal/pkg/geo"
)

const MaxCodeLength = 128

type Code struct {
	value string
}

func NewCode(s string) (Code, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return Code{}, ErrEmptyCode
	}
	if len(t) > MaxCodeLength {
		return Code{}, ErrCodeTooLong
	}
	return Code{value: t}, nil
}

func (c Code) String() string { return c.value }

// Location is optional on a redemption; the zero value means "not reported".
type Location struct {
	point geo.Point
	valid bool
}

func NewLocation(lat, lng float64) (Location, error) {
	p, err := geo.NewPoint(lat, lng)
	if err != nil {
		return Location{}, ErrInvalidLocation
	}
	return Location{point: p, valid: true}, nil
}

func NoLocation() Location { return Location{} }

func (l Location) Point() (geo.Point, bool) { return l.point, l.valid }
func (l Location) IsSet() bool              { return l.valid }

// Limits is the catalog configuration a redemption is checked against.
type Limits struct {
	MaxRedemptions        int
	MaxRedemptionsPerUser int
	ValidFrom             *time.Time
	ValidTo               *time.Time
}

func (l Limits) IsValidAt(t time.Time) bool {
	if l.ValidFrom != nil && t.Before(*l.ValidFrom) {
		return false
	}
	if l.ValidTo != nil && t.After(*l.ValidTo) {
		return false
	}
	return true
}

type LimitScope string

const (
	ScopeVoucher LimitScope = "voucher"
	ScopePerUser LimitScope = "per_user"
)

func (s LimitScope) String() string { return string(s) }
