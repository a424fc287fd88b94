package redemption

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Redemption is an append-only ledger entry. The only field that ever changes
// after creation is syncedAt, and only once.
type Redemption struct {
	id         uuid.UUID
	voucherID  uuid.UUID
	customerID uuid.UUID
	providerID uuid.UUID
	code       Code
	redeemedAt time.Time
	recordedAt time.Time
	location   Location
	isOffline  bool
	syncedAt   *time.Time
}

type NewRedemptionInput struct {
	VoucherID  uuid.UUID
	CustomerID uuid.UUID
	ProviderID uuid.UUID
	Code       string
	RedeemedAt time.Time
	Location   *LatLng
	IsOffline  bool
}

type LatLng struct {
	Lat float64
	Lng float64
}

func NewRedemption(in NewRedemptionInput, now time.Time, maxClockSkew time.Duration) (*Redemption, error) {
	if in.VoucherID == uuid.Nil || in.CustomerID == uuid.Nil || in.ProviderID == uuid.Nil {
		return nil, ErrMissingIdentifier
	}

	code, err := NewCode(in.Code)
	if err != nil {
		return nil, err
	}

	if in.RedeemedAt.IsZero() {
		return nil, ErrMissingRedeemedAt
	}
	if in.RedeemedAt.After(now.Add(maxClockSkew)) {
		return nil, ErrRedeemedInFuture
	}

	loc := NoLocation()
	if in.Location != nil {
		loc, err = NewLocation(in.Location.Lat, in.Location.Lng)
		if err != nil {
			return nil, err
		}
	}

	return &Redemption{
		id:         uuid.New(),
		voucherID:  in.VoucherID,
		customerID: in.CustomerID,
		providerID: in.ProviderID,
		code:       code,
		redeemedAt: in.RedeemedAt.UTC(),
		recordedAt: now.UTC(),
		location:   loc,
		isOffline:  in.IsOffline,
	}, nil
}

func ReconstructRedemption(
	id, voucherID, customerID, providerID uuid.UUID,
	code Code,
	redeemedAt, recordedAt time.Time,
	location Location,
	isOffline bool,
	syncedAt *time.Time,
) *Redemption {
	return &Redemption{
		id:         id,
		voucherID:  voucherID,
		customerID: customerID,
		providerID: providerID,
		code:       code,
		redeemedAt: redeemedAt,
		recordedAt: recordedAt,
		location:   location,
		isOffline:  isOffline,
		syncedAt:   syncedAt,
	}
}

// MarkSynced returns a copy stamped with the reconciliation time.
func (r *Redemption) MarkSynced(at time.Time) (*Redemption, error) {
	if r.syncedAt != nil {
		return nil, ErrAlreadySynced
	}
	cp := *r
	t := at.UTC()
	cp.syncedAt = &t
	return &cp, nil
}

// NeedsSync reports whether an offline redemption still awaits reconciliation.
func (r *Redemption) NeedsSync() bool {
	return r.isOffline && r.syncedAt == nil
}

// Precedes orders redemptions causally: by redeemedAt, then by id.
func (r *Redemption) Precedes(other *Redemption) bool {
	if !r.redeemedAt.Equal(other.redeemedAt) {
		return r.redeemedAt.Before(other.redeemedAt)
	}
	return r.id.String() < other.id.String()
}

func (r *Redemption) ID() uuid.UUID         { return r.id }
func (r *Redemption) VoucherID() uuid.UUID  { return r.voucherID }
func (r *Redemption) CustomerID() uuid.UUID { return r.customerID }
func (r *Redemption) ProviderID() uuid.UUID { return r.providerID }
func (r *Redemption) Code() Code            { return r.code }
func (r *Redemption) RedeemedAt() time.Time { return r.redeemedAt }
func (r *Redemption) RecordedAt() time.Time { return r.recordedAt }
func (r *Redemption) Location() Location    { return r.location }
func (r *Redemption) IsOffline() bool       { return r.isOffline }
func (r *Redemption) SyncedAt() *time.Time  { return r.syncedAt }

// SortCausal sorts in place into causal order.
func SortCausal(rs []*Redemption) {
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].Precedes(rs[j]) })
}
