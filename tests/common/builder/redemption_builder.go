//go:build unit || e2e

package builder

import (
	"time"

	"redemption-guard/internal/domain/redemption"
	"redemption-guard/internal/usecase/commands"

	"github.com/google/uuid"
)

// BaseTime anchors timelines so tests never depend on the wall clock.
var BaseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type RedemptionBuilder struct {
	VoucherID  uuid.UUID
	CustomerID uuid.UUID
	ProviderID uuid.UUID
	Code       string
	RedeemedAt time.Time
	Location   *redemption.LatLng
	IsOffline  bool
	// Now is the server receipt time used for recordedAt and the skew check.
	Now time.Time
}

func NewRedemptionBuilder() *RedemptionBuilder {
	return &RedemptionBuilder{
		VoucherID:  uuid.New(),
		CustomerID: uuid.New(),
		ProviderID: uuid.New(),
		Code:       "CODE-" + uuid.NewString()[:8],
		RedeemedAt: BaseTime,
		Now:        BaseTime,
	}
}

func (b *RedemptionBuilder) With(mutate func(*RedemptionBuilder)) *RedemptionBuilder {
	mutate(b)
	return b
}

func (b *RedemptionBuilder) WithCode(code string) *RedemptionBuilder {
	b.Code = code
	return b
}

// At sets redeemedAt to BaseTime+offset.
func (b *RedemptionBuilder) At(offset time.Duration) *RedemptionBuilder {
	b.RedeemedAt = BaseTime.Add(offset)
	if b.Now.Before(b.RedeemedAt) {
		b.Now = b.RedeemedAt
	}
	return b
}

func (b *RedemptionBuilder) AtLocation(lat, lng float64) *RedemptionBuilder {
	b.Location = &redemption.LatLng{Lat: lat, Lng: lng}
	return b
}

func (b *RedemptionBuilder) ForCustomer(id uuid.UUID) *RedemptionBuilder {
	b.CustomerID = id
	return b
}

func (b *RedemptionBuilder) ForVoucher(id uuid.UUID) *RedemptionBuilder {
	b.VoucherID = id
	return b
}

func (b *RedemptionBuilder) AtProvider(id uuid.UUID) *RedemptionBuilder {
	b.ProviderID = id
	return b
}

func (b *RedemptionBuilder) Offline() *RedemptionBuilder {
	b.IsOffline = true
	return b
}

// Build methods
func (b *RedemptionBuilder) BuildDomain() (*redemption.Redemption, error) {
	return redemption.NewRedemption(b.input(), b.Now, time.Minute)
}

func (b *RedemptionBuilder) BuildRequest() commands.RecordRequest {
	return commands.RecordRequest{
		VoucherID:  b.VoucherID,
		CustomerID: b.CustomerID,
		ProviderID: b.ProviderID,
		Code:       b.Code,
		RedeemedAt: b.RedeemedAt,
		Location:   b.Location,
		IsOffline:  b.IsOffline,
	}
}

func (b *RedemptionBuilder) input() redemption.NewRedemptionInput {
	return redemption.NewRedemptionInput{
		VoucherID:  b.VoucherID,
		CustomerID: b.CustomerID,
		ProviderID: b.ProviderID,
		Code:       b.Code,
		RedeemedAt: b.RedeemedAt,
		Location:   b.Location,
		IsOffline:  b.IsOffline,
	}
}
