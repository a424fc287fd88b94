package queries

import (
	"context"
	"time"

	"redemption-guard/internal/domain/redemption"

	"github.com/google/uuid"
)

type RedemptionView struct {
	ID         uuid.UUID  `json:"id"`
	VoucherID  uuid.UUID  `json:"voucher_id"`
	CustomerID uuid.UUID  `json:"customer_id"`
	ProviderID uuid.UUID  `json:"provider_id"`
	Code       string     `json:"code"`
	RedeemedAt time.Time  `json:"redeemed_at"`
	RecordedAt time.Time  `json:"recorded_at"`
	Lat        *float64   `json:"lat,omitempty"`
	Lng        *float64   `json:"lng,omitempty"`
	IsOffline  bool       `json:"is_offline"`
	SyncedAt   *time.Time `json:"synced_at,omitempty"`
}

func NewRedemptionView(r *redemption.Redemption) *RedemptionView {
	v := &RedemptionView{
		ID:         r.ID(),
		VoucherID:  r.VoucherID(),
		CustomerID: r.CustomerID(),
		ProviderID: r.ProviderID(),
		Code:       r.Code().String(),
		RedeemedAt: r.RedeemedAt(),
		RecordedAt: r.RecordedAt(),
		IsOffline:  r.IsOffline(),
		SyncedAt:   r.SyncedAt(),
	}
	if p, ok := r.Location().Point(); ok {
		lat, lng := p.Lat, p.Lng
		v.Lat, v.Lng = &lat, &lng
	}
	return v
}

type RedemptionFilter struct {
	VoucherID  *uuid.UUID
	CustomerID *uuid.UUID
	ProviderID *uuid.UUID
	From       *time.Time
	To         *time.Time
	IsOffline  *bool
	// Unsynced restricts results to offline redemptions awaiting reconciliation.
	Unsynced bool
}

type RedemptionSortField string

const (
	SortByRedeemedAt RedemptionSortField = "redeemed_at"
	SortByRecordedAt RedemptionSortField = "recorded_at"
)

func (f RedemptionSortField) IsValid() bool {
	return f == SortByRedeemedAt || f == SortByRecordedAt
}

type RedemptionReadStore interface {
	HistoryByCustomer(ctx context.Context, customerID uuid.UUID, since time.Time) ([]*RedemptionView, error)
	HistoryByProvider(ctx context.Context, providerID uuid.UUID, since time.Time) ([]*RedemptionView, error)
	Search(ctx context.Context, filter RedemptionFilter, page, limit int, sortBy RedemptionSortField, order SortOrder) (*Page[*RedemptionView], error)
}

type RedemptionQueries interface {
	CustomerHistory(ctx context.Context, customerID uuid.UUID, since time.Time) ([]*RedemptionView, error)
	ProviderHistory(ctx context.Context, providerID uuid.UUID, since time.Time) ([]*RedemptionView, error)
	Search(ctx context.Context, filter RedemptionFilter, page, limit int, sortBy RedemptionSortField, order SortOrder) (*Page[*RedemptionView], error)
}

type redemptionQueriesImpl struct {
	repo RedemptionReadStore
}

func NewRedemptionQueries(repo RedemptionReadStore) RedemptionQueries {
	return &redemptionQueriesImpl{repo: repo}
}

func (q *redemptionQueriesImpl) CustomerHistory(ctx context.Context, customerID uuid.UUID, since time.Time) ([]*RedemptionView, error) {
	return q.repo.HistoryByCustomer(ctx, customerID, since)
}

func (q *redemptionQueriesImpl) ProviderHistory(ctx context.Context, providerID uuid.UUID, since time.Time) ([]*RedemptionView, error) {
	return q.repo.HistoryByProvider(ctx, providerID, since)
}

func (q *redemptionQueriesImpl) Search(ctx context.Context, filter RedemptionFilter, page, limit int, sortBy RedemptionSortField, order SortOrder) (*Page[*RedemptionView], error) {
	if sortBy == "" {
		sortBy = SortByRedeemedAt
	}
	if order == "" {
		order = SortDesc
	}
	if !sortBy.IsValid() || !order.IsValid() {
		return nil, ErrInvalidSort
	}
	page, err := ValidatePage(page)
	if err != nil {
		return nil, err
	}
	return q.repo.Search(ctx, filter, page, ValidateLimit(limit), sortBy, order)
}
