package memstore

import (
	"context"
	"sort"
	"time"

	"redemption-guard/internal/domain/redemption"
	"redemption-guard/internal/infra"
	"redemption-guard/internal/usecase/queries"

	"github.com/google/uuid"
)

type redemptionRepo struct {
	store  *Store
	locked bool
}

func (r *redemptionRepo) FindByCode(_ context.Context, code string) (*redemption.Redemption, error) {
	var found *redemption.Redemption
	err := r.store.view(r.locked, func(d *data) error {
		if id, ok := d.byCode[code]; ok {
			found = d.redemptions[id]
		}
		return nil
	})
	return found, err
}

func (r *redemptionRepo) InsertIfAbsent(_ context.Context, red *redemption.Redemption) (*redemption.Redemption, bool, error) {
	var (
		stored *redemption.Redemption
		wasNew bool
	)
	err := r.store.view(r.locked, func(d *data) error {
		code := red.Code().String()
		if id, ok := d.byCode[code]; ok {
			stored = d.redemptions[id]
			return nil
		}
		d.redemptions[red.ID()] = red
		d.byCode[code] = red.ID()
		stored, wasNew = red, true
		return nil
	})
	return stored, wasNew, err
}

func (r *redemptionRepo) IncrementAndCheck(_ context.Context, voucherID, customerID uuid.UUID, limits redemption.Limits) error {
	return r.store.view(r.locked, func(d *data) error {
		key := counterKey{voucherID: voucherID, customerID: customerID}
		if d.voucherCounts[voucherID] >= limits.MaxRedemptions {
			return &redemption.LimitExceededError{
				Scope: redemption.ScopeVoucher, VoucherID: voucherID, CustomerID: customerID, Limit: limits.MaxRedemptions,
			}
		}
		if d.customerCounts[key] >= limits.MaxRedemptionsPerUser {
			return &redemption.LimitExceededError{
				Scope: redemption.ScopePerUser, VoucherID: voucherID, CustomerID: customerID, Limit: limits.MaxRedemptionsPerUser,
			}
		}
		d.voucherCounts[voucherID]++
		d.customerCounts[key]++
		return nil
	})
}

func (r *redemptionRepo) HistoryForCustomer(_ context.Context, customerID uuid.UUID, since time.Time) ([]*redemption.Redemption, error) {
	var out []*redemption.Redemption
	err := r.store.view(r.locked, func(d *data) error {
		for _, red := range d.redemptions {
			if red.CustomerID() == customerID && !red.RedeemedAt().Before(since) {
				out = append(out, red)
			}
		}
		return nil
	})
	redemption.SortCausal(out)
	return out, err
}

func (r *redemptionRepo) MarkSynced(_ context.Context, ids []uuid.UUID, at time.Time) error {
	return r.store.view(r.locked, func(d *data) error {
		for _, id := range ids {
			red, ok := d.redemptions[id]
			if !ok {
				return infra.NewRepoErr(infra.KindNotFound, "redemption not found: "+id.String())
			}
			synced, err := red.MarkSynced(at)
			if err != nil {
				// already synced: stamping is idempotent
				continue
			}
			d.redemptions[id] = synced
		}
		return nil
	})
}

// Count returns the persisted voucher-wide and per-customer counters.
func (s *Store) Count(voucherID, customerID uuid.UUID) (voucher, perUser int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.voucherCounts[voucherID], s.data.customerCounts[counterKey{voucherID: voucherID, customerID: customerID}]
}

// RedemptionReadStore serves the query side from the same in-memory state.
type RedemptionReadStore struct {
	store *Store
}

func NewRedemptionReadStore(s *Store) *RedemptionReadStore {
	return &RedemptionReadStore{store: s}
}

func (r *RedemptionReadStore) HistoryByCustomer(_ context.Context, customerID uuid.UUID, since time.Time) ([]*queries.RedemptionView, error) {
	return r.collect(func(red *redemption.Redemption) bool {
		return red.CustomerID() == customerID && !red.RedeemedAt().Before(since)
	}), nil
}

func (r *RedemptionReadStore) HistoryByProvider(_ context.Context, providerID uuid.UUID, since time.Time) ([]*queries.RedemptionView, error) {
	return r.collect(func(red *redemption.Redemption) bool {
		return red.ProviderID() == providerID && !red.RedeemedAt().Before(since)
	}), nil
}

func (r *RedemptionReadStore) Search(_ context.Context, f queries.RedemptionFilter, page, limit int, sortBy queries.RedemptionSortField, order queries.SortOrder) (*queries.Page[*queries.RedemptionView], error) {
	all := r.collect(func(red *redemption.Redemption) bool { return matches(f, red) })

	key := func(v *queries.RedemptionView) time.Time {
		if sortBy == queries.SortByRecordedAt {
			return v.RecordedAt
		}
		return v.RedeemedAt
	}
	sort.SliceStable(all, func(i, j int) bool {
		ki, kj := key(all[i]), key(all[j])
		if !ki.Equal(kj) {
			if order == queries.SortAsc {
				return ki.Before(kj)
			}
			return ki.After(kj)
		}
		if order == queries.SortAsc {
			return all[i].ID.String() < all[j].ID.String()
		}
		return all[i].ID.String() > all[j].ID.String()
	})

	total := len(all)
	start := min(queries.Offset(page, limit), total)
	end := min(start+limit, total)
	return queries.NewPage(all[start:end], page, limit, total), nil
}

// collect returns matching views in causal order.
func (r *RedemptionReadStore) collect(pred func(*redemption.Redemption) bool) []*queries.RedemptionView {
	r.store.mu.Lock()
	var rs []*redemption.Redemption
	for _, red := range r.store.data.redemptions {
		if pred(red) {
			rs = append(rs, red)
		}
	}
	r.store.mu.Unlock()

	redemption.SortCausal(rs)
	out := make([]*queries.RedemptionView, 0, len(rs))
	for _, red := range rs {
		out = append(out, queries.NewRedemptionView(red))
	}
	return out
}

func matches(f queries.RedemptionFilter, r *redemption.Redemption) bool {
	switch {
	case f.VoucherID != nil && r.VoucherID() != *f.VoucherID:
		return false
	case f.CustomerID != nil && r.CustomerID() != *f.CustomerID:
		return false
	case f.ProviderID != nil && r.ProviderID() != *f.ProviderID:
		return false
	case f.From != nil && r.RedeemedAt().Before(*f.From):
		return false
	case f.To != nil && !r.RedeemedAt().Before(*f.To):
		return false
	case f.IsOffline != nil && r.IsOffline() != *f.IsOffline:
		return false
	case f.Unsynced && !r.NeedsSync():
		return false
	}
	return true
}
