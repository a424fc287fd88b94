package memstore

import (
	"context"
	"sync"

	"redemption-guard/internal/domain/redemption"
	"redemption-guard/internal/infra"
	"redemption-guard/internal/usecase/shared"

	"github.com/google/uuid"
)

// Directory is a static voucher catalog and provider registry.
type Directory struct {
	mu        sync.RWMutex
	limits    map[uuid.UUID]redemption.Limits
	providers map[uuid.UUID]shared.ProviderProfile
}

func NewDirectory() *Directory {
	return &Directory{
		limits:    map[uuid.UUID]redemption.Limits{},
		providers: map[uuid.UUID]shared.ProviderProfile{},
	}
}

func (d *Directory) PutVoucher(voucherID uuid.UUID, l redemption.Limits) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.limits[voucherID] = l
}

func (d *Directory) PutProvider(p shared.ProviderProfile) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.providers[p.ID] = p
}

func (d *Directory) GetLimits(_ context.Context, voucherID uuid.UUID) (redemption.Limits, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	l, ok := d.limits[voucherID]
	if !ok {
		return redemption.Limits{}, infra.NewRepoErr(infra.KindNotFound, "voucher not found: "+voucherID.String())
	}
	return l, nil
}

func (d *Directory) GetProvider(_ context.Context, providerID uuid.UUID) (*shared.ProviderProfile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.providers[providerID]
	if !ok {
		return nil, infra.NewRepoErr(infra.KindNotFound, "provider not found: "+providerID.String())
	}
	return &p, nil
}
