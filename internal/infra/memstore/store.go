// Package memstore is an in-process implementation of the persistence ports.
// Transactions are serialized and rolled back by restoring a snapshot.
package memstore

import (
	"context"
	"maps"
	"slices"
	"sync"

	"redemption-guard/internal/domain/fraud"
	"redemption-guard/internal/domain/fraudcase"
	"redemption-guard/internal/domain/redemption"
	"redemption-guard/internal/usecase/shared"

	"github.com/google/uuid"
)

type counterKey struct {
	voucherID  uuid.UUID
	customerID uuid.UUID
}

type data struct {
	redemptions    map[uuid.UUID]*redemption.Redemption
	byCode         map[string]uuid.UUID
	voucherCounts  map[uuid.UUID]int
	customerCounts map[counterKey]int
	cases          map[uuid.UUID]*fraudcase.Case
	caseOrder      []uuid.UUID
	flagAudit      []shared.FlagAuditEntry
}

func newData() *data {
	return &data{
		redemptions:    map[uuid.UUID]*redemption.Redemption{},
		byCode:         map[string]uuid.UUID{},
		voucherCounts:  map[uuid.UUID]int{},
		customerCounts: map[counterKey]int{},
		cases:          map[uuid.UUID]*fraudcase.Case{},
	}
}

// clone copies the indexes. Redemptions are immutable and stored cases are
// private copies, so sharing the pointed-to values is safe.
func (d *data) clone() *data {
	return &data{
		redemptions:    maps.Clone(d.redemptions),
		byCode:         maps.Clone(d.byCode),
		voucherCounts:  maps.Clone(d.voucherCounts),
		customerCounts: maps.Clone(d.customerCounts),
		cases:          maps.Clone(d.cases),
		caseOrder:      slices.Clone(d.caseOrder),
		flagAudit:      slices.Clone(d.flagAudit),
	}
}

type Store struct {
	mu   sync.Mutex
	data *data
}

func New() *Store {
	return &Store{data: newData()}
}

// NewUnitOfWork exposes the store through the shared.UnitOfWork port.
func NewUnitOfWork(s *Store) shared.UnitOfWork {
	return s
}

func (s *Store) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(ctx, &memTx{store: s}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) Redemptions() shared.RedemptionWriteRepository {
	return &redemptionRepo{store: s}
}

func (s *Store) FraudCases() shared.FraudCaseWriteRepository {
	return &fraudCaseRepo{store: s}
}

// view runs fn under the store lock unless the caller already holds it.
func (s *Store) view(locked bool, fn func(d *data) error) error {
	if !locked {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(s.data)
}

type memTx struct {
	store *Store
}

func (t *memTx) Redemptions() shared.RedemptionWriteRepository {
	return &redemptionRepo{store: t.store, locked: true}
}

func (t *memTx) FraudCases() shared.FraudCaseWriteRepository {
	return &fraudCaseRepo{store: t.store, locked: true}
}

func cloneCase(c *fraudcase.Case) *fraudcase.Case {
	return fraudcase.ReconstructCase(
		c.ID(), c.CustomerID(), c.ProviderID(),
		c.RedemptionIDs(),
		c.Flags(),
		c.Status(),
		c.OpenedAt(),
		c.ReviewedBy(),
		c.ReviewedAt(), c.ResolvedAt(),
		c.Actions(),
		c.ReopenedFrom(),
		c.Version(),
	)
}

func cloneFlags(flags []fraud.Flag) []fraud.Flag {
	return slices.Clone(flags)
}
