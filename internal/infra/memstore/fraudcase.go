package memstore

import (
	"context"
	"slices"
	"sort"

	"redemption-guard/internal/domain/fraud"
	"redemption-guard/internal/domain/fraudcase"
	"redemption-guard/internal/infra"
	"redemption-guard/internal/usecase/queries"
	"redemption-guard/internal/usecase/shared"

	"github.com/google/uuid"
)

type fraudCaseRepo struct {
	store  *Store
	locked bool
}

func (r *fraudCaseRepo) Create(_ context.Context, c *fraudcase.Case) error {
	return r.store.view(r.locked, func(d *data) error {
		if _, ok := d.cases[c.ID()]; ok {
			return infra.NewRepoErr(infra.KindDuplicateKey, "fraud case already exists: "+c.ID().String())
		}
		d.cases[c.ID()] = cloneCase(c)
		d.caseOrder = append(d.caseOrder, c.ID())
		return nil
	})
}

func (r *fraudCaseRepo) Update(_ context.Context, c *fraudcase.Case, expectedVersion int64) error {
	return r.store.view(r.locked, func(d *data) error {
		stored, ok := d.cases[c.ID()]
		if !ok {
			return infra.NewRepoErr(infra.KindNotFound, "fraud case not found: "+c.ID().String())
		}
		if stored.Version() != expectedVersion {
			return infra.NewRepoErr(infra.KindVersionConflict, "fraud case was modified concurrently")
		}
		d.cases[c.ID()] = cloneCase(c)
		return nil
	})
}

func (r *fraudCaseRepo) FindByID(_ context.Context, id uuid.UUID) (*fraudcase.Case, error) {
	var found *fraudcase.Case
	err := r.store.view(r.locked, func(d *data) error {
		c, ok := d.cases[id]
		if !ok {
			return infra.NewRepoErr(infra.KindNotFound, "fraud case not found: "+id.String())
		}
		found = cloneCase(c)
		return nil
	})
	return found, err
}

// FindOpenCaseForCustomer picks the oldest active overlapping case.
func (r *fraudCaseRepo) FindOpenCaseForCustomer(_ context.Context, customerID uuid.UUID, types []fraud.FlagType) (*fraudcase.Case, error) {
	var found *fraudcase.Case
	err := r.store.view(r.locked, func(d *data) error {
		for _, id := range d.caseOrder {
			c := d.cases[id]
			if c.CustomerID() == customerID && c.Status().IsActive() && c.Overlaps(types) {
				found = cloneCase(c)
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (r *fraudCaseRepo) RecordFlags(_ context.Context, entry shared.FlagAuditEntry) error {
	return r.store.view(r.locked, func(d *data) error {
		logged := recordedTypes(d, entry.RedemptionID)
		var flags []fraud.Flag
		for _, f := range entry.Flags {
			if !slices.Contains(logged, f.Type) {
				flags = append(flags, f)
				logged = append(logged, f.Type)
			}
		}
		if len(flags) == 0 {
			return nil
		}
		entry.Flags = cloneFlags(flags)
		d.flagAudit = append(d.flagAudit, entry)
		return nil
	})
}

func (r *fraudCaseRepo) RecordedFlagTypes(_ context.Context, redemptionID uuid.UUID) ([]fraud.FlagType, error) {
	var types []fraud.FlagType
	err := r.store.view(r.locked, func(d *data) error {
		types = recordedTypes(d, redemptionID)
		return nil
	})
	return types, err
}

func recordedTypes(d *data, redemptionID uuid.UUID) []fraud.FlagType {
	var types []fraud.FlagType
	for _, e := range d.flagAudit {
		if e.RedemptionID != redemptionID {
			continue
		}
		for _, f := range e.Flags {
			if !slices.Contains(types, f.Type) {
				types = append(types, f.Type)
			}
		}
	}
	return types
}

// FlagAudit returns a copy of the audit log in insertion order.
func (s *Store) FlagAudit() []shared.FlagAuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.data.flagAudit)
}

// FraudCaseReadStore serves case queries from the same in-memory state.
type FraudCaseReadStore struct {
	store *Store
}

func NewFraudCaseReadStore(s *Store) *FraudCaseReadStore {
	return &FraudCaseReadStore{store: s}
}

func (r *FraudCaseReadStore) FindByID(_ context.Context, id uuid.UUID) (*queries.CaseView, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	c, ok := r.store.data.cases[id]
	if !ok {
		return nil, infra.NewRepoErr(infra.KindNotFound, "fraud case not found: "+id.String())
	}
	return queries.NewCaseView(c), nil
}

// List returns cases newest first.
func (r *FraudCaseReadStore) List(_ context.Context, f queries.CaseFilter, page, limit int) (*queries.Page[*queries.CaseView], error) {
	r.store.mu.Lock()
	var all []*queries.CaseView
	for _, id := range r.store.data.caseOrder {
		c := r.store.data.cases[id]
		switch {
		case f.CustomerID != nil && c.CustomerID() != *f.CustomerID:
			continue
		case f.Status != nil && c.Status() != *f.Status:
			continue
		case f.From != nil && c.OpenedAt().Before(*f.From):
			continue
		case f.To != nil && !c.OpenedAt().Before(*f.To):
			continue
		}
		all = append(all, queries.NewCaseView(c))
	}
	r.store.mu.Unlock()

	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].OpenedAt.Equal(all[j].OpenedAt) {
			return all[i].OpenedAt.After(all[j].OpenedAt)
		}
		return all[i].ID.String() > all[j].ID.String()
	})

	total := len(all)
	start := min(queries.Offset(page, limit), total)
	end := min(start+limit, total)
	return queries.NewPage(all[start:end], page, limit, total), nil
}

func (r *FraudCaseReadStore) Statistics(_ context.Context, q queries.StatisticsQuery) (*queries.StatisticsResult, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	res := queries.NewStatisticsResult(q)
	for _, e := range r.store.data.flagAudit {
		if !q.Contains(e.RecordedAt) {
			continue
		}
		for _, f := range e.Flags {
			if !q.MatchesFlag(f) {
				continue
			}
			res.TotalFlags++
			res.FlagsByType[f.Type]++
			res.FlagsBySeverity[f.Severity]++
		}
	}
	for _, id := range r.store.data.caseOrder {
		c := r.store.data.cases[id]
		if !q.Contains(c.OpenedAt()) {
			continue
		}
		if !slices.ContainsFunc(c.Flags(), q.MatchesFlag) {
			continue
		}
		res.CasesOpened++
		res.CasesByStatus[c.Status()]++
	}
	return res, nil
}
