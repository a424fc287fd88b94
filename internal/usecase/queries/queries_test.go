//go:build unit

package queries_test

import (
	"context"
	"testing"
	"time"

	"redemption-guard/internal/domain/fraud"
	"redemption-guard/internal/domain/fraudcase"
	"redemption-guard/internal/domain/redemption"
	"redemption-guard/internal/infra/memstore"
	"redemption-guard/internal/pkg/errs"
	"redemption-guard/internal/usecase/queries"
	"redemption-guard/internal/usecase/shared"
	"redemption-guard/tests/common/builder"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type QueriesTestSuite struct {
	suite.Suite
	ctx   context.Context
	store *memstore.Store

	redemptions queries.RedemptionQueries
	cases       queries.FraudCaseQueries

	customer uuid.UUID
	provider uuid.UUID
}

func TestQueriesSuite(t *testing.T) {
	suite.Run(t, new(QueriesTestSuite))
}

func (s *QueriesTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memstore.New()
	s.redemptions = queries.NewRedemptionQueries(memstore.NewRedemptionReadStore(s.store))
	s.cases = queries.NewFraudCaseQueries(memstore.NewFraudCaseReadStore(s.store))
	s.customer = uuid.New()
	s.provider = uuid.New()
}

func (s *QueriesTestSuite) insert(rs ...*redemption.Redemption) {
	uow := memstore.NewUnitOfWork(s.store)
	s.Require().NoError(uow.Within(s.ctx, func(ctx context.Context, tx shared.Tx) error {
		for _, r := range rs {
			if _, _, err := tx.Redemptions().InsertIfAbsent(ctx, r); err != nil {
				return err
			}
		}
		return nil
	}))
}

func (s *QueriesTestSuite) redemption(offset time.Duration, offline bool) *redemption.Redemption {
	b := builder.NewRedemptionBuilder().ForCustomer(s.customer).AtProvider(s.provider).At(offset)
	if offline {
		b.Offline()
	}
	r, err := b.BuildDomain()
	s.Require().NoError(err)
	return r
}

func (s *QueriesTestSuite) TestCustomerHistory() {
	old := s.redemption(0, false)
	mid := s.redemption(time.Hour, false)
	recent := s.redemption(2*time.Hour, true)
	other, err := builder.NewRedemptionBuilder().At(time.Hour).BuildDomain()
	s.Require().NoError(err)
	s.insert(recent, old, other, mid)

	views, err := s.redemptions.CustomerHistory(s.ctx, s.customer, builder.BaseTime.Add(30*time.Minute))
	s.Require().NoError(err)
	s.Require().Len(views, 2)
	s.Equal(mid.ID(), views[0].ID, "causal order")
	s.Equal(recent.ID(), views[1].ID)
	s.True(views[1].IsOffline)

	byProvider, err := s.redemptions.ProviderHistory(s.ctx, s.provider, builder.BaseTime)
	s.Require().NoError(err)
	s.Len(byProvider, 3)
}

func (s *QueriesTestSuite) TestSearch() {
	var all []*redemption.Redemption
	for i := range 5 {
		all = append(all, s.redemption(time.Duration(i)*time.Minute, i%2 == 0))
	}
	s.insert(all...)

	s.Run("defaults to newest first", func() {
		page, err := s.redemptions.Search(s.ctx, queries.RedemptionFilter{CustomerID: &s.customer}, 0, 2, "", "")
		s.Require().NoError(err)
		s.Equal(1, page.Page)
		s.Equal(5, page.Total)
		s.True(page.HasNext)
		s.Require().Len(page.Items, 2)
		s.Equal(all[4].ID(), page.Items[0].ID)
		s.Equal(all[3].ID(), page.Items[1].ID)
	})

	s.Run("last page", func() {
		page, err := s.redemptions.Search(s.ctx, queries.RedemptionFilter{}, 3, 2, queries.SortByRedeemedAt, queries.SortAsc)
		s.Require().NoError(err)
		s.False(page.HasNext)
		s.Require().Len(page.Items, 1)
		s.Equal(all[4].ID(), page.Items[0].ID)
	})

	s.Run("unsynced offline only", func() {
		page, err := s.redemptions.Search(s.ctx, queries.RedemptionFilter{Unsynced: true}, 1, 10, "", "")
		s.Require().NoError(err)
		s.Equal(3, page.Total)
		for _, v := range page.Items {
			s.True(v.IsOffline)
			s.Nil(v.SyncedAt)
		}
	})

	s.Run("page past the end is empty", func() {
		page, err := s.redemptions.Search(s.ctx, queries.RedemptionFilter{}, 10, 10, "", "")
		s.Require().NoError(err)
		s.NotNil(page.Items)
		s.Empty(page.Items)
	})

	s.Run("invalid input", func() {
		_, err := s.redemptions.Search(s.ctx, queries.RedemptionFilter{}, 1, 10, "amount", "")
		s.ErrorIs(err, queries.ErrInvalidSort)

		_, err = s.redemptions.Search(s.ctx, queries.RedemptionFilter{}, -1, 10, "", "")
		s.ErrorIs(err, queries.ErrInvalidPage)
		s.True(errs.Is(err, errs.ErrValidation))
	})
}

func (s *QueriesTestSuite) seedCases() (open, resolved *fraudcase.Case) {
	open, err := builder.NewCaseBuilder().
		WithCustomer(s.customer).
		WithFlags(builder.Flag(fraud.FlagRapidRedemption, fraud.SeverityHigh)).
		BuildDomain()
	s.Require().NoError(err)
	resolved, err = builder.NewCaseBuilder().
		WithFlags(
			builder.Flag(fraud.FlagVelocity, fraud.SeverityMedium),
			builder.Flag(fraud.FlagDistantLocation, fraud.SeverityMedium),
		).
		BuildResolved()
	s.Require().NoError(err)

	uow := memstore.NewUnitOfWork(s.store)
	s.Require().NoError(uow.Within(s.ctx, func(ctx context.Context, tx shared.Tx) error {
		for _, c := range []*fraudcase.Case{open, resolved} {
			if err := tx.FraudCases().Create(ctx, c); err != nil {
				return err
			}
			if err := tx.FraudCases().RecordFlags(ctx, shared.FlagAuditEntry{
				CustomerID:   c.CustomerID(),
				RedemptionID: c.RedemptionIDs()[0],
				Flags:        c.Flags(),
				Decision:     "opened",
				RecordedAt:   c.OpenedAt(),
			}); err != nil {
				return err
			}
		}
		// below threshold, audited only
		return tx.FraudCases().RecordFlags(ctx, shared.FlagAuditEntry{
			CustomerID:   s.customer,
			RedemptionID: uuid.New(),
			Flags:        []fraud.Flag{builder.Flag(fraud.FlagDistantLocation, fraud.SeverityLow)},
			Decision:     "recorded",
			RecordedAt:   builder.BaseTime,
		})
	}))
	return open, resolved
}

func (s *QueriesTestSuite) TestCases() {
	open, resolved := s.seedCases()

	s.Run("get", func() {
		v, err := s.cases.Get(s.ctx, open.ID())
		s.Require().NoError(err)
		s.Equal(fraudcase.StatusOpen, v.Status)
		s.Equal(fraud.SeverityHigh, v.Severity)
		s.Equal(int64(1), v.Version)

		_, err = s.cases.Get(s.ctx, uuid.New())
		s.ErrorIs(err, queries.ErrCaseNotFound)
	})

	s.Run("list by status and customer", func() {
		status := fraudcase.StatusResolved
		page, err := s.cases.List(s.ctx, queries.CaseFilter{Status: &status}, 1, 10)
		s.Require().NoError(err)
		s.Require().Len(page.Items, 1)
		s.Equal(resolved.ID(), page.Items[0].ID)
		s.NotEmpty(page.Items[0].Actions)

		page, err = s.cases.List(s.ctx, queries.CaseFilter{CustomerID: &s.customer}, 1, 10)
		s.Require().NoError(err)
		s.Require().Len(page.Items, 1)
		s.Equal(open.ID(), page.Items[0].ID)
	})

	s.Run("unknown status", func() {
		status := fraudcase.Status("ARCHIVED")
		_, err := s.cases.List(s.ctx, queries.CaseFilter{Status: &status}, 1, 10)
		s.True(errs.Is(err, errs.ErrValidation))
	})
}

func (s *QueriesTestSuite) TestStatistics() {
	s.seedCases()
	window := queries.StatisticsQuery{From: builder.BaseTime.Add(-time.Hour), To: builder.BaseTime.Add(time.Hour)}

	s.Run("counts audited flags and opened cases", func() {
		res, err := s.cases.Statistics(s.ctx, window)
		s.Require().NoError(err)
		s.Equal(4, res.TotalFlags)
		s.Equal(2, res.FlagsByType[fraud.FlagDistantLocation])
		s.Equal(1, res.FlagsBySeverity[fraud.SeverityHigh])
		s.Equal(1, res.FlagsBySeverity[fraud.SeverityLow])
		s.Equal(2, res.CasesOpened)
		s.Equal(1, res.CasesByStatus[fraudcase.StatusOpen])
		s.Equal(1, res.CasesByStatus[fraudcase.StatusResolved])
	})

	s.Run("narrowed by severity", func() {
		sev := fraud.SeverityMedium
		q := window
		q.Severity = &sev
		res, err := s.cases.Statistics(s.ctx, q)
		s.Require().NoError(err)
		s.Equal(2, res.TotalFlags)
		s.Equal(1, res.CasesOpened)
	})

	s.Run("window excludes everything", func() {
		res, err := s.cases.Statistics(s.ctx, queries.StatisticsQuery{
			From: builder.BaseTime.Add(24 * time.Hour),
			To:   builder.BaseTime.Add(48 * time.Hour),
		})
		s.Require().NoError(err)
		s.Zero(res.TotalFlags)
		s.Zero(res.CasesOpened)
	})

	s.Run("invalid queries", func() {
		_, err := s.cases.Statistics(s.ctx, queries.StatisticsQuery{From: window.To, To: window.From})
		s.ErrorIs(err, queries.ErrInvalidStatsWindow)

		bad := fraud.Severity("CRITICAL")
		q := window
		q.Severity = &bad
		_, err = s.cases.Statistics(s.ctx, q)
		s.ErrorIs(err, queries.ErrInvalidStatsFilters)
	})
}

func TestPage(t *testing.T) {
	assert.Equal(t, queries.DefaultListLimit, queries.ValidateLimit(0))
	assert.Equal(t, queries.MaxListLimit, queries.ValidateLimit(10_000))
	assert.Equal(t, 7, queries.ValidateLimit(7))

	page, err := queries.ValidatePage(0)
	require.NoError(t, err)
	assert.Equal(t, 1, page)
	assert.Equal(t, 40, queries.Offset(3, 20))

	p := queries.NewPage[int](nil, 2, 10, 20)
	assert.NotNil(t, p.Items)
	assert.False(t, p.HasNext)
}
