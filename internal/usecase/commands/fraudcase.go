package commands

import (
	"context"
	"log/slog"
	"slices"

	"redemption-guard/internal/domain/fraud"
	"redemption-guard/internal/domain/fraudcase"
	"redemption-guard/internal/domain/redemption"
	"redemption-guard/internal/infra"
	"redemption-guard/internal/pkg/clock"
	"redemption-guard/internal/pkg/errs"
	"redemption-guard/internal/usecase/shared"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrCaseNotFound       = errs.Mark(errs.New("fraud case not found"), errs.ErrNotFound)
	ErrCustomerMismatch   = errs.Mark(errs.New("redemption belongs to another customer"), errs.ErrValidation)
	ErrAttachRetriesSpent = errs.Mark(errs.New("fraud case kept changing while attaching flags"), errs.ErrVersionConflict)
)

type Decision string

const (
	// DecisionNone: no flags, nothing recorded.
	DecisionNone Decision = "none"
	// DecisionRecorded: flags logged but below the case-opening threshold.
	DecisionRecorded Decision = "recorded"
	DecisionOpened   Decision = "opened"
	DecisionAttached Decision = "attached"
)

func (d Decision) String() string { return string(d) }

type CaseDecision struct {
	Decision Decision
	// Case is set for DecisionOpened and DecisionAttached.
	Case *fraudcase.Case
}

type ActionInput struct {
	Type    fraudcase.ActionType
	Details map[string]any
}

type FraudCaseCommands interface {
	Attach(ctx context.Context, customerID uuid.UUID, r *redemption.Redemption, flags []fraud.Flag) (*CaseDecision, error)
	Review(ctx context.Context, caseID uuid.UUID, expectedVersion int64, reviewer string) (*fraudcase.Case, error)
	Resolve(ctx context.Context, caseID uuid.UUID, expectedVersion int64, actions []ActionInput, reviewer string) (*fraudcase.Case, error)
	Reopen(ctx context.Context, caseID uuid.UUID, reviewer, reason string) (*fraudcase.Case, error)
}

type fraudCaseUseCaseImpl struct {
	uow        shared.UnitOfWork
	clock      clock.Clock
	observer   shared.Observer
	maxRetries int
}

func NewFraudCaseUseCase(uow shared.UnitOfWork, clk clock.Clock, observer shared.Observer, settings Settings) FraudCaseCommands {
	if observer == nil {
		observer = shared.NoopObserver{}
	}
	return &fraudCaseUseCaseImpl{
		uow:        uow,
		clock:      clk,
		observer:   observer,
		maxRetries: max(settings.AttachMaxRetries, 0),
	}
}

// Attach routes a flagged redemption: into the customer's active case whose
// flag types overlap, else into a new case when the flags reach the threshold,
// else only into the flag audit log. Flag types already logged for the
// redemption are not added again, so re-evaluations only contribute new
// findings. Lost optimistic updates are retried against fresh state.
func (uc *fraudCaseUseCaseImpl) Attach(ctx context.Context, customerID uuid.UUID, r *redemption.Redemption, flags []fraud.Flag) (*CaseDecision, error) {
	if len(flags) == 0 {
		return &CaseDecision{Decision: DecisionNone}, nil
	}
	if r.CustomerID() != customerID {
		return nil, ErrCustomerMismatch
	}

	ctx, span := tracer.Start(ctx, "fraudcase.attach")
	defer span.End()
	span.SetAttributes(
		attribute.String("customer_id", customerID.String()),
		attribute.String("redemption_id", r.ID().String()),
		attribute.Int("flags", len(flags)),
	)

	for attempt := 0; attempt <= uc.maxRetries; attempt++ {
		decision, err := uc.attachOnce(ctx, customerID, r, flags)
		if err == nil {
			uc.observer.RecordCaseDecision(decision.Decision.String())
			if decision.Decision == DecisionOpened {
				uc.observer.RecordCaseTransition(fraudcase.StatusOpen)
			}
			span.SetAttributes(attribute.String("decision", decision.Decision.String()))
			return decision, nil
		}
		if !infra.IsKind(err, infra.KindVersionConflict) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "attach failed")
			return nil, err
		}
		slog.Warn("fraud case changed during attach, retrying",
			"customer_id", customerID.String(),
			"redemption_id", r.ID().String(),
			"attempt", attempt+1)
	}

	span.SetStatus(codes.Error, "attach retries exhausted")
	return nil, ErrAttachRetriesSpent
}

func (uc *fraudCaseUseCaseImpl) attachOnce(ctx context.Context, customerID uuid.UUID, r *redemption.Redemption, flags []fraud.Flag) (*CaseDecision, error) {
	var decision *CaseDecision
	err := uc.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		now := uc.clock.Now()
		repo := tx.FraudCases()

		recorded, err := repo.RecordedFlagTypes(ctx, r.ID())
		if err != nil {
			return err
		}
		fresh := unrecordedFlags(flags, recorded)

		existing, err := repo.FindOpenCaseForCustomer(ctx, customerID, fraud.Types(flags))
		if err != nil {
			return err
		}
		holds := existing != nil && slices.Contains(existing.RedemptionIDs(), r.ID())

		switch {
		case len(fresh) == 0 && holds:
			decision = &CaseDecision{Decision: DecisionAttached, Case: existing}
			return nil
		case len(fresh) == 0:
			// every flag was logged by an earlier evaluation
			decision = &CaseDecision{Decision: DecisionRecorded}
			return nil
		case existing != nil:
			expected := existing.Version()
			if err := existing.Attach(r.ID(), fresh); err != nil {
				return err
			}
			if err := repo.Update(ctx, existing, expected); err != nil {
				return err
			}
			decision = &CaseDecision{Decision: DecisionAttached, Case: existing}
		case fraudcase.ShouldOpen(flags):
			c, err := fraudcase.Open(customerID, r.ProviderID(), r.ID(), flags, now)
			if err != nil {
				return err
			}
			if err := repo.Create(ctx, c); err != nil {
				return err
			}
			decision = &CaseDecision{Decision: DecisionOpened, Case: c}
		default:
			decision = &CaseDecision{Decision: DecisionRecorded}
		}

		entry := shared.FlagAuditEntry{
			CustomerID:   customerID,
			ProviderID:   r.ProviderID(),
			RedemptionID: r.ID(),
			Flags:        fresh,
			Decision:     decision.Decision.String(),
			RecordedAt:   now,
		}
		if decision.Case != nil {
			id := decision.Case.ID()
			entry.CaseID = &id
		}
		return repo.RecordFlags(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return decision, nil
}

// unrecordedFlags drops flags whose type was already logged for the redemption.
func unrecordedFlags(flags []fraud.Flag, recorded []fraud.FlagType) []fraud.Flag {
	out := make([]fraud.Flag, 0, len(flags))
	for _, f := range flags {
		if !slices.Contains(recorded, f.Type) {
			out = append(out, f)
		}
	}
	return out
}

func (uc *fraudCaseUseCaseImpl) Review(ctx context.Context, caseID uuid.UUID, expectedVersion int64, reviewer string) (*fraudcase.Case, error) {
	c, err := uc.mutate(ctx, "fraudcase.review", caseID, expectedVersion, func(c *fraudcase.Case) error {
		return c.StartReview(reviewer, uc.clock.Now())
	})
	if err != nil {
		return nil, err
	}
	uc.observer.RecordCaseTransition(fraudcase.StatusInReview)
	slog.Info("fraud case under review", "case_id", caseID.String(), "reviewer", reviewer)
	return c, nil
}

func (uc *fraudCaseUseCaseImpl) Resolve(ctx context.Context, caseID uuid.UUID, expectedVersion int64, inputs []ActionInput, reviewer string) (*fraudcase.Case, error) {
	now := uc.clock.Now()
	actions := make([]fraudcase.Action, 0, len(inputs))
	for _, in := range inputs {
		a, err := fraudcase.NewAction(in.Type, reviewer, in.Details, now)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}

	c, err := uc.mutate(ctx, "fraudcase.resolve", caseID, expectedVersion, func(c *fraudcase.Case) error {
		return c.Resolve(actions, now)
	})
	if err != nil {
		return nil, err
	}
	uc.observer.RecordCaseTransition(fraudcase.StatusResolved)
	slog.Info("fraud case resolved", "case_id", caseID.String(), "reviewer", reviewer, "actions", len(actions))
	return c, nil
}

// Reopen opens a fresh case that carries over a resolved case's evidence.
func (uc *fraudCaseUseCaseImpl) Reopen(ctx context.Context, caseID uuid.UUID, reviewer, reason string) (*fraudcase.Case, error) {
	ctx, span := tracer.Start(ctx, "fraudcase.reopen")
	defer span.End()

	var reopened *fraudcase.Case
	err := uc.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		source, err := tx.FraudCases().FindByID(ctx, caseID)
		if err != nil {
			return err
		}
		c, err := fraudcase.Reopen(source, reviewer, uc.clock.Now())
		if err != nil {
			return err
		}
		if err := tx.FraudCases().Create(ctx, c); err != nil {
			return err
		}
		reopened = c
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, mapCaseErr(err)
	}

	uc.observer.RecordCaseTransition(fraudcase.StatusOpen)
	slog.Info("fraud case reopened",
		"case_id", reopened.ID().String(),
		"reopened_from", caseID.String(),
		"reviewer", reviewer,
		"reason", reason)
	return reopened, nil
}

// mutate applies fn to the case under an optimistic version check. The
// caller's expected version must match both before and at write time.
func (uc *fraudCaseUseCaseImpl) mutate(ctx context.Context, op string, caseID uuid.UUID, expectedVersion int64, fn func(*fraudcase.Case) error) (*fraudcase.Case, error) {
	ctx, span := tracer.Start(ctx, op)
	defer span.End()
	span.SetAttributes(attribute.String("case_id", caseID.String()), attribute.Int64("expected_version", expectedVersion))

	var out *fraudcase.Case
	err := uc.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		c, err := tx.FraudCases().FindByID(ctx, caseID)
		if err != nil {
			return err
		}
		if err := c.CheckVersion(expectedVersion); err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
		if err := tx.FraudCases().Update(ctx, c, expectedVersion); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, op+" failed")
		return nil, mapCaseErr(err)
	}
	return out, nil
}

func mapCaseErr(err error) error {
	switch {
	case infra.IsKind(err, infra.KindNotFound):
		return ErrCaseNotFound
	case infra.IsKind(err, infra.KindVersionConflict):
		return fraudcase.ErrStaleVersion
	default:
		return err
	}
}
