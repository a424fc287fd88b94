package fraudcase

import "redemption-guard/internal/pkg/errs"

var (
	ErrEmptyReviewer     = errs.Mark(errs.New("reviewer is required"), errs.ErrValidation)
	ErrInvalidActionType = errs.Mark(errs.New("unknown case action type"), errs.ErrValidation)
	ErrNoActions         = errs.Mark(errs.New("resolving a case requires at least one action"), errs.ErrValidation)
	ErrNoFlags           = errs.Mark(errs.New("a case needs at least one flag"), errs.ErrValidation)
	ErrBelowThreshold    = errs.New("flags do not meet the case-opening threshold")

	ErrNotOpen      = errs.Mark(errs.New("case is not open"), errs.ErrInvalidTransition)
	ErrNotInReview  = errs.Mark(errs.New("case is not in review"), errs.ErrInvalidTransition)
	ErrNotResolved  = errs.Mark(errs.New("only resolved cases can be reopened"), errs.ErrInvalidTransition)
	ErrCaseResolved = errs.Mark(errs.New("case is resolved and immutable"), errs.ErrInvalidTransition)

	ErrStaleVersion = errs.Mark(errs.New("case version does not match"), errs.ErrVersionConflict)
)
