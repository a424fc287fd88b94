package redemption

import (
	"fmt"

	"redemption-guard/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	ErrEmptyCode         = errs.Mark(errs.New("redemption code cannot be empty"), errs.ErrValidation)
	ErrCodeTooLong       = errs.Mark(errs.New("redemption code exceeds maximum length"), errs.ErrValidation)
	ErrInvalidLocation   = errs.Mark(errs.New("location coordinates out of range"), errs.ErrValidation)
	ErrMissingIdentifier = errs.Mark(errs.New("voucher, customer and provider ids are required"), errs.ErrValidation)
	ErrMissingRedeemedAt = errs.Mark(errs.New("redeemed_at is required"), errs.ErrValidation)
	ErrRedeemedInFuture  = errs.Mark(errs.New("redeemed_at is too far in the future"), errs.ErrValidation)
	ErrAlreadySynced     = errs.New("redemption already synced")
)

// LimitExceededError identifies which cap rejected a redemption.
type LimitExceededError struct {
	Scope      LimitScope
	VoucherID  uuid.UUID
	CustomerID uuid.UUID
	Limit      int
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("%s redemption limit %d reached for voucher %s", e.Scope, e.Limit, e.VoucherID)
}

func (e *LimitExceededError) Is(target error) bool {
	return target == errs.ErrLimitExceeded
}
