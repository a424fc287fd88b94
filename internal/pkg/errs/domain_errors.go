package errs

// Sentinel errors shared by the command and query layers.
// Callers match them with errors.Is (or errs.Is for marked errors).
var (
	// Input
	ErrValidation = New("validation error")

	// Redemption
	ErrLimitExceeded    = New("redemption limit exceeded")
	ErrVoucherNotActive = New("voucher is not within its valid window")

	// Fraud case
	ErrVersionConflict   = New("version conflict")
	ErrInvalidTransition = New("invalid state transition")

	// Collaborators
	ErrDependencyUnavailable = New("dependency unavailable")

	// Lookup
	ErrNotFound = New("not found")

	// Operation errors
	ErrDatabaseOperationFailed = New("database operation failed")
)
