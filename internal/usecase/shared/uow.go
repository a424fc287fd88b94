package shared

import "context"

type UnitOfWork interface {
	// Within: Full transaction for write operations with retry logic
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// Redemptions / FraudCases: Single statement operations using implicit transactions
	Redemptions() RedemptionWriteRepository
	FraudCases() FraudCaseWriteRepository
}

// Tx exposes write repositories bound to one transaction.
type Tx interface {
	Redemptions() RedemptionWriteRepository
	FraudCases() FraudCaseWriteRepository
}
