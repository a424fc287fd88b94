//go:build unit || e2e

package builder

import (
	"time"

	"redemption-guard/internal/domain/fraud"
	"redemption-guard/internal/domain/fraudcase"

	"github.com/google/uuid"
)

func Flag(t fraud.FlagType, s fraud.Severity) fraud.Flag {
	return fraud.Flag{Type: t, Severity: s, Message: string(t) + " test flag", Details: map[string]any{}}
}

type CaseBuilder struct {
	CustomerID   uuid.UUID
	ProviderID   uuid.UUID
	RedemptionID uuid.UUID
	Flags        []fraud.Flag
	OpenedAt     time.Time
}

func NewCaseBuilder() *CaseBuilder {
	return &CaseBuilder{
		CustomerID:   uuid.New(),
		ProviderID:   uuid.New(),
		RedemptionID: uuid.New(),
		Flags:        []fraud.Flag{Flag(fraud.FlagRapidRedemption, fraud.SeverityHigh)},
		OpenedAt:     BaseTime,
	}
}

func (b *CaseBuilder) With(mutate func(*CaseBuilder)) *CaseBuilder {
	mutate(b)
	return b
}

func (b *CaseBuilder) WithCustomer(id uuid.UUID) *CaseBuilder {
	b.CustomerID = id
	return b
}

func (b *CaseBuilder) WithFlags(flags ...fraud.Flag) *CaseBuilder {
	b.Flags = flags
	return b
}

func (b *CaseBuilder) BuildDomain() (*fraudcase.Case, error) {
	return fraudcase.Open(b.CustomerID, b.ProviderID, b.RedemptionID, b.Flags, b.OpenedAt)
}

// BuildResolved walks a fresh case through review and resolution.
func (b *CaseBuilder) BuildResolved() (*fraudcase.Case, error) {
	c, err := b.BuildDomain()
	if err != nil {
		return nil, err
	}
	if err := c.StartReview("analyst", b.OpenedAt.Add(time.Minute)); err != nil {
		return nil, err
	}
	a, err := fraudcase.NewAction(fraudcase.ActionBlockCustomer, "analyst", nil, b.OpenedAt.Add(2*time.Minute))
	if err != nil {
		return nil, err
	}
	if err := c.Resolve([]fraudcase.Action{a}, b.OpenedAt.Add(2*time.Minute)); err != nil {
		return nil, err
	}
	return c, nil
}
