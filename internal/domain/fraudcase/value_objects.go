package fraudcase

import (
	"strings"
	"time"
)

type Status string

const (
	StatusOpen     Status = "OPEN"
	StatusInReview Status = "IN_REVIEW"
	StatusResolved Status = "RESOLVED"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusInReview, StatusResolved:
		return true
	default:
		return false
	}
}

// IsActive reports whether new signals may still attach to a case in this status.
func (s Status) IsActive() bool {
	return s == StatusOpen || s == StatusInReview
}

type ActionType string

const (
	ActionBlockCustomer    ActionType = "block_customer"
	ActionVoidRedemption   ActionType = "void_redemption"
	ActionFlagProvider     ActionType = "flag_provider"
	ActionWhitelistPattern ActionType = "whitelist_pattern"
)

func (t ActionType) String() string { return string(t) }

func (t ActionType) IsValid() bool {
	switch t {
	case ActionBlockCustomer, ActionVoidRedemption, ActionFlagProvider, ActionWhitelistPattern:
		return true
	default:
		return false
	}
}

// Action is an audit entry appended when a case is resolved.
type Action struct {
	Type        ActionType
	Timestamp   time.Time
	PerformedBy string
	Details     map[string]any
}

func NewAction(t ActionType, performedBy string, details map[string]any, now time.Time) (Action, error) {
	if !t.IsValid() {
		return Action{}, ErrInvalidActionType
	}
	reviewer, err := normalizeReviewer(performedBy)
	if err != nil {
		return Action{}, err
	}
	return Action{
		Type:        t,
		Timestamp:   now.UTC(),
		PerformedBy: reviewer,
		Details:     details,
	}, nil
}

func normalizeReviewer(s string) (string, error) {
	r := strings.TrimSpace(s)
	if r == "" {
		return "", ErrEmptyReviewer
	}
	return r, nil
}
