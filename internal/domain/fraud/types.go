package fraud

import "sort"

type FlagType string

const (
	FlagVelocity        FlagType = "VELOCITY"
	FlagRapidRedemption FlagType = "RAPID_REDEMPTION"
	FlagLocationAnomaly FlagType = "LOCATION_ANOMALY"
	FlagDistantLocation FlagType = "DISTANT_LOCATION"
)

func (t FlagType) String() string { return string(t) }

func (t FlagType) IsValid() bool {
	switch t {
	case FlagVelocity, FlagRapidRedemption, FlagLocationAnomaly, FlagDistantLocation:
		return true
	default:
		return false
	}
}

type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

func (s Severity) String() string { return string(s) }

func (s Severity) IsValid() bool {
	return s.Rank() > 0
}

func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	default:
		return 0
	}
}

func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// Flag is one detector finding. Details carries the evidence (speed, counts,
// distances) keyed by name.
type Flag struct {
	Type     FlagType
	Severity Severity
	Message  string
	Details  map[string]any
}

// SortFlags orders by severity descending, then type name ascending.
func SortFlags(flags []Flag) {
	sort.SliceStable(flags, func(i, j int) bool {
		if ri, rj := flags[i].Severity.Rank(), flags[j].Severity.Rank(); ri != rj {
			return ri > rj
		}
		return flags[i].Type < flags[j].Type
	})
}

// Types returns the distinct flag types in first-seen order.
func Types(flags []Flag) []FlagType {
	seen := make(map[FlagType]struct{}, len(flags))
	out := make([]FlagType, 0, len(flags))
	for _, f := range flags {
		if _, ok := seen[f.Type]; ok {
			continue
		}
		seen[f.Type] = struct{}{}
		out = append(out, f.Type)
	}
	return out
}
