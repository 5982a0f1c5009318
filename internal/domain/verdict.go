package domain

import "fmt"

// RiskLevel grades how likely a swap was sandwiched.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// String returns the string representation of RiskLevel.
func (l RiskLevel) String() string {
	return string(l)
}

// IsValid checks if the level is a valid value.
func (l RiskLevel) IsValid() bool {
	return l == RiskLow || l == RiskMedium || l == RiskHigh
}

// Rank orders levels so sinks can filter on a minimum severity.
func (l RiskLevel) Rank() int {
	switch l {
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	default:
		return 0
	}
}

// ParseRiskLevel converts a config string into a RiskLevel.
func ParseRiskLevel(s string) (RiskLevel, error) {
	l := RiskLevel(s)
	if !l.IsValid() {
		return "", fmt.Errorf("unknown risk level %q", s)
	}
	return l, nil
}

// VerdictKind separates scored swaps from session notices.
type VerdictKind string

const (
	VerdictRisk VerdictKind = "risk"
	VerdictInfo VerdictKind = "info"
)

// RiskVerdict is the outcome delivered to the alert sink.
// Value type; never mutated after creation.
type RiskVerdict struct {
	Kind      VerdictKind `json:"kind"`
	Level     RiskLevel   `json:"level"`
	Reason    string      `json:"reason"`
	Signature string      `json:"signature,omitempty"` // subject transaction, empty for info notices
	Pool      *string     `json:"pool,omitempty"`
	SessionID string      `json:"session_id,omitempty"`
	Timestamp int64       `json:"timestamp"` // Unix ms when the verdict was produced
}

// NewInfo builds an informational notice. Info notices always carry RiskLow.
func NewInfo(reason string, timestampMs int64) RiskVerdict {
	return RiskVerdict{
		Kind:      VerdictInfo,
		Level:     RiskLow,
		Reason:    reason,
		Timestamp: timestampMs,
	}
}

// IsAlert reports whether the verdict is a medium or high risk finding.
func (v RiskVerdict) IsAlert() bool {
	return v.Kind == VerdictRisk && v.Level != RiskLow
}
