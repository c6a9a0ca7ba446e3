package entities

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RiskLevel is the ordinal severity of an interaction.
type RiskLevel int

const (
	RiskNone RiskLevel = iota
	RiskUnknown
	RiskLow
	RiskModerate
	RiskHigh
)

var riskNames = map[RiskLevel]string{
	RiskNone:     "none",
	RiskUnknown:  "unknown",
	RiskLow:      "low",
	RiskModerate: "moderate",
	RiskHigh:     "high",
}

// Rank returns the ordinal used for ordering: high=4, moderate=3, low=2, unknown=1, none=0.
func (r RiskLevel) Rank() int {
	return int(r)
}

func (r RiskLevel) String() string {
	if name, ok := riskNames[r]; ok {
		return name
	}
	return "unknown"
}

// ParseRiskLevel maps a knowledge-base string onto a RiskLevel.
// Unrecognised values map to RiskUnknown.
func ParseRiskLevel(s string) RiskLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "major", "severe":
		return RiskHigh
	case "moderate", "medium":
		return RiskModerate
	case "low", "minor":
		return RiskLow
	case "none":
		return RiskNone
	default:
		return RiskUnknown
	}
}

func (r RiskLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *RiskLevel) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("risk level must be a string: %w", err)
	}
	*r = ParseRiskLevel(s)
	return nil
}

// UnmarshalYAML lets YAML knowledge bases use the same string values as JSON ones.
func (r *RiskLevel) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	*r = ParseRiskLevel(s)
	return nil
}
