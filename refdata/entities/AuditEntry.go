package entities

import "time"

// AuditEntry summarises one finished analysis.
type AuditEntry struct {
	AnalysisID       string    `json:"analysis_id"`
	Mode             string    `json:"mode"`
	Drugs            []string  `json:"drugs"`
	InteractionCount int       `json:"interaction_count"`
	HighestRisk      string    `json:"highest_risk"`
	SafetyAlerts     int       `json:"safety_alerts"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}
