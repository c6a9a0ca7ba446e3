package entities

// BasicInfo carries the grounded facts shown even when no explanation is available.
type BasicInfo struct {
	Mechanism      string `json:"mechanism"`
	ClinicalEffect string `json:"clinical_effect"`
	Recommendation string `json:"recommendation"`
}

// InteractionResult is the per-pair output of the pipeline.
type InteractionResult struct {
	DrugPair      [2]string            `json:"drug_pair"`
	RiskLevel     RiskLevel            `json:"risk_level"`
	BasicInfo     BasicInfo            `json:"basic_info"`
	AIExplanation *ExplanationSections `json:"ai_explanation"`
	SafetyAlert   bool                 `json:"safety_alert"`
	Error         string               `json:"error,omitempty"`
}

// NewBasicResult builds a result carrying only the grounded facts of record.
func NewBasicResult(record InteractionRecord) InteractionResult {
	return InteractionResult{
		DrugPair:  record.DrugPair,
		RiskLevel: record.RiskLevel,
		BasicInfo: BasicInfo{
			Mechanism:      record.Mechanism,
			ClinicalEffect: record.ClinicalEffect,
			Recommendation: record.Recommendation,
		},
	}
}

// Analysis status values.
const (
	StatusSuccess = "success"
	StatusInfo    = "info"
	StatusError   = "error"
)

// AnalysisResult is the aggregate batch response.
type AnalysisResult struct {
	AnalysisID       string              `json:"analysis_id"`
	Status           string              `json:"status"`
	Message          string              `json:"message,omitempty"`
	DetectedDrugs    []string            `json:"detected_drugs"`
	InteractionCount int                 `json:"interaction_count"`
	HighestRisk      *RiskLevel          `json:"highest_risk,omitempty"`
	Interactions     []InteractionResult `json:"interactions"`
	Disclaimer       string              `json:"disclaimer"`
}

// SafetyAlerts counts results flagged by the safety gate.
func (a *AnalysisResult) SafetyAlerts() int {
	n := 0
	for _, r := range a.Interactions {
		if r.SafetyAlert {
			n++
		}
	}
	return n
}
