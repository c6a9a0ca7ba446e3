package entities

// Section keys, in output order.
const (
	SectionMechanism    = "mechanism_of_interaction"
	SectionClinical     = "clinical_manifestations"
	SectionRiskFactors  = "risk_factors"
	SectionMonitoring   = "monitoring_recommendations"
	SectionAlternatives = "alternative_suggestions"
)

// SectionKeys lists the five explanation sections in their fixed order.
var SectionKeys = []string{
	SectionMechanism,
	SectionClinical,
	SectionRiskFactors,
	SectionMonitoring,
	SectionAlternatives,
}

// ExplanationSections is the fixed five-section schema every explanation is coerced into.
type ExplanationSections struct {
	MechanismOfInteraction    []string `json:"mechanism_of_interaction"`
	ClinicalManifestations    []string `json:"clinical_manifestations"`
	RiskFactors               []string `json:"risk_factors"`
	MonitoringRecommendations []string `json:"monitoring_recommendations"`
	AlternativeSuggestions    []string `json:"alternative_suggestions"`
	RawOutput                 string   `json:"raw_output,omitempty"`
}

// Section returns the points stored under key.
func (e *ExplanationSections) Section(key string) []string {
	switch key {
	case SectionMechanism:
		return e.MechanismOfInteraction
	case SectionClinical:
		return e.ClinicalManifestations
	case SectionRiskFactors:
		return e.RiskFactors
	case SectionMonitoring:
		return e.MonitoringRecommendations
	case SectionAlternatives:
		return e.AlternativeSuggestions
	}
	return nil
}

// SetSection replaces the points stored under key. Unknown keys are ignored.
func (e *ExplanationSections) SetSection(key string, points []string) {
	switch key {
	case SectionMechanism:
		e.MechanismOfInteraction = points
	case SectionClinical:
		e.ClinicalManifestations = points
	case SectionRiskFactors:
		e.RiskFactors = points
	case SectionMonitoring:
		e.MonitoringRecommendations = points
	case SectionAlternatives:
		e.AlternativeSuggestions = points
	}
}
