package entities

import (
	"sort"
	"strings"
)

// Provenance values for InteractionRecord.Source.
const (
	SourceKnowledgeBase    = "knowledge_base"
	SourceInsufficientData = "insufficient_data"
	SourceLogical          = "logical"
)

// InteractionRecord is the grounded fact about a drug pair.
type InteractionRecord struct {
	DrugPair       [2]string `json:"drug_pair" yaml:"-"`
	RiskLevel      RiskLevel `json:"risk_level" yaml:"risk_level"`
	Severity       string    `json:"severity" yaml:"severity"`
	Mechanism      string    `json:"mechanism" yaml:"mechanism"`
	ClinicalEffect string    `json:"clinical_effect" yaml:"clinical_effect"`
	Recommendation string    `json:"recommendation" yaml:"recommendation"`
	Source         string    `json:"source" yaml:"source"`
	EvidenceLevel  string    `json:"evidence_level" yaml:"evidence_level"`
}

// CompoundKey builds the order-independent key for a pair: both names
// trimmed and lower-cased, sorted, joined with "+".
func CompoundKey(a, b string) string {
	pair := []string{normalizeName(a), normalizeName(b)}
	sort.Strings(pair)
	return pair[0] + "+" + pair[1]
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
