// Package interactions answers pairwise interaction questions from the
// grounded knowledge base. Unknown pairs are reported, never guessed.
package interactions

import (
	"sort"
	"strings"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/interfaces"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/refdata"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/refdata/entities"
)

var _ interfaces.InteractionChecker = (*Checker)(nil)

const unknownRecommendation = "Consult healthcare provider or pharmacist before combining these medications."

// Checker looks pairs up in one snapshot's knowledge base.
type Checker struct {
	kb map[string]entities.InteractionRecord
}

// New returns a checker bound to snap.
func New(snap *refdata.Snapshot) *Checker {
	return &Checker{kb: snap.Interactions}
}

// CheckInteraction returns the record for the pair. The record carries the
// caller's order in DrugPair; every other field is independent of order.
func (c *Checker) CheckInteraction(a, b string) entities.InteractionRecord {
	pair := [2]string{strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b))}

	if pair[0] == pair[1] {
		return entities.InteractionRecord{
			DrugPair:       pair,
			RiskLevel:      entities.RiskNone,
			Severity:       "none",
			Mechanism:      "Same drug",
			ClinicalEffect: "No interaction between a drug and itself.",
			Recommendation: "No action needed.",
			Source:         entities.SourceLogical,
			EvidenceLevel:  "n/a",
		}
	}

	if record, ok := c.kb[entities.CompoundKey(a, b)]; ok {
		record.DrugPair = pair
		return record
	}

	return entities.InteractionRecord{
		DrugPair:       pair,
		RiskLevel:      entities.RiskUnknown,
		Severity:       "unknown",
		Mechanism:      "No interaction data available for this combination.",
		ClinicalEffect: "Unknown. Insufficient data in the knowledge base.",
		Recommendation: unknownRecommendation,
		Source:         entities.SourceInsufficientData,
		EvidenceLevel:  "none",
	}
}

// CheckMultiple checks every unordered pair of drugs once, in input order,
// and drops pairs whose risk is none.
func (c *Checker) CheckMultiple(drugs []string) []entities.InteractionRecord {
	records := []entities.InteractionRecord{}
	if len(drugs) < 2 {
		return records
	}

	seen := make(map[string]struct{})
	for i := 0; i < len(drugs); i++ {
		for j := i + 1; j < len(drugs); j++ {
			key := entities.CompoundKey(drugs[i], drugs[j])
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			record := c.CheckInteraction(drugs[i], drugs[j])
			if record.RiskLevel == entities.RiskNone {
				continue
			}
			records = append(records, record)
		}
	}
	return records
}

// HighestRisk returns the most severe level among records, or false when
// there are no records.
func HighestRisk(records []entities.InteractionRecord) (entities.RiskLevel, bool) {
	if len(records) == 0 {
		return entities.RiskNone, false
	}
	highest := records[0].RiskLevel
	for _, r := range records[1:] {
		if r.RiskLevel.Rank() > highest.Rank() {
			highest = r.RiskLevel
		}
	}
	return highest, true
}

// SortByRisk orders records from most to least severe, keeping input order among equals.
func SortByRisk(records []entities.InteractionRecord) []entities.InteractionRecord {
	sorted := make([]entities.InteractionRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RiskLevel.Rank() > sorted[j].RiskLevel.Rank()
	})
	return sorted
}
