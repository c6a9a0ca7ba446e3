// Package structurer coerces free-form generated text into the fixed
// five-section explanation schema. Strategies are tried in order and the
// result always has every section populated.
package structurer

import (
	"fmt"
	"strings"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/logging"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/refdata/entities"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// MaxPoints caps the number of points kept per section.
	MaxPoints = 7
	// MaxTraceRunes bounds the raw-output trace kept for auditing.
	MaxTraceRunes = 2000
)

// Strategy turns raw text into sections, or reports that it does not apply.
type Strategy interface {
	Name() string
	Try(text string) (*entities.ExplanationSections, bool)
}

// DefaultStrategies is the standard cascade: labeled headers first, then
// proportional distribution of whatever content is left.
var DefaultStrategies = []Strategy{LabeledSections{}, ContentCascade{}}

// Context carries the grounded facts used for default statements.
type Context struct {
	DrugA          string
	DrugB          string
	Mechanism      string
	ClinicalEffect string
}

// ContextFor builds a Context from an interaction record.
func ContextFor(record entities.InteractionRecord) Context {
	return Context{
		DrugA:          record.DrugPair[0],
		DrugB:          record.DrugPair[1],
		Mechanism:      record.Mechanism,
		ClinicalEffect: record.ClinicalEffect,
	}
}

// Structurer runs its strategies in order until one applies.
type Structurer struct {
	strategies []Strategy
}

// New returns a structurer using strategies, or DefaultStrategies when none are given.
func New(strategies ...Strategy) *Structurer {
	if len(strategies) == 0 {
		strategies = DefaultStrategies
	}
	return &Structurer{strategies: strategies}
}

// Apply returns the sections from the first strategy that applies and its
// name. It returns empty sections and "" when no strategy applies.
func (s *Structurer) Apply(raw string) (*entities.ExplanationSections, string) {
	if strings.TrimSpace(raw) != "" {
		for _, strategy := range s.strategies {
			if sections, ok := strategy.Try(raw); ok && sections != nil {
				return sections, strategy.Name()
			}
		}
	}
	return &entities.ExplanationSections{}, ""
}

// Structure parses raw and fills any empty section with a safe default
// naming both drugs. Every section of the result is non-empty.
func (s *Structurer) Structure(raw string, ctx Context) entities.ExplanationSections {
	sections, strategy := s.Apply(raw)
	if strategy == "" {
		strategy = "defaults"
	}

	filled := 0
	for _, key := range entities.SectionKeys {
		if len(sections.Section(key)) == 0 {
			sections.SetSection(key, []string{defaultStatement(key, ctx)})
			filled++
		}
	}
	sections.RawOutput = truncate(raw, MaxTraceRunes)

	logging.Debug("Structured explanation", "strategy", strategy, "defaulted_sections", filled,
		"drug_a", ctx.DrugA, "drug_b", ctx.DrugB)
	return *sections
}

var titleCaser = cases.Title(language.English)

// DisplayName formats a canonical drug name for people, e.g. "warfarin" -> "Warfarin".
func DisplayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Unknown"
	}
	return titleCaser.String(strings.TrimSpace(name))
}

func defaultStatement(key string, ctx Context) string {
	a, b := DisplayName(ctx.DrugA), DisplayName(ctx.DrugB)
	switch key {
	case entities.SectionMechanism:
		if ctx.Mechanism != "" {
			return fmt.Sprintf("Verified mechanism for %s and %s: %s", a, b, ctx.Mechanism)
		}
		return fmt.Sprintf("No detailed mechanism is available for the combination of %s and %s.", a, b)
	case entities.SectionClinical:
		if ctx.ClinicalEffect != "" {
			return fmt.Sprintf("Verified clinical effect of combining %s and %s: %s", a, b, ctx.ClinicalEffect)
		}
		return fmt.Sprintf("Clinical effects of combining %s and %s were not described. Report any new or unusual symptoms to a healthcare professional.", a, b)
	case entities.SectionRiskFactors:
		return fmt.Sprintf("Individual risk when using %s with %s depends on age, other conditions and other medicines. A pharmacist can review your full medication list.", a, b)
	case entities.SectionMonitoring:
		return fmt.Sprintf("Ask a healthcare professional what should be monitored while using %s and %s together.", a, b)
	default:
		return fmt.Sprintf("Only a healthcare professional can advise on alternatives to %s or %s. Do not change your medicines on your own.", a, b)
	}
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "...[truncated]"
}
