// Package safety screens outbound explanation text for content that reads
// as medical advice. A match flags the text; it is never silently repaired.
package safety

import (
	"regexp"
	"strings"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/refdata/entities"
)

// Disclaimer is attached to every analysis response.
const Disclaimer = "⚠️ IMPORTANT: This is an informational tool only. " +
	"Always consult a qualified healthcare professional before making " +
	"any decisions about your medications."

// AlertMessage is returned alongside text that failed the gate.
const AlertMessage = "⚠️ SAFETY ALERT: This explanation contained wording that resembles " +
	"medical advice (dosing, prescribing, diagnosing or stopping medication) and has been flagged. " +
	"Please consult a qualified healthcare professional."

type rule struct {
	name    string
	pattern *regexp.Regexp
}

var rules = []rule{
	{"dosage_instruction", regexp.MustCompile(`(?i)\btake\s+\d+(\.\d+)?\s*(mg|mcg|ml|g|tablets?|pills?|capsules?)\b`)},
	{"prescribing", regexp.MustCompile(`(?i)\bprescrib(e|es|ed|ing)\b`)},
	{"diagnosing", regexp.MustCompile(`(?i)\bdiagnos(e|es|ed|ing)\b`)},
	{"cessation", regexp.MustCompile(`(?i)\bstop\s+taking\b|\bdiscontinu\w*`)},
	{"initiation", regexp.MustCompile(`(?i)\bstart\s+taking\b`)},
	{"dose_adjustment", regexp.MustCompile(`(?i)\b(increase|decrease|double|reduce|lower|raise)\s+(the\s+|your\s+)?(dose|dosage)\b`)},
	{"direct_advice", regexp.MustCompile(`(?i)\byou\s+should\s+(not\s+)?take\b`)},
}

// Validate reports whether text is safe to show. Unsafe text yields
// AlertMessage; safe text is returned unchanged. Blank text is unsafe.
func Validate(text string) (bool, string) {
	if strings.TrimSpace(text) == "" {
		return false, AlertMessage
	}
	for _, r := range rules {
		if r.pattern.MatchString(text) {
			return false, AlertMessage
		}
	}
	return true, text
}

// Violations names every rule text breaks, for logging and metrics.
func Violations(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{"empty"}
	}
	var names []string
	for _, r := range rules {
		if r.pattern.MatchString(text) {
			names = append(names, r.name)
		}
	}
	return names
}

// ValidateSections runs the gate over every point of every section.
func ValidateSections(sections *entities.ExplanationSections) (bool, string) {
	if sections == nil {
		return false, AlertMessage
	}
	return Validate(joinSections(sections))
}

func joinSections(sections *entities.ExplanationSections) string {
	var b strings.Builder
	for _, key := range entities.SectionKeys {
		for _, point := range sections.Section(key) {
			b.WriteString(point)
			b.WriteByte('\n')
		}
	}
	return b.String()
}
