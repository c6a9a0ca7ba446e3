// Package validation reports on the quality of the reference tables and
// validates user input before it reaches the pipeline.
package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/interfaces"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/refdata"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/refdata/entities"
)

// Input limits.
const (
	MinInputLength = 3
	MaxInputLength = 100
	MaxInputWords  = 6
	MinDrugs       = 2
	MaxDrugs       = 20
	MaxLines       = 200
	MaxLineLength  = 500
)

// Pre-compiled patterns, reused for all validations
var (
	// Letters in any script, digits and the punctuation found on drug labels
	inputRegex    = regexp.MustCompile(`^[\p{L}\p{M}\p{N}\s\-\.\+'/()%]+$`)
	languageRegex = regexp.MustCompile(`^[\p{L}\p{M}\s\-]{2,40}$`)

	// Plain substring checks are enough for these
	dangerousPatterns = []string{
		"<script", "</script>", "javascript:", "vbscript:", "onload=", "onerror=",
		"eval(", "expression(", "url(", "@import",
		// SQL injection patterns
		"' or ", "\" or ", "union select", "drop table", "delete from", "insert into",
		"--", "/*", "*/", "exec(", "execute(",
		// Command injection patterns
		"; ", "| ", "& ", "`", "$(", "${",
		// Path traversal patterns
		"../", "..\\", "%2e%2e", "file://",
		// NoSQL injection patterns
		"{$ne:", "{$gt:", "{$where:", "{$or:", "{$regex:",
	}
)

var _ interfaces.DataValidator = (*DataValidatorImpl)(nil)

// DataValidatorImpl implements the interfaces.DataValidator interface
type DataValidatorImpl struct{}

// NewDataValidator creates a new data validator
func NewDataValidator() interfaces.DataValidator {
	return &DataValidatorImpl{}
}

// ReportDataQuality inspects a snapshot and lists every issue found.
// All lists are sorted.
func (v *DataValidatorImpl) ReportDataQuality(snap *refdata.Snapshot) *interfaces.DataQualityReport {
	report := &interfaces.DataQualityReport{
		OrphanedInteractionKeys:   []string{},
		SharedBrandNames:          []string{},
		SelfPairKeys:              []string{},
		IncompleteInteractionKeys: []string{},
		UnratedInteractionKeys:    []string{},
	}
	if snap == nil {
		return report
	}
	report.DrugCount = len(snap.Drugs)
	report.InteractionCount = len(snap.Interactions)

	brandOwners := make(map[string]map[string]struct{})
	for generic, record := range snap.Drugs {
		for _, brand := range record.BrandNames {
			key := strings.ToLower(brand)
			if brandOwners[key] == nil {
				brandOwners[key] = make(map[string]struct{})
			}
			brandOwners[key][generic] = struct{}{}
		}
	}
	for brand, owners := range brandOwners {
		if len(owners) > 1 {
			report.SharedBrandNames = append(report.SharedBrandNames, brand)
		}
	}

	for key, record := range snap.Interactions {
		a, b := record.DrugPair[0], record.DrugPair[1]
		if a == b {
			report.SelfPairKeys = append(report.SelfPairKeys, key)
		}
		_, knownA := snap.Drugs[a]
		_, knownB := snap.Drugs[b]
		if !knownA || !knownB {
			report.OrphanedInteractionKeys = append(report.OrphanedInteractionKeys, key)
		}
		if strings.TrimSpace(record.Mechanism) == "" || strings.TrimSpace(record.Recommendation) == "" {
			report.IncompleteInteractionKeys = append(report.IncompleteInteractionKeys, key)
		}
		if record.RiskLevel == entities.RiskUnknown && record.Source != entities.SourceInsufficientData {
			report.UnratedInteractionKeys = append(report.UnratedInteractionKeys, key)
		}
	}

	sort.Strings(report.SharedBrandNames)
	sort.Strings(report.SelfPairKeys)
	sort.Strings(report.OrphanedInteractionKeys)
	sort.Strings(report.IncompleteInteractionKeys)
	sort.Strings(report.UnratedInteractionKeys)
	return report
}

// ValidateInput validates a single drug name or free-text search term
func (v *DataValidatorImpl) ValidateInput(input string) error {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return fmt.Errorf("input cannot be empty")
	}

	length := utf8.RuneCountInString(trimmed)
	if length < MinInputLength {
		return fmt.Errorf("input too short: minimum %d characters", MinInputLength)
	}
	if length > MaxInputLength {
		return fmt.Errorf("input too long: maximum %d characters", MaxInputLength)
	}

	// Many short words are a cheap way to make fuzzy matching expensive
	if len(strings.Fields(trimmed)) > MaxInputWords {
		return fmt.Errorf("input too complex: maximum %d words allowed", MaxInputWords)
	}

	if containsDangerousPattern(trimmed) {
		return fmt.Errorf("input contains potentially dangerous content")
	}

	if !inputRegex.MatchString(trimmed) {
		return fmt.Errorf("input contains invalid characters. Only letters, numbers, spaces and the characters - . + ' / ( ) %% are allowed")
	}

	if hasExcessiveRepetition(trimmed) {
		return fmt.Errorf("input contains excessive character repetition")
	}

	return nil
}

// ValidateDrugList parses a comma-separated list of drug names. Blank
// entries are skipped.
func (v *DataValidatorImpl) ValidateDrugList(raw string) ([]string, error) {
	var drugs []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if err := v.ValidateInput(part); err != nil {
			return nil, fmt.Errorf("invalid drug %q: %w", part, err)
		}
		drugs = append(drugs, part)
	}

	if len(drugs) < MinDrugs {
		return nil, fmt.Errorf("at least %d drugs are required", MinDrugs)
	}
	if len(drugs) > MaxDrugs {
		return nil, fmt.Errorf("too many drugs: maximum %d allowed", MaxDrugs)
	}
	return drugs, nil
}

// ValidateLines checks text lines submitted in place of an image. Lines come
// from OCR so their content is not restricted, only their size.
func (v *DataValidatorImpl) ValidateLines(lines []string) error {
	if len(lines) > MaxLines {
		return fmt.Errorf("too many lines: maximum %d allowed", MaxLines)
	}
	for i, line := range lines {
		if !utf8.ValidString(line) {
			return fmt.Errorf("line %d is not valid UTF-8", i)
		}
		if utf8.RuneCountInString(line) > MaxLineLength {
			return fmt.Errorf("line %d too long: maximum %d characters", i, MaxLineLength)
		}
	}
	return nil
}

// ValidateLanguage checks a translation target such as "Hindi" or "Brazilian Portuguese".
func (v *DataValidatorImpl) ValidateLanguage(lang string) error {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return fmt.Errorf("language cannot be empty")
	}
	if !languageRegex.MatchString(lang) {
		return fmt.Errorf("invalid language name")
	}
	return nil
}

func containsDangerousPattern(input string) bool {
	lower := strings.ToLower(input)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// hasExcessiveRepetition reports the same character more than 10 times in a row
func hasExcessiveRepetition(input string) bool {
	run := 0
	var prev rune = -1
	for _, r := range input {
		if r == prev {
			run++
			if run > 10 {
				return true
			}
		} else {
			prev, run = r, 1
		}
	}
	return false
}
