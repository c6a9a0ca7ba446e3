package structurer

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/refdata/entities"
)

// keywordSections maps whole normalized header labels to section keys.
var keywordSections = map[string]string{
	"mechanism":                   entities.SectionMechanism,
	"mechanisms":                  entities.SectionMechanism,
	"mechanism of interaction":    entities.SectionMechanism,
	"mechanism of action":         entities.SectionMechanism,
	"how it works":                entities.SectionMechanism,
	"pharmacology":                entities.SectionMechanism,
	"clinical manifestations":     entities.SectionClinical,
	"clinical effects":            entities.SectionClinical,
	"clinical effect":             entities.SectionClinical,
	"clinical":                    entities.SectionClinical,
	"symptoms":                    entities.SectionClinical,
	"signs and symptoms":          entities.SectionClinical,
	"effects":                     entities.SectionClinical,
	"side effects":                entities.SectionClinical,
	"risk factors":                entities.SectionRiskFactors,
	"risks":                       entities.SectionRiskFactors,
	"who is at risk":              entities.SectionRiskFactors,
	"monitoring":                  entities.SectionMonitoring,
	"monitoring recommendations":  entities.SectionMonitoring,
	"what to monitor":             entities.SectionMonitoring,
	"what to watch for":           entities.SectionMonitoring,
	"alternatives":                entities.SectionAlternatives,
	"alternative suggestions":     entities.SectionAlternatives,
	"alternative options":         entities.SectionAlternatives,
	"management":                  entities.SectionAlternatives,
	"management and alternatives": entities.SectionAlternatives,
}

// notHeaders share a root with a section label but name something else.
var notHeaders = map[string]bool{
	"risk level":   true,
	"risk rating":  true,
	"overall risk": true,
}

// keywordRoots is the prefix fallback for labels that only nearly match.
var keywordRoots = []struct {
	root string
	key  string
}{
	{"mechan", entities.SectionMechanism},
	{"pharmacolog", entities.SectionMechanism},
	{"clinic", entities.SectionClinical},
	{"manifest", entities.SectionClinical},
	{"symptom", entities.SectionClinical},
	{"risk", entities.SectionRiskFactors},
	{"monitor", entities.SectionMonitoring},
	{"alternat", entities.SectionAlternatives},
	{"suggest", entities.SectionAlternatives},
}

var (
	headingPrefix = regexp.MustCompile(`^\s*#{1,6}\s*`)
	numberPrefix  = regexp.MustCompile(`^\s*(?:\d{1,2}|[ivxIVX]{1,4})[.)]\s+`)
	sectionWord   = regexp.MustCompile(`(?i)^section\s*\d*\s*[:.-]?\s*`)
	labelSplit    = regexp.MustCompile(`\s*(?:[:：]|\s[-–—]\s)\s*`)
	bulletItem    = regexp.MustCompile(`^(?:[-•·▪‣–]|\*\s)`)
)

const (
	maxLabelWords      = 6
	maxLooseLabelWords = 3
)

// LabeledSections slices text between recognised section headers.
type LabeledSections struct{}

func (LabeledSections) Name() string { return "labeled_sections" }

type header struct {
	line   int
	key    string
	inline string
}

// Try applies when at least one header is found. Text before the first
// header only fills sections that no header claimed.
func (LabeledSections) Try(text string) (*entities.ExplanationSections, bool) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var headers []header
	for i, line := range lines {
		if key, inline, ok := parseHeader(line); ok {
			headers = append(headers, header{line: i, key: key, inline: inline})
		}
	}
	if len(headers) == 0 {
		return nil, false
	}

	bodies := make(map[string][]string)
	for i, h := range headers {
		end := len(lines)
		if i+1 < len(headers) {
			end = headers[i+1].line
		}
		var body []string
		if h.inline != "" {
			body = append(body, h.inline)
		}
		body = append(body, lines[h.line+1:end]...)
		bodies[h.key] = append(bodies[h.key], body...)
	}

	sections := &entities.ExplanationSections{}
	var unclaimed []string
	for _, key := range entities.SectionKeys {
		if body, ok := bodies[key]; ok {
			sections.SetSection(key, SplitPoints(strings.Join(body, "\n")))
		}
		if len(sections.Section(key)) == 0 {
			unclaimed = append(unclaimed, key)
		}
	}
	if len(unclaimed) > 0 && headers[0].line > 0 {
		cascadeInto(sections, strings.Join(lines[:headers[0].line], "\n"), unclaimed)
	}
	return sections, true
}

// parseHeader recognises lines such as "### MECHANISM OF INTERACTION:",
// "**2. Clinical Manifestations**", "Risk factors - elderly patients" or
// "MONITORING". It returns the section key and any content after the label.
// Bullet items are never headers.
func parseHeader(line string) (key, inline string, ok bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || bulletItem.MatchString(trimmed) {
		return "", "", false
	}

	decorated := false
	rest := trimmed
	if loc := headingPrefix.FindStringIndex(rest); loc != nil {
		rest, decorated = rest[loc[1]:], true
	}
	if stripped := strings.TrimLeft(rest, "*_"); stripped != rest {
		rest, decorated = stripped, true
	}
	if loc := numberPrefix.FindStringIndex(rest); loc != nil {
		rest = rest[loc[1]:]
	}
	rest = strings.TrimLeft(rest, "*_ ")
	rest = sectionWord.ReplaceAllString(rest, "")

	label, after, hasSeparator := rest, "", false
	if loc := labelSplit.FindStringIndex(rest); loc != nil {
		label, after, hasSeparator = rest[:loc[0]], rest[loc[1]:], true
	}
	label = strings.TrimRight(strings.TrimSpace(label), "*_ ")
	after = strings.TrimSpace(strings.Trim(strings.TrimSpace(after), "*_"))

	normalized := normalizeLabel(label)
	words := len(strings.Fields(normalized))
	if words == 0 || words > maxLabelWords {
		return "", "", false
	}

	if key, exact := keywordSections[normalized]; exact {
		return key, after, true
	}
	if notHeaders[normalized] {
		return "", "", false
	}
	if isUpper(label) {
		decorated = true
	}
	if (decorated || hasSeparator) && words <= maxLooseLabelWords {
		if key := matchRoot(normalized); key != "" {
			return key, after, true
		}
	}
	return "", "", false
}

// normalizeLabel lower-cases and keeps letters and single spaces; "&" reads as "and".
func normalizeLabel(label string) string {
	label = strings.ReplaceAll(strings.ToLower(label), "&", " and ")
	var b strings.Builder
	for _, r := range label {
		switch {
		case unicode.IsLetter(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '/' || r == '-':
			b.WriteRune(' ')
		case unicode.IsDigit(r):
			return ""
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func matchRoot(label string) string {
	for _, word := range strings.Fields(label) {
		for _, kr := range keywordRoots {
			if strings.HasPrefix(word, kr.root) {
				return kr.key
			}
		}
	}
	return ""
}

func isUpper(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters >= 4
}
