package structurer

import (
	"regexp"
	"strings"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/refdata/entities"
)

// sectionShares is the fraction of content lines each section receives.
var sectionShares = map[string]float64{
	entities.SectionMechanism:    0.30,
	entities.SectionClinical:     0.20,
	entities.SectionRiskFactors:  0.20,
	entities.SectionMonitoring:   0.15,
	entities.SectionAlternatives: 0.15,
}

var (
	markdownNoise = regexp.MustCompile("[*_`#>]+")
	boilerplate   = regexp.MustCompile(`(?i)disclaimer|educational purposes|not (?:constitute|a substitute for) medical advice|informational (?:tool|purposes) only|^(?:sure|certainly|here is|here's)\b|^(?:analysis|explanation|drug interaction analysis|summary)\s*:?$`)
	titleLike     = regexp.MustCompile(`^[^.!?]{1,60}:$`)
	factEcho      = regexp.MustCompile(`(?i)^(?:risk level|risk rating|overall risk|drug [ab])\s*:`)
)

// ContentCascade spreads the remaining content lines across sections in
// fixed proportions when the text has no recognisable headers.
type ContentCascade struct{}

func (ContentCascade) Name() string { return "content_cascade" }

// Try applies whenever any content survives boilerplate removal.
func (ContentCascade) Try(text string) (*entities.ExplanationSections, bool) {
	sections := &entities.ExplanationSections{}
	if !cascadeInto(sections, text, entities.SectionKeys) {
		return nil, false
	}
	return sections, true
}

// cascadeInto spreads the content lines of text over keys, in order and in
// proportion to their shares. Fewer lines than keys are split into
// sentences first. It reports whether any content was found.
func cascadeInto(sections *entities.ExplanationSections, text string, keys []string) bool {
	units := contentLines(text)
	if len(units) == 0 || len(keys) == 0 {
		return false
	}
	if len(units) < len(keys) {
		var sentences []string
		for _, u := range units {
			sentences = append(sentences, splitSentences(u)...)
		}
		units = sentences
	}

	shares := make([]float64, len(keys))
	total := 0.0
	for i, key := range keys {
		shares[i] = sectionShares[key]
		total += shares[i]
	}
	for i := range shares {
		shares[i] /= total
	}

	start := 0
	for i, n := range distribute(len(units), shares) {
		if n == 0 {
			continue
		}
		sections.SetSection(keys[i], SplitPoints(strings.Join(units[start:start+n], "\n")))
		start += n
	}
	return true
}

// contentLines strips markdown and bullet markers and drops boilerplate and title lines.
func contentLines(text string) []string {
	var out []string
	for _, line := range nonEmptyLines(text) {
		if bulletMarker.MatchString(line) {
			line = line[bulletMarker.FindStringIndex(line)[1]:]
		}
		line = strings.TrimSpace(markdownNoise.ReplaceAllString(line, ""))
		line = strings.TrimSpace(pointLabel.ReplaceAllString(line, ""))
		if cleanPoint(line) == "" || len([]rune(line)) < 3 {
			continue
		}
		if boilerplate.MatchString(line) || titleLike.MatchString(line) || factEcho.MatchString(line) || strings.HasPrefix(line, "⚠") {
			continue
		}
		out = append(out, line)
	}
	return out
}

// distribute splits n units by shares. When n covers every section each one
// gets at least one unit; otherwise the earliest sections get one each.
func distribute(n int, shares []float64) []int {
	counts := make([]int, len(shares))
	if n <= 0 {
		return counts
	}
	if n < len(shares) {
		for i := 0; i < n; i++ {
			counts[i] = 1
		}
		return counts
	}

	total := 0
	for i, share := range shares {
		// Tolerate float error in shares that were normalized.
		counts[i] = max(1, int(share*float64(n)+1e-9))
		total += counts[i]
	}
	for i := 0; total < n; i = (i + 1) % len(counts) {
		counts[i]++
		total++
	}
	for i := len(counts) - 1; total > n; {
		if counts[i] > 1 {
			counts[i]--
			total--
		}
		if i--; i < 0 {
			i = len(counts) - 1
		}
	}
	return counts
}
