package structurer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinPointLength is the length sentence grouping accumulates to before emitting a point.
const MinPointLength = 80

var (
	bulletMarker = regexp.MustCompile(`^\s*(?:[-*•·▪‣–]|\d{1,2}[.)]|[a-zA-Z][.)])\s+`)
	pointLabel   = regexp.MustCompile(`(?i)^point\s*\d+\s*[:.)-]\s*`)
	emphasis     = strings.NewReplacer("**", "", "__", "", "`", "")
)

// SplitPoints breaks a slice of text into discrete points: bullet items
// when there are any, otherwise one point per line, otherwise groups of
// sentences of at least MinPointLength characters. At most MaxPoints are returned.
func SplitPoints(text string) []string {
	lines := nonEmptyLines(text)
	if len(lines) == 0 {
		return nil
	}

	var points []string
	switch {
	case hasBullets(lines):
		points = splitBullets(lines)
	case len(lines) > 1:
		points = lines
	default:
		points = groupSentences(lines[0], MinPointLength)
	}

	cleaned := make([]string, 0, len(points))
	for _, p := range points {
		if p = cleanPoint(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return capPoints(cleaned, MaxPoints)
}

func nonEmptyLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func hasBullets(lines []string) bool {
	for _, line := range lines {
		if bulletMarker.MatchString(line) {
			return true
		}
	}
	return false
}

// splitBullets starts a point at each bullet; other lines continue the current point.
func splitBullets(lines []string) []string {
	var points []string
	for _, line := range lines {
		if loc := bulletMarker.FindStringIndex(line); loc != nil {
			points = append(points, line[loc[1]:])
			continue
		}
		if len(points) == 0 {
			points = append(points, line)
			continue
		}
		points[len(points)-1] += " " + line
	}
	return points
}

// groupSentences accumulates sentences until a group reaches minLen.
func groupSentences(text string, minLen int) []string {
	var groups []string
	var current strings.Builder
	for _, sentence := range splitSentences(text) {
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(sentence)
		if utf8.RuneCountInString(current.String()) >= minLen {
			groups = append(groups, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		groups = append(groups, current.String())
	}
	return groups
}

// splitSentences splits after '.', '!' or '?' followed by whitespace.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(strings.TrimSpace(text))
	start := 0
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '.', '!', '?':
			if i+1 < len(runes) && (runes[i+1] == ' ' || runes[i+1] == '\t') {
				if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
					sentences = append(sentences, s)
				}
				start = i + 1
			}
		}
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func cleanPoint(p string) string {
	p = emphasis.Replace(strings.TrimSpace(p))
	p = pointLabel.ReplaceAllString(p, "")
	p = strings.TrimSpace(p)
	if strings.IndexFunc(p, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) < 0 {
		return ""
	}
	return p
}

func capPoints(points []string, limit int) []string {
	if len(points) <= limit {
		return points
	}
	return points[:limit]
}
