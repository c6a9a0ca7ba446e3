// Package resolver maps noisy package text onto canonical generic drug names
// using exact, alias and fuzzy matching against a reference snapshot.
package resolver

import (
	"regexp"
	"sort"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/interfaces"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/logging"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/refdata"
)

// DefaultThreshold is the minimum fuzzy similarity accepted as a match.
const DefaultThreshold = 80.0

var _ interfaces.DrugResolver = (*Resolver)(nil)

var (
	dosageNoise = regexp.MustCompile(`(?i)\d+\s*(mg|ml|mcg|g|tablets?|pills?|caps?)`)
	labelNoise  = regexp.MustCompile(`(?i)(mfg|exp|batch|lot|strip|pack)[:.]?\s*\S+`)
)

// Match methods, in precedence order.
const (
	MethodExact        = "exact"
	MethodBrand        = "brand"
	MethodFuzzyGeneric = "fuzzy_generic"
	MethodFuzzyVariant = "fuzzy_variant"
)

// Match describes how a piece of text resolved.
type Match struct {
	Input   string  `json:"input"`
	Generic string  `json:"generic_name"`
	Method  string  `json:"method"`
	Variant string  `json:"matched_variant,omitempty"`
	Score   float64 `json:"score"`
}

type variant struct {
	name    string // lower-cased surface form
	generic string
}

// Resolver is built once per snapshot and is safe for concurrent use.
type Resolver struct {
	threshold float64
	generics  []string          // sorted
	brands    map[string]string // lower-cased brand -> generic
	variants  []variant         // brands and misspellings, sorted by generic then name
}

// New indexes snap. A threshold outside (0, 100] falls back to DefaultThreshold.
func New(snap *refdata.Snapshot, threshold float64) *Resolver {
	if threshold <= 0 || threshold > 100 {
		threshold = DefaultThreshold
	}
	r := &Resolver{
		threshold: threshold,
		generics:  snap.GenericNames(),
		brands:    make(map[string]string),
	}

	for _, generic := range r.generics {
		record := snap.Drugs[generic]
		for _, brand := range record.BrandNames {
			key := strings.ToLower(brand)
			// Generics are visited in sorted order, so the first claim on a brand wins.
			if _, taken := r.brands[key]; !taken {
				r.brands[key] = generic
			}
			r.variants = append(r.variants, variant{name: key, generic: generic})
		}
		for _, m := range record.Misspellings {
			r.variants = append(r.variants, variant{name: strings.ToLower(m), generic: generic})
		}
	}
	sort.SliceStable(r.variants, func(i, j int) bool {
		if r.variants[i].generic != r.variants[j].generic {
			return r.variants[i].generic < r.variants[j].generic
		}
		return r.variants[i].name < r.variants[j].name
	})
	return r
}

// Resolve finds the generic name for text, reporting which rule matched.
// Ties between equally scored candidates go to the lexicographically
// smallest generic name.
func (r *Resolver) Resolve(text string) (Match, bool) {
	needle := strings.ToLower(strings.TrimSpace(fold(text)))
	if needle == "" {
		return Match{}, false
	}

	if i := sort.SearchStrings(r.generics, needle); i < len(r.generics) && r.generics[i] == needle {
		return Match{Input: text, Generic: needle, Method: MethodExact, Score: 100}, true
	}

	if generic, ok := r.brands[needle]; ok {
		return Match{Input: text, Generic: generic, Method: MethodBrand, Variant: needle, Score: 100}, true
	}

	best := Match{Input: text}
	for _, generic := range r.generics {
		score := Similarity(needle, generic)
		if score >= r.threshold && score > best.Score {
			best = Match{Input: text, Generic: generic, Method: MethodFuzzyGeneric, Score: score}
		}
	}
	if best.Generic != "" {
		return best, true
	}

	for _, v := range r.variants {
		score := Similarity(needle, v.name)
		if score >= r.threshold && score > best.Score {
			best = Match{Input: text, Generic: v.generic, Method: MethodFuzzyVariant, Variant: v.name, Score: score}
		}
	}
	if best.Generic != "" {
		return best, true
	}

	return Match{}, false
}

// GenericName returns the canonical name for text, if any.
func (r *Resolver) GenericName(text string) (string, bool) {
	m, ok := r.Resolve(text)
	if !ok {
		logging.Debug("No drug match", "text", text)
		return "", false
	}
	logging.Debug("Drug matched", "text", text, "generic", m.Generic, "method", m.Method, "score", m.Score)
	return m.Generic, true
}

// Normalize resolves every line and returns the sorted, de-duplicated set
// of generic names found. Each candidate token and the whole line are tried.
func (r *Resolver) Normalize(lines []string) []string {
	found := make(map[string]struct{})
	for _, line := range lines {
		line = fold(line)
		for _, word := range extractWords(line) {
			if generic, ok := r.GenericName(word); ok {
				found[generic] = struct{}{}
			}
		}
		if generic, ok := r.GenericName(line); ok {
			found[generic] = struct{}{}
		}
	}

	drugs := make([]string, 0, len(found))
	for generic := range found {
		drugs = append(drugs, generic)
	}
	sort.Strings(drugs)
	return drugs
}

// extractWords drops dosage and packaging noise, then keeps tokens of at
// least three characters that are not pure digits.
func extractWords(text string) []string {
	text = dosageNoise.ReplaceAllString(text, "")
	text = labelNoise.ReplaceAllString(text, "")

	var words []string
	for _, field := range strings.Fields(text) {
		w := strings.Trim(field, ".,;:()[]{}")
		if len([]rune(w)) < 3 || isDigits(w) {
			continue
		}
		words = append(words, w)
	}
	return words
}

func isDigits(s string) bool {
	for _, c := range s {
		if !unicode.IsDigit(c) {
			return false
		}
	}
	return s != ""
}

// Provider hands out a Resolver for the store's current snapshot, rebuilding
// the index only when the snapshot changes.
type Provider struct {
	store     interfaces.ReferenceStore
	threshold float64
	current   atomic.Pointer[providerEntry]
}

type providerEntry struct {
	snap     *refdata.Snapshot
	resolver *Resolver
}

func NewProvider(store interfaces.ReferenceStore, threshold float64) *Provider {
	return &Provider{store: store, threshold: threshold}
}

// Resolver returns the resolver matching the active snapshot.
func (p *Provider) Resolver() *Resolver {
	return p.ResolverFor(p.store.Snapshot())
}

// ResolverFor returns the resolver for snap, reusing the cached index when
// snap is the one it was built from.
func (p *Provider) ResolverFor(snap *refdata.Snapshot) *Resolver {
	if e := p.current.Load(); e != nil && e.snap == snap {
		return e.resolver
	}
	r := New(snap, p.threshold)
	p.current.Store(&providerEntry{snap: snap, resolver: r})
	return r
}
