package refdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/logging"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/refdata/entities"
	"gopkg.in/yaml.v3"
)

// Snapshot is one immutable, consistent version of the reference tables.
// Nothing mutates a Snapshot after Load returns it.
type Snapshot struct {
	Drugs        map[string]entities.DrugRecord        // keyed by lower-case generic name
	Interactions map[string]entities.InteractionRecord // keyed by compound key
	LoadedAt     time.Time
}

// EmptySnapshot returns a snapshot with no drugs and no interactions.
func EmptySnapshot() *Snapshot {
	return &Snapshot{
		Drugs:        map[string]entities.DrugRecord{},
		Interactions: map[string]entities.InteractionRecord{},
		LoadedAt:     time.Now(),
	}
}

// GenericNames returns every canonical name, sorted.
func (s *Snapshot) GenericNames() []string {
	names := make([]string, 0, len(s.Drugs))
	for name := range s.Drugs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type drugEntry struct {
	BrandNames   []string `json:"brand_names" yaml:"brand_names"`
	Misspellings []string `json:"common_misspellings" yaml:"common_misspellings"`
}

func unmarshal(location string, content []byte, v any) error {
	switch strings.ToLower(path.Ext(location)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(content, v)
	default:
		return json.Unmarshal(content, v)
	}
}

// LoadDrugDictionary reads {generic: {brand_names, common_misspellings}}.
func LoadDrugDictionary(ctx context.Context, location string) (map[string]entities.DrugRecord, error) {
	content, err := readSource(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read drug dictionary: %w", err)
	}

	var raw map[string]drugEntry
	if err := unmarshal(location, content, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse drug dictionary %s: %w", location, err)
	}

	drugs := make(map[string]entities.DrugRecord, len(raw))
	for generic, entry := range raw {
		name := strings.ToLower(strings.TrimSpace(generic))
		if name == "" {
			continue
		}
		drugs[name] = entities.DrugRecord{
			GenericName:  name,
			BrandNames:   cleanNames(entry.BrandNames),
			Misspellings: cleanNames(entry.Misspellings),
		}
	}
	return drugs, nil
}

func cleanNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// interactionEntry is the on-disk shape of one interaction. RiskLevel is a
// pointer so a missing value can be told apart from an explicit "none".
type interactionEntry struct {
	RiskLevel      *entities.RiskLevel `json:"risk_level" yaml:"risk_level"`
	Severity       string              `json:"severity" yaml:"severity"`
	Mechanism      string              `json:"mechanism" yaml:"mechanism"`
	ClinicalEffect string              `json:"clinical_effect" yaml:"clinical_effect"`
	Recommendation string              `json:"recommendation" yaml:"recommendation"`
	Source         string              `json:"source" yaml:"source"`
	EvidenceLevel  string              `json:"evidence_level" yaml:"evidence_level"`
}

// record converts the entry. An absent risk level becomes RiskUnknown so
// the pair is still reported.
func (e interactionEntry) record() entities.InteractionRecord {
	risk := entities.RiskUnknown
	if e.RiskLevel != nil {
		risk = *e.RiskLevel
	}
	return entities.InteractionRecord{
		RiskLevel:      risk,
		Severity:       e.Severity,
		Mechanism:      e.Mechanism,
		ClinicalEffect: e.ClinicalEffect,
		Recommendation: e.Recommendation,
		Source:         e.Source,
		EvidenceLevel:  e.EvidenceLevel,
	}
}

// LoadInteractions reads {"drug_a+drug_b": {risk_level, mechanism, ...}}.
// Keys are re-normalized; entries whose key is not a pair are skipped.
// Entries without a risk level are kept as unknown risk.
func LoadInteractions(ctx context.Context, location string) (map[string]entities.InteractionRecord, error) {
	content, err := readSource(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read interactions: %w", err)
	}

	var raw map[string]interactionEntry
	if err := unmarshal(location, content, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse interactions %s: %w", location, err)
	}

	interactions := make(map[string]entities.InteractionRecord, len(raw))
	for key, entry := range raw {
		parts := strings.Split(key, "+")
		if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
			logging.Warn("Skipping malformed interaction key", "key", key)
			continue
		}
		a, b := strings.ToLower(strings.TrimSpace(parts[0])), strings.ToLower(strings.TrimSpace(parts[1]))
		if a > b {
			a, b = b, a
		}
		record := entry.record()
		record.DrugPair = [2]string{a, b}
		if entry.RiskLevel == nil {
			logging.Warn("Interaction has no risk level, reporting it as unknown", "key", key)
		}
		if record.Source == "" {
			record.Source = entities.SourceKnowledgeBase
		}
		interactions[entities.CompoundKey(a, b)] = record
	}
	return interactions, nil
}

// Loader reads both reference tables from configured locations.
type Loader struct {
	DrugLocation        string
	InteractionLocation string
}

func NewLoader(drugLocation, interactionLocation string) *Loader {
	return &Loader{DrugLocation: drugLocation, InteractionLocation: interactionLocation}
}

// Load reads both tables concurrently. It always returns a usable snapshot:
// a table that cannot be read or parsed is empty, and the returned error
// describes what failed.
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	snap := EmptySnapshot()

	var wg sync.WaitGroup
	var drugErr, kbErr error
	var drugs map[string]entities.DrugRecord
	var interactions map[string]entities.InteractionRecord

	wg.Add(2)
	go func() {
		defer wg.Done()
		drugs, drugErr = LoadDrugDictionary(ctx, l.DrugLocation)
	}()
	go func() {
		defer wg.Done()
		interactions, kbErr = LoadInteractions(ctx, l.InteractionLocation)
	}()
	wg.Wait()

	if drugErr == nil {
		snap.Drugs = drugs
	}
	if kbErr == nil {
		snap.Interactions = interactions
	}
	snap.LoadedAt = time.Now()

	return snap, errors.Join(drugErr, kbErr)
}
