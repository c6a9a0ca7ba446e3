package structurer

import (
	"strings"
	"testing"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/logging"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/refdata/entities"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/safety"
)

func init() {
	logging.InitLogger("")
}

var testCtx = Context{
	DrugA:          "aspirin",
	DrugB:          "warfarin",
	Mechanism:      "Both drugs impair hemostasis.",
	ClinicalEffect: "Increased bleeding risk.",
}

func assertAllSections(t *testing.T, s entities.ExplanationSections) {
	t.Helper()
	for _, key := range entities.SectionKeys {
		points := s.Section(key)
		if len(points) == 0 {
			t.Errorf("Expected section %s to be populated", key)
		}
		if len(points) > MaxPoints {
			t.Errorf("Expected at most %d points in %s, got %d", MaxPoints, key, len(points))
		}
		for _, p := range points {
			if strings.TrimSpace(p) == "" {
				t.Errorf("Expected no blank points in %s", key)
			}
		}
	}
}

const wellFormed = `Here is the analysis you asked for.

### MECHANISM OF INTERACTION:
- Warfarin blocks vitamin K dependent clotting factors.
- Aspirin irreversibly inhibits platelet aggregation.

### CLINICAL MANIFESTATIONS:
- Easy bruising and nosebleeds.
- Blood in urine or stool.

### RISK FACTORS:
- Advanced age.
- History of stomach ulcers.

### MONITORING RECOMMENDATIONS:
- Regular INR checks.

### ALTERNATIVE SUGGESTIONS:
- Ask a pharmacist about other pain relief options.`

func TestStructureWellFormedHeaders(t *testing.T) {
	s := New()
	sections, strategy := s.Apply(wellFormed)
	if strategy != "labeled_sections" {
		t.Fatalf("Expected labeled_sections strategy, got %q", strategy)
	}
	if len(sections.MechanismOfInteraction) != 2 {
		t.Errorf("Expected 2 mechanism points, got %v", sections.MechanismOfInteraction)
	}
	if sections.MechanismOfInteraction[0] != "Warfarin blocks vitamin K dependent clotting factors." {
		t.Errorf("Unexpected first mechanism point: %q", sections.MechanismOfInteraction[0])
	}
	if len(sections.ClinicalManifestations) != 2 || len(sections.RiskFactors) != 2 {
		t.Errorf("Unexpected clinical/risk sections: %v / %v", sections.ClinicalManifestations, sections.RiskFactors)
	}
	if sections.MonitoringRecommendations[0] != "Regular INR checks." {
		t.Errorf("Unexpected monitoring: %v", sections.MonitoringRecommendations)
	}
	for _, key := range entities.SectionKeys {
		for _, p := range sections.Section(key) {
			if strings.Contains(p, "Here is the analysis") {
				t.Error("Expected preamble before the first header to be dropped")
			}
		}
	}

	out := s.Structure(wellFormed, testCtx)
	assertAllSections(t, out)
	if out.RawOutput != wellFormed {
		t.Error("Expected raw output trace to be kept")
	}
}

func TestParseHeaderVariants(t *testing.T) {
	tests := []struct {
		line   string
		key    string
		inline string
		ok     bool
	}{
		{"### MECHANISM OF INTERACTION:", entities.SectionMechanism, "", true},
		{"**2. Clinical Manifestations**", entities.SectionClinical, "", true},
		{"**Mechanism:** Both drugs thin the blood.", entities.SectionMechanism, "Both drugs thin the blood.", true},
		{"Risk factors - elderly patients", entities.SectionRiskFactors, "elderly patients", true},
		{"MONITORING", entities.SectionMonitoring, "", true},
		{"4) Monitoring Recommendations:", entities.SectionMonitoring, "", true},
		{"__Alternatives__", entities.SectionAlternatives, "", true},
		{"Symptoms:", entities.SectionClinical, "", true},
		{"## Mechanisms involved", entities.SectionMechanism, "", true},
		{"Section 3: Risk Factors", entities.SectionRiskFactors, "", true},
		{"Clinical & Symptoms:", entities.SectionClinical, "", true},
		{"Risk Level: HIGH", "", "", false},
		{"**Risk level:** moderate", "", "", false},
		{"Monitor INR closely.", "", "", false},
		{"- Risk: elderly patients bleed more.", "", "", false},
		{"1. Monitor blood counts weekly and report any bruising", "", "", false},
		{"Note: this is informational.", "", "", false},
		{"", "", "", false},
		{"The mechanism involves platelets and clotting factors in the blood stream.", "", "", false},
	}

	for _, tt := range tests {
		key, inline, ok := parseHeader(tt.line)
		if ok != tt.ok || key != tt.key || inline != tt.inline {
			t.Errorf("parseHeader(%q) = (%q, %q, %v), want (%q, %q, %v)", tt.line, key, inline, ok, tt.key, tt.inline, tt.ok)
		}
	}
}

func TestLabeledSectionsInlineAndRepeatedHeaders(t *testing.T) {
	text := "Mechanism: Warfarin reduces clotting.\nClinical effects: Bleeding.\nMechanism: Aspirin affects platelets."
	sections, ok := LabeledSections{}.Try(text)
	if !ok {
		t.Fatal("Expected labeled strategy to apply")
	}
	if len(sections.MechanismOfInteraction) != 2 {
		t.Errorf("Expected repeated header content to merge, got %v", sections.MechanismOfInteraction)
	}
	if len(sections.ClinicalManifestations) != 1 || sections.ClinicalManifestations[0] != "Bleeding." {
		t.Errorf("Expected inline clinical content, got %v", sections.ClinicalManifestations)
	}
}

func TestLabeledSectionsPartialOutputGetsDefaults(t *testing.T) {
	text := "**Mechanism of Interaction**\nWarfarin and aspirin both reduce the ability of blood to clot."
	out := New().Structure(text, testCtx)
	assertAllSections(t, out)

	if !strings.Contains(out.MechanismOfInteraction[0], "reduce the ability of blood to clot") {
		t.Errorf("Expected parsed mechanism, got %v", out.MechanismOfInteraction)
	}
	if !strings.Contains(out.RiskFactors[0], "Aspirin") || !strings.Contains(out.RiskFactors[0], "Warfarin") {
		t.Errorf("Expected default risk statement naming both drugs, got %v", out.RiskFactors)
	}
}

func TestLabeledSectionsKeepUnlabeledLead(t *testing.T) {
	text := strings.Join([]string{
		"Warfarin blocks the recycling of vitamin K in the liver.",
		"Combined with aspirin, bruising and gum bleeding become more likely.",
		"People over seventy or with stomach ulcers are most affected.",
		"Alternatives:",
		"- Ask a pharmacist.",
	}, "\n")

	sections, strategy := New().Apply(text)
	if strategy != "labeled_sections" {
		t.Fatalf("Expected labeled_sections strategy, got %q", strategy)
	}
	if len(sections.AlternativeSuggestions) != 1 || sections.AlternativeSuggestions[0] != "Ask a pharmacist." {
		t.Errorf("Expected labeled alternatives, got %v", sections.AlternativeSuggestions)
	}
	want := map[string]string{
		entities.SectionMechanism:   "Warfarin blocks the recycling of vitamin K in the liver.",
		entities.SectionClinical:    "Combined with aspirin, bruising and gum bleeding become more likely.",
		entities.SectionRiskFactors: "People over seventy or with stomach ulcers are most affected.",
	}
	for key, point := range want {
		if got := sections.Section(key); len(got) != 1 || got[0] != point {
			t.Errorf("Section %s: expected [%q], got %v", key, point, got)
		}
	}

	out := New().Structure(text, testCtx)
	assertAllSections(t, out)
	if out.MechanismOfInteraction[0] != want[entities.SectionMechanism] {
		t.Errorf("Expected model mechanism to survive defaults, got %v", out.MechanismOfInteraction)
	}
}

func TestEchoedRiskLevelIsNotRiskFactors(t *testing.T) {
	text := "Risk Level: HIGH\n\nRisk factors:\n- Older age.\n\nMonitoring:\n- Regular INR checks."
	sections, ok := LabeledSections{}.Try(text)
	if !ok {
		t.Fatal("Expected labeled strategy to apply")
	}
	if len(sections.RiskFactors) != 1 || sections.RiskFactors[0] != "Older age." {
		t.Errorf("Expected only the labeled risk factor, got %v", sections.RiskFactors)
	}
	for _, key := range entities.SectionKeys {
		for _, p := range sections.Section(key) {
			if strings.Contains(p, "HIGH") {
				t.Errorf("Expected echoed risk level to be dropped, found in %s", key)
			}
		}
	}
}

func TestContentCascadeWithoutHeaders(t *testing.T) {
	lines := []string{
		"# Drug Interaction Analysis",
		"Warfarin inhibits vitamin K epoxide reductase.",
		"Aspirin irreversibly blocks cyclooxygenase in platelets.",
		"Together they impair both arms of hemostasis.",
		"Patients may notice easy bruising.",
		"Gum bleeding can occur while brushing teeth.",
		"Older adults are more vulnerable.",
		"Kidney disease increases exposure.",
		"INR should be checked regularly.",
		"Stool colour changes are worth reporting.",
		"A pharmacist can suggest other pain relief.",
		"",
		"Disclaimer: This information is for educational purposes only.",
	}
	text := strings.Join(lines, "\n")

	sections, strategy := New().Apply(text)
	if strategy != "content_cascade" {
		t.Fatalf("Expected content_cascade strategy, got %q", strategy)
	}
	got := [][]string{
		sections.MechanismOfInteraction, sections.ClinicalManifestations, sections.RiskFactors,
		sections.MonitoringRecommendations, sections.AlternativeSuggestions,
	}
	want := []int{4, 2, 2, 1, 1}
	for i, n := range want {
		if len(got[i]) != n {
			t.Errorf("Section %s: expected %d points, got %d (%v)", entities.SectionKeys[i], n, len(got[i]), got[i])
		}
	}
	if sections.MechanismOfInteraction[0] != "Warfarin inhibits vitamin K epoxide reductase." {
		t.Errorf("Expected title to be dropped, got %q", sections.MechanismOfInteraction[0])
	}
	for _, key := range entities.SectionKeys {
		for _, p := range sections.Section(key) {
			if strings.Contains(strings.ToLower(p), "disclaimer") {
				t.Errorf("Expected disclaimer to be discarded, found in %s", key)
			}
		}
	}
}

func TestContentCascadeSingleParagraph(t *testing.T) {
	text := "Warfarin reduces clotting. Aspirin reduces platelet function. The combination raises bleeding risk."
	out := New().Structure(text, testCtx)
	assertAllSections(t, out)
	if out.MechanismOfInteraction[0] != "Warfarin reduces clotting." {
		t.Errorf("Expected first sentence in mechanism, got %v", out.MechanismOfInteraction)
	}
	if out.ClinicalManifestations[0] != "Aspirin reduces platelet function." {
		t.Errorf("Expected second sentence in clinical, got %v", out.ClinicalManifestations)
	}
	if out.RiskFactors[0] != "The combination raises bleeding risk." {
		t.Errorf("Expected third sentence in risk factors, got %v", out.RiskFactors)
	}
}

func TestStructureAlwaysPopulates(t *testing.T) {
	inputs := []string{
		"",
		"   \n\t  ",
		"###",
		"**",
		"---\n***\n---",
		"Disclaimer: for educational purposes only.",
		"Mechanism:",
		"\x00\x01garbage\x02",
		strings.Repeat("word ", 5000),
		"1.\n2.\n3.",
		"⚠️ IMPORTANT: consult your doctor.",
	}
	s := New()
	for _, in := range inputs {
		out := s.Structure(in, testCtx)
		assertAllSections(t, out)
	}
}

func TestStructureEmptyUsesGroundedDefaults(t *testing.T) {
	out := New().Structure("", testCtx)
	if !strings.Contains(out.MechanismOfInteraction[0], testCtx.Mechanism) {
		t.Errorf("Expected mechanism default to carry the verified mechanism, got %q", out.MechanismOfInteraction[0])
	}
	if !strings.Contains(out.ClinicalManifestations[0], testCtx.ClinicalEffect) {
		t.Errorf("Expected clinical default to carry the verified effect, got %q", out.ClinicalManifestations[0])
	}

	bare := New().Structure("", Context{DrugA: "aspirin", DrugB: "warfarin"})
	for _, key := range entities.SectionKeys {
		p := bare.Section(key)[0]
		if !strings.Contains(p, "Aspirin") || !strings.Contains(p, "Warfarin") {
			t.Errorf("Expected default for %s to name both drugs, got %q", key, p)
		}
	}
}

func TestDefaultStatementsPassSafetyGate(t *testing.T) {
	out := New().Structure("", testCtx)
	if ok, _ := safety.ValidateSections(&out); !ok {
		t.Errorf("Expected default statements to pass the safety gate, violations: %v",
			safety.Violations(strings.Join(append(out.MonitoringRecommendations, out.AlternativeSuggestions...), " ")))
	}
}

func TestRawOutputIsTruncated(t *testing.T) {
	long := strings.Repeat("é", MaxTraceRunes+50)
	out := New().Structure(long, testCtx)
	if !strings.HasSuffix(out.RawOutput, "...[truncated]") {
		t.Error("Expected truncated marker on long raw output")
	}
	if n := len([]rune(strings.TrimSuffix(out.RawOutput, "...[truncated]"))); n != MaxTraceRunes {
		t.Errorf("Expected %d runes kept, got %d", MaxTraceRunes, n)
	}
}

type stubStrategy struct {
	name  string
	apply bool
}

func (s stubStrategy) Name() string { return s.name }
func (s stubStrategy) Try(string) (*entities.ExplanationSections, bool) {
	if !s.apply {
		return nil, false
	}
	return &entities.ExplanationSections{RiskFactors: []string{s.name}}, true
}

func TestStrategiesRunInOrder(t *testing.T) {
	s := New(stubStrategy{"first", false}, stubStrategy{"second", true}, stubStrategy{"third", true})
	sections, name := s.Apply("anything")
	if name != "second" {
		t.Errorf("Expected second strategy to win, got %q", name)
	}
	if sections.RiskFactors[0] != "second" {
		t.Errorf("Unexpected sections: %+v", sections)
	}
}

func TestDisplayName(t *testing.T) {
	tests := map[string]string{"warfarin": "Warfarin", "  aspirin ": "Aspirin", "": "Unknown"}
	for in, want := range tests {
		if got := DisplayName(in); got != want {
			t.Errorf("DisplayName(%q) = %q, want %q", in, got, want)
		}
	}
}
