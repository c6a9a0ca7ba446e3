package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/refdata/entities"
)

// TemplateGenerator writes a deterministic sectioned explanation from the
// verified facts alone. It needs no model and is used offline and as the
// orchestrator's optional substitute.
type TemplateGenerator struct{}

func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{}
}

func (*TemplateGenerator) Name() string {
	return ProviderTemplate
}

func (*TemplateGenerator) Generate(ctx context.Context, req entities.GenerationRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	rec := req.Interaction
	a, b := displayName(rec.DrugPair[0]), displayName(rec.DrugPair[1])
	risk := rec.RiskLevel.String()

	var sb strings.Builder
	section := func(title string, points ...string) {
		fmt.Fprintf(&sb, "### %s:\n", title)
		for _, p := range points {
			if p != "" {
				fmt.Fprintf(&sb, "- %s\n", p)
			}
		}
		sb.WriteByte('\n')
	}

	section("MECHANISM OF INTERACTION",
		orDefault(rec.Mechanism, fmt.Sprintf("No verified mechanism is recorded for %s with %s.", a, b)),
		fmt.Sprintf("The reference data rates the combination of %s and %s as %s risk.", a, b, risk),
	)
	section("CLINICAL MANIFESTATIONS",
		orDefault(rec.ClinicalEffect, fmt.Sprintf("No verified clinical effect is recorded for %s with %s.", a, b)),
		"Any new, unusual or worsening symptoms are worth reporting to a healthcare professional.",
	)
	riskPoints := []string{
		"Older age, kidney or liver conditions and the use of several medicines can make interactions more pronounced.",
	}
	if rec.EvidenceLevel != "" {
		riskPoints = append(riskPoints, fmt.Sprintf("The evidence for this interaction is rated %s.", rec.EvidenceLevel))
	}
	section("RISK FACTORS", riskPoints...)
	section("MONITORING RECOMMENDATIONS",
		orDefault(rec.Recommendation, "A healthcare professional can explain what to watch for."),
		fmt.Sprintf("Keep an up-to-date list of medicines, including %s and %s, to share at appointments.", a, b),
	)
	section("ALTERNATIVE SUGGESTIONS",
		fmt.Sprintf("A doctor or pharmacist can review whether other options suit you better than %s with %s.", a, b),
		"Do not change your medicines on your own.",
	)
	return strings.TrimSpace(sb.String()), nil
}

// disabledGenerator is configured by provider "none".
type disabledGenerator struct{}

func (disabledGenerator) Name() string { return ProviderNone }

func (disabledGenerator) Generate(context.Context, entities.GenerationRequest) (string, error) {
	return "", ErrProviderDisabled
}
