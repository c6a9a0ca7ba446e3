package generation

import (
	"fmt"
	"strings"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/refdata/entities"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SystemPrompt frames every explanation request.
const SystemPrompt = `You are a careful, safety-focused medical information assistant.
You explain verified drug interactions in a structured, point-wise format.

STRICT RULES:
1. ONLY use the verified facts provided in the prompt.
2. DO NOT invent new interactions.
3. DO NOT give medical advice, dosing instructions or prescriptions.
4. If the data is unknown or insufficient, say so clearly.
5. ALWAYS point the reader to a healthcare professional.

OUTPUT REQUIREMENTS:
1. Use the five section headings exactly as given.
2. Give 5-7 points per section, each 2-3 sentences long.
3. Explain medical terms in plain language.`

const (
	unknownDrug           = "Unknown"
	missingMechanism      = "No mechanism data available."
	missingClinicalEffect = "No clinical effect data available."
	missingRecommendation = "Consult your doctor."
)

// sectionHeadings are emitted in the prompt and recognised by the structurer.
var sectionHeadings = []struct {
	title string
	asks  []string
}{
	{"MECHANISM OF INTERACTION", []string{
		"Pharmacodynamic effects of the combination",
		"Pharmacokinetic pathways: absorption, distribution, metabolism, excretion",
		"Enzyme or transporter involvement where relevant",
		"Time course of the interaction",
	}},
	{"CLINICAL MANIFESTATIONS", []string{
		"Symptoms and clinical signs",
		"Severity and onset",
		"Affected organ systems and laboratory findings",
		"Differences across patient populations",
	}},
	{"RISK FACTORS", []string{
		"Patient groups at higher risk",
		"Conditions and other medicines that raise the risk",
		"Duration and lifestyle factors",
	}},
	{"MONITORING RECOMMENDATIONS", []string{
		"Clinical and laboratory parameters to watch",
		"Warning signs that need urgent attention",
		"Follow-up with a healthcare professional",
	}},
	{"ALTERNATIVE SUGGESTIONS", []string{
		"General classes of options a clinician may consider",
		"Non-drug approaches",
		"When to involve a pharmacist or specialist",
	}},
}

var titleCaser = cases.Title(language.English)

// BuildExplanationPrompt renders the grounded prompt for one interaction:
// system rules, the verified facts and the required section headings.
func BuildExplanationPrompt(record entities.InteractionRecord) string {
	drugA, drugB := displayName(record.DrugPair[0]), displayName(record.DrugPair[1])
	risk := strings.ToUpper(record.RiskLevel.String())

	var b strings.Builder
	fmt.Fprintf(&b, "System: %s\n\n", SystemPrompt)
	b.WriteString("Task: Provide a structured, point-wise analysis of this drug interaction.\n\n")
	b.WriteString("Verified Facts:\n")
	fmt.Fprintf(&b, "- Drug A: %s\n", drugA)
	fmt.Fprintf(&b, "- Drug B: %s\n", drugB)
	fmt.Fprintf(&b, "- Risk Level: %s\n", risk)
	fmt.Fprintf(&b, "- Mechanism: %s\n", orDefault(record.Mechanism, missingMechanism))
	fmt.Fprintf(&b, "- Clinical Effect: %s\n", orDefault(record.ClinicalEffect, missingClinicalEffect))
	fmt.Fprintf(&b, "- Recommendation: %s\n", orDefault(record.Recommendation, missingRecommendation))
	b.WriteString("\nREQUIRED OUTPUT STRUCTURE:\n")
	for _, h := range sectionHeadings {
		fmt.Fprintf(&b, "\n### %s:\n", h.title)
		for _, ask := range h.asks {
			fmt.Fprintf(&b, "- %s\n", ask)
		}
	}
	b.WriteString("\nCRITICAL CONSTRAINTS:\n")
	b.WriteString("- Do not give dosage numbers.\n")
	b.WriteString("- Do not recommend specific drugs.\n")
	b.WriteString("- Do not name a diagnosis.\n")
	b.WriteString("- Always refer the reader to a healthcare professional.\n")
	return b.String()
}

// BuildTranslationPrompt asks for text to be translated from English into lang.
func BuildTranslationPrompt(text, lang string) string {
	return fmt.Sprintf("System: You are a medical translator. Translate the text preserving safety warnings exactly.\n\n"+
		"Original (English): %s\nTarget Language: %s\n\nTranslation:", text, lang)
}

func displayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return unknownDrug
	}
	return titleCaser.String(strings.TrimSpace(name))
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
