package pipeline

import (
	"context"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/interactions"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/logging"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/refdata/entities"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/safety"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Analyze runs the whole pipeline and returns one aggregate result.
// An image no engine can read gives an info result. Other extraction and
// resolution failures are returned as errors; per-item generation failures
// are reported on the affected item.
func (o *Orchestrator) Analyze(ctx context.Context, in entities.AnalysisInput) (*entities.AnalysisResult, error) {
	r := o.newRun(ModeBatch)
	ctx, span := o.tracer.Start(ctx, "pipeline.analyze")
	defer span.End()
	span.SetAttributes(attribute.String("analysis_id", r.id))

	prep, err := o.prepare(ctx, r, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logging.Error("Analysis failed", "analysis_id", r.id, "error", err)
		o.finish(ctx, r, entities.StatusError, nil, nil, 0)
		return nil, err
	}

	result := &entities.AnalysisResult{
		AnalysisID:    r.id,
		Status:        entities.StatusSuccess,
		DetectedDrugs: nonNil(prep.drugs),
		Interactions:  []entities.InteractionResult{},
		Disclaimer:    safety.Disclaimer,
	}

	switch {
	case len(prep.lines) == 0:
		result.Status, result.Message = entities.StatusInfo, MsgNoText
	case len(prep.drugs) < 2:
		result.Status, result.Message = entities.StatusInfo, MsgTooFewDrugs
	default:
		r.to(StateExplaining)
		for _, rec := range prep.records {
			result.Interactions = append(result.Interactions, o.explain(ctx, rec))
		}
		result.InteractionCount = len(prep.records)
		if risk, ok := interactions.HighestRisk(prep.records); ok {
			result.HighestRisk = &risk
		}
	}

	logging.Info("Analysis complete", "analysis_id", r.id, "status", result.Status,
		"drugs", result.DetectedDrugs, "interactions", result.InteractionCount, "safety_alerts", result.SafetyAlerts())
	o.finish(ctx, r, result.Status, prep.drugs, prep.records, result.SafetyAlerts())
	return result, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
