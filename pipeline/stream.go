package pipeline

import (
	"context"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/logging"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/refdata/entities"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/safety"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Stream runs the pipeline and reports progress through emit: one init
// event once the deterministic lookups are done, one interaction event per
// record in index order, then exactly one done or error event.
//
// An image no engine can read streams like a blank one: init carrying the
// no-text message, then done. Other extraction and resolution failures
// emit a terminal error event and are returned. An emit error means the consumer is gone: Stream stops
// without emitting anything further and returns that error.
func (o *Orchestrator) Stream(ctx context.Context, in entities.AnalysisInput, emit func(entities.StreamEvent) error) error {
	r := o.newRun(ModeStream)
	ctx, span := o.tracer.Start(ctx, "pipeline.stream")
	defer span.End()
	span.SetAttributes(attribute.String("analysis_id", r.id))

	prep, err := o.prepare(ctx, r, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logging.Error("Streaming analysis failed", "analysis_id", r.id, "error", err)
		o.finish(ctx, r, entities.StatusError, nil, nil, 0)
		if emitErr := emit(entities.StreamEvent{Type: entities.EventError, Payload: entities.ErrorPayload{Detail: err.Error()}}); emitErr != nil {
			return emitErr
		}
		return err
	}

	initPayload := entities.InitPayload{
		AnalysisID:        r.id,
		DetectedDrugs:     nonNil(prep.drugs),
		InteractionsBasic: []entities.InteractionRecord{},
		Disclaimer:        safety.Disclaimer,
	}
	status := entities.StatusSuccess
	switch {
	case len(prep.lines) == 0:
		initPayload.Message, status = MsgNoText, entities.StatusInfo
	case len(prep.drugs) < 2:
		initPayload.Message, status = MsgTooFewDrugs, entities.StatusInfo
	default:
		initPayload.InteractionCount = len(prep.records)
		initPayload.InteractionsBasic = prep.records
	}

	if err := emit(entities.StreamEvent{Type: entities.EventInit, Payload: initPayload}); err != nil {
		return o.abandon(ctx, r, err)
	}

	alerts := 0
	if status == entities.StatusSuccess {
		r.to(StateExplaining)
		for i, rec := range prep.records {
			if err := ctx.Err(); err != nil {
				return o.abandon(ctx, r, err)
			}
			res := o.explain(ctx, rec)
			if res.SafetyAlert {
				alerts++
			}
			payload := entities.InteractionPayload{Index: i, Interaction: res, Error: res.Error}
			if err := emit(entities.StreamEvent{Type: entities.EventInteraction, Payload: payload}); err != nil {
				return o.abandon(ctx, r, err)
			}
			logging.Debug("Streamed interaction", "analysis_id", r.id, "index", i, "total", len(prep.records))
		}
	} else {
		prep.records = nil
	}

	if err := emit(entities.StreamEvent{Type: entities.EventDone, Payload: entities.DonePayload{}}); err != nil {
		return o.abandon(ctx, r, err)
	}
	logging.Info("Streaming analysis complete", "analysis_id", r.id, "status", status,
		"drugs", initPayload.DetectedDrugs, "interactions", initPayload.InteractionCount, "safety_alerts", alerts)
	o.finish(ctx, r, status, prep.drugs, prep.records, alerts)
	return nil
}

// abandon ends a run whose consumer went away.
func (o *Orchestrator) abandon(ctx context.Context, r *run, err error) error {
	logging.Warn("Stream consumer gone, stopping analysis", "analysis_id", r.id, "error", err)
	o.finish(ctx, r, entities.StatusError, nil, nil, 0)
	return err
}
