// Package pipeline runs an analysis end to end: text extraction, drug
// resolution, interaction lookup, then one grounded explanation per
// interaction, structured and screened by the safety gate. Results are
// returned in one batch or emitted as a sequence of stream events.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/generation"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/interactions"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/interfaces"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/logging"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/metrics"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/ocr"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/refdata/entities"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/resolver"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/safety"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/structurer"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrExtraction wraps extraction failures that are not about the image
	// itself: a missing or invalid image id, no extractor, a cancelled request.
	ErrExtraction = errors.New("text extraction failed")
	// ErrResolution wraps failures while resolving drugs or interactions.
	ErrResolution = errors.New("drug resolution failed")
	// ErrInvalidInput is returned when the input names neither an image nor text lines.
	ErrInvalidInput = errors.New("analysis input requires an image_id or lines")
)

// Informational messages.
const (
	MsgNoText       = "No text detected in the image."
	MsgTooFewDrugs  = "Fewer than 2 drugs detected. No interactions check possible."
	explanationFail = "Explanation unavailable"
)

// Analysis modes, used as metric and audit labels.
const (
	ModeBatch  = "batch"
	ModeStream = "stream"
)

var _ interfaces.Analyzer = (*Orchestrator)(nil)

// Options wires an Orchestrator. Store and Generator are required.
type Options struct {
	Store     interfaces.ReferenceStore
	Threshold float64
	Extractor interfaces.TextExtractor
	Generator interfaces.Generator
	// Fallback, when set, is asked for text after Generator fails.
	Fallback   interfaces.Generator
	Structurer *structurer.Structurer
	Audit      interfaces.AuditRecorder
	// OnTransition observes every state change of a run.
	OnTransition func(analysisID string, from, to State)
}

// Orchestrator implements interfaces.Analyzer.
type Orchestrator struct {
	store        interfaces.ReferenceStore
	resolvers    *resolver.Provider
	extractor    interfaces.TextExtractor
	generator    interfaces.Generator
	fallback     interfaces.Generator
	structurer   *structurer.Structurer
	audit        interfaces.AuditRecorder
	onTransition func(string, State, State)
	tracer       trace.Tracer
}

// New creates an orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Store == nil {
		return nil, errors.New("pipeline: reference store is required")
	}
	if opts.Generator == nil {
		return nil, errors.New("pipeline: generator is required")
	}
	if opts.Structurer == nil {
		opts.Structurer = structurer.New()
	}
	return &Orchestrator{
		store:        opts.Store,
		resolvers:    resolver.NewProvider(opts.Store, opts.Threshold),
		extractor:    opts.Extractor,
		generator:    opts.Generator,
		fallback:     opts.Fallback,
		structurer:   opts.Structurer,
		audit:        opts.Audit,
		onTransition: opts.OnTransition,
		tracer:       telemetry.Tracer(),
	}, nil
}

// run tracks one analysis.
type run struct {
	id    string
	mode  string
	state State
	o     *Orchestrator
}

func (o *Orchestrator) newRun(mode string) *run {
	return &run{id: uuid.NewString(), mode: mode, state: StateIdle, o: o}
}

func (r *run) to(next State) {
	if r.state == next || r.state.Terminal() {
		return
	}
	logging.Debug("Analysis state change", "analysis_id", r.id, "from", r.state.String(), "to", next.String())
	if r.o.onTransition != nil {
		r.o.onTransition(r.id, r.state, next)
	}
	r.state = next
}

// resolved is the deterministic, pre-generation part of an analysis.
type resolved struct {
	lines   []string
	drugs   []string
	records []entities.InteractionRecord
}

// prepare runs extraction and resolution. An empty resolved with nil error
// means no text was found, including when no engine could read the image.
func (o *Orchestrator) prepare(ctx context.Context, r *run, in entities.AnalysisInput) (*resolved, error) {
	if in.ImageID == "" && in.Lines == nil {
		return nil, ErrInvalidInput
	}

	r.to(StateExtracting)
	lines, err := o.extract(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	if len(lines) == 0 {
		return &resolved{}, nil
	}

	r.to(StateResolving)
	drugs, records, err := o.resolve(ctx, lines)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResolution, err)
	}
	return &resolved{lines: lines, drugs: drugs, records: records}, nil
}

func (o *Orchestrator) extract(ctx context.Context, in entities.AnalysisInput) ([]string, error) {
	ctx, span := o.tracer.Start(ctx, "pipeline.extract")
	defer span.End()

	if in.ImageID == "" {
		span.SetAttributes(attribute.String("source", "lines"), attribute.Int("lines", len(in.Lines)))
		return in.Lines, nil
	}
	if o.extractor == nil {
		err := errors.New("no text extractor configured")
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	lines, err := o.extractor.Extract(ctx, in.ImageID)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, ocr.ErrImageNotFound) || errors.Is(err, ocr.ErrInvalidImageID) || ctx.Err() != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		// An image the engines cannot read is answered like a blank one.
		logging.Warn("No engine could read the image, reporting no text", "image_id", in.ImageID, "error", err)
		span.SetAttributes(attribute.String("source", "image"), attribute.Bool("unreadable", true))
		return nil, nil
	}
	span.SetAttributes(attribute.String("source", "image"), attribute.Int("lines", len(lines)))
	return lines, nil
}

// resolve runs against a single snapshot so every lookup of a request sees
// one consistent table.
func (o *Orchestrator) resolve(ctx context.Context, lines []string) (drugs []string, records []entities.InteractionRecord, err error) {
	_, span := o.tracer.Start(ctx, "pipeline.resolve")
	defer span.End()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	snap := o.store.Snapshot()
	drugs = o.resolvers.ResolverFor(snap).Normalize(lines)
	if len(drugs) >= 2 {
		records = interactions.New(snap).CheckMultiple(drugs)
	}
	span.SetAttributes(attribute.StringSlice("drugs", drugs), attribute.Int("interactions", len(records)))
	return drugs, records, nil
}

// explain generates, structures and screens the explanation for one record.
// Failures are reported on the result and never returned.
func (o *Orchestrator) explain(ctx context.Context, record entities.InteractionRecord) (result entities.InteractionResult) {
	ctx, span := o.tracer.Start(ctx, "pipeline.explain", trace.WithAttributes(
		attribute.String("drug_a", record.DrugPair[0]),
		attribute.String("drug_b", record.DrugPair[1]),
		attribute.String("risk", record.RiskLevel.String()),
	))
	defer span.End()

	result = entities.NewBasicResult(record)
	defer func() {
		if p := recover(); p != nil {
			logging.Error("Structuring explanation panicked", "drug_a", record.DrugPair[0], "drug_b", record.DrugPair[1], "panic", p)
			result = entities.NewBasicResult(record)
			result.Error = fmt.Sprintf("%s: %v", explanationFail, p)
			span.SetStatus(codes.Error, result.Error)
		}
	}()

	req := entities.GenerationRequest{Interaction: record, Prompt: generation.BuildExplanationPrompt(record)}
	text, err := o.generate(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		result.Error = fmt.Sprintf("%s: %v", explanationFail, err)
		return result
	}

	sections := o.structurer.Structure(text, structurer.ContextFor(record))
	if ok, _ := safety.ValidateSections(&sections); !ok {
		result.SafetyAlert = true
		metrics.SafetyAlerts.Inc()
		logging.Warn("Explanation flagged by safety gate",
			"drug_a", record.DrugPair[0], "drug_b", record.DrugPair[1],
			"violations", safety.Violations(text))
		span.AddEvent("safety_alert")
	}
	result.AIExplanation = &sections
	return result
}

// generate asks the primary generator and, if configured, the fallback.
func (o *Orchestrator) generate(ctx context.Context, req entities.GenerationRequest) (string, error) {
	text, err := o.timedGenerate(ctx, o.generator, req)
	if err == nil {
		return text, nil
	}
	logging.Warn("Explanation generation failed", "provider", o.generator.Name(),
		"drug_a", req.Interaction.DrugPair[0], "drug_b", req.Interaction.DrugPair[1], "error", err)

	if o.fallback == nil || ctx.Err() != nil {
		return "", err
	}
	text, fbErr := o.timedGenerate(ctx, o.fallback, req)
	if fbErr != nil {
		return "", errors.Join(err, fbErr)
	}
	logging.Info("Substituted fallback explanation", "provider", o.fallback.Name(),
		"drug_a", req.Interaction.DrugPair[0], "drug_b", req.Interaction.DrugPair[1])
	return text, nil
}

func (o *Orchestrator) timedGenerate(ctx context.Context, g interfaces.Generator, req entities.GenerationRequest) (string, error) {
	start := time.Now()
	text, err := g.Generate(ctx, req)
	metrics.GenerationDuration.WithLabelValues(g.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GenerationFailures.WithLabelValues(g.Name()).Inc()
	}
	return text, err
}

// finish records metrics and the audit entry for a completed run.
func (o *Orchestrator) finish(ctx context.Context, r *run, status string, drugs []string, records []entities.InteractionRecord, alerts int) {
	if status == entities.StatusError {
		r.to(StateError)
	} else {
		r.to(StateDone)
	}
	metrics.AnalysisTotal.WithLabelValues(r.mode, status).Inc()
	for _, rec := range records {
		metrics.InteractionsFound.WithLabelValues(rec.RiskLevel.String()).Inc()
	}

	if o.audit == nil {
		return
	}
	entry := entities.AuditEntry{
		AnalysisID:       r.id,
		Mode:             r.mode,
		Drugs:            drugs,
		InteractionCount: len(records),
		SafetyAlerts:     alerts,
		Status:           status,
		CreatedAt:        time.Now(),
	}
	if entry.Drugs == nil {
		entry.Drugs = []string{}
	}
	if risk, ok := interactions.HighestRisk(records); ok {
		entry.HighestRisk = risk.String()
	}
	// The audit write must outlive a cancelled request context.
	if err := o.audit.Record(context.WithoutCancel(ctx), entry); err != nil {
		logging.Warn("Failed to record analysis audit entry", "analysis_id", r.id, "error", err)
	}
}
