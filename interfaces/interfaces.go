// Package interfaces defines the contracts between the components of the
// analysis service so each can be replaced in tests.
package interfaces

import (
	"context"
	"net/http"
	"time"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/refdata"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/refdata/entities"
)

// DataQualityReport summarises problems found in a reference snapshot.
// None of them stop a load; they are logged for whoever curates the tables.
type DataQualityReport struct {
	DrugCount        int
	InteractionCount int
	// Interaction keys naming a drug the dictionary does not know.
	OrphanedInteractionKeys []string
	// Brand names listed under more than one generic.
	SharedBrandNames []string
	SelfPairKeys     []string
	// Interaction keys without a mechanism or a recommendation.
	IncompleteInteractionKeys []string
	// Knowledge-base interactions whose risk level is missing or unrecognised.
	UnratedInteractionKeys []string
}

// DataValidator checks reference data and user input.
type DataValidator interface {
	ReportDataQuality(snap *refdata.Snapshot) *DataQualityReport
	ValidateInput(input string) error
	ValidateDrugList(raw string) ([]string, error)
	ValidateLines(lines []string) error
	ValidateLanguage(lang string) error
}

// ReferenceStore holds the active reference snapshot and coordinates reloads.
type ReferenceStore interface {
	Snapshot() *refdata.Snapshot
	Swap(s *refdata.Snapshot)
	GetLastUpdated() time.Time
	GetServerStartTime() time.Time
	IsUpdating() bool
	BeginUpdate() bool
	EndUpdate()
}

// ReferenceLoader produces a fresh snapshot. It returns a usable snapshot
// together with an error describing any table that failed to load.
type ReferenceLoader interface {
	Load(ctx context.Context) (*refdata.Snapshot, error)
}

// DrugResolver maps raw text onto canonical generic names.
type DrugResolver interface {
	Normalize(lines []string) []string
	GenericName(text string) (string, bool)
}

// InteractionChecker looks up grounded interaction records.
type InteractionChecker interface {
	CheckInteraction(a, b string) entities.InteractionRecord
	CheckMultiple(drugs []string) []entities.InteractionRecord
}

// Generator turns a prompt into explanation text. Implementations return an
// error on failure and never substitute text of their own.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req entities.GenerationRequest) (string, error)
}

// TextExtractor returns the text lines found on an image.
type TextExtractor interface {
	Extract(ctx context.Context, imageID string) ([]string, error)
}

// Cache stores generated text by key.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// AuditRecorder persists a summary of each analysis.
type AuditRecorder interface {
	Record(ctx context.Context, entry entities.AuditEntry) error
	Recent(ctx context.Context, limit int) ([]entities.AuditEntry, error)
}

// Analyzer runs the end-to-end pipeline.
type Analyzer interface {
	Analyze(ctx context.Context, in entities.AnalysisInput) (*entities.AnalysisResult, error)
	Stream(ctx context.Context, in entities.AnalysisInput, emit func(entities.StreamEvent) error) error
}

// Scheduler defines the contract for background reference reloads.
type Scheduler interface {
	Start() error
	Stop()
}

// HealthChecker reports service health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) (status string, details map[string]any, httpStatus int)
}

// HTTPHandler serves the API endpoints.
type HTTPHandler interface {
	Analyze(w http.ResponseWriter, r *http.Request)
	AnalyzeStream(w http.ResponseWriter, r *http.Request)
	UploadImage(w http.ResponseWriter, r *http.Request)
	ResolveDrug(w http.ResponseWriter, r *http.Request)
	CheckInteractions(w http.ResponseWriter, r *http.Request)
	Translate(w http.ResponseWriter, r *http.Request)
	RecentAnalyses(w http.ResponseWriter, r *http.Request)
	HealthCheck(w http.ResponseWriter, r *http.Request)
}
