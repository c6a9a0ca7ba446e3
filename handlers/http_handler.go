package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/generation"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/interactions"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/interfaces"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/logging"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/ocr"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/pipeline"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/refdata/entities"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/resolver"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/safety"
)

// Request limits.
const (
	uploadField         = "file"
	maxTranslateRunes   = 5000
	defaultRecentLimit  = 50
	maxRecentLimit      = 500
	multipartMemoryMax  = 1 << 20
	defaultMaxUploadLen = 10 << 20
)

var _ interfaces.HTTPHandler = (*HTTPHandlerImpl)(nil)

// Options wires an HTTPHandlerImpl. Audit may be nil when auditing is off.
type Options struct {
	Analyzer      interfaces.Analyzer
	Store         interfaces.ReferenceStore
	Resolvers     *resolver.Provider
	Validator     interfaces.DataValidator
	Health        interfaces.HealthChecker
	Generator     interfaces.Generator
	Audit         interfaces.AuditRecorder
	ImageDir      string
	MaxUploadSize int64
}

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	analyzer      interfaces.Analyzer
	store         interfaces.ReferenceStore
	resolvers     *resolver.Provider
	validator     interfaces.DataValidator
	health        interfaces.HealthChecker
	generator     interfaces.Generator
	audit         interfaces.AuditRecorder
	imageDir      string
	maxUploadSize int64
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(opts Options) *HTTPHandlerImpl {
	if opts.Resolvers == nil && opts.Store != nil {
		opts.Resolvers = resolver.NewProvider(opts.Store, resolver.DefaultThreshold)
	}
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = defaultMaxUploadLen
	}
	return &HTTPHandlerImpl{
		analyzer:      opts.Analyzer,
		store:         opts.Store,
		resolvers:     opts.Resolvers,
		validator:     opts.Validator,
		health:        opts.Health,
		generator:     opts.Generator,
		audit:         opts.Audit,
		imageDir:      opts.ImageDir,
		maxUploadSize: opts.MaxUploadSize,
	}
}

// Analyze runs a batch analysis. The body is either JSON
// {"image_id": ...} / {"lines": [...]} or a multipart upload whose image
// is deleted once the analysis is over.
func (h *HTTPHandlerImpl) Analyze(w http.ResponseWriter, r *http.Request) {
	in, cleanup, err := h.readAnalysisInput(w, r)
	if err != nil {
		respondWithFailure(w, err, "Analysis")
		return
	}
	defer cleanup()

	result, err := h.analyzer.Analyze(r.Context(), in)
	if err != nil {
		respondWithFailure(w, err, "Analysis")
		return
	}
	RespondWithJSON(w, http.StatusOK, result)
}

// AnalyzeStream runs an analysis and reports progress as server-sent events.
// Input errors found before the stream starts are plain JSON errors.
func (h *HTTPHandlerImpl) AnalyzeStream(w http.ResponseWriter, r *http.Request) {
	in, cleanup, err := h.readAnalysisInput(w, r)
	if err != nil {
		respondWithFailure(w, err, "Analysis")
		return
	}
	defer cleanup()

	stream, err := newEventStream(w)
	if err != nil {
		logging.Error("Streaming not supported by response writer", "error", err)
		RespondWithError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	if err := h.analyzer.Stream(r.Context(), in, stream.Send); err != nil {
		// The error event, if any, has already been sent.
		logging.Warn("Streaming analysis ended early", "error", err, "events_sent", stream.Sent())
	}
}

// UploadImage stores a multipart image and returns its id for later analysis.
func (h *HTTPHandlerImpl) UploadImage(w http.ResponseWriter, r *http.Request) {
	if !isMultipart(r) {
		RespondWithError(w, http.StatusUnsupportedMediaType, "Expected a multipart/form-data upload")
		return
	}
	id, err := h.saveUpload(w, r)
	if err != nil {
		respondWithFailure(w, err, "Upload")
		return
	}
	logging.Info("Image uploaded", "image_id", id)
	RespondWithJSON(w, http.StatusCreated, map[string]string{"image_id": id})
}

// ResolveResponse is the body of a drug resolution.
type ResolveResponse struct {
	Input         string          `json:"input"`
	Match         *resolver.Match `json:"match"`
	DetectedDrugs []string        `json:"detected_drugs"`
}

// ResolveDrug maps ?text= onto canonical generic names.
func (h *HTTPHandlerImpl) ResolveDrug(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	if err := h.validator.ValidateInput(text); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := h.resolvers.Resolver()
	resp := ResolveResponse{Input: text, DetectedDrugs: res.Normalize([]string{text})}
	if m, ok := res.Resolve(text); ok {
		resp.Match = &m
	}
	if resp.Match == nil && len(resp.DetectedDrugs) == 0 {
		RespondWithError(w, http.StatusNotFound, "No matching drug found")
		return
	}
	RespondWithJSON(w, http.StatusOK, resp)
}

// InteractionsResponse is the body of an interaction lookup.
type InteractionsResponse struct {
	Drugs            []string                     `json:"drugs"`
	Unrecognized     []string                     `json:"unrecognized"`
	InteractionCount int                          `json:"interaction_count"`
	HighestRisk      *entities.RiskLevel          `json:"highest_risk,omitempty"`
	Interactions     []entities.InteractionRecord `json:"interactions"`
	Disclaimer       string                       `json:"disclaimer"`
}

// CheckInteractions looks up every pair of ?drugs=a,b,c. Names are resolved
// to generic names first; names that do not resolve are still checked and
// come back as unknown.
func (h *HTTPHandlerImpl) CheckInteractions(w http.ResponseWriter, r *http.Request) {
	names, err := h.validator.ValidateDrugList(r.URL.Query().Get("drugs"))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap := h.store.Snapshot()
	res := h.resolvers.ResolverFor(snap)

	resp := InteractionsResponse{Unrecognized: []string{}, Disclaimer: safety.Disclaimer}
	seen := make(map[string]struct{})
	for _, name := range names {
		generic, ok := res.GenericName(name)
		if !ok {
			generic = strings.ToLower(strings.TrimSpace(name))
			resp.Unrecognized = append(resp.Unrecognized, name)
		}
		if _, dup := seen[generic]; dup {
			continue
		}
		seen[generic] = struct{}{}
		resp.Drugs = append(resp.Drugs, generic)
	}

	resp.Interactions = interactions.New(snap).CheckMultiple(resp.Drugs)
	resp.InteractionCount = len(resp.Interactions)
	if risk, ok := interactions.HighestRisk(resp.Interactions); ok {
		resp.HighestRisk = &risk
	}
	RespondWithJSON(w, http.StatusOK, resp)
}

// TranslateRequest is the body of a translation request.
type TranslateRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Translate renders an explanation in another language through the
// configured language model. The translation passes the same safety gate
// as explanations.
func (h *HTTPHandlerImpl) Translate(w http.ResponseWriter, r *http.Request) {
	var req TranslateRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		RespondWithError(w, http.StatusBadRequest, "text cannot be empty")
		return
	}
	if len([]rune(req.Text)) > maxTranslateRunes {
		RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("text too long: maximum %d characters", maxTranslateRunes))
		return
	}
	if err := h.validator.ValidateLanguage(req.Language); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The template generator only writes explanations.
	if h.generator == nil || h.generator.Name() == generation.ProviderTemplate || h.generator.Name() == generation.ProviderNone {
		RespondWithError(w, http.StatusServiceUnavailable, "Translation requires a language model provider")
		return
	}

	text, err := h.generator.Generate(r.Context(), entities.GenerationRequest{
		Prompt: generation.BuildTranslationPrompt(req.Text, req.Language),
	})
	if err != nil {
		logging.Error("Translation failed", "provider", h.generator.Name(), "language", req.Language, "error", err)
		RespondWithError(w, http.StatusBadGateway, "Translation failed")
		return
	}

	ok, _ := safety.Validate(text)
	if !ok {
		logging.Warn("Translation flagged by safety gate", "language", req.Language, "violations", safety.Violations(text))
	}
	RespondWithJSON(w, http.StatusOK, map[string]any{
		"language":     req.Language,
		"translation":  strings.TrimSpace(text),
		"safety_alert": !ok,
		"disclaimer":   safety.Disclaimer,
	})
}

// RecentAnalyses lists the latest audit entries, newest first.
func (h *HTTPHandlerImpl) RecentAnalyses(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		RespondWithError(w, http.StatusNotFound, "Analysis auditing is disabled")
		return
	}

	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxRecentLimit {
			logging.Warn("Unusual user input", "limit", raw)
			RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxRecentLimit))
			return
		}
		limit = n
	}

	entries, err := h.audit.Recent(r.Context(), limit)
	if err != nil {
		respondWithFailure(w, err, "Audit lookup")
		return
	}
	if entries == nil {
		entries = []entities.AuditEntry{}
	}
	RespondWithJSON(w, http.StatusOK, map[string]any{"analyses": entries, "count": len(entries)})
}

// HealthCheck returns server health information
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, data, httpStatus := h.health.HealthCheck(r.Context())
	body := make(map[string]any, len(data)+1)
	for k, v := range data {
		body[k] = v
	}
	body["status"] = status
	RespondWithJSON(w, httpStatus, body)
}

// readAnalysisInput reads JSON or multipart analysis input. cleanup removes
// an image saved from a multipart body and is never nil.
func (h *HTTPHandlerImpl) readAnalysisInput(w http.ResponseWriter, r *http.Request) (entities.AnalysisInput, func(), error) {
	noop := func() {}

	if isMultipart(r) {
		id, err := h.saveUpload(w, r)
		if err != nil {
			return entities.AnalysisInput{}, noop, err
		}
		path := filepath.Join(h.imageDir, id)
		return entities.AnalysisInput{ImageID: id}, func() {
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				logging.Warn("Failed to remove uploaded image", "image_id", id, "error", err)
			}
		}, nil
	}

	var in entities.AnalysisInput
	if err := decodeJSON(r, &in); err != nil {
		return in, noop, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	if in.ImageID == "" && in.Lines == nil {
		return in, noop, pipeline.ErrInvalidInput
	}
	if err := h.validator.ValidateLines(in.Lines); err != nil {
		return in, noop, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return in, noop, nil
}

func (h *HTTPHandlerImpl) saveUpload(w http.ResponseWriter, r *http.Request) (string, error) {
	if r.ContentLength > h.maxUploadSize {
		return "", &http.MaxBytesError{Limit: h.maxUploadSize}
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(multipartMemoryMax); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return "", err
		}
		return "", fmt.Errorf("%w: invalid multipart body: %w", errBadRequest, err)
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		return "", fmt.Errorf("%w: missing %q file field", errBadRequest, uploadField)
	}
	defer file.Close()

	return ocr.SaveImage(h.imageDir, filepath.Ext(header.Filename), file)
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body cannot be empty")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
