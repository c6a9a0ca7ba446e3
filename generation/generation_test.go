package generation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/cache"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/logging"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/refdata/entities"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/safety"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/structurer"
	"github.com/sashabaranov/go-openai"
)

func init() {
	logging.InitLogger("")
}

var warfarinAspirin = entities.InteractionRecord{
	DrugPair:       [2]string{"aspirin", "warfarin"},
	RiskLevel:      entities.RiskHigh,
	Mechanism:      "Both drugs impair hemostasis.",
	ClinicalEffect: "Increased bleeding risk.",
	Recommendation: "Avoid combination unless specifically directed by a physician.",
	Source:         entities.SourceKnowledgeBase,
	EvidenceLevel:  "established",
}

func TestBuildExplanationPrompt(t *testing.T) {
	prompt := BuildExplanationPrompt(warfarinAspirin)

	for _, want := range []string{
		"Verified Facts:",
		"- Drug A: Aspirin",
		"- Drug B: Warfarin",
		"- Risk Level: HIGH",
		"- Mechanism: Both drugs impair hemostasis.",
		"- Clinical Effect: Increased bleeding risk.",
		"### MECHANISM OF INTERACTION:",
		"### CLINICAL MANIFESTATIONS:",
		"### RISK FACTORS:",
		"### MONITORING RECOMMENDATIONS:",
		"### ALTERNATIVE SUGGESTIONS:",
		"STRICT RULES",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Expected prompt to contain %q", want)
		}
	}
}

func TestBuildExplanationPromptDefaults(t *testing.T) {
	prompt := BuildExplanationPrompt(entities.InteractionRecord{RiskLevel: entities.RiskUnknown})
	for _, want := range []string{
		"- Drug A: Unknown",
		"- Risk Level: UNKNOWN",
		"- Mechanism: " + missingMechanism,
		"- Clinical Effect: " + missingClinicalEffect,
		"- Recommendation: " + missingRecommendation,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Expected prompt to contain %q", want)
		}
	}
}

func TestBuildTranslationPrompt(t *testing.T) {
	got := BuildTranslationPrompt("Bleeding risk.", "Spanish")
	if !strings.Contains(got, "Original (English): Bleeding risk.") || !strings.HasSuffix(got, "Target Language: Spanish\n\nTranslation:") {
		t.Errorf("Unexpected translation prompt: %q", got)
	}
}

func TestTemplateGeneratorIsStructuredAndSafe(t *testing.T) {
	g := NewTemplateGenerator()
	text, err := g.Generate(context.Background(), entities.GenerationRequest{Interaction: warfarinAspirin})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	again, _ := g.Generate(context.Background(), entities.GenerationRequest{Interaction: warfarinAspirin})
	if text != again {
		t.Error("Expected template output to be deterministic")
	}

	s := structurer.New()
	sections, strategy := s.Apply(text)
	if strategy != "labeled_sections" {
		t.Fatalf("Expected template output to parse by headers, got %q", strategy)
	}
	for _, key := range entities.SectionKeys {
		if len(sections.Section(key)) == 0 {
			t.Errorf("Expected template to fill %s", key)
		}
	}
	if sections.MechanismOfInteraction[0] != warfarinAspirin.Mechanism {
		t.Errorf("Expected verified mechanism first, got %q", sections.MechanismOfInteraction[0])
	}
	if ok, _ := safety.Validate(text); !ok {
		t.Errorf("Expected template output to pass the safety gate, violations: %v", safety.Violations(text))
	}
}

func TestTemplateGeneratorUnknownPair(t *testing.T) {
	rec := entities.InteractionRecord{DrugPair: [2]string{"metformin", "tramadol"}, RiskLevel: entities.RiskUnknown}
	text, err := NewTemplateGenerator().Generate(context.Background(), entities.GenerationRequest{Interaction: rec})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !strings.Contains(text, "No verified mechanism is recorded for Metformin with Tramadol.") {
		t.Errorf("Expected missing-mechanism statement, got %q", text)
	}
	if ok, _ := safety.Validate(text); !ok {
		t.Errorf("Expected output to pass the safety gate, violations: %v", safety.Violations(text))
	}
}

func TestTemplateGeneratorCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewTemplateGenerator().Generate(ctx, entities.GenerationRequest{}); err == nil {
		t.Error("Expected error on cancelled context")
	}
}

func TestNewGenerator(t *testing.T) {
	tests := []struct {
		config  Config
		name    string
		wantErr bool
	}{
		{Config{}, ProviderTemplate, false},
		{Config{Provider: "template"}, ProviderTemplate, false},
		{Config{Provider: "none"}, ProviderNone, false},
		{Config{Provider: "openai", APIKey: "k"}, ProviderOpenAI, false},
		{Config{Provider: "claude", APIKey: "k"}, ProviderAnthropic, false},
		{Config{Provider: "ollama", Model: "medgemma"}, ProviderOllama, false},
		{Config{Provider: "openai"}, "", true},
		{Config{Provider: "anthropic"}, "", true},
		{Config{Provider: "ollama"}, "", true},
		{Config{Provider: "gemini"}, "", true},
	}

	for _, tt := range tests {
		g, err := NewGenerator(tt.config)
		if tt.wantErr {
			if err == nil {
				t.Errorf("NewGenerator(%+v): expected error", tt.config)
			}
			continue
		}
		if err != nil {
			t.Errorf("NewGenerator(%+v): unexpected error %v", tt.config, err)
			continue
		}
		if g.Name() != tt.name {
			t.Errorf("NewGenerator(%+v).Name() = %s, want %s", tt.config, g.Name(), tt.name)
		}
	}
}

func TestDisabledGenerator(t *testing.T) {
	g, _ := NewGenerator(Config{Provider: ProviderNone})
	if _, err := g.Generate(context.Background(), entities.GenerationRequest{}); !errors.Is(err, ErrProviderDisabled) {
		t.Errorf("Expected ErrProviderDisabled, got %v", err)
	}
}

func TestOpenAIGenerator(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected bearer auth, got %s", r.Header.Get("Authorization"))
		}
		var req openai.ChatCompletionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) != 2 || req.Messages[1].Content != "the prompt" {
			t.Errorf("Unexpected messages: %+v", req.Messages)
		}
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{Role: "assistant", Content: "  ### RISK FACTORS:\n- Age.  "},
			}},
		})
	}))
	defer server.Close()

	g, err := NewOpenAIGenerator(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("Failed to create generator: %v", err)
	}
	text, err := g.Generate(context.Background(), entities.GenerationRequest{Prompt: "the prompt"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "### RISK FACTORS:\n- Age." {
		t.Errorf("Unexpected text: %q", text)
	}
}

func TestOpenAIGeneratorEmptyAndError(t *testing.T) {
	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{})
	}))
	defer empty.Close()

	g, _ := NewOpenAIGenerator(Config{APIKey: "k", BaseURL: empty.URL})
	if _, err := g.Generate(context.Background(), entities.GenerationRequest{Prompt: "p"}); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("Expected ErrEmptyResponse, got %v", err)
	}

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer failing.Close()

	g, _ = NewOpenAIGenerator(Config{APIKey: "k", BaseURL: failing.URL})
	text, err := g.Generate(context.Background(), entities.GenerationRequest{Prompt: "p"})
	if err == nil {
		t.Error("Expected error from failing server")
	}
	if text != "" {
		t.Errorf("Expected no substitute text on failure, got %q", text)
	}
}

func TestAnthropicGenerator(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("Expected path /v1/messages, got %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("Expected x-api-key header, got %s", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Error("Expected anthropic-version header")
		}
		var req anthropicRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.System != SystemPrompt || req.Messages[0].Content != "the prompt" {
			t.Errorf("Unexpected request: %+v", req)
		}
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Part one. "},{"type":"text","text":"Part two."}],"model":"m"}`))
	}))
	defer server.Close()

	g, err := NewAnthropicGenerator(Config{APIKey: "test-key", BaseURL: server.URL + "/"})
	if err != nil {
		t.Fatalf("Failed to create generator: %v", err)
	}
	text, err := g.Generate(context.Background(), entities.GenerationRequest{Prompt: "the prompt"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "Part one. Part two." {
		t.Errorf("Unexpected text: %q", text)
	}
}

func TestAnthropicGeneratorAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer server.Close()

	g, _ := NewAnthropicGenerator(Config{APIKey: "bad", BaseURL: server.URL})
	_, err := g.Generate(context.Background(), entities.GenerationRequest{Prompt: "p"})
	if err == nil || !strings.Contains(err.Error(), "authentication_error") {
		t.Errorf("Expected authentication error, got %v", err)
	}
}

func TestOllamaGenerator(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Expected path /api/generate, got %s", r.URL.Path)
		}
		var req ollamaRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "medgemma" || req.Stream {
			t.Errorf("Unexpected request: %+v", req)
		}
		_, _ = w.Write([]byte(`{"model":"medgemma","response":"Explanation text.","done":true}`))
	}))
	defer server.Close()

	g, _ := NewOllamaGenerator(Config{Model: "medgemma", BaseURL: server.URL})
	text, err := g.Generate(context.Background(), entities.GenerationRequest{Prompt: "p"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "Explanation text." {
		t.Errorf("Unexpected text: %q", text)
	}
}

func TestOllamaGeneratorErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model 'missing' not found"}`))
	}))
	defer server.Close()

	g, _ := NewOllamaGenerator(Config{Model: "missing", BaseURL: server.URL})
	_, err := g.Generate(context.Background(), entities.GenerationRequest{Prompt: "p"})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("Expected not found error, got %v", err)
	}

	blank := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"   ","done":true}`))
	}))
	defer blank.Close()

	g, _ = NewOllamaGenerator(Config{Model: "m", BaseURL: blank.URL})
	if _, err := g.Generate(context.Background(), entities.GenerationRequest{Prompt: "p"}); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("Expected ErrEmptyResponse, got %v", err)
	}
}

type countingGenerator struct {
	calls atomic.Int32
	err   error
}

func (g *countingGenerator) Name() string { return "counting" }

func (g *countingGenerator) Generate(_ context.Context, req entities.GenerationRequest) (string, error) {
	g.calls.Add(1)
	if g.err != nil {
		return "", g.err
	}
	return "text for " + req.Prompt, nil
}

func TestCachedGenerator(t *testing.T) {
	next := &countingGenerator{}
	g := NewCachedGenerator(next, "m1", cache.NewMemoryCache(time.Minute, time.Minute))
	ctx := context.Background()

	for _i := 0; _i < 3; _i++ {
		text, err := g.Generate(ctx, entities.GenerationRequest{Prompt: "a"})
		if err != nil || text != "text for a" {
			t.Fatalf("Unexpected result %q %v", text, err)
		}
	}
	_, _ = g.Generate(ctx, entities.GenerationRequest{Prompt: "b"})

	if got := next.calls.Load(); got != 2 {
		t.Errorf("Expected 2 upstream calls, got %d", got)
	}
	if g.Name() != "counting" {
		t.Errorf("Expected wrapped name, got %s", g.Name())
	}
}

func TestCachedGeneratorDoesNotCacheFailures(t *testing.T) {
	next := &countingGenerator{err: errors.New("down")}
	g := NewCachedGenerator(next, "m1", cache.NewMemoryCache(time.Minute, time.Minute))

	for _i := 0; _i < 2; _i++ {
		if _, err := g.Generate(context.Background(), entities.GenerationRequest{Prompt: "a"}); err == nil {
			t.Error("Expected error")
		}
	}
	if got := next.calls.Load(); got != 2 {
		t.Errorf("Expected every failure to reach upstream, got %d calls", got)
	}
}

func TestCacheKey(t *testing.T) {
	if CacheKey("openai", "m", "p") == CacheKey("ollama", "m", "p") {
		t.Error("Expected provider to be part of the key")
	}
	if CacheKey("openai", "gpt-4o-mini", "p") == CacheKey("openai", "gpt-4o", "p") {
		t.Error("Expected model to be part of the key")
	}
	if CacheKey("openai", "m", "p") != CacheKey("openai", "m", "p") {
		t.Error("Expected stable keys")
	}
}

func TestCachedGeneratorModelChangeMisses(t *testing.T) {
	next := &countingGenerator{}
	shared := cache.NewMemoryCache(time.Minute, time.Minute)
	req := entities.GenerationRequest{Prompt: "a"}

	if _, err := NewCachedGenerator(next, "model-a", shared).Generate(context.Background(), req); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if _, err := NewCachedGenerator(next, "model-b", shared).Generate(context.Background(), req); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got := next.calls.Load(); got != 2 {
		t.Errorf("Expected a new model to miss the shared cache, got %d upstream calls", got)
	}
}

func TestRateLimitedGenerator(t *testing.T) {
	next := &countingGenerator{}
	g := NewRateLimitedGenerator(next, 1, 1)

	if _, err := g.Generate(context.Background(), entities.GenerationRequest{Prompt: "a"}); err != nil {
		t.Fatalf("First call should pass the burst: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := g.Generate(ctx, entities.GenerationRequest{Prompt: "b"}); err == nil {
		t.Error("Expected second call to be limited within the deadline")
	}
	if got := next.calls.Load(); got != 1 {
		t.Errorf("Expected 1 upstream call, got %d", got)
	}
}
