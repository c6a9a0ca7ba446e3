package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/refdata/entities"
)

const ollamaDefaultURL = "http://localhost:11434"

// OllamaGenerator calls a local Ollama server's generate endpoint.
type OllamaGenerator struct {
	baseURL    string
	httpClient *http.Client
	config     Config
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	System  string        `json:"system,omitempty"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type ollamaError struct {
	Error string `json:"error"`
}

// NewOllamaGenerator creates an Ollama adapter. A model name is required.
func NewOllamaGenerator(config Config) (*OllamaGenerator, error) {
	if config.Model == "" {
		return nil, fmt.Errorf("ollama model must be specified (e.g., medgemma, llama3.1:8b)")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = ollamaDefaultURL
	}

	return &OllamaGenerator{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: config.timeout()},
		config:     config,
	}, nil
}

func (g *OllamaGenerator) Name() string {
	return ProviderOllama
}

func (g *OllamaGenerator) Generate(ctx context.Context, req entities.GenerationRequest) (string, error) {
	apiReq := ollamaRequest{
		Model:  g.config.Model,
		Prompt: req.Prompt,
		System: SystemPrompt,
		Options: ollamaOptions{
			Temperature: defaultTemperature,
			NumPredict:  g.config.maxTokens(),
		},
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/generate", g.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("Ollama request to %s failed: %w", g.baseURL, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var apiErr ollamaError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error != "" {
			return "", fmt.Errorf("Ollama API error (%d): %s", httpResp.StatusCode, apiErr.Error)
		}
		return "", fmt.Errorf("Ollama API error (%d): %s", httpResp.StatusCode, string(respBody))
	}

	var resp ollamaResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	text := strings.TrimSpace(resp.Response)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
