// Package config loads and validates the service configuration from the
// environment, an optional .env file and command-line flags.
package config

import (
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Environment is the deployment environment name.
type Environment string

const (
	EnvDevelopment Environment = "dev"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
)

// Generation fallback policies.
const (
	FallbackNone     = "none"
	FallbackTemplate = "template"
)

// Config holds all application configuration
type Config struct {
	Port           string
	Address        string
	Env            Environment
	LogLevel       string
	LogDir         string
	MaxRequestBody int64 // bytes
	MaxHeaderSize  int64 // bytes
	MaxUploadSize  int64 // bytes, multipart image uploads

	DrugDBPath          string
	InteractionsDBPath  string
	ReloadSchedule      string // cron expression, empty disables reloads
	SimilarityThreshold float64

	LLMProvider        string
	LLMModel           string
	LLMAPIKey          string
	LLMBaseURL         string
	LLMTimeout         time.Duration
	LLMMaxTokens       int
	LLMRate            float64 // generations per second, 0 is unlimited
	GenerationFallback string

	CacheTTL time.Duration
	RedisURL string

	OCRCommand string
	ImageDir   string

	AuditDBPath    string
	TracingEnabled bool
}

var defaults = map[string]any{
	"port":                 "8000",
	"address":              "127.0.0.1",
	"env":                  string(EnvDevelopment),
	"log_level":            "info",
	"log_dir":              "logs",
	"max_request_body":     int64(1048576),
	"max_header_size":      int64(1048576),
	"max_upload_size":      int64(10485760),
	"drug_db_path":         "files/drug_knowledge.json",
	"interactions_db_path": "files/interactions.json",
	"reload_schedule":      "0 */6 * * *",
	"similarity_threshold": 80.0,
	"llm_provider":         "template",
	"llm_model":            "",
	"llm_api_key":          "",
	"llm_base_url":         "",
	"llm_timeout":          60 * time.Second,
	"llm_max_tokens":       1024,
	"llm_rate":             0.0,
	"generation_fallback":  FallbackNone,
	"cache_ttl":            time.Hour,
	"redis_url":            "",
	"ocr_command":          "tesseract",
	"image_dir":            "uploads",
	"audit_db_path":        "",
	"tracing_enabled":      false,
}

// NewViper returns a viper instance with defaults set and environment
// lookup enabled. Callers may bind flags to it before calling LoadFrom.
func NewViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()
	return v
}

// Load loads and validates configuration from .env and environment variables
func Load() (*Config, error) {
	return LoadFrom(NewViper())
}

// LoadFrom reads configuration from v after loading .env into the process environment.
func LoadFrom(v *viper.Viper) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg := &Config{
		Port:                v.GetString("port"),
		Address:             v.GetString("address"),
		Env:                 Environment(strings.ToLower(v.GetString("env"))),
		LogLevel:            strings.ToLower(v.GetString("log_level")),
		LogDir:              v.GetString("log_dir"),
		MaxRequestBody:      v.GetInt64("max_request_body"),
		MaxHeaderSize:       v.GetInt64("max_header_size"),
		MaxUploadSize:       v.GetInt64("max_upload_size"),
		DrugDBPath:          v.GetString("drug_db_path"),
		InteractionsDBPath:  v.GetString("interactions_db_path"),
		ReloadSchedule:      strings.TrimSpace(v.GetString("reload_schedule")),
		SimilarityThreshold: v.GetFloat64("similarity_threshold"),
		LLMProvider:         strings.ToLower(v.GetString("llm_provider")),
		LLMModel:            v.GetString("llm_model"),
		LLMAPIKey:           v.GetString("llm_api_key"),
		LLMBaseURL:          v.GetString("llm_base_url"),
		LLMTimeout:          v.GetDuration("llm_timeout"),
		LLMMaxTokens:        v.GetInt("llm_max_tokens"),
		LLMRate:             v.GetFloat64("llm_rate"),
		GenerationFallback:  strings.ToLower(v.GetString("generation_fallback")),
		CacheTTL:            v.GetDuration("cache_ttl"),
		RedisURL:            v.GetString("redis_url"),
		OCRCommand:          v.GetString("ocr_command"),
		ImageDir:            v.GetString("image_dir"),
		AuditDBPath:         v.GetString("audit_db_path"),
		TracingEnabled:      v.GetBool("tracing_enabled"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// validateConfig validates all configuration values
func validateConfig(cfg *Config) error {
	if err := validatePort(cfg.Port); err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}
	if err := validateAddress(cfg.Address); err != nil {
		return fmt.Errorf("invalid ADDRESS: %w", err)
	}
	if err := validateEnv(cfg.Env); err != nil {
		return fmt.Errorf("invalid ENV: %w", err)
	}
	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	if err := validateSizeLimit(cfg.MaxRequestBody, "MAX_REQUEST_BODY"); err != nil {
		return fmt.Errorf("invalid MAX_REQUEST_BODY: %w", err)
	}
	if err := validateSizeLimit(cfg.MaxHeaderSize, "MAX_HEADER_SIZE"); err != nil {
		return fmt.Errorf("invalid MAX_HEADER_SIZE: %w", err)
	}
	if err := validateSizeLimit(cfg.MaxUploadSize, "MAX_UPLOAD_SIZE"); err != nil {
		return fmt.Errorf("invalid MAX_UPLOAD_SIZE: %w", err)
	}
	if err := validateThreshold(cfg.SimilarityThreshold); err != nil {
		return fmt.Errorf("invalid SIMILARITY_THRESHOLD: %w", err)
	}
	if err := validateProvider(cfg.LLMProvider, cfg.LLMAPIKey); err != nil {
		return fmt.Errorf("invalid LLM_PROVIDER: %w", err)
	}
	if cfg.LLMTimeout <= 0 {
		return fmt.Errorf("invalid LLM_TIMEOUT: must be positive, got: %s", cfg.LLMTimeout)
	}
	if cfg.LLMRate < 0 {
		return fmt.Errorf("invalid LLM_RATE: must not be negative, got: %g", cfg.LLMRate)
	}
	if err := validateFallback(cfg.GenerationFallback); err != nil {
		return fmt.Errorf("invalid GENERATION_FALLBACK: %w", err)
	}
	if cfg.DrugDBPath == "" || cfg.InteractionsDBPath == "" {
		return fmt.Errorf("DRUG_DB_PATH and INTERACTIONS_DB_PATH cannot be empty")
	}
	return nil
}

// validatePort validates the PORT environment variable
func validatePort(port string) error {
	if port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid number: %w", err)
	}

	if portNum < 1 || portNum > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	if portNum < 1024 {
		return fmt.Errorf("PORT %d is privileged (less than 1024), use ports 1024-65535", portNum)
	}

	return nil
}

// validateAddress accepts loopback, unspecified and private addresses.
func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("ADDRESS cannot be empty")
	}
	if address == "localhost" {
		return nil
	}

	ip := net.ParseIP(address)
	if ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}
	if !ip.IsLoopback() && !ip.IsPrivate() && !ip.IsUnspecified() {
		return fmt.Errorf("ADDRESS %s is a public IP, consider using private network ranges for security", address)
	}
	return nil
}

func validateEnv(env Environment) error {
	if env == "" {
		return fmt.Errorf("ENV cannot be empty")
	}
	valid := []Environment{EnvDevelopment, EnvStaging, EnvProduction, EnvTest}
	if !slices.Contains(valid, env) {
		return fmt.Errorf("ENV must be one of: %v, got: %s", valid, env)
	}
	return nil
}

func validateLogLevel(logLevel string) error {
	if logLevel == "" {
		return fmt.Errorf("LOG_LEVEL cannot be empty")
	}
	valid := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(valid, logLevel) {
		return fmt.Errorf("LOG_LEVEL must be one of: %v, got: %s", valid, logLevel)
	}
	return nil
}

// validateSizeLimit validates size limit configuration values
func validateSizeLimit(size int64, configName string) error {
	if size <= 0 {
		return fmt.Errorf("%s must be positive, got: %d", configName, size)
	}
	if size > 100*1024*1024 {
		return fmt.Errorf("%s is too large (max 100MB), got: %d bytes", configName, size)
	}
	return nil
}

func validateThreshold(threshold float64) error {
	if threshold <= 0 || threshold > 100 {
		return fmt.Errorf("must be in (0, 100], got: %g", threshold)
	}
	return nil
}

func validateProvider(provider, apiKey string) error {
	switch provider {
	case "", "template", "ollama", "none":
		return nil
	case "openai", "anthropic", "claude":
		if apiKey == "" {
			return fmt.Errorf("LLM_API_KEY is required for provider %s", provider)
		}
		return nil
	default:
		return fmt.Errorf("must be one of: openai, anthropic, ollama, template, none, got: %s", provider)
	}
}

func validateFallback(policy string) error {
	if policy != FallbackNone && policy != FallbackTemplate {
		return fmt.Errorf("must be one of: %s, %s, got: %s", FallbackNone, FallbackTemplate, policy)
	}
	return nil
}

// GetEnvVars returns a list of all expected environment variables
func GetEnvVars() []string {
	keys := make([]string, 0, len(defaults))
	for key := range defaults {
		keys = append(keys, strings.ToUpper(key))
	}
	slices.Sort(keys)
	return keys
}
