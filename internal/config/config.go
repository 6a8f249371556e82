// Package config defines the global configuration structure for the
// RiskProfile service. Configuration is loaded once at process initialization
// and is immutable thereafter. It follows 12-Factor App principles by strictly
// separating code from configuration.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> AWS SSM Parameter Store (Lowest)
//
// Any missing required value or invalid format causes the application to fail
// immediately on startup.
package config

import (
	"time"

	"riskprofile/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used throughout configuration to prevent accidental logging of provider
// API keys.
type SecretString = types.SecretString

// Config is the top-level configuration struct for the RiskProfile service.
// It is populated once during process initialization and never modified.
// Sub-components receive only the specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"riskprofile-api"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Domain Configurations
	Server      ServerConfig
	Cache       CacheConfig
	Providers   ProvidersConfig
	Aggregation AggregationConfig

	// Build Metadata (injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port               string        `envconfig:"PORT" default:"8080"`
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"29s"`
	CorsAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// CacheConfig holds cache backend selection and TTL policy.
//
// TTL policy by entry type: raw per-provider hazard readings and full
// aggregated assessments live for one hour; data the provider declares static
// (regulatory flood-zone designations) lives for a day. Expired entries are
// retained for StaleRetention so the orchestrator can fall back to a stale
// reading when a provider is down.
type CacheConfig struct {
	// Backend selects the cache store: "memory" (in-process) or "redis".
	Backend string `envconfig:"CACHE_BACKEND" default:"memory" validate:"oneof=memory redis"`

	RedisAddr     string       `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword SecretString `envconfig:"REDIS_PASSWORD"`
	RedisDB       int          `envconfig:"REDIS_DB" default:"0"`

	ReadingTTL     time.Duration `envconfig:"CACHE_READING_TTL" default:"1h"`
	AssessmentTTL  time.Duration `envconfig:"CACHE_ASSESSMENT_TTL" default:"1h"`
	StaticTTL      time.Duration `envconfig:"CACHE_STATIC_TTL" default:"24h"`
	StaleRetention time.Duration `envconfig:"CACHE_STALE_RETENTION" default:"24h"`
}

// ProvidersConfig holds the per-provider integration settings.
type ProvidersConfig struct {
	FEMA       FEMAConfig
	RiskFactor RiskFactorConfig
	USGS       USGSConfig
}

// FEMAConfig configures the FEMA National Risk Index adapter (free government
// hazard index; no authentication).
type FEMAConfig struct {
	Enabled bool          `envconfig:"FEMA_ENABLED" default:"true"`
	BaseURL string        `envconfig:"FEMA_BASE_URL" default:"https://hazards.fema.gov/nri/api" validate:"url"`
	Timeout time.Duration `envconfig:"FEMA_TIMEOUT" default:"5s"`
}

// RiskFactorConfig configures the property-specific premium provider
// (API-key authenticated).
type RiskFactorConfig struct {
	Enabled bool          `envconfig:"RISKFACTOR_ENABLED" default:"true"`
	BaseURL string        `envconfig:"RISKFACTOR_BASE_URL" default:"https://api.riskfactor.com" validate:"url"`
	APIKey  SecretString  `envconfig:"RISKFACTOR_API_KEY"`
	Timeout time.Duration `envconfig:"RISKFACTOR_TIMEOUT" default:"5s"`
}

// USGSConfig configures the geological/hydrological monitoring adapter
// (no authentication).
type USGSConfig struct {
	Enabled bool          `envconfig:"USGS_ENABLED" default:"true"`
	BaseURL string        `envconfig:"USGS_BASE_URL" default:"https://earthquake.usgs.gov/ws" validate:"url"`
	Timeout time.Duration `envconfig:"USGS_TIMEOUT" default:"5s"`
}

// AggregationConfig holds the tunable scoring parameters. Provider and hazard
// weights are configuration rather than code so results are reproducible and
// the blend can be retuned without a deploy.
type AggregationConfig struct {
	// GlobalDeadline bounds the whole provider fan-out for one assessment.
	// Adapters still pending when it expires are treated as failed for the
	// request.
	GlobalDeadline time.Duration `envconfig:"ASSESS_GLOBAL_DEADLINE" default:"10s"`

	// AgreementTolerance is the maximum spread (in score points) within which
	// two sources are considered to agree for confidence purposes.
	AgreementTolerance float64 `envconfig:"ASSESS_AGREEMENT_TOLERANCE" default:"15"`

	// ProviderWeights ranks source specificity: a property-specific premium
	// provider outweighs a tract-level government index, which outweighs a
	// regional monitoring estimate.
	ProviderWeights map[string]float64 `envconfig:"PROVIDER_WEIGHTS" default:"riskfactor:3.0,fema_nri:2.0,usgs:1.0"`

	// HazardWeights reflect typical severity/insurability impact in the
	// overall score (coastal-focused product: flood and hurricane dominate).
	HazardWeights map[string]float64 `envconfig:"HAZARD_WEIGHTS" default:"flood:1.5,hurricane:1.5,wildfire:1.2,earthquake:1.2,heat:0.8,drought:0.8"`

	// StaleWeightFactor discounts stale cached readings in the per-hazard
	// blend.
	StaleWeightFactor float64 `envconfig:"STALE_WEIGHT_FACTOR" default:"0.5"`
}

// ProviderWeight returns the configured specificity weight for a provider,
// defaulting to 1 for providers without an explicit entry.
func (a AggregationConfig) ProviderWeight(id types.ProviderID) float64 {
	if w, ok := a.ProviderWeights[string(id)]; ok && w > 0 {
		return w
	}
	return 1
}

// HazardWeight returns the configured severity weight for a hazard,
// defaulting to 1 for hazards without an explicit entry.
func (a AggregationConfig) HazardWeight(h types.HazardType) float64 {
	if w, ok := a.HazardWeights[string(h)]; ok && w > 0 {
		return w
	}
	return 1
}

// BuildInfo holds build-time metadata injected via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrSSMResolution indicates a failure when fetching secrets from AWS SSM.
	ErrSSMResolution ConfigErrorType = "SSM_FAILURE"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
