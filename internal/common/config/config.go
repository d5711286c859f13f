// internal/common/config/config.go
package config

import (
	"fmt"

	"rewards-strategist/internal/models"
	"rewards-strategist/internal/rewards"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Engine        EngineConfig            `mapstructure:"engine"`
	Collaborators CollaboratorsConfig     `mapstructure:"collaborators"`
	Cache         CacheConfig             `mapstructure:"cache"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Metrics       MetricsConfig           `mapstructure:"metrics"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
	MigrationsDir  string `mapstructure:"migrations_dir"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Enabled  bool   `mapstructure:"enabled"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
	MaxResults    int  `mapstructure:"max_results"`
}

// --- Engine Configuration ---

// EngineConfig tunes valuation, ranking, gap analysis and recommendation.
type EngineConfig struct {
	TieBand             *float64           `mapstructure:"tie_band"`      // nil means default
	GapThreshold        *float64           `mapstructure:"gap_threshold"` // nil means default
	CapExcessPolicy     string             `mapstructure:"cap_excess_policy"`
	Conversion          map[string]float64 `mapstructure:"conversion"`
	ConfidenceThreshold float64            `mapstructure:"merchant_confidence_threshold"`
	TopN                int                `mapstructure:"top_n"`
	Weights             WeightsConfig      `mapstructure:"weights"`
}

type WeightsConfig struct {
	PreferenceMatch        float64 `mapstructure:"preference_match"`
	PreferencePartial      float64 `mapstructure:"preference_partial"`
	GapFill                float64 `mapstructure:"gap_fill"`
	FeePenalty             float64 `mapstructure:"fee_penalty"`
	MaxFeeRatio            float64 `mapstructure:"max_fee_ratio"`
	AnnualSpendPerCategory float64 `mapstructure:"annual_spend_per_category"`
}

// CollaboratorsConfig holds settings for the optional ranking collaborators.
type CollaboratorsConfig struct {
	Timeout int         `mapstructure:"timeout"` // milliseconds
	GenAI   GenAIConfig `mapstructure:"genai"`
}

type GenAIConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds
	MaxRetries int    `mapstructure:"max_retries"`
}

// CacheConfig holds redis read-through TTLs in seconds.
type CacheConfig struct {
	RulesTTL   int `mapstructure:"rules_ttl"`
	CatalogTTL int `mapstructure:"catalog_ttl"`
	CardsTTL   int `mapstructure:"cards_ttl"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// EngineOptions converts the engine section into rewards.Options. An absent
// tie band or gap threshold takes the engine default; an explicit zero is
// kept. Other zero values are left for the engine to default.
func (c *Config) EngineOptions() (rewards.Options, error) {
	e := c.Engine
	tieBand, gapThreshold := rewards.DefaultTieBand, rewards.DefaultGapThreshold
	if e.TieBand != nil {
		if *e.TieBand < 0 || *e.TieBand >= 1 {
			return rewards.Options{}, fmt.Errorf("engine.tie_band must be in [0,1), got %v", *e.TieBand)
		}
		tieBand = *e.TieBand
	}
	if e.GapThreshold != nil {
		if *e.GapThreshold < 0 {
			return rewards.Options{}, fmt.Errorf("engine.gap_threshold must not be negative, got %v", *e.GapThreshold)
		}
		gapThreshold = *e.GapThreshold
	}

	opts := rewards.Options{
		TieBand:             tieBand,
		GapThreshold:        gapThreshold,
		CollaboratorTimeout: GetDuration(c.Collaborators.Timeout),
		ConfidenceThreshold: e.ConfidenceThreshold,
		TopN:                e.TopN,
		Weights: rewards.RecommendWeights{
			PreferenceMatch:        e.Weights.PreferenceMatch,
			PreferencePartial:      e.Weights.PreferencePartial,
			GapFill:                e.Weights.GapFill,
			FeePenalty:             e.Weights.FeePenalty,
			MaxFeeRatio:            e.Weights.MaxFeeRatio,
			AnnualSpendPerCategory: e.Weights.AnnualSpendPerCategory,
		},
	}

	if e.CapExcessPolicy != "" {
		policy, ok := rewards.ParseCapExcessPolicy(e.CapExcessPolicy)
		if !ok {
			return rewards.Options{}, fmt.Errorf("engine.cap_excess_policy %q is not fallback or zero", e.CapExcessPolicy)
		}
		opts.Valuation.CapExcess = policy
	}

	if len(e.Conversion) > 0 {
		table := rewards.ConversionTable{}
		for rt, f := range rewards.DefaultConversion {
			table[rt] = f
		}
		for name, factor := range e.Conversion {
			rt, ok := models.ParseRewardType(name)
			if !ok {
				return rewards.Options{}, fmt.Errorf("engine.conversion: unknown reward type %q", name)
			}
			if factor < 0 {
				return rewards.Options{}, fmt.Errorf("engine.conversion.%s must not be negative", name)
			}
			table[rt] = factor
		}
		opts.Valuation.Conversion = table
	}

	return opts, nil
}
