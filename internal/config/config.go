package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/engimpact/dashboard/internal/insights"
)

// Config is the full service configuration, read from the environment
// with defaults that work out of the box for local development.
type Config struct {
	Env      string          `env:"ENV" env-default:"dev"`
	Server   HTTPServer      `env-prefix:"SERVER_"`
	GitHub   GitHubConfig    `env-prefix:"GITHUB_"`
	Insights InsightsConfig  `env-prefix:"INSIGHTS_"`
	Cache    CacheConfig     `env-prefix:"CACHE_"`
}

type HTTPServer struct {
	Port           string        `env:"PORT" env-default:"8080"`
	RequestTimeout time.Duration `env:"TIMEOUT" env-default:"30s"`
}

type GitHubConfig struct {
	Token             string  `env:"TOKEN"`
	MaxPRsPerRepo     int     `env:"MAX_PRS_PER_REPO" env-default:"30"`
	RequestsPerSecond float64 `env:"REQUESTS_PER_SECOND" env-default:"5"`
}

// InsightsConfig carries the classification thresholds of the metrics
// engine.
type InsightsConfig struct {
	BottleneckAgeDays   int     `env:"BOTTLENECK_AGE_DAYS" env-default:"7"`
	HighImpactMinSample int     `env:"HIGH_IMPACT_MIN_SAMPLE" env-default:"5"`
	HighImpactFallback  float64 `env:"HIGH_IMPACT_FALLBACK" env-default:"500"`
	BurnoutShare        float64 `env:"BURNOUT_SHARE" env-default:"0.40"`
}

type CacheConfig struct {
	TTL time.Duration `env:"TTL" env-default:"10m"`
}

// Thresholds maps the configured values onto the insights engine's
// threshold set.
func (c InsightsConfig) Thresholds() insights.Thresholds {
	return insights.Thresholds{
		BottleneckAgeDays:   c.BottleneckAgeDays,
		HighImpactMinSample: c.HighImpactMinSample,
		HighImpactFallback:  c.HighImpactFallback,
		BurnoutShare:        c.BurnoutShare,
	}
}

// MustLoad reads the configuration from the environment and panics on
// failure; a service that cannot read its config cannot start.
func MustLoad() *Config {
	var cfg Config

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		panic("failed to read config from environment: " + err.Error())
	}

	return &cfg
}
