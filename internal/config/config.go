package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/attribution"
	apperrors "github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/errors"
)

// Config holds the server configuration. Values come from an optional YAML
// file named by CONFIG_FILE, then from the environment.
type Config struct {
	Port              string        `yaml:"port" validate:"required,numeric"`
	ArtifactsDir      string        `yaml:"artifacts_dir" validate:"required"`
	BootstrapDemo     bool          `yaml:"bootstrap_demo"`
	AttributionOutput string        `yaml:"attribution_output" validate:"oneof=per_class matrix sequence"`
	LogLevel          string        `yaml:"log_level" validate:"oneof=debug info warn error"`
	EnforceRanges     bool          `yaml:"enforce_ranges"`
	RequestTimeout    time.Duration `yaml:"request_timeout" validate:"gt=0"`
	AllowedOrigins    []string      `yaml:"allowed_origins" validate:"dive,url"`
	EnableProfiling   bool          `yaml:"enable_profiling"`

	Cache     CacheConfig     `yaml:"cache"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// CacheConfig controls the assessment cache
type CacheConfig struct {
	TTL      time.Duration `yaml:"ttl" validate:"gt=0"`
	MaxItems int           `yaml:"max_items" validate:"gte=1"`
}

// RedisConfig is optional; an empty address disables Redis everywhere
type RedisConfig struct {
	Addr     string `yaml:"addr" validate:"omitempty,hostname_port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0,lte=15"`
}

// RateLimitConfig controls the per-IP limiter
type RateLimitConfig struct {
	PerMinute       int `yaml:"per_minute" validate:"gte=1"`
	BurstMultiplier int `yaml:"burst_multiplier" validate:"gte=1"`
}

var validate = validator.New()

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Port:              "8080",
		ArtifactsDir:      "./data",
		AttributionOutput: string(attribution.OutputPerClass),
		LogLevel:          "info",
		RequestTimeout:    10 * time.Second,
		AllowedOrigins:    []string{"http://localhost:3000", "http://localhost:8501"},
		Cache: CacheConfig{
			TTL:      15 * time.Minute,
			MaxItems: 1000,
		},
		RateLimit: RateLimitConfig{
			PerMinute:       60,
			BurstMultiplier: 1,
		},
	}
}

// Load builds the configuration from defaults, the CONFIG_FILE and the
// environment, in that order, and validates the result.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperrors.NewConfigurationError(fmt.Sprintf("failed to read config file %s", path), err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return apperrors.NewConfigurationError(fmt.Sprintf("failed to parse config file %s", path), err)
	}
	return nil
}

// applyEnv overrides fields from the environment. lookup is os.LookupEnv
// outside tests.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return "", false
		}
		return v, true
	}

	if v, ok := get("PORT"); ok {
		c.Port = v
	}
	if v, ok := get("ARTIFACTS_DIR"); ok {
		c.ArtifactsDir = v
	}
	if v, ok := get("ATTRIBUTION_OUTPUT"); ok {
		c.AttributionOutput = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.LogLevel = strings.ToLower(v)
	}
	if v, ok := get("REDIS_ADDR"); ok {
		c.Redis.Addr = v
	}
	if v, ok := get("REDIS_PASSWORD"); ok {
		c.Redis.Password = v
	}
	if v, ok := get("ALLOWED_ORIGINS"); ok {
		c.AllowedOrigins = splitList(v)
	}

	var errs []string
	setBool := func(key string, dst *bool) {
		if v, ok := get(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s=%q is not a boolean", key, v))
				return
			}
			*dst = b
		}
	}
	setInt := func(key string, dst *int) {
		if v, ok := get(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s=%q is not an integer", key, v))
				return
			}
			*dst = n
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v, ok := get(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s=%q is not a duration", key, v))
				return
			}
			*dst = d
		}
	}

	setBool("BOOTSTRAP_DEMO", &c.BootstrapDemo)
	setBool("ENFORCE_RANGES", &c.EnforceRanges)
	setBool("ENABLE_PROFILING", &c.EnableProfiling)
	setInt("REDIS_DB", &c.Redis.DB)
	setInt("CACHE_MAX_ITEMS", &c.Cache.MaxItems)
	setInt("RATE_LIMIT_PER_MIN", &c.RateLimit.PerMinute)
	setDuration("CACHE_TTL", &c.Cache.TTL)
	setDuration("REQUEST_TIMEOUT", &c.RequestTimeout)

	if len(errs) > 0 {
		return apperrors.NewConfigurationError("invalid environment: "+strings.Join(errs, "; "), nil)
	}
	return nil
}

// Validate checks the struct tags and reports every failing field
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.NewConfigurationError("invalid configuration", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return apperrors.NewConfigurationError("invalid configuration: "+strings.Join(msgs, ", "), nil)
}

// Output returns the configured attribution output shape
func (c *Config) Output() attribution.Output {
	return attribution.Output(c.AttributionOutput)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
