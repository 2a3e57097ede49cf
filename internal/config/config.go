// Package config loads engine configuration from file and environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/zarfld/reqtrace/internal/gate"
	"github.com/zarfld/reqtrace/internal/validate"
)

// Config holds all engine configuration.
type Config struct {
	GitHub  GitHubConfig      `mapstructure:"github"`
	Gates   map[string]string `mapstructure:"gates"` // violation kind -> severity
	Output  OutputConfig      `mapstructure:"output"`
	Neo4j   Neo4jConfig       `mapstructure:"neo4j"`
	Tracing TracingConfig     `mapstructure:"tracing"`
}

type GitHubConfig struct {
	Token       string        `mapstructure:"token"`
	Repository  string        `mapstructure:"repository"`
	APIBase     string        `mapstructure:"api_base"`
	PageSize    int           `mapstructure:"page_size"`
	MaxRetries  int           `mapstructure:"max_retries"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
	Concurrency int           `mapstructure:"concurrency"`
}

type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type TracingConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
	Environment  string  `mapstructure:"environment"`
}

// knownGateKinds guards against typos in the gates section.
var knownGateKinds = map[string]bool{
	string(validate.OrphanRequirement):   true,
	string(validate.DanglingReference):   true,
	string(validate.MissingRequiredRole): true,
	string(validate.AmbiguousType):       true,
}

// Validate checks configuration for issues and returns warnings. Warnings
// never abort a run; the caller prints them to stderr.
func (c *Config) Validate() []string {
	var warnings []string

	if c.GitHub.Repository != "" && !strings.Contains(c.GitHub.Repository, "/") {
		warnings = append(warnings, fmt.Sprintf("repository %q is not in owner/name form", c.GitHub.Repository))
	}
	if c.GitHub.Repository != "" && c.GitHub.Token == "" {
		warnings = append(warnings, "no github token configured; unauthenticated requests are heavily rate-limited")
	}
	if c.GitHub.PageSize < 0 || c.GitHub.PageSize > 100 {
		warnings = append(warnings, fmt.Sprintf("page_size %d is outside 1..100 and will be replaced by the default", c.GitHub.PageSize))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		warnings = append(warnings, fmt.Sprintf("tracing sample_rate %.2f is outside [0.0, 1.0]", c.Tracing.SampleRate))
	}

	for kind, sev := range c.Gates {
		if !knownGateKinds[kind] {
			warnings = append(warnings, fmt.Sprintf("gates.%s is not a known violation kind", kind))
		}
		if _, ok := gate.ParseSeverity(sev); !ok {
			warnings = append(warnings, fmt.Sprintf("gates.%s severity %q is unknown; treating as required", kind, sev))
		}
	}

	return warnings
}

// GatePolicy resolves the configured gate severities over the defaults.
func (c *Config) GatePolicy() gate.Policy {
	policy := gate.DefaultPolicy()
	for kind, sev := range c.Gates {
		parsed, _ := gate.ParseSeverity(sev)
		policy[validate.Kind(kind)] = parsed
	}
	return policy
}

// Load reads configuration from the given file (optional) and environment.
// Environment variables use the REQTRACE_ prefix, e.g. REQTRACE_GITHUB_TOKEN.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("REQTRACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind keys explicitly so AutomaticEnv sees them even with no file entry.
	for _, key := range []string{
		"github.token", "github.repository", "github.api_base",
		"github.page_size", "github.max_retries", "github.retry_delay",
		"github.concurrency",
		"output.dir",
		"gates.orphan_requirement", "gates.dangling_reference",
		"gates.missing_required_role", "gates.ambiguous_type",
		"neo4j.uri", "neo4j.username", "neo4j.password",
		"tracing.otlp_endpoint", "tracing.sample_rate", "tracing.environment",
	} {
		_ = v.BindEnv(key)
	}

	v.SetDefault("output.dir", "build")
	v.SetDefault("github.page_size", 100)
	v.SetDefault("github.max_retries", 5)
	v.SetDefault("github.concurrency", 1)
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.environment", "ci")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return &cfg, nil
}
