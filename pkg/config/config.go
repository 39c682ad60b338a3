// Package config decodes skillroute settings from viper. Values come from
// flags, SKILLROUTE_* environment variables and config.yaml, in that order
// of precedence.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillroute/pkg/assembler"
	"github.com/jingkaihe/skillroute/pkg/corpus"
	"github.com/jingkaihe/skillroute/pkg/memory"
	"github.com/jingkaihe/skillroute/pkg/reload"
	"github.com/jingkaihe/skillroute/pkg/router"
	"github.com/jingkaihe/skillroute/pkg/selector"
	"github.com/jingkaihe/skillroute/pkg/telemetry"
	"github.com/jingkaihe/skillroute/pkg/version"
)

// EnvPrefix prefixes every environment variable
const EnvPrefix = "SKILLROUTE"

// envReplacer maps "select.top_k" to SKILLROUTE_SELECT_TOP_K
var envReplacer = strings.NewReplacer(".", "_", "-", "_")

// Config is the full settings tree
type Config struct {
	Corpus    CorpusConfig   `mapstructure:"corpus"`
	Select    SelectConfig   `mapstructure:"select"`
	Assemble  AssembleConfig `mapstructure:"assemble"`
	Memory    MemoryConfig   `mapstructure:"memory"`
	Tracing   TracingConfig  `mapstructure:"tracing"`
	LogLevel  string         `mapstructure:"log_level"`
	LogFormat string         `mapstructure:"log_format"`
}

// CorpusConfig locates the documents
type CorpusConfig struct {
	Root     string        `mapstructure:"root"`
	Include  []string      `mapstructure:"include"`
	Exclude  []string      `mapstructure:"exclude"`
	Workers  int           `mapstructure:"workers"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// SelectConfig tunes ranking
type SelectConfig struct {
	TopK     int     `mapstructure:"top_k"`
	MinScore float64 `mapstructure:"min_score"`
}

// AssembleConfig tunes the payload
type AssembleConfig struct {
	MaxChars  int    `mapstructure:"max_chars"`
	Separator string `mapstructure:"separator"`
	Headers   bool   `mapstructure:"headers"`
}

// MemoryConfig picks the memory backend
type MemoryConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// TracingConfig mirrors telemetry.Config
type TracingConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	Sampler string  `mapstructure:"sampler"`
	Ratio   float64 `mapstructure:"ratio"`
}

// SetDefaults registers default values on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("corpus.root", ".")
	v.SetDefault("corpus.include", corpus.DefaultInclude)
	v.SetDefault("corpus.exclude", corpus.DefaultExclude)
	v.SetDefault("corpus.workers", 0)
	v.SetDefault("corpus.debounce", 200*time.Millisecond)
	v.SetDefault("select.top_k", selector.DefaultTopK)
	v.SetDefault("select.min_score", 0.0)
	v.SetDefault("assemble.max_chars", router.DefaultMaxChars)
	v.SetDefault("assemble.separator", assembler.DefaultSeparator)
	v.SetDefault("assemble.headers", false)
	v.SetDefault("memory.backend", memory.BackendNone)
	v.SetDefault("memory.path", "")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.sampler", "ratio")
	v.SetDefault("tracing.ratio", 1.0)
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "fmt")
}

// Setup wires env and config-file lookup into v. A missing config file is
// not an error.
func Setup(v *viper.Viper) error {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(envReplacer)
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.skillroute")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errors.Wrap(err, "failed to read config file")
	}
	return nil
}

// FromViper decodes and validates the settings held by v
func FromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode configuration")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values no component would accept
func (c Config) Validate() error {
	if strings.TrimSpace(c.Corpus.Root) == "" {
		return errors.New("corpus.root must be set")
	}
	if c.Corpus.Workers < 0 {
		return errors.Errorf("corpus.workers must not be negative, got %d", c.Corpus.Workers)
	}
	if c.Select.TopK < 1 {
		return errors.Errorf("select.top_k must be at least 1, got %d", c.Select.TopK)
	}
	if c.Select.MinScore < 0 || c.Select.MinScore > 1 {
		return errors.Errorf("select.min_score must be within [0,1], got %v", c.Select.MinScore)
	}
	if c.Assemble.MaxChars < 0 {
		return errors.Errorf("assemble.max_chars must not be negative, got %d", c.Assemble.MaxChars)
	}
	switch strings.ToLower(c.Memory.Backend) {
	case "", memory.BackendNone, memory.BackendMemory, memory.BackendSQLite, memory.BackendFiles:
	default:
		return errors.Errorf("memory.backend must be one of none, memory, sqlite, files; got %q", c.Memory.Backend)
	}
	switch c.LogFormat {
	case "", "fmt", "text", "json":
	default:
		return errors.Errorf("log_format must be fmt or json, got %q", c.LogFormat)
	}
	return nil
}

// CorpusOptions converts the corpus section into load options
func (c Config) CorpusOptions() []corpus.Option {
	var opts []corpus.Option
	if len(c.Corpus.Include) > 0 {
		opts = append(opts, corpus.WithInclude(c.Corpus.Include...))
	}
	if c.Corpus.Exclude != nil {
		opts = append(opts, corpus.WithExclude(c.Corpus.Exclude...))
	}
	if c.Corpus.Workers > 0 {
		opts = append(opts, corpus.WithWorkers(c.Corpus.Workers))
	}
	return opts
}

// ReloadOptions converts the corpus section into watcher options
func (c Config) ReloadOptions() []reload.Option {
	return []reload.Option{
		reload.WithDebounce(c.Corpus.Debounce),
		reload.WithLoadOptions(c.CorpusOptions()...),
	}
}

// Assembler builds the configured assembler
func (c Config) Assembler() *assembler.Assembler {
	return assembler.New(
		assembler.WithSeparator(c.Assemble.Separator),
		assembler.WithHeaders(c.Assemble.Headers),
	)
}

// RouterOptions converts the select and assemble sections. Memory is
// attached separately because the caller owns its lifecycle.
func (c Config) RouterOptions() []router.Option {
	return []router.Option{
		router.WithTopK(c.Select.TopK),
		router.WithMinScore(c.Select.MinScore),
		router.WithMaxChars(c.Assemble.MaxChars),
		router.WithAssembler(c.Assembler()),
	}
}

// Telemetry converts the tracing section
func (c Config) Telemetry() telemetry.Config {
	return telemetry.Config{
		Enabled:        c.Tracing.Enabled,
		ServiceName:    "skillroute",
		ServiceVersion: version.Get().Version,
		SamplerType:    c.Tracing.Sampler,
		SamplerRatio:   c.Tracing.Ratio,
	}
}
