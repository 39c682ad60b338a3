package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillroute/pkg/assembler"
	"github.com/jingkaihe/skillroute/pkg/corpus"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.Corpus.Root)
	assert.Equal(t, corpus.DefaultInclude, cfg.Corpus.Include)
	assert.Equal(t, 200*time.Millisecond, cfg.Corpus.Debounce)
	assert.Equal(t, 1, cfg.Select.TopK)
	assert.Equal(t, 32000, cfg.Assemble.MaxChars)
	assert.Equal(t, assembler.DefaultSeparator, cfg.Assemble.Separator)
	assert.Equal(t, "none", cfg.Memory.Backend)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, "warn", cfg.LogLevel)

	assert.Len(t, cfg.RouterOptions(), 4)
	assert.Len(t, cfg.CorpusOptions(), 2)
	assert.Equal(t, "skillroute", cfg.Telemetry().ServiceName)
}

func TestConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
corpus:
  root: /srv/agents
  exclude: ["drafts/**"]
  debounce: 1s
select:
  top_k: 3
assemble:
  max_chars: 8000
  headers: true
memory:
  backend: sqlite
  path: /var/lib/skillroute/memory.db
log_format: json
`), 0o644))

	t.Setenv("SKILLROUTE_SELECT_MIN_SCORE", "0.2")

	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(envReplacer)
	v.AutomaticEnv()
	v.SetConfigFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, v.ReadInConfig())

	cfg, err := FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "/srv/agents", cfg.Corpus.Root)
	assert.Equal(t, []string{"drafts/**"}, cfg.Corpus.Exclude)
	assert.Equal(t, time.Second, cfg.Corpus.Debounce)
	assert.Equal(t, 3, cfg.Select.TopK)
	assert.InDelta(t, 0.2, cfg.Select.MinScore, 1e-9)
	assert.Equal(t, 8000, cfg.Assemble.MaxChars)
	assert.True(t, cfg.Assemble.Headers)
	assert.Equal(t, "sqlite", cfg.Memory.Backend)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestSetupWithoutConfigFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	v := viper.New()
	require.NoError(t, Setup(v))

	cfg, err := FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, ".", cfg.Corpus.Root)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		v := viper.New()
		SetDefaults(v)
		cfg, err := FromViper(v)
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty root", func(c *Config) { c.Corpus.Root = " " }},
		{"negative workers", func(c *Config) { c.Corpus.Workers = -1 }},
		{"zero top k", func(c *Config) { c.Select.TopK = 0 }},
		{"min score above one", func(c *Config) { c.Select.MinScore = 1.5 }},
		{"negative budget", func(c *Config) { c.Assemble.MaxChars = -1 }},
		{"unknown backend", func(c *Config) { c.Memory.Backend = "redis" }},
		{"unknown log format", func(c *Config) { c.LogFormat = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
