package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tickqueue/pkg/config"
)

type cachedConfig struct {
	Value string `env:"TEST_CFG_CACHED" envDefault:"default"`
	Count int    `env:"TEST_CFG_COUNT" envDefault:"3"`
}

type requiredConfig struct {
	Value string `env:"TEST_CFG_REQUIRED,required"`
}

type envFileConfig struct {
	Value string `env:"TEST_CFG_ENV_FILE_VALUE"`
}

type fileConfig struct {
	Name         string        `env:"TEST_CFG_NAME" envDefault:"default-name" yaml:"name"`
	AutoStart    bool          `env:"TEST_CFG_AUTO_START" envDefault:"true" yaml:"auto_start"`
	TickInterval time.Duration `env:"TEST_CFG_TICK" envDefault:"1s" yaml:"tick_interval"`
	Retries      int           `env:"TEST_CFG_RETRIES" envDefault:"5" yaml:"retries"`
}

type dotenvConfig struct {
	Name string `env:"TEST_CFG_NAME" yaml:"name"`
	Note string `env:"TEST_CFG_DOTENV_NOTE" yaml:"note"`
}

func TestLoad_ParsesAndCaches(t *testing.T) {
	config.ResetCache()
	t.Setenv("TEST_CFG_CACHED", "first")

	var cfg cachedConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "first", cfg.Value)
	assert.Equal(t, 3, cfg.Count)

	t.Setenv("TEST_CFG_CACHED", "second")
	var again cachedConfig
	require.NoError(t, config.Load(&again))
	assert.Equal(t, "first", again.Value, "cached copy is returned")

	config.ResetCache()
	require.NoError(t, config.Load(&again))
	assert.Equal(t, "second", again.Value)
}

func TestLoad_Errors(t *testing.T) {
	config.ResetCache()
	os.Unsetenv("TEST_CFG_REQUIRED")

	var cfg requiredConfig
	assert.ErrorIs(t, config.Load(&cfg), config.ErrParsingConfig)
	assert.ErrorIs(t, config.Load[requiredConfig](nil), config.ErrNilPointer)
	assert.Panics(t, func() { config.MustLoad(&cfg) })
}

func TestLoadEnv(t *testing.T) {
	config.ResetCache()
	os.Unsetenv("TEST_CFG_ENV_FILE_VALUE")
	t.Cleanup(func() { os.Unsetenv("TEST_CFG_ENV_FILE_VALUE") })

	require.NoError(t, config.LoadEnv("testdata/.env.test"))

	var cfg envFileConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "from_env_file", cfg.Value)

	assert.ErrorIs(t, config.LoadEnv("testdata/missing.env"), config.ErrLoadingEnvFile)
}

func TestLoadYAML(t *testing.T) {
	t.Run("file overrides defaults", func(t *testing.T) {
		var cfg fileConfig
		require.NoError(t, config.LoadYAML("testdata/queue.yaml", &cfg))

		assert.Equal(t, "from-file", cfg.Name)
		assert.False(t, cfg.AutoStart)
		assert.Equal(t, 250*time.Millisecond, cfg.TickInterval)
		assert.Equal(t, 5, cfg.Retries, "unset keys keep envDefault")
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("TEST_CFG_NAME", "from-env")

		var cfg fileConfig
		require.NoError(t, config.LoadYAML("testdata/queue.yaml", &cfg))
		assert.Equal(t, "from-env", cfg.Name)
		assert.Equal(t, 250*time.Millisecond, cfg.TickInterval)
	})

	t.Run("reads .env from the working directory", func(t *testing.T) {
		var cfg dotenvConfig
		require.NoError(t, config.LoadYAML("testdata/queue.yaml", &cfg))
		assert.Equal(t, "from-file", cfg.Name)
		assert.Equal(t, "from-dotenv", cfg.Note)
	})

	t.Run("errors", func(t *testing.T) {
		var cfg fileConfig
		assert.ErrorIs(t, config.LoadYAML("testdata/nope.yaml", &cfg), config.ErrReadingFile)
		assert.ErrorIs(t, config.LoadYAML[fileConfig]("testdata/queue.yaml", nil), config.ErrNilPointer)

		bad := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(bad, []byte("tick_interval: [1, 2"), 0o600))
		assert.ErrorIs(t, config.LoadYAML(bad, &cfg), config.ErrDecodingYAML)
	})
}
