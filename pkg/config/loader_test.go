package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authkit/pkg/config"
)

type limiterConfig struct {
	Limit  int    `env:"TEST_LIMITER_LIMIT" envDefault:"5"`
	Window string `env:"TEST_LIMITER_WINDOW" envDefault:"15m"`
}

type requiredConfig struct {
	Secret string `env:"TEST_REQUIRED_SECRET,required"`
}

type envFileConfig struct {
	Value    string `env:"TEST_ENVFILE_VALUE"`
	Override string `env:"TEST_ENVFILE_OVERRIDE"`
}

func writeEnvFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("defaults apply", func(t *testing.T) {
		config.ResetCache()

		var cfg limiterConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, 5, cfg.Limit)
		assert.Equal(t, "15m", cfg.Window)
	})

	t.Run("env vars win over defaults", func(t *testing.T) {
		config.ResetCache()
		t.Setenv("TEST_LIMITER_LIMIT", "10")

		var cfg limiterConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, 10, cfg.Limit)
	})

	t.Run("caches per type", func(t *testing.T) {
		config.ResetCache()
		t.Setenv("TEST_LIMITER_LIMIT", "7")

		var first limiterConfig
		require.NoError(t, config.Load(&first))

		// A later env change is invisible without a forced reload.
		t.Setenv("TEST_LIMITER_LIMIT", "99")
		var second limiterConfig
		require.NoError(t, config.Load(&second))
		assert.Equal(t, 7, second.Limit)

		var third limiterConfig
		require.NoError(t, config.ForceReloadConfig(&third))
		assert.Equal(t, 99, third.Limit)
	})

	t.Run("missing required field errors", func(t *testing.T) {
		config.ResetCache()
		os.Unsetenv("TEST_REQUIRED_SECRET")

		var cfg requiredConfig
		err := config.Load(&cfg)
		require.ErrorIs(t, err, config.ErrParsingConfig)

		t.Setenv("TEST_REQUIRED_SECRET", "s3cret")
		require.NoError(t, config.ForceReloadConfig(&cfg))
		assert.Equal(t, "s3cret", cfg.Secret)
	})

	t.Run("nil pointer rejected", func(t *testing.T) {
		err := config.Load[limiterConfig](nil)
		assert.ErrorIs(t, err, config.ErrNilPointer)
	})
}

func TestLoadEnv(t *testing.T) {
	t.Run("loads values from file", func(t *testing.T) {
		config.ResetCache()
		os.Unsetenv("TEST_ENVFILE_VALUE")
		os.Unsetenv("TEST_ENVFILE_OVERRIDE")

		base := writeEnvFile(t, ".env.base", "TEST_ENVFILE_VALUE=from_base\nTEST_ENVFILE_OVERRIDE=base\n")
		require.NoError(t, config.LoadEnv(base))
		t.Cleanup(func() {
			os.Unsetenv("TEST_ENVFILE_VALUE")
			os.Unsetenv("TEST_ENVFILE_OVERRIDE")
		})

		var cfg envFileConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "from_base", cfg.Value)
		assert.Equal(t, "base", cfg.Override)
	})

	t.Run("later files take precedence", func(t *testing.T) {
		config.ResetCache()
		os.Unsetenv("TEST_ENVFILE_VALUE")
		os.Unsetenv("TEST_ENVFILE_OVERRIDE")

		base := writeEnvFile(t, ".env.base", "TEST_ENVFILE_VALUE=from_base\nTEST_ENVFILE_OVERRIDE=base\n")
		local := writeEnvFile(t, ".env.local", "TEST_ENVFILE_OVERRIDE=local\n")
		require.NoError(t, config.LoadEnv(base, local))
		t.Cleanup(func() {
			os.Unsetenv("TEST_ENVFILE_VALUE")
			os.Unsetenv("TEST_ENVFILE_OVERRIDE")
		})

		var cfg envFileConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "from_base", cfg.Value)
		assert.Equal(t, "local", cfg.Override)
	})

	t.Run("missing file errors", func(t *testing.T) {
		err := config.LoadEnv(filepath.Join(t.TempDir(), "missing.env"))
		require.ErrorIs(t, err, config.ErrLoadingEnv)

		assert.Panics(t, func() {
			config.MustLoadEnv(filepath.Join(t.TempDir(), "missing.env"))
		})
	})
}
