package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavsocial/wavscan/pkg/config"
)

type testConfig struct {
	Name  string `env:"CONFIG_TEST_NAME" envDefault:"wavscan"`
	Port  int    `env:"CONFIG_TEST_PORT" envDefault:"8080"`
	Token string `env:"CONFIG_TEST_TOKEN,required"`
}

func TestLoad(t *testing.T) {
	t.Run("applies defaults and env overrides", func(t *testing.T) {
		t.Setenv("CONFIG_TEST_TOKEN", "secret")
		t.Setenv("CONFIG_TEST_PORT", "9090")

		var cfg testConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "wavscan", cfg.Name)
		assert.Equal(t, 9090, cfg.Port)
		assert.Equal(t, "secret", cfg.Token)
	})

	t.Run("fails on missing required variable", func(t *testing.T) {
		var cfg testConfig
		err := config.Load(&cfg)
		require.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("fails on nil pointer", func(t *testing.T) {
		err := config.Load[testConfig](nil)
		require.ErrorIs(t, err, config.ErrNilPointer)
	})
}
