package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Port    int           `env:"SAMPLE_PORT" envDefault:"8080"`
	Name    string        `env:"SAMPLE_NAME"`
	Brokers []string      `env:"SAMPLE_BROKERS" envSeparator:","`
	TTL     time.Duration `env:"SAMPLE_TTL" envDefault:"1h"`
}

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "shop")
	t.Setenv("SAMPLE_BROKERS", "a:9092,b:9092")

	var cfg sample
	require.NoError(t, Load(&cfg, filepath.Join(t.TempDir(), "missing.env")))

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "shop", cfg.Name)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Brokers)
	assert.Equal(t, time.Hour, cfg.TTL)
}

func TestLoad_ReadsDotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SAMPLE_PORT=9090\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("SAMPLE_PORT") })

	var cfg sample
	require.NoError(t, Load(&cfg, path))
	assert.Equal(t, 9090, cfg.Port)
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Setenv("SAMPLE_PORT", "not-a-number")

	var cfg sample
	require.Error(t, Load(&cfg, filepath.Join(t.TempDir(), "missing.env")))
}
