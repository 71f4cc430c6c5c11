package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_Defaults(t *testing.T) {
	cfg := New()
	assert.Equal(t, 3002, cfg.Backend.Port)
	assert.Equal(t, "listening on", cfg.Backend.ReadyMarker)
	assert.Equal(t, 30*time.Second, cfg.ReadyTimeout())
	assert.Equal(t, 3, cfg.HTTP.MaxAttempts)
	assert.Equal(t, 3001, cfg.Stream.Port)
	assert.Equal(t, "http://127.0.0.1:3002", cfg.BackendURL())
	assert.Equal(t, "http://127.0.0.1:3001", cfg.StreamBaseURL())
}

func TestLoad_JSON(t *testing.T) {
	URL := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(URL, []byte(`{"backend":{"port":4102,"readyMarker":"up and running"},"stream":{"port":4101}}`), 0o644)
	assert.NoError(t, err)

	cfg, err := Load(context.Background(), URL)
	assert.NoError(t, err)
	assert.Equal(t, 4102, cfg.Backend.Port)
	assert.Equal(t, "up and running", cfg.Backend.ReadyMarker)
	assert.Equal(t, 4101, cfg.Stream.Port)
	// defaults still fill unset values
	assert.Equal(t, 3, cfg.HTTP.MaxAttempts)
}

func TestLoad_YAML(t *testing.T) {
	URL := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(URL, []byte("backend:\n  port: 4202\nhttp:\n  maxAttempts: 5\n"), 0o644)
	assert.NoError(t, err)

	cfg, err := Load(context.Background(), URL)
	assert.NoError(t, err)
	assert.Equal(t, 4202, cfg.Backend.Port)
	assert.Equal(t, 5, cfg.HTTP.MaxAttempts)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
