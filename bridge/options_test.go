package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/codebridge/config"
)

func TestOptions_Apply(t *testing.T) {
	cfg := config.New()
	options := &Options{Backend: "/opt/codebackend/bin/codebackend", BackendPort: 4102, StreamPort: 4101}
	options.Apply(cfg)
	assert.Equal(t, "/opt/codebackend/bin/codebackend", cfg.Backend.Command)
	assert.Equal(t, 4102, cfg.Backend.Port)
	assert.Equal(t, 4101, cfg.Stream.Port)
	// untouched values keep their defaults
	assert.Equal(t, "listening on", cfg.Backend.ReadyMarker)
}
