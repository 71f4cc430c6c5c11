package bridge

import "github.com/viant/codebridge/config"

// Options are the command line flags; non-zero values override the config file.
type Options struct {
	ConfigURL   string `short:"c" long:"config" description:"config file URL"`
	Backend     string `short:"b" long:"backend" description:"backend executable path"`
	BackendPort int    `long:"backend-port" description:"backend HTTP port"`
	StreamPort  int    `short:"s" long:"stream-port" description:"SSE progress server port"`
	ReadyMarker string `long:"ready-marker" description:"stdout substring signalling backend readiness"`
	Workspace   string `short:"w" long:"workspace" description:"workspace directory for checkpoint revision stamping"`
	Verbose     bool   `short:"v" long:"verbose" description:"enable debug logging"`
}

// Apply overlays the flag values on the configuration.
func (o *Options) Apply(cfg *config.Config) {
	if o.Backend != "" {
		cfg.Backend.Command = o.Backend
	}
	if o.BackendPort != 0 {
		cfg.Backend.Port = o.BackendPort
	}
	if o.StreamPort != 0 {
		cfg.Stream.Port = o.StreamPort
	}
	if o.ReadyMarker != "" {
		cfg.Backend.ReadyMarker = o.ReadyMarker
	}
}
