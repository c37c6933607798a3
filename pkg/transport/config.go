package transport

import (
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// minLineBytes is the smallest line limit that still fits a JSON command with a short op.
const minLineBytes = 64

// ServerOptions configures a Server. Tagged fields are read from TICKWORLD_* environment variables;
// values set in code win.
type ServerOptions struct {
	// Address the server listens on.
	ListenAddr string `env:"TICKWORLD_LISTEN_ADDR" envDefault:":7777"`

	// Longest line a client may send. Longer lines close the connection.
	MaxLineBytes int `env:"TICKWORLD_MAX_LINE_BYTES" envDefault:"4096"`

	// Receives every parsed command, and a leave for every session that disconnects without one.
	Handler Handler

	// Optional, defaults to a no-op logger.
	Logger *zerolog.Logger
}

// Override implements config.Options.
func (opt *ServerOptions) Override(explicit ServerOptions) {
	if explicit.ListenAddr != "" {
		opt.ListenAddr = explicit.ListenAddr
	}
	if explicit.MaxLineBytes != 0 {
		opt.MaxLineBytes = explicit.MaxLineBytes
	}
	if explicit.Handler != nil {
		opt.Handler = explicit.Handler
	}
	if explicit.Logger != nil {
		opt.Logger = explicit.Logger
	}
}

// Validate implements config.Options.
func (opt *ServerOptions) Validate() error {
	if opt.ListenAddr == "" {
		return eris.New("listen address cannot be empty")
	}
	if opt.MaxLineBytes < minLineBytes {
		return eris.Errorf("max line bytes must be at least %d", minLineBytes)
	}
	if opt.Handler == nil {
		return eris.New("handler cannot be nil")
	}
	return nil
}
