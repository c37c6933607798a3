package host

import (
	"github.com/argus-labs/tickworld/pkg/telemetry"
	"github.com/rotisserie/eris"
)

// maxTickRate bounds the tick rate so the ticker interval stays above a millisecond.
const maxTickRate = 1000

// Options configures a Host. Tagged fields are read from TICKWORLD_* environment variables;
// values set in code win.
type Options struct {
	// Number of ticks per second, in (0, 1000].
	TickRate float64 `env:"TICKWORLD_TICK_RATE" envDefault:"20"`

	// Maximum number of commands waiting for the next tick. Leaves are not counted against it.
	InboxSize int `env:"TICKWORLD_INBOX_SIZE" envDefault:"1024"`

	// Applies commands to the world before each tick.
	Applier CommandApplier

	// Optional. Logging and error reporting are off without it.
	Telemetry *telemetry.Telemetry
}

// Override implements config.Options.
func (opt *Options) Override(explicit Options) {
	if explicit.TickRate != 0.0 {
		opt.TickRate = explicit.TickRate
	}
	if explicit.InboxSize != 0 {
		opt.InboxSize = explicit.InboxSize
	}
	if explicit.Applier != nil {
		opt.Applier = explicit.Applier
	}
	if explicit.Telemetry != nil {
		opt.Telemetry = explicit.Telemetry
	}
}

// Validate implements config.Options.
func (opt *Options) Validate() error {
	if opt.TickRate <= 0 || opt.TickRate > maxTickRate {
		return eris.Errorf("tick rate must be in (0, %d]", maxTickRate)
	}
	if opt.InboxSize <= 0 {
		return eris.New("inbox size must be positive")
	}
	if opt.Applier == nil {
		return eris.New("command applier cannot be nil")
	}
	return nil
}
