package host

import (
	"github.com/argus-labs/tickworld/pkg/ecs"
	"github.com/rs/zerolog"
)

// PingSystem counts the pings of every session. It reads the Pinged marks the SessionApplier
// leaves for the current tick.
type PingSystem struct{ ecs.BaseSystem }

func (PingSystem) Run(w *ecs.World) {
	for eid := range w.Entities() {
		if !ecs.HasEphemeralComponent[Pinged](w, eid) {
			continue
		}
		_, _ = ecs.UpdateComponent(w, eid, func(s Session) Session {
			s.Pings++
			return s
		})
	}
}

// PresenceSystem logs the number of connected sessions whenever it changes. It runs after
// PingSystem, which must be registered too.
type PresenceSystem struct {
	ecs.BaseSystem
	Logger zerolog.Logger

	last int
}

func (*PresenceSystem) Dependencies() []ecs.SystemID {
	return []ecs.SystemID{ecs.SystemIDOf[PingSystem]()}
}

func (p *PresenceSystem) AfterRun(r ecs.ReadOnly) {
	sessions := 0
	for eid := range r.Entities() {
		if ecs.HasComponent[Session](r, eid) {
			sessions++
		}
	}
	if sessions != p.last {
		p.Logger.Info().Int("sessions", sessions).Int("previous", p.last).Msg("presence changed")
		p.last = sessions
	}
}

// Sessions returns the number of sessions counted at the end of the last tick.
func (p *PresenceSystem) Sessions() int {
	return p.last
}
