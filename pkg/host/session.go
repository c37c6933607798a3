package host

import (
	"github.com/argus-labs/tickworld/pkg/ecs"
	"github.com/argus-labs/tickworld/pkg/transport"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

var (
	ErrAlreadyJoined  = eris.New("session already joined")
	ErrUnknownSession = eris.New("session has not joined")
	ErrUnknownOp      = eris.New("unknown op")
)

// Session is attached to the entity of every joined client session.
type Session struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"name"`
	Pings       int       `json:"pings"`
}

func (Session) Name() string { return "Session" }

// Pinged is an ephemeral component marking sessions that pinged during the current tick.
type Pinged struct{}

func (Pinged) Name() string { return "Pinged" }

// joinArgs are the optional arguments of a join command.
type joinArgs struct {
	Name string `json:"name"`
}

// SessionApplier maps client sessions to entities. A join spawns an entity carrying a Session
// component, a leave deletes it, and a ping marks it with the ephemeral Pinged component. Other
// ops are passed to Fallback, or rejected with ErrUnknownOp when it is nil.
type SessionApplier struct {
	Fallback CommandApplier

	entities map[uuid.UUID]ecs.EntityID
}

var _ CommandApplier = &SessionApplier{}

// NewSessionApplier creates a SessionApplier with an optional fallback for other ops.
func NewSessionApplier(fallback CommandApplier) *SessionApplier {
	return &SessionApplier{
		Fallback: fallback,
		entities: make(map[uuid.UUID]ecs.EntityID),
	}
}

// Entity returns the entity of a joined session.
func (a *SessionApplier) Entity(session uuid.UUID) (ecs.EntityID, bool) {
	eid, ok := a.entities[session]
	return eid, ok
}

// Apply implements CommandApplier.
func (a *SessionApplier) Apply(w *ecs.World, cmd transport.Command) error {
	switch cmd.Op {
	case transport.OpJoin:
		return a.join(w, cmd)
	case transport.OpLeave:
		eid, err := a.lookup(w, cmd.Session)
		if err != nil {
			return err
		}
		delete(a.entities, cmd.Session)
		w.DeleteEntity(eid)
		return nil
	case transport.OpPing:
		eid, err := a.lookup(w, cmd.Session)
		if err != nil {
			return err
		}
		if err := ecs.AddEphemeralComponent(w, eid, Pinged{}); err != nil {
			return eris.Wrap(err, "failed to mark ping")
		}
		return nil
	default:
		if a.Fallback == nil {
			return eris.Wrapf(ErrUnknownOp, "%q", cmd.Op)
		}
		return a.Fallback.Apply(w, cmd)
	}
}

func (a *SessionApplier) join(w *ecs.World, cmd transport.Command) error {
	if _, err := a.lookup(w, cmd.Session); err == nil {
		return eris.Wrapf(ErrAlreadyJoined, "session %s", cmd.Session)
	}

	var args joinArgs
	if len(cmd.Args) > 0 {
		if err := json.Unmarshal(cmd.Args, &args); err != nil {
			return eris.Wrap(err, "failed to decode join args")
		}
	}

	eid := w.SpawnEntity()
	if err := ecs.AddComponent(w, eid, Session{ID: cmd.Session, DisplayName: args.Name}); err != nil {
		w.DeleteEntity(eid)
		return eris.Wrap(err, "failed to attach session")
	}
	a.entities[cmd.Session] = eid
	return nil
}

// lookup returns the entity of a joined session. Sessions whose entity was deleted by a system
// are forgotten.
func (a *SessionApplier) lookup(w *ecs.World, session uuid.UUID) (ecs.EntityID, error) {
	eid, ok := a.entities[session]
	if !ok {
		return 0, eris.Wrapf(ErrUnknownSession, "session %s", session)
	}
	if !w.IsActive(eid) {
		delete(a.entities, session)
		return 0, eris.Wrapf(ErrUnknownSession, "session %s", session)
	}
	return eid, nil
}
