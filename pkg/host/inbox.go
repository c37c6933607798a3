package host

import (
	"sync"

	"github.com/argus-labs/tickworld/pkg/transport"
	"github.com/rotisserie/eris"
)

var ErrInboxFull = eris.New("inbox is full")

// inbox buffers commands between transport goroutines and the tick loop. Submit may be called
// from any goroutine, drain only from the tick loop.
type inbox struct {
	mu       sync.Mutex
	commands []transport.Command
	capacity int
}

func newInbox(capacity int) *inbox {
	return &inbox{
		commands: make([]transport.Command, 0, capacity),
		capacity: capacity,
	}
}

// enqueue adds a command, failing with ErrInboxFull once capacity commands are waiting. Leaves are
// always accepted: each session sends at most one, and dropping it would leak the session's entity.
func (q *inbox) enqueue(cmd transport.Command) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.commands) >= q.capacity && cmd.Op != transport.OpLeave {
		return eris.Wrapf(ErrInboxFull, "%d commands waiting", len(q.commands))
	}
	q.commands = append(q.commands, cmd)
	return nil
}

// drain appends every queued command to target in arrival order and empties the inbox.
func (q *inbox) drain(target []transport.Command) []transport.Command {
	q.mu.Lock()
	defer q.mu.Unlock()

	target = append(target, q.commands...)
	clear(q.commands)
	q.commands = q.commands[:0]
	return target
}
