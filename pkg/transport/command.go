package transport

import (
	"bytes"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// Ops understood by every tickworld host. Hosts may accept more.
const (
	OpJoin  = "join"
	OpLeave = "leave"
	OpPing  = "ping"
)

// maxOpLength bounds the length of an op name.
const maxOpLength = 64

var (
	ErrEmptyLine = eris.New("empty line")
	ErrInvalidOp = eris.New("invalid op")
)

// Command is one parsed line from a client session.
type Command struct {
	Session uuid.UUID       // Session the line arrived on
	Op      string          // What the client asks for
	Args    json.RawMessage // Op specific arguments, nil for bare verbs
}

// Handler receives every parsed command. An error is reported back to the client.
type Handler func(Command) error

// wireCommand is the JSON form of a command line.
type wireCommand struct {
	Op   string          `json:"op"`
	Args json.RawMessage `json:"args,omitempty"`
}

// ParseLine parses a command line. A line is either a bare op such as "ping", or a JSON object
// such as {"op":"join","args":{"name":"ada"}}. Leading and trailing whitespace is ignored.
func ParseLine(line []byte) (op string, args json.RawMessage, err error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return "", nil, ErrEmptyLine
	}

	if line[0] != '{' {
		op = string(line)
		if !validOp(op) {
			return "", nil, eris.Wrapf(ErrInvalidOp, "%q", op)
		}
		return op, nil, nil
	}

	var wire wireCommand
	if err := json.Unmarshal(line, &wire); err != nil {
		return "", nil, eris.Wrap(err, "failed to decode command")
	}
	if !validOp(wire.Op) {
		return "", nil, eris.Wrapf(ErrInvalidOp, "%q", wire.Op)
	}
	if bytes.Equal(wire.Args, []byte("null")) {
		wire.Args = nil
	}
	return wire.Op, wire.Args, nil
}

// validOp reports whether s is a non-empty lowercase identifier.
func validOp(s string) bool {
	if s == "" || len(s) > maxOpLength {
		return false
	}
	for i := range len(s) {
		c := s[i]
		if (c < 'a' || c > 'z') && c != '_' && (i == 0 || c < '0' || c > '9') {
			return false
		}
	}
	return true
}
