package dvr

import (
	"encoding/json"
	"errors"
)

// CmdType identifies different command types.
type CmdType string

// Command types.
const (
	CmdAdd    CmdType = "ADD_ROUTE"
	CmdDelete CmdType = "DELETE_ROUTE"
)

// Cmd is a route table mutation as it is stored in the Raft log. Key is the
// destination affected; Value is only set for CmdAdd.
type Cmd struct {
	Type  CmdType `json:"op"`
	Key   string  `json:"key"`
	Value Route   `json:"value"`
}

var (
	// ErrMalformedCmd indicates the command being parsed is malformed.
	ErrMalformedCmd = errors.New("malformed cmd")
	// ErrUnknownCmd indicates the command has an unknown type.
	ErrUnknownCmd = errors.New("unknown cmd")
)

// NewCmdAdd creates a new CmdAdd command.
func NewCmdAdd(destination, nextHop string, metric int) Cmd {
	return Cmd{
		Type: CmdAdd,
		Key:  destination,
		Value: Route{
			Destination: destination,
			NextHop:     nextHop,
			Metric:      metric,
		},
	}
}

// NewCmdDelete creates a new CmdDelete command.
func NewCmdDelete(destination string) Cmd {
	return Cmd{
		Type: CmdDelete,
		Key:  destination,
	}
}

// Marshal returns the wire form of c.
func (c Cmd) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

// ParseCmd returns a Cmd from the bytes given.
func ParseCmd(b []byte) (Cmd, error) {
	var c Cmd

	if err := json.Unmarshal(b, &c); err != nil {
		return Cmd{}, ErrMalformedCmd
	}

	switch c.Type {
	case CmdAdd:
		// The key is authoritative.
		c.Value.Destination = c.Key
		return c, nil
	case CmdDelete:
		return c, nil
	default:
		return Cmd{}, ErrUnknownCmd
	}
}

func (c Cmd) String() string {
	switch c.Type {
	case CmdAdd:
		return string(c.Type) + " " + c.Value.String()
	default:
		return string(c.Type) + " " + c.Key
	}
}
