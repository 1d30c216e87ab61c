package proto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hardchor/frog-pond/internal/world"
)

// Version tracks the wire-protocol revision expected by renderers.
const Version = 1

// Server to renderer message types.
const (
	TypeFrogCreate    = "frog.create"
	TypeFrogUpdate    = "frog.update"
	TypeFrogDestroy   = "frog.destroy"
	TypeFrogsStats    = "frogs.stats"
	TypeAlgaeStats    = "algae.stats"
	TypeOxygenStats   = "oxygen.stats"
	TypeNitrogenStats = "nitrogen.stats"
)

// Renderer to server message types.
const (
	TypeFrogMate     = "frog.mate"
	TypeFrogPosition = "frog.position"
)

var (
	ErrMissingArgs = errors.New("missing arguments")
	ErrMissingID   = errors.New("missing frog id")
)

// Frame is the envelope for every message in both directions: an event name
// followed by positional arguments.
type Frame struct {
	Ver  int               `json:"ver"`
	Type string            `json:"type"`
	Args []json.RawMessage `json:"args,omitempty"`
}

// StatsArg carries a single aggregate value.
type StatsArg struct {
	Num int `json:"num"`
}

// EncodeFrame renders a versioned frame with the provided arguments.
func EncodeFrame(msgType string, args ...any) ([]byte, error) {
	frame := struct {
		Ver  int    `json:"ver"`
		Type string `json:"type"`
		Args []any  `json:"args"`
	}{
		Ver:  Version,
		Type: msgType,
		Args: args,
	}
	if frame.Args == nil {
		frame.Args = []any{}
	}
	return json.Marshal(frame)
}

func EncodeFrog(msgType string, snap world.FrogSnapshot) ([]byte, error) {
	return EncodeFrame(msgType, snap)
}

func EncodeDestroy(id string) ([]byte, error) {
	return EncodeFrame(TypeFrogDestroy, id)
}

func EncodeStats(msgType string, num int) ([]byte, error) {
	return EncodeFrame(msgType, StatsArg{Num: num})
}

// Totals are the aggregate counts sent as the four *.stats messages.
type Totals struct {
	Frogs    int
	Algae    int
	Oxygen   int
	Nitrogen int
}

// EncodeStatsFrames renders the four per-tick aggregate messages in the
// order frogs, algae, oxygen, nitrogen.
func EncodeStatsFrames(totals Totals) ([][]byte, error) {
	values := []struct {
		msgType string
		num     int
	}{
		{TypeFrogsStats, totals.Frogs},
		{TypeAlgaeStats, totals.Algae},
		{TypeOxygenStats, totals.Oxygen},
		{TypeNitrogenStats, totals.Nitrogen},
	}
	frames := make([][]byte, 0, len(values))
	for _, v := range values {
		data, err := EncodeStats(v.msgType, v.num)
		if err != nil {
			return nil, err
		}
		frames = append(frames, data)
	}
	return frames, nil
}

// ClientMessage is a decoded renderer frame.
type ClientMessage = Frame

// DecodeClientMessage parses a renderer frame. A missing version is treated
// as the current one.
func DecodeClientMessage(payload []byte) (ClientMessage, error) {
	return decodeFrame(payload)
}

func decodeFrame(payload []byte) (Frame, error) {
	var frame Frame
	if err := json.Unmarshal(payload, &frame); err != nil {
		return frame, err
	}
	if frame.Ver == 0 {
		frame.Ver = Version
	}
	if frame.Ver != Version {
		return frame, fmt.Errorf("unsupported protocol version %d", frame.Ver)
	}
	if frame.Type == "" {
		return frame, errors.New("missing message type")
	}
	return frame, nil
}

// MateRequest names the pair a renderer saw touching.
type MateRequest struct {
	A string
	B string
}

// DecodeMate reads the two frog references of a frog.mate frame. Only their
// ids are used.
func DecodeMate(msg ClientMessage) (MateRequest, error) {
	if len(msg.Args) < 2 {
		return MateRequest{}, ErrMissingArgs
	}
	a, err := decodeFrogRef(msg.Args[0])
	if err != nil {
		return MateRequest{}, err
	}
	b, err := decodeFrogRef(msg.Args[1])
	if err != nil {
		return MateRequest{}, err
	}
	return MateRequest{A: a, B: b}, nil
}

// PositionReport is a renderer's view of where a frog is.
type PositionReport struct {
	ID       string
	Position world.Position
}

func DecodePosition(msg ClientMessage) (PositionReport, error) {
	if len(msg.Args) < 2 {
		return PositionReport{}, ErrMissingArgs
	}
	id, err := decodeFrogRef(msg.Args[0])
	if err != nil {
		return PositionReport{}, err
	}
	var pos world.Position
	if err := json.Unmarshal(msg.Args[1], &pos); err != nil {
		return PositionReport{}, fmt.Errorf("decoding position: %w", err)
	}
	return PositionReport{ID: id, Position: pos}, nil
}

// decodeFrogRef accepts either a bare id string or an object carrying "id".
func decodeFrogRef(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var id string
		if err := json.Unmarshal(trimmed, &id); err != nil {
			return "", err
		}
		if id == "" {
			return "", ErrMissingID
		}
		return id, nil
	}
	var ref struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(trimmed, &ref); err != nil {
		return "", fmt.Errorf("decoding frog reference: %w", err)
	}
	if ref.ID == "" {
		return "", ErrMissingID
	}
	return ref.ID, nil
}

// EncodeMate renders a renderer's frog.mate request.
func EncodeMate(a, b world.FrogSnapshot) ([]byte, error) {
	return EncodeFrame(TypeFrogMate, a, b)
}

// EncodePosition renders a renderer's frog.position report.
func EncodePosition(id string, pos world.Position) ([]byte, error) {
	return EncodeFrame(TypeFrogPosition, struct {
		ID string `json:"id"`
	}{ID: id}, pos)
}

// FrogFields records which snapshot fields a frog frame actually carried.
type FrogFields uint8

const (
	FieldID FrogFields = 1 << iota
	FieldGender
	FieldCanMate
	FieldMaxAge
	FieldAge
	FieldPosition

	AllFrogFields = FieldID | FieldGender | FieldCanMate | FieldMaxAge | FieldAge | FieldPosition
)

var frogFieldKeys = map[string]FrogFields{
	"id":       FieldID,
	"gender":   FieldGender,
	"canMate":  FieldCanMate,
	"maxAge":   FieldMaxAge,
	"age":      FieldAge,
	"position": FieldPosition,
}

func (f FrogFields) Has(field FrogFields) bool {
	return f&field == field
}

// ServerMessage is a decoded server frame as a renderer sees it. Fields is
// zero for messages built in process, which carry a full snapshot.
type ServerMessage struct {
	Type   string
	Frog   world.FrogSnapshot
	Fields FrogFields
	ID     string
	Num    int
}

func DecodeServerMessage(payload []byte) (ServerMessage, error) {
	frame, err := decodeFrame(payload)
	if err != nil {
		return ServerMessage{}, err
	}
	msg := ServerMessage{Type: frame.Type}
	if len(frame.Args) == 0 {
		return msg, ErrMissingArgs
	}
	switch frame.Type {
	case TypeFrogCreate, TypeFrogUpdate:
		var present map[string]json.RawMessage
		if err := json.Unmarshal(frame.Args[0], &present); err != nil {
			return msg, fmt.Errorf("decoding frog: %w", err)
		}
		if err := json.Unmarshal(frame.Args[0], &msg.Frog); err != nil {
			return msg, fmt.Errorf("decoding frog: %w", err)
		}
		for key := range present {
			msg.Fields |= frogFieldKeys[key]
		}
		if msg.Frog.ID == "" {
			return msg, ErrMissingID
		}
		msg.ID = msg.Frog.ID
	case TypeFrogDestroy:
		id, err := decodeFrogRef(frame.Args[0])
		if err != nil {
			return msg, err
		}
		msg.ID = id
	case TypeFrogsStats, TypeAlgaeStats, TypeOxygenStats, TypeNitrogenStats:
		var stats StatsArg
		if err := json.Unmarshal(frame.Args[0], &stats); err != nil {
			return msg, fmt.Errorf("decoding stats: %w", err)
		}
		msg.Num = stats.Num
	default:
		return msg, fmt.Errorf("unknown message type %q", frame.Type)
	}
	return msg, nil
}
