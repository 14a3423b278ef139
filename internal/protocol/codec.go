package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

var (
	ErrEmptyFrame       = errors.New("protocol: empty frame")
	ErrUnknownType      = errors.New("protocol: unknown message type")
	ErrMalformedPayload = errors.New("protocol: malformed payload")
)

var jsonNull = []byte("null")

// Envelope is the outer frame shared by every message.
type Envelope struct {
	T string          `json:"t"`
	P json.RawMessage `json:"p"`
}

// Encode serializes msg into an envelope.
func Encode(msg Message) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: nil message", ErrMalformedPayload)
	}
	var payload any
	switch m := msg.(type) {
	case Join:
		payload = m
	case Init:
		payload = Init{Players: nonNilPlayers(m.Players), Foods: nonNilFoods(m.Foods), You: m.You}
	case Update:
		payload = m
	case UpdatePlayers:
		payload = nonNilPlayers(m.Players)
	case EatFood:
		payload = m.Index
	case FoodUpdate:
		payload = m
	case PlayerDisconnected:
		payload = m.ID
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownType, msg)
	}
	pb, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s: %w", msg.Type(), err)
	}
	return json.Marshal(Envelope{T: msg.Type(), P: pb})
}

// MustEncode is Encode for messages built from trusted server state.
func MustEncode(msg Message) []byte {
	b, err := Encode(msg)
	if err != nil {
		panic(err)
	}
	return b
}

// Decode parses one frame into its Message variant.
func Decode(b []byte) (Message, error) {
	if len(b) == 0 {
		return nil, ErrEmptyFrame
	}
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("%w: envelope: %v", ErrMalformedPayload, err)
	}
	if len(env.P) == 0 || bytes.Equal(env.P, jsonNull) {
		return nil, fmt.Errorf("%w: empty payload for %q", ErrMalformedPayload, env.T)
	}

	switch env.T {
	case MsgJoin:
		var m Join
		if err := unmarshal(env, &m); err != nil {
			return nil, err
		}
		return m, nil
	case MsgInit:
		var m Init
		if err := unmarshal(env, &m); err != nil {
			return nil, err
		}
		m.Players = nonNilPlayers(m.Players)
		m.Foods = nonNilFoods(m.Foods)
		return m, nil
	case MsgUpdate:
		return decodeUpdate(env)
	case MsgUpdatePlayers:
		var players map[string]Player
		if err := unmarshal(env, &players); err != nil {
			return nil, err
		}
		return UpdatePlayers{Players: nonNilPlayers(players)}, nil
	case MsgEatFood:
		var idx float64
		if err := unmarshal(env, &idx); err != nil {
			return nil, err
		}
		if idx != math.Trunc(idx) || math.Abs(idx) > math.MaxInt32 {
			return nil, fmt.Errorf("%w: eatFood index %v", ErrMalformedPayload, idx)
		}
		return EatFood{Index: int(idx)}, nil
	case MsgFoodUpdate:
		var m FoodUpdate
		if err := unmarshal(env, &m); err != nil {
			return nil, err
		}
		return m, nil
	case MsgPlayerDisconnected:
		var id string
		if err := unmarshal(env, &id); err != nil {
			return nil, err
		}
		return PlayerDisconnected{ID: id}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.T)
	}
}

// rawUpdate detects missing fields, which plain Update cannot.
type rawUpdate struct {
	X      *float64 `json:"x"`
	Y      *float64 `json:"y"`
	Radius *float64 `json:"radius"`
	Score  *float64 `json:"score"`
}

func decodeUpdate(env Envelope) (Message, error) {
	var raw rawUpdate
	if err := unmarshal(env, &raw); err != nil {
		return nil, err
	}
	if raw.X == nil || raw.Y == nil || raw.Radius == nil || raw.Score == nil {
		return nil, fmt.Errorf("%w: update missing field", ErrMalformedPayload)
	}
	if *raw.Score < 0 || *raw.Score > math.MaxInt32 {
		return nil, fmt.Errorf("%w: update score %v", ErrMalformedPayload, *raw.Score)
	}
	return Update{
		X:      *raw.X,
		Y:      *raw.Y,
		Radius: *raw.Radius,
		Score:  int(*raw.Score),
	}, nil
}

func unmarshal(env Envelope, out any) error {
	if err := json.Unmarshal(env.P, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedPayload, env.T, err)
	}
	return nil
}

func nonNilPlayers(m map[string]Player) map[string]Player {
	if m == nil {
		return map[string]Player{}
	}
	return m
}

func nonNilFoods(f []Food) []Food {
	if f == nil {
		return []Food{}
	}
	return f
}
