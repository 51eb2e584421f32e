package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ServerMessage is the structured payload published into a group.
//
// TableNumber keeps the difference between an absent list (nil, encoded as
// null) and an empty list ([]), which targets nobody.
type ServerMessage struct {
	GroupID     string          `json:"group_id"`
	TableNumber []uint16        `json:"table_number"`
	MessageType string          `json:"message_type"`
	Payload     json.RawMessage `json:"payload"`
}

// Targeted reports whether the message carries an explicit table list.
func (m ServerMessage) Targeted() bool {
	return m.TableNumber != nil
}

// Validate checks the fields an ingest caller must provide.
func (m ServerMessage) Validate() error {
	if strings.TrimSpace(m.GroupID) == "" {
		return ErrMissingGroupID
	}
	return nil
}

// Encode serializes the message to the text form carried by fan-out channels.
func (m ServerMessage) Encode() (string, error) {
	if m.Payload == nil {
		m.Payload = json.RawMessage("null")
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type EnvelopeKind int

const (
	EnvelopeRaw EnvelopeKind = iota
	EnvelopeStructured
)

func (k EnvelopeKind) String() string {
	if k == EnvelopeStructured {
		return "structured"
	}
	return "raw"
}

// Envelope is a fan-out payload after parsing: either a ServerMessage or a
// plain string that is delivered without filtering.
type Envelope struct {
	Kind    EnvelopeKind
	Message ServerMessage
	Raw     string
}

type wireMessage struct {
	GroupID     *string         `json:"group_id"`
	TableNumber []uint16        `json:"table_number"`
	MessageType *string         `json:"message_type"`
	Payload     json.RawMessage `json:"payload"`
}

// ParseEnvelope classifies a fan-out payload. A payload is structured only
// when it is a JSON object with group_id, message_type and payload present
// and a table_number that is absent, null or a list of uint16 values.
func ParseEnvelope(raw string) Envelope {
	env := Envelope{Kind: EnvelopeRaw, Raw: raw}

	var wire wireMessage
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return env
	}
	if wire.GroupID == nil || wire.MessageType == nil || len(wire.Payload) == 0 {
		return env
	}

	env.Kind = EnvelopeStructured
	env.Message = ServerMessage{
		GroupID:     *wire.GroupID,
		TableNumber: wire.TableNumber,
		MessageType: *wire.MessageType,
		Payload:     wire.Payload,
	}
	return env
}

// Deliverable applies policy to structured envelopes; raw envelopes always pass.
func (e Envelope) Deliverable(policy FilterPolicy, table uint16) bool {
	if e.Kind != EnvelopeStructured {
		return true
	}
	return policy.Allows(e.Message, table)
}

// DecodeServerMessage parses an ingest body. group_id and message_type are
// required; an absent payload is published as null.
func DecodeServerMessage(data []byte) (ServerMessage, error) {
	var wire wireMessage
	if err := json.Unmarshal(data, &wire); err != nil {
		return ServerMessage{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if wire.GroupID == nil || strings.TrimSpace(*wire.GroupID) == "" {
		return ServerMessage{}, ErrMissingGroupID
	}
	if wire.MessageType == nil {
		return ServerMessage{}, ErrMissingMessageType
	}
	return ServerMessage{
		GroupID:     *wire.GroupID,
		TableNumber: wire.TableNumber,
		MessageType: *wire.MessageType,
		Payload:     wire.Payload,
	}, nil
}
