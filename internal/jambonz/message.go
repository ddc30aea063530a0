// Package jambonz speaks the jambonz WebSocket application protocol: it
// receives call events from the call-control engine and sends verbs and
// live commands back for the call.
package jambonz

import "encoding/json"

// Subprotocol is the WebSocket subprotocol negotiated by jambonz.
const Subprotocol = "ws.jambonz.org"

// Inbound message types.
const (
	TypeSessionNew       = "session:new"
	TypeSessionRedirect  = "session:redirect"
	TypeSessionReconnect = "session:reconnect"
	TypeVerbHook         = "verb:hook"
	TypeVerbStatus       = "verb:status"
	TypeCallStatus       = "call:status"
	TypeError            = "jambonz:error"
)

// Outbound message types.
const (
	TypeAck     = "ack"
	TypeCommand = "command"
)

// Commands used with TypeCommand.
const (
	CommandRedirect = "redirect"
	CommandDub      = "dub"
)

// Message is an inbound frame from jambonz.
type Message struct {
	Type    string          `json:"type"`
	MsgID   string          `json:"msgid,omitempty"`
	CallSid string          `json:"call_sid,omitempty"`
	Hook    string          `json:"hook,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Decode unmarshals the message payload into v.
func (m Message) Decode(v any) error {
	if len(m.Data) == 0 {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// ack acknowledges a session:new or verb:hook, optionally with a new
// set of verbs to execute.
type ack struct {
	Type  string `json:"type"`
	MsgID string `json:"msgid"`
	Data  []any  `json:"data,omitempty"`
}

// command is sent asynchronously, outside of any hook.
type command struct {
	Type         string `json:"type"`
	Command      string `json:"command"`
	QueueCommand bool   `json:"queueCommand"`
	CallSid      string `json:"callSid,omitempty"`
	Data         any    `json:"data,omitempty"`
}

// CallInfo is the payload of session:new and call:status.
type CallInfo struct {
	CallSid       string `json:"call_sid"`
	Direction     string `json:"direction"`
	From          string `json:"from"`
	To            string `json:"to"`
	CallerName    string `json:"caller_name,omitempty"`
	CallStatus    string `json:"call_status,omitempty"`
	SipStatus     int    `json:"sip_status,omitempty"`
	ParentCallSid string `json:"parent_call_sid,omitempty"`
	AccountSid    string `json:"account_sid,omitempty"`
}

// Directions reported in CallInfo.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// TranscriptionPayload is delivered to a transcriptionHook.
type TranscriptionPayload struct {
	Speech Speech `json:"speech"`
}

// Speech is a recognition result.
type Speech struct {
	Alternatives []Alternative `json:"alternatives"`
	IsFinal      bool          `json:"is_final"`
	LanguageCode string        `json:"language_code,omitempty"`
	ChannelTag   int           `json:"channel_tag,omitempty"`
}

// Alternative is one candidate transcript.
type Alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Transcript returns the top alternative, or "" when there is none.
func (s Speech) Transcript() string {
	if len(s.Alternatives) == 0 {
		return ""
	}
	return s.Alternatives[0].Transcript
}

// Confidence returns the top alternative's confidence.
func (s Speech) Confidence() float64 {
	if len(s.Alternatives) == 0 {
		return 0
	}
	return s.Alternatives[0].Confidence
}

// GatherPayload is delivered to a gather actionHook.
type GatherPayload struct {
	Digits string `json:"digits,omitempty"`
	Reason string `json:"reason,omitempty"` // dtmfDetected, timeout, ...
}

// ErrorPayload is the payload of jambonz:error.
type ErrorPayload struct {
	Error string `json:"error"`
}
