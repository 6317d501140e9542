package ws

import (
	"encoding/json"
)

// EventType names a message on the wire. Inbound and outbound events
// share one envelope: {"event": ..., "data": ...}.
type EventType string

const (
	// Inbound (client to server).
	EvtJoinSession      EventType = "join-session"
	EvtDetection        EventType = "detection"
	EvtVideoFrame       EventType = "video-frame"
	EvtStopVideoStream  EventType = "stop-video-stream"
	EvtRequestUsersList EventType = "request-users-list"
	EvtToggleDiscord    EventType = "toggle-discord-notifications"
	EvtPing             EventType = "ping"

	// Outbound (server to client). EvtVideoFrame and EvtStopVideoStream
	// are relayed back out under the same names.
	EvtSessionJoined  EventType = "session-joined"
	EvtUserJoined     EventType = "user-joined"
	EvtUserLeft       EventType = "user-left"
	EvtUsersList      EventType = "users-list"
	EvtNewDetection   EventType = "new-detection"
	EvtDiscordToggled EventType = "discord-notifications-toggled"
	EvtError          EventType = "error"
	EvtPong           EventType = "pong"
)

// Message is the outbound envelope.
type Message struct {
	Event EventType `json:"event"`
	Data  any       `json:"data,omitempty"`
}

// inboundMessage defers payload decoding until the event is dispatched.
type inboundMessage struct {
	Event EventType       `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type JoinSessionData struct {
	UserID   string `json:"userId,omitempty"`
	UserName string `json:"userName"`
}

type SessionJoinedPayload struct {
	UserID         string `json:"userId"`
	UserName       string `json:"userName"`
	ConnectedUsers int    `json:"connectedUsers"`
}

type PresencePayload struct {
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	Timestamp string `json:"timestamp"`
}

type DetectionData struct {
	ObjectClass string `json:"objectClass"`
}

type VideoFrameData struct {
	FrameData string `json:"frameData"`
}

type VideoFramePayload struct {
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	FrameData string `json:"frameData"`
	Timestamp string `json:"timestamp"`
}

type StopStreamPayload struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

type ToggleDiscordData struct {
	Enabled bool `json:"enabled"`
}

type DiscordToggledPayload struct {
	Enabled bool   `json:"enabled"`
	Message string `json:"message"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type PongPayload struct {
	Timestamp string `json:"timestamp"`
}
