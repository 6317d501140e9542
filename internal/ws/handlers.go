package ws

import (
	"encoding/json"
	"log"
	"time"

	"github.com/watchgrid/backend/internal/detect"
	"github.com/watchgrid/backend/internal/metrics"
	"github.com/watchgrid/backend/internal/session"
)

// Notifier is the outbound alert channel. Delivery failures are logged
// and swallowed; the confirmation has already happened by the time the
// notifier is invoked.
type Notifier interface {
	SendPersonAlert(userName string, initial, final time.Time, frame string) error
	SetEnabled(enabled bool)
	Enabled() bool
}

// Relay coordinates the registry, confirmation engine, frame cache and
// hub for one server process. Each connection's events are handled to
// completion, in order, on that connection's read goroutine; all shared
// state lives in the per-store mutexes.
type Relay struct {
	hub      *Hub
	registry *session.Registry
	engine   *detect.Engine
	frames   *detect.FrameCache
	detlog   *detect.Log
	notifier Notifier
	metrics  *metrics.Metrics
}

func NewRelay(hub *Hub, registry *session.Registry, engine *detect.Engine, frames *detect.FrameCache, detlog *detect.Log, notifier Notifier, m *metrics.Metrics) *Relay {
	return &Relay{
		hub:      hub,
		registry: registry,
		engine:   engine,
		frames:   frames,
		detlog:   detlog,
		notifier: notifier,
		metrics:  m,
	}
}

// dispatch routes one decoded inbound message to its handler.
func (r *Relay) dispatch(c *client, raw []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		r.hub.sendTo(c, errorMessage("malformed message"))
		return
	}

	switch msg.Event {
	case EvtJoinSession:
		r.handleJoinSession(c, msg.Data)
	case EvtDetection:
		r.handleDetection(c, msg.Data)
	case EvtVideoFrame:
		r.handleVideoFrame(c, msg.Data)
	case EvtStopVideoStream:
		r.handleStopVideoStream(c)
	case EvtRequestUsersList:
		r.handleRequestUsersList(c)
	case EvtToggleDiscord:
		r.handleToggleDiscord(c, msg.Data)
	case EvtPing:
		r.hub.sendTo(c, Message{Event: EvtPong, Data: PongPayload{Timestamp: nowStamp()}})
	default:
		// Unrecognized event names are dropped without a reply.
		log.Printf("ignoring unknown event %q", msg.Event)
	}
}

func (r *Relay) handleJoinSession(c *client, data json.RawMessage) {
	var join JoinSessionData
	if err := json.Unmarshal(data, &join); err != nil || join.UserName == "" {
		r.hub.sendTo(c, errorMessage("invalid join-session payload"))
		return
	}

	s := r.registry.Join(join.UserID, join.UserName)
	c.setIdentity(s.ID, s.Name)
	if r.metrics != nil {
		r.metrics.SessionsJoined.Add(1)
	}

	log.Printf("user joined: %s (%s)", s.Name, s.ID)

	r.hub.broadcastOthers(Message{
		Event: EvtUserJoined,
		Data:  PresencePayload{UserID: s.ID, UserName: s.Name, Timestamp: nowStamp()},
	}, c)

	r.hub.sendTo(c, Message{
		Event: EvtSessionJoined,
		Data: SessionJoinedPayload{
			UserID:         s.ID,
			UserName:       s.Name,
			ConnectedUsers: r.registry.Count(),
		},
	})

	r.sendUsersList(c)
}

func (r *Relay) handleDetection(c *client, data json.RawMessage) {
	userID, userName, ok := c.identity()
	if !ok {
		r.hub.sendTo(c, errorMessage("User not in session"))
		return
	}

	var det DetectionData
	if err := json.Unmarshal(data, &det); err != nil {
		r.hub.sendTo(c, errorMessage("invalid detection payload"))
		return
	}

	if r.metrics != nil {
		r.metrics.DetectionsSeen.Add(1)
	}

	conf, fired := r.engine.Observe(userID, userName, det.ObjectClass, time.Now())
	if !fired {
		return
	}

	// The engine already dropped the window; from here on nothing can
	// re-fire this run, however slow the webhook is.
	log.Printf("person confirmed: %s (%s), %s to %s",
		userName, userID,
		conf.TimestampInitial.Format(time.TimeOnly),
		conf.TimestampFinal.Format(time.TimeOnly))

	if r.metrics != nil {
		r.metrics.Confirmations.Add(1)
	}
	if r.detlog != nil {
		r.detlog.Add(*conf)
	}

	frame, _ := r.frames.Get(userID)
	go r.dispatchAlert(conf, frame)

	// The detecting client sees its own confirmation too.
	r.hub.broadcastAll(Message{Event: EvtNewDetection, Data: conf})
}

func (r *Relay) dispatchAlert(conf *detect.Confirmation, frame string) {
	if r.notifier == nil {
		return
	}
	err := r.notifier.SendPersonAlert(conf.UserName, conf.TimestampInitial, conf.TimestampFinal, frame)
	if err != nil {
		if r.metrics != nil {
			r.metrics.AlertFailures.Add(1)
		}
		log.Printf("alert dispatch failed: %v", err)
		return
	}
	if r.metrics != nil {
		r.metrics.AlertsSent.Add(1)
	}
}

func (r *Relay) handleVideoFrame(c *client, data json.RawMessage) {
	userID, userName, ok := c.identity()
	if !ok {
		r.hub.sendTo(c, errorMessage("User not in session"))
		return
	}

	var frame VideoFrameData
	if err := json.Unmarshal(data, &frame); err != nil {
		r.hub.sendTo(c, errorMessage("invalid video-frame payload"))
		return
	}

	r.frames.Put(userID, frame.FrameData)
	if r.metrics != nil {
		r.metrics.FramesRelayed.Add(1)
	}

	r.hub.broadcastOthers(Message{
		Event: EvtVideoFrame,
		Data: VideoFramePayload{
			UserID:    userID,
			UserName:  userName,
			FrameData: frame.FrameData,
			Timestamp: nowStamp(),
		},
	}, c)
}

func (r *Relay) handleStopVideoStream(c *client) {
	userID, userName, ok := c.identity()
	if !ok {
		r.hub.sendTo(c, errorMessage("User not in session"))
		return
	}

	log.Printf("video stream stopped: %s", userName)

	r.hub.broadcastOthers(Message{
		Event: EvtStopVideoStream,
		Data:  StopStreamPayload{UserID: userID, UserName: userName},
	}, c)
}

func (r *Relay) handleRequestUsersList(c *client) {
	r.sendUsersList(c)
}

func (r *Relay) handleToggleDiscord(c *client, data json.RawMessage) {
	var toggle ToggleDiscordData
	if err := json.Unmarshal(data, &toggle); err != nil {
		r.hub.sendTo(c, errorMessage("invalid toggle payload"))
		return
	}

	if r.notifier != nil {
		r.notifier.SetEnabled(toggle.Enabled)
	}

	state := "disabled"
	if toggle.Enabled {
		state = "enabled"
	}
	_, userName, _ := c.identity()
	log.Printf("discord notifications %s by %s", state, userName)

	r.hub.sendTo(c, Message{
		Event: EvtDiscordToggled,
		Data: DiscordToggledPayload{
			Enabled: toggle.Enabled,
			Message: "Discord notifications " + state,
		},
	})
}

// handleDisconnect runs when a connection's read loop ends, whatever
// the reason. Cleanup must be idempotent: a duplicate disconnect for an
// identity that already left is a no-op.
func (r *Relay) handleDisconnect(c *client) {
	r.hub.remove(c)

	userID, userName, ok := c.identity()
	if !ok {
		return
	}

	if _, removed := r.registry.Leave(userID); !removed {
		return
	}

	r.engine.Forget(userID)
	r.frames.Evict(userID)

	log.Printf("user disconnected: %s (%s)", userName, userID)

	r.hub.broadcastOthers(Message{
		Event: EvtUserLeft,
		Data:  PresencePayload{UserID: userID, UserName: userName, Timestamp: nowStamp()},
	}, c)
}

func (r *Relay) sendUsersList(c *client) {
	r.hub.sendTo(c, Message{Event: EvtUsersList, Data: r.registry.List()})
}

func errorMessage(text string) Message {
	return Message{Event: EvtError, Data: ErrorPayload{Message: text}}
}

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
