package mock

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"github.com/watchgrid/backend/internal/ws"
)

// A tiny 1x1 grey JPEG, enough for the alert attachment path.
const sampleFrame = "data:image/jpeg;base64,/9j/4AAQSkZJRgABAQEAYABgAAD/2wBDAAgGBgcGBQgHBwcJCQgKDBQNDAsLDBkSEw8UHRofHh0aHBwgJC4nICIsIxwcKDcpLDAxNDQ0Hyc5PTgyPC4zNDL/wAALCAABAAEBAREA/8QAFAABAAAAAAAAAAAAAAAAAAAACf/EABQQAQAAAAAAAAAAAAAAAAAAAAD/2gAIAQEAAD8AKp//2Q=="

// profile scripts one synthetic edge device.
type profile struct {
	userID      string
	userName    string
	objectClass string
	interval    time.Duration
	frameEvery  int // send a video frame every n detections, 0 = never
}

// Generator runs synthetic clients against a live server so the
// dashboard can be demoed without real edge devices. Each profile is a
// real WebSocket client: it joins a session and streams detections
// through the full relay path.
type Generator struct {
	url      string
	profiles []profile
}

// NewGenerator scripts the default cast: a porch camera whose person
// stream confirms, a garden camera too slow to ever confirm within the
// window, and a garage camera that only sees cats.
func NewGenerator(url string) *Generator {
	return &Generator{
		url: url,
		profiles: []profile{
			{
				userID: "mock-porch-cam", userName: "porch-cam",
				objectClass: "person", interval: 800 * time.Millisecond,
				frameEvery: 5,
			},
			{
				userID: "mock-garden-cam", userName: "garden-cam",
				objectClass: "person", interval: 3 * time.Second,
			},
			{
				userID: "mock-garage-cam", userName: "garage-cam",
				objectClass: "cat", interval: 1500 * time.Millisecond,
				frameEvery: 10,
			},
		},
	}
}

func (g *Generator) Start(ctx context.Context) {
	for _, p := range g.profiles {
		go g.runClient(ctx, p)
	}
}

func (g *Generator) runClient(ctx context.Context, p profile) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := g.streamOnce(ctx, p); err != nil {
			log.Printf("mock client %s: %v", p.userName, err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func (g *Generator) streamOnce(ctx context.Context, p profile) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, g.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Drain server traffic so our own broadcasts don't back up.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := writeEvent(conn, ws.EvtJoinSession, ws.JoinSessionData{
		UserID:   p.userID,
		UserName: p.userName,
	}); err != nil {
		return err
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	sent := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := writeEvent(conn, ws.EvtDetection, ws.DetectionData{
				ObjectClass: p.objectClass,
			}); err != nil {
				return err
			}
			sent++
			if p.frameEvery > 0 && sent%p.frameEvery == 0 {
				if err := writeEvent(conn, ws.EvtVideoFrame, ws.VideoFrameData{
					FrameData: sampleFrame,
				}); err != nil {
					return err
				}
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, event ws.EventType, data any) error {
	msg, err := json.Marshal(ws.Message{Event: event, Data: data})
	if err != nil {
		return err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, msg)
}
