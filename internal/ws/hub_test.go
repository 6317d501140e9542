package ws

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/watchgrid/backend/internal/metrics"
)

// newTestClient registers a client on the hub without a real connection
// and without starting writePump, so tests can inspect the send queue
// directly.
func newTestClient(h *Hub) *client {
	c := &client{
		hub:  h,
		send: make(chan []byte, 64),
	}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.ConnectedClients.Add(1)
	}
	return c
}

// recvEvent pops the next queued message for c and returns its event
// type, or "" when the queue is empty.
func recvEvent(t *testing.T, c *client) EventType {
	t.Helper()
	select {
	case data := <-c.send:
		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("queued message is not valid JSON: %v", err)
		}
		return msg.Event
	default:
		return ""
	}
}

func TestBroadcastOthersExcludesOrigin(t *testing.T) {
	h := NewHub(nil)
	origin := newTestClient(h)
	peer1 := newTestClient(h)
	peer2 := newTestClient(h)

	h.broadcastOthers(Message{Event: EvtUserJoined}, origin)

	if got := recvEvent(t, origin); got != "" {
		t.Errorf("origin received %q, want nothing", got)
	}
	if got := recvEvent(t, peer1); got != EvtUserJoined {
		t.Errorf("peer1 received %q, want %q", got, EvtUserJoined)
	}
	if got := recvEvent(t, peer2); got != EvtUserJoined {
		t.Errorf("peer2 received %q, want %q", got, EvtUserJoined)
	}
}

func TestBroadcastAllIncludesOrigin(t *testing.T) {
	h := NewHub(nil)
	origin := newTestClient(h)
	peer := newTestClient(h)

	h.broadcastAll(Message{Event: EvtNewDetection})

	if got := recvEvent(t, origin); got != EvtNewDetection {
		t.Errorf("origin received %q, want %q", got, EvtNewDetection)
	}
	if got := recvEvent(t, peer); got != EvtNewDetection {
		t.Errorf("peer received %q, want %q", got, EvtNewDetection)
	}
}

func TestSendToOriginOnly(t *testing.T) {
	h := NewHub(nil)
	origin := newTestClient(h)
	peer := newTestClient(h)

	h.sendTo(origin, Message{Event: EvtUsersList})

	if got := recvEvent(t, origin); got != EvtUsersList {
		t.Errorf("origin received %q, want %q", got, EvtUsersList)
	}
	if got := recvEvent(t, peer); got != "" {
		t.Errorf("peer received %q, want nothing", got)
	}
}

func TestSlowClientDisconnected(t *testing.T) {
	m := metrics.New()
	h := NewHub(m)
	slow := &client{
		hub:  h,
		send: make(chan []byte), // unbuffered and never drained
	}
	h.mu.Lock()
	h.clients[slow] = true
	h.mu.Unlock()
	m.ConnectedClients.Add(1)

	h.broadcastAll(Message{Event: EvtVideoFrame})

	if got := h.ClientCount(); got != 0 {
		t.Errorf("slow client still registered, ClientCount = %d", got)
	}
	if got := m.MessagesDropped.Load(); got != 1 {
		t.Errorf("MessagesDropped = %d, want 1", got)
	}
	if got := m.ConnectedClients.Load(); got != 0 {
		t.Errorf("ConnectedClients = %d, want 0", got)
	}
}

func TestDeliverAfterRemoveIsNoOp(t *testing.T) {
	h := NewHub(nil)
	c := newTestClient(h)

	// A fan-out can snapshot its targets just before a disconnect
	// removes one of them; the late delivery must be dropped, not
	// sent on the closed channel.
	h.remove(c)
	h.deliver(c, []byte(`{"event":"test"}`))

	if got := h.ClientCount(); got != 0 {
		t.Errorf("ClientCount = %d, want 0", got)
	}
}

func TestBroadcastDuringRemoval(t *testing.T) {
	h := NewHub(nil)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		c := newTestClient(h)
		wg.Add(2)
		go func() {
			defer wg.Done()
			h.remove(c)
		}()
		go func() {
			defer wg.Done()
			h.broadcastAll(Message{Event: EvtVideoFrame})
		}()
	}
	wg.Wait()

	if got := h.ClientCount(); got != 0 {
		t.Errorf("ClientCount after churn = %d, want 0", got)
	}
}

func TestRemoveIdempotent(t *testing.T) {
	h := NewHub(nil)
	c := newTestClient(h)

	h.remove(c)
	h.remove(c) // second remove must not close the channel twice

	if got := h.ClientCount(); got != 0 {
		t.Errorf("ClientCount = %d, want 0", got)
	}
}

func TestIdentitySlot(t *testing.T) {
	c := &client{}

	if _, _, ok := c.identity(); ok {
		t.Error("fresh client reports an identity")
	}

	c.setIdentity("user-1", "alice")
	id, name, ok := c.identity()
	if !ok || id != "user-1" || name != "alice" {
		t.Errorf("identity() = %q,%q,%v", id, name, ok)
	}
}
