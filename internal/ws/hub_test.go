package ws

import (
	"encoding/json"
	"testing"
)

func receive(t *testing.T, c *Client) (Event, bool) {
	t.Helper()
	select {
	case raw := <-c.Send:
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			t.Fatal(err)
		}
		return ev, true
	default:
		return Event{}, false
	}
}

func TestBroadcastRouting(t *testing.T) {
	h := NewHub()
	admin := NewClient(1, "admin")
	staffA := NewClient(2, "staff")
	staffB := NewClient(2, "staff")
	h.Register(admin)
	h.Register(staffA)
	h.Register(staffB)

	h.BroadcastToUser(2, Event{Type: EventUserChanged})
	if _, ok := receive(t, admin); ok {
		t.Error("admin got a message addressed to user 2")
	}
	for _, c := range []*Client{staffA, staffB} {
		if ev, ok := receive(t, c); !ok || ev.Type != EventUserChanged {
			t.Errorf("tab of user 2 got %+v, %v", ev, ok)
		}
	}

	h.BroadcastToRoles(Event{Type: EventLeadsRefetch}, "admin")
	if _, ok := receive(t, admin); !ok {
		t.Error("admin missed role broadcast")
	}
	if _, ok := receive(t, staffA); ok {
		t.Error("staff got admin-only broadcast")
	}

	h.BroadcastAll(Event{Type: EventLeadsRefetch})
	for _, c := range []*Client{admin, staffA, staffB} {
		if _, ok := receive(t, c); !ok {
			t.Error("BroadcastAll missed a tab")
		}
	}
}

func TestCloseUnregisters(t *testing.T) {
	h := NewHub()
	c := NewClient(5, "staff")
	h.Register(c)
	c.Close()
	c.Close()
	if h.ClientCount() != 0 {
		t.Errorf("ClientCount = %d", h.ClientCount())
	}
	// Broadcasting after close must not panic on the closed channel.
	h.BroadcastAll(Event{Type: EventLeadsRefetch})
}

func TestFullBufferDoesNotBlock(t *testing.T) {
	h := NewHub()
	c := NewClient(1, "admin")
	h.Register(c)
	for i := 0; i < cap(c.Send)+10; i++ {
		h.BroadcastToUser(1, Event{Type: EventLeadsRefetch})
	}
	if len(c.Send) != cap(c.Send) {
		t.Errorf("buffer len = %d", len(c.Send))
	}
}

func TestDisconnectUser(t *testing.T) {
	h := NewHub()
	tabA := NewClient(3, "staff")
	tabB := NewClient(3, "staff")
	other := NewClient(4, "staff")
	for _, c := range []*Client{tabA, tabB, other} {
		h.Register(c)
	}

	if n := h.DisconnectUser(3); n != 2 {
		t.Errorf("disconnected %d tabs, want 2", n)
	}
	for _, c := range []*Client{tabA, tabB} {
		if _, ok := <-c.Send; ok {
			t.Error("Send of a disconnected tab is still open")
		}
	}
	if h.ClientCount() != 1 {
		t.Errorf("ClientCount = %d, want 1", h.ClientCount())
	}
	h.BroadcastAll(Event{Type: EventLeadsRefetch})
	if _, ok := receive(t, other); !ok {
		t.Error("other user's tab was dropped")
	}
	if n := h.DisconnectUser(3); n != 0 {
		t.Errorf("second disconnect closed %d tabs", n)
	}
}
