package realtime

import (
	"encoding/json"
	"sync"
	"testing"
)

type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := append([]byte(nil), data...)
	f.frames = append(f.frames, cp)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) events(t *testing.T) []string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, frame := range f.frames {
		var e Event
		if err := json.Unmarshal(frame, &e); err != nil {
			t.Fatalf("bad frame %q: %v", frame, err)
		}
		out = append(out, e.Event)
	}
	return out
}

func TestNotifyReachesEveryConnection(t *testing.T) {
	h := NewHub()
	phone := &fakeConn{}
	laptop := &fakeConn{}
	h.Register("conn-phone", "user-1", phone)
	h.Register("conn-laptop", "user-1", laptop)

	h.Notify("user-1", EventNewQuotation, map[string]string{"id": "q1"})

	for name, c := range map[string]*fakeConn{"phone": phone, "laptop": laptop} {
		got := c.events(t)
		if len(got) != 1 || got[0] != EventNewQuotation {
			t.Errorf("%s events = %v, want [%s]", name, got, EventNewQuotation)
		}
	}
}

func TestNotifyAbsentUserIsDropped(t *testing.T) {
	h := NewHub()
	c := &fakeConn{}
	h.Register("conn-1", "user-1", c)

	h.Notify("user-2", EventNewQuotation, nil)

	if got := c.events(t); len(got) != 0 {
		t.Errorf("unrelated connection got events %v, want none", got)
	}
}

func TestDeregisterStopsDelivery(t *testing.T) {
	h := NewHub()
	c := &fakeConn{}
	h.Register("conn-1", "user-1", c)

	if got := h.Online("user-1"); got != 1 {
		t.Fatalf("online = %d, want 1", got)
	}
	h.Deregister("conn-1")
	if got := h.Online("user-1"); got != 0 {
		t.Errorf("online after deregister = %d, want 0", got)
	}

	h.Notify("user-1", EventNewQuotation, nil)
	if got := c.events(t); len(got) != 0 {
		t.Errorf("deregistered connection got events %v, want none", got)
	}
}

func TestBroadcastRoom(t *testing.T) {
	h := NewHub()
	a := &fakeConn{}
	b := &fakeConn{}
	outside := &fakeConn{}
	h.Register("conn-a", "user-a", a)
	h.Register("conn-b", "user-b", b)
	h.Register("conn-c", "user-c", outside)

	h.JoinRoom("conn-a", "conv-1")
	h.JoinRoom("conn-b", "conv-1")

	h.BroadcastRoom("conv-1", EventNewMessage, map[string]string{"body": "hello"})

	for name, c := range map[string]*fakeConn{"a": a, "b": b} {
		got := c.events(t)
		if len(got) != 1 || got[0] != EventNewMessage {
			t.Errorf("%s events = %v, want [%s]", name, got, EventNewMessage)
		}
	}
	if got := outside.events(t); len(got) != 0 {
		t.Errorf("outside connection got events %v, want none", got)
	}
}

func TestDeregisterLeavesRooms(t *testing.T) {
	h := NewHub()
	a := &fakeConn{}
	b := &fakeConn{}
	h.Register("conn-a", "user-a", a)
	h.Register("conn-b", "user-b", b)
	h.JoinRoom("conn-a", "conv-1")
	h.JoinRoom("conn-b", "conv-1")

	h.Deregister("conn-a")
	h.BroadcastRoom("conv-1", EventNewMessage, nil)

	if got := a.events(t); len(got) != 0 {
		t.Errorf("deregistered connection got events %v, want none", got)
	}
	if got := b.events(t); len(got) != 1 {
		t.Errorf("remaining connection events = %v, want one", got)
	}
}

func TestJoinRoomUnknownConnection(t *testing.T) {
	h := NewHub()
	// must not panic or create ghost members
	h.JoinRoom("missing", "conv-1")
	h.BroadcastRoom("conv-1", EventNewMessage, nil)
}
