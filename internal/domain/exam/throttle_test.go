package exam

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestThrottleLeadingEdge(t *testing.T) {
	now := time.Now()
	th := newSaveThrottle(time.Second)
	th.now = func() time.Time { return now }

	session := uuid.New()

	if !th.allow(session) {
		t.Fatal("first save must go through immediately")
	}

	now = now.Add(300 * time.Millisecond)
	if th.allow(session) {
		t.Fatal("save inside the window must be dropped")
	}
	now = now.Add(600 * time.Millisecond)
	if th.allow(session) {
		t.Fatal("second save inside the same window must be dropped")
	}

	// window opened at t0, not at the last dropped attempt
	now = now.Add(200 * time.Millisecond)
	if !th.allow(session) {
		t.Fatal("save after the window must go through")
	}
}

func TestThrottlePerSession(t *testing.T) {
	now := time.Now()
	th := newSaveThrottle(time.Second)
	th.now = func() time.Time { return now }

	a, b := uuid.New(), uuid.New()

	if !th.allow(a) {
		t.Fatal("first save for session a must go through")
	}
	if !th.allow(b) {
		t.Fatal("session b has its own window")
	}
	if th.allow(a) || th.allow(b) {
		t.Fatal("both sessions are now inside their windows")
	}
}

func TestThrottleForget(t *testing.T) {
	now := time.Now()
	th := newSaveThrottle(time.Second)
	th.now = func() time.Time { return now }

	session := uuid.New()
	th.allow(session)
	th.forget(session)

	if !th.allow(session) {
		t.Fatal("forgotten session must start a fresh window")
	}
}
