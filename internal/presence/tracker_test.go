package presence

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/vovakirdan/chatpad-sync/internal/core"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestSetOnlineThenOfflineEndsOffline(t *testing.T) {
	tr := NewTracker()
	tr.SetOnline("u", true, t0)
	tr.SetOnline("u", false, t0.Add(time.Minute))

	r, ok := tr.Get("u")
	if !ok {
		t.Fatalf("expected record for u")
	}
	if r.Online {
		t.Fatalf("expected u offline, got %+v", r)
	}
}

func TestUnknownUserIsOffline(t *testing.T) {
	tr := NewTracker()
	r, ok := tr.Get("ghost")
	if ok || r.Online || r.UserID != "ghost" {
		t.Fatalf("unexpected record %+v ok=%v", r, ok)
	}
}

func TestTypingIsIndependentOfOnline(t *testing.T) {
	tr := NewTracker()
	tr.SetOnline("u", true, t0)

	r, changed := tr.Apply(core.PresenceEvent{UserID: "u", Online: true, Typing: true}, t0)
	if !changed || !r.Typing || !r.Online {
		t.Fatalf("expected typing online user, got %+v changed=%v", r, changed)
	}

	r, _ = tr.Apply(core.PresenceEvent{UserID: "u", Online: false, Typing: true}, t0)
	if r.Online || !r.Typing {
		t.Fatalf("typing must not follow online, got %+v", r)
	}

	_, changed = tr.Apply(core.PresenceEvent{UserID: "u", Online: false, Typing: true}, t0.Add(time.Second))
	if changed {
		t.Fatalf("identical event should not report a change")
	}
}

func TestPushEventBringsUserOnline(t *testing.T) {
	tr := NewTracker()
	r, changed := tr.Apply(core.PresenceEvent{UserID: "u", Online: true}, t0)
	if !changed || !r.Online || !r.LastHeartbeat.Equal(t0) {
		t.Fatalf("unexpected record %+v", r)
	}
}

func TestScopeFiltersForeignUsers(t *testing.T) {
	tr := NewTracker()
	tr.Scope([]string{"a", "b"})

	if _, applied := tr.Apply(core.PresenceEvent{UserID: "x", Online: true}, t0); applied {
		t.Fatalf("event for non-member must be ignored")
	}
	if _, ok := tr.Get("x"); ok {
		t.Fatalf("non-member must not get a record")
	}
	if _, applied := tr.Apply(core.PresenceEvent{UserID: "a", Online: true}, t0); !applied {
		t.Fatalf("event for member must apply")
	}

	tr.Scope(nil)
	if _, applied := tr.Apply(core.PresenceEvent{UserID: "x", Online: true}, t0); !applied {
		t.Fatalf("unscoped tracker must accept any user")
	}
}

func TestScopePrunesExistingRecords(t *testing.T) {
	tr := NewTracker()
	tr.Apply(core.PresenceEvent{UserID: "a", Online: true}, t0)
	tr.Apply(core.PresenceEvent{UserID: "x", Online: true}, t0)

	tr.Scope([]string{"a", "b"})
	if _, ok := tr.Get("x"); ok {
		t.Fatalf("record outside scope should be dropped")
	}
	if r, ok := tr.Get("a"); !ok || !r.Online {
		t.Fatalf("record inside scope should survive, got %+v ok=%v", r, ok)
	}
}

func TestExpireMarksStaleUsersOffline(t *testing.T) {
	tr := NewTracker()
	tr.Apply(core.PresenceEvent{UserID: "fresh", Online: true}, t0.Add(2*time.Minute))
	tr.Apply(core.PresenceEvent{UserID: "stale", Online: true, Typing: true}, t0)
	tr.SetOnline("gone", false, t0)

	expired := tr.Expire(t0.Add(3*time.Minute), 2*time.Minute)
	if diff := cmp.Diff([]string{"stale"}, expired); diff != "" {
		t.Fatalf("expired mismatch (-want +got):\n%s", diff)
	}
	if r, _ := tr.Get("stale"); r.Online || r.Typing {
		t.Fatalf("stale user should be offline and not typing: %+v", r)
	}
	if r, _ := tr.Get("fresh"); !r.Online {
		t.Fatalf("fresh user should stay online")
	}
}

func TestSnapshotAndReset(t *testing.T) {
	tr := NewTracker()
	tr.SetOnline("b", true, t0)
	tr.SetOnline("a", true, t0)

	snap := tr.Snapshot()
	if len(snap) != 2 || snap[0].UserID != "a" || snap[1].UserID != "b" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	tr.Scope([]string{"a"})
	tr.Reset()
	if len(tr.Snapshot()) != 0 || !tr.InScope("zzz") {
		t.Fatalf("Reset should clear records and scope")
	}
}
