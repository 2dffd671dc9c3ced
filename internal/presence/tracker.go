// Package presence keeps the local view of who is online and typing.
//
// Going offline depends on an explicit signal sent from a best-effort
// teardown hook, which may never be delivered (crash, killed process, lost
// network). Records can therefore stay online indefinitely unless the
// optional expiry in Expire is used.
package presence

import (
	"sort"
	"time"

	"github.com/vovakirdan/chatpad-sync/internal/core"
)

// Tracker maps user ids to presence records. It is not safe for concurrent
// use; the session loop owns it.
type Tracker struct {
	records map[string]*core.PresenceRecord
	scope   map[string]struct{}
}

// NewTracker constructs an empty, unscoped tracker.
func NewTracker() *Tracker {
	return &Tracker{records: make(map[string]*core.PresenceRecord)}
}

// Scope limits Apply to the given user ids and forgets records outside them.
// A nil slice removes the limit.
func (t *Tracker) Scope(userIDs []string) {
	if userIDs == nil {
		t.scope = nil
		return
	}
	t.scope = make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		t.scope[id] = struct{}{}
	}
	for id := range t.records {
		if _, ok := t.scope[id]; !ok {
			delete(t.records, id)
		}
	}
}

// InScope reports whether events for userID are accepted.
func (t *Tracker) InScope(userID string) bool {
	if t.scope == nil {
		return true
	}
	_, ok := t.scope[userID]
	return ok
}

// SetOnline applies an explicit switch signal.
func (t *Tracker) SetOnline(userID string, online bool, at time.Time) core.PresenceRecord {
	r := t.record(userID)
	r.Online = online
	r.LastHeartbeat = at
	return *r
}

// Apply records a push-delivered presence event. Typing is taken from the
// event as is, independent of online. Events outside the scope are ignored
// and reported as not applied.
func (t *Tracker) Apply(ev core.PresenceEvent, at time.Time) (core.PresenceRecord, bool) {
	if ev.UserID == "" || !t.InScope(ev.UserID) {
		return core.PresenceRecord{}, false
	}
	r := t.record(ev.UserID)
	changed := r.Online != ev.Online || r.Typing != ev.Typing
	r.Online = ev.Online
	r.Typing = ev.Typing
	r.LastHeartbeat = at
	return *r, changed
}

// Get returns the record for userID. Unknown users are reported offline.
func (t *Tracker) Get(userID string) (core.PresenceRecord, bool) {
	r, ok := t.records[userID]
	if !ok {
		return core.PresenceRecord{UserID: userID}, false
	}
	return *r, true
}

// Snapshot returns all records ordered by user id.
func (t *Tracker) Snapshot() []core.PresenceRecord {
	out := make([]core.PresenceRecord, 0, len(t.records))
	for _, r := range t.records {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// Expire marks online users offline when nothing was heard from them for
// longer than maxAge and returns their ids. Typing is cleared as well.
func (t *Tracker) Expire(now time.Time, maxAge time.Duration) []string {
	var expired []string
	for id, r := range t.records {
		if !r.Online || now.Sub(r.LastHeartbeat) <= maxAge {
			continue
		}
		r.Online = false
		r.Typing = false
		expired = append(expired, id)
	}
	sort.Strings(expired)
	return expired
}

// Reset forgets every record and the scope.
func (t *Tracker) Reset() {
	t.records = make(map[string]*core.PresenceRecord)
	t.scope = nil
}

func (t *Tracker) record(userID string) *core.PresenceRecord {
	r, ok := t.records[userID]
	if !ok {
		r = &core.PresenceRecord{UserID: userID}
		t.records[userID] = r
	}
	return r
}
