// Package timeline merges a group's historical snapshot, its live full-state
// updates and locally sent messages into one ordered, deduplicated sequence.
//
// The live channel resends the whole message list on every event, so a live
// update replaces the visible sequence instead of being merged into it. If the
// channel ever switches to deltas, this package must track a last-seen id
// watermark instead of replacing.
//
// A Store is not safe for concurrent use; the session loop owns it.
package timeline

import "github.com/vovakirdan/chatpad-sync/internal/core"

// Store holds one Timeline per group.
type Store struct {
	timelines map[string]*Timeline
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{timelines: make(map[string]*Timeline)}
}

// Timeline is the state of a single group.
type Timeline struct {
	groupID  string
	snapshot []core.Message
	live     []core.Message
	hasLive  bool
	liveSeq  uint64
	local    []localEntry
}

// ackedOmissionLimit is how many live updates may omit an acknowledged entry
// before it is dropped. A frame the server built before it stored the write
// can be delivered after the ack.
const ackedOmissionLimit = 3

// localEntry is an optimistic message not yet seen in the authoritative source.
type localEntry struct {
	msg core.Message
	// ackSeq is the live sequence number at acknowledgment time.
	ackSeq uint64
}

func (s *Store) timeline(groupID string) *Timeline {
	t, ok := s.timelines[groupID]
	if !ok {
		t = &Timeline{groupID: groupID}
		s.timelines[groupID] = t
	}
	return t
}

// LoadSnapshot installs the historical view for groupID. It only affects
// rendering until the first live update arrives.
func (s *Store) LoadSnapshot(groupID string, msgs []core.Message) {
	t := s.timeline(groupID)
	t.snapshot = normalize(msgs)
	if !t.hasLive {
		t.reconcile(t.snapshot, false)
	}
}

// ApplyLiveUpdate replaces the visible sequence with msgs. The first call for
// a group is the cutover after which the snapshot is ignored.
func (s *Store) ApplyLiveUpdate(groupID string, msgs []core.Message) {
	t := s.timeline(groupID)
	t.live = normalize(msgs)
	t.hasLive = true
	t.liveSeq++
	t.reconcile(t.live, true)
}

// AppendOptimistic shows m at the tail before the backend acknowledges it.
// Appending an id that is already pending or failed marks it pending again;
// appending an id the source already carries is a no-op.
func (s *Store) AppendOptimistic(m core.Message) {
	t := s.timeline(m.GroupID)
	if containsID(t.source(), m.ID) {
		return
	}
	m.Status = core.StatusPending
	if i := t.localIndex(m.ID); i >= 0 {
		t.local[i] = localEntry{msg: m}
		return
	}
	t.local = append(t.local, localEntry{msg: m})
}

// MarkAcked records that the backend accepted an optimistic entry. The entry
// stays visible until a live update echoes it or several updates omit it.
func (s *Store) MarkAcked(groupID, messageID string) bool {
	return s.setStatus(groupID, messageID, core.StatusAcked)
}

// MarkFailed keeps the entry visible and flags it as failed.
func (s *Store) MarkFailed(groupID, messageID string) bool {
	return s.setStatus(groupID, messageID, core.StatusFailed)
}

// Rollback removes an optimistic entry entirely.
func (s *Store) Rollback(groupID, messageID string) bool {
	t, ok := s.timelines[groupID]
	if !ok {
		return false
	}
	i := t.localIndex(messageID)
	if i < 0 {
		return false
	}
	t.local = append(t.local[:i], t.local[i+1:]...)
	return true
}

// Local returns the optimistic entry for messageID, if it is still local.
func (s *Store) Local(groupID, messageID string) (core.Message, bool) {
	t, ok := s.timelines[groupID]
	if !ok {
		return core.Message{}, false
	}
	i := t.localIndex(messageID)
	if i < 0 {
		return core.Message{}, false
	}
	return t.local[i].msg, true
}

// HasLive reports whether groupID has passed the cutover.
func (s *Store) HasLive(groupID string) bool {
	t, ok := s.timelines[groupID]
	return ok && t.hasLive
}

// Current returns the rendered sequence for groupID.
func (s *Store) Current(groupID string) []core.Message {
	t, ok := s.timelines[groupID]
	if !ok {
		return []core.Message{}
	}
	src := t.source()
	out := make([]core.Message, 0, len(src)+len(t.local))
	out = append(out, src...)
	for _, e := range t.local {
		out = append(out, e.msg)
	}
	return out
}

// Len returns the number of rendered entries for groupID.
func (s *Store) Len(groupID string) int {
	t, ok := s.timelines[groupID]
	if !ok {
		return 0
	}
	return len(t.source()) + len(t.local)
}

// Drop discards everything known about groupID.
func (s *Store) Drop(groupID string) {
	delete(s.timelines, groupID)
}

func (s *Store) setStatus(groupID, messageID string, status core.MessageStatus) bool {
	t, ok := s.timelines[groupID]
	if !ok {
		return false
	}
	i := t.localIndex(messageID)
	if i < 0 {
		return false
	}
	t.local[i].msg.Status = status
	if status == core.StatusAcked {
		t.local[i].ackSeq = t.liveSeq
	}
	return true
}

func (t *Timeline) source() []core.Message {
	if t.hasLive {
		return t.live
	}
	return t.snapshot
}

func (t *Timeline) localIndex(id string) int {
	for i, e := range t.local {
		if e.msg.ID == id {
			return i
		}
	}
	return -1
}

// reconcile drops local entries the source now carries. For live sources it
// also drops acknowledged entries once ackedOmissionLimit updates received
// after the ack have omitted them.
func (t *Timeline) reconcile(src []core.Message, live bool) {
	if len(t.local) == 0 {
		return
	}
	ids := make(map[string]struct{}, len(src))
	for _, m := range src {
		ids[m.ID] = struct{}{}
	}

	kept := t.local[:0]
	for _, e := range t.local {
		if _, echoed := ids[e.msg.ID]; echoed {
			continue
		}
		if live && e.msg.Status == core.StatusAcked && t.liveSeq-e.ackSeq >= ackedOmissionLimit {
			continue
		}
		kept = append(kept, e)
	}
	t.local = kept
}

// normalize copies msgs, marks them confirmed and removes duplicate ids. A
// repeated id keeps its first position and takes the later fields.
func normalize(msgs []core.Message) []core.Message {
	out := make([]core.Message, 0, len(msgs))
	pos := make(map[string]int, len(msgs))
	for _, m := range msgs {
		m.Status = core.StatusConfirmed
		if i, dup := pos[m.ID]; dup {
			out[i] = m
			continue
		}
		pos[m.ID] = len(out)
		out = append(out, m)
	}
	return out
}

func containsID(msgs []core.Message, id string) bool {
	for _, m := range msgs {
		if m.ID == id {
			return true
		}
	}
	return false
}

// ForGroup keeps the messages addressed to groupID, preserving order. The
// live channel is not scoped to a group.
func ForGroup(groupID string, msgs []core.Message) []core.Message {
	out := make([]core.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.GroupID == groupID {
			out = append(out, m)
		}
	}
	return out
}
