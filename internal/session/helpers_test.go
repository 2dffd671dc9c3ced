package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatpad-sync/internal/core"
)

type fakeFeed[T any] struct {
	ch   chan T
	done chan struct{}

	mu        sync.Mutex
	err       error
	endOnce   sync.Once
	closeOnce sync.Once
}

func newFakeFeed[T any]() *fakeFeed[T] {
	return &fakeFeed[T]{ch: make(chan T, 8), done: make(chan struct{})}
}

func (f *fakeFeed[T]) C() <-chan T { return f.ch }

func (f *fakeFeed[T]) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeFeed[T]) Close() error {
	f.closeOnce.Do(func() { close(f.done) })
	return nil
}

func (f *fakeFeed[T]) push(t *testing.T, v T) {
	t.Helper()
	select {
	case f.ch <- v:
	case <-f.done:
		t.Fatalf("push on closed feed")
	case <-time.After(2 * time.Second):
		t.Fatalf("push timed out")
	}
}

// end simulates the server dropping the subscription.
func (f *fakeFeed[T]) end(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
	f.endOnce.Do(func() { close(f.ch) })
}

func (f *fakeFeed[T]) closed() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

type fakeBackend struct {
	mu            sync.Mutex
	groups        map[string]core.Group
	history       map[string][]core.Message
	historyCalls  int
	sendErrs      []error
	sent          []core.OutboundMessage
	heartbeats    int
	heartbeatErrs []error
	online        []bool

	liveOpened     chan *fakeFeed[[]core.Message]
	presenceOpened chan *fakeFeed[[]core.PresenceEvent]
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		groups:         make(map[string]core.Group),
		history:        make(map[string][]core.Message),
		liveOpened:     make(chan *fakeFeed[[]core.Message], 8),
		presenceOpened: make(chan *fakeFeed[[]core.PresenceEvent], 8),
	}
}

func (b *fakeBackend) FetchGroup(_ context.Context, groupID string) (core.Group, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	g, ok := b.groups[groupID]
	if !ok {
		return core.Group{}, core.Wrap(core.ErrCodeNotFound, "group "+groupID+" not found", nil)
	}
	return g, nil
}

func (b *fakeBackend) FetchHistoricalMessages(_ context.Context, groupID string) ([]core.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.historyCalls++
	return append([]core.Message(nil), b.history[groupID]...), nil
}

func (b *fakeBackend) OpenLiveMessages(context.Context) (core.Feed[[]core.Message], error) {
	f := newFakeFeed[[]core.Message]()
	b.liveOpened <- f
	return f, nil
}

func (b *fakeBackend) OpenPresence(context.Context) (core.Feed[[]core.PresenceEvent], error) {
	f := newFakeFeed[[]core.PresenceEvent]()
	b.presenceOpened <- f
	return f, nil
}

func (b *fakeBackend) SendMessage(_ context.Context, msg core.OutboundMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, msg)
	if len(b.sendErrs) == 0 {
		return nil
	}
	err := b.sendErrs[0]
	b.sendErrs = b.sendErrs[1:]
	return err
}

func (b *fakeBackend) RefreshActivity(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.heartbeats++
	if len(b.heartbeatErrs) == 0 {
		return nil
	}
	err := b.heartbeatErrs[0]
	b.heartbeatErrs = b.heartbeatErrs[1:]
	return err
}

func (b *fakeBackend) SetOnline(_ context.Context, _ string, online bool) error {
	b.mu.Lock()
	b.online = append(b.online, online)
	b.mu.Unlock()
	return nil
}

func (b *fakeBackend) heartbeatCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.heartbeats
}

func (b *fakeBackend) onlineCalls() []bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]bool(nil), b.online...)
}

func (b *fakeBackend) historyCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.historyCalls
}

var (
	alice = core.User{ID: "u-alice", Username: "alice", Email: "alice@example.com"}
	bob   = core.User{ID: "u-bob", Username: "bob", Email: "bob@example.com"}
	carol = core.User{ID: "u-carol", Username: "carol", Email: "carol@example.com"}
)

func msg(id, groupID string, author core.User, body string, elapsed int) core.Message {
	return core.Message{
		ID:             id,
		GroupID:        groupID,
		Author:         core.SnapshotOf(author),
		Body:           body,
		ElapsedMinutes: elapsed,
		Date:           core.DateLabel{Day: "Mon Oct 12", Time: "09:30"},
	}
}

func startCoordinator(t *testing.T, b *fakeBackend, opts Options) (*Coordinator, *core.Subscriber, context.CancelFunc) {
	t.Helper()
	if opts.Self.ID == "" {
		opts.Self = alice
	}
	logger := zerolog.Nop()
	c := New(b, opts, &logger)
	sub := core.NewSubscriber("test")
	c.Subscribe(sub)

	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-c.Done()
	})
	return c, sub, cancel
}

func mustEvent(t *testing.T, ch <-chan *core.Event, kind core.EventKind) *core.Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// mustTimeline waits for a timeline event whose message ids equal want.
func mustTimeline(t *testing.T, ch <-chan *core.Event, want ...string) []core.Message {
	t.Helper()

	if want == nil {
		want = []string{}
	}
	var last []string
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil || ev.Kind != core.EventTimeline {
				continue
			}
			last = ids(ev.Messages)
			if cmp.Equal(last, want) {
				return ev.Messages
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("timeline %v not received, last seen %v", want, last)
	return nil
}

func mustFeed[T any](t *testing.T, ch <-chan *fakeFeed[T]) *fakeFeed[T] {
	t.Helper()
	select {
	case f := <-ch:
		return f
	case <-time.After(2 * time.Second):
		t.Fatalf("feed was not opened")
		return nil
	}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met: %s", what)
}

func ids(msgs []core.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}

// drain returns the events already queued on ch.
func drain(ch <-chan *core.Event) []*core.Event {
	var out []*core.Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

// waitTimeline polls the coordinator until groupID renders want.
func waitTimeline(t *testing.T, c *Coordinator, groupID string, want ...string) {
	t.Helper()
	if want == nil {
		want = []string{}
	}
	eventually(t, "timeline of "+groupID, func() bool {
		msgs, err := c.Timeline(context.Background(), groupID)
		return err == nil && cmp.Equal(ids(msgs), want)
	})
}
