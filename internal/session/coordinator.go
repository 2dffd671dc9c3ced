// Package session runs the single event loop that owns the active group,
// its timeline and the presence view, and talks to the backend.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatpad-sync/internal/composer"
	"github.com/vovakirdan/chatpad-sync/internal/core"
	"github.com/vovakirdan/chatpad-sync/internal/presence"
	"github.com/vovakirdan/chatpad-sync/internal/timeline"
)

// ErrStopped is returned by calls made after Run has returned.
var ErrStopped = errors.New("session: coordinator stopped")

// Options configures a Coordinator.
type Options struct {
	// Self is the signed-in user. Messages are authored as Self and the
	// heartbeat keeps Self online.
	Self core.User

	HeartbeatInterval time.Duration
	ReconnectDelay    time.Duration

	// FilterPresenceByGroup drops presence events for users outside the
	// active group once its members are known.
	FilterPresenceByGroup bool
	// PresenceExpiry marks users offline after this long without any
	// observation. Zero keeps them online until told otherwise.
	PresenceExpiry time.Duration
	// TeardownTimeout bounds the final offline signal.
	TeardownTimeout time.Duration

	Composer composer.Config
	Clock    clock.Clock
}

func (o *Options) setDefaults() {
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = time.Minute
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = 3 * time.Second
	}
	if o.TeardownTimeout <= 0 {
		o.TeardownTimeout = 2 * time.Second
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
}

// Coordinator serializes every state change of a session through Run.
type Coordinator struct {
	backend  Backend
	opts     Options
	clock    clock.Clock
	log      *zerolog.Logger
	store    *timeline.Store
	presence *presence.Tracker
	composer *composer.Composer

	commands chan *command
	inputs   chan input
	done     chan struct{}

	mu          sync.RWMutex
	subscribers map[string]*core.Subscriber

	// Owned by Run.
	runCtx context.Context
	active *activeGroup
	gen    uint64
}

// activeGroup is the state of the current selection. Everything started for
// it is bound to ctx and tagged with gen.
type activeGroup struct {
	id       string
	gen      uint64
	group    core.Group
	ctx      context.Context
	cancel   context.CancelFunc
	timers   []*clock.Timer
	rendered map[string]struct{}
}

// New constructs a coordinator. Run must be started before any other call
// can complete.
func New(backend Backend, opts Options, logger *zerolog.Logger) *Coordinator {
	opts.setDefaults()
	l := logger.With().Str("component", "session").Logger()
	store := timeline.NewStore()
	return &Coordinator{
		backend:     backend,
		opts:        opts,
		clock:       opts.Clock,
		log:         &l,
		store:       store,
		presence:    presence.NewTracker(),
		composer:    composer.New(store, backend, opts.Composer, logger),
		commands:    make(chan *command),
		inputs:      make(chan input, 16),
		done:        make(chan struct{}),
		subscribers: make(map[string]*core.Subscriber),
	}
}

// Self returns the signed-in user.
func (c *Coordinator) Self() core.User {
	return c.opts.Self
}

// Run processes commands and backend results until ctx is canceled. On the
// way out it tells the backend that the user went offline, without waiting
// longer than the teardown timeout.
func (c *Coordinator) Run(ctx context.Context) error {
	defer close(c.done)
	c.runCtx = ctx

	ticker := c.clock.Ticker(c.opts.HeartbeatInterval)
	defer ticker.Stop()

	c.goOnline(ctx)

	for {
		select {
		case <-ctx.Done():
			c.teardown()
			return nil
		case cmd := <-c.commands:
			c.handleCommand(cmd)
		case in := <-c.inputs:
			c.handleInput(in)
		case <-ticker.C:
			c.heartbeat(ctx)
		}
	}
}

// Done is closed once Run has returned.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Subscribe registers sub for session events.
func (c *Coordinator) Subscribe(sub *core.Subscriber) {
	c.mu.Lock()
	c.subscribers[sub.ID] = sub
	c.mu.Unlock()
}

// Unsubscribe removes a subscriber registered with Subscribe.
func (c *Coordinator) Unsubscribe(id string) {
	c.mu.Lock()
	delete(c.subscribers, id)
	c.mu.Unlock()
}

// SelectGroup makes groupID the active group. The previous group's fetches
// and subscriptions are canceled and its timeline and presence are dropped.
// Group details follow as an EventGroupSelected event.
func (c *Coordinator) SelectGroup(ctx context.Context, groupID string) error {
	_, err := c.call(ctx, &command{kind: cmdSelectGroup, groupID: groupID})
	return err
}

// ActiveGroup returns the active group. ok is false when no group is selected.
// Members are empty until the group has been fetched.
func (c *Coordinator) ActiveGroup(ctx context.Context) (core.Group, bool, error) {
	r, err := c.call(ctx, &command{kind: cmdActiveGroup})
	return r.group, r.found, err
}

// Timeline returns the rendered timeline of groupID, or of the active group
// when groupID is empty.
func (c *Coordinator) Timeline(ctx context.Context, groupID string) ([]core.Message, error) {
	r, err := c.call(ctx, &command{kind: cmdTimeline, groupID: groupID})
	return r.messages, err
}

// Presence returns the presence record of userID.
func (c *Coordinator) Presence(ctx context.Context, userID string) (core.PresenceRecord, error) {
	r, err := c.call(ctx, &command{kind: cmdPresence, userID: userID})
	return r.presence, err
}

// ComposeAndSend posts a message as Self to the active group. It returns
// once the backend answered. A failed dispatch is reported both as the
// returned error and as the result's notice.
func (c *Coordinator) ComposeAndSend(ctx context.Context, body string, isImage bool) (composer.Result, error) {
	r, err := c.call(ctx, &command{kind: cmdSend, body: body, isImage: isImage})
	return composer.Result{Message: r.message, Notice: r.notice}, err
}

// Retry re-dispatches a failed message of the active group.
func (c *Coordinator) Retry(ctx context.Context, messageID string) (composer.Result, error) {
	r, err := c.call(ctx, &command{kind: cmdRetry, messageID: messageID})
	return composer.Result{Message: r.message, Notice: r.notice}, err
}

func (c *Coordinator) call(ctx context.Context, cmd *command) (reply, error) {
	cmd.reply = make(chan reply, 1)
	select {
	case c.commands <- cmd:
	case <-ctx.Done():
		return reply{}, ctx.Err()
	case <-c.done:
		return reply{}, ErrStopped
	}
	select {
	case r := <-cmd.reply:
		return r, r.err
	case <-ctx.Done():
		return reply{}, ctx.Err()
	case <-c.done:
		return reply{}, ErrStopped
	}
}

// post hands an off-loop result to Run. It gives up when ctx ends, which is
// how results of a replaced selection are discarded before reaching the loop.
func (c *Coordinator) post(ctx context.Context, in input) {
	select {
	case c.inputs <- in:
	case <-ctx.Done():
	case <-c.done:
	}
}

func (c *Coordinator) emit(ev *core.Event) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, sub := range c.subscribers {
		if !sub.Deliver(ev) {
			c.log.Debug().Str("subscriber", sub.ID).Str("event", ev.Kind.String()).Msg("subscriber slow, event dropped")
		}
	}
}

func (c *Coordinator) goOnline(ctx context.Context) {
	if c.opts.Self.ID == "" {
		return
	}
	c.presence.SetOnline(c.opts.Self.ID, true, c.clock.Now())
	go func() {
		if err := c.backend.SetOnline(ctx, c.opts.Self.ID, true); err != nil {
			c.log.Warn().Err(err).Msg("switch online failed")
		}
	}()
}

func (c *Coordinator) teardown() {
	c.closeActive()
	if c.opts.Self.ID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.TeardownTimeout)
	defer cancel()
	if err := c.backend.SetOnline(ctx, c.opts.Self.ID, false); err != nil {
		c.log.Warn().Err(err).Msg("switch offline failed")
		return
	}
	c.log.Debug().Msg("switched offline")
}
