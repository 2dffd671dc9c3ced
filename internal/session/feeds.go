package session

import (
	"context"

	"github.com/vovakirdan/chatpad-sync/internal/core"
)

func (c *Coordinator) fetchGroup(a *activeGroup) {
	go func() {
		g, err := c.backend.FetchGroup(a.ctx, a.id)
		c.post(a.ctx, input{kind: inGroupLoaded, gen: a.gen, group: g, err: err})
	}()
}

func (c *Coordinator) fetchHistory(a *activeGroup) {
	go func() {
		msgs, err := c.backend.FetchHistoricalMessages(a.ctx, a.id)
		c.post(a.ctx, input{kind: inSnapshot, gen: a.gen, messages: msgs, err: err})
	}()
}

func (c *Coordinator) openLive(a *activeGroup) {
	go func() {
		f, err := c.backend.OpenLiveMessages(a.ctx)
		if err != nil {
			c.post(a.ctx, input{kind: inFeedClosed, gen: a.gen, feed: feedLive, err: err})
			return
		}
		pump(a.ctx, c, a.gen, feedLive, f, func(msgs []core.Message) input {
			return input{kind: inLiveUpdate, gen: a.gen, messages: msgs}
		})
	}()
}

func (c *Coordinator) openPresence(a *activeGroup) {
	go func() {
		f, err := c.backend.OpenPresence(a.ctx)
		if err != nil {
			c.post(a.ctx, input{kind: inFeedClosed, gen: a.gen, feed: feedPresence, err: err})
			return
		}
		pump(a.ctx, c, a.gen, feedPresence, f, func(evs []core.PresenceEvent) input {
			return input{kind: inPresence, gen: a.gen, presence: evs}
		})
	}()
}

// pump forwards feed items into the loop until the feed ends or ctx is
// canceled. An end the loop did not ask for is reported as inFeedClosed.
func pump[T any](ctx context.Context, c *Coordinator, gen uint64, name string, f core.Feed[T], wrap func(T) input) {
	defer f.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-f.C():
			if !ok {
				c.post(ctx, input{kind: inFeedClosed, gen: gen, feed: name, err: f.Err()})
				return
			}
			c.post(ctx, wrap(v))
		}
	}
}
