package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	gql "github.com/hasura/go-graphql-client"

	"github.com/vovakirdan/chatpad-sync/internal/core"
	"github.com/vovakirdan/chatpad-sync/internal/proto"
)

// Full-state message lists can carry inline images.
const subscriptionReadLimit = 64 << 20

// OpenLiveMessages subscribes to the full message list. Every item on the
// feed is the complete current list across all groups.
func (c *Client) OpenLiveMessages(ctx context.Context) (core.Feed[[]core.Message], error) {
	return subscribe(ctx, c, "GetAllMessages", subscriptionAllMessages, func(data json.RawMessage) ([]core.Message, error) {
		var payload struct {
			GetAllMessages []proto.Message `json:"GetAllMessages"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return messagesToCore(payload.GetAllMessages, ""), nil
	})
}

// OpenPresence subscribes to the online/typing state of all users.
func (c *Client) OpenPresence(ctx context.Context) (core.Feed[[]core.PresenceEvent], error) {
	return subscribe(ctx, c, "GetUsersTyping", subscriptionUsersTyping, func(data json.RawMessage) ([]core.PresenceEvent, error) {
		var payload struct {
			GetUsersTyping []proto.User `json:"GetUsersTyping"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return presenceToCore(payload.GetUsersTyping), nil
	})
}

// feed runs one subscription client per operation. The client does not
// reconnect on its own: any end of the stream closes the feed and the
// session decides when to reopen it.
type feed[T any] struct {
	ch   chan T
	sc   *gql.SubscriptionClient
	id   string
	stop chan struct{}
	done chan struct{}

	closing   atomic.Bool
	stopOnce  sync.Once
	closeOnce sync.Once

	mu    sync.Mutex
	ended bool
	err   error
}

func (f *feed[T]) C() <-chan T {
	return f.ch
}

func (f *feed[T]) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Close stops the operation and terminates the connection.
func (f *feed[T]) Close() error {
	f.closeOnce.Do(func() {
		f.closing.Store(true)
		f.stopOnce.Do(func() { close(f.stop) })
		_ = f.sc.Unsubscribe(f.id)
		_ = f.sc.Close()
	})
	<-f.done
	return nil
}

// deliver hands item to the reader unless the feed is stopping.
func (f *feed[T]) deliver(item T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ended {
		return
	}
	select {
	case f.ch <- item:
	case <-f.stop:
	}
}

func (f *feed[T]) end(err error) {
	f.stopOnce.Do(func() { close(f.stop) })
	f.mu.Lock()
	f.ended = true
	if f.err == nil {
		f.err = err
	}
	close(f.ch)
	f.mu.Unlock()
	close(f.done)
}

func subscribe[T any](ctx context.Context, c *Client, operation, query string, decode func(json.RawMessage) (T, error)) (*feed[T], error) {
	log := c.log.With().Str("operation", operation).Logger()

	params := map[string]any{}
	if c.cfg.Token != "" {
		params["authorization"] = "Bearer " + c.cfg.Token
	}
	sc := gql.NewSubscriptionClient(c.cfg.WSURL).
		WithProtocol(gql.SubscriptionsTransportWS).
		WithConnectionParams(params).
		WithReadLimit(subscriptionReadLimit).
		WithTimeout(c.dialTimeout()).
		WithRetryTimeout(c.dialTimeout()).
		WithExitWhenNoSubscription(true).
		WithLog(func(args ...any) {
			log.Trace().Msg(fmt.Sprint(args...))
		}).
		OnError(func(_ *gql.SubscriptionClient, err error) error {
			// Returning the error stops Run; reconnecting is the session's job.
			return err
		})

	f := &feed[T]{
		ch:   make(chan T, 1),
		sc:   sc,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	id, err := sc.Exec(query, nil, func(message []byte, err error) error {
		if err != nil {
			log.Warn().Err(err).Msg("subscription data carried errors")
			return nil
		}
		if len(message) == 0 || string(message) == "null" {
			return nil
		}
		item, err := decode(message)
		if err != nil {
			log.Warn().Err(err).Msg("undecodable subscription payload")
			return nil
		}
		f.deliver(item)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", operation, err)
	}
	f.id = id

	go func() {
		err := sc.Run()
		if f.closing.Load() || ctx.Err() != nil {
			f.end(nil)
			return
		}
		if err == nil {
			err = errors.New("stream ended")
		}
		log.Debug().Err(err).Msg("subscription stopped")
		f.end(core.Wrap(core.ErrCodeChannelInterrupted, operation+" subscription ended", err))
	}()
	go func() {
		select {
		case <-ctx.Done():
			_ = f.Close()
		case <-f.done:
		}
	}()
	return f, nil
}

func (c *Client) dialTimeout() time.Duration {
	if c.cfg.RequestTimeout > 0 {
		return c.cfg.RequestTimeout
	}
	return 10 * time.Second
}
