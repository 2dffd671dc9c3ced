// Package composer builds outbound messages, shows them optimistically and
// dispatches them to the backend.
package composer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatpad-sync/internal/core"
	"github.com/vovakirdan/chatpad-sync/internal/ident"
	"github.com/vovakirdan/chatpad-sync/internal/metrics"
	"github.com/vovakirdan/chatpad-sync/internal/timeline"
)

// Dispatcher delivers an outbound message to the backend.
type Dispatcher interface {
	SendMessage(ctx context.Context, msg core.OutboundMessage) error
}

// Config tunes the composer.
type Config struct {
	// MaxImageBytes caps the encoded image body; zero disables the check.
	MaxImageBytes int64
	// IDLength is the generated message id length.
	IDLength int
}

// Draft is a message the user asked to send.
type Draft struct {
	GroupID string `validate:"required"`
	Author  core.AuthorSnapshot
	Body    string `validate:"required"`
	IsImage bool
}

// Result describes what happened to a send attempt.
type Result struct {
	Message core.Message
	Notice  *core.Notice
}

// Composer owns the optimistic half of sending. It shares the timeline store
// with the session loop and must be driven from that loop.
type Composer struct {
	store      *timeline.Store
	dispatcher Dispatcher
	cfg        Config
	validate   *validator.Validate
	log        *zerolog.Logger
}

// New constructs a composer.
func New(store *timeline.Store, dispatcher Dispatcher, cfg Config, logger *zerolog.Logger) *Composer {
	if cfg.IDLength <= 0 {
		cfg.IDLength = ident.DefaultLength
	}
	l := logger.With().Str("component", "composer").Logger()
	return &Composer{
		store:      store,
		dispatcher: dispatcher,
		cfg:        cfg,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		log:        &l,
	}
}

// Send runs Prepare, Dispatch and Complete in sequence. Validation errors
// leave the timeline untouched; dispatch errors come back together with the
// notice that was produced for them.
func (c *Composer) Send(ctx context.Context, d Draft) (Result, error) {
	out, err := c.Prepare(d)
	if err != nil {
		return Result{}, err
	}
	return c.finish(ctx, out)
}

// Retry re-dispatches a failed entry under its original id.
func (c *Composer) Retry(ctx context.Context, groupID, messageID string) (Result, error) {
	out, err := c.PrepareRetry(groupID, messageID)
	if err != nil {
		return Result{}, err
	}
	return c.finish(ctx, out)
}

func (c *Composer) finish(ctx context.Context, out core.OutboundMessage) (Result, error) {
	dispatchErr := c.Dispatch(ctx, out)
	notice := c.Complete(out, dispatchErr)
	msg, ok := c.store.Local(out.GroupID, out.ID)
	if !ok {
		msg = out.Message()
	}
	return Result{Message: msg, Notice: notice}, dispatchErr
}

// Prepare validates d, assigns a fresh id and appends the optimistic entry.
func (c *Composer) Prepare(d Draft) (core.OutboundMessage, error) {
	if !d.IsImage {
		d.Body = strings.TrimSpace(d.Body)
	}
	if err := c.validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].StructField() == "Body" {
			return core.OutboundMessage{}, core.ErrEmptyBody
		}
		return core.OutboundMessage{}, core.Wrap(core.ErrCodeBadRequest, "invalid draft", err)
	}
	if err := c.validate.Var(d.Author.ID, "required"); err != nil {
		return core.OutboundMessage{}, core.Wrap(core.ErrCodeBadRequest, "author id is required", err)
	}

	out := core.OutboundMessage{
		ID:      ident.Generate(c.cfg.IDLength),
		GroupID: d.GroupID,
		Author:  d.Author,
		Body:    d.Body,
		IsImage: d.IsImage,
	}
	c.store.AppendOptimistic(out.Message())
	c.log.Debug().Str("message_id", out.ID).Str("group_id", out.GroupID).Bool("image", out.IsImage).Msg("optimistic append")
	return out, nil
}

// PrepareRetry puts a failed entry back into the pending state.
func (c *Composer) PrepareRetry(groupID, messageID string) (core.OutboundMessage, error) {
	m, ok := c.store.Local(groupID, messageID)
	if !ok {
		return core.OutboundMessage{}, core.Wrap(core.ErrCodeNotFound, fmt.Sprintf("message %s is not awaiting delivery", messageID), nil)
	}
	if m.Status != core.StatusFailed {
		return core.OutboundMessage{}, core.Wrap(core.ErrCodeBadRequest, fmt.Sprintf("message %s is %s, only failed messages can be retried", messageID, m.Status), nil)
	}
	c.store.AppendOptimistic(m)
	return core.OutboundMessage{
		ID:      m.ID,
		GroupID: m.GroupID,
		Author:  m.Author,
		Body:    m.Body,
		IsImage: m.IsImage,
	}, nil
}

// Dispatch checks the payload size and hands the message to the backend. It
// does not touch the timeline and may run off the session loop.
func (c *Composer) Dispatch(ctx context.Context, out core.OutboundMessage) error {
	if out.IsImage && c.cfg.MaxImageBytes > 0 && int64(len(out.Body)) > c.cfg.MaxImageBytes {
		return core.Wrap(core.ErrCodeOversizedPayload,
			fmt.Sprintf("image payload is %d bytes, limit is %d", len(out.Body), c.cfg.MaxImageBytes), nil)
	}
	if err := c.dispatcher.SendMessage(ctx, out); err != nil {
		if core.CodeOf(err) != "" {
			return err
		}
		return core.Wrap(core.ErrCodeDispatchFailure, "send message", err)
	}
	return nil
}

// Complete applies the dispatch outcome to the timeline and returns the
// notice to show, if any. Oversized payloads are rolled back; any other
// failure leaves the entry visible and marked failed.
func (c *Composer) Complete(out core.OutboundMessage, dispatchErr error) *core.Notice {
	if dispatchErr == nil {
		c.store.MarkAcked(out.GroupID, out.ID)
		metrics.IncMessageSent("acked")
		return nil
	}

	notice := core.NoticeFrom(dispatchErr, out.ID)
	if notice.Code == core.ErrCodeOversizedPayload {
		c.store.Rollback(out.GroupID, out.ID)
		metrics.IncMessageSent("oversized")
	} else {
		c.store.MarkFailed(out.GroupID, out.ID)
		metrics.IncMessageSent("failed")
	}
	metrics.IncNotice(notice.Code)
	c.log.Warn().Err(dispatchErr).Str("message_id", out.ID).Str("code", notice.Code).Msg("dispatch failed")
	return notice
}
