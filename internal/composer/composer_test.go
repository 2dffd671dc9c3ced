package composer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatpad-sync/internal/core"
	"github.com/vovakirdan/chatpad-sync/internal/ident"
	"github.com/vovakirdan/chatpad-sync/internal/timeline"
)

type testDispatcher struct {
	sent []core.OutboundMessage
	err  func(core.OutboundMessage) error
}

func (d *testDispatcher) SendMessage(_ context.Context, msg core.OutboundMessage) error {
	d.sent = append(d.sent, msg)
	if d.err != nil {
		return d.err(msg)
	}
	return nil
}

var author = core.AuthorSnapshot{ID: "u1", Username: "alice", Email: "alice@example.com"}

func newTestComposer(t *testing.T, d *testDispatcher, cfg Config) (*Composer, *timeline.Store) {
	t.Helper()
	logger := zerolog.Nop()
	store := timeline.NewStore()
	return New(store, d, cfg, &logger), store
}

func TestSendTextAppendsAndAcks(t *testing.T) {
	d := &testDispatcher{}
	c, store := newTestComposer(t, d, Config{})

	res, err := c.Send(context.Background(), Draft{GroupID: "g", Author: author, Body: "  hello  "})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.Notice != nil {
		t.Fatalf("unexpected notice %+v", res.Notice)
	}
	if len(res.Message.ID) != ident.DefaultLength {
		t.Fatalf("id length = %d, want %d", len(res.Message.ID), ident.DefaultLength)
	}
	if len(d.sent) != 1 || d.sent[0].Body != "hello" || d.sent[0].ID != res.Message.ID {
		t.Fatalf("unexpected dispatch %+v", d.sent)
	}

	cur := store.Current("g")
	if len(cur) != 1 || cur[0].Status != core.StatusAcked {
		t.Fatalf("expected one acked entry, got %+v", cur)
	}
}

func TestSendRejectsBlankText(t *testing.T) {
	d := &testDispatcher{}
	c, store := newTestComposer(t, d, Config{})

	for _, body := range []string{"", "   ", "\n\t"} {
		if _, err := c.Send(context.Background(), Draft{GroupID: "g", Author: author, Body: body}); !errors.Is(err, core.ErrEmptyBody) {
			t.Fatalf("body %q: expected ErrEmptyBody, got %v", body, err)
		}
	}
	if len(d.sent) != 0 || store.Len("g") != 0 {
		t.Fatalf("blank drafts must not reach the timeline or backend")
	}
}

func TestSendRequiresGroupAndAuthor(t *testing.T) {
	c, _ := newTestComposer(t, &testDispatcher{}, Config{})

	if _, err := c.Send(context.Background(), Draft{Author: author, Body: "hi"}); core.CodeOf(err) != core.ErrCodeBadRequest {
		t.Fatalf("missing group: expected bad_request, got %v", err)
	}
	if _, err := c.Send(context.Background(), Draft{GroupID: "g", Body: "hi"}); core.CodeOf(err) != core.ErrCodeBadRequest {
		t.Fatalf("missing author: expected bad_request, got %v", err)
	}
}

func TestOversizedImageRollsBackWithOneNotice(t *testing.T) {
	d := &testDispatcher{}
	c, store := newTestComposer(t, d, Config{MaxImageBytes: 16})

	res, err := c.Send(context.Background(), Draft{
		GroupID: "g",
		Author:  author,
		Body:    "data:image/png;base64," + strings.Repeat("A", 64),
		IsImage: true,
	})
	if !errors.Is(err, core.ErrOversizedPayload) {
		t.Fatalf("expected ErrOversizedPayload, got %v", err)
	}
	if res.Notice == nil || res.Notice.Code != core.ErrCodeOversizedPayload {
		t.Fatalf("expected oversized notice, got %+v", res.Notice)
	}
	if res.Notice.Text != core.ErrOversizedPayload.Message {
		t.Fatalf("unexpected notice text %q", res.Notice.Text)
	}
	if store.Len("g") != 0 {
		t.Fatalf("oversized attempt must leave no entry, got %+v", store.Current("g"))
	}
	if len(d.sent) != 0 {
		t.Fatalf("oversized payload must not be dispatched")
	}
}

func TestBackendOversizedIsRolledBack(t *testing.T) {
	d := &testDispatcher{err: func(core.OutboundMessage) error {
		return core.Wrap(core.ErrCodeOversizedPayload, "request entity too large", nil)
	}}
	c, store := newTestComposer(t, d, Config{})

	res, err := c.Send(context.Background(), Draft{GroupID: "g", Author: author, Body: "data:image/gif;base64,R0lG", IsImage: true})
	if !errors.Is(err, core.ErrOversizedPayload) || res.Notice == nil {
		t.Fatalf("expected oversized failure with notice, got %v %+v", err, res.Notice)
	}
	if store.Len("g") != 0 {
		t.Fatalf("rolled back entry still visible")
	}
}

func TestDispatchFailureMarksFailedThenRetrySucceeds(t *testing.T) {
	fail := true
	d := &testDispatcher{err: func(core.OutboundMessage) error {
		if fail {
			return errors.New("connection refused")
		}
		return nil
	}}
	c, store := newTestComposer(t, d, Config{})

	res, err := c.Send(context.Background(), Draft{GroupID: "g", Author: author, Body: "hi"})
	if !errors.Is(err, core.ErrDispatchFailure) {
		t.Fatalf("expected ErrDispatchFailure, got %v", err)
	}
	if res.Notice == nil || res.Notice.Code != core.ErrCodeDispatchFailure || res.Notice.MessageID != res.Message.ID {
		t.Fatalf("unexpected notice %+v", res.Notice)
	}
	if m, ok := store.Local("g", res.Message.ID); !ok || m.Status != core.StatusFailed {
		t.Fatalf("expected failed entry, got %+v ok=%v", m, ok)
	}

	fail = false
	retry, err := c.Retry(context.Background(), "g", res.Message.ID)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if retry.Message.ID != res.Message.ID || retry.Message.Status != core.StatusAcked {
		t.Fatalf("unexpected retry result %+v", retry.Message)
	}
	if len(d.sent) != 2 || d.sent[0].ID != d.sent[1].ID {
		t.Fatalf("retry must reuse the id, got %+v", d.sent)
	}
	if store.Len("g") != 1 {
		t.Fatalf("retry must not duplicate the entry")
	}
}

func TestRetryRejectsNonFailed(t *testing.T) {
	c, _ := newTestComposer(t, &testDispatcher{}, Config{})
	res, err := c.Send(context.Background(), Draft{GroupID: "g", Author: author, Body: "hi"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := c.Retry(context.Background(), "g", res.Message.ID); core.CodeOf(err) != core.ErrCodeBadRequest {
		t.Fatalf("expected bad_request for acked entry, got %v", err)
	}
	if _, err := c.Retry(context.Background(), "g", "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestEncodeImage(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	got, err := EncodeImage(png)
	if err != nil {
		t.Fatalf("EncodeImage: %v", err)
	}
	if !strings.HasPrefix(got, "data:image/png;base64,") {
		t.Fatalf("unexpected data url %q", got)
	}

	if _, err := EncodeImage([]byte("plain text, not an image")); !errors.Is(err, core.ErrUnsupportedImage) {
		t.Fatalf("expected ErrUnsupportedImage, got %v", err)
	}
}
