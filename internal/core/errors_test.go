package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestCoreErrorMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("send message m1: %w", Wrap(ErrCodeOversizedPayload, "request entity too large", nil))

	if !errors.Is(wrapped, ErrOversizedPayload) {
		t.Fatalf("expected oversized_payload to match through wrapping")
	}
	if errors.Is(wrapped, ErrDispatchFailure) {
		t.Fatalf("different codes must not match")
	}
	if got := CodeOf(wrapped); got != ErrCodeOversizedPayload {
		t.Fatalf("CodeOf = %q, want %q", got, ErrCodeOversizedPayload)
	}
	if got := CodeOf(errors.New("plain")); got != "" {
		t.Fatalf("CodeOf plain error = %q, want empty", got)
	}
}

func TestCoreErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(ErrCodeDispatchFailure, "send message", cause)

	if !errors.Is(err, cause) {
		t.Fatalf("expected cause in chain")
	}
	if err.Error() != "send message: connection reset" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestNoticeFrom(t *testing.T) {
	n := NoticeFrom(Wrap(ErrCodeOversizedPayload, "backend rejected payload size", nil), "m1")
	if n.Code != ErrCodeOversizedPayload || n.Text != ErrOversizedPayload.Message || n.MessageID != "m1" {
		t.Fatalf("unexpected oversized notice: %+v", n)
	}

	n = NoticeFrom(errors.New("timeout"), "m2")
	if n.Code != ErrCodeDispatchFailure || n.Text != "timeout" {
		t.Fatalf("uncoded errors should become dispatch failures: %+v", n)
	}
}

func TestGroupValidate(t *testing.T) {
	alice := User{ID: "a"}
	bob := User{ID: "b"}
	tests := []struct {
		name    string
		group   Group
		wantErr bool
	}{
		{"pair", Group{ID: "g", Members: []User{alice, bob}}, false},
		{"missing id", Group{Members: []User{alice, bob}}, true},
		{"single member", Group{ID: "g", Members: []User{alice}}, true},
		{"duplicate member", Group{ID: "g", Members: []User{alice, alice}}, true},
	}
	for _, tt := range tests {
		err := tt.group.Validate()
		if (err != nil) != tt.wantErr {
			t.Fatalf("%s: err = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrBadRequest) {
			t.Fatalf("%s: expected bad_request, got %v", tt.name, err)
		}
	}

	g := Group{ID: "g", Members: []User{alice, bob}}
	if !g.HasMember("b") || g.HasMember("c") {
		t.Fatalf("HasMember mismatch")
	}
	if !g.IsPair() {
		t.Fatalf("two-member group should be a pair")
	}
}

func TestSubscriberDropsWhenFull(t *testing.T) {
	sub := NewSubscriber("s")
	for i := 0; i < cap(sub.Events); i++ {
		if !sub.Deliver(&Event{Kind: EventTimeline}) {
			t.Fatalf("delivery %d should succeed", i)
		}
	}
	if sub.Deliver(&Event{Kind: EventTimeline}) {
		t.Fatalf("delivery to a full subscriber should be dropped")
	}
}
