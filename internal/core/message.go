package core

import "time"

// MessageStatus is local delivery state. It never travels over the wire.
type MessageStatus int

const (
	// StatusConfirmed marks a message observed in a historical or live source.
	StatusConfirmed MessageStatus = iota
	// StatusPending marks an optimistic entry awaiting acknowledgment or echo.
	StatusPending
	// StatusAcked marks an optimistic entry the backend accepted but the live stream has not echoed yet.
	StatusAcked
	// StatusFailed marks an optimistic entry whose dispatch failed.
	StatusFailed
)

func (s MessageStatus) String() string {
	switch s {
	case StatusConfirmed:
		return "confirmed"
	case StatusPending:
		return "pending"
	case StatusAcked:
		return "acked"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// AuthorSnapshot is the author identity captured when a message was sent.
// It is a value copy and may diverge from the live User.
type AuthorSnapshot struct {
	ID             string
	Username       string
	Email          string
	ProfilePicture string
}

// SnapshotOf captures the identity fields of u.
func SnapshotOf(u User) AuthorSnapshot {
	return AuthorSnapshot{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		ProfilePicture: u.ProfilePicture,
	}
}

// DateLabel is the (day, time) pair the backend renders for a message.
type DateLabel struct {
	Day  string
	Time string
}

// Message is the domain model for a chat message.
type Message struct {
	ID             string
	GroupID        string
	Author         AuthorSnapshot
	Body           string
	IsImage        bool
	ElapsedMinutes int
	Date           DateLabel
	Status         MessageStatus
}

// OutboundMessage is what gets dispatched to the backend on send.
type OutboundMessage struct {
	ID      string
	GroupID string
	Author  AuthorSnapshot
	Body    string
	IsImage bool
}

// Message converts the outbound payload into its optimistic timeline entry.
func (o OutboundMessage) Message() Message {
	return Message{
		ID:      o.ID,
		GroupID: o.GroupID,
		Author:  o.Author,
		Body:    o.Body,
		IsImage: o.IsImage,
		Status:  StatusPending,
	}
}

// PresenceRecord is the local view of a user's online and typing state.
type PresenceRecord struct {
	UserID        string
	Online        bool
	Typing        bool
	LastHeartbeat time.Time
}

// PresenceEvent is a push-delivered presence observation.
type PresenceEvent struct {
	UserID string
	Online bool
	Typing bool
}
