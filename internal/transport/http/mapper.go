package http

import (
	"context"
	"errors"
	stdhttp "net/http"

	"github.com/vovakirdan/chatpad-sync/internal/core"
	"github.com/vovakirdan/chatpad-sync/internal/recency"
	"github.com/vovakirdan/chatpad-sync/internal/session"
)

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// AuthorResponse is the frozen author snapshot of a message.
type AuthorResponse struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email,omitempty"`
	ProfilePicture string `json:"profile_picture,omitempty"`
}

// MessageResponse represents a rendered timeline entry.
type MessageResponse struct {
	ID             string         `json:"id"`
	GroupID        string         `json:"group_id"`
	Author         AuthorResponse `json:"author"`
	Body           string         `json:"body"`
	Image          bool           `json:"image"`
	Status         string         `json:"status"`
	ElapsedMinutes int            `json:"elapsed_minutes"`
	Day            string         `json:"day"`
	Time           string         `json:"time"`
	Label          string         `json:"label"`
	Header         string         `json:"header"`
}

// TimelineResponse is a group's rendered timeline.
type TimelineResponse struct {
	GroupID  string            `json:"group_id"`
	Messages []MessageResponse `json:"messages"`
}

// UserResponse represents a directory user.
type UserResponse struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email,omitempty"`
	ProfilePicture string `json:"profile_picture,omitempty"`
	DarkTheme      bool   `json:"dark_theme"`
}

// GroupResponse represents a group with its members.
type GroupResponse struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Pair    bool           `json:"pair"`
	Members []UserResponse `json:"members"`
}

// SessionResponse describes the signed-in user and the active group.
type SessionResponse struct {
	Self   UserResponse   `json:"self"`
	Active *GroupResponse `json:"active,omitempty"`
}

// PresenceResponse is the presence of one user.
type PresenceResponse struct {
	UserID string `json:"user_id"`
	Online bool   `json:"online"`
	Typing bool   `json:"typing"`
	Known  bool   `json:"known"`
}

// NoticeResponse is a user-visible notice.
type NoticeResponse struct {
	Code      string `json:"code"`
	Text      string `json:"text"`
	MessageID string `json:"message_id,omitempty"`
}

// SendResponse is the outcome of a send or retry.
type SendResponse struct {
	Message MessageResponse `json:"message"`
	Notice  *NoticeResponse `json:"notice,omitempty"`
}

// EventResponse is one session event on the event stream.
type EventResponse struct {
	Type     string            `json:"type"`
	GroupID  string            `json:"group_id,omitempty"`
	Group    *GroupResponse    `json:"group,omitempty"`
	Messages []MessageResponse `json:"messages,omitempty"`
	Message  *MessageResponse  `json:"message,omitempty"`
	Presence *PresenceResponse `json:"presence,omitempty"`
	Notice   *NoticeResponse   `json:"notice,omitempty"`
	Error    *ErrorResponse    `json:"error,omitempty"`
}

func messageResponse(m core.Message) MessageResponse {
	resp := MessageResponse{
		ID:      m.ID,
		GroupID: m.GroupID,
		Author: AuthorResponse{
			ID:             m.Author.ID,
			Username:       m.Author.Username,
			Email:          m.Author.Email,
			ProfilePicture: m.Author.ProfilePicture,
		},
		Body:           m.Body,
		Image:          m.IsImage,
		Status:         m.Status.String(),
		ElapsedMinutes: m.ElapsedMinutes,
		Day:            m.Date.Day,
		Time:           m.Date.Time,
	}
	// A message with a corrupt timestamp keeps an empty label.
	if label, err := recency.Of(m); err == nil {
		resp.Label = label.Compact()
		resp.Header = label.String()
	}
	return resp
}

func messagesResponse(msgs []core.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageResponse(m))
	}
	return out
}

func userResponse(u core.User) UserResponse {
	return UserResponse{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		ProfilePicture: u.ProfilePicture,
		DarkTheme:      u.DarkTheme,
	}
}

func groupResponse(g core.Group) *GroupResponse {
	members := make([]UserResponse, 0, len(g.Members))
	for _, u := range g.Members {
		members = append(members, userResponse(u))
	}
	return &GroupResponse{ID: g.ID, Name: g.Name, Pair: g.IsPair(), Members: members}
}

func presenceResponse(r core.PresenceRecord, known bool) *PresenceResponse {
	return &PresenceResponse{UserID: r.UserID, Online: r.Online, Typing: r.Typing, Known: known}
}

func noticeResponse(n *core.Notice) *NoticeResponse {
	if n == nil {
		return nil
	}
	return &NoticeResponse{Code: n.Code, Text: n.Text, MessageID: n.MessageID}
}

func eventResponse(ev *core.Event) EventResponse {
	resp := EventResponse{Type: ev.Kind.String(), GroupID: ev.GroupID}
	switch ev.Kind {
	case core.EventGroupSelected:
		if ev.Group != nil {
			resp.Group = groupResponse(*ev.Group)
		}
	case core.EventTimeline:
		resp.Messages = messagesResponse(ev.Messages)
	case core.EventFreshMessage:
		if ev.Message != nil {
			m := messageResponse(*ev.Message)
			resp.Message = &m
		}
	case core.EventPresence:
		if ev.Presence != nil {
			resp.Presence = presenceResponse(*ev.Presence, true)
		}
	case core.EventNotice:
		resp.Notice = noticeResponse(ev.Notice)
	}
	return resp
}

// errorResponse maps an error to an HTTP status and body.
func errorResponse(err error) (int, ErrorResponse) {
	code := core.CodeOf(err)
	status := stdhttp.StatusInternalServerError
	switch code {
	case core.ErrCodeBadRequest, core.ErrCodeEmptyBody, core.ErrCodeUnsupportedImage, core.ErrCodeInvalidTimestamp:
		status = stdhttp.StatusBadRequest
	case core.ErrCodeNotFound:
		status = stdhttp.StatusNotFound
	case core.ErrCodeNoActiveGroup:
		status = stdhttp.StatusConflict
	case core.ErrCodeOversizedPayload:
		status = stdhttp.StatusRequestEntityTooLarge
	case core.ErrCodeDispatchFailure, core.ErrCodeChannelInterrupted:
		status = stdhttp.StatusBadGateway
	default:
		if errors.Is(err, session.ErrStopped) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = stdhttp.StatusServiceUnavailable
		}
	}
	msg := err.Error()
	if code == core.ErrCodeOversizedPayload {
		msg = core.ErrOversizedPayload.Message
	}
	if status == stdhttp.StatusInternalServerError {
		msg = "internal server error"
	}
	return status, ErrorResponse{Error: msg, Code: code}
}
