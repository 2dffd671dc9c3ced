package core

// EventKind is a notification the core emits to the presentation layer.
type EventKind int

const (
	// EventGroupSelected confirms a new active group.
	EventGroupSelected EventKind = iota
	// EventTimeline carries the rendered timeline after any change.
	EventTimeline
	// EventPresence carries an updated presence record.
	EventPresence
	// EventNotice carries a user-visible, non-fatal notice.
	EventNotice
	// EventFreshMessage reports a just-posted message from someone else.
	EventFreshMessage
)

func (k EventKind) String() string {
	switch k {
	case EventGroupSelected:
		return "group_selected"
	case EventTimeline:
		return "timeline"
	case EventPresence:
		return "presence"
	case EventNotice:
		return "notice"
	case EventFreshMessage:
		return "fresh_message"
	default:
		return "unknown"
	}
}

// Event describes what changed in the session.
type Event struct {
	Kind     EventKind
	GroupID  string
	Group    *Group          // EventGroupSelected
	Messages []Message       // EventTimeline
	Message  *Message        // EventFreshMessage
	Presence *PresenceRecord // EventPresence
	Notice   *Notice         // EventNotice
}

// Notice is a user-visible report of a contained failure.
type Notice struct {
	Code      string
	Text      string
	MessageID string
}

// NoticeFrom builds a notice from an error, using its CoreError code when present.
func NoticeFrom(err error, messageID string) *Notice {
	code := CodeOf(err)
	if code == "" {
		code = ErrCodeDispatchFailure
	}
	text := err.Error()
	if code == ErrCodeOversizedPayload {
		text = ErrOversizedPayload.Message
	}
	return &Notice{Code: code, Text: text, MessageID: messageID}
}
