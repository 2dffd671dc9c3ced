package session

import (
	"github.com/vovakirdan/chatpad-sync/internal/core"
)

// commandKind describes what the presentation layer wants.
type commandKind int

const (
	cmdSelectGroup commandKind = iota
	cmdSend
	cmdRetry
	cmdTimeline
	cmdPresence
	cmdActiveGroup
)

// command is a request into the session loop. reply is buffered so the loop
// never blocks on a caller that gave up.
type command struct {
	kind      commandKind
	groupID   string
	userID    string
	messageID string
	body      string
	isImage   bool
	reply     chan reply
}

type reply struct {
	messages []core.Message
	message  core.Message
	presence core.PresenceRecord
	group    core.Group
	notice   *core.Notice
	found    bool
	err      error
}

// inputKind is a result produced off-loop and fed back into it.
type inputKind int

const (
	inGroupLoaded inputKind = iota
	inSnapshot
	inLiveUpdate
	inPresence
	inFeedClosed
	inReconnect
	inDispatched
)

const (
	feedLive     = "live"
	feedPresence = "presence"
)

type input struct {
	kind     inputKind
	gen      uint64
	group    core.Group
	messages []core.Message
	presence []core.PresenceEvent
	feed     string
	out      core.OutboundMessage
	err      error
	reply    chan reply
}
