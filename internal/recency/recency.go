// Package recency turns backend-supplied elapsed minutes into display labels.
package recency

import (
	"fmt"

	"github.com/vovakirdan/chatpad-sync/internal/core"
)

// Tier is one of the four contiguous elapsed-time ranges.
type Tier int

const (
	// TierNow covers exactly zero minutes.
	TierNow Tier = iota
	// TierMinutes covers 1 to 59 minutes.
	TierMinutes
	// TierToday covers 60 to 1439 minutes.
	TierToday
	// TierOlder covers a day and beyond.
	TierOlder
)

const (
	minutesPerHour = 60
	minutesPerDay  = 24 * minutesPerHour
)

func (t Tier) String() string {
	switch t {
	case TierNow:
		return "now"
	case TierMinutes:
		return "minutes"
	case TierToday:
		return "today"
	case TierOlder:
		return "older"
	default:
		return "unknown"
	}
}

// DisplayLabel is the rendered recency of a message.
type DisplayLabel struct {
	Tier    Tier
	Minutes int
	Date    core.DateLabel
}

// Label classifies elapsedMinutes. Negative input is rejected with
// core.ErrInvalidTimestamp.
func Label(elapsedMinutes int, date core.DateLabel) (DisplayLabel, error) {
	if elapsedMinutes < 0 {
		return DisplayLabel{}, core.Wrap(core.ErrCodeInvalidTimestamp,
			fmt.Sprintf("elapsed minutes must be non-negative, got %d", elapsedMinutes), nil)
	}

	l := DisplayLabel{Minutes: elapsedMinutes, Date: date}
	switch {
	case elapsedMinutes == 0:
		l.Tier = TierNow
	case elapsedMinutes < minutesPerHour:
		l.Tier = TierMinutes
	case elapsedMinutes < minutesPerDay:
		l.Tier = TierToday
	default:
		l.Tier = TierOlder
	}
	return l, nil
}

// String renders the header form shown next to a conversation.
func (l DisplayLabel) String() string {
	switch l.Tier {
	case TierNow:
		return "Currently active"
	case TierMinutes:
		return fmt.Sprintf("%d mins ago", l.Minutes)
	case TierToday:
		return "Last active at " + l.Date.Time
	default:
		return fmt.Sprintf("Last active on %s at %s", l.Date.Day, l.Date.Time)
	}
}

// Compact renders the short form shown under each message.
func (l DisplayLabel) Compact() string {
	switch l.Tier {
	case TierNow:
		return "Now"
	case TierMinutes:
		return fmt.Sprintf("%d mins", l.Minutes)
	case TierToday:
		return l.Date.Time
	default:
		return l.Date.Day + " " + l.Date.Time
	}
}

// Of labels a message.
func Of(m core.Message) (DisplayLabel, error) {
	return Label(m.ElapsedMinutes, m.Date)
}
