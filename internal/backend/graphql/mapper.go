package graphql

import (
	"github.com/vovakirdan/chatpad-sync/internal/core"
	"github.com/vovakirdan/chatpad-sync/internal/proto"
)

func messageToCore(m proto.Message) core.Message {
	var date core.DateLabel
	if len(m.Date) > 0 {
		date.Day = m.Date[0]
	}
	if len(m.Date) > 1 {
		date.Time = m.Date[1]
	}
	return core.Message{
		ID:      m.MessageID,
		GroupID: m.GroupID,
		Author: core.AuthorSnapshot{
			ID:             m.Author.ID,
			Username:       m.Author.Username,
			Email:          m.Author.Email,
			ProfilePicture: m.Author.ProfilePicture,
		},
		Body:           m.Body,
		IsImage:        m.Image,
		ElapsedMinutes: m.Time,
		Date:           date,
		Status:         core.StatusConfirmed,
	}
}

func messagesToCore(in []proto.Message, groupID string) []core.Message {
	out := make([]core.Message, 0, len(in))
	for _, m := range in {
		cm := messageToCore(m)
		// The initial-messages query scopes by group but may omit groupid.
		if cm.GroupID == "" {
			cm.GroupID = groupID
		}
		out = append(out, cm)
	}
	return out
}

func userToCore(u proto.User) core.User {
	return core.User{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		ProfilePicture: u.ProfilePicture,
		DarkTheme:      u.DarkTheme == "true",
		Online:         u.Online,
		Typing:         u.Typing,
	}
}

func groupToCore(g proto.Group) core.Group {
	members := make([]core.User, 0, len(g.Members))
	for _, m := range g.Members {
		members = append(members, userToCore(m))
	}
	return core.Group{ID: g.ID, Name: g.Name, Members: members}
}

func presenceToCore(users []proto.User) []core.PresenceEvent {
	out := make([]core.PresenceEvent, 0, len(users))
	for _, u := range users {
		out = append(out, core.PresenceEvent{UserID: u.ID, Online: u.Online, Typing: u.Typing})
	}
	return out
}

func authorToProto(a core.AuthorSnapshot) proto.Author {
	return proto.Author{
		ID:             a.ID,
		Username:       a.Username,
		Email:          a.Email,
		ProfilePicture: a.ProfilePicture,
	}
}
