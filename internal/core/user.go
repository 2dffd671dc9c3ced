package core

import "fmt"

// User is a directory entry. Presence fields are informational only; the
// presence tracker keeps its own view.
type User struct {
	ID             string
	Username       string
	Email          string
	ProfilePicture string
	DarkTheme      bool
	Online         bool
	Typing         bool
}

// Group is a conversation between two or more users.
type Group struct {
	ID      string
	Name    string
	Members []User
}

// Validate checks the membership invariants of a group.
func (g Group) Validate() error {
	if g.ID == "" {
		return coreError(ErrCodeBadRequest, "group id is required")
	}
	if len(g.Members) < 2 {
		return coreError(ErrCodeBadRequest, fmt.Sprintf("group %s has %d members, need at least 2", g.ID, len(g.Members)))
	}
	seen := make(map[string]struct{}, len(g.Members))
	for _, m := range g.Members {
		if _, dup := seen[m.ID]; dup {
			return coreError(ErrCodeBadRequest, fmt.Sprintf("group %s lists member %s twice", g.ID, m.ID))
		}
		seen[m.ID] = struct{}{}
	}
	return nil
}

// HasMember reports whether userID belongs to the group.
func (g Group) HasMember(userID string) bool {
	for _, m := range g.Members {
		if m.ID == userID {
			return true
		}
	}
	return false
}

// MemberIDs returns the member ids in group order.
func (g Group) MemberIDs() []string {
	ids := make([]string, 0, len(g.Members))
	for _, m := range g.Members {
		ids = append(ids, m.ID)
	}
	return ids
}

// IsPair reports whether the group is a two-party conversation.
func (g Group) IsPair() bool {
	return len(g.Members) == 2
}
