package proto

// Author is the author snapshot embedded in a message.
type Author struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	ProfilePicture string `json:"profile_picture"`
}

// Message is a chat message as the backend serializes it. Time is elapsed
// minutes; Date is the (day, time) pair.
type Message struct {
	MessageID string   `json:"messageid"`
	GroupID   string   `json:"groupid"`
	Body      string   `json:"body"`
	Author    Author   `json:"author"`
	Image     bool     `json:"image"`
	Time      int      `json:"time"`
	Date      []string `json:"date"`
}

// User is a directory or presence entry. DarkTheme arrives as "true"/"false".
type User struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	ProfilePicture string `json:"profile_picture"`
	DarkTheme      string `json:"dark_theme,omitempty"`
	Online         bool   `json:"online"`
	Typing         bool   `json:"typing"`
}

// Group is a conversation and its members.
type Group struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Members []User `json:"members"`
}
