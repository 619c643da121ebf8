package models

// User is a registered account. PasswordHash never leaves the server.
type User struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	ProfilePicture string `json:"profile_picture,omitempty"`
	PasswordHash   string `json:"-"`
	CreatedTS      int64  `json:"created_ts,omitempty"`
}

// PublicUser is the projection of a user safe to return to other users.
type PublicUser struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	ProfilePicture string `json:"profile_picture,omitempty"`
}

func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Phone: u.Phone, ProfilePicture: u.ProfilePicture}
}

// Thread is the single conversation between exactly two users.
// Participants is stored sorted so the pair is canonical.
type Thread struct {
	ID              string   `json:"id"`
	Participants    []string `json:"participants"`
	LastMessageText string   `json:"last_message_text"`
	LastMessageTS   int64    `json:"last_message_ts,omitempty"`
	CreatedTS       int64    `json:"created_ts,omitempty"`
	// ClearedTS is set when the thread's messages were last wiped; the
	// retention sweeper uses it to expire abandoned cleared threads.
	ClearedTS int64 `json:"cleared_ts,omitempty"`
}

// HasParticipant reports whether id is one of the thread's two members.
func (t Thread) HasParticipant(id string) bool {
	for _, p := range t.Participants {
		if p == id {
			return true
		}
	}
	return false
}

// OtherParticipant returns the member that is not id, or "".
func (t Thread) OtherParticipant(id string) string {
	for _, p := range t.Participants {
		if p != id {
			return p
		}
	}
	return ""
}

// ReadReceipt records that a user read a message at a point in time.
type ReadReceipt struct {
	User   string `json:"user"`
	ReadAt int64  `json:"read_at"`
}

// Reaction is one user's emoji on a message. A user holds at most one
// reaction per message.
type Reaction struct {
	User  string `json:"user"`
	Emoji string `json:"emoji"`
}

// Message belongs to exactly one thread. Text is immutable after
// creation; only ReadBy and Reactions mutate, and always through
// store.UpdateMessage so the read-modify-write is serialized per message.
type Message struct {
	ID       string `json:"id"`
	Thread   string `json:"thread"`
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Text     string `json:"text"`
	// CreatedTS (ns) and Seq together form the thread-ordered storage key.
	CreatedTS int64         `json:"created_ts"`
	Seq       uint64        `json:"seq"`
	ReadBy    []ReadReceipt `json:"read_by,omitempty"`
	Reactions []Reaction    `json:"reactions,omitempty"`
}

// ReadBySet reports whether user already has a read receipt on m.
func (m Message) ReadBySet(user string) bool {
	for _, r := range m.ReadBy {
		if r.User == user {
			return true
		}
	}
	return false
}

// ToggleReaction returns a new reaction list with the per-user toggle
// rule applied: same emoji again removes the user's reaction, a
// different emoji replaces it, otherwise the reaction is appended. The
// input slice is not mutated.
func ToggleReaction(reactions []Reaction, user, emoji string) []Reaction {
	out := make([]Reaction, 0, len(reactions)+1)
	found := false
	for _, r := range reactions {
		if r.User != user {
			out = append(out, r)
			continue
		}
		found = true
		if r.Emoji != emoji {
			out = append(out, Reaction{User: user, Emoji: emoji})
		}
		// same emoji: drop it
	}
	if !found {
		out = append(out, Reaction{User: user, Emoji: emoji})
	}
	return out
}
