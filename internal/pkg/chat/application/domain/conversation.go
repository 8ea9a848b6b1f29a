package chat

import "time"

// Conversation is the 1:1 thread between two profiles. Participants are stored
// canonically (Participant1.ID < Participant2.ID); the order carries no meaning.
type Conversation struct {
	ID           string    `db:"id"`
	Participant1 Profile   `db:"-"`
	Participant2 Profile   `db:"-"`
	LastMessage  *string   `db:"last_message"`
	UpdatedAt    time.Time `db:"updated_at"`
	CreatedAt    time.Time `db:"created_at"`
}

// HasParticipant tells whether userID is one of the two participants.
func (c Conversation) HasParticipant(userID string) bool {
	if userID == "" {
		return false
	}
	return c.Participant1.ID == userID || c.Participant2.ID == userID
}

// Participant returns the profile of userID if it takes part in the conversation.
func (c Conversation) Participant(userID string) (Profile, bool) {
	switch {
	case userID == "":
		return Profile{}, false
	case c.Participant1.ID == userID:
		return c.Participant1, true
	case c.Participant2.ID == userID:
		return c.Participant2, true
	}
	return Profile{}, false
}

// Counterpart returns whichever participant is not the viewer.
func (c Conversation) Counterpart(viewerID string) (Profile, bool) {
	switch {
	case viewerID == "":
		return Profile{}, false
	case c.Participant1.ID == viewerID:
		return c.Participant2, true
	case c.Participant2.ID == viewerID:
		return c.Participant1, true
	}
	return Profile{}, false
}

// CanonicalPair orders two participant IDs the way they are stored.
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}
