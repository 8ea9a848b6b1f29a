package chat

import (
	"strings"
	"time"
)

// Message is an immutable entry in a conversation. Content is what the sender
// typed; Translated is an optional rendering in another language, filled at send
// time for the recipient or recomputed per viewer without being persisted.
type Message struct {
	ID             string    `db:"id" json:"id"`
	ConversationID string    `db:"conversation_id" json:"conversation_id"`
	SenderID       string    `db:"sender_id" json:"sender_id"`
	Content        string    `db:"content" json:"content"`
	Translated     *string   `db:"translated_content" json:"translated_content,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Rendering is what a viewer sees for one message bubble.
type Rendering struct {
	Primary   string  `json:"primary"`
	Secondary *string `json:"secondary,omitempty"`
	Mine      bool    `json:"mine"`
}

// Render applies the bilingual bubble rule: authors always see their own original;
// recipients see the translation first with the original underneath, but only when
// the translation exists and differs from the original.
func (m Message) Render(viewerID string) Rendering {
	if m.SenderID == viewerID {
		return Rendering{Primary: m.Content, Mine: true}
	}
	if m.Translated != nil && *m.Translated != "" && *m.Translated != m.Content {
		original := m.Content
		return Rendering{Primary: *m.Translated, Secondary: &original}
	}
	return Rendering{Primary: m.Content}
}

// WithTranslation returns a copy of m carrying translated.
func (m Message) WithTranslation(translated string) Message {
	m.Translated = &translated
	return m
}

// IsBlank reports whether text has nothing worth sending or translating.
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}
