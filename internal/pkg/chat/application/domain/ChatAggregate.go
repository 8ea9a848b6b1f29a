package chat

import (
	"errors"
	"time"
)

// Domain-level errors for chat behaviors
var (
	ErrConversationNotFound = errors.New("chat: conversation not found")
	ErrNotParticipant       = errors.New("chat: user is not a participant in the conversation")
	ErrSelfConversation     = errors.New("chat: cannot open a conversation with yourself")
	ErrEmptyMessage         = errors.New("chat: empty message")
	ErrProfileNotFound      = errors.New("chat: profile not found")
	ErrUnsupportedLanguage  = errors.New("chat: unsupported language")
	ErrLanguageRequired     = errors.New("chat: preferred language not selected")
)

// Chat hydrates a conversation with the rules for posting into it.
// Persistence is handled by repositories outside the domain; this type only
// enforces rules and shapes intent.
type Chat struct {
	Conversation Conversation
}

// Draft is a validated message that has not been persisted yet, with the
// languages its translation has to go through.
type Draft struct {
	Message        Message
	SourceLanguage Language
	TargetLanguage Language
}

// PostMessage validates an outgoing message and picks the translation direction:
// from the sender's language to the counterpart's stored language, both falling
// back to DefaultLanguage when unset.
//
// Validations:
//   - Sender must be a participant
//   - Content must not be blank (the original is stored untouched otherwise)
func (c *Chat) PostMessage(senderID, content string, now time.Time) (Draft, error) {
	sender, ok := c.Conversation.Participant(senderID)
	if !ok {
		return Draft{}, ErrNotParticipant
	}
	if IsBlank(content) {
		return Draft{}, ErrEmptyMessage
	}
	counterpart, _ := c.Conversation.Counterpart(senderID)

	if now.IsZero() {
		now = time.Now()
	}
	return Draft{
		Message: Message{
			ConversationID: c.Conversation.ID,
			SenderID:       senderID,
			Content:        content,
			CreatedAt:      now.UTC(),
		},
		SourceLanguage: sender.Language.Or(DefaultLanguage),
		TargetLanguage: counterpart.Language.Or(DefaultLanguage),
	}, nil
}
