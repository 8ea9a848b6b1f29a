// Package event holds the payloads pushed over the realtime feed.
package event

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	chat "kala-setu/internal/pkg/chat/application/domain"
)

const (
	TypeInsert              = "INSERT"
	TypeConversationUpdated = "conversation_updated"

	TableMessages = "messages"
)

// ConversationTopic carries message inserts for one conversation.
func ConversationTopic(conversationID string) string {
	return "chat:conversation:" + conversationID
}

// InboxTopic carries conversation list updates for one user.
func InboxTopic(userID string) string {
	return "chat:inbox:" + userID
}

// ConversationUpdate is the preview refresh sent to a participant's inbox.
type ConversationUpdate struct {
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	LastMessage    string    `json:"last_message"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Envelope is the wire shape of every feed payload. Inserts carry Record,
// inbox updates carry Conversation.
type Envelope struct {
	Type         string              `json:"type"`
	Table        string              `json:"table,omitempty"`
	Record       *chat.Message       `json:"record,omitempty"`
	Conversation *ConversationUpdate `json:"conversation,omitempty"`
}

func MessageInserted(m chat.Message) Envelope {
	return Envelope{Type: TypeInsert, Table: TableMessages, Record: &m}
}

func ConversationUpdated(m chat.Message) Envelope {
	return Envelope{
		Type: TypeConversationUpdated,
		Conversation: &ConversationUpdate{
			ConversationID: m.ConversationID,
			SenderID:       m.SenderID,
			LastMessage:    m.Content,
			UpdatedAt:      m.CreatedAt,
		},
	}
}

func Encode(e Envelope) ([]byte, error) {
	b, err := json.Marshal(e)
	return b, errors.Wrap(err, "event: encode")
}

// Decode parses a feed payload and rejects envelopes missing their body.
func Decode(payload []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(payload, &e); err != nil {
		return Envelope{}, errors.Wrap(err, "event: decode")
	}
	switch e.Type {
	case TypeInsert:
		if e.Table != TableMessages || e.Record == nil || e.Record.ID == "" {
			return Envelope{}, errors.Errorf("event: malformed %s event", e.Type)
		}
	case TypeConversationUpdated:
		if e.Conversation == nil || e.Conversation.ConversationID == "" {
			return Envelope{}, errors.Errorf("event: malformed %s event", e.Type)
		}
	default:
		return Envelope{}, errors.Errorf("event: unknown type %q", e.Type)
	}
	return e, nil
}
