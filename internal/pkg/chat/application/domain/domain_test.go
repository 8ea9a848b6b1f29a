package chat

import (
	"errors"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func testConversation() Conversation {
	return Conversation{
		ID:           "c1",
		Participant1: Profile{ID: "a", FullName: "Asha", Language: LanguageEnglish},
		Participant2: Profile{ID: "b", FullName: "Bhavesh", Language: LanguageHindi},
	}
}

func TestRenderAuthorSeesOriginal(t *testing.T) {
	msgs := []Message{
		{SenderID: "a", Content: "Hello"},
		{SenderID: "a", Content: "Hello", Translated: strPtr("नमस्ते")},
		{SenderID: "a", Content: "Hello", Translated: strPtr("")},
	}
	for _, m := range msgs {
		r := m.Render("a")
		if r.Primary != "Hello" || r.Secondary != nil || !r.Mine {
			t.Errorf("author rendering for %+v = %+v", m, r)
		}
	}
}

func TestRenderRecipient(t *testing.T) {
	tests := []struct {
		name      string
		msg       Message
		primary   string
		secondary string
	}{
		{"no translation", Message{SenderID: "b", Content: "नमस्ते"}, "नमस्ते", ""},
		{"translation differs", Message{SenderID: "b", Content: "नमस्ते", Translated: strPtr("Hello")}, "Hello", "नमस्ते"},
		{"translation equal", Message{SenderID: "b", Content: "ok", Translated: strPtr("ok")}, "ok", ""},
		{"translation empty", Message{SenderID: "b", Content: "ok", Translated: strPtr("")}, "ok", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.msg.Render("a")
			if r.Mine {
				t.Fatalf("recipient rendering marked as mine")
			}
			if r.Primary != tt.primary {
				t.Errorf("primary = %q, want %q", r.Primary, tt.primary)
			}
			switch {
			case tt.secondary == "" && r.Secondary != nil:
				t.Errorf("unexpected secondary %q", *r.Secondary)
			case tt.secondary != "" && (r.Secondary == nil || *r.Secondary != tt.secondary):
				t.Errorf("secondary = %v, want %q", r.Secondary, tt.secondary)
			}
		})
	}
}

func TestCounterpart(t *testing.T) {
	c := testConversation()

	if p, ok := c.Counterpart("a"); !ok || p.ID != "b" {
		t.Errorf("counterpart of a = %+v, %v", p, ok)
	}
	if p, ok := c.Counterpart("b"); !ok || p.ID != "a" {
		t.Errorf("counterpart of b = %+v, %v", p, ok)
	}
	if _, ok := c.Counterpart("z"); ok {
		t.Errorf("outsider should have no counterpart")
	}
	if _, ok := c.Counterpart(""); ok {
		t.Errorf("empty viewer should have no counterpart")
	}
}

func TestCanonicalPair(t *testing.T) {
	a, b := CanonicalPair("z", "a")
	if a != "a" || b != "z" {
		t.Errorf("got %s,%s", a, b)
	}
	a, b = CanonicalPair("a", "z")
	if a != "a" || b != "z" {
		t.Errorf("got %s,%s", a, b)
	}
}

func TestParseLanguage(t *testing.T) {
	if l, err := ParseLanguage(" HI "); err != nil || l != LanguageHindi {
		t.Errorf("ParseLanguage(HI) = %q, %v", l, err)
	}
	if _, err := ParseLanguage("fr"); !errors.Is(err, ErrUnsupportedLanguage) {
		t.Errorf("expected ErrUnsupportedLanguage, got %v", err)
	}
	if _, err := ParseLanguage(""); !errors.Is(err, ErrUnsupportedLanguage) {
		t.Errorf("expected ErrUnsupportedLanguage for empty, got %v", err)
	}
	if LanguageUnset.Or(DefaultLanguage) != LanguageEnglish {
		t.Errorf("unset language should fall back to default")
	}
	if len(SupportedLanguages()) != 6 {
		t.Errorf("expected 6 supported languages")
	}
}

func TestPostMessage(t *testing.T) {
	chat := &Chat{Conversation: testConversation()}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	d, err := chat.PostMessage("a", "Hello, is this available?", now)
	if err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	if d.SourceLanguage != LanguageEnglish || d.TargetLanguage != LanguageHindi {
		t.Errorf("direction = %s -> %s", d.SourceLanguage, d.TargetLanguage)
	}
	if d.Message.Content != "Hello, is this available?" || d.Message.ConversationID != "c1" || !d.Message.CreatedAt.Equal(now) {
		t.Errorf("unexpected draft %+v", d.Message)
	}

	if _, err := chat.PostMessage("z", "hi", now); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("expected ErrNotParticipant, got %v", err)
	}
	if _, err := chat.PostMessage("a", "   ", now); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestPostMessageDefaultsUnsetLanguages(t *testing.T) {
	conv := testConversation()
	conv.Participant2.Language = LanguageUnset
	chat := &Chat{Conversation: conv}

	d, err := chat.PostMessage("a", "hi", time.Time{})
	if err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	if d.TargetLanguage != DefaultLanguage {
		t.Errorf("target = %s, want default", d.TargetLanguage)
	}
	if d.Message.CreatedAt.IsZero() {
		t.Errorf("expected timestamp to be filled")
	}
}
