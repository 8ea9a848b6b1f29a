package controller

import (
	chat "kala-setu/internal/pkg/chat/application/domain"
)

// messageView is a stored message plus the bubble the viewer should draw.
type messageView struct {
	chat.Message
	Rendering chat.Rendering `json:"rendering"`
}

func viewOf(m chat.Message, viewerID string) messageView {
	return messageView{Message: m, Rendering: m.Render(viewerID)}
}

func viewsOf(msgs []chat.Message, viewerID string) []messageView {
	out := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, viewOf(m, viewerID))
	}
	return out
}
