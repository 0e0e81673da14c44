package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/mmuslimabdulj/hero-arena/internal/domain"
)

// encode builds a message envelope as JSON bytes
func encode(t domain.MessageType, payload any) []byte {
	raw, _ := json.Marshal(payload)

	msg := domain.Message{
		ID:        uuid.New().String(),
		Type:      t,
		Payload:   raw,
		CreatedAt: time.Now(),
	}

	data, _ := json.Marshal(msg)
	return data
}

// Announce sends an info notice to every connected client. Announcements
// are not kept in any identity's history.
func (h *Hub) Announce(text string) {
	h.Broadcast(encode(domain.MessageTypeNotice, domain.NoticePayload{
		Level: domain.NoticeInfo,
		Text:  text,
	}))
}
