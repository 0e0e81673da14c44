package domain

import (
	"encoding/json"
	"time"
)

// MessageType defines the type of message being sent
type MessageType string

const (
	// Browser -> server
	MessageTypeConnect    MessageType = "connect"     // Connect a wallet identity
	MessageTypeDisconnect MessageType = "disconnect"  // Clear the identity
	MessageTypeCreateHero MessageType = "create_hero" // Create a hero
	MessageTypeBattle     MessageType = "battle"      // Fight
	MessageTypeHeal       MessageType = "heal"        // Restore health
	MessageTypeDiscard    MessageType = "discard"     // Drop the local hero to start over
	MessageTypeRefresh    MessageType = "refresh"     // Re-run ownership discovery

	// Server -> browser
	MessageTypeHeroState    MessageType = "hero_state"    // Full view snapshot
	MessageTypeNotice       MessageType = "notice"        // Transient notification
	MessageTypeSessionToken MessageType = "session_token" // Token for identity restore
	MessageTypeActivity     MessageType = "activity"      // Replayed notice history
)

// NoticeLevel is the severity of a notice
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
	NoticeInfo    NoticeLevel = "info"
)

// Message is the envelope exchanged over the WebSocket
type Message struct {
	ID        string          `json:"id"`
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ConnectPayload is the payload for identity connect requests
type ConnectPayload struct {
	Address string `json:"address"`
}

// CreateHeroPayload is the payload for hero creation requests
type CreateHeroPayload struct {
	Name string `json:"name"`
}

// NoticePayload is a user-facing notification
type NoticePayload struct {
	Level    NoticeLevel `json:"level"`
	Text     string      `json:"text"`
	Digest   string      `json:"digest,omitempty"` // transaction digest, when one exists
	Address  string      `json:"-"`                // identity the notice belongs to
	Activity bool        `json:"-"`                // worth keeping in the identity's history
}

// HeroStatePayload is the session view sent after every change
type HeroStatePayload struct {
	State     string `json:"state"`
	Address   string `json:"address,omitempty"`
	Hero      *Hero  `json:"hero,omitempty"`
	Crest     string `json:"crest,omitempty"` // accent color of the hero card
	Busy      bool   `json:"busy"`
	CanBattle bool   `json:"can_battle"`
	Defeated  bool   `json:"defeated"`
}

// SessionTokenPayload carries the reconnect token
type SessionTokenPayload struct {
	Token string `json:"token"`
}

// ActivityPayload carries the recent notices of an identity
type ActivityPayload struct {
	Notices []NoticePayload `json:"notices"`
}
