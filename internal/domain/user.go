package domain

import "github.com/google/uuid"

// Player represents one browser session and the identity it has connected
type Player struct {
	ID      uuid.UUID `json:"id"`
	Address string    `json:"address,omitempty"` // empty until a wallet is connected
}

// NewPlayer creates a new Player with generated ID
func NewPlayer() *Player {
	return &Player{
		ID: uuid.New(),
	}
}
