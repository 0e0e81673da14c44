// Package ledger describes the external services that own canonical hero
// state: a mutation service that executes game actions and a query service
// that reads hero objects back.
package ledger

import (
	"context"
	"errors"

	"github.com/mmuslimabdulj/hero-arena/internal/domain"
)

// Action names a game entry point on the ledger.
type Action string

const (
	ActionCreateHero Action = "create_hero"
	ActionBattle     Action = "battle"
	ActionHeal       Action = "heal"
)

// ErrNotFound is returned when a hero object does not exist.
var ErrNotFound = errors.New("ledger: hero not found")

// Call is a single mutation request.
type Call struct {
	Sender string // connected identity address
	Action Action
	HeroID string // target object, empty for create_hero
	Name   string // create_hero argument
}

// Receipt is the acknowledgement of an executed call.
type Receipt struct {
	Digest string
	// HeroID is the object created by the call, when the ledger reports one.
	HeroID string
}

// Mutator submits calls to the ledger.
type Mutator interface {
	Submit(ctx context.Context, call Call) (Receipt, error)
}

// Querier reads canonical hero state.
type Querier interface {
	Hero(ctx context.Context, id string) (domain.HeroRecord, error)
	OwnedHeroes(ctx context.Context, owner string) ([]domain.HeroRecord, error)
}

// Ledger is both halves of the external service.
type Ledger interface {
	Mutator
	Querier
}
