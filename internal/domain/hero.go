package domain

import (
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Hero is the local view of the player's on-chain hero
type Hero struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	HP    int    `json:"hp"`
	XP    int    `json:"xp"`
	Level int    `json:"level"`

	// Provisional is set when ID was synthesized locally because the
	// ledger did not report the created object
	Provisional bool `json:"provisional,omitempty"`
}

// HeroRecord is the canonical state of a hero as read from the ledger.
// Nil fields were absent from the response.
type HeroRecord struct {
	ID    string
	Name  *string
	HP    *int
	XP    *int
	Level *int
}

// NewHero creates a hero with default stats
func NewHero(id, name string) *Hero {
	return &Hero{
		ID:    id,
		Name:  name,
		HP:    MaxHP,
		XP:    0,
		Level: StartLevel,
	}
}

// HeroFromRecord adopts a ledger record, filling absent fields with defaults
func HeroFromRecord(rec HeroRecord) *Hero {
	h := NewHero(rec.ID, "")
	if rec.Name != nil {
		h.Name = *rec.Name
	}
	if rec.HP != nil {
		h.HP = *rec.HP
	}
	if rec.XP != nil {
		h.XP = *rec.XP
	}
	if rec.Level != nil {
		h.Level = *rec.Level
	}
	return h
}

// Clone returns a copy safe to hand to renderers
func (h *Hero) Clone() *Hero {
	if h == nil {
		return nil
	}
	c := *h
	return &c
}

// CanBattle reports whether the hero has enough health to fight
func (h *Hero) CanBattle() bool {
	return h.HP >= MinBattleHP
}

// Defeated reports whether the hero has no health left
func (h *Hero) Defeated() bool {
	return h.HP <= 0
}

// ApplyBattle applies the optimistic result of a battle.
// Level-up and the health reset happen together.
func (h *Hero) ApplyBattle() {
	xp := h.XP + BattleXP
	if xp >= XPPerLevel {
		h.XP = 0
		h.Level++
		h.HP = MaxHP
		return
	}
	h.XP = xp
	h.HP = ClampHP(h.HP - BattleDamage)
}

// ApplyHeal restores full health
func (h *Hero) ApplyHeal() {
	h.HP = MaxHP
}

// Merge overwrites stats with canonical values when any of them differ.
// The name is only adopted while the local one is unknown.
// It reports whether anything changed.
func (h *Hero) Merge(rec HeroRecord) bool {
	hp, xp, level := h.HP, h.XP, h.Level
	if rec.HP != nil {
		hp = *rec.HP
	}
	if rec.XP != nil {
		xp = *rec.XP
	}
	if rec.Level != nil {
		level = *rec.Level
	}

	changed := false
	if hp != h.HP || xp != h.XP || level != h.Level {
		h.HP, h.XP, h.Level = hp, xp, level
		changed = true
	}
	if h.Name == "" && rec.Name != nil && *rec.Name != "" {
		h.Name = *rec.Name
		changed = true
	}
	return changed
}

// ClampHP bounds a health value to [0, MaxHP]
func ClampHP(hp int) int {
	if hp < 0 {
		return 0
	}
	if hp > MaxHP {
		return MaxHP
	}
	return hp
}

var (
	ErrHeroNameEmpty   = errors.New("hero name is required")
	ErrHeroNameTooLong = errors.New("hero name is too long")
)

// NormalizeHeroName trims and NFC-normalizes a name and checks its length in characters
func NormalizeHeroName(name string) (string, error) {
	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" {
		return "", ErrHeroNameEmpty
	}
	if utf8.RuneCountInString(name) > MaxHeroNameLength {
		return "", ErrHeroNameTooLong
	}
	return name, nil
}
