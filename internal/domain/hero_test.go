package domain

import (
	"errors"
	"strings"
	"testing"
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestNewHero_Defaults(t *testing.T) {
	h := NewHero("0x1", "Arin")

	if h.HP != 100 || h.XP != 0 || h.Level != 1 {
		t.Errorf("Expected {hp:100 xp:0 level:1}, got {hp:%d xp:%d level:%d}", h.HP, h.XP, h.Level)
	}
	if h.Provisional {
		t.Error("Expected new hero not to be provisional")
	}
}

func TestHero_ApplyBattle(t *testing.T) {
	tests := []struct {
		name  string
		start Hero
		want  Hero
	}{
		{"Fresh hero", Hero{HP: 100, XP: 0, Level: 1}, Hero{HP: 80, XP: 20, Level: 1}},
		{"Level up resets", Hero{HP: 100, XP: 90, Level: 2}, Hero{HP: 100, XP: 0, Level: 3}},
		{"Level up exactly at 100", Hero{HP: 40, XP: 80, Level: 1}, Hero{HP: 100, XP: 0, Level: 2}},
		{"Low hp clamps at zero", Hero{HP: 20, XP: 0, Level: 1}, Hero{HP: 0, XP: 20, Level: 1}},
		{"Mid game", Hero{HP: 60, XP: 40, Level: 4}, Hero{HP: 40, XP: 60, Level: 4}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := tc.start
			h.ApplyBattle()
			if h.HP != tc.want.HP || h.XP != tc.want.XP || h.Level != tc.want.Level {
				t.Errorf("Expected %+v, got %+v", tc.want, h)
			}
		})
	}
}

func TestHero_ApplyBattleProperties(t *testing.T) {
	for hp := MinBattleHP; hp <= MaxHP; hp += 5 {
		for xp := 0; xp < XPPerLevel; xp += 10 {
			h := Hero{HP: hp, XP: xp, Level: 3}
			h.ApplyBattle()

			if xp+BattleXP >= XPPerLevel {
				if h.XP != 0 || h.Level != 4 || h.HP != MaxHP {
					t.Fatalf("hp=%d xp=%d: expected level up, got %+v", hp, xp, h)
				}
				continue
			}
			if h.XP != xp+BattleXP || h.Level != 3 || h.HP != ClampHP(hp-BattleDamage) {
				t.Fatalf("hp=%d xp=%d: unexpected result %+v", hp, xp, h)
			}
		}
	}
}

func TestHero_ApplyHeal(t *testing.T) {
	h := Hero{HP: 10, XP: 40, Level: 2}
	h.ApplyHeal()

	if h.HP != 100 {
		t.Errorf("Expected hp 100, got %d", h.HP)
	}
	if h.XP != 40 || h.Level != 2 {
		t.Error("Expected heal to leave xp and level unchanged")
	}
}

func TestHero_CanBattleAndDefeated(t *testing.T) {
	if (&Hero{HP: 19}).CanBattle() {
		t.Error("Expected hp 19 to block battle")
	}
	if !(&Hero{HP: 20}).CanBattle() {
		t.Error("Expected hp 20 to allow battle")
	}
	if !(&Hero{HP: 0}).Defeated() {
		t.Error("Expected hp 0 to be defeated")
	}
	if (&Hero{HP: 1}).Defeated() {
		t.Error("Expected hp 1 not to be defeated")
	}
}

func TestHero_Merge(t *testing.T) {
	h := &Hero{ID: "0x1", Name: "Arin", HP: 80, XP: 20, Level: 1}

	changed := h.Merge(HeroRecord{ID: "0x1", HP: intPtr(60), XP: intPtr(40), Level: intPtr(1)})
	if !changed {
		t.Error("Expected merge to report a change")
	}
	if h.HP != 60 || h.XP != 40 || h.Level != 1 {
		t.Errorf("Expected canonical stats, got %+v", h)
	}

	if h.Merge(HeroRecord{ID: "0x1", HP: intPtr(60), XP: intPtr(40), Level: intPtr(1)}) {
		t.Error("Expected identical record to report no change")
	}
}

func TestHero_MergeKeepsKnownName(t *testing.T) {
	h := &Hero{ID: "0x1", Name: "Arin", HP: 100, XP: 0, Level: 1}

	h.Merge(HeroRecord{ID: "0x1", Name: strPtr("Other")})
	if h.Name != "Arin" {
		t.Errorf("Expected name to stay 'Arin', got %q", h.Name)
	}

	h.Merge(HeroRecord{ID: "0x1", HP: intPtr(50)})
	if h.Name != "Arin" {
		t.Errorf("Expected absent canonical name to leave 'Arin', got %q", h.Name)
	}
	if h.XP != 0 || h.Level != 1 {
		t.Error("Expected absent canonical fields to keep local values")
	}
}

func TestHero_MergeAdoptsUnknownName(t *testing.T) {
	h := &Hero{ID: "0x1", HP: 100, Level: 1}

	if !h.Merge(HeroRecord{ID: "0x1", Name: strPtr("Arin")}) {
		t.Error("Expected name adoption to report a change")
	}
	if h.Name != "Arin" {
		t.Errorf("Expected name 'Arin', got %q", h.Name)
	}
}

func TestHeroFromRecord_Defaults(t *testing.T) {
	h := HeroFromRecord(HeroRecord{ID: "0xabc", Name: strPtr("Arin"), XP: intPtr(40)})

	if h.ID != "0xabc" || h.Name != "Arin" {
		t.Errorf("Unexpected identity fields %+v", h)
	}
	if h.HP != 100 || h.XP != 40 || h.Level != 1 {
		t.Errorf("Expected defaults for absent fields, got %+v", h)
	}
}

func TestNormalizeHeroName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"Normal", "Arin", "Arin", nil},
		{"Trimmed", "  Arin  ", "Arin", nil},
		{"Empty", "", "", ErrHeroNameEmpty},
		{"Whitespace only", "   ", "", ErrHeroNameEmpty},
		{"Exactly 20", strings.Repeat("a", 20), strings.Repeat("a", 20), nil},
		{"Too long", strings.Repeat("a", 21), "", ErrHeroNameTooLong},
		{"Multibyte counted as characters", strings.Repeat("\u00e9", 20), strings.Repeat("\u00e9", 20), nil},
		{"Decomposed is composed", "Ame\u0301lie", "Am\u00e9lie", nil},
		{"Decomposed counts once", strings.Repeat("e\u0301", 20), strings.Repeat("\u00e9", 20), nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeHeroName(tc.input)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Expected error %v, got %v", tc.wantErr, err)
			}
			if got != tc.want {
				t.Errorf("Expected %q, got %q", tc.want, got)
			}
		})
	}
}
