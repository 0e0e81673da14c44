package local

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mmuslimabdulj/hero-arena/internal/ledger"
)

func openTestLedger(t *testing.T, opts Options) *Ledger {
	t.Helper()
	l, err := Open(context.Background(), filepath.Join(t.TempDir(), "heroes.db"), opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func createHero(t *testing.T, l *Ledger, owner, name string) string {
	t.Helper()
	r, err := l.Submit(context.Background(), ledger.Call{Sender: owner, Action: ledger.ActionCreateHero, Name: name})
	if err != nil {
		t.Fatalf("create_hero: %v", err)
	}
	return r.HeroID
}

func TestOpen_RequiresPath(t *testing.T) {
	if _, err := Open(context.Background(), " ", Options{}); err == nil {
		t.Error("Expected error for empty path")
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heroes.db")

	l, err := Open(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	id := createHero(t, l, "0xabc", "Arin")
	l.Close()

	l, err = Open(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	defer l.Close()

	if _, err := l.Hero(context.Background(), id); err != nil {
		t.Errorf("Expected hero to persist, got %v", err)
	}
}

func TestLedger_CreateHero(t *testing.T) {
	l := openTestLedger(t, Options{})

	r, err := l.Submit(context.Background(), ledger.Call{Sender: "0xabc", Action: ledger.ActionCreateHero, Name: " Arin "})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if r.Digest == "" {
		t.Error("Expected a digest")
	}
	if !strings.HasPrefix(r.HeroID, "0x") || len(r.HeroID) != 66 {
		t.Errorf("Expected 32-byte hex id, got %s", r.HeroID)
	}

	rec, err := l.Hero(context.Background(), r.HeroID)
	if err != nil {
		t.Fatalf("Hero: %v", err)
	}
	if *rec.Name != "Arin" || *rec.HP != 100 || *rec.XP != 0 || *rec.Level != 1 {
		t.Errorf("Unexpected record name=%s hp=%d xp=%d level=%d", *rec.Name, *rec.HP, *rec.XP, *rec.Level)
	}
}

func TestLedger_CreateHeroInvalidName(t *testing.T) {
	l := openTestLedger(t, Options{})

	if _, err := l.Submit(context.Background(), ledger.Call{Sender: "0xabc", Action: ledger.ActionCreateHero}); err == nil {
		t.Error("Expected empty name to be rejected")
	}
}

func TestLedger_BattleAndHeal(t *testing.T) {
	l := openTestLedger(t, Options{})
	ctx := context.Background()
	id := createHero(t, l, "0xabc", "Arin")

	for i := 0; i < 4; i++ {
		if _, err := l.Submit(ctx, ledger.Call{Sender: "0xabc", Action: ledger.ActionBattle, HeroID: id}); err != nil {
			t.Fatalf("battle %d: %v", i, err)
		}
	}
	rec, _ := l.Hero(ctx, id)
	if *rec.HP != 20 || *rec.XP != 80 || *rec.Level != 1 {
		t.Errorf("Expected {20 80 1}, got {%d %d %d}", *rec.HP, *rec.XP, *rec.Level)
	}

	// fifth battle levels up
	l.Submit(ctx, ledger.Call{Sender: "0xabc", Action: ledger.ActionBattle, HeroID: id})
	rec, _ = l.Hero(ctx, id)
	if *rec.HP != 100 || *rec.XP != 0 || *rec.Level != 2 {
		t.Errorf("Expected {100 0 2}, got {%d %d %d}", *rec.HP, *rec.XP, *rec.Level)
	}

	if _, err := l.db.Exec(`UPDATE heroes SET hp = 10 WHERE id = ?`, id); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Submit(ctx, ledger.Call{Sender: "0xabc", Action: ledger.ActionBattle, HeroID: id}); !errors.Is(err, ErrTooWeak) {
		t.Errorf("Expected ErrTooWeak, got %v", err)
	}

	if _, err := l.Submit(ctx, ledger.Call{Sender: "0xabc", Action: ledger.ActionHeal, HeroID: id}); err != nil {
		t.Fatalf("heal: %v", err)
	}
	rec, _ = l.Hero(ctx, id)
	if *rec.HP != 100 || *rec.Level != 2 {
		t.Errorf("Expected healed hero at level 2, got hp=%d level=%d", *rec.HP, *rec.Level)
	}
}

func TestLedger_Rejections(t *testing.T) {
	l := openTestLedger(t, Options{})
	id := createHero(t, l, "0xabc", "Arin")

	tests := []struct {
		name string
		call ledger.Call
		want error
	}{
		{"Unknown hero", ledger.Call{Sender: "0xabc", Action: ledger.ActionHeal, HeroID: "0xmissing"}, ledger.ErrNotFound},
		{"Foreign hero", ledger.Call{Sender: "0xdef", Action: ledger.ActionBattle, HeroID: id}, ErrNotOwner},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := l.Submit(context.Background(), tc.call); !errors.Is(err, tc.want) {
				t.Errorf("Expected %v, got %v", tc.want, err)
			}
		})
	}

	if _, err := l.Submit(context.Background(), ledger.Call{Sender: "0xabc", Action: "explode", HeroID: id}); err == nil {
		t.Error("Expected unknown action to fail")
	}
}

func TestLedger_HeroNotFound(t *testing.T) {
	l := openTestLedger(t, Options{})

	if _, err := l.Hero(context.Background(), "0x1"); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestLedger_OwnedHeroes(t *testing.T) {
	l := openTestLedger(t, Options{})
	first := createHero(t, l, "0xabc", "First")
	createHero(t, l, "0xdef", "Other")
	second := createHero(t, l, "0xabc", "Second")

	heroes, err := l.OwnedHeroes(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("OwnedHeroes: %v", err)
	}
	if len(heroes) != 2 || heroes[0].ID != first || heroes[1].ID != second {
		t.Errorf("Expected [%s %s] in creation order, got %+v", first, second, heroes)
	}

	none, err := l.OwnedHeroes(context.Background(), "0x999")
	if err != nil || len(none) != 0 {
		t.Errorf("Expected no heroes, got %v (%v)", none, err)
	}
}

func TestLedger_LatencyHonorsContext(t *testing.T) {
	l := openTestLedger(t, Options{Latency: time.Hour})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := l.Submit(ctx, ledger.Call{Sender: "0xabc", Action: ledger.ActionCreateHero, Name: "Arin"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}
