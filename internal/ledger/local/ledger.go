// Package local is a development ledger persisted in SQLite. It mirrors the
// game rules closely enough to drive the front-end without a chain.
package local

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mmuslimabdulj/hero-arena/internal/domain"
	"github.com/mmuslimabdulj/hero-arena/internal/ledger"
)

var (
	// ErrNotOwner is returned when the sender does not own the target hero.
	ErrNotOwner = errors.New("local: sender does not own hero")
	// ErrTooWeak aborts a battle for a hero below the minimum hp.
	ErrTooWeak = errors.New("local: hero is too weak to battle")
)

// Options tunes a Ledger.
type Options struct {
	// Latency delays every submission to make optimistic updates visible.
	Latency time.Duration
	Log     *zap.Logger
}

// Ledger implements ledger.Ledger on a SQLite database.
type Ledger struct {
	db      *sql.DB
	latency time.Duration
	log     *zap.Logger
	now     func() time.Time
}

var _ ledger.Ledger = (*Ledger)(nil)

// Open opens or creates the database at path and migrates it.
func Open(ctx context.Context, path string, opts Options) (*Ledger, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{db: db, latency: opts.Latency, log: log, now: time.Now}, nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Hero returns the stored hero with the given id.
func (l *Ledger) Hero(ctx context.Context, id string) (domain.HeroRecord, error) {
	h, _, err := l.load(ctx, l.db, id)
	if err != nil {
		return domain.HeroRecord{}, err
	}
	return record(h), nil
}

// OwnedHeroes returns owner's heroes, oldest first.
func (l *Ledger) OwnedHeroes(ctx context.Context, owner string) ([]domain.HeroRecord, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, name, hp, xp, level FROM heroes
		 WHERE owner = ? ORDER BY created_at, rowid`, owner)
	if err != nil {
		return nil, fmt.Errorf("query heroes: %w", err)
	}
	defer rows.Close()

	var out []domain.HeroRecord
	for rows.Next() {
		var h domain.Hero
		if err := rows.Scan(&h.ID, &h.Name, &h.HP, &h.XP, &h.Level); err != nil {
			return nil, fmt.Errorf("scan hero: %w", err)
		}
		out = append(out, record(&h))
	}
	return out, rows.Err()
}

// Submit executes call atomically and records a transaction.
func (l *Ledger) Submit(ctx context.Context, call ledger.Call) (ledger.Receipt, error) {
	if l.latency > 0 {
		select {
		case <-time.After(l.latency):
		case <-ctx.Done():
			return ledger.Receipt{}, ctx.Err()
		}
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.Receipt{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := l.now().UnixNano()
	receipt := ledger.Receipt{Digest: newDigest()}
	heroID := call.HeroID

	switch call.Action {
	case ledger.ActionCreateHero:
		name, err := domain.NormalizeHeroName(call.Name)
		if err != nil {
			return ledger.Receipt{}, err
		}
		h := domain.NewHero(newObjectID(), name)
		_, err = tx.ExecContext(ctx,
			`INSERT INTO heroes (id, owner, name, hp, xp, level, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			h.ID, call.Sender, h.Name, h.HP, h.XP, h.Level, now, now)
		if err != nil {
			return ledger.Receipt{}, fmt.Errorf("insert hero: %w", err)
		}
		heroID = h.ID
		receipt.HeroID = h.ID

	case ledger.ActionBattle, ledger.ActionHeal:
		h, owner, err := l.load(ctx, tx, call.HeroID)
		if err != nil {
			return ledger.Receipt{}, err
		}
		if owner != call.Sender {
			return ledger.Receipt{}, ErrNotOwner
		}
		if call.Action == ledger.ActionBattle {
			if !h.CanBattle() {
				return ledger.Receipt{}, ErrTooWeak
			}
			h.ApplyBattle()
		} else {
			h.ApplyHeal()
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE heroes SET hp = ?, xp = ?, level = ?, updated_at = ? WHERE id = ?`,
			h.HP, h.XP, h.Level, now, h.ID)
		if err != nil {
			return ledger.Receipt{}, fmt.Errorf("update hero: %w", err)
		}

	default:
		return ledger.Receipt{}, fmt.Errorf("local: unknown action %q", call.Action)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO transactions (digest, sender, action, hero_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		receipt.Digest, call.Sender, string(call.Action), heroID, now)
	if err != nil {
		return ledger.Receipt{}, fmt.Errorf("insert transaction: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return ledger.Receipt{}, fmt.Errorf("commit: %w", err)
	}

	l.log.Debug("local transaction",
		zap.String("action", string(call.Action)),
		zap.String("hero", heroID),
		zap.String("digest", receipt.Digest))
	return receipt, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (l *Ledger) load(ctx context.Context, q querier, id string) (*domain.Hero, string, error) {
	var (
		h     domain.Hero
		owner string
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, owner, name, hp, xp, level FROM heroes WHERE id = ?`, id,
	).Scan(&h.ID, &owner, &h.Name, &h.HP, &h.XP, &h.Level)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ledger.ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("load hero: %w", err)
	}
	return &h, owner, nil
}

func record(h *domain.Hero) domain.HeroRecord {
	name, hp, xp, level := h.Name, h.HP, h.XP, h.Level
	return domain.HeroRecord{ID: h.ID, Name: &name, HP: &hp, XP: &xp, Level: &level}
}

// newObjectID returns a 0x-prefixed 32-byte hex id.
func newObjectID() string {
	a, b := uuid.New(), uuid.New()
	return fmt.Sprintf("0x%x%x", a[:], b[:])
}

func newDigest() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
