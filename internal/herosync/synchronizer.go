// Package herosync keeps a session's view of the player's hero in step with
// the ledger. User actions update the view optimistically once the ledger
// acknowledges them, and a background poll overwrites the view with
// canonical state.
package herosync

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmuslimabdulj/hero-arena/internal/domain"
	"github.com/mmuslimabdulj/hero-arena/internal/ledger"
)

// State is the session lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateChecking
	StateEmpty
	StateOwned
)

var stateNames = [...]string{"disconnected", "checking", "empty", "owned"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// provisionalPrefix marks ids synthesized when the ledger reports no created object.
const provisionalPrefix = "local-"

// Config tunes a Synchronizer.
type Config struct {
	// PollInterval is the reconcile period.
	PollInterval time.Duration
	// RequestTimeout bounds every ledger call. Zero waits indefinitely.
	RequestTimeout time.Duration
	// SequenceReads drops reconcile reads that overlap a mutation.
	SequenceReads bool
}

// DefaultConfig returns the standard timings.
func DefaultConfig() Config {
	return Config{
		PollInterval:   domain.PollInterval,
		RequestTimeout: domain.RequestTimeout,
	}
}

// View is an immutable snapshot of a session.
type View struct {
	State   State
	Address string
	Hero    *domain.Hero
	Busy    bool
}

// CanBattle reports whether the battle action is currently available.
func (v View) CanBattle() bool {
	return v.Hero != nil && !v.Busy && v.Hero.CanBattle()
}

// Payload converts the view to its wire form.
func (v View) Payload() domain.HeroStatePayload {
	return domain.HeroStatePayload{
		State:     v.State.String(),
		Address:   v.Address,
		Hero:      v.Hero,
		Busy:      v.Busy,
		CanBattle: v.CanBattle(),
		Defeated:  v.Hero != nil && v.Hero.Defeated(),
	}
}

// Listener receives view changes and user-facing notices.
// Calls happen outside the synchronizer lock and must not block. StateChanged
// calls are never concurrent and must not call back into the Synchronizer.
type Listener interface {
	StateChanged(View)
	Notice(domain.NoticePayload)
}

// Synchronizer owns the hero view of one session.
type Synchronizer struct {
	ledger   ledger.Ledger
	cfg      Config
	log      *zap.Logger
	listener Listener

	pubMu     sync.Mutex // orders listener deliveries
	mu        sync.Mutex
	state     State
	address   string
	hero      *domain.Hero
	busy      bool
	epoch     uint64 // bumped whenever the identity changes
	mutations uint64 // bumped on every mutation submission
}

// New creates a disconnected Synchronizer.
func New(l ledger.Ledger, cfg Config, log *zap.Logger) *Synchronizer {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = domain.PollInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Synchronizer{
		ledger: l,
		cfg:    cfg,
		log:    log,
		state:  StateDisconnected,
	}
}

// SetListener sets the receiver of view changes. Call before use.
func (s *Synchronizer) SetListener(l Listener) {
	s.listener = l
}

// View returns the current snapshot.
func (s *Synchronizer) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Synchronizer) viewLocked() View {
	return View{
		State:   s.state,
		Address: s.address,
		Hero:    s.hero.Clone(),
		Busy:    s.busy,
	}
}

// Connect activates an identity and looks for a hero it already owns.
// Reconnecting the active identity is a no-op.
func (s *Synchronizer) Connect(ctx context.Context, address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return s.fail("", validationError("Connect a wallet first"))
	}

	s.mu.Lock()
	if s.address == address && s.state != StateDisconnected {
		s.mu.Unlock()
		return nil
	}
	s.resetLocked(address, StateDisconnected)
	s.mu.Unlock()

	s.log.Info("identity connected", zap.String("address", address))
	return s.DiscoverExistingHero(ctx)
}

// Disconnect clears the identity and the hero with it.
func (s *Synchronizer) Disconnect() {
	s.mu.Lock()
	if s.address == "" && s.state == StateDisconnected {
		s.mu.Unlock()
		return
	}
	s.resetLocked("", StateDisconnected)
	s.mu.Unlock()

	s.log.Info("identity cleared")
	s.publish()
}

func (s *Synchronizer) resetLocked(address string, state State) {
	s.epoch++
	s.address = address
	s.hero = nil
	s.busy = false
	s.state = state
}

// DiscoverExistingHero adopts the first hero owned by the connected identity.
// Query failures are logged and leave the session empty.
func (s *Synchronizer) DiscoverExistingHero(ctx context.Context) error {
	s.mu.Lock()
	if s.address == "" {
		s.mu.Unlock()
		return s.fail("", validationError("Connect a wallet first"))
	}
	if s.busy {
		s.mu.Unlock()
		return s.fail(s.address, preconditionError("Another action is in progress"))
	}
	address, epoch := s.address, s.epoch
	s.hero = nil
	s.state = StateChecking
	s.mu.Unlock()
	s.publish()

	records, err := await(ctx, s.cfg.RequestTimeout, func(ctx context.Context) ([]domain.HeroRecord, error) {
		return s.ledger.OwnedHeroes(ctx, address)
	})

	s.mu.Lock()
	if epoch != s.epoch || s.state != StateChecking {
		s.mu.Unlock()
		return nil
	}
	switch {
	case err != nil:
		s.log.Warn("hero discovery failed", zap.String("address", address), zap.Error(err))
		s.hero = nil
		s.state = StateEmpty
	case len(records) == 0:
		s.hero = nil
		s.state = StateEmpty
	default:
		s.hero = domain.HeroFromRecord(records[0])
		s.state = StateOwned
		s.log.Info("existing hero found", zap.String("address", address), zap.String("hero", s.hero.ID))
	}
	s.mu.Unlock()

	s.publish()
	return nil
}

// CreateHero submits a creation request and, once acknowledged, holds the
// new hero with default stats.
func (s *Synchronizer) CreateHero(ctx context.Context, name string) error {
	s.mu.Lock()
	address := s.address
	if address == "" {
		s.mu.Unlock()
		return s.fail("", validationError("Connect a wallet first"))
	}
	normalized, err := domain.NormalizeHeroName(name)
	if err != nil {
		s.mu.Unlock()
		msg := "Enter a hero name"
		if errors.Is(err, domain.ErrHeroNameTooLong) {
			msg = "Hero names are limited to 20 characters"
		}
		return s.fail(address, &Error{Kind: KindValidation, Message: msg, Cause: err})
	}
	if perr := s.mutationBlockedLocked(); perr != nil {
		s.mu.Unlock()
		return s.fail(address, perr)
	}
	if s.state == StateChecking {
		s.mu.Unlock()
		return s.fail(address, preconditionError("Still looking for your hero"))
	}
	if s.hero != nil {
		s.mu.Unlock()
		return s.fail(address, preconditionError("You already have a hero"))
	}
	epoch := s.beginLocked()
	s.mu.Unlock()
	s.publish()

	receipt, err := s.submit(ctx, ledger.Call{
		Sender: address,
		Action: ledger.ActionCreateHero,
		Name:   normalized,
	})

	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return staleResult(err)
	}
	s.busy = false
	if err != nil {
		s.mu.Unlock()
		s.publish()
		return s.fail(address, remoteError("Could not create hero", err))
	}

	hero := domain.NewHero(receipt.HeroID, normalized)
	if hero.ID == "" {
		hero.ID = provisionalPrefix + uuid.NewString()
		hero.Provisional = true
	}
	s.hero = hero
	s.state = StateOwned
	s.mu.Unlock()

	s.publish()
	s.notify(address, domain.NoticeSuccess, "Hero created!", receipt.Digest)
	return nil
}

// Battle submits a battle and applies its optimistic result.
func (s *Synchronizer) Battle(ctx context.Context) error {
	return s.mutate(ctx, ledger.ActionBattle, "Battle finished!", func(h *domain.Hero) {
		h.ApplyBattle()
	})
}

// Heal submits a heal and restores full health locally.
func (s *Synchronizer) Heal(ctx context.Context) error {
	return s.mutate(ctx, ledger.ActionHeal, "Healed!", func(h *domain.Hero) {
		h.ApplyHeal()
	})
}

func (s *Synchronizer) mutate(ctx context.Context, action ledger.Action, success string, apply func(*domain.Hero)) error {
	s.mu.Lock()
	address := s.address
	if s.hero == nil {
		s.mu.Unlock()
		return s.fail(address, preconditionError("Create a hero first"))
	}
	if perr := s.mutationBlockedLocked(); perr != nil {
		s.mu.Unlock()
		return s.fail(address, perr)
	}
	if action == ledger.ActionBattle && !s.hero.CanBattle() {
		s.mu.Unlock()
		return s.fail(address, preconditionError("Not enough HP to battle, heal first"))
	}
	heroID := s.hero.ID
	epoch := s.beginLocked()
	s.mu.Unlock()
	s.publish()

	receipt, err := s.submit(ctx, ledger.Call{
		Sender: address,
		Action: action,
		HeroID: heroID,
	})

	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return staleResult(err)
	}
	s.busy = false
	if err != nil {
		s.mu.Unlock()
		s.publish()
		return s.fail(address, remoteError(actionFailure(action), err))
	}
	if s.hero != nil && s.hero.ID == heroID {
		apply(s.hero)
	}
	s.mu.Unlock()

	s.publish()
	s.notify(address, domain.NoticeSuccess, success, receipt.Digest)
	return nil
}

// Discard drops the local hero so a new one can be created.
func (s *Synchronizer) Discard() error {
	s.mu.Lock()
	address := s.address
	if s.hero == nil {
		s.mu.Unlock()
		return s.fail(address, preconditionError("There is no hero to discard"))
	}
	if s.busy {
		s.mu.Unlock()
		return s.fail(address, preconditionError("Another action is in progress"))
	}
	s.hero = nil
	s.state = StateEmpty
	s.mu.Unlock()

	s.publish()
	return nil
}

// Reconcile re-reads the hero from the ledger and overwrites local stats
// when they differ. Read failures are ignored until the next tick.
// It reports whether the local view changed.
func (s *Synchronizer) Reconcile(ctx context.Context) bool {
	s.mu.Lock()
	if s.hero == nil || s.hero.Provisional || (s.cfg.SequenceReads && s.busy) {
		s.mu.Unlock()
		return false
	}
	heroID, epoch, issued := s.hero.ID, s.epoch, s.mutations
	s.mu.Unlock()

	rec, err := await(ctx, s.cfg.RequestTimeout, func(ctx context.Context) (domain.HeroRecord, error) {
		return s.ledger.Hero(ctx, heroID)
	})
	if err != nil {
		s.log.Debug("reconcile read failed", zap.String("hero", heroID), zap.Error(err))
		return false
	}

	s.mu.Lock()
	if epoch != s.epoch || s.hero == nil || s.hero.ID != heroID {
		s.mu.Unlock()
		return false
	}
	if s.cfg.SequenceReads && issued != s.mutations {
		s.mu.Unlock()
		s.log.Debug("dropping read issued before latest mutation", zap.String("hero", heroID))
		return false
	}
	changed := s.hero.Merge(rec)
	s.mu.Unlock()

	if changed {
		s.publish()
	}
	return changed
}

// Run reconciles on every tick until ctx is done.
func (s *Synchronizer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Reconcile(ctx)
		}
	}
}

func (s *Synchronizer) mutationBlockedLocked() *Error {
	if s.busy {
		return preconditionError("Another action is in progress")
	}
	return nil
}

// beginLocked marks a mutation in flight and returns the epoch it belongs to.
func (s *Synchronizer) beginLocked() uint64 {
	s.busy = true
	s.mutations++
	return s.epoch
}

func (s *Synchronizer) submit(ctx context.Context, call ledger.Call) (ledger.Receipt, error) {
	start := time.Now()
	receipt, err := await(ctx, s.cfg.RequestTimeout, func(ctx context.Context) (ledger.Receipt, error) {
		return s.ledger.Submit(ctx, call)
	})
	if err != nil {
		s.log.Warn("ledger call failed",
			zap.String("action", string(call.Action)),
			zap.String("hero", call.HeroID),
			zap.Error(err))
		return receipt, err
	}
	s.log.Info("ledger call executed",
		zap.String("action", string(call.Action)),
		zap.String("hero", call.HeroID),
		zap.String("digest", receipt.Digest),
		zap.Duration("took", time.Since(start)))
	return receipt, nil
}

// publish delivers the current view. Deliveries are serialized and each one
// reads the state at delivery time, so the last view a listener receives is
// never older than the session's state.
func (s *Synchronizer) publish() {
	if s.listener == nil {
		return
	}
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	v := s.viewLocked()
	s.mu.Unlock()
	s.listener.StateChanged(v)
}

func (s *Synchronizer) notify(address string, level domain.NoticeLevel, text, digest string) {
	s.emit(domain.NoticePayload{
		Level:    level,
		Text:     text,
		Digest:   digest,
		Address:  address,
		Activity: level == domain.NoticeSuccess,
	})
}

func (s *Synchronizer) emit(n domain.NoticePayload) {
	if s.listener != nil {
		s.listener.Notice(n)
	}
}

// fail surfaces err as an error notice and returns it. Only remote failures
// are marked as activity.
func (s *Synchronizer) fail(address string, err *Error) error {
	text := err.Message
	if err.Kind == KindRemote {
		text = err.Error()
	}
	s.emit(domain.NoticePayload{
		Level:    domain.NoticeError,
		Text:     text,
		Address:  address,
		Activity: err.Kind == KindRemote,
	})
	return err
}

// staleResult reports the outcome of a call whose identity is gone.
func staleResult(err error) error {
	if err != nil {
		return remoteError("Request finished after the wallet changed", err)
	}
	return nil
}

func actionFailure(action ledger.Action) string {
	switch action {
	case ledger.ActionBattle:
		return "Battle failed"
	case ledger.ActionHeal:
		return "Heal failed"
	default:
		return "Request failed"
	}
}

// await runs fn with an optional timeout and gives up when ctx ends even if
// fn ignores cancellation, so a hung request cannot pin the busy flag.
func await[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
