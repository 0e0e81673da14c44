package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mmuslimabdulj/hero-arena/internal/config"
	"github.com/mmuslimabdulj/hero-arena/internal/delivery/ws"
	"github.com/mmuslimabdulj/hero-arena/internal/domain"
	"github.com/mmuslimabdulj/hero-arena/internal/herosync"
	"github.com/mmuslimabdulj/hero-arena/internal/identity"
	"github.com/mmuslimabdulj/hero-arena/internal/ledger"
	"github.com/mmuslimabdulj/hero-arena/internal/usecase"
	"github.com/mmuslimabdulj/hero-arena/internal/view/pages"
	"github.com/mmuslimabdulj/hero-arena/internal/view/viewmodel"
)

// isOriginAllowed checks if the origin is in the allowed list
func isOriginAllowed(origin string) bool {
	// Empty origin is allowed (same-origin requests)
	if origin == "" {
		return true
	}

	for _, allowed := range config.AppConfig.Security.AllowedOrigins {
		if allowed == "*" || origin == allowed {
			return true
		}
	}
	return false
}

// TokenCookie mirrors the session token so the page can be rendered for a
// returning identity.
const TokenCookie = "hero_token"

// restoreTimeout bounds the ownership lookup made while rendering the page.
const restoreTimeout = 3 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return isOriginAllowed(origin)
	},
}

// Deps are the collaborators shared by every request.
type Deps struct {
	Hub      *ws.Hub
	Ledger   ledger.Ledger
	Sync     herosync.Config
	Identity identity.Provider
	Tokens   *identity.SessionTokens
	Names    *usecase.NameSuggester
	Log      *zap.Logger

	LedgerMode     string
	PackageID      string
	MaxMessageSize int64
	MessageRate    float64
}

type Handler struct {
	deps    Deps
	log     *zap.Logger
	started time.Time
}

func NewHandler(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	if d.Names == nil {
		d.Names = usecase.NewNameSuggester(0)
	}
	return &Handler{
		deps:    d,
		log:     log,
		started: time.Now(),
	}
}

// HandleIndex serves the game page
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	w.Header().Set("Pragma", "no-cache")
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	_, freeform := h.deps.Identity.(*identity.Open)
	page := viewmodel.IndexPage{
		Accounts:      h.deps.Identity.Accounts(),
		FreeformLogin: freeform,
		LedgerMode:    h.deps.LedgerMode,
		PackageID:     h.deps.PackageID,
		NameMaxLength: domain.MaxHeroNameLength,
		SuggestedName: h.deps.Names.Suggest(),
		WSPath:        "/ws",
		State:         herosync.StateDisconnected.String(),
	}

	h.restorePage(r, &page)

	if err := pages.Index(page).Render(r.Context(), w); err != nil {
		h.log.Warn("render index", zap.Error(err))
	}
}

// restorePage fills the page with the identity and hero of the session
// named by the token cookie. Any failure leaves the disconnected page.
func (h *Handler) restorePage(r *http.Request, page *viewmodel.IndexPage) {
	cookie, err := r.Cookie(TokenCookie)
	if err != nil || h.deps.Tokens == nil {
		return
	}
	session, err := h.deps.Tokens.Validate(cookie.Value)
	if err != nil {
		return
	}
	address, err := h.deps.Identity.Validate(session.Address)
	if err != nil {
		return
	}
	page.Address = address
	page.State = herosync.StateEmpty.String()

	ctx, cancel := context.WithTimeout(r.Context(), restoreTimeout)
	defer cancel()
	records, err := h.deps.Ledger.OwnedHeroes(ctx, address)
	if err != nil {
		h.log.Debug("restore page lookup failed", zap.String("address", address), zap.Error(err))
		return
	}
	if len(records) > 0 {
		page.Hero = heroCard(domain.HeroFromRecord(records[0]))
		page.State = herosync.StateOwned.String()
	}
}

// heroCard maps a hero to its card
func heroCard(hero *domain.Hero) *viewmodel.HeroCard {
	return &viewmodel.HeroCard{
		ID:          hero.ID,
		Name:        hero.Name,
		HP:          hero.HP,
		MaxHP:       domain.MaxHP,
		XP:          hero.XP,
		XPPerLevel:  domain.XPPerLevel,
		Level:       hero.Level,
		Crest:       usecase.CrestColor(hero.ID),
		Provisional: hero.Provisional,
		CanBattle:   hero.CanBattle(),
		Defeated:    hero.Defeated(),
	}
}

// HandleWebSocket upgrades HTTP to WebSocket and starts a hero session.
// A valid token query parameter restores the identity it was issued for.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	player := domain.NewPlayer()
	restore := ""

	if token := r.URL.Query().Get("token"); token != "" && h.deps.Tokens != nil {
		session, err := h.deps.Tokens.Validate(token)
		if err != nil {
			h.log.Debug("session token rejected", zap.Error(err))
		} else {
			restore = session.Address
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	session := herosync.New(h.deps.Ledger, h.deps.Sync, h.log.With(zap.String("session", player.ID.String())))
	client := ws.NewClient(h.deps.Hub, conn, player, session, ws.Options{
		Identity:       h.deps.Identity,
		Tokens:         h.deps.Tokens,
		MaxMessageSize: h.deps.MaxMessageSize,
		MessageRate:    h.deps.MessageRate,
		Log:            h.log,
	})
	h.deps.Hub.Register(client)
	client.Start(restore)
}

// HandleSuggestName returns a random hero name. A previous suggestion the
// player skipped can be handed back with ?skip=.
func (h *Handler) HandleSuggestName(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if skipped := r.URL.Query().Get("skip"); skipped != "" {
		h.deps.Names.Release(skipped)
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"name": h.deps.Names.Suggest(),
	})
}

// HandleHero returns the canonical state of a hero object
func (h *Handler) HandleHero(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, err := identity.NormalizeAddress(r.URL.Query().Get("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid hero id"})
		return
	}

	rec, err := h.deps.Ledger.Hero(r.Context(), id)
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Hero not found"})
		return
	case err != nil:
		h.log.Warn("hero lookup failed", zap.String("hero", id), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "Ledger unavailable"})
		return
	}

	hero := domain.HeroFromRecord(rec)
	writeJSON(w, http.StatusOK, map[string]any{
		"hero":  hero,
		"crest": usecase.CrestColor(hero.ID),
	})
}

// HandleHealth reports liveness
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"ledger":  h.deps.LedgerMode,
		"clients": h.deps.Hub.ClientCount(),
		"uptime":  time.Since(h.started).Round(time.Second).String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
