package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmuslimabdulj/hero-arena/internal/config"
	httpHandler "github.com/mmuslimabdulj/hero-arena/internal/delivery/http"
	"github.com/mmuslimabdulj/hero-arena/internal/delivery/ws"
	"github.com/mmuslimabdulj/hero-arena/internal/domain"
	"github.com/mmuslimabdulj/hero-arena/internal/herosync"
	"github.com/mmuslimabdulj/hero-arena/internal/identity"
	"github.com/mmuslimabdulj/hero-arena/internal/ledger"
	"github.com/mmuslimabdulj/hero-arena/internal/ledger/local"
	"github.com/mmuslimabdulj/hero-arena/internal/ledger/sui"
	"github.com/mmuslimabdulj/hero-arena/internal/logging"
	"github.com/mmuslimabdulj/hero-arena/internal/middleware"
	"github.com/mmuslimabdulj/hero-arena/internal/usecase"
)

func main() {
	// Load .env file (ignore error if not exists, e.g. in production)
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("HERO_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	config.AppConfig = cfg

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies
	l, ids, closer, err := openLedger(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closer.Close()

	hub := ws.NewHub(cfg.WebSocket.MaxHistorySize, log.Named("hub"))
	handler := httpHandler.NewHandler(httpHandler.Deps{
		Hub:    hub,
		Ledger: l,
		Sync: herosync.Config{
			PollInterval:   cfg.Sync.PollInterval,
			RequestTimeout: cfg.Sync.RequestTimeout,
			SequenceReads:  cfg.Sync.SequenceReads,
		},
		Identity:       ids,
		Tokens:         identity.NewSessionTokens(cfg.Security.SessionSecret, cfg.Security.SessionTTL),
		Names:          usecase.NewNameSuggester(0),
		Log:            log.Named("http"),
		LedgerMode:     cfg.Ledger.Mode,
		PackageID:      cfg.Ledger.PackageID,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
		MessageRate:    cfg.RateLimit.WS,
	})
	limiters := middleware.NewLimiters(cfg.RateLimit.API, cfg.RateLimit.WS, cfg.RateLimit.Strict)

	// Setup routes
	mux := http.NewServeMux()

	// Serve static files
	fs := http.FileServer(http.Dir("./static"))
	mux.Handle("/static/", http.StripPrefix("/static/", fs))

	// Page routes
	mux.HandleFunc("/", handler.HandleIndex)
	mux.HandleFunc("/healthz", handler.HandleHealth)

	// WebSocket route with rate limiting
	mux.HandleFunc("/ws", middleware.RateLimitFunc(limiters.WebSocket, handler.HandleWebSocket))

	// API routes with rate limiting
	mux.HandleFunc("/api/hero/suggest", middleware.RateLimitFunc(limiters.API, handler.HandleSuggestName))
	mux.HandleFunc("/api/hero", middleware.RateLimitFunc(limiters.Strict, handler.HandleHero))

	// Apply security headers and request logging to all requests
	root := middleware.RequestLogger(log.Named("access"))(middleware.SecurityHeaders(mux))

	// Create server with timeouts
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// The hub outlives the listener so the restart notice reaches clients
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(hubCtx)
		return nil
	})
	g.Go(func() error {
		log.Info("hero arena running",
			zap.String("addr", "http://localhost:"+cfg.Server.Port),
			zap.String("ledger", cfg.Ledger.Mode))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		// Graceful shutdown
		<-gctx.Done()
		log.Info("shutting down server")
		hub.Announce("Server is restarting")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), domain.ShutdownGracePeriod)
		defer cancel()
		defer stopHub()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("forced shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server exited gracefully")
	return nil
}

// openLedger builds the ledger selected by configuration together with the
// identity provider that goes with it.
func openLedger(ctx context.Context, cfg *config.Config, log *zap.Logger) (ledger.Ledger, identity.Provider, io.Closer, error) {
	lc := cfg.Ledger

	switch lc.Mode {
	case config.LedgerSui:
		ks, err := identity.LoadKeystore(lc.KeystorePath)
		if err != nil {
			return nil, nil, nil, err
		}
		if len(ks.Accounts()) == 0 {
			log.Warn("keystore has no ed25519 accounts; run keygen", zap.String("path", lc.KeystorePath))
		}
		client := sui.NewClient(lc.RPCURL, lc.RPCRateLimit, log.Named("rpc"))
		l, err := sui.New(client, ks, sui.Config{
			PackageID: lc.PackageID,
			Module:    lc.Module,
			GasBudget: lc.GasBudget,
		}, log.Named("sui"))
		if err != nil {
			return nil, nil, nil, err
		}
		return l, ks, nopCloser{}, nil

	default:
		l, err := local.Open(ctx, lc.DSN, local.Options{Latency: lc.Latency, Log: log.Named("local")})
		if err != nil {
			return nil, nil, nil, err
		}
		return l, identity.NewOpen(lc.DevAccounts), l, nil
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
