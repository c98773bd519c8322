// Package backend is a reference implementation of the campaign chat
// backend. It serves the chat, campaign and health endpoints over HTTP and
// answers messages with a deterministic tool-calling assistant.
package backend

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/soyeahso/creatorpilot/internal/config"
	"github.com/soyeahso/creatorpilot/internal/hooks"
	"github.com/soyeahso/creatorpilot/internal/logging"
	"github.com/soyeahso/creatorpilot/internal/store"
	"github.com/soyeahso/creatorpilot/internal/version"
)

const shutdownTimeout = 10 * time.Second

// Server is the reference campaign backend.
type Server struct {
	cfg           config.ServerConfig
	log           *logging.Logger
	conversations store.ConversationStore
	catalog       *Catalog
	assistant     *Assistant
	token         string
	version       string

	// Hook manager (optional)
	hooks *hooks.Manager

	// chatMu serialises message handling so each conversation log is
	// appended atomically.
	chatMu sync.Mutex

	mu        sync.RWMutex
	addr      string
	startedAt time.Time
}

// ServerOption configures the backend server.
type ServerOption func(*Server)

// WithHooks sets the hook manager for lifecycle events.
func WithHooks(hm *hooks.Manager) ServerOption {
	return func(s *Server) {
		s.hooks = hm
	}
}

// WithToken overrides the bearer token required on API routes.
func WithToken(token string) ServerOption {
	return func(s *Server) {
		s.token = token
	}
}

// New creates a backend server. The bearer token comes from cfg.Token,
// falling back to CREATORPILOT_SERVER_TOKEN; an empty token disables auth.
func New(cfg config.ServerConfig, conversations store.ConversationStore, catalog *Catalog, log *logging.Logger, opts ...ServerOption) *Server {
	s := &Server{
		cfg:           cfg,
		log:           log.Sub("backend"),
		conversations: conversations,
		catalog:       catalog,
		assistant:     NewAssistant(NewCampaignTools(catalog), catalog),
		token:         resolveToken(cfg.Token),
		version:       version.Version,
		startedAt:     time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func resolveToken(configured string) string {
	if configured != "" {
		return configured
	}
	return os.Getenv("CREATORPILOT_SERVER_TOKEN")
}

// Handler returns the server's HTTP handler with middleware and auth.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	var h http.Handler = mux
	h = authMiddleware(h, s.token, s.log)
	return withMiddleware(h, s.log, s.cfg.AllowedOrigins)
}

// resolveBindAddr computes the listen address from config.
func resolveBindAddr(cfg config.ServerConfig) string {
	switch cfg.Bind {
	case "lan", "auto":
		return fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	case "custom":
		host := cfg.CustomBindHost
		if host == "" {
			host = "0.0.0.0"
		}
		return net.JoinHostPort(host, fmt.Sprint(cfg.Port))
	default:
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	}
}

// Run listens and serves until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := resolveBindAddr(s.cfg)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	if s.cfg.TLS.Enabled {
		cert, err := tls.LoadX509KeyPair(s.cfg.TLS.CertPath, s.cfg.TLS.KeyPath)
		if err != nil {
			ln.Close()
			return fmt.Errorf("loading TLS certificate: %w", err)
		}
		ln = tls.NewListener(ln, &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		})
		s.log.Info().Msg("TLS enabled")
	} else if s.cfg.Bind != "loopback" && s.token != "" {
		s.log.Warn().Msg("TLS is not enabled, the bearer token is sent in cleartext")
	}

	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.log.Info().
		Str("addr", ln.Addr().String()).
		Str("bind", s.cfg.Bind).
		Bool("auth", s.token != "").
		Msg("backend listening")

	if s.hooks != nil {
		s.hooks.Emit(ctx, hooks.EventServerStart, map[string]any{"addr": ln.Addr().String()})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.log.Info().Msg("shutting down backend")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	err = g.Wait()
	if s.hooks != nil {
		s.hooks.Emit(context.Background(), hooks.EventServerStop, nil)
	}
	return err
}

// Addr returns the listen address once Run has started, else "".
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

func (s *Server) uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.startedAt).Round(time.Second)
}
