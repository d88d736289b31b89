// Package api serves the bot's read-only HTTP surface: health, status,
// metrics, positions, decisions and on-demand token assessment.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/notify"
	"solana-token-trader/internal/observability"
	"solana-token-trader/internal/orchestrator"
	"solana-token-trader/internal/solana"
	"solana-token-trader/internal/storage"
)

const requestTimeout = 30 * time.Second

// Bot is the subset of the orchestrator the API reads from.
type Bot interface {
	Status(ctx context.Context) (notify.Status, error)
	Performance(ctx context.Context) ([]domain.PerformanceStats, error)
	Evaluate(ctx context.Context, address string) (*orchestrator.Evaluation, error)
}

var _ Bot = (*orchestrator.Orchestrator)(nil)

// SlotSource is the RPC call /health uses to check chain connectivity.
type SlotSource interface {
	GetSlot(ctx context.Context) (int64, error)
}

var _ SlotSource = (solana.RPCClient)(nil)

// Options for creating Server.
type Options struct {
	Addr      string
	Bot       Bot
	Positions storage.PositionStore
	Decisions storage.DecisionStore
	Trades    storage.TradeStore
	Chain     SlotSource // optional, nil skips the RPC check
	Logger    zerolog.Logger
	Now       func() time.Time
}

// Server is the HTTP API server.
type Server struct {
	opts   Options
	log    zerolog.Logger
	router *mux.Router
	srv    *http.Server
}

// NewServer creates the server and registers its routes.
func NewServer(opts Options) (*Server, error) {
	if opts.Bot == nil || opts.Positions == nil || opts.Decisions == nil || opts.Trades == nil {
		return nil, errors.New("api: bot and stores are required")
	}
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		opts:   opts,
		log:    opts.Logger.With().Str("component", "api").Logger(),
		router: mux.NewRouter(),
	}
	s.setupRoutes()

	s.srv = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: requestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(timeoutMiddleware(requestTimeout))

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/performance", s.handlePerformance).Methods(http.MethodGet)
	s.router.HandleFunc("/positions", s.handlePositions).Methods(http.MethodGet)
	s.router.HandleFunc("/positions/{id}", s.handlePosition).Methods(http.MethodGet)
	s.router.HandleFunc("/decisions", s.handleDecisions).Methods(http.MethodGet)
	s.router.HandleFunc("/trades", s.handleTrades).Methods(http.MethodGet)
	s.router.HandleFunc("/assess/{address}", s.handleAssess).Methods(http.MethodGet)
	s.router.Handle("/metrics", observability.Handler()).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "endpoint not found")
	})
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.opts.Addr).Msg("http api listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http api shutting down")
	return s.srv.Shutdown(ctx)
}

type ctxKey int

const requestIDKey ctxKey = iota

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.opts.Now()
		rw := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		id, _ := r.Context().Value(requestIDKey).(string)
		ev := s.log.Debug()
		if rw.statusCode >= http.StatusInternalServerError {
			ev = s.log.Warn()
		}
		ev.Str("request_id", id).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.statusCode).
			Dur("duration", s.opts.Now().Sub(start)).
			Msg("http request")
	})
}

func timeoutMiddleware(d time.Duration) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
