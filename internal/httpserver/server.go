// Package httpserver exposes the relay over HTTP.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/casualjim/relay"
	"github.com/casualjim/relay/config"
	"github.com/casualjim/relay/internal/broker"
	"github.com/casualjim/relay/internal/registry"
	"github.com/casualjim/relay/pkg/slogx"
	"github.com/casualjim/relay/session"
	"github.com/fogfish/opts"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
)

const maxBodyBytes = 1 << 20

// ClientFactory builds the session client of one request.
type ClientFactory func(config.Upstream) (*session.Client, error)

// Server serves the edit, abort and model routes.
type Server struct {
	cfg       config.Config
	exchanges *registry.Exchanges
	titler    relay.Titler
	broker    broker.Broker
	newClient ClientFactory
	logger    *slog.Logger
}

var (
	// WithTitles sets the collaborator that names new conversations.
	WithTitles = opts.ForName[Server, relay.Titler]("titler")
	// WithBroker mirrors every relayed event on the broker.
	WithBroker = opts.ForName[Server, broker.Broker]("broker")
	// WithClientFactory replaces session.New.
	WithClientFactory = opts.ForName[Server, ClientFactory]("newClient")
	// WithLogger sets the server logger.
	WithLogger = opts.ForName[Server, *slog.Logger]("logger")
)

func New(cfg config.Config, options ...opts.Option[Server]) (*Server, error) {
	s := &Server{
		cfg:       cfg,
		exchanges: registry.NewExchanges(),
	}
	if err := opts.Apply(s, options); err != nil {
		return nil, err
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With(slogx.LoggerName("httpserver"))
	if s.newClient == nil {
		logger := s.logger
		s.newClient = func(u config.Upstream) (*session.Client, error) {
			return session.New(u, session.WithLogger(logger))
		}
	}
	return s, nil
}

// Router returns the HTTP handler of the server.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/models", s.handleModels)
		r.Route("/edit", func(r chi.Router) {
			r.Post("/pinecone", s.handleEdit(false))
			r.Post("/custom", s.handleEdit(true))
			r.Post("/abort", s.handleAbort)
		})
	})
	return r
}

// ListenAndServe serves until ctx is done and then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", slog.String("addr", srv.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.InfoContext(r.Context(), "request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	if payload == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) respondError(w http.ResponseWriter, status int, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	s.respondJSON(w, status, map[string]any{"error": err.Error()})
}
