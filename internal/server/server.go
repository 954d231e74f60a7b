// Package server exposes the runtime operations over plain HTTP for local
// development and tests.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"lex-dialog/internal/lexerr"
	"lex-dialog/internal/wire"
)

const maxBodyBytes = 1 << 20

type Config struct {
	Addr string
	// RateLimit is the number of requests one conversation may make per
	// RateWindow. Zero disables throttling.
	RateLimit  int
	RateWindow time.Duration
	Logger     zerolog.Logger
}

type Server struct {
	runtime    wire.Runtime
	logger     zerolog.Logger
	httpServer *http.Server
}

func New(cfg Config, runtime wire.Runtime) (*Server, error) {
	if runtime == nil {
		return nil, errors.New("server: runtime must not be nil")
	}
	if cfg.RateLimit < 0 {
		return nil, errors.New("server: rate limit must not be negative")
	}
	if cfg.RateLimit > 0 && cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Minute
	}
	s := &Server{runtime: runtime, logger: cfg.Logger}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(cfg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(recoverer(s.logger))
	r.Use(requestLogger(s.logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/bot/{botName}/alias/{botAlias}/user/{userId}", func(r chi.Router) {
		if cfg.RateLimit > 0 {
			r.Use(rateLimit(cfg.RateLimit, cfg.RateWindow))
		}
		r.Post("/text", s.serve)
		r.Post("/content", s.serve)
		r.Get("/session", s.serve)
		r.Post("/session", s.serve)
		r.Delete("/session", s.serve)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, encodeError(lexerr.NotFound("no route for "+r.URL.Path)))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, encodeError(lexerr.BadRequest(r.Method+" is not allowed on "+r.URL.Path, nil)))
	})
	return r
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	route, err := wire.ParseRoute(r.Method, r.URL.EscapedPath())
	if err != nil {
		writeResponse(w, encodeError(lexerr.NotFound("no route for "+r.URL.Path)))
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeResponse(w, encodeError(lexerr.BadRequest("read request body", err)))
		return
	}
	resp, _ := wire.Dispatch(r.Context(), s.runtime, wire.Request{
		Route:  route,
		Header: r.Header,
		Query:  r.URL.Query(),
		Body:   body,
	})
	writeResponse(w, resp)
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server: listen on %s: %w", s.httpServer.Addr, err)
	}
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("starting runtime server")
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: serve: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down runtime server")
	return s.httpServer.Shutdown(ctx)
}
