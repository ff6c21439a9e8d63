// Package server provides the HTTP transport of the Aiush gateway.
//
// It owns routing, request decoding, bearer-credential verification,
// and the translation of orchestration errors into the JSON error
// envelope. All AI endpoints require a verified credential; the health
// banner and probes do not.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aiushlabs/aiush-gateway/internal/auth"
	"github.com/aiushlabs/aiush-gateway/internal/health"
	"github.com/aiushlabs/aiush-gateway/internal/history"
	"github.com/aiushlabs/aiush-gateway/internal/observe"
	"github.com/aiushlabs/aiush-gateway/internal/turn"
)

// Historian is the read/clear surface of the history store consumed by
// the HTTP endpoints.
type Historian interface {
	ListByOwner(ctx context.Context, ownerID string) ([]history.Record, error)
	ClearOwner(ctx context.Context, ownerID string) error
}

// Server wires the orchestrator, credential verifier, and history store
// behind the gateway's HTTP routes.
type Server struct {
	orch     *turn.Orchestrator
	verifier auth.Verifier
	store    Historian
	handler  http.Handler

	httpServer *http.Server
}

// New creates a Server. checkers are registered on the /readyz probe.
func New(orch *turn.Orchestrator, verifier auth.Verifier, store Historian, m *observe.Metrics, checkers ...health.Checker) *Server {
	s := &Server{
		orch:     orch,
		verifier: verifier,
		store:    store,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /aiush/message", s.requireAuth(s.handleMessage))
	mux.HandleFunc("POST /aiush/ocr", s.requireAuth(s.handleOCR))
	mux.HandleFunc("POST /aiush/voice", s.requireAuth(s.handleVoice))
	mux.HandleFunc("POST /aiush/tts", s.requireAuth(s.handleTTS))
	mux.HandleFunc("GET /aiush/history", s.requireAuth(s.handleHistoryList))
	mux.HandleFunc("DELETE /aiush/history", s.requireAuth(s.handleHistoryClear))

	health.New(checkers...).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.handler = observe.Middleware(m)(mux)
	return s
}

// Handler returns the fully wrapped HTTP handler. Exposed for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe starts serving on addr until ctx is cancelled. When
// certFile and keyFile are both non-empty the server uses TLS.
func (s *Server) ListenAndServe(ctx context.Context, addr, certFile, keyFile string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if certFile != "" && keyFile != "" {
			err = s.httpServer.ListenAndServeTLS(certFile, keyFile)
		} else {
			err = s.httpServer.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// requireAuth verifies the bearer credential and threads the resulting
// owner identity through the request context. Requests without a
// credential are rejected with 401, requests with an invalid one
// with 403 — before any orchestration state is entered.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.BearerToken(r)
		if err != nil {
			writeError(w, err)
			return
		}

		id, err := s.verifier.Verify(r.Context(), token)
		if err != nil {
			if !errors.Is(err, auth.ErrInvalidCredential) {
				slog.Error("credential verification failed", "err", err)
				err = auth.ErrInvalidCredential
			}
			writeError(w, err)
			return
		}

		next(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	}
}
