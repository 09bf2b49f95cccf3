package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/solsentinel/pixelterm/internal/config"
	"github.com/solsentinel/pixelterm/internal/gate"
	"github.com/solsentinel/pixelterm/internal/models"
	"github.com/solsentinel/pixelterm/internal/pixelapi"
	"github.com/solsentinel/pixelterm/internal/service"
)

// HistoryReader lists a user's recent generations. Satisfied by
// *repository.HistoryRepository.
type HistoryReader interface {
	RecentForUser(ctx context.Context, userID string, limit int) ([]models.GenerationLog, error)
}

// Server is the authoritative gatekeeper in front of the paid image API.
// Every inbound generation request walks the same path: origin check, body
// parse, duplicate suppression, prompt validation, per-IP rate limit, and
// only then the upstream call. The first failing check terminates the
// request; there are no retries.
type Server struct {
	cfg         config.Config
	log         *slog.Logger
	generations *service.GenerationService
	history     HistoryReader
	dedup       gate.DedupStore
	limiter     gate.LimiterStore
	router      *chi.Mux
}

func New(cfg config.Config, log *slog.Logger, generations *service.GenerationService, history HistoryReader, dedup gate.DedupStore, limiter gate.LimiterStore) *Server {
	s := &Server{
		cfg:         cfg,
		log:         log,
		generations: generations,
		history:     history,
		dedup:       dedup,
		limiter:     limiter,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
	}))

	r.Get("/health", s.handleHealth)
	r.Group(func(api chi.Router) {
		api.Use(s.checkOrigin)
		api.Use(s.sessionGate)
		api.Post("/api/generate", s.handleGenerate)
		if s.history != nil {
			api.Get("/api/history", s.handleHistory)
		}
	})

	s.router = r
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      s.cfg.RequestTimeout + 15*time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("server shutdown error", "err", err)
		}
	}()

	s.log.Info("gateway listening", "addr", s.cfg.ListenAddr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type generateRequest struct {
	Prompt    string `json:"prompt"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = r.Header.Get("X-Request-ID")
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}

	seen, err := s.dedup.Seen(r.Context(), gate.DedupKey(requestID, req.Prompt))
	if err != nil {
		s.log.Error("dedup check failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if seen {
		s.writeErrorResult(w, http.StatusTooManyRequests, req.Prompt, "duplicate request, please wait")
		return
	}

	if err := gate.ValidatePrompt(req.Prompt); err != nil {
		s.writeErrorResult(w, http.StatusBadRequest, req.Prompt, err.Error())
		return
	}

	ip := clientIP(r)
	decision, err := s.limiter.Allow(r.Context(), ip)
	if err != nil {
		s.log.Error("rate limit check failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !decision.Allowed {
		retry := int(decision.RetryAfter.Seconds() + 0.5)
		if retry < 1 {
			retry = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		s.writeErrorResult(w, http.StatusTooManyRequests, req.Prompt,
			fmt.Sprintf("too many requests, retry in %d seconds", retry))
		return
	}

	result, err := s.generations.Generate(r.Context(), service.GenerationInput{
		UserID:    userID(r.Context()),
		RequestID: requestID,
		Prompt:    req.Prompt,
	})
	if err != nil {
		status, message := mapUpstreamError(err)
		s.log.Error("generation failed", "status", status, "ip", ip, "err", err)
		s.writeErrorResult(w, status, req.Prompt, message)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

// handleHistory lists the caller's recent generations, newest first. The
// audit log is keyed by user id, so an anonymous session has no history.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	uid := userID(r.Context())
	if uid == "" {
		s.writeError(w, http.StatusUnauthorized, "sign in to view history")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	logs, err := s.history.RecentForUser(r.Context(), uid, limit)
	if err != nil {
		s.log.Error("history lookup failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if logs == nil {
		logs = []models.GenerationLog{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"generations": logs})
}

// mapUpstreamError folds every upstream failure into the fixed set of
// client-facing messages. Diagnostic detail stays in the server logs.
func mapUpstreamError(err error) (int, string) {
	if errors.Is(err, pixelapi.ErrNotConfigured) {
		return http.StatusInternalServerError, "image service is not configured"
	}
	if errors.Is(err, pixelapi.ErrInvalidResponse) {
		return http.StatusInternalServerError, "invalid response from the API"
	}

	var statusErr *pixelapi.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusTooManyRequests:
			return http.StatusTooManyRequests, "credit limit reached, please try again later"
		case http.StatusUnauthorized, http.StatusForbidden:
			return http.StatusInternalServerError, "image service authentication failed"
		default:
			return http.StatusInternalServerError, fmt.Sprintf("API error: %d", statusErr.StatusCode)
		}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return http.StatusGatewayTimeout, "the image service timed out"
	}
	return http.StatusServiceUnavailable, "the image service is unreachable"
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErrorResult answers with the uniform GenerationResult shape so the
// caller always has something to render.
func (s *Server) writeErrorResult(w http.ResponseWriter, status int, prompt, message string) {
	s.writeJSON(w, status, models.Failure(prompt, message))
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"message": message})
}
