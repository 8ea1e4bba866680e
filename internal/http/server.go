package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"lavanderia/internal/auth"
	"lavanderia/internal/core"
	"lavanderia/internal/services"
	"lavanderia/internal/storage"
)

type Server struct {
	http.Server

	repo         *storage.Repository
	ledger       *services.LedgerService
	recurrence   *services.RecurrenceService
	installments *services.InstallmentService
	tokens       *auth.TokenManager

	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// NewServer wires the JSON API routes and returns a ready-to-run server.
func NewServer(addr string, repo *storage.Repository, ledger *services.LedgerService, recurrence *services.RecurrenceService, installments *services.InstallmentService, tokens *auth.TokenManager) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		repo:         repo,
		ledger:       ledger,
		recurrence:   recurrence,
		installments: installments,
		tokens:       tokens,
		rateLimiter:  newRateLimiter(),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleHealth)

	mux.HandleFunc("POST /api/registrar", s.trace(s.handleRegistrar))
	mux.HandleFunc("POST /api/login", s.trace(s.handleLogin))

	mux.HandleFunc("GET /api/admin/usuarios", s.trace(s.withAuth(s.withAdmin(s.handleListUsuarios))))

	mux.HandleFunc("GET /api/transacoes", s.trace(s.withAuth(s.handleListTransacoes)))
	mux.HandleFunc("POST /api/transacoes", s.trace(s.withAuth(s.handleCreateTransacao)))
	mux.HandleFunc("GET /api/transacoes/{id}", s.trace(s.withAuth(s.handleGetTransacao)))
	mux.HandleFunc("PUT /api/transacoes/{id}", s.trace(s.withAuth(s.handleUpdateTransacao)))
	mux.HandleFunc("DELETE /api/transacoes/{id}", s.trace(s.withAuth(s.handleDeleteTransacao)))

	mux.HandleFunc("GET /api/recorrentes", s.trace(s.withAuth(s.handleListRecorrentes)))
	mux.HandleFunc("POST /api/recorrentes", s.trace(s.withAuth(s.handleCreateRecorrente)))
	mux.HandleFunc("POST /api/recorrentes/gerar", s.trace(s.withAuth(s.handleGerarMes)))
	mux.HandleFunc("GET /api/recorrentes/projecoes", s.trace(s.withAuth(s.handleProjecoes)))
	mux.HandleFunc("GET /api/recorrentes/{id}", s.trace(s.withAuth(s.handleGetRecorrente)))
	mux.HandleFunc("PUT /api/recorrentes/{id}", s.trace(s.withAuth(s.handleUpdateRecorrente)))
	mux.HandleFunc("PATCH /api/recorrentes/{id}", s.trace(s.withAuth(s.handlePatchRecorrente)))
	mux.HandleFunc("DELETE /api/recorrentes/{id}", s.trace(s.withAuth(s.handleDeleteRecorrente)))

	mux.HandleFunc("GET /api/parceladas", s.trace(s.withAuth(s.handleListParceladas)))
	mux.HandleFunc("POST /api/parceladas", s.trace(s.withAuth(s.handleCreateParcelada)))
	mux.HandleFunc("GET /api/parceladas/{id}", s.trace(s.withAuth(s.handleGetParcelada)))
	mux.HandleFunc("PUT /api/parceladas/{id}", s.trace(s.withAuth(s.handleUpdateParcelada)))
	mux.HandleFunc("PATCH /api/parceladas/{id}", s.trace(s.withAuth(s.handlePatchParcelada)))
	mux.HandleFunc("DELETE /api/parceladas/{id}", s.trace(s.withAuth(s.handleDeleteParcelada)))

	mux.HandleFunc("GET /api/dashboard", s.trace(s.withAuth(s.handleDashboard)))

	return s
}

// Shutdown stops the rate limiter sweep and the HTTP listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// trace adds a request ID, security headers, request logging, and rate
// limiting on writes.
func (s *Server) trace(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

// withAuth resolves the bearer token into an identity on the context.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		identity, err := s.tokens.Verify(strings.TrimSpace(token))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
	}
}

func (s *Server) withAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.IdentityFrom(r.Context())
		if !ok || identity.Role != core.RoleAdmin {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}
		next(w, r)
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type requestIDKey struct{}

type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
