package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mtzanidakis/securevault/internal/auth"
	"github.com/mtzanidakis/securevault/internal/config"
	"github.com/mtzanidakis/securevault/internal/natsbus"
	"github.com/mtzanidakis/securevault/internal/secrets"
	"github.com/mtzanidakis/securevault/internal/token"
	"github.com/nats-io/nats.go"
)

const (
	bearerPrefix = "Bearer "
	maxBodyBytes = 1 << 20
)

type ctxKey int

const subjectKey ctxKey = iota

type Server struct {
	secrets *secrets.Service
	tokens  *token.Issuer
	creds   *auth.Credentials
	bus     *natsbus.Bus
	nats    *natsbus.Client
	hub     *Hub
	cfg     config.WebConfig
	version string
}

// NewServer wires the HTTP gateway. bus may be nil when audit events are disabled.
func NewServer(svc *secrets.Service, tokens *token.Issuer, creds *auth.Credentials, bus *natsbus.Bus, cfg config.WebConfig, version string) *Server {
	return &Server{
		secrets: svc,
		tokens:  tokens,
		creds:   creds,
		bus:     bus,
		hub:     NewHub(),
		cfg:     cfg,
		version: version,
	}
}

// Handler returns the routed and authenticated HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Public endpoints
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	// Bearer-protected endpoints
	mux.HandleFunc("POST /api/secrets", s.createSecret)
	mux.HandleFunc("GET /api/secrets/{id}", s.getSecret)
	mux.HandleFunc("GET /api/events", s.handleWebSocket)

	return s.withMiddleware(mux)
}

func (s *Server) Start(ctx context.Context) error {
	go s.hub.Run(ctx)

	// Subscribe to NATS events and broadcast to WebSocket
	s.subscribeEvents()
	defer func() {
		if s.nats != nil {
			s.nats.Close()
		}
	}()

	addr := fmt.Sprintf(":%d", s.cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	slog.Info("web server listening", "addr", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/login" || r.URL.Path == "/api/health" {
			next.ServeHTTP(w, r)
			return
		}

		subject, ok := s.checkAuth(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", `Bearer realm="securevault"`)
			jsonError(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), subjectKey, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// checkAuth validates the bearer token and returns its subject.
func (s *Server) checkAuth(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	raw, found := strings.CutPrefix(header, bearerPrefix)
	if !found || raw == "" {
		return "", false
	}

	subject, err := s.tokens.Verify(raw)
	if err != nil {
		slog.Debug("token rejected", "path", r.URL.Path, "error", err)
		return "", false
	}
	return subject, true
}

func subjectFrom(r *http.Request) string {
	sub, _ := r.Context().Value(subjectKey).(string)
	return sub
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if !s.creds.Authenticate(body.Username, body.Password) {
		slog.Warn("login failed", "username", body.Username)
		s.publishEvent(natsbus.TopicEventsLogin, map[string]any{"username": body.Username, "success": false})
		jsonError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	signed, expires, err := s.tokens.Issue(body.Username)
	if err != nil {
		slog.Error("token issue failed", "error", err)
		jsonError(w, "token creation failed", http.StatusInternalServerError)
		return
	}

	slog.Info("login succeeded", "username", body.Username)
	s.publishEvent(natsbus.TopicEventsLogin, map[string]any{"username": body.Username, "success": true})
	jsonResponse(w, map[string]any{
		"token":   signed,
		"expires": expires,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}

func (s *Server) subscribeEvents() {
	if s.bus == nil {
		return
	}
	client, err := natsbus.NewClient(s.bus)
	if err != nil {
		slog.Error("web server nats client failed", "error", err)
		return
	}
	s.nats = client

	// Forward all audit topics to WebSocket clients
	_, _ = client.Subscribe(natsbus.TopicEventsAll, func(msg *nats.Msg) {
		var event natsbus.Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			slog.Warn("invalid NATS event payload", "error", err)
			return
		}
		s.hub.Broadcast(event)
	})
}

func (s *Server) publishEvent(topic string, data map[string]any) {
	if s.nats == nil {
		return
	}
	if err := s.nats.PublishJSON(topic, natsbus.NewEvent(topic, data)); err != nil {
		slog.Warn("publish audit event failed", "topic", topic, "error", err)
	}
}

func jsonResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
