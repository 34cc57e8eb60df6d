// Package httpapi exposes the chat pipeline over HTTP, including a
// server-sent-events streaming endpoint.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/custodia-labs/quorum-cli/internal/core/domain"
	"github.com/custodia-labs/quorum-cli/internal/core/ports/driving"
	"github.com/custodia-labs/quorum-cli/internal/logger"
)

// DefaultAddr is the default listen address.
const DefaultAddr = "localhost:8723"

// shutdownTimeout bounds graceful shutdown once the context is cancelled.
const shutdownTimeout = 5 * time.Second

// Server serves the chat API.
type Server struct {
	chat     driving.ChatService
	registry driving.SourceRegistry
	addr     string
}

// NewServer creates an HTTP API server.
func NewServer(chat driving.ChatService, registry driving.SourceRegistry, addr string) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	return &Server{
		chat:     chat,
		registry: registry,
		addr:     addr,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/chat/stream", s.handleChatStream)
	mux.HandleFunc("GET /api/sources", s.handleSources)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)
	return mux
}

// Run starts the server and blocks until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// chatRequest is the body of POST /api/chat and /api/chat/stream.
type chatRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	Message   string `json:"message"`
}

// handleChat answers one message in a single response.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.chat.Chat(r.Context(), req.Message, req.SessionID)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleChatStream answers one message as a server-sent event stream.
// Each event is one JSON object on a data: line. The stream ends after
// a terminal done or error event, or when the client disconnects.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	events, err := s.chat.ChatStream(r.Context(), req.Message, req.SessionID)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				logger.Warn("marshal stream event: %v", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()

		case <-r.Context().Done():
			// Client went away; the pipeline context is cancelled with it.
			return
		}
	}
}

// sourceStatus is one entry of GET /api/sources.
type sourceStatus struct {
	domain.SourceMetadata
	Available bool `json:"available"`
}

// handleSources lists registered sources with live availability.
func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	available := make(map[string]bool)
	for _, meta := range s.registry.Available(r.Context()) {
		available[meta.ID] = true
	}

	statuses := make([]sourceStatus, 0)
	for _, meta := range s.registry.List() {
		statuses = append(statuses, sourceStatus{
			SourceMetadata: meta,
			Available:      available[meta.ID],
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"sources": statuses})
}

// handleGetSession returns one session's history.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.chat.Session(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// handleDeleteSession removes one session.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.chat.DeleteSession(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrLLMUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
