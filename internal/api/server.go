// Package api exposes the produced surface to rendering collaborators:
// the conversation log, the processing snapshot, the model catalog and
// selection, and the question/upload entry points.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lumin-ai/lens/internal/aggregate"
	"github.com/lumin-ai/lens/internal/catalog"
	"github.com/lumin-ai/lens/internal/chat"
	"github.com/lumin-ai/lens/internal/conversation"
	"github.com/lumin-ai/lens/internal/selection"
)

type Server struct {
	router    *chi.Mux
	port      int
	logger    *slog.Logger
	log       *conversation.Log
	agg       *aggregate.Aggregator
	runner    *chat.Runner
	catalog   *catalog.Catalog
	selection *selection.Store
}

func NewServer(
	port int,
	log *conversation.Log,
	agg *aggregate.Aggregator,
	runner *chat.Runner,
	cat *catalog.Catalog,
	sel *selection.Store,
	logger *slog.Logger,
) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:    router,
		port:      port,
		logger:    logger,
		log:       log,
		agg:       agg,
		runner:    runner,
		catalog:   cat,
		selection: sel,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/messages", s.listMessages)
	router.Get("/api/v1/processing", s.processing)
	router.Get("/api/v1/models", s.listModels)
	router.Put("/api/v1/models/selected", s.selectModel)
	router.Post("/api/v1/questions", s.ask)
	router.Post("/api/v1/uploads", s.recordUpload)

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// Handler returns the underlying router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"messages": s.log.All()})
}

func (s *Server) processing(w http.ResponseWriter, r *http.Request) {
	events, lastErr := s.agg.Snapshot()
	resp := map[string]any{"events": events}
	if lastErr != nil {
		resp["error"] = lastErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) listModels(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"models":   s.catalog.Models(),
		"fallback": s.catalog.Fallback(),
	}
	if id, ok := s.selection.Current(); ok {
		resp["selected"] = id
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) selectModel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model string `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Model == "" {
		writeError(w, http.StatusBadRequest, "model is required")
		return
	}
	if !s.catalog.Has(req.Model) {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("unknown model %q", req.Model))
		return
	}
	s.selection.Select(req.Model)
	writeJSON(w, http.StatusOK, map[string]string{"selected": req.Model})
}

func (s *Server) ask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question       string   `json:"question"`
		DatasetID      *int     `json:"dataset_id"`
		SelectedTables []string `json:"selected_tables"`
		ConversationID *int     `json:"conversation_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	msg, err := s.runner.Ask(r.Context(), req.Question, chat.AskParams{
		DatasetID:      req.DatasetID,
		SelectedTables: req.SelectedTables,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		// The question message is already in the log and the failure
		// is in the processing snapshot; report both the error and
		// the message id.
		s.logger.Warn("failed to open stream", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"message_id": msg.ID.String(),
			"error":      err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"message_id": msg.ID.String()})
}

func (s *Server) recordUpload(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Size     int64  `json:"size"`
		RowCount int    `json:"row_count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	msg := s.log.AppendUpload(conversation.Upload{
		Name:     req.Name,
		Size:     req.Size,
		RowCount: req.RowCount,
	})
	writeJSON(w, http.StatusCreated, map[string]any{"message_id": msg.ID.String()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
