// Package api exposes stored content and the reflection agent over a
// small authenticated HTTP API, and over MCP for agent clients.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/eduforge/eduforge/internal/llm"
	"github.com/eduforge/eduforge/internal/reflection"
	"github.com/eduforge/eduforge/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// ContentStore abstracts the persistence operations the API serves.
type ContentStore interface {
	GetContent(hash string) (storage.ContentRecord, error)
	ListContent(limit, offset int) ([]storage.ContentRecord, error)
	DeleteContent(hash string) error
	CountContent() (int, error)
	SaveFeedback(f storage.Feedback) error
	ListFeedback(contentHash string) ([]storage.Feedback, error)
	ListRuns(limit int) ([]storage.Run, error)
}

// Completer abstracts the completion service for the reflect endpoint.
type Completer interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (string, error)
}

// Deps holds dependencies for the HTTP API.
type Deps struct {
	Store ContentStore
	LLM   Completer
	Token string
	Model string // default model for /reflect
}

// NewHandler builds the router: /health is open, everything else sits
// behind bearer auth.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth(deps))

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/content", handleListContent(deps))
		r.Get("/content/{hash}", handleGetContent(deps))
		r.Delete("/content/{hash}", handleDeleteContent(deps))
		r.Post("/content/{hash}/feedback", handlePostFeedback(deps))
		r.Get("/content/{hash}/feedback", handleListFeedback(deps))
		r.Get("/runs", handleListRuns(deps))
		r.Post("/reflect", handleReflect(deps))
	})

	return r
}

// contentResponse is the wire shape of a content record.
type contentResponse struct {
	ContentHash   string    `json:"content_hash"`
	Content       string    `json:"content,omitempty"`
	UserMessage   string    `json:"user_message"`
	Topics        []string  `json:"topics"`
	Languages     []string  `json:"programming_languages"`
	Frameworks    []string  `json:"frameworks"`
	Level         string    `json:"level"`
	LearningStyle string    `json:"learning_style"`
	Model         string    `json:"model"`
	CreatedAt     time.Time `json:"created_at"`
}

func toContentResponse(rec storage.ContentRecord, includeBody bool) contentResponse {
	resp := contentResponse{
		ContentHash:   rec.ContentHash,
		UserMessage:   rec.UserMessage,
		Topics:        rec.Topics,
		Languages:     rec.Languages,
		Frameworks:    rec.Frameworks,
		Level:         rec.Level,
		LearningStyle: rec.LearningStyle,
		Model:         rec.Model,
		CreatedAt:     rec.CreatedAt,
	}
	if includeBody {
		resp.Content = rec.Content
	}
	return resp
}

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]any{"status": "ok"}
		if n, err := deps.Store.CountContent(); err == nil {
			status["content_records"] = n
		}
		writeJSON(w, http.StatusOK, status)
	}
}

func handleListContent(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)
		offset := parseIntParam(r, "offset", 0, 0)

		records, err := deps.Store.ListContent(limit, offset)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list content: %v", err)
			return
		}

		results := make([]contentResponse, 0, len(records))
		for _, rec := range records {
			results = append(results, toContentResponse(rec, false))
		}
		writeJSON(w, http.StatusOK, results)
	}
}

func handleGetContent(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hash := chi.URLParam(r, "hash")

		rec, err := deps.Store.GetContent(hash)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "content not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get content: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, toContentResponse(rec, true))
	}
}

func handleDeleteContent(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hash := chi.URLParam(r, "hash")

		err := deps.Store.DeleteContent(hash)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "content not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete content: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

type feedbackRequest struct {
	Rating int    `json:"rating"`
	Notes  string `json:"notes"`
}

func handlePostFeedback(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hash := chi.URLParam(r, "hash")

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req feedbackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Rating < 1 || req.Rating > 5 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "rating must be between 1 and 5")
			return
		}

		f := storage.Feedback{
			ID:          uuid.New().String(),
			ContentHash: hash,
			Rating:      req.Rating,
			Notes:       req.Notes,
		}
		err := deps.Store.SaveFeedback(f)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "content not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save feedback: %v", err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": f.ID, "status": "saved"})
	}
}

func handleListFeedback(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hash := chi.URLParam(r, "hash")

		fb, err := deps.Store.ListFeedback(hash)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list feedback: %v", err)
			return
		}
		if fb == nil {
			fb = []storage.Feedback{}
		}
		writeJSON(w, http.StatusOK, fb)
	}
}

func handleListRuns(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)

		runs, err := deps.Store.ListRuns(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list runs: %v", err)
			return
		}
		if runs == nil {
			runs = []storage.Run{}
		}
		writeJSON(w, http.StatusOK, runs)
	}
}

type reflectRequest struct {
	Topics        []string `json:"topics"`
	Languages     []string `json:"programming_languages"`
	Frameworks    []string `json:"frameworks"`
	Level         string   `json:"level"`
	LearningStyle string   `json:"learning_style"`
	Steps         int      `json:"steps"`
}

type reflectResponse struct {
	Content        string `json:"content"`
	StepsCompleted int    `json:"steps_completed"`
	State          string `json:"state"`
}

func handleReflect(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req reflectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Steps < 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "steps must be >= 0")
			return
		}

		agent := reflection.NewAgent(deps.LLM, reflection.Config{
			Topics:        req.Topics,
			Languages:     req.Languages,
			Frameworks:    req.Frameworks,
			Level:         req.Level,
			LearningStyle: req.LearningStyle,
			Model:         deps.Model,
		})

		res, err := agent.Run(r.Context(), req.Steps)
		if err != nil {
			httpError(w, http.StatusBadGateway, "generation_error", "reflection failed: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, reflectResponse{
			Content:        res.Content,
			StepsCompleted: res.StepsCompleted,
			State:          agent.State().String(),
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
