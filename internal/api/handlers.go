package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/munin/internal/apperr"
	"github.com/starford/munin/internal/models"
	"github.com/starford/munin/internal/noteservice"
	"github.com/starford/munin/internal/query"
)

const brainName = "Munin - AI Second Brain"

// Handler holds API route handlers.
type Handler struct {
	svc    *noteservice.Service
	engine *query.Engine
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service, engine *query.Engine) *Handler {
	return &Handler{svc: svc, engine: engine}
}

// CreateNote handles POST /api/notes: analyze the capture and persist the
// enriched note.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CaptureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	note, err := h.svc.Capture(r.Context(), noteservice.CaptureInput{
		Content:   req.Content,
		SourceURL: req.SourceURL,
		FileName:  req.FileName,
		FileType:  req.FileType,
		IsPublic:  req.IsPublic,
	})
	if err != nil {
		slog.Error("create note failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// ListNotes handles GET /api/notes with optional search, type filter, and
// priority sort.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	notes, err := h.svc.List(r.Context(), q.Get("q"), q.Get("type"), q.Get("sort"))
	if err != nil {
		slog.Error("list notes failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: len(notes)})
}

// GetNote handles GET /api/notes/{id}.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	note, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get note failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// ToggleNote handles PATCH /api/notes/{id}: flip public visibility.
func (h *Handler) ToggleNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	note, err := h.svc.TogglePublic(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("toggle note failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/{id}.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("delete note failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Ask handles POST /api/ask: conversational query over all notes.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("question is required"))
		return
	}
	result := h.engine.Query(r.Context(), req.Question, false)
	writeJSON(w, http.StatusOK, result)
}

// PublicBrain handles GET /api/public/brain: the latest public notes as a
// JSON feed for external dashboards and integrations.
func (h *Handler) PublicBrain(w http.ResponseWriter, r *http.Request) {
	notes, err := h.svc.Public(r.Context(), 10)
	if err != nil {
		slog.Error("public brain failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to retrieve public notes"))
		return
	}

	items := make([]PublicNoteItem, len(notes))
	for i, n := range notes {
		items[i] = publicNoteItem(n)
	}
	w.Header().Set("Cache-Control", "s-maxage=60, stale-while-revalidate")
	writeJSON(w, http.StatusOK, PublicBrainResponse{Brain: brainName, Count: len(items), Notes: items})
}

// PublicQueryGet handles GET /api/public/brain/query?q=...
func (h *Handler) PublicQueryGet(w http.ResponseWriter, r *http.Request) {
	question := r.URL.Query().Get("q")
	if question == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	h.publicQuery(w, r, question)
}

// PublicQueryPost handles POST /api/public/brain/query with {question}.
func (h *Handler) PublicQueryPost(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("request body must contain 'question' field"))
		return
	}
	h.publicQuery(w, r, req.Question)
}

// publicQuery runs a query restricted to public notes so the open endpoint
// cannot leak private content.
func (h *Handler) publicQuery(w http.ResponseWriter, r *http.Request, question string) {
	result := h.engine.Query(r.Context(), question, true)
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, http.StatusOK, PublicQueryResponse{Brain: brainName, Query: question, Result: result})
}

func publicNoteItem(n models.Note) PublicNoteItem {
	return PublicNoteItem{
		ID:        n.ID,
		Title:     n.Title,
		Summary:   n.Summary,
		Type:      n.Type,
		Tags:      n.Tags,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
	}
}
