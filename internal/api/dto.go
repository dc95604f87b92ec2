package api

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/munin/internal/models"
	"github.com/starford/munin/internal/query"
)

// CaptureRequest is the request body for creating a note. Exactly one kind
// of capture is expected: free text, a link (with optional description in
// Content), or a file reference (name plus declared media type).
type CaptureRequest struct {
	Content   string `json:"content"`
	SourceURL string `json:"sourceUrl"`
	FileName  string `json:"fileName"`
	FileType  string `json:"fileType"`
	IsPublic  bool   `json:"isPublic"`
}

// Validate rejects captures with no usable input.
func (r CaptureRequest) Validate() error {
	if strings.TrimSpace(r.Content) == "" &&
		strings.TrimSpace(r.SourceURL) == "" &&
		strings.TrimSpace(r.FileName) == "" {
		return errors.New("content, sourceUrl, or fileName is required")
	}
	return nil
}

// AskRequest is the request body for conversational queries.
type AskRequest struct {
	Question string `json:"question"`
}

// Validate requires a non-blank question.
func (r AskRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Question, validation.Required),
	)
}

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []models.Note `json:"notes"`
	Total int           `json:"total"`
}

// PublicBrainResponse is the public notes feed.
type PublicBrainResponse struct {
	Brain string           `json:"brain"`
	Count int              `json:"count"`
	Notes []PublicNoteItem `json:"notes"`
}

// PublicNoteItem is the reduced public projection of a note.
type PublicNoteItem struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Summary   string          `json:"summary,omitempty"`
	Type      models.NoteType `json:"type"`
	Tags      []string        `json:"tags"`
	CreatedAt string          `json:"createdAt"`
}

// PublicQueryResponse wraps a query result for the public endpoint.
type PublicQueryResponse struct {
	Brain string `json:"brain"`
	Query string `json:"query"`
	query.Result
}
