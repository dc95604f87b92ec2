// Package noteservice coordinates the capture pipeline: analysis,
// persistence, and event publication.
package noteservice

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/munin/internal/analysis"
	"github.com/starford/munin/internal/models"
	"github.com/starford/munin/internal/store"
)

// Publisher receives note lifecycle events. Implemented by the SSE broker.
type Publisher interface {
	PublishNoteEvent(kind, id, title string)
}

// CaptureInput is a raw capture: free text, a link, or a file reference.
// At least one of Content, SourceURL, or FileName must be non-blank; the
// HTTP boundary validates this before the service is reached.
type CaptureInput struct {
	Content   string
	SourceURL string
	FileName  string
	FileType  string
	IsPublic  bool
}

// Service coordinates store, analyzer, and event broker.
type Service struct {
	store    store.NoteStore
	analyzer *analysis.Analyzer
	events   Publisher // may be nil
	logger   *slog.Logger
}

// NewService creates a new note service. events may be nil.
func NewService(st store.NoteStore, analyzer *analysis.Analyzer, events Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, analyzer: analyzer, events: events, logger: logger}
}

// Capture analyzes the input, persists the enriched note, and returns it.
// Analysis never fails; only persistence can.
func (s *Service) Capture(ctx context.Context, in CaptureInput) (*models.Note, error) {
	content := strings.TrimSpace(in.Content)
	sourceURL := strings.TrimSpace(in.SourceURL)
	fileName := strings.TrimSpace(in.FileName)
	fileType := strings.TrimSpace(in.FileType)

	var result models.Analysis
	switch {
	case sourceURL != "":
		result = s.analyzer.AnalyzeLink(ctx, sourceURL, content)
	case fileName != "":
		if fileType == "" {
			fileType = "unknown"
		}
		result = s.analyzer.AnalyzeFile(ctx, fileName, fileType, content)
	default:
		result = s.analyzer.Analyze(ctx, content)
	}

	stored := content
	if stored == "" {
		if sourceURL != "" {
			stored = sourceURL
		} else {
			stored = fileName
		}
	}

	now := time.Now().UTC()
	note := &models.Note{
		ID:        uuid.NewString(),
		Title:     result.Title,
		Content:   stored,
		Summary:   result.Summary,
		Type:      result.Type,
		Tags:      result.Tags,
		Keywords:  result.Keywords,
		Priority:  result.Priority,
		IsPublic:  in.IsPublic,
		SourceURL: sourceURL,
		FileName:  fileName,
		FileType:  fileType,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if fileName == "" {
		note.FileType = ""
	}

	if err := s.store.Create(note); err != nil {
		return nil, err
	}

	s.logger.Info("note captured",
		slog.String("id", note.ID),
		slog.String("type", string(note.Type)),
		slog.Int("priority", note.Priority))
	s.publish("note-created", note)
	return note, nil
}

// List returns notes, optionally searched by q, filtered by type, and
// sorted by priority. The type filter is case-insensitive; "ALL" or empty
// means no filter.
func (s *Service) List(_ context.Context, q, typeFilter, sortBy string) ([]models.Note, error) {
	var (
		notes []models.Note
		err   error
	)
	if q != "" {
		notes, err = s.store.Search(q, 0)
	} else {
		notes, err = s.store.ListAll()
	}
	if err != nil {
		return nil, err
	}

	if typeFilter != "" && !strings.EqualFold(typeFilter, "ALL") {
		filtered := notes[:0]
		for _, n := range notes {
			if strings.EqualFold(string(n.Type), typeFilter) {
				filtered = append(filtered, n)
			}
		}
		notes = filtered
	}

	if sortBy == "priority" {
		sortByPriority(notes)
	}

	if notes == nil {
		notes = []models.Note{}
	}
	return notes, nil
}

// Get returns one note by id.
func (s *Service) Get(_ context.Context, id string) (*models.Note, error) {
	return s.store.Get(id)
}

// Delete removes a note.
func (s *Service) Delete(_ context.Context, id string) error {
	note, err := s.store.Get(id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(id); err != nil {
		return err
	}
	s.publish("note-deleted", note)
	return nil
}

// TogglePublic flips a note's public visibility and returns the updated note.
func (s *Service) TogglePublic(_ context.Context, id string) (*models.Note, error) {
	note, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetPublic(id, !note.IsPublic); err != nil {
		return nil, err
	}
	updated, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	s.publish("note-updated", updated)
	return updated, nil
}

// Public returns up to limit public notes, newest first.
func (s *Service) Public(_ context.Context, limit int) ([]models.Note, error) {
	notes, err := s.store.ListPublic(limit)
	if err != nil {
		return nil, err
	}
	if notes == nil {
		notes = []models.Note{}
	}
	return notes, nil
}

func (s *Service) publish(kind string, n *models.Note) {
	if s.events != nil {
		s.events.PublishNoteEvent(kind, n.ID, n.Title)
	}
}

// sortByPriority sorts highest priority first, stable so equal priorities
// keep their newest-first store order.
func sortByPriority(notes []models.Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].Priority > notes[j].Priority
	})
}
