// Package models defines the domain types for Munin.
package models

import "time"

// NoteType classifies a captured note. Closed enumeration.
type NoteType string

const (
	TypeNote    NoteType = "NOTE"
	TypeLink    NoteType = "LINK"
	TypeInsight NoteType = "INSIGHT"
	TypeFile    NoteType = "FILE"
)

// ValidType reports whether t is a member of the closed enumeration.
func ValidType(t NoteType) bool {
	switch t {
	case TypeNote, TypeLink, TypeInsight, TypeFile:
		return true
	}
	return false
}

// Note represents a captured, AI-enriched record in the knowledge base.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Summary   string    `json:"summary,omitempty"`
	Type      NoteType  `json:"type"`
	Tags      []string  `json:"tags"`
	Keywords  []string  `json:"keywords,omitempty"`
	Priority  int       `json:"priority"`
	IsPublic  bool      `json:"isPublic"`
	SourceURL string    `json:"sourceUrl,omitempty"`
	FileName  string    `json:"fileName,omitempty"`
	FileType  string    `json:"fileType,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Analysis is the result of analyzing a capture, whether produced by an AI
// backend or by the deterministic keyword fallback. Immutable once produced.
type Analysis struct {
	Title    string   `json:"title"`
	Summary  string   `json:"summary"`
	Tags     []string `json:"tags"`
	Keywords []string `json:"keywords"`
	Type     NoteType `json:"type"`
	Priority int      `json:"priority"` // always clamped to [1,100]
}
