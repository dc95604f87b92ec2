package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starford/munin/internal/apperr"
	"github.com/starford/munin/internal/models"
)

const noteColumns = `id, title, content, summary, type, tags, keywords, priority,
	is_public, source_url, file_name, file_type, created_at, updated_at`

// Create inserts a fully-populated note and its FTS entry within a
// transaction. The caller assigns the id and timestamps.
func (db *DB) Create(n *models.Note) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tagsJSON, _ := json.Marshal(nonNil(n.Tags))
	keywordsJSON, _ := json.Marshal(nonNil(n.Keywords))

	_, err = tx.Exec(`
		INSERT INTO notes (`+noteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.Title, n.Content, n.Summary, string(n.Type), string(tagsJSON), string(keywordsJSON),
		n.Priority, boolToInt(n.IsPublic), n.SourceURL, n.FileName, n.FileType, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: insert note: %w", err)
	}

	if err := ftsInsert(tx, n); err != nil {
		return err
	}

	return tx.Commit()
}

// Get returns the note with the given id, or apperr.ErrNotFound.
func (db *DB) Get(id string) (*models.Note, error) {
	row := db.conn.QueryRow(`SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("store: get note: %w", err)
	}
	return n, nil
}

// ListAll returns every note, newest first.
func (db *DB) ListAll() ([]models.Note, error) {
	rows, err := db.conn.Query(`SELECT ` + noteColumns + ` FROM notes ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list notes: %w", err)
	}
	return collectNotes(rows)
}

// ListPublic returns up to limit public notes, newest first.
func (db *DB) ListPublic(limit int) ([]models.Note, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.conn.Query(`
		SELECT `+noteColumns+` FROM notes
		WHERE is_public = 1
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list public notes: %w", err)
	}
	return collectNotes(rows)
}

// SetPublic updates the public-visibility flag of a note.
func (db *DB) SetPublic(id string, public bool) error {
	res, err := db.conn.Exec(`UPDATE notes SET is_public = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		boolToInt(public), id)
	if err != nil {
		return fmt.Errorf("store: set public: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// Delete removes a note and its FTS entry.
func (db *DB) Delete(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, id)
	res, err := tx.Exec(`DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete note: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return apperr.ErrNotFound
	}

	return tx.Commit()
}

// scanner abstracts *sql.Row and *sql.Rows for scanNote.
type scanner interface {
	Scan(dest ...any) error
}

func scanNote(s scanner) (*models.Note, error) {
	var (
		n        models.Note
		noteType string
		tagsJSON string
		kwJSON   string
		isPublic int
	)
	err := s.Scan(&n.ID, &n.Title, &n.Content, &n.Summary, &noteType, &tagsJSON, &kwJSON,
		&n.Priority, &isPublic, &n.SourceURL, &n.FileName, &n.FileType, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	n.Type = models.NoteType(noteType)
	n.IsPublic = isPublic != 0
	_ = json.Unmarshal([]byte(tagsJSON), &n.Tags)
	_ = json.Unmarshal([]byte(kwJSON), &n.Keywords)
	n.Tags = nonNil(n.Tags)
	return &n, nil
}

func collectNotes(rows *sql.Rows) ([]models.Note, error) {
	defer rows.Close()
	var out []models.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
