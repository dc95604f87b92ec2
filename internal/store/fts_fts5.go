//go:build sqlite_fts5

package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/munin/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS notes_fts USING fts5(
			id UNINDEXED,
			title,
			content,
			summary,
			tags,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsInsert(tx *sql.Tx, n *models.Note) error {
	_, err := tx.Exec(`INSERT INTO notes_fts (id, title, content, summary, tags) VALUES (?, ?, ?, ?, ?)`,
		n.ID, n.Title, n.Content, n.Summary, strings.Join(n.Tags, " "))
	if err != nil {
		return fmt.Errorf("store: insert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, id string) {
	_, _ = tx.Exec(`DELETE FROM notes_fts WHERE id = ?`, id)
}

// Search performs an FTS5 full-text search, best matches first.
func (db *DB) Search(query string, limit int) ([]models.Note, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.Query(`
		SELECT `+qualifiedNoteColumns+`
		FROM notes_fts f
		JOIN notes n ON n.id = f.id
		WHERE notes_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	return collectNotes(rows)
}

const qualifiedNoteColumns = `n.id, n.title, n.content, n.summary, n.type, n.tags, n.keywords, n.priority,
	n.is_public, n.source_url, n.file_name, n.file_type, n.created_at, n.updated_at`
