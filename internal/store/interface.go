package store

import "github.com/starford/munin/internal/models"

// NoteStore defines the persistence operations the rest of the application
// depends on. Consumers should depend on this interface rather than the
// concrete *DB type to facilitate testing with mocks.
type NoteStore interface {
	Create(n *models.Note) error
	Get(id string) (*models.Note, error)
	ListAll() ([]models.Note, error)
	ListPublic(limit int) ([]models.Note, error)
	Search(query string, limit int) ([]models.Note, error)
	SetPublic(id string, public bool) error
	Delete(id string) error
	Close() error
}

// Verify *DB satisfies NoteStore at compile time.
var _ NoteStore = (*DB)(nil)
