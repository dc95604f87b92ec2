package inbox

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/munin/internal/analysis"
	"github.com/starford/munin/internal/models"
	"github.com/starford/munin/internal/noteservice"
	"github.com/starford/munin/internal/testutil"
)

func TestIgnored(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/in/report.pdf", false},
		{"/in/.hidden", true},
		{"/in/draft.md~", true},
		{"/in/upload.tmp", true},
		{"/in/movie.part", true},
		{"/in/notes.txt", false},
	}
	for _, tt := range tests {
		if got := ignored(tt.path); got != tt.want {
			t.Errorf("ignored(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestMediaType(t *testing.T) {
	if got := mediaType("doc.pdf"); got != "application/pdf" {
		t.Errorf("mediaType(doc.pdf) = %q", got)
	}
	if got := mediaType("mystery.qqq"); got != "unknown" {
		t.Errorf("mediaType(mystery.qqq) = %q, want unknown", got)
	}
	// Parameters like charset must be stripped.
	if got := mediaType("readme.txt"); got != "text/plain" {
		t.Errorf("mediaType(readme.txt) = %q, want text/plain", got)
	}
}

func TestWatch_CapturesDroppedFile(t *testing.T) {
	db := testutil.TestDB(t)
	analyzer := analysis.NewAnalyzer(nil, nil, nil)
	svc := noteservice.NewService(db, analyzer, nil, nil)
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, dir, svc, logger)
	}()

	// Let the watcher register before dropping the file.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "meeting.pdf"), []byte("agenda"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Hidden files must never be captured.
	if err := os.WriteFile(filepath.Join(dir, ".ds_store"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	var notes []models.Note
	deadline := time.After(5 * time.Second)
	for len(notes) == 0 {
		select {
		case <-deadline:
			t.Fatal("timeout waiting for inbox capture")
		case <-time.After(100 * time.Millisecond):
			var err error
			notes, err = svc.List(ctx, "", "", "")
			if err != nil {
				t.Fatal(err)
			}
		}
	}

	if len(notes) != 1 {
		t.Fatalf("notes = %d, want 1 (hidden file ignored)", len(notes))
	}
	n := notes[0]
	if n.Type != models.TypeFile {
		t.Errorf("type = %q, want FILE", n.Type)
	}
	if n.FileName != "meeting.pdf" {
		t.Errorf("fileName = %q", n.FileName)
	}
	if n.FileType != "application/pdf" {
		t.Errorf("fileType = %q", n.FileType)
	}

	// The dropped file is consumed after capture.
	gone := false
	for i := 0; i < 20 && !gone; i++ {
		if _, err := os.Stat(filepath.Join(dir, "meeting.pdf")); os.IsNotExist(err) {
			gone = true
		} else {
			time.Sleep(100 * time.Millisecond)
		}
	}
	if !gone {
		t.Error("captured file should be removed from the inbox")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("watcher did not stop on context cancel")
	}
}
