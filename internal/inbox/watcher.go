// Package inbox watches a drop directory and captures files placed there as
// FILE notes through the analysis pipeline.
package inbox

import (
	"context"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/munin/internal/noteservice"
)

// settleDelay is how long a file must be quiet before it is captured, so
// partially-written files are not ingested mid-copy.
const settleDelay = 500 * time.Millisecond

// Watch starts an fsnotify watcher on dir and captures every new regular
// file as a FILE note until ctx is cancelled. Hidden files and temp files
// are ignored. The watcher never blocks request handling; it runs on its
// own goroutine under the application errgroup.
func Watch(ctx context.Context, dir string, svc *noteservice.Service, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("inbox: watching", slog.String("dir", dir))

	// pending tracks files awaiting their settle delay, keyed by absolute
	// path, valued by last write time.
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(settleDelay / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("inbox: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				delete(pending, ev.Name)
				continue
			}
			if ignored(ev.Name) {
				continue
			}
			if info, statErr := os.Stat(ev.Name); statErr != nil || info.IsDir() {
				continue
			}
			pending[ev.Name] = time.Now()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("inbox: watch error", slog.String("error", err.Error()))

		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) < settleDelay {
					continue
				}
				delete(pending, path)
				capture(ctx, svc, path, logger)
			}
		}
	}
}

func capture(ctx context.Context, svc *noteservice.Service, path string, logger *slog.Logger) {
	name := filepath.Base(path)
	fileType := mediaType(name)

	note, err := svc.Capture(ctx, noteservice.CaptureInput{
		FileName: name,
		FileType: fileType,
	})
	if err != nil {
		logger.Warn("inbox: capture failed",
			slog.String("file", name),
			slog.String("error", err.Error()))
		return
	}

	// The drop directory is an inbox, not storage: once the note exists the
	// file is consumed, so a later write cannot produce a duplicate note.
	if err := os.Remove(path); err != nil {
		logger.Warn("inbox: remove failed",
			slog.String("file", name),
			slog.String("error", err.Error()))
	}

	logger.Info("inbox: captured file",
		slog.String("file", name),
		slog.String("id", note.ID),
		slog.Int("priority", note.Priority))
}

// mediaType derives a declared media type from the file extension.
func mediaType(name string) string {
	t := mime.TypeByExtension(filepath.Ext(name))
	if t == "" {
		return "unknown"
	}
	// Strip parameters like "; charset=utf-8".
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = t[:i]
	}
	return t
}

// ignored filters hidden files and common temp suffixes.
func ignored(path string) bool {
	name := filepath.Base(path)
	return strings.HasPrefix(name, ".") ||
		strings.HasSuffix(name, "~") ||
		strings.HasSuffix(name, ".tmp") ||
		strings.HasSuffix(name, ".part")
}
