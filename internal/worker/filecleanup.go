package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/archsaint/storefront/internal/port/messagequeue"
)

// FileCleanupWorker consumes jobs.filecleanup messages and removes staged
// temporary files. An already-missing file counts as cleaned; removal is
// idempotent under at-least-once delivery.
type FileCleanupWorker struct {
	queue  messagequeue.Queue
	cancel func()
}

// NewFileCleanupWorker creates a FileCleanupWorker.
func NewFileCleanupWorker(queue messagequeue.Queue) *FileCleanupWorker {
	return &FileCleanupWorker{queue: queue}
}

// Start subscribes the worker to its subject. Call Stop to unsubscribe.
func (w *FileCleanupWorker) Start(ctx context.Context) error {
	cancel, err := w.queue.Subscribe(ctx, messagequeue.SubjectFileCleanup, w.handle)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", messagequeue.SubjectFileCleanup, err)
	}
	w.cancel = cancel
	return nil
}

// Stop cancels the worker's subscription.
func (w *FileCleanupWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
}

func (w *FileCleanupWorker) handle(_ context.Context, _ string, data []byte) error {
	var payload messagequeue.FileCleanupPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		slog.Error("file cleanup payload unmarshal failed", "error", err)
		return nil
	}

	var failed error
	for _, path := range payload.Paths {
		err := os.Remove(path)
		switch {
		case err == nil:
			slog.Debug("temp file removed", "path", path)
		case errors.Is(err, fs.ErrNotExist):
			// Already gone, likely a redelivery.
		default:
			slog.Warn("temp file removal failed", "path", path, "error", err)
			failed = err
		}
	}
	return failed
}
