package ingest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/memgate-labs/memgate/internal/bus"
	"github.com/memgate-labs/memgate/internal/store"
)

// Ingester drives files through extraction, chunking, and the repository
// write path. Concurrent events for the same file are coalesced through the
// in-flight map: duplicates arriving while a file is processing are ignored.
type Ingester struct {
	repo     *store.Repo
	manifest *Manifest
	bus      *bus.Bus
	logger   *zap.Logger

	mu       sync.Mutex
	inflight map[string]bool
}

// New builds an ingester.
func New(repo *store.Repo, manifest *Manifest, b *bus.Bus, logger *zap.Logger) *Ingester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingester{
		repo:     repo,
		manifest: manifest,
		bus:      b,
		logger:   logger,
		inflight: make(map[string]bool),
	}
}

// IngestFile processes one file end to end. Unchanged files (same size and
// mtime as the manifest) are skipped. Returns the number of chunks written.
func (in *Ingester) IngestFile(path string) (int, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	in.mu.Lock()
	if in.inflight[abs] {
		in.mu.Unlock()
		return 0, nil
	}
	in.inflight[abs] = true
	in.mu.Unlock()
	defer func() {
		in.mu.Lock()
		delete(in.inflight, abs)
		in.mu.Unlock()
	}()

	if !Supported(abs) {
		return 0, fmt.Errorf("unsupported file extension: %s", filepath.Ext(abs))
	}

	info, err := os.Stat(abs)
	if err != nil {
		in.publishError(abs, err)
		return 0, fmt.Errorf("stat: %w", err)
	}
	if in.manifest.Unchanged(abs, info) {
		return 0, nil
	}

	text, err := ExtractText(abs)
	if err != nil {
		in.publishError(abs, err)
		return 0, err
	}

	// Replace any previous chunks of this file before writing new ones.
	if _, err := in.repo.DeleteDocumentsBySource(abs); err != nil {
		in.logger.Warn("could not delete stale chunks", zap.String("file", abs), zap.Error(err))
	}

	chunks := ChunkText(text, DefaultChunkChars)
	written := 0
	for _, chunk := range chunks {
		if _, err := in.repo.SaveDocument(chunk, abs); err != nil {
			in.publishError(abs, err)
			return written, fmt.Errorf("save chunk: %w", err)
		}
		written++
	}

	in.manifest.Record(abs, info)
	in.bus.Publish(bus.EventIngestSuccess, map[string]any{
		"file": abs, "chunks": written,
	})
	in.logger.Info("ingested file", zap.String("file", abs), zap.Int("chunks", written))
	return written, nil
}

// IngestDir walks a directory and ingests every supported file.
// Per-file failures are logged and counted, never fatal for the walk.
func (in *Ingester) IngestDir(root string) (files, chunks int, err error) {
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() != "." && len(d.Name()) > 1 && d.Name()[0] == '.' {
				return filepath.SkipDir
			}
			return nil
		}
		if !Supported(path) {
			return nil
		}
		n, ferr := in.IngestFile(path)
		if ferr != nil {
			in.logger.Warn("ingest failed", zap.String("file", path), zap.Error(ferr))
			return nil
		}
		if n > 0 {
			files++
			chunks += n
		}
		return nil
	})
	return files, chunks, walkErr
}

// Remove deletes a file's chunks and manifest entry (watcher remove events).
func (in *Ingester) Remove(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if n, err := in.repo.DeleteDocumentsBySource(abs); err == nil && n > 0 {
		in.logger.Info("removed file from index", zap.String("file", abs), zap.Int("chunks", n))
	}
	in.manifest.Forget(abs)
}

func (in *Ingester) publishError(path string, err error) {
	in.bus.Publish(bus.EventIngestError, map[string]any{
		"file": path, "error": err.Error(),
	})
}
