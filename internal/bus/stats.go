package bus

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/memgate-labs/memgate/internal/privacy"
)

// Snapshot holds the derived counters persisted to disk.
type Snapshot struct {
	TotalQueries     int            `json:"total_queries"`
	BlockedHighRisk  int            `json:"blocked_high_risk"`
	TotalRedactions  int            `json:"total_redactions"`
	IngestedFiles    int            `json:"ingested_files"`
	IngestedChunks   int            `json:"ingested_chunks"`
	IngestErrors     int            `json:"ingest_errors"`
	RedactionsByKind map[string]int `json:"redactions_by_kind,omitempty"`
}

// Stats is the bus subscriber that maintains counters and persists
// snapshots. All file writes flow through a single writer goroutine so
// concurrent events never interleave writes.
type Stats struct {
	mu       sync.Mutex
	snap     Snapshot
	path     string
	writeCh  chan []byte
	done     chan struct{}
	unsub    func()
	stopOnce sync.Once
}

// NewStats attaches a stats collector to the bus. path may be empty to
// disable persistence.
func NewStats(b *Bus, path string) *Stats {
	s := &Stats{
		snap:    Snapshot{RedactionsByKind: make(map[string]int)},
		path:    path,
		writeCh: make(chan []byte, 16),
		done:    make(chan struct{}),
	}
	s.unsub = b.Subscribe(s.handle)
	go s.writer()
	return s
}

// Close detaches from the bus and stops the writer after draining.
func (s *Stats) Close() {
	s.stopOnce.Do(func() {
		s.unsub()
		close(s.writeCh)
		<-s.done
	})
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.snap
	out.RedactionsByKind = make(map[string]int, len(s.snap.RedactionsByKind))
	for k, v := range s.snap.RedactionsByKind {
		out.RedactionsByKind[k] = v
	}
	return out
}

func (s *Stats) handle(ev Event) {
	s.mu.Lock()
	switch ev.Type {
	case EventQueryReceived:
		s.snap.TotalQueries++
	case EventRiskBlocked:
		if reason, _ := ev.Payload["reason"].(string); reason == "high-risk" {
			s.snap.BlockedHighRisk++
		}
	case EventPrivacyProcessed:
		if n, ok := ev.Payload["redactions"].(int); ok {
			s.snap.TotalRedactions += n
		}
		if cleaned, ok := ev.Payload["cleaned"].(string); ok {
			for _, placeholder := range privacy.AllPlaceholders() {
				if c := strings.Count(cleaned, placeholder); c > 0 {
					s.snap.RedactionsByKind[placeholder] += c
				}
			}
		}
	case EventIngestSuccess:
		s.snap.IngestedFiles++
		if n, ok := ev.Payload["chunks"].(int); ok {
			s.snap.IngestedChunks += n
		}
	case EventIngestError:
		s.snap.IngestErrors++
	}
	data, err := json.MarshalIndent(s.snap, "", "  ")
	s.mu.Unlock()

	if err != nil || s.path == "" {
		return
	}
	// Non-blocking: a slow disk drops intermediate snapshots, never events.
	select {
	case s.writeCh <- data:
	default:
	}
}

// writer is the only goroutine that touches the snapshot file.
func (s *Stats) writer() {
	defer close(s.done)
	for data := range s.writeCh {
		if s.path == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
			continue
		}
		tmp := s.path + ".tmp"
		if err := os.WriteFile(tmp, data, 0o644); err != nil {
			continue
		}
		_ = os.Rename(tmp, s.path)
	}
}
