package store

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/memgate-labs/memgate/internal/config"
	"github.com/memgate-labs/memgate/internal/embedding"
)

// fetchMultiplier widens the raw KNN fetch so source filtering and dedup
// still leave enough candidates.
const fetchMultiplier = 4

// Repo is the memory repository: embedding on the write path, hybrid
// semantic+lexical retrieval on the read path.
type Repo struct {
	db     *DB
	embed  *embedding.Service
	scope  string
	strict bool
	logger *zap.Logger
}

// NewRepo wires a repository over an open DB and embedding service.
func NewRepo(db *DB, embed *embedding.Service, cfg config.RetrievalConfig, strict bool, logger *zap.Logger) *Repo {
	if logger == nil {
		logger = zap.NewNop()
	}
	scope := cfg.Scope
	if scope == "" {
		scope = config.ScopeHybrid
	}
	return &Repo{db: db, embed: embed, scope: scope, strict: strict, logger: logger}
}

// DB exposes the underlying database (doctor checks, tests).
func (r *Repo) DB() *DB { return r.db }

// SaveDocument embeds and stores one ingested chunk. The category records
// the source file's basename so per-source deletion can find it later.
func (r *Repo) SaveDocument(text, sourceFile string) (*Memory, error) {
	return r.save(text, filepath.Base(sourceFile), SourceDocument)
}

// SaveUserFact embeds and stores an explicit user fact.
func (r *Repo) SaveUserFact(fact, category string) (*Memory, error) {
	return r.save(fact, category, SourceUserFact)
}

func (r *Repo) save(text, category, source string) (*Memory, error) {
	vec, err := r.embed.Embed(text)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(vec) == 0 {
		// Whitespace-only input. Not an error, just nothing to store.
		r.logger.Info("skipping save of empty text", zap.String("source", source))
		return nil, nil
	}

	m := &Memory{
		UID:      uuid.NewString(),
		Text:     embedding.NormalizeText(text),
		Category: category,
		Source:   source,
	}
	if err := r.db.InsertMemory(m, vec); err != nil {
		return nil, fmt.Errorf("insert: %w", err)
	}
	return m, nil
}

// Search runs the hybrid retrieval pipeline and returns up to k result texts.
func (r *Repo) Search(query string, k int) ([]string, error) {
	if k <= 0 {
		k = config.DefaultTopK
	}

	vec, err := r.embed.Embed(query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vec) == 0 {
		return nil, nil
	}

	var raw []RawResult
	for _, source := range r.sources() {
		rows, err := r.searchSource(vec, source, k)
		if err != nil {
			// Per-source failures degrade to an empty contribution.
			r.logger.Warn("source search failed", zap.String("source", source), zap.Error(err))
			continue
		}
		raw = append(raw, rows...)
	}

	ranked := Rank(raw, query, k, r.strict)
	out := make([]string, 0, len(ranked))
	for _, res := range ranked {
		out = append(out, res.Memory.Text)
	}
	return out, nil
}

// sources returns the source tags in scope for the configured query scope.
func (r *Repo) sources() []string {
	switch r.scope {
	case config.ScopeFactsOnly:
		return []string{SourceUserFact}
	case config.ScopeDocumentsOnly:
		return []string{SourceDocument}
	default:
		return []string{SourceDocument, SourceUserFact}
	}
}

// searchSource runs one KNN pass and keeps the k closest rows of one source.
func (r *Repo) searchSource(vec []float32, source string, k int) ([]RawResult, error) {
	rows, err := r.db.VectorSearchRaw(vec, k*fetchMultiplier)
	if err != nil {
		return nil, err
	}
	var out []RawResult
	for _, row := range rows {
		if row.Source != source {
			continue
		}
		out = append(out, row)
		if len(out) >= k {
			break
		}
	}
	return out, nil
}

// Recent returns the most recently stored records.
func (r *Repo) Recent(limit int) ([]Memory, error) {
	return r.db.Recent(limit)
}

// DeleteDocumentsBySource removes every document chunk whose category equals
// the basename of sourceFile. Two files sharing a basename under different
// directories are jointly deleted — a known collision.
func (r *Repo) DeleteDocumentsBySource(sourceFile string) (int, error) {
	return r.db.DeleteBySourceCategory(filepath.Base(sourceFile))
}

// ClearDocuments removes all document records.
func (r *Repo) ClearDocuments() (int, error) {
	return r.db.ClearSource(SourceDocument)
}

// ClearUserFacts removes all user facts.
func (r *Repo) ClearUserFacts() (int, error) {
	return r.db.ClearSource(SourceUserFact)
}
