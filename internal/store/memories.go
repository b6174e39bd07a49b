package store

import (
	"fmt"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

// Memory is one stored record: a document chunk or a user fact.
type Memory struct {
	UID       string `json:"id"`
	Text      string `json:"text"`
	Category  string `json:"category,omitempty"`
	Source    string `json:"source"`
	CreatedAt string `json:"created_at"`
}

// InsertMemory stores a record and its embedding in one transaction.
func (db *DB) InsertMemory(m *Memory, vec []float32) error {
	if len(vec) != db.dims {
		return fmt.Errorf("vector dimension %d does not match store dimension %d", len(vec), db.dims)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if m.CreatedAt == "" {
		m.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	res, err := tx.Exec(
		`INSERT INTO memories (uid, text, category, source, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.UID, m.Text, m.Category, m.Source, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}
	rowID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}

	vecData, err := sqlite_vec.SerializeFloat32(vec)
	if err != nil {
		return fmt.Errorf("serialize vector: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO memories_vec (memory_id, embedding) VALUES (?, ?)`,
		rowID, vecData,
	); err != nil {
		return fmt.Errorf("insert vector: %w", err)
	}

	return tx.Commit()
}

// Recent returns the most recently created records across both sources.
func (db *DB) Recent(limit int) ([]Memory, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.conn.Query(
		`SELECT uid, text, category, source, created_at FROM memories
		 ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent: %w", err)
	}
	defer rows.Close()

	var out []Memory
	for rows.Next() {
		var m Memory
		if err := rows.Scan(&m.UID, &m.Text, &m.Category, &m.Source, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Count returns the number of records with the given source tag, or all
// records when source is empty.
func (db *DB) Count(source string) (int, error) {
	var n int
	var err error
	if source == "" {
		err = db.conn.QueryRow(`SELECT COUNT(*) FROM memories`).Scan(&n)
	} else {
		err = db.conn.QueryRow(`SELECT COUNT(*) FROM memories WHERE source = ?`, source).Scan(&n)
	}
	return n, err
}

// DeleteBySourceCategory removes document records whose category matches.
// Used for per-source-file deletion (category holds the file basename).
func (db *DB) DeleteBySourceCategory(category string) (int, error) {
	return db.deleteWhere(`source = ? AND category = ?`, SourceDocument, category)
}

// ClearSource removes every record with the given source tag. Scoped by tag,
// never by table truncation, so schema state is preserved.
func (db *DB) ClearSource(source string) (int, error) {
	return db.deleteWhere(`source = ?`, source)
}

func (db *DB) deleteWhere(cond string, args ...any) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM memories_vec WHERE memory_id IN (SELECT id FROM memories WHERE `+cond+`)`,
		args...,
	); err != nil {
		return 0, fmt.Errorf("delete vectors: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM memories WHERE `+cond, args...)
	if err != nil {
		return 0, fmt.Errorf("delete memories: %w", err)
	}
	n, _ := res.RowsAffected()
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int(n), nil
}

// RawResult is one KNN hit with its underlying distance (lower = closer).
type RawResult struct {
	ID       int64
	UID      string
	Text     string
	Category string
	Source   string
	Distance float64
}

// VectorSearchRaw performs a KNN search and returns raw rows with distances.
// Source filtering happens in the caller — vec0 MATCH cannot combine with
// arbitrary join predicates, so fetch wide and filter in Go.
func (db *DB) VectorSearchRaw(queryVec []float32, fetchK int) ([]RawResult, error) {
	vecData, err := sqlite_vec.SerializeFloat32(queryVec)
	if err != nil {
		return nil, fmt.Errorf("serialize query: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT v.distance, m.id, m.uid, m.text, m.category, m.source
		FROM memories_vec v
		JOIN memories m ON m.id = v.memory_id
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance`,
		vecData, fetchK,
	)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var results []RawResult
	for rows.Next() {
		var r RawResult
		if err := rows.Scan(&r.Distance, &r.ID, &r.UID, &r.Text, &r.Category, &r.Source); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
