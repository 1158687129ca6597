package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

var metadataKeyRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Upsert inserts or replaces records in the named collection.
func (s *Store) Upsert(ctx context.Context, name string, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	coll, err := s.getCollection(ctx, name)
	if err != nil {
		return err
	}
	for _, r := range records {
		if len(r.Embedding) != coll.Dimension {
			return ErrDimensionMismatch{Expected: coll.Dimension, Got: len(r.Embedding)}
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (collection, id, text, metadata, embedding) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(collection, id) DO UPDATE SET
		   text = excluded.text, metadata = excluded.metadata, embedding = excluded.embedding`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata for %s: %w", r.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, name, r.ID, r.Text, string(meta), encodeVector(r.Embedding)); err != nil {
			return fmt.Errorf("upsert %s: %w", r.ID, err)
		}
	}

	if err := s.touch(ctx, tx, name); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	delete(s.ann, name)
	return nil
}

// DeleteByFile removes every record whose file_path metadata equals filePath.
// It returns the number of records removed.
func (s *Store) DeleteByFile(ctx context.Context, name, filePath string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	if _, err := s.getCollection(ctx, name); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM chunks WHERE collection = ? AND json_extract(metadata, '$.file_path') = ?`,
		name, filePath)
	if err != nil {
		return 0, fmt.Errorf("delete chunks for %s: %w", filePath, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return 0, nil
	}

	if err := s.touch(ctx, tx, name); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit delete: %w", err)
	}
	delete(s.ann, name)
	return n, nil
}

// touch bumps the collection generation and updated_at.
func (s *Store) touch(ctx context.Context, tx *sql.Tx, name string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE collections SET generation = generation + 1, updated_at = ? WHERE name = ?`,
		formatTime(time.Now()), name)
	if err != nil {
		return fmt.Errorf("update collection: %w", err)
	}
	return nil
}

// Count returns the number of records in the named collection.
func (s *Store) Count(ctx context.Context, name string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	if _, err := s.getCollection(ctx, name); err != nil {
		return 0, err
	}

	return s.countChunks(ctx, name)
}

func (s *Store) countChunks(ctx context.Context, name string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chunks WHERE collection = ?`, name).Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

// DistinctValues returns the sorted distinct non-null values of a metadata key.
func (s *Store) DistinctValues(ctx context.Context, name, key string) ([]string, error) {
	if !metadataKeyRe.MatchString(key) {
		return nil, fmt.Errorf("invalid metadata key %q", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if _, err := s.getCollection(ctx, name); err != nil {
		return nil, err
	}

	path := "$." + key
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT CAST(json_extract(metadata, ?) AS TEXT) FROM chunks
		 WHERE collection = ? AND json_extract(metadata, ?) IS NOT NULL`,
		path, name, path)
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", key, err)
	}
	defer func() { _ = rows.Close() }()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(values)
	return values, nil
}

// Query returns up to topK records most similar to vector, best first.
// Ties are broken by ID.
func (s *Store) Query(ctx context.Context, name string, vector []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	coll, err := s.getCollection(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(vector) != coll.Dimension {
		return nil, ErrDimensionMismatch{Expected: coll.Dimension, Got: len(vector)}
	}

	if s.opts.Index == IndexFlat {
		return s.queryFlat(ctx, name, vector, topK)
	}
	n, err := s.countChunks(ctx, name)
	if err != nil {
		return nil, err
	}
	if n <= s.opts.ExactBelow {
		return s.queryFlat(ctx, name, vector, topK)
	}
	return s.queryANN(ctx, coll, vector, topK)
}

func (s *Store) queryFlat(ctx context.Context, name string, vector []float32, topK int) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, metadata, embedding FROM chunks WHERE collection = ?`, name)
	if err != nil {
		return nil, fmt.Errorf("scan chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var matches []Match
	for rows.Next() {
		var (
			m    Match
			meta string
			blob []byte
		)
		if err := rows.Scan(&m.ID, &m.Text, &meta, &blob); err != nil {
			return nil, err
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", m.ID, err)
		}
		if err := json.Unmarshal([]byte(meta), &m.Metadata); err != nil {
			return nil, fmt.Errorf("chunk %s metadata: %w", m.ID, err)
		}
		m.Score = cosineSimilarity(vector, vec)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortMatches(matches)
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// fetchRecords loads text and metadata for ids.
func (s *Store) fetchRecords(ctx context.Context, name string, ids []string) (map[string]Match, error) {
	out := make(map[string]Match, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	args := make([]any, 0, len(ids)+1)
	args = append(args, name)
	for _, id := range ids {
		args = append(args, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, metadata FROM chunks WHERE collection = ? AND id IN (`+placeholders+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("fetch chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			m    Match
			meta string
		)
		if err := rows.Scan(&m.ID, &m.Text, &meta); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(meta), &m.Metadata); err != nil {
			return nil, fmt.Errorf("chunk %s metadata: %w", m.ID, err)
		}
		out[m.ID] = m
	}
	return out, rows.Err()
}

func sortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
}
