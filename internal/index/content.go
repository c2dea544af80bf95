package index

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/pgvector/pgvector-go"
)

const searchTimeout = 10 * time.Second

// EnsureContent provisions the content namespace if it does not exist yet.
// Idempotent: the existence probe runs first, and creation itself is
// IF NOT EXISTS, so concurrent callers never fail on "already exists".
func (s *Store) EnsureContent(ctx context.Context) error {
	exists, err := s.tableExists(ctx, contentTable)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProvisioningFailed, err)
	}
	if exists {
		return nil
	}

	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}',
			content_vector vector(%d) NOT NULL
		)`, contentTable, s.dimensions)
	if _, err := s.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrProvisioningFailed, contentTable, err)
	}

	idx := fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s_vector_idx ON %s USING hnsw (content_vector vector_cosine_ops)",
		contentTable, contentTable)
	if _, err := s.db.Exec(ctx, idx); err != nil {
		return fmt.Errorf("%w: creating vector index: %v", ErrProvisioningFailed, err)
	}

	s.logger.Info("provisioned content namespace", "table", contentTable, "dimensions", s.dimensions)
	return nil
}

// Upsert writes or overwrites the entry at key. Overwrite is the defined
// behavior for an existing key.
func (s *Store) Upsert(ctx context.Context, key, content string, metadata map[string]string, vector []float32) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}
	if len(vector) != s.dimensions {
		return fmt.Errorf("vector has %d dimensions, index expects %d", len(vector), s.dimensions)
	}

	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = s.db.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (key, content, metadata, content_vector)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE SET
			content = EXCLUDED.content,
			metadata = EXCLUDED.metadata,
			content_vector = EXCLUDED.content_vector`, contentTable),
		key, content, metadataJSON, pgvector.NewVector(vector))
	if err != nil {
		return fmt.Errorf("upsert %q: %w", key, err)
	}
	return nil
}

// searchConfig collects search options.
type searchConfig struct {
	topK   int
	filter map[string]string
}

// SearchOption customizes a Search call.
type SearchOption func(*searchConfig)

// WithTopK sets how many results to return.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithFilter restricts results to entries whose metadata field equals value.
func WithFilter(field, value string) SearchOption {
	return func(c *searchConfig) {
		if c.filter == nil {
			c.filter = make(map[string]string)
		}
		c.filter[field] = value
	}
}

func buildSearchConfig(opts []SearchOption) searchConfig {
	cfg := searchConfig{topK: 4}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Search returns up to top-k entries ranked by ascending cosine distance to
// the query vector. Ties break on key order, so results are stable for a
// fixed index state. An empty namespace yields an empty slice, not an error.
func (s *Store) Search(ctx context.Context, vector []float32, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	query := fmt.Sprintf(
		"SELECT key, content, metadata, content_vector <=> $1 AS distance FROM %s", contentTable)
	args := []any{pgvector.NewVector(vector)}

	// Deterministic argument order for the filter clauses.
	fields := make([]string, 0, len(cfg.filter))
	for field := range cfg.filter {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for i, field := range fields {
		if i == 0 {
			query += " WHERE"
		} else {
			query += " AND"
		}
		// The explicit cast disambiguates ->> (text key) from -> (int index).
		query += fmt.Sprintf(" metadata->>$%d::text = $%d", len(args)+1, len(args)+2)
		args = append(args, field, cfg.filter[field])
	}

	query += fmt.Sprintf(" ORDER BY distance, key LIMIT $%d", len(args)+1)
	args = append(args, cfg.topK)

	rows, err := s.db.Query(queryCtx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var metadataJSON []byte
		if err := rows.Scan(&r.Key, &r.Content, &metadataJSON, &r.Distance); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		if err := json.Unmarshal(metadataJSON, &r.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for %q: %w", r.Key, err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}

	s.logger.Debug("vector search", "top_k", cfg.topK, "results", len(results))
	return results, nil
}

// GetAll lists up to limit entries in key order, including full metadata.
// An empty namespace yields an empty slice.
func (s *Store) GetAll(ctx context.Context, limit int) ([]Entry, error) {
	if limit < 1 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	rows, err := s.db.Query(ctx, fmt.Sprintf(
		"SELECT key, content, metadata FROM %s ORDER BY key LIMIT $1", contentTable), limit)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var metadataJSON []byte
		if err := rows.Scan(&e.Key, &e.Content, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scan entry row: %w", err)
		}
		if err := json.Unmarshal(metadataJSON, &e.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for %q: %w", e.Key, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entry rows: %w", err)
	}
	return entries, nil
}

// DeleteKeys deletes every listed key. Missing keys are skipped silently;
// the returned count covers rows actually removed.
func (s *Store) DeleteKeys(ctx context.Context, keys []string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	tag, err := s.db.Exec(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE key = ANY($1)", contentTable), keys)
	if err != nil {
		return 0, fmt.Errorf("delete keys: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteByPattern resolves a glob pattern ('*' and '?' wildcards) to the
// matching key set and delegates to DeleteKeys.
func (s *Store) DeleteByPattern(ctx context.Context, pattern string) (int64, error) {
	keys, err := s.KeysMatching(ctx, pattern)
	if err != nil {
		return 0, err
	}
	return s.DeleteKeys(ctx, keys)
}

// KeysMatching returns all content keys matching a glob pattern.
func (s *Store) KeysMatching(ctx context.Context, pattern string) ([]string, error) {
	return s.keysMatching(ctx, contentTable, pattern)
}

func (s *Store) keysMatching(ctx context.Context, table, pattern string) ([]string, error) {
	rows, err := s.db.Query(ctx, fmt.Sprintf(
		`SELECT key FROM %s WHERE key LIKE $1 ESCAPE '\' ORDER BY key`, table), globToLike(pattern))
	if err != nil {
		return nil, fmt.Errorf("match keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keys: %w", err)
	}
	return keys, nil
}

// ExistingKeys reports which of the given keys are already present.
// Used by the ingestion pipeline to skip unchanged chunks.
func (s *Store) ExistingKeys(ctx context.Context, keys []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	if len(keys) == 0 {
		return existing, nil
	}

	rows, err := s.db.Query(ctx, fmt.Sprintf(
		"SELECT key FROM %s WHERE key = ANY($1)", contentTable), keys)
	if err != nil {
		return nil, fmt.Errorf("check existing keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		existing[key] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keys: %w", err)
	}
	return existing, nil
}
