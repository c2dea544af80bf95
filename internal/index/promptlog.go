package index

import (
	"context"
	"fmt"
)

// EnsurePromptLog provisions the prompt-log namespace if it does not exist
// yet. Independent from EnsureContent: neither creates nor requires the
// other namespace.
func (s *Store) EnsurePromptLog(ctx context.Context) error {
	exists, err := s.tableExists(ctx, promptLogTable)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProvisioningFailed, err)
	}
	if exists {
		return nil
	}

	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key TEXT PRIMARY KEY,
			filename TEXT NOT NULL,
			prompt TEXT NOT NULL,
			result TEXT NOT NULL
		)`, promptLogTable)
	if _, err := s.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrProvisioningFailed, promptLogTable, err)
	}

	s.logger.Info("provisioned prompt-log namespace", "table", promptLogTable)
	return nil
}

// AddPromptResult records one ad-hoc prompt/result pair under the
// caller-supplied id. Re-adding the same id overwrites.
func (s *Store) AddPromptResult(ctx context.Context, entry PromptEntry) error {
	if entry.ID == "" {
		return fmt.Errorf("prompt entry id is required")
	}

	_, err := s.db.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (key, filename, prompt, result)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE SET
			filename = EXCLUDED.filename,
			prompt = EXCLUDED.prompt,
			result = EXCLUDED.result`, promptLogTable),
		entry.ID, entry.Filename, entry.Prompt, entry.Result)
	if err != nil {
		return fmt.Errorf("add prompt result %q: %w", entry.ID, err)
	}
	return nil
}

// PromptResults lists up to limit entries sorted by id.
// An empty namespace yields an empty slice.
func (s *Store) PromptResults(ctx context.Context, limit int) ([]PromptEntry, error) {
	if limit < 1 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	rows, err := s.db.Query(ctx, fmt.Sprintf(
		"SELECT key, filename, prompt, result FROM %s ORDER BY key LIMIT $1", promptLogTable), limit)
	if err != nil {
		return nil, fmt.Errorf("list prompt results: %w", err)
	}
	defer rows.Close()

	var entries []PromptEntry
	for rows.Next() {
		var e PromptEntry
		if err := rows.Scan(&e.ID, &e.Filename, &e.Prompt, &e.Result); err != nil {
			return nil, fmt.Errorf("scan prompt result: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prompt results: %w", err)
	}
	return entries, nil
}

// DeletePromptResults deletes every prompt-log entry whose id matches the
// glob pattern and returns the number removed.
func (s *Store) DeletePromptResults(ctx context.Context, pattern string) (int64, error) {
	keys, err := s.keysMatching(ctx, promptLogTable, pattern)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	tag, err := s.db.Exec(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE key = ANY($1)", promptLogTable), keys)
	if err != nil {
		return 0, fmt.Errorf("delete prompt results: %w", err)
	}
	return tag.RowsAffected(), nil
}
