// Package index implements the vector index on PostgreSQL with pgvector.
//
// Two independent namespaces share one pool: the content namespace holds
// document chunks with their embeddings, the prompt-log namespace holds
// ad-hoc prompt/result records. Each namespace is provisioned lazily and
// idempotently; provisioning one never touches the other.
package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/docsage/docsage/internal/log"
)

var (
	// ErrProvisioningFailed indicates a namespace could not be created.
	// The failure is scoped to the affected namespace; the other one
	// stays usable.
	ErrProvisioningFailed = errors.New("index provisioning failed")

	// ErrUnknownNamespace indicates a namespace name outside the two
	// supported collections.
	ErrUnknownNamespace = errors.New("unknown namespace")
)

// Namespace names accepted by Exists.
const (
	NamespaceContent   = "content"
	NamespacePromptLog = "prompt-log"
)

// Backing table per namespace.
const (
	contentTable   = "embeddings"
	promptLogTable = "prompt_results"
)

// Querier is the subset of pgxpool.Pool the store needs.
// Defined consumer-side so tests can substitute a fake.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Entry is the persisted unit in the content namespace.
type Entry struct {
	Key      string
	Content  string
	Metadata map[string]string
}

// Result is one search hit with its cosine distance to the query vector.
type Result struct {
	Entry
	Distance float64
}

// PromptEntry is the persisted unit in the prompt-log namespace.
// The ID is caller-supplied and doubles as the store key.
type PromptEntry struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Prompt   string `json:"prompt"`
	Result   string `json:"result"`
}

// Store provides vector index operations over both namespaces.
// Safe for concurrent use; per-key writes rely on PostgreSQL row atomicity.
type Store struct {
	db         Querier
	dimensions int
	logger     log.Logger
}

// New creates a store. dimensions fixes the vector column width used when
// provisioning the content namespace.
func New(db Querier, dimensions int, logger log.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("querier is required")
	}
	if dimensions < 1 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", dimensions)
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{db: db, dimensions: dimensions, logger: logger}, nil
}

// Exists reports whether the namespace's backing table has been provisioned.
// A missing table is a false result, not an error; only connectivity
// failures surface as errors.
func (s *Store) Exists(ctx context.Context, namespace string) (bool, error) {
	table, err := tableFor(namespace)
	if err != nil {
		return false, err
	}
	return s.tableExists(ctx, table)
}

func (s *Store) tableExists(ctx context.Context, table string) (bool, error) {
	var regclass *string
	if err := s.db.QueryRow(ctx, "SELECT to_regclass($1)::text", table).Scan(&regclass); err != nil {
		return false, fmt.Errorf("probing table %s: %w", table, err)
	}
	return regclass != nil, nil
}

func tableFor(namespace string) (string, error) {
	switch namespace {
	case NamespaceContent:
		return contentTable, nil
	case NamespacePromptLog:
		return promptLogTable, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownNamespace, namespace)
	}
}
