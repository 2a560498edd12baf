package keys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"aigated/pkg/types"
)

// Store persists API key records. Implementations must enforce digest
// uniqueness on Insert.
type Store interface {
	Insert(ctx context.Context, rec *Record) error
	GetByDigest(ctx context.Context, digest string) (*Record, error)
	GetByID(ctx context.Context, id string) (*Record, error)
	SetStatus(ctx context.Context, id string, st Status) error
	Touch(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Record, error)
	Close() error
}

const schema = `
CREATE TABLE IF NOT EXISTS api_keys (
	id TEXT PRIMARY KEY,
	key_digest TEXT UNIQUE NOT NULL,
	key_prefix TEXT NOT NULL,
	owner TEXT NOT NULL,
	capabilities TEXT NOT NULL,
	rate_limit INTEGER NOT NULL DEFAULT 0,
	window_seconds INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'active',
	usage_count INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	last_used_at INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_api_keys_digest ON api_keys(key_digest);
`

// SQLStore stores key records in a local libsql database file.
type SQLStore struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the key database at path.
func OpenStore(ctx context.Context, path string) (*SQLStore, error) {
	if path == "" {
		return nil, fmt.Errorf("empty key store path")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create key store dir: %w", err)
		}
	}
	db, err := sql.Open("libsql", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("open key store: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping key store: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init key store schema: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) Insert(ctx context.Context, rec *Record) error {
	caps := encodeCaps(rec.Capabilities)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO api_keys
		(id, key_digest, key_prefix, owner, capabilities, rate_limit, window_seconds, status, usage_count, created_at, last_used_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Digest, rec.Prefix, rec.Owner, caps,
		rec.Policy.Requests, int(rec.Policy.Window/time.Second),
		string(rec.Status), rec.UsageCount, rec.CreatedAt.Unix(), lastUsedUnix(rec))
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return duplicateError{}
		}
		return fmt.Errorf("insert key: %w", err)
	}
	return nil
}

func (s *SQLStore) GetByDigest(ctx context.Context, digest string) (*Record, error) {
	return s.getWhere(ctx, "key_digest = ?", digest)
}

func (s *SQLStore) GetByID(ctx context.Context, id string) (*Record, error) {
	return s.getWhere(ctx, "id = ?", id)
}

func (s *SQLStore) getWhere(ctx context.Context, where, arg string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, key_digest, key_prefix, owner, capabilities, rate_limit, window_seconds, status, usage_count, created_at, last_used_at
		FROM api_keys WHERE `+where, arg)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundError{id: arg}
	}
	return rec, err
}

func (s *SQLStore) SetStatus(ctx context.Context, id string, st Status) error {
	res, err := s.db.ExecContext(ctx, `UPDATE api_keys SET status = ? WHERE id = ?`, string(st), id)
	if err != nil {
		return fmt.Errorf("set key status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFoundError{id: id}
	}
	return nil
}

func (s *SQLStore) Touch(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE api_keys SET usage_count = usage_count + 1, last_used_at = ? WHERE id = ?`,
		time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("touch key: %w", err)
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, key_digest, key_prefix, owner, capabilities, rate_limit, window_seconds, status, usage_count, created_at, last_used_at
		FROM api_keys ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()
	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var caps, status string
	var windowSec int
	var createdAt, lastUsed int64
	err := row.Scan(&rec.ID, &rec.Digest, &rec.Prefix, &rec.Owner, &caps,
		&rec.Policy.Requests, &windowSec, &status, &rec.UsageCount, &createdAt, &lastUsed)
	if err != nil {
		return nil, err
	}
	rec.Capabilities = decodeCaps(caps)
	rec.Policy.Window = time.Duration(windowSec) * time.Second
	rec.Status = Status(status)
	rec.CreatedAt = time.Unix(createdAt, 0)
	if lastUsed > 0 {
		rec.LastUsedAt = time.Unix(lastUsed, 0)
	}
	return &rec, nil
}

func encodeCaps(caps []types.Capability) string {
	parts := make([]string, len(caps))
	for i, c := range caps {
		parts[i] = string(c)
	}
	return strings.Join(parts, ",")
}

func decodeCaps(s string) []types.Capability {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	caps := make([]types.Capability, 0, len(parts))
	for _, p := range parts {
		if c, ok := types.ParseCapability(strings.TrimSpace(p)); ok {
			caps = append(caps, c)
		}
	}
	return caps
}

func lastUsedUnix(rec *Record) int64 {
	if rec.LastUsedAt.IsZero() {
		return 0
	}
	return rec.LastUsedAt.Unix()
}
