package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/your-org/vsconsole/internal/config"
	"github.com/your-org/vsconsole/internal/models"
)

const auditSchema = `
CREATE TABLE IF NOT EXISTS audit_log (
	id         UUID PRIMARY KEY,
	action     TEXT NOT NULL,
	target     TEXT NOT NULL DEFAULT '',
	outcome    TEXT NOT NULL,
	error      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS audit_log_created_at_idx ON audit_log (created_at DESC);
`

// DefaultAuditLimit bounds an audit listing when the caller gives none.
const DefaultAuditLimit = 100

// AuditStore keeps the operator action log in Postgres.
type AuditStore struct {
	pool *pgxpool.Pool
}

func NewAuditStore(ctx context.Context, cfg config.DatabaseConfig) (*AuditStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &AuditStore{pool: pool}, nil
}

// EnsureSchema creates the audit table when missing.
func (s *AuditStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, auditSchema); err != nil {
		return fmt.Errorf("create audit schema: %w", err)
	}
	return nil
}

func (s *AuditStore) Close() {
	s.pool.Close()
}

func (s *AuditStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *AuditStore) Record(ctx context.Context, e models.AuditEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO audit_log (id, action, target, outcome, error, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.Action, e.Target, e.Outcome, e.Error, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}
	return nil
}

// List returns the newest entries first.
func (s *AuditStore) List(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = DefaultAuditLimit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, action, target, outcome, error, created_at FROM audit_log ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	entries, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.AuditEntry])
	if err != nil {
		return nil, fmt.Errorf("scan audit entries: %w", err)
	}
	return entries, nil
}

// NewAuditEntry describes one operator action and its outcome.
func NewAuditEntry(action, target string, err error) models.AuditEntry {
	e := models.AuditEntry{
		ID:        uuid.New(),
		Action:    action,
		Target:    target,
		Outcome:   models.OutcomeOK,
		CreatedAt: time.Now().UTC(),
	}
	if err != nil {
		e.Outcome = models.OutcomeError
		e.Error = err.Error()
	}
	return e
}
