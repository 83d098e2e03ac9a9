// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/syllabus-crawler/internal/course"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// CourseStoreConfig controls the Postgres connection pool used for course rows.
type CourseStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Begin(context.Context) (pgx.Tx, error)
	Close()
}

// CourseStore keeps the latest record of every course keyed by id.
type CourseStore struct {
	pool  execCloser
	table string
}

// NewCourseStore creates a Postgres-backed CourseStore using the provided config.
func NewCourseStore(ctx context.Context, cfg CourseStoreConfig) (*CourseStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &CourseStore{pool: pool, table: table}, nil
}

// NewCourseStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewCourseStoreWithPool(pool execCloser, table string) (*CourseStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	table, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &CourseStore{pool: pool, table: table}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = "courses"
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *CourseStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the course table when missing.
func (s *CourseStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	department TEXT NOT NULL,
	title TEXT NOT NULL,
	title_jp TEXT NOT NULL,
	payload JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create course table: %w", err)
	}
	return nil
}

// Upsert writes every course in one transaction, replacing existing rows
// with the same id.
func (s *CourseStore) Upsert(ctx context.Context, department string, courses []course.Course) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("course store is not configured")
	}
	if len(courses) == 0 {
		return nil
	}
	query := fmt.Sprintf(`
INSERT INTO %s (id, department, title, title_jp, payload, updated_at)
VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (id) DO UPDATE SET
	department = EXCLUDED.department,
	title = EXCLUDED.title,
	title_jp = EXCLUDED.title_jp,
	payload = EXCLUDED.payload,
	updated_at = EXCLUDED.updated_at`, s.table)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	if err := upsertAll(ctx, tx, query, department, courses); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

func upsertAll(ctx context.Context, tx pgx.Tx, query, department string, courses []course.Course) error {
	for _, c := range courses {
		if c.ID == "" {
			return fmt.Errorf("course id is required")
		}
		payload, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshal course %s: %w", c.ID, err)
		}
		if _, err := tx.Exec(ctx, query, c.ID, department, c.Title, c.TitleJP, payload); err != nil {
			return fmt.Errorf("upsert course %s: %w", c.ID, err)
		}
	}
	return nil
}
