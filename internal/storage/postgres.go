// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tomtom215/readstream/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS contents (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	excerpt      TEXT NOT NULL,
	full_text    TEXT NOT NULL DEFAULT '',
	tags         TEXT[] NOT NULL DEFAULT '{}',
	published_at TIMESTAMPTZ NOT NULL,
	source_url   TEXT NOT NULL DEFAULT '',
	article_url  TEXT NOT NULL,
	source       TEXT NOT NULL,
	license      TEXT NOT NULL,
	content_type TEXT NOT NULL,
	important    BOOLEAN NOT NULL DEFAULT FALSE,
	created_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS contents_published_at_idx ON contents (published_at DESC, id);

CREATE TABLE IF NOT EXISTS collect_runs (
	run_id      TEXT PRIMARY KEY,
	finished_at TIMESTAMPTZ NOT NULL,
	data        JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS collect_runs_finished_at_idx ON collect_runs (finished_at DESC);

CREATE TABLE IF NOT EXISTS user_profiles (
	user_id    TEXT PRIMARY KEY,
	interests  TEXT[] NOT NULL DEFAULT '{}',
	label      TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL
);
`

var contentColumns = []string{
	"id", "title", "excerpt", "full_text", "tags", "published_at", "source_url",
	"article_url", "source", "license", "content_type", "important", "created_at",
}

// Postgres is a Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
	psql sq.StatementBuilderType
}

// OpenPostgres connects, pings and applies the schema.
func OpenPostgres(ctx context.Context, dsn string, maxConns int32) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if maxConns > 0 {
		poolCfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	p := &Postgres{pool: pool, psql: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
	if err := p.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// Migrate creates tables and indexes if they are missing.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (p *Postgres) ContentExists(ctx context.Context, id string) (bool, error) {
	query, args, err := p.psql.Select("1").From("contents").Where(sq.Eq{"id": id}).Limit(1).ToSql()
	if err != nil {
		return false, err
	}
	var one int
	err = p.pool.QueryRow(ctx, query, args...).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check content %s: %w", id, err)
	}
	return true, nil
}

func (p *Postgres) PutContent(ctx context.Context, c models.Content) error {
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	query, args, err := p.psql.Insert("contents").
		Columns(contentColumns...).
		Values(c.ID, c.Title, c.Excerpt, c.FullText, tags, c.PublishedAt, c.SourceURL,
			c.ArticleURL, c.Source, string(c.License), string(c.ContentType), c.Important, c.CreatedAt).
		Suffix("ON CONFLICT (id) DO NOTHING").
		ToSql()
	if err != nil {
		return err
	}

	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert content %s: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (p *Postgres) GetContents(ctx context.Context, ids []string) (map[string]models.Content, error) {
	out := make(map[string]models.Content, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := p.psql.Select(contentColumns...).From("contents").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return nil, err
	}
	list, err := p.queryContents(ctx, query, args)
	if err != nil {
		return nil, err
	}
	for _, c := range list {
		out[c.ID] = c
	}
	return out, nil
}

func (p *Postgres) RecentContents(ctx context.Context, since time.Time, limit int) ([]models.Content, error) {
	b := p.psql.Select(contentColumns...).From("contents").
		Where(sq.GtOrEq{"published_at": since}).
		OrderBy("published_at DESC", "id ASC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	return p.queryContents(ctx, query, args)
}

func (p *Postgres) queryContents(ctx context.Context, query string, args []any) ([]models.Content, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query contents: %w", err)
	}
	defer rows.Close()

	var out []models.Content
	for rows.Next() {
		var (
			c           models.Content
			license, ct string
		)
		if err := rows.Scan(&c.ID, &c.Title, &c.Excerpt, &c.FullText, &c.Tags, &c.PublishedAt,
			&c.SourceURL, &c.ArticleURL, &c.Source, &license, &ct, &c.Important, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}
		c.License = models.License(license)
		c.ContentType = models.ContentType(ct)
		c.PublishedAt = c.PublishedAt.UTC()
		c.CreatedAt = c.CreatedAt.UTC()
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contents: %w", err)
	}
	return out, nil
}

func (p *Postgres) CountContents(ctx context.Context) (int64, error) {
	query, args, err := p.psql.Select("COUNT(*)").From("contents").ToSql()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := p.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count contents: %w", err)
	}
	return n, nil
}

func (p *Postgres) SaveRun(ctx context.Context, run models.RunMetrics) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	query, args, err := p.psql.Insert("collect_runs").
		Columns("run_id", "finished_at", "data").
		Values(run.RunID, run.FinishedAt, data).
		Suffix("ON CONFLICT (run_id) DO UPDATE SET finished_at = EXCLUDED.finished_at, data = EXCLUDED.data").
		ToSql()
	if err != nil {
		return err
	}
	if _, err := p.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("save run %s: %w", run.RunID, err)
	}
	return nil
}

func (p *Postgres) LatestRun(ctx context.Context) (models.RunMetrics, error) {
	return p.scanRun(ctx, p.psql.Select("data").From("collect_runs").
		OrderBy("finished_at DESC").Limit(1))
}

func (p *Postgres) GetRun(ctx context.Context, runID string) (models.RunMetrics, error) {
	return p.scanRun(ctx, p.psql.Select("data").From("collect_runs").Where(sq.Eq{"run_id": runID}))
}

func (p *Postgres) scanRun(ctx context.Context, b sq.SelectBuilder) (models.RunMetrics, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return models.RunMetrics{}, err
	}
	var data []byte
	err = p.pool.QueryRow(ctx, query, args...).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.RunMetrics{}, ErrNotFound
	}
	if err != nil {
		return models.RunMetrics{}, fmt.Errorf("load run: %w", err)
	}
	var run models.RunMetrics
	if err := json.Unmarshal(data, &run); err != nil {
		return models.RunMetrics{}, fmt.Errorf("decode run: %w", err)
	}
	return run, nil
}

func (p *Postgres) PutProfile(ctx context.Context, prof models.UserProfile) error {
	interests := prof.Interests
	if interests == nil {
		interests = []string{}
	}
	query, args, err := p.psql.Insert("user_profiles").
		Columns("user_id", "interests", "label", "updated_at").
		Values(prof.UserID, interests, prof.Label, prof.UpdatedAt).
		Suffix("ON CONFLICT (user_id) DO UPDATE SET interests = EXCLUDED.interests, label = EXCLUDED.label, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return err
	}
	if _, err := p.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("save profile %s: %w", prof.UserID, err)
	}
	return nil
}

func (p *Postgres) GetProfile(ctx context.Context, userID string) (models.UserProfile, error) {
	query, args, err := p.psql.Select("user_id", "interests", "label", "updated_at").
		From("user_profiles").Where(sq.Eq{"user_id": userID}).ToSql()
	if err != nil {
		return models.UserProfile{}, err
	}
	var prof models.UserProfile
	err = p.pool.QueryRow(ctx, query, args...).Scan(&prof.UserID, &prof.Interests, &prof.Label, &prof.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.UserProfile{}, ErrNotFound
	}
	if err != nil {
		return models.UserProfile{}, fmt.Errorf("load profile %s: %w", userID, err)
	}
	prof.UpdatedAt = prof.UpdatedAt.UTC()
	return prof, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

var _ Store = (*Postgres)(nil)
