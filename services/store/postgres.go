package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sjsage522/pricewatcher/internal/model"
	"sjsage522/pricewatcher/logger"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS products (
	id UUID PRIMARY KEY,
	platform VARCHAR(20) NOT NULL,
	reference TEXT NOT NULL,
	url TEXT,
	title TEXT,
	current_price NUMERIC,
	target_price NUMERIC NOT NULL DEFAULT 0,
	max_price NUMERIC,
	send_alerts BOOLEAN NOT NULL DEFAULT TRUE,
	last_checked_at TIMESTAMPTZ,
	image_url TEXT,
	currency TEXT,
	user_id TEXT,
	customer_email TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS products_platform_idx ON products (platform);
CREATE INDEX IF NOT EXISTS products_user_id_idx ON products (user_id);

CREATE TABLE IF NOT EXISTS product_history (
	id UUID PRIMARY KEY,
	product_id UUID NOT NULL REFERENCES products (id) ON DELETE CASCADE,
	url TEXT NOT NULL,
	platform VARCHAR(20) NOT NULL,
	title TEXT,
	price NUMERIC,
	currency TEXT,
	image_url TEXT,
	user_id TEXT,
	customer_email TEXT,
	checked_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS product_history_product_id_idx ON product_history (product_id, checked_at DESC);
`

const productColumns = `id::text, platform, reference, COALESCE(url, ''), COALESCE(title, ''), current_price::float8,
	target_price::float8, max_price::float8, send_alerts, last_checked_at, COALESCE(image_url, ''),
	COALESCE(currency, ''), COALESCE(user_id, ''), COALESCE(customer_email, '')`

// Postgres is a Store on top of a pgx connection pool
type Postgres struct {
	Pool *pgxpool.Pool
	log  *logger.Logger
}

// NewPostgres opens a pool for dsn and checks connectivity
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("could not create postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("could not connect to postgres: %w", err)
	}

	return NewPostgresFromPool(pool), nil
}

// NewPostgresFromPool wraps an existing pool
func NewPostgresFromPool(pool *pgxpool.Pool) *Postgres {
	return &Postgres{Pool: pool, log: logger.ForStore().WithStr("driver", DriverPostgres)}
}

func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.Pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("could not create tables: %w", err)
	}
	p.log.Info().Msg("schema ready")
	return nil
}

func (p *Postgres) Close() error {
	p.Pool.Close()
	return nil
}

func (p *Postgres) Create(ctx context.Context, t model.Target) (model.Target, error) {
	if err := validateTarget(t); err != nil {
		return model.Target{}, err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	_, err := p.Pool.Exec(ctx, `
		INSERT INTO products (id, platform, reference, target_price, max_price, send_alerts, user_id, customer_email)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''))`,
		t.ID, string(t.Platform), t.Reference, t.MinPrice, t.MaxPrice, t.SendAlerts, t.UserID, t.Recipient,
	)
	if err != nil {
		return model.Target{}, fmt.Errorf("insert product: %w", err)
	}
	return t, nil
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	tag, err := p.Pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) FindAll(ctx context.Context, filter model.Filter) ([]model.Target, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	var args []any
	if filter.UserID != "" {
		query += ` WHERE user_id = $1`
		args = append(args, filter.UserID)
	}
	query += ` ORDER BY created_at, id`

	rows, err := p.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var targets []model.Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return targets, nil
}

func (p *Postgres) UpdateSnapshot(ctx context.Context, id string, s model.Snapshot) error {
	tag, err := p.Pool.Exec(ctx, `
		UPDATE products SET
			title = NULLIF($2, ''),
			current_price = $3,
			currency = NULLIF($4, ''),
			image_url = NULLIF($5, ''),
			url = NULLIF($6, ''),
			last_checked_at = $7,
			updated_at = NOW()
		WHERE id = $1`,
		id, s.Title, s.Price, s.Currency, s.ImageURL, s.URL, s.CheckedAt,
	)
	if err != nil {
		return fmt.Errorf("update snapshot %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) AppendHistory(ctx context.Context, t model.Target, s model.Snapshot) error {
	rec := model.NewHistoryRecord(uuid.NewString(), t, s)
	_, err := p.Pool.Exec(ctx, `
		INSERT INTO product_history (id, product_id, url, platform, title, price, currency, image_url, user_id, customer_email, checked_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''), $11)`,
		rec.ID, rec.TargetID, rec.URL, string(rec.Platform), rec.Title, rec.Price, rec.Currency, rec.ImageURL,
		rec.UserID, rec.Recipient, rec.CheckedAt,
	)
	if err != nil {
		return fmt.Errorf("insert history for %s: %w", t.ID, err)
	}
	return nil
}

func (p *Postgres) History(ctx context.Context, targetID string, limit int) ([]model.HistoryRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.Pool.Query(ctx, `
		SELECT id::text, product_id::text, url, platform, COALESCE(title, ''), price::float8, COALESCE(currency, ''),
			COALESCE(image_url, ''), COALESCE(customer_email, ''), COALESCE(user_id, ''), checked_at
		FROM product_history WHERE product_id = $1 ORDER BY checked_at DESC LIMIT $2`,
		targetID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.HistoryRecord, error) {
		var (
			r        model.HistoryRecord
			platform string
		)
		err := row.Scan(&r.ID, &r.TargetID, &r.URL, &platform, &r.Title, &r.Price, &r.Currency,
			&r.ImageURL, &r.Recipient, &r.UserID, &r.CheckedAt)
		r.Platform = model.Platform(platform)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan history: %w", err)
	}
	return records, nil
}

func scanTarget(row pgx.Row) (model.Target, error) {
	var (
		t        model.Target
		platform string
	)
	err := row.Scan(&t.ID, &platform, &t.Reference, &t.URL, &t.Title, &t.Price, &t.MinPrice, &t.MaxPrice,
		&t.SendAlerts, &t.LastCheckedAt, &t.ImageURL, &t.Currency, &t.UserID, &t.Recipient)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Target{}, ErrNotFound
	}
	if err != nil {
		return model.Target{}, fmt.Errorf("scan product: %w", err)
	}
	t.Platform = model.Platform(platform)
	return t, nil
}
