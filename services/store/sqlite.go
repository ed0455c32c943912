package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"sjsage522/pricewatcher/internal/model"
	"sjsage522/pricewatcher/logger"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS products (
	id TEXT PRIMARY KEY,
	platform TEXT NOT NULL,
	reference TEXT NOT NULL,
	url TEXT,
	title TEXT,
	current_price REAL,
	target_price REAL NOT NULL DEFAULT 0,
	max_price REAL,
	send_alerts BOOLEAN NOT NULL DEFAULT 1,
	last_checked_at DATETIME,
	image_url TEXT,
	currency TEXT,
	user_id TEXT,
	customer_email TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS products_user_id_idx ON products (user_id);

CREATE TABLE IF NOT EXISTS product_history (
	id TEXT PRIMARY KEY,
	product_id TEXT NOT NULL REFERENCES products (id) ON DELETE CASCADE,
	url TEXT NOT NULL,
	platform TEXT NOT NULL,
	title TEXT,
	price REAL,
	currency TEXT,
	image_url TEXT,
	user_id TEXT,
	customer_email TEXT,
	checked_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS product_history_product_id_idx ON product_history (product_id, checked_at);
`

// SQLite is a single-file Store
type SQLite struct {
	conn *sql.DB
	log  *logger.Logger
}

// NewSQLite opens (or creates) the database at path
func NewSQLite(path string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer at a time
	conn.SetMaxOpenConns(1)

	return &SQLite{conn: conn, log: logger.ForStore().WithStr("driver", DriverSQLite)}, nil
}

func (s *SQLite) Migrate(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("could not create tables: %w", err)
	}
	s.log.Info().Msg("schema ready")
	return nil
}

func (s *SQLite) Close() error {
	return s.conn.Close()
}

func (s *SQLite) Create(ctx context.Context, t model.Target) (model.Target, error) {
	if err := validateTarget(t); err != nil {
		return model.Target{}, err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	_, err := s.conn.ExecContext(ctx,
		"INSERT INTO products (id, platform, reference, target_price, max_price, send_alerts, user_id, customer_email) VALUES (?, ?, ?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''))",
		t.ID, string(t.Platform), t.Reference, t.MinPrice, nullFloat(t.MaxPrice), t.SendAlerts, t.UserID, t.Recipient,
	)
	if err != nil {
		return model.Target{}, fmt.Errorf("insert product: %w", err)
	}
	return t, nil
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) FindAll(ctx context.Context, filter model.Filter) ([]model.Target, error) {
	query := `SELECT id, platform, reference, COALESCE(url, ''), COALESCE(title, ''), current_price, target_price,
		max_price, send_alerts, last_checked_at, COALESCE(image_url, ''), COALESCE(currency, ''),
		COALESCE(user_id, ''), COALESCE(customer_email, '') FROM products`
	var args []any
	if filter.UserID != "" {
		query += " WHERE user_id = ?"
		args = append(args, filter.UserID)
	}
	query += " ORDER BY created_at, rowid"

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var targets []model.Target
	for rows.Next() {
		var (
			t               model.Target
			platform        string
			price, maxPrice sql.NullFloat64
			lastChecked     sql.NullTime
		)
		if err := rows.Scan(&t.ID, &platform, &t.Reference, &t.URL, &t.Title, &price, &t.MinPrice, &maxPrice,
			&t.SendAlerts, &lastChecked, &t.ImageURL, &t.Currency, &t.UserID, &t.Recipient); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		t.Platform = model.Platform(platform)
		t.Price = floatPtr(price)
		t.MaxPrice = floatPtr(maxPrice)
		if lastChecked.Valid {
			at := lastChecked.Time
			t.LastCheckedAt = &at
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

func (s *SQLite) UpdateSnapshot(ctx context.Context, id string, snap model.Snapshot) error {
	res, err := s.conn.ExecContext(ctx, `UPDATE products SET title = NULLIF(?, ''), current_price = ?, currency = NULLIF(?, ''),
		image_url = NULLIF(?, ''), url = NULLIF(?, ''), last_checked_at = ? WHERE id = ?`,
		snap.Title, nullFloat(snap.Price), snap.Currency, snap.ImageURL, snap.URL, snap.CheckedAt.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update snapshot %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) AppendHistory(ctx context.Context, t model.Target, snap model.Snapshot) error {
	rec := model.NewHistoryRecord(uuid.NewString(), t, snap)
	_, err := s.conn.ExecContext(ctx, `INSERT INTO product_history
		(id, product_id, url, platform, title, price, currency, image_url, user_id, customer_email, checked_at)
		VALUES (?, ?, ?, ?, NULLIF(?, ''), ?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), ?)`,
		rec.ID, rec.TargetID, rec.URL, string(rec.Platform), rec.Title, nullFloat(rec.Price), rec.Currency,
		rec.ImageURL, rec.UserID, rec.Recipient, rec.CheckedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert history for %s: %w", t.ID, err)
	}
	return nil
}

func (s *SQLite) History(ctx context.Context, targetID string, limit int) ([]model.HistoryRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.conn.QueryContext(ctx, `SELECT id, product_id, url, platform, COALESCE(title, ''), price,
		COALESCE(currency, ''), COALESCE(image_url, ''), COALESCE(customer_email, ''), COALESCE(user_id, ''), checked_at
		FROM product_history WHERE product_id = ? ORDER BY checked_at DESC, rowid DESC LIMIT ?`, targetID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var records []model.HistoryRecord
	for rows.Next() {
		var (
			r         model.HistoryRecord
			platform  string
			price     sql.NullFloat64
			checkedAt time.Time
		)
		if err := rows.Scan(&r.ID, &r.TargetID, &r.URL, &platform, &r.Title, &price, &r.Currency,
			&r.ImageURL, &r.Recipient, &r.UserID, &checkedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		r.Platform = model.Platform(platform)
		r.Price = floatPtr(price)
		r.CheckedAt = checkedAt
		records = append(records, r)
	}
	return records, rows.Err()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
