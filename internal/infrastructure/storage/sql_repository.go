package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"AnalystScanner/internal/domain"
	"AnalystScanner/internal/ports"
)

const (
	table     = "announcements"
	dayLayout = "2006-01-02"
)

//go:embed schema.sql
var schema string

// SQLRepository persists announcements into Postgres or SQLite.
type SQLRepository struct {
	db  *sql.DB
	sb  sq.StatementBuilderType
	now func() time.Time
}

var _ ports.AnnouncementRepository = (*SQLRepository)(nil)

// NewSQLRepository wires a sql.DB; driver picks the placeholder style ("postgres" or "sqlite").
func NewSQLRepository(db *sql.DB, driver string) *SQLRepository {
	var format sq.PlaceholderFormat = sq.Question
	if driver == "postgres" {
		format = sq.Dollar
	}
	return &SQLRepository{
		db:  db,
		sb:  sq.StatementBuilder.PlaceholderFormat(format),
		now: time.Now,
	}
}

// Migrate creates the announcements table when missing.
func (r *SQLRepository) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// AlreadySeen returns the subset of keys that exist in storage.
func (r *SQLRepository) AlreadySeen(ctx context.Context, keys []string) (map[string]bool, error) {
	if r.db == nil || len(keys) == 0 {
		return map[string]bool{}, nil
	}

	query, args, err := r.sb.Select("announcement_key").
		From(table).
		Where(sq.Eq{"announcement_key": keys}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build seen query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query seen: %w", err)
	}
	defer rows.Close()

	result := make(map[string]bool)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		result[key] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return result, nil
}

// Save inserts announcements for the day, keeping their order and skipping known keys.
func (r *SQLRepository) Save(ctx context.Context, day time.Time, announcements []domain.Announcement) error {
	if r.db == nil || len(announcements) == 0 {
		return nil
	}

	seenAt := r.now().UnixNano()
	insert := r.sb.Insert(table).
		Columns("announcement_key", "day", "position", "company_name", "direction", "analyst", "price_target", "seen_at")

	queued := map[string]struct{}{}
	for i, a := range announcements {
		key := a.Key()
		if _, dup := queued[key]; dup {
			continue
		}
		queued[key] = struct{}{}

		var target any
		if v, ok := a.Target(); ok {
			target = v
		}
		insert = insert.Values(key, day.Format(dayLayout), i, a.CompanyName, a.Direction.String(), a.Analyst, target, seenAt)
	}

	query, args, err := insert.Suffix("ON CONFLICT (announcement_key) DO NOTHING").ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert announcements: %w", err)
	}
	return nil
}

// ListDay returns the announcements stored for the day in scrape order.
func (r *SQLRepository) ListDay(ctx context.Context, day time.Time) ([]domain.Announcement, error) {
	if r.db == nil {
		return nil, nil
	}

	query, args, err := r.sb.Select("company_name", "direction", "analyst", "price_target").
		From(table).
		Where(sq.Eq{"day": day.Format(dayLayout)}).
		OrderBy("seen_at", "position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query announcements: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Announcement, 0)
	for rows.Next() {
		var (
			a         domain.Announcement
			direction string
			target    sql.NullString
		)
		if err := rows.Scan(&a.CompanyName, &direction, &a.Analyst, &target); err != nil {
			return nil, fmt.Errorf("scan announcement: %w", err)
		}
		if err := a.Direction.UnmarshalText([]byte(direction)); err != nil {
			return nil, fmt.Errorf("scan announcement: %w", err)
		}
		if target.Valid {
			value := target.String
			a.PriceTarget = &value
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return result, nil
}
