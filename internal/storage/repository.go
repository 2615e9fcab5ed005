package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"tally/internal/core"
	"tally/internal/records"
)

// ErrNotFound is returned for unknown record IDs.
var ErrNotFound = records.ErrNotFound

// ErrDuplicateID is returned when an insert reuses a stored ID.
var ErrDuplicateID = records.ErrDuplicateID

const (
	subscriptionColumns = `id, name, category, billing_type, amount_cents, start_date, stop_date,
		status, access_type, user_paying, notes`
	oneTimeItemColumns = `id, name, category, amount_cents, item_date, notes`
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row scanner) (core.Subscription, error) {
	var (
		s                 core.Subscription
		category, billing string
		status, access    string
		start             string
		stop              sql.NullString
		paying            int64
	)
	if err := row.Scan(&s.ID, &s.Name, &category, &billing, &s.Amount.Cents, &start, &stop,
		&status, &access, &paying, &s.Notes); err != nil {
		return core.Subscription{}, err
	}

	var err error
	if s.StartDate, err = core.ParseDate(start); err != nil {
		return core.Subscription{}, fmt.Errorf("parse start date %q: %w", start, err)
	}
	if stop.Valid && stop.String != "" {
		if s.StopDate, err = core.ParseDate(stop.String); err != nil {
			return core.Subscription{}, fmt.Errorf("parse stop date %q: %w", stop.String, err)
		}
		s.HasStopDate = true
	}
	s.Category = core.Category(category).Normalize()
	s.BillingType = core.BillingType(billing)
	s.Status = core.Status(status)
	s.AccessType = core.AccessType(access)
	s.UserPaying = paying != 0
	return s, nil
}

func scanOneTimeItem(row scanner) (core.OneTimeItem, error) {
	var (
		o        core.OneTimeItem
		category string
		date     string
	)
	if err := row.Scan(&o.ID, &o.Name, &category, &o.Amount.Cents, &date, &o.Notes); err != nil {
		return core.OneTimeItem{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.OneTimeItem{}, fmt.Errorf("parse item date %q: %w", date, err)
	}
	o.Date = d
	o.Category = core.Category(category).Normalize()
	return o, nil
}

func stopDateValue(s core.Subscription) any {
	if !s.HasStopDate {
		return nil
	}
	return s.StopDate.String()
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertSubscription(ctx context.Context, ex execer, s core.Subscription) error {
	_, err := ex.ExecContext(ctx, `INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Name, string(s.Category), string(s.BillingType), s.Amount.Cents,
		s.StartDate.String(), stopDateValue(s), string(s.Status), string(s.AccessType),
		boolToInt(s.UserPaying), s.Notes)
	if isDuplicateKey(err) {
		return fmt.Errorf("subscription %s: %w", s.ID, ErrDuplicateID)
	}
	return err
}

func insertOneTimeItem(ctx context.Context, ex execer, o core.OneTimeItem) error {
	_, err := ex.ExecContext(ctx, `INSERT INTO one_time_items (`+oneTimeItemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)`,
		o.ID, o.Name, string(o.Category), o.Amount.Cents, o.Date.String(), o.Notes)
	if isDuplicateKey(err) {
		return fmt.Errorf("one-time item %s: %w", o.ID, ErrDuplicateID)
	}
	return err
}

func isDuplicateKey(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// ListSubscriptions implements records.SubscriptionLister
func (r *SQLiteRepository) ListSubscriptions(ctx context.Context) ([]core.Subscription, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+subscriptionColumns+" FROM subscriptions ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]core.Subscription, 0)
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListOneTimeItems implements records.OneTimeItemLister
func (r *SQLiteRepository) ListOneTimeItems(ctx context.Context) ([]core.OneTimeItem, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+oneTimeItemColumns+" FROM one_time_items ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("list one-time items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]core.OneTimeItem, 0)
	for rows.Next() {
		o, err := scanOneTimeItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan one-time item: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetSubscription(ctx context.Context, id string) (core.Subscription, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+subscriptionColumns+" FROM subscriptions WHERE id = ?", id)
	s, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Subscription{}, ErrNotFound
	}
	if err != nil {
		return core.Subscription{}, fmt.Errorf("get subscription: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) CreateSubscription(ctx context.Context, s core.Subscription) (core.Subscription, error) {
	if err := s.Validate(); err != nil {
		return core.Subscription{}, err
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.Category = s.Category.Normalize()

	if err := insertSubscription(ctx, r.db, s); err != nil {
		return core.Subscription{}, fmt.Errorf("create subscription: %w", err)
	}

	slog.InfoContext(ctx, "Subscription saved to SQLite",
		"id", s.ID,
		"name", s.Name,
		"billing_type", s.BillingType,
		"amount_cents", s.Amount.Cents)
	return s, nil
}

func (r *SQLiteRepository) UpdateSubscription(ctx context.Context, s core.Subscription) (core.Subscription, error) {
	if err := s.Validate(); err != nil {
		return core.Subscription{}, err
	}
	s.Category = s.Category.Normalize()

	res, err := r.db.ExecContext(ctx, `UPDATE subscriptions SET
		name = ?, category = ?, billing_type = ?, amount_cents = ?, start_date = ?, stop_date = ?,
		status = ?, access_type = ?, user_paying = ?, notes = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		s.Name, string(s.Category), string(s.BillingType), s.Amount.Cents,
		s.StartDate.String(), stopDateValue(s), string(s.Status), string(s.AccessType),
		boolToInt(s.UserPaying), s.Notes, s.ID)
	if err != nil {
		return core.Subscription{}, fmt.Errorf("update subscription: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return core.Subscription{}, err
	}

	slog.InfoContext(ctx, "Subscription updated", "id", s.ID)
	return s, nil
}

func (r *SQLiteRepository) DeleteSubscription(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM subscriptions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Subscription deleted", "id", id)
	return nil
}

func (r *SQLiteRepository) GetOneTimeItem(ctx context.Context, id string) (core.OneTimeItem, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+oneTimeItemColumns+" FROM one_time_items WHERE id = ?", id)
	o, err := scanOneTimeItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.OneTimeItem{}, ErrNotFound
	}
	if err != nil {
		return core.OneTimeItem{}, fmt.Errorf("get one-time item: %w", err)
	}
	return o, nil
}

func (r *SQLiteRepository) CreateOneTimeItem(ctx context.Context, o core.OneTimeItem) (core.OneTimeItem, error) {
	if err := o.Validate(); err != nil {
		return core.OneTimeItem{}, err
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.Category = o.Category.Normalize()

	if err := insertOneTimeItem(ctx, r.db, o); err != nil {
		return core.OneTimeItem{}, fmt.Errorf("create one-time item: %w", err)
	}

	slog.InfoContext(ctx, "One-time item saved to SQLite",
		"id", o.ID,
		"name", o.Name,
		"amount_cents", o.Amount.Cents,
		"date", o.Date.String())
	return o, nil
}

func (r *SQLiteRepository) UpdateOneTimeItem(ctx context.Context, o core.OneTimeItem) (core.OneTimeItem, error) {
	if err := o.Validate(); err != nil {
		return core.OneTimeItem{}, err
	}
	o.Category = o.Category.Normalize()

	res, err := r.db.ExecContext(ctx, `UPDATE one_time_items SET
		name = ?, category = ?, amount_cents = ?, item_date = ?, notes = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		o.Name, string(o.Category), o.Amount.Cents, o.Date.String(), o.Notes, o.ID)
	if err != nil {
		return core.OneTimeItem{}, fmt.Errorf("update one-time item: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return core.OneTimeItem{}, err
	}

	slog.InfoContext(ctx, "One-time item updated", "id", o.ID)
	return o, nil
}

func (r *SQLiteRepository) DeleteOneTimeItem(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM one_time_items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete one-time item: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return err
	}
	slog.InfoContext(ctx, "One-time item deleted", "id", id)
	return nil
}

// ImportRecords inserts every record in one transaction. An invalid record or
// a taken ID rolls the whole batch back.
func (r *SQLiteRepository) ImportRecords(ctx context.Context, subs []core.Subscription, items []core.OneTimeItem) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = errors.Join(err, fmt.Errorf("rollback import: %w", rbErr))
			}
		}
	}()

	for _, s := range subs {
		if err = s.Validate(); err != nil {
			return fmt.Errorf("subscription %q: %w", s.Name, err)
		}
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		s.Category = s.Category.Normalize()
		if err = insertSubscription(ctx, tx, s); err != nil {
			return fmt.Errorf("import subscription %q: %w", s.Name, err)
		}
	}
	for _, o := range items {
		if err = o.Validate(); err != nil {
			return fmt.Errorf("one-time item %q: %w", o.Name, err)
		}
		if o.ID == "" {
			o.ID = uuid.NewString()
		}
		o.Category = o.Category.Normalize()
		if err = insertOneTimeItem(ctx, tx, o); err != nil {
			return fmt.Errorf("import one-time item %q: %w", o.Name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	slog.InfoContext(ctx, "Records imported into SQLite",
		"subscriptions", len(subs),
		"one_time_items", len(items))
	return nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ records.Store = (*SQLiteRepository)(nil)
