package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"kontor/internal/core"
	"kontor/internal/timeline"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

const stampLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// UpsertCategory creates the category or renames an existing one.
func (r *SQLiteRepository) UpsertCategory(ctx context.Context, c core.Category) error {
	if err := c.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (number, name) VALUES (?, ?)
		 ON CONFLICT(number) DO UPDATE SET name = excluded.name`,
		c.Number, c.Name)
	if err != nil {
		return fmt.Errorf("upsert category %d: %w", c.Number, err)
	}
	return nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT number, name FROM categories ORDER BY number`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]core.Category, 0)
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.Number, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// CreateOwner stores a new owner under an existing category and returns it
// with its assigned ID and audit stamps. Only the category number is read
// from o.Category.
func (r *SQLiteRepository) CreateOwner(ctx context.Context, o core.Owner) (core.Owner, error) {
	err := r.db.QueryRowContext(ctx, `SELECT name FROM categories WHERE number = ?`, o.Category.Number).Scan(&o.Category.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Owner{}, fmt.Errorf("category %d: %w", o.Category.Number, ErrNotFound)
	}
	if err != nil {
		return core.Owner{}, fmt.Errorf("lookup category %d: %w", o.Category.Number, err)
	}
	if err := o.Validate(); err != nil {
		return core.Owner{}, err
	}
	now := r.now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = o.CreatedAt
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO owners (kind, name, category_number, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		string(o.Kind), o.Name, o.Category.Number, o.CreatedAt.UTC().Format(stampLayout), o.UpdatedAt.UTC().Format(stampLayout))
	if err != nil {
		return core.Owner{}, fmt.Errorf("create owner: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Owner{}, fmt.Errorf("owner id: %w", err)
	}

	slog.InfoContext(ctx, "Owner saved to SQLite",
		"id", id,
		"kind", o.Kind,
		"name", o.Name,
		"category", o.Category.Number)

	return r.GetOwner(ctx, id)
}

const ownerColumns = `o.id, o.kind, o.name, o.created_at, o.updated_at, c.number, c.name`

func (r *SQLiteRepository) GetOwner(ctx context.Context, id int64) (core.Owner, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+ownerColumns+` FROM owners o JOIN categories c ON c.number = o.category_number WHERE o.id = ?`, id)
	o, err := scanOwner(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Owner{}, fmt.Errorf("owner %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Owner{}, fmt.Errorf("get owner %d: %w", id, err)
	}
	return o, nil
}

// ListOwners returns every owner ordered by ID.
func (r *SQLiteRepository) ListOwners(ctx context.Context) ([]core.Owner, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ownerColumns+` FROM owners o JOIN categories c ON c.number = o.category_number ORDER BY o.id`)
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	defer rows.Close()

	owners := make([]core.Owner, 0)
	for rows.Next() {
		o, err := scanOwner(rows)
		if err != nil {
			return nil, fmt.Errorf("scan owner: %w", err)
		}
		owners = append(owners, o)
	}
	return owners, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOwner(s scanner) (core.Owner, error) {
	var (
		o                core.Owner
		kind             string
		created, updated string
	)
	if err := s.Scan(&o.ID, &kind, &o.Name, &created, &updated, &o.Category.Number, &o.Category.Name); err != nil {
		return core.Owner{}, err
	}
	o.Kind = core.OwnerKind(kind)
	var err error
	if o.CreatedAt, err = time.Parse(stampLayout, created); err != nil {
		return core.Owner{}, fmt.Errorf("parse created_at: %w", err)
	}
	if o.UpdatedAt, err = time.Parse(stampLayout, updated); err != nil {
		return core.Owner{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return o, nil
}

// UpsertBudgetSnapshot records income and expenses of a budget owner for one month.
func (r *SQLiteRepository) UpsertBudgetSnapshot(ctx context.Context, s timeline.Snapshot[timeline.Budget]) error {
	if err := s.Period.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budget_snapshots (owner_id, year, month, income, expenses) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(owner_id, year, month) DO UPDATE SET income = excluded.income, expenses = excluded.expenses`,
		s.OwnerID, s.Period.Year, int(s.Period.Month), s.Value.Income.String(), s.Value.Expenses.String())
	if err != nil {
		return fmt.Errorf("upsert budget snapshot %d/%s: %w", s.OwnerID, s.Period, err)
	}
	return nil
}

// UpsertCreditSnapshot records the credit limit of an owner for one month.
func (r *SQLiteRepository) UpsertCreditSnapshot(ctx context.Context, s timeline.Snapshot[timeline.Credit]) error {
	if err := s.Period.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO credit_snapshots (owner_id, year, month, credit_limit) VALUES (?, ?, ?, ?)
		 ON CONFLICT(owner_id, year, month) DO UPDATE SET credit_limit = excluded.credit_limit`,
		s.OwnerID, s.Period.Year, int(s.Period.Month), s.Value.Limit.String())
	if err != nil {
		return fmt.Errorf("upsert credit snapshot %d/%s: %w", s.OwnerID, s.Period, err)
	}
	return nil
}

// BudgetSnapshots returns the recorded budget snapshots of one owner in period order.
func (r *SQLiteRepository) BudgetSnapshots(ctx context.Context, ownerID int64) ([]timeline.Snapshot[timeline.Budget], error) {
	byOwner, err := r.budgetSnapshots(ctx, `WHERE owner_id = ?`, ownerID)
	if err != nil {
		return nil, err
	}
	if snaps, ok := byOwner[ownerID]; ok {
		return snaps, nil
	}
	return make([]timeline.Snapshot[timeline.Budget], 0), nil
}

// BudgetSnapshotsByOwner loads every budget snapshot keyed by owner.
func (r *SQLiteRepository) BudgetSnapshotsByOwner(ctx context.Context) (map[int64][]timeline.Snapshot[timeline.Budget], error) {
	return r.budgetSnapshots(ctx, "")
}

func (r *SQLiteRepository) budgetSnapshots(ctx context.Context, where string, args ...any) (map[int64][]timeline.Snapshot[timeline.Budget], error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT owner_id, year, month, income, expenses FROM budget_snapshots `+where+` ORDER BY owner_id, year, month`, args...)
	if err != nil {
		return nil, fmt.Errorf("query budget snapshots: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]timeline.Snapshot[timeline.Budget])
	for rows.Next() {
		var (
			s     timeline.Snapshot[timeline.Budget]
			month int
		)
		if err := rows.Scan(&s.OwnerID, &s.Period.Year, &month, &s.Value.Income, &s.Value.Expenses); err != nil {
			return nil, fmt.Errorf("scan budget snapshot: %w", err)
		}
		s.Period.Month = time.Month(month)
		out[s.OwnerID] = append(out[s.OwnerID], s)
	}
	return out, rows.Err()
}

// CreditSnapshots returns the recorded credit snapshots of one owner in period order.
func (r *SQLiteRepository) CreditSnapshots(ctx context.Context, ownerID int64) ([]timeline.Snapshot[timeline.Credit], error) {
	byOwner, err := r.creditSnapshots(ctx, `WHERE owner_id = ?`, ownerID)
	if err != nil {
		return nil, err
	}
	if snaps, ok := byOwner[ownerID]; ok {
		return snaps, nil
	}
	return make([]timeline.Snapshot[timeline.Credit], 0), nil
}

// CreditSnapshotsByOwner loads every credit snapshot keyed by owner.
func (r *SQLiteRepository) CreditSnapshotsByOwner(ctx context.Context) (map[int64][]timeline.Snapshot[timeline.Credit], error) {
	return r.creditSnapshots(ctx, "")
}

func (r *SQLiteRepository) creditSnapshots(ctx context.Context, where string, args ...any) (map[int64][]timeline.Snapshot[timeline.Credit], error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT owner_id, year, month, credit_limit FROM credit_snapshots `+where+` ORDER BY owner_id, year, month`, args...)
	if err != nil {
		return nil, fmt.Errorf("query credit snapshots: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]timeline.Snapshot[timeline.Credit])
	for rows.Next() {
		var (
			s     timeline.Snapshot[timeline.Credit]
			month int
			limit decimal.Decimal
		)
		if err := rows.Scan(&s.OwnerID, &s.Period.Year, &month, &limit); err != nil {
			return nil, fmt.Errorf("scan credit snapshot: %w", err)
		}
		s.Period.Month = time.Month(month)
		s.Value.Limit = limit
		out[s.OwnerID] = append(out[s.OwnerID], s)
	}
	return out, rows.Err()
}
