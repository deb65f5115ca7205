package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"budget/internal/ledger"
	"budget/internal/log"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the ledger in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens the database at dbPath, creating its directory, and
// brings the schema up to date.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	Logger(ctx).DebugContext(ctx, "SQLite store ready", log.FieldPath, dbPath, "schema_version", version)

	return &SQLiteStore{db: db, path: dbPath}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) Create(ctx context.Context) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO ledger (id, deposited, spent) VALUES (1, 0, 0)`)
		if err != nil {
			return fmt.Errorf("create ledger: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("create ledger: %w", err)
		}
		if n == 0 {
			return ErrAlreadyInitialized
		}
		if err := writeBoxes(ctx, tx, ledger.New()); err != nil {
			return err
		}
		Logger(ctx).InfoContext(ctx, "Ledger created", log.FieldPath, s.path)
		return nil
	})
}

func (s *SQLiteStore) Load(ctx context.Context) (*ledger.Partition, error) {
	var totals ledger.Totals
	err := s.db.QueryRowContext(ctx, `SELECT deposited, spent FROM ledger WHERE id = 1`).
		Scan(&totals.Deposited, &totals.Spent)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("get totals: %w", err)
	}

	boxes, err := s.listBoxes(ctx)
	if err != nil {
		return nil, err
	}
	goals, err := s.listGoals(ctx)
	if err != nil {
		return nil, err
	}
	recurring, err := s.listRecurring(ctx)
	if err != nil {
		return nil, err
	}

	p, err := ledger.Restore(boxes, goals, recurring, &totals)
	if err != nil {
		return nil, fmt.Errorf("load ledger from %s: %w", s.path, err)
	}
	return p, nil
}

func (s *SQLiteStore) listBoxes(ctx context.Context) ([]ledger.Box, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, amount FROM boxes ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list boxes: %w", err)
	}
	defer rows.Close()

	var boxes []ledger.Box
	for rows.Next() {
		var b ledger.Box
		if err := rows.Scan(&b.Name, &b.Amount); err != nil {
			return nil, fmt.Errorf("scan box: %w", err)
		}
		boxes = append(boxes, b)
	}
	return boxes, rows.Err()
}

func (s *SQLiteStore) listGoals(ctx context.Context) (map[string]ledger.Goal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT box, target, due FROM goals`)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	goals := make(map[string]ledger.Goal)
	for rows.Next() {
		var (
			box string
			g   ledger.Goal
			due string
		)
		if err := rows.Scan(&box, &g.Target, &due); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		if g.Due, err = ledger.ParsePeriod(due); err != nil {
			return nil, fmt.Errorf("goal %s due %q: %w", box, due, err)
		}
		goals[box] = g
	}
	return goals, rows.Err()
}

func (s *SQLiteStore) listRecurring(ctx context.Context) (map[string]ledger.Recurring, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT box, periodic, remaining, kind FROM recurring`)
	if err != nil {
		return nil, fmt.Errorf("list recurring: %w", err)
	}
	defer rows.Close()

	recurring := make(map[string]ledger.Recurring)
	for rows.Next() {
		var (
			box string
			r   ledger.Recurring
		)
		if err := rows.Scan(&box, &r.Periodic, &r.Remaining, &r.Kind); err != nil {
			return nil, fmt.Errorf("scan recurring: %w", err)
		}
		recurring[box] = r
	}
	return recurring, rows.Err()
}

// Save replaces the stored ledger inside one transaction.
func (s *SQLiteStore) Save(ctx context.Context, p *ledger.Partition) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		totals := p.Totals()
		res, err := tx.ExecContext(ctx,
			`UPDATE ledger SET deposited = ?, spent = ?, updated_at = CURRENT_TIMESTAMP WHERE id = 1`,
			totals.Deposited, totals.Spent)
		if err != nil {
			return fmt.Errorf("update totals: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("update totals: %w", err)
		} else if n == 0 {
			return ErrNotInitialized
		}

		for _, table := range []string{"recurring", "goals", "boxes"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		if err := writeBoxes(ctx, tx, p); err != nil {
			return err
		}

		for _, name := range p.GoalNames() {
			g, _ := p.Goal(name)
			if _, err := tx.ExecContext(ctx, `INSERT INTO goals (box, target, due) VALUES (?, ?, ?)`,
				name, g.Target, g.Due.String()); err != nil {
				return fmt.Errorf("insert goal %s: %w", name, err)
			}
		}
		for _, name := range p.RecurringNames() {
			r, _ := p.Recurring(name)
			if _, err := tx.ExecContext(ctx, `INSERT INTO recurring (box, periodic, remaining, kind) VALUES (?, ?, ?, ?)`,
				name, r.Periodic, r.Remaining, string(r.Kind)); err != nil {
				return fmt.Errorf("insert recurring %s: %w", name, err)
			}
		}
		return nil
	})
}

func writeBoxes(ctx context.Context, tx *sql.Tx, p *ledger.Partition) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO boxes (name, amount, position) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare box insert: %w", err)
	}
	defer stmt.Close()

	for i, b := range p.Boxes() {
		if _, err := stmt.ExecContext(ctx, b.Name, b.Amount, i); err != nil {
			return fmt.Errorf("insert box %s: %w", b.Name, err)
		}
	}
	return nil
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
