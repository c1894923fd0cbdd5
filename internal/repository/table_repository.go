package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/poolhall-manager/internal/model"
)

const tableColumns = `id, number, name, occupied, in_service, hourly_rate, created_at, updated_at`

// TableRepo manages persistence for billiard tables.
type TableRepo struct {
	db *sql.DB
}

func NewTableRepo(db *sql.DB) *TableRepo { return &TableRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions that
// span several repositories.
func (r *TableRepo) DB() *sql.DB { return r.db }

func scanTable(s scanner) (*model.Table, error) {
	var t model.Table
	if err := s.Scan(&t.ID, &t.Number, &t.Name, &t.Occupied, &t.InService,
		&t.HourlyRate, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a table. New tables are free and in service.
func (r *TableRepo) Create(ctx context.Context, t *model.Table) error {
	now := utcNow()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO billiard_tables (number, name, occupied, in_service, hourly_rate, created_at, updated_at)
		 VALUES (?, ?, FALSE, TRUE, ?, ?, ?)`,
		t.Number, t.Name, t.HourlyRate, now, now)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrNumberTaken
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	t.Occupied, t.InService = false, true
	t.CreatedAt, t.UpdatedAt = now, now
	return nil
}

// GetByID returns ErrTableNotFound when no row matches.
func (r *TableRepo) GetByID(ctx context.Context, id uint64) (*model.Table, error) {
	t, err := scanTable(r.db.QueryRowContext(ctx,
		`SELECT `+tableColumns+` FROM billiard_tables WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTableNotFound
	}
	return t, err
}

// GetByIDTx is GetByID inside the caller's transaction.
func (r *TableRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Table, error) {
	t, err := scanTable(tx.QueryRowContext(ctx,
		`SELECT `+tableColumns+` FROM billiard_tables WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTableNotFound
	}
	return t, err
}

// List returns tables ordered by their display number.
func (r *TableRepo) List(ctx context.Context, f TableFilter) ([]model.Table, error) {
	q := `SELECT ` + tableColumns + ` FROM billiard_tables`
	if f.Available != nil {
		if *f.Available {
			q += ` WHERE in_service = TRUE AND occupied = FALSE`
		} else {
			q += ` WHERE in_service = FALSE OR occupied = TRUE`
		}
	}
	q += ` ORDER BY number ASC`

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Table{}
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// Update changes number, name and hourly rate. Occupancy and the service
// flag have their own operations.
func (r *TableRepo) Update(ctx context.Context, t *model.Table) error {
	if _, err := r.GetByID(ctx, t.ID); err != nil {
		return err
	}
	now := utcNow()
	_, err := r.db.ExecContext(ctx,
		`UPDATE billiard_tables SET number = ?, name = ?, hourly_rate = ?, updated_at = ? WHERE id = ?`,
		t.Number, t.Name, t.HourlyRate, now, t.ID)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrNumberTaken
		}
		return err
	}
	t.UpdatedAt = now
	return nil
}

// Delete removes a table that has never been played on.
func (r *TableRepo) Delete(ctx context.Context, id uint64) error {
	t, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if t.Occupied {
		return ErrTableOccupied
	}
	var n int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM game_sessions WHERE table_id = ?`, id).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrTableHasSessions
	}
	_, err = r.db.ExecContext(ctx, `DELETE FROM billiard_tables WHERE id = ?`, id)
	return err
}

// OccupyTx claims a free, in-service table. The conditional UPDATE is the
// check-and-set: when two transactions race, only one sees a row affected.
// On failure the returned error says why the table could not be claimed.
func (r *TableRepo) OccupyTx(ctx context.Context, tx *sql.Tx, id uint64, now time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE billiard_tables SET occupied = TRUE, updated_at = ?
		 WHERE id = ? AND occupied = FALSE AND in_service = TRUE`, now, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 1 {
		return nil
	}

	t, err := r.GetByIDTx(ctx, tx, id)
	switch {
	case errors.Is(err, ErrTableNotFound):
		return ErrTableUnknown
	case err != nil:
		return err
	case !t.InService:
		return ErrTableOutOfService
	}
	return ErrTableOccupied
}

// ReleaseTx frees a table at the end of a session.
func (r *TableRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, id uint64, now time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE billiard_tables SET occupied = FALSE, updated_at = ? WHERE id = ?`, now, id)
	return err
}

// ToggleInServiceTx flips the manual availability flag and returns the
// updated table. Occupancy is left alone.
func (r *TableRepo) ToggleInServiceTx(ctx context.Context, tx *sql.Tx, id uint64, now time.Time) (*model.Table, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE billiard_tables SET in_service = NOT in_service, updated_at = ? WHERE id = ?`, now, id)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, ErrTableNotFound
	}
	return r.GetByIDTx(ctx, tx, id)
}

// Counts returns the number of tables and how many are free to play on.
func (r *TableRepo) Counts(ctx context.Context) (total, available int, err error) {
	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN in_service = TRUE AND occupied = FALSE THEN 1 ELSE 0 END), 0)
		 FROM billiard_tables`).Scan(&total, &available)
	return total, available, err
}
