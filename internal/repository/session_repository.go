package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/poolhall-manager/internal/model"
)

// Sessions are always read joined with their table and, when set, the payer.
const sessionSelect = `SELECT s.id, s.table_id, s.client_id, s.start_time, s.end_time, s.in_progress,
       s.price, s.paid, s.paid_at, s.next_player, s.created_at, s.updated_at,
       t.number, t.name, c.name
  FROM game_sessions s
  JOIN billiard_tables t ON t.id = s.table_id
  LEFT JOIN clients c ON c.id = s.client_id`

// SessionRepo manages persistence for game sessions.
type SessionRepo struct {
	db *sql.DB
}

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

// StatRow is the projection read by the statistics layer.
type StatRow struct {
	StartTime  time.Time
	Price      decimal.Decimal
	Paid       bool
	InProgress bool
}

func scanSession(sc scanner) (*model.Session, error) {
	var (
		s          model.Session
		clientID   sql.NullInt64
		endTime    sql.NullTime
		paidAt     sql.NullTime
		nextPlayer sql.NullString
		clientName sql.NullString
	)
	if err := sc.Scan(&s.ID, &s.TableID, &clientID, &s.StartTime, &endTime, &s.InProgress,
		&s.Price, &s.Paid, &paidAt, &nextPlayer, &s.CreatedAt, &s.UpdatedAt,
		&s.TableNumber, &s.TableName, &clientName); err != nil {
		return nil, err
	}
	if clientID.Valid {
		id := uint64(clientID.Int64)
		s.ClientID = &id
	}
	if endTime.Valid {
		t := endTime.Time
		s.EndTime = &t
	}
	if paidAt.Valid {
		t := paidAt.Time
		s.PaidAt = &t
	}
	if nextPlayer.Valid {
		s.NextPlayer = &nextPlayer.String
	}
	if clientName.Valid {
		s.ClientName = &clientName.String
	}
	return &s, nil
}

// CreateTx inserts a running session. The caller has already claimed the
// table in the same transaction.
func (r *SessionRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.Session) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO game_sessions (table_id, client_id, start_time, in_progress, price, paid, created_at, updated_at)
		 VALUES (?, ?, ?, TRUE, ?, FALSE, ?, ?)`,
		s.TableID, s.ClientID, s.StartTime, decimal.Zero, s.StartTime, s.StartTime)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	s.InProgress = true
	s.Price = decimal.Zero
	s.CreatedAt, s.UpdatedAt = s.StartTime, s.StartTime
	return nil
}

func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (*model.Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx, sessionSelect+` WHERE s.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	return s, err
}

func (r *SessionRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Session, error) {
	s, err := scanSession(tx.QueryRowContext(ctx, sessionSelect+` WHERE s.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	return s, err
}

// StopTx records the end of a running session. Only a row that is still in
// progress is updated, so a concurrent or repeated stop gets
// ErrSessionStopped and the stored price is never recomputed.
func (r *SessionRepo) StopTx(ctx context.Context, tx *sql.Tx, id uint64, end time.Time, price decimal.Decimal, clientID *uint64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE game_sessions
		    SET in_progress = FALSE, end_time = ?, price = ?, client_id = COALESCE(?, client_id), updated_at = ?
		  WHERE id = ? AND in_progress = TRUE`,
		end, price, clientID, end, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionStopped
	}
	return nil
}

// MarkPaid flags the session as paid. Calling it on a paid session changes
// nothing, including paid_at.
func (r *SessionRepo) MarkPaid(ctx context.Context, id uint64, now time.Time) (*model.Session, error) {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE game_sessions SET paid = TRUE, paid_at = ?, updated_at = ? WHERE id = ? AND paid = FALSE`,
		now, now, id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// SetNextPlayer stores the free-text hint; nil clears it.
func (r *SessionRepo) SetNextPlayer(ctx context.Context, id uint64, name *string, now time.Time) (*model.Session, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if _, err := r.db.ExecContext(ctx,
		`UPDATE game_sessions SET next_player = ?, updated_at = ? WHERE id = ?`,
		name, now, id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// List returns one page of sessions, newest first, and the total number of
// matching rows.
func (r *SessionRepo) List(ctx context.Context, f SessionFilter) ([]model.Session, int64, error) {
	where := []string{}
	args := []any{}

	if f.Search != "" {
		where = append(where, `(LOWER(COALESCE(c.name, '')) LIKE ?`+likeEscape+
			` OR LOWER(COALESCE(s.next_player, '')) LIKE ?`+likeEscape+`)`)
		pat := "%" + likeArg(f.Search) + "%"
		args = append(args, pat, pat)
	}
	if f.Paid != nil {
		where = append(where, `s.paid = ?`)
		args = append(args, *f.Paid)
	}
	if f.InProgress != nil {
		where = append(where, `s.in_progress = ?`)
		args = append(args, *f.InProgress)
	}
	if f.TableID != nil {
		where = append(where, `s.table_id = ?`)
		args = append(args, *f.TableID)
	}
	if f.From != nil {
		where = append(where, `s.start_time >= ?`)
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		where = append(where, `s.start_time < ?`)
		args = append(args, f.To.UTC())
	}
	cond := ""
	if len(where) > 0 {
		cond = ` WHERE ` + strings.Join(where, " AND ")
	}

	var total int64
	countSQL := `SELECT COUNT(*) FROM game_sessions s LEFT JOIN clients c ON c.id = s.client_id` + cond
	if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := f.Normalize()
	dataSQL := sessionSelect + cond + ` ORDER BY s.start_time DESC, s.id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, dataSQL, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []model.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *s)
	}
	return out, total, rows.Err()
}

// ListForStats returns every session whose start_time falls in [from, to).
// Nil bounds are open.
func (r *SessionRepo) ListForStats(ctx context.Context, from, to *time.Time) ([]StatRow, error) {
	q := `SELECT start_time, price, paid, in_progress FROM game_sessions`
	where := []string{}
	args := []any{}
	if from != nil {
		where = append(where, `start_time >= ?`)
		args = append(args, from.UTC())
	}
	if to != nil {
		where = append(where, `start_time < ?`)
		args = append(args, to.UTC())
	}
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []StatRow{}
	for rows.Next() {
		var row StatRow
		if err := rows.Scan(&row.StartTime, &row.Price, &row.Paid, &row.InProgress); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// CountInProgress returns the number of running sessions.
func (r *SessionRepo) CountInProgress(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM game_sessions WHERE in_progress = TRUE`).Scan(&n)
	return n, err
}
