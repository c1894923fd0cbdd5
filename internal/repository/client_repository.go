package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/poolhall-manager/internal/model"
)

const (
	clientColumns      = `id, name, phone, email, created_at, updated_at`
	selectClientByName = `SELECT ` + clientColumns + ` FROM clients WHERE name = ?`
)

// ClientRepo manages persistence for clients.
type ClientRepo struct {
	db *sql.DB
}

func NewClientRepo(db *sql.DB) *ClientRepo { return &ClientRepo{db: db} }

func scanClient(s scanner) (*model.Client, error) {
	var (
		c     model.Client
		email sql.NullString
	)
	if err := s.Scan(&c.ID, &c.Name, &c.Phone, &email, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if email.Valid {
		c.Email = &email.String
	}
	return &c, nil
}

// Create inserts a client; names are unique.
func (r *ClientRepo) Create(ctx context.Context, c *model.Client) error {
	now := utcNow()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO clients (name, phone, email, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		c.Name, c.Phone, c.Email, now, now)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrClientNameTaken
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	c.CreatedAt, c.UpdatedAt = now, now
	return nil
}

func (r *ClientRepo) GetByID(ctx context.Context, id uint64) (*model.Client, error) {
	c, err := scanClient(r.db.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrClientNotFound
	}
	return c, err
}

func (r *ClientRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Client, error) {
	c, err := scanClient(tx.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrClientNotFound
	}
	return c, err
}

// Update overwrites name, phone and email.
func (r *ClientRepo) Update(ctx context.Context, c *model.Client) error {
	if _, err := r.GetByID(ctx, c.ID); err != nil {
		return err
	}
	now := utcNow()
	_, err := r.db.ExecContext(ctx,
		`UPDATE clients SET name = ?, phone = ?, email = ?, updated_at = ? WHERE id = ?`,
		c.Name, c.Phone, c.Email, now, c.ID)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrClientNameTaken
		}
		return err
	}
	c.UpdatedAt = now
	return nil
}

// List returns clients ordered by name.
func (r *ClientRepo) List(ctx context.Context, f ClientFilter) ([]model.Client, error) {
	where := []string{}
	args := []any{}
	if f.Prefix != "" {
		where = append(where, `LOWER(name) LIKE ?`+likeEscape)
		args = append(args, likeArg(f.Prefix)+"%")
	}
	if f.Search != "" {
		where = append(where, `(LOWER(name) LIKE ?`+likeEscape+
			` OR LOWER(phone) LIKE ?`+likeEscape+
			` OR LOWER(COALESCE(email, '')) LIKE ?`+likeEscape+`)`)
		pat := "%" + likeArg(f.Search) + "%"
		args = append(args, pat, pat, pat)
	}

	q := `SELECT ` + clientColumns + ` FROM clients`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY name ASC LIMIT ?`
	args = append(args, f.limit())

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Count returns the number of known clients.
func (r *ClientRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clients`).Scan(&n)
	return n, err
}

// FindOrCreateByNameTx returns the client with exactly this name, creating
// it when missing. The UNIQUE(name) constraint settles races: the losing
// insert gets a duplicate-key error and re-reads the winner's row.
func (r *ClientRepo) FindOrCreateByNameTx(ctx context.Context, tx *sql.Tx, name string, now time.Time) (*model.Client, error) {
	c, err := scanClient(tx.QueryRowContext(ctx, selectClientByName, name))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO clients (name, phone, created_at, updated_at) VALUES (?, '', ?, ?)`,
		name, now, now)
	if err != nil {
		if !isDuplicateKey(err) {
			return nil, err
		}
		q := selectClientByName
		var me *mysql.MySQLError
		if errors.As(err, &me) {
			// a locking read sees rows committed after this tx's snapshot
			q += ` FOR UPDATE`
		}
		return scanClient(tx.QueryRowContext(ctx, q, name))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &model.Client{ID: uint64(id), Name: name, CreatedAt: now, UpdatedAt: now}, nil
}
