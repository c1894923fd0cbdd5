package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/poolhall-manager/internal/model"
	"github.com/iliyamo/poolhall-manager/internal/utils"
)

// UserRepo persists back-office staff accounts.
type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, email, password_hash, role, is_active, created_at, updated_at`

// Create hashes the password and inserts the user, returning its ID and
// role. The role is decided inside the INSERT so that only the first account
// can ever become the manager, even under concurrent registrations.
func (r *UserRepo) Create(ctx context.Context, email, password string, cost int) (uint64, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, "", err
	}
	now := utcNow()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO staff_users (email, password_hash, role, is_active, created_at, updated_at)
		 SELECT ?, ?, CASE WHEN EXISTS (SELECT 1 FROM staff_users) THEN ? ELSE ? END, TRUE, ?, ?`,
		email, hash, model.RoleStaff, model.RoleManager, now, now)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, "", ErrEmailExists
		}
		return 0, "", err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, "", err
	}
	var role string
	if err := r.db.QueryRowContext(ctx, `SELECT role FROM staff_users WHERE id = ?`, id).Scan(&role); err != nil {
		return 0, "", err
	}
	return uint64(id), role, nil
}

// UpdateEmail changes the login email of a user.
func (r *UserRepo) UpdateEmail(ctx context.Context, id uint64, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.db.ExecContext(ctx,
		`UPDATE staff_users SET email = ?, updated_at = ? WHERE id = ?`, email, utcNow(), id)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrEmailExists
		}
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdatePassword stores a new bcrypt hash for the user.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE staff_users SET password_hash = ?, updated_at = ? WHERE id = ?`, hash, utcNow(), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.get(ctx, `SELECT `+userColumns+` FROM staff_users WHERE email = ? LIMIT 1`, email)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM staff_users WHERE id = ? LIMIT 1`, id)
}

func (r *UserRepo) get(ctx context.Context, q string, arg any) (model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx, q, arg).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrUserNotFound
	}
	return u, err
}
