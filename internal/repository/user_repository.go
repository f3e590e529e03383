// Package repository provides data access for the account tables
// (users and refresh tokens).  The ticket domain itself (concerts,
// seats, reservations) lives behind the transactional store in
// internal/store; auth reads and writes are single-row operations
// and use the database handle directly.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/Parknogyung/ticket-reservation/internal/model"
	"github.com/Parknogyung/ticket-reservation/internal/utils"
)

// ErrEmailExists is returned by Create when the email is taken.
var ErrEmailExists = errors.New("email already exists")

// UserRepo provides CRUD access to the users table.
type UserRepo struct{ DB *sql.DB }

// NewUserRepo returns a UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create hashes the password and inserts the user, returning its ID.
// Emails are normalized to lower case before insertion.
func (r *UserRepo) Create(ctx context.Context, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role, point) VALUES (?,?,?,0)",
		email, hash, role)
	if err != nil {
		// 1062 is MySQL's duplicate-key error for the unique email index.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,role,point,created_at,updated_at FROM users WHERE email=? LIMIT 1",
		email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Point, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,role,point,created_at,updated_at FROM users WHERE id=? LIMIT 1",
		id).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Point, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
