// users.go - User records and password authentication.
//
// Passwords are stored as bcrypt hashes (the per-user salt is embedded in
// the hash). Uniqueness of username and email is enforced by the database;
// a unique violation surfaces as ErrDuplicateKey.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

// User is a registered account. PasswordHash is never rendered.
type User struct {
	ID           uuid.UUID
	Email        string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// UserStore persists user records and verifies credentials.
type UserStore interface {
	// Register hashes the password and inserts a new user. It returns
	// ErrDuplicateKey when the username or email is already taken and
	// ErrWeakPassword when the password is empty.
	Register(ctx context.Context, email, username, password string) (*User, error)

	// Authenticate looks the user up by username and compares the password
	// against the stored hash. Every failure mode returns
	// ErrInvalidCredentials; a user record is only returned on success.
	Authenticate(ctx context.Context, username, password string) (*User, error)

	// ByID resolves the opaque identity kept in a session back to a user.
	// Returns ErrNotFound when the user no longer exists.
	ByID(ctx context.Context, id uuid.UUID) (*User, error)
}

// hashPassword generates a bcrypt hash of the password.
// bcrypt cost of 12 is a good balance of security and performance.
func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// verifyPassword compares a password with its hash. The comparison is
// constant-time by construction of bcrypt.
func verifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// PostgresUserStore implements UserStore on top of the users table.
type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgresUserStore(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

func (s *PostgresUserStore) Register(ctx context.Context, email, username, password string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	username = strings.TrimSpace(username)

	if strings.TrimSpace(password) == "" {
		return nil, ErrWeakPassword
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		ID:           uuid.New(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, username, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, u.ID, u.Email, u.Username, u.PasswordHash).Scan(&u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return u, nil
}

func (s *PostgresUserStore) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u := &User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, username, password_hash, created_at
		FROM users
		WHERE username = $1
	`, strings.TrimSpace(username)).Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("select user: %w", err)
	}

	if !verifyPassword(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

func (s *PostgresUserStore) ByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u := &User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, username, password_hash, created_at
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

// isUniqueViolation reports whether err is a Postgres unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
