package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/launchdeck/launchdeck/internal/models"
	"github.com/launchdeck/launchdeck/internal/store"
)

// ErrInvalidCredentials is returned when authentication fails.
var ErrInvalidCredentials = errors.New("invalid email or password")

// UserStore implements store.UserStore using PostgreSQL.
type UserStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

func (s *UserStore) conn() queryable {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// Create creates a new user with a hashed password.
func (s *UserStore) Create(ctx context.Context, email, password string, plan models.Plan) (*store.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	if !plan.IsValid() {
		plan = models.PlanFree
	}

	user := &store.User{
		ID:        uuid.New().String(),
		Email:     email,
		Plan:      plan,
		CreatedAt: time.Now().UTC(),
	}

	query := `
		INSERT INTO users (id, email, password_hash, plan, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := s.conn().ExecContext(ctx, query, user.ID, user.Email, hash, user.Plan, user.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("inserting user: %w", err)
	}

	return user, nil
}

// GetByID retrieves a user by ID.
func (s *UserStore) GetByID(ctx context.Context, id string) (*store.User, error) {
	query := `SELECT id, email, plan, created_at FROM users WHERE id = $1`

	user := &store.User{}
	err := s.conn().QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Email, &user.Plan, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying user: %w", err)
	}

	return user, nil
}

// GetByEmail retrieves a user by email.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*store.User, error) {
	query := `SELECT id, email, plan, created_at FROM users WHERE email = $1`

	user := &store.User{}
	err := s.conn().QueryRowContext(ctx, query, email).Scan(&user.ID, &user.Email, &user.Plan, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying user: %w", err)
	}

	return user, nil
}

// Authenticate verifies credentials and returns the user.
func (s *UserStore) Authenticate(ctx context.Context, email, password string) (*store.User, error) {
	query := `SELECT id, email, password_hash, plan, created_at FROM users WHERE email = $1`

	user := &store.User{}
	var hash []byte
	err := s.conn().QueryRowContext(ctx, query, email).Scan(&user.ID, &user.Email, &hash, &user.Plan, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("querying user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}
