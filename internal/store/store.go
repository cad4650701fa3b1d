package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/andresmejia3/biopass/internal/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUserNotFound is returned when an operation targets a missing user id.
var ErrUserNotFound = errors.New("user not found")

// DBTX is the query surface shared by pgxpool.Pool and pgxmock.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Store persists users (name + face photo) in PostgreSQL.
type Store struct {
	db   DBTX
	pool *pgxpool.Pool
}

// New establishes a connection pool and ensures the schema is migrated.
func New(ctx context.Context, connString string) (*Store, error) {
	if err := Migrate(connString); err != nil {
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: pool, pool: pool}, nil
}

// NewWithDB wraps an existing connection, pool or mock. The caller owns it.
func NewWithDB(db DBTX) *Store {
	return &Store{db: db}
}

// Close releases the pool opened by New.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Insert stores a new user and returns its id.
func (s *Store) Insert(ctx context.Context, name string, photo []byte) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx,
		"INSERT INTO users (name, photo) VALUES ($1, $2) RETURNING id",
		name, photo,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

// ListAll returns every user with its photo, oldest first. The order is the
// enrollment order the cache is rebuilt in.
func (s *Store) ListAll(ctx context.Context) ([]types.User, error) {
	rows, err := s.db.Query(ctx, "SELECT id, name, photo, created_at FROM users ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []types.User
	for rows.Next() {
		var u types.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Photo, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ListUsers returns the listing view without photo payloads.
func (s *Store) ListUsers(ctx context.Context) ([]types.UserSummary, error) {
	rows, err := s.db.Query(ctx, "SELECT id, name, octet_length(photo), created_at FROM users ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []types.UserSummary
	for rows.Next() {
		var u types.UserSummary
		if err := rows.Scan(&u.ID, &u.Name, &u.PhotoSize, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Photo returns the stored face photo of one user.
func (s *Store) Photo(ctx context.Context, id int64) ([]byte, error) {
	var photo []byte
	err := s.db.QueryRow(ctx, "SELECT photo FROM users WHERE id = $1", id).Scan(&photo)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return photo, nil
}

// Rename updates the name of a user.
func (s *Store) Rename(ctx context.Context, id int64, name string) error {
	tag, err := s.db.Exec(ctx, "UPDATE users SET name = $1 WHERE id = $2", name, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Delete removes a user.
func (s *Store) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Reset removes every user and restarts id numbering. The schema is kept so
// the migration history stays valid.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.db.Exec(ctx, "TRUNCATE TABLE users RESTART IDENTITY")
	return err
}
