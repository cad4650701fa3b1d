package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestStore_Insert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewWithDB(mock)
	photo := []byte{0xFF, 0xD8, 0xFF, 0xD9}

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("Ana", photo).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

	id, err := s.Insert(context.Background(), "Ana", photo)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_InsertError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("Ana", pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	_, err = NewWithDB(mock).Insert(context.Background(), "Ana", []byte{1})
	assert.ErrorContains(t, err, "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListAll(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery("SELECT id, name, photo, created_at FROM users ORDER BY id").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "photo", "created_at"}).
			AddRow(int64(1), "Ana", []byte{1}, now).
			AddRow(int64(2), "Bea", []byte{2, 2}, now))

	users, err := NewWithDB(mock).ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Ana", users[0].Name)
	assert.Equal(t, []byte{2, 2}, users[1].Photo)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListUsers(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT id, name, octet_length").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "octet_length", "created_at"}).
			AddRow(int64(1), "Ana", 2048, time.Now()))

	users, err := NewWithDB(mock).ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, 2048, users[0].PhotoSize)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Photo(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery("SELECT photo FROM users").
			WithArgs(int64(1)).
			WillReturnRows(pgxmock.NewRows([]string{"photo"}).AddRow([]byte{9}))

		photo, err := NewWithDB(mock).Photo(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, []byte{9}, photo)
	})

	t.Run("missing", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery("SELECT photo FROM users").
			WithArgs(int64(5)).
			WillReturnError(pgx.ErrNoRows)

		_, err = NewWithDB(mock).Photo(context.Background(), 5)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestStore_RenameAndDelete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	s := NewWithDB(mock)
	ctx := context.Background()

	mock.ExpectExec("UPDATE users SET name").
		WithArgs("Ana Maria", int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE users SET name").
		WithArgs("Ghost", int64(99)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec("DELETE FROM users").
		WithArgs(int64(1)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM users").
		WithArgs(int64(1)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("TRUNCATE TABLE users").
		WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))

	assert.NoError(t, s.Rename(ctx, 1, "Ana Maria"))
	assert.ErrorIs(t, s.Rename(ctx, 99, "Ghost"), ErrUserNotFound)
	assert.NoError(t, s.Delete(ctx, 1))
	assert.ErrorIs(t, s.Delete(ctx, 1), ErrUserNotFound)
	assert.NoError(t, s.Reset(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestStoreIntegration runs the store against a real Postgres container.
// It requires Docker to be running.
func TestStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	// Explicitly check for Docker availability and fail hard if missing
	// We wrap this in a function to recover from panics inside testcontainers (e.g. socket not found)
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("testcontainers panicked: %v", r)
			}
		}()
		_, err = testcontainers.NewDockerClientWithOpts(ctx)
		return
	}()
	if err != nil {
		t.Fatalf("Docker not available, cannot run integration test: %v", err)
	}

	pgContainer, err := postgres.Run(ctx,
		"pgvector/pgvector:pg16",
		postgres.WithDatabase("biopass_test"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
		testcontainers.WithLogger(noopLogger{}),
	)
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("Failed to terminate container: %v", err)
		}
	}()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	// Initialize Store (runs migrations)
	s, err := New(ctx, connStr)
	if err != nil {
		t.Fatalf("Failed to connect to store: %v", err)
	}
	defer s.Close()

	// Running the migrations a second time is a no-op
	if err := Migrate(connStr); err != nil {
		t.Fatalf("Second migration run failed: %v", err)
	}

	// --- Test Scenarios ---

	idAna, err := s.Insert(ctx, "Ana", []byte{0xFF, 0xD8, 0x01, 0xFF, 0xD9})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	idBea, err := s.Insert(ctx, "Bea", []byte{0xFF, 0xD8, 0x02, 0x02, 0xFF, 0xD9})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if idBea <= idAna {
		t.Errorf("Expected increasing IDs, got %d then %d", idAna, idBea)
	}

	users, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(users) != 2 || users[0].Name != "Ana" || users[1].Name != "Bea" {
		t.Fatalf("Expected [Ana Bea] in insertion order, got %+v", users)
	}
	if len(users[1].Photo) != 6 {
		t.Errorf("Photo round trip failed: %X", users[1].Photo)
	}

	if err := s.Rename(ctx, idAna, "Ana Maria"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	summaries, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if summaries[0].Name != "Ana Maria" || summaries[0].PhotoSize != 5 {
		t.Errorf("Unexpected summary: %+v", summaries[0])
	}

	if err := s.Delete(ctx, idBea); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete(ctx, idBea); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	users, err = s.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll after reset failed: %v", err)
	}
	if len(users) != 0 {
		t.Errorf("Expected empty store after reset, got %d users", len(users))
	}
}

type noopLogger struct{}

func (n noopLogger) Printf(format string, v ...interface{}) {}
