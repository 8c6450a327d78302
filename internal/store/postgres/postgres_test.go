package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/TAESTUDIOS/psa3/internal/store"
	"github.com/TAESTUDIOS/psa3/internal/store/storetest"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("PSA_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("PSA_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := Open(ctx, url, Options{MaxConns: 4, ConnectRetries: 1})
	require.NoError(t, err)

	_, err = s.pool.Exec(ctx, `TRUNCATE messages, rituals, saved_messages, appointments, urgent_todos`)
	require.NoError(t, err)
	_, err = s.pool.Exec(ctx, `DELETE FROM settings`)
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPostgresStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return openTestStore(t) })
}

func TestRunMigrations_Idempotent(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, RunMigrations(context.Background(), s.pool))
}

func TestNewPool_RejectsBadURL(t *testing.T) {
	_, err := NewPool(context.Background(), "://nope", Options{ConnectRetries: 1})
	require.Error(t, err)
}
