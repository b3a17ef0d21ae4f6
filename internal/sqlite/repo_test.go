package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dylantarre/trend-spotter/internal/migrations"
)

// A fixed clock, mid-day so the local date is stable.
var testNow = time.Date(2026, time.March, 14, 12, 0, 0, 0, time.Local)

func newTestRepo(t *testing.T, opts ...Option) Repo {
	t.Helper()

	dbx, err := Open(filepath.Join(t.TempDir(), "trends.db"))
	require.NoError(t, err)
	t.Cleanup(func() { dbx.Close() })

	require.NoError(t, migrations.Run(dbx))

	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return New(dbx, opts...)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	dbx, err := Open(filepath.Join(t.TempDir(), "trends.db"))
	require.NoError(t, err)
	defer dbx.Close()

	require.NoError(t, migrations.Run(dbx))
	require.NoError(t, migrations.Run(dbx))
}
