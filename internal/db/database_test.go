package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/projects_api/internal/models"
)

func TestOpen_SQLiteMigrates(t *testing.T) {
	ctx := context.Background()

	gdb, err := Open(ctx, DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(gdb) })

	require.NoError(t, Migrate(gdb))
	require.NoError(t, Ping(ctx, gdb))

	for _, m := range []any{&models.User{}, &models.RefreshToken{}, &models.RevokedToken{}, &models.Project{}} {
		assert.True(t, gdb.Migrator().HasTable(m))
	}
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(context.Background(), DriverSQLite, "")
	require.Error(t, err)

	_, err = Open(context.Background(), "mysql", "root@/db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}
