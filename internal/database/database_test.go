package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/tinyforum/backend/internal/config"
)

func TestInitializeSQLiteFile(t *testing.T) {
	cfg := &config.Config{
		DatabaseDriver: "sqlite",
		SQLitePath:     filepath.Join(t.TempDir(), "forum.db"),
		Environment:    "test",
	}
	require.NoError(t, Initialize(cfg))
	t.Cleanup(func() {
		_ = Close()
		DB = nil
	})

	require.NoError(t, Migrate())
	assert.NoError(t, Health())
}

func TestHealthWithoutConnection(t *testing.T) {
	saved := DB
	DB = nil
	defer func() { DB = saved }()

	assert.Error(t, Health())
	assert.Error(t, Migrate())
	assert.NoError(t, Close())
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(&config.Config{DatabaseDriver: "mysql"})
	assert.Error(t, err)
}
