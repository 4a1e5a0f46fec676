package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siepic/ebeam-cdc/internal/db"
)

func TestOpenDatabase_AutoMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cdc.db")
	database, err := openDatabase(path, true)
	require.NoError(t, err)
	defer database.Close()

	migrations, err := db.MigrationsFS()
	require.NoError(t, err)
	assert.NoError(t, database.CheckMigrations(migrations))
}

func TestOpenDatabase_RefusesStaleSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cdc.db")
	_, err := openDatabase(path, false)
	assert.ErrorContains(t, err, "migrate up")

	migrated, err := openDatabase(path, true)
	require.NoError(t, err)
	require.NoError(t, migrated.Close())

	database, err := openDatabase(path, false)
	require.NoError(t, err)
	assert.NoError(t, database.Close())
}

func TestFlagDefaults(t *testing.T) {
	assert.True(t, *autoMigrate)
	assert.False(t, *noDB)
	assert.Empty(t, *listen)
}
