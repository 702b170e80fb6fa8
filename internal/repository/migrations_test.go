package repository

import (
	"context"
	"testing"

	"storefront/internal/database"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationStatusAfterStartup(t *testing.T) {
	status, err := database.MigrationStatus(context.Background(), testDB, "../../migrations")
	require.NoError(t, err)
	require.Len(t, status, 7)

	for i, m := range status {
		assert.Equal(t, int64(i+1), m.Source.Version)
		assert.Equal(t, goose.StateApplied, m.State, m.Source.Path)
	}
}
