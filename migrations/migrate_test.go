package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames_Sorted(t *testing.T) {
	names, err := Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"001_orders.sql", "002_outbox.sql", "003_sellers.sql"}, names)
}

func TestMigrations_NotEmpty(t *testing.T) {
	names, err := Names()
	require.NoError(t, err)
	for _, name := range names {
		raw, err := files.ReadFile(name)
		require.NoError(t, err)
		assert.Contains(t, string(raw), "CREATE TABLE", name)
	}
}
