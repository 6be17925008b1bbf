package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookclub/internal/config"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Database.Path = "bookclub.db"
	cfg.Search.DataPath = "search"
	return cfg
}

func TestEnrichCommand_ParseFlags(t *testing.T) {
	t.Run("flag", func(t *testing.T) {
		cmd := NewEnrichCommand(testConfig())
		require.NoError(t, cmd.ParseFlags([]string{"-book", "12"}))
		assert.Equal(t, uint(12), cmd.BookID)
		assert.Equal(t, "bookclub.db", cmd.DatabasePath)
	})

	t.Run("positional", func(t *testing.T) {
		cmd := NewEnrichCommand(testConfig())
		require.NoError(t, cmd.ParseFlags([]string{"-db", "other.db", "7"}))
		assert.Equal(t, uint(7), cmd.BookID)
		assert.Equal(t, "other.db", cmd.DatabasePath)
	})

	t.Run("missing id", func(t *testing.T) {
		cmd := NewEnrichCommand(testConfig())
		assert.Error(t, cmd.ParseFlags(nil))
	})

	t.Run("bad id", func(t *testing.T) {
		cmd := NewEnrichCommand(testConfig())
		assert.Error(t, cmd.ParseFlags([]string{"dune"}))
	})
}

func TestReindexCommand_ParseFlags(t *testing.T) {
	cmd := NewReindexCommand(testConfig())
	require.NoError(t, cmd.ParseFlags(nil))
	assert.Equal(t, "bookclub.db", cmd.DatabasePath)
	assert.Equal(t, "search", cmd.IndexPath)

	cmd = NewReindexCommand(testConfig())
	require.NoError(t, cmd.ParseFlags([]string{"-index", "/tmp/idx"}))
	assert.Equal(t, "/tmp/idx", cmd.IndexPath)
}
