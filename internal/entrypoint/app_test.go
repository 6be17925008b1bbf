package entrypoint

import (
	"context"
	"encoding/hex"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookclub/internal/config"
	"github.com/mrlokans/bookclub/internal/entities"
	"github.com/mrlokans/bookclub/internal/search"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Database.Path = filepath.Join(dir, "bookclub.db")
	cfg.Media.Backend = config.MediaBackendLocal
	cfg.Media.Dir = filepath.Join(dir, "media")
	cfg.Media.BaseURL = "/media"
	cfg.Search.Enabled = true
	cfg.Search.DataPath = filepath.Join(dir, "search")
	return cfg
}

func TestNewApp_SearchDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Search.Enabled = false

	app, err := NewApp(context.Background(), cfg)
	require.NoError(t, err)
	defer app.Close()

	assert.Nil(t, app.Search)
	assert.False(t, app.Enricher.Enabled())
	assert.NoError(t, app.DB.Ping())

	_, err = app.Reindex()
	assert.Error(t, err)
}

func TestApp_Reindex(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer app.Close()

	user := &entities.User{Username: "paul", PasswordHash: "x"}
	require.NoError(t, app.Users.Create(user))
	book := &entities.Book{Title: "Dune", Author: "Frank Herbert", UserID: &user.ID}
	require.NoError(t, app.Books.Create(book))
	thread := &entities.Thread{BookID: book.ID, UserID: user.ID, Title: "Spice", Content: "The sandworms steal the show"}
	require.NoError(t, app.Threads.Create(thread))

	count, err := app.Reindex()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	docs, err := app.Search.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), docs)

	result, err := app.Search.Search(context.Background(), search.Params{Query: "sandworms"})
	require.NoError(t, err)
	assert.Equal(t, []uint{thread.ID}, result.IDsOf(search.DocTypeThread))
}

func TestSessionSecret(t *testing.T) {
	secret, err := sessionSecret("00ff")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xff}, secret)

	secret, err = sessionSecret("not-hex")
	require.NoError(t, err)
	assert.Equal(t, []byte("not-hex"), secret)

	first, err := sessionSecret("")
	require.NoError(t, err)
	second, err := sessionSecret("")
	require.NoError(t, err)
	assert.Len(t, first, 32)
	assert.NotEqual(t, hex.EncodeToString(first), hex.EncodeToString(second))
}
