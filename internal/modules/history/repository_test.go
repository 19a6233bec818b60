package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/drawlab/internal/database"
)

func newRepo(t *testing.T, lottery string) (*DrawRepository, *database.DB) {
	t.Helper()
	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "draws.db"),
		Profile: database.ProfileCache,
		Name:    "test",
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })
	return NewDrawRepository(db.Conn(), lottery, zerolog.Nop()), db
}

func TestDrawRepository_UpsertAndRead(t *testing.T) {
	ctx := context.Background()
	repo, db := newRepo(t, "hk")

	n, err := repo.Upsert(ctx, []Record{
		rec(1, 1, 2, 3, 4, 5, 6, 7),
		rec(2, 11, 12, 13, 14, 15, 16, 17),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Replacing period 1 keeps a single row.
	_, err = repo.Upsert(ctx, []Record{rec(1, 21, 22, 23, 24, 25, 26, 27)})
	require.NoError(t, err)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	records, err := repo.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(2), records[0].Period)
	assert.Equal(t, 27, records[1].Numbers[6].Value)

	recent, err := repo.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, int64(2), recent[0].Period)

	// Other lotteries are isolated.
	other := NewDrawRepository(db.Conn(), "macau", zerolog.Nop())
	count, err = other.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDrawRepository_ImportFeedsLoader(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t, "hk")

	n, err := repo.Import(ctx, StaticSource{
		rec(5, 1, 2, 3, 4, 5, 6, 7),
		rec(6, 8, 9, 10, 11, 12, 13, 14),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	h := NewLoader(repo, zerolog.Nop()).LoadGeneral(ctx)
	require.Len(t, h, 2)
	assert.Equal(t, int64(6), h[0].Period)
	assert.Equal(t, "pig", h[1].Special().Zodiac)
}

func TestDrawRepository_ImportPropagatesSourceError(t *testing.T) {
	repo, _ := newRepo(t, "hk")
	_, err := repo.Import(context.Background(), failingSource{err: ErrMissingData})
	assert.ErrorIs(t, err, ErrMissingData)
}

func TestDrawRepository_UpsertEmpty(t *testing.T) {
	repo, _ := newRepo(t, "hk")
	n, err := repo.Upsert(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
