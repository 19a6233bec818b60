package strategies

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/drawlab/internal/modules/optimizer"
	"github.com/aristath/drawlab/internal/modules/scoring"
	testutil "github.com/aristath/drawlab/internal/testing"
)

func sampleRun(id string, fitness float64) *Run {
	return &Run{
		ID:          id,
		Lottery:     "hk",
		Variant:     scoring.SpecialV7,
		BestWeights: scoring.Weights{scoring.ParamSpecialLookback: 25, scoring.ParamSpecialColdProtect: 1.5},
		BestFitness: fitness,
		Log: []optimizer.LogEntry{
			{Generation: 0, BestFitness: fitness - 10, AverageFitness: 1, GlobalBest: fitness - 10},
			{Generation: 1, BestFitness: fitness, AverageFitness: 2, GlobalBest: fitness},
		},
		Population:  80,
		Generations: 2,
		Seed:        7,
		Depth:       50,
		StartedAt:   time.Unix(1700000000, 0),
		FinishedAt:  time.Unix(1700000100, 0),
	}
}

func TestRepository_SaveAndGetRun(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t)
	defer cleanup()
	repo := NewRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()

	run := sampleRun("run-1", 120)
	require.NoError(t, repo.SaveRun(ctx, run, true))
	assert.True(t, run.Active)

	got, err := repo.GetRun(ctx, "run-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, run.BestWeights, got.BestWeights)
	assert.Equal(t, run.Log, got.Log)
	assert.Equal(t, scoring.SpecialV7, got.Variant)
	assert.Equal(t, run.StartedAt.Unix(), got.StartedAt.Unix())
	assert.Equal(t, 80, got.Population)
	assert.Equal(t, int64(7), got.Seed)
	assert.True(t, got.Active)
}

func TestRepository_GetRunUnknown(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t)
	defer cleanup()
	repo := NewRepository(db.Conn(), zerolog.Nop())

	got, err := repo.GetRun(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	active, err := repo.GetActive(context.Background(), "hk", scoring.GeneralV5)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestRepository_OneActiveRunPerVariant(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t)
	defer cleanup()
	repo := NewRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()

	first := sampleRun("run-1", 100)
	second := sampleRun("run-2", 90)
	second.FinishedAt = first.FinishedAt.Add(time.Hour)
	require.NoError(t, repo.SaveRun(ctx, first, true))
	require.NoError(t, repo.SaveRun(ctx, second, true))

	active, err := repo.GetActive(ctx, "hk", scoring.SpecialV7)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "run-2", active.ID)

	require.NoError(t, repo.Activate(ctx, "run-1"))
	active, err = repo.GetActive(ctx, "hk", scoring.SpecialV7)
	require.NoError(t, err)
	assert.Equal(t, "run-1", active.ID)

	runs, err := repo.ListRuns(ctx, "hk", scoring.SpecialV7, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.False(t, runs[0].Active)
	assert.True(t, runs[1].Active)
	assert.Nil(t, runs[0].Log)

	assert.ErrorIs(t, repo.Activate(ctx, "missing"), ErrRunNotFound)
}

func TestRepository_DuplicateRunIsPersistenceError(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t)
	defer cleanup()
	repo := NewRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, repo.SaveRun(ctx, sampleRun("run-1", 1), false))
	err := repo.SaveRun(ctx, sampleRun("run-1", 2), false)
	assert.ErrorIs(t, err, ErrPersistence)
}
