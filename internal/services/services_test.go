package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/drawlab/internal/events"
	"github.com/aristath/drawlab/internal/modules/backtest"
	"github.com/aristath/drawlab/internal/modules/history"
	"github.com/aristath/drawlab/internal/modules/optimizer"
	"github.com/aristath/drawlab/internal/modules/scoring"
	"github.com/aristath/drawlab/internal/modules/strategies"
	testutil "github.com/aristath/drawlab/internal/testing"
)

type fixture struct {
	draws        *DrawService
	optimization *OptimizationService
	store        *strategies.Store
	events       <-chan *events.Event
}

func newFixture(t *testing.T, lotteries ...LotteryConfig) *fixture {
	t.Helper()
	db, cleanup := testutil.NewTestDB(t)
	t.Cleanup(cleanup)

	bus := events.NewBus(zerolog.Nop())
	ch, unsub := bus.Subscribe(1000)
	t.Cleanup(unsub)
	ev := events.NewManager(zerolog.Nop(), bus)

	dir := t.TempDir()
	store := strategies.NewStore(
		strategies.NewRepository(db.Conn(), zerolog.Nop()),
		strategies.NewFileStore(dir, zerolog.Nop()),
		nil,
		zerolog.Nop(),
	)
	draws := NewDrawService(db.Conn(), lotteries, ev, zerolog.Nop())
	opt := NewOptimizationService(OptimizationConfig{
		Draws:       draws,
		Engine:      scoring.NewEngine(),
		Store:       store,
		Checkpoints: optimizer.NewCheckpointStore(dir),
		Backtest:    backtest.DefaultConfig(),
		Defaults:    optimizer.Config{Population: 4, Generations: 2, Depth: 3, Workers: 2},
		Events:      ev,
		Log:         zerolog.Nop(),
	})
	return &fixture{draws: draws, optimization: opt, store: store, events: ch}
}

func feed(n int, seed int64) history.Source {
	return history.StaticSource(testutil.Records(testutil.RandomDraws(n, seed)))
}

func drain(ch <-chan *events.Event) []events.EventType {
	var out []events.EventType
	for {
		select {
		case e := <-ch:
			out = append(out, e.Type)
		default:
			return out
		}
	}
}

func TestDrawService_NamesAreSortedAndUnique(t *testing.T) {
	f := newFixture(t,
		LotteryConfig{Name: "macau"},
		LotteryConfig{Name: "hk"},
		LotteryConfig{Name: "macau"},
	)
	assert.Equal(t, []string{"hk", "macau"}, f.draws.Names())
	assert.True(t, f.draws.Has("hk"))
	assert.False(t, f.draws.Has("tw"))
}

func TestDrawService_UnknownLottery(t *testing.T) {
	f := newFixture(t, LotteryConfig{Name: "hk"})
	ctx := context.Background()

	_, err := f.draws.Import(ctx, "tw")
	assert.ErrorIs(t, err, ErrUnknownLottery)
	_, err = f.draws.History(ctx, "tw")
	assert.ErrorIs(t, err, ErrUnknownLottery)
	_, err = f.draws.Repository("tw")
	assert.ErrorIs(t, err, ErrUnknownLottery)
}

func TestDrawService_Import(t *testing.T) {
	f := newFixture(t, LotteryConfig{Name: "hk", Feed: feed(40, 1)}, LotteryConfig{Name: "manual"})
	ctx := context.Background()

	n, err := f.draws.Import(ctx, "hk")
	require.NoError(t, err)
	assert.Equal(t, 40, n)

	e := <-f.events
	require.Equal(t, events.DrawsImported, e.Type)
	data := e.Data.(*events.DrawsImportedData)
	assert.Equal(t, "hk", data.Lottery)
	assert.Equal(t, testutil.FirstPeriod+39, data.Latest)

	h, err := f.draws.History(ctx, "hk")
	require.NoError(t, err)
	assert.Len(t, h, 40)
	count, err := f.draws.Count(ctx, "hk")
	require.NoError(t, err)
	assert.Equal(t, 40, count)

	n, err = f.draws.Import(ctx, "manual")
	require.NoError(t, err)
	assert.Zero(t, n)
	h, err = f.draws.History(ctx, "manual")
	require.NoError(t, err)
	assert.Empty(t, h)
}

func TestOptimizationService_OptimizePersistsAndActivates(t *testing.T) {
	f := newFixture(t, LotteryConfig{Name: "hk", Feed: feed(60, 2)})
	ctx := context.Background()
	_, err := f.draws.Import(ctx, "hk")
	require.NoError(t, err)
	drain(f.events)

	out, err := f.optimization.Optimize(ctx, "hk", scoring.GeneralV5, optimizer.Config{}, false)
	require.NoError(t, err)
	require.NotNil(t, out.Run)
	assert.True(t, out.Result.Completed)
	assert.Len(t, out.Result.Log, 2)
	assert.Equal(t, 4, out.Result.Config.Population)

	active := f.store.Active(ctx, "hk", scoring.GeneralV5)
	assert.Equal(t, strategies.SourceDatabase, active.Source)
	assert.Equal(t, out.Run.ID, active.RunID)

	types := drain(f.events)
	assert.Equal(t, []events.EventType{
		events.OptimizerStarted,
		events.OptimizerProgress,
		events.OptimizerProgress,
		events.OptimizerFinished,
	}, types)

	status, ok := f.optimization.Status("hk", scoring.GeneralV5)
	require.True(t, ok)
	assert.False(t, status.Running)
	assert.True(t, status.Completed)
	assert.Equal(t, out.Result.RunID, status.RunID)
	assert.Equal(t, 2, status.Generations)
}

func TestOptimizationService_OverrideWinsOverDefaults(t *testing.T) {
	f := newFixture(t, LotteryConfig{Name: "hk", Feed: feed(60, 3)})
	ctx := context.Background()
	_, err := f.draws.Import(ctx, "hk")
	require.NoError(t, err)

	out, err := f.optimization.Optimize(ctx, "hk", scoring.SpecialV5, optimizer.Config{Generations: 3}, false)
	require.NoError(t, err)
	assert.Len(t, out.Result.Log, 3)
	assert.Equal(t, 4, out.Result.Config.Population)

	cfg := f.optimization.Config(scoring.SpecialV5)
	assert.Equal(t, 2, cfg.Generations)
	assert.Equal(t, 0.2, cfg.MutationRate)
}

func TestOverlay_NoMutation(t *testing.T) {
	crossoverOnly := optimizer.Config{NoMutation: true}

	cfg := overlay(crossoverOnly, optimizer.Config{MutationRate: 0.4}).Merge(scoring.GeneralV5)
	assert.True(t, cfg.NoMutation)
	assert.Zero(t, cfg.MutationRate)

	cfg = overlay(optimizer.Config{}, crossoverOnly).Merge(scoring.GeneralV5)
	assert.Zero(t, cfg.MutationRate, "configured crossover-only default applies")

	cfg = overlay(optimizer.Config{MutationRate: 0.3}, crossoverOnly).Merge(scoring.GeneralV5)
	assert.Equal(t, 0.3, cfg.MutationRate, "request rate wins over the configured default")
	assert.False(t, cfg.NoMutation)
}

func TestOptimizationService_Errors(t *testing.T) {
	f := newFixture(t, LotteryConfig{Name: "hk"})
	ctx := context.Background()

	_, err := f.optimization.Optimize(ctx, "tw", scoring.GeneralV5, optimizer.Config{}, false)
	assert.ErrorIs(t, err, ErrUnknownLottery)

	_, err = f.optimization.Optimize(ctx, "hk", scoring.Variant("general_v1"), optimizer.Config{}, false)
	assert.Error(t, err)

	_, err = f.optimization.Optimize(ctx, "hk", scoring.GeneralV5, optimizer.Config{}, false)
	assert.ErrorIs(t, err, history.ErrMissingData)

	status, ok := f.optimization.Status("hk", scoring.GeneralV5)
	require.True(t, ok)
	assert.False(t, status.Running)
	assert.NotEmpty(t, status.Error)
}

func TestOptimizationService_StartCancel(t *testing.T) {
	f := newFixture(t, LotteryConfig{Name: "hk", Feed: feed(60, 4)})
	ctx := context.Background()
	_, err := f.draws.Import(ctx, "hk")
	require.NoError(t, err)

	status, err := f.optimization.Start("hk", scoring.GeneralV6, optimizer.Config{Generations: 100000}, false)
	require.NoError(t, err)
	assert.True(t, status.Running)

	_, err = f.optimization.Start("hk", scoring.GeneralV6, optimizer.Config{}, false)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	assert.True(t, f.optimization.Cancel("hk", scoring.GeneralV6))
	f.optimization.Shutdown()

	status, ok := f.optimization.Status("hk", scoring.GeneralV6)
	require.True(t, ok)
	assert.False(t, status.Running)
	assert.False(t, status.Completed)
	assert.NotEmpty(t, status.Error)
	assert.False(t, f.optimization.Cancel("hk", scoring.GeneralV6))

	active := f.store.Active(ctx, "hk", scoring.GeneralV6)
	assert.Equal(t, strategies.SourceDefaults, active.Source)
}

func TestOptimizationService_StartRunsInBackground(t *testing.T) {
	f := newFixture(t, LotteryConfig{Name: "hk", Feed: feed(60, 5)})
	ctx := context.Background()
	_, err := f.draws.Import(ctx, "hk")
	require.NoError(t, err)

	_, err = f.optimization.Start("hk", scoring.GeneralV5, optimizer.Config{}, false)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		s, _ := f.optimization.Status("hk", scoring.GeneralV5)
		return !s.Running
	}, 10*time.Second, 10*time.Millisecond)

	statuses := f.optimization.Statuses()
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].Completed)
	assert.NotNil(t, statuses[0].FinishedAt)
}

func TestOptimizationService_Report(t *testing.T) {
	f := newFixture(t, LotteryConfig{Name: "hk", Feed: feed(60, 6)})
	ctx := context.Background()
	_, err := f.draws.Import(ctx, "hk")
	require.NoError(t, err)

	report, active, err := f.optimization.Report(ctx, "hk", scoring.GeneralV5, 5)
	require.NoError(t, err)
	assert.Equal(t, strategies.SourceDefaults, active.Source)
	assert.Equal(t, 5, report.Tested)

	report, _, err = f.optimization.Report(ctx, "hk", scoring.GeneralV5, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Tested)
}
