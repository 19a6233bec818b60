package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/aristath/drawlab/internal/events"
	"github.com/aristath/drawlab/internal/modules/backtest"
	"github.com/aristath/drawlab/internal/modules/history"
	"github.com/aristath/drawlab/internal/modules/optimizer"
	"github.com/aristath/drawlab/internal/modules/scoring"
	"github.com/aristath/drawlab/internal/modules/strategies"
	"github.com/aristath/drawlab/internal/services"
	testutil "github.com/aristath/drawlab/internal/testing"
)

type fixture struct {
	router       *chi.Mux
	bus          *events.Bus
	optimization *services.OptimizationService
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, cleanup := testutil.NewTestDB(t)
	t.Cleanup(cleanup)

	bus := events.NewBus(zerolog.Nop())
	ev := events.NewManager(zerolog.Nop(), bus)

	draws := services.NewDrawService(db.Conn(), []services.LotteryConfig{
		{Name: "hk", Feed: history.StaticSource(testutil.Records(testutil.RandomDraws(60, 3)))},
		{Name: "empty"},
	}, ev, zerolog.Nop())
	_, err := draws.Import(context.Background(), "hk")
	require.NoError(t, err)

	dir := t.TempDir()
	store := strategies.NewStore(
		strategies.NewRepository(db.Conn(), zerolog.Nop()),
		strategies.NewFileStore(dir, zerolog.Nop()),
		nil,
		zerolog.Nop(),
	)
	opt := services.NewOptimizationService(services.OptimizationConfig{
		Draws:    draws,
		Engine:   scoring.NewEngine(),
		Store:    store,
		Backtest: backtest.DefaultConfig(),
		Defaults: optimizer.Config{Population: 4, Generations: 2, Depth: 3, Workers: 2},
		Events:   ev,
		Log:      zerolog.Nop(),
	})
	t.Cleanup(opt.Shutdown)

	h := NewHandler(opt, bus, zerolog.Nop())
	router := chi.NewRouter()
	h.RegisterRoutes(router)
	h.RegisterStreamRoutes(router)
	return &fixture{router: router, bus: bus, optimization: opt}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestHandleStartRun(t *testing.T) {
	f := setup(t)

	w := f.do("POST", "/optimizer/runs", `{"lottery":"hk","variant":"general_v5"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	var status services.RunStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "hk", status.Lottery)
	assert.Equal(t, scoring.GeneralV5, status.Variant)
	assert.True(t, status.Running)

	assert.Eventually(t, func() bool {
		s, ok := f.optimization.Status("hk", scoring.GeneralV5)
		return ok && !s.Running
	}, 10*time.Second, 20*time.Millisecond)

	w = f.do("GET", "/optimizer/runs/hk/general_v5", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.True(t, status.Completed)
	assert.NotEmpty(t, status.RunID)
	assert.Equal(t, 2, status.Generations)

	w = f.do("GET", "/optimizer/runs", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Runs  []services.RunStatus `json:"runs"`
		Count int                  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)
}

func TestHandleStartRun_Errors(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed body", `{`, http.StatusBadRequest},
		{"unknown variant", `{"lottery":"hk","variant":"general_v9"}`, http.StatusBadRequest},
		{"bad mutation rate", `{"lottery":"hk","variant":"general_v5","config":{"mutation_rate":2}}`, http.StatusBadRequest},
		{"conflicting mutation", `{"lottery":"hk","variant":"general_v5","config":{"mutation_rate":0.4,"no_mutation":true}}`, http.StatusBadRequest},
		{"unknown lottery", `{"lottery":"nowhere","variant":"general_v5"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do("POST", "/optimizer/runs", tt.body)
			assert.Equal(t, tt.code, w.Code)

			var resp map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, true, resp["error"])
		})
	}
}

func TestHandleStartRun_ConflictAndCancel(t *testing.T) {
	f := setup(t)
	body := `{"lottery":"hk","variant":"general_v6","config":{"generations":100000}}`

	w := f.do("POST", "/optimizer/runs", body)
	require.Equal(t, http.StatusAccepted, w.Code)

	w = f.do("POST", "/optimizer/runs", body)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do("DELETE", "/optimizer/runs/hk/general_v6", "")
	assert.Equal(t, http.StatusAccepted, w.Code)

	assert.Eventually(t, func() bool {
		s, ok := f.optimization.Status("hk", scoring.GeneralV6)
		return ok && !s.Running
	}, 10*time.Second, 20*time.Millisecond)

	w = f.do("DELETE", "/optimizer/runs/hk/general_v6", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleGetRun_NotFound(t *testing.T) {
	f := setup(t)

	assert.Equal(t, http.StatusNotFound, f.do("GET", "/optimizer/runs/hk/general_v6", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do("GET", "/optimizer/runs/hk/bogus", "").Code)
}

func TestHandleGetConfig(t *testing.T) {
	f := setup(t)

	w := f.do("GET", "/optimizer/config/special_v7", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Variant scoring.Variant  `json:"variant"`
		Config  optimizer.Config `json:"config"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, scoring.SpecialV7, resp.Variant)
	assert.Equal(t, 4, resp.Config.Population)
	assert.Equal(t, 3, resp.Config.Depth)
	assert.Equal(t, 6, resp.Config.TournamentSize)
}

func TestHandleBacktest(t *testing.T) {
	f := setup(t)

	w := f.do("GET", "/lotteries/hk/backtest/general_v5?depth=5", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Lottery  string            `json:"lottery"`
		Strategy strategies.Active `json:"strategy"`
		Report   backtest.Report   `json:"report"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "hk", resp.Lottery)
	assert.Equal(t, strategies.SourceDefaults, resp.Strategy.Source)
	assert.Equal(t, 5, resp.Report.Tested)

	assert.Equal(t, http.StatusBadRequest, f.do("GET", "/lotteries/hk/backtest/general_v5?depth=x", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do("GET", "/lotteries/nowhere/backtest/general_v5", "").Code)
	assert.Equal(t, http.StatusConflict, f.do("GET", "/lotteries/empty/backtest/general_v5", "").Code)
}

func TestHandleStream(t *testing.T) {
	f := setup(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/optimizer/stream"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool { return f.bus.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	// filtered out by default
	require.NoError(t, f.bus.Publish(ctx, &events.Event{
		Type:      events.DrawsImported,
		Timestamp: time.Now(),
		Module:    "history",
		Data:      &events.DrawsImportedData{Lottery: "hk", Records: 1},
	}))
	require.NoError(t, f.bus.Publish(ctx, &events.Event{
		Type:      events.OptimizerProgress,
		Timestamp: time.Now(),
		Module:    "optimizer",
		Data:      &events.OptimizerProgressData{Lottery: "hk", Variant: "general_v5", Generation: 3, Generations: 10},
	}))

	typ, data, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageText, typ)

	var msg struct {
		Type events.EventType `json:"type"`
		Data struct {
			Lottery    string `json:"lottery"`
			Generation int    `json:"generation"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, events.OptimizerProgress, msg.Type)
	assert.Equal(t, "hk", msg.Data.Lottery)
	assert.Equal(t, 3, msg.Data.Generation)
}

func TestHandleStream_OriginCheck(t *testing.T) {
	f := setup(t)

	dial := func(t *testing.T, patterns []string, insecure bool, origin string) (*http.Response, error) {
		h := NewHandler(f.optimization, f.bus, zerolog.Nop())
		h.SetStreamOrigins(patterns, insecure)
		router := chi.NewRouter()
		h.RegisterStreamRoutes(router)
		srv := httptest.NewServer(router)
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/optimizer/stream"
		conn, resp, err := websocket.Dial(ctx, url, &websocket.DialOptions{
			HTTPHeader: http.Header{"Origin": []string{origin}},
		})
		if err == nil {
			conn.Close(websocket.StatusNormalClosure, "")
		}
		return resp, err
	}

	t.Run("cross origin rejected by default", func(t *testing.T) {
		resp, err := dial(t, nil, false, "https://evil.example")
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("allowed pattern", func(t *testing.T) {
		patterns := []string{"*.example.com"}
		_, err := dial(t, patterns, false, "https://app.example.com")
		assert.NoError(t, err)
		_, err = dial(t, patterns, false, "https://evil.example")
		assert.Error(t, err)
	})

	t.Run("insecure accepts any origin", func(t *testing.T) {
		_, err := dial(t, nil, true, "https://evil.example")
		assert.NoError(t, err)
	})
}
