package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/drawlab/internal/config"
	"github.com/aristath/drawlab/internal/di"
	"github.com/aristath/drawlab/internal/events"
	"github.com/aristath/drawlab/internal/modules/backtest"
	"github.com/aristath/drawlab/internal/modules/scoring"
)

type testEnv struct {
	server    *Server
	container *di.Container
}

func setupServer(t *testing.T) *testEnv {
	t.Helper()
	tmpDir := t.TempDir()
	cfg := &config.Config{
		DataDir:   tmpDir,
		Port:      8080,
		DrawWidth: 7,
		Lotteries: []config.Lottery{
			{Name: "hk", Feed: filepath.Join(tmpDir, "hk.json")},
			{Name: "macau", Feed: filepath.Join(tmpDir, "macau.json")},
		},
		Variants: scoring.Variants(),
		Rewards:  backtest.DefaultRewards(),
		Cycle:    config.CycleConfig{Timeout: time.Minute},
	}

	container, jobs, err := di.Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(container.Close)

	s := New(Config{
		Log:       zerolog.Nop(),
		Config:    cfg,
		Container: container,
		Jobs:      jobs,
	})
	return &testEnv{server: s, container: container}
}

func (e *testEnv) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func TestHandleHealth(t *testing.T) {
	env := setupServer(t)

	w := env.get("/api/health")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "drawlab", resp["service"])
}

func TestHandleSystemStatus(t *testing.T) {
	env := setupServer(t)

	w := env.get("/api/system/status")
	require.Equal(t, http.StatusOK, w.Code)

	var resp SystemStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, []LotteryStatus{{Name: "hk"}, {Name: "macau"}}, resp.Lotteries)
	assert.Empty(t, resp.Optimizations)
	assert.Equal(t, 0, resp.RunningOptimizer)
	require.NotNil(t, resp.Database)
	assert.Greater(t, resp.Database.PageSize, int64(0))
	assert.GreaterOrEqual(t, resp.CPUPercent, 0.0)
	assert.GreaterOrEqual(t, resp.MemoryPercent, 0.0)
}

func TestHandleDatabaseStats(t *testing.T) {
	env := setupServer(t)

	w := env.get("/api/system/database")
	require.Equal(t, http.StatusOK, w.Code)

	var resp DatabaseStatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Healthy)
	assert.Empty(t, resp.Error)
	assert.True(t, strings.HasSuffix(resp.Path, "drawlab.db"))
	assert.Greater(t, resp.DataDirMB, 0.0)
}

func TestHandleTriggerDailyCycle(t *testing.T) {
	env := setupServer(t)
	ch, unsubscribe := env.container.EventBus.Subscribe(100)
	defer unsubscribe()

	req := httptest.NewRequest(http.MethodPost, "/api/system/jobs/daily-cycle", nil)
	w := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusAccepted, w.Code)

	// Feeds are missing, so both lotteries fail but the cycle still completes
	timeout := time.After(10 * time.Second)
	for {
		select {
		case e := <-ch:
			if e.Type != events.CycleCompleted {
				continue
			}
			data, ok := e.Data.(*events.CycleCompletedData)
			require.True(t, ok)
			assert.Equal(t, 2, data.Failures)
			return
		case <-timeout:
			t.Fatal("daily cycle did not complete")
		}
	}
}

func TestModuleRoutesAreMounted(t *testing.T) {
	env := setupServer(t)

	assert.Equal(t, http.StatusOK, env.get("/api/lotteries").Code)
	assert.Equal(t, http.StatusOK, env.get("/api/lotteries/hk/runs?variant=general_v5").Code)
	assert.Equal(t, http.StatusOK, env.get("/api/lotteries/hk/predictions?variant=special_v7").Code)
	assert.Equal(t, http.StatusOK, env.get("/api/optimizer/runs").Code)
	assert.Equal(t, http.StatusOK, env.get("/api/scoring/variants").Code)
	assert.Equal(t, http.StatusOK, env.get("/api/scoring/values/12").Code)
	assert.Equal(t, http.StatusNotFound, env.get("/api/lotteries/nowhere/draws").Code)
}

func TestEventsStream(t *testing.T) {
	env := setupServer(t)
	srv := httptest.NewServer(env.server.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events/stream?types=DRAWS_IMPORTED", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readData := func() map[string]interface{} {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var msg map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &msg))
			return msg
		}
	}

	assert.Equal(t, "connected", readData()["type"])

	env.container.EventManager.Emit(ctx, "history", &events.CycleCompletedData{})
	env.container.EventManager.Emit(ctx, "history", &events.DrawsImportedData{Lottery: "hk", Records: 3})

	msg := readData()
	assert.Equal(t, string(events.DrawsImported), msg["type"])
	data, ok := msg["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "hk", data["lottery"])
}

func TestStreamFilter(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/events/stream?types=DRAWS_IMPORTED,CYCLE_COMPLETED&lottery=hk", nil)
	f := newStreamFilter(req)

	tests := []struct {
		name  string
		data  events.EventData
		match bool
	}{
		{"same lottery", &events.DrawsImportedData{Lottery: "hk"}, true},
		{"other lottery", &events.DrawsImportedData{Lottery: "macau"}, false},
		{"cycle including lottery", &events.CycleCompletedData{Lotteries: []string{"hk", "macau"}}, true},
		{"cycle without lottery", &events.CycleCompletedData{Lotteries: []string{"macau"}}, false},
		{"type not requested", &events.PredictionCreatedData{Lottery: "hk"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &events.Event{Type: tt.data.EventType(), Data: tt.data}
			assert.Equal(t, tt.match, f.match(e))
		})
	}

	assert.True(t, concerns(&events.ErrorEventData{Error: "x"}, "hk"))
	assert.False(t, concerns(&events.ErrorEventData{Context: map[string]interface{}{"lottery": "macau"}}, "hk"))
}

func TestOriginHosts(t *testing.T) {
	assert.Equal(t,
		[]string{"app.example.com", "*.example.org", "localhost:3000"},
		originHosts([]string{"https://app.example.com", "https://*.example.org", "*", "localhost:3000"}),
	)
	assert.Empty(t, originHosts(nil))
}
