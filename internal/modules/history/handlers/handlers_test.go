package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/drawlab/internal/modules/history"
	"github.com/aristath/drawlab/internal/services"
	testutil "github.com/aristath/drawlab/internal/testing"
)

func setupRouter(t *testing.T) http.Handler {
	t.Helper()
	db, cleanup := testutil.NewTestDB(t)
	t.Cleanup(cleanup)

	draws := services.NewDrawService(db.Conn(), []services.LotteryConfig{
		{Name: "hk", Feed: history.StaticSource(testutil.Records(testutil.RandomDraws(12, 1)))},
		{Name: "macau"},
	}, nil, zerolog.Nop())

	router := chi.NewRouter()
	NewHandler(draws, zerolog.Nop()).RegisterRoutes(router)
	return router
}

func do(router http.Handler, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleImportAndGetDraws(t *testing.T) {
	router := setupRouter(t)

	w := do(router, http.MethodPost, "/lotteries/hk/import")
	require.Equal(t, http.StatusOK, w.Code)
	var imported map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &imported))
	assert.Equal(t, float64(12), imported["imported"])

	w = do(router, http.MethodGet, "/lotteries/hk/draws?limit=5")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Draws []history.Draw `json:"draws"`
		Count int            `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp.Count)
	assert.Equal(t, testutil.FirstPeriod+11, resp.Draws[0].Period)
	assert.Len(t, resp.Draws[0].Entries, 7)
	assert.NotEmpty(t, resp.Draws[0].Entries[0].Zodiac)

	w = do(router, http.MethodGet, "/lotteries")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Lotteries []LotterySummary `json:"lotteries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Lotteries, 2)
	assert.Equal(t, LotterySummary{Name: "hk", Draws: 12, LatestPeriod: testutil.FirstPeriod + 11}, list.Lotteries[0])
	assert.Equal(t, LotterySummary{Name: "macau"}, list.Lotteries[1])
}

func TestHandlers_UnknownLottery(t *testing.T) {
	router := setupRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"draws", http.MethodGet, "/lotteries/tw/draws"},
		{"import", http.MethodPost, "/lotteries/tw/import"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router, tt.method, tt.path)
			assert.Equal(t, http.StatusNotFound, w.Code)
			var resp map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, true, resp["error"])
		})
	}
}

func TestRegisterRoutes(t *testing.T) {
	router := chi.NewRouter()
	assert.NotPanics(t, func() {
		NewHandler(nil, zerolog.Nop()).RegisterRoutes(router)
	})
}
