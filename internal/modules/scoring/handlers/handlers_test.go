package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/drawlab/internal/modules/backtest"
	"github.com/aristath/drawlab/internal/modules/categories"
	"github.com/aristath/drawlab/internal/modules/history"
	"github.com/aristath/drawlab/internal/modules/optimizer"
	"github.com/aristath/drawlab/internal/modules/predictions"
	"github.com/aristath/drawlab/internal/modules/scoring"
	"github.com/aristath/drawlab/internal/modules/strategies"
	"github.com/aristath/drawlab/internal/services"
	testutil "github.com/aristath/drawlab/internal/testing"
)

func setupRouter(t *testing.T) (http.Handler, *predictions.Repository) {
	t.Helper()
	db, cleanup := testutil.NewTestDB(t)
	t.Cleanup(cleanup)

	draws := services.NewDrawService(db.Conn(), []services.LotteryConfig{
		{Name: "hk", Feed: history.StaticSource(testutil.Records(testutil.RandomDraws(60, 5)))},
		{Name: "empty"},
	}, nil, zerolog.Nop())
	_, err := draws.Import(context.Background(), "hk")
	require.NoError(t, err)

	engine := scoring.NewEngine()
	store := strategies.NewStore(
		strategies.NewRepository(db.Conn(), zerolog.Nop()),
		strategies.NewFileStore(t.TempDir(), zerolog.Nop()),
		nil,
		zerolog.Nop(),
	)
	opt := services.NewOptimizationService(services.OptimizationConfig{
		Draws:    draws,
		Engine:   engine,
		Store:    store,
		Backtest: backtest.DefaultConfig(),
		Defaults: optimizer.Config{Depth: 4},
		Log:      zerolog.Nop(),
	})
	repo := predictions.NewRepository(db.Conn(), zerolog.Nop())
	svc := predictions.NewService(engine, store, repo, nil, history.DefaultWidth, zerolog.Nop())

	router := chi.NewRouter()
	NewHandler(draws, opt, svc, engine, zerolog.Nop()).RegisterRoutes(router)
	return router, repo
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleListVariants(t *testing.T) {
	router, _ := setupRouter(t)

	w := do(router, http.MethodGet, "/scoring/variants", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Variants []VariantInfo `json:"variants"`
		Count    int           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, len(scoring.Variants()), resp.Count)
	for _, info := range resp.Variants {
		assert.Equal(t, info.Variant.Kind(), info.Kind)
		assert.Equal(t, info.Variant.Space().Names(), info.Space.Names())
	}
}

func TestHandleListCategories(t *testing.T) {
	router, _ := setupRouter(t)

	w := do(router, http.MethodGet, "/scoring/categories", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Categories []CategoryInfo `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Categories, len(categories.Default().Categories()))
	assert.Equal(t, categories.Zodiac, resp.Categories[0].Category)

	// every category partitions the whole value domain
	for _, c := range resp.Categories {
		total := 0
		for _, l := range c.Labels {
			total += len(l.Members)
		}
		assert.Equal(t, categories.MaxValue, total, c.Category)
	}
}

func TestHandleGetValue(t *testing.T) {
	router, _ := setupRouter(t)

	w := do(router, http.MethodGet, "/scoring/values/7", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Value  int               `json:"value"`
		Tail   int               `json:"tail"`
		Labels map[string]string `json:"labels"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 7, resp.Value)
	assert.Equal(t, 7, resp.Tail)
	assert.Equal(t, "winter", resp.Labels[string(categories.Season)])
	assert.Equal(t, categories.Default().ZodiacOf(7), resp.Labels[string(categories.Zodiac)])

	for _, bad := range []string{"0", "50", "seven"} {
		w = do(router, http.MethodGet, "/scoring/values/"+bad, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}
}

func TestHandleWhatIf(t *testing.T) {
	router, repo := setupRouter(t)

	w := do(router, http.MethodPost, "/scoring/what-if",
		`{"lottery":"hk","variant":"general_v5","weights":{"hot_score":1.5,"cold_score":9}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp WhatIfResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, scoring.GeneralV5, resp.Variant)
	assert.Equal(t, []string{scoring.ParamColdScore}, resp.OutOfRange)
	require.NotNil(t, resp.Prediction)
	assert.NotNil(t, resp.Prediction.General)
	assert.Equal(t, testutil.FirstPeriod+60, resp.Prediction.Period)
	require.NotNil(t, resp.Report)
	assert.Equal(t, 4, resp.Report.Depth)
	assert.Equal(t, 4, resp.Report.Tested)

	// previews are never stored
	stored, err := repo.GetPrediction(context.Background(), "hk", scoring.GeneralV5, testutil.FirstPeriod+60)
	require.NoError(t, err)
	assert.Nil(t, stored)

	w = do(router, http.MethodPost, "/scoring/what-if", `{"lottery":"hk","variant":"special_v7","depth":2}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotNil(t, resp.Prediction.Special)
	assert.Equal(t, 2, resp.Report.Tested)
}

func TestHandleWhatIf_Errors(t *testing.T) {
	router, _ := setupRouter(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed body", `{`, http.StatusBadRequest},
		{"unknown variant", `{"lottery":"hk","variant":"special_v9"}`, http.StatusBadRequest},
		{"negative depth", `{"lottery":"hk","variant":"general_v5","depth":-1}`, http.StatusBadRequest},
		{"negative weight", `{"lottery":"hk","variant":"general_v5","weights":{"hot_score":-1}}`, http.StatusBadRequest},
		{"unknown lottery", `{"lottery":"nowhere","variant":"general_v5"}`, http.StatusNotFound},
		{"no draws", `{"lottery":"empty","variant":"general_v5"}`, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router, http.MethodPost, "/scoring/what-if", tt.body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())

			var resp map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, true, resp["error"])
		})
	}
}
