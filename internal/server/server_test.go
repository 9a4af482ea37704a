package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knapevo/internal/config"
	"knapevo/internal/evo"
	"knapevo/internal/metrics"
	"knapevo/internal/model"
	"knapevo/pkg/knapevo"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	collector, err := metrics.New(reg)
	require.NoError(t, err)

	client, err := knapevo.New(knapevo.Options{StoreKind: "memory", DisableArtifacts: true, Metrics: collector})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Close()
	})

	defaults := config.Default()
	defaults.NumGenerations = 20
	defaults.SolPerPop = 16
	defaults.NumParentsMating = 4
	return New(client, Options{Defaults: defaults, Gatherer: reg}).Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func testCatalog() model.Catalog {
	return model.Catalog{
		{Name: "Box", UnitValue: 10, UnitSpace: 0.5, MaxQuantity: 3},
		{Name: "Crate", UnitValue: 25, UnitSpace: 1.5, MaxQuantity: 1},
		{Name: "Bag", UnitValue: 4, UnitSpace: 0.1, MaxQuantity: 5},
	}
}

func TestHealthz(t *testing.T) {
	rec := do(t, newTestHandler(t), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRunLifecycle(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, http.MethodPost, "/v1/runs", map[string]any{
		"catalog":  testCatalog(),
		"capacity": 2,
		"settings": map[string]any{"random_seed": 7, "parent_selection_type": "tournament"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created runResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.Run.ID)
	assert.Equal(t, 3, created.Run.Items)
	assert.Equal(t, int64(7), created.Run.Seed)
	assert.Equal(t, 20, created.Run.CompletedGenerations)
	assert.LessOrEqual(t, created.UsedSpace, 2.0)
	assert.Len(t, created.Best.Candidate, 3)

	rec = do(t, h, http.MethodGet, "/v1/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Runs []model.RunSummary `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	require.Len(t, listing.Runs, 1)
	assert.Equal(t, created.Run.ID, listing.Runs[0].ID)

	rec = do(t, h, http.MethodGet, "/v1/runs/"+created.Run.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var record model.RunRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	assert.Equal(t, created.Best, record.Best)
	assert.Equal(t, "tournament", record.Config.Selection)

	rec = do(t, h, http.MethodGet, "/v1/runs/"+created.Run.ID+"/fitness", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var fitness struct {
		BestByGeneration []float64 `json:"best_by_generation"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fitness))
	assert.Len(t, fitness.BestByGeneration, 20)

	rec = do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "knapevo_generations_total 20"), rec.Body.String())

	rec = do(t, h, http.MethodDelete, "/v1/runs/"+created.Run.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodGet, "/v1/runs/"+created.Run.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunRejectsBadRequests(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, http.MethodPost, "/v1/runs", map[string]any{"capacity": 2})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/runs", map[string]any{"catalog": []model.Item{}, "capacity": 2})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/runs", map[string]any{"catalog": testCatalog(), "capacity": 9})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "problems")

	rec = do(t, h, http.MethodPost, "/v1/runs", map[string]any{
		"catalog":  testCatalog(),
		"capacity": 2,
		"settings": map[string]any{"no_such_setting": 1},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/runs", map[string]any{
		"catalog":  testCatalog(),
		"capacity": 2,
		"settings": map[string]any{"sol_per_pop": 10, "num_parents_mating": 10, "keep_parents": -1},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "no room for offspring")
}

func TestWriteConfigurationError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	err := fmt.Errorf("start run: %w", &evo.ConfigurationError{Problems: []string{"catalog is empty"}})
	require.True(t, writeConfigurationError(c, err))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"invalid settings","problems":["catalog is empty"]}`, rec.Body.String())

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	assert.False(t, writeConfigurationError(c, errors.New("disk full")))
}

func TestLookupErrors(t *testing.T) {
	h := newTestHandler(t)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/v1/runs/missing", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/v1/runs/missing/fitness", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/v1/runs/missing", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/v1/runs?limit=-2", nil).Code)

	rec := do(t, h, http.MethodGet, "/v1/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"runs":[]}`, rec.Body.String())
}
