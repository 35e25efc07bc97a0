package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/car-advisor/advisor/pkg/adapter"
	"github.com/car-advisor/advisor/pkg/api/handlers"
	"github.com/car-advisor/advisor/pkg/config"
	"github.com/car-advisor/advisor/pkg/engine"
	"github.com/car-advisor/advisor/pkg/favorites"
	"github.com/car-advisor/advisor/pkg/metrics"
	"github.com/car-advisor/advisor/pkg/recommend"
	"github.com/car-advisor/advisor/pkg/wizard"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const upstreamCars = `{
	"success": true,
	"cars": [
		{"id": 1, "メーカー": "ホンダ", "車種": "フリード", "価格帯(万円)": "250～330", "推薦スコア": 72},
		{"id": 2, "メーカー": "トヨタ", "車種": "ノア", "価格帯(万円)": "267～389", "推薦スコア": 91, "youtube_url": "https://youtu.be/x"}
	]
}`

type fixture struct {
	t        *testing.T
	handler  http.Handler
	upstream *httptest.Server
	fail     atomic.Bool

	mu       sync.Mutex
	lastBody []byte
}

func (f *fixture) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return string(f.lastBody)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{t: t}

	f.upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f.fail.Load() {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(r.Body)
		f.mu.Lock()
		f.lastBody = buf.Bytes()
		f.mu.Unlock()

		switch r.URL.Path {
		case "/api/recommend":
			_, _ = w.Write([]byte(upstreamCars))
		case "/api/cars/batch":
			_, _ = w.Write([]byte(`[{"id": "2", "メーカー": "トヨタ", "車種": "ノア"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.upstream.Close)

	cfg := &config.Config{
		Port:            "0",
		UpstreamURL:     f.upstream.URL,
		UpstreamTimeout: 2 * time.Second,
		SessionCapacity: 8,
	}

	reg := prometheus.NewRegistry()
	recorder, err := metrics.New(reg)
	require.NoError(t, err)

	client := recommend.NewClient(cfg.UpstreamURL, recommend.WithTimeout(cfg.UpstreamTimeout), recommend.WithObserver(recorder))
	eng := engine.NewWith(adapter.New(adapter.DefaultVariant()), client, nil, recorder)

	sessions, err := wizard.NewStore(cfg.SessionCapacity)
	require.NoError(t, err)

	f.handler = New(cfg, Deps{
		Engine:    eng,
		Sessions:  sessions,
		Favorites: favorites.NewMemoryStore(),
		Gatherer:  reg,
	}).Handler()
	return f
}

func (f *fixture) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	f.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(f.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp handlers.ErrorResponse
	decode(t, rec, &resp)
	assert.Equal(t, rec.Code, resp.Error.Status)
	return resp.Error.Code
}

func (f *fixture) createSession() string {
	f.t.Helper()
	rec := f.do(http.MethodPost, "/api/diagnosis", nil)
	require.Equal(f.t, http.StatusCreated, rec.Code)

	var resp handlers.DiagnosisResponse
	decode(f.t, rec, &resp)
	require.NotEmpty(f.t, resp.Session.ID)
	assert.Equal(f.t, 1, int(resp.Session.State.CurrentStep))
	return resp.Session.ID
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"disabled"`)
}

type failingDB struct{}

func (failingDB) Ping(context.Context) error { return errors.New("no route") }

func TestHealthDatabaseDown(t *testing.T) {
	h := handlers.NewHealthHandler(failingDB{})
	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "unreachable")
}

func TestProfiles(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/profiles", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Profiles []struct {
			ID string `json:"id"`
		} `json:"profiles"`
	}
	decode(t, rec, &resp)
	require.Len(t, resp.Profiles, 5)
	assert.Equal(t, "family", resp.Profiles[0].ID)
	assert.Equal(t, "balance", resp.Profiles[4].ID)
}

func TestDiagnosisHappyPath(t *testing.T) {
	f := newFixture(t)
	id := f.createSession()
	base := "/api/diagnosis/" + id

	rec := f.do(http.MethodPut, base+"/answers", map[string]interface{}{
		"purpose": "family", "budget": "medium", "passengers": "5+",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodPost, base+"/next", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodPut, base+"/answers", map[string]interface{}{
		"fuel_importance": 4, "safety_importance": 5, "design_importance": 2,
		"space_importance": 5, "maintenance_importance": "3",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodPost, base+"/next", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var state handlers.DiagnosisResponse
	decode(t, rec, &state)
	require.NotNil(t, state.Session.Result)
	assert.Equal(t, "family", string(state.Session.Result.Type))
	require.NotNil(t, state.Profile)
	assert.Equal(t, "ファミリー重視タイプ", state.Profile.Name)
	assert.Equal(t, float64(100), state.Session.Progress.Percent)

	rec = f.do(http.MethodGet, base+"/request", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"max_price":"500"`)
	assert.Contains(t, rec.Body.String(), `"min_seats":"5"`)

	_ = f.do(http.MethodPost, "/api/favorites/browser-1/1", nil)

	rec = f.do(http.MethodPost, base+"/recommend", map[string]string{"client": "browser-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	var result engine.RecommendResult
	decode(t, rec, &result)
	require.Len(t, result.Cards, 2)
	assert.Equal(t, "2", result.Cards[0].ID)
	assert.Equal(t, "/car/2?tab=reviews", result.Cards[0].ReviewURL)
	assert.True(t, result.Cards[1].Favorite)
	assert.Contains(t, f.last(), `"user_profile":"family"`)

	rec = f.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `advisor_diagnoses_total{profile="family"} 1`)
}

func TestDiagnosisErrors(t *testing.T) {
	f := newFixture(t)
	id := f.createSession()
	base := "/api/diagnosis/" + id

	rec := f.do(http.MethodPost, base+"/next", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INCOMPLETE_STEP", errorCode(t, rec))

	rec = f.do(http.MethodPut, base+"/answers", map[string]interface{}{"purpose": "racing"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ANSWER", errorCode(t, rec))

	rec = f.do(http.MethodPut, base+"/answers", map[string]interface{}{"safety_importance": 9})
	assert.Equal(t, "INVALID_ANSWER", errorCode(t, rec))

	rec = f.do(http.MethodGet, base+"/request", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INCOMPLETE_DIAGNOSIS", errorCode(t, rec))

	rec = f.do(http.MethodPost, base+"/recommend", nil)
	assert.Equal(t, "INCOMPLETE_DIAGNOSIS", errorCode(t, rec))

	rec = f.do(http.MethodGet, "/api/diagnosis/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, rec))

	req := httptest.NewRequest(http.MethodPut, base+"/answers", strings.NewReader("{"))
	raw := httptest.NewRecorder()
	f.handler.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestIncompleteStepDetails(t *testing.T) {
	f := newFixture(t)
	id := f.createSession()

	_ = f.do(http.MethodPut, "/api/diagnosis/"+id+"/answers", map[string]interface{}{"purpose": "commute"})
	rec := f.do(http.MethodPost, "/api/diagnosis/"+id+"/next", nil)

	var resp handlers.ErrorResponse
	decode(t, rec, &resp)
	assert.Equal(t, float64(1), resp.Error.Details["step"])
	assert.Equal(t, []interface{}{"budget", "passengers"}, resp.Error.Details["missing"])
}

func TestRecommendUpstreamFailure(t *testing.T) {
	f := newFixture(t)
	id := f.createSession()
	base := "/api/diagnosis/" + id

	_ = f.do(http.MethodPut, base+"/answers", map[string]interface{}{
		"purpose": "commute", "budget": "low", "passengers": "1-2",
		"fuel_importance": 5, "safety_importance": 3, "design_importance": 2,
		"space_importance": 2, "maintenance_importance": 5,
	})
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, base+"/next", nil).Code)
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, base+"/next", nil).Code)

	f.fail.Store(true)
	rec := f.do(http.MethodPost, base+"/recommend", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "UPSTREAM_ERROR", errorCode(t, rec))

	rec = f.do(http.MethodGet, base, nil)
	var state handlers.DiagnosisResponse
	decode(t, rec, &state)
	assert.Equal(t, 3, int(state.Session.State.CurrentStep))
	assert.False(t, state.Session.InFlight)
	assert.Equal(t, "commuter", string(state.Session.Result.Type))
}

func TestBackResetAndMode(t *testing.T) {
	f := newFixture(t)
	id := f.createSession()
	base := "/api/diagnosis/" + id

	rec := f.do(http.MethodPost, base+"/back", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	_ = f.do(http.MethodPut, base+"/answers", map[string]interface{}{
		"purpose": "leisure", "budget": "high", "passengers": "3-4",
	})
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, base+"/next", nil).Code)

	rec = f.do(http.MethodPost, base+"/back", nil)
	var state handlers.DiagnosisResponse
	decode(t, rec, &state)
	assert.Equal(t, 1, int(state.Session.State.CurrentStep))
	assert.Equal(t, "leisure", state.Session.State.Answers.Purpose)

	rec = f.do(http.MethodPost, base+"/reset", nil)
	var cleared handlers.DiagnosisResponse
	decode(t, rec, &cleared)
	assert.Empty(t, cleared.Session.State.Answers.Purpose)
	assert.Nil(t, cleared.Session.Result)

	rec = f.do(http.MethodPut, base+"/mode", map[string]string{"mode": "hybrid"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(http.MethodGet, base+"/mode", nil)
	assert.Contains(t, rec.Body.String(), `"mode":"hybrid"`)

	rec = f.do(http.MethodPut, base+"/mode", map[string]string{"mode": "voice"})
	assert.Equal(t, "INVALID_ANSWER", errorCode(t, rec))

	rec = f.do(http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, base, nil).Code)
}

func TestScore(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/score", map[string]interface{}{
		"purpose": "business", "budget": "high", "design_importance": 5,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp engine.DiagnosisResult
	decode(t, rec, &resp)
	assert.Equal(t, "luxury", string(resp.Result.Type))
	assert.Equal(t, 100, resp.Result.Score)
	assert.NotEmpty(t, resp.Contributions)
	assert.Equal(t, "1000", resp.Request.MaxPrice)

	rec = f.do(http.MethodPost, "/api/score", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &resp)
	assert.Equal(t, "balance", string(resp.Result.Type))

	rec = f.do(http.MethodPost, "/api/score", map[string]interface{}{"color": "red"})
	assert.Equal(t, "INVALID_ANSWER", errorCode(t, rec))
}

func TestSearchValidate(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/search/validate", map[string]interface{}{"max_price": 300})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"per_page":12`)

	rec = f.do(http.MethodPost, "/api/search/validate", map[string]interface{}{"min_seats": 30, "max_price": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))
}

func TestFavorites(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/favorites/browser-1/2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"favorited":true`)

	rec = f.do(http.MethodGet, "/api/favorites/browser-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp handlers.FavoritesResponse
	decode(t, rec, &resp)
	assert.Equal(t, []string{"2"}, resp.IDs)
	require.Len(t, resp.Cards, 1)
	assert.True(t, resp.Cards[0].Favorite)
	assert.Contains(t, f.last(), `"ids":["2"]`)

	rec = f.do(http.MethodGet, "/api/favorites/browser-1/2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"favorited":true`)
	rec = f.do(http.MethodGet, "/api/favorites/browser-2/2", nil)
	assert.Contains(t, rec.Body.String(), `"favorited":false`)

	rec = f.do(http.MethodPost, "/api/favorites/browser-1/2", nil)
	assert.Contains(t, rec.Body.String(), `"favorited":false`)
	rec = f.do(http.MethodGet, "/api/favorites/browser-1/2", nil)
	assert.Contains(t, rec.Body.String(), `"favorited":false`)

	rec = f.do(http.MethodGet, "/api/favorites/browser-1", nil)
	decode(t, rec, &resp)
	assert.Empty(t, resp.IDs)
	assert.Empty(t, resp.Cards)
}

func TestFavoritesCountIncludesOverflow(t *testing.T) {
	f := newFixture(t)

	for i := 1; i <= 11; i++ {
		rec := f.do(http.MethodPost, fmt.Sprintf("/api/favorites/browser-1/%d", i), nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := f.do(http.MethodGet, "/api/favorites/browser-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp handlers.FavoritesResponse
	decode(t, rec, &resp)
	assert.Equal(t, 11, resp.Count)
	assert.Len(t, resp.IDs, 9)
	assert.Equal(t, "1", resp.IDs[0])
	assert.Equal(t, "9", resp.IDs[8])
	assert.Contains(t, f.last(), `"ids":["1","2","3","4","5","6","7","8","9"]`)
}
