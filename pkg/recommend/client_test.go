package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/car-advisor/advisor/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
	errs  []error
}

func (o *recordingObserver) ObserveUpstream(endpoint string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, endpoint)
	o.errs = append(o.errs, err)
}

func TestRecommendSuccess(t *testing.T) {
	var got types.RecommendationRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/recommend", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"success": true,
			"user_profile": "family",
			"cars": [
				{"id": 12, "メーカー": "トヨタ", "車種": "ノア", "価格帯(万円)": "267～389", "燃費(km/L)": 23.4, "乗車定員": 7, "推薦スコア": 88, "推薦理由": "家族向け"}
			]
		}`))
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	c := NewClient(srv.URL+"/", WithObserver(obs))
	resp, err := c.Recommend(context.Background(), types.RecommendationRequest{
		UserProfile: types.ProfileFamily,
		MaxPrice:    "500",
	})
	require.NoError(t, err)

	assert.Equal(t, types.ProfileFamily, got.UserProfile)
	assert.Equal(t, "500", got.MaxPrice)

	require.Len(t, resp.Cars, 1)
	car := resp.Cars[0]
	assert.Equal(t, "12", car.ID.String())
	assert.Equal(t, "トヨタ", car.Maker)
	assert.Equal(t, "267～389", car.PriceRange.String())
	assert.Equal(t, "23.4", car.FuelEconomy.String())
	assert.Equal(t, "7", car.Seats.String())
	assert.Equal(t, float64(88), car.Score)
	assert.Equal(t, "family", resp.UserProfile)

	assert.Equal(t, []string{"/api/recommend"}, obs.calls)
	assert.NoError(t, obs.errs[0])
}

func TestRecommendErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		check   func(t *testing.T, err error)
	}{
		{
			name: "http status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			check: func(t *testing.T, err error) {
				var httpErr *HTTPError
				require.True(t, errors.As(err, &httpErr))
				assert.Equal(t, http.StatusInternalServerError, httpErr.StatusCode)
				assert.Contains(t, httpErr.Body, "boom")
			},
		},
		{
			name: "bad json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`<html>`))
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrDecode)
			},
		},
		{
			name: "success false",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"success": false, "error": "no data"}`))
			},
			check: func(t *testing.T, err error) {
				var upstream *UpstreamError
				require.True(t, errors.As(err, &upstream))
				assert.Equal(t, "no data", upstream.Message)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewClient(srv.URL).Recommend(context.Background(), types.RecommendationRequest{})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestRecommendUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, WithTimeout(time.Second)).Recommend(context.Background(), types.RecommendationRequest{})
	assert.Error(t, err)
}

func TestBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/cars/batch", r.URL.Path)
		var body struct {
			IDs []string `json:"ids"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"3", "7"}, body.IDs)

		_, _ = w.Write([]byte(`[{"id": "3", "メーカー": "ホンダ", "車種": "フィット"}, {"id": "7", "メーカー": "日産", "車種": "リーフ"}]`))
	}))
	defer srv.Close()

	cars, err := NewClient(srv.URL).Batch(context.Background(), []string{"3", "7"})
	require.NoError(t, err)
	require.Len(t, cars, 2)
	assert.Equal(t, "フィット", cars[0].Model)
	assert.Equal(t, "7", cars[1].ID.String())
}

func TestBatchEmptySkipsCall(t *testing.T) {
	cars, err := NewClient("http://127.0.0.1:0").Batch(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, cars)
}

func TestRecommendSharedCallSurvivesCallerCancel(t *testing.T) {
	var hits atomic.Int32
	arrived := make(chan struct{})
	release := make(chan struct{})
	var releaseOnce sync.Once
	unblock := func() { releaseOnce.Do(func() { close(release) }) }

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			close(arrived)
		}
		<-release
		_, _ = w.Write([]byte(`{"success": true, "cars": [{"id": 5, "車種": "プリウス"}]}`))
	}))
	defer srv.Close()
	defer unblock()

	c := NewClient(srv.URL, WithTimeout(5*time.Second))
	req := types.RecommendationRequest{UserProfile: types.ProfileEco, MaxPrice: "500"}

	type outcome struct {
		resp *types.RecommendResponse
		err  error
	}

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	doneA := make(chan outcome, 1)
	go func() {
		resp, err := c.Recommend(ctxA, req)
		doneA <- outcome{resp, err}
	}()

	select {
	case <-arrived:
	case <-time.After(2 * time.Second):
		t.Fatal("upstream never received the first call")
	}

	doneB := make(chan outcome, 1)
	go func() {
		resp, err := c.Recommend(context.Background(), req)
		doneB <- outcome{resp, err}
	}()
	// let the second caller join the in-flight call
	time.Sleep(50 * time.Millisecond)

	cancelA()
	select {
	case got := <-doneA:
		assert.ErrorIs(t, got.err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller kept waiting")
	}

	unblock()
	select {
	case got := <-doneB:
		require.NoError(t, got.err)
		require.Len(t, got.resp.Cars, 1)
		assert.Equal(t, "5", got.resp.Cars[0].ID.String())
	case <-time.After(2 * time.Second):
		t.Fatal("second caller never completed")
	}

	assert.Equal(t, int32(1), hits.Load())
}

func TestRecommendSharedCallBoundedByTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(srv.URL, WithTimeout(100*time.Millisecond))
	start := time.Now()
	_, err := c.Recommend(context.Background(), types.RecommendationRequest{UserProfile: types.ProfileFamily})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
