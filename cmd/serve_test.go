package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakline-research/rating-cli/internal/model"
	"github.com/oakline-research/rating-cli/internal/store"
)

// fakeStore is an in-memory store.Store for handler tests.
type fakeStore struct {
	periods map[string][]model.FinancialPeriod
	ratings []model.RatingResult
}

func newFakeStore() *fakeStore {
	return &fakeStore{periods: make(map[string][]model.FinancialPeriod)}
}

func (f *fakeStore) UpsertPeriods(_ context.Context, ticker string, periods []model.FinancialPeriod) (int, error) {
	f.periods[ticker] = periods
	return len(periods), nil
}

func (f *fakeStore) ListPeriods(_ context.Context, ticker string) ([]model.FinancialPeriod, error) {
	return f.periods[ticker], nil
}

func (f *fakeStore) UpsertPrices(context.Context, string, []model.PricePoint) (int, error) {
	return 0, nil
}

func (f *fakeStore) ListPrices(context.Context, string, int) ([]model.PricePoint, error) {
	return nil, nil
}

func (f *fakeStore) SaveProfile(context.Context, model.Profile) error { return nil }

func (f *fakeStore) GetProfile(context.Context, string) (*model.Profile, error) { return nil, nil }

func (f *fakeStore) SaveRating(_ context.Context, res *model.RatingResult) (string, error) {
	f.ratings = append(f.ratings, *res)
	return "id-1", nil
}

func (f *fakeStore) ListRatings(_ context.Context, filter store.RatingFilter) ([]model.RatingResult, error) {
	var out []model.RatingResult
	for _, r := range f.ratings {
		if filter.Ticker != "" && r.Ticker != filter.Ticker {
			continue
		}
		if filter.Tier != "" && r.Tier != filter.Tier {
			continue
		}
		out = append(out, r)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) Migrate(context.Context) error { return nil }
func (f *fakeStore) Close() error                  { return nil }

func testServer(t *testing.T, st store.Store, rate rateFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(newRouter(st, nil, rate))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestServeHealth(t *testing.T) {
	srv := testServer(t, newFakeStore(), nil)

	var body map[string]string
	status := getJSON(t, srv.URL+"/health", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestServeRatingByTicker(t *testing.T) {
	st := newFakeStore()
	st.ratings = []model.RatingResult{
		{Ticker: "ACME", Tier: "solid", NormalizedScore: 72.5, RatedAt: time.Now()},
		{Ticker: "OTHR", Tier: "weak", NormalizedScore: 31.0, RatedAt: time.Now()},
	}
	srv := testServer(t, st, nil)

	var res model.RatingResult
	status := getJSON(t, srv.URL+"/api/ratings/acme", &res)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ACME", res.Ticker)
	assert.Equal(t, "solid", res.Tier)

	status = getJSON(t, srv.URL+"/api/ratings/NOPE", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestServeRatingsListFiltered(t *testing.T) {
	st := newFakeStore()
	st.ratings = []model.RatingResult{
		{Ticker: "ACME", Tier: "solid"},
		{Ticker: "OTHR", Tier: "weak"},
		{Ticker: "THRD", Tier: "solid"},
	}
	srv := testServer(t, st, nil)

	var list []model.RatingResult
	status := getJSON(t, srv.URL+"/api/ratings?tier=solid", &list)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, list, 2)
	for _, r := range list {
		assert.Equal(t, "solid", r.Tier)
	}
}

func TestServePeriods(t *testing.T) {
	st := newFakeStore()
	rev := 100.0
	st.periods["ACME"] = []model.FinancialPeriod{
		{
			PeriodEnd:  time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
			PeriodType: model.PeriodQuarter,
			Revenue:    &rev,
		},
	}
	srv := testServer(t, st, nil)

	var body struct {
		Ticker    string                  `json:"ticker"`
		Quarterly []model.FinancialPeriod `json:"quarterly"`
	}
	status := getJSON(t, srv.URL+"/api/periods/ACME", &body)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ACME", body.Ticker)
	require.Len(t, body.Quarterly, 1)

	status = getJSON(t, srv.URL+"/api/periods/NOPE", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestServeAsyncRateAccepted(t *testing.T) {
	st := newFakeStore()
	rated := make(chan string, 1)
	rate := func(_ context.Context, ticker string) (*model.RatingResult, error) {
		rated <- ticker
		return &model.RatingResult{Ticker: ticker, Tier: "solid"}, nil
	}
	srv := testServer(t, st, rate)

	resp, err := http.Post(srv.URL+"/api/rate/acme", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	select {
	case ticker := <-rated:
		assert.Equal(t, "ACME", ticker)
	case <-time.After(2 * time.Second):
		t.Fatal("async rating never ran")
	}
}

func TestServeRateUnavailable(t *testing.T) {
	srv := testServer(t, newFakeStore(), nil)

	resp, err := http.Post(srv.URL+"/api/rate/ACME", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
