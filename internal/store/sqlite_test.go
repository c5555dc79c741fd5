package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakline-research/rating-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testPeriod(end time.Time, revenue float64) model.FinancialPeriod {
	return model.FinancialPeriod{
		PeriodEnd:  end,
		PeriodType: model.PeriodQuarter,
		Revenue:    model.Float(revenue),
		NetIncome:  model.Float(revenue / 10),
	}
}

func TestSQLite_UpsertAndListPeriods(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	periods := []model.FinancialPeriod{
		testPeriod(time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC), 130),
		testPeriod(time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), 120),
	}
	n, err := st.UpsertPeriods(ctx, "acme", periods)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := st.ListPeriods(ctx, "ACME")
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Listed ascending regardless of insert order.
	assert.True(t, got[0].PeriodEnd.Before(got[1].PeriodEnd))
	require.NotNil(t, got[1].Revenue)
	assert.Equal(t, 130.0, *got[1].Revenue)
}

func TestSQLite_UpsertPeriods_ReplacesOnConflict(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	end := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	_, err := st.UpsertPeriods(ctx, "ACME", []model.FinancialPeriod{testPeriod(end, 100)})
	require.NoError(t, err)
	_, err = st.UpsertPeriods(ctx, "ACME", []model.FinancialPeriod{testPeriod(end, 135)})
	require.NoError(t, err)

	got, err := st.ListPeriods(ctx, "ACME")
	require.NoError(t, err)
	require.Len(t, got, 1, "same period end and type should overwrite, not duplicate")
	assert.Equal(t, 135.0, *got[0].Revenue)
}

func TestSQLite_ListPeriods_Empty(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.ListPeriods(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLite_UpsertAndListPrices(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	day := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)

	prices := []model.PricePoint{
		{Date: day.AddDate(0, 0, 2), Close: 10.2, MarketCap: model.Float(1.02e9)},
		{Date: day, Close: 10.0},
		{Date: day.AddDate(0, 0, 1), Close: 10.5},
	}
	n, err := st.UpsertPrices(ctx, "ACME", prices)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := st.ListPrices(ctx, "ACME", 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 10.0, got[0].Close, "oldest first")
	assert.Equal(t, 10.2, got[2].Close)
	assert.Nil(t, got[0].MarketCap)
	require.NotNil(t, got[2].MarketCap)
	assert.Equal(t, 1.02e9, *got[2].MarketCap)
}

func TestSQLite_ListPrices_LimitKeepsNewest(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	day := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)

	var prices []model.PricePoint
	for i := 0; i < 10; i++ {
		prices = append(prices, model.PricePoint{Date: day.AddDate(0, 0, i), Close: float64(i)})
	}
	_, err := st.UpsertPrices(ctx, "ACME", prices)
	require.NoError(t, err)

	got, err := st.ListPrices(ctx, "ACME", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	// The limit trims from the old end, and the result is still ascending.
	assert.Equal(t, 7.0, got[0].Close)
	assert.Equal(t, 9.0, got[2].Close)
}

func TestSQLite_SaveAndGetProfile(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	p := model.Profile{Ticker: "acme", Name: "Acme Corp", CIK: "0000123456", Sector: "Prepackaged Software", ForeignFiler: true}
	require.NoError(t, st.SaveProfile(ctx, p))

	got, err := st.GetProfile(ctx, "ACME")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "ACME", got.Ticker)
	assert.Equal(t, "Prepackaged Software", got.Sector)
	assert.True(t, got.ForeignFiler)

	missing, err := st.GetProfile(ctx, "NOPE")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLite_SaveAndListRatings(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	first := &model.RatingResult{
		Ticker: "ACME", RawScore: 42, NormalizedScore: 72.8, Tier: "solid",
		RatedAt: time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	second := &model.RatingResult{
		Ticker: "ACME", RawScore: 51, NormalizedScore: 79.3, Tier: "strong",
		RatedAt: time.Date(2025, 8, 15, 12, 0, 0, 0, time.UTC),
	}
	id, err := st.SaveRating(ctx, first)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	_, err = st.SaveRating(ctx, second)
	require.NoError(t, err)

	got, err := st.ListRatings(ctx, RatingFilter{Ticker: "acme"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "strong", got[0].Tier, "newest snapshot first")

	strong, err := st.ListRatings(ctx, RatingFilter{Tier: "strong"})
	require.NoError(t, err)
	require.Len(t, strong, 1)
	assert.Equal(t, 79.3, strong[0].NormalizedScore)
}

func TestSQLite_SaveRating_NilRejected(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.SaveRating(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil rating")
}

func TestSQLite_Migrate_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)

	// Migrate already ran in the helper; a second run must not error.
	require.NoError(t, st.Migrate(context.Background()))
}
