package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakline-research/rating-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_GetProfile_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT ticker, name, cik, sector, foreign_filer FROM profiles`).
		WithArgs("NOPE").
		WillReturnError(pgx.ErrNoRows)

	p, err := s.GetProfile(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetProfile_Found(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT ticker, name, cik, sector, foreign_filer FROM profiles`).
		WithArgs("ACME").
		WillReturnRows(pgxmock.NewRows([]string{"ticker", "name", "cik", "sector", "foreign_filer"}).
			AddRow("ACME", "Acme Corp", "0000123456", "Prepackaged Software", false))

	p, err := s.GetProfile(context.Background(), "acme")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "ACME", p.Ticker)
	assert.Equal(t, "Prepackaged Software", p.Sector)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListPeriods(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT data FROM periods WHERE ticker = \$1 ORDER BY period_end ASC`).
		WithArgs("ACME").
		WillReturnRows(pgxmock.NewRows([]string{"data"}).
			AddRow([]byte(`{"period_end":"2025-03-31T00:00:00Z","period_type":"quarter","revenue":120}`)).
			AddRow([]byte(`{"period_end":"2025-06-30T00:00:00Z","period_type":"quarter","revenue":130}`)))

	got, err := s.ListPeriods(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.PeriodQuarter, got[0].PeriodType)
	require.NotNil(t, got[1].Revenue)
	assert.Equal(t, 130.0, *got[1].Revenue)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListPeriods_CorruptRow(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT data FROM periods`).
		WithArgs("ACME").
		WillReturnRows(pgxmock.NewRows([]string{"data"}).AddRow([]byte(`{not json`)))

	_, err := s.ListPeriods(context.Background(), "ACME")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal period")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListPrices_AscendingAfterLimit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	d1 := time.Date(2025, 8, 4, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, 8, 5, 0, 0, 0, 0, time.UTC)
	mc := 1.1e9

	// The query returns newest first; the store flips back to ascending.
	mock.ExpectQuery(`SELECT date, close, market_cap FROM price_points`).
		WithArgs("ACME", 2).
		WillReturnRows(pgxmock.NewRows([]string{"date", "close", "market_cap"}).
			AddRow(d2, 10.8, &mc).
			AddRow(d1, 10.5, (*float64)(nil)))

	got, err := s.ListPrices(context.Background(), "acme", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, d1, got[0].Date)
	assert.Nil(t, got[0].MarketCap)
	require.NotNil(t, got[1].MarketCap)
	assert.Equal(t, 1.1e9, *got[1].MarketCap)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRating(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO ratings`).
		WithArgs(pgxmock.AnyArg(), "ACME", "solid", 42.0, 72.8, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	res := &model.RatingResult{
		Ticker: "acme", RawScore: 42, NormalizedScore: 72.8, Tier: "solid",
		RatedAt: time.Date(2025, 8, 15, 12, 0, 0, 0, time.UTC),
	}
	id, err := s.SaveRating(context.Background(), res)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRating_Nil(t *testing.T) {
	s, _ := newMockPostgresStore(t)

	_, err := s.SaveRating(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil rating")
}

func TestPostgresStore_ListRatings_Filtered(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT result FROM ratings WHERE true AND ticker = \$1 AND tier = \$2 ORDER BY rated_at DESC LIMIT \$3`).
		WithArgs("ACME", "strong", 100).
		WillReturnRows(pgxmock.NewRows([]string{"result"}).
			AddRow([]byte(`{"ticker":"ACME","tier":"strong","normalized_score":79.3}`)))

	got, err := s.ListRatings(context.Background(), RatingFilter{Ticker: "acme", Tier: "strong"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 79.3, got[0].NormalizedScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertPrices_BulkPath(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	day := time.Date(2025, 8, 4, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_price_points"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_price_points"}, []string{"ticker", "date", "close", "market_cap"}).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "price_points"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()
	mock.ExpectRollback()

	n, err := s.UpsertPrices(context.Background(), "acme", []model.PricePoint{
		{Date: day, Close: 10.5},
		{Date: day.AddDate(0, 0, 1), Close: 10.8},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertPeriods_Empty(t *testing.T) {
	s, _ := newMockPostgresStore(t)

	n, err := s.UpsertPeriods(context.Background(), "ACME", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
