package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/oakline-research/rating-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS periods (
	ticker      TEXT NOT NULL,
	period_end  DATETIME NOT NULL,
	period_type TEXT NOT NULL,
	data        TEXT NOT NULL,
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (ticker, period_end, period_type)
);

CREATE TABLE IF NOT EXISTS price_points (
	ticker     TEXT NOT NULL,
	date       DATETIME NOT NULL,
	close      REAL NOT NULL,
	market_cap REAL,
	PRIMARY KEY (ticker, date)
);

CREATE TABLE IF NOT EXISTS profiles (
	ticker        TEXT PRIMARY KEY,
	name          TEXT,
	cik           TEXT,
	sector        TEXT,
	foreign_filer INTEGER NOT NULL DEFAULT 0,
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS ratings (
	id               TEXT PRIMARY KEY,
	ticker           TEXT NOT NULL,
	tier             TEXT NOT NULL,
	raw_score        REAL NOT NULL,
	normalized_score REAL NOT NULL,
	result           TEXT NOT NULL,
	rated_at         DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_periods_ticker ON periods(ticker);
CREATE INDEX IF NOT EXISTS idx_price_points_ticker_date ON price_points(ticker, date DESC);
CREATE INDEX IF NOT EXISTS idx_ratings_ticker_rated_at ON ratings(ticker, rated_at DESC);
CREATE INDEX IF NOT EXISTS idx_ratings_tier ON ratings(tier);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertPeriods(ctx context.Context, ticker string, periods []model.FinancialPeriod) (int, error) {
	if len(periods) == 0 {
		return 0, nil
	}
	ticker = strings.ToUpper(ticker)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert periods")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO periods (ticker, period_end, period_type, data, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (ticker, period_end, period_type) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert periods")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	count := 0
	for _, p := range periods {
		data, err := json.Marshal(p)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: marshal period %s", p.PeriodEnd.Format("2006-01-02"))
		}
		if _, err := stmt.ExecContext(ctx, ticker, p.PeriodEnd.UTC(), string(p.PeriodType), string(data), now); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert period %s", p.PeriodEnd.Format("2006-01-02"))
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert periods")
	}
	return count, nil
}

func (s *SQLiteStore) ListPeriods(ctx context.Context, ticker string) ([]model.FinancialPeriod, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM periods WHERE ticker = ? ORDER BY period_end ASC`,
		strings.ToUpper(ticker),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list periods")
	}
	defer rows.Close()

	var periods []model.FinancialPeriod
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan period")
		}
		var p model.FinancialPeriod
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal period")
		}
		periods = append(periods, p)
	}
	return periods, eris.Wrap(rows.Err(), "sqlite: list periods iterate")
}

func (s *SQLiteStore) UpsertPrices(ctx context.Context, ticker string, prices []model.PricePoint) (int, error) {
	if len(prices) == 0 {
		return 0, nil
	}
	ticker = strings.ToUpper(ticker)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert prices")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO price_points (ticker, date, close, market_cap)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (ticker, date) DO UPDATE SET close = excluded.close, market_cap = excluded.market_cap`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert prices")
	}
	defer stmt.Close()

	count := 0
	for _, pp := range prices {
		var mc any
		if model.IsFiniteValue(pp.MarketCap) {
			mc = *pp.MarketCap
		}
		if _, err := stmt.ExecContext(ctx, ticker, pp.Date.UTC(), pp.Close, mc); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert price %s", pp.Date.Format("2006-01-02"))
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert prices")
	}
	return count, nil
}

func (s *SQLiteStore) ListPrices(ctx context.Context, ticker string, limit int) ([]model.PricePoint, error) {
	if limit <= 0 {
		limit = 400
	}
	// Newest window first, then flipped back to ascending for the callers
	// that walk the series chronologically.
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, close, market_cap FROM price_points
		 WHERE ticker = ? ORDER BY date DESC LIMIT ?`,
		strings.ToUpper(ticker), limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list prices")
	}
	defer rows.Close()

	var prices []model.PricePoint
	for rows.Next() {
		var pp model.PricePoint
		var mc sql.NullFloat64
		if err := rows.Scan(&pp.Date, &pp.Close, &mc); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan price")
		}
		if mc.Valid {
			pp.MarketCap = model.Float(mc.Float64)
		}
		prices = append(prices, pp)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: list prices iterate")
	}

	for i, j := 0, len(prices)-1; i < j; i, j = i+1, j-1 {
		prices[i], prices[j] = prices[j], prices[i]
	}
	return prices, nil
}

func (s *SQLiteStore) SaveProfile(ctx context.Context, p model.Profile) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (ticker, name, cik, sector, foreign_filer, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (ticker) DO UPDATE SET
		   name = excluded.name, cik = excluded.cik, sector = excluded.sector,
		   foreign_filer = excluded.foreign_filer, updated_at = excluded.updated_at`,
		strings.ToUpper(p.Ticker), p.Name, p.CIK, p.Sector, boolInt(p.ForeignFiler), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: save profile %s", p.Ticker)
}

func (s *SQLiteStore) GetProfile(ctx context.Context, ticker string) (*model.Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT ticker, name, cik, sector, foreign_filer FROM profiles WHERE ticker = ?`,
		strings.ToUpper(ticker),
	)

	var p model.Profile
	var foreign int
	err := row.Scan(&p.Ticker, &p.Name, &p.CIK, &p.Sector, &foreign)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get profile %s", ticker)
	}
	p.ForeignFiler = foreign != 0
	return &p, nil
}

func (s *SQLiteStore) SaveRating(ctx context.Context, res *model.RatingResult) (string, error) {
	if res == nil {
		return "", eris.New("sqlite: nil rating")
	}
	id := uuid.New().String()

	resultJSON, err := json.Marshal(res)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal rating")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO ratings (id, ticker, tier, raw_score, normalized_score, result, rated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, strings.ToUpper(res.Ticker), res.Tier, res.RawScore, res.NormalizedScore, string(resultJSON), res.RatedAt.UTC(),
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: save rating %s", res.Ticker)
	}
	return id, nil
}

func (s *SQLiteStore) ListRatings(ctx context.Context, filter RatingFilter) ([]model.RatingResult, error) {
	query := `SELECT result FROM ratings WHERE 1=1`
	var args []any

	if filter.Ticker != "" {
		query += ` AND ticker = ?`
		args = append(args, strings.ToUpper(filter.Ticker))
	}
	if filter.Tier != "" {
		query += ` AND tier = ?`
		args = append(args, filter.Tier)
	}
	query += ` ORDER BY rated_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list ratings")
	}
	defer rows.Close()

	var results []model.RatingResult
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan rating")
		}
		var r model.RatingResult
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal rating")
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "sqlite: list ratings iterate")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
