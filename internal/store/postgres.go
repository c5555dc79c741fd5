package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/oakline-research/rating-cli/internal/db"
	"github.com/oakline-research/rating-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot store operations.
var preparedStatements = map[string]string{
	"list_periods": `SELECT data FROM periods WHERE ticker = $1 ORDER BY period_end ASC`,
	"list_prices":  `SELECT date, close, market_cap FROM price_points WHERE ticker = $1 ORDER BY date DESC LIMIT $2`,
	"get_profile":  `SELECT ticker, name, cik, sector, foreign_filer FROM profiles WHERE ticker = $1`,
	"save_rating":  `INSERT INTO ratings (id, ticker, tier, raw_score, normalized_score, result, rated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need
// direct query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS periods (
	ticker      TEXT NOT NULL,
	period_end  TIMESTAMPTZ NOT NULL,
	period_type TEXT NOT NULL,
	data        JSONB NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (ticker, period_end, period_type)
);

CREATE TABLE IF NOT EXISTS price_points (
	ticker     TEXT NOT NULL,
	date       TIMESTAMPTZ NOT NULL,
	close      DOUBLE PRECISION NOT NULL,
	market_cap DOUBLE PRECISION,
	PRIMARY KEY (ticker, date)
);

CREATE TABLE IF NOT EXISTS profiles (
	ticker        TEXT PRIMARY KEY,
	name          TEXT,
	cik           TEXT,
	sector        TEXT,
	foreign_filer BOOLEAN NOT NULL DEFAULT false,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS ratings (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	ticker           TEXT NOT NULL,
	tier             TEXT NOT NULL,
	raw_score        DOUBLE PRECISION NOT NULL,
	normalized_score DOUBLE PRECISION NOT NULL,
	result           JSONB NOT NULL,
	rated_at         TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_periods_ticker ON periods(ticker);
CREATE INDEX IF NOT EXISTS idx_price_points_ticker_date ON price_points(ticker, date DESC);
CREATE INDEX IF NOT EXISTS idx_ratings_ticker_rated_at ON ratings(ticker, rated_at DESC);
CREATE INDEX IF NOT EXISTS idx_ratings_tier ON ratings(tier);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertPeriods(ctx context.Context, ticker string, periods []model.FinancialPeriod) (int, error) {
	if len(periods) == 0 {
		return 0, nil
	}
	ticker = strings.ToUpper(ticker)
	now := time.Now().UTC()

	rows := make([][]any, 0, len(periods))
	for _, p := range periods {
		data, err := json.Marshal(p)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: marshal period %s", p.PeriodEnd.Format("2006-01-02"))
		}
		rows = append(rows, []any{ticker, p.PeriodEnd.UTC(), string(p.PeriodType), data, now})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "periods",
		Columns:      []string{"ticker", "period_end", "period_type", "data", "updated_at"},
		ConflictKeys: []string{"ticker", "period_end", "period_type"},
	}, rows)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: upsert periods for %s", ticker)
	}
	return int(n), nil
}

func (s *PostgresStore) ListPeriods(ctx context.Context, ticker string) ([]model.FinancialPeriod, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM periods WHERE ticker = $1 ORDER BY period_end ASC`,
		strings.ToUpper(ticker),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list periods")
	}
	defer rows.Close()

	var periods []model.FinancialPeriod
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan period")
		}
		var p model.FinancialPeriod
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal period")
		}
		periods = append(periods, p)
	}
	return periods, eris.Wrap(rows.Err(), "postgres: list periods iterate")
}

func (s *PostgresStore) UpsertPrices(ctx context.Context, ticker string, prices []model.PricePoint) (int, error) {
	if len(prices) == 0 {
		return 0, nil
	}
	ticker = strings.ToUpper(ticker)

	rows := make([][]any, 0, len(prices))
	for _, pp := range prices {
		var mc any
		if model.IsFiniteValue(pp.MarketCap) {
			mc = *pp.MarketCap
		}
		rows = append(rows, []any{ticker, pp.Date.UTC(), pp.Close, mc})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "price_points",
		Columns:      []string{"ticker", "date", "close", "market_cap"},
		ConflictKeys: []string{"ticker", "date"},
	}, rows)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: upsert prices for %s", ticker)
	}
	return int(n), nil
}

func (s *PostgresStore) ListPrices(ctx context.Context, ticker string, limit int) ([]model.PricePoint, error) {
	if limit <= 0 {
		limit = 400
	}
	rows, err := s.pool.Query(ctx,
		`SELECT date, close, market_cap FROM price_points
		 WHERE ticker = $1 ORDER BY date DESC LIMIT $2`,
		strings.ToUpper(ticker), limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list prices")
	}
	defer rows.Close()

	var prices []model.PricePoint
	for rows.Next() {
		var pp model.PricePoint
		var mc *float64
		if err := rows.Scan(&pp.Date, &pp.Close, &mc); err != nil {
			return nil, eris.Wrap(err, "postgres: scan price")
		}
		pp.MarketCap = mc
		prices = append(prices, pp)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: list prices iterate")
	}

	for i, j := 0, len(prices)-1; i < j; i, j = i+1, j-1 {
		prices[i], prices[j] = prices[j], prices[i]
	}
	return prices, nil
}

func (s *PostgresStore) SaveProfile(ctx context.Context, p model.Profile) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO profiles (ticker, name, cik, sector, foreign_filer, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (ticker) DO UPDATE SET
		   name = $2, cik = $3, sector = $4, foreign_filer = $5, updated_at = $6`,
		strings.ToUpper(p.Ticker), p.Name, p.CIK, p.Sector, p.ForeignFiler, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: save profile %s", p.Ticker)
}

func (s *PostgresStore) GetProfile(ctx context.Context, ticker string) (*model.Profile, error) {
	var p model.Profile
	err := s.pool.QueryRow(ctx,
		`SELECT ticker, name, cik, sector, foreign_filer FROM profiles WHERE ticker = $1`,
		strings.ToUpper(ticker),
	).Scan(&p.Ticker, &p.Name, &p.CIK, &p.Sector, &p.ForeignFiler)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get profile %s", ticker)
	}
	return &p, nil
}

func (s *PostgresStore) SaveRating(ctx context.Context, res *model.RatingResult) (string, error) {
	if res == nil {
		return "", eris.New("postgres: nil rating")
	}
	id := uuid.New().String()

	resultJSON, err := json.Marshal(res)
	if err != nil {
		return "", eris.Wrap(err, "postgres: marshal rating")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO ratings (id, ticker, tier, raw_score, normalized_score, result, rated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, strings.ToUpper(res.Ticker), res.Tier, res.RawScore, res.NormalizedScore, resultJSON, res.RatedAt.UTC(),
	)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: save rating %s", res.Ticker)
	}
	return id, nil
}

func (s *PostgresStore) ListRatings(ctx context.Context, filter RatingFilter) ([]model.RatingResult, error) {
	query := `SELECT result FROM ratings WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Ticker != "" {
		query += fmt.Sprintf(` AND ticker = $%d`, argIdx)
		args = append(args, strings.ToUpper(filter.Ticker))
		argIdx++
	}
	if filter.Tier != "" {
		query += fmt.Sprintf(` AND tier = $%d`, argIdx)
		args = append(args, filter.Tier)
		argIdx++
	}
	query += ` ORDER BY rated_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list ratings")
	}
	defer rows.Close()

	var results []model.RatingResult
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan rating")
		}
		var r model.RatingResult
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal rating")
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "postgres: list ratings iterate")
}
