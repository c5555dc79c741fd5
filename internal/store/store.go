package store

import (
	"context"

	"github.com/oakline-research/rating-cli/internal/model"
)

// RatingFilter specifies criteria for listing saved rating snapshots.
type RatingFilter struct {
	Ticker string `json:"ticker,omitempty"`
	Tier   string `json:"tier,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for the fundamentals pipeline:
// raw period records and price history on the way in, rating snapshots on
// the way out. Ratings are recomputed on every view build; the saved rows
// are history, never an input.
type Store interface {
	// Fundamentals
	UpsertPeriods(ctx context.Context, ticker string, periods []model.FinancialPeriod) (int, error)
	ListPeriods(ctx context.Context, ticker string) ([]model.FinancialPeriod, error)

	// Prices
	UpsertPrices(ctx context.Context, ticker string, prices []model.PricePoint) (int, error)
	ListPrices(ctx context.Context, ticker string, limit int) ([]model.PricePoint, error)

	// Profiles
	SaveProfile(ctx context.Context, p model.Profile) error
	GetProfile(ctx context.Context, ticker string) (*model.Profile, error)

	// Rating history
	SaveRating(ctx context.Context, res *model.RatingResult) (string, error)
	ListRatings(ctx context.Context, filter RatingFilter) ([]model.RatingResult, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
