package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.TODO(), nil, "price_points", []string{"ticker", "date"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"price_points"}, []string{"ticker", "date", "close"}).WillReturnResult(3)

	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	rows := [][]any{
		{"ACME", day, 10.5},
		{"ACME", day.AddDate(0, 0, 1), 10.8},
		{"ACME", day.AddDate(0, 0, 2), 10.2},
	}
	n, err := CopyFrom(context.Background(), mock, "price_points", []string{"ticker", "date", "close"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"price_points"}, []string{"ticker", "date"}).WillReturnError(fmt.Errorf("copy failed"))

	rows := [][]any{{"ACME", time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)}}
	_, err = CopyFrom(context.Background(), mock, "price_points", []string{"ticker", "date"}, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO price_points")
	assert.NoError(t, mock.ExpectationsWereMet())
}
