package fetcher

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/oakline-research/rating-cli/internal/model"
)

func createTestXLSX(t *testing.T, sheets map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	for name, rows := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				cell := row.AddCell()
				cell.SetString(cellData)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "test.xlsx")
	err := f.Save(path)
	require.NoError(t, err)
	return path
}

func TestReadPeriodsXLSX(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Periods": {
			{"period_end", "period_type", "Revenue", "Net Income", "total_assets", "ignored_column"},
			{"2024-03-31", "quarter", "1,200,000,000", "(35,000,000)", "", "junk"},
			{"2023-12-31", "Year", "4400000000", "150000000", "9000000000", ""},
		},
	})

	periods, err := ReadPeriodsXLSX(path, XLSXOptions{})
	require.NoError(t, err)
	require.Len(t, periods, 2)

	q := periods[0]
	assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), q.PeriodEnd)
	assert.Equal(t, model.PeriodQuarter, q.PeriodType)
	require.NotNil(t, q.Revenue)
	assert.InDelta(t, 1.2e9, *q.Revenue, 1)
	require.NotNil(t, q.NetIncome)
	assert.InDelta(t, -3.5e7, *q.NetIncome, 1)
	assert.Nil(t, q.TotalAssets)

	y := periods[1]
	assert.Equal(t, model.PeriodYear, y.PeriodType)
	require.NotNil(t, y.TotalAssets)
	assert.InDelta(t, 9e9, *y.TotalAssets, 1)
}

func TestReadPeriodsXLSX_SkipRowsAndSheetName(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Summary": {
			{"nothing useful here"},
		},
		"Data": {
			{"Oakline quarterly export"},
			{"period_end", "period_type", "revenue"},
			{"2024-06-30", "quarter", "500"},
			{"", "", ""},
		},
	})

	periods, err := ReadPeriodsXLSX(path, XLSXOptions{SheetName: "Data", SkipRows: 1})
	require.NoError(t, err)
	require.Len(t, periods, 1)
	require.NotNil(t, periods[0].Revenue)
	assert.InDelta(t, 500, *periods[0].Revenue, 1e-9)
}

func TestReadPeriodsXLSX_MissingRequiredColumns(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {
			{"revenue", "net_income"},
			{"1", "2"},
		},
	})

	_, err := ReadPeriodsXLSX(path, XLSXOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "period_end and period_type")
}

func TestReadPeriodsXLSX_BadNumber(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {
			{"period_end", "period_type", "revenue"},
			{"2024-03-31", "quarter", "not-a-number"},
		},
	})

	_, err := ReadPeriodsXLSX(path, XLSXOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `column "revenue"`)
}

func TestReadPeriodsXLSX_SheetNotFound(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {{"period_end", "period_type"}},
	})

	_, err := ReadPeriodsXLSX(path, XLSXOptions{SheetName: "Missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `sheet "Missing" not found`)

	_, err = ReadPeriodsXLSX(path, XLSXOptions{SheetIndex: 5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestParseFloatCell(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"42", 42},
		{" 1,234.5 ", 1234.5},
		{"(250)", -250},
		{"$1,000", 1000},
		{"-3.25", -3.25},
	}
	for _, tc := range cases {
		got, err := parseFloatCell(tc.in)
		require.NoError(t, err, tc.in)
		assert.InDelta(t, tc.want, got, 1e-9, tc.in)
	}

	_, err := parseFloatCell("12 apples")
	assert.Error(t, err)
}
