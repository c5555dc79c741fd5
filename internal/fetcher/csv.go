package fetcher

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/oakline-research/rating-cli/internal/model"
)

// ReadPricesCSV reads daily price points from a CSV file. The header row
// must include "date" and "close"; a "market_cap" column is optional and
// blank cells leave MarketCap unset.
func ReadPricesCSV(path string) ([]model.PricePoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "csv: open prices file")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // allow variable fields

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "csv: read header")
	}

	dateCol, closeCol, mcCol := -1, -1, -1
	for i, h := range header {
		switch normalizeHeader(h) {
		case "date":
			dateCol = i
		case "close":
			closeCol = i
		case "market_cap":
			mcCol = i
		}
	}
	if dateCol < 0 || closeCol < 0 {
		return nil, eris.New("csv: header must include date and close columns")
	}

	var prices []model.PricePoint
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "csv: line %d", line)
		}

		var p model.PricePoint
		p.Date, err = parseDateCell(at(record, dateCol))
		if err != nil {
			return nil, eris.Wrapf(err, "csv: line %d", line)
		}
		p.Close, err = parseFloatCell(at(record, closeCol))
		if err != nil {
			return nil, eris.Wrapf(err, "csv: line %d", line)
		}
		if cell := strings.TrimSpace(at(record, mcCol)); mcCol >= 0 && cell != "" {
			mc, err := parseFloatCell(cell)
			if err != nil {
				return nil, eris.Wrapf(err, "csv: line %d", line)
			}
			p.MarketCap = &mc
		}

		prices = append(prices, p)
	}

	return prices, nil
}
