// Package fetcher parses local JSON, CSV, and XLSX files into normalized
// period and price records for import into the store.
package fetcher

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"

	"github.com/oakline-research/rating-cli/internal/model"
)

// decodeJSONArray decodes a JSON array element by element so large import
// files never need a second in-memory copy. Expects input in the form
// [{...},{...}].
func decodeJSONArray[T any](r io.Reader) ([]T, error) {
	decoder := json.NewDecoder(r)

	tok, err := decoder.Token()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, eris.Wrap(err, "json: read opening token")
	}

	delim, ok := tok.(json.Delim)
	if !ok || delim != '[' {
		return nil, eris.Errorf("json: expected '[', got %v", tok)
	}

	var items []T
	for decoder.More() {
		var item T
		if err := decoder.Decode(&item); err != nil {
			return nil, eris.Wrapf(err, "json: decode element %d", len(items))
		}
		items = append(items, item)
	}

	if _, err := decoder.Token(); err != nil && err != io.EOF {
		return nil, eris.Wrap(err, "json: read closing token")
	}

	return items, nil
}

// ReadPeriodsJSON reads an array of financial periods from a JSON file.
// Each element uses the same field names the store persists, e.g.
// {"period_end":"2024-03-31T00:00:00Z","period_type":"quarter","revenue":1.2e9}.
func ReadPeriodsJSON(path string) ([]model.FinancialPeriod, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "json: open periods file")
	}
	defer f.Close()

	periods, err := decodeJSONArray[model.FinancialPeriod](f)
	if err != nil {
		return nil, err
	}

	for i := range periods {
		if err := validatePeriod(&periods[i]); err != nil {
			return nil, eris.Wrapf(err, "json: period %d", i)
		}
	}

	return periods, nil
}

// ReadPricesJSON reads an array of daily price points from a JSON file.
func ReadPricesJSON(path string) ([]model.PricePoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "json: open prices file")
	}
	defer f.Close()

	prices, err := decodeJSONArray[model.PricePoint](f)
	if err != nil {
		return nil, err
	}

	for i := range prices {
		if prices[i].Date.IsZero() {
			return nil, eris.Errorf("json: price %d: missing date", i)
		}
	}

	return prices, nil
}

// ReadInsidersJSON reads an array of insider transaction records, e.g.
// {"date":"2024-05-01T00:00:00Z","code":"P"}. Codes follow the SEC
// convention: "P" purchase, "S" sale.
func ReadInsidersJSON(path string) ([]model.InsiderTransaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "json: open insiders file")
	}
	defer f.Close()

	return decodeJSONArray[model.InsiderTransaction](f)
}

func validatePeriod(p *model.FinancialPeriod) error {
	if p.PeriodEnd.IsZero() {
		return eris.New("missing period_end")
	}
	switch p.PeriodType {
	case model.PeriodQuarter, model.PeriodYear:
		return nil
	default:
		return eris.Errorf("invalid period_type %q", p.PeriodType)
	}
}
