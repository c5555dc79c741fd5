package fetcher

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/oakline-research/rating-cli/internal/model"
)

// XLSXOptions configures the spreadsheet reader.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
	SkipRows   int    // rows above the header row, e.g. a title banner
}

// ReadPeriodsXLSX reads financial periods from a spreadsheet. The first row
// after SkipRows is the header; recognized columns follow the JSON field
// names ("revenue", "net_income", ...) plus the required "period_end" and
// "period_type" columns. Unrecognized columns are ignored and blank cells
// leave the field unreported.
func ReadPeriodsXLSX(path string, opts XLSXOptions) ([]model.FinancialPeriod, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}

	rows := sheet.Rows
	if opts.SkipRows < len(rows) {
		rows = rows[opts.SkipRows:]
	} else {
		rows = nil
	}
	if len(rows) == 0 {
		return nil, eris.New("xlsx: no header row")
	}

	header := rowToStrings(rows[0])
	endCol, typeCol := -1, -1
	setters := make(map[int]func(p *model.FinancialPeriod, v float64))
	for i, h := range header {
		switch key := normalizeHeader(h); key {
		case "period_end":
			endCol = i
		case "period_type":
			typeCol = i
		default:
			if set, ok := periodColumns[key]; ok {
				setters[i] = set
			}
		}
	}
	if endCol < 0 || typeCol < 0 {
		return nil, eris.New("xlsx: header must include period_end and period_type columns")
	}

	var periods []model.FinancialPeriod
	for n, row := range rows[1:] {
		cells := rowToStrings(row)
		if blankRow(cells) {
			continue
		}

		var p model.FinancialPeriod
		p.PeriodEnd, err = parseDateCell(at(cells, endCol))
		if err != nil {
			return nil, eris.Wrapf(err, "xlsx: row %d", n+2)
		}
		p.PeriodType = model.PeriodType(strings.ToLower(strings.TrimSpace(at(cells, typeCol))))

		for i, set := range setters {
			cell := strings.TrimSpace(at(cells, i))
			if cell == "" {
				continue
			}
			v, err := parseFloatCell(cell)
			if err != nil {
				return nil, eris.Wrapf(err, "xlsx: row %d column %q", n+2, header[i])
			}
			set(&p, v)
		}

		if err := validatePeriod(&p); err != nil {
			return nil, eris.Wrapf(err, "xlsx: row %d", n+2)
		}
		periods = append(periods, p)
	}

	return periods, nil
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("xlsx: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}

	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for i, cell := range row.Cells {
		cells[i] = cell.String()
	}
	return cells
}

func at(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return cells[i]
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
