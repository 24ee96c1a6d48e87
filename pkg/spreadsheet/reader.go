// Package spreadsheet parses tabular upload payloads (xlsx workbooks,
// CSV/TSV exports) into an ordered sequence of raw rows keyed by
// logical column. Everything downstream of this package is
// format-agnostic.
package spreadsheet

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/salesworks/sales-engine/pkg/apperrors"
)

// Logical columns recognized in source headers. Unknown columns are
// ignored.
const (
	ColCustomer  = "customer"
	ColProduct   = "product"
	ColQuantity  = "quantity"
	ColUnitPrice = "unit_price"
	ColDiscount  = "discount"
	ColDate      = "date"
	ColAgent     = "agent"
)

// headerSynonyms maps canonicalized source header labels to logical
// columns. Matching is case-insensitive and whitespace-tolerant but
// otherwise exact.
var headerSynonyms = map[string]string{
	"customer":      ColCustomer,
	"customer name": ColCustomer,
	"client":        ColCustomer,
	"клиент":        ColCustomer,
	"покупатель":    ColCustomer,
	"product":       ColProduct,
	"product name":  ColProduct,
	"item":          ColProduct,
	"товар":         ColProduct,
	"quantity":      ColQuantity,
	"qty":           ColQuantity,
	"количество":    ColQuantity,
	"unit price":    ColUnitPrice,
	"price":         ColUnitPrice,
	"цена":          ColUnitPrice,
	"discount":      ColDiscount,
	"скидка":        ColDiscount,
	"date":          ColDate,
	"sale date":     ColDate,
	"amount date":   ColDate,
	"дата":          ColDate,
	"agent":         ColAgent,
	"manager":       ColAgent,
	"агент":         ColAgent,
	"менеджер":      ColAgent,
}

// Row is one data row of the source. Index is the 1-based position in
// the sheet counting from the first data row; Cells maps logical
// column names to raw string values.
type Row struct {
	Index int
	Cells map[string]string
}

// Get returns the raw value of a logical column, trimmed.
func (r Row) Get(col string) string {
	return strings.TrimSpace(r.Cells[col])
}

// Parse reads the payload into ordered rows based on the file
// extension. It returns apperrors.ErrUnsupportedFormat for unknown
// extensions and apperrors.ErrEmptySheet when the source has a header
// but no data rows (or no header at all).
func Parse(r io.Reader, filename string) ([]Row, error) {
	var records [][]string
	var err error

	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".xlsx", ".xls", ".xlsm":
		records, err = readWorkbook(r)
	case ".csv", ".txt":
		records, err = readDelimited(r, ',')
	case ".tsv":
		records, err = readDelimited(r, '\t')
	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}

	return mapRows(records)
}

func readWorkbook(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, apperrors.ErrEmptySheet
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readDelimited(r io.Reader, delim rune) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1 // ragged rows are handled during mapping
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read delimited file: %w", err)
	}
	return records, nil
}

// mapRows resolves the header row to logical columns and converts the
// remaining records. Rows that are entirely blank are dropped.
func mapRows(records [][]string) ([]Row, error) {
	if len(records) == 0 {
		return nil, apperrors.ErrEmptySheet
	}

	columns := make(map[int]string) // cell position -> logical column
	for i, label := range records[0] {
		key := strings.ToLower(strings.Join(strings.Fields(label), " "))
		if logical, ok := headerSynonyms[key]; ok {
			columns[i] = logical
		}
	}

	var rows []Row
	for i, record := range records[1:] {
		cells := make(map[string]string)
		blank := true
		for pos, logical := range columns {
			if pos >= len(record) {
				continue
			}
			value := strings.TrimSpace(record[pos])
			if value != "" {
				blank = false
			}
			cells[logical] = value
		}
		if blank {
			continue
		}
		rows = append(rows, Row{Index: i + 1, Cells: cells})
	}

	if len(rows) == 0 {
		return nil, apperrors.ErrEmptySheet
	}
	return rows, nil
}
