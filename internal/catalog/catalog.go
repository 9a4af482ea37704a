// Package catalog reads item catalogs from spreadsheets.
//
// A catalog sheet has a header row with the columns Product, Price, Space
// and Quantity (any order, case-insensitive). Every following non-empty row
// is one item.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"knapevo/internal/model"
)

const (
	ColumnProduct  = "product"
	ColumnPrice    = "price"
	ColumnSpace    = "space"
	ColumnQuantity = "quantity"
)

var ErrEmptyCatalog = errors.New("catalog is empty")

// Load dispatches on the file extension.
func Load(path, sheet string) (model.Catalog, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return LoadXLSX(path, sheet)
	case ".csv":
		return LoadCSV(path)
	default:
		return nil, fmt.Errorf("unsupported catalog format: %s", path)
	}
}

// LoadXLSX reads the named sheet, or the first sheet when sheet is empty.
func LoadXLSX(path, sheet string) (model.Catalog, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("catalog %s has no sheets", path)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	return parseRows(rows)
}

func LoadCSV(path string) (model.Catalog, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	defer file.Close()
	return ReadCSV(file)
}

func ReadCSV(r io.Reader) (model.Catalog, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv catalog: %w", err)
	}
	return parseRows(rows)
}

// WriteXLSX stores a catalog in the layout LoadXLSX reads.
func WriteXLSX(path string, catalog model.Catalog) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	header := []any{"Product", "Price", "Space", "Quantity"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, item := range catalog {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{item.Name, item.UnitValue, item.UnitSpace, item.MaxQuantity}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

func parseRows(rows [][]string) (model.Catalog, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyCatalog
	}
	columns := map[string]int{}
	for i, name := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{ColumnProduct, ColumnPrice, ColumnSpace, ColumnQuantity} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("catalog header is missing column %q", required)
		}
	}

	catalog := make(model.Catalog, 0, len(rows)-1)
	for r, row := range rows[1:] {
		line := r + 2
		if blankRow(row) {
			continue
		}
		cell := func(column string) string {
			idx := columns[column]
			if idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		price, err := parseFloat(cell(ColumnPrice))
		if err != nil {
			return nil, fmt.Errorf("row %d: price: %w", line, err)
		}
		space, err := parseFloat(cell(ColumnSpace))
		if err != nil {
			return nil, fmt.Errorf("row %d: space: %w", line, err)
		}
		quantity, err := parseQuantity(cell(ColumnQuantity))
		if err != nil {
			return nil, fmt.Errorf("row %d: quantity: %w", line, err)
		}
		catalog = append(catalog, model.Item{
			Name:        cell(ColumnProduct),
			UnitValue:   price,
			UnitSpace:   space,
			MaxQuantity: quantity,
		})
	}
	if err := Validate(catalog); err != nil {
		return nil, err
	}
	return catalog, nil
}

// Validate rejects empty catalogs, blank or duplicate names and negative or
// non-finite numbers.
func Validate(catalog model.Catalog) error {
	if len(catalog) == 0 {
		return ErrEmptyCatalog
	}
	seen := make(map[string]int, len(catalog))
	for i, item := range catalog {
		if item.Name == "" {
			return fmt.Errorf("item %d: name is required", i)
		}
		if prev, ok := seen[item.Name]; ok {
			return fmt.Errorf("item %d: duplicate name %q (first at item %d)", i, item.Name, prev)
		}
		seen[item.Name] = i
		if !finiteNonNegative(item.UnitValue) {
			return fmt.Errorf("item %q: unit value must be a finite value >= 0", item.Name)
		}
		if !finiteNonNegative(item.UnitSpace) {
			return fmt.Errorf("item %q: unit space must be a finite value >= 0", item.Name)
		}
		if item.MaxQuantity < 0 || item.MaxQuantity > model.MaxItemQuantity {
			return fmt.Errorf("item %q: max quantity must be in [0, %d]", item.Name, model.MaxItemQuantity)
		}
	}
	return nil
}

func finiteNonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func parseFloat(raw string) (float64, error) {
	if raw == "" {
		return 0, errors.New("missing value")
	}
	return strconv.ParseFloat(raw, 64)
}

// parseQuantity accepts integral floats such as "3.0", which spreadsheets
// often produce for numeric cells.
func parseQuantity(raw string) (int, error) {
	if raw == "" {
		return 0, errors.New("missing value")
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%q is not a whole number", raw)
	}
	if math.Abs(f) > model.MaxItemQuantity {
		return 0, fmt.Errorf("%q exceeds %d", raw, model.MaxItemQuantity)
	}
	return int(f), nil
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
