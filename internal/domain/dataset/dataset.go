// Package dataset parses a JHU CSSE daily report into typed, read-only rows.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Report column names.
const (
	ColCombinedKey   = "Combined_Key"
	ColCountryRegion = "Country_Region"
	ColLat           = "Lat"
	ColLong          = "Long_"
	ColConfirmed     = "Confirmed"
	ColActive        = "Active"
	ColDeaths        = "Deaths"
	ColRecovered     = "Recovered"
)

const utf8BOM = "\ufeff"

// Number is a numeric cell; Valid is false when the cell is empty or not a number.
type Number struct {
	Value float64
	Valid bool
}

// Text is a string cell; Valid is false when the cell is empty.
type Text struct {
	Value string
	Valid bool
}

// Row is one location line of the report.
type Row struct {
	CombinedKey   Text
	CountryRegion Text
	Lat           Number
	Long          Number
	Confirmed     Number
	Active        Number
	Deaths        Number
	Recovered     Number
}

// Number returns the numeric cell for a count or coordinate column.
func (r Row) Number(column string) (Number, bool) {
	switch column {
	case ColLat:
		return r.Lat, true
	case ColLong:
		return r.Long, true
	case ColConfirmed:
		return r.Confirmed, true
	case ColActive:
		return r.Active, true
	case ColDeaths:
		return r.Deaths, true
	case ColRecovered:
		return r.Recovered, true
	}
	return Number{}, false
}

// Dataset is an immutable parsed report.
type Dataset struct {
	columns []string
	index   map[string]int
	rows    []Row
}

// Parse reads a header line followed by records. Rows shorter than the
// header leave the trailing cells missing.
func Parse(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrMalformed, err)
	}

	d := &Dataset{
		columns: make([]string, len(header)),
		index:   make(map[string]int, len(header)),
	}
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		name = strings.TrimSpace(name)
		d.columns[i] = name
		if _, dup := d.index[name]; !dup {
			d.index[name] = i
		}
	}

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformed, line, err)
		}
		d.rows = append(d.rows, d.row(rec))
	}
	return d, nil
}

func (d *Dataset) row(rec []string) Row {
	return Row{
		CombinedKey:   d.text(rec, ColCombinedKey),
		CountryRegion: d.text(rec, ColCountryRegion),
		Lat:           d.number(rec, ColLat),
		Long:          d.number(rec, ColLong),
		Confirmed:     d.number(rec, ColConfirmed),
		Active:        d.number(rec, ColActive),
		Deaths:        d.number(rec, ColDeaths),
		Recovered:     d.number(rec, ColRecovered),
	}
}

func (d *Dataset) cell(rec []string, column string) (string, bool) {
	i, ok := d.index[column]
	if !ok || i >= len(rec) {
		return "", false
	}
	return rec[i], true
}

func (d *Dataset) text(rec []string, column string) Text {
	v, ok := d.cell(rec, column)
	if !ok || v == "" {
		return Text{}
	}
	return Text{Value: v, Valid: true}
}

func (d *Dataset) number(rec []string, column string) Number {
	v, ok := d.cell(rec, column)
	if !ok {
		return Number{}
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Number{}
	}
	return Number{Value: f, Valid: true}
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.rows) }

// Rows returns a copy of all rows in file order.
func (d *Dataset) Rows() []Row {
	out := make([]Row, len(d.rows))
	copy(out, d.rows)
	return out
}

// Columns returns the header names in file order.
func (d *Dataset) Columns() []string {
	out := make([]string, len(d.columns))
	copy(out, d.columns)
	return out
}

// HasColumn reports whether the header contains name.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Require returns ErrMissingColumn naming the first absent column.
func (d *Dataset) Require(names ...string) error {
	for _, n := range names {
		if !d.HasColumn(n) {
			return fmt.Errorf("%w: %s", ErrMissingColumn, n)
		}
	}
	return nil
}
