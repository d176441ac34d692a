// Package totals sums world-wide case counts from a daily report.
package totals

import (
	"github.com/dustin/go-humanize"

	"github.com/okian/covidmap/internal/domain/dataset"
)

// Columns summed into Totals, in display order.
var Columns = []string{ //nolint:gochecknoglobals // fixed report schema
	dataset.ColConfirmed,
	dataset.ColActive,
	dataset.ColDeaths,
	dataset.ColRecovered,
}

// Totals is the world-wide sum of each count column.
type Totals struct {
	Confirmed int64
	Active    int64
	Deaths    int64
	Recovered int64
}

// Formatted holds Totals as comma-grouped display strings.
type Formatted struct {
	Confirmed string
	Active    string
	Deaths    string
	Recovered string
}

// Compute sums the four count columns across all rows. Missing cells count
// as zero and each sum is truncated to an integer. It returns
// dataset.ErrMissingColumn when a column is absent from the header.
func Compute(d *dataset.Dataset) (Totals, error) {
	if err := d.Require(Columns...); err != nil {
		return Totals{}, err
	}

	var confirmed, active, deaths, recovered float64
	for _, r := range d.Rows() {
		confirmed += value(r.Confirmed)
		active += value(r.Active)
		deaths += value(r.Deaths)
		recovered += value(r.Recovered)
	}

	return Totals{
		Confirmed: int64(confirmed),
		Active:    int64(active),
		Deaths:    int64(deaths),
		Recovered: int64(recovered),
	}, nil
}

func value(n dataset.Number) float64 {
	if !n.Valid {
		return 0
	}
	return n.Value
}

// Format renders each total with thousands separators, e.g. 1234567 -> "1,234,567".
func (t Totals) Format() Formatted {
	return Formatted{
		Confirmed: humanize.Comma(t.Confirmed),
		Active:    humanize.Comma(t.Active),
		Deaths:    humanize.Comma(t.Deaths),
		Recovered: humanize.Comma(t.Recovered),
	}
}
