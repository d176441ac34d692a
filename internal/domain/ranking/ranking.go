// Package ranking orders countries by confirmed cases.
package ranking

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/okian/covidmap/internal/domain/dataset"
)

// DefaultLimit is the size of the countries table.
const DefaultLimit = 10

// Entry is one ranked region.
type Entry struct {
	Region    string
	Confirmed int64
}

// Formatted returns the confirmed count with thousands separators.
func (e Entry) Formatted() string {
	return humanize.Comma(e.Confirmed)
}

// Top groups rows by Country_Region, sums Confirmed per group and returns
// the n largest in descending order. Rows without a region are skipped and
// missing counts add zero. Groups are visited in ascending region order, so
// equal sums keep that order.
func Top(d *dataset.Dataset, n int) ([]Entry, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, n)
	}
	if err := d.Require(dataset.ColCountryRegion, dataset.ColConfirmed); err != nil {
		return nil, err
	}

	sums := make(map[string]float64)
	for _, r := range d.Rows() {
		if !r.CountryRegion.Valid {
			continue
		}
		c := 0.0
		if r.Confirmed.Valid {
			c = r.Confirmed.Value
		}
		sums[r.CountryRegion.Value] += c
	}

	entries := make([]Entry, 0, len(sums))
	for region, sum := range sums {
		entries = append(entries, Entry{Region: region, Confirmed: int64(sum)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Region < entries[j].Region })
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Confirmed > entries[j].Confirmed })

	if len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

var tbody = template.Must(template.New("tbody").Parse(`<tbody>
{{- range .}}
  <tr>
    <th>{{.Region}}</th>
    <td>{{.Formatted}}</td>
  </tr>
{{- end}}
</tbody>
`))

// TableBody renders entries as a <tbody> fragment with a header cell for the
// region and a data cell for the count. No header row is emitted.
func TableBody(entries []Entry) (template.HTML, error) {
	var buf bytes.Buffer
	if err := tbody.Execute(&buf, entries); err != nil {
		return "", fmt.Errorf("%w: %w", ErrRender, err)
	}
	return template.HTML(buf.String()), nil //nolint:gosec // produced by html/template with escaped values
}
