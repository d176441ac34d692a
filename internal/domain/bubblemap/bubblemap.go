// Package bubblemap turns located report rows into circle markers on an
// embeddable Leaflet world map.
package bubblemap

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/okian/covidmap/internal/domain/dataset"
)

// Defaults for marker styling and the base map.
const (
	DefaultColor       = "#3186cc"
	DefaultRadiusScale = 1.0
	DefaultTiles       = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	DefaultAttribution = "&copy; OpenStreetMap contributors"
)

// Marker is one circle drawn on the map. Radius is in meters.
type Marker struct {
	Name      string  `json:"-"`
	Confirmed float64 `json:"-"`
	Lat       float64 `json:"lat"`
	Long      float64 `json:"lng"`
	Radius    float64 `json:"radius"`
	Label     string  `json:"label"`
	Color     string  `json:"color"`
	Fill      bool    `json:"fill"`
}

// Map is the result of Build.
type Map struct {
	Markers []Marker
	Dropped int
	HTML    template.HTML
}

// Builder creates markers and map documents.
type Builder struct {
	color       string
	radiusScale float64
	tiles       string
	attribution string
	newID       func() string
}

// Option applies a configuration option to the Builder.
type Option func(*Builder)

// WithColor sets the stroke and fill color.
func WithColor(color string) Option {
	return func(b *Builder) {
		if color != "" {
			b.color = color
		}
	}
}

// WithRadiusScale sets the meters-per-case multiplier.
func WithRadiusScale(scale float64) Option {
	return func(b *Builder) {
		if scale > 0 {
			b.radiusScale = scale
		}
	}
}

// WithTiles sets the tile URL template and its attribution text.
func WithTiles(url, attribution string) Option {
	return func(b *Builder) {
		if url != "" {
			b.tiles = url
			b.attribution = attribution
		}
	}
}

// NewBuilder creates a Builder with the default style.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		color:       DefaultColor,
		radiusScale: DefaultRadiusScale,
		tiles:       DefaultTiles,
		attribution: DefaultAttribution,
		newID:       func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Complete reports whether a row has everything a marker needs: a combined
// key, both coordinates and a confirmed count.
func Complete(r dataset.Row) bool {
	return r.CombinedKey.Valid && r.Lat.Valid && r.Long.Valid && r.Confirmed.Valid
}

// Columns are the report columns a marker is built from.
var Columns = []string{dataset.ColCombinedKey, dataset.ColLat, dataset.ColLong, dataset.ColConfirmed}

// Markers returns one marker per complete row, in row order. A report
// lacking any of Columns fails with dataset.ErrMissingColumn.
func (b *Builder) Markers(d *dataset.Dataset) ([]Marker, error) {
	if err := d.Require(Columns...); err != nil {
		return nil, err
	}
	rows := d.Rows()
	out := make([]Marker, 0, len(rows))
	for _, r := range rows {
		if !Complete(r) {
			continue
		}
		out = append(out, b.marker(r))
	}
	return out, nil
}

func (b *Builder) marker(r dataset.Row) Marker {
	c := r.Confirmed.Value
	return Marker{
		Name:      r.CombinedKey.Value,
		Confirmed: c,
		Lat:       r.Lat.Value,
		Long:      r.Long.Value,
		Radius:    c * b.radiusScale,
		Label:     r.CombinedKey.Value + "\nConfirmed cases: " + strconv.FormatFloat(c, 'f', -1, 64),
		Color:     b.color,
		Fill:      true,
	}
}

var document = template.Must(template.New("map").Parse(`<div id="{{.ElementID}}" class="bubble-map" style="width: 100%; height: 500px;"></div>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<script>
(function () {
  var map = L.map({{.ElementID}}, {worldCopyJump: true}).setView([20, 0], 2);
  L.tileLayer({{.Tiles}}, {attribution: {{.Attribution}}, maxZoom: 18}).addTo(map);
  var markers = {{.Markers}};
  markers.forEach(function (m) {
    var popup = document.createElement("div");
    popup.style.whiteSpace = "pre-line";
    popup.textContent = m.label;
    L.circle([m.lat, m.lng], {radius: m.radius, color: m.color, fill: m.fill, fillColor: m.color})
      .bindPopup(popup)
      .addTo(map);
  });
})();
</script>
`))

type documentData struct {
	ElementID   string
	Tiles       string
	Attribution string
	Markers     template.JS
}

// Document renders markers layered over a world base map as a self-contained
// HTML fragment.
func (b *Builder) Document(markers []Marker) (template.HTML, error) {
	if markers == nil {
		markers = []Marker{}
	}
	payload, err := json.Marshal(markers)
	if err != nil {
		return "", fmt.Errorf("%w: encode markers: %w", ErrRender, err)
	}

	var buf bytes.Buffer
	err = document.Execute(&buf, documentData{
		ElementID:   "map-" + b.newID(),
		Tiles:       b.tiles,
		Attribution: b.attribution,
		Markers:     template.JS(payload), //nolint:gosec // JSON with HTML characters escaped
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRender, err)
	}
	return template.HTML(buf.String()), nil //nolint:gosec // produced by html/template
}

// Build filters the report, creates markers and renders the document.
func (b *Builder) Build(d *dataset.Dataset) (Map, error) {
	markers, err := b.Markers(d)
	if err != nil {
		return Map{}, err
	}
	html, err := b.Document(markers)
	if err != nil {
		return Map{}, err
	}
	return Map{
		Markers: markers,
		Dropped: d.Len() - len(markers),
		HTML:    html,
	}, nil
}
