package api_test

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/covidmap/internal/adapters/http/api"
	"github.com/okian/covidmap/internal/adapters/source"
	service "github.com/okian/covidmap/internal/app"
	"github.com/okian/covidmap/pkg/logger"
)

func init() {
	if err := logger.InitWriter(io.Discard); err != nil {
		panic(err)
	}
}

type mockDependencies struct {
	view  service.View
	err   error
	calls int
}

func (m *mockDependencies) Dashboard(_ context.Context) (service.View, error) {
	m.calls++
	return m.view, m.err
}

func sampleView() service.View {
	return service.View{
		Date:      "03-02-2021",
		DataURL:   "https://example.test/03-02-2021.csv",
		Confirmed: "150",
		Active:    "15",
		Deaths:    "1",
		Recovered: "134",
		TopBody:   template.HTML("<tbody><tr><th>A</th><td>100</td></tr></tbody>"),
		BubbleMap: template.HTML(`<div id="map-fixed"></div>`),
		Markers:   2,
	}
}

func serve(mux *http.ServeMux, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{view: sampleView()}
		mux := http.NewServeMux()
		api.NewServer(deps).Register(context.Background(), mux)

		Convey("When requesting the dashboard", func() {
			w := serve(mux, http.MethodGet, "/")
			body := w.Body.String()

			Convey("Then the page is rendered once per request", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/html")
				So(deps.calls, ShouldEqual, 1)
			})

			Convey("And every named value is on the page", func() {
				So(body, ShouldContainSubstring, "03-02-2021")
				So(body, ShouldContainSubstring, `href="https://example.test/03-02-2021.csv"`)
				So(body, ShouldContainSubstring, `id="total-confirmed">150<`)
				So(body, ShouldContainSubstring, `id="total-active">15<`)
				So(body, ShouldContainSubstring, `id="total-deaths">1<`)
				So(body, ShouldContainSubstring, `id="total-recovered">134<`)
			})

			Convey("And fragments are inserted without escaping", func() {
				So(body, ShouldContainSubstring, "<tbody><tr><th>A</th><td>100</td></tr></tbody>")
				So(body, ShouldContainSubstring, `<div id="map-fixed"></div>`)
			})

			Convey("And a request id is returned", func() {
				So(w.Header().Get(api.RequestIDHeader), ShouldNotBeEmpty)
			})
		})

		Convey("When a client sends a request id", func() {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(api.RequestIDHeader, "abc-123")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it is echoed back", func() {
				So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "abc-123")
			})
		})

		Convey("When posting to the dashboard", func() {
			w := serve(mux, http.MethodPost, "/")

			Convey("Then it is not found and nothing is fetched", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(deps.calls, ShouldEqual, 0)
			})
		})

		Convey("When requesting an unknown path", func() {
			w := serve(mux, http.MethodGet, "/unknown")

			Convey("Then it is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(deps.calls, ShouldEqual, 0)
			})
		})

		Convey("When requesting health", func() {
			w := serve(mux, http.MethodGet, "/healthz")

			Convey("Then metrics are exposed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "covidmap_")
			})
		})
	})
}

func TestDashboardHandler_Failures(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"exhausted fallback", &source.ExhaustedError{Attempts: []string{"a", "b", "c"}}},
		{"upstream status", fmt.Errorf("fetch x: %w", source.ErrUpstreamStatus)},
		{"unexpected", errors.New("boom")},
	}

	for _, tc := range cases {
		Convey("Given a dashboard failing with "+tc.name, t, func() {
			deps := &mockDependencies{err: tc.err}
			h := api.NewDashboardHandler(deps, logger.Get())

			w := httptest.NewRecorder()
			h.HandleDashboard(w, httptest.NewRequest(http.MethodGet, "/", nil))

			Convey("Then a generic 500 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(w.Body.String(), ShouldNotContainSubstring, tc.err.Error())
				So(strings.TrimSpace(w.Body.String()), ShouldEqual, http.StatusText(http.StatusInternalServerError))
			})
		})
	}
}
