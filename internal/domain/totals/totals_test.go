package totals_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/okian/covidmap/internal/domain/dataset"
	"github.com/okian/covidmap/internal/domain/totals"
	. "github.com/smartystreets/goconvey/convey"
)

func parse(csv string) *dataset.Dataset {
	d, err := dataset.Parse(strings.NewReader(csv))
	if err != nil {
		panic(err)
	}
	return d
}

func TestCompute(t *testing.T) {
	Convey("Given the two-region report", t, func() {
		d := parse("Combined_Key,Country_Region,Lat,Long_,Confirmed,Active,Deaths,Recovered\n" +
			"A,A,1.0,2.0,100,10,1,89\n" +
			"B,B,3.0,4.0,50,5,0,45\n")

		tot, err := totals.Compute(d)

		Convey("Then each column should be summed", func() {
			So(err, ShouldBeNil)
			So(tot, ShouldResemble, totals.Totals{Confirmed: 150, Active: 15, Deaths: 1, Recovered: 134})
		})

		Convey("And the formatted values should match", func() {
			So(tot.Format(), ShouldResemble, totals.Formatted{
				Confirmed: "150",
				Active:    "15",
				Deaths:    "1",
				Recovered: "134",
			})
		})
	})

	Convey("Given rows with missing counts", t, func() {
		d := parse("Country_Region,Confirmed,Active,Deaths,Recovered\n" +
			"US,1000000,,2000,\n" +
			"India,234567,100,,5\n" +
			",1,1,1,1\n")

		tot, err := totals.Compute(d)

		Convey("Then missing cells should count as zero", func() {
			So(err, ShouldBeNil)
			So(tot.Confirmed, ShouldEqual, 1234568)
			So(tot.Active, ShouldEqual, 101)
			So(tot.Deaths, ShouldEqual, 2001)
			So(tot.Recovered, ShouldEqual, 6)
		})

		Convey("And large values should be comma grouped", func() {
			So(tot.Format().Confirmed, ShouldEqual, "1,234,568")
			So(tot.Format().Deaths, ShouldEqual, "2,001")
		})
	})

	Convey("Given fractional counts", t, func() {
		d := parse("Confirmed,Active,Deaths,Recovered\n1.5,0,0,0\n2.25,0,0,0\n")

		tot, err := totals.Compute(d)

		Convey("Then the sum should be truncated", func() {
			So(err, ShouldBeNil)
			So(tot.Confirmed, ShouldEqual, 3)
		})
	})

	Convey("Given a report without a Recovered column", t, func() {
		d := parse("Country_Region,Confirmed,Active,Deaths\nUS,1,1,1\n")

		_, err := totals.Compute(d)

		Convey("Then it should fail with a schema error", func() {
			So(errors.Is(err, dataset.ErrMissingColumn), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "Recovered")
		})
	})

	Convey("Given a header-only report", t, func() {
		tot, err := totals.Compute(parse("Confirmed,Active,Deaths,Recovered\n"))

		Convey("Then every total should be zero", func() {
			So(err, ShouldBeNil)
			So(tot.Format().Confirmed, ShouldEqual, "0")
		})
	})
}
