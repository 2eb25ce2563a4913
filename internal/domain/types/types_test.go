package types_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/peerscore/internal/domain/stats"
	types "github.com/okian/peerscore/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestScoreFlagJSON(t *testing.T) {
	Convey("Given a flagged score", t, func() {
		z := -2.5
		flag := types.ScoreFlag{
			ScoreID:    1,
			TargetName: "Ivanov Ivan",
			Value:      2,
			Annotation: stats.Annotation{Z: &z, Anomaly: true},
		}

		Convey("When it is encoded", func() {
			raw, err := json.Marshal(flag)
			So(err, ShouldBeNil)

			var out map[string]any
			So(json.Unmarshal(raw, &out), ShouldBeNil)

			Convey("Then the annotation fields are flattened into the row", func() {
				So(out["is_anomaly"], ShouldEqual, true)
				So(out["z"], ShouldEqual, -2.5)
				So(out["mean"], ShouldBeNil)
				So(out, ShouldNotContainKey, "target_id")
			})
		})
	})
}

func TestResultsRowJSON(t *testing.T) {
	Convey("Given a row with no totals", t, func() {
		row := types.ResultsRow{Name: "Petrov Petr"}

		Convey("Then overall_mean encodes as null", func() {
			raw, err := json.Marshal(row)
			So(err, ShouldBeNil)
			So(string(raw), ShouldContainSubstring, `"overall_mean":null`)
		})
	})
}
