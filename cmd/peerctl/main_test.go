package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

const fixtureYAML = `
participants:
  - {nickname: ivan, full_name: Ivanov Ivan, group: IU7-21B}
  - {nickname: petr, full_name: Petrov Petr, group: IU7-22B}
  - {nickname: anna, full_name: Sidorova Anna, group: IU7-21B}
criteria:
  - {name: Teamwork, max_score: 10}
  - {name: Design, max_score: 10}
evaluations:
  - rater: ivan
    target: anna
    scores: {Teamwork: 9, Design: 12}
  - rater: petr
    target: anna
    scores: {Teamwork: 5, Design: 8}
  - rater: anna
    target: ivan
    scores: {Teamwork: 7}
`

// execute runs peerctl with args against a fresh command tree.
func execute(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPeerctl(t *testing.T) {
	Convey("Given a fixture file and an empty SQLite database", t, func() {
		dir := t.TempDir()
		fixture := filepath.Join(dir, "fixture.yaml")
		So(os.WriteFile(fixture, []byte(fixtureYAML), 0o600), ShouldBeNil)
		db := filepath.Join(dir, "peerscore.db")
		t.Setenv("PEERSCORE_CONFIG", "")

		out, err := execute("seed", "--db", db, "--file", fixture)
		So(err, ShouldBeNil)
		So(out, ShouldContainSubstring, "participants: 3")
		So(out, ShouldContainSubstring, "3 submitted, 3 created, 0 updated, 0 rejected")

		Convey("When results are printed as CSV", func() {
			out, err := execute("results", "--db", db, "--format", "csv", "--sort", "overall", "--desc")

			Convey("Then each target has a row with its criterion means", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "Name,Group,Teamwork,Design,Overall,Evaluations,Raters,Anomalies")
				So(out, ShouldContainSubstring, "Sidorova Anna,IU7-21B,7.00,9.00,16.00,2,2,0")
				So(out, ShouldContainSubstring, "Ivanov Ivan,IU7-21B,7.00,-,7.00,1,1,0")
			})
		})

		Convey("When every score is listed as markdown", func() {
			out, err := execute("flags", "--db", db, "--all", "--target", "3", "--format", "markdown")

			Convey("Then the scores received by the target are shown", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "| Score |")
				So(out, ShouldContainSubstring, "Teamwork")
				So(out, ShouldContainSubstring, "| Ivanov Ivan | Sidorova Anna |")
				So(out, ShouldContainSubstring, "| Petrov Petr | Sidorova Anna |")
				So(out, ShouldNotContainSubstring, "| Sidorova Anna | Ivanov Ivan |")
			})
		})

		Convey("When only anomalies are listed", func() {
			out, err := execute("flags", "--db", db)

			Convey("Then the table is empty", func() {
				So(err, ShouldBeNil)
				So(out, ShouldNotContainSubstring, "Teamwork")
			})
		})

		Convey("When an unknown format is requested", func() {
			_, err := execute("results", "--db", db, "--format", "xml")

			Convey("Then the command fails", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "unknown format")
			})
		})

		Convey("When the store is purged", func() {
			_, err := execute("purge", "--db", db)
			So(err, ShouldNotBeNil)

			out, err := execute("purge", "--db", db, "--yes")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "deleted 3 evaluations")

			Convey("Then the results are empty", func() {
				out, err := execute("results", "--db", db, "--format", "csv")
				So(err, ShouldBeNil)
				So(out, ShouldNotContainSubstring, "Sidorova Anna")
			})
		})
	})

	Convey("Given generator flags and the memory store", t, func() {
		t.Setenv("PEERSCORE_CONFIG", "")
		t.Setenv("PEERSCORE_STORE_DRIVER", "memory")

		out, err := execute("seed", "--participants", "6", "--raters", "3", "--outliers", "0", "--show", "--format", "csv")

		Convey("Then every generated evaluation is accepted and summarized", func() {
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "18 submitted, 18 created, 0 updated, 0 rejected")
			So(out, ShouldContainSubstring, "Overall")
		})
	})

	Convey("Given an impossible generator size", t, func() {
		t.Setenv("PEERSCORE_CONFIG", "")
		_, err := execute("seed", "--participants", "2", "--raters", "5")

		Convey("Then the command fails before opening a store", func() {
			So(err, ShouldNotBeNil)
		})
	})
}
