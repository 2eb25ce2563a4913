package seed_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/okian/peerscore/internal/adapters/repository"
	service "github.com/okian/peerscore/internal/app"
	"github.com/okian/peerscore/internal/seed"
	"github.com/okian/peerscore/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const fixtureYAML = `
participants:
  - {nickname: ivan, full_name: Ivanov Ivan, group: IU7-21B}
  - {nickname: petr, full_name: Petrov Petr, group: IU7-22B}
  - {nickname: anna, full_name: Sidorova Anna, group: IU7-21B}
events:
  - {key: demo, name: Demo day, active: true}
criteria:
  - {name: Teamwork, max_score: 10}
  - {name: Design, max_score: 10}
  - {name: Pitch, max_score: 5, event: demo}
evaluations:
  - rater: ivan
    target: anna
    scores: {Teamwork: 9, Design: 12}
  - rater: petr
    target_name: "  sidorova ANNA "
    comment: good
    scores: {Teamwork: 5}
  - rater: ivan
    target: petr
    event: demo
    scores: {Pitch: 4}
  - rater: anna
    target_name: Anna Sidorova
    scores: {Teamwork: 3}
  - rater: anna
    target: anna
    scores: {Teamwork: 10}
`

func TestParse(t *testing.T) {
	Convey("Given a fixture document", t, func() {
		Convey("When it is well formed", func() {
			f, err := seed.Parse(strings.NewReader(fixtureYAML))

			Convey("Then every section is decoded", func() {
				So(err, ShouldBeNil)
				So(len(f.Participants), ShouldEqual, 3)
				So(f.Criteria[2].Event, ShouldEqual, "demo")
				So(f.Evaluations[0].Scores["Design"], ShouldEqual, 12)
				So(f.Evaluations[1].TargetName, ShouldEqual, "  sidorova ANNA ")
			})
		})

		Convey("When it has unknown keys", func() {
			_, err := seed.Parse(strings.NewReader("participants:\n  - {nick: x}\n"))

			Convey("Then it is rejected", func() {
				So(errors.Is(err, seed.ErrInvalidFixture), ShouldBeTrue)
			})
		})

		Convey("When it is read from a file", func() {
			path := filepath.Join(t.TempDir(), "fixture.yaml")
			So(os.WriteFile(path, []byte(fixtureYAML), 0o600), ShouldBeNil)
			f, err := seed.Load(path)

			Convey("Then it matches the parsed document", func() {
				So(err, ShouldBeNil)
				So(len(f.Evaluations), ShouldEqual, 5)
			})
		})
	})
}

func TestApply(t *testing.T) {
	Convey("Given a service and a fixture", t, func() {
		ctx := context.Background()
		svc := service.New(repository.NewMemStore())
		f, err := seed.Parse(strings.NewReader(fixtureYAML))
		So(err, ShouldBeNil)

		Convey("When the fixture is applied", func() {
			rep, err := seed.Apply(ctx, svc, f, 4)
			So(err, ShouldBeNil)

			Convey("Then setup rows are created and the self-evaluation is rejected", func() {
				So(rep.Participants, ShouldEqual, 3)
				So(rep.Events, ShouldEqual, 1)
				So(rep.Criteria, ShouldEqual, 3)
				So(rep.Submitted, ShouldEqual, 5)
				So(rep.Created, ShouldEqual, 4)
				So(rep.Failed, ShouldEqual, 1)
			})

			Convey("Then the results merge registered and free-text targets", func() {
				rows, err := svc.Results(ctx, service.ResultsQuery{})
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, 2)
				So(rows[0].Name, ShouldEqual, "Anna Sidorova")
				So(rows[0].TargetID, ShouldEqual, 0)
				So(rows[1].Name, ShouldEqual, "Sidorova Anna")
				So(rows[1].Evaluations, ShouldEqual, 2)
				So(*rows[1].OverallMean, ShouldAlmostEqual, 12)
			})
		})

		Convey("When an evaluation references an unknown criterion", func() {
			f.Evaluations = append(f.Evaluations, seed.Evaluation{Rater: "ivan", Target: "petr", Scores: map[string]int{"Pitch": 3}})
			_, err := seed.Apply(ctx, svc, f, 1)

			Convey("Then nothing is submitted", func() {
				So(errors.Is(err, seed.ErrInvalidFixture), ShouldBeTrue)
				flags, err := svc.ScoreFlags(ctx, service.ScoreFlagQuery{})
				So(err, ShouldBeNil)
				So(len(flags), ShouldEqual, 0)
			})
		})
	})
}

func TestGenerate(t *testing.T) {
	Convey("Given a generator configuration", t, func() {
		cfg := seed.GeneratorConfig{Participants: 12, RatersPerTarget: 5, OutlierRate: 0.1, FreeTextEvery: 4}

		Convey("When a fixture is generated", func() {
			f, err := seed.Generate(cfg)
			So(err, ShouldBeNil)

			Convey("Then every participant is rated by distinct peers", func() {
				So(len(f.Participants), ShouldEqual, 12)
				So(len(f.Evaluations), ShouldEqual, 60)

				names := make(map[string]string)
				for _, p := range f.Participants {
					_, err := uuid.Parse(p.Nickname)
					So(err, ShouldBeNil)
					names[p.Nickname] = p.FullName
				}
				So(len(names), ShouldEqual, 12)

				seen := make(map[string]bool)
				freeText := 0
				for _, e := range f.Evaluations {
					So(e.Rater, ShouldNotEqual, e.Target)
					if e.Target == "" {
						freeText++
						So(strings.TrimSpace(e.TargetName), ShouldNotBeEmpty)
					}
					key := e.Rater + "|" + e.Target + e.TargetName
					So(seen[key], ShouldBeFalse)
					seen[key] = true
					for _, v := range e.Scores {
						So(v, ShouldBeBetweenOrEqual, 0, 10)
					}
				}
				So(freeText, ShouldEqual, 15)
			})

			Convey("Then it applies without rejections", func() {
				svc := service.New(repository.NewMemStore())
				rep, err := seed.Apply(context.Background(), svc, f, 8)
				So(err, ShouldBeNil)
				So(rep.Failed, ShouldEqual, 0)
				So(rep.Created, ShouldEqual, 60)

				rows, err := svc.Results(context.Background(), service.ResultsQuery{})
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, 12)
				for _, r := range rows {
					So(r.RatersCount, ShouldEqual, 5)
				}
			})
		})

		Convey("When the sizes are impossible", func() {
			_, err := seed.Generate(seed.GeneratorConfig{Participants: 3, RatersPerTarget: 3})

			Convey("Then generation fails", func() {
				So(errors.Is(err, seed.ErrInvalidFixture), ShouldBeTrue)
			})
		})
	})
}
