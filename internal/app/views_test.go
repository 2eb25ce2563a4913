package service_test

import (
	"errors"
	"testing"

	"github.com/okian/peerscore/internal/adapters/repository"
	service "github.com/okian/peerscore/internal/app"
	"github.com/okian/peerscore/internal/domain/model"
	"github.com/okian/peerscore/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestService_Views(t *testing.T) {
	Convey("Given a target scored by ten raters with one outlier", t, func() {
		f := newFixture(repository.NewMemStore(), service.WithMaxListLimit(4))
		crowd := f.crowd(byID(f.target.ID), 8, 8, 8, 8, 8, 8, 8, 8, 8, 2)

		Convey("When reading the target's statistics", func() {
			st, err := f.svc.StatsFor(f.ctx, f.target.ID, false)
			So(err, ShouldBeNil)

			Convey("Then the sample includes every current score", func() {
				So(st[f.teamwork.ID].N, ShouldEqual, 10)
				So(st[f.teamwork.ID].Mean, ShouldAlmostEqual, 7.4)
				_, ok := st[f.design.ID]
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When listing the target's evaluations", func() {
			evals, err := f.svc.TargetEvaluations(f.ctx, f.target.ID)
			So(err, ShouldBeNil)

			Convey("Then they come newest first with annotated scores", func() {
				So(len(evals), ShouldEqual, 10)
				newest := evals[0]
				So(newest.RaterID, ShouldEqual, crowd[9].ID)
				So(newest.RaterName, ShouldEqual, "Rater 9")
				So(newest.Scores[0].CriterionName, ShouldEqual, "Teamwork")
				So(newest.Scores[0].Value, ShouldEqual, 2)
				So(newest.Scores[0].Anomaly, ShouldBeTrue)
				So(newest.Scores[0].Z, ShouldNotBeNil)
				So(*newest.Scores[0].Delta, ShouldAlmostEqual, -5.4)

				So(evals[1].Scores[0].Anomaly, ShouldBeFalse)
			})
		})

		Convey("When listing an unknown target's evaluations", func() {
			_, err := f.svc.TargetEvaluations(f.ctx, 999)

			Convey("Then it is a not-found error", func() {
				So(service.Kind(err), ShouldEqual, service.ErrNotFound)
			})
		})

		Convey("When listing only anomalous scores", func() {
			flags, err := f.svc.ScoreFlags(f.ctx, service.ScoreFlagQuery{AnomalyOnly: true})
			So(err, ShouldBeNil)

			Convey("Then only the outlier is returned", func() {
				So(len(flags), ShouldEqual, 1)
				So(flags[0].Value, ShouldEqual, 2)
				So(flags[0].TargetName, ShouldEqual, "Sidorova Anna")
				So(flags[0].RaterName, ShouldEqual, "Rater 9")
				So(flags[0].CriterionName, ShouldEqual, "Teamwork")
			})
		})

		Convey("When paging through the listing", func() {
			page, err := f.svc.ScoreFlags(f.ctx, service.ScoreFlagQuery{TargetID: f.target.ID, Limit: 3, Offset: 8})
			So(err, ShouldBeNil)
			capped, err := f.svc.ScoreFlags(f.ctx, service.ScoreFlagQuery{TargetID: f.target.ID})
			So(err, ShouldBeNil)

			Convey("Then offset is applied before the limit", func() {
				So(len(page), ShouldEqual, 2)
			})

			Convey("Then the page size never exceeds the configured maximum", func() {
				So(len(capped), ShouldEqual, 4)
			})
		})

		Convey("When filtering by rater", func() {
			flags, err := f.svc.ScoreFlags(f.ctx, service.ScoreFlagQuery{RaterID: crowd[0].ID})
			So(err, ShouldBeNil)

			Convey("Then only that rater's scores remain", func() {
				So(len(flags), ShouldEqual, 1)
				So(flags[0].RaterID, ShouldEqual, crowd[0].ID)
				So(flags[0].Anomaly, ShouldBeFalse)
			})
		})

		Convey("When the query is malformed", func() {
			_, err := f.svc.ScoreFlags(f.ctx, service.ScoreFlagQuery{Limit: -1})

			Convey("Then it is a validation error", func() {
				So(service.Kind(err), ShouldEqual, service.ErrValidation)
			})
		})

		Convey("When listing criteria", func() {
			all, err := f.svc.Criteria(f.ctx, model.GlobalEvent, false)
			So(err, ShouldBeNil)
			So(f.svc.SetCriterionActive(f.ctx, f.design.ID, false), ShouldBeNil)
			active, err := f.svc.Criteria(f.ctx, model.GlobalEvent, true)
			So(err, ShouldBeNil)
			_, missing := f.svc.Criteria(f.ctx, 42, false)

			Convey("Then inactive criteria are hidden on request", func() {
				So(len(all), ShouldEqual, 2)
				So(len(active), ShouldEqual, 1)
				So(active[0].ID, ShouldEqual, f.teamwork.ID)
				So(errors.Is(missing, service.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestService_Admin(t *testing.T) {
	Convey("Given a stored evaluation", t, func() {
		f := newFixture(repository.NewMemStore())
		res := f.submit(f.rater.ID, byID(f.target.ID), score(f.teamwork, 6), score(f.design, 4))
		e, err := f.store.Evaluation(f.ctx, res.EvaluationID)
		So(err, ShouldBeNil)
		teamworkScore := e.Scores[0]

		Convey("When a score is patched out of range", func() {
			sc, err := f.svc.PatchScore(f.ctx, teamworkScore.ID, 15)
			So(err, ShouldBeNil)

			Convey("Then it is clamped", func() {
				So(sc.Value, ShouldEqual, 10)
				stored, err := f.store.Score(f.ctx, teamworkScore.ID)
				So(err, ShouldBeNil)
				So(stored.Value, ShouldEqual, 10)
			})
		})

		Convey("When a score is deleted", func() {
			So(f.svc.DeleteScore(f.ctx, teamworkScore.ID), ShouldBeNil)

			Convey("Then patching it again is a not-found error", func() {
				_, err := f.svc.PatchScore(f.ctx, teamworkScore.ID, 3)
				So(service.Kind(err), ShouldEqual, service.ErrNotFound)
			})
		})

		Convey("When the comment is patched", func() {
			So(f.svc.PatchComment(f.ctx, res.EvaluationID, "  solid work  "), ShouldBeNil)

			Convey("Then it is stored trimmed", func() {
				got, err := f.store.Evaluation(f.ctx, res.EvaluationID)
				So(err, ShouldBeNil)
				So(got.Comment, ShouldEqual, "solid work")
			})
		})

		Convey("When the evaluation is deleted", func() {
			So(f.svc.DeleteEvaluation(f.ctx, res.EvaluationID), ShouldBeNil)

			Convey("Then its scores go with it", func() {
				_, err := f.store.Score(f.ctx, teamworkScore.ID)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				So(service.Kind(f.svc.DeleteEvaluation(f.ctx, res.EvaluationID)), ShouldEqual, service.ErrNotFound)
			})
		})

		Convey("When the rater's evaluations of the target are removed", func() {
			ev, err := f.svc.CreateEvent(f.ctx, service.NewEvent{Name: "Demo day", Active: true})
			So(err, ShouldBeNil)
			pitch := f.criterion(ev.ID, "Pitch", 5)
			_, err = f.svc.Submit(f.ctx, service.Submission{
				RaterID: f.rater.ID, Target: byID(f.target.ID), EventID: ev.ID,
				Scores: []scoring.Input{score(pitch, 3)},
			})
			So(err, ShouldBeNil)

			n, err := f.svc.DeleteRaterTarget(f.ctx, f.rater.ID, byID(f.target.ID))

			Convey("Then every event is cleared", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)
				count, _ := f.store.CountEvaluations(f.ctx)
				So(count, ShouldEqual, 0)
			})
		})

		Convey("When registering a duplicate nickname", func() {
			_, err := f.svc.CreateParticipant(f.ctx, service.NewParticipant{Nickname: "ivan", FullName: "Another Ivan"})

			Convey("Then it is a precondition error", func() {
				So(service.Kind(err), ShouldEqual, service.ErrPrecondition)
			})
		})

		Convey("When creating a criterion for a missing event", func() {
			_, err := f.svc.CreateCriterion(f.ctx, service.NewCriterion{EventID: 77, Name: "Pitch", MaxScore: 5})

			Convey("Then it is a not-found error", func() {
				So(service.Kind(err), ShouldEqual, service.ErrNotFound)
			})
		})

		Convey("When creating a criterion with a negative maximum", func() {
			_, err := f.svc.CreateCriterion(f.ctx, service.NewCriterion{Name: "Broken", MaxScore: -1})

			Convey("Then it is a validation error", func() {
				So(service.Kind(err), ShouldEqual, service.ErrValidation)
			})
		})
	})
}

func TestService_TargetEvaluationsPerRater(t *testing.T) {
	Convey("Given a rater who scored a target globally and inside an event", t, func() {
		f := newFixture(repository.NewMemStore())
		ev, err := f.svc.CreateEvent(f.ctx, service.NewEvent{Name: "Demo day", Active: true})
		So(err, ShouldBeNil)
		pitch := f.criterion(ev.ID, "Pitch", 5)

		f.submit(f.rater.ID, byID(f.target.ID), score(f.teamwork, 6))
		_, err = f.svc.Submit(f.ctx, service.Submission{
			RaterID: f.rater.ID, Target: byID(f.target.ID), EventID: ev.ID,
			Scores: []scoring.Input{score(pitch, 4)},
		})
		So(err, ShouldBeNil)
		f.submit(f.peer.ID, byID(f.target.ID), score(f.teamwork, 8))

		evals, err := f.svc.TargetEvaluations(f.ctx, f.target.ID)
		So(err, ShouldBeNil)

		Convey("Then each rater appears once with their newest evaluation", func() {
			So(len(evals), ShouldEqual, 2)
			So(evals[0].RaterID, ShouldEqual, f.peer.ID)
			So(evals[1].RaterID, ShouldEqual, f.rater.ID)
			So(evals[1].EventID, ShouldEqual, ev.ID)
		})
	})
}
