package scoring_test

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/okian/peerscore/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestClamp(t *testing.T) {
	Convey("Given a criterion with max score 10", t, func() {
		Convey("Then integer submissions are bounded to [0, 10]", func() {
			So(scoring.ClampInt(-5, 10), ShouldEqual, 0)
			So(scoring.ClampInt(15, 10), ShouldEqual, 10)
			So(scoring.ClampInt(7, 10), ShouldEqual, 7)
			So(scoring.ClampInt(0, 10), ShouldEqual, 0)
		})

		Convey("Then clamping is reported only when the value changed", func() {
			So(scoring.WasClamped(-5, 10), ShouldBeTrue)
			So(scoring.WasClamped(10, 10), ShouldBeFalse)
		})
	})

	Convey("Given a fractional max score", t, func() {
		Convey("Then the integer upper bound is its floor", func() {
			So(scoring.ClampInt(6, 5.5), ShouldEqual, 5)
			So(scoring.ClampInt(5, 5.5), ShouldEqual, 5)
		})

		Convey("Then real values keep the real bound", func() {
			So(scoring.Clamp(6, 5.5), ShouldEqual, 5.5)
			So(scoring.Clamp(-0.1, 5.5), ShouldEqual, 0)
			So(scoring.Clamp(math.NaN(), 5.5), ShouldEqual, 0)
		})
	})

	Convey("Given a negative max score", t, func() {
		Convey("Then everything collapses to zero", func() {
			So(scoring.ClampInt(3, -1), ShouldEqual, 0)
			So(scoring.Clamp(3, -1), ShouldEqual, 0)
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given a well formed request", t, func() {
		req := scoring.Request{
			RaterID:  1,
			TargetID: 2,
			Scores:   []scoring.Input{{CriterionID: 1, Value: 4}},
		}

		Convey("Then it passes", func() {
			So(scoring.Validate(req), ShouldBeNil)
		})

		Convey("When the rater is missing", func() {
			req.RaterID = 0

			Convey("Then it is rejected as invalid", func() {
				err := scoring.Validate(req)
				So(errors.Is(err, scoring.ErrInvalid), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "RaterID")
			})
		})

		Convey("When both target keys are blank", func() {
			req.TargetID = 0
			req.TargetName = "   "

			Convey("Then it is rejected", func() {
				So(errors.Is(scoring.Validate(req), scoring.ErrInvalid), ShouldBeTrue)
			})
		})

		Convey("When only a free-text name is given", func() {
			req.TargetID = 0
			req.TargetName = "Petrov Petr"

			Convey("Then it passes", func() {
				So(scoring.Validate(req), ShouldBeNil)
			})
		})

		Convey("When a score references criterion 0", func() {
			req.Scores = append(req.Scores, scoring.Input{CriterionID: 0, Value: 1})

			Convey("Then the nested field is named", func() {
				err := scoring.Validate(req)
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "CriterionID")
			})
		})

		Convey("When the comment is too long", func() {
			req.Comment = strings.Repeat("x", scoring.MaxCommentLength+1)

			Convey("Then it is rejected", func() {
				So(scoring.Validate(req), ShouldNotBeNil)
			})
		})
	})
}

func TestDedupe(t *testing.T) {
	Convey("Given repeated criterion ids", t, func() {
		in := []scoring.Input{{1, 3}, {2, 4}, {1, 9}}

		Convey("Then the first occurrence wins", func() {
			So(scoring.Dedupe(in), ShouldResemble, []scoring.Input{{1, 3}, {2, 4}})
		})
	})
}
