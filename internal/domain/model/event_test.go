package model_test

import (
	"testing"

	model "github.com/okian/peerscore/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestTarget(t *testing.T) {
	convey.Convey("Given targets of both kinds", t, func() {
		reg := model.Identified(7, "Ivanov  Ivan", "IU7-21B")
		ext := model.External(" ivanov ivan")

		convey.Convey("Then they group under the same normalized key", func() {
			convey.So(reg.Key(), convey.ShouldEqual, "ivanov ivan")
			convey.So(ext.Key(), convey.ShouldEqual, reg.Key())
			convey.So(reg.Kind.String(), convey.ShouldEqual, "identified")
			convey.So(ext.Kind.String(), convey.ShouldEqual, "external")
		})
	})

	convey.Convey("Given target references", t, func() {
		convey.Convey("When an id is present", func() {
			ref := model.TargetRef{ID: 3, Name: "ignored"}

			convey.Convey("Then the id is the key", func() {
				convey.So(ref.Key(), convey.ShouldEqual, "id:3")
				convey.So(ref.IsZero(), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When only a name is present", func() {
			a := model.TargetRef{Name: "Petrov  Petr"}
			b := model.TargetRef{Name: "petrov petr "}

			convey.Convey("Then spacing and case do not matter", func() {
				convey.So(a.Key(), convey.ShouldEqual, b.Key())
			})
		})

		convey.Convey("When nothing usable is present", func() {
			convey.So(model.TargetRef{Name: "  "}.IsZero(), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given an evaluation of a registered target", t, func() {
		e := model.Evaluation{TargetID: 4, TargetName: "Some Name"}

		convey.Convey("Then its reference prefers the id", func() {
			convey.So(e.Ref(), convey.ShouldResemble, model.TargetRef{ID: 4})
		})
	})
}
