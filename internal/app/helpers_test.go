package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/okian/peerscore/internal/adapters/repository"
	service "github.com/okian/peerscore/internal/app"
	"github.com/okian/peerscore/internal/domain/model"
	"github.com/okian/peerscore/internal/domain/scoring"
	"github.com/okian/peerscore/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// clock advances one second on every reading so that writes are ordered.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type fixture struct {
	ctx   context.Context
	store repository.Store
	svc   *service.Service
	clock *clock

	rater  model.Participant // Ivanov Ivan
	peer   model.Participant // Petrov Petr
	target model.Participant // Sidorova Anna, IU7-21B

	teamwork model.Criterion // global, max 10
	design   model.Criterion // global, max 10
}

// newFixture must be called inside a Convey block.
func newFixture(store repository.Store, opts ...service.Option) *fixture {
	f := &fixture{
		ctx:   context.Background(),
		store: store,
		clock: &clock{t: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
	}
	f.svc = service.New(store, append([]service.Option{service.WithClock(f.clock.Now)}, opts...)...)

	f.rater = f.participant("ivan", "Ivanov Ivan", "IU7-21B")
	f.peer = f.participant("petr", "Petrov Petr", "IU7-22B")
	f.target = f.participant("anna", "Sidorova Anna", "IU7-21B")
	f.teamwork = f.criterion(model.GlobalEvent, "Teamwork", 10)
	f.design = f.criterion(model.GlobalEvent, "Design", 10)
	return f
}

func (f *fixture) participant(nick, name, group string) model.Participant {
	p, err := f.svc.CreateParticipant(f.ctx, service.NewParticipant{Nickname: nick, FullName: name, Group: group})
	So(err, ShouldBeNil)
	return p
}

func (f *fixture) criterion(eventID int64, name string, maxScore float64) model.Criterion {
	c, err := f.svc.CreateCriterion(f.ctx, service.NewCriterion{EventID: eventID, Name: name, MaxScore: maxScore, Active: true})
	So(err, ShouldBeNil)
	return c
}

func (f *fixture) submit(raterID int64, target model.TargetRef, scores ...scoring.Input) service.SubmitResult {
	res, err := f.svc.Submit(f.ctx, service.Submission{RaterID: raterID, Target: target, Scores: scores})
	So(err, ShouldBeNil)
	return res
}

func score(c model.Criterion, v int) scoring.Input {
	return scoring.Input{CriterionID: c.ID, Value: v}
}

func byID(id int64) model.TargetRef { return model.TargetRef{ID: id} }

func byName(name string) model.TargetRef { return model.TargetRef{Name: name} }

func values(e model.Evaluation) map[int64]float64 {
	out := make(map[int64]float64, len(e.Scores))
	for _, s := range e.Scores {
		out[s.CriterionID] = s.Value
	}
	return out
}
