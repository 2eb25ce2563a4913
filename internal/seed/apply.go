package seed

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	service "github.com/okian/peerscore/internal/app"
	"github.com/okian/peerscore/internal/domain/model"
	"github.com/okian/peerscore/internal/domain/scoring"
	"github.com/okian/peerscore/pkg/logger"
)

// Seeder is the subset of the service a fixture is applied through.
type Seeder interface {
	CreateParticipant(ctx context.Context, in service.NewParticipant) (model.Participant, error)
	CreateEvent(ctx context.Context, in service.NewEvent) (model.Event, error)
	CreateCriterion(ctx context.Context, in service.NewCriterion) (model.Criterion, error)
	Submit(ctx context.Context, sub service.Submission) (service.SubmitResult, error)
}

// Report summarizes an Apply run.
type Report struct {
	Participants int
	Events       int
	Criteria     int
	Submitted    int
	Created      int
	Updated      int
	Failed       int
	Duration     time.Duration
}

// Apply creates the fixture's participants, events and criteria in order,
// then submits its evaluations with up to workers in flight. A rejected
// submission is counted in Report.Failed and does not stop the run.
func Apply(ctx context.Context, s Seeder, f *Fixture, workers int) (Report, error) {
	start := time.Now()
	log := logger.Get().Named("seed")
	var rep Report

	people := make(map[string]int64, len(f.Participants))
	for _, p := range f.Participants {
		created, err := s.CreateParticipant(ctx, service.NewParticipant{Nickname: p.Nickname, FullName: p.FullName, Group: p.Group})
		if err != nil {
			return rep, fmt.Errorf("participant %q: %w", p.Nickname, err)
		}
		people[p.Nickname] = created.ID
		rep.Participants++
	}

	events := map[string]int64{"": model.GlobalEvent}
	for _, e := range f.Events {
		if e.Key == "" {
			return rep, fmt.Errorf("%w: event %q has no key", ErrInvalidFixture, e.Name)
		}
		created, err := s.CreateEvent(ctx, service.NewEvent{Name: e.Name, Description: e.Description, Active: e.Active})
		if err != nil {
			return rep, fmt.Errorf("event %q: %w", e.Key, err)
		}
		events[e.Key] = created.ID
		rep.Events++
	}

	// criteria[event key][criterion name]
	criteria := make(map[string]map[string]int64)
	for _, c := range f.Criteria {
		eventID, ok := events[c.Event]
		if !ok {
			return rep, fmt.Errorf("%w: criterion %q references unknown event %q", ErrInvalidFixture, c.Name, c.Event)
		}
		created, err := s.CreateCriterion(ctx, service.NewCriterion{
			EventID:     eventID,
			Name:        c.Name,
			Description: c.Description,
			MaxScore:    c.MaxScore,
			Active:      !c.Inactive,
		})
		if err != nil {
			return rep, fmt.Errorf("criterion %q: %w", c.Name, err)
		}
		if criteria[c.Event] == nil {
			criteria[c.Event] = make(map[string]int64)
		}
		criteria[c.Event][c.Name] = created.ID
		rep.Criteria++
	}

	subs := make([]service.Submission, 0, len(f.Evaluations))
	for i, e := range f.Evaluations {
		sub, err := submission(e, people, events, criteria)
		if err != nil {
			return rep, fmt.Errorf("evaluation %d: %w", i, err)
		}
		subs = append(subs, sub)
	}

	var created, updated, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)
	for _, sub := range subs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := s.Submit(gctx, sub)
			switch {
			case err != nil && service.Kind(err) == nil:
				return err
			case err != nil:
				failed.Add(1)
				log.Debug(gctx, "submission rejected", logger.Int64("raterId", sub.RaterID), logger.Error(err))
			case res.Updated:
				updated.Add(1)
			default:
				created.Add(1)
			}
			return nil
		})
	}
	err := g.Wait()

	rep.Submitted = len(subs)
	rep.Created, rep.Updated, rep.Failed = int(created.Load()), int(updated.Load()), int(failed.Load())
	rep.Duration = time.Since(start)
	log.Info(ctx, "fixture applied",
		logger.Int("participants", rep.Participants),
		logger.Int("criteria", rep.Criteria),
		logger.Int("submitted", rep.Submitted),
		logger.Int("failed", rep.Failed),
		logger.Duration("duration", rep.Duration),
	)
	if err != nil {
		return rep, fmt.Errorf("submit evaluations: %w", err)
	}
	return rep, nil
}

func submission(e Evaluation, people, events map[string]int64, criteria map[string]map[string]int64) (service.Submission, error) {
	rater, ok := people[e.Rater]
	if !ok {
		return service.Submission{}, fmt.Errorf("%w: unknown rater %q", ErrInvalidFixture, e.Rater)
	}
	eventID, ok := events[e.Event]
	if !ok {
		return service.Submission{}, fmt.Errorf("%w: unknown event %q", ErrInvalidFixture, e.Event)
	}

	var target model.TargetRef
	switch {
	case e.Target != "":
		id, ok := people[e.Target]
		if !ok {
			return service.Submission{}, fmt.Errorf("%w: unknown target %q", ErrInvalidFixture, e.Target)
		}
		target.ID = id
	default:
		target.Name = e.TargetName
	}

	// Payload order follows criterion names.
	names := make([]string, 0, len(e.Scores))
	for name := range e.Scores {
		names = append(names, name)
	}
	sort.Strings(names)
	scores := make([]scoring.Input, 0, len(names))
	for _, name := range names {
		cid, ok := criteria[e.Event][name]
		if !ok {
			return service.Submission{}, fmt.Errorf("%w: unknown criterion %q in event %q", ErrInvalidFixture, name, e.Event)
		}
		scores = append(scores, scoring.Input{CriterionID: cid, Value: e.Scores[name]})
	}

	return service.Submission{RaterID: rater, Target: target, EventID: eventID, Comment: e.Comment, Scores: scores}, nil
}
