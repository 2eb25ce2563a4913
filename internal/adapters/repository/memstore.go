package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/peerscore/internal/domain/dedupe"
	"github.com/okian/peerscore/internal/domain/model"
)

// MemStore is a mutex-guarded in-memory Store. It is the default driver and
// the store used by tests.
type MemStore struct {
	mu sync.RWMutex

	seq          map[string]int64
	participants map[int64]model.Participant
	events       map[int64]model.Event
	criteria     map[int64]model.Criterion
	evaluations  map[int64]model.Evaluation // scores are held in scores/byEval
	scores       map[int64]model.Score
	byEval       map[int64]map[int64]int64 // evaluation id -> criterion id -> score id
}

var _ Store = (*MemStore)(nil)

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		seq:          make(map[string]int64),
		participants: make(map[int64]model.Participant),
		events:       make(map[int64]model.Event),
		criteria:     make(map[int64]model.Criterion),
		evaluations:  make(map[int64]model.Evaluation),
		scores:       make(map[int64]model.Score),
		byEval:       make(map[int64]map[int64]int64),
	}
}

func (s *MemStore) next(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

// CreateParticipant stores p with a new id. Nicknames are unique.
func (s *MemStore) CreateParticipant(_ context.Context, p model.Participant) (model.Participant, error) {
	defer observe(DriverMemory, "create_participant", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.participants {
		if existing.Nickname == p.Nickname {
			return model.Participant{}, fmt.Errorf("participant %q: %w", p.Nickname, ErrConflict)
		}
	}
	p.ID = s.next("participants")
	s.participants[p.ID] = p
	return p, nil
}

// Participant returns the participant with id.
func (s *MemStore) Participant(_ context.Context, id int64) (model.Participant, error) {
	defer observe(DriverMemory, "participant", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.participants[id]
	if !ok {
		return model.Participant{}, fmt.Errorf("participant %d: %w", id, ErrNotFound)
	}
	return p, nil
}

// Participants returns every participant ordered by id.
func (s *MemStore) Participants(_ context.Context) ([]model.Participant, error) {
	defer observe(DriverMemory, "participants", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Participant, 0, len(s.participants))
	for _, p := range s.participants {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateEvent stores e with a new id.
func (s *MemStore) CreateEvent(_ context.Context, e model.Event) (model.Event, error) {
	defer observe(DriverMemory, "create_event", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = s.next("events")
	s.events[e.ID] = e
	return e, nil
}

// Event returns the event with id.
func (s *MemStore) Event(_ context.Context, id int64) (model.Event, error) {
	defer observe(DriverMemory, "event", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[id]
	if !ok {
		return model.Event{}, fmt.Errorf("event %d: %w", id, ErrNotFound)
	}
	return e, nil
}

// SetParticipantActive toggles the active flag of a participant.
func (s *MemStore) SetParticipantActive(_ context.Context, id int64, active bool) error {
	defer observe(DriverMemory, "set_participant_active", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participants[id]
	if !ok {
		return fmt.Errorf("participant %d: %w", id, ErrNotFound)
	}
	p.Active = active
	s.participants[id] = p
	return nil
}

// SetEventActive toggles the active flag of an event.
func (s *MemStore) SetEventActive(_ context.Context, id int64, active bool, at time.Time) error {
	defer observe(DriverMemory, "set_event_active", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return fmt.Errorf("event %d: %w", id, ErrNotFound)
	}
	e.Active = active
	e.UpdatedAt = at
	s.events[id] = e
	return nil
}

// CreateCriterion stores c with a new id. Names are unique within an event.
func (s *MemStore) CreateCriterion(_ context.Context, c model.Criterion) (model.Criterion, error) {
	defer observe(DriverMemory, "create_criterion", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.criteria {
		if existing.EventID == c.EventID && existing.Name == c.Name {
			return model.Criterion{}, fmt.Errorf("criterion %q: %w", c.Name, ErrConflict)
		}
	}
	c.ID = s.next("criteria")
	s.criteria[c.ID] = c
	return c, nil
}

// Criteria returns the criteria matching f ordered by id.
func (s *MemStore) Criteria(_ context.Context, f CriterionFilter) ([]model.Criterion, error) {
	defer observe(DriverMemory, "criteria", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Criterion, 0, len(s.criteria))
	for _, c := range s.criteria {
		if f.EventID != nil && c.EventID != *f.EventID {
			continue
		}
		if f.ActiveOnly && !c.Active {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SetCriterionActive toggles the active flag of a criterion.
func (s *MemStore) SetCriterionActive(_ context.Context, id int64, active bool) error {
	defer observe(DriverMemory, "set_criterion_active", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.criteria[id]
	if !ok {
		return fmt.Errorf("criterion %d: %w", id, ErrNotFound)
	}
	c.Active = active
	s.criteria[id] = c
	return nil
}

// FindEvaluations returns the evaluations in one slot, newest-first.
func (s *MemStore) FindEvaluations(_ context.Context, raterID int64, ref model.TargetRef, eventID int64) ([]model.Evaluation, error) {
	defer observe(DriverMemory, "find_evaluations", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := ref.Key()
	var out []model.Evaluation
	for _, e := range s.evaluations {
		if e.RaterID != raterID || e.EventID != eventID || e.Ref().Key() != key {
			continue
		}
		out = append(out, s.withScores(e))
	}
	dedupe.Newest(out)
	return out, nil
}

// Evaluations returns the evaluations matching f ordered by id.
func (s *MemStore) Evaluations(_ context.Context, f EvaluationFilter) ([]model.Evaluation, error) {
	defer observe(DriverMemory, "evaluations", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Evaluation, 0, len(s.evaluations))
	for _, e := range s.evaluations {
		if f.TargetID > 0 && e.TargetID != f.TargetID {
			continue
		}
		if f.RaterID > 0 && e.RaterID != f.RaterID {
			continue
		}
		if f.EventID != nil && e.EventID != *f.EventID {
			continue
		}
		out = append(out, s.withScores(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Evaluation returns one evaluation with its scores.
func (s *MemStore) Evaluation(_ context.Context, id int64) (model.Evaluation, error) {
	defer observe(DriverMemory, "evaluation", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.evaluations[id]
	if !ok {
		return model.Evaluation{}, fmt.Errorf("evaluation %d: %w", id, ErrNotFound)
	}
	return s.withScores(e), nil
}

// CountEvaluations returns the number of stored evaluations.
func (s *MemStore) CountEvaluations(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.evaluations), nil
}

// CreateEvaluation stores e without scores and returns it with its new id.
func (s *MemStore) CreateEvaluation(_ context.Context, e model.Evaluation) (model.Evaluation, error) {
	defer observe(DriverMemory, "create_evaluation", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = s.next("evaluations")
	e.Scores = nil
	s.evaluations[e.ID] = e
	return e, nil
}

// UpdateEvaluationComment replaces the comment of an evaluation.
func (s *MemStore) UpdateEvaluationComment(_ context.Context, id int64, comment string, at time.Time) error {
	defer observe(DriverMemory, "update_evaluation_comment", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.evaluations[id]
	if !ok {
		return fmt.Errorf("evaluation %d: %w", id, ErrNotFound)
	}
	e.Comment = comment
	e.UpdatedAt = at
	s.evaluations[id] = e
	return nil
}

// DeleteEvaluation removes an evaluation and its scores.
func (s *MemStore) DeleteEvaluation(_ context.Context, id int64) error {
	defer observe(DriverMemory, "delete_evaluation", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.evaluations[id]; !ok {
		return fmt.Errorf("evaluation %d: %w", id, ErrNotFound)
	}
	s.deleteEvaluationLocked(id)
	return nil
}

// DeleteEvaluations removes every evaluation rater made of ref.
func (s *MemStore) DeleteEvaluations(_ context.Context, raterID int64, ref model.TargetRef) (int, error) {
	defer observe(DriverMemory, "delete_evaluations", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ref.Key()
	n := 0
	for id, e := range s.evaluations {
		if e.RaterID == raterID && e.Ref().Key() == key {
			s.deleteEvaluationLocked(id)
			n++
		}
	}
	return n, nil
}

// DeleteAllEvaluations removes every evaluation and score.
func (s *MemStore) DeleteAllEvaluations(_ context.Context) (int, error) {
	defer observe(DriverMemory, "delete_all_evaluations", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.evaluations)
	s.evaluations = make(map[int64]model.Evaluation)
	s.scores = make(map[int64]model.Score)
	s.byEval = make(map[int64]map[int64]int64)
	return n, nil
}

// UpsertScore writes the score of criterionID within evaluationID.
func (s *MemStore) UpsertScore(_ context.Context, evaluationID, criterionID int64, value float64, at time.Time) (model.Score, error) {
	defer observe(DriverMemory, "upsert_score", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.evaluations[evaluationID]; !ok {
		return model.Score{}, fmt.Errorf("evaluation %d: %w", evaluationID, ErrNotFound)
	}
	idx, ok := s.byEval[evaluationID]
	if !ok {
		idx = make(map[int64]int64)
		s.byEval[evaluationID] = idx
	}
	if id, ok := idx[criterionID]; ok {
		sc := s.scores[id]
		sc.Value = value
		sc.UpdatedAt = at
		s.scores[id] = sc
		return sc, nil
	}
	sc := model.Score{
		ID:           s.next("scores"),
		EvaluationID: evaluationID,
		CriterionID:  criterionID,
		Value:        value,
		CreatedAt:    at,
		UpdatedAt:    at,
	}
	s.scores[sc.ID] = sc
	idx[criterionID] = sc.ID
	return sc, nil
}

// Score returns one score.
func (s *MemStore) Score(_ context.Context, id int64) (model.Score, error) {
	defer observe(DriverMemory, "score", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, ok := s.scores[id]
	if !ok {
		return model.Score{}, fmt.Errorf("score %d: %w", id, ErrNotFound)
	}
	return sc, nil
}

// UpdateScore replaces the value of a score.
func (s *MemStore) UpdateScore(_ context.Context, id int64, value float64, at time.Time) error {
	defer observe(DriverMemory, "update_score", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.scores[id]
	if !ok {
		return fmt.Errorf("score %d: %w", id, ErrNotFound)
	}
	sc.Value = value
	sc.UpdatedAt = at
	s.scores[id] = sc
	return nil
}

// DeleteScore removes one score.
func (s *MemStore) DeleteScore(_ context.Context, id int64) error {
	defer observe(DriverMemory, "delete_score", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.scores[id]
	if !ok {
		return fmt.Errorf("score %d: %w", id, ErrNotFound)
	}
	delete(s.scores, id)
	delete(s.byEval[sc.EvaluationID], sc.CriterionID)
	return nil
}

// Close is a no-op.
func (s *MemStore) Close() error { return nil }

// withScores must be called with s.mu held.
func (s *MemStore) withScores(e model.Evaluation) model.Evaluation {
	idx := s.byEval[e.ID]
	e.Scores = make([]model.Score, 0, len(idx))
	for _, id := range idx {
		e.Scores = append(e.Scores, s.scores[id])
	}
	sort.Slice(e.Scores, func(i, j int) bool { return e.Scores[i].ID < e.Scores[j].ID })
	return e
}

// deleteEvaluationLocked must be called with s.mu held for writing.
func (s *MemStore) deleteEvaluationLocked(id int64) {
	for _, sid := range s.byEval[id] {
		delete(s.scores, sid)
	}
	delete(s.byEval, id)
	delete(s.evaluations, id)
}
