package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/okian/peerscore/internal/adapters/repository"
	"github.com/okian/peerscore/internal/domain/dedupe"
	"github.com/okian/peerscore/internal/domain/identity"
	"github.com/okian/peerscore/internal/domain/model"
	"github.com/okian/peerscore/internal/domain/types"
	"github.com/okian/peerscore/pkg/metrics"
)

// Sort keys accepted by Results.
const (
	SortName      = "name"
	SortOverall   = "overall"
	SortAnomalies = "anomalies"
	SortRaters    = "raters"
)

// ResultsQuery selects and orders the results table.
type ResultsQuery struct {
	EventID int64  // model.GlobalEvent for unscoped evaluations
	Name    string // substring of the raw or normalized display name
	Group   string // substring of the normalized group
	Sort    string // SortName when empty or unknown
	Desc    bool
}

// group accumulates one normalized target identity.
type group struct {
	target     model.Target
	byCriteria map[int64][]float64
	totals     []float64
	raters     map[int64]struct{}
	evals      int
	scored     bool
}

// Results groups the current evaluations of an event by normalized target
// name and summarizes each group. The overall mean is the mean of
// per-evaluation totals, not the mean of per-criterion means.
func (s *Service) Results(ctx context.Context, q ResultsQuery) (rows []types.ResultsRow, err error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, "Service.Results",
		attribute.Int64("event.id", q.EventID),
		attribute.String("sort", q.Sort),
		attribute.Bool("desc", q.Desc),
	)
	defer func() {
		metrics.RecordComputeLatency("results", sinceMs(start))
		span.SetAttributes(attribute.Int("rows", len(rows)))
		endSpan(span, err)
	}()

	criteria, err := s.activeCriteria(ctx, q.EventID)
	if err != nil {
		return nil, err
	}
	if len(criteria) == 0 {
		return []types.ResultsRow{}, nil
	}
	active := make(map[int64]struct{}, len(criteria))
	for _, c := range criteria {
		active[c.ID] = struct{}{}
	}

	evals, err := s.store.Evaluations(ctx, repository.EvaluationFilter{EventID: &q.EventID})
	if err != nil {
		return nil, fmt.Errorf("load evaluations: %w", err)
	}
	current := dedupe.Latest(evals)
	sort.SliceStable(current, func(i, j int) bool { return current[i].ID < current[j].ID })

	resolve, err := s.targetResolver(ctx)
	if err != nil {
		return nil, err
	}

	var (
		groups []*group
		index  = make(map[string]*group)
	)
	for _, e := range current {
		target, ok := resolve(e)
		if !ok {
			continue
		}
		if !identity.MatchName(target.Name, q.Name) || !identity.MatchGroup(target.Group, q.Group) {
			continue
		}
		key := target.Key()
		g, ok := index[key]
		if !ok {
			g = &group{target: target, byCriteria: make(map[int64][]float64), raters: make(map[int64]struct{})}
			index[key] = g
			groups = append(groups, g)
		} else if g.target.Kind == model.TargetExternal && target.Kind == model.TargetIdentified {
			g.target = target
		}
		g.add(e, active)
	}

	rows = make([]types.ResultsRow, len(groups))
	for i, g := range groups {
		rows[i] = g.row(criteria)
	}
	if err := s.fillAnomalyCounts(ctx, groups, rows, active); err != nil {
		return nil, err
	}
	sortRows(rows, q.Sort, q.Desc)
	return rows, nil
}

func (g *group) add(e model.Evaluation, active map[int64]struct{}) {
	g.evals++
	g.raters[e.RaterID] = struct{}{}

	// An evaluation with no active scores contributes a zero total.
	var total float64
	for _, sc := range e.Scores {
		if _, ok := active[sc.CriterionID]; !ok {
			continue
		}
		g.byCriteria[sc.CriterionID] = append(g.byCriteria[sc.CriterionID], sc.Value)
		total += sc.Value
		g.scored = true
	}
	g.totals = append(g.totals, total)
}

func (g *group) row(criteria []model.Criterion) types.ResultsRow {
	row := types.ResultsRow{
		TargetID:    g.target.ID,
		Name:        g.target.Name,
		Group:       g.target.Group,
		Criteria:    make([]types.CriterionMean, 0, len(criteria)),
		Evaluations: g.evals,
		RatersCount: len(g.raters),
	}
	if g.scored {
		row.OverallMean = mean(g.totals)
	}
	for _, c := range criteria {
		values := g.byCriteria[c.ID]
		row.Criteria = append(row.Criteria, types.CriterionMean{
			CriterionID: c.ID,
			Name:        c.Name,
			Mean:        mean(values),
			Count:       len(values),
		})
	}
	return row
}

func mean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	m := sum / float64(len(values))
	return &m
}

// fillAnomalyCounts computes the anomaly count of every group backed by a
// registered participant. Free-text groups keep zero.
func (s *Service) fillAnomalyCounts(ctx context.Context, groups []*group, rows []types.ResultsRow, active map[int64]struct{}) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.statsWorkers)
	for i, grp := range groups {
		if grp.target.Kind != model.TargetIdentified {
			continue
		}
		g.Go(func() error {
			sample, err := s.sampleFor(gctx, grp.target.ID, active)
			if err != nil {
				return err
			}
			rows[i].AnomalyCount = s.anomalyCount(sample, active)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("count anomalies: %w", err)
	}
	return nil
}

// targetResolver returns a function mapping an evaluation to its target.
// Registered participants are preferred: by id, then by a unique match of
// the free-text name against the full names of active participants.
func (s *Service) targetResolver(ctx context.Context) (func(model.Evaluation) (model.Target, bool), error) {
	participants, err := s.store.Participants(ctx)
	if err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}
	byID := make(map[int64]model.Participant, len(participants))
	byName := make(map[string][]model.Participant, len(participants))
	for _, p := range participants {
		byID[p.ID] = p
		if !p.Active {
			continue
		}
		key := identity.NormalizeName(p.FullName)
		byName[key] = append(byName[key], p)
	}

	return func(e model.Evaluation) (model.Target, bool) {
		if p, ok := byID[e.TargetID]; ok && e.TargetID > 0 {
			return model.Identified(p.ID, p.FullName, p.Group), true
		}
		key := identity.NormalizeName(e.TargetName)
		if key == "" {
			return model.Target{}, false
		}
		if matches := byName[key]; len(matches) == 1 {
			p := matches[0]
			return model.Identified(p.ID, p.FullName, p.Group), true
		}
		return model.External(e.TargetName), true
	}, nil
}

func sortRows(rows []types.ResultsRow, key string, desc bool) {
	var less func(a, b types.ResultsRow) bool
	switch key {
	case SortOverall:
		sort.SliceStable(rows, func(i, j int) bool {
			a, b := rows[i].OverallMean, rows[j].OverallMean
			switch {
			case a == nil:
				return false
			case b == nil:
				return true
			case desc:
				return *a > *b
			}
			return *a < *b
		})
		return
	case SortAnomalies:
		less = func(a, b types.ResultsRow) bool { return a.AnomalyCount < b.AnomalyCount }
	case SortRaters:
		less = func(a, b types.ResultsRow) bool { return a.RatersCount < b.RatersCount }
	default:
		less = func(a, b types.ResultsRow) bool {
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if desc {
			return less(rows[j], rows[i])
		}
		return less(rows[i], rows[j])
	})
}
