package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/okian/peerscore/internal/domain/identity"
	"github.com/okian/peerscore/internal/domain/model"

	_ "modernc.org/sqlite"
)

const (
	defaultBusyTimeout  = 5 * time.Second
	defaultMaxOpenConns = 1
)

// SQLiteStore is a Store backed by a SQLite database file.
type SQLiteStore struct {
	db           *sql.DB
	busyTimeout  time.Duration
	maxOpenConns int
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at path and applies the
// schema.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{busyTimeout: defaultBusyTimeout, maxOpenConns: defaultMaxOpenConns}
	for _, opt := range opts {
		opt(s)
	}

	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", s.busyTimeout.Milliseconds()))
	db, err := sql.Open("sqlite", "file:"+path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(s.maxOpenConns)
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	s.db = db
	return s, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func notFound(err error, what string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("%s %d: %w", what, id, err)
}

func expectOne(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %d rows affected: %w", what, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return nil
}

// CreateParticipant inserts p. Nicknames are unique.
func (s *SQLiteStore) CreateParticipant(ctx context.Context, p model.Participant) (model.Participant, error) {
	defer observe(DriverSQLite, "create_participant", time.Now())
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO participants(nickname, full_name, grp, active, created_at) VALUES(?,?,?,?,?)`,
		p.Nickname, p.FullName, p.Group, p.Active, nanos(p.CreatedAt))
	if isUniqueViolation(err) {
		return model.Participant{}, fmt.Errorf("participant %q: %w", p.Nickname, ErrConflict)
	}
	if err != nil {
		return model.Participant{}, fmt.Errorf("insert participant: %w", err)
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return model.Participant{}, fmt.Errorf("participant last insert id: %w", err)
	}
	return p, nil
}

const participantCols = `id, nickname, full_name, grp, active, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanParticipant(row scanner) (model.Participant, error) {
	var (
		p       model.Participant
		created int64
	)
	if err := row.Scan(&p.ID, &p.Nickname, &p.FullName, &p.Group, &p.Active, &created); err != nil {
		return model.Participant{}, err
	}
	p.CreatedAt = fromNanos(created)
	return p, nil
}

// Participant returns the participant with id.
func (s *SQLiteStore) Participant(ctx context.Context, id int64) (model.Participant, error) {
	defer observe(DriverSQLite, "participant", time.Now())
	p, err := scanParticipant(s.db.QueryRowContext(ctx,
		`SELECT `+participantCols+` FROM participants WHERE id = ?`, id))
	if err != nil {
		return model.Participant{}, notFound(err, "participant", id)
	}
	return p, nil
}

// Participants returns every participant ordered by id.
func (s *SQLiteStore) Participants(ctx context.Context) ([]model.Participant, error) {
	defer observe(DriverSQLite, "participants", time.Now())
	rows, err := s.db.QueryContext(ctx, `SELECT `+participantCols+` FROM participants ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	var out []model.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateEvent inserts e.
func (s *SQLiteStore) CreateEvent(ctx context.Context, e model.Event) (model.Event, error) {
	defer observe(DriverSQLite, "create_event", time.Now())
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO events(name, description, active, created_at, updated_at) VALUES(?,?,?,?,?)`,
		e.Name, e.Description, e.Active, nanos(e.CreatedAt), nanos(e.UpdatedAt))
	if err != nil {
		return model.Event{}, fmt.Errorf("insert event: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return model.Event{}, fmt.Errorf("event last insert id: %w", err)
	}
	return e, nil
}

// Event returns the event with id.
func (s *SQLiteStore) Event(ctx context.Context, id int64) (model.Event, error) {
	defer observe(DriverSQLite, "event", time.Now())
	var (
		e                model.Event
		created, updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, active, created_at, updated_at FROM events WHERE id = ?`, id).
		Scan(&e.ID, &e.Name, &e.Description, &e.Active, &created, &updated)
	if err != nil {
		return model.Event{}, notFound(err, "event", id)
	}
	e.CreatedAt, e.UpdatedAt = fromNanos(created), fromNanos(updated)
	return e, nil
}

// SetParticipantActive toggles the active flag of a participant.
func (s *SQLiteStore) SetParticipantActive(ctx context.Context, id int64, active bool) error {
	defer observe(DriverSQLite, "set_participant_active", time.Now())
	res, err := s.db.ExecContext(ctx, `UPDATE participants SET active = ? WHERE id = ?`, active, id)
	if err != nil {
		return fmt.Errorf("update participant %d: %w", id, err)
	}
	return expectOne(res, "participant", id)
}

// SetEventActive toggles the active flag of an event.
func (s *SQLiteStore) SetEventActive(ctx context.Context, id int64, active bool, at time.Time) error {
	defer observe(DriverSQLite, "set_event_active", time.Now())
	res, err := s.db.ExecContext(ctx, `UPDATE events SET active = ?, updated_at = ? WHERE id = ?`, active, nanos(at), id)
	if err != nil {
		return fmt.Errorf("update event %d: %w", id, err)
	}
	return expectOne(res, "event", id)
}

// CreateCriterion inserts c. Names are unique within an event.
func (s *SQLiteStore) CreateCriterion(ctx context.Context, c model.Criterion) (model.Criterion, error) {
	defer observe(DriverSQLite, "create_criterion", time.Now())
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO criteria(event_id, name, description, max_score, active) VALUES(?,?,?,?,?)`,
		c.EventID, c.Name, c.Description, c.MaxScore, c.Active)
	if isUniqueViolation(err) {
		return model.Criterion{}, fmt.Errorf("criterion %q: %w", c.Name, ErrConflict)
	}
	if err != nil {
		return model.Criterion{}, fmt.Errorf("insert criterion: %w", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return model.Criterion{}, fmt.Errorf("criterion last insert id: %w", err)
	}
	return c, nil
}

// Criteria returns the criteria matching f ordered by id.
func (s *SQLiteStore) Criteria(ctx context.Context, f CriterionFilter) ([]model.Criterion, error) {
	defer observe(DriverSQLite, "criteria", time.Now())
	var (
		where []string
		args  []any
	)
	if f.EventID != nil {
		where = append(where, "event_id = ?")
		args = append(args, *f.EventID)
	}
	if f.ActiveOnly {
		where = append(where, "active = 1")
	}
	q := `SELECT id, event_id, name, description, max_score, active FROM criteria`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	rows, err := s.db.QueryContext(ctx, q+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("query criteria: %w", err)
	}
	defer rows.Close()

	var out []model.Criterion
	for rows.Next() {
		var c model.Criterion
		if err := rows.Scan(&c.ID, &c.EventID, &c.Name, &c.Description, &c.MaxScore, &c.Active); err != nil {
			return nil, fmt.Errorf("scan criterion: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SetCriterionActive toggles the active flag of a criterion.
func (s *SQLiteStore) SetCriterionActive(ctx context.Context, id int64, active bool) error {
	defer observe(DriverSQLite, "set_criterion_active", time.Now())
	res, err := s.db.ExecContext(ctx, `UPDATE criteria SET active = ? WHERE id = ?`, active, id)
	if err != nil {
		return fmt.Errorf("update criterion %d: %w", id, err)
	}
	return expectOne(res, "criterion", id)
}

// slotClause matches the evaluations of one target reference.
func slotClause(ref model.TargetRef) (string, []any) {
	if ref.ID > 0 {
		return "target_id = ?", []any{ref.ID}
	}
	return "target_id = 0 AND target_name_norm = ?", []any{identity.NormalizeName(ref.Name)}
}

// FindEvaluations returns the evaluations in one slot, newest-first.
func (s *SQLiteStore) FindEvaluations(ctx context.Context, raterID int64, ref model.TargetRef, eventID int64) ([]model.Evaluation, error) {
	defer observe(DriverSQLite, "find_evaluations", time.Now())
	clause, args := slotClause(ref)
	where := "rater_id = ? AND event_id = ? AND " + clause
	return s.loadEvaluations(ctx, where, append([]any{raterID, eventID}, args...), "created_at DESC, id DESC")
}

// Evaluations returns the evaluations matching f ordered by id.
func (s *SQLiteStore) Evaluations(ctx context.Context, f EvaluationFilter) ([]model.Evaluation, error) {
	defer observe(DriverSQLite, "evaluations", time.Now())
	where := []string{"1 = 1"}
	var args []any
	if f.TargetID > 0 {
		where = append(where, "target_id = ?")
		args = append(args, f.TargetID)
	}
	if f.RaterID > 0 {
		where = append(where, "rater_id = ?")
		args = append(args, f.RaterID)
	}
	if f.EventID != nil {
		where = append(where, "event_id = ?")
		args = append(args, *f.EventID)
	}
	return s.loadEvaluations(ctx, strings.Join(where, " AND "), args, "id")
}

// Evaluation returns one evaluation with its scores.
func (s *SQLiteStore) Evaluation(ctx context.Context, id int64) (model.Evaluation, error) {
	defer observe(DriverSQLite, "evaluation", time.Now())
	out, err := s.loadEvaluations(ctx, "id = ?", []any{id}, "id")
	if err != nil {
		return model.Evaluation{}, err
	}
	if len(out) == 0 {
		return model.Evaluation{}, fmt.Errorf("evaluation %d: %w", id, ErrNotFound)
	}
	return out[0], nil
}

// loadEvaluations reads the evaluations matching where, then their scores
// with a second query over the same condition.
func (s *SQLiteStore) loadEvaluations(ctx context.Context, where string, args []any, order string) ([]model.Evaluation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, rater_id, target_id, target_name, event_id, comment, created_at, updated_at
		 FROM evaluations WHERE `+where+` ORDER BY `+order, args...)
	if err != nil {
		return nil, fmt.Errorf("query evaluations: %w", err)
	}
	defer rows.Close()

	var (
		out   []model.Evaluation
		index = make(map[int64]int)
	)
	for rows.Next() {
		var (
			e                model.Evaluation
			created, updated int64
		)
		if err := rows.Scan(&e.ID, &e.RaterID, &e.TargetID, &e.TargetName, &e.EventID, &e.Comment, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		e.CreatedAt, e.UpdatedAt = fromNanos(created), fromNanos(updated)
		e.Scores = []model.Score{}
		index[e.ID] = len(out)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evaluations: %w", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	srows, err := s.db.QueryContext(ctx,
		`SELECT id, evaluation_id, criterion_id, score, created_at, updated_at FROM scores
		 WHERE evaluation_id IN (SELECT id FROM evaluations WHERE `+where+`) ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer srows.Close()
	for srows.Next() {
		sc, err := scanScore(srows)
		if err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		if i, ok := index[sc.EvaluationID]; ok {
			out[i].Scores = append(out[i].Scores, sc)
		}
	}
	return out, srows.Err()
}

func scanScore(row scanner) (model.Score, error) {
	var (
		sc               model.Score
		created, updated int64
	)
	if err := row.Scan(&sc.ID, &sc.EvaluationID, &sc.CriterionID, &sc.Value, &created, &updated); err != nil {
		return model.Score{}, err
	}
	sc.CreatedAt, sc.UpdatedAt = fromNanos(created), fromNanos(updated)
	return sc, nil
}

// CountEvaluations returns the number of stored evaluations.
func (s *SQLiteStore) CountEvaluations(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM evaluations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count evaluations: %w", err)
	}
	return n, nil
}

// CreateEvaluation inserts e without scores.
func (s *SQLiteStore) CreateEvaluation(ctx context.Context, e model.Evaluation) (model.Evaluation, error) {
	defer observe(DriverSQLite, "create_evaluation", time.Now())
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO evaluations(rater_id, target_id, target_name, target_name_norm, event_id, comment, created_at, updated_at)
		 VALUES(?,?,?,?,?,?,?,?)`,
		e.RaterID, e.TargetID, e.TargetName, targetNameKey(e), e.EventID, e.Comment, nanos(e.CreatedAt), nanos(e.UpdatedAt))
	if err != nil {
		return model.Evaluation{}, fmt.Errorf("insert evaluation: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return model.Evaluation{}, fmt.Errorf("evaluation last insert id: %w", err)
	}
	e.Scores = nil
	return e, nil
}

// UpdateEvaluationComment replaces the comment of an evaluation.
func (s *SQLiteStore) UpdateEvaluationComment(ctx context.Context, id int64, comment string, at time.Time) error {
	defer observe(DriverSQLite, "update_evaluation_comment", time.Now())
	res, err := s.db.ExecContext(ctx, `UPDATE evaluations SET comment = ?, updated_at = ? WHERE id = ?`, comment, nanos(at), id)
	if err != nil {
		return fmt.Errorf("update evaluation %d: %w", id, err)
	}
	return expectOne(res, "evaluation", id)
}

// DeleteEvaluation removes an evaluation; its scores cascade.
func (s *SQLiteStore) DeleteEvaluation(ctx context.Context, id int64) error {
	defer observe(DriverSQLite, "delete_evaluation", time.Now())
	res, err := s.db.ExecContext(ctx, `DELETE FROM evaluations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete evaluation %d: %w", id, err)
	}
	return expectOne(res, "evaluation", id)
}

// DeleteEvaluations removes every evaluation rater made of ref.
func (s *SQLiteStore) DeleteEvaluations(ctx context.Context, raterID int64, ref model.TargetRef) (int, error) {
	defer observe(DriverSQLite, "delete_evaluations", time.Now())
	clause, args := slotClause(ref)
	res, err := s.db.ExecContext(ctx, `DELETE FROM evaluations WHERE rater_id = ? AND `+clause, append([]any{raterID}, args...)...)
	if err != nil {
		return 0, fmt.Errorf("delete evaluations: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// DeleteAllEvaluations removes every evaluation and score.
func (s *SQLiteStore) DeleteAllEvaluations(ctx context.Context) (int, error) {
	defer observe(DriverSQLite, "delete_all_evaluations", time.Now())
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM scores`); err != nil {
		return 0, fmt.Errorf("clear scores: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM evaluations`)
	if err != nil {
		return 0, fmt.Errorf("clear evaluations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("evaluations rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return int(n), nil
}

// UpsertScore writes the score of criterionID within evaluationID.
func (s *SQLiteStore) UpsertScore(ctx context.Context, evaluationID, criterionID int64, value float64, at time.Time) (model.Score, error) {
	defer observe(DriverSQLite, "upsert_score", time.Now())
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Score{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM evaluations WHERE id = ?`, evaluationID).Scan(&exists); err != nil {
		return model.Score{}, fmt.Errorf("check evaluation %d: %w", evaluationID, err)
	}
	if exists == 0 {
		return model.Score{}, fmt.Errorf("evaluation %d: %w", evaluationID, ErrNotFound)
	}

	ts := nanos(at)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO scores(evaluation_id, criterion_id, score, created_at, updated_at) VALUES(?,?,?,?,?)
		 ON CONFLICT(evaluation_id, criterion_id) DO UPDATE SET score = excluded.score, updated_at = excluded.updated_at`,
		evaluationID, criterionID, value, ts, ts); err != nil {
		return model.Score{}, fmt.Errorf("upsert score: %w", err)
	}
	sc, err := scanScore(tx.QueryRowContext(ctx,
		`SELECT id, evaluation_id, criterion_id, score, created_at, updated_at FROM scores
		 WHERE evaluation_id = ? AND criterion_id = ?`, evaluationID, criterionID))
	if err != nil {
		return model.Score{}, fmt.Errorf("read back score: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Score{}, fmt.Errorf("commit tx: %w", err)
	}
	return sc, nil
}

// Score returns one score.
func (s *SQLiteStore) Score(ctx context.Context, id int64) (model.Score, error) {
	defer observe(DriverSQLite, "score", time.Now())
	sc, err := scanScore(s.db.QueryRowContext(ctx,
		`SELECT id, evaluation_id, criterion_id, score, created_at, updated_at FROM scores WHERE id = ?`, id))
	if err != nil {
		return model.Score{}, notFound(err, "score", id)
	}
	return sc, nil
}

// UpdateScore replaces the value of a score.
func (s *SQLiteStore) UpdateScore(ctx context.Context, id int64, value float64, at time.Time) error {
	defer observe(DriverSQLite, "update_score", time.Now())
	res, err := s.db.ExecContext(ctx, `UPDATE scores SET score = ?, updated_at = ? WHERE id = ?`, value, nanos(at), id)
	if err != nil {
		return fmt.Errorf("update score %d: %w", id, err)
	}
	return expectOne(res, "score", id)
}

// DeleteScore removes one score.
func (s *SQLiteStore) DeleteScore(ctx context.Context, id int64) error {
	defer observe(DriverSQLite, "delete_score", time.Now())
	res, err := s.db.ExecContext(ctx, `DELETE FROM scores WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete score %d: %w", id, err)
	}
	return expectOne(res, "score", id)
}
