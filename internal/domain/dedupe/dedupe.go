// Package dedupe resolves the current evaluation among duplicates and
// serializes writes to the same evaluation key.
package dedupe

import (
	"sort"
	"strconv"
	"sync"

	"github.com/okian/peerscore/internal/domain/model"
)

// Newest orders evals newest-first by CreatedAt, then by ID for rows created
// in the same instant.
func Newest(evals []model.Evaluation) {
	sort.SliceStable(evals, func(i, j int) bool {
		a, b := evals[i], evals[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

// Current splits evaluations of one (rater, target, event) key into the
// current evaluation and the stale duplicates that should be removed.
// It returns nil when evals is empty. The input slice is reordered.
func Current(evals []model.Evaluation) (*model.Evaluation, []model.Evaluation) {
	if len(evals) == 0 {
		return nil, nil
	}
	Newest(evals)
	cur := evals[0]
	return &cur, evals[1:]
}

// Key identifies the evaluation slot of a rater for a target within an event.
func Key(raterID int64, ref model.TargetRef, eventID int64) string {
	return strconv.FormatInt(raterID, 10) + "|" + ref.Key() + "|" + strconv.FormatInt(eventID, 10)
}

// KeyOf returns the slot key of e.
func KeyOf(e model.Evaluation) string {
	return Key(e.RaterID, e.Ref(), e.EventID)
}

// Latest keeps only the current evaluation of every slot in evals and
// returns them newest-first. Stale rows are left in storage; only writes
// remove them.
func Latest(evals []model.Evaluation) []model.Evaluation {
	buf := append([]model.Evaluation(nil), evals...)
	Newest(buf)
	seen := make(map[string]struct{}, len(buf))
	out := buf[:0]
	for _, e := range buf {
		k := KeyOf(e)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, e)
	}
	return out
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// Locker hands out one mutex per key so that concurrent submissions for the
// same slot in this process are applied one after the other. Idle keys are
// released.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

// NewLocker returns an empty Locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*keyLock)}
}

// Lock blocks until key is free and returns the function that releases it.
func (l *Locker) Lock(key string) func() {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	kl.mu.Lock()
	return func() {
		kl.mu.Unlock()
		l.mu.Lock()
		kl.refs--
		if kl.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

// Size returns the number of keys currently held or awaited.
func (l *Locker) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
