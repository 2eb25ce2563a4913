package model

import (
	"strconv"

	"github.com/okian/peerscore/internal/domain/identity"
)

// TargetKind distinguishes registered participants from free-text names.
type TargetKind int

const (
	TargetIdentified TargetKind = iota + 1
	TargetExternal
)

func (k TargetKind) String() string {
	switch k {
	case TargetIdentified:
		return "identified"
	case TargetExternal:
		return "external"
	}
	return "unknown"
}

// Target is a resolved evaluation target. External targets have no stable id
// and never receive anomaly counts.
type Target struct {
	Kind  TargetKind
	ID    int64
	Name  string
	Group string
}

// Identified returns a target backed by a registered participant.
func Identified(id int64, name, group string) Target {
	return Target{Kind: TargetIdentified, ID: id, Name: name, Group: group}
}

// External returns a target known only by a free-text name.
func External(name string) Target {
	return Target{Kind: TargetExternal, Name: name}
}

// Key returns the normalized name used to group a target in results.
func (t Target) Key() string {
	return identity.NormalizeName(t.Name)
}

// TargetRef is how a submission names its target.
type TargetRef struct {
	ID   int64  `json:"target_id,omitempty"`
	Name string `json:"target_name,omitempty"`
}

// IsZero reports whether r names no target.
func (r TargetRef) IsZero() bool {
	return r.ID <= 0 && identity.NormalizeName(r.Name) == ""
}

// Key returns a comparison key: the id for registered targets, otherwise the
// normalized name.
func (r TargetRef) Key() string {
	if r.ID > 0 {
		return "id:" + strconv.FormatInt(r.ID, 10)
	}
	return "name:" + identity.NormalizeName(r.Name)
}
