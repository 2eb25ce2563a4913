// Package model contains domain models passed between layers.
package model

import "time"

// GlobalEvent is the event id of criteria and evaluations that belong to no
// event.
const GlobalEvent int64 = 0

// Event scopes a set of criteria and the evaluations made against them.
type Event struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Criterion is a named dimension on which participants are scored.
type Criterion struct {
	ID          int64   `json:"id"`
	EventID     int64   `json:"event_id"` // GlobalEvent when unscoped
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	MaxScore    float64 `json:"max_score"`
	Active      bool    `json:"active"`
}

// Participant is a registered person who can rate and be rated.
type Participant struct {
	ID        int64     `json:"id"`
	Nickname  string    `json:"nickname"`
	FullName  string    `json:"full_name"`
	Group     string    `json:"group"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
