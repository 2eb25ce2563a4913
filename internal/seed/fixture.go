// Package seed loads participants, events, criteria and evaluations into a
// running service, from a YAML fixture or a synthetic generator.
package seed

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Fixture is the YAML document accepted by Load.
type Fixture struct {
	Participants []Participant `yaml:"participants"`
	Events       []Event       `yaml:"events"`
	Criteria     []Criterion   `yaml:"criteria"`
	Evaluations  []Evaluation  `yaml:"evaluations"`
}

// Participant is a registered participant, referenced by nickname.
type Participant struct {
	Nickname string `yaml:"nickname"`
	FullName string `yaml:"full_name"`
	Group    string `yaml:"group"`
}

// Event is referenced by Key from criteria and evaluations.
type Event struct {
	Key         string `yaml:"key"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Active      bool   `yaml:"active"`
}

// Criterion belongs to the event named by Event, or is global when Event is
// empty.
type Criterion struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	MaxScore    float64 `yaml:"max_score"`
	Event       string  `yaml:"event"`
	Inactive    bool    `yaml:"inactive"`
}

// Evaluation is one submission. Target names a registered participant by
// nickname; TargetName addresses a free-text target instead. Scores are keyed
// by criterion name within the evaluation's event.
type Evaluation struct {
	Rater      string         `yaml:"rater"`
	Target     string         `yaml:"target"`
	TargetName string         `yaml:"target_name"`
	Event      string         `yaml:"event"`
	Comment    string         `yaml:"comment"`
	Scores     map[string]int `yaml:"scores"`
}

// Load reads a fixture file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Parse decodes a fixture. Unknown keys are rejected.
func Parse(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f Fixture
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFixture, err)
	}
	return &f, nil
}
