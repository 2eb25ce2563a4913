package seed

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// Generator defaults.
const (
	DefaultParticipants    = 30
	DefaultRatersPerTarget = 8
	DefaultOutlierRate     = 0.05
	defaultMaxScore        = 10
	randomFloatDivisor     = 1_000_000
)

var (
	firstNames = []string{"Ivan", "Petr", "Anna", "Maria", "Oleg", "Elena", "Sergey", "Olga", "Dmitry", "Irina"}
	lastNames  = []string{"Ivanov", "Petrov", "Sidorov", "Kuznetsov", "Smirnov", "Popov", "Volkov", "Sokolov", "Orlov", "Lebedev"}
	criteria   = []string{"Teamwork", "Design", "Presentation", "Code quality"}
)

// tier is the score range a target's raters aim for, as fractions of the
// criterion maximum.
type tier struct{ lo, hi float64 }

var tiers = []tier{
	{0.3, 0.7}, // average, most common
	{0.3, 0.7}, // average
	{0.7, 0.9}, // high
	{0.0, 0.3}, // low
	{0.9, 1.0}, // elite
	{0.6, 0.8}, // mid-high
	{0.2, 0.4}, // mid-low
	{0.0, 1.0}, // anywhere
}

// GeneratorConfig sizes a synthetic fixture.
type GeneratorConfig struct {
	Participants    int
	RatersPerTarget int
	// OutlierRate is the probability that a score lands at the opposite end
	// of the range from the target's tier.
	OutlierRate float64
	// FreeTextEvery makes every nth evaluation address its target by a
	// spacing and case variant of the full name instead of by id. Zero
	// disables it.
	FreeTextEvery int
}

// DefaultGeneratorConfig returns the defaults used by peerctl.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Participants:    DefaultParticipants,
		RatersPerTarget: DefaultRatersPerTarget,
		OutlierRate:     DefaultOutlierRate,
		FreeTextEvery:   7,
	}
}

// Generate builds a fixture where every participant is rated by
// RatersPerTarget distinct peers on every global criterion.
func Generate(cfg GeneratorConfig) (*Fixture, error) {
	if cfg.Participants < 2 {
		return nil, fmt.Errorf("%w: at least 2 participants are required", ErrInvalidFixture)
	}
	if cfg.RatersPerTarget < 1 || cfg.RatersPerTarget >= cfg.Participants {
		return nil, fmt.Errorf("%w: raters per target must be in [1, %d]", ErrInvalidFixture, cfg.Participants-1)
	}

	f := &Fixture{}
	for _, name := range criteria {
		f.Criteria = append(f.Criteria, Criterion{Name: name, MaxScore: defaultMaxScore})
	}

	for i := 0; i < cfg.Participants; i++ {
		first := firstNames[i%len(firstNames)]
		last := lastNames[(i/len(firstNames))%len(lastNames)]
		name := fmt.Sprintf("%s %s", last, first)
		if i >= len(firstNames)*len(lastNames) {
			name = fmt.Sprintf("%s %d", name, i)
		}
		f.Participants = append(f.Participants, Participant{
			Nickname: uuid.NewString(),
			FullName: name,
			Group:    fmt.Sprintf("IU7-%d%dB", 2+i%3, 1+i%4),
		})
	}

	n := 0
	for t, target := range f.Participants {
		tr := tiers[randomInt(len(tiers))]
		for k := 1; k <= cfg.RatersPerTarget; k++ {
			rater := f.Participants[(t+k)%len(f.Participants)]
			e := Evaluation{Rater: rater.Nickname, Target: target.Nickname, Scores: make(map[string]int, len(criteria))}
			n++
			if cfg.FreeTextEvery > 0 && n%cfg.FreeTextEvery == 0 {
				e.Target, e.TargetName = "", variant(target.FullName)
			}
			for _, c := range criteria {
				e.Scores[c] = draw(tr, cfg.OutlierRate)
			}
			f.Evaluations = append(f.Evaluations, e)
		}
	}
	return f, nil
}

// draw returns an integer score in [0, defaultMaxScore] from tr, or from the
// far end of the range with probability outlierRate.
func draw(tr tier, outlierRate float64) int {
	if randomFloat() < outlierRate {
		if (tr.lo+tr.hi)/2 >= 0.5 {
			return 0
		}
		return defaultMaxScore
	}
	v := (tr.lo + randomFloat()*(tr.hi-tr.lo)) * defaultMaxScore
	return int(math.Round(v))
}

// variant upper-cases the name and pads it with extra whitespace.
func variant(name string) string {
	return "  " + strings.ToUpper(strings.ReplaceAll(name, " ", "   ")) + " "
}

// randomFloat returns a random float64 in [0, 1) using crypto/rand.
func randomFloat() float64 {
	return float64(randomInt(randomFloatDivisor)) / randomFloatDivisor
}

func randomInt(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}
