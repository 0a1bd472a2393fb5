package simulate

import (
	"cmp"
	crand "crypto/rand"
	"io"
	"slices"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/fernwell/caplog/internal/capacity"
	"github.com/fernwell/caplog/internal/errors"
)

const (
	daysPerYear = 365

	// Base capacity is a slow random walk clamped to a band well inside [0,1],
	// so daily modifiers can push entries into any state.
	initialBase  = 0.6
	baseFloor    = 0.3
	baseCeil     = 0.8
	baseDriftMax = 0.01

	crisisChance    = 0.02
	crisisMinDays   = 3
	crisisMaxDays   = 9
	recoveryChance  = 0.7
	recoveryMinDays = 3
	recoveryMaxDays = 7

	crisisPenalty = -0.3
	recoveryBonus = 0.2
	noiseHalfSpan = 0.15

	baselineEntries = 2
	crisisEntries   = 3

	categoryChance     = 0.6
	noNoteChance       = 0.6
	categoryNoteChance = 0.7
)

// entryWindowStarts maps entry index to the first hour of its window.
// Each window spans three hours: morning, midday, evening, night.
var entryWindowStarts = [...]int{7, 12, 17, 20}

// DayTrace reports one simulated day's latent state to a test hook.
// CrisisDays and RecoveryDays are the remaining counter values for the
// day being walked, before the end-of-day decrement.
type DayTrace struct {
	Date         time.Time
	Base         float64
	CrisisDays   int
	RecoveryDays int
	Entries      int
}

// walkState carries the simulation state across days within one Generate call.
// It is owned by the call and never shared.
type walkState struct {
	base         float64
	crisisDays   int
	recoveryDays int
}

// Generator produces synthetic capacity logs. A Generator owns its random
// source and is not safe for concurrent use; create one per goroutine.
type Generator struct {
	rng     Rand
	now     func() time.Time
	pools   capacity.NotePools
	trace   func(DayTrace)
	entropy io.Reader
}

// Option configures a Generator.
type Option func(*Generator)

// WithRand sets the random source. Tests supply deterministic fakes here.
func WithRand(r Rand) Option {
	return func(g *Generator) { g.rng = r }
}

// WithNow sets the clock used for the simulation anchor day.
func WithNow(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithPools sets the note pools observations draw from.
func WithPools(p capacity.NotePools) Option {
	return func(g *Generator) { g.pools = p }
}

// WithTrace registers a hook that receives every simulated day's latent state.
func WithTrace(fn func(DayTrace)) Option {
	return func(g *Generator) { g.trace = fn }
}

// New creates a Generator. Without options it uses an OS-seeded source,
// the real clock, and the built-in note pools.
func New(opts ...Option) *Generator {
	g := &Generator{
		now:   time.Now,
		pools: capacity.DefaultPools(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.rng = NewRandomSource()
	}
	// Observation IDs stay unique regardless of the injected Rand.
	g.entropy = ulid.Monotonic(crand.Reader, 0)
	return g
}

// Generate walks years*365 days up to (and including) the anchor day and
// returns every observation, sorted by timestamp descending.
func (g *Generator) Generate(years int) ([]capacity.Observation, error) {
	if years <= 0 {
		return nil, errors.NewInvalidArgument("years must be a positive integer")
	}

	totalDays := years * daysPerYear
	anchor := g.now()
	st := walkState{base: initialBase}

	out := make([]capacity.Observation, 0, baselineEntries*(totalDays+1))
	for d := totalDays; d >= 0; d-- {
		st = g.walkDay(st, anchor.AddDate(0, 0, -d), &out)
	}

	slices.SortFunc(out, func(a, b capacity.Observation) int {
		return cmp.Compare(b.Timestamp, a.Timestamp)
	})
	return out, nil
}

// walkDay advances the latent state one day and appends that day's observations.
func (g *Generator) walkDay(st walkState, day time.Time, out *[]capacity.Observation) walkState {
	st.base = capacity.Clamp(st.base+(g.rng.Float64()*2-1)*baseDriftMax, baseFloor, baseCeil)

	// A new crisis can only begin once both counters have run out.
	if st.crisisDays == 0 && st.recoveryDays == 0 && g.rng.Float64() < crisisChance {
		st.crisisDays = uniformInt(g.rng, crisisMinDays, crisisMaxDays)
	}

	// The recovery decision is drawn on the last crisis day but applied only
	// after the crisis counter reaches zero, so the counters are never
	// simultaneously positive.
	pendingRecovery := 0
	if st.crisisDays == 1 && g.rng.Float64() < recoveryChance {
		pendingRecovery = uniformInt(g.rng, recoveryMinDays, recoveryMaxDays)
	}

	inCrisis := st.crisisDays > 0
	inRecovery := st.recoveryDays > 0

	count := baselineEntries
	if inCrisis {
		count = crisisEntries
	}
	count += uniformInt(g.rng, -1, 1)

	for i := range count {
		*out = append(*out, g.entry(day, i, st.base, inCrisis, inRecovery))
	}

	if g.trace != nil {
		g.trace(DayTrace{
			Date:         day,
			Base:         st.base,
			CrisisDays:   st.crisisDays,
			RecoveryDays: st.recoveryDays,
			Entries:      count,
		})
	}

	if st.crisisDays > 0 {
		st.crisisDays--
		if st.crisisDays == 0 {
			st.recoveryDays = pendingRecovery
		}
	} else if st.recoveryDays > 0 {
		st.recoveryDays--
	}
	return st
}

// entry synthesizes one observation for the given day and entry index.
func (g *Generator) entry(day time.Time, idx int, base float64, inCrisis, inRecovery bool) capacity.Observation {
	win := idx
	if win >= len(entryWindowStarts) {
		win = len(entryWindowStarts) - 1
	}
	hour := entryWindowStarts[win] + uniformInt(g.rng, 0, 2)
	minute := uniformInt(g.rng, 0, 59)
	ts := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())

	cat := capacity.CategoryNone
	if g.rng.Float64() < categoryChance {
		cat = pickCategory(g.rng.Float64(), inCrisis)
	}

	score := base
	score += capacity.TimeOfDayModifier(hour)
	score += capacity.WeekdayModifier(ts.Weekday())
	score += cat.Modifier()
	if inCrisis {
		score += crisisPenalty
	}
	if inRecovery {
		score += recoveryBonus
	}
	score += (g.rng.Float64()*2 - 1) * noiseHalfSpan
	score = capacity.Clamp(score, 0, 1)

	obs := capacity.Observation{
		ID:        ulid.MustNew(ulid.Timestamp(ts), g.entropy).String(),
		State:     capacity.StateForScore(score),
		Timestamp: ts.UnixMilli(),
		Tags:      []string{},
	}
	if cat != capacity.CategoryNone {
		obs.Tags = []string{string(cat)}
	}
	if note := g.pickNote(cat); note != "" {
		obs.Note = &note
	}
	return obs
}

// pickCategory maps a uniform draw to a category. Crisis days skew the
// distribution toward sensory and demand causes.
func pickCategory(r float64, inCrisis bool) capacity.Category {
	if inCrisis {
		switch {
		case r < 0.4:
			return capacity.CategorySensory
		case r < 0.75:
			return capacity.CategoryDemand
		default:
			return capacity.CategorySocial
		}
	}
	switch {
	case r < 0.33:
		return capacity.CategorySensory
	case r < 0.66:
		return capacity.CategoryDemand
	default:
		return capacity.CategorySocial
	}
}

// pickNote draws the optional free-text note for an entry.
// Returns "" for no note.
func (g *Generator) pickNote(cat capacity.Category) string {
	if g.rng.Float64() < noNoteChance {
		return ""
	}
	pool := g.pools.General
	if cat != capacity.CategoryNone && g.rng.Float64() < categoryNoteChance {
		pool = g.pools.For(cat)
	}
	return pool[uniformInt(g.rng, 0, len(pool)-1)]
}

// uniformInt draws an integer uniformly from [lo, hi] inclusive.
func uniformInt(r Rand, lo, hi int) int {
	return lo + int(r.Float64()*float64(hi-lo+1))
}
