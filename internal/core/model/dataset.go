package model

import (
	"fmt"
	"sort"
	"time"

	"github.com/charleschow/edgeline/internal/core/features"
	"github.com/charleschow/edgeline/internal/core/ratings"
	"github.com/charleschow/edgeline/internal/core/sports"
	"github.com/charleschow/edgeline/internal/events"
	"github.com/charleschow/edgeline/internal/telemetry"
)

// Dataset is a chronologically ordered training table. Rows and Dates share
// indices; Labels index into Classes.
type Dataset struct {
	Sport   events.Sport
	Classes []sports.Outcome
	Columns []string
	Rows    [][]float64
	Labels  []int
	Dates   []time.Time
	Skipped int
}

func (ds *Dataset) Len() int { return len(ds.Rows) }

// ClassesFor returns the outcome set a sport's matches can produce, in the
// order weight rows and calibrator slots use.
func ClassesFor(sport events.Sport) []sports.Outcome {
	if sport == events.SportBasketball {
		return []sports.Outcome{sports.OutcomeHomeWin, sports.OutcomeAwayWin}
	}
	return []sports.Outcome{sports.OutcomeHomeWin, sports.OutcomeDraw, sports.OutcomeAwayWin}
}

// BuildDataset replays resolved matches in date order, computing every
// feature vector strictly before its own result enters the ratings store.
// Rows that cannot be built cleanly are skipped, but their results still
// advance the ratings so later rows see correct state.
func BuildDataset(sport events.Sport, matches []sports.Match) (*Dataset, error) {
	classes := ClassesFor(sport)
	classIdx := make(map[sports.Outcome]int, len(classes))
	for i, c := range classes {
		classIdx[c] = i
	}

	ordered := make([]sports.Match, 0, len(matches))
	for _, m := range matches {
		if m.Resolved() {
			ordered = append(ordered, m)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Date.Before(ordered[j].Date) })

	store := ratings.NewStore()
	eng := features.NewEngine(store)

	ds := &Dataset{Sport: sport, Classes: classes, Columns: append([]string(nil), features.Order...)}
	for _, m := range ordered {
		if label, ok := classIdx[m.Result.Outcome]; !ok {
			telemetry.Warnf("dataset: %s %s outcome %q has no class, row skipped", sport, m.ID, m.Result.Outcome)
			ds.Skipped++
		} else if vec, err := eng.Build(m); err != nil {
			telemetry.Warnf("dataset: row %s skipped: %v", m.ID, err)
			ds.Skipped++
		} else {
			ds.Rows = append(ds.Rows, vec.Values(ds.Columns))
			ds.Labels = append(ds.Labels, label)
			ds.Dates = append(ds.Dates, m.Date)
			telemetry.Metrics.FeaturesBuilt.Inc()
		}
		if err := store.ApplyResult(m); err != nil {
			return nil, fmt.Errorf("dataset: apply %s: %w", m.ID, err)
		}
	}
	return ds, nil
}
