package backtest

import (
	"sort"

	"github.com/charleschow/edgeline/internal/core/autotune"
	"github.com/charleschow/edgeline/internal/core/features"
	"github.com/charleschow/edgeline/internal/core/model"
	"github.com/charleschow/edgeline/internal/core/ratings"
	"github.com/charleschow/edgeline/internal/core/sports"
	"github.com/charleschow/edgeline/internal/telemetry"
)

// BuildSamples replays resolved matches in date order and predicts each one
// with features computed strictly before its own result enters the ratings,
// the same discipline training uses. Matches whose features cannot be built
// (new teams, thin history) are skipped but still advance the ratings.
func BuildSamples(matches []sports.Match, m *model.Model) ([]autotune.Sample, error) {
	ordered := make([]sports.Match, 0, len(matches))
	for _, match := range matches {
		if match.Resolved() {
			ordered = append(ordered, match)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Date.Before(ordered[j].Date) })

	rs := ratings.NewStore()
	eng := features.NewEngine(rs)

	samples := make([]autotune.Sample, 0, len(ordered))
	for _, match := range ordered {
		if vec, err := eng.Build(match); err != nil {
			telemetry.Debugf("samples: %s skipped: %v", match.ID, err)
		} else if pred, err := m.PredictProba(vec); err != nil {
			telemetry.Warnf("samples: predict %s: %v", match.ID, err)
		} else {
			samples = append(samples, autotune.Sample{Match: match, Pred: pred})
		}
		if err := rs.ApplyResult(match); err != nil {
			return nil, err
		}
	}
	return samples, nil
}
