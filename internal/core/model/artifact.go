package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charleschow/edgeline/internal/core/sports"
	"github.com/charleschow/edgeline/internal/events"
)

// artifact is the on-disk JSON form of a trained model.
type artifact struct {
	Variant     string           `json:"variant"`
	Sport       events.Sport     `json:"sport"`
	Classes     []sports.Outcome `json:"classes"`
	Columns     []string         `json:"columns"`
	Means       []float64        `json:"means"`
	Stds        []float64        `json:"stds"`
	Weights     [][]float64      `json:"weights"`
	Calibrators []*Isotonic      `json:"calibrators,omitempty"`
	TrainedAt   time.Time        `json:"trained_at"`
	Samples     int              `json:"samples"`
}

// ArtifactPath is where a sport's current model lives.
func ArtifactPath(dir string, sport events.Sport) string {
	return filepath.Join(dir, string(sport)+"_model.json")
}

// MetricsPath is the training report sidecar for a sport's model.
func MetricsPath(dir string, sport events.Sport) string {
	return filepath.Join(dir, string(sport)+"_model_metrics.json")
}

// Save writes the model artifact and its metrics sidecar. Both writes go
// through a temp file and rename so a concurrent loader never sees a torn
// file.
func Save(m *Model, report *Report, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create model dir: %w", err)
	}

	art := artifact{
		Variant:     m.Variant,
		Sport:       m.Sport,
		Classes:     m.Classes,
		Columns:     m.Columns,
		Means:       m.Means,
		Stds:        m.Stds,
		Weights:     m.Weights,
		Calibrators: m.Calibrators,
		TrainedAt:   m.TrainedAt,
		Samples:     m.Samples,
	}
	path := ArtifactPath(dir, m.Sport)
	if err := writeJSON(path, art); err != nil {
		return "", err
	}
	if report != nil {
		if err := writeJSON(MetricsPath(dir, m.Sport), report); err != nil {
			return "", err
		}
	}
	return path, nil
}

// LoadReport reads a metrics sidecar. A missing file returns nil, nil:
// hand-placed artifacts legitimately ship without one.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", filepath.Base(path), err)
	}
	return &r, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// Load reads and validates a model artifact. Unknown variant tags and
// structurally broken payloads are refused outright; serving uncalibrated
// weights that claim to be calibrated would corrupt every edge downstream.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrUnavailable, path)
		}
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}

	var art artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadArtifact, filepath.Base(path), err)
	}

	switch art.Variant {
	case VariantCalibrated:
		if len(art.Calibrators) != len(art.Classes) {
			return nil, fmt.Errorf("%w: %s tagged %s carries %d calibrators for %d classes",
				ErrBadArtifact, filepath.Base(path), art.Variant, len(art.Calibrators), len(art.Classes))
		}
		for i, c := range art.Calibrators {
			if c == nil || c.Points() == 0 {
				return nil, fmt.Errorf("%w: %s calibrator %d is empty", ErrBadArtifact, filepath.Base(path), i)
			}
		}
	case VariantBase:
		// raw softmax weights, no calibration payload expected
	default:
		return nil, fmt.Errorf("%w: %s has unknown variant %q", ErrBadArtifact, filepath.Base(path), art.Variant)
	}

	if err := validateShape(&art); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadArtifact, filepath.Base(path), err)
	}

	return &Model{
		Variant:     art.Variant,
		Sport:       art.Sport,
		Classes:     art.Classes,
		Columns:     art.Columns,
		Means:       art.Means,
		Stds:        art.Stds,
		Weights:     art.Weights,
		Calibrators: art.Calibrators,
		TrainedAt:   art.TrainedAt,
		Samples:     art.Samples,
	}, nil
}

func validateShape(a *artifact) error {
	k, d := len(a.Classes), len(a.Columns)
	if k < 2 {
		return fmt.Errorf("%d classes", k)
	}
	if d == 0 {
		return errors.New("no feature columns")
	}
	if len(a.Weights) != k {
		return fmt.Errorf("%d weight rows for %d classes", len(a.Weights), k)
	}
	for i, row := range a.Weights {
		if len(row) != d+1 {
			return fmt.Errorf("weight row %d has %d terms, want %d", i, len(row), d+1)
		}
	}
	if len(a.Means) != d || len(a.Stds) != d {
		return fmt.Errorf("scaler lengths %d/%d for %d columns", len(a.Means), len(a.Stds), d)
	}
	return nil
}
