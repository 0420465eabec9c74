package model

import (
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/charleschow/edgeline/internal/events"
	"github.com/charleschow/edgeline/internal/telemetry"
)

// Registry serves loaded models by sport, reloading when the artifact file
// changes on disk. Concurrent reload requests collapse into one read.
type Registry struct {
	dir    string
	mu     sync.RWMutex
	loaded map[events.Sport]*regEntry
	sf     singleflight.Group
}

type regEntry struct {
	model   *Model
	modTime time.Time
}

func NewRegistry(dir string) *Registry {
	return &Registry{dir: dir, loaded: make(map[events.Sport]*regEntry)}
}

// Get returns the current model for a sport. ErrUnavailable means no
// artifact exists yet; a broken artifact is an error, never a silent
// fallback to stale weights.
func (r *Registry) Get(sport events.Sport) (*Model, error) {
	path := ArtifactPath(r.dir, sport)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrUnavailable, path)
		}
		return nil, fmt.Errorf("stat model %s: %w", path, err)
	}

	r.mu.RLock()
	entry := r.loaded[sport]
	r.mu.RUnlock()
	if entry != nil && entry.modTime.Equal(info.ModTime()) {
		return entry.model, nil
	}

	v, err, _ := r.sf.Do(string(sport), func() (any, error) {
		m, loadErr := Load(path)
		if loadErr != nil {
			telemetry.Metrics.ModelLoadErrors.Inc()
			return nil, loadErr
		}
		telemetry.Metrics.ModelLoads.Inc()
		r.mu.Lock()
		r.loaded[sport] = &regEntry{model: m, modTime: info.ModTime()}
		r.mu.Unlock()
		telemetry.Infof("model: loaded %s %s (%d samples, trained %s)",
			sport, m.Variant, m.Samples, m.TrainedAt.Format("2006-01-02"))
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Model), nil
}

// Invalidate drops the cached model for a sport, forcing a reload on the
// next Get. Called after retraining writes a fresh artifact.
func (r *Registry) Invalidate(sport events.Sport) {
	r.mu.Lock()
	delete(r.loaded, sport)
	r.mu.Unlock()
}
