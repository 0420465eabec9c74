package process

import (
	"context"
	"fmt"
	"time"

	"github.com/charleschow/edgeline/internal/events"
	"github.com/charleschow/edgeline/internal/telemetry"
	"github.com/google/uuid"
)

// Clock is a wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

// Job is one scheduled unit of work. Exactly one of Every or At must be
// set; a Weekday narrows a daily At to one day per week.
type Job struct {
	Name    string
	Every   time.Duration // interval jobs; first run one interval after boot
	At      *Clock        // daily jobs, local time
	Weekday *time.Weekday // with At: weekly instead of daily
	RunFunc func(ctx context.Context) error
}

// nextRun computes when a job fires next, strictly after now.
func nextRun(j *Job, now time.Time) time.Time {
	if j.Every > 0 {
		return now.Add(j.Every)
	}

	next := time.Date(now.Year(), now.Month(), now.Day(), j.At.Hour, j.At.Minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	if j.Weekday != nil {
		for next.Weekday() != *j.Weekday {
			next = next.AddDate(0, 0, 1)
		}
	}
	return next
}

// startScheduler launches one timer goroutine per job. Jobs serialize
// against each other through the pipeline's job mutex, so overlapping fire
// times queue rather than race on shared state.
func startScheduler(ctx context.Context, p *Pipeline, jobs []*Job) {
	for _, j := range jobs {
		go func(j *Job) {
			timer := time.NewTimer(time.Until(nextRun(j, time.Now())))
			defer timer.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-timer.C:
				}
				p.runJob(ctx, j)
				timer.Reset(time.Until(nextRun(j, time.Now())))
			}
		}(j)
	}
}

// runJob executes one job under the process-wide mutex with panic recovery.
// Failures are logged, counted, and surfaced to the operator as an alert
// event; the schedule keeps running.
func (p *Pipeline) runJob(ctx context.Context, j *Job) {
	p.jobMu.Lock()
	defer p.jobMu.Unlock()

	start := time.Now()
	telemetry.Metrics.JobRuns.Inc()
	telemetry.Debugf("job %s: start", j.Name)

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return j.RunFunc(ctx)
	}()

	if err != nil {
		telemetry.Metrics.JobErrors.Inc()
		telemetry.Errorf("job %s: %v", j.Name, err)
		p.bus.Publish(events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventRunAlert,
			Sport:     p.Sport,
			Timestamp: time.Now(),
			Payload: events.RunAlertEvent{
				Job:     j.Name,
				Message: "scheduled job failed",
				Err:     err.Error(),
			},
		})
		return
	}
	telemetry.Infof("job %s: done in %s", j.Name, time.Since(start).Round(time.Millisecond))
}

// defaultJobs is the production schedule: odds capture daily at 14:00,
// results + settlement every 6h, closing odds every 30m, the prediction run
// daily at 08:00, retrain Sunday 03:00, drift check Sunday 04:00.
func defaultJobs(p *Pipeline) []*Job {
	sunday := time.Sunday
	return []*Job{
		{Name: "capture_odds", At: &Clock{Hour: 14}, RunFunc: p.CaptureOdds},
		{Name: "ingest_results", Every: 6 * time.Hour, RunFunc: p.IngestResults},
		{Name: "closing_odds", Every: 30 * time.Minute, RunFunc: p.UpdateClosingOdds},
		{Name: "daily_picks", At: &Clock{Hour: 8}, RunFunc: p.DailyPicks},
		{Name: "retrain", At: &Clock{Hour: 3}, Weekday: &sunday, RunFunc: p.Retrain},
		{Name: "drift_check", At: &Clock{Hour: 4}, Weekday: &sunday, RunFunc: p.DriftCheck},
	}
}
