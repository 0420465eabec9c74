// Package process boots one sport pipeline: storage, model serving,
// ingestion clients, settlement, notifications, and the job scheduler that
// drives them. One process per sport, mirroring how the entry points under
// cmd/ are laid out.
package process

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/charleschow/edgeline/internal/config"
	"github.com/charleschow/edgeline/internal/core/model"
	"github.com/charleschow/edgeline/internal/events"
	"github.com/charleschow/edgeline/internal/ingest"
	"github.com/charleschow/edgeline/internal/notify"
	"github.com/charleschow/edgeline/internal/settle"
	"github.com/charleschow/edgeline/internal/store"
	"github.com/charleschow/edgeline/internal/telemetry"
)

// SportConfig captures the sport-specific pieces that differ between the
// soccer and basketball entry points.
type SportConfig struct {
	Sport    events.Sport
	SportKey string // "soccer", "basketball": used for logs + per-sport threshold lookup

	// Schedule optionally replaces the default job set. Nil gets
	// defaultJobs.
	Schedule func(p *Pipeline) []*Job
}

// Pipeline owns every long-lived collaborator of one sport process. Jobs
// run against it one at a time under jobMu.
type Pipeline struct {
	Sport    events.Sport
	sportKey string

	cfg      *config.Config
	store    *store.Store
	bus      *events.Bus
	registry *model.Registry
	odds     *ingest.OddsClient
	results  *ingest.OddsClient
	settler  *settle.Service
	notifier *notify.Notifier

	jobMu sync.Mutex
}

// NewPipeline wires a pipeline from config. The caller owns Close.
func NewPipeline(cfg *config.Config, spc SportConfig) (*Pipeline, error) {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	bus := events.NewBus(func(t events.EventType, err error) {
		telemetry.Warnf("event handler %s: %v", t, err)
	})

	resultsKey := cfg.ResultsAPIKey
	if resultsKey == "" {
		resultsKey = cfg.OddsAPIKey
	}

	p := &Pipeline{
		Sport:    spc.Sport,
		sportKey: spc.SportKey,
		cfg:      cfg,
		store:    st,
		bus:      bus,
		registry: model.NewRegistry(cfg.ModelDir),
		odds:     ingest.NewOddsClient(ingest.NewClient(cfg.OddsAPIBaseURL, cfg.OddsAPIKey, cfg.RequestTimeout, cfg.RequestsPerSec)),
		results:  ingest.NewOddsClient(ingest.NewClient(cfg.ResultsAPIBaseURL, resultsKey, cfg.RequestTimeout, cfg.RequestsPerSec)),
		settler:  settle.New(st, bus),
	}

	p.notifier = notify.New(cfg.TelegramToken, cfg.TelegramChatIDs)
	notify.SubscribeAll(bus, p.notifier)

	return p, nil
}

// Close releases the pipeline's resources. Safe after a partial boot.
func (p *Pipeline) Close() {
	p.notifier.Close()
	if p.store != nil {
		p.store.Close()
	}
}

// thresholds reads the YAML snapshot, narrows it to this sport, and overlays
// stored parameter overrides. One call per run; the result is threaded
// through the run, never re-read mid-flight.
func (p *Pipeline) thresholds() (config.Snapshot, error) {
	snap, err := config.LoadSnapshot(p.cfg.ThresholdsPath)
	if err != nil {
		return config.Snapshot{}, err
	}
	snap = snap.ForSport(p.sportKey)

	params, err := p.store.Params()
	if err != nil {
		return config.Snapshot{}, err
	}
	return snap.ApplyParams(params), nil
}

// Run boots a sport process and blocks until SIGINT/SIGTERM.
func Run(spc SportConfig) {
	cfg := config.Load()
	telemetry.Init(telemetry.ParseLogLevel(cfg.LogLevel))

	label := strings.ToUpper(spc.SportKey[:1]) + spc.SportKey[1:]
	telemetry.Infof("Starting %s pipeline", spc.SportKey)

	p, err := NewPipeline(cfg, spc)
	if err != nil {
		telemetry.Errorf("%s boot: %v", label, err)
		os.Exit(1)
	}
	defer p.Close()

	if bankroll, err := p.store.Bankroll(cfg.InitialBankroll); err != nil {
		telemetry.Warnf("bankroll read: %v", err)
	} else {
		telemetry.Infof("[%s] bankroll: $%.2f", label, bankroll)
		telemetry.Metrics.BankrollCents.Set(int64(bankroll * 100))
	}

	jobs := defaultJobs(p)
	if spc.Schedule != nil {
		jobs = spc.Schedule(p)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	startScheduler(ctx, p, jobs)

	telemetry.Infof("Scheduler running %d jobs for %s", len(jobs), spc.SportKey)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	telemetry.Infof("Shutting down %s...", spc.SportKey)
	cancel()

	telemetry.Infof("%s shutdown complete  jobs=%d  errors=%d  bets=%d  settled=%d",
		label,
		telemetry.Metrics.JobRuns.Value(),
		telemetry.Metrics.JobErrors.Value(),
		telemetry.Metrics.BetsProposed.Value(),
		telemetry.Metrics.BetsSettled.Value(),
	)
}
