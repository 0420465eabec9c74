package process

import (
	"context"
	"fmt"
	"time"

	"github.com/charleschow/edgeline/internal/core/drift"
	"github.com/charleschow/edgeline/internal/core/edge"
	"github.com/charleschow/edgeline/internal/core/features"
	"github.com/charleschow/edgeline/internal/core/model"
	"github.com/charleschow/edgeline/internal/core/ratings"
	"github.com/charleschow/edgeline/internal/core/stake"
	"github.com/charleschow/edgeline/internal/events"
	"github.com/charleschow/edgeline/internal/ingest"
	"github.com/charleschow/edgeline/internal/telemetry"
	"github.com/google/uuid"
)

// resultsLookbackDays is how far back the results job asks the scores
// endpoint to reach. The API caps this at 3.
const resultsLookbackDays = 3

// driftWindowDays splits feature and ROI history into a recent window of
// this many days against everything before it.
const driftWindowDays = 30

// CaptureOdds fetches the current market for every league feed, applies the
// quality filters, and writes a raw snapshot plus the canonical odds row.
func (p *Pipeline) CaptureOdds(ctx context.Context) error {
	upcoming, err := p.odds.FetchUpcoming(ctx, p.Sport)
	if err != nil {
		return fmt.Errorf("capture odds: %w", err)
	}

	stored, rejected := 0, 0
	for _, up := range upcoming {
		if reason := ingest.QualityReject(up); reason != "" {
			telemetry.Debugf("capture: %s rejected: %s", up.Match.ID, reason)
			telemetry.Metrics.SnapshotsRejected.Inc()
			rejected++
			continue
		}
		if err := p.store.InsertSnapshot(up.Match, up.Bookmakers); err != nil {
			return err
		}
		if err := p.store.UpsertCanonical(up.Match); err != nil {
			return err
		}
		telemetry.Metrics.MatchesFetched.Inc()
		stored++
	}

	p.publish(events.EventOddsCaptured, events.OddsCapturedEvent{
		Sport: p.Sport, Stored: stored, Rejected: rejected,
	})
	telemetry.Infof("capture: %d stored, %d rejected", stored, rejected)
	return nil
}

// IngestResults pulls recent final scores, records the fresh ones, and runs
// the settlement cascade over pending picks.
func (p *Pipeline) IngestResults(ctx context.Context) error {
	results, err := p.results.FetchResults(ctx, p.Sport, resultsLookbackDays)
	if err != nil {
		return fmt.Errorf("ingest results: %w", err)
	}

	fresh := 0
	for _, r := range results {
		ok, err := p.store.InsertResult(r)
		if err != nil {
			return err
		}
		if ok {
			telemetry.Metrics.ResultsIngested.Inc()
			fresh++
		}
	}

	resolved, err := p.settler.ResolvePending("results_api")
	if err != nil {
		return err
	}

	if ids, err := p.store.UnsettledBetIDs(); err == nil {
		telemetry.Metrics.PendingBets.Set(int64(len(ids)))
	}

	p.publish(events.EventResultsIngested, events.ResultsIngestedEvent{
		Sport: p.Sport, NewResults: fresh, PicksResolved: resolved,
	})
	telemetry.Infof("results: %d new, %d picks resolved", fresh, resolved)
	return nil
}

// UpdateClosingOdds refreshes the closing price for every open tracking row
// whose market is still quoted, recomputing CLV per leg and per bet.
func (p *Pipeline) UpdateClosingOdds(ctx context.Context) error {
	open, err := p.store.OpenCLVRows()
	if err != nil {
		return err
	}
	if len(open) == 0 {
		return nil
	}

	matchIDs := make(map[string]bool, len(open))
	for _, row := range open {
		matchIDs[row.MatchID] = true
	}

	closing, err := p.odds.FetchClosing(ctx, p.Sport, matchIDs)
	if err != nil {
		return fmt.Errorf("closing odds: %w", err)
	}
	if len(closing) == 0 {
		return nil
	}

	updated, err := p.settler.ApplyClosingOdds(closing)
	if err != nil {
		return err
	}
	telemetry.Debugf("closing: %d of %d legs updated", updated, len(open))
	return nil
}

// DailyPicks is the prediction run: fetch today's markets, build
// leakage-free features from stored history, predict, gate, compose the
// parlay, size the stake, and persist the proposed bet. Per-match failures
// are isolated; a missing model aborts the run.
func (p *Pipeline) DailyPicks(ctx context.Context) error {
	start := time.Now()
	defer func() { telemetry.Metrics.PredictRunLatency.Record(time.Since(start)) }()

	snap, err := p.thresholds()
	if err != nil {
		return fmt.Errorf("daily picks: %w", err)
	}

	m, err := p.registry.Get(p.Sport)
	if err != nil {
		return fmt.Errorf("daily picks: %w", err)
	}
	degraded := false
	if report, err := model.LoadReport(model.MetricsPath(p.cfg.ModelDir, p.Sport)); err != nil {
		telemetry.Warnf("daily picks: metrics sidecar: %v", err)
	} else if report != nil && report.ECEAfter > snap.Model.ECEWarnThreshold {
		telemetry.Warnf("daily picks: serving degraded, ECE %.4f over %.4f",
			report.ECEAfter, snap.Model.ECEWarnThreshold)
		degraded = true
	}

	upcoming, err := p.odds.FetchUpcoming(ctx, p.Sport)
	if err != nil {
		return fmt.Errorf("daily picks: %w", err)
	}

	// history feeds the ratings store so every feature reflects only
	// matches played before today
	resolved, err := p.store.ResolvedMatches(p.Sport)
	if err != nil {
		return fmt.Errorf("daily picks: %w", err)
	}
	rs := ratings.NewStore()
	for _, rm := range resolved {
		if err := rs.ApplyResult(rm); err != nil {
			return fmt.Errorf("daily picks: ratings replay %s: %w", rm.ID, err)
		}
	}
	eng := features.NewEngine(rs)

	analyzed := 0
	var picks []edge.Pick
	for _, up := range upcoming {
		if reason := ingest.QualityReject(up); reason != "" {
			telemetry.Metrics.SnapshotsRejected.Inc()
			continue
		}
		if err := p.store.InsertSnapshot(up.Match, up.Bookmakers); err != nil {
			return err
		}
		if err := p.store.UpsertCanonical(up.Match); err != nil {
			return err
		}

		vec, err := eng.Build(up.Match)
		if err != nil {
			telemetry.Debugf("daily picks: %s skipped: %v", up.Match.Label(), err)
			continue
		}
		if err := p.store.SaveFeatures(up.Match.ID, p.Sport, up.Match.Date, vec); err != nil {
			return err
		}

		pred, err := m.PredictProba(vec)
		if err != nil {
			telemetry.Warnf("daily picks: predict %s: %v", up.Match.ID, err)
			continue
		}
		telemetry.Metrics.PredictionsServed.Inc()
		analyzed++

		picks = append(picks, edge.Evaluate(pred, up.Match, snap.Picks)...)
	}

	for _, pk := range picks {
		if pk.Accepted {
			telemetry.Metrics.PicksAccepted.Inc()
		} else {
			telemetry.Metrics.PicksRejected.Inc()
		}
	}

	selected := edge.Diversify(picks, snap.Picks.MaxPicksPerLeague)
	runID := uuid.NewString()

	if len(selected) == 0 {
		p.publish(events.EventPicksGenerated, events.PicksGeneratedEvent{
			RunID: runID, Sport: p.Sport, MatchesAnalyzed: analyzed,
		})
		telemetry.Infof("daily picks: %d analyzed, nothing cleared the gates", analyzed)
		return nil
	}

	parlay := edge.BestParlay(selected, snap.Parlay)
	proposal := edge.Compose(selected[:1])
	if parlay != nil {
		proposal = *parlay
	}

	bankroll, err := p.store.Bankroll(p.cfg.InitialBankroll)
	if err != nil {
		return fmt.Errorf("daily picks: %w", err)
	}
	peak, err := p.store.PeakBankroll(50)
	if err != nil {
		return fmt.Errorf("daily picks: %w", err)
	}
	recent, err := p.store.RecentReturns(20)
	if err != nil {
		return fmt.Errorf("daily picks: %w", err)
	}

	dec := stake.Size(proposal.CombinedProb, proposal.TotalOdds, bankroll, stake.Context{
		Rules:         snap.Bankroll,
		RecentReturns: recent,
		PeakBankroll:  peak,
	})
	if dec.Stake > 0 {
		if _, err := p.store.InsertBet(runID, p.Sport, proposal, dec, bankroll, degraded); err != nil {
			return fmt.Errorf("daily picks: %w", err)
		}
	} else {
		telemetry.Infof("daily picks: no stake: %s", dec.Reason)
	}

	ev := events.PicksGeneratedEvent{
		RunID:           runID,
		Sport:           p.Sport,
		MatchesAnalyzed: analyzed,
		Stake:           dec.Stake,
		PotentialReturn: dec.PotentialReturn,
		PotentialProfit: dec.PotentialProfit,
		Degraded:        degraded,
	}
	for _, pk := range selected {
		ev.Picks = append(ev.Picks, events.PickSummary{
			MatchID: pk.MatchID, League: pk.League, Label: pk.Label,
			Outcome: string(pk.Outcome), Odds: pk.Odds,
			Probability: pk.Prob, Edge: pk.Edge,
		})
	}
	if parlay != nil {
		ev.Parlay = &events.ParlaySummary{
			Legs:         len(parlay.Picks),
			TotalOdds:    parlay.TotalOdds,
			CombinedProb: parlay.CombinedProb,
			Edge:         parlay.Edge,
		}
	}
	p.publish(events.EventPicksGenerated, ev)

	telemetry.Infof("daily picks: %d analyzed, %d selected, stake $%.2f",
		analyzed, len(selected), dec.Stake)
	return nil
}

// Retrain rebuilds the dataset from stored history and fits a fresh model.
// The artifact swap is atomic, so the registry picks the new weights up on
// its next load without a restart.
func (p *Pipeline) Retrain(ctx context.Context) error {
	snap, err := p.thresholds()
	if err != nil {
		return fmt.Errorf("retrain: %w", err)
	}

	matches, err := p.store.ResolvedMatches(p.Sport)
	if err != nil {
		return fmt.Errorf("retrain: %w", err)
	}

	ds, err := model.BuildDataset(p.Sport, matches)
	if err != nil {
		return fmt.Errorf("retrain: %w", err)
	}

	m, report, err := model.Train(ds, model.TrainConfig{
		MinSamples:         snap.Model.MinTrainSamples,
		Folds:              snap.Model.Folds,
		CalibrationHoldout: snap.Model.CalibrationHoldout,
		GapDays:            snap.Model.WalkForwardGapDays,
	})
	if err != nil {
		return fmt.Errorf("retrain: %w", err)
	}

	path, err := model.Save(m, report, p.cfg.ModelDir)
	if err != nil {
		return fmt.Errorf("retrain: %w", err)
	}
	p.registry.Invalidate(p.Sport)

	telemetry.Infof("retrain: %s from %d samples (ECE %.4f -> %.4f), wrote %s",
		m.Variant, ds.Len(), report.ECEBefore, report.ECEAfter, path)
	return nil
}

// DriftCheck compares the recent feature and ROI windows against the older
// baseline and raises an advisory event when either drifts. Nothing here
// swaps the model.
func (p *Pipeline) DriftCheck(ctx context.Context) error {
	rows, err := p.store.FeatureHistory(p.Sport)
	if err != nil {
		return fmt.Errorf("drift check: %w", err)
	}

	now := time.Now()
	cutoff := now.AddDate(0, 0, -driftWindowDays)
	baseline := make(map[string][]float64)
	recent := make(map[string][]float64)
	for _, row := range rows {
		dst := baseline
		if row.MatchDate.After(cutoff) {
			dst = recent
		}
		for name, v := range row.Vector {
			dst[name] = append(dst[name], v)
		}
	}

	baseReturns, err := p.store.SettledReturns(now.AddDate(0, 0, -2*driftWindowDays), cutoff)
	if err != nil {
		return fmt.Errorf("drift check: %w", err)
	}
	recentReturns, err := p.store.SettledReturns(cutoff, now)
	if err != nil {
		return fmt.Errorf("drift check: %w", err)
	}

	report := drift.Check(baseline, recent, mean(baseReturns), mean(recentReturns), drift.Config{})
	telemetry.Infof("drift: %s", report.Summary())

	if !report.Drifted() {
		return nil
	}

	ev := events.DriftFlaggedEvent{
		Sport:          p.Sport,
		ROIBaseline:    report.ROIBaseline,
		ROIRecent:      report.ROIRecent,
		PerformanceHit: report.ROIDrifted,
		CheckedAt:      report.CheckedAt,
	}
	for _, fr := range report.Features {
		if fr.Drifted {
			ev.Features = append(ev.Features, fr.Feature)
			if fr.Statistic > ev.MaxStatistic {
				ev.MaxStatistic = fr.Statistic
			}
		}
	}
	p.publish(events.EventDriftFlagged, ev)
	return nil
}

func (p *Pipeline) publish(typ events.EventType, payload any) {
	p.bus.Publish(events.Event{
		ID:        uuid.NewString(),
		Type:      typ,
		Sport:     p.Sport,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
