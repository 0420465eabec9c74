package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/charleschow/edgeline/internal/backtest"
	"github.com/charleschow/edgeline/internal/config"
	"github.com/charleschow/edgeline/internal/core/autotune"
	"github.com/charleschow/edgeline/internal/core/model"
	"github.com/charleschow/edgeline/internal/events"
	"github.com/charleschow/edgeline/internal/store"
	"github.com/charleschow/edgeline/internal/telemetry"
)

func main() {
	cfg := config.Load()

	sport := flag.String("sport", "soccer", "sport to tune: soccer or basketball")
	dbPath := flag.String("db", cfg.DBPath, "sqlite database path")
	budget := flag.Duration("budget", 2*time.Minute, "wall-clock search budget")
	maxCombos := flag.Int("combos", 24, "threshold combinations to evaluate")
	sampleSize := flag.Int("sample", 200, "most recent settled matches to replay")
	apply := flag.Bool("apply", false, "write the winning thresholds as parameter overrides")
	flag.Parse()

	telemetry.Init(telemetry.ParseLogLevel(cfg.LogLevel))

	snap, err := config.LoadSnapshot(cfg.ThresholdsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "thresholds: %v\n", err)
		os.Exit(1)
	}
	snap = snap.ForSport(*sport)

	st, err := store.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	m, err := model.Load(model.ArtifactPath(cfg.ModelDir, events.Sport(*sport)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "model: %v\n", err)
		os.Exit(1)
	}

	matches, err := st.ResolvedMatches(events.Sport(*sport))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load history: %v\n", err)
		os.Exit(1)
	}
	samples, err := backtest.BuildSamples(matches, m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Tuning %s over %d predicted matches\n\n", *sport, len(samples))

	res := autotune.Run(context.Background(), samples, autotune.Options{
		Base:          snap.Picks,
		SampleSize:    *sampleSize,
		MaxCombos:     *maxCombos,
		Budget:        *budget,
		KellyFraction: snap.Bankroll.KellyFraction,
	})

	printTrials(res)

	if res.Best == nil {
		fmt.Println("\nNo combination produced enough bets to trust; keeping current thresholds.")
		return
	}

	best := *res.Best
	fmt.Printf("\nBest: min_edge=%.3f min_prob=%.2f odds=[%.2f, %.2f]  score=%.4f (roi %.1f%%, %d bets)\n",
		best.MinEdge, best.MinProbability, best.MinOdds, best.MaxOdds,
		res.BestMetrics.Score, res.BestMetrics.ROI*100, res.BestMetrics.N)
	if res.Partial {
		fmt.Printf("Search was cut short at %d of the requested combinations.\n", res.Evaluated)
	}

	if !*apply {
		fmt.Println("\nDry run; pass -apply to store these as parameter overrides.")
		return
	}
	if err := st.SetParams(autotune.ParamMap(best)); err != nil {
		fmt.Fprintf(os.Stderr, "apply: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("\nParameter overrides stored; the next prediction run picks them up.")
}

func printTrials(res autotune.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "min_edge\tmin_prob\tmin_odds\tmax_odds\tbets\troi\twin%\tscore")
	for _, tr := range res.Trials {
		fmt.Fprintf(w, "%.3f\t%.2f\t%.2f\t%.2f\t%d\t%+.1f%%\t%.1f%%\t%.4f\n",
			tr.Criteria.MinEdge, tr.Criteria.MinProbability,
			tr.Criteria.MinOdds, tr.Criteria.MaxOdds,
			tr.Metrics.N, tr.Metrics.ROI*100, tr.Metrics.WinRate*100, tr.Metrics.Score)
	}
	w.Flush()
	fmt.Printf("\n%d combinations evaluated in %s\n", res.Evaluated, res.Elapsed.Round(time.Millisecond))
}
