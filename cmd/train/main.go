package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/charleschow/edgeline/internal/config"
	"github.com/charleschow/edgeline/internal/core/model"
	"github.com/charleschow/edgeline/internal/events"
	"github.com/charleschow/edgeline/internal/store"
	"github.com/charleschow/edgeline/internal/telemetry"
)

func main() {
	cfg := config.Load()

	sport := flag.String("sport", "soccer", "sport to train: soccer or basketball")
	dbPath := flag.String("db", cfg.DBPath, "sqlite database path")
	modelDir := flag.String("models", cfg.ModelDir, "model artifact directory")
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

	matches, err := st.ResolvedMatches(events.Sport(*sport))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load history: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Training %s on %d resolved matches\n", *sport, len(matches))

	ds, err := model.BuildDataset(events.Sport(*sport), matches)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build dataset: %v\n", err)
		os.Exit(1)
	}

	m, report, err := model.Train(ds, model.TrainConfig{
		MinSamples:         snap.Model.MinTrainSamples,
		Folds:              snap.Model.Folds,
		CalibrationHoldout: snap.Model.CalibrationHoldout,
		GapDays:            snap.Model.WalkForwardGapDays,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "train: %v\n", err)
		os.Exit(1)
	}

	path, err := model.Save(m, report, *modelDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "save: %v\n", err)
		os.Exit(1)
	}

	printReport(report)
	if report.ECEAfter > snap.Model.ECEWarnThreshold {
		fmt.Printf("\nWARNING: ECE %.4f over the %.4f threshold — picks will be flagged degraded\n",
			report.ECEAfter, snap.Model.ECEWarnThreshold)
	}
	fmt.Printf("\nWrote %s\n", path)
}

func printReport(r *model.Report) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "samples\t%d\n", r.Samples)
	fmt.Fprintf(w, "skipped rows\t%d\n", r.Skipped)
	fmt.Fprintf(w, "cv accuracy\t%.4f\n", r.CVAccuracyMean)
	fmt.Fprintf(w, "cv log loss\t%.4f\n", r.CVLogLossMean)
	fmt.Fprintf(w, "ece before\t%.4f\n", r.ECEBefore)
	fmt.Fprintf(w, "ece after\t%.4f\n", r.ECEAfter)
	fmt.Fprintf(w, "ece improvement\t%.4f\n", r.ECEImprovement)
	w.Flush()

	if len(r.Folds) == 0 {
		return
	}
	fmt.Println("\nWalk-forward folds:")
	w = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "fold\ttrain\ttest\taccuracy\tlog loss")
	for _, f := range r.Folds {
		fmt.Fprintf(w, "%d\t%d\t%d\t%.4f\t%.4f\n", f.Fold, f.TrainSize, f.TestSize, f.Accuracy, f.LogLoss)
	}
	w.Flush()
}
