package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/charleschow/edgeline/internal/config"
	"github.com/charleschow/edgeline/internal/core/drift"
	"github.com/charleschow/edgeline/internal/events"
	"github.com/charleschow/edgeline/internal/store"
	"github.com/charleschow/edgeline/internal/telemetry"
)

func main() {
	cfg := config.Load()

	sport := flag.String("sport", "soccer", "sport to check: soccer or basketball")
	dbPath := flag.String("db", cfg.DBPath, "sqlite database path")
	window := flag.Int("window", 30, "recent window in days; baseline is everything before it")
	flag.Parse()

	telemetry.Init(telemetry.ParseLogLevel(cfg.LogLevel))

	st, err := store.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	rows, err := st.FeatureHistory(events.Sport(*sport))
	if err != nil {
		fmt.Fprintf(os.Stderr, "feature history: %v\n", err)
		os.Exit(1)
	}

	now := time.Now()
	cutoff := now.AddDate(0, 0, -*window)
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

	baseReturns, err := st.SettledReturns(now.AddDate(0, 0, -2*(*window)), cutoff)
	if err != nil {
		fmt.Fprintf(os.Stderr, "baseline returns: %v\n", err)
		os.Exit(1)
	}
	recentReturns, err := st.SettledReturns(cutoff, now)
	if err != nil {
		fmt.Fprintf(os.Stderr, "recent returns: %v\n", err)
		os.Exit(1)
	}

	report := drift.Check(baseline, recent, mean(baseReturns), mean(recentReturns), drift.Config{})

	fmt.Printf("Drift check for %s, recent window %dd (%d baseline rows, %d recent)\n\n",
		*sport, *window, countRows(baseline), countRows(recent))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "feature\tks\tp-value\tbase n\trecent n\tstatus")
	for _, fr := range report.Features {
		status := "ok"
		if fr.Drifted {
			status = "DRIFT"
		}
		fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%d\t%d\t%s\n",
			fr.Feature, fr.Statistic, fr.PValue, fr.BaselineN, fr.RecentN, status)
	}
	w.Flush()

	for _, name := range report.Skipped {
		fmt.Printf("  (skipped %s: too few samples)\n", name)
	}

	fmt.Printf("\nROI baseline %+.1f%%  recent %+.1f%%", report.ROIBaseline*100, report.ROIRecent*100)
	if report.ROIDrifted {
		fmt.Print("  — performance drift")
	}
	fmt.Printf("\n%s\n", report.Summary())

	if report.Drifted() {
		os.Exit(2)
	}
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

func countRows(m map[string][]float64) int {
	n := 0
	for _, col := range m {
		if len(col) > n {
			n = len(col)
		}
	}
	return n
}
