package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/charleschow/edgeline/internal/backtest"
	"github.com/charleschow/edgeline/internal/config"
	"github.com/charleschow/edgeline/internal/core/autotune"
	"github.com/charleschow/edgeline/internal/core/model"
	"github.com/charleschow/edgeline/internal/events"
	"github.com/charleschow/edgeline/internal/store"
	"github.com/charleschow/edgeline/internal/telemetry"
)

var minEdgeGrid = []float64{0.02, 0.03, 0.05, 0.08}
var kellyGrid = []float64{0.10, 0.25, 0.50}

func main() {
	cfg := config.Load()

	sport := flag.String("sport", "soccer", "sport to replay: soccer or basketball")
	dbPath := flag.String("db", cfg.DBPath, "sqlite database path")
	bankroll := flag.Float64("bankroll", cfg.InitialBankroll, "starting bankroll")
	grid := flag.Bool("grid", false, "sweep min_edge x kelly_fraction instead of one run")
	curve := flag.Bool("curve", false, "print the equity curve of the single run")
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
	fmt.Printf("Replaying %d predicted %s matches from $%s\n\n",
		len(samples), *sport, humanize.CommafWithDigits(*bankroll, 2))

	if *grid {
		sweep(samples, snap, *bankroll)
		return
	}

	res := backtest.Run(samples, snap, *bankroll)
	printResult(res, *bankroll)
	if *curve {
		printCurve(res)
	}
}

// sweep replays the same sample under every min_edge x kelly_fraction pair
// and prints one row per combination.
func sweep(samples []autotune.Sample, snap config.Snapshot, bankroll float64) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "min_edge\tkelly\tbets\twin%\troi\tfinal\tmax_dd\tsharpe")
	for _, edge := range minEdgeGrid {
		for _, kelly := range kellyGrid {
			s := snap
			s.Picks.MinEdge = edge
			s.Bankroll.KellyFraction = kelly
			res := backtest.Run(samples, s, bankroll)
			fmt.Fprintf(w, "%.3f\t%.2f\t%d\t%.1f%%\t%+.1f%%\t$%s\t%.1f%%\t%.2f\n",
				edge, kelly, res.Bets, res.WinRate*100, res.ROI*100,
				humanize.CommafWithDigits(res.FinalBankroll, 2),
				res.MaxDrawdown*100, res.Sharpe)
		}
	}
	w.Flush()
}

func printResult(res backtest.Result, bankroll float64) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "bets\t%d\n", res.Bets)
	fmt.Fprintf(w, "wins\t%d (%.1f%%)\n", res.Wins, res.WinRate*100)
	fmt.Fprintf(w, "total staked\t$%s\n", humanize.CommafWithDigits(res.TotalStaked, 2))
	fmt.Fprintf(w, "profit\t$%s\n", humanize.CommafWithDigits(res.Profit, 2))
	fmt.Fprintf(w, "roi\t%+.1f%%\n", res.ROI*100)
	fmt.Fprintf(w, "final bankroll\t$%s\n", humanize.CommafWithDigits(res.FinalBankroll, 2))
	fmt.Fprintf(w, "max drawdown\t%.1f%%\n", res.MaxDrawdown*100)
	fmt.Fprintf(w, "sharpe\t%.2f\n", res.Sharpe)
	w.Flush()
}

func printCurve(res backtest.Result) {
	fmt.Println("\nEquity curve:")
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, pt := range res.Equity {
		fmt.Fprintf(w, "%s\t$%s\n", pt.Date.Format("2006-01-02"), humanize.CommafWithDigits(pt.Balance, 2))
	}
	w.Flush()
}
