package notify

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/charleschow/edgeline/internal/events"
)

// FormatPicks renders the daily picks summary message.
func FormatPicks(p events.PicksGeneratedEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎯 *Daily Picks — %s*\n", p.Sport)
	fmt.Fprintf(&b, "Matches analyzed: %d\n\n", p.MatchesAnalyzed)

	if len(p.Picks) == 0 {
		b.WriteString("No value found today. Sitting this one out.")
		return b.String()
	}

	for i, pick := range p.Picks {
		fmt.Fprintf(&b, "*%d. %s*\n", i+1, pick.Label)
		fmt.Fprintf(&b, "   %s @ %.2f  (prob %.1f%%, edge %+.1f%%)\n",
			outcomeText(pick.Outcome), pick.Odds, pick.Probability*100, pick.Edge*100)
	}

	if p.Parlay != nil {
		fmt.Fprintf(&b, "\n*Parlay* (%d legs)\n", p.Parlay.Legs)
		fmt.Fprintf(&b, "Total odds: %.2f\n", p.Parlay.TotalOdds)
		fmt.Fprintf(&b, "Combined probability: %.1f%%\n", p.Parlay.CombinedProb*100)
		fmt.Fprintf(&b, "Edge: %+.1f%%\n", p.Parlay.Edge*100)
	}

	if p.Stake > 0 {
		fmt.Fprintf(&b, "\n💰 Stake: $%s\n", humanize.CommafWithDigits(p.Stake, 2))
		fmt.Fprintf(&b, "Potential return: $%s (profit $%s)\n",
			humanize.CommafWithDigits(p.PotentialReturn, 2),
			humanize.CommafWithDigits(p.PotentialProfit, 2))
	}
	if p.Degraded {
		b.WriteString("\n⚠️ Model calibration is degraded — treat these picks with caution.")
	}
	return b.String()
}

// FormatPickSettled renders one leg's result.
func FormatPickSettled(p events.PickSettledEvent) string {
	icon := "❌"
	if p.Result == "won" {
		icon = "✅"
	}
	return fmt.Sprintf("%s Pick settled: *%s* — %s *%s*",
		icon, p.Label, outcomeText(p.Outcome), p.Result)
}

// FormatBetSettled renders a fully-resolved bet with its bankroll effect.
func FormatBetSettled(p events.BetSettledEvent) string {
	if p.Result == "won" {
		return fmt.Sprintf("✅ *Bet WON* (%d legs @ %.2f)\nStake $%s → profit *$%s*\nBankroll: $%s",
			p.Legs, p.TotalOdds,
			humanize.CommafWithDigits(p.Stake, 2),
			humanize.CommafWithDigits(p.ProfitLoss, 2),
			humanize.CommafWithDigits(p.BankrollAfter, 2))
	}
	return fmt.Sprintf("❌ *Bet lost* (%d legs @ %.2f)\nStake $%s\nBankroll: $%s",
		p.Legs, p.TotalOdds,
		humanize.CommafWithDigits(p.Stake, 2),
		humanize.CommafWithDigits(p.BankrollAfter, 2))
}

// FormatDrift renders an advisory drift report.
func FormatDrift(p events.DriftFlaggedEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📉 *Drift warning — %s*\n", p.Sport)
	if len(p.Features) > 0 {
		fmt.Fprintf(&b, "Feature drift: %s (max KS %.3f)\n",
			strings.Join(p.Features, ", "), p.MaxStatistic)
	}
	if p.PerformanceHit {
		fmt.Fprintf(&b, "ROI %.1f%% vs baseline %.1f%%\n", p.ROIRecent*100, p.ROIBaseline*100)
	}
	b.WriteString("Advisory only — review before retraining.")
	return b.String()
}

// FormatAlert renders a per-job operator alert.
func FormatAlert(p events.RunAlertEvent) string {
	msg := fmt.Sprintf("🚨 *%s failed*\n%s", p.Job, p.Message)
	if p.Err != "" {
		msg += "\n`" + p.Err + "`"
	}
	return msg
}

func outcomeText(outcome string) string {
	switch outcome {
	case "home_win":
		return "Home win"
	case "away_win":
		return "Away win"
	case "draw":
		return "Draw"
	}
	return outcome
}
