package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"FxSentinel/internal/model"
)

func directionIcon(d model.Direction) string {
	switch d {
	case model.Buy:
		return "🟢"
	case model.Sell:
		return "🔴"
	default:
		return "⚪"
	}
}

// FormatDecision formats an accepted trade decision into a Telegram message.
func FormatDecision(d *model.Decision) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("%s <b>%s %s</b> | %s\n\n",
		directionIcon(d.Direction), d.Direction, html.EscapeString(d.Symbol),
		d.CreatedAt.UTC().Format("2006-01-02 15:04 UTC")))
	b.WriteString(fmt.Sprintf("Price: %.5f\n", d.Price))
	b.WriteString(fmt.Sprintf("Confidence: %.0f%%\n", d.Percent()))
	if d.ZoneTimeframe != "" {
		b.WriteString(fmt.Sprintf("Zone: %s %s\n", d.ZoneTimeframe, model.SideFor(d.Direction)))
	}

	if len(d.Reasons) > 0 {
		b.WriteString("\n📈 <b>Reasons:</b>\n")
		for _, r := range d.Reasons {
			if r.Weight > 0 {
				b.WriteString(fmt.Sprintf("  • %s (+%.2f)\n", html.EscapeString(r.Text), r.Weight))
			} else {
				b.WriteString(fmt.Sprintf("  • %s\n", html.EscapeString(r.Text)))
			}
		}
	}
	b.WriteString(fmt.Sprintf("\nID: <code>%s</code>", d.ID))
	return b.String()
}

// FormatEvaluation formats one symbol's gate outcome, used for on-demand replies.
func FormatEvaluation(ev *model.Evaluation) string {
	if ev.Accepted && ev.Decision != nil {
		return FormatDecision(ev.Decision)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔍 <b>%s</b> | stopped at %s\n\n", html.EscapeString(ev.Symbol), ev.Stage))
	if ev.Direction != model.None {
		b.WriteString(fmt.Sprintf("Direction: %s %s\n", directionIcon(ev.Direction), ev.Direction))
	}
	if ev.Score > 0 {
		b.WriteString(fmt.Sprintf("Score: %.2f\n", ev.Score))
	}
	if c := ev.Consensus; c != nil {
		b.WriteString(fmt.Sprintf("Reversal: %d confirmed, quorum %d\n", c.Confirmed, c.Quorum))
		for _, v := range c.Verdicts {
			b.WriteString(fmt.Sprintf("  %s %s", v.Timeframe, v.Status))
			if len(v.Reasons) > 0 {
				b.WriteString(": " + html.EscapeString(strings.Join(v.Reasons, "; ")))
			}
			b.WriteString("\n")
		}
	}
	if s := ev.ZoneScan; s != nil && s.Nearest != nil {
		b.WriteString(fmt.Sprintf("Nearest zone: %s (price %.5f, tol %.5f)\n", s.Nearest, s.Price, s.Tolerance))
	}
	if ev.Reason != "" {
		b.WriteString(fmt.Sprintf("\n⚠️ %s", html.EscapeString(ev.Reason)))
	}
	return b.String()
}

// FormatCycleReport summarizes one evaluation cycle: one line per symbol and
// the selected decision, if any.
func FormatCycleReport(at time.Time, evals []*model.Evaluation, best *model.Decision) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>FxSentinel cycle</b> | %s\n\n", at.UTC().Format("2006-01-02 15:04 UTC")))

	if len(evals) == 0 {
		b.WriteString("No symbols evaluated.\n")
	}
	for _, ev := range evals {
		status := "⏸"
		if ev.Accepted {
			status = "✅"
		}
		b.WriteString(fmt.Sprintf("%s %s: %s", status, html.EscapeString(ev.Symbol), ev.Stage))
		if ev.Direction != model.None {
			b.WriteString(fmt.Sprintf(" %s", ev.Direction))
		}
		if ev.Score > 0 {
			b.WriteString(fmt.Sprintf(" %.2f", ev.Score))
		}
		b.WriteString("\n")
	}

	if best != nil {
		b.WriteString(fmt.Sprintf("\n🏆 Best: %s %s at %.0f%%", best.Direction, html.EscapeString(best.Symbol), best.Percent()))
	} else {
		b.WriteString("\nNo trade this cycle.")
	}
	return b.String()
}

// FormatDecisionHistory lists recorded decisions, newest first.
func FormatDecisionHistory(decisions []model.Decision) string {
	if len(decisions) == 0 {
		return "📦 No decisions recorded yet."
	}
	var b strings.Builder
	b.WriteString("📦 <b>Recent decisions</b>\n\n")
	for _, d := range decisions {
		b.WriteString(fmt.Sprintf("%s %s %s %.0f%% @ %.5f (%s)\n",
			d.CreatedAt.UTC().Format("01-02 15:04"), directionIcon(d.Direction),
			html.EscapeString(d.Symbol), d.Percent(), d.Price, d.ZoneTimeframe))
	}
	return b.String()
}
