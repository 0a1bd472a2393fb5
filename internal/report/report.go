// Package report builds human-readable summaries of a dataset's statistics,
// as markdown for docs and optionally rendered to HTML.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/fernwell/caplog/internal/capacity"
	"github.com/fernwell/caplog/internal/ops"
)

// Markdown builds a markdown capacity report from a stats result.
func Markdown(out *ops.StatsOutput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Capacity report: %s\n\n", out.Dataset.Label())

	fmt.Fprintf(&b, "- Dataset ID: `%s`\n", out.Dataset.ID)
	fmt.Fprintf(&b, "- Years simulated: %d\n", out.Dataset.Years)
	if out.Dataset.Seed != nil {
		fmt.Fprintf(&b, "- Seed: %d\n", *out.Dataset.Seed)
	}
	fmt.Fprintf(&b, "- Created: %s\n", formatTime(out.Dataset.CreatedAt))
	fmt.Fprintf(&b, "- Observations: %s over %d days\n\n", formatCount(out.Stats.Total), out.SpanDays)

	b.WriteString("## States\n\n")
	b.WriteString("| State | Count | Share |\n")
	b.WriteString("| --- | ---: | ---: |\n")
	for _, s := range []capacity.State{capacity.StateResourced, capacity.StateStretched, capacity.StateDepleted} {
		n := out.Stats.ByState[string(s)]
		fmt.Fprintf(&b, "| %s | %s | %s |\n", s, formatCount(n), percent(n, out.Stats.Total))
	}
	b.WriteString("\n")

	b.WriteString("## Categories\n\n")
	b.WriteString("| Category | Count | Share |\n")
	b.WriteString("| --- | ---: | ---: |\n")
	tagged := 0
	for _, c := range capacity.Categories {
		n := out.Stats.ByCategory[string(c)]
		tagged += n
		fmt.Fprintf(&b, "| %s | %s | %s |\n", c, formatCount(n), percent(n, out.Stats.Total))
	}
	fmt.Fprintf(&b, "| (untagged) | %s | %s |\n\n",
		formatCount(out.Stats.Total-tagged), percent(out.Stats.Total-tagged, out.Stats.Total))

	b.WriteString("## Weekdays\n\n")
	b.WriteString("| Day | Count |\n")
	b.WriteString("| --- | ---: |\n")
	for i, n := range out.Stats.ByWeekday {
		fmt.Fprintf(&b, "| %s | %s |\n", time.Weekday(i), formatCount(n))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## Notes\n\n%s of %s observations carry a note (%s).\n",
		formatCount(out.Stats.WithNote), formatCount(out.Stats.Total),
		percent(out.Stats.WithNote, out.Stats.Total))

	if out.Stats.Total > 0 {
		fmt.Fprintf(&b, "\nObservations span %s to %s.\n",
			formatTime(out.Stats.OldestTS/1000), formatTime(out.Stats.NewestTS/1000))
	}

	return b.String()
}

// HTML renders the markdown report to HTML using goldmark.
func HTML(out *ops.StatsOutput) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(Markdown(out)), &buf); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

// formatTime formats a Unix timestamp as "2006-01-02 15:04" UTC.
func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}

// formatCount formats an integer with comma thousands separators.
func formatCount(n int) string {
	if n < 0 {
		return "-" + formatCount(-n)
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// percent formats n as a share of total with one decimal place.
func percent(n, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", 100*float64(n)/float64(total))
}
