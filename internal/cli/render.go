package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/xela07ax/threatwatch-dashboard/internal/domain"
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1).
			Width(22)

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func card(title, value string) string {
	return cardStyle.Render(dimStyle.Render(title) + "\n" + lipgloss.NewStyle().Bold(true).Render(value))
}

func connectionBadge(s domain.ConnectionState) string {
	switch s {
	case domain.ConnConnected:
		return successStyle.Render("● connected")
	case domain.ConnConnecting:
		return infoStyle.Render("◌ connecting")
	case domain.ConnDisconnected:
		return warningStyle.Render("○ disconnected")
	default:
		return errorStyle.Render("✖ error")
	}
}

func sourceBadge(s domain.SourceKind) string {
	switch s {
	case domain.SourceRemote:
		return successStyle.Render("live session data")
	case domain.SourceSynthesized:
		return warningStyle.Render("locally derived (service unreachable)")
	default:
		return dimStyle.Render("no data yet")
	}
}

func renderView(w io.Writer, v domain.View) {
	fmt.Fprintln(w, sectionStyle.Render("ThreatWatch Dashboard"))
	fmt.Fprintf(w, "Connection: %s   Source: %s", connectionBadge(v.Connection), sourceBadge(v.Source))
	if v.Fetching {
		fmt.Fprint(w, "   "+infoStyle.Render("refreshing…"))
	}
	fmt.Fprintln(w)

	if v.Session != nil {
		s := v.Session
		fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top,
			card("Logs processed", fmt.Sprintf("%d", s.TotalLogsProcessed)),
			card("Anomalies", fmt.Sprintf("%d", s.TotalAnomaliesDetected)),
			card("Normal", fmt.Sprintf("%d", s.NormalActivities)),
			card("Threat rate", fmt.Sprintf("%.2f%%", s.ThreatRatePercent)),
		))
		if s.SessionID != nil {
			fmt.Fprintln(w, dimStyle.Render("session "+*s.SessionID))
		}
	}
	if v.Charts != nil {
		renderCharts(w, *v.Charts)
	}
	if v.LastError != "" {
		fmt.Fprintln(w, errorStyle.Render("last error: ")+v.LastError)
	}
	if v.LastUpdated != "" {
		fmt.Fprintln(w, dimStyle.Render("updated "+v.LastUpdated))
	}
}

func renderCharts(w io.Writer, d domain.ChartDataset) {
	if n := len(d.Timeline.Timestamps); n > 0 {
		fmt.Fprintln(w, sectionStyle.Render("Timeline"))
		for i := 0; i < n; i++ {
			fmt.Fprintf(w, "  %s  normal %-6d anomalies %d\n",
				d.Timeline.Timestamps[i], at(d.Timeline.NormalCounts, i), at(d.Timeline.AnomalyCounts, i))
		}
	}
	if len(d.ThreatCategories.Categories) > 0 {
		fmt.Fprintln(w, sectionStyle.Render("Threat categories"))
		for i, c := range d.ThreatCategories.Categories {
			fmt.Fprintf(w, "  %-24s %s %d\n", c, bar(at(d.ThreatCategories.Counts, i)), at(d.ThreatCategories.Counts, i))
		}
	}
	if len(d.HourlyPattern.Periods) > 0 {
		fmt.Fprintln(w, sectionStyle.Render("Hourly pattern"))
		for i, p := range d.HourlyPattern.Periods {
			fmt.Fprintf(w, "  %s %s %d\n", p, bar(at(d.HourlyPattern.Counts, i)), at(d.HourlyPattern.Counts, i))
		}
	}
}

func renderAlerts(w io.Writer, list []domain.Alert) {
	if len(list) == 0 {
		fmt.Fprintln(w, dimStyle.Render("no alerts"))
		return
	}
	for _, a := range list {
		var style lipgloss.Style
		switch a.Kind {
		case domain.AlertSuccess:
			style = successStyle
		case domain.AlertWarning:
			style = warningStyle
		case domain.AlertError:
			style = errorStyle
		default:
			style = infoStyle
		}
		fmt.Fprintf(w, "%s %s %s\n", dimStyle.Render(a.Timestamp), style.Render(strings.ToUpper(string(a.Kind))), a.Message)
	}
}

func at(s []uint64, i int) uint64 {
	if i < len(s) {
		return s[i]
	}
	return 0
}

// bar — горизонтальная полоска, ограниченная 40 символами.
func bar(n uint64) string {
	return strings.Repeat("█", int(min(n, 40)))
}
