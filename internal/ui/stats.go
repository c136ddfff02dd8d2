package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// TenantStatus describes one tenant partition's health.
type TenantStatus struct {
	TenantID string `json:"tenant_id"`

	// Per-store document counts. A healthy partition has all three equal.
	Documents    int `json:"documents"`
	KeywordCount int `json:"keyword_count"`
	VectorCount  int `json:"vector_count"`

	// Consistent is the outcome of the cross-store ID comparison.
	Consistent bool `json:"consistent"`

	KeywordBackend string `json:"keyword_backend"`
	VectorMetric   string `json:"vector_metric"`

	StorageBytes int64     `json:"storage_bytes"`
	LastIngest   time.Time `json:"last_ingest"`
}

// TelemetrySummary aggregates recorded search outcomes for display.
type TelemetrySummary struct {
	// Window describes the aggregation window, e.g. "24h" or "all time".
	Window   string `json:"window"`
	Searches int64  `json:"searches"`

	// Latency percentiles in milliseconds.
	P50 int64 `json:"p50_ms"`
	P95 int64 `json:"p95_ms"`
	P99 int64 `json:"p99_ms"`

	// TierCounts maps result tier to the number of searches that landed there.
	TierCounts map[string]int64 `json:"tier_counts,omitempty"`

	// RecentMS holds the latencies of the most recent searches, oldest
	// first, for the sparkline.
	RecentMS []int64 `json:"recent_ms,omitempty"`
}

// StatsReport is everything the stats command displays.
type StatsReport struct {
	Tenants   []TenantStatus    `json:"tenants"`
	Telemetry *TelemetrySummary `json:"telemetry,omitempty"`
}

// tierOrder fixes the display order of result tiers.
var tierOrder = []string{"HYBRID", "VECTOR_ONLY", "KEYWORD_ONLY", "UNAVAILABLE"}

// StatsRenderer displays partition and telemetry stats.
type StatsRenderer struct {
	out     io.Writer
	styles  Styles
	noColor bool
}

// NewStatsRenderer creates a stats renderer.
func NewStatsRenderer(out io.Writer, noColor bool) *StatsRenderer {
	return &StatsRenderer{
		out:     out,
		styles:  GetStyles(noColor),
		noColor: noColor,
	}
}

// Render displays the report to terminal.
func (r *StatsRenderer) Render(report StatsReport) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Riptide Status"))

	if len(report.Tenants) == 0 {
		_, _ = fmt.Fprintf(r.out, "  %s\n", r.styles.Dim.Render("No tenants found."))
	}

	for _, t := range report.Tenants {
		r.renderTenant(t)
	}

	if report.Telemetry != nil {
		r.renderTelemetry(*report.Telemetry)
	}

	return nil
}

func (r *StatsRenderer) renderTenant(t TenantStatus) {
	_, _ = fmt.Fprintf(r.out, "  %s\n", r.styles.Active.Render(t.TenantID))

	_, _ = fmt.Fprintf(r.out, "    Documents:   %d\n", t.Documents)
	_, _ = fmt.Fprintf(r.out, "    Keyword:     %d (%s)\n", t.KeywordCount, t.KeywordBackend)
	_, _ = fmt.Fprintf(r.out, "    Vectors:     %d (%s)\n", t.VectorCount, t.VectorMetric)
	_, _ = fmt.Fprintf(r.out, "    Storage:     %s\n", FormatBytes(t.StorageBytes))
	_, _ = fmt.Fprintf(r.out, "    Health:      %s\n", r.renderHealth(t.Consistent))
	if !t.LastIngest.IsZero() {
		_, _ = fmt.Fprintf(r.out, "    Last ingest: %s\n", formatTime(t.LastIngest))
	}
	_, _ = fmt.Fprintln(r.out)
}

func (r *StatsRenderer) renderTelemetry(t TelemetrySummary) {
	window := t.Window
	if window == "" {
		window = "all time"
	}
	_, _ = fmt.Fprintf(r.out, "  %s\n", r.styles.Active.Render("Searches ("+window+")"))

	_, _ = fmt.Fprintf(r.out, "    Total:   %d\n", t.Searches)
	if t.Searches > 0 {
		_, _ = fmt.Fprintf(r.out, "    Latency: p50 %dms  p95 %dms  p99 %dms\n", t.P50, t.P95, t.P99)
	}

	if len(t.TierCounts) > 0 {
		_, _ = fmt.Fprint(r.out, "    Tiers:  ")
		for _, tier := range tierOrder {
			count, ok := t.TierCounts[tier]
			if !ok {
				continue
			}
			_, _ = fmt.Fprintf(r.out, " %s %d", r.styles.TierBadge(tier), count)
		}
		_, _ = fmt.Fprintln(r.out)
	}

	if len(t.RecentMS) > 1 {
		samples := make([]float64, len(t.RecentMS))
		for i, ms := range t.RecentMS {
			samples[i] = float64(ms)
		}
		spark := RenderSamples(samples, 40)
		label := r.styles.Dim.Render("latency ─")
		_, _ = fmt.Fprintf(r.out, "    Recent:  %s %s\n", r.styles.Sparkline.Render(spark), label)
	}
}

// RenderJSON outputs the report as JSON.
func (r *StatsRenderer) RenderJSON(report StatsReport) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

// renderHealth formats the consistency outcome with color.
func (r *StatsRenderer) renderHealth(consistent bool) string {
	if consistent {
		return r.styles.Success.Render("consistent")
	}
	return r.styles.Error.Render("inconsistent")
}

// formatTime formats a time for display.
func formatTime(t time.Time) string {
	now := time.Now()
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("2006-01-02 15:04")
	}
}

// FormatBytes formats bytes to human-readable format.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
