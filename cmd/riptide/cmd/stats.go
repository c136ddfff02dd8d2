package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/riptide-search/riptide/internal/config"
	"github.com/riptide-search/riptide/internal/ingest"
	"github.com/riptide-search/riptide/internal/store"
	"github.com/riptide-search/riptide/internal/telemetry"
	"github.com/riptide-search/riptide/internal/ui"
)

func newStatsCmd() *cobra.Command {
	var (
		jsonOutput bool
		noColor    bool
		window     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show tenant partitions and search telemetry",
		Long: `Display per-tenant index statistics and recorded search telemetry.

For each tenant: per-store document counts, keyword backend, vector
metric, storage size, and whether the three stores agree on the
document set. When telemetry is enabled, latency percentiles and the
tier distribution over the chosen window follow.`,
		Example: `  riptide stats
  riptide stats --window 1h
  riptide stats --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd.Context(), cmd, jsonOutput, noColor, window)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	cmd.Flags().DurationVar(&window, "window", 24*time.Hour, "Telemetry aggregation window (0 for all time)")

	return cmd
}

func runStats(ctx context.Context, cmd *cobra.Command, jsonOutput, noColor bool, window time.Duration) error {
	root := findRoot()
	cfg, err := config.Load(root)
	if err != nil {
		return err
	}
	dataDir := cfg.ResolveDataDir(root)

	if !hasTenants(dataDir) {
		return fmt.Errorf("no index found in %s\nRun 'riptide index <tenant> <corpus>' first", root)
	}

	st, err := openStack(ctx, root, cfg, stackOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	report := ui.StatsReport{}

	tenants, err := st.registry.List()
	if err != nil {
		return err
	}
	for _, id := range tenants {
		status, err := tenantStatus(ctx, st, id)
		if err != nil {
			return fmt.Errorf("inspect tenant %s: %w", id, err)
		}
		report.Tenants = append(report.Tenants, status)
	}

	if cfg.TelemetryEnabled() {
		if summary, err := telemetrySummary(ctx, dataDir, window); err == nil {
			report.Telemetry = summary
		}
	}

	renderer := ui.NewStatsRenderer(cmd.OutOrStdout(), noColor || !ui.IsTTY(cmd.OutOrStdout()))
	if jsonOutput {
		return renderer.RenderJSON(report)
	}
	return renderer.Render(report)
}

// tenantStatus gathers one partition's counts, consistency, and on-disk
// footprint.
func tenantStatus(ctx context.Context, st *searchStack, tenantID string) (ui.TenantStatus, error) {
	p, err := st.registry.Get(tenantID)
	if err != nil {
		return ui.TenantStatus{}, err
	}

	metaCount, err := p.Meta.Count(ctx)
	if err != nil {
		return ui.TenantStatus{}, err
	}

	report, err := ingest.CheckPartition(ctx, p)
	if err != nil {
		return ui.TenantStatus{}, err
	}

	backend := string(store.DetectKeywordBackend(filepath.Join(p.Dir(), "keyword")))
	if backend == "" {
		backend = st.cfg.Search.KeywordBackend
	}

	size, lastMod := dirFootprint(p.Dir())

	return ui.TenantStatus{
		TenantID:       p.TenantID(),
		Documents:      metaCount,
		KeywordCount:   p.Keyword.Stats().DocumentCount,
		VectorCount:    p.Vector.Count(),
		Consistent:     report.Consistent(),
		KeywordBackend: backend,
		VectorMetric:   p.Vector.Metric(),
		StorageBytes:   size,
		LastIngest:     lastMod,
	}, nil
}

// telemetrySummary reads the recorded outcomes for display. Missing or
// empty telemetry is not an error; the section is simply omitted.
func telemetrySummary(ctx context.Context, dataDir string, window time.Duration) (*ui.TelemetrySummary, error) {
	dbPath := filepath.Join(dataDir, telemetry.DBFileName)
	if _, err := os.Stat(dbPath); err != nil {
		return nil, err
	}

	ts, err := telemetry.Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = ts.Close() }()

	pct, err := ts.LatencyPercentiles(ctx, window)
	if err != nil {
		return nil, err
	}
	if pct.Count == 0 {
		return nil, fmt.Errorf("no outcomes recorded")
	}

	tiers, err := ts.TierCounts(ctx, window)
	if err != nil {
		return nil, err
	}

	recent, err := ts.RecentOutcomes(ctx, 30)
	if err != nil {
		return nil, err
	}
	// RecentOutcomes is newest first; the sparkline reads oldest first.
	recentMS := make([]int64, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		recentMS = append(recentMS, recent[i].ElapsedMS)
	}

	windowLabel := "all time"
	if window > 0 {
		windowLabel = window.String()
	}

	return &ui.TelemetrySummary{
		Window:     windowLabel,
		Searches:   pct.Count,
		P50:        pct.P50,
		P95:        pct.P95,
		P99:        pct.P99,
		TierCounts: tiers,
		RecentMS:   recentMS,
	}, nil
}

// dirFootprint sums file sizes under dir and reports the newest mtime.
func dirFootprint(dir string) (int64, time.Time) {
	var size int64
	var last time.Time
	_ = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		size += info.Size()
		if info.ModTime().After(last) {
			last = info.ModTime()
		}
		return nil
	})
	return size, last
}
