package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/riptide-search/riptide/internal/config"
	"github.com/riptide-search/riptide/internal/engine"
	"github.com/riptide-search/riptide/internal/logging"
	"github.com/riptide-search/riptide/internal/output"
	"github.com/riptide-search/riptide/internal/source"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit  int
	format string // "text", "json"
	types  []string
	tags   []string
	after  string
	before string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <tenant> <query>",
		Short: "Search a tenant's corpus",
		Long: `Run one hybrid search against a tenant's corpus.

The vector and keyword sources are queried concurrently and their
rankings fused. When a source times out or fails, the other still
answers and the tier line reports the degradation; an empty result
set with tier UNAVAILABLE means both sources were down, not that
nothing matched.`,
		Example: `  riptide search acme "onboarding checklist"
  riptide search acme "rate limits" -n 5 --type article
  riptide search acme "incident review" --tag postmortem --after 2026-01-01
  riptide search acme "quota policy" --format json`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args[1:], " ")
			return runSearch(cmd.Context(), cmd, args[0], query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().StringSliceVarP(&opts.types, "type", "t", nil, "Keep documents of this type (repeatable, any-of)")
	cmd.Flags().StringSliceVar(&opts.tags, "tag", nil, "Keep documents carrying this tag (repeatable, all-of)")
	cmd.Flags().StringVar(&opts.after, "after", "", "Keep documents created at or after this time (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.before, "before", "", "Keep documents created at or before this time (RFC3339 or YYYY-MM-DD)")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, tenantID, query string, opts searchOptions) error {
	logCfg := logging.DefaultConfig()
	logCfg.WriteToStderr = false
	if _, cleanup, err := logging.Setup(logCfg); err == nil {
		defer cleanup()
	}

	out := output.New(cmd.OutOrStdout())

	filters, err := buildFilters(opts)
	if err != nil {
		return err
	}

	root := findRoot()
	cfg, err := config.Load(root)
	if err != nil {
		return err
	}

	if !hasTenants(cfg.ResolveDataDir(root)) {
		return fmt.Errorf("no index found in %s\nRun 'riptide index <tenant> <corpus>' first", root)
	}

	st, err := openStack(ctx, root, cfg, stackOptions{telemetry: true})
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	slog.Info("search_started",
		slog.String("tenant_id", tenantID),
		slog.Int("limit", opts.limit))

	outcome, err := st.engine.HybridSearch(ctx, engine.SearchRequest{
		TenantID: tenantID,
		Query:    query,
		TopK:     opts.limit,
		Filters:  filters,
	})
	if err != nil {
		out.Failure(err)
		return err
	}

	slog.Info("search_complete",
		slog.String("tier", string(outcome.Tier)),
		slog.Int("results", len(outcome.Results)),
		slog.Int64("elapsed_ms", outcome.ElapsedMS))

	if opts.format == "json" {
		return formatSearchJSON(cmd, outcome)
	}
	return formatSearchText(out, query, outcome)
}

// buildFilters maps flag values onto the source predicate. nil means no
// filtering, which lets the clients skip the metadata pre-pass.
func buildFilters(opts searchOptions) (any, error) {
	f := source.Filters{Types: opts.types, Tags: opts.tags}

	var err error
	if opts.after != "" {
		if f.After, err = parseTimeFlag(opts.after); err != nil {
			return nil, fmt.Errorf("invalid --after value %q: %w", opts.after, err)
		}
	}
	if opts.before != "" {
		if f.Before, err = parseTimeFlag(opts.before); err != nil {
			return nil, fmt.Errorf("invalid --before value %q: %w", opts.before, err)
		}
	}

	if f.IsZero() {
		return nil, nil
	}
	return f, nil
}

// parseTimeFlag accepts RFC3339 or a bare date.
func parseTimeFlag(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}

// formatSearchText renders the outcome for humans.
func formatSearchText(out *output.Writer, query string, outcome *engine.FusionOutcome) error {
	if outcome.Tier != engine.TierHybrid {
		out.Warningf("Degraded search: tier %s (%s)", outcome.Tier, outcome.DegradedReason)
	}

	if len(outcome.Results) == 0 {
		if outcome.Tier == engine.TierUnavailable {
			out.Error("Both search sources were unavailable; results may exist.")
			return nil
		}
		out.Status("", fmt.Sprintf("No results found for %q", query))
		return nil
	}

	out.Statusf("🔍", "Found %d results for %q (%s, %dms):",
		len(outcome.Results), query, outcome.Tier, outcome.ElapsedMS)
	out.Newline()

	for i, r := range outcome.Results {
		out.Statusf("", "%d. %s (score: %.3f)", i+1, r.DocID, r.CombinedScore)
		out.Status("", "   "+describeSources(r))
	}
	return nil
}

// describeSources summarizes which source contributed what.
func describeSources(r *engine.FusedResult) string {
	switch {
	case r.FromVector() && r.FromKeyword():
		return fmt.Sprintf("vector %.3f + keyword %.3f", r.VectorScore, r.KeywordScore)
	case r.FromVector():
		return fmt.Sprintf("vector %.3f", r.VectorScore)
	default:
		return fmt.Sprintf("keyword %.3f", r.KeywordScore)
	}
}

// formatSearchJSON renders the outcome for scripts.
func formatSearchJSON(cmd *cobra.Command, outcome *engine.FusionOutcome) error {
	type jsonResult struct {
		DocID         string   `json:"doc_id"`
		CombinedScore float64  `json:"combined_score"`
		Sources       []string `json:"sources"`
		VectorScore   float64  `json:"vector_score,omitempty"`
		KeywordScore  float64  `json:"keyword_score,omitempty"`
	}
	type jsonOutcome struct {
		Results        []jsonResult `json:"results"`
		Tier           string       `json:"tier"`
		ElapsedMS      int64        `json:"elapsed_ms"`
		DegradedReason string       `json:"degraded_reason,omitempty"`
	}

	o := jsonOutcome{
		Results:        make([]jsonResult, 0, len(outcome.Results)),
		Tier:           string(outcome.Tier),
		ElapsedMS:      outcome.ElapsedMS,
		DegradedReason: string(outcome.DegradedReason),
	}
	for _, r := range outcome.Results {
		sources := make([]string, 0, len(r.Sources))
		for _, s := range r.Sources {
			sources = append(sources, string(s))
		}
		o.Results = append(o.Results, jsonResult{
			DocID:         r.DocID,
			CombinedScore: r.CombinedScore,
			Sources:       sources,
			VectorScore:   r.VectorScore,
			KeywordScore:  r.KeywordScore,
		})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(o)
}
