package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/riptide-search/riptide/internal/config"
	"github.com/riptide-search/riptide/internal/preflight"
)

func newDoctorCmd() *cobra.Command {
	var (
		verbose    bool
		jsonOutput bool
		offline    bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check system requirements and diagnose issues",
		Long: `Run system diagnostics to ensure Riptide can operate correctly.

Checks:
  - Configuration validity (.riptide.yaml and RIPTIDE_* overrides)
  - Data directory writability
  - Disk space and memory availability
  - File descriptor limits
  - Embedder availability (Ollama reachability and model, when configured)
  - Tenant partition locks

Embedder and lock checks are warnings, not failures: a held lock
usually just means 'riptide serve' is running.`,
		Example: `  # Run diagnostics
  riptide doctor

  # Verbose output with details
  riptide doctor --verbose

  # JSON output for scripting
  riptide doctor --json

  # Skip the network probe
  riptide doctor --offline`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, verbose, jsonOutput, offline)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed diagnostic info")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip checks that need the network")

	return cmd
}

func runDoctor(cmd *cobra.Command, verbose, jsonOutput, offline bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := findRoot()

	checker := preflight.New(
		preflight.WithOffline(offline),
		preflight.WithVerbose(verbose),
		preflight.WithOutput(cmd.OutOrStdout()),
	)

	results := checker.RunAll(ctx, root)

	if jsonOutput {
		return outputDoctorJSON(cmd, checker, results)
	}

	checker.PrintResults(results)

	// A passing run refreshes the marker so the bare 'riptide' start can
	// skip re-checking.
	cfg, err := config.Load(root)
	if err == nil && !checker.HasCriticalFailures(results) {
		dataDir := cfg.ResolveDataDir(root)
		_ = preflight.MarkPassed(dataDir)
		if age := preflight.MarkerAge(dataDir); age > 0 {
			cmd.Printf("\nLast successful check: %s ago\n", formatAge(age))
		}
	}

	if checker.HasCriticalFailures(results) {
		return fmt.Errorf("system check failed")
	}
	return nil
}

// DoctorJSON is the machine-readable doctor report.
type DoctorJSON struct {
	Status   string            `json:"status"`
	Checks   []DoctorCheckJSON `json:"checks"`
	Warnings []string          `json:"warnings,omitempty"`
	Errors   []string          `json:"errors,omitempty"`
}

// DoctorCheckJSON is a single check result for JSON output.
type DoctorCheckJSON struct {
	Name     string `json:"name"`
	Status   string `json:"status"`
	Message  string `json:"message"`
	Required bool   `json:"required"`
	Details  string `json:"details,omitempty"`
}

func outputDoctorJSON(cmd *cobra.Command, checker *preflight.Checker, results []preflight.CheckResult) error {
	out := DoctorJSON{
		Status: checker.SummaryStatus(results),
		Checks: make([]DoctorCheckJSON, len(results)),
	}

	for i, r := range results {
		out.Checks[i] = DoctorCheckJSON{
			Name:     r.Name,
			Status:   r.Status.String(),
			Message:  r.Message,
			Required: r.Required,
			Details:  r.Details,
		}
		if r.IsCritical() {
			out.Errors = append(out.Errors, r.Name+": "+r.Message)
		} else if r.Status == preflight.StatusWarn {
			out.Warnings = append(out.Warnings, r.Name+": "+r.Message)
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// formatAge renders a marker age coarsely; minute precision is plenty.
func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "less than a minute"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
