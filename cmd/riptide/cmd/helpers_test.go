package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/riptide-search/riptide/internal/store"
)

// tempProject moves the test into a fresh directory with an isolated HOME
// and XDG_CONFIG_HOME, so command runs never touch the real user's config
// or log files. Returns the project root.
func tempProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, ".config"))

	oldDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tmpDir))
	t.Cleanup(func() { _ = os.Chdir(oldDir) })

	return tmpDir
}

// runCLI executes a fresh root command with args and returns the combined
// stdout/stderr text.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

// writeCorpus writes docs as one JSONL file under dir and returns its path.
func writeCorpus(t *testing.T, dir, name string, docs []*store.Document) string {
	t.Helper()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, d := range docs {
		require.NoError(t, enc.Encode(d))
	}

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func sampleDocs() []*store.Document {
	return []*store.Document{
		{
			ID:        "doc-rollout",
			Text:      "The zephyr rollout plan covers onboarding steps and quota limits for new accounts.",
			Type:      "article",
			Tags:      []string{"rollout"},
			CreatedAt: time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC),
		},
		{
			ID:        "doc-incident",
			Text:      "Incident review for the quota exhaustion outage, with remediation owners.",
			Type:      "note",
			Tags:      []string{"postmortem"},
			CreatedAt: time.Date(2026, 2, 15, 14, 30, 0, 0, time.UTC),
		},
		{
			ID:        "doc-launch",
			Text:      "Marketing brief for the atlas launch announcement.",
			Type:      "article",
			Tags:      []string{"launch"},
			CreatedAt: time.Date(2026, 3, 20, 8, 0, 0, 0, time.UTC),
		},
	}
}

// indexSampleCorpus loads the sample docs into tenant via the CLI and
// returns the project root.
func indexSampleCorpus(t *testing.T, tenant string) string {
	t.Helper()

	root := tempProject(t)
	corpus := writeCorpus(t, root, tenant+".jsonl", sampleDocs())

	_, err := runCLI(t, "index", tenant, corpus, "--plain")
	require.NoError(t, err)

	return root
}
