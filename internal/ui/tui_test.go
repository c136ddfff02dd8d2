package ui

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewTUIRenderer_ReturnsNilForNonTTY(t *testing.T) {
	// Given: a non-TTY buffer
	buf := &bytes.Buffer{}
	cfg := NewConfig(buf)

	// When: creating TUI renderer
	r, err := NewTUIRenderer(cfg)

	// Then: returns error (can't create TUI for non-TTY)
	assert.Error(t, err)
	assert.Nil(t, r)
}

func TestIngestModel_InitialView(t *testing.T) {
	// Given: a new ingest model with properly initialized tracker
	tracker := NewProgressTracker()
	model := newIngestModel(tracker, "")

	// When: getting initial view
	view := model.View()

	// Then: view contains the title and first stage indicator
	assert.Contains(t, view, "Riptide Ingest")
	assert.Contains(t, view, "Read")
}

func TestIngestModel_StageIndicators(t *testing.T) {
	// Given: a model at the embedding stage
	tracker := NewProgressTracker()
	model := newIngestModel(tracker, "")
	tracker.SetStage(StageEmbedding, 100)

	// When: rendering
	view := model.View()

	// Then: all stage indicators are shown (short names)
	assert.Contains(t, view, "Read")
	assert.Contains(t, view, "Embed")
	assert.Contains(t, view, "Index")
}

func TestIngestModel_TenantInTitle(t *testing.T) {
	// Given: a model created for a tenant
	tracker := NewProgressTracker()
	model := newIngestModel(tracker, "acme")

	// When: rendering
	view := model.View()

	// Then: the tenant shows in the header
	assert.Contains(t, view, "acme")
}

func TestIngestModel_ProgressDisplay(t *testing.T) {
	// Given: a model with progress
	tracker := NewProgressTracker()
	tracker.SetStage(StageEmbedding, 100)
	tracker.Update(50)

	model := newIngestModel(tracker, "")

	// When: rendering view
	view := model.View()

	// Then: progress is shown in documents
	assert.Contains(t, view, "50")
	assert.Contains(t, view, "100")
	assert.Contains(t, view, "documents")
}

func TestIngestModel_ErrorDisplay(t *testing.T) {
	// Given: a model with errors
	tracker := NewProgressTracker()
	tracker.AddError(ErrorEvent{
		File:   "broken.jsonl",
		Err:    assert.AnError,
		IsWarn: false,
	})
	tracker.AddError(ErrorEvent{
		File:   "warning.jsonl",
		Err:    assert.AnError,
		IsWarn: true,
	})

	model := newIngestModel(tracker, "")

	// When: rendering view
	view := model.View()

	// Then: error and warning counts show in the status bar
	assert.Contains(t, view, "1 errors")
	assert.Contains(t, view, "1 warnings")
}

func TestIngestModel_CompletionState(t *testing.T) {
	// Given: a completed model
	tracker := NewProgressTracker()
	tracker.SetStage(StageComplete, 0)

	model := newIngestModel(tracker, "")
	model.complete = true
	model.stats = CompletionStats{
		Documents: 500,
		Files:     12,
		Duration:  5 * time.Second,
	}

	// When: rendering view
	view := model.View()

	// Then: shows completion summary
	assert.Contains(t, view, "Ingest Complete")
	assert.Contains(t, view, "500")
	assert.Contains(t, view, "12")
}

func TestIngestModel_CompletionShowsEmbedder(t *testing.T) {
	// Given: a completed model with embedder info
	tracker := NewProgressTracker()
	model := newIngestModel(tracker, "")
	model.complete = true
	model.stats = CompletionStats{
		Documents: 100,
		Files:     2,
		Duration:  time.Second,
		Embedder: EmbedderInfo{
			Provider:   "static",
			Model:      "token-hash-v1",
			Dimensions: 256,
		},
	}

	// When: rendering view
	view := model.View()

	// Then: the embedder line is present
	assert.Contains(t, view, "static")
	assert.Contains(t, view, "token-hash-v1")
}

func TestIngestModel_QuittingView(t *testing.T) {
	// Given: a model the user cancelled
	tracker := NewProgressTracker()
	model := newIngestModel(tracker, "")
	model.quitting = true

	// When: rendering view
	view := model.View()

	// Then: shows cancellation
	assert.Equal(t, "Cancelled.\n", view)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{45 * time.Second, "45s"},
		{90 * time.Second, "1m 30s"},
		{2 * time.Minute, "2m"},
		{3*time.Hour + 25*time.Minute, "3h 25m"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatDuration(tt.d))
		})
	}
}

func TestTUIRenderer_InterfaceCompliance(t *testing.T) {
	// Ensure TUIRenderer implements Renderer
	var _ Renderer = (*TUIRenderer)(nil)
}
