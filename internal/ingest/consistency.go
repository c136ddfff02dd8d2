package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/riptide-search/riptide/internal/tenant"
)

// Report is the outcome of a cross-store consistency check. The metadata
// store is the reference set: Missing* lists documents it knows that an
// index lost, Orphan* lists index entries it never heard of.
type Report struct {
	TenantID string

	// Checked is the number of documents in the metadata store.
	Checked int

	MissingKeyword []string
	MissingVector  []string
	OrphanKeyword  []string
	OrphanVector   []string

	Duration time.Duration
}

// Consistent reports whether all three stores agree.
func (r *Report) Consistent() bool {
	return len(r.MissingKeyword) == 0 && len(r.MissingVector) == 0 &&
		len(r.OrphanKeyword) == 0 && len(r.OrphanVector) == 0
}

// Summary renders the report in one line for logs and CLI output.
func (r *Report) Summary() string {
	if r.Consistent() {
		return fmt.Sprintf("%d documents, all stores consistent", r.Checked)
	}
	return fmt.Sprintf("%d documents; missing: %d keyword, %d vector; orphaned: %d keyword, %d vector",
		r.Checked,
		len(r.MissingKeyword), len(r.MissingVector),
		len(r.OrphanKeyword), len(r.OrphanVector))
}

// CheckPartition compares document ID sets across the partition's keyword,
// vector, and metadata stores. O(n) over the union of all three.
func CheckPartition(ctx context.Context, p *tenant.Partition) (*Report, error) {
	start := time.Now()

	metaIDs, err := p.Meta.AllIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list metadata ids: %w", err)
	}
	metaSet := make(map[string]bool, len(metaIDs))
	for _, id := range metaIDs {
		metaSet[id] = true
	}

	keywordIDs, err := p.Keyword.AllIDs()
	if err != nil {
		return nil, fmt.Errorf("list keyword ids: %w", err)
	}
	vectorIDs := p.Vector.AllIDs()

	report := &Report{
		TenantID: p.TenantID(),
		Checked:  len(metaIDs),
	}

	keywordSet := make(map[string]bool, len(keywordIDs))
	for _, id := range keywordIDs {
		keywordSet[id] = true
		if !metaSet[id] {
			report.OrphanKeyword = append(report.OrphanKeyword, id)
		}
	}
	vectorSet := make(map[string]bool, len(vectorIDs))
	for _, id := range vectorIDs {
		vectorSet[id] = true
		if !metaSet[id] {
			report.OrphanVector = append(report.OrphanVector, id)
		}
	}

	for _, id := range metaIDs {
		if !keywordSet[id] {
			report.MissingKeyword = append(report.MissingKeyword, id)
		}
		if !vectorSet[id] {
			report.MissingVector = append(report.MissingVector, id)
		}
	}

	sort.Strings(report.OrphanKeyword)
	sort.Strings(report.OrphanVector)
	report.Duration = time.Since(start)

	if !report.Consistent() {
		slog.Warn("partition stores disagree",
			slog.String("tenant", p.TenantID()),
			slog.String("summary", report.Summary()))
	}
	return report, nil
}
