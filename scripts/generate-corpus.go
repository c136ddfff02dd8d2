//go:build ignore

// Package main generates a synthetic JSONL corpus for load testing.
// Usage: go run scripts/generate-corpus.go -docs 5000 -output testdata/bench/acme.jsonl
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"
)

var (
	numDocs = flag.Int("docs", 5000, "Number of documents to generate")
	output  = flag.String("output", "testdata/bench/corpus.jsonl", "Output JSONL path")
	seed    = flag.Int64("seed", 42, "Random seed for reproducibility")
)

// document mirrors the ingest wire format.
type document struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Type      string    `json:"type,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

var docTypes = []string{"article", "note", "ticket", "runbook", "faq"}

var tagPool = []string{
	"onboarding", "billing", "incident", "postmortem", "release",
	"infra", "security", "quota", "migration", "deprecation",
}

var subjects = []string{
	"the payment gateway", "tenant provisioning", "the rate limiter",
	"index compaction", "the staging cluster", "session expiry",
	"the export pipeline", "audit logging", "webhook retries",
	"the billing reconciler", "regional failover", "schema migration",
}

var verbs = []string{
	"times out under", "recovers from", "degrades during",
	"is throttled by", "backfills after", "reconciles against",
	"escalates on", "rolls back during", "alerts on",
}

var objects = []string{
	"sustained load", "partial outages", "quota exhaustion",
	"credential rotation", "the nightly batch window", "replica lag",
	"malformed payloads", "burst traffic", "expired certificates",
}

var advice = []string{
	"Check the runbook before paging the on-call rotation.",
	"Retries are safe because every write is an upsert.",
	"Roll forward instead of restoring from the snapshot.",
	"Capacity is reviewed at the start of every quarter.",
	"Escalate to the platform team if the queue keeps growing.",
	"The dashboard lags the raw counters by about a minute.",
}

func sentence(rng *rand.Rand) string {
	return fmt.Sprintf("%s %s %s.",
		subjects[rng.Intn(len(subjects))],
		verbs[rng.Intn(len(verbs))],
		objects[rng.Intn(len(objects))])
}

func docText(rng *rand.Rand) string {
	n := 2 + rng.Intn(4)
	text := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			text += " "
		}
		text += sentence(rng)
	}
	return text + " " + advice[rng.Intn(len(advice))]
}

func docTags(rng *rand.Rand) []string {
	n := 1 + rng.Intn(3)
	seen := map[string]bool{}
	var tags []string
	for len(tags) < n {
		tag := tagPool[rng.Intn(len(tagPool))]
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	return tags
}

func main() {
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(filepath.Dir(*output), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create output directory: %v\n", err)
		os.Exit(1)
	}

	f, err := os.Create(*output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create output file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < *numDocs; i++ {
		doc := document{
			ID:        fmt.Sprintf("doc-%06d", i),
			Text:      docText(rng),
			Type:      docTypes[rng.Intn(len(docTypes))],
			Tags:      docTags(rng),
			CreatedAt: base.Add(time.Duration(rng.Intn(500*24)) * time.Hour),
		}
		if err := enc.Encode(doc); err != nil {
			fmt.Fprintf(os.Stderr, "encode document %d: %v\n", i, err)
			os.Exit(1)
		}
	}

	if err := w.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "flush output: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated %d documents in %s\n", *numDocs, *output)
}
