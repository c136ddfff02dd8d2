// Package ingest loads JSONL corpora into tenant partitions and checks
// that the three stores agree afterwards.
package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	rterrors "github.com/riptide-search/riptide/internal/errors"
	"github.com/riptide-search/riptide/internal/store"
)

// maxLineBytes bounds a single JSONL line. Documents are prose, not blobs;
// anything past this is almost certainly a malformed file.
const maxLineBytes = 1 << 20

// readDocuments parses one JSONL file into documents. Blank lines are
// skipped; a malformed line fails the whole file with its line number so
// the fix is one grep away.
func readDocuments(path string) ([]*store.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, rterrors.New(rterrors.ErrCodeIngestFailed,
			fmt.Sprintf("cannot open corpus file %s", path), err).
			WithSuggestion("Check the path and file permissions.")
	}
	defer f.Close()

	name := filepath.Base(path)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var docs []*store.Document
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var doc store.Document
		if err := json.Unmarshal([]byte(line), &doc); err != nil {
			return nil, rterrors.New(rterrors.ErrCodeIngestFailed,
				fmt.Sprintf("%s line %d: invalid JSON", name, lineNo), err).
				WithDetail("file", path).
				WithDetail("line", fmt.Sprintf("%d", lineNo))
		}
		if doc.ID == "" {
			return nil, rterrors.New(rterrors.ErrCodeIngestFailed,
				fmt.Sprintf("%s line %d: document id is required", name, lineNo), nil).
				WithDetail("file", path).
				WithDetail("line", fmt.Sprintf("%d", lineNo))
		}
		if strings.TrimSpace(doc.Text) == "" {
			return nil, rterrors.New(rterrors.ErrCodeIngestFailed,
				fmt.Sprintf("%s line %d: document %q has no text", name, lineNo, doc.ID), nil).
				WithDetail("file", path).
				WithDetail("line", fmt.Sprintf("%d", lineNo))
		}
		docs = append(docs, &doc)
	}

	if err := scanner.Err(); err != nil {
		return nil, rterrors.New(rterrors.ErrCodeIngestFailed,
			fmt.Sprintf("reading %s failed at line %d", name, lineNo+1), err).
			WithDetail("file", path)
	}
	return docs, nil
}
