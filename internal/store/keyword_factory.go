package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// KeywordBackend identifies a keyword index implementation.
type KeywordBackend string

const (
	// KeywordBackendBleve uses bleve v2 (default). BoltDB's exclusive file
	// lock makes it single-process.
	KeywordBackendBleve KeywordBackend = "bleve"

	// KeywordBackendSQLite uses SQLite FTS5 with WAL mode, allowing
	// concurrent multi-process access.
	KeywordBackendSQLite KeywordBackend = "sqlite"
)

// NewKeywordIndex creates a KeywordIndex using the configured backend.
// basePath is the path without extension; the backend appends its own
// (.bleve directory for bleve, .db file for SQLite). An empty basePath
// creates an in-memory index.
func NewKeywordIndex(basePath string, backend string) (KeywordIndex, error) {
	switch backend {
	case string(KeywordBackendBleve), "":
		var path string
		if basePath != "" {
			path = basePath + ".bleve"
		}
		return NewBleveKeywordIndex(path)

	case string(KeywordBackendSQLite):
		var path string
		if basePath != "" {
			path = basePath + ".db"
		}
		return NewSQLiteKeywordIndex(path)

	default:
		return nil, fmt.Errorf("unknown keyword backend: %s (valid options: bleve, sqlite)", backend)
	}
}

// DetectKeywordBackend detects which backend an existing index uses based on
// what is on disk. Returns an empty string if no index exists. Lets a
// partition opened with a changed config keep its original backend instead
// of silently starting a second, empty index.
func DetectKeywordBackend(basePath string) KeywordBackend {
	if dirExists(basePath + ".bleve") {
		return KeywordBackendBleve
	}
	if fileExists(basePath + ".db") {
		return KeywordBackendSQLite
	}
	return ""
}

// KeywordIndexPath returns the full index path for a backend under dir.
func KeywordIndexPath(dir string, backend string) string {
	basePath := filepath.Join(dir, "keyword")
	if backend == string(KeywordBackendSQLite) {
		return basePath + ".db"
	}
	return basePath + ".bleve"
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
