// Package validation checks search request fields before any I/O happens.
// Tenant identifiers double as partition directory names on disk, so the
// rules here are deliberately strict: anything that is not path-safe is
// rejected up front with a typed validation error.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	rterrors "github.com/riptide-search/riptide/internal/errors"
)

const (
	// MaxTenantIDLength is the longest accepted tenant identifier.
	MaxTenantIDLength = 64

	// MaxQueryLength is the longest accepted query text, in runes.
	MaxQueryLength = 4096

	// DefaultTopK is the result count used when a request leaves TopK unset.
	DefaultTopK = 20

	// MaxTopK is the hard ceiling on requested result counts. Config may
	// set a lower cap but never a higher one.
	MaxTopK = 100
)

// tenantIDPattern matches identifiers safe to use as directory names:
// lowercase alphanumerics plus dot, underscore, and hyphen, never starting
// with punctuation. This rules out path separators, "..", and hidden files.
var tenantIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// ValidateTenantID checks that id is usable as an isolation key and as a
// partition directory name.
func ValidateTenantID(id string) error {
	if id == "" {
		return rterrors.New(rterrors.ErrCodeTenantInvalid, "tenant id is required", nil).
			WithSuggestion("Pass a tenant identifier such as 'acme-prod'.")
	}
	if len(id) > MaxTenantIDLength {
		return rterrors.New(rterrors.ErrCodeTenantInvalid,
			fmt.Sprintf("tenant id exceeds %d characters", MaxTenantIDLength), nil).
			WithDetail("tenant_id", id).
			WithDetail("length", strconv.Itoa(len(id)))
	}
	if !tenantIDPattern.MatchString(id) {
		return rterrors.New(rterrors.ErrCodeTenantInvalid,
			fmt.Sprintf("tenant id %q contains invalid characters", id), nil).
			WithDetail("tenant_id", id).
			WithSuggestion("Use lowercase letters, digits, '.', '_', or '-', starting with a letter or digit.")
	}
	return nil
}

// ValidateQuery checks that query text is non-empty after trimming
// whitespace and within the length cap.
func ValidateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return rterrors.New(rterrors.ErrCodeQueryEmpty, "query text is empty", nil).
			WithSuggestion("Provide a non-empty search query.")
	}
	if n := utf8.RuneCountInString(query); n > MaxQueryLength {
		return rterrors.New(rterrors.ErrCodeQueryTooLong,
			fmt.Sprintf("query exceeds %d characters", MaxQueryLength), nil).
			WithDetail("length", strconv.Itoa(n)).
			WithDetail("max", strconv.Itoa(MaxQueryLength))
	}
	return nil
}

// ValidateTopK checks an explicit result count. Zero means "use the
// default" and is accepted; negative values are rejected. Values above the
// cap are accepted here and clamped by ClampTopK, matching the documented
// request contract (cap, don't reject).
func ValidateTopK(k int) error {
	if k < 0 {
		return rterrors.New(rterrors.ErrCodeTopKInvalid,
			fmt.Sprintf("top_k must be positive, got %d", k), nil).
			WithDetail("top_k", strconv.Itoa(k))
	}
	return nil
}

// ClampTopK resolves the effective result count for a request: zero or
// negative becomes def, values above max are capped at max.
func ClampTopK(k, def, max int) int {
	if k <= 0 {
		return def
	}
	if k > max {
		return max
	}
	return k
}
