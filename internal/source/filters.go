// Package source implements the engine's two search clients over per-tenant
// partitions: a vector client that owns query embedding and a keyword client
// over the full-text index. Both honor the same metadata filter predicate
// and guard their backend calls with a circuit breaker.
package source

import (
	"fmt"
	"time"

	rterrors "github.com/riptide-search/riptide/internal/errors"
	"github.com/riptide-search/riptide/internal/store"
)

// Filters is the structured predicate both clients understand. Types match
// any-of, Tags match all-of, and the time bounds are inclusive. Zero fields
// are ignored.
type Filters struct {
	Types  []string  `json:"types,omitempty"`
	Tags   []string  `json:"tags,omitempty"`
	After  time.Time `json:"after,omitempty"`
	Before time.Time `json:"before,omitempty"`
}

// IsZero reports whether no predicate is set.
func (f Filters) IsZero() bool {
	return len(f.Types) == 0 && len(f.Tags) == 0 && f.After.IsZero() && f.Before.IsZero()
}

func (f Filters) metaQuery() store.MetaQuery {
	return store.MetaQuery{Types: f.Types, Tags: f.Tags, After: f.After, Before: f.Before}
}

// resolveFilters narrows the engine's opaque filter value to this package's
// Filters. The check runs before the circuit breaker so malformed requests
// cannot trip it.
func resolveFilters(v any) (Filters, error) {
	switch f := v.(type) {
	case nil:
		return Filters{}, nil
	case Filters:
		return f, nil
	case *Filters:
		if f == nil {
			return Filters{}, nil
		}
		return *f, nil
	default:
		return Filters{}, rterrors.New(rterrors.ErrCodeInvalidFilter,
			fmt.Sprintf("unsupported filter type %T", v), nil).
			WithSuggestion("Pass a source.Filters value or leave filters unset.")
	}
}
