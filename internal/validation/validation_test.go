package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	rterrors "github.com/riptide-search/riptide/internal/errors"
)

func TestValidateTenantID(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		wantCode string // empty means valid
	}{
		{name: "simple", id: "acme", wantCode: ""},
		{name: "with separators", id: "acme-prod_v2.1", wantCode: ""},
		{name: "single character", id: "a", wantCode: ""},
		{name: "digits only", id: "42", wantCode: ""},
		{name: "max length", id: strings.Repeat("a", MaxTenantIDLength), wantCode: ""},
		{name: "empty", id: "", wantCode: rterrors.ErrCodeTenantInvalid},
		{name: "too long", id: strings.Repeat("a", MaxTenantIDLength+1), wantCode: rterrors.ErrCodeTenantInvalid},
		{name: "uppercase", id: "Acme", wantCode: rterrors.ErrCodeTenantInvalid},
		{name: "leading dot", id: ".hidden", wantCode: rterrors.ErrCodeTenantInvalid},
		{name: "leading dash", id: "-acme", wantCode: rterrors.ErrCodeTenantInvalid},
		{name: "parent directory", id: "..", wantCode: rterrors.ErrCodeTenantInvalid},
		{name: "path separator", id: "acme/prod", wantCode: rterrors.ErrCodeTenantInvalid},
		{name: "backslash", id: `acme\prod`, wantCode: rterrors.ErrCodeTenantInvalid},
		{name: "embedded space", id: "acme prod", wantCode: rterrors.ErrCodeTenantInvalid},
		{name: "non-ascii", id: "acmé", wantCode: rterrors.ErrCodeTenantInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTenantID(tt.id)

			if tt.wantCode == "" {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Equal(t, tt.wantCode, rterrors.GetCode(err))
			}
		})
	}
}

func TestValidateQuery(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantCode string
	}{
		{name: "simple", query: "database migration", wantCode: ""},
		{name: "unicode", query: "café résumé", wantCode: ""},
		{name: "at length cap", query: strings.Repeat("q", MaxQueryLength), wantCode: ""},
		{name: "empty", query: "", wantCode: rterrors.ErrCodeQueryEmpty},
		{name: "whitespace only", query: " \t\n ", wantCode: rterrors.ErrCodeQueryEmpty},
		{name: "over length cap", query: strings.Repeat("q", MaxQueryLength+1), wantCode: rterrors.ErrCodeQueryTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQuery(tt.query)

			if tt.wantCode == "" {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Equal(t, tt.wantCode, rterrors.GetCode(err))
			}
		})
	}
}

func TestValidateQuery_LengthCountsRunes(t *testing.T) {
	// Given: a multi-byte query exactly at the rune cap
	query := strings.Repeat("日", MaxQueryLength)

	// When/Then: rune count is what matters, not byte length
	assert.NoError(t, ValidateQuery(query))
	assert.Error(t, ValidateQuery(query+"本"))
}

func TestValidateTopK(t *testing.T) {
	tests := []struct {
		name    string
		k       int
		wantErr bool
	}{
		{name: "unset means default", k: 0, wantErr: false},
		{name: "one", k: 1, wantErr: false},
		{name: "typical", k: 20, wantErr: false},
		{name: "above cap still valid", k: MaxTopK + 500, wantErr: false},
		{name: "negative", k: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTopK(tt.k)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, rterrors.ErrCodeTopKInvalid, rterrors.GetCode(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestClampTopK(t *testing.T) {
	tests := []struct {
		name string
		k    int
		want int
	}{
		{name: "zero takes default", k: 0, want: 20},
		{name: "negative takes default", k: -3, want: 20},
		{name: "in range passes through", k: 5, want: 5},
		{name: "at cap passes through", k: 100, want: 100},
		{name: "over cap is clamped", k: 500, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampTopK(tt.k, 20, 100))
		})
	}
}
