package portal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListingParams(t *testing.T) {
	t.Run("first page omits pager", func(t *testing.T) {
		params := ListingParams("CS101", 0)
		assert.Equal(t, "CS101", params.Get("code_value_1"))
		assert.False(t, params.Has("page"))
	})

	t.Run("later pages carry pager", func(t *testing.T) {
		params := ListingParams("CS101", 3)
		assert.Equal(t, "3", params.Get("page"))
	})
}

func TestIsValidCourseCode(t *testing.T) {
	tests := []struct {
		code  string
		valid bool
	}{
		{"CS101", true},
		{"EE304", true},
		{"MT2020A", false}, // letters after digits
		{"cs101", true},
		{"CS", false},
		{"101", false},
		{"CS-101", false},
		{"", false},
		{"ABCDEFGHIJ1234", false}, // too long
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidCourseCode(tt.code))
		})
	}
}

func TestSanitizeCourseCode(t *testing.T) {
	assert.Equal(t, "CS101", SanitizeCourseCode("  cs101 "))
}
