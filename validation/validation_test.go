package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPost_LengthCountsCharactersNotBytes(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantOK  bool
	}{
		{"200 two-byte characters pass", strings.Repeat("ü", 200), true},
		{"exactly 500 multibyte characters pass", strings.Repeat("ñ", 500), true},
		{"501 multibyte characters fail", strings.Repeat("ñ", 501), false},
		{"5 multibyte characters meet the minimum", "héllo", true},
		{"4 multibyte characters miss the minimum", "héll", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Post(tt.content, "")
			if tt.wantOK {
				assert.Empty(t, errs)
			} else {
				assert.Contains(t, errs, "content")
			}
		})
	}
}

func TestSignup_LengthCountsCharactersNotBytes(t *testing.T) {
	// Six two-byte characters are a valid password; three a valid name.
	errs := Signup("a@b.c", "üüüüüü", "ñña")
	assert.Empty(t, errs)

	errs = Signup("a@b.c", "üüüüü", "ññ")
	assert.Contains(t, errs, "password")
	assert.Contains(t, errs, "display_name")
}
