package leads

import (
	"testing"

	"github.com/Keiracom/Agency-OS-sub001/internal/sequence"
)

func TestContactInfoHasDataFor(t *testing.T) {
	full := ContactInfo{
		Email:          "pat@example.com",
		Phone:          "+14155552671",
		ProfileURL:     "https://example.com/in/pat",
		MailingAddress: "1 Main St",
	}

	tests := []struct {
		name string
		info ContactInfo
		rule sequence.SkipRule
		want bool
	}{
		{"no rule always passes", ContactInfo{}, sequence.SkipNone, true},
		{"phone present", full, sequence.SkipMissingPhone, true},
		{"phone missing", ContactInfo{Email: "pat@example.com"}, sequence.SkipMissingPhone, false},
		{"profile present", full, sequence.SkipMissingProfileURL, true},
		{"profile missing", ContactInfo{Phone: "+14155552671"}, sequence.SkipMissingProfileURL, false},
		{"address present", full, sequence.SkipMissingAddress, true},
		{"address missing", ContactInfo{Email: "pat@example.com"}, sequence.SkipMissingAddress, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.HasDataFor(tt.rule); got != tt.want {
				t.Errorf("HasDataFor(%q) = %v, want %v", tt.rule, got, tt.want)
			}
		})
	}
}
