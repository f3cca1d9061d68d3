package sequence

import (
	"testing"

	"github.com/Keiracom/Agency-OS-sub001/platform/apperr"
)

func TestSplitSegmentsSingleProfilePassesThrough(t *testing.T) {
	profile := TargetProfile{Industry: "saas"}
	split, err := SplitSegments(profile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(split) != 1 || split[0].Industry != "saas" {
		t.Errorf("expected the profile back unchanged, got %+v", split)
	}
}

func TestSplitSegmentsValid(t *testing.T) {
	profile := TargetProfile{
		Industry: "mixed",
		Segments: []Segment{
			{Industry: "saas", Allocation: 50},
			{Industry: "fintech", Allocation: 40},
			{Industry: "health", Allocation: 10},
		},
	}

	split, err := SplitSegments(profile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(split) != 3 {
		t.Fatalf("expected 3 profiles, got %d", len(split))
	}
	for i, single := range split {
		if single.Industry != profile.Segments[i].Industry {
			t.Errorf("profile %d industry = %q, want %q", i, single.Industry, profile.Segments[i].Industry)
		}
		if len(single.Segments) != 1 {
			t.Errorf("profile %d should carry exactly its own segment", i)
		}
	}
}

func TestSplitSegmentsRejections(t *testing.T) {
	cases := []struct {
		name     string
		segments []Segment
	}{
		{"four segments", []Segment{
			{Industry: "a", Allocation: 25}, {Industry: "b", Allocation: 25},
			{Industry: "c", Allocation: 25}, {Industry: "d", Allocation: 25},
		}},
		{"below minimum share", []Segment{
			{Industry: "a", Allocation: 95}, {Industry: "b", Allocation: 5},
		}},
		{"sum under 100", []Segment{
			{Industry: "a", Allocation: 40}, {Industry: "b", Allocation: 40},
		}},
		{"sum over 100", []Segment{
			{Industry: "a", Allocation: 60}, {Industry: "b", Allocation: 50},
		}},
		{"empty industry", []Segment{
			{Industry: "", Allocation: 50}, {Industry: "b", Allocation: 50},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := SplitSegments(TargetProfile{Industry: "mixed", Segments: tc.segments})
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !apperr.Is(err, apperr.KindValidation) {
				t.Errorf("expected validation kind, got %v", err)
			}
		})
	}
}
