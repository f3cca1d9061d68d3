package sequence

import (
	"fmt"

	"github.com/Keiracom/Agency-OS-sub001/platform/apperr"
)

const (
	maxSegments          = 3
	minSegmentAllocation = 10
	fullAllocation       = 100
)

// SplitSegments expands a multi-segment targeting profile into independent
// single-industry profiles, one per segment. The planner itself is
// segment-agnostic; the campaign layer plans each returned profile
// separately with its proportional lead allocation.
//
// A profile without segments is returned unchanged as a single entry.
// Validation is strict: at most 3 segments, each allocated at least 10%,
// allocations summing to exactly 100. Violations reject the whole profile.
func SplitSegments(profile TargetProfile) ([]TargetProfile, error) {
	if len(profile.Segments) == 0 {
		return []TargetProfile{profile}, nil
	}

	if len(profile.Segments) > maxSegments {
		return nil, apperr.Validation(fmt.Sprintf("targeting profile has %d segments, maximum is %d", len(profile.Segments), maxSegments))
	}

	total := 0
	for _, segment := range profile.Segments {
		if segment.Industry == "" {
			return nil, apperr.Validation("segment industry must not be empty")
		}
		if segment.Allocation < minSegmentAllocation {
			return nil, apperr.Validation(fmt.Sprintf("segment %q allocated %d%%, minimum is %d%%", segment.Industry, segment.Allocation, minSegmentAllocation))
		}
		total += segment.Allocation
	}

	if total != fullAllocation {
		return nil, apperr.Validation(fmt.Sprintf("segment allocations sum to %d%%, must be exactly %d%%", total, fullAllocation))
	}

	split := make([]TargetProfile, 0, len(profile.Segments))
	for _, segment := range profile.Segments {
		single := profile
		single.Industry = segment.Industry
		single.Segments = []Segment{segment}
		split = append(split, single)
	}

	return split, nil
}
