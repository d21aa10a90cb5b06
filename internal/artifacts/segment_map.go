package artifacts

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	types "github.com/yungbote/retail-intelligence/internal/domain"
	apperr "github.com/yungbote/retail-intelligence/internal/pkg/errors"
)

// SegmentMap names cluster indices. It is a convention tied to one trained
// clustering: a refit may permute indices, so the map is versioned and copied
// into the segmentation artifact it was applied to.
type SegmentMap struct {
	Version  string         `yaml:"version" json:"version"`
	Segments map[int]string `yaml:"segments" json:"segments"`
}

// DefaultSegmentMap is the built-in four-segment naming.
func DefaultSegmentMap() SegmentMap {
	return SegmentMap{
		Version: "default-v1",
		Segments: map[int]string{
			0: "Average Buyers",
			1: "Top Spenders",
			2: "High Engagement",
			3: "Bulk One-Timers",
		},
	}
}

// LoadSegmentMap reads a YAML mapping. An empty path yields the default.
//
//	version: "2024-q1"
//	segments:
//	  0: Average Buyers
//	  1: Top Spenders
func LoadSegmentMap(path string) (SegmentMap, error) {
	if path == "" {
		return DefaultSegmentMap(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return SegmentMap{}, fmt.Errorf("read segment map: %w", err)
	}
	var m SegmentMap
	if err := yaml.Unmarshal(b, &m); err != nil {
		return SegmentMap{}, fmt.Errorf("%w: segment map %s: %v", apperr.ErrInvalidArgument, path, err)
	}
	if len(m.Segments) == 0 {
		return SegmentMap{}, fmt.Errorf("%w: segment map %s has no segments", apperr.ErrInvalidArgument, path)
	}
	if m.Version == "" {
		m.Version = "unversioned"
	}
	return m, nil
}

// Name returns the segment for idx, or the unmapped marker.
func (m SegmentMap) Name(idx int) string {
	if name, ok := m.Segments[idx]; ok && name != "" {
		return name
	}
	return types.UnmappedSegment
}

// Missing lists cluster indices in [0,k) that have no name.
func (m SegmentMap) Missing(k int) []int {
	var out []int
	for i := 0; i < k; i++ {
		if _, ok := m.Segments[i]; !ok {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}
