package track

import "math"

// Split divides s into ⌈L·rate/maxOptical⌉ pieces of equal length in the same
// region. The last piece absorbs the rounding remainder so the pieces sum to
// the original length. Segments within the limit are returned unchanged.
func Split(s Segment, rate, maxOptical float64) []Segment {
	if maxOptical <= 0 || rate <= 0 || s.Length <= 0 {
		return []Segment{s}
	}
	k := int(math.Ceil(s.Length * rate / maxOptical))
	if k <= 1 {
		return []Segment{s}
	}

	parent := s
	piece := s.Length / float64(k)
	out := make([]Segment, k)
	var acc float64
	for i := 0; i < k-1; i++ {
		out[i] = Segment{Region: s.Region, Length: piece, Parent: &parent}
		acc += piece
	}
	out[k-1] = Segment{Region: s.Region, Length: s.Length - acc, Parent: &parent}
	return out
}

// SplitSegments replaces every segment of t whose optical length exceeds
// maxOptical. rate returns the removal rate of a region. It returns the number
// of segments added.
func SplitSegments(t *Track2D, rate func(region int) float64, maxOptical float64) int {
	before := len(t.Segments)
	var out []Segment
	for i, s := range t.Segments {
		pieces := Split(s, rate(s.Region), maxOptical)
		if len(pieces) == 1 && out == nil {
			continue
		}
		if out == nil {
			out = make([]Segment, 0, len(t.Segments)+len(pieces))
			out = append(out, t.Segments[:i]...)
		}
		out = append(out, pieces...)
	}
	if out != nil {
		t.Segments = out
	}
	return len(t.Segments) - before
}
