package track

import "fmt"

// Table stores tracks by azimuthal index. The per-angle counts are fixed when
// the table is built; uids are assigned in (azim, xy) order.
type Table struct {
	byAzim [][]*Track2D
	flat   []*Track2D
}

// NewTable allocates one track per (azim, xy) slot described by counts.
func NewTable(counts []int) (*Table, error) {
	if len(counts) == 0 {
		return nil, fmt.Errorf("track table needs at least one azimuthal angle")
	}
	total := 0
	for a, n := range counts {
		if n <= 0 {
			return nil, fmt.Errorf("azimuthal angle %d has %d tracks", a, n)
		}
		total += n
	}

	t := &Table{
		byAzim: make([][]*Track2D, len(counts)),
		flat:   make([]*Track2D, 0, total),
	}
	for a, n := range counts {
		t.byAzim[a] = make([]*Track2D, n)
		for i := range t.byAzim[a] {
			tr := &Track2D{UID: len(t.flat), AzimIndex: a, XYIndex: i}
			t.byAzim[a][i] = tr
			t.flat = append(t.flat, tr)
		}
	}
	return t, nil
}

// NumAzim returns the number of azimuthal angles.
func (t *Table) NumAzim() int { return len(t.byAzim) }

// NumTracks returns the number of tracks at azimuthal index a.
func (t *Table) NumTracks(a int) int { return len(t.byAzim[a]) }

// Len returns the total number of tracks.
func (t *Table) Len() int { return len(t.flat) }

// At returns the track at (a, i). It panics when either index is out of
// range, like a slice index.
func (t *Table) At(a, i int) *Track2D { return t.byAzim[a][i] }

// Lookup is At with explicit bounds checking.
func (t *Table) Lookup(a, i int) (*Track2D, error) {
	if a < 0 || a >= len(t.byAzim) {
		return nil, fmt.Errorf("azimuthal index %d out of range [0, %d)", a, len(t.byAzim))
	}
	if i < 0 || i >= len(t.byAzim[a]) {
		return nil, fmt.Errorf("track index %d out of range [0, %d) for azimuthal index %d", i, len(t.byAzim[a]), a)
	}
	return t.byAzim[a][i], nil
}

// Azim returns the tracks at azimuthal index a, ordered by xy index.
func (t *Table) Azim(a int) []*Track2D { return t.byAzim[a] }

// All returns every track ordered by uid.
func (t *Table) All() []*Track2D { return t.flat }

// NumSegments returns the total segment count.
func (t *Table) NumSegments() int {
	n := 0
	for _, tr := range t.flat {
		n += len(tr.Segments)
	}
	return n
}

// MaxNumSegments returns the largest segment count of any track.
func (t *Table) MaxNumSegments() int {
	max := 0
	for _, tr := range t.flat {
		if len(tr.Segments) > max {
			max = len(tr.Segments)
		}
	}
	return max
}
