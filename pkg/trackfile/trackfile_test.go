package trackfile

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/trackgen/pkg/track"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleHeader() Header {
	return Header{
		Version:          Version,
		NumAzim:          4,
		NumPolar:         2,
		Spacing:          0.1,
		MaxOpticalLength: 10,
		Fingerprint:      "6ba7b812-9dad-11d1-80b4-00c04fd430c8",
	}
}

func sampleTracks() []*track.Track2D {
	return []*track.Track2D{
		{UID: 0, Segments: []track.Segment{{Region: 0, Length: 0.125}, {Region: 3, Length: 1.0 / 3}}},
		{UID: 1},
		{UID: 2, Segments: []track.Segment{{Region: -1, Length: 2.5e-9}}},
	}
}

func segmentsOf(tracks []*track.Track2D) [][]track.Segment {
	out := make([][]track.Segment, len(tracks))
	for i, t := range tracks {
		out[i] = t.Segments
		if out[i] == nil {
			out[i] = []track.Segment{}
		}
	}
	return out
}

func TestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	tracks := sampleTracks()
	require.NoError(t, Write(&buf, sampleHeader(), tracks))

	h, err := ReadHeader(&buf)
	require.NoError(t, err)
	want := sampleHeader()
	want.NumTracks = 3
	assert.True(t, h.Matches(want), "header = %+v", h)

	got, err := ReadSegments(&buf, h)
	require.NoError(t, err)
	if diff := cmp.Diff(segmentsOf(tracks), got); diff != "" {
		t.Errorf("segments mismatch (-want +got):\n%s", diff)
	}

	_, err = buf.ReadByte()
	assert.ErrorIs(t, err, io.EOF, "no trailing bytes")
}

func TestBadMagic(t *testing.T) {
	_, err := ReadHeader(bytes.NewReader(make([]byte, 64)))
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestTruncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleHeader(), sampleTracks()))
	data := buf.Bytes()

	r := bytes.NewReader(data[:len(data)-4])
	h, err := ReadHeader(r)
	require.NoError(t, err)
	_, err = ReadSegments(r, h)
	assert.Error(t, err)

	_, err = ReadHeader(bytes.NewReader(data[:20]))
	assert.Error(t, err)
}

// encoded returns a file holding sampleTracks and the offset of the first
// track's segment count.
func encoded(t *testing.T) ([]byte, int) {
	t.Helper()
	var empty, buf bytes.Buffer
	require.NoError(t, Write(&empty, sampleHeader(), nil))
	require.NoError(t, Write(&buf, sampleHeader(), sampleTracks()))
	return buf.Bytes(), empty.Len()
}

func TestInflatedSegmentCount(t *testing.T) {
	data, off := encoded(t)
	ByteOrder.PutUint32(data[off:off+4], math.MaxUint32)

	r := bytes.NewReader(data)
	h, err := ReadHeader(r)
	require.NoError(t, err)
	_, err = ReadSegments(r, h)
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	path := filepath.Join(t.TempDir(), "tracks.bin")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	_, err = ReadFile(path, h)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestInflatedTrackCount(t *testing.T) {
	data, off := encoded(t)
	ByteOrder.PutUint32(data[off-4:off], math.MaxUint32)

	r := bytes.NewReader(data)
	h, err := ReadHeader(r)
	require.NoError(t, err)
	require.Equal(t, uint32(math.MaxUint32), h.NumTracks)
	_, err = ReadSegments(r, h)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestTrailingData(t *testing.T) {
	data, _ := encoded(t)
	h := sampleHeader()
	h.NumTracks = uint32(len(sampleTracks()))
	dir := t.TempDir()

	exact := filepath.Join(dir, "exact.bin")
	require.NoError(t, os.WriteFile(exact, data, 0o644))
	_, err := ReadFile(exact, h)
	require.NoError(t, err)

	padded := filepath.Join(dir, "padded.bin")
	require.NoError(t, os.WriteFile(padded, append(data, 0), 0o644))
	_, err = ReadFile(padded, h)
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.ErrorContains(t, err, "trailing data")
}

func TestMatches(t *testing.T) {
	base := sampleHeader()
	tests := []struct {
		name   string
		mutate func(*Header)
	}{
		{"version", func(h *Header) { h.Version++ }},
		{"azim", func(h *Header) { h.NumAzim = 8 }},
		{"polar", func(h *Header) { h.NumPolar = 4 }},
		{"spacing", func(h *Header) { h.Spacing = 0.1000000001 }},
		{"optical length", func(h *Header) { h.MaxOpticalLength = 5 }},
		{"z", func(h *Header) { h.Z = 1 }},
		{"fingerprint", func(h *Header) { h.Fingerprint = "other" }},
		{"tracks", func(h *Header) { h.NumTracks = 7 }},
	}
	assert.True(t, base.Matches(base))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := base
			tt.mutate(&h)
			assert.False(t, base.Matches(h))
		})
	}
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "tracks.bin")
	tracks := sampleTracks()
	h := sampleHeader()
	require.NoError(t, WriteFile(path, h, tracks))

	h.NumTracks = uint32(len(tracks))
	got, err := ReadFile(path, h)
	require.NoError(t, err)
	if diff := cmp.Diff(segmentsOf(tracks), got); diff != "" {
		t.Errorf("segments mismatch (-want +got):\n%s", diff)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")

	other := h
	other.Spacing = 0.2
	_, err = ReadFile(path, other)
	assert.True(t, errors.Is(err, ErrMismatch))

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.bin"), h)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}
