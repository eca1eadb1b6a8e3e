// Package trackfile reads and writes the binary segment cache.
//
// All values are little-endian. The header is
//
//	magic            [8]byte  "TRKSEG\x00\x01"
//	version          uint32
//	num azim         uint32
//	num polar        uint32
//	spacing          float64
//	max optical len  float64
//	z                float64
//	fingerprint      uint16 length + bytes
//	num tracks       uint32
//
// followed, per track in uid order, by a uint32 segment count and that many
// (int32 region, float64 length) pairs.
package trackfile

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/chazu/trackgen/pkg/track"
)

// Version is the current file format version.
const Version uint32 = 1

// Magic identifies a segment cache file.
var Magic = [8]byte{'T', 'R', 'K', 'S', 'E', 'G', 0x00, 0x01}

// ByteOrder is the byte order of every field.
var ByteOrder = binary.LittleEndian

var (
	// ErrBadMagic is returned when a file does not start with Magic.
	ErrBadMagic = errors.New("not a track segment file")

	// ErrMismatch is returned by ReadFile when the stored generation
	// parameters differ from the requested ones.
	ErrMismatch = errors.New("track file parameters do not match")

	// ErrCorrupt is returned when the body does not hold exactly the
	// tracks and segments the counts announce.
	ErrCorrupt = errors.New("corrupt track file")
)

// maxPrealloc caps the capacity reserved from counts read off disk; larger
// lists grow as their records arrive.
const maxPrealloc = 1 << 12

// Header records the generation parameters a file was produced with.
type Header struct {
	Version          uint32
	NumAzim          uint32
	NumPolar         uint32
	Spacing          float64
	MaxOpticalLength float64
	Z                float64
	Fingerprint      string
	NumTracks        uint32
}

// fixedHeader is the part of the header with a fixed layout.
type fixedHeader struct {
	Magic            [8]byte
	Version          uint32
	NumAzim          uint32
	NumPolar         uint32
	Spacing          float64
	MaxOpticalLength float64
	Z                float64
}

// Matches reports whether two headers describe the same generation.
// Floating point parameters must agree bit for bit.
func (h Header) Matches(o Header) bool {
	return h.Version == o.Version &&
		h.NumAzim == o.NumAzim &&
		h.NumPolar == o.NumPolar &&
		math.Float64bits(h.Spacing) == math.Float64bits(o.Spacing) &&
		math.Float64bits(h.MaxOpticalLength) == math.Float64bits(o.MaxOpticalLength) &&
		math.Float64bits(h.Z) == math.Float64bits(o.Z) &&
		h.Fingerprint == o.Fingerprint &&
		h.NumTracks == o.NumTracks
}

// Write writes h followed by the segments of every track. h.NumTracks is
// overwritten with len(tracks).
func Write(w io.Writer, h Header, tracks []*track.Track2D) error {
	if len(h.Fingerprint) > math.MaxUint16 {
		return fmt.Errorf("fingerprint too long: %d bytes", len(h.Fingerprint))
	}
	bw := bufio.NewWriter(w)

	fixed := fixedHeader{
		Magic:            Magic,
		Version:          h.Version,
		NumAzim:          h.NumAzim,
		NumPolar:         h.NumPolar,
		Spacing:          h.Spacing,
		MaxOpticalLength: h.MaxOpticalLength,
		Z:                h.Z,
	}
	if err := binary.Write(bw, ByteOrder, &fixed); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := binary.Write(bw, ByteOrder, uint16(len(h.Fingerprint))); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := bw.WriteString(h.Fingerprint); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := binary.Write(bw, ByteOrder, uint32(len(tracks))); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	var pair [12]byte
	for _, t := range tracks {
		if err := binary.Write(bw, ByteOrder, uint32(len(t.Segments))); err != nil {
			return fmt.Errorf("failed to write track %d: %w", t.UID, err)
		}
		for _, s := range t.Segments {
			ByteOrder.PutUint32(pair[0:4], uint32(int32(s.Region)))
			ByteOrder.PutUint64(pair[4:12], math.Float64bits(s.Length))
			if _, err := bw.Write(pair[:]); err != nil {
				return fmt.Errorf("failed to write track %d: %w", t.UID, err)
			}
		}
	}
	return bw.Flush()
}

// ReadHeader reads and validates the header.
func ReadHeader(r io.Reader) (Header, error) {
	var fixed fixedHeader
	if err := binary.Read(r, ByteOrder, &fixed); err != nil {
		return Header{}, fmt.Errorf("failed to read header: %w", err)
	}
	if fixed.Magic != Magic {
		return Header{}, ErrBadMagic
	}
	var n uint16
	if err := binary.Read(r, ByteOrder, &n); err != nil {
		return Header{}, fmt.Errorf("failed to read fingerprint length: %w", err)
	}
	fp := make([]byte, n)
	if _, err := io.ReadFull(r, fp); err != nil {
		return Header{}, fmt.Errorf("failed to read fingerprint: %w", err)
	}
	var numTracks uint32
	if err := binary.Read(r, ByteOrder, &numTracks); err != nil {
		return Header{}, fmt.Errorf("failed to read track count: %w", err)
	}
	return Header{
		Version:          fixed.Version,
		NumAzim:          fixed.NumAzim,
		NumPolar:         fixed.NumPolar,
		Spacing:          fixed.Spacing,
		MaxOpticalLength: fixed.MaxOpticalLength,
		Z:                fixed.Z,
		Fingerprint:      string(fp),
		NumTracks:        numTracks,
	}, nil
}

// ReadSegments reads the per-track segment lists following a header. A body
// shorter than h.NumTracks tracks, or than any segment count it announces,
// returns an error wrapping ErrCorrupt.
func ReadSegments(r io.Reader, h Header) ([][]track.Segment, error) {
	out := make([][]track.Segment, 0, min(h.NumTracks, maxPrealloc))
	var pair [12]byte
	for i := 0; i < int(h.NumTracks); i++ {
		var count uint32
		if err := binary.Read(r, ByteOrder, &count); err != nil {
			return nil, fmt.Errorf("failed to read segment count of track %d: %w: %w", i, ErrCorrupt, err)
		}
		segs := make([]track.Segment, 0, min(count, maxPrealloc))
		for j := 0; j < int(count); j++ {
			if _, err := io.ReadFull(r, pair[:]); err != nil {
				return nil, fmt.Errorf("failed to read segment %d of %d in track %d: %w: %w", j, count, i, ErrCorrupt, err)
			}
			segs = append(segs, track.Segment{
				Region: int(int32(ByteOrder.Uint32(pair[0:4]))),
				Length: math.Float64frombits(ByteOrder.Uint64(pair[4:12])),
			})
		}
		out = append(out, segs)
	}
	return out, nil
}

// WriteFile writes the cache to path atomically by renaming a temporary file
// in the same directory.
func WriteFile(path string, h Header, tracks []*track.Track2D) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	f, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create track file: %w", err)
	}
	tmp := f.Name()
	if err := Write(f, h, tracks); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close track file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to install track file: %w", err)
	}
	return nil
}

// ReadFile reads the segments stored at path if its header matches want.
// A header that does not match returns an error wrapping ErrMismatch, a
// body that does not end after the last track one wrapping ErrCorrupt, and a
// missing file returns an error satisfying errors.Is(err, fs.ErrNotExist).
func ReadFile(path string, want Header) ([][]track.Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	got, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	if !got.Matches(want) {
		return nil, fmt.Errorf("%s: %w", path, ErrMismatch)
	}
	segs, err := ReadSegments(r, got)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if _, err := r.ReadByte(); err != io.EOF {
		return nil, fmt.Errorf("%s: trailing data after track %d: %w", path, got.NumTracks, ErrCorrupt)
	}
	return segs, nil
}
