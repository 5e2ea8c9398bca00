// Package scan implements the resynchronising scanner: it locates every
// decodable frame inside a byte buffer that may have suffered bit flips,
// truncation, insertion, or reordering.
package scan

import (
	"bytes"

	"github.com/etalazz/durapack/frame"
)

// LocatedFrame is a frame as it was found in a byte buffer: its offset, its
// encoded size, and the decoded frame itself.
type LocatedFrame struct {
	Offset int
	Size   int
	Frame  frame.Frame
}

// ScanStats summarises a scan pass over a buffer.
type ScanStats struct {
	BytesScanned   uint64
	MarkersFound   uint64
	FramesFound    uint64
	DecodeFailures uint64
	BytesRecovered uint64
}

// RecoveryRate returns the percentage of scanned bytes that ended up inside
// a successfully decoded frame.
func (s ScanStats) RecoveryRate() float64 {
	if s.BytesScanned == 0 {
		return 0
	}
	return float64(s.BytesRecovered) / float64(s.BytesScanned) * 100
}

// Options configures scanner behaviour beyond the default exact-match rule.
type Options struct {
	// MaxMarkerHamming is the maximum Hamming distance (in bits) a candidate
	// 4-byte window may have from the marker and still be tried as a frame
	// start. The default, 0, requires an exact match. Frames located via a
	// fuzzy marker match still go through the full lookahead parse and
	// trailer verification; this only widens what counts as a candidate
	// offset.
	MaxMarkerHamming int
}

// Scan locates every decodable frame in buffer, copying each frame's
// payload and trailer.
func Scan(buffer []byte) []LocatedFrame {
	located, _ := scan(buffer, Options{}, true)
	return located
}

// ScanWithOptions is Scan with explicit Options.
func ScanWithOptions(buffer []byte, opts Options) []LocatedFrame {
	located, _ := scan(buffer, opts, true)
	return located
}

// ScanWithStats is Scan plus the ScanStats recorded during the pass.
func ScanWithStats(buffer []byte) ([]LocatedFrame, ScanStats) {
	return scan(buffer, Options{}, true)
}

// ScanWithStatsOptions is ScanWithStats with explicit Options.
func ScanWithStatsOptions(buffer []byte, opts Options) ([]LocatedFrame, ScanStats) {
	return scan(buffer, opts, true)
}

// ScanZeroCopy is Scan, except frame payload/trailer slices alias buffer
// instead of being copied.
func ScanZeroCopy(buffer []byte) []LocatedFrame {
	located, _ := scan(buffer, Options{}, false)
	return located
}

func scan(buffer []byte, opts Options, copyBytes bool) ([]LocatedFrame, ScanStats) {
	var (
		located []LocatedFrame
		stats   ScanStats
	)
	stats.BytesScanned = uint64(len(buffer))

	p := 0
	for p < len(buffer) {
		offset := findMarker(buffer, p, opts.MaxMarkerHamming)
		if offset < 0 {
			break
		}
		stats.MarkersFound++

		frameStart := offset - frame.LeadingPrefixLen(buffer, offset)

		src, start := buffer, frameStart
		if !bytes.Equal(buffer[offset:offset+frame.MarkerLen], frame.Marker[:]) {
			// Fuzzy match: decode a copy with the exact marker restored, so the
			// lookahead parse and trailer check run as on an intact frame.
			src = append([]byte(nil), buffer[frameStart:]...)
			copy(src[offset-frameStart:], frame.Marker[:])
			start = 0
		}

		f, size, err := decodeAt(src, start, copyBytes)
		if err != nil {
			stats.DecodeFailures++
			p = offset + frame.MarkerLen
			continue
		}

		located = append(located, LocatedFrame{Offset: frameStart, Size: size, Frame: f})
		stats.FramesFound++
		stats.BytesRecovered += uint64(size)
		p = frameStart + size
	}

	return located, stats
}

// decodeAt runs the lookahead-parse-then-decode sequence at a candidate
// marker offset, the way frame.Decode does for offset 0, but without
// requiring the caller to slice the buffer first.
func decodeAt(buffer []byte, offset int, copyBytes bool) (frame.Frame, int, error) {
	window := buffer[offset:]
	if copyBytes {
		f, err := frame.Decode(window)
		if err != nil {
			return frame.Frame{}, 0, err
		}
		return f, f.TotalSize(), nil
	}
	f, err := frame.DecodeZeroCopy(window)
	if err != nil {
		return frame.Frame{}, 0, err
	}
	return f, f.TotalSize(), nil
}

// findMarker returns the offset of the next marker occurrence at or after
// p, or -1 if none remains. With maxHamming == 0 this is a plain substring
// search (bytes.Index); with maxHamming > 0 it falls back to a windowed
// Hamming-distance scan, per SPEC_FULL.md §4's fuzzy-marker supplement.
func findMarker(buffer []byte, p int, maxHamming int) int {
	if maxHamming <= 0 {
		idx := bytes.Index(buffer[p:], frame.Marker[:])
		if idx < 0 {
			return -1
		}
		return p + idx
	}
	for i := p; i+frame.MarkerLen <= len(buffer); i++ {
		if hamming4(buffer[i:i+frame.MarkerLen], frame.Marker[:]) <= maxHamming {
			return i
		}
	}
	return -1
}

func hamming4(a, b []byte) int {
	dist := 0
	for i := 0; i < frame.MarkerLen; i++ {
		x := a[i] ^ b[i]
		for x != 0 {
			dist++
			x &= x - 1
		}
	}
	return dist
}
