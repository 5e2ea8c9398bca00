// Package frame implements the durapack wire format: a marker-prefixed,
// length-tagged, integrity-checked frame that can be encoded, decoded, and
// chained into a hash-linked sequence.
package frame

import "bytes"

// Marker is the fixed four-byte synchronization token that opens every
// frame. It never appears inside a well-formed header.
var Marker = [4]byte{'D', 'U', 'R', 'P'}

// SyncWord is the fixed 8-byte low-autocorrelation pattern written before
// the marker when the HasSyncPrefix flag is set.
var SyncWord = [8]byte{0xA5, 0x5A, 0xC3, 0x3C, 0x96, 0x69, 0x78, 0x87}

// PreamblePattern is the 2-byte pattern repeated to fill the 8-byte preamble
// written before the marker (and, if present, before the sync word) when the
// HasPreamble flag is set.
var PreamblePattern = [2]byte{0x55, 0xAA}

const (
	// PreambleLen is the total length in bytes of the optional preamble.
	PreambleLen = 8

	// SyncWordLen is the total length in bytes of the optional sync word.
	SyncWordLen = 8

	// MarkerLen is the length in bytes of the mandatory marker.
	MarkerLen = 4

	// ProtocolVersion is the current wire-format version.
	ProtocolVersion uint8 = 1

	// Blake3Size is the size in bytes of a BLAKE3 hash.
	Blake3Size = 32

	// CRC32CSize is the size in bytes of a CRC32C checksum.
	CRC32CSize = 4

	// Ed25519SigSize is the size in bytes of an Ed25519 signature.
	Ed25519SigSize = 64

	// HeaderSize is the size in bytes of the mandatory header after the
	// marker, version through flags: 1 (version) + 8 (frame_id) + 32 (prev_hash) +
	// 4 (payload_len) + 1 (flags) = 46.
	HeaderSize = 1 + 8 + Blake3Size + 4 + 1

	// MinFrameSize is MarkerLen + HeaderSize: the smallest possible
	// on-disk frame (empty payload, no trailer).
	MinFrameSize = MarkerLen + HeaderSize

	// MaxFrameSize is the maximum total encoded frame size (16 MiB).
	MaxFrameSize = 16 * 1024 * 1024

	// MaxPayloadSize leaves a 1 KiB margin under MaxFrameSize for header
	// and trailer overhead.
	MaxPayloadSize = MaxFrameSize - 1024
)

// Flags is the single-byte frame flag bitfield.
type Flags uint8

const (
	// HasCRC32C marks a CRC32C trailer as present.
	HasCRC32C Flags = 1 << 0
	// HasBlake3 marks a BLAKE3 trailer as present.
	HasBlake3 Flags = 1 << 1
	// IsFirst marks the first frame of a logical sequence.
	IsFirst Flags = 1 << 2
	// IsLast marks the last frame of a logical sequence.
	IsLast Flags = 1 << 3
	// HasPreamble marks a preamble prefix as present.
	HasPreamble Flags = 1 << 4
	// HasSyncPrefix marks a sync-word prefix as present.
	HasSyncPrefix Flags = 1 << 5
	// IsSuperframe marks the payload as carrying a super-index.
	IsSuperframe Flags = 1 << 6
	// HasSkiplist marks the payload as carrying skip-list links.
	HasSkiplist Flags = 1 << 7
)

// Has reports whether all bits in want are set.
func (f Flags) Has(want Flags) bool { return f&want == want }

// TrailerKind identifies which trailer layout a frame's flags select.
type TrailerKind uint8

const (
	// TrailerNone means no trailer bytes follow the payload.
	TrailerNone TrailerKind = iota
	// TrailerCRC32C means a 4-byte CRC32C checksum follows the payload.
	TrailerCRC32C
	// TrailerBlake3 means a 32-byte BLAKE3 hash follows the payload.
	TrailerBlake3
	// TrailerBlake3Ed25519 means a 32-byte BLAKE3 hash followed by a
	// 64-byte Ed25519 signature (zeroed when unsigned) follows the payload.
	TrailerBlake3Ed25519
)

// Size returns the trailer's on-wire size in bytes.
func (k TrailerKind) Size() int {
	switch k {
	case TrailerCRC32C:
		return CRC32CSize
	case TrailerBlake3:
		return Blake3Size
	case TrailerBlake3Ed25519:
		return Blake3Size + Ed25519SigSize
	default:
		return 0
	}
}

// TrailerKindOf derives the trailer kind from the flag byte's low two bits.
// Both bits set is the overloaded combined-trailer encoding (see DESIGN.md
// for why this encoding, rather than a cleaner two-bit enum, was kept).
func TrailerKindOf(f Flags) TrailerKind {
	hasB3 := f.Has(HasBlake3)
	hasCRC := f.Has(HasCRC32C)
	switch {
	case hasB3 && hasCRC:
		return TrailerBlake3Ed25519
	case hasB3:
		return TrailerBlake3
	case hasCRC:
		return TrailerCRC32C
	default:
		return TrailerNone
	}
}

// isPreamble reports whether b is exactly the 2-byte PreamblePattern
// repeated to fill its length.
func isPreamble(b []byte) bool {
	for i := 0; i+1 < len(b); i += 2 {
		if b[i] != PreamblePattern[0] || b[i+1] != PreamblePattern[1] {
			return false
		}
	}
	return true
}

// hasMarkerAt reports whether buffer holds the marker at offset.
func hasMarkerAt(buffer []byte, offset int) bool {
	return offset >= 0 && len(buffer) >= offset+MarkerLen &&
		bytes.Equal(buffer[offset:offset+MarkerLen], Marker[:])
}

// forwardPrefixLen determines how many optional prefix bytes (preamble
// and/or sync word, in on-wire order) buffer begins with, by checking every
// legal combination for both a matching pattern and a marker immediately
// following it. Returns 0 if buffer begins with the marker directly, or if
// no recognizable prefix precedes a marker within the first 16 bytes.
func forwardPrefixLen(buffer []byte) int {
	switch {
	case hasMarkerAt(buffer, 0):
		return 0
	case len(buffer) >= PreambleLen && isPreamble(buffer[:PreambleLen]) && hasMarkerAt(buffer, PreambleLen):
		return PreambleLen
	case len(buffer) >= SyncWordLen && bytes.Equal(buffer[:SyncWordLen], SyncWord[:]) && hasMarkerAt(buffer, SyncWordLen):
		return SyncWordLen
	case len(buffer) >= PreambleLen+SyncWordLen &&
		isPreamble(buffer[:PreambleLen]) &&
		bytes.Equal(buffer[PreambleLen:PreambleLen+SyncWordLen], SyncWord[:]) &&
		hasMarkerAt(buffer, PreambleLen+SyncWordLen):
		return PreambleLen + SyncWordLen
	default:
		return 0
	}
}

// LeadingPrefixLen returns how many optional prefix bytes (preamble and/or
// sync word, in on-wire order) immediately precede a marker already located
// at markerOffset in buffer, or 0 if none match. The scanner uses this to
// extend a located frame's reported offset and size back over its prefix,
// since it finds frames by searching for the marker alone.
func LeadingPrefixLen(buffer []byte, markerOffset int) int {
	switch {
	case markerOffset >= PreambleLen+SyncWordLen &&
		isPreamble(buffer[markerOffset-PreambleLen-SyncWordLen:markerOffset-SyncWordLen]) &&
		bytes.Equal(buffer[markerOffset-SyncWordLen:markerOffset], SyncWord[:]):
		return PreambleLen + SyncWordLen
	case markerOffset >= SyncWordLen && bytes.Equal(buffer[markerOffset-SyncWordLen:markerOffset], SyncWord[:]):
		return SyncWordLen
	case markerOffset >= PreambleLen && isPreamble(buffer[markerOffset-PreambleLen:markerOffset]):
		return PreambleLen
	default:
		return 0
	}
}
