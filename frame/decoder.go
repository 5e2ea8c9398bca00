package frame

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/etalazz/durapack/errs"
	"lukechampine.com/blake3"
)

// Decode strictly parses one frame starting at offset 0 of buffer, copying
// payload and trailer bytes into freshly allocated slices. It refuses any
// frame whose marker, version, size, or trailer fails its check. If the
// frame's flags select a preamble and/or sync-word prefix, those bytes are
// expected at the very start of buffer and are skipped over.
func Decode(buffer []byte) (Frame, error) {
	f, _, err := decode(buffer, true)
	return f, err
}

// DecodeZeroCopy parses one frame starting at offset 0 of buffer (including
// any optional preamble/sync prefix), returning a Frame whose Payload and
// Trailer are sub-slices of buffer rather than copies. The caller must not
// mutate buffer for as long as the returned Frame is in use. Precondition:
// buffer holds exactly one full frame starting at offset 0.
func DecodeZeroCopy(buffer []byte) (Frame, error) {
	f, _, err := decode(buffer, false)
	return f, err
}

// lookaheadParse reads just enough of buffer to compute the frame's total
// on-wire size without allocating a payload/trailer copy. It returns the
// parsed header and the total size the frame occupies starting at offset 0,
// including any optional preamble/sync prefix detected at the front of
// buffer. decode calls this first to decide whether buffer holds the complete
// frame before it touches the payload and trailer.
func lookaheadParse(buffer []byte) (Header, int, error) {
	prefixLen := forwardPrefixLen(buffer)
	body := buffer[prefixLen:]
	if len(body) < MinFrameSize {
		return Header{}, 0, errs.NewIncompleteFrame(uint64(prefixLen+MinFrameSize), uint64(len(buffer)))
	}
	var got [4]byte
	copy(got[:], body[0:4])
	if got != Marker {
		return Header{}, 0, errs.NewBadMarker(got)
	}
	h := Header{
		Version:    body[4],
		FrameID:    binary.BigEndian.Uint64(body[5:13]),
		PayloadLen: binary.BigEndian.Uint32(body[45:49]),
		Flags:      Flags(body[49]),
	}
	copy(h.PrevHash[:], body[13:45])

	if h.Version != ProtocolVersion {
		return Header{}, 0, errs.NewUnsupportedVersion(h.Version)
	}
	if h.PayloadLen > MaxPayloadSize {
		return Header{}, 0, errs.NewPayloadTooLarge(uint64(h.PayloadLen), MaxPayloadSize)
	}
	if h.PrefixLen() != prefixLen {
		return Header{}, 0, errs.NewInvalidStructure("frame declares %d prefix bytes but %d were found before the marker", h.PrefixLen(), prefixLen)
	}

	total := prefixLen + MinFrameSize + int(h.PayloadLen) + h.Trailer().Size()
	if total > MaxFrameSize {
		return Header{}, 0, errs.NewFrameTooLarge(uint64(total), MaxFrameSize)
	}
	return h, total, nil
}

func decode(buffer []byte, copyBytes bool) (Frame, int, error) {
	header, total, err := lookaheadParse(buffer)
	if err != nil {
		return Frame{}, 0, err
	}
	if len(buffer) < total {
		return Frame{}, 0, errs.NewIncompleteFrame(uint64(total), uint64(len(buffer)))
	}

	payloadStart := header.PrefixLen() + MinFrameSize
	payloadEnd := payloadStart + int(header.PayloadLen)
	trailerEnd := payloadEnd + header.Trailer().Size()

	if err := verifyTrailer(buffer[header.PrefixLen():trailerEnd], header, buffer[payloadEnd:trailerEnd]); err != nil {
		return Frame{}, 0, err
	}

	var payload, trailer []byte
	if copyBytes {
		payload = append([]byte(nil), buffer[payloadStart:payloadEnd]...)
		if trailerEnd > payloadEnd {
			trailer = append([]byte(nil), buffer[payloadEnd:trailerEnd]...)
		}
	} else {
		payload = buffer[payloadStart:payloadEnd]
		if trailerEnd > payloadEnd {
			trailer = buffer[payloadEnd:trailerEnd]
		}
	}

	return Frame{Header: header, Payload: payload, Trailer: trailer}, total, nil
}

// verifyTrailer checks the trailer bytes against the hash/checksum computed
// over marker‖header‖payload (everything in framed up to, but excluding, the
// trailer itself). For the combined trailer only the 32-byte hash portion is
// verified; signature verification is an external operation.
func verifyTrailer(framed []byte, header Header, trailer []byte) error {
	switch header.Trailer() {
	case TrailerNone:
		return nil
	case TrailerCRC32C:
		body := framed[:len(framed)-CRC32CSize]
		want := binary.BigEndian.Uint32(trailer)
		got := crc32.Checksum(body, castagnoli)
		if got != want {
			return errs.NewChecksumMismatch(want, got)
		}
		return nil
	case TrailerBlake3:
		body := framed[:len(framed)-Blake3Size]
		want := trailer
		got := blake3.Sum256(body)
		if string(got[:]) != string(want) {
			return errs.NewHashMismatch()
		}
		return nil
	case TrailerBlake3Ed25519:
		body := framed[:len(framed)-Blake3Size-Ed25519SigSize]
		want := trailer[:Blake3Size]
		got := blake3.Sum256(body)
		if string(got[:]) != string(want) {
			return errs.NewHashMismatch()
		}
		return nil
	default:
		return nil
	}
}
