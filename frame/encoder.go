package frame

import (
	"crypto/ed25519"
	"encoding/binary"
	"hash/crc32"

	"github.com/etalazz/durapack/errs"
	"lukechampine.com/blake3"
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Encode serialises header and payload into a single on-disk frame,
// computing whichever trailer the header's flags select. It fails with
// InvalidStructure when len(payload) != header.PayloadLen, and with
// PayloadTooLarge / FrameTooLarge when the size limits are exceeded.
func Encode(header Header, payload []byte) ([]byte, error) {
	return encode(header, payload, nil)
}

// EncodeSigned is Encode, plus an Ed25519 signature over marker‖header‖payload
// written into the trailer's signature bytes. The signature is only
// meaningful when header.Flags selects the combined BLAKE3+Ed25519 trailer;
// for any other trailer kind signingKey is ignored.
func EncodeSigned(header Header, payload []byte, signingKey ed25519.PrivateKey) ([]byte, error) {
	return encode(header, payload, signingKey)
}

func encode(header Header, payload []byte, signingKey ed25519.PrivateKey) ([]byte, error) {
	if err := validateHeader(header); err != nil {
		return nil, err
	}
	if uint32(len(payload)) != header.PayloadLen {
		return nil, errs.NewInvalidStructure("payload length mismatch: header says %d, actual %d", header.PayloadLen, len(payload))
	}

	trailerKind := header.Trailer()
	prefix := encodePrefix(header.Flags)
	total := len(prefix) + MinFrameSize + len(payload) + trailerKind.Size()
	if total > MaxFrameSize {
		return nil, errs.NewFrameTooLarge(uint64(total), MaxFrameSize)
	}

	body := make([]byte, MinFrameSize+len(payload), MinFrameSize+len(payload)+trailerKind.Size())
	copy(body[0:4], Marker[:])
	body[4] = header.Version
	binary.BigEndian.PutUint64(body[5:13], header.FrameID)
	copy(body[13:45], header.PrevHash[:])
	binary.BigEndian.PutUint32(body[45:49], header.PayloadLen)
	body[49] = byte(header.Flags)
	copy(body[MinFrameSize:], payload)

	switch trailerKind {
	case TrailerNone:
		// no trailer bytes
	case TrailerCRC32C:
		sum := crc32.Checksum(body, castagnoli)
		var tb [4]byte
		binary.BigEndian.PutUint32(tb[:], sum)
		body = append(body, tb[:]...)
	case TrailerBlake3:
		sum := blake3.Sum256(body)
		body = append(body, sum[:]...)
	case TrailerBlake3Ed25519:
		sum := blake3.Sum256(body)
		sig := make([]byte, Ed25519SigSize)
		if len(signingKey) == ed25519.PrivateKeySize {
			copy(sig, ed25519.Sign(signingKey, body))
		}
		body = append(body, sum[:]...)
		body = append(body, sig...)
	}

	if len(prefix) == 0 {
		return body, nil
	}
	buf := make([]byte, 0, total)
	buf = append(buf, prefix...)
	buf = append(buf, body...)
	return buf, nil
}

// encodePrefix returns the optional preamble/sync-word bytes flags selects,
// in on-wire order (preamble before sync word), or nil if neither is set.
func encodePrefix(flags Flags) []byte {
	var prefix []byte
	if flags.Has(HasPreamble) {
		for i := 0; i < PreambleLen; i += 2 {
			prefix = append(prefix, PreamblePattern[0], PreamblePattern[1])
		}
	}
	if flags.Has(HasSyncPrefix) {
		prefix = append(prefix, SyncWord[:]...)
	}
	return prefix
}

func validateHeader(h Header) error {
	if h.Version != ProtocolVersion {
		return errs.NewUnsupportedVersion(h.Version)
	}
	if h.PayloadLen > MaxPayloadSize {
		return errs.NewPayloadTooLarge(uint64(h.PayloadLen), MaxPayloadSize)
	}
	return nil
}

// ChainHash computes the BLAKE3 hash a successor frame must place in its
// PrevHash field: version‖frame_id‖prev_hash‖payload_len‖flags‖(prevTrailer?)‖payload.
// prevTrailer is an optional trailer-inclusion extension; pass nil to use
// the plain (and default) formula.
func ChainHash(f Frame, prevTrailer []byte) [32]byte {
	h := blake3.New(32, nil)
	h.Write([]byte{f.Header.Version})
	var idBuf [8]byte
	binary.BigEndian.PutUint64(idBuf[:], f.Header.FrameID)
	h.Write(idBuf[:])
	h.Write(f.Header.PrevHash[:])
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], f.Header.PayloadLen)
	h.Write(lenBuf[:])
	h.Write([]byte{byte(f.Header.Flags)})
	if len(prevTrailer) > 0 {
		h.Write(prevTrailer)
	}
	h.Write(f.Payload)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Builder fluently constructs a Header + payload pair, one setter per
// field, so callers don't have to hand-assemble a Header literal.
type Builder struct {
	frameID  uint64
	prevHash [32]byte
	payload  []byte
	flags    Flags
}

// NewBuilder starts building a frame with the given frame ID.
func NewBuilder(frameID uint64) *Builder {
	return &Builder{frameID: frameID}
}

// PrevHash sets the predecessor's chain hash.
func (b *Builder) PrevHash(hash [32]byte) *Builder {
	b.prevHash = hash
	return b
}

// Payload sets the frame payload.
func (b *Builder) Payload(payload []byte) *Builder {
	b.payload = payload
	return b
}

// WithCRC32C selects the CRC32C trailer.
func (b *Builder) WithCRC32C() *Builder {
	b.flags |= HasCRC32C
	return b
}

// WithBlake3 selects the BLAKE3 trailer.
func (b *Builder) WithBlake3() *Builder {
	b.flags |= HasBlake3
	return b
}

// WithBlake3Signature selects the combined BLAKE3+Ed25519 trailer.
func (b *Builder) WithBlake3Signature() *Builder {
	b.flags |= HasCRC32C | HasBlake3
	return b
}

// WithPreamble prepends the 8-byte preamble pattern before the marker.
func (b *Builder) WithPreamble() *Builder {
	b.flags |= HasPreamble
	return b
}

// WithSyncPrefix prepends the 8-byte sync word before the marker (after the
// preamble, if that is also selected).
func (b *Builder) WithSyncPrefix() *Builder {
	b.flags |= HasSyncPrefix
	return b
}

// MarkFirst marks the frame as the first of a logical sequence and forces
// PrevHash back to zero.
func (b *Builder) MarkFirst() *Builder {
	b.flags |= IsFirst
	b.prevHash = [32]byte{}
	return b
}

// MarkLast marks the frame as the last of a logical sequence.
func (b *Builder) MarkLast() *Builder {
	b.flags |= IsLast
	return b
}

// AsSuperframe marks the payload as carrying a super-index.
func (b *Builder) AsSuperframe() *Builder {
	b.flags |= IsSuperframe
	return b
}

// WithSkiplist marks the payload as carrying skip-list backlinks.
func (b *Builder) WithSkiplist() *Builder {
	b.flags |= HasSkiplist
	return b
}

func (b *Builder) header() Header {
	return Header{
		Version:    ProtocolVersion,
		FrameID:    b.frameID,
		PrevHash:   b.prevHash,
		PayloadLen: uint32(len(b.payload)),
		Flags:      b.flags,
	}
}

// Build encodes the frame described so far.
func (b *Builder) Build() ([]byte, error) {
	return Encode(b.header(), b.payload)
}

// BuildSigned encodes the frame described so far with an Ed25519 signature.
func (b *Builder) BuildSigned(signingKey ed25519.PrivateKey) ([]byte, error) {
	return EncodeSigned(b.header(), b.payload, signingKey)
}

// BuildFrame returns the Frame struct without encoding it to bytes.
func (b *Builder) BuildFrame() (Frame, error) {
	h := b.header()
	if err := validateHeader(h); err != nil {
		return Frame{}, err
	}
	return Frame{Header: h, Payload: b.payload}, nil
}
