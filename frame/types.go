package frame

// Header is the 46-byte mandatory frame header (everything between the
// marker and the payload).
type Header struct {
	Version    uint8
	FrameID    uint64
	PrevHash   [32]byte
	PayloadLen uint32
	Flags      Flags
}

// IsFirst reports whether this header's PrevHash is all zeros, the wire
// convention for "first frame of a logical sequence" (independent of
// whether the IsFirst flag bit is also set).
func (h Header) IsFirst() bool {
	return h.PrevHash == [32]byte{}
}

// Trailer returns the trailer kind this header's flags select.
func (h Header) Trailer() TrailerKind {
	return TrailerKindOf(h.Flags)
}

// PrefixLen returns how many optional prefix bytes (preamble and/or sync
// word, per flags) precede the marker on the wire.
func (h Header) PrefixLen() int {
	n := 0
	if h.Flags.Has(HasPreamble) {
		n += PreambleLen
	}
	if h.Flags.Has(HasSyncPrefix) {
		n += SyncWordLen
	}
	return n
}

// Frame is a fully decoded, in-memory frame: header, payload, and whatever
// trailer bytes were present on the wire (nil if TrailerNone).
type Frame struct {
	Header  Header
	Payload []byte
	Trailer []byte
}

// TotalSize returns the number of bytes this frame occupies on the wire,
// including any optional preamble/sync prefix its flags select.
func (f Frame) TotalSize() int {
	return f.Header.PrefixLen() + MinFrameSize + len(f.Payload) + f.Header.Trailer().Size()
}

// Signed reports whether this frame carries a non-zero Ed25519 signature in
// a combined BLAKE3+Ed25519 trailer. A combined trailer whose signature
// bytes are all zero was written unsigned and MUST NOT be reported as
// signed.
func (f Frame) Signed() bool {
	if f.Header.Trailer() != TrailerBlake3Ed25519 || len(f.Trailer) != Blake3Size+Ed25519SigSize {
		return false
	}
	sig := f.Trailer[Blake3Size:]
	for _, b := range sig {
		if b != 0 {
			return true
		}
	}
	return false
}
