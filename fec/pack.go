package fec

import (
	"github.com/etalazz/durapack/errs"
	"github.com/etalazz/durapack/frame"
	"github.com/etalazz/durapack/link"
	"github.com/etalazz/durapack/scan"
)

// Packer maintains the rolling block buffer an encoder uses while writing a
// stream: once N data frames have been pushed, it runs Reed-Solomon over
// them, wraps each parity shard in a frame of its own (sequential frame_id,
// prev_hash chained from the last frame emitted so far), and records a
// sidecar entry. A partial final block is never parity-protected; call
// Flush's return value to see what, if anything, was left over.
type Packer struct {
	n          int
	redundancy int

	buffer      []frame.Frame
	nextFrameID uint64
	lastFrame   *frame.Frame
	entries     []FecIndexEntry
}

// NewPacker starts a packer that protects every n data frames with
// redundancy parity frames, minting parity frame ids starting at
// firstParityID.
func NewPacker(n, redundancy int, firstParityID uint64) *Packer {
	return &Packer{n: n, redundancy: redundancy, nextFrameID: firstParityID}
}

// Push adds a data frame to the rolling buffer. It returns the encoded
// parity frames (and clears the buffer) once the buffer reaches n frames;
// otherwise it returns nil.
func (p *Packer) Push(f frame.Frame) ([][]byte, error) {
	p.buffer = append(p.buffer, f)
	p.lastFrame = &f
	if len(p.buffer) < p.n {
		return nil, nil
	}
	return p.flushBlock()
}

func (p *Packer) flushBlock() ([][]byte, error) {
	blockStart := p.buffer[0].Header.FrameID
	shards, err := EncodeBatch(blockStart, p.buffer, p.redundancy)
	if err != nil {
		return nil, err
	}

	parityShards := shards[p.n:]
	encoded := make([][]byte, 0, len(parityShards))
	parityIDs := make([]uint64, 0, len(parityShards))

	for _, shard := range parityShards {
		header := frame.Header{
			Version:    frame.ProtocolVersion,
			FrameID:    p.nextFrameID,
			PayloadLen: uint32(len(shard.Data)),
			Flags:      frame.HasCRC32C,
		}
		if p.lastFrame != nil {
			header.PrevHash = frame.ChainHash(*p.lastFrame, nil)
		}
		out, err := frame.Encode(header, shard.Data)
		if err != nil {
			return nil, err
		}
		newFrame := frame.Frame{Header: header, Payload: shard.Data}
		p.lastFrame = &newFrame
		encoded = append(encoded, out)
		parityIDs = append(parityIDs, p.nextFrameID)
		p.nextFrameID++
	}

	p.entries = append(p.entries, FecIndexEntry{
		BlockStartID:   blockStart,
		Data:           p.n,
		Parity:         p.redundancy,
		ParityFrameIDs: parityIDs,
	})
	p.buffer = nil
	return encoded, nil
}

// Entries returns the sidecar entries recorded so far.
func (p *Packer) Entries() []FecIndexEntry {
	return p.entries
}

// Flush returns whatever data frames are still sitting in the rolling
// buffer — the stream's tail, shorter than a full block of n frames, which
// is never parity-protected — and clears the buffer. Call this once the
// caller is done pushing frames, to recover the leftover frames rather than
// leaving them trapped in the packer's private state.
func (p *Packer) Flush() []frame.Frame {
	leftover := p.buffer
	p.buffer = nil
	return leftover
}

// PostFactoInject scans an existing stream, links it, groups the recovered
// frames into blocks of n in timeline order, computes k parity frames per
// block, and either appends them to a copy of stream (dryRun == false) or
// leaves stream untouched while still reporting what would be written
// (dryRun == true). Partial trailing blocks are ignored. Input that yields
// zero recoverable frames fails with NoFramesFound.
func PostFactoInject(stream []byte, n, k int, dryRun bool) ([]byte, []FecIndexEntry, error) {
	located := scan.Scan(stream)
	if len(located) == 0 {
		return nil, nil, errs.NewNoFramesFound()
	}

	frames := make([]frame.Frame, len(located))
	for i, lf := range located {
		frames[i] = lf.Frame
	}
	timeline := link.Link(frames)
	if len(timeline.Frames) == 0 {
		return nil, nil, errs.NewNoFramesFound()
	}

	maxID := uint64(0)
	for _, f := range timeline.Frames {
		if f.Header.FrameID > maxID {
			maxID = f.Header.FrameID
		}
	}
	for _, f := range timeline.Orphans {
		if f.Header.FrameID > maxID {
			maxID = f.Header.FrameID
		}
	}

	out := stream
	if !dryRun {
		out = append([]byte(nil), stream...)
	}

	var entries []FecIndexEntry
	nextParityID := maxID + 1
	lastFrame := timeline.Frames[len(timeline.Frames)-1]

	ordered := timeline.Frames
	for start := 0; start+n <= len(ordered); start += n {
		block := ordered[start : start+n]
		blockStart := block[0].Header.FrameID

		shards, err := EncodeBatch(blockStart, block, k)
		if err != nil {
			return nil, nil, err
		}

		parityIDs := make([]uint64, 0, k)
		for _, shard := range shards[n:] {
			header := frame.Header{
				Version:    frame.ProtocolVersion,
				FrameID:    nextParityID,
				PayloadLen: uint32(len(shard.Data)),
				Flags:      frame.HasCRC32C,
				PrevHash:   frame.ChainHash(lastFrame, nil),
			}
			encoded, err := frame.Encode(header, shard.Data)
			if err != nil {
				return nil, nil, err
			}
			newFrame := frame.Frame{Header: header, Payload: shard.Data}
			lastFrame = newFrame
			parityIDs = append(parityIDs, nextParityID)
			nextParityID++

			if !dryRun {
				out = append(out, encoded...)
			}
		}

		entries = append(entries, FecIndexEntry{
			BlockStartID:   blockStart,
			Data:           n,
			Parity:         k,
			ParityFrameIDs: parityIDs,
		})
	}

	return out, entries, nil
}
