// Package fec implements the Reed-Solomon redundancy layer: encoding parity
// shards over a block of data frames, reconstructing missing shards from a
// sufficient subset, and the interleaver and sidecar index that support it.
package fec

import (
	"bytes"

	"github.com/klauspost/reedsolomon"

	"github.com/etalazz/durapack/errs"
	"github.com/etalazz/durapack/frame"
)

// FecBlock is a single shard (data or parity) of a Reed-Solomon block.
type FecBlock struct {
	BlockID     uint64
	Index       int
	TotalBlocks int
	Data        []byte
}

// EncodeBatch produces K parity shards for the N frames in frames, zero-
// padding payloads to the block's common shard length on the right.
// Positions 0..N-1 of the result are the (padded) data shards in input
// order; positions N..N+K-1 are the parity shards. blockID is a caller
// concern and is copied verbatim onto every returned FecBlock.
func EncodeBatch(blockID uint64, frames []frame.Frame, redundancy int) ([]FecBlock, error) {
	n := len(frames)
	if n == 0 {
		return nil, errs.NewInvalidStructure("rs encode_batch: need at least one data frame")
	}
	if redundancy < 0 {
		return nil, errs.NewInvalidStructure("rs encode_batch: redundancy must be >= 0")
	}
	if n+redundancy > 255 {
		return nil, errs.NewInvalidStructure("rs encode_batch: n+k (%d) exceeds 255", n+redundancy)
	}

	shardLen := 0
	for _, f := range frames {
		if len(f.Payload) > shardLen {
			shardLen = len(f.Payload)
		}
	}
	if shardLen == 0 {
		shardLen = 1
	}

	shards := make([][]byte, n+redundancy)
	for i, f := range frames {
		shard := make([]byte, shardLen)
		copy(shard, f.Payload)
		shards[i] = shard
	}
	for i := n; i < n+redundancy; i++ {
		shards[i] = make([]byte, shardLen)
	}

	if redundancy > 0 {
		enc, err := reedsolomon.New(n, redundancy)
		if err != nil {
			return nil, errs.NewInvalidStructure("rs encode_batch: %v", err)
		}
		if err := enc.Encode(shards); err != nil {
			return nil, errs.NewInvalidStructure("rs encode_batch: %v", err)
		}
	}

	blocks := make([]FecBlock, n+redundancy)
	for i, shard := range shards {
		blocks[i] = FecBlock{BlockID: blockID, Index: i, TotalBlocks: n + redundancy, Data: shard}
	}
	return blocks, nil
}

// CanReconstruct reports whether available shards suffice to reconstruct a
// block of total (data) frames: true iff available >= total.
func CanReconstruct(available, total int) bool {
	return available >= total
}

// DecodeBatch reconstructs the N data shards of a block from whatever
// subset of its N+K shards is available, trims each recovered shard's
// trailing zero padding, and returns placeholder frames (frame_id=0,
// prev_hash=0) carrying the recovered payloads. The caller is responsible
// for rebinding the recovered frames to their correct header metadata via
// the sidecar index.
func DecodeBatch(blocks []FecBlock, totalFrames int) ([]frame.Frame, error) {
	if len(blocks) == 0 {
		return nil, errs.NewNoFramesFound()
	}
	if totalFrames <= 0 {
		return nil, errs.NewInvalidStructure("rs decode_batch: total_frames must be > 0")
	}

	total := blocks[0].TotalBlocks
	shardLen := 0
	for _, b := range blocks {
		if b.TotalBlocks != total {
			return nil, errs.NewInvalidStructure("rs decode_batch: block totals disagree across recovered set")
		}
		if len(b.Data) > shardLen {
			shardLen = len(b.Data)
		}
	}
	for _, b := range blocks {
		if len(b.Data) != shardLen {
			return nil, errs.NewInvalidStructure("rs decode_batch: shard lengths disagree across recovered set")
		}
	}

	redundancy := total - totalFrames
	if redundancy < 0 {
		return nil, errs.NewInvalidStructure("rs decode_batch: total_frames %d exceeds block total %d", totalFrames, total)
	}
	if !CanReconstruct(len(blocks), totalFrames) {
		return nil, errs.NewInvalidStructure("rs decode_batch: insufficient shards: have %d, need %d", len(blocks), totalFrames)
	}

	shards := make([][]byte, total)
	for _, b := range blocks {
		if b.Index < 0 || b.Index >= total {
			return nil, errs.NewInvalidStructure("rs decode_batch: shard index %d out of range", b.Index)
		}
		shards[b.Index] = b.Data
	}

	if redundancy > 0 {
		enc, err := reedsolomon.New(totalFrames, redundancy)
		if err != nil {
			return nil, errs.NewInvalidStructure("rs decode_batch: %v", err)
		}
		if err := enc.Reconstruct(shards); err != nil {
			return nil, errs.NewInvalidStructure("rs decode_batch: %v", err)
		}
	}

	frames := make([]frame.Frame, totalFrames)
	for i := 0; i < totalFrames; i++ {
		payload := bytes.TrimRight(shards[i], "\x00")
		frames[i] = frame.Frame{
			Header: frame.Header{
				Version:    frame.ProtocolVersion,
				PayloadLen: uint32(len(payload)),
			},
			Payload: payload,
		}
	}
	return frames, nil
}
