package fec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etalazz/durapack/fec"
	"github.com/etalazz/durapack/frame"
)

func dataFrame(id uint64, payload string) frame.Frame {
	return frame.Frame{
		Header: frame.Header{
			Version:    frame.ProtocolVersion,
			FrameID:    id,
			PayloadLen: uint32(len(payload)),
		},
		Payload: []byte(payload),
	}
}

func TestRSRecoveryDropOneShard(t *testing.T) {
	frames := []frame.Frame{dataFrame(1, "A"), dataFrame(2, "BC")}

	blocks, err := fec.EncodeBatch(1, frames, 1)
	require.NoError(t, err)
	require.Len(t, blocks, 3)

	// Drop shard index 0.
	available := []fec.FecBlock{blocks[1], blocks[2]}

	recovered, err := fec.DecodeBatch(available, 2)
	require.NoError(t, err)
	require.Len(t, recovered, 2)
	assert.Equal(t, "A", string(recovered[0].Payload))
	assert.Equal(t, "BC", string(recovered[1].Payload))
}

func TestRSCanReconstruct(t *testing.T) {
	assert.True(t, fec.CanReconstruct(4, 4))
	assert.True(t, fec.CanReconstruct(5, 4))
	assert.False(t, fec.CanReconstruct(3, 4))
}

func TestRSInadmissibleParameters(t *testing.T) {
	_, err := fec.EncodeBatch(1, nil, 1)
	require.Error(t, err)
}

func TestInterleaveDeinterleaveInverse(t *testing.T) {
	input := []byte("the quick brown fox jumps over the lazy dog 0123456789")
	stripes, err := fec.Interleave(input, 4, 3)
	require.NoError(t, err)
	require.Len(t, stripes, 4)

	out, err := fec.Deinterleave(stripes, 4, 3)
	require.NoError(t, err)
	assert.Equal(t, input, out)
}

func TestInterleaveRejectsInvalidParams(t *testing.T) {
	_, err := fec.Interleave([]byte("x"), 0, 1)
	require.Error(t, err)
	_, err = fec.Interleave([]byte("x"), 1, 0)
	require.Error(t, err)
}

func TestSidecarRoundTrip(t *testing.T) {
	entries := []fec.FecIndexEntry{
		{BlockStartID: 1, Data: 2, Parity: 1, ParityFrameIDs: []uint64{3}},
		{BlockStartID: 4, Data: 2, Parity: 1, ParityFrameIDs: []uint64{6}},
	}
	raw, err := fec.WriteSidecar(entries)
	require.NoError(t, err)

	decoded, err := fec.ReadSidecar(raw)
	require.NoError(t, err)
	assert.Equal(t, entries, decoded)
}

func TestSidecarToleratesLegacyUnderscoreKey(t *testing.T) {
	legacy := []byte(`[{"block_start_id":1,"data":2,"parity":1,"_parity_frame_ids":[3]}]`)
	decoded, err := fec.ReadSidecar(legacy)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, []uint64{3}, decoded[0].ParityFrameIDs)
}

func TestPackerFlushesOnFullBlock(t *testing.T) {
	packer := fec.NewPacker(2, 1, 100)

	out1, err := packer.Push(dataFrame(1, "A"))
	require.NoError(t, err)
	assert.Nil(t, out1)

	out2, err := packer.Push(dataFrame(2, "BC"))
	require.NoError(t, err)
	require.Len(t, out2, 1)

	entries := packer.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, uint64(1), entries[0].BlockStartID)
	assert.Equal(t, []uint64{100}, entries[0].ParityFrameIDs)
}

func TestPackerFlushReturnsLeftoverFrames(t *testing.T) {
	packer := fec.NewPacker(3, 1, 100)

	out1, err := packer.Push(dataFrame(1, "A"))
	require.NoError(t, err)
	assert.Nil(t, out1)

	out2, err := packer.Push(dataFrame(2, "B"))
	require.NoError(t, err)
	assert.Nil(t, out2)

	leftover := packer.Flush()
	require.Len(t, leftover, 2)
	assert.Equal(t, uint64(1), leftover[0].Header.FrameID)
	assert.Equal(t, uint64(2), leftover[1].Header.FrameID)

	assert.Empty(t, packer.Flush())
}

func TestPostFactoInjectionDryRun(t *testing.T) {
	var stream []byte
	for i := uint64(1); i <= 4; i++ {
		b, err := frame.NewBuilder(i).Payload([]byte("payload")).WithCRC32C().Build()
		require.NoError(t, err)
		stream = append(stream, b...)
	}
	originalLen := len(stream)

	out, entries, err := fec.PostFactoInject(stream, 2, 1, true)
	require.NoError(t, err)
	assert.Equal(t, originalLen, len(out))
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(1), entries[0].BlockStartID)
	assert.Equal(t, uint64(3), entries[1].BlockStartID)
	assert.Equal(t, 2, entries[0].Data)
	assert.Equal(t, 1, entries[0].Parity)
	require.Len(t, entries[0].ParityFrameIDs, 1)
}

func TestPostFactoInjectionFailsOnEmptyStream(t *testing.T) {
	_, _, err := fec.PostFactoInject(nil, 2, 1, true)
	require.Error(t, err)
}

func BenchmarkRSEncode(b *testing.B) {
	frames := []frame.Frame{dataFrame(1, "AAAA"), dataFrame(2, "BBBB"), dataFrame(3, "CCCC")}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = fec.EncodeBatch(1, frames, 2)
	}
}
