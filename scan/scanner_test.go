package scan_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etalazz/durapack/frame"
	"github.com/etalazz/durapack/scan"
)

func buildFrame(t *testing.T, id uint64, payload string) []byte {
	t.Helper()
	b, err := frame.NewBuilder(id).Payload([]byte(payload)).WithCRC32C().Build()
	require.NoError(t, err)
	return b
}

func TestScanCleanStream(t *testing.T) {
	var stream []byte
	stream = append(stream, buildFrame(t, 1, "First frame")...)
	stream = append(stream, buildFrame(t, 2, "Second frame")...)
	stream = append(stream, buildFrame(t, 3, "Third frame")...)

	located := scan.Scan(stream)
	require.Len(t, located, 3)
	assert.Equal(t, uint64(1), located[0].Frame.Header.FrameID)
	assert.Equal(t, uint64(2), located[1].Frame.Header.FrameID)
	assert.Equal(t, uint64(3), located[2].Frame.Header.FrameID)
	assert.Equal(t, 0, located[0].Offset)
}

func TestScanDamageMonotone(t *testing.T) {
	var clean []byte
	clean = append(clean, buildFrame(t, 1, "alpha")...)
	clean = append(clean, buildFrame(t, 2, "beta")...)

	var noisy []byte
	noisy = append(noisy, buildFrame(t, 1, "alpha")...)
	noisy = append(noisy, []byte("----some garbage bytes between frames----")...)
	noisy = append(noisy, buildFrame(t, 2, "beta")...)

	cleanCount := len(scan.Scan(clean))
	noisyCount := len(scan.Scan(noisy))
	assert.GreaterOrEqual(t, noisyCount, cleanCount)
}

func TestScanBurstError(t *testing.T) {
	f1 := buildFrame(t, 1, "alpha frame body")
	f2 := buildFrame(t, 2, "beta frame body")
	f3 := buildFrame(t, 3, "gamma frame body")

	var stream []byte
	stream = append(stream, f1...)
	stream = append(stream, f2...)
	stream = append(stream, f3...)

	// Overwrite the middle 50 bytes of the middle frame with 0xFF.
	middleStart := len(f1) + (len(f2)-50)/2
	for i := 0; i < 50; i++ {
		stream[middleStart+i] = 0xFF
	}

	located := scan.Scan(stream)
	require.Len(t, located, 2)
	assert.Equal(t, uint64(1), located[0].Frame.Header.FrameID)
	assert.Equal(t, uint64(3), located[1].Frame.Header.FrameID)
}

func TestScanStatsRecoveryRate(t *testing.T) {
	stream := buildFrame(t, 1, "stats frame")
	located, stats := scan.ScanWithStats(stream)
	require.Len(t, located, 1)
	assert.Equal(t, uint64(len(stream)), stats.BytesScanned)
	assert.Equal(t, uint64(1), stats.FramesFound)
	assert.InDelta(t, 100.0, stats.RecoveryRate(), 0.001)
}

func TestScanNoPanicOnGarbage(t *testing.T) {
	garbage := []byte{0x00, 0xFF, 'D', 'U', 'R', 0x01, 0x02, 'P', 'D', 'U', 'R', 'P'}
	assert.NotPanics(t, func() {
		scan.Scan(garbage)
	})
}

func TestScanIncludesSyncPrefixInOffsetAndSize(t *testing.T) {
	b, err := frame.NewBuilder(1).Payload([]byte("synced")).WithCRC32C().WithPreamble().WithSyncPrefix().Build()
	require.NoError(t, err)

	located := scan.Scan(b)
	require.Len(t, located, 1)
	assert.Equal(t, 0, located[0].Offset)
	assert.Equal(t, len(b), located[0].Size)
}

func TestScanFuzzyMarkerMatchesSingleBitFlip(t *testing.T) {
	clean := buildFrame(t, 1, "fuzzy")
	damaged := append([]byte(nil), clean...)
	damaged[0] ^= 0x01 // flip one bit inside the marker

	exact := scan.Scan(damaged)
	assert.Len(t, exact, 0)

	fuzzy := scan.ScanWithOptions(damaged, scan.Options{MaxMarkerHamming: 1})
	require.Len(t, fuzzy, 1)
	assert.Equal(t, uint64(1), fuzzy[0].Frame.Header.FrameID)
}

func BenchmarkScan(b *testing.B) {
	var stream []byte
	for i := uint64(1); i <= 100; i++ {
		enc, _ := frame.NewBuilder(i).Payload(make([]byte, 64)).WithCRC32C().Build()
		stream = append(stream, enc...)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		scan.Scan(stream)
	}
}
