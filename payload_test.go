package durapack_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etalazz/durapack"
)

func TestRawPayloadRoundTrip(t *testing.T) {
	raw := durapack.RawPayload([]byte{0x01, 0x02, 0x03})
	bytes, err := raw.ToBytes()
	require.NoError(t, err)

	decoded, err := durapack.RawPayloadFromBytes(bytes)
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)
}

func TestTextPayloadRoundTrip(t *testing.T) {
	text := durapack.TextPayload("hello durapack")
	bytes, err := text.ToBytes()
	require.NoError(t, err)

	decoded, err := durapack.TextPayloadFromBytes(bytes)
	require.NoError(t, err)
	assert.Equal(t, text, decoded)
}

func TestCBORPayloadRoundTripWithCorrelationID(t *testing.T) {
	correlationID := uuid.New().String()
	value := map[string]interface{}{
		"correlation_id": correlationID,
		"sequence":       uint64(7),
	}

	payload := durapack.CBORPayload{Value: value}
	bytes, err := payload.ToBytes()
	require.NoError(t, err)

	decoded, err := durapack.CBORPayloadFromBytes(bytes)
	require.NoError(t, err)

	decodedMap, ok := decoded.Value.(map[interface{}]interface{})
	require.True(t, ok)
	assert.Equal(t, correlationID, decodedMap["correlation_id"])
}

func TestEncodeFrameWithCBORPayload(t *testing.T) {
	payload := durapack.CBORPayload{Value: map[string]interface{}{"id": uuid.New().String()}}
	body, err := payload.ToBytes()
	require.NoError(t, err)

	header := durapack.Header{
		Version:    durapack.ProtocolVersion,
		FrameID:    1,
		PayloadLen: uint32(len(body)),
		Flags:      durapack.HasBlake3,
	}
	encoded, err := durapack.EncodeFrame(header, body)
	require.NoError(t, err)

	decoded, err := durapack.DecodeFrame(encoded)
	require.NoError(t, err)
	assert.Equal(t, body, decoded.Payload)
}
