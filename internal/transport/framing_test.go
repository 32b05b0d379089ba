package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecognizeHeaderRoundTripLaws(t *testing.T) {
	cases := []struct {
		name    string
		header  []byte
		framing Framing
		total   int
	}{
		{"tpkt header only", []byte{0x03, 0x00, 0x00, 0x04}, FramingTPKT, 4},
		{"fast-path short", []byte{0x00, 0x08, 0xAA, 0xBB}, FramingFastPath, 8},
		{"fast-path long", []byte{0x80, 0x82, 0x00}, FramingFastPath, 512},
		{"tsrequest short form", []byte{0x30, 0x05, 0, 0, 0, 0, 0}, FramingTSRequest, 7},
		{"tsrequest one length octet", []byte{0x30, 0x81, 0x80}, FramingTSRequest, 131},
		{"tsrequest two length octets", []byte{0x30, 0x82, 0x01, 0x00}, FramingTSRequest, 260},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision, err := recognizeHeader(tc.header)
			require.NoError(t, err)
			assert.Equal(t, tc.framing, decision.Framing)
			assert.Equal(t, 0, decision.Need)
			assert.Equal(t, tc.total, decision.Total)
		})
	}
}

func TestRecognizeHeaderAsksForMoreBytes(t *testing.T) {
	decision, err := recognizeHeader([]byte{0x03, 0x00})
	require.NoError(t, err)
	assert.Equal(t, FramingTPKT, decision.Framing)
	assert.Equal(t, 2, decision.Need)
	assert.Equal(t, 0, decision.Total)

	decision, err = recognizeHeader([]byte{0x30, 0x81})
	require.NoError(t, err)
	assert.Equal(t, FramingTSRequest, decision.Framing)
	assert.Equal(t, 1, decision.Need)
}

func TestRecognizeTSRequestRejectsWideLengthEncoding(t *testing.T) {
	_, err := recognizeHeader([]byte{0x30, 0x83, 0x01, 0x02, 0x03})
	require.Error(t, err)
	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, "unsupported TSRequest length encoding", protoErr.Reason)
}

func TestRecognizeHeaderEmptyBuffer(t *testing.T) {
	decision, err := recognizeHeader(nil)
	require.NoError(t, err)
	assert.Equal(t, FramingUnknown, decision.Framing)
	assert.Equal(t, 1, decision.Need)
}
