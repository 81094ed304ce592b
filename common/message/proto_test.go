package message

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestFrameRoundTrip(t *testing.T) {
	in := Frame{
		Tick: 42,
		Time: 10.5,
		Agents: []AgentState{
			{ID: 0, PX: 1, PY: -2, VX: 0.5, VY: 0, Radius: 1.5},
			{ID: -3, PX: math.MaxFloat64, PY: math.SmallestNonzeroFloat64, VX: -1, VY: 2, Radius: 0.25},
		},
	}

	out, err := Decode(Encode(nil, &in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestEncodeAppends(t *testing.T) {
	prefix := []byte{0xAA}
	b := Encode(prefix, &Frame{Tick: 1})
	assert.Equal(t, byte(0xAA), b[0])

	f, err := Decode(b[1:])
	require.NoError(t, err)
	assert.Equal(t, uint64(1), f.Tick)
}

func TestEmptyFrame(t *testing.T) {
	b := Encode(nil, &Frame{})
	assert.Empty(t, b)

	f, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, Frame{}, f)
}

func TestDecodeSkipsUnknownFields(t *testing.T) {
	b := Encode(nil, &Frame{Tick: 7})
	b = protowire.AppendTag(b, 15, protowire.BytesType)
	b = protowire.AppendString(b, "viewer hint")

	f, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), f.Tick)
}

func TestDecodeTruncated(t *testing.T) {
	b := Encode(nil, &Frame{Tick: 1, Time: 2, Agents: []AgentState{{ID: 1, PX: 3}}})

	_, err := Decode(b[:len(b)-2])
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Decode([]byte{0xFF})
	assert.ErrorIs(t, err, ErrMalformed)
}
