package gateway

import (
	"bytes"
	"testing"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deflate(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, err := zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDecodeFrameNil(t *testing.T) {
	var v any
	ok, err := DecodeFrame(nil, &v)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestDecodeFrameText(t *testing.T) {
	f := &Frame{Kind: FrameText, Data: []byte(`{"op":10,"d":{"heartbeat_interval":41250}}`)}

	var v map[string]any
	ok, err := DecodeFrame(f, &v)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, float64(10), v["op"])

	d, isMap := v["d"].(map[string]any)
	require.True(t, isMap)
	assert.Equal(t, float64(41250), d["heartbeat_interval"])
}

func TestDecodeFrameBinary(t *testing.T) {
	f := &Frame{Kind: FrameBinary, Data: deflate(t, `{"op":11}`)}

	var v map[string]any
	ok, err := DecodeFrame(f, &v)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"op": float64(11)}, v)
}

func TestDecodeFrameCorruptZlib(t *testing.T) {
	payload := []byte{0xde, 0xad, 0xbe, 0xef}
	f := &Frame{Kind: FrameBinary, Data: payload}

	var v any
	ok, err := DecodeFrame(f, &v)
	require.Error(t, err)
	assert.False(t, ok)

	var ie *InflateError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, payload, ie.Data)
	assert.Nil(t, v)
}

func TestDecodeFrameTruncatedZlib(t *testing.T) {
	data := deflate(t, `{"op":11,"d":null}`)
	f := &Frame{Kind: FrameBinary, Data: data[:len(data)-4]}

	var v any
	ok, err := DecodeFrame(f, &v)
	require.Error(t, err)
	assert.False(t, ok)

	var ie *InflateError
	require.ErrorAs(t, err, &ie)
}

func TestDecodeFrameBadJSON(t *testing.T) {
	cases := []struct {
		name string
		f    *Frame
	}{
		{"text", &Frame{Kind: FrameText, Data: []byte(`{"op":`)}},
		{"binary", &Frame{Kind: FrameBinary, Data: deflate(t, `{"op":`)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var v any
			ok, err := DecodeFrame(tc.f, &v)
			require.Error(t, err)
			assert.False(t, ok)

			var de *DecodeError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, `{"op":`, de.Text)
			assert.Nil(t, v)
		})
	}
}

func TestDecodeFrameNonPayload(t *testing.T) {
	frames := []*Frame{
		{Kind: FrameOther},
		{Kind: FrameClose}, // close without a status
	}
	for _, f := range frames {
		var v any
		ok, err := DecodeFrame(f, &v)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, v)
	}
}

func TestDecodeFrameCloseWithStatus(t *testing.T) {
	f := &Frame{Kind: FrameClose, Close: &CloseSignal{Code: 1000, Reason: "bye"}}

	var v any
	ok, err := DecodeFrame(f, &v)
	require.Error(t, err)
	assert.False(t, ok)

	var ce *ClosedError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 1000, ce.Signal.Code)
	assert.Equal(t, "bye", ce.Signal.Reason)
	assert.Nil(t, v)
}

func TestDecodeFrameRoundTrip(t *testing.T) {
	values := []any{
		map[string]any{"op": float64(1), "d": nil},
		map[string]any{
			"op": float64(0),
			"t":  "MESSAGE_CREATE",
			"d":  map[string]any{"content": "hi", "mentions": []any{"a", "b"}},
		},
		[]any{float64(1), "two", true, nil},
	}
	for _, want := range values {
		data, err := json.Marshal(want)
		require.NoError(t, err)

		var got any
		ok, err := DecodeFrame(&Frame{Kind: FrameText, Data: data}, &got)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
}
