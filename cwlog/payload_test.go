package cwlog

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipJSON(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err = zw.Write(raw)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	in := Payload{
		MessageType: MessageTypeData,
		Owner:       "123456789012",
		LogGroup:    "flow-logs",
		LogStream:   "eni-1",
		LogEvents: []LogEvent{
			{
				ID:        "event-1",
				Timestamp: 1440442987000,
				Message:   "2 123456789012 eni-1 ACCEPT OK",
				ExtractedFields: map[string]string{
					"srcaddr": "10.0.0.1",
					"action":  "ACCEPT",
				},
			},
		},
	}

	got, err := Decode(gzipJSON(t, in))
	require.NoError(t, err)
	assert.Equal(t, MessageTypeData, got.MessageType)
	assert.Equal(t, "123456789012", got.Owner)
	assert.Equal(t, "flow-logs", got.LogGroup)
	assert.Equal(t, "eni-1", got.LogStream)
	require.Len(t, got.LogEvents, 1)
	assert.Equal(t, "event-1", got.LogEvents[0].ID)
	assert.Equal(t, "ACCEPT", got.LogEvents[0].ExtractedFields["action"])
	assert.False(t, got.IsControl())
}

func TestDecodeControlMessage(t *testing.T) {
	got, err := Decode(gzipJSON(t, Payload{MessageType: MessageTypeControl}))
	require.NoError(t, err)
	assert.True(t, got.IsControl())
}

func TestDecodeNotGzip(t *testing.T) {
	_, err := Decode([]byte("plain bytes, not gzip"))
	assert.Error(t, err)
}

func TestDecodeBadJSON(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte("{not json"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = Decode(buf.Bytes())
	assert.Error(t, err)
}
