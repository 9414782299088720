package cwlog

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
)

// Message types carried by CloudWatch Logs subscription payloads. Control
// messages are connectivity probes sent when a subscription is established.
const (
	MessageTypeControl = "CONTROL_MESSAGE"
	MessageTypeData    = "DATA_MESSAGE"
)

// LogEvent is a single log line shipped through a subscription filter.
// ExtractedFields is only populated when the filter pattern names fields.
type LogEvent struct {
	ID              string            `json:"id"`
	Timestamp       int64             `json:"timestamp"`
	Message         string            `json:"message"`
	ExtractedFields map[string]string `json:"extractedFields,omitempty"`
}

// Payload is one decompressed subscription batch. Each streaming record
// carries exactly one payload.
type Payload struct {
	MessageType         string     `json:"messageType"`
	Owner               string     `json:"owner"`
	LogGroup            string     `json:"logGroup"`
	LogStream           string     `json:"logStream"`
	SubscriptionFilters []string   `json:"subscriptionFilters"`
	LogEvents           []LogEvent `json:"logEvents"`
}

// IsControl reports whether the payload is a connectivity probe rather than
// log data.
func (p *Payload) IsControl() bool {
	return p.MessageType == MessageTypeControl
}

// Decode gunzips and unmarshals one subscription payload. The streaming
// transport has already base64-decoded the record data by the time it
// reaches the handler.
func Decode(compressed []byte) (*Payload, error) {
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress payload: %w", err)
	}

	payload := &Payload{}
	if err := json.Unmarshal(raw, payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return payload, nil
}
