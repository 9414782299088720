package transform

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/awslabs/centralized-logging/cwlog"
)

// DocumentType marks every document with its log source family.
const DocumentType = "CloudWatchLogs"

// timestampLayout renders epoch milliseconds the way the index templates
// expect: ISO-8601 with fixed millisecond precision and a trailing Z.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// Document is one indexable log document.
type Document map[string]any

// Transform shapes every log event of a DATA_MESSAGE payload into a
// document. Control payloads and payloads without events yield nil.
func Transform(payload *cwlog.Payload) []Document {
	if payload.MessageType != cwlog.MessageTypeData {
		return nil
	}
	docs := make([]Document, 0, len(payload.LogEvents))
	for _, event := range payload.LogEvents {
		docs = append(docs, buildDocument(payload, event))
	}
	return docs
}

func buildDocument(payload *cwlog.Payload, event cwlog.LogEvent) Document {
	doc := BuildSource(event.Message, event.ExtractedFields)

	// CloudTrail ships requestParameters/responseElements as nested objects
	// whose shape varies per API call. Flatten them to strings so the index
	// mapping stays stable.
	for _, key := range []string{"requestParameters", "responseElements"} {
		if v, ok := doc[key]; ok && v != nil {
			if b, err := json.Marshal(v); err == nil {
				doc[key] = string(b)
			}
		}
	}
	for _, key := range []string{"apiVersion", "account_id"} {
		if v, ok := doc[key]; ok && v != nil {
			doc[key] = stringify(v)
		}
	}

	doc["timestamp"] = time.UnixMilli(event.Timestamp).UTC().Format(timestampLayout)
	doc["id"] = event.ID
	doc["type"] = DocumentType
	doc["@message"] = event.Message
	doc["@owner"] = payload.Owner
	doc["@log_group"] = payload.LogGroup
	doc["@log_stream"] = payload.LogStream
	return doc
}

// BuildSource assembles the document base. With extracted fields present,
// each non-empty value becomes a field: fully-numeric values are stored as
// numbers, values embedding a JSON object additionally get a parsed twin
// under "$"+key, and the raw string is kept under the original key. Without
// extracted fields, a JSON object embedded in the message becomes the base;
// failing that the base is empty.
func BuildSource(message string, extractedFields map[string]string) Document {
	if len(extractedFields) > 0 {
		source := Document{}
		for key, value := range extractedFields {
			if value == "" {
				continue
			}
			if n, ok := parseNumber(value); ok {
				source[key] = n
				continue
			}
			if parsed, ok := extractJSON(value); ok {
				source["$"+key] = parsed
			}
			source[key] = value
		}
		return source
	}

	if parsed, ok := extractJSON(message); ok {
		if obj, isObject := parsed.(map[string]any); isObject {
			return Document(obj)
		}
	}
	return Document{}
}

// parseNumber accepts only strings that parse in full to a finite number.
func parseNumber(s string) (float64, bool) {
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// extractJSON parses the substring starting at the first '{'. Anything
// before the brace (severity prefixes, timestamps) is ignored.
func extractJSON(s string) (any, bool) {
	start := strings.Index(s, "{")
	if start < 0 {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(s[start:]), &v); err != nil {
		return nil, false
	}
	return v, true
}

// stringify coerces scalar JSON values to their canonical string form.
func stringify(v any) string {
	switch n := v.(type) {
	case string:
		return n
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(n)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
