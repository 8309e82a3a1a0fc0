// Testing utilities for structured logging. Captured output is JSON, one
// record per line, so tests can decode and inspect individual fields.

package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
)

// NewTestLogger returns a logger writing JSON records into the returned
// buffer, with the stacktrace-formatting handler applied like in production.
func NewTestLogger(level slog.Level) (*slog.Logger, *bytes.Buffer) {
	buffer := &bytes.Buffer{}
	handler := slog.NewJSONHandler(buffer, &slog.HandlerOptions{Level: level})
	return slog.New(WrapByErrFmtHandler(handler)), buffer
}

// ParseRecords decodes the buffered JSON log output into one map per record.
func ParseRecords(buffer *bytes.Buffer) ([]map[string]interface{}, error) {
	var records []map[string]interface{}
	for _, line := range strings.Split(buffer.String(), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var record map[string]interface{}
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// ContainsAttr reports whether any captured record carries the given
// key/value pair.
func ContainsAttr(records []map[string]interface{}, key string, value interface{}) bool {
	for _, record := range records {
		if v, ok := record[key]; ok && v == value {
			return true
		}
	}
	return false
}
