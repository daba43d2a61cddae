package machine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// timestampLayouts lists the accepted timestamp formats; zoneless ones are interpreted as UTC
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Timestamp represents a point in time reported by the backend.
// It accepts RFC 3339 as well as zoneless ISO 8601 values.
type Timestamp struct {
	time.Time
}

// ParseTimestamp parses a single backend timestamp
func ParseTimestamp(raw string) (Timestamp, error) {
	for _, layout := range timestampLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return Timestamp{parsed}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("unsupported timestamp '%s'", raw)
}

// UnmarshalJSON implements json.Unmarshaler
func (timestamp *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseTimestamp(raw)
	if err != nil {
		return err
	}
	*timestamp = parsed
	return nil
}

// MarshalJSON implements json.Marshaler
func (timestamp Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(timestamp.UTC().Format(time.RFC3339))
}

func (timestamp Timestamp) String() string {
	return timestamp.UTC().Format("2006-01-02 15:04:05")
}
