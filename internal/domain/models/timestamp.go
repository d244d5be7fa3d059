package models

import (
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// wire layouts accepted from the backend, most specific first. The backend
// serializes naive UTC datetimes, so zone-less values are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Timestamp is an ISO-8601 instant that tolerates the zone-less form.
// Raw keeps the original text when it could not be parsed.
type Timestamp struct {
	Time time.Time
	Raw  string
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// ParseTimestamp reads value using the accepted layouts.
func ParseTimestamp(value string) (Timestamp, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return Timestamp{Time: t}, nil
		}
	}
	return Timestamp{Raw: value}, fmt.Errorf("unrecognized timestamp %q", value)
}

// IsZero reports whether neither a time nor a raw value is set.
func (t Timestamp) IsZero() bool {
	return t.Time.IsZero() && t.Raw == ""
}

// Format renders the timestamp with layout, falling back to the raw text.
func (t Timestamp) Format(layout string) string {
	if t.Time.IsZero() {
		return t.Raw
	}
	return t.Time.Format(layout)
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.Time.IsZero() {
		return json.Marshal(t.Raw)
	}
	return json.Marshal(t.Time.UTC().Format(time.RFC3339Nano))
}

// UnmarshalJSON implements json.Unmarshaler. Unparseable values are kept in
// Raw instead of failing the whole payload.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if value == "" {
		*t = Timestamp{}
		return nil
	}
	parsed, _ := ParseTimestamp(value)
	*t = parsed
	return nil
}

// MarshalBSONValue stores the timestamp as a native BSON datetime.
func (t Timestamp) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(t.Time.UTC())
}

// UnmarshalBSONValue reads a BSON datetime.
func (t *Timestamp) UnmarshalBSONValue(typ bsontype.Type, data []byte) error {
	var value time.Time
	if err := bson.UnmarshalValue(typ, data, &value); err != nil {
		return fmt.Errorf("decode timestamp: %w", err)
	}
	*t = Timestamp{Time: value.UTC()}
	return nil
}
