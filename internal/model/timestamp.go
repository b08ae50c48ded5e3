package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// SQLite hands timestamps back as text unless the driver recognises the
// declared column type, so scanning accepts both forms.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func scanTime(src any) (time.Time, bool, error) {
	switch v := src.(type) {
	case nil:
		return time.Time{}, false, nil
	case time.Time:
		return v.UTC(), true, nil
	case string:
		t, err := parseTime(v)
		return t, err == nil, err
	case []byte:
		t, err := parseTime(string(v))
		return t, err == nil, err
	default:
		return time.Time{}, false, fmt.Errorf("cannot scan %T into timestamp", src)
	}
}

// Timestamp is a non-null time column.
type Timestamp struct {
	Time time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

func (t *Timestamp) Scan(src any) error {
	v, _, err := scanTime(src)
	if err != nil {
		return err
	}
	t.Time = v
	return nil
}

func (t Timestamp) Value() (driver.Value, error) {
	return t.Time.UTC(), nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time)
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &t.Time)
}

// NullTime is a nullable time column; JSON null when not set.
type NullTime struct {
	Time  time.Time
	Valid bool
}

func NewNullTime(t time.Time) NullTime {
	return NullTime{Time: t.UTC(), Valid: true}
}

func (n *NullTime) Scan(src any) error {
	v, ok, err := scanTime(src)
	if err != nil {
		return err
	}
	n.Time, n.Valid = v, ok
	return nil
}

func (n NullTime) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return n.Time.UTC(), nil
}

func (n NullTime) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Time)
}

func (n *NullTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = NullTime{}
		return nil
	}
	if err := json.Unmarshal(data, &n.Time); err != nil {
		return err
	}
	n.Valid = true
	return nil
}
