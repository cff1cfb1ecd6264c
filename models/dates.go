package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate coerces the date-like values forms send (ISO strings, bare dates,
// unix-millisecond numbers) into a UTC time.
func ParseDate(v any) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return d.UTC(), nil
	case *time.Time:
		if d == nil {
			return time.Time{}, fmt.Errorf("nil date")
		}
		return d.UTC(), nil
	case primitive.DateTime:
		return d.Time().UTC(), nil
	case float64:
		return time.UnixMilli(int64(d)).UTC(), nil
	case int64:
		return time.UnixMilli(d).UTC(), nil
	case int:
		return time.UnixMilli(int64(d)).UTC(), nil
	case int32:
		return time.UnixMilli(int64(d)).UTC(), nil
	case json.Number:
		ms, err := d.Int64()
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp %q", d.String())
		}
		return time.UnixMilli(ms).UTC(), nil
	case string:
		s := strings.TrimSpace(d)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("invalid date %q", d)
	default:
		return time.Time{}, fmt.Errorf("unsupported date value of type %T", v)
	}
}

// FlexTime accepts any form ParseDate understands when decoding JSON input.
type FlexTime struct {
	time.Time
}

func (t *FlexTime) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// TimePtr returns nil for an absent or zero value.
func (t *FlexTime) TimePtr() *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}
