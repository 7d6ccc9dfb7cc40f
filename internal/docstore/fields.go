package docstore

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Fields is the flat field map of a document.
type Fields map[string]any

type serverTimestamp struct{}

// ServerTimestamp is replaced by the store clock when the write commits.
var ServerTimestamp = serverTimestamp{}

const timeLayout = time.RFC3339Nano

// resolve copies f, replacing sentinels and encoding times as RFC 3339.
func (f Fields) resolve(now time.Time) Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		switch tv := v.(type) {
		case serverTimestamp:
			out[k] = now.UTC().Format(timeLayout)
		case time.Time:
			out[k] = tv.UTC().Format(timeLayout)
		case *time.Time:
			if tv != nil {
				out[k] = tv.UTC().Format(timeLayout)
			}
		default:
			out[k] = v
		}
	}
	return out
}

// Has reports whether key is present.
func (f Fields) Has(key string) bool {
	_, ok := f[key]
	return ok
}

// String returns key as a string, or "" when absent or not a string.
func (f Fields) String(key string) string {
	s, _ := f[key].(string)
	return s
}

// Int64 returns key as an integer. Floats are rounded to the nearest integer.
func (f Fields) Int64(key string) (int64, bool) {
	switch v := f[key].(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, true
		}
		if fl, err := v.Float64(); err == nil {
			return int64(math.Round(fl)), true
		}
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(math.Round(v)), true
	case string:
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

// Time returns key parsed as an RFC 3339 timestamp.
func (f Fields) Time(key string) (*time.Time, bool) {
	switch v := f[key].(type) {
	case string:
		t, err := time.Parse(timeLayout, v)
		if err != nil {
			return nil, false
		}
		return &t, true
	case time.Time:
		return &v, true
	}
	return nil, false
}

func decodeFields(raw string) (Fields, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	out := Fields{}
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
