package googlefit

import (
	"encoding/json"
	"strconv"
)

// AggregateRequest is the dataset:aggregate request body.
type AggregateRequest struct {
	AggregateBy     []AggregateBy `json:"aggregateBy"`
	BucketByTime    BucketByTime  `json:"bucketByTime"`
	StartTimeMillis int64         `json:"startTimeMillis"`
	EndTimeMillis   int64         `json:"endTimeMillis"`
}

type AggregateBy struct {
	DataTypeName string `json:"dataTypeName"`
}

type BucketByTime struct {
	DurationMillis int64 `json:"durationMillis"`
}

// AggregateResponse is the dataset:aggregate response. Int64 fields are
// sent as JSON strings.
type AggregateResponse struct {
	Bucket []Bucket `json:"bucket"`
}

type Bucket struct {
	StartTimeMillis json.Number `json:"startTimeMillis,omitempty"`
	EndTimeMillis   json.Number `json:"endTimeMillis,omitempty"`
	StartTimeNanos  json.Number `json:"startTimeNanos,omitempty"`
	Dataset         []Dataset   `json:"dataset"`
}

type Dataset struct {
	DataSourceID string  `json:"dataSourceId,omitempty"`
	Point        []Point `json:"point"`
}

type Point struct {
	DataTypeName   string      `json:"dataTypeName,omitempty"`
	StartTimeNanos json.Number `json:"startTimeNanos,omitempty"`
	EndTimeNanos   json.Number `json:"endTimeNanos,omitempty"`
	Value          []Value     `json:"value"`
}

type Value struct {
	IntVal *int64   `json:"intVal,omitempty"`
	FpVal  *float64 `json:"fpVal,omitempty"`
}

// SumBucketSteps adds up the first value of every point in every dataset,
// preferring intVal over fpVal. Points without a usable value count as 0.
func SumBucketSteps(b Bucket) float64 {
	var total float64
	for _, ds := range b.Dataset {
		for _, p := range ds.Point {
			if len(p.Value) == 0 {
				continue
			}
			switch v := p.Value[0]; {
			case v.IntVal != nil:
				total += float64(*v.IntVal)
			case v.FpVal != nil:
				total += *v.FpVal
			}
		}
	}
	return total
}

// BucketStartMillis returns the bucket start from startTimeMillis, falling
// back to startTimeNanos. ok is false when neither yields a positive time.
func BucketStartMillis(b Bucket) (int64, bool) {
	if ms, err := parseInt(b.StartTimeMillis); err == nil && ms > 0 {
		return ms, true
	}
	if ns, err := parseInt(b.StartTimeNanos); err == nil && ns > 0 {
		if ms := ns / 1_000_000; ms > 0 {
			return ms, true
		}
	}
	return 0, false
}

func parseInt(n json.Number) (int64, error) {
	if n == "" {
		return 0, strconv.ErrSyntax
	}
	if v, err := n.Int64(); err == nil {
		return v, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}
