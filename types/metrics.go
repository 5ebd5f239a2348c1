package types

import "time"

type Metrics struct {
	Data []Metric
}

type Metric struct {
	Name      string
	Timestamp time.Time
	Value     float64
	Unit      string
	Tags      map[string]string
}

// MetricEntry is one value reported by a query API.
type MetricEntry struct {
	Name  string
	Value float64
}

// MetricGroup is one row of a query result. DimensionKey identifies the
// entity the row describes, e.g. a queue id. Entries are unordered and the
// upstream service omits names it has no data for.
type MetricGroup struct {
	DimensionKey string
	Tags         map[string]string
	Entries      []MetricEntry
	// Err is set when the row could not be converted. Such a group is
	// refused by the normalizer without affecting its siblings.
	Err error
}

// NormalizedRecord maps every requested metric name to a value.
type NormalizedRecord map[string]float64
