// Package normalizer turns the variable-length metric collections returned by
// query APIs into fixed-shape records that can be published without gaps.
package normalizer

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shiimaxx/connectmetrics/types"
)

var (
	ErrNoMetricNames   = errors.New("no metric names requested")
	ErrTypeMismatch    = errors.New("metric value is not numeric")
	ErrDuplicateMetric = errors.New("metric reported more than once")
	ErrUnknownPolicy   = errors.New("unknown missing value policy")
)

// Policy decides the value of a requested metric the group did not report.
type Policy int

const (
	// Sentinel marks a missing metric with -1 so it stays distinguishable
	// from a real zero.
	Sentinel Policy = iota
	// Zero treats a missing metric as no activity.
	Zero
)

func (p Policy) Default() float64 {
	if p == Zero {
		return 0
	}
	return -1
}

func (p Policy) String() string {
	switch p {
	case Sentinel:
		return "sentinel"
	case Zero:
		return "zero"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy accepts "sentinel" or "zero", case-insensitively.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sentinel":
		return Sentinel, nil
	case "zero":
		return Zero, nil
	}
	return Sentinel, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// Normalizer fills a NormalizedRecord for a fixed set of metric names.
//
// When a requested name occurs more than once in a group the last entry wins,
// unless RejectDuplicates is set, in which case the group is refused.
type Normalizer struct {
	Policy           Policy
	RejectDuplicates bool
}

// Normalize builds a record holding exactly the requested names. Entries for
// names that were not requested are ignored. A group carrying a conversion
// error is refused with that error.
func (n Normalizer) Normalize(group types.MetricGroup, names []string) (types.NormalizedRecord, error) {
	requested := make(map[string]struct{}, len(names))
	for i, name := range names {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: name %d is blank", ErrNoMetricNames, i)
		}
		requested[name] = struct{}{}
	}
	if len(requested) == 0 {
		return nil, ErrNoMetricNames
	}
	if group.Err != nil {
		return nil, fmt.Errorf("group %q: %w", group.DimensionKey, group.Err)
	}

	found := make(map[string]float64, len(requested))
	for _, e := range group.Entries {
		if _, ok := requested[e.Name]; !ok {
			continue
		}
		if math.IsNaN(e.Value) || math.IsInf(e.Value, 0) {
			return nil, fmt.Errorf("%w: %s=%v in group %q", ErrTypeMismatch, e.Name, e.Value, group.DimensionKey)
		}
		if _, seen := found[e.Name]; seen && n.RejectDuplicates {
			return nil, fmt.Errorf("%w: %s in group %q", ErrDuplicateMetric, e.Name, group.DimensionKey)
		}
		found[e.Name] = e.Value
	}

	record := make(types.NormalizedRecord, len(requested))
	for name := range requested {
		if v, ok := found[name]; ok {
			record[name] = v
		} else {
			record[name] = n.Policy.Default()
		}
	}
	return record, nil
}

// Normalize is shorthand for a Normalizer that keeps the last duplicate.
func Normalize(group types.MetricGroup, names []string, policy Policy) (types.NormalizedRecord, error) {
	return Normalizer{Policy: policy}.Normalize(group, names)
}
