package normalizer

import (
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiimaxx/connectmetrics/types"
)

var queueMetrics = []string{"CONTACTS_QUEUED", "CONTACTS_HANDLED"}

func TestNormalize(t *testing.T) {
	tests := map[string]struct {
		entries  []types.MetricEntry
		names    []string
		policy   Policy
		want     types.NormalizedRecord
		groupErr error
	}{
		"missing metric gets sentinel": {
			entries: []types.MetricEntry{{Name: "CONTACTS_HANDLED", Value: 7}},
			names:   queueMetrics,
			policy:  Sentinel,
			want:    types.NormalizedRecord{"CONTACTS_QUEUED": -1, "CONTACTS_HANDLED": 7},
		},
		"empty group with zero policy": {
			names:  queueMetrics,
			policy: Zero,
			want:   types.NormalizedRecord{"CONTACTS_QUEUED": 0, "CONTACTS_HANDLED": 0},
		},
		"last duplicate wins": {
			entries: []types.MetricEntry{
				{Name: "CONTACTS_MISSED", Value: 3},
				{Name: "CONTACTS_MISSED", Value: 5},
			},
			names:  []string{"CONTACTS_MISSED"},
			policy: Sentinel,
			want:   types.NormalizedRecord{"CONTACTS_MISSED": 5},
		},
		"unrequested names are ignored": {
			entries: []types.MetricEntry{
				{Name: "AGENTS_ONLINE", Value: 4},
				{Name: "CONTACTS_QUEUED", Value: 12},
			},
			names:  queueMetrics,
			policy: Zero,
			want:   types.NormalizedRecord{"CONTACTS_QUEUED": 12, "CONTACTS_HANDLED": 0},
		},
		"reported zero is kept under sentinel": {
			entries: []types.MetricEntry{
				{Name: "CONTACTS_QUEUED", Value: 0},
				{Name: "CONTACTS_HANDLED", Value: 0},
			},
			names:  queueMetrics,
			policy: Sentinel,
			want:   types.NormalizedRecord{"CONTACTS_QUEUED": 0, "CONTACTS_HANDLED": 0},
		},
		"requested names are deduplicated": {
			entries: []types.MetricEntry{{Name: "CONTACTS_QUEUED", Value: 1}},
			names:   []string{"CONTACTS_QUEUED", "CONTACTS_QUEUED"},
			policy:  Sentinel,
			want:    types.NormalizedRecord{"CONTACTS_QUEUED": 1},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			group := types.MetricGroup{DimensionKey: "queue-1", Entries: tt.entries, Err: tt.groupErr}
			got, err := Normalize(group, tt.names, tt.policy)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("record mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalizeManyMetrics(t *testing.T) {
	names := []string{
		"CONTACTS_TRANSFERRED_IN",
		"CONTACTS_TRANSFERRED_IN_FROM_QUEUE",
		"CONTACTS_TRANSFERRED_OUT",
		"CONTACTS_TRANSFERRED_OUT_FROM_QUEUE",
		"CONTACTS_QUEUED",
		"CONTACTS_ABANDONED",
		"CONTACTS_AGENT_HUNG_UP_FIRST",
		"CONTACTS_HOLD_ABANDONS",
		"CONTACTS_MISSED",
		"CONTACTS_HANDLED",
		"CONTACTS_CONSULTED",
	}
	var entries []types.MetricEntry
	for i := len(names) - 1; i >= 0; i-- {
		entries = append(entries, types.MetricEntry{Name: names[i], Value: float64(i)})
	}

	got, err := Normalize(types.MetricGroup{Entries: entries}, names, Sentinel)
	require.NoError(t, err)
	require.Len(t, got, len(names))
	for i, name := range names {
		assert.Equal(t, float64(i), got[name], name)
	}
}

func TestNormalizeKeySetAndOrderIndependence(t *testing.T) {
	entries := []types.MetricEntry{
		{Name: "A", Value: 1},
		{Name: "B", Value: 2},
		{Name: "X", Value: 9},
	}
	names := []string{"A", "B", "C"}
	want := types.NormalizedRecord{"A": 1, "B": 2, "C": -1}

	orders := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 2, 0}, {2, 0, 1}}
	for _, order := range orders {
		permuted := make([]types.MetricEntry, 0, len(entries))
		for _, i := range order {
			permuted = append(permuted, entries[i])
		}
		group := types.MetricGroup{DimensionKey: "q", Entries: permuted}

		first, err := Normalize(group, names, Sentinel)
		require.NoError(t, err)
		second, err := Normalize(group, names, Sentinel)
		require.NoError(t, err)

		assert.Equal(t, want, first)
		assert.Equal(t, first, second)
	}
}

func TestNormalizeErrors(t *testing.T) {
	tests := map[string]struct {
		normalizer Normalizer
		entries    []types.MetricEntry
		names      []string
		groupErr   error
		wantErr    error
	}{
		"no names": {
			names:   nil,
			wantErr: ErrNoMetricNames,
		},
		"blank names only": {
			names:   []string{"", "  "},
			wantErr: ErrNoMetricNames,
		},
		"blank name among valid": {
			entries: []types.MetricEntry{{Name: "CONTACTS_QUEUED", Value: 3}},
			names:   []string{"CONTACTS_QUEUED", ""},
			wantErr: ErrNoMetricNames,
		},
		"NaN value": {
			entries: []types.MetricEntry{{Name: "CONTACTS_QUEUED", Value: math.NaN()}},
			names:   queueMetrics,
			wantErr: ErrTypeMismatch,
		},
		"infinite value": {
			entries: []types.MetricEntry{{Name: "CONTACTS_HANDLED", Value: math.Inf(1)}},
			names:   queueMetrics,
			wantErr: ErrTypeMismatch,
		},
		"group with conversion error": {
			entries:  []types.MetricEntry{{Name: "CONTACTS_QUEUED", Value: 3}},
			names:    queueMetrics,
			groupErr: fmt.Errorf("%w: CONTACTS_HANDLED has no value", ErrTypeMismatch),
			wantErr:  ErrTypeMismatch,
		},
		"duplicate rejected in strict mode": {
			normalizer: Normalizer{RejectDuplicates: true},
			entries: []types.MetricEntry{
				{Name: "CONTACTS_QUEUED", Value: 3},
				{Name: "CONTACTS_QUEUED", Value: 5},
			},
			names:   queueMetrics,
			wantErr: ErrDuplicateMetric,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			group := types.MetricGroup{DimensionKey: "queue-1", Entries: tt.entries, Err: tt.groupErr}
			got, err := tt.normalizer.Normalize(group, tt.names)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, got)
		})
	}
}

func TestNormalizeStrictIgnoresUnrequestedDuplicates(t *testing.T) {
	n := Normalizer{Policy: Zero, RejectDuplicates: true}
	group := types.MetricGroup{Entries: []types.MetricEntry{
		{Name: "AGENTS_ONLINE", Value: 1},
		{Name: "AGENTS_ONLINE", Value: 2},
		{Name: "CONTACTS_QUEUED", Value: 4},
	}}

	got, err := n.Normalize(group, queueMetrics)
	require.NoError(t, err)
	assert.Equal(t, types.NormalizedRecord{"CONTACTS_QUEUED": 4, "CONTACTS_HANDLED": 0}, got)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("Zero")
	require.NoError(t, err)
	assert.Equal(t, Zero, p)
	assert.Equal(t, float64(0), p.Default())

	p, err = ParsePolicy(" sentinel ")
	require.NoError(t, err)
	assert.Equal(t, Sentinel, p)
	assert.Equal(t, float64(-1), p.Default())

	_, err = ParsePolicy("ignore")
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}
