package collector

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cast"

	"github.com/shiimaxx/connectmetrics/normalizer"
	"github.com/shiimaxx/connectmetrics/types"
)

const (
	AgentIdleTime   = "AGENT_IDLE_TIME"
	ContactsHandled = "CONTACTS_HANDLED"
)

// ReportColumns is the column order of the agent idle time report after
// the leading team lead column.
var ReportColumns = []string{AgentIdleTime, ContactsHandled}

// ReportCollector reads an exported agent report: a few header lines, then
// one "team lead,idle time,contacts handled" row per team lead.
type ReportCollector struct {
	Data        []byte
	HeaderLines int
}

func (r *ReportCollector) Collect(ctx context.Context) ([]types.MetricGroup, error) {
	// Header lines are free text, possibly with stray quotes, so they are
	// skipped before the CSV reader sees them.
	br := bufio.NewReader(bytes.NewReader(r.Data))
	for i := 0; i < r.HeaderLines; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, nil
			}
			return nil, fmt.Errorf("read report header: %w", err)
		}
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var groups []types.MetricGroup
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return groups, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read report: %w", err)
		}
		line, _ := reader.FieldPos(0)
		line += r.HeaderLines

		if len(record) < len(ReportColumns)+1 {
			return nil, fmt.Errorf("report line %d: want %d columns, got %d", line, len(ReportColumns)+1, len(record))
		}
		group := types.MetricGroup{DimensionKey: strings.TrimSpace(record[0])}
		for i, name := range ReportColumns {
			cell := strings.TrimSpace(record[i+1])
			v, err := cast.ToFloat64E(cell)
			if err != nil {
				return nil, fmt.Errorf("%w: report line %d column %s: %q", normalizer.ErrTypeMismatch, line, name, cell)
			}
			group.Entries = append(group.Entries, types.MetricEntry{Name: name, Value: v})
		}
		groups = append(groups, group)
	}
}
