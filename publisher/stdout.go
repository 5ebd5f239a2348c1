package publisher

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/shiimaxx/connectmetrics/types"
)

// StdoutPublisher writes one line per metric, for dry runs:
//
//	Contacts Queued{Id="q1",Queue Name="Sales"} 12.000000 1709629800
type StdoutPublisher struct {
	Out io.Writer
}

func (p *StdoutPublisher) Publish(ctx context.Context, metrics types.Metrics) error {
	out := p.Out
	if out == nil {
		out = os.Stdout
	}
	for _, m := range metrics.Data {
		var tags string
		if len(m.Tags) > 0 {
			keys := make([]string, 0, len(m.Tags))
			for k := range m.Tags {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			pairs := make([]string, 0, len(keys))
			for _, k := range keys {
				pairs = append(pairs, fmt.Sprintf("%s=%q", k, m.Tags[k]))
			}
			tags = "{" + strings.Join(pairs, ",") + "}"
		}
		if _, err := fmt.Fprintf(out, "%s%s %f %d\n", m.Name, tags, m.Value, m.Timestamp.Unix()); err != nil {
			return err
		}
	}
	return nil
}
