package collector

import (
	"fmt"
	"sort"
	"time"

	"github.com/shiimaxx/connectmetrics/window"
)

type Kind int

const (
	Historical Kind = iota
	Current
)

// MetricSpec names a Connect metric and how it is published.
type MetricSpec struct {
	Name    string
	Display string
	Unit    string
}

type Preset struct {
	Name    string
	Kind    Kind
	Metrics []MetricSpec
	Window  func(now time.Time) window.Window
}

func (p Preset) Names() []string {
	names := make([]string, 0, len(p.Metrics))
	for _, m := range p.Metrics {
		names = append(names, m.Name)
	}
	return names
}

var presets = map[string]Preset{
	"daily": {
		Name:   "daily",
		Kind:   Historical,
		Window: window.Today,
		Metrics: []MetricSpec{
			{Name: "CONTACTS_QUEUED", Display: "Contacts Queued", Unit: "COUNT"},
			{Name: "CONTACTS_HANDLED", Display: "Contacts Handled", Unit: "COUNT"},
		},
	},
	"hourly": {
		Name:   "hourly",
		Kind:   Historical,
		Window: window.LastHour,
		Metrics: []MetricSpec{
			{Name: "CONTACTS_TRANSFERRED_IN", Display: "Contacts Transferred In", Unit: "COUNT"},
			{Name: "CONTACTS_TRANSFERRED_IN_FROM_QUEUE", Display: "Contacts Transferred In From Queue", Unit: "COUNT"},
			{Name: "CONTACTS_TRANSFERRED_OUT", Display: "Contacts Transferred Out", Unit: "COUNT"},
			{Name: "CONTACTS_TRANSFERRED_OUT_FROM_QUEUE", Display: "Contacts Transferred Out From Queue", Unit: "COUNT"},
			{Name: "CONTACTS_QUEUED", Display: "Contacts Queued Hourly", Unit: "COUNT"},
			{Name: "CONTACTS_ABANDONED", Display: "Contacts Abandoned", Unit: "COUNT"},
			{Name: "CONTACTS_AGENT_HUNG_UP_FIRST", Display: "Contacts Agent Hung Up", Unit: "COUNT"},
			{Name: "CONTACTS_HOLD_ABANDONS", Display: "Contacts Hold Abandons", Unit: "COUNT"},
			{Name: "CONTACTS_MISSED", Display: "Contacts Missed", Unit: "COUNT"},
		},
	},
	"realtime": {
		Name:   "realtime",
		Kind:   Current,
		Window: window.Snapshot,
		Metrics: []MetricSpec{
			{Name: "AGENTS_ONLINE", Display: "Agents Online", Unit: "COUNT"},
			{Name: "AGENTS_ON_CALL", Display: "Agents On Call", Unit: "COUNT"},
		},
	},
}

func LookupPreset(name string) (Preset, error) {
	p, ok := presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("unknown preset %q, want one of %v", name, PresetNames())
	}
	return p, nil
}

func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
