// Package schedule lays out a watchlist as a weekly release table.
package schedule

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"

	"release-notifier-bot/catalog"
)

const NotAiringLabel = "Not currently airing:"

var ErrInconsistentTable = errors.New("schedule table is inconsistent")

type slot struct {
	hour   int
	minute int
}

// Table is a sparse grid: Shows[day][slot] holds the comma joined names of
// the shows released on that day at Times[slot].
type Table struct {
	Days      []string
	Times     []string
	Shows     [][]string
	NonAiring []string
}

type Entry struct {
	Day  string `json:"day"`
	Text string `json:"text"`
}

// Build groups the shows by weekday and release time. Time slots are the
// distinct release times of the airing shows in chronological order.
func Build(shows []catalog.Show) Table {
	var airing []catalog.Show
	var nonAiring []string
	seen := make(map[slot]bool)
	var slots []slot
	for _, show := range shows {
		if !show.AirTime.IsAiring {
			nonAiring = append(nonAiring, show.Name)
			continue
		}
		airing = append(airing, show)
		s := slot{hour: show.AirTime.Hour, minute: show.AirTime.Minute}
		if !seen[s] {
			seen[s] = true
			slots = append(slots, s)
		}
	}
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].hour != slots[j].hour {
			return slots[i].hour < slots[j].hour
		}
		return slots[i].minute < slots[j].minute
	})

	weekdays := catalog.Weekdays()
	t := Table{
		Days:      weekdays[:],
		Times:     make([]string, len(slots)),
		Shows:     make([][]string, len(weekdays)),
		NonAiring: nonAiring,
	}
	for i, s := range slots {
		t.Times[i] = fmt.Sprintf("%02d:%02d", s.hour, s.minute)
	}
	for day := range weekdays {
		t.Shows[day] = make([]string, len(slots))
		for i, s := range slots {
			var names []string
			for _, show := range airing {
				if show.AirTime.WeekDay == day && show.AirTime.Hour == s.hour && show.AirTime.Minute == s.minute {
					names = append(names, show.Name)
				}
			}
			t.Shows[day][i] = strings.Join(names, ", ")
		}
	}
	return t
}

// Printable returns one entry per weekday listing "HH:MM - names" lines for
// the occupied slots, plus a trailing entry for the shows not airing.
func (t Table) Printable() ([]Entry, error) {
	entries := make([]Entry, 0, len(t.Days)+1)
	for i, day := range t.Days {
		if i >= len(t.Shows) {
			return nil, errors.Wrapf(ErrInconsistentTable, "no row for %v", day)
		}
		row := t.Shows[i]
		if len(row) != len(t.Times) {
			return nil, errors.Wrapf(ErrInconsistentTable, "%v has %v slots, expected %v", day, len(row), len(t.Times))
		}
		var lines []string
		for j, names := range row {
			if len(names) == 0 {
				continue
			}
			lines = append(lines, fmt.Sprintf("%v - %v", t.Times[j], names))
		}
		entries = append(entries, Entry{Day: day, Text: strings.Join(lines, "\n")})
	}
	if len(t.NonAiring) > 0 {
		entries = append(entries, Entry{Day: NotAiringLabel, Text: strings.Join(t.NonAiring, ", ")})
	}
	return entries, nil
}

// Render draws the non-empty entries as a plain text table.
func (t Table) Render() (string, error) {
	entries, err := t.Printable()
	if err != nil {
		return "", err
	}
	writer := table.NewWriter()
	writer.SetStyle(table.StyleLight)
	writer.Style().Options.SeparateRows = true
	for _, entry := range entries {
		if len(entry.Text) == 0 {
			continue
		}
		writer.AppendRow(table.Row{entry.Day, entry.Text})
	}
	if writer.Length() == 0 {
		return "", nil
	}
	return writer.Render(), nil
}
