package supervise

import (
	"strconv"
	"strings"

	"github.com/tstromberg/capname/pkg/capname"
)

// ParseLine interprets one line of capname's text output. Lines that are neither the banner
// nor a per-image line return false.
func ParseLine(line string) (capname.Event, bool) {
	line = strings.TrimRight(line, "\r\n")

	switch {
	case strings.HasPrefix(line, capname.RenamedPrefix):
		o, c := splitRename(strings.TrimPrefix(line, capname.RenamedPrefix))
		return capname.Event{Kind: capname.KindItem, Original: o, Candidate: c, Applied: true}, true
	case strings.HasPrefix(line, capname.DryRunPrefix):
		o, c := splitRename(strings.TrimPrefix(line, capname.DryRunPrefix))
		return capname.Event{Kind: capname.KindItem, Original: o, Candidate: c, DryRun: true}, true
	case strings.Contains(line, capname.BannerToken):
		total, ok := bannerTotal(line)
		if !ok {
			return capname.Event{}, false
		}
		return capname.Event{Kind: capname.KindStarted, Total: total}, true
	}

	return capname.Event{}, false
}

// bannerTotal extracts N from "... 0/N [...".
func bannerTotal(line string) (int, bool) {
	_, rest, ok := strings.Cut(line, "/")
	if !ok {
		return 0, false
	}
	fs := strings.Fields(rest)
	if len(fs) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(fs[0])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func splitRename(s string) (string, string) {
	o, c, _ := strings.Cut(strings.TrimSpace(s), " -> ")
	return o, c
}

// Tracker accumulates progress from events, in arrival order.
type Tracker struct {
	Started bool
	Total   int
	Done    int
	Items   []capname.Event
}

// Apply records one event.
func (t *Tracker) Apply(e capname.Event) {
	switch e.Kind {
	case capname.KindStarted:
		t.Started = true
		t.Total = e.Total
	case capname.KindItem:
		t.Done++
		t.Items = append(t.Items, e)
	}
}

// Percent returns progress in the range [0, 1].
func (t *Tracker) Percent() float64 {
	if t.Total <= 0 {
		return 0
	}
	p := float64(t.Done) / float64(t.Total)
	if p > 1 {
		return 1
	}
	return p
}

// Complete reports whether every announced image has been accounted for.
func (t *Tracker) Complete() bool {
	return t.Started && t.Done >= t.Total
}

// Reset clears all progress.
func (t *Tracker) Reset() {
	*t = Tracker{}
}
