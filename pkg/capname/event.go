package capname

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Kind is the type of a progress event.
type Kind string

const (
	KindStarted Kind = "started"
	KindItem    Kind = "item"
	KindDone    Kind = "done"
)

// Prefixes of the per-image lines written to Config.Out.
const (
	RenamedPrefix = "Renamed:"
	DryRunPrefix  = "[DRY RUN] Would rename:"
	BannerToken   = "Processing images"
)

// Event is a structured progress message. One started event precedes one item event per
// image, and a done event ends the stream.
type Event struct {
	Kind      Kind   `json:"kind"`
	Total     int    `json:"total,omitempty"`
	Original  string `json:"original,omitempty"`
	Candidate string `json:"candidate,omitempty"`
	Applied   bool   `json:"applied,omitempty"`
	DryRun    bool   `json:"dry_run,omitempty"`
	Count     int    `json:"count,omitempty"`
	Error     string `json:"error,omitempty"`
}

// EventSink receives progress events.
type EventSink interface {
	Emit(e Event) error
}

// JSONSink writes events as newline-delimited JSON.
type JSONSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONSink returns a sink writing to w.
func NewJSONSink(w io.Writer) *JSONSink {
	return &JSONSink{enc: json.NewEncoder(w)}
}

// Emit implements EventSink.
func (s *JSONSink) Emit(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(e)
}

// Banner is the line announcing how many images a run will process.
func Banner(total int) string {
	return fmt.Sprintf("%s:   0%%|          | 0/%d [00:00<?, ?it/s]", BannerToken, total)
}

// Line formats the protocol line for one outcome.
func (o Outcome) Line() string {
	if o.Applied {
		return fmt.Sprintf("%s %s -> %s", RenamedPrefix, o.Original, o.Candidate)
	}
	return fmt.Sprintf("%s %s -> %s", DryRunPrefix, o.Original, o.Candidate)
}
