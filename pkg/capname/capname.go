// Package capname renames PNG images using captions produced by an image-captioning model.
package capname

import (
	"errors"
	"io"
)

// OutSubdir is where renamed images are moved, relative to the input directory.
var OutSubdir = "renamed_pngs"

var (
	// ErrNotDirectory is returned when the input path is missing or not a directory.
	ErrNotDirectory = errors.New("not a directory")
	// ErrDestinationExists is returned when a renamed file would replace an existing one.
	ErrDestinationExists = errors.New("destination exists")
)

// Config holds configuration for a single run.
type Config struct {
	Dir       string
	DryRun    bool
	Captioner Captioner

	// Out receives the human-readable rename protocol. Writes must not be buffered.
	Out io.Writer
	// Events, if set, receives one structured event per step.
	Events EventSink
	// Tagger, if set, embeds the caption into each renamed file.
	Tagger Tagger
}

// Image is a PNG discovered in the input directory.
type Image struct {
	Name string
	Path string
}

// Outcome is the result of processing one image.
type Outcome struct {
	Original  string
	Candidate string
	Caption   string
	Applied   bool
}

// Result is the ordered set of outcomes for a run.
type Result struct {
	Outcomes []Outcome
}
