package capname

import (
	"fmt"

	"github.com/barasher/go-exiftool"
	"k8s.io/klog/v2"
)

// Tagger stores a caption inside an image file.
type Tagger interface {
	Tag(path string, caption string) error
}

// ExifTagger writes captions into the Description tag using exiftool.
type ExifTagger struct {
	et *exiftool.Exiftool
}

// NewExifTagger starts an exiftool process.
func NewExifTagger() (*ExifTagger, error) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, fmt.Errorf("exiftool: %w", err)
	}
	return &ExifTagger{et: et}, nil
}

// Tag implements Tagger.
func (t *ExifTagger) Tag(path string, caption string) error {
	fms := t.et.ExtractMetadata(path)
	if fms[0].Err != nil {
		return fmt.Errorf("extract %s: %w", path, fms[0].Err)
	}

	fms[0].SetString("Description", caption)
	t.et.WriteMetadata(fms)
	if fms[0].Err != nil {
		return fmt.Errorf("write metadata for %s: %w", path, fms[0].Err)
	}

	klog.V(1).Infof("tagged %s: %q", path, caption)
	return nil
}

// Close stops the exiftool process.
func (t *ExifTagger) Close() error {
	return t.et.Close()
}
