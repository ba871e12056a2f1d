// Package gallery renders a browsable thumbnail gallery of the PNGs in a directory.
package gallery

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/karrick/godirwalk"
	"k8s.io/klog/v2"

	"github.com/tstromberg/capname/pkg/capname"
)

// Config holds configuration for a gallery build.
type Config struct {
	InDir  string
	OutDir string
	Title  string
	// Columns is the number of thumbnails per row.
	Columns int
	// ThumbSize is the bounding box, in pixels, that thumbnails are fit into.
	ThumbSize int
}

// Entry is one image in the gallery. Rel paths are relative to the output directory.
type Entry struct {
	Name     string
	ModTime  time.Time
	FullRel  string
	ThumbRel string
	ViewRel  string

	Width  int
	Height int
	Thumb  ThumbMeta
}

// Gallery is a rendered gallery.
type Gallery struct {
	Title   string
	InDir   string
	OutDir  string
	Columns int
	Entries []*Entry
}

// Root is the default parent directory for gallery output.
func Root() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "capname", "gallery"), nil
}

// DefaultOutDir returns a stable output directory under Root for inDir.
func DefaultOutDir(inDir string) (string, error) {
	root, err := Root()
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(inDir)
	if err != nil {
		return "", err
	}
	sum := sha1.Sum([]byte(abs))
	return filepath.Join(root, hex.EncodeToString(sum[:])[:12]), nil
}

// Build snapshots the PNGs in c.InDir into c.OutDir and renders the gallery pages.
func Build(c *Config) (*Gallery, error) {
	if c.Columns <= 0 {
		c.Columns = 10
	}
	if c.ThumbSize <= 0 {
		c.ThumbSize = 80
	}
	if c.Title == "" {
		c.Title = filepath.Base(c.InDir)
	}

	klog.Infof("gallery: %s -> %s", c.InDir, c.OutDir)
	is, err := capname.Find(c.InDir)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}

	g := &Gallery{
		Title:   c.Title,
		InDir:   c.InDir,
		OutDir:  c.OutDir,
		Columns: c.Columns,
	}

	for _, i := range is {
		e, err := snapshot(c, i)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", i.Name, err)
		}
		g.Entries = append(g.Entries, e)
	}

	if err := Render(g); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	if err := prune(g); err != nil {
		return nil, fmt.Errorf("prune: %w", err)
	}

	klog.Infof("gallery for %s has %d images", c.InDir, len(g.Entries))
	return g, nil
}

// prune removes generated files for images that are no longer in the gallery.
func prune(g *Gallery) error {
	keep := map[string]bool{}
	for _, e := range g.Entries {
		for _, rel := range []string{e.FullRel, e.ThumbRel, e.ViewRel} {
			keep[rel] = true
		}
	}

	for _, sub := range []string{"full", "thumbs", "view"} {
		dir := filepath.Join(g.OutDir, sub)
		names, err := godirwalk.ReadDirnames(dir, nil)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		for _, name := range names {
			if keep[path.Join(sub, name)] {
				continue
			}
			klog.V(1).Infof("removing stale %s/%s", sub, name)
			if err := os.RemoveAll(filepath.Join(dir, name)); err != nil {
				return err
			}
		}
	}
	return nil
}
