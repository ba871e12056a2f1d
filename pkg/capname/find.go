package capname

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"
	"k8s.io/klog/v2"
)

// IsPNG reports whether a filename has a .png extension, ignoring case.
func IsPNG(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".png")
}

// CheckDir returns ErrNotDirectory unless dir exists and is a directory.
func CheckDir(dir string) error {
	st, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotDirectory, err)
	}
	if !st.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}
	return nil
}

// Find returns the PNG files directly inside dir, in directory listing order.
func Find(dir string) ([]Image, error) {
	if err := CheckDir(dir); err != nil {
		return nil, err
	}

	des, err := godirwalk.ReadDirents(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	found := []Image{}
	for _, de := range des {
		name := de.Name()
		if !IsPNG(name) || de.IsDir() {
			continue
		}

		path := filepath.Join(dir, name)
		if de.IsSymlink() {
			st, err := os.Stat(path)
			if err != nil || !st.Mode().IsRegular() {
				klog.V(1).Infof("skipping %s: not a regular file", path)
				continue
			}
		} else if !de.IsRegular() {
			continue
		}

		found = append(found, Image{Name: name, Path: path})
	}

	klog.V(1).Infof("found %d PNG files in %s", len(found), dir)
	return found, nil
}
