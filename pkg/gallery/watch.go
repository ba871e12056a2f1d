package gallery

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
	"k8s.io/klog/v2"

	"github.com/tstromberg/capname/pkg/capname"
)

// Watch rebuilds the gallery whenever a PNG in c.InDir changes, until ctx is canceled.
// Build failures are passed to rebuilt rather than stopping the watch.
func Watch(ctx context.Context, c *Config, rebuilt func(*Gallery, error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(c.InDir); err != nil {
		return fmt.Errorf("watch %s: %w", c.InDir, err)
	}
	klog.Infof("watching %s ...", c.InDir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			klog.V(1).Infof("event: %v", event)
			if !capname.IsPNG(event.Name) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				g, err := Build(c)
				rebuilt(g, err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			klog.Warningf("watch error: %v", err)
		}
	}
}
