// capgallery renders a thumbnail gallery of the PNG images in a directory.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"k8s.io/klog/v2"

	"github.com/tstromberg/capname/pkg/gallery"
)

var (
	inDir     = flag.String("in", "", "Location of input directory")
	outDir    = flag.String("out", "", "Location of output directory (default: per-directory cache)")
	title     = flag.String("title", "", "Title of the gallery (default: input directory name)")
	columns   = flag.Int("columns", 10, "thumbnails per row")
	thumbSize = flag.Int("thumb-size", 80, "thumbnail bounding box in pixels")
	listen    = flag.Bool("listen", false, "serve content via HTTP")
	addr      = flag.String("addr", "localhost:12800", "host:port to bind to in listen mode")
	watchFlag = flag.Bool("watch", false, "watch for changes to -in and rebuild")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	if *inDir == "" {
		klog.Exitf("--in is a required flag")
	}

	if *outDir == "" {
		d, err := gallery.DefaultOutDir(*inDir)
		if err != nil {
			klog.Exitf("default out dir: %v", err)
		}
		*outDir = d
	}

	c := &gallery.Config{
		InDir:     *inDir,
		OutDir:    *outDir,
		Title:     *title,
		Columns:   *columns,
		ThumbSize: *thumbSize,
	}

	g, err := gallery.Build(c)
	if err != nil {
		klog.Exitf("build failed: %v", err)
	}
	klog.Infof("wrote %d images to %s", len(g.Entries), c.OutDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	if *watchFlag {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := gallery.Watch(ctx, c, func(g *gallery.Gallery, err error) {
				if err != nil {
					klog.Errorf("rebuild failed: %v", err)
					return
				}
				klog.Infof("rebuilt gallery with %d images", len(g.Entries))
			})
			if err != nil {
				klog.Exitf("watch failed: %v", err)
			}
		}()
	}

	if *listen {
		s, err := gallery.NewServer(c.OutDir, *addr)
		if err != nil {
			klog.Exitf("listen failed: %v", err)
		}
		u, err := s.URL(c.OutDir)
		if err != nil {
			klog.Exitf("url: %v", err)
		}
		klog.Infof("gallery available at %s", u)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Serve(ctx); err != nil {
				klog.Exitf("serve failed: %v", err)
			}
		}()
	}

	wg.Wait()
}
