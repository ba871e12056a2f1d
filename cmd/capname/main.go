// capname renames PNG images after captions generated by a vision model.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"k8s.io/klog/v2"

	"github.com/tstromberg/capname/pkg/capname"
)

var (
	dryRun       = flag.Bool("dry-run", false, "report the new names without moving any files")
	backend      = flag.String("backend", "ollama", "caption model backend: ollama or gemini")
	model        = flag.String("model", "", "model name (default depends on -backend)")
	prompt       = flag.String("prompt", "", "override the captioning prompt")
	eventsFD     = flag.Int("events-fd", 0, "if set, write JSON progress events to this file descriptor")
	embedCaption = flag.Bool("embed-caption", false, "store the caption in each renamed file's Description tag (requires exiftool)")
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] image_dir [--dry-run]\n\n", os.Args[0])
	flag.PrintDefaults()
}

// parseArgs returns image_dir, accepting flags on either side of it.
func parseArgs(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() == 0 {
		return "", errors.New("image_dir is required")
	}

	dir := fs.Arg(0)
	if err := fs.Parse(fs.Args()[1:]); err != nil {
		return "", err
	}
	if fs.NArg() > 0 {
		return "", fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return dir, nil
}

func main() {
	klog.InitFlags(nil)
	flag.Usage = usage

	dir, err := parseArgs(flag.CommandLine, os.Args[1:])
	if err != nil {
		usage()
		klog.Exitf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, dir); err != nil {
		stop()
		klog.Exitf("%v", err)
	}
}

func run(ctx context.Context, dir string) error {
	if err := capname.CheckDir(dir); err != nil {
		return fmt.Errorf("image_dir: %w", err)
	}

	cp, err := capname.NewCaptioner(ctx, capname.BackendOpts{Backend: *backend, Model: *model, Prompt: *prompt})
	if err != nil {
		return fmt.Errorf("unable to load caption model: %w", err)
	}

	c := &capname.Config{
		Dir:       dir,
		DryRun:    *dryRun,
		Captioner: cp,
		Out:       os.Stdout,
	}

	if *eventsFD > 0 {
		f := os.NewFile(uintptr(*eventsFD), "events")
		if f == nil {
			return fmt.Errorf("invalid -events-fd %d", *eventsFD)
		}
		defer f.Close()
		c.Events = capname.NewJSONSink(f)
	}

	if *embedCaption && !*dryRun {
		t, err := capname.NewExifTagger()
		if err != nil {
			return err
		}
		defer func() {
			if err := t.Close(); err != nil {
				klog.Errorf("Failed to close exiftool: %v", err)
			}
		}()
		c.Tagger = t
	}

	res, err := capname.Run(ctx, c)
	if err != nil {
		return fmt.Errorf("run failed after %d images: %w", len(res.Outcomes), err)
	}

	klog.Infof("capname completed. Processed %d images in %s", len(res.Outcomes), dir)
	return nil
}
