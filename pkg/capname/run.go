package capname

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"k8s.io/klog/v2"
)

// Run captions and renames every PNG directly inside c.Dir, one at a time.
//
// The first failure aborts the run; images already moved stay moved.
func Run(ctx context.Context, c *Config) (*Result, error) {
	if c.Captioner == nil {
		return nil, errors.New("no captioner configured")
	}
	out := c.Out
	if out == nil {
		out = io.Discard
	}

	res, err := run(ctx, c, out)
	if err != nil {
		emit(c, Event{Kind: KindDone, Count: len(res.Outcomes), Error: err.Error()})
		return res, err
	}

	emit(c, Event{Kind: KindDone, Count: len(res.Outcomes)})
	return res, nil
}

func run(ctx context.Context, c *Config, out io.Writer) (*Result, error) {
	res := &Result{}

	is, err := Find(c.Dir)
	if err != nil {
		return res, fmt.Errorf("find: %w", err)
	}

	klog.Infof("%d PNG files in %s (dry-run=%v)", len(is), c.Dir, c.DryRun)
	fmt.Fprintln(out, Banner(len(is)))
	emit(c, Event{Kind: KindStarted, Total: len(is)})

	outDir := filepath.Join(c.Dir, OutSubdir)
	if !c.DryRun {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return res, fmt.Errorf("mkdir: %w", err)
		}
	}

	for _, i := range is {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		o, err := process(ctx, c, i, outDir)
		if err != nil {
			return res, err
		}

		res.Outcomes = append(res.Outcomes, *o)
		fmt.Fprintln(out, o.Line())
		emit(c, Event{
			Kind:      KindItem,
			Original:  o.Original,
			Candidate: o.Candidate,
			Applied:   o.Applied,
			DryRun:    c.DryRun,
		})
	}

	return res, nil
}

func process(ctx context.Context, c *Config, i Image, outDir string) (*Outcome, error) {
	p, err := Prepare(i)
	if err != nil {
		return nil, fmt.Errorf("prepare %s: %w", i.Name, err)
	}

	caption, err := c.Captioner.Caption(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("caption %s: %w", i.Name, err)
	}
	klog.V(1).Infof("%s: %q", i.Name, caption)

	o := &Outcome{
		Original:  i.Name,
		Candidate: CandidateName(caption, filepath.Ext(i.Name)),
		Caption:   caption,
	}
	if c.DryRun {
		return o, nil
	}

	dest := filepath.Join(outDir, o.Candidate)
	if err := move(i.Path, dest); err != nil {
		return nil, fmt.Errorf("move %s: %w", i.Name, err)
	}
	o.Applied = true

	if c.Tagger != nil {
		if err := c.Tagger.Tag(dest, caption); err != nil {
			return nil, fmt.Errorf("tag %s: %w", o.Candidate, err)
		}
	}

	return o, nil
}

// move renames src to dest, refusing to replace an existing file.
func move(src string, dest string) error {
	if _, err := os.Lstat(dest); err == nil {
		return fmt.Errorf("%w: %s", ErrDestinationExists, dest)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat: %w", err)
	}

	klog.V(1).Infof("%s -> %s", src, dest)
	return os.Rename(src, dest)
}

func emit(c *Config, e Event) {
	if c.Events == nil {
		return
	}
	if err := c.Events.Emit(e); err != nil {
		klog.Warningf("emit %s event: %v", e.Kind, err)
	}
}
