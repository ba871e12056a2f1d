// Package supervise runs capname as a child process and reports its progress.
package supervise

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"k8s.io/klog/v2"

	"github.com/tstromberg/capname/pkg/capname"
)

// Protocol selects how progress is read from the child.
type Protocol string

const (
	// ProtocolEvents reads JSON events from a dedicated pipe.
	ProtocolEvents Protocol = "events"
	// ProtocolText derives progress from stdout lines.
	ProtocolText Protocol = "text"
)

// eventsFD is the child's file descriptor for the event pipe: the first entry of ExtraFiles.
const eventsFD = 3

// Stream identifies which output a log line came from.
type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

// Options describe one supervised run.
type Options struct {
	Renamer  string
	Dir      string
	DryRun   bool
	Protocol Protocol
	// BaseArgs are passed to the renamer before the generated arguments.
	BaseArgs []string
}

// Update is a single message from a run. Exactly one of Line, Event or Finished is the
// primary payload; text-protocol lines that match carry both Line and Event.
type Update struct {
	Stream   Stream
	Line     string
	Event    *capname.Event
	Finished *Finished
}

// Finished describes how the child exited.
type Finished struct {
	ExitCode int
	Err      error
}

// Run is a started child process.
type Run struct {
	updates chan Update
}

// Updates returns the run's update queue. It is closed after the Finished update.
func (r *Run) Updates() <-chan Update {
	return r.updates
}

// Args returns the renamer command line for o.
func Args(o Options) []string {
	args := append([]string{}, o.BaseArgs...)
	if o.Protocol != ProtocolText {
		args = append(args, "-events-fd", fmt.Sprint(eventsFD))
	}
	if o.DryRun {
		args = append(args, "--dry-run")
	}
	return append(args, "--", o.Dir)
}

// ResolveRenamer finds the renamer binary: an explicit path, a $PATH entry, or a sibling of
// the running executable.
func ResolveRenamer(name string) (string, error) {
	if strings.ContainsRune(name, filepath.Separator) {
		return name, nil
	}
	if p, err := exec.LookPath(name); err == nil {
		return p, nil
	}
	self, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("executable: %w", err)
	}
	p := filepath.Join(filepath.Dir(self), name)
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("%s not found in $PATH or %s", name, filepath.Dir(self))
	}
	return p, nil
}

// Start launches the renamer. Output is drained in the background; the caller consumes
// Updates until the channel closes. Canceling ctx kills the child.
func Start(ctx context.Context, o Options) (*Run, error) {
	cmd := exec.CommandContext(ctx, o.Renamer, Args(o)...)
	klog.Infof("starting %s %s", o.Renamer, strings.Join(cmd.Args[1:], " "))

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr: %w", err)
	}

	var evr, evw *os.File
	if o.Protocol != ProtocolText {
		evr, evw, err = os.Pipe()
		if err != nil {
			return nil, fmt.Errorf("pipe: %w", err)
		}
		cmd.ExtraFiles = []*os.File{evw}
	}

	if err := cmd.Start(); err != nil {
		if evr != nil {
			evr.Close()
			evw.Close()
		}
		return nil, fmt.Errorf("start %s: %w", o.Renamer, err)
	}
	if evw != nil {
		// The child holds its own copy; ours must close for the reader to see EOF.
		evw.Close()
	}

	r := &Run{updates: make(chan Update, 64)}
	parse := o.Protocol == ProtocolText

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		r.readLines(ctx, stdout, Stdout, parse)
	}()
	go func() {
		defer wg.Done()
		r.readLines(ctx, stderr, Stderr, false)
	}()
	if evr != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer evr.Close()
			r.readEvents(ctx, evr)
		}()
	}

	go func() {
		wg.Wait()
		f := exitStatus(cmd.Wait())
		klog.Infof("%s exited with status %d", o.Renamer, f.ExitCode)
		r.send(ctx, Update{Finished: &f})
		close(r.updates)
	}()

	return r, nil
}

func exitStatus(err error) Finished {
	if err == nil {
		return Finished{}
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return Finished{ExitCode: ee.ExitCode(), Err: err}
	}
	return Finished{ExitCode: -1, Err: err}
}

func (r *Run) send(ctx context.Context, u Update) {
	select {
	case r.updates <- u:
	case <-ctx.Done():
	}
}

func newScanner(rd io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	return sc
}

func (r *Run) readLines(ctx context.Context, rd io.Reader, s Stream, parse bool) {
	sc := newScanner(rd)
	for sc.Scan() {
		u := Update{Stream: s, Line: sc.Text()}
		if parse {
			if e, ok := ParseLine(u.Line); ok {
				u.Event = &e
			}
		}
		r.send(ctx, u)
	}
	if err := sc.Err(); err != nil {
		klog.Warningf("read %s: %v", s, err)
	}
}

func (r *Run) readEvents(ctx context.Context, rd io.Reader) {
	sc := newScanner(rd)
	for sc.Scan() {
		var e capname.Event
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			klog.V(1).Infof("skipping malformed event %q: %v", sc.Text(), err)
			continue
		}
		r.send(ctx, Update{Event: &e})
	}
	if err := sc.Err(); err != nil {
		klog.Warningf("read events: %v", err)
	}
}

// Notification is what the user is told when a run ends.
type Notification struct {
	Success bool
	Title   string
	Message string
}

// Notify maps an exit status to a notification. Only a clean zero exit is a success.
func Notify(f Finished) Notification {
	if f.Err != nil || f.ExitCode != 0 {
		return Notification{Title: "Error", Message: "An error occurred. Check logs for details."}
	}
	return Notification{Success: true, Title: "Completed", Message: "Processing completed."}
}
