// capname-ui is a terminal front end that runs capname on a chosen directory and shows its
// progress.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"k8s.io/klog/v2"

	"github.com/tstromberg/capname/pkg/prefs"
	"github.com/tstromberg/capname/pkg/supervise"
)

var (
	renamerFlag  = flag.String("renamer", "capname", "path or name of the capname binary")
	backendFlag  = flag.String("backend", "", "caption model backend passed to capname")
	modelFlag    = flag.String("model", "", "model name passed to capname")
	protocolFlag = flag.String("protocol", string(supervise.ProtocolEvents), "progress protocol: events or text")
	addrFlag     = flag.String("addr", "localhost:12800", "host:port for the image gallery server")
	logFile      = flag.String("log-file", "", "where to write logs (default: user cache dir)")
	dryRunFlag   = flag.Bool("dry-run", true, "initial state of the dry run toggle")
)

// baseArgs are the flags forwarded to every capname run.
func baseArgs() []string {
	var args []string
	if *backendFlag != "" {
		args = append(args, "-backend", *backendFlag)
	}
	if *modelFlag != "" {
		args = append(args, "-model", *modelFlag)
	}
	return args
}

func defaultLogFile() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "capname", "capname-ui.log"), nil
}

// openLog redirects klog to a file so it does not draw over the terminal UI.
func openLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	klog.LogToStderr(false)
	klog.SetOutput(f)
	return f, nil
}

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	p := supervise.Protocol(*protocolFlag)
	if p != supervise.ProtocolEvents && p != supervise.ProtocolText {
		klog.Exitf("unknown -protocol %q", *protocolFlag)
	}

	renamer, err := supervise.ResolveRenamer(*renamerFlag)
	if err != nil {
		klog.Exitf("renamer: %v", err)
	}

	if *logFile == "" {
		path, err := defaultLogFile()
		if err != nil {
			klog.Exitf("log file: %v", err)
		}
		*logFile = path
	}
	f, err := openLog(*logFile)
	if err != nil {
		klog.Exitf("open log: %v", err)
	}
	defer f.Close()
	defer klog.Flush()

	pr, err := prefs.Load()
	if err != nil {
		klog.Warningf("load prefs: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	m := newUIModel(ctx, uiOptions{
		renamer:     renamer,
		baseArgs:    baseArgs(),
		protocol:    p,
		galleryAddr: *addrFlag,
		dryRun:      *dryRunFlag,
		lastDir:     pr.LastSelectedDir,
	})

	klog.Infof("capname-ui starting: renamer=%s protocol=%s", renamer, p)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		cancel()
		klog.Errorf("ui: %v", err)
		klog.Flush()
		os.Exit(1)
	}
}
