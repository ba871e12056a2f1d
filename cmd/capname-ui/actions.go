package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"k8s.io/klog/v2"

	"github.com/tstromberg/capname/pkg/capname"
	"github.com/tstromberg/capname/pkg/gallery"
	"github.com/tstromberg/capname/pkg/prefs"
	"github.com/tstromberg/capname/pkg/supervise"
)

type startedMsg struct {
	run *supervise.Run
	err error
}

type updateMsg struct {
	u  supervise.Update
	ok bool
}

type filesMsg struct {
	dir   string
	names []string
	err   error
}

type galleryMsg struct {
	url    string
	count  int
	server *gallery.Server
	err    error
}

type prefsMsg struct {
	err error
}

// expandDir cleans a user-entered directory, expanding a leading ~.
func expandDir(s string) string {
	s = strings.TrimSpace(s)
	if s == "~" || strings.HasPrefix(s, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			s = filepath.Join(home, strings.TrimPrefix(s, "~"))
		}
	}
	if s == "" {
		return s
	}
	return filepath.Clean(s)
}

func startRun(ctx context.Context, o supervise.Options) tea.Cmd {
	return func() tea.Msg {
		r, err := supervise.Start(ctx, o)
		return startedMsg{run: r, err: err}
	}
}

// waitForUpdate hands the next update from a run to the program loop.
func waitForUpdate(ch <-chan supervise.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		return updateMsg{u: u, ok: ok}
	}
}

func listFiles(dir string) tea.Cmd {
	return func() tea.Msg {
		is, err := capname.Find(dir)
		if err != nil {
			return filesMsg{dir: dir, err: err}
		}
		names := []string{}
		for _, i := range is {
			names = append(names, i.Name)
		}
		return filesMsg{dir: dir, names: names}
	}
}

func savePrefs(dir string) tea.Cmd {
	return func() tea.Msg {
		p, err := prefs.Load()
		if err != nil {
			klog.Warningf("load prefs: %v", err)
		}
		p.LastSelectedDir = dir
		return prefsMsg{err: prefs.Save(p)}
	}
}

// buildGallery renders the gallery for dir, starting the gallery server on first use.
func buildGallery(ctx context.Context, s *gallery.Server, addr string, dir string) tea.Cmd {
	return func() tea.Msg {
		out, err := gallery.DefaultOutDir(dir)
		if err != nil {
			return galleryMsg{err: err}
		}

		g, err := gallery.Build(&gallery.Config{InDir: dir, OutDir: out})
		if err != nil {
			return galleryMsg{err: err}
		}

		if s == nil {
			root, err := gallery.Root()
			if err != nil {
				return galleryMsg{err: err}
			}
			s, err = gallery.NewServer(root, addr)
			if err != nil {
				return galleryMsg{err: err}
			}
			go func() {
				if err := s.Serve(ctx); err != nil {
					klog.Errorf("gallery server: %v", err)
				}
			}()
		}

		u, err := s.URL(out)
		return galleryMsg{url: u, count: len(g.Entries), server: s, err: err}
	}
}
