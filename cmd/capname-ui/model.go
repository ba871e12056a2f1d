package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tstromberg/capname/pkg/capname"
	"github.com/tstromberg/capname/pkg/gallery"
	"github.com/tstromberg/capname/pkg/supervise"
)

// maxLogLines bounds the log pane's history.
const maxLogLines = 5000

type uiOptions struct {
	renamer     string
	baseArgs    []string
	protocol    supervise.Protocol
	galleryAddr string
	dryRun      bool
	lastDir     string
}

type uiModel struct {
	ctx  context.Context
	opts uiOptions

	input    textinput.Model
	viewport viewport.Model
	bar      progress.Model
	help     help.Model
	keys     keyMap

	width  int
	height int

	dryRun   bool
	showList bool
	running  bool
	building bool
	dir      string
	files    []string
	logLines []string
	tracker  supervise.Tracker
	notice   *supervise.Notification
	status   string
	server   *gallery.Server
	updates  <-chan supervise.Update
}

func newUIModel(ctx context.Context, o uiOptions) uiModel {
	ti := textinput.New()
	ti.Prompt = "Directory: "
	ti.Placeholder = "./"
	ti.SetValue(o.lastDir)
	ti.CursorEnd()
	ti.Focus()
	ti.Width = 80

	return uiModel{
		ctx:      ctx,
		opts:     o,
		input:    ti,
		viewport: viewport.New(80, 10),
		bar:      progress.New(progress.WithDefaultGradient()),
		help:     help.New(),
		keys:     defaultKeys(),
		dryRun:   o.dryRun,
		status:   "Ready",
	}
}

func (m uiModel) Init() tea.Cmd {
	if m.opts.lastDir == "" {
		return textinput.Blink
	}
	return tea.Batch(textinput.Blink, listFiles(expandDir(m.opts.lastDir)))
}

func (m uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = clamp(m.width-len(m.input.Prompt)-2, 20, 200)
		m.bar.Width = clamp(m.width-16, 10, 120)
		m.help.Width = m.width
		m.layout()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.notice != nil {
			if key.Matches(msg, m.keys.Dismiss) {
				m.notice = nil
			}
			return m, nil
		}

		switch {
		case key.Matches(msg, m.keys.Quit) && !m.running:
			return m, tea.Quit
		case key.Matches(msg, m.keys.Run):
			return m, m.selectDirectory()
		case key.Matches(msg, m.keys.DryRun):
			if !m.running {
				m.dryRun = !m.dryRun
			}
			return m, nil
		case key.Matches(msg, m.keys.List):
			m.showList = !m.showList
			m.layout()
			return m, nil
		case key.Matches(msg, m.keys.Gallery):
			return m, m.showGallery()
		case key.Matches(msg, m.keys.Up):
			m.viewport.HalfPageUp()
			return m, nil
		case key.Matches(msg, m.keys.Down):
			m.viewport.HalfPageDown()
			return m, nil
		}

	case startedMsg:
		if msg.err != nil {
			m.running = false
			m.status = "Error"
			m.appendLog(fmt.Sprintf("failed to start %s: %v", m.opts.renamer, msg.err))
			m.notice = &supervise.Notification{Title: "Error", Message: "An error occurred. Check logs for details."}
			return m, nil
		}
		m.updates = msg.run.Updates()
		return m, waitForUpdate(m.updates)

	case updateMsg:
		if !msg.ok {
			m.updates = nil
			return m, nil
		}
		return m, m.applyUpdate(msg.u)

	case filesMsg:
		if msg.dir != m.currentDir() {
			return m, nil
		}
		if msg.err != nil {
			m.files = nil
			return m, nil
		}
		m.files = msg.names
		m.layout()
		return m, nil

	case galleryMsg:
		m.building = false
		m.status = "Ready"
		if msg.err != nil {
			m.appendLog(fmt.Sprintf("gallery failed: %v", msg.err))
			return m, nil
		}
		m.server = msg.server
		m.appendLog(fmt.Sprintf("Gallery of %d images: %s (click a thumbnail to enlarge)", msg.count, msg.url))
		return m, nil

	case prefsMsg:
		if msg.err != nil {
			m.appendLog(fmt.Sprintf("unable to save preferences: %v", msg.err))
		}
		return m, nil
	}

	var cmd tea.Cmd
	if !m.running {
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

// applyUpdate is the only place run output reaches view state.
func (m *uiModel) applyUpdate(u supervise.Update) tea.Cmd {
	if u.Stream != "" {
		m.appendLog(u.Line)
	}
	if u.Event != nil {
		m.tracker.Apply(*u.Event)
	}
	if u.Finished == nil {
		return waitForUpdate(m.updates)
	}

	m.running = false
	n := supervise.Notify(*u.Finished)
	m.notice = &n
	m.status = n.Title
	if !n.Success && u.Finished.Err != nil {
		m.appendLog(fmt.Sprintf("%s: %v", m.opts.renamer, u.Finished.Err))
	}
	return listFiles(m.dir)
}

func (m uiModel) currentDir() string {
	if m.dir != "" {
		return m.dir
	}
	return expandDir(m.opts.lastDir)
}

// selectDirectory validates the entered directory and starts a run. Only one run may be
// active at a time.
func (m *uiModel) selectDirectory() tea.Cmd {
	if m.running {
		return nil
	}

	dir := expandDir(m.input.Value())
	if dir == "" || capname.CheckDir(dir) != nil {
		m.notice = &supervise.Notification{
			Title:   "No Directory Selected",
			Message: fmt.Sprintf("%q is not a directory.", m.input.Value()),
		}
		return nil
	}

	m.dir = dir
	m.running = true
	m.status = "Running"
	m.tracker.Reset()
	m.logLines = nil
	m.viewport.SetContent("")

	o := supervise.Options{
		Renamer:  m.opts.renamer,
		Dir:      dir,
		DryRun:   m.dryRun,
		Protocol: m.opts.protocol,
		BaseArgs: m.opts.baseArgs,
	}
	return tea.Batch(savePrefs(dir), listFiles(dir), startRun(m.ctx, o))
}

// showGallery builds the gallery for the entered directory. Builds do not overlap, so the
// server is only ever created once.
func (m *uiModel) showGallery() tea.Cmd {
	if m.running || m.building {
		return nil
	}

	dir := expandDir(m.input.Value())
	if dir == "" || capname.CheckDir(dir) != nil {
		m.notice = &supervise.Notification{
			Title:   "No Directory Selected",
			Message: fmt.Sprintf("%q is not a directory.", m.input.Value()),
		}
		return nil
	}

	m.dir = dir
	m.building = true
	m.status = "Building gallery"
	return tea.Batch(savePrefs(dir), listFiles(dir), buildGallery(m.ctx, m.server, m.opts.galleryAddr, dir))
}

func (m *uiModel) appendLog(line string) {
	m.logLines = append(m.logLines, line)
	if len(m.logLines) > maxLogLines {
		m.logLines = m.logLines[len(m.logLines)-maxLogLines:]
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(strings.Join(m.logLines, "\n"))
	if atBottom {
		m.viewport.GotoBottom()
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
