package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tstromberg/capname/pkg/capname"
	"github.com/tstromberg/capname/pkg/supervise"
)

func newTestModel(t *testing.T, dir string) uiModel {
	t.Helper()
	t.Setenv("CAPNAME_HOME", t.TempDir())
	m := newUIModel(context.Background(), uiOptions{renamer: "capname", dryRun: true, lastDir: dir})
	return step(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
}

func step(t *testing.T, m uiModel, msg tea.Msg) uiModel {
	t.Helper()
	next, _ := m.Update(msg)
	um, ok := next.(uiModel)
	require.True(t, ok)
	return um
}

func press(t *testing.T, m uiModel, k tea.KeyType) uiModel {
	t.Helper()
	return step(t, m, tea.KeyMsg{Type: k})
}

func TestDryRunToggle(t *testing.T) {
	m := newTestModel(t, "")
	assert.True(t, m.dryRun)
	m = press(t, m, tea.KeyTab)
	assert.False(t, m.dryRun)
	m = press(t, m, tea.KeyTab)
	assert.True(t, m.dryRun)
}

func TestSelectInvalidDirectory(t *testing.T) {
	m := newTestModel(t, filepath.Join(t.TempDir(), "missing"))
	m = press(t, m, tea.KeyEnter)
	require.NotNil(t, m.notice)
	assert.Equal(t, "No Directory Selected", m.notice.Title)
	assert.False(t, m.running)

	m = press(t, m, tea.KeyEnter)
	assert.Nil(t, m.notice)
}

func TestRunLifecycle(t *testing.T) {
	dir := t.TempDir()
	m := newTestModel(t, dir)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(uiModel)
	require.NotNil(t, cmd)
	assert.True(t, m.running)
	assert.Equal(t, dir, m.dir)
	assert.Nil(t, m.notice)

	// Selection, the dry run toggle and the gallery are ignored mid-run.
	next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(uiModel)
	assert.Nil(t, cmd)
	m = press(t, m, tea.KeyTab)
	assert.True(t, m.dryRun)
	next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlG})
	m = next.(uiModel)
	assert.Nil(t, cmd)

	m = step(t, m, updateMsg{ok: true, u: supervise.Update{Event: &capname.Event{Kind: capname.KindStarted, Total: 2}}})
	m = step(t, m, updateMsg{ok: true, u: supervise.Update{Stream: supervise.Stdout, Line: "[DRY RUN] Would rename: a.png -> a_cat.png"}})
	m = step(t, m, updateMsg{ok: true, u: supervise.Update{Event: &capname.Event{Kind: capname.KindItem, Original: "a.png", Candidate: "a_cat.png", DryRun: true}}})
	assert.InDelta(t, 0.5, m.tracker.Percent(), 0.001)
	assert.Equal(t, []string{"[DRY RUN] Would rename: a.png -> a_cat.png"}, m.logLines)
	assert.True(t, m.running)

	m = step(t, m, updateMsg{ok: true, u: supervise.Update{Finished: &supervise.Finished{}}})
	assert.False(t, m.running)
	require.NotNil(t, m.notice)
	assert.True(t, m.notice.Success)
	assert.Equal(t, "Completed", m.notice.Title)

	m = step(t, m, updateMsg{ok: false})
	assert.Nil(t, m.updates)
}

func TestRunFailureNotice(t *testing.T) {
	m := newTestModel(t, t.TempDir())
	m = press(t, m, tea.KeyEnter)
	require.True(t, m.running)

	m = step(t, m, updateMsg{ok: true, u: supervise.Update{Stream: supervise.Stderr, Line: "boom"}})
	m = step(t, m, updateMsg{ok: true, u: supervise.Update{Finished: &supervise.Finished{ExitCode: 2, Err: errors.New("exit status 2")}}})
	assert.False(t, m.running)
	require.NotNil(t, m.notice)
	assert.False(t, m.notice.Success)
	assert.Equal(t, "An error occurred. Check logs for details.", m.notice.Message)
	assert.Contains(t, m.logLines, "boom")
	assert.Contains(t, m.logLines, "capname: exit status 2")
}

func TestStartFailure(t *testing.T) {
	m := newTestModel(t, t.TempDir())
	m = press(t, m, tea.KeyEnter)
	m = step(t, m, startedMsg{err: errors.New("no such file")})
	assert.False(t, m.running)
	require.NotNil(t, m.notice)
	assert.Equal(t, "Error", m.notice.Title)
}

func TestFilesForStaleDirectoryIgnored(t *testing.T) {
	dir := t.TempDir()
	m := newTestModel(t, dir)
	m = step(t, m, filesMsg{dir: "/elsewhere", names: []string{"x.png"}})
	assert.Empty(t, m.files)
	m = step(t, m, filesMsg{dir: dir, names: []string{"a.png", "b.png"}})
	assert.Equal(t, []string{"a.png", "b.png"}, m.files)
}

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	msg := listFiles(filepath.Join(dir, "missing"))()
	fm, ok := msg.(filesMsg)
	require.True(t, ok)
	assert.Error(t, fm.err)
}

func TestExpandDir(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	assert.Equal(t, "/home/tester/pics", expandDir(" ~/pics/ "))
	assert.Equal(t, "/home/tester", expandDir("~"))
	assert.Equal(t, "a/b", expandDir("a//b"))
	assert.Equal(t, "", expandDir("  "))
}

func TestViewRenders(t *testing.T) {
	m := newTestModel(t, "")
	v := m.View()
	assert.Contains(t, v, "dry run")
	assert.Contains(t, v, "Directory:")

	m.notice = &supervise.Notification{Success: true, Title: "Completed", Message: "Processing completed."}
	assert.Contains(t, m.View(), "Processing completed.")
}

func TestGalleryBuildsDoNotOverlap(t *testing.T) {
	m := newTestModel(t, t.TempDir())

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlG})
	m = next.(uiModel)
	require.NotNil(t, cmd)
	assert.True(t, m.building)

	next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlG})
	m = next.(uiModel)
	assert.Nil(t, cmd)

	m = step(t, m, galleryMsg{url: "http://localhost:12800/abc/", count: 0})
	assert.False(t, m.building)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlG})
	assert.NotNil(t, cmd)
}

func TestGalleryFailureAllowsRetry(t *testing.T) {
	m := newTestModel(t, t.TempDir())
	m = press(t, m, tea.KeyCtrlG)
	m = step(t, m, galleryMsg{err: errors.New("listen: address already in use")})
	assert.False(t, m.building)
	assert.Contains(t, m.logLines, "gallery failed: listen: address already in use")
}

func TestQuitWhileNoticeShown(t *testing.T) {
	m := newTestModel(t, "")
	m.notice = &supervise.Notification{Title: "Error", Message: "An error occurred. Check logs for details."}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
