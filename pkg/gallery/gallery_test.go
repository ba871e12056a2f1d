package gallery

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w int, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestFit(t *testing.T) {
	tests := []struct {
		w, h, wantW, wantH int
	}{
		{200, 100, 80, 40},
		{100, 400, 20, 80},
		{80, 80, 80, 80},
		{30, 10, 30, 10},
		{1000, 1, 80, 1},
	}
	for _, tc := range tests {
		w, h := fit(tc.w, tc.h, 80)
		assert.Equal(t, tc.wantW, w, "%dx%d", tc.w, tc.h)
		assert.Equal(t, tc.wantH, h, "%dx%d", tc.w, tc.h)
	}
}

func TestBuild(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writePNG(t, filepath.Join(in, "wide.png"), 200, 100)
	writePNG(t, filepath.Join(in, "Tall Photo.PNG"), 50, 160)
	writePNG(t, filepath.Join(in, "small.png"), 20, 20)
	require.NoError(t, os.WriteFile(filepath.Join(in, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(in, "renamed_pngs"), 0o755))

	g, err := Build(&Config{InDir: in, OutDir: out})
	require.NoError(t, err)
	require.Len(t, g.Entries, 3)
	assert.Equal(t, 10, g.Columns)
	assert.Equal(t, filepath.Base(in), g.Title)

	byName := map[string]*Entry{}
	for _, e := range g.Entries {
		byName[e.Name] = e
		for _, rel := range []string{e.FullRel, e.ThumbRel, e.ViewRel} {
			_, err := os.Stat(filepath.Join(out, filepath.FromSlash(rel)))
			assert.NoError(t, err, rel)
		}
		assert.LessOrEqual(t, e.Thumb.X, 80)
		assert.LessOrEqual(t, e.Thumb.Y, 80)
	}

	assert.Equal(t, ThumbMeta{X: 80, Y: 40, Path: filepath.Join(out, filepath.FromSlash(byName["wide.png"].ThumbRel))}, byName["wide.png"].Thumb)
	assert.Equal(t, 200, byName["wide.png"].Width)
	assert.Equal(t, 25, byName["Tall Photo.PNG"].Thumb.X)
	assert.Equal(t, 20, byName["small.png"].Thumb.X)

	idx, err := os.ReadFile(filepath.Join(out, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(idx), `href="view/Tall%20Photo.PNG.html"`)
	assert.Contains(t, string(idx), "3 images")
	assert.NotContains(t, string(idx), "notes.txt")

	view, err := os.ReadFile(filepath.Join(out, "view", "wide.png.html"))
	require.NoError(t, err)
	assert.Contains(t, string(view), `src="../full/wide.png"`)
	assert.Contains(t, string(view), `width="200"`)
}

func TestBuildReusesThumbnails(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writePNG(t, filepath.Join(in, "a.png"), 120, 90)

	g, err := Build(&Config{InDir: in, OutDir: out})
	require.NoError(t, err)
	thumb := filepath.Join(out, filepath.FromSlash(g.Entries[0].ThumbRel))

	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(thumb, old, old))

	g2, err := Build(&Config{InDir: in, OutDir: out})
	require.NoError(t, err)
	assert.Equal(t, g.Entries[0].Thumb, g2.Entries[0].Thumb)
	assert.Equal(t, 120, g2.Entries[0].Width)

	st, err := os.Stat(thumb)
	require.NoError(t, err)
	assert.True(t, st.ModTime().Equal(old), "thumbnail was regenerated")
}

func TestBuildReflectsRemovals(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writePNG(t, filepath.Join(in, "a.png"), 10, 10)
	writePNG(t, filepath.Join(in, "b.png"), 10, 10)

	_, err := Build(&Config{InDir: in, OutDir: out})
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(in, "b.png")))

	g, err := Build(&Config{InDir: in, OutDir: out})
	require.NoError(t, err)
	require.Len(t, g.Entries, 1)

	idx, err := os.ReadFile(filepath.Join(out, "index.html"))
	require.NoError(t, err)
	assert.NotContains(t, string(idx), "b.png")

	assert.NoFileExists(t, filepath.Join(out, "full", "b.png"))
	assert.NoFileExists(t, filepath.Join(out, "view", "b.png.html"))
	assert.FileExists(t, filepath.Join(out, "full", "a.png"))
	thumbs, err := os.ReadDir(filepath.Join(out, "thumbs"))
	require.NoError(t, err)
	require.Len(t, thumbs, 1)
	assert.Equal(t, path.Base(g.Entries[0].ThumbRel), thumbs[0].Name())
}

func TestBuildRefreshesReplacedImage(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	src := filepath.Join(in, "a.png")
	writePNG(t, src, 40, 30)

	g, err := Build(&Config{InDir: in, OutDir: out})
	require.NoError(t, err)
	oldThumb := g.Entries[0].ThumbRel

	// Replace the source with different content carrying an older timestamp.
	img := image.NewNRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: uint8(x * y), B: 10, A: 255})
		}
	}
	f, err := os.Create(src)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(src, old, old))

	g, err = Build(&Config{InDir: in, OutDir: out})
	require.NoError(t, err)

	want, err := os.ReadFile(src)
	require.NoError(t, err)
	got, err := os.ReadFile(filepath.Join(out, "full", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	assert.NotEqual(t, oldThumb, g.Entries[0].ThumbRel)
	assert.NoFileExists(t, filepath.Join(out, filepath.FromSlash(oldThumb)))
	assert.FileExists(t, filepath.Join(out, filepath.FromSlash(g.Entries[0].ThumbRel)))
}

func TestBuildMissingDir(t *testing.T) {
	_, err := Build(&Config{InDir: filepath.Join(t.TempDir(), "gone"), OutDir: t.TempDir()})
	require.Error(t, err)
}

func TestDefaultOutDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	a, err := DefaultOutDir("/photos/a")
	require.NoError(t, err)
	b, err := DefaultOutDir("/photos/b")
	require.NoError(t, err)
	a2, err := DefaultOutDir("/photos/a")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, a, a2)
	root, err := Root()
	require.NoError(t, err)
	assert.Equal(t, root, filepath.Dir(a))
}

func TestServerHandler(t *testing.T) {
	root := t.TempDir()
	in := t.TempDir()
	writePNG(t, filepath.Join(in, "a.png"), 10, 10)
	out := filepath.Join(root, "abc")
	_, err := Build(&Config{InDir: in, OutDir: out})
	require.NoError(t, err)

	s, err := NewServer(root, "127.0.0.1:0")
	require.NoError(t, err)
	u, err := s.URL(out)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(u, "/abc/"), u)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	for _, p := range []string{"/abc/", "/abc/index.html", "/abc/full/a.png", "/abc/view/a.png.html"} {
		resp, err := http.Get(ts.URL + p)
		require.NoError(t, err)
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, p)
	}
}

func TestServeShutdown(t *testing.T) {
	s, err := NewServer(t.TempDir(), "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestWatchRebuilds(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rebuilt := make(chan *Gallery, 16)
	go func() {
		_ = Watch(ctx, &Config{InDir: in, OutDir: out}, func(g *Gallery, err error) {
			if err == nil {
				rebuilt <- g
			}
		})
	}()

	deadline := time.After(10 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	n := 0
	for {
		select {
		case g := <-rebuilt:
			if len(g.Entries) == 1 {
				return
			}
		case <-tick.C:
			// The watcher may not be registered yet; keep touching the file until it notices.
			n++
			writePNG(t, filepath.Join(in, "new.png"), 8, 8+n%3)
		case <-deadline:
			t.Fatal("no rebuild after creating a PNG")
		}
	}
}
