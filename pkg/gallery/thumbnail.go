package gallery

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path"
	"path/filepath"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
	"github.com/otiai10/copy"
	"k8s.io/klog/v2"

	"github.com/tstromberg/capname/pkg/capname"
)

var (
	// ModTimeFormat is embedded in thumbnail names to catch minor adjustments.
	ModTimeFormat = "20060102150405"
	ThumbQuality  = 85
)

// ThumbMeta describes a thumbnail.
type ThumbMeta struct {
	X    int
	Y    int
	Path string
}

func snapshot(c *Config, i capname.Image) (*Entry, error) {
	sst, err := os.Stat(i.Path)
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}

	e := &Entry{
		Name:    i.Name,
		ModTime: sst.ModTime(),
		FullRel: path.Join("full", i.Name),
		ViewRel: path.Join("view", i.Name+".html"),
	}
	e.ThumbRel = thumbRelPath(e, c.ThumbSize)

	fullDest := filepath.Join(c.OutDir, filepath.FromSlash(e.FullRel))
	dst, err := os.Stat(fullDest)
	updated := false

	if err != nil {
		updated = true
		klog.V(1).Infof("updating %s: does not exist", fullDest)
	}

	if err == nil && sst.Size() != dst.Size() {
		updated = true
		klog.V(1).Infof("updating %s: size mismatch", fullDest)
	}

	// Copies keep the source mtime, so any difference means the source was replaced.
	if err == nil && !sst.ModTime().Equal(dst.ModTime()) {
		updated = true
		klog.V(1).Infof("updating %s: modification time changed", fullDest)
	}

	if updated {
		if err := copy.Copy(i.Path, fullDest, copy.Options{PreserveTimes: true}); err != nil {
			return nil, fmt.Errorf("copy: %w", err)
		}
	}

	thumbPath := filepath.Join(c.OutDir, filepath.FromSlash(e.ThumbRel))
	if err := os.MkdirAll(filepath.Dir(thumbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}

	st, err := os.Stat(thumbPath)
	if err == nil && st.Size() > 0 && !updated {
		klog.V(1).Infof("%s exists (%d bytes)", thumbPath, st.Size())
		tm, terr := readThumb(thumbPath)
		full, ferr := readThumb(fullDest)
		if terr == nil && ferr == nil {
			e.Width, e.Height = full.X, full.Y
			e.Thumb = *tm
			return e, nil
		}
		klog.Warningf("unable to read cached thumb for %s: thumb=%v full=%v", i.Name, terr, ferr)
	}

	img, err := imgio.Open(i.Path)
	if err != nil {
		return nil, fmt.Errorf("imgio.Open: %w", err)
	}
	e.Width, e.Height = img.Bounds().Dx(), img.Bounds().Dy()

	tm, err := createThumb(img, thumbPath, c.ThumbSize)
	if err != nil {
		return nil, fmt.Errorf("create thumb: %w", err)
	}
	e.Thumb = *tm
	return e, nil
}

// fit scales w×h down to fit within a box×box square, keeping the aspect ratio.
func fit(w int, h int, box int) (int, int) {
	if w <= box && h <= box {
		return w, h
	}
	if w >= h {
		return box, max(1, h*box/w)
	}
	return max(1, w*box/h), box
}

func createThumb(i image.Image, path string, size int) (*ThumbMeta, error) {
	if i.Bounds().Dx() == 0 || i.Bounds().Dy() == 0 {
		return nil, fmt.Errorf("empty image: %+v", i.Bounds())
	}

	x, y := fit(i.Bounds().Dx(), i.Bounds().Dy(), size)
	klog.V(1).Infof("creating %dx%d thumb: %s - %+v", x, y, path, i.Bounds())

	rimg := transform.Resize(capname.Flatten(i), x, y, transform.Lanczos)
	if err := imgio.Save(path, rimg, imgio.JPEGEncoder(ThumbQuality)); err != nil {
		return nil, fmt.Errorf("save: %w", err)
	}

	return &ThumbMeta{X: rimg.Bounds().Dx(), Y: rimg.Bounds().Dy(), Path: path}, nil
}

func readThumb(path string) (*ThumbMeta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	ic, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("unable to decode: %w", err)
	}

	return &ThumbMeta{X: ic.Width, Y: ic.Height, Path: path}, nil
}

// thumbRelPath returns a slash-separated thumbnail path that changes whenever the source does.
func thumbRelPath(e *Entry, size int) string {
	return path.Join("thumbs", fmt.Sprintf("%s@%d_%s.jpg", e.Name, size, e.ModTime.Format(ModTimeFormat)))
}
