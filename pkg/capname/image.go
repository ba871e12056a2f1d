package capname

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/parallel"
	"k8s.io/klog/v2"
)

// PreparedQuality is the JPEG quality used when handing images to a caption model.
var PreparedQuality = 90

// Prepared is an image converted into the format caption models expect.
type Prepared struct {
	Name     string
	MimeType string
	Data     []byte
	Width    int
	Height   int
}

// Prepare loads an image and re-encodes it as 3-channel color JPEG.
func Prepare(i Image) (*Prepared, error) {
	src, err := imgio.Open(i.Path)
	if err != nil {
		return nil, fmt.Errorf("imgio.Open: %w", err)
	}

	rgb := Flatten(src)
	var buf bytes.Buffer
	if err := imgio.JPEGEncoder(PreparedQuality)(&buf, rgb); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	klog.V(1).Infof("prepared %s: %dx%d, %d bytes", i.Name, rgb.Bounds().Dx(), rgb.Bounds().Dy(), buf.Len())
	return &Prepared{
		Name:     i.Name,
		MimeType: "image/jpeg",
		Data:     buf.Bytes(),
		Width:    rgb.Bounds().Dx(),
		Height:   rgb.Bounds().Dy(),
	}, nil
}

// Flatten returns a fully opaque copy of img. The alpha channel is dropped rather than
// composited, so transparent pixels keep their stored color.
func Flatten(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	parallel.Line(b.Dy(), func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < b.Dx(); x++ {
				c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
				dst.SetRGBA(x, y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
			}
		}
	})

	return dst
}
