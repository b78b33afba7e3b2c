package svg

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// MaxPixels bounds the bitmap allocation for a single render. Icon view
// boxes are tiny, anything beyond this is a corrupt document.
const MaxPixels = 16 << 20

var (
	// ErrInvalidContent reports a document the svg engine cannot parse.
	ErrInvalidContent = errors.New("invalid svg content")

	// ErrBitmapSize reports a view box that cannot be backed by a bitmap,
	// empty, negative or beyond MaxPixels.
	ErrBitmapSize = errors.New("view box does not fit a bitmap")
)

// Rasterize renders content into a bitmap sized to the truncated view box
// of the document. The bitmap starts fully transparent and the icon is
// painted once at its natural scale.
func Rasterize(content []byte) (*image.RGBA, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}

	vb := icon.ViewBox
	// comparing before truncation also rejects NaN dimensions
	if !(vb.W >= 1 && vb.H >= 1 && vb.W*vb.H <= MaxPixels) {
		return nil, fmt.Errorf("%w: %gx%g", ErrBitmapSize, vb.W, vb.H)
	}
	w, h := int(vb.W), int(vb.H)

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	icon.SetTarget(0, 0, float64(w), float64(h))
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1)
	return img, nil
}
