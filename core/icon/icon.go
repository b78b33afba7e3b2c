package icon

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/beamchat/beam-heart/app"
	"github.com/beamchat/beam-heart/core/assets"
	"github.com/beamchat/beam-heart/core/theme"
	"github.com/beamchat/beam-heart/pkg/lib/logging"
	"github.com/beamchat/beam-heart/util/svg"
)

const CName = "icon"

// MaxAssetSize is the largest svg asset the service agrees to open.
// Assets of exactly this size still pass.
const MaxAssetSize = 100 * 1024

var log = logging.Logger("beam-icon")

var (
	ErrAssetTooLarge   = errors.New("asset exceeds the size limit")
	ErrAssetUnreadable = errors.New("asset cannot be read")
	ErrMalformedSvg    = errors.New("asset is not well-formed xml")
	ErrInvalidSvg      = errors.New("asset is not a renderable svg")
	ErrBitmapAlloc     = errors.New("bitmap cannot be allocated")
)

// Service turns icon identifiers into theme-colored bitmaps.
type Service interface {
	app.Component

	// RequestImage loads the asset registered under id, recolors it with
	// the active theme palette and rasterizes it. requestedSize is accepted
	// for caller compatibility and is not honored, the output dimensions
	// always follow the document view box. On failure the image is nil and
	// the error wraps one of the package sentinels.
	RequestImage(ctx context.Context, id string, requestedSize image.Point) (*image.RGBA, error)
}

type service struct {
	assets assets.Service
	colors theme.Service
}

func New() Service {
	return new(service)
}

func (s *service) Init(a *app.App) error {
	s.assets = a.MustComponent(assets.CName).(assets.Service)
	s.colors = a.MustComponent(theme.CName).(theme.Service)
	return nil
}

func (s *service) Name() string {
	return CName
}

func (s *service) RequestImage(ctx context.Context, id string, requestedSize image.Point) (*image.RGBA, error) {
	path := "images/" + id
	log.Infof("image '%s' requested", path)
	start := time.Now()

	// reject oversized assets before opening them
	size, err := s.assets.SizeOf(path)
	if err == nil && size > MaxAssetSize {
		log.Warnf("unable to open large file '%s'", path)
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrAssetTooLarge, path, size)
	}

	f, err := s.assets.Open(path)
	if err != nil {
		log.Warnf("unable to open file '%s': %v", path, err)
		return nil, fmt.Errorf("%w: %v", ErrAssetUnreadable, err)
	}
	defer f.Close()

	content, err := svg.Recolor(f, s.colors)
	if err != nil {
		log.Warnf("unable to parse file '%s': %v", path, err)
		return nil, fmt.Errorf("%w: %v", ErrMalformedSvg, err)
	}
	if len(content) == 0 {
		log.Warnf("unable to parse file '%s': empty document", path)
		return nil, fmt.Errorf("%w: empty document", ErrMalformedSvg)
	}

	img, err := svg.Rasterize(content)
	if err != nil {
		if errors.Is(err, svg.ErrBitmapSize) {
			log.Warnf("unable to create image from path '%s': %v", path, err)
			return nil, fmt.Errorf("%w: %v", ErrBitmapAlloc, err)
		}
		log.Warnf("invalid svg file '%s': %v", path, err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidSvg, err)
	}

	log.Infof("image '%s' loaded in %d milliseconds", path, time.Since(start).Milliseconds())
	return img, nil
}
