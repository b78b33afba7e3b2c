package assets

import (
	"embed"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/beamchat/beam-heart/app"
	"github.com/beamchat/beam-heart/core/config"
)

const CName = "assets"

//go:embed images/*.svg
var bundled embed.FS

// Service provides read access to the icon assets shipped with the
// middleware. An override directory from the config is consulted first,
// which lets a deployment replace single icons without a rebuild.
type Service interface {
	app.Component

	// Open returns the asset content for reading.
	Open(name string) (io.ReadCloser, error)
	// SizeOf reports the asset size in bytes without opening it.
	SizeOf(name string) (int64, error)
}

type service struct {
	overrideDir string
}

func New() Service {
	return new(service)
}

func (s *service) Init(a *app.App) error {
	s.overrideDir = a.MustComponent(config.CName).(*config.Config).AssetsDir
	return nil
}

func (s *service) Name() string {
	return CName
}

func (s *service) Open(name string) (io.ReadCloser, error) {
	// ValidPath also keeps requests from escaping the override dir
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	if s.overrideDir != "" {
		f, err := os.Open(filepath.Join(s.overrideDir, filepath.FromSlash(name)))
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return bundled.Open(name)
}

func (s *service) SizeOf(name string) (int64, error) {
	if !fs.ValidPath(name) {
		return 0, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}
	if s.overrideDir != "" {
		info, err := os.Stat(filepath.Join(s.overrideDir, filepath.FromSlash(name)))
		if err == nil {
			return info.Size(), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return 0, err
		}
	}
	info, err := fs.Stat(bundled, name)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
