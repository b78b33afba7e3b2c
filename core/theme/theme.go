package theme

import (
	_ "embed"
	"fmt"
	"image/color"
	"os"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
	"gopkg.in/yaml.v3"

	"github.com/beamchat/beam-heart/app"
	"github.com/beamchat/beam-heart/core/config"
	"github.com/beamchat/beam-heart/pkg/lib/logging"
)

const CName = "theme"

var log = logging.Logger("beam-theme")

//go:embed default.yml
var defaultPaletteYml []byte

// Service resolves theme color roles used by the icon assets.
// The palette is built once at Init and is read-only afterwards,
// so lookups are safe for concurrent use.
type Service interface {
	app.Component

	// Color returns the value assigned to the role.
	// The second result reports whether the role exists in the palette.
	Color(role string) (color.NRGBA, bool)
}

type service struct {
	colors map[string]color.NRGBA
}

func New() Service {
	return new(service)
}

func (s *service) Name() string {
	return CName
}

func (s *service) Init(a *app.App) error {
	cfg := a.MustComponent(config.CName).(*config.Config)

	s.colors = make(map[string]color.NRGBA)
	if err := s.loadYml(defaultPaletteYml); err != nil {
		return fmt.Errorf("embedded palette: %w", err)
	}

	if cfg.ThemeFile != "" {
		data, err := os.ReadFile(cfg.ThemeFile)
		if err != nil {
			return fmt.Errorf("theme file: %w", err)
		}
		if err = s.loadYml(data); err != nil {
			return fmt.Errorf("theme file %s: %w", cfg.ThemeFile, err)
		}
	}

	for role, value := range cfg.IconColors {
		s.assign(role, value)
	}

	return nil
}

func (s *service) Color(role string) (color.NRGBA, bool) {
	c, ok := s.colors[role]
	return c, ok
}

type paletteFile struct {
	Colors map[string]string `yaml:"colors"`
}

func (s *service) loadYml(data []byte) error {
	var pf paletteFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return fmt.Errorf("failed to parse palette: %w", err)
	}
	for role, value := range pf.Colors {
		s.assign(role, value)
	}
	return nil
}

// assign parses value and stores it under role. Unparseable values are
// skipped with a warning so one bad entry cannot take the palette down.
func (s *service) assign(role, value string) {
	c, err := parseColor(value)
	if err != nil {
		log.Warnf("skipping color '%s' for role '%s': %v", value, role, err)
		return
	}
	s.colors[role] = c
}

// parseColor accepts #rgb and #rrggbb hex forms plus the SVG 1.1 color
// keywords ("white", "steelblue", ...).
func parseColor(value string) (color.NRGBA, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return color.NRGBA{}, fmt.Errorf("empty color value")
	}
	if strings.HasPrefix(value, "#") {
		c, err := colorful.Hex(value)
		if err != nil {
			return color.NRGBA{}, err
		}
		r, g, b := c.RGB255()
		return color.NRGBA{R: r, G: g, B: b, A: 0xff}, nil
	}
	if c, ok := colornames.Map[strings.ToLower(value)]; ok {
		// keyword colors are fully opaque, alpha conversion is lossless
		return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}, nil
	}
	return color.NRGBA{}, fmt.Errorf("unknown color '%s'", value)
}
