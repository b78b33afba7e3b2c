package theme

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beamchat/beam-heart/app"
	"github.com/beamchat/beam-heart/core/config"
)

func newFixture(t *testing.T, opts ...func(*config.Config)) *service {
	opts = append(opts, config.DisableFileConfig(true))
	a := new(app.App)
	a.Register(config.New(opts...))

	s := New().(*service)
	require.NoError(t, s.Init(a))
	return s
}

func TestService_Color(t *testing.T) {
	t.Run("default palette", func(t *testing.T) {
		s := newFixture(t)

		c, ok := s.Color("primary")
		assert.True(t, ok)
		assert.Equal(t, color.NRGBA{R: 0x46, G: 0x87, B: 0xf0, A: 0xff}, c)

		_, ok = s.Color("no-such-role")
		assert.False(t, ok)
	})

	t.Run("theme file overlays the default palette", func(t *testing.T) {
		themeFile := filepath.Join(t.TempDir(), "theme.yml")
		data := []byte("colors:\n  primary: \"#ff0000\"\n  brand: steelblue\n")
		require.NoError(t, os.WriteFile(themeFile, data, 0644))

		s := newFixture(t, config.WithThemeFile(themeFile))

		c, ok := s.Color("primary")
		assert.True(t, ok)
		assert.Equal(t, color.NRGBA{R: 0xff, A: 0xff}, c)

		c, ok = s.Color("brand")
		assert.True(t, ok)
		assert.Equal(t, color.NRGBA{R: 0x46, G: 0x82, B: 0xb4, A: 0xff}, c)

		// roles not mentioned by the file keep their defaults
		_, ok = s.Color("muted")
		assert.True(t, ok)
	})

	t.Run("config colors win over the theme file", func(t *testing.T) {
		themeFile := filepath.Join(t.TempDir(), "theme.yml")
		require.NoError(t, os.WriteFile(themeFile, []byte("colors:\n  primary: \"#ff0000\"\n"), 0644))

		s := newFixture(t,
			config.WithThemeFile(themeFile),
			config.WithIconColors(map[string]string{"primary": "#00ff00"}),
		)

		c, ok := s.Color("primary")
		assert.True(t, ok)
		assert.Equal(t, color.NRGBA{G: 0xff, A: 0xff}, c)
	})

	t.Run("invalid entries are skipped", func(t *testing.T) {
		themeFile := filepath.Join(t.TempDir(), "theme.yml")
		data := []byte("colors:\n  broken: \"#zzz\"\n  alien: nosuchcolor\n  good: \"#123\"\n")
		require.NoError(t, os.WriteFile(themeFile, data, 0644))

		s := newFixture(t, config.WithThemeFile(themeFile))

		_, ok := s.Color("broken")
		assert.False(t, ok)
		_, ok = s.Color("alien")
		assert.False(t, ok)

		c, ok := s.Color("good")
		assert.True(t, ok)
		assert.Equal(t, color.NRGBA{R: 0x11, G: 0x22, B: 0x33, A: 0xff}, c)

		// defaults survive a partially broken overlay
		_, ok = s.Color("primary")
		assert.True(t, ok)
	})
}

func TestService_Init(t *testing.T) {
	t.Run("missing theme file", func(t *testing.T) {
		a := new(app.App)
		a.Register(config.New(
			config.DisableFileConfig(true),
			config.WithThemeFile(filepath.Join(t.TempDir(), "nope.yml")),
		))

		err := New().(*service).Init(a)
		assert.Error(t, err)
	})

	t.Run("malformed theme file", func(t *testing.T) {
		themeFile := filepath.Join(t.TempDir(), "theme.yml")
		require.NoError(t, os.WriteFile(themeFile, []byte("colors: [not a map"), 0644))

		a := new(app.App)
		a.Register(config.New(
			config.DisableFileConfig(true),
			config.WithThemeFile(themeFile),
		))

		err := New().(*service).Init(a)
		assert.Error(t, err)
	})
}

func TestParseColor(t *testing.T) {
	for _, tc := range []struct {
		value   string
		want    color.NRGBA
		wantErr bool
	}{
		{value: "#4687f0", want: color.NRGBA{R: 0x46, G: 0x87, B: 0xf0, A: 0xff}},
		{value: "#FA0", want: color.NRGBA{R: 0xff, G: 0xaa, B: 0x00, A: 0xff}},
		{value: "white", want: color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}},
		{value: "SteelBlue", want: color.NRGBA{R: 0x46, G: 0x82, B: 0xb4, A: 0xff}},
		{value: " #123456 ", want: color.NRGBA{R: 0x12, G: 0x34, B: 0x56, A: 0xff}},
		{value: "#12", wantErr: true},
		{value: "#gggggg", wantErr: true},
		{value: "notacolor", wantErr: true},
		{value: "", wantErr: true},
	} {
		t.Run(tc.value, func(t *testing.T) {
			got, err := parseColor(tc.value)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
