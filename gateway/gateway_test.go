package gateway

import (
	"context"
	"fmt"
	"image/color"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beamchat/beam-heart/app/testapp"
	"github.com/beamchat/beam-heart/core/assets"
	"github.com/beamchat/beam-heart/core/config"
	"github.com/beamchat/beam-heart/core/icon"
	"github.com/beamchat/beam-heart/core/theme"
)

type fixture struct {
	*testapp.TestApp
	gw Gateway
}

func newFixture(t *testing.T, opts ...func(*config.Config)) *fixture {
	opts = append(opts,
		config.DisableFileConfig(true),
		config.WithGatewayAddr("127.0.0.1:0"),
	)
	ta := testapp.New().
		With(config.New(opts...)).
		With(theme.New()).
		With(assets.New()).
		With(icon.New()).
		With(New())
	require.NoError(t, ta.Start(context.Background()))
	t.Cleanup(func() {
		require.NoError(t, ta.Close(context.Background()))
	})
	return &fixture{TestApp: ta, gw: ta.MustComponent(CName).(Gateway)}
}

func (fx *fixture) url(pathAndQuery string) string {
	return fmt.Sprintf("http://%s%s", fx.gw.Addr(), pathAndQuery)
}

func TestGateway_Health(t *testing.T) {
	fx := newFixture(t)

	resp, err := http.Get(fx.url("/health"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestGateway_Image(t *testing.T) {
	fx := newFixture(t)

	t.Run("renders a bundled icon as png", func(t *testing.T) {
		resp, err := http.Get(fx.url("/image/chat.svg"))
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
		assert.Equal(t, `inline; filename="chat.png"`, resp.Header.Get("Content-Disposition"))

		img, err := png.Decode(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, 24, img.Bounds().Dx())
		assert.Equal(t, 24, img.Bounds().Dy())

		// the bubble is painted with the default primary color
		got := color.NRGBAModel.Convert(img.At(12, 14)).(color.NRGBA)
		assert.Equal(t, color.NRGBA{R: 0x46, G: 0x87, B: 0xf0, A: 0xff}, got)

		// corners outside the bubble stay transparent
		_, _, _, a := img.At(23, 23).RGBA()
		assert.Zero(t, a)
	})

	t.Run("size hints are not honored", func(t *testing.T) {
		resp, err := http.Get(fx.url("/image/chat.svg?width=100&height=100"))
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		img, err := png.Decode(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, 24, img.Bounds().Dx())
		assert.Equal(t, 24, img.Bounds().Dy())
	})

	t.Run("cors allows any origin", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, fx.url("/image/chat.svg"), nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://localhost:8080")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	})
}

func TestGateway_ImageNotFound(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "images"), 0755))
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "images", name), []byte(content), 0644))
	}
	write("broken.svg", `<svg><path></svg>`)
	write("flat.svg", `<svg viewBox="0 0 0 24"></svg>`)
	write("huge.svg", strings.Repeat(" ", icon.MaxAssetSize+1))

	fx := newFixture(t, config.WithAssetsDir(dir))

	// the client only ever sees one failure shape
	for _, id := range []string{"missing.svg", "broken.svg", "flat.svg", "huge.svg"} {
		resp, err := http.Get(fx.url("/image/" + id))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, id)
	}
}
