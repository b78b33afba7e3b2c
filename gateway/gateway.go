package gateway

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"net"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	gincors "github.com/rs/cors/wrapper/gin"

	"github.com/beamchat/beam-heart/app"
	"github.com/beamchat/beam-heart/core/config"
	"github.com/beamchat/beam-heart/core/icon"
	"github.com/beamchat/beam-heart/pkg/lib/logging"
)

const (
	CName = "gateway"

	defaultGatewayAddr = "127.0.0.1:31006"
)

var log = logging.Logger("beam-gateway")

// Gateway is the local HTTP surface the desktop client loads icon
// bitmaps from.
type Gateway interface {
	app.ComponentRunnable

	// Addr returns the address the gateway is bound to.
	Addr() string
}

type gateway struct {
	icons    icon.Service
	addr     string
	listener net.Listener
	server   *http.Server
}

func New() Gateway {
	return new(gateway)
}

func (g *gateway) Init(a *app.App) error {
	g.icons = a.MustComponent(icon.CName).(icon.Service)
	g.addr = a.MustComponent(config.CName).(*config.Config).GatewayAddr
	if g.addr == "" {
		g.addr = defaultGatewayAddr
	}
	return nil
}

func (g *gateway) Name() string {
	return CName
}

func (g *gateway) Run(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()
	router.Use(gincors.AllowAll())

	router.GET("/health", func(c *gin.Context) {
		c.Writer.WriteHeader(http.StatusNoContent)
	})
	router.GET("/image/:id", g.imageHandler)

	ln, err := net.Listen("tcp", g.addr)
	if err != nil {
		return fmt.Errorf("gateway cannot listen on %s: %w", g.addr, err)
	}
	g.listener = ln
	g.server = &http.Server{Handler: router}

	errc := make(chan error)
	go func() {
		errc <- g.server.Serve(ln)
		close(errc)
	}()
	go func() {
		for err := range errc {
			if err != nil && err != http.ErrServerClosed {
				log.Errorf("gateway error: %s", err)
			}
		}
		log.Info("gateway was shutdown")
	}()

	log.Infof("gateway listening at %s", ln.Addr())
	return nil
}

func (g *gateway) Close(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := g.server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("error shutting down gateway: %s", err)
		return err
	}
	return nil
}

func (g *gateway) Addr() string {
	if g.listener != nil {
		return g.listener.Addr().String()
	}
	return g.addr
}

// imageHandler renders the icon and ships it as png. Every pipeline
// failure collapses to a plain 404, the client treats them all the same.
func (g *gateway) imageHandler(c *gin.Context) {
	id := c.Param("id")

	img, err := g.icons.RequestImage(c.Request.Context(), id, requestedSize(c))
	if err != nil {
		c.String(http.StatusNotFound, "image not found")
		return
	}

	var buf bytes.Buffer
	if err = png.Encode(&buf, img); err != nil {
		log.Errorf("failed to encode image '%s': %s", id, err)
		c.String(http.StatusNotFound, "image not found")
		return
	}

	name := strings.TrimSuffix(id, path.Ext(id)) + ".png"
	c.Render(http.StatusOK, render.Reader{
		Reader:        &buf,
		ContentType:   "image/png",
		ContentLength: int64(buf.Len()),
		Headers: map[string]string{
			"Content-Disposition": fmt.Sprintf("inline; filename=%q", name),
		},
	})
}

// requestedSize collects the size hints of the request. They ride along
// to the icon service, which renders at intrinsic size regardless.
func requestedSize(c *gin.Context) image.Point {
	w, _ := strconv.Atoi(c.Query("width"))
	h, _ := strconv.Atoi(c.Query("height"))
	return image.Point{X: w, Y: h}
}
