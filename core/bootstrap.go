package core

import (
	"context"

	"github.com/beamchat/beam-heart/app"
	"github.com/beamchat/beam-heart/core/assets"
	"github.com/beamchat/beam-heart/core/config"
	"github.com/beamchat/beam-heart/core/icon"
	"github.com/beamchat/beam-heart/core/theme"
	"github.com/beamchat/beam-heart/gateway"
)

// BootstrapConfig builds the config component from command line values.
// Empty values are gaps the repo file and BEAM_* environment overrides
// are free to fill.
func BootstrapConfig(repoPath, gatewayAddr, themeFile, assetsDir string) *config.Config {
	return config.New(
		config.WithRepoPath(repoPath),
		config.WithGatewayAddr(gatewayAddr),
		config.WithThemeFile(themeFile),
		config.WithAssetsDir(assetsDir),
	)
}

// StartNewApp registers the given components plus the full middleware set
// and starts them. On failure the partially started app is already closed.
func StartNewApp(ctx context.Context, components ...app.Component) (a *app.App, err error) {
	a = new(app.App)
	Bootstrap(a, components...)
	if err = a.Start(ctx); err != nil {
		a = nil
		return
	}
	return
}

// Bootstrap registers the middleware components in dependency order.
func Bootstrap(a *app.App, components ...app.Component) {
	for _, c := range components {
		a.Register(c)
	}
	a.Register(theme.New()).
		Register(assets.New()).
		Register(icon.New()).
		Register(gateway.New())
}
