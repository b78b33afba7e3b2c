package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/beamchat/beam-heart/app"
	"github.com/beamchat/beam-heart/core"
	"github.com/beamchat/beam-heart/gateway"
	"github.com/beamchat/beam-heart/pkg/lib/logging"
)

var (
	repoPath    string
	gatewayAddr string
	themeFile   string
	assetsDir   string
)

var rootCmd = &cobra.Command{
	Use:   "beam-heart",
	Short: "Beam icon middleware",
	Long:  `Serves the recolored and rasterized icon set of the Beam desktop client over a local HTTP gateway.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s %s\n", app.AppName(), app.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.PersistentFlags().StringVarP(&repoPath, "repo", "r", defaultRepoPath(), "path to the dir with config.json")
	rootCmd.PersistentFlags().StringVar(&gatewayAddr, "gateway-addr", "", "gateway listen address, host:port")
	rootCmd.PersistentFlags().StringVar(&themeFile, "theme", "", "path to a palette overlay file")
	rootCmd.PersistentFlags().StringVar(&assetsDir, "assets", "", "path to a dir with icon overrides")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer() error {
	logging.SetVersion(app.Version())
	// reapply log levels now that every subsystem logger is registered
	logging.ApplyLevelsFromEnv()

	if err := os.MkdirAll(repoPath, 0755); err != nil {
		return fmt.Errorf("failed to create the repo dir: %w", err)
	}

	ctx := context.Background()
	a, err := core.StartNewApp(ctx, core.BootstrapConfig(repoPath, gatewayAddr, themeFile, assetsDir))
	if err != nil {
		return fmt.Errorf("failed to start the middleware: %w", err)
	}

	gw := a.MustComponent(gateway.CName).(gateway.Gateway)
	fmt.Printf("%s %s serving icons at http://%s\n", a.Name(), a.Version(), gw.Addr())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("Shutting down...")
	return a.Close(ctx)
}

func defaultRepoPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".beam"
	}
	return filepath.Join(dir, "beam")
}
