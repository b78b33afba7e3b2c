package config

import (
	"fmt"
	"net"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"

	"github.com/beamchat/beam-heart/app"
	"github.com/beamchat/beam-heart/pkg/lib/logging"
)

var log = logging.Logger("beam-config")

const (
	CName = "config"

	ConfigFileName = "config.json"
)

// ConfigRequired is the persistent part of the config. It is merged with the
// repo config file on Init and written back when a value got assigned.
type ConfigRequired struct {
	GatewayAddr string `json:",omitempty"`
	ThemeFile   string `json:",omitempty"`
	AssetsDir   string `json:",omitempty"`
}

type Config struct {
	ConfigRequired `json:",inline"`

	// IconColors overlays the theme palette, role name to color value
	IconColors map[string]string `json:",omitempty"`

	RepoPath          string `ignored:"true"`
	DisableFileConfig bool   `ignored:"true"` // set in order to skip reading/writing config from/to file
}

var DefaultConfig = Config{}

func WithGatewayAddr(addr string) func(*Config) {
	return func(c *Config) {
		c.GatewayAddr = addr
	}
}

func WithThemeFile(path string) func(*Config) {
	return func(c *Config) {
		c.ThemeFile = path
	}
}

func WithAssetsDir(dir string) func(*Config) {
	return func(c *Config) {
		c.AssetsDir = dir
	}
}

func WithIconColors(colors map[string]string) func(*Config) {
	return func(c *Config) {
		c.IconColors = colors
	}
}

func WithRepoPath(path string) func(*Config) {
	return func(c *Config) {
		c.RepoPath = path
	}
}

func DisableFileConfig(disable bool) func(*Config) {
	return func(c *Config) {
		c.DisableFileConfig = disable
	}
}

func New(options ...func(*Config)) *Config {
	cfg := DefaultConfig
	for _, opt := range options {
		opt(&cfg)
	}
	return &cfg
}

func (c *Config) Init(a *app.App) (err error) {
	return c.initFromFileAndEnv()
}

func (c *Config) initFromFileAndEnv() error {
	if !c.DisableFileConfig {
		if c.RepoPath == "" {
			return fmt.Errorf("repo path is missing")
		}

		var stored ConfigRequired
		if err := GetFileConfig(c.GetConfigPath(), &stored); err != nil {
			return fmt.Errorf("failed to get config from file: %w", err)
		}

		// values set in memory are not overwritten by the stored ones
		if stored.GatewayAddr == "" {
			stored.GatewayAddr = c.GatewayAddr
		}
		if stored.ThemeFile == "" {
			stored.ThemeFile = c.ThemeFile
		}
		if stored.AssetsDir == "" {
			stored.AssetsDir = c.AssetsDir
		}
		c.ConfigRequired = stored

		writeConfig := func() error {
			if err := WriteJsonConfig(c.GetConfigPath(), c.ConfigRequired); err != nil {
				return fmt.Errorf("failed to save required configuration to the cfg file: %w", err)
			}
			return nil
		}

		if c.GatewayAddr == "" || !addrAvailable(c.GatewayAddr) {
			// the stored port may be taken by another app or blocked by the OS,
			// pick a fresh one and remember it
			addr, err := randomGatewayAddr()
			if err != nil {
				return err
			}
			c.GatewayAddr = addr
			if err = writeConfig(); err != nil {
				return err
			}
		}
	}

	if err := envconfig.Process("BEAM", c); err != nil {
		log.Errorf("failed to read config from env: %v", err)
	}

	return nil
}

func (c *Config) Name() (name string) {
	return CName
}

func (c *Config) GetConfigPath() string {
	return filepath.Join(c.RepoPath, ConfigFileName)
}

func randomGatewayAddr() (string, error) {
	l, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("failed to pick a gateway port: %w", err)
	}
	defer l.Close()
	return l.Addr().String(), nil
}

func addrAvailable(addr string) bool {
	l, err := net.Listen("tcp4", addr)
	if err != nil {
		return false
	}
	_ = l.Close()
	return true
}
