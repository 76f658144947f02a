// boardctl is the command-line client for a boardlabd daemon.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

// clientConfig is the TOML config file shape.
type clientConfig struct {
	Server string `toml:"server"`
	Token  string `toml:"token"`
}

var (
	flagServer string
	flagToken  string
	flagConfig string
)

var rootCmd = &cobra.Command{
	Use:   "boardctl",
	Short: "Control a boardlab daemon",
	Long: `boardctl talks to a boardlabd daemon: list targets, run shell
commands on them, switch their power, execute scripts, and fetch console
captures.

The server address and auth token come from flags, or from a TOML config
file (default ~/.config/boardctl/config.toml):

  server = "http://lab-host:8088"
  token  = "..."`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", "", "Daemon base URL (overrides config file)")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "Bearer token (overrides config file)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path")
}

// loadConfig merges the TOML file and flag overrides.
func loadConfig() (clientConfig, error) {
	cfg := clientConfig{Server: "http://localhost:8088"}

	path := flagConfig
	if path == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, ".config", "boardctl", "config.toml")
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
		case flagConfig != "" || !os.IsNotExist(err):
			// A missing default config is fine; an explicit one is not.
			return cfg, err
		}
	}

	if flagServer != "" {
		cfg.Server = flagServer
	}
	if flagToken != "" {
		cfg.Token = flagToken
	}
	return cfg, nil
}

// apiClient builds the resty client from config.
func apiClient() (*resty.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	client := resty.New().SetBaseURL(cfg.Server)
	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}
	return client, nil
}

// apiError turns a non-2xx response into an error using the daemon's
// error JSON when present.
func apiError(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := sonic.Unmarshal(resp.Body(), &body); err == nil && body.Error != "" {
		return fmt.Errorf("%s: %s", resp.Status(), body.Error)
	}
	return fmt.Errorf("%s", resp.Status())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
