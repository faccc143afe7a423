// AutoInput - mouse and keyboard automation
// Replays clicks, key presses, holds and drags on a schedule, driven by global
// hotkeys, a tray menu or a local HTTP/WebSocket API.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"autoinput/internal/config"
)

var version = "0.1.0"

var (
	configPath string
	apiAddr    string
	apiToken   string
)

func main() {
	// Load .env file if present (silently ignore if not found)
	_ = godotenv.Load()

	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "autoinput",
		Short: "Automate mouse clicks, key presses, holds and drags",
		Long: `autoinput runs named setups that click, tap a key, or hold a button or key
(optionally dragging the cursor) until stopped, toggled, or a count is reached.

Without a subcommand it runs the service: global hotkeys, tray menu and the
local API. The other subcommands talk to a running service.

Example:
  autoinput run --dry-run
  autoinput toggle Default
  autoinput drag -- 1 -0.5`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("AUTOINPUT_CONFIG"), "Config file (.json, .yaml or .yml); default is the per-user config")
	rootCmd.PersistentFlags().StringVar(&apiAddr, "addr", os.Getenv("AUTOINPUT_API_ADDR"), "API address (host:port); default 127.0.0.1:<api_port>")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", os.Getenv("AUTOINPUT_API_TOKEN"), "API bearer token; default from config")

	run := newRunCmd()
	rootCmd.RunE = run.RunE
	rootCmd.Flags().AddFlagSet(run.Flags())

	rootCmd.AddCommand(
		run,
		newStartCmd(),
		newStopCmd(),
		newToggleCmd(),
		newStatusCmd(),
		newDragCmd(),
		newSetupsCmd(),
		newWatchCmd(),
		newAutostartCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// loadConfig opens the config named by --config / AUTOINPUT_CONFIG, or the per-user one
func loadConfig() (*config.Manager, error) {
	var cfgMgr *config.Manager
	if configPath != "" {
		cfgMgr = config.NewManagerAt(configPath)
	} else {
		var err error
		cfgMgr, err = config.NewManager()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize config: %w", err)
		}
	}
	if err := cfgMgr.Load(); err != nil {
		return nil, err
	}
	return cfgMgr, nil
}

// resolveAPI fills in the API address and token, flags and env first, then config
func resolveAPI(cfg *config.Config) (addr, token string) {
	addr, token = apiAddr, apiToken
	if addr == "" {
		addr = "127.0.0.1:" + strconv.Itoa(cfg.General.APIPort)
	}
	if token == "" {
		token = cfg.General.APIToken
	}
	return addr, token
}
