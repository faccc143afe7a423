package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"autoinput/internal/autostart"
	"autoinput/internal/client"
	"autoinput/internal/config"
	"autoinput/internal/protocol"
)

// apiClient builds a client for the running service
func apiClient() (*client.Client, error) {
	cfgMgr, err := loadConfig()
	if err != nil {
		return nil, err
	}
	addr, token := resolveAPI(cfgMgr.Get())
	return client.New(addr, token), nil
}

func newStartCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "start [setup]",
		Short: "Start a configured setup, or an ad-hoc one from --file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := apiClient()
			if err != nil {
				return err
			}
			if file != "" {
				setup, err := readSetupFile(file)
				if err != nil {
					return err
				}
				if err := c.StartSetup(setup); err != nil {
					return err
				}
				fmt.Printf("Started %s\n", setup.Name)
				return nil
			}
			if len(args) == 0 {
				return fmt.Errorf("setup name or --file required")
			}
			if err := c.Start(args[0]); err != nil {
				return err
			}
			fmt.Printf("Started %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Setup file (.json, .yaml or .yml)")
	return cmd
}

// readSetupFile parses a single setup; missing fields take the setup defaults
func readSetupFile(path string) (config.Setup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return config.Setup{}, err
	}
	var setup config.Setup
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &setup)
	default:
		err = json.Unmarshal(data, &setup)
	}
	if err != nil {
		return config.Setup{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if setup.Name == "" {
		setup.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return setup, nil
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running action",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := apiClient()
			if err != nil {
				return err
			}
			return c.Stop()
		},
	}
}

func newToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <setup>",
		Short: "Stop the setup if it is running, otherwise start it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := apiClient()
			if err != nil {
				return err
			}
			running, err := c.Toggle(args[0])
			if err != nil {
				return err
			}
			if running {
				fmt.Printf("Started %s\n", args[0])
			} else {
				fmt.Printf("Stopped %s\n", args[0])
			}
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show what the engine is doing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := apiClient()
			if err != nil {
				return err
			}
			st, err := c.Status()
			if err != nil {
				return err
			}
			printStatus(st)
			return nil
		},
	}
}

func printStatus(st protocol.StatusPayload) {
	if st.Running {
		fmt.Printf("Running: %s (%s)\n", st.Setup, st.Mode)
		fmt.Printf("  Ticks: %d\n", st.Ticks)
		if st.FailedTicks > 0 {
			fmt.Printf("  Failed ticks: %d\n", st.FailedTicks)
		}
	} else {
		fmt.Println("Idle")
	}
	if st.LastError != "" {
		fmt.Printf("  Last error: %s\n", st.LastError)
	}
}

func newDragCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "drag <dx> <dy>",
		Short:   "Steer a running mouse-hold drag; components are clamped to [-1, 1]",
		Example: "  autoinput drag -- -1 0",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dx, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid dx %q: %w", args[0], err)
			}
			dy, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid dy %q: %w", args[1], err)
			}
			c, err := apiClient()
			if err != nil {
				return err
			}
			return c.Drag(dx, dy)
		},
	}
}

func newSetupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setups",
		Short: "List configured setups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := apiClient()
			if err != nil {
				return err
			}
			resp, err := c.Setups()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "\tNAME\tMODE\tINTERVAL\tREPEAT\tHOTKEY")
			for _, s := range resp.Setups {
				marker := ""
				if strings.EqualFold(s.Name, resp.Active) {
					marker = "*"
				}
				mode, interval, repeat := describeSetup(s)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", marker, s.Name, mode, interval, repeat, s.Hotkey)
			}
			return w.Flush()
		},
	}
}

func describeSetup(s config.Setup) (mode, interval, repeat string) {
	d, err := s.Descriptor()
	if err != nil {
		return "invalid", "-", err.Error()
	}
	if d.Mode.Continuous() {
		return d.Mode.String(), "-", "until stopped"
	}
	return d.Mode.String(), d.Interval.Duration().String(), d.Repeat.String()
}

func newWatchCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print action-stopped events as they happen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgMgr, err := loadConfig()
			if err != nil {
				return err
			}
			addr, token := resolveAPI(cfgMgr.Get())

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			events := make(chan protocol.ActionStoppedPayload, 16)
			ws := client.NewWSClient(addr, token)
			ws.OnConnect = func() {
				fmt.Fprintf(os.Stderr, "Watching %s\n", addr)
			}
			ws.OnActionStopped = func(p protocol.ActionStoppedPayload) {
				events <- p
			}
			ws.Start()
			defer ws.Close()

			seen := 0
			for {
				select {
				case <-ctx.Done():
					return nil
				case p := <-events:
					if p.Error != "" {
						fmt.Printf("%s %s after %d ticks: %s\n", p.Setup, p.Reason, p.Ticks, p.Error)
					} else {
						fmt.Printf("%s %s after %d ticks\n", p.Setup, p.Reason, p.Ticks)
					}
					seen++
					if count > 0 && seen >= count {
						return nil
					}
				}
			}
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Exit after n events (0 = until interrupted)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("autoinput version %s\n", version)
		},
	}
}

func newAutostartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autostart",
		Short: "Manage starting the service at login",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "enable",
			Short: "Start the service at login with the current --config",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				runArgs := []string{"run"}
				if configPath != "" {
					abs, err := filepath.Abs(configPath)
					if err != nil {
						return err
					}
					runArgs = append(runArgs, "--config", abs)
				}
				if err := autostart.Enable(runArgs...); err != nil {
					return err
				}
				fmt.Println("Autostart enabled")
				return nil
			},
		},
		&cobra.Command{
			Use:   "disable",
			Short: "Stop starting the service at login",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := autostart.Disable(); err != nil {
					return err
				}
				fmt.Println("Autostart disabled")
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show whether the service starts at login",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				if autostart.IsEnabled() {
					fmt.Println("Autostart enabled")
				} else {
					fmt.Println("Autostart disabled")
				}
			},
		},
	)
	return cmd
}
