package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"autoinput/internal/api"
	"autoinput/internal/config"
	"autoinput/internal/control"
	"autoinput/internal/engine"
	"autoinput/internal/hotkey"
	"autoinput/internal/input"
	"autoinput/internal/osutils"
	"autoinput/internal/tray"
)

var (
	dryRun bool
	noTray bool
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the automation service (hotkeys, tray, local API)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgMgr, err := loadConfig()
			if err != nil {
				return err
			}
			return runService(cfgMgr)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log input events instead of injecting them")
	cmd.Flags().BoolVar(&noTray, "no-tray", false, "Do not show the tray menu")
	return cmd
}

// service wires the engine to its triggers: hotkeys, tray and API
type service struct {
	cfgMgr  *config.Manager
	surface *control.Surface
	hkMgr   *hotkey.Manager
	tray    *tray.Tray

	trayMu    sync.Mutex
	trayItems map[string]int // setup name -> tray item id
}

func newService(cfgMgr *config.Manager, inj input.InputInjector) *service {
	hkMgr := hotkey.NewManager()
	eng := engine.New(hkMgr.FilterOwnInput(inj))
	return &service{
		cfgMgr:    cfgMgr,
		surface:   control.New(eng, cfgMgr),
		hkMgr:     hkMgr,
		trayItems: make(map[string]int),
	}
}

func runService(cfgMgr *config.Manager) error {
	log.Printf("AutoInput %s starting (config: %s)...", version, cfgMgr.Path())

	var inj input.InputInjector = input.NewInjector()
	if dryRun {
		log.Println("Service: Dry run, input events are only logged")
		inj = input.NewLogInjector()
	} else if notice := osutils.InjectionNotice(); notice != "" {
		log.Printf("Note: %s", notice)
	}

	s := newService(cfgMgr, inj)
	s.surface.Subscribe(func(ev engine.Event) {
		if ev.Err != nil {
			log.Printf("Service: %s stopped: %v", ev.SetupID, ev.Err)
		}
		s.syncTray()
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Start API server if enabled
	cfg := cfgMgr.Get()
	var apiServer *api.Server
	if cfg.General.APIEnabled {
		addr, token := resolveAPI(cfg)
		apiServer = api.NewServer(s.surface, token)
		go func() {
			if err := apiServer.Start(addr); err != nil {
				log.Printf("API server error: %v", err)
			}
		}()
	}

	if err := s.hkMgr.Start(); err != nil {
		log.Printf("Warning: Hotkey Engine failed to start: %v", err)
	}

	s.refreshShortcuts()
	cfgMgr.RegisterChangeCallback(s.refreshShortcuts)

	go func() {
		if err := cfgMgr.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Config: Watch stopped: %v", err)
		}
	}()

	defer s.shutdown(apiServer)

	if noTray || !cfg.General.ShowTray {
		log.Println("AutoInput running. Press Ctrl+C to stop.")
		<-ctx.Done()
		log.Println("Shutting down...")
		return nil
	}

	s.tray = tray.New("AutoInput")
	s.buildTrayMenu(cfg)
	go s.trackTray(ctx)
	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		s.tray.Stop()
	}()

	log.Println("AutoInput running. Press Ctrl+C to stop.")
	s.tray.Run()
	return nil
}

// shutdown releases held input before the process exits
func (s *service) shutdown(apiServer *api.Server) {
	s.hkMgr.Stop()
	if err := s.surface.Shutdown(); err != nil {
		log.Printf("Service: release on shutdown failed: %v", err)
	}
	if apiServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := apiServer.Shutdown(ctx); err != nil {
			log.Printf("API: shutdown: %v", err)
		}
	}
}

// refreshShortcuts re-registers every hotkey from the current config
func (s *service) refreshShortcuts() {
	cfg := s.cfgMgr.Get()
	s.hkMgr.Clear()

	register := func(combo, what string, fn func() error) {
		if combo == "" {
			return
		}
		trigger := s.surface.HotkeyTrigger(what, fn)
		if _, err := s.hkMgr.Register(combo, trigger); err != nil {
			log.Printf("Warning: failed to register hotkey %q for %s: %v", combo, what, err)
			return
		}
		// Cross-platform mapping: on macOS, also register CMD variant if CTRL is present
		if runtime.GOOS == "darwin" && strings.Contains(strings.ToUpper(combo), "CTRL") {
			cmdVariant := strings.ReplaceAll(strings.ToUpper(combo), "CTRL", "CMD")
			_, _ = s.hkMgr.Register(cmdVariant, trigger)
		}
	}

	register(cfg.Hotkeys.Start, "start", func() error {
		return s.surface.StartSetup(s.surface.ActiveSetup())
	})
	register(cfg.Hotkeys.Stop, "stop", s.surface.StopAction)
	register(cfg.Hotkeys.Toggle, "toggle", func() error {
		_, err := s.surface.ToggleSetup(s.surface.ActiveSetup())
		return err
	})

	for _, setup := range cfg.Setups {
		name := setup.Name
		register(setup.Hotkey, name, func() error {
			_, err := s.surface.ToggleSetup(name)
			return err
		})
	}
	log.Printf("Shortcuts: Refreshed %d hotkeys for %d setups", s.hkMgr.Count(), len(cfg.Setups))
}

// buildTrayMenu adds one toggle item per setup (menu reflects the setups at startup)
func (s *service) buildTrayMenu(cfg *config.Config) {
	for _, setup := range cfg.Setups {
		name := setup.Name // Capture for closure
		title := name
		if setup.Hotkey != "" {
			title = fmt.Sprintf("%s (%s)", name, setup.Hotkey)
		}
		id := s.tray.AddMenuItem(title, func() {
			if _, err := s.surface.ToggleSetup(name); err != nil {
				log.Printf("Tray: toggle %s: %v", name, err)
			}
			s.syncTray()
		})
		s.trayMu.Lock()
		s.trayItems[name] = id
		s.trayMu.Unlock()
	}

	s.tray.AddSeparator()

	s.tray.AddMenuItem("Stop", func() {
		if err := s.surface.StopAction(); err != nil {
			log.Printf("Tray: stop: %v", err)
		}
		s.syncTray()
	})

	s.tray.AddSeparator()

	s.tray.AddMenuItem("Quit", func() {
		s.tray.Stop()
	})
}

// syncTray checks the item of the running setup and updates the tooltip
func (s *service) syncTray() {
	if s.tray == nil {
		return
	}
	st := s.surface.Status()

	s.trayMu.Lock()
	for name, id := range s.trayItems {
		s.tray.SetItemChecked(id, st.Running && name == st.SetupID)
	}
	s.trayMu.Unlock()

	if st.Running {
		s.tray.SetTooltip(fmt.Sprintf("AutoInput - running %s", st.SetupID))
	} else {
		s.tray.SetTooltip("AutoInput - idle")
	}
}

// trackTray follows starts and stops made through hotkeys or the API
func (s *service) trackTray(ctx context.Context) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	var last engine.Status
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := s.surface.Status()
			if st.Running != last.Running || st.SetupID != last.SetupID {
				s.syncTray()
			}
			last = st
		}
	}
}
