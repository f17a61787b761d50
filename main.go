package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/pleimann/gopad/internal/config"
	"github.com/pleimann/gopad/internal/gesture"
	"github.com/pleimann/gopad/internal/hid"
	"github.com/pleimann/gopad/internal/mapping"
	"github.com/pleimann/gopad/internal/sink"
	"github.com/pleimann/gopad/internal/stick"
	"github.com/pleimann/gopad/internal/ui"
)

const Version = "0.1.0"

func main() {
	// Check for subcommands first
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "list-devices":
			runListDevices()
			return
		case "set-device", "select-device":
			runSetDevice(os.Args[2:])
			return
		case "help", "-h", "--help":
			printUsage()
			os.Exit(0)
		}
	}

	// Main command flags
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	app := flag.String("app", "", "frontmost application hint for profile selection")
	verbose := flag.Bool("verbose", false, "enable verbose logging")
	version := flag.Bool("version", false, "print version and exit")

	flag.Usage = printUsage
	flag.Parse()

	if *version {
		ui.PrintVersion(Version)
		os.Exit(0)
	}

	watcher, err := config.NewWatcher(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg := watcher.Get()

	if *verbose {
		log.Printf("Loaded configuration from %s", *configPath)
		log.Printf("Device: VendorID=0x%04X, ProductID=0x%04X",
			cfg.Device.VendorID, cfg.Device.ProductID)
		log.Printf("Output command: %s %v", cfg.Output.Command, cfg.Output.Args)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	a, err := newApp(cfg, watcher, *app, *verbose)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	go func() {
		<-sigChan
		if *verbose {
			log.Println("Received shutdown signal")
		}
		cancel()
	}()

	if err := a.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("Application error: %v", err)
	}

	if *verbose {
		log.Println("Shutdown complete")
	}
}

func printUsage() {
	ui.PrintUsage(Version)
}

// runListDevices handles the list-devices subcommand
func runListDevices() {
	devices, err := hid.ListDevices()
	if err != nil {
		ui.PrintFatalError("Failed to list devices", err.Error())
		os.Exit(1)
	}
	uiDevices := make([]ui.DeviceInfo, len(devices))
	for i, d := range devices {
		uiDevices[i] = ui.DeviceInfo{
			VendorID:     d.VendorID,
			ProductID:    d.ProductID,
			Manufacturer: d.Manufacturer,
			Product:      d.Product,
			Gamepad:      d.IsGamepad(),
		}
	}
	ui.PrintDeviceList(uiDevices)
}

// runSetDevice handles the set-device subcommand
func runSetDevice(args []string) {
	fs := flag.NewFlagSet("set-device", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to configuration file")
	fs.Usage = func() {
		ui.PrintSetDeviceUsage()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	remaining := fs.Args()

	var vendorID, productID uint16

	if len(remaining) >= 2 {
		// Parse provided IDs
		vid, err := parseID(remaining[0])
		if err != nil {
			ui.PrintFatalError("Invalid vendor_id", fmt.Sprintf("%q: %v", remaining[0], err))
			os.Exit(1)
		}
		pid, err := parseID(remaining[1])
		if err != nil {
			ui.PrintFatalError("Invalid product_id", fmt.Sprintf("%q: %v", remaining[1], err))
			os.Exit(1)
		}
		vendorID = vid
		productID = pid
	} else if len(remaining) == 1 {
		ui.PrintFatalError("Invalid arguments", "Both vendor_id and product_id must be provided, or neither")
		os.Exit(1)
	} else {
		// Interactive selection
		device, err := selectDevice()
		if err != nil {
			ui.PrintFatalError("Device selection failed", err.Error())
			os.Exit(1)
		}
		if device == nil {
			fmt.Println(ui.Muted("No device selected"))
			os.Exit(0)
		}
		vendorID = device.VendorID
		productID = device.ProductID
	}

	// Update or create config file
	if config.Exists(*configPath) {
		if err := config.UpdateDeviceIDs(*configPath, vendorID, productID); err != nil {
			ui.PrintFatalError("Failed to update config", err.Error())
			os.Exit(1)
		}
		ui.PrintDeviceUpdated(*configPath, vendorID, productID)
	} else {
		if err := config.CreateDefaultConfig(*configPath, vendorID, productID); err != nil {
			ui.PrintFatalError("Failed to create config", err.Error())
			os.Exit(1)
		}
		ui.PrintDeviceCreated(*configPath, vendorID, productID)
	}
}

// parseID parses a vendor or product ID from string (supports hex with 0x prefix or decimal)
func parseID(s string) (uint16, error) {
	s = strings.TrimSpace(s)

	var val uint64
	var err error

	if strings.HasPrefix(strings.ToLower(s), "0x") {
		val, err = strconv.ParseUint(s[2:], 16, 16)
	} else {
		val, err = strconv.ParseUint(s, 10, 16)
	}

	if err != nil {
		return 0, err
	}

	return uint16(val), nil
}

// selectDevice displays an interactive device selection menu using huh
func selectDevice() (*ui.DeviceInfo, error) {
	devices, err := hid.ListDevices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	if len(devices) == 0 {
		return nil, fmt.Errorf("no HID devices found")
	}

	// Deduplicate devices by vendor/product ID
	seen := make(map[uint32]bool)
	var unique []ui.DeviceInfo

	for _, d := range devices {
		key := uint32(d.VendorID)<<16 | uint32(d.ProductID)
		if seen[key] {
			continue
		}
		seen[key] = true

		// Skip devices with no vendor/product ID
		if d.VendorID == 0 && d.ProductID == 0 {
			continue
		}

		unique = append(unique, ui.DeviceInfo{
			VendorID:     d.VendorID,
			ProductID:    d.ProductID,
			Manufacturer: d.Manufacturer,
			Product:      d.Product,
			Gamepad:      d.IsGamepad(),
		})
	}

	if len(unique) == 0 {
		return nil, fmt.Errorf("no identifiable HID devices found")
	}

	return ui.SelectDevice(unique)
}

type App struct {
	config  *config.Config
	watcher *config.Watcher
	verbose bool

	hidDevice *hid.Device
	tracker   *hid.Tracker
	engine    *gesture.Engine
	output    *sink.PTY
	sticks    *stick.Poller
}

func newApp(cfg *config.Config, watcher *config.Watcher, app string, verbose bool) (*App, error) {
	a := &App{
		config:  cfg,
		watcher: watcher,
		verbose: verbose,
	}

	// Open the controller
	hidDevice, err := hid.NewDevice(cfg.Device.VendorID, cfg.Device.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to open HID device: %w", err)
	}
	a.hidDevice = hidDevice

	// Output PTY hosting the target application
	output, err := sink.NewPTY(cfg.Output.Command, cfg.Output.Args, cfg.Output.WorkingDir,
		cfg.Output.CursorSensitivity, cfg.Output.ScrollSensitivity)
	if err != nil {
		hidDevice.Close()
		return nil, fmt.Errorf("failed to create output: %w", err)
	}
	a.output = output

	// Classification engine
	profiles, conflicts, err := mapping.Compile(cfg)
	if err != nil {
		hidDevice.Close()
		return nil, fmt.Errorf("invalid mapping: %w", err)
	}
	for _, c := range conflicts {
		log.Printf("Mapping conflict: %s", c)
	}

	a.engine = gesture.New(output, cfg.Filter, cfg.Momentum)
	a.engine.SetVerbose(verbose)

	// Edge tracker feeding the engine
	a.tracker = hid.NewTracker(hid.Events{
		Pressed: func(b int, at time.Time) {
			a.engine.OnButtonPressed(mapping.Button(b), at)
		},
		Released: func(b int, at time.Time, held time.Duration) {
			a.engine.OnButtonReleased(mapping.Button(b), at, held)
		},
		TouchDown:  a.engine.OnTouchDown,
		TouchMoved: a.engine.OnTouchMoved,
		TouchUp:    a.engine.OnTouchUp,
	})

	// Stick poller
	a.sticks = stick.New(a.tracker.Axes, output, a.engine.GestureActive, stick.FilterParams{
		MinCutoff: cfg.Filter.MinCutoff,
		Beta:      cfg.Filter.Beta,
		DCutoff:   cfg.Filter.DCutoff,
	})

	a.applyProfiles(profiles, app)

	// Hot reload: recompile and swap profiles without restarting
	watcher.OnReload(func(next *config.Config) {
		profiles, conflicts, err := mapping.Compile(next)
		if err != nil {
			log.Printf("Ignoring config reload: %v", err)
			return
		}
		for _, c := range conflicts {
			log.Printf("Mapping conflict: %s", c)
		}
		a.applyProfiles(profiles, app)
	})

	return a, nil
}

func (a *App) applyProfiles(profiles []*mapping.Profile, app string) {
	a.engine.SetProfiles(profiles)
	a.engine.SetFrontmostApp(app)
	if p := mapping.Select(profiles, app); p != nil {
		a.sticks.SetModes(p.LeftStick, p.RightStick)
	}
}

func (a *App) Run(ctx context.Context) error {
	if err := a.output.Start(ctx); err != nil {
		return fmt.Errorf("failed to start output: %w", err)
	}

	a.engine.Start(ctx)
	a.sticks.Start(ctx)
	a.watcher.Start()

	// Read frames until shutdown, reconnecting on device loss.
	for {
		err := a.hidDevice.ReadFrames(ctx, a.tracker)
		if ctx.Err() != nil {
			a.shutdown()
			return nil
		}

		log.Printf("Controller disconnected: %v", err)
		a.tracker.Reset(time.Now())
		a.engine.OnDisconnect()

		if err := a.hidDevice.WaitForDevice(ctx, time.Second); err != nil {
			a.shutdown()
			return nil
		}
		log.Println("Controller reconnected")
	}
}

func (a *App) shutdown() {
	if a.verbose {
		log.Println("Shutting down...")
	}
	a.watcher.Stop()
	a.sticks.Stop()
	a.engine.Stop()
	a.output.Stop()
	a.hidDevice.Close()
}
