package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.design/x/hotkey/mainthread"

	"github.com/NicolasHaas/mutetool/pkg/app"
	"github.com/NicolasHaas/mutetool/pkg/audio"
	"github.com/NicolasHaas/mutetool/pkg/config"
	"github.com/NicolasHaas/mutetool/pkg/coreaudio"
	"github.com/NicolasHaas/mutetool/pkg/device"
	"github.com/NicolasHaas/mutetool/pkg/journal"
	"github.com/NicolasHaas/mutetool/pkg/logging"
	"github.com/NicolasHaas/mutetool/pkg/metrics"
	"github.com/NicolasHaas/mutetool/pkg/version"
	"github.com/NicolasHaas/mutetool/ui"
)

const journalOff = "off"

type flags struct {
	settingsPath string
	logLevel     string
	logFormat    string
	metricsAddr  string
	journalPath  string
	headless     bool
	listDevices  bool
	history      int
	version      bool
}

func main() {
	var f flags
	flag.StringVar(&f.settingsPath, "settings", config.DefaultPath(), "YAML settings file")
	flag.StringVar(&f.logLevel, "log-level", "", "Log level: "+logging.LevelNames()+" (default from settings)")
	flag.StringVar(&f.logFormat, "log-format", "", "Log format: text or json (default from settings)")
	flag.StringVar(&f.metricsAddr, "metrics", "", "HTTP bind address for /metrics, /healthz and /state (default from settings, empty to disable)")
	flag.StringVar(&f.journalPath, "journal", "", "SQLite event journal path (default from settings, \""+journalOff+"\" to disable)")
	flag.BoolVar(&f.headless, "headless", false, "Run without the tray icon; toggle with the shortcut only")
	flag.BoolVar(&f.listDevices, "list-devices", false, "List audio devices and exit")
	flag.IntVar(&f.history, "history", 0, "Print the last N journal events and exit")
	flag.BoolVar(&f.version, "version", false, "Print version and exit")
	flag.Parse()

	if f.version {
		fmt.Println("mutetool", version.Full())
		return
	}

	settings := config.Load(f.settingsPath)
	applyFlags(settings, f)

	opts := logging.FromEnv(logging.Options{Level: settings.LogLevel, Format: settings.LogFormat})
	if f.logLevel != "" {
		opts.Level = f.logLevel
	}
	if f.logFormat != "" {
		opts.Format = f.logFormat
	}
	if err := logging.Setup(opts); err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging config: %v\n", err)
		os.Exit(1)
	}

	switch {
	case f.listDevices:
		os.Exit(listDevices())
	case f.history > 0:
		os.Exit(printHistory(settings.JournalPath, f.history))
	}

	os.Exit(run(settings, f))
}

// applyFlags lets command-line values win over the settings file.
func applyFlags(s *config.Settings, f flags) {
	if f.metricsAddr != "" {
		s.MetricsAddr = f.metricsAddr
	}
	switch f.journalPath {
	case "":
	case journalOff:
		s.JournalPath = ""
	default:
		s.JournalPath = f.journalPath
	}
}

func listDevices() int {
	in, err := audio.ListInputDevices()
	if err != nil {
		slog.Error("list input devices", "err", err)
		return 1
	}
	out, err := audio.ListOutputDevices()
	if err != nil {
		slog.Error("list output devices", "err", err)
		return 1
	}

	show := func(title string, devs []audio.DeviceEntry) {
		fmt.Println(title + ":")
		for _, d := range devs {
			mark := " "
			if d.IsDefault {
				mark = "*"
			}
			fmt.Printf(" %s %s (in=%d out=%d)\n", mark, d.Name, d.MaxInputs, d.MaxOutputs)
		}
	}
	show("Input devices", in)
	show("Output devices", out)
	return 0
}

func printHistory(path string, n int) int {
	if path == "" {
		fmt.Fprintln(os.Stderr, "journal disabled")
		return 1
	}
	st, err := journal.OpenSQLite(path)
	if err != nil {
		slog.Error("open journal", "path", path, "err", err)
		return 1
	}
	defer st.Close()

	events, err := st.Recent(context.Background(), n)
	if err != nil {
		slog.Error("read journal", "err", err)
		return 1
	}
	for i := len(events) - 1; i >= 0; i-- {
		fmt.Println(events[i].String())
	}
	return 0
}

func openRecorder(path string, m *metrics.Metrics) (*journal.Recorder, journal.Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, fmt.Errorf("create journal dir: %w", err)
	}
	st, err := journal.OpenSQLite(path)
	if err != nil {
		return nil, nil, err
	}
	return journal.NewRecorder(st, m, journal.DefaultBuffer, journal.DefaultKeep), st, nil
}

func run(settings *config.Settings, f flags) int {
	slog.Info("starting mutetool", "version", version.String(), "settings", f.settingsPath)

	m := metrics.New()

	var recorder device.Recorder
	if settings.JournalPath != "" {
		rec, st, err := openRecorder(settings.JournalPath, m)
		if err != nil {
			// The journal is diagnostics only; run without it.
			slog.Warn("journal disabled", "path", settings.JournalPath, "err", err)
		} else {
			recorder = rec
			defer func() {
				rec.Close()
				_ = st.Close()
			}()
		}
	}

	syn := device.New(coreaudio.NewGateway(coreaudio.System()), device.Dependencies{
		Metrics:  m,
		Recorder: recorder,
	})
	defer func() {
		if err := syn.Close(); err != nil {
			slog.Warn("close synchronizer", "err", err)
		}
	}()
	if syn.Device() == coreaudio.Unknown {
		slog.Warn("no default input device; toggling will fail until one appears")
	} else {
		slog.Info("input device", "device", syn.Device(), "name", audio.DefaultInputName(), "muted", syn.Muted())
	}

	cues := audio.NewCuePlayer(settings.Sounds)
	defer func() {
		cues.Stop()
		audio.Shutdown()
	}()

	state := app.NewState(syn, cues, syn.Muted(), settings.QuitDelay)
	syn.SetObserver(state)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsDone := make(chan struct{})
	defer close(metricsDone)
	m.StartPeriodicLog(10*time.Minute, metricsDone)
	if settings.MetricsAddr != "" {
		metrics.StartHTTP(ctx, settings.MetricsAddr, m, func() (bool, uint32) {
			return syn.Muted(), uint32(syn.Device())
		})
	}

	sc, err := config.ParseShortcut(settings.Shortcut)
	if err != nil {
		slog.Error("shortcut", "err", err)
		return 1
	}
	binding := newShortcutBinding(state.ToggleMute)
	defer binding.close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if !f.headless {
		tray, err := ui.NewApp(ui.Options{
			State:             state,
			Settings:          settings,
			SettingsPath:      f.settingsPath,
			OnStarted:         func() { binding.bind(sc) },
			OnSoundsChanged:   cues.SetEnabled,
			OnShortcutChanged: binding.bind,
		})
		if err == nil {
			stopped := make(chan struct{})
			go func() {
				select {
				case <-sigCh:
					slog.Info("signal received, quitting")
					state.Quit(tray.Quit)
				case <-stopped:
				}
			}()
			tray.Run()
			close(stopped)
			m.LogSummary()
			return 0
		}
		slog.Warn("tray unavailable, running headless", "err", err)
	}

	code := 0
	mainthread.Init(func() {
		code = runHeadless(state, binding, sc, sigCh)
	})
	m.LogSummary()
	return code
}

// runHeadless toggles on the shortcut until SIGINT or SIGTERM, then quits
// with the same unmute-first rule as the tray.
func runHeadless(state *app.State, binding *shortcutBinding, sc config.Shortcut, sigCh <-chan os.Signal) int {
	binding.bind(sc)
	slog.Info("running headless", "shortcut", sc.String())

	<-sigCh
	slog.Info("signal received, quitting")

	quit := make(chan struct{})
	state.Quit(func() { close(quit) })
	<-quit
	return 0
}
