// Package ui provides the Fyne system-tray menu for MuteTool.
package ui

import (
	"fmt"
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	mtapp "github.com/NicolasHaas/mutetool/pkg/app"
	"github.com/NicolasHaas/mutetool/pkg/config"
	"github.com/NicolasHaas/mutetool/pkg/version"
)

// Options wires the tray to the rest of the program.
type Options struct {
	State        *mtapp.State
	Settings     *config.Settings
	SettingsPath string

	OnStarted         func()                   // runs once the event loop is up
	OnStopped         func()                   // runs after the event loop exits
	OnSoundsChanged   func(on bool)            // may be nil
	OnShortcutChanged func(sc config.Shortcut) // may be nil
}

// App is the tray application.
type App struct {
	opts    Options
	fyneApp fyne.App
	desk    desktop.App

	menu     *fyne.Menu
	status   *fyne.MenuItem
	toggle   *fyne.MenuItem
	settings fyne.Window
}

// NewApp creates the tray application. It fails when the platform has no
// system tray.
func NewApp(opts Options) (*App, error) {
	a := &App{
		opts:    opts,
		fyneApp: app.NewWithID("io.mutetool.app"),
	}
	desk, ok := a.fyneApp.(desktop.App)
	if !ok {
		return nil, fmt.Errorf("ui: no system tray on this platform")
	}
	a.desk = desk
	a.buildMenu()
	return a, nil
}

// Run shows the tray and blocks until Quit.
func (a *App) Run() {
	a.opts.State.OnChange(func(muted bool) {
		fyne.Do(func() { a.render(muted) })
	})

	lc := a.fyneApp.Lifecycle()
	lc.SetOnStarted(func() {
		slog.Debug("tray started")
		if a.opts.OnStarted != nil {
			a.opts.OnStarted()
		}
	})
	lc.SetOnStopped(func() {
		if a.opts.OnStopped != nil {
			a.opts.OnStopped()
		}
	})

	a.render(a.opts.State.Muted())
	a.fyneApp.Run()
}

// Quit stops the event loop. Safe from any goroutine.
func (a *App) Quit() {
	fyne.Do(a.fyneApp.Quit)
}

func (a *App) buildMenu() {
	a.status = fyne.NewMenuItem("", nil)
	a.status.Disabled = true

	a.toggle = fyne.NewMenuItem("Toggle Mute", func() {
		a.opts.State.ToggleMute()
	})
	a.toggle.Icon = theme.VolumeMuteIcon()

	settings := fyne.NewMenuItem("Settings…", a.showSettings)
	settings.Icon = theme.SettingsIcon()

	quit := fyne.NewMenuItem("Quit", func() {
		a.opts.State.Quit(a.Quit)
	})
	quit.IsQuit = true

	a.menu = fyne.NewMenu("MuteTool", a.status, a.toggle, settings, fyne.NewMenuItemSeparator(), quit)
	a.desk.SetSystemTrayMenu(a.menu)
}

// render must run on the Fyne goroutine.
func (a *App) render(muted bool) {
	word, icon := "unmuted", theme.VolumeUpIcon()
	if muted {
		word, icon = "muted", theme.VolumeMuteIcon()
	}
	a.status.Label = "MuteTool | Currently " + word
	a.toggle.Disabled = a.opts.State.Locked()
	a.menu.Refresh()
	a.desk.SetSystemTrayIcon(icon)
}

func (a *App) showSettings() {
	if a.settings != nil {
		a.settings.Show()
		a.settings.RequestFocus()
		return
	}

	s := a.opts.Settings
	w := a.fyneApp.NewWindow("MuteTool Settings")
	w.SetCloseIntercept(w.Hide)
	a.settings = w

	sounds := widget.NewCheck("Play sounds on mute changes", nil)
	sounds.SetChecked(s.Sounds)

	shortcut := widget.NewEntry()
	shortcut.SetText(s.Shortcut)
	shortcut.SetPlaceHolder(config.DefaultShortcut())
	shortcut.Validator = func(v string) error {
		_, err := config.ParseShortcut(v)
		return err
	}

	apply := widget.NewButtonWithIcon("Apply", theme.ConfirmIcon(), func() {
		sc, err := config.ParseShortcut(shortcut.Text)
		if err != nil {
			dialog.ShowError(err, w)
			return
		}

		changed := sc.String() != s.Shortcut
		s.Sounds = sounds.Checked
		s.Shortcut = sc.String()
		if err := s.Save(a.opts.SettingsPath); err != nil {
			slog.Error("save settings", "path", a.opts.SettingsPath, "err", err)
			dialog.ShowError(err, w)
			return
		}

		if a.opts.OnSoundsChanged != nil {
			a.opts.OnSoundsChanged(s.Sounds)
		}
		if changed && a.opts.OnShortcutChanged != nil {
			a.opts.OnShortcutChanged(sc)
		}
		w.Hide()
	})

	versionLabel := widget.NewLabel("MuteTool " + version.String())
	versionLabel.TextStyle = fyne.TextStyle{Italic: true}

	w.SetContent(container.NewVBox(
		widget.NewLabelWithStyle("Sounds", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		sounds,
		widget.NewSeparator(),
		widget.NewLabelWithStyle("Shortcut (global, works in background)", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		shortcut,
		widget.NewLabel("e.g. cmd+grave, ctrl+shift+m, alt+f9"),
		widget.NewSeparator(),
		container.NewHBox(versionLabel, apply),
	))
	w.Resize(fyne.NewSize(380, 260))
	w.Show()
}
