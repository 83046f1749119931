//go:build windows

package hotkey

import (
	"golang.design/x/hotkey"

	"github.com/NicolasHaas/mutetool/pkg/config"
)

var modifierMap = map[config.Modifier]hotkey.Modifier{
	config.ModCtrl:  hotkey.ModCtrl,
	config.ModShift: hotkey.ModShift,
	config.ModAlt:   hotkey.ModAlt,
	config.ModSuper: hotkey.ModWin,
}

// VK_OEM_3, the `~ key on US layouts.
const keyGrave hotkey.Key = 0xC0
