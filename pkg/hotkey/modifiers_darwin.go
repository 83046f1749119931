//go:build darwin

package hotkey

import (
	"golang.design/x/hotkey"

	"github.com/NicolasHaas/mutetool/pkg/config"
)

var modifierMap = map[config.Modifier]hotkey.Modifier{
	config.ModCtrl:  hotkey.ModCtrl,
	config.ModShift: hotkey.ModShift,
	config.ModAlt:   hotkey.ModOption,
	config.ModSuper: hotkey.ModCmd,
}

// kVK_ANSI_Grave
const keyGrave hotkey.Key = 0x32
