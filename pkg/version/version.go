// Package version holds build-time version info injected via ldflags.
//
//	go build -ldflags "-X github.com/NicolasHaas/mutetool/pkg/version.tag=v1.0.0
//	  -X github.com/NicolasHaas/mutetool/pkg/version.commit=abc1234
//	  -X github.com/NicolasHaas/mutetool/pkg/version.date=2026-01-01"
//
// Builds without ldflags fall back to the VCS stamp Go embeds in the
// binary.
package version

import (
	"runtime/debug"
	"sync"
)

// Populated by -ldflags "-X ...".
var (
	tag    = ""
	commit = "unknown"
	date   = "unknown"
)

var stampOnce sync.Once

// stamp fills commit and date from the embedded build info when ldflags
// left them unset.
func stamp() {
	stampOnce.Do(func() {
		if commit != "unknown" {
			return
		}
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if len(s.Value) > 7 {
					commit = s.Value[:7]
				} else if s.Value != "" {
					commit = s.Value
				}
			case "vcs.time":
				if s.Value != "" {
					date = s.Value
				}
			}
		}
	})
}

// String returns a short version: the tag, else the commit, else "dev".
func String() string {
	stamp()
	if tag != "" {
		return tag
	}
	if commit != "unknown" {
		return commit
	}
	return "dev"
}

// Full returns "tag (commit) built date" or a sensible fallback.
func Full() string {
	stamp()
	if tag != "" {
		return tag + " (" + commit + ") built " + date
	}
	if commit != "unknown" {
		return commit + " built " + date
	}
	return "dev"
}

// Tag returns the git tag, or empty string.
func Tag() string { return tag }
