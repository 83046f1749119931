package main

import (
	"testing"

	"github.com/NicolasHaas/mutetool/pkg/config"
)

func TestApplyFlags(t *testing.T) {
	type tcase struct {
		f           flags
		wantJournal string
		wantMetrics string
	}

	tcases := map[string]tcase{
		"settings_win_when_unset": {
			f:           flags{},
			wantJournal: "/cfg/journal.db",
			wantMetrics: "",
		},
		"flags_override": {
			f:           flags{journalPath: "/tmp/j.db", metricsAddr: ":9464"},
			wantJournal: "/tmp/j.db",
			wantMetrics: ":9464",
		},
		"journal_off": {
			f:           flags{journalPath: journalOff},
			wantJournal: "",
		},
	}

	fn := func(tc tcase) func(*testing.T) {
		return func(t *testing.T) {
			s := config.DefaultSettings()
			s.JournalPath = "/cfg/journal.db"
			applyFlags(s, tc.f)
			if s.JournalPath != tc.wantJournal {
				t.Errorf("JournalPath = %q, want %q", s.JournalPath, tc.wantJournal)
			}
			if s.MetricsAddr != tc.wantMetrics {
				t.Errorf("MetricsAddr = %q, want %q", s.MetricsAddr, tc.wantMetrics)
			}
		}
	}

	for name, tc := range tcases {
		t.Run(name, fn(tc))
	}
}
