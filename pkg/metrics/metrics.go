// Package metrics tracks runtime statistics of the mute synchronizer.
package metrics

import (
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"
)

// Metrics holds lock-free counters updated from hardware callback
// goroutines and read from the HTTP endpoint and periodic logger.
type Metrics struct {
	startTime time.Time

	// Synchronizer counters
	DeviceSwaps    atomic.Int64 // default input device re-resolutions
	MuteRefreshes  atomic.Int64 // successful mute reads
	RefreshMisses  atomic.Int64 // mute reads that found no readable property
	StaleCallbacks atomic.Int64 // mute callbacks for a device that is no longer current
	Notifications  atomic.Int64 // observer notifications delivered
	Toggles        atomic.Int64 // toggle requests
	WriteFailures  atomic.Int64 // hardware writes that did not happen after a toggle

	// Journal counters
	JournalWrites atomic.Int64 // events persisted
	JournalDrops  atomic.Int64 // events dropped because the recorder was full or failing
}

// New creates a Metrics instance with the start time set to now.
func New() *Metrics {
	return &Metrics{
		startTime: time.Now(),
	}
}

// Snapshot is a point-in-time view of all metrics as a serializable struct.
type Snapshot struct {
	Uptime        string `json:"uptime"`
	UptimeSeconds int64  `json:"uptime_seconds"`

	DeviceSwaps    int64 `json:"device_swaps"`
	MuteRefreshes  int64 `json:"mute_refreshes"`
	RefreshMisses  int64 `json:"refresh_misses"`
	StaleCallbacks int64 `json:"stale_callbacks"`
	Notifications  int64 `json:"notifications"`
	Toggles        int64 `json:"toggles"`
	WriteFailures  int64 `json:"write_failures"`

	JournalWrites int64 `json:"journal_writes"`
	JournalDrops  int64 `json:"journal_drops"`
}

// Snapshot returns a read-consistent snapshot of all metrics.
func (m *Metrics) Snapshot() Snapshot {
	uptime := time.Since(m.startTime)
	return Snapshot{
		Uptime:         uptime.Truncate(time.Second).String(),
		UptimeSeconds:  int64(uptime.Seconds()),
		DeviceSwaps:    m.DeviceSwaps.Load(),
		MuteRefreshes:  m.MuteRefreshes.Load(),
		RefreshMisses:  m.RefreshMisses.Load(),
		StaleCallbacks: m.StaleCallbacks.Load(),
		Notifications:  m.Notifications.Load(),
		Toggles:        m.Toggles.Load(),
		WriteFailures:  m.WriteFailures.Load(),
		JournalWrites:  m.JournalWrites.Load(),
		JournalDrops:   m.JournalDrops.Load(),
	}
}

// JSON returns the metrics snapshot as a JSON string.
func (m *Metrics) JSON() string {
	data, err := json.MarshalIndent(m.Snapshot(), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// LogSummary writes a metrics summary to the logger.
func (m *Metrics) LogSummary() {
	s := m.Snapshot()
	slog.Info("metrics",
		"uptime", s.Uptime,
		"device_swaps", s.DeviceSwaps,
		"mute_refreshes", s.MuteRefreshes,
		"refresh_misses", s.RefreshMisses,
		"toggles", s.Toggles,
		"write_failures", s.WriteFailures,
		"journal_drops", s.JournalDrops,
	)
}

// StartPeriodicLog starts a goroutine that logs metrics every interval.
// It stops when the done channel is closed.
func (m *Metrics) StartPeriodicLog(interval time.Duration, done <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				m.LogSummary()
			}
		}
	}()
}
