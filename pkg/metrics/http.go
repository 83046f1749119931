package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// StateFunc reports the synchronizer's cached state for /state.
type StateFunc func() (muted bool, device uint32)

// Handler serves /metrics in Prometheus text exposition format, /healthz,
// and /state as JSON. state may be nil.
func Handler(m *Metrics, state StateFunc) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		writeMetrics(w, m)
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("/state", func(w http.ResponseWriter, _ *http.Request) {
		if state == nil {
			http.Error(w, "state unavailable", http.StatusServiceUnavailable)
			return
		}
		muted, device := state()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			Muted  bool   `json:"muted"`
			Device uint32 `json:"device"`
		}{muted, device})
	})
	return mux
}

// StartHTTP starts the metrics endpoint in the background. It shuts down
// when ctx is cancelled. An empty addr disables the endpoint.
func StartHTTP(ctx context.Context, addr string, m *Metrics, state StateFunc) {
	if addr == "" {
		return
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(m, state),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("metrics HTTP listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics HTTP error", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
}

func writeMetrics(w http.ResponseWriter, m *Metrics) {
	uptime := time.Since(m.startTime).Seconds()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	// Write errors to http.ResponseWriter are non-actionable; suppress errcheck.
	write := func(name, help, mtype string, value int64) {
		_, _ = fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		_, _ = fmt.Fprintf(w, "# TYPE %s %s\n", name, mtype)
		_, _ = fmt.Fprintf(w, "%s %d\n", name, value)
	}

	_, _ = fmt.Fprintf(w, "# HELP mutetool_uptime_seconds Process uptime in seconds.\n")
	_, _ = fmt.Fprintf(w, "# TYPE mutetool_uptime_seconds gauge\n")
	_, _ = fmt.Fprintf(w, "mutetool_uptime_seconds %f\n", uptime)

	write("mutetool_device_swaps_total", "Default input device re-resolutions.", "counter",
		m.DeviceSwaps.Load())
	write("mutetool_mute_refreshes_total", "Successful hardware mute reads.", "counter",
		m.MuteRefreshes.Load())
	write("mutetool_refresh_misses_total", "Mute reads with no readable property.", "counter",
		m.RefreshMisses.Load())
	write("mutetool_stale_callbacks_total", "Mute callbacks for a replaced device.", "counter",
		m.StaleCallbacks.Load())
	write("mutetool_notifications_total", "Observer notifications delivered.", "counter",
		m.Notifications.Load())
	write("mutetool_toggles_total", "Toggle requests.", "counter",
		m.Toggles.Load())
	write("mutetool_write_failures_total", "Hardware writes skipped or failed after a toggle.", "counter",
		m.WriteFailures.Load())
	write("mutetool_journal_writes_total", "Journal events persisted.", "counter",
		m.JournalWrites.Load())
	write("mutetool_journal_drops_total", "Journal events dropped.", "counter",
		m.JournalDrops.Load())
}
