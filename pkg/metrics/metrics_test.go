package metrics

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSnapshot(t *testing.T) {
	m := New()
	m.Toggles.Add(3)
	m.WriteFailures.Add(1)

	s := m.Snapshot()
	if s.Toggles != 3 || s.WriteFailures != 1 {
		t.Fatalf("snapshot = %+v", s)
	}

	var decoded Snapshot
	if err := json.Unmarshal([]byte(m.JSON()), &decoded); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	if decoded.Toggles != 3 {
		t.Fatalf("decoded toggles = %d, want 3", decoded.Toggles)
	}
}

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	body, err := io.ReadAll(rec.Result().Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return rec.Code, string(body)
}

func TestHandlerMetrics(t *testing.T) {
	m := New()
	m.DeviceSwaps.Add(2)

	code, body := get(t, Handler(m, nil), "/metrics")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	for _, want := range []string{
		"# TYPE mutetool_device_swaps_total counter",
		"mutetool_device_swaps_total 2\n",
		"mutetool_uptime_seconds ",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestHandlerState(t *testing.T) {
	h := Handler(New(), func() (bool, uint32) { return true, 73 })

	code, body := get(t, h, "/state")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if strings.TrimSpace(body) != `{"muted":true,"device":73}` {
		t.Fatalf("body = %q", body)
	}

	code, _ = get(t, Handler(New(), nil), "/state")
	if code != http.StatusServiceUnavailable {
		t.Fatalf("nil state status = %d", code)
	}

	code, body = get(t, h, "/healthz")
	if code != http.StatusOK || body != "ok\n" {
		t.Fatalf("healthz = %d %q", code, body)
	}
}
