package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/smazurov/videoswitch/internal/capture"
	"github.com/smazurov/videoswitch/internal/config"
	"github.com/smazurov/videoswitch/internal/devices"
	"github.com/smazurov/videoswitch/internal/events"
	"github.com/smazurov/videoswitch/internal/media"
	"github.com/smazurov/videoswitch/internal/processor"
	"github.com/smazurov/videoswitch/internal/switcher"
)

type stubDevice struct {
	id string
}

func (d *stubDevice) ID() string { return d.id }

func (d *stubDevice) Start(ctx context.Context, sink func(media.Frame)) error { return nil }

func (d *stubDevice) Close() error { return nil }

type stubProvider struct {
	list []devices.DeviceInfo
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Enumerate() ([]devices.DeviceInfo, error) { return p.list, nil }

func (p *stubProvider) Owns(deviceID string) bool { return true }

func (p *stubProvider) Open(deviceID string) (capture.Device, error) {
	return &stubDevice{id: deviceID}, nil
}

type testServer struct {
	server       *Server
	http         *httptest.Server
	settingsPath string
	applied      []config.Settings
}

func newTestServer(t *testing.T, username, password string) *testServer {
	t.Helper()

	bus := events.New()
	proc := processor.New(nil)

	opener := func(deviceID string) (capture.Device, error) {
		if deviceID == "missing" {
			return nil, capture.NewError(capture.CodeDeviceNotFound, "no such device", nil)
		}
		if deviceID == "busy" {
			return nil, capture.NewError(capture.CodeDeviceBusy, "device in use", nil)
		}
		return &stubDevice{id: deviceID}, nil
	}

	engine := switcher.New(switcher.Config{
		Bus:       bus,
		Processor: proc,
		Captures:  func() *capture.Session { return capture.NewSession(opener) },
		OpenDecoder: func(source media.ContentSource) (media.Decoder, error) {
			return media.NewSyntheticDecoder(media.SyntheticConfig{ID: source.Handle()}), nil
		},
	})
	t.Cleanup(engine.Shutdown)

	manager := devices.NewManager(bus, t.TempDir(), &stubProvider{list: []devices.DeviceInfo{
		{ID: "cam-01", Path: "/dev/video0", Name: "Test Camera", Provider: "stub"},
	}})

	ts := &testServer{settingsPath: filepath.Join(t.TempDir(), "settings.toml")}
	ts.server = NewServer(&Options{
		Engine:       engine,
		Devices:      manager,
		Bus:          bus,
		AuthUsername: username,
		AuthPassword: password,
		SettingsPath: ts.settingsPath,
		OnSettings:   func(s config.Settings) { ts.applied = append(ts.applied, s) },
	})
	ts.http = httptest.NewServer(ts.server.GetMux())
	t.Cleanup(ts.http.Close)
	return ts
}

func (ts *testServer) request(t *testing.T, method, path string, body any, auth string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.http.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(auth)))
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return out
}

func TestHealthSkipsAuth(t *testing.T) {
	ts := newTestServer(t, "admin", "secret")

	resp := ts.request(t, http.MethodGet, "/api/health", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t, "admin", "secret")

	resp := ts.request(t, http.MethodGet, "/api/switcher", nil, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", resp.StatusCode)
	}
	if got := resp.Header.Get("WWW-Authenticate"); got == "" {
		t.Error("missing WWW-Authenticate header")
	}

	resp = ts.request(t, http.MethodGet, "/api/switcher", nil, "admin:wrong")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad credentials status = %d, want 401", resp.StatusCode)
	}

	resp = ts.request(t, http.MethodGet, "/api/switcher", nil, "admin:secret")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("authenticated status = %d, want 200", resp.StatusCode)
	}
}

func TestAuthQueryParamFallback(t *testing.T) {
	ts := newTestServer(t, "admin", "secret")

	creds := base64.StdEncoding.EncodeToString([]byte("admin:secret"))
	resp := ts.request(t, http.MethodGet, "/api/switcher?auth="+creds, nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("query auth status = %d, want 200", resp.StatusCode)
	}
}

func TestSwitcherStatusInitial(t *testing.T) {
	ts := newTestServer(t, "", "")

	resp := ts.request(t, http.MethodGet, "/api/switcher", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	status := decodeBody[switcher.Status](t, resp)
	if status.Preview.State != "empty" || status.Program.State != "empty" {
		t.Errorf("initial states = %s/%s, want empty/empty", status.Preview.State, status.Program.State)
	}
	if status.Crossfader != 0 || status.Transitioning {
		t.Errorf("initial crossfader = %v transitioning = %v", status.Crossfader, status.Transitioning)
	}
	if !status.StudioMode {
		t.Error("studio mode should default on")
	}
}

func TestLoadAndTake(t *testing.T) {
	ts := newTestServer(t, "", "")

	resp := ts.request(t, http.MethodPost, "/api/slots/preview/load",
		LoadBody{Source: "virtual:pattern"}, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("load status = %d", resp.StatusCode)
	}
	slot := decodeBody[switcher.SlotStatus](t, resp)
	if slot.State != "ready" || slot.Source != "virtual:pattern" {
		t.Fatalf("after load: state=%s source=%s", slot.State, slot.Source)
	}

	resp = ts.request(t, http.MethodPost, "/api/switcher/take", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("take status = %d", resp.StatusCode)
	}
	status := decodeBody[switcher.Status](t, resp)
	if status.Program.Source != "virtual:pattern" {
		t.Errorf("program source = %s, want virtual:pattern", status.Program.Source)
	}
	if status.Preview.State != "empty" {
		t.Errorf("preview state after take = %s, want empty", status.Preview.State)
	}
}

func TestLoadErrors(t *testing.T) {
	ts := newTestServer(t, "", "")

	resp := ts.request(t, http.MethodPost, "/api/slots/preview/load",
		LoadBody{Source: "garbage"}, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed source status = %d, want 400", resp.StatusCode)
	}

	resp = ts.request(t, http.MethodPost, "/api/slots/preview/load",
		LoadBody{Source: "camera:missing"}, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing device status = %d, want 404", resp.StatusCode)
	}

	resp = ts.request(t, http.MethodPost, "/api/slots/preview/load",
		LoadBody{Source: "camera:busy"}, "")
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("busy device status = %d, want 409", resp.StatusCode)
	}
}

func TestTransportOnEmptySlotIsAccepted(t *testing.T) {
	ts := newTestServer(t, "", "")

	for _, path := range []string{"play", "pause", "stop"} {
		resp := ts.request(t, http.MethodPost, "/api/slots/program/"+path, nil, "")
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s on empty slot status = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestEffectsRoundTrip(t *testing.T) {
	ts := newTestServer(t, "", "")

	resp := ts.request(t, http.MethodPost, "/api/slots/preview/effects",
		EffectStageBody{Kind: "opacity", Opacity: 0.5}, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add effect status = %d", resp.StatusCode)
	}
	slot := decodeBody[switcher.SlotStatus](t, resp)
	if slot.EffectCount != 1 {
		t.Fatalf("effect count = %d, want 1", slot.EffectCount)
	}

	resp = ts.request(t, http.MethodGet, "/api/slots/preview/effects", nil, "")
	list := decodeBody[EffectListData](t, resp)
	if len(list.Stages) != 1 || list.Stages[0].Kind != "opacity" {
		t.Fatalf("listed stages = %+v", list.Stages)
	}

	resp = ts.request(t, http.MethodDelete, "/api/slots/preview/effects", nil, "")
	slot = decodeBody[switcher.SlotStatus](t, resp)
	if slot.EffectCount != 0 {
		t.Errorf("effect count after clear = %d, want 0", slot.EffectCount)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	ts := newTestServer(t, "", "")

	resp := ts.request(t, http.MethodGet, "/api/settings", nil, "")
	settings := decodeBody[SettingsData](t, resp)
	if settings.TransitionSeconds != 1.0 || !settings.StudioMode {
		t.Fatalf("defaults = %+v", settings)
	}

	update := SettingsData{TransitionSeconds: 2.5, WatchdogTargetFPS: 30, StudioMode: false}
	resp = ts.request(t, http.MethodPut, "/api/settings", update, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d", resp.StatusCode)
	}

	if len(ts.applied) != 1 || ts.applied[0].TransitionSeconds != 2.5 {
		t.Errorf("applied settings = %+v", ts.applied)
	}

	persisted, err := config.LoadSettings(ts.settingsPath)
	if err != nil {
		t.Fatalf("reload settings: %v", err)
	}
	if persisted.WatchdogTargetFPS != 30 || persisted.StudioMode {
		t.Errorf("persisted = %+v", persisted)
	}
}

func TestDeviceList(t *testing.T) {
	ts := newTestServer(t, "", "")

	resp := ts.request(t, http.MethodGet, "/api/devices", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("devices status = %d", resp.StatusCode)
	}
	var body struct {
		Devices []devices.DeviceInfo `json:"devices"`
		Count   int                  `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 1 || body.Devices[0].ID != "cam-01" {
		t.Errorf("device list = %+v", body)
	}
}

func TestSnapshotWithoutFrame(t *testing.T) {
	ts := newTestServer(t, "", "")

	resp := ts.request(t, http.MethodGet, "/api/slots/program/snapshot", nil, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("snapshot of empty slot status = %d, want 404", resp.StatusCode)
	}
}

func TestEventStreamDeliversTake(t *testing.T) {
	ts := newTestServer(t, "", "")

	req, err := http.NewRequest(http.MethodGet, ts.http.URL+"/api/events", nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := http.DefaultClient.Do(req.WithContext(ctx))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("events stream status = %d", resp.StatusCode)
	}

	lines := make(chan string, 64)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	// The connection opens with a slot-state snapshot for each slot.
	waitForLine(t, lines, "preview")
	waitForLine(t, lines, "program")

	ts.request(t, http.MethodPost, "/api/slots/preview/load",
		LoadBody{Source: "virtual:pattern"}, "")
	ts.request(t, http.MethodPost, "/api/switcher/take", nil, "")

	waitForLine(t, lines, "program_source")
}

func waitForLine(t *testing.T, lines <-chan string, substr string) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatalf("stream closed before %q", substr)
			}
			if strings.Contains(line, substr) {
				return
			}
		case <-deadline:
			t.Fatalf("no event containing %q", substr)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, "admin", "secret")

	req, err := http.NewRequest(http.MethodOptions, ts.http.URL+"/api/switcher", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS headers on preflight")
	}
}
