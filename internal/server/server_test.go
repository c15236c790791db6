package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Geun-Oh/accelx/internal/core"
	"github.com/Geun-Oh/accelx/internal/render"
	"github.com/Geun-Oh/accelx/internal/sink"
	"github.com/Geun-Oh/accelx/internal/window"
)

const twoSamples = `{"payload":[
	{"name":"accelerometer","time":1000000000,"values":{"x":0.1,"y":0.2,"z":9.8}},
	{"name":"gyroscope","time":1050000000,"values":{"x":1,"y":1,"z":1}},
	{"name":"accelerometer","time":1100000000,"values":{"x":0.3,"y":0.4,"z":9.7}}
]}`

type fixture struct {
	engine *core.Engine
	hub    *render.Hub
	ts     *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	e := core.New(core.Options{
		Capacity:  100,
		AutoReset: true,
		Recorder:  sink.NewRecorder(t.TempDir(), "csv"),
	})
	hub := render.NewHub(8, nil)
	srv := New(Config{Engine: e, Hub: hub, MaxBodyBytes: 4096})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		hub.Close()
	})
	return &fixture{engine: e, hub: hub, ts: ts}
}

func (f *fixture) post(t *testing.T, path, body string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Post(f.ts.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func decodeStatus(t *testing.T, body string) core.Status {
	t.Helper()
	var st core.Status
	require.NoError(t, json.Unmarshal([]byte(body), &st))
	return st
}

func TestSensorAcceptsPayload(t *testing.T) {
	f := newFixture(t)

	resp, body := f.post(t, "/sensor", twoSamples)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", body)

	snap := f.engine.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, 0.0, snap[0].T)
	assert.Equal(t, 0.1, snap[1].T)
}

func TestSensorResponses(t *testing.T) {
	f := newFixture(t)

	resp, body := f.post(t, "/sensor", `{"payload":[{"name":"gyroscope","time":1,"values":{"x":1,"y":1,"z":1}}]}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK - No accelerometer data", body)

	resp, body = f.post(t, "/sensor", `{"payload": [`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	var ingestErr ingestError
	require.NoError(t, json.Unmarshal([]byte(body), &ingestErr))
	assert.False(t, ingestErr.Success)
	assert.NotEmpty(t, ingestErr.Message)

	resp, _ = f.post(t, "/sensor", `{"payload":[`+strings.Repeat(" ", 5000)+`]}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	_, _ = f.post(t, "/control/stream", `{"active":false}`)
	resp, body = f.post(t, "/sensor", twoSamples)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK - Stream paused", body)
	assert.Empty(t, f.engine.Snapshot())
}

func TestSensorRejectsGet(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.ts.URL + "/sensor")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestControlStreamToggle(t *testing.T) {
	f := newFixture(t)

	resp, body := f.post(t, "/control/stream", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decodeStatus(t, body).StreamActive)

	_, body = f.post(t, "/control/stream", "")
	assert.True(t, decodeStatus(t, body).StreamActive)

	resp, _ = f.post(t, "/control/stream", "{")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestControlWindow(t *testing.T) {
	f := newFixture(t)

	_, body := f.post(t, "/control/window", `{"seconds": 99}`)
	assert.Equal(t, 30.0, decodeStatus(t, body).WindowSeconds)

	_, body = f.post(t, "/control/window", `{"seconds": 5}`)
	assert.Equal(t, 5.0, decodeStatus(t, body).WindowSeconds)

	resp, _ := f.post(t, "/control/window", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestControlReset(t *testing.T) {
	f := newFixture(t)
	f.post(t, "/sensor", twoSamples)

	resp, body := f.post(t, "/control/reset", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := decodeStatus(t, body)
	assert.Zero(t, st.Buffered)
	assert.Equal(t, uint64(1), st.Epoch)
}

func TestControlPushesStatusToRenderers(t *testing.T) {
	f := newFixture(t)
	got := make(chan core.Status, 4)
	_, cancel := f.hub.Subscribe(render.Funcs{Status: func(st core.Status) { got <- st }})
	defer cancel()

	f.post(t, "/control/window", `{"seconds":5}`)

	select {
	case st := <-got:
		assert.Equal(t, 5.0, st.WindowSeconds)
	case <-time.After(2 * time.Second):
		t.Fatal("no status pushed after control request")
	}
}

func TestControlRecording(t *testing.T) {
	f := newFixture(t)

	resp, body := f.post(t, "/control/recording", `{"active":true,"name":"walk"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := decodeStatus(t, body)
	assert.True(t, st.Recording)
	assert.Contains(t, st.RecordingPath, "walk_")

	f.post(t, "/sensor", twoSamples)

	_, body = f.post(t, "/control/recording", `{"active":false}`)
	assert.False(t, decodeStatus(t, body).Recording)

	resp, _ = f.post(t, "/control/recording", `{"active":false}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestDatasetLoadAndClear(t *testing.T) {
	f := newFixture(t)

	resp, body := f.post(t, "/dataset?name=walk.csv", "timestamp,ax,ay,az\n0,1,2,3\n0.5,1,2,3\n")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := decodeStatus(t, body)
	assert.True(t, st.DatasetLoaded)
	assert.Equal(t, "walk.csv", st.DatasetName)
	assert.False(t, st.StreamActive)

	resp, _ = f.post(t, "/dataset", "a,b\n1,2\n")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req, err := http.NewRequest(http.MethodDelete, f.ts.URL+"/dataset", nil)
	require.NoError(t, err)
	dresp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer dresp.Body.Close()
	data, _ := io.ReadAll(dresp.Body)
	st = decodeStatus(t, string(data))
	assert.False(t, st.DatasetLoaded)
	assert.True(t, st.StreamActive)
}

func TestStatusEndpoint(t *testing.T) {
	f := newFixture(t)
	f.post(t, "/sensor", twoSamples)

	resp, err := http.Get(f.ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var raw map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.Equal(t, "active", raw["state"])
	assert.Equal(t, float64(2), raw["total_points"])
	assert.Equal(t, true, raw["connected"])
}

func TestWebsocketFeed(t *testing.T) {
	f := newFixture(t)

	url := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var first struct {
		Type string      `json:"type"`
		Data core.Status `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "status", first.Type)

	require.Eventually(t, func() bool { return f.hub.Len() == 1 }, time.Second, 5*time.Millisecond)
	f.hub.Publish(core.Outcome{Frame: &window.Frame{Epoch: 4, End: 2.5}})

	var next struct {
		Type string       `json:"type"`
		Data window.Frame `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, "window", next.Type)
	assert.Equal(t, uint64(4), next.Data.Epoch)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return f.hub.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestStartBindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	srv := New(Config{Address: ln.Addr().String(), Engine: core.New(core.Options{})})
	err = srv.Start(context.Background())
	assert.Error(t, err)
}

func TestStartShutsDownOnCancel(t *testing.T) {
	srv := New(Config{Address: "127.0.0.1:0", Engine: core.New(core.Options{})})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
