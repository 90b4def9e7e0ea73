package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"markestedt/datepaste/config"
	"markestedt/datepaste/stamp"
	"markestedt/datepaste/storage"
)

type fakeDispatcher struct {
	mu    sync.Mutex
	kinds []stamp.Kind
	texts []string
}

func (d *fakeDispatcher) PasteKind(source string, kind stamp.Kind) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.kinds = append(d.kinds, kind)
}

func (d *fakeDispatcher) PasteText(source, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.texts = append(d.texts, text)
}

func (d *fakeDispatcher) Status() Status {
	return Status{State: "idle", HotkeysActive: true}
}

type testEnv struct {
	srv        *Server
	http       *httptest.Server
	db         *storage.DB
	cfg        *config.Config
	dispatcher *fakeDispatcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	cfg, err := config.LoadFile(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)

	db, err := storage.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	renderer := stamp.NewRenderer(stamp.NewCatalog(cfg.Format.Custom), cfg.Format.Selection())
	d := &fakeDispatcher{}
	srv := NewServer(db, cfg, renderer, d)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{srv: srv, http: ts, db: db, cfg: cfg, dispatcher: d}
}

func (e *testEnv) request(t *testing.T, method, path, body string, header ...string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.http.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestPasteKindAndText(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodPost, "/api/paste", `{"kind":"datetime"}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = env.request(t, http.MethodPost, "/api/paste", `{"text":"hello"}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	assert.Equal(t, []stamp.Kind{stamp.KindDateTime}, env.dispatcher.kinds)
	assert.Equal(t, []string{"hello"}, env.dispatcher.texts)
}

func TestPasteRejectsBadRequests(t *testing.T) {
	env := newTestEnv(t)

	cases := map[string]string{
		"empty":   `{}`,
		"both":    `{"kind":"date","text":"x"}`,
		"kind":    `{"kind":"week"}`,
		"garbage": `{`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			resp := env.request(t, http.MethodPost, "/api/paste", body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
	assert.Empty(t, env.dispatcher.kinds)
	assert.Empty(t, env.dispatcher.texts)
}

func TestPasteRejectsForeignOrigin(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodPost, "/api/paste", `{"kind":"date"}`, "Origin", "https://evil.example")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, env.http.URL+"/api/paste", strings.NewReader(`{"kind":"date"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "text/plain")
	plain, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	plain.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, plain.StatusCode)

	assert.Empty(t, env.dispatcher.kinds)
}

func TestSettingsRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodPut, "/api/settings",
		`{"dateFormatId":"date-3","timezoneId":"utc+8","shortcuts":{"copyDate":"ctrl+alt+d","copyTime":"ctrl+shift+t","copyDateTime":"ctrl+shift+c"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, true, body["restartRequired"])

	got := decode[settingsResponse](t, env.request(t, http.MethodGet, "/api/settings", ""))
	assert.Equal(t, "date-3", got.Date)
	assert.Equal(t, "utc+8", got.TimezoneID)
	assert.Equal(t, "ctrl+alt+d", got.Shortcuts.CopyDate)

	reloaded, err := config.LoadFile(env.cfg.Path())
	require.NoError(t, err)
	assert.Equal(t, "date-3", reloaded.Format.Date)
	assert.Equal(t, "ctrl+alt+d", reloaded.Hotkeys.CopyDate)
}

func TestSettingsRejectsInvalidValues(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []string{
		`{"dateFormatId":"time-1"}`,
		`{"timeFormatId":"nope"}`,
		`{"timezoneId":"utc+13"}`,
		`{"shortcuts":{"copyDate":"hyper+d"}}`,
		`{"shortcuts":{"copyTime":"ctrl+shift+up"}}`,
		`{"shortcuts":{"copyDateTime":"alt+-"}}`,
	} {
		resp := env.request(t, http.MethodPut, "/api/settings", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
	assert.Equal(t, "date-1", env.srv.renderer.Selection().Date)

	reloaded, err := config.LoadFile(env.cfg.Path())
	require.NoError(t, err)
	assert.Equal(t, "ctrl+shift+t", reloaded.Hotkeys.CopyTime)
}

func TestDeletingSelectedFormatFallsBack(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodPost, "/api/formats", `{"label":"clock","format":"HH.mm","type":"time"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[stamp.Format](t, resp)

	resp = env.request(t, http.MethodPut, "/api/settings", `{"timeFormatId":"`+created.ID+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created.ID, env.srv.renderer.Selection().Time)

	resp = env.request(t, http.MethodDelete, "/api/formats/"+created.ID, "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "time-2", env.srv.renderer.Selection().Time)

	reloaded, err := config.LoadFile(env.cfg.Path())
	require.NoError(t, err)
	assert.Equal(t, "time-2", reloaded.Format.Time)
	assert.Empty(t, reloaded.Format.Custom)
}

func TestBroadcastsDroppedWhileStopped(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 100; i++ {
		env.srv.BroadcastPaste(&storage.Paste{ID: int64(i), Text: "x"})
		env.srv.BroadcastStatus("idle")
	}
	assert.Empty(t, env.srv.hub.broadcast)
}

func TestCustomFormats(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodPost, "/api/formats", `{"label":"compact","format":"YYYYMMDD","type":"date"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[stamp.Format](t, resp)
	assert.True(t, strings.HasPrefix(created.ID, "custom-"))

	dates := decode[[]stamp.Format](t, env.request(t, http.MethodGet, "/api/formats?type=date", ""))
	assert.Len(t, dates, len(stamp.BuiltinFormats[:5])+1)

	reloaded, err := config.LoadFile(env.cfg.Path())
	require.NoError(t, err)
	require.Len(t, reloaded.Format.Custom, 1)

	resp = env.request(t, http.MethodDelete, "/api/formats/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.request(t, http.MethodDelete, "/api/formats/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.request(t, http.MethodDelete, "/api/formats/date-1", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTimezonesAndPreview(t *testing.T) {
	env := newTestEnv(t)

	zones := decode[[]timezoneResponse](t, env.request(t, http.MethodGet, "/api/timezones", ""))
	require.Len(t, zones, len(stamp.Timezones))
	assert.True(t, zones[0].Selected)

	preview := decode[map[string]any](t, env.request(t, http.MethodGet, "/api/preview", ""))
	values, ok := preview["values"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, values, 3)
}

func TestHistoryAndStats(t *testing.T) {
	env := newTestEnv(t)

	p := &storage.Paste{Source: "hotkey", Kind: "date", Text: "2024-03-07", DurationMs: 340, ClipboardOK: true}
	require.NoError(t, env.db.SavePaste(p))
	require.NoError(t, env.db.SavePaste(&storage.Paste{Source: "api", Kind: "time", Text: "15:04", ClipboardOK: true}))

	page := decode[HistoryPage](t, env.request(t, http.MethodGet, "/api/history?limit=1", ""))
	assert.Equal(t, 2, page.Total)
	assert.Len(t, page.Pastes, 1)

	stats := decode[map[string]json.RawMessage](t, env.request(t, http.MethodGet, "/api/stats?days=1", ""))
	assert.Contains(t, stats, "overall")
	assert.Contains(t, stats, "kinds")

	resp := env.request(t, http.MethodDelete, "/api/history/"+strconv.FormatInt(p.ID, 10), "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = env.request(t, http.MethodDelete, "/api/history/"+strconv.FormatInt(p.ID, 10), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = env.request(t, http.MethodDelete, "/api/history/abc", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	cleared := decode[map[string]int64](t, env.request(t, http.MethodDelete, "/api/history", ""))
	assert.EqualValues(t, 1, cleared["deleted"])
}

func TestClientAgainstServer(t *testing.T) {
	env := newTestEnv(t)

	u, err := url.Parse(env.http.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	client := NewClient(port)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, client.PasteKind(ctx, stamp.KindTime))
	require.NoError(t, client.PasteText(ctx, "hi"))
	assert.Equal(t, []stamp.Kind{stamp.KindTime}, env.dispatcher.kinds)

	st, err := client.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "idle", st.State)

	page, err := client.History(ctx, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, page.Pastes)

	err = client.PasteKind(ctx, "week")
	assert.ErrorContains(t, err, "unknown kind")
}

func TestStaticIndex(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}
