package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"ExtremeScan/internal/domain/models"
	domrepo "ExtremeScan/internal/domain/repository"
	"ExtremeScan/internal/repository"
	"ExtremeScan/internal/service/ratelimit"
	"ExtremeScan/internal/usecase"

	"github.com/labstack/echo/v4"
)

type stubDetector struct {
	mu      sync.Mutex
	minConf float64
}

func (d *stubDetector) Detect(_ context.Context, symbol string, _ *models.MarketSnapshot) (models.Detection, error) {
	return models.Detection{Symbol: symbol, Outcome: models.OutcomeNeutral}, nil
}

func (d *stubDetector) SetMinConfidence(v float64) {
	d.mu.Lock()
	d.minConf = v
	d.mu.Unlock()
}

func (d *stubDetector) MinConfidence() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.minConf
}

type stubLines map[string][]models.Trendline

func (s stubLines) Trendlines(symbol string) []models.Trendline { return s[symbol] }

type stubStream struct{ calls int }

func (s *stubStream) ServeWS(w http.ResponseWriter, _ *http.Request) error {
	s.calls++
	return errors.New("not a websocket handshake")
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testAPI struct {
	e      *echo.Echo
	store  *repository.MemorySignalStore
	agent  *usecase.SignalAgent
	det    *stubDetector
	stream *stubStream
}

func newTestAPI(t *testing.T, limiter *ratelimit.Limiter, initialize bool) *testAPI {
	t.Helper()
	fetcher := domrepo.FetcherFunc(func(context.Context, string) (*models.MarketSnapshot, error) {
		return &models.MarketSnapshot{CurrentPrice: 100, Volume24hUSD: 5_000_000}, nil
	})
	store := repository.NewMemorySignalStore()
	det := &stubDetector{}
	agent := usecase.NewSignalAgent(det, store)
	svc := usecase.NewBackgroundService(agent, fetcher, nil, nil)
	if initialize {
		off := false
		if err := svc.Initialize(models.ServiceConfigPatch{AutoStart: &off}); err != nil {
			t.Fatalf("initialize: %v", err)
		}
	}
	t.Cleanup(svc.Close)

	lines := stubLines{"BTCUSDT": {{ID: "tl_1", Type: models.Support, TouchCount: 3}}}
	stream := &stubStream{}
	if limiter == nil {
		limiter = ratelimit.New(100, 100)
	}
	e := echo.New()
	NewAgentEchoHandler(nil, svc, agent, store, lines, stream, limiter).RegisterRoutes(e)
	return &testAPI{e: e, store: store, agent: agent, det: det, stream: stream}
}

func (a *testAPI) do(t *testing.T, method, path, body string) (int, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code, env
}

func signal(id, symbol string, ts int64) *models.ExtremePoint {
	return &models.ExtremePoint{
		ID:         id,
		Symbol:     symbol,
		Timestamp:  ts,
		Price:      100,
		SignalType: models.Buy,
		Confidence: 75,
		Status:     models.StatusActive,
		ExpiresAt:  time.Now().Add(time.Hour).UnixMilli(),
	}
}

func TestAgentStatusAndConfigure(t *testing.T) {
	api := newTestAPI(t, nil, true)

	code, env := api.do(t, http.MethodGet, "/api/agent/status", "")
	if code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	var st models.ServiceStatus
	if err := json.Unmarshal(env.Data, &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !st.Initialized || st.Agent.IsRunning {
		t.Errorf("unexpected status %+v", st)
	}

	code, env = api.do(t, http.MethodPut, "/api/agent/config",
		`{"symbols":["btcusdt"," ethusdt"],"checkIntervalMs":5000,"minConfidence":70}`)
	if code != http.StatusOK {
		t.Fatalf("configure code = %d body=%s", code, env.Data)
	}
	var cfg struct {
		Symbols         []string `json:"symbols"`
		CheckIntervalMs int64    `json:"checkIntervalMs"`
		MinConfidence   float64  `json:"minConfidence"`
		MinVolumeUSD    float64  `json:"minVolumeUSD"`
	}
	if err := json.Unmarshal(env.Data, &cfg); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if len(cfg.Symbols) != 2 || cfg.Symbols[1] != "ETHUSDT" || cfg.CheckIntervalMs != 5000 {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.MinVolumeUSD != models.DefaultMinVolumeUSD {
		t.Errorf("untouched fields must keep their value, got %v", cfg.MinVolumeUSD)
	}
	if api.det.MinConfidence() != 70 {
		t.Errorf("detector threshold = %v, want 70", api.det.MinConfidence())
	}

	for _, body := range []string{`{"checkIntervalMs":10}`, `{"minConfidence":101}`, `{"minVolumeUSD":-1}`} {
		if code, _ := api.do(t, http.MethodPut, "/api/agent/config", body); code != http.StatusBadRequest {
			t.Errorf("%s: code = %d, want 400", body, code)
		}
	}
}

func TestAgentStartStop(t *testing.T) {
	api := newTestAPI(t, nil, true)

	code, env := api.do(t, http.MethodPost, "/api/agent/start", "")
	if code != http.StatusOK {
		t.Fatalf("start code = %d", code)
	}
	var st models.AgentStatus
	_ = json.Unmarshal(env.Data, &st)
	if !st.IsRunning {
		t.Fatalf("agent should be running")
	}

	code, env = api.do(t, http.MethodPost, "/api/agent/stop", "")
	if code != http.StatusOK {
		t.Fatalf("stop code = %d", code)
	}
	st = models.AgentStatus{}
	_ = json.Unmarshal(env.Data, &st)
	if st.IsRunning {
		t.Fatalf("agent should be stopped")
	}

	uninit := newTestAPI(t, nil, false)
	if code, _ := uninit.do(t, http.MethodPost, "/api/agent/start", ""); code != http.StatusConflict {
		t.Fatalf("start before initialize: code = %d, want 409", code)
	}
}

func TestSignalEndpoints(t *testing.T) {
	api := newTestAPI(t, nil, true)
	for _, s := range []*models.ExtremePoint{
		signal("a", "BTCUSDT", 1),
		signal("b", "ETHUSDT", 2),
		signal("c", "BTCUSDT", 3),
	} {
		if err := api.store.Save(s); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	code, env := api.do(t, http.MethodGet, "/api/signals/active?symbol=btcusdt&limit=1", "")
	if code != http.StatusOK {
		t.Fatalf("active code = %d", code)
	}
	var list struct {
		Rows  []models.ExtremePoint `json:"rows"`
		Total int64                 `json:"total"`
	}
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Total != 2 || len(list.Rows) != 1 || list.Rows[0].ID != "c" {
		t.Errorf("unexpected list %+v", list)
	}
	if code, _ := api.do(t, http.MethodGet, "/api/signals/active?limit=5000", ""); code != http.StatusBadRequest {
		t.Errorf("limit over max: code = %d", code)
	}

	if code, _ := api.do(t, http.MethodGet, "/api/signals/b", ""); code != http.StatusOK {
		t.Errorf("get: code = %d", code)
	}
	if code, _ := api.do(t, http.MethodGet, "/api/signals/zzz", ""); code != http.StatusNotFound {
		t.Errorf("get unknown: code = %d", code)
	}

	code, env = api.do(t, http.MethodPatch, "/api/signals/a/status", `{"status":"TRIGGERED"}`)
	if code != http.StatusOK {
		t.Fatalf("update code = %d", code)
	}
	var sig models.ExtremePoint
	_ = json.Unmarshal(env.Data, &sig)
	if sig.Status != models.StatusTriggered {
		t.Errorf("status = %s", sig.Status)
	}
	if code, _ := api.do(t, http.MethodPatch, "/api/signals/a/status", `{"status":"EXPIRED"}`); code != http.StatusConflict {
		t.Errorf("terminal transition: code = %d, want 409", code)
	}
	if code, _ := api.do(t, http.MethodPatch, "/api/signals/b/status", `{"status":"ACTIVE"}`); code != http.StatusBadRequest {
		t.Errorf("non-terminal target: code = %d, want 400", code)
	}
	if code, _ := api.do(t, http.MethodPatch, "/api/signals/zzz/status", `{"status":"EXPIRED"}`); code != http.StatusNotFound {
		t.Errorf("unknown id: code = %d, want 404", code)
	}
}

func TestCheckSymbolRateLimited(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := ratelimit.New(2, 0.001, ratelimit.WithClock(func() time.Time { return now }))
	api := newTestAPI(t, limiter, true)

	code, env := api.do(t, http.MethodPost, "/api/signals/check", `{"symbol":"ethusdt"}`)
	if code != http.StatusOK {
		t.Fatalf("check code = %d", code)
	}
	var det models.Detection
	if err := json.Unmarshal(env.Data, &det); err != nil {
		t.Fatalf("decode detection: %v", err)
	}
	if det.Symbol != "ETHUSDT" || det.Outcome != models.OutcomeNeutral {
		t.Errorf("unexpected detection %+v", det)
	}

	if code, _ := api.do(t, http.MethodPost, "/api/signals/check", `{}`); code != http.StatusBadRequest {
		t.Errorf("missing symbol: code = %d", code)
	}
	if code, _ := api.do(t, http.MethodPost, "/api/signals/check", `{"symbol":"ethusdt"}`); code != http.StatusTooManyRequests {
		t.Errorf("third call: code = %d, want 429", code)
	}
}

func TestTrendlinesAndStream(t *testing.T) {
	api := newTestAPI(t, nil, true)

	code, env := api.do(t, http.MethodGet, "/api/trendlines?symbol=btcusdt", "")
	if code != http.StatusOK {
		t.Fatalf("trendlines code = %d", code)
	}
	var res trendlinesResponse
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Symbol != "BTCUSDT" || len(res.Trendlines) != 1 {
		t.Errorf("unexpected trendlines %+v", res)
	}

	_, env = api.do(t, http.MethodGet, "/api/trendlines?symbol=SOLUSDT", "")
	if string(env.Data) == "" || !strings.Contains(string(env.Data), `"trendlines":[]`) {
		t.Errorf("unknown symbol should return an empty list, got %s", env.Data)
	}
	if code, _ := api.do(t, http.MethodGet, "/api/trendlines", ""); code != http.StatusBadRequest {
		t.Errorf("missing symbol: code = %d", code)
	}

	rec := httptest.NewRecorder()
	api.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/signals", nil))
	if api.stream.calls != 1 {
		t.Errorf("stream handler not reached")
	}
}
