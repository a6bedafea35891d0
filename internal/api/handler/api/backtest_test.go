// internal/api/handler/api/backtest_test.go
package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/newthinker/algotrade/internal/api/job"
	"github.com/newthinker/algotrade/internal/backtest"
	"github.com/newthinker/algotrade/internal/core"
	"github.com/newthinker/algotrade/internal/metrics"
	"github.com/newthinker/algotrade/internal/storage/archive"
	"github.com/newthinker/algotrade/internal/strategy"
)

type fakeRunner struct {
	mu      sync.Mutex
	release chan struct{} // when set, runs block until it is closed
	params  strategy.Params
	result *backtest.Result
	err    error
	got    backtest.Config
}

func (f *fakeRunner) StrategyParams() strategy.Params { return f.params }

func (f *fakeRunner) BacktestConfig(cfg backtest.Config) backtest.Config {
	if cfg.InitialCapital == 0 {
		cfg.InitialCapital = 50000
	}
	return cfg
}

func (f *fakeRunner) RunBacktest(ctx context.Context, cfg backtest.Config) (*backtest.Result, error) {
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = cfg
	if f.err != nil {
		return nil, f.err
	}
	res := *f.result
	res.Config = cfg
	return &res, nil
}

func (f *fakeRunner) config() backtest.Config {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.got
}

func waitForJob(t *testing.T, store *job.Store, id string) *job.Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		j, err := store.Get(id)
		if err != nil {
			t.Fatalf("Get(%s) error = %v", id, err)
		}
		if j.Status.Done() {
			return j
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return nil
}

func createBacktest(t *testing.T, h *BacktestHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/backtest", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return serve("POST /api/backtest", h.Create, req)
}

func TestBacktestHandler_Create(t *testing.T) {
	store := job.NewStore(100, time.Hour)
	runner := &fakeRunner{result: &backtest.Result{RunID: "run-1", Strategy: "combined"}}
	h := NewBacktestHandler(store, runner, nil, metrics.NewRegistry(), nil)

	w := createBacktest(t, h, `{
		"symbol": "aapl",
		"start_date": "2023-01-01",
		"end_date": "2024-01-01",
		"params": {"rsi_macd": {"rsi_period": 10, "lookback": 5}}
	}`)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", w.Code, w.Body.String())
	}

	data := decodeData(t, w)
	id, _ := data["job_id"].(string)
	if id == "" {
		t.Fatal("expected job_id in response")
	}
	if data["status"] != string(job.StatusPending) {
		t.Errorf("status = %v, want pending", data["status"])
	}
	ignored := data["ignored_params"].([]any)
	if len(ignored) != 1 || ignored[0] != "rsi_macd.lookback" {
		t.Errorf("ignored_params = %v, want [rsi_macd.lookback]", ignored)
	}

	j := waitForJob(t, store, id)
	if j.Status != job.StatusComplete {
		t.Fatalf("job status = %s, want complete", j.Status)
	}

	cfg := runner.config()
	if cfg.Symbol != "AAPL" {
		t.Errorf("symbol = %q, want AAPL", cfg.Symbol)
	}
	if cfg.Strategy != "combined" {
		t.Errorf("strategy = %q, want combined", cfg.Strategy)
	}
	if cfg.InitialCapital != 50000 {
		t.Errorf("initial capital = %v, want 50000", cfg.InitialCapital)
	}
	if cfg.Params.RSIMACD.RSIPeriod != 10 {
		t.Errorf("rsi period = %d, want 10", cfg.Params.RSIMACD.RSIPeriod)
	}
	if got := store.Active("backtest"); got != 0 {
		t.Errorf("active jobs = %d, want 0", got)
	}
}

func TestBacktestHandler_Create_ParamsMergeOverConfigured(t *testing.T) {
	configured := strategy.Params{RSIMACD: strategy.RSIMACDParams{RSIPeriod: 10, Overbought: 80, Oversold: 20}}

	tests := []struct {
		name   string
		params string
		want   strategy.RSIMACDParams
	}{
		{"unknown only", `{"rsi_macd": {"lookback": 5}, "ema_cross": {"fast": 9}}`, configured.RSIMACD},
		{"partial", `{"rsi_macd": {"rsi_oversold": 0}}`, strategy.RSIMACDParams{RSIPeriod: 10, Overbought: 80, Oversold: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := job.NewStore(10, time.Hour)
			runner := &fakeRunner{params: configured, result: &backtest.Result{RunID: "run-1"}}
			h := NewBacktestHandler(store, runner, nil, nil, nil)

			w := createBacktest(t, h, `{"symbol": "AAPL", "start_date": "2023-01-01", "end_date": "2024-01-01", "params": `+tt.params+`}`)
			if w.Code != http.StatusAccepted {
				t.Fatalf("status = %d, want 202: %s", w.Code, w.Body.String())
			}
			waitForJob(t, store, decodeData(t, w)["job_id"].(string))

			if got := runner.config().Params.RSIMACD; got != tt.want {
				t.Errorf("params = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestBacktestHandler_Create_Busy(t *testing.T) {
	store := job.NewStore(1, time.Hour)
	runner := &fakeRunner{release: make(chan struct{}), result: &backtest.Result{RunID: "run-1"}}
	h := NewBacktestHandler(store, runner, nil, nil, nil)
	body := `{"symbol": "AAPL", "start_date": "2023-01-01", "end_date": "2024-01-01"}`

	w := createBacktest(t, h, body)
	if w.Code != http.StatusAccepted {
		t.Fatalf("first status = %d, want 202", w.Code)
	}
	first := decodeData(t, w)["job_id"].(string)

	w = createBacktest(t, h, body)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("second status = %d, want 503", w.Code)
	}
	if got := decodeError(t, w).Code; got != core.ErrBusy.Code {
		t.Errorf("code = %s, want %s", got, core.ErrBusy.Code)
	}

	close(runner.release)
	if j := waitForJob(t, store, first); j.Status != job.StatusComplete {
		t.Errorf("running job status = %s, want complete", j.Status)
	}

	if w := createBacktest(t, h, body); w.Code != http.StatusAccepted {
		t.Errorf("status after finish = %d, want 202", w.Code)
	}
}

func TestBacktestHandler_Create_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"missing symbol", `{"start_date": "2023-01-01", "end_date": "2024-01-01"}`, core.ErrConfigInvalid.Code},
		{"missing dates", `{"symbol": "AAPL"}`, core.ErrConfigInvalid.Code},
		{"bad date", `{"symbol": "AAPL", "start_date": "01/01/2023", "end_date": "2024-01-01"}`, core.ErrConfigInvalid.Code},
		{"end before start", `{"symbol": "AAPL", "start_date": "2024-01-01", "end_date": "2023-01-01"}`, core.ErrConfigInvalid.Code},
		{"fraction too large", `{"symbol": "AAPL", "start_date": "2023-01-01", "end_date": "2024-01-01", "position_fraction": 1.5}`, core.ErrConfigInvalid.Code},
		{"negative capital", `{"symbol": "AAPL", "start_date": "2023-01-01", "end_date": "2024-01-01", "initial_capital": -1}`, core.ErrConfigInvalid.Code},
		{"bad param type", `{"symbol": "AAPL", "start_date": "2023-01-01", "end_date": "2024-01-01", "params": {"rsi_macd": {"rsi_period": "fast"}}}`, core.ErrConfigInvalid.Code},
		{"malformed json", `{"symbol":`, core.ErrConfigInvalid.Code},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := job.NewStore(100, time.Hour)
			h := NewBacktestHandler(store, &fakeRunner{}, nil, nil, nil)

			w := createBacktest(t, h, tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", w.Code, w.Body.String())
			}
			if got := decodeError(t, w).Code; got != tt.code {
				t.Errorf("code = %s, want %s", got, tt.code)
			}
			if n := len(store.List()); n != 0 {
				t.Errorf("jobs created = %d, want 0", n)
			}
		})
	}
}

func TestBacktestHandler_FailedJob(t *testing.T) {
	store := job.NewStore(100, time.Hour)
	runner := &fakeRunner{err: core.WrapError(core.ErrDataUnavailable, nil)}
	h := NewBacktestHandler(store, runner, nil, nil, nil)

	w := createBacktest(t, h, `{"symbol": "AAPL", "start_date": "2023-01-01", "end_date": "2024-01-01"}`)
	id := decodeData(t, w)["job_id"].(string)
	waitForJob(t, store, id)

	req := httptest.NewRequest(http.MethodGet, "/api/backtest/"+id, nil)
	w = serve("GET /api/backtest/{id}", h.GetStatus, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	data := decodeData(t, w)
	if data["status"] != string(job.StatusFailed) {
		t.Errorf("status = %v, want failed", data["status"])
	}
	if _, ok := data["result"]; ok {
		t.Error("failed job should not carry a result")
	}
	jobErr := data["error"].(map[string]any)
	if jobErr["code"] != core.ErrDataUnavailable.Code {
		t.Errorf("error code = %v, want %s", jobErr["code"], core.ErrDataUnavailable.Code)
	}
}

func TestBacktestHandler_GetStatus_Complete(t *testing.T) {
	store := job.NewStore(100, time.Hour)
	runner := &fakeRunner{result: &backtest.Result{
		RunID:    "run-1",
		Strategy: "combined",
		Report:   backtest.Report{TotalTrades: 3, FinalCapital: 101000},
	}}
	h := NewBacktestHandler(store, runner, nil, nil, nil)

	w := createBacktest(t, h, `{"symbol": "AAPL", "start_date": "2023-01-01", "end_date": "2024-01-01"}`)
	id := decodeData(t, w)["job_id"].(string)
	waitForJob(t, store, id)

	req := httptest.NewRequest(http.MethodGet, "/api/backtest/"+id, nil)
	w = serve("GET /api/backtest/{id}", h.GetStatus, req)

	data := decodeData(t, w)
	if data["status"] != string(job.StatusComplete) {
		t.Fatalf("status = %v, want complete", data["status"])
	}
	if got := data["progress"].(float64); got != 100 {
		t.Errorf("progress = %v, want 100", got)
	}
	result := data["result"].(map[string]any)
	report := result["metrics"].(map[string]any)
	if got := report["total_trades"].(float64); got != 3 {
		t.Errorf("total_trades = %v, want 3", got)
	}
}

func TestBacktestHandler_GetStatus_NotFound(t *testing.T) {
	h := NewBacktestHandler(job.NewStore(100, time.Hour), &fakeRunner{}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/backtest/nonexistent", nil)
	w := serve("GET /api/backtest/{id}", h.GetStatus, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestBacktestHandler_Results(t *testing.T) {
	fs, err := archive.NewLocalFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalFS() error = %v", err)
	}
	results := archive.NewResults(fs)
	for _, id := range []string{"run-b", "run-a"} {
		res := &backtest.Result{RunID: id, Config: backtest.Config{Symbol: "AAPL"}, Strategy: "combined"}
		if _, err := results.Save(context.Background(), res); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	h := NewBacktestHandler(job.NewStore(10, time.Hour), &fakeRunner{}, results, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/backtest/results/aapl", nil)
	w := serve("GET /api/backtest/results/{symbol}", h.ListResults, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", w.Code)
	}
	ids := decodeData(t, w)["run_ids"].([]any)
	if len(ids) != 2 || ids[0] != "run-a" {
		t.Errorf("run_ids = %v, want [run-a run-b]", ids)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/backtest/results/AAPL/run-b", nil)
	w = serve("GET /api/backtest/results/{symbol}/{run_id}", h.GetResult, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200", w.Code)
	}
	if got := decodeData(t, w)["run_id"]; got != "run-b" {
		t.Errorf("run_id = %v, want run-b", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/backtest/results/AAPL/missing", nil)
	w = serve("GET /api/backtest/results/{symbol}/{run_id}", h.GetResult, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing status = %d, want 404", w.Code)
	}
}

func TestBacktestHandler_Results_NoArchive(t *testing.T) {
	h := NewBacktestHandler(job.NewStore(10, time.Hour), &fakeRunner{}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/backtest/results/AAPL", nil)
	w := serve("GET /api/backtest/results/{symbol}", h.ListResults, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
