// internal/api/handler/api/backtest.go
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/algotrade/internal/api/job"
	"github.com/newthinker/algotrade/internal/api/response"
	"github.com/newthinker/algotrade/internal/backtest"
	"github.com/newthinker/algotrade/internal/core"
	"github.com/newthinker/algotrade/internal/metrics"
	"github.com/newthinker/algotrade/internal/storage/archive"
	"github.com/newthinker/algotrade/internal/strategy"
	"go.uber.org/zap"
)

const (
	backtestTimeout = 5 * time.Minute
	jobTypeBacktest = "backtest"
)

// Runner runs backtests. *app.App satisfies it.
type Runner interface {
	StrategyParams() strategy.Params
	BacktestConfig(cfg backtest.Config) backtest.Config
	RunBacktest(ctx context.Context, cfg backtest.Config) (*backtest.Result, error)
}

// BacktestRequest is the request body for starting a backtest.
type BacktestRequest struct {
	Symbol           string                    `json:"symbol" validate:"required"`
	Strategy         string                    `json:"strategy" default:"combined"`
	StartDate        string                    `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate          string                    `json:"end_date" validate:"required,datetime=2006-01-02"`
	InitialCapital   float64                   `json:"initial_capital" validate:"gte=0"`
	PositionFraction float64                   `json:"position_fraction" validate:"gte=0,lte=1"`
	Params           map[string]map[string]any `json:"params,omitempty"`
}

// BacktestHandler handles backtest API requests.
type BacktestHandler struct {
	jobStore *job.Store
	runner   Runner
	results  *archive.Results
	metrics  *metrics.Registry
	logger   *zap.Logger
}

// NewBacktestHandler creates a new backtest handler. results and m may be nil.
func NewBacktestHandler(
	jobStore *job.Store,
	runner Runner,
	results *archive.Results,
	m *metrics.Registry,
	logger *zap.Logger,
) *BacktestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BacktestHandler{
		jobStore: jobStore,
		runner:   runner,
		results:  results,
		metrics:  m,
		logger:   logger,
	}
}

// Config converts the request into a backtest config and returns the
// override keys that were ignored. Request params are applied over base.
func (req BacktestRequest) Config(base strategy.Params) (backtest.Config, []string, error) {
	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return backtest.Config{}, nil, core.WrapError(core.ErrConfigInvalid, err)
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		return backtest.Config{}, nil, core.WrapError(core.ErrConfigInvalid, err)
	}

	cfg := backtest.Config{
		Symbol:           strings.ToUpper(strings.TrimSpace(req.Symbol)),
		Strategy:         req.Strategy,
		Start:            start,
		End:              end,
		InitialCapital:   req.InitialCapital,
		PositionFraction: req.PositionFraction,
	}

	var ignored []string
	if len(req.Params) > 0 {
		cfg.Params, ignored, err = strategy.ParseParamsOver(base, req.Params)
		if err != nil {
			return backtest.Config{}, nil, err
		}
	}
	return cfg, ignored, nil
}

// Create validates the request and starts a backtest job.
func (h *BacktestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := decodeAndValidate(r, &req); err != nil {
		response.FromError(w, err)
		return
	}

	cfg, ignored, err := req.Config(h.runner.StrategyParams())
	if err != nil {
		response.FromError(w, err)
		return
	}

	cfg = h.runner.BacktestConfig(cfg)
	if err := cfg.WithDefaults().Validate(); err != nil {
		response.FromError(w, err)
		return
	}

	j, err := h.jobStore.Create(jobTypeBacktest)
	if err != nil {
		response.FromError(w, err)
		return
	}
	h.setActive()

	go h.run(j.ID, cfg)

	if ignored == nil {
		ignored = []string{}
	}
	response.JSON(w, http.StatusAccepted, map[string]any{
		"job_id":         j.ID,
		"status":         j.Status,
		"ignored_params": ignored,
	})
}

// run executes the backtest and updates job status.
func (h *BacktestHandler) run(jobID string, cfg backtest.Config) {
	h.update(jobID, func(j *job.Job) {
		j.Status = job.StatusRunning
	})

	ctx, cancel := context.WithTimeout(context.Background(), backtestTimeout)
	defer cancel()

	result, err := h.runner.RunBacktest(ctx, cfg)
	if err != nil {
		h.logger.Warn("backtest job failed",
			zap.String("job_id", jobID),
			zap.String("symbol", cfg.Symbol),
			zap.Error(err),
		)
		h.update(jobID, func(j *job.Job) { j.Fail(err) })
	} else {
		h.update(jobID, func(j *job.Job) { j.Complete(result) })
	}

	h.setActive()
}

func (h *BacktestHandler) update(jobID string, fn func(*job.Job)) {
	if err := h.jobStore.Update(jobID, fn); err != nil {
		h.logger.Error("failed to update backtest job",
			zap.String("job_id", jobID),
			zap.Error(err),
		)
	}
}

func (h *BacktestHandler) setActive() {
	if h.metrics != nil {
		h.metrics.SetJobsActive(jobTypeBacktest, h.jobStore.Active(jobTypeBacktest))
	}
}

// GetStatus returns the status of a backtest job.
func (h *BacktestHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	j, err := h.jobStore.Get(r.PathValue("id"))
	if err != nil {
		response.FromError(w, err)
		return
	}

	resp := map[string]any{
		"job_id":   j.ID,
		"status":   j.Status,
		"progress": j.Progress,
	}
	if j.Status == job.StatusComplete {
		resp["result"] = j.Result
	}
	if j.Status == job.StatusFailed && j.Error != nil {
		resp["error"] = j.Error
	}

	response.JSON(w, http.StatusOK, resp)
}

// ListResults returns the archived run ids for a symbol.
func (h *BacktestHandler) ListResults(w http.ResponseWriter, r *http.Request) {
	if h.results == nil {
		response.FromError(w, errArchiveDisabled)
		return
	}

	symbol := strings.ToUpper(r.PathValue("symbol"))
	ids, err := h.results.RunIDs(r.Context(), symbol)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"symbol":  symbol,
		"run_ids": ids,
	})
}

// GetResult returns one archived backtest result.
func (h *BacktestHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	if h.results == nil {
		response.FromError(w, errArchiveDisabled)
		return
	}

	res, err := h.results.Load(r.Context(), r.PathValue("symbol"), r.PathValue("run_id"))
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, res)
}

var errArchiveDisabled = core.WrapError(core.ErrNotFound, errors.New("backtest archive is not configured"))
