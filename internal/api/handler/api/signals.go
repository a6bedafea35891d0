// internal/api/handler/api/signals.go
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/newthinker/algotrade/internal/api/response"
	"github.com/newthinker/algotrade/internal/app"
	"github.com/newthinker/algotrade/internal/core"
	"github.com/newthinker/algotrade/internal/scanner"
	"github.com/newthinker/algotrade/internal/storage/signal"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// Generator produces signals on demand. *app.App satisfies it.
type Generator interface {
	Signal(ctx context.Context, symbol, strategyName string) (*scanner.Analysis, error)
	ScanOnce(ctx context.Context, symbols []string, minConfidence int) (*app.ScanResult, error)
}

// ListQuery holds the validated query parameters of GET /api/signals.
type ListQuery struct {
	Symbol        string `json:"symbol"`
	Strategy      string `json:"strategy"`
	Signal        string `json:"signal" validate:"omitempty,oneof=BUY SELL HOLD"`
	MinConfidence int    `json:"min_confidence" validate:"gte=0,lte=100"`
	Limit         int    `json:"limit" default:"50" validate:"gte=1,lte=100"`
	Offset        int    `json:"offset" validate:"gte=0"`
	From          string `json:"from" validate:"omitempty,datetime=2006-01-02"`
	To            string `json:"to" validate:"omitempty,datetime=2006-01-02"`
}

// GenerateRequest is the body of POST /api/signals/generate.
type GenerateRequest struct {
	Symbols       []string `json:"symbols" validate:"omitempty,dive,required"`
	MinConfidence int      `json:"min_confidence" validate:"gte=0,lte=100"`
}

// SignalsHandler handles signal-related API requests.
type SignalsHandler struct {
	store     signal.Store
	generator Generator
	logger    *zap.Logger
}

// NewSignalsHandler creates a new signals handler.
func NewSignalsHandler(store signal.Store, generator Generator, logger *zap.Logger) *SignalsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SignalsHandler{store: store, generator: generator, logger: logger}
}

// List returns stored signals matching the query, newest first.
func (h *SignalsHandler) List(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		response.FromError(w, err)
		return
	}

	filter := q.Filter()

	signals, err := h.store.List(r.Context(), filter)
	if err != nil {
		response.FromError(w, err)
		return
	}

	count, err := h.store.Count(r.Context(), filter)
	if err != nil {
		response.FromError(w, err)
		return
	}

	if signals == nil {
		signals = []core.Signal{}
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"signals": signals,
		"total":   count,
		"limit":   filter.Limit,
		"offset":  filter.Offset,
	})
}

// GetByID returns a single stored signal.
func (h *SignalsHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	sig, err := h.store.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, sig)
}

// ForSymbol generates a fresh signal for one symbol without persisting it.
func (h *SignalsHandler) ForSymbol(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(r.PathValue("symbol")))
	if symbol == "" {
		response.FromError(w, core.ErrConfigMissing)
		return
	}

	res, err := h.generator.Signal(r.Context(), symbol, r.URL.Query().Get("strategy"))
	if err != nil {
		h.logger.Warn("on-demand signal failed",
			zap.String("symbol", symbol),
			zap.Error(err),
		)
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, res)
}

// Generate runs a one-off scan and routes the resulting signals.
func (h *SignalsHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := decodeAndValidate(r, &req); err != nil {
		response.FromError(w, err)
		return
	}

	symbols := make([]string, 0, len(req.Symbols))
	for _, s := range req.Symbols {
		symbols = append(symbols, strings.ToUpper(strings.TrimSpace(s)))
	}

	res, err := h.generator.ScanOnce(r.Context(), symbols, req.MinConfidence)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, res)
}

// Filter converts the query into a store filter. The to date is inclusive.
func (q ListQuery) Filter() signal.ListFilter {
	f := signal.ListFilter{
		Symbol:        strings.ToUpper(q.Symbol),
		Strategy:      q.Strategy,
		Action:        core.Action(q.Signal),
		MinConfidence: q.MinConfidence,
		Limit:         q.Limit,
		Offset:        q.Offset,
	}
	if t, err := time.Parse(dateLayout, q.From); err == nil {
		f.From = t
	}
	if t, err := time.Parse(dateLayout, q.To); err == nil {
		f.To = core.EndOfDay(t)
	}
	return f
}

func parseListQuery(r *http.Request) (ListQuery, error) {
	v := r.URL.Query()
	q := ListQuery{
		Symbol:   v.Get("symbol"),
		Strategy: v.Get("strategy"),
		Signal:   strings.ToUpper(v.Get("signal")),
		From:     v.Get("from"),
		To:       v.Get("to"),
	}
	if err := defaults.Set(&q); err != nil {
		return q, core.WrapError(core.ErrConfigInvalid, err)
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"min_confidence", &q.MinConfidence},
		{"limit", &q.Limit},
		{"offset", &q.Offset},
	}
	for _, p := range ints {
		raw := v.Get(p.key)
		if raw == "" {
			continue
		}
		n, err := cast.ToIntE(raw)
		if err != nil {
			return q, core.WrapError(core.ErrConfigInvalid, err)
		}
		*p.dst = n
	}

	if err := validateStruct(r.Context(), q); err != nil {
		return q, err
	}
	return q, nil
}
