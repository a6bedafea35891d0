// Package webhook implements an HTTP webhook notifier
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/newthinker/algotrade/internal/core"
)

// Webhook posts signals as JSON to a URL
type Webhook struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// New creates a new Webhook notifier
func New(url string, headers map[string]string) (*Webhook, error) {
	if url == "" {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("webhook: url is required"))
	}
	return &Webhook{
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (w *Webhook) Name() string { return "webhook" }

// payload is the wire form of one signal
type payload struct {
	Type       string      `json:"type"`
	ID         string      `json:"id,omitempty"`
	Symbol     string      `json:"symbol"`
	Signal     core.Action `json:"signal"`
	Confidence int         `json:"confidence"`
	EntryPrice float64     `json:"entry_price"`
	StopLoss   float64     `json:"stop_loss"`
	Target     float64     `json:"target"`
	RiskReward float64     `json:"risk_reward"`
	Reasoning  string      `json:"reasoning"`
	Strategy   string      `json:"strategy"`
	Timeframe  string      `json:"timeframe"`
	Timestamp  string      `json:"timestamp"`
}

type batchPayload struct {
	Type    string    `json:"type"`
	Count   int       `json:"count"`
	Signals []payload `json:"signals"`
}

func (w *Webhook) Send(ctx context.Context, signal core.Signal) error {
	return w.post(ctx, toPayload(signal))
}

func (w *Webhook) SendBatch(ctx context.Context, signals []core.Signal) error {
	if len(signals) == 0 {
		return nil
	}

	b := batchPayload{Type: "batch", Count: len(signals), Signals: make([]payload, len(signals))}
	for i, sig := range signals {
		b.Signals[i] = toPayload(sig)
	}

	return w.post(ctx, b)
}

func toPayload(signal core.Signal) payload {
	return payload{
		Type:       "signal",
		ID:         signal.ID,
		Symbol:     signal.Symbol,
		Signal:     signal.Action,
		Confidence: signal.Confidence,
		EntryPrice: signal.EntryPrice,
		StopLoss:   signal.StopLoss,
		Target:     signal.Target,
		RiskReward: signal.RiskReward,
		Reasoning:  signal.Reasoning,
		Strategy:   signal.Strategy,
		Timeframe:  signal.Timeframe,
		Timestamp:  signal.Timestamp.Format(time.RFC3339),
	}
}

func (w *Webhook) post(ctx context.Context, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("webhook: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("webhook: failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: server returned %d", resp.StatusCode)
	}

	return nil
}
