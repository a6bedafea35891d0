package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/newthinker/algotrade/internal/collector"
	"github.com/newthinker/algotrade/internal/core"
)

const (
	defaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	defaultTimeout = 10 * time.Second
)

// validSymbol matches stock symbols like AAPL, BRK-B, RELIANCE.NS, 0700.HK
var validSymbol = regexp.MustCompile(`^[A-Za-z0-9^\-]{1,12}(\.[A-Za-z]{1,4})?$`)

// validateSymbol checks if a symbol has valid format
func validateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if len(symbol) > 20 {
		return fmt.Errorf("symbol too long: %s", symbol)
	}
	if !validSymbol.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format: %s", symbol)
	}
	return nil
}

// Yahoo implements the Yahoo Finance chart collector
type Yahoo struct {
	client  *http.Client
	baseURL string
}

// New creates a new Yahoo collector. Zero config fields use defaults.
func New(cfg collector.Config) *Yahoo {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	return &Yahoo{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimSuffix(base, "/"),
	}
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

// toYahooSymbol converts internal symbol format to Yahoo format
func toYahooSymbol(symbol string) string {
	// Shanghai stocks: 600519.SH -> 600519.SS
	if strings.HasSuffix(symbol, ".SH") {
		return strings.TrimSuffix(symbol, ".SH") + ".SS"
	}
	return symbol
}

func toYahooInterval(interval string) string {
	switch interval {
	case "1m", "5m", "15m", "1h", "1d", "1wk":
		return interval
	default:
		return "1d"
	}
}

// FetchQuote fetches the latest quote
func (y *Yahoo) FetchQuote(ctx context.Context, symbol string) (*core.Quote, error) {
	q := url.Values{"interval": {"1d"}, "range": {"1d"}}
	r, err := y.chart(ctx, symbol, q)
	if err != nil {
		return nil, err
	}

	meta := r.Meta
	return &core.Quote{
		Symbol: symbol,
		Price:  meta.RegularMarketPrice,
		Volume: meta.RegularMarketVolume,
		Time:   time.Unix(meta.RegularMarketTime, 0).UTC(),
		Source: y.Name(),
	}, nil
}

// FetchHistory fetches historical bars
func (y *Yahoo) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.PriceBar, error) {
	q := url.Values{
		"interval": {toYahooInterval(interval)},
		"period1":  {fmt.Sprint(start.Unix())},
		// period2 is exclusive
		"period2": {fmt.Sprint(end.Unix() + 1)},
	}
	r, err := y.chart(ctx, symbol, q)
	if err != nil {
		return nil, err
	}

	if len(r.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no quote series for symbol: %s", symbol)
	}
	quotes := r.Indicators.Quote[0]

	data := make([]core.PriceBar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		if !quotes.complete(i) {
			continue // Skip missing data
		}
		var vol float64
		if i < len(quotes.Volume) && quotes.Volume[i] != nil {
			vol = *quotes.Volume[i]
		}
		data = append(data, core.PriceBar{
			Symbol:   symbol,
			Interval: interval,
			Time:     time.Unix(ts, 0).UTC(),
			Open:     *quotes.Open[i],
			High:     *quotes.High[i],
			Low:      *quotes.Low[i],
			Close:    *quotes.Close[i],
			Volume:   vol,
		})
	}

	return data, nil
}

func (y *Yahoo) chart(ctx context.Context, symbol string, q url.Values) (*chartResult, error) {
	if err := validateSymbol(symbol); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/%s?%s", y.baseURL, url.PathEscape(toYahooSymbol(symbol)), q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching chart: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if result.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo error: %s", result.Chart.Error.Description)
	}

	if len(result.Chart.Result) == 0 {
		return nil, fmt.Errorf("no data for symbol: %s", symbol)
	}

	return &result.Chart.Result[0], nil
}

// Yahoo API response types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta  `json:"meta"`
	Timestamp  []int64    `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type chartMeta struct {
	Symbol              string  `json:"symbol"`
	RegularMarketPrice  float64 `json:"regularMarketPrice"`
	RegularMarketVolume float64 `json:"regularMarketVolume"`
	RegularMarketTime   int64   `json:"regularMarketTime"`
}

type indicators struct {
	Quote []quoteIndicator `json:"quote"`
}

type quoteIndicator struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}

func (q quoteIndicator) complete(i int) bool {
	for _, s := range [][]*float64{q.Open, q.High, q.Low, q.Close} {
		if i >= len(s) || s[i] == nil {
			return false
		}
	}
	return true
}
