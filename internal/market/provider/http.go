// ============================================================================
// Nexus Finance Platform
// ============================================================================
//
// Package:     provider
// Description: Live market data provider over HTTP (Binance + FX + quote API)
// ============================================================================

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nexus-finance/platform/pkg/core/logging"
)

const (
	binanceTickerURL = "https://api.binance.com/api/v3/ticker/24hr"
	binanceKlinesURL = "https://api.binance.com/api/v3/klines"
	openERAPIURL     = "https://open.er-api.com/v6/latest/%s"

	userAgent = "NexusFinance/1.0 (+market-provider)"
)

// cryptoAliases maps bare crypto codes to their Binance USDT pair
var cryptoAliases = map[string]string{
	"BTC":  "BTCUSDT",
	"ETH":  "ETHUSDT",
	"BNB":  "BNBUSDT",
	"SOL":  "SOLUSDT",
	"XRP":  "XRPUSDT",
	"ADA":  "ADAUSDT",
	"DOGE": "DOGEUSDT",
	"LTC":  "LTCUSDT",
	"TRX":  "TRXUSDT",
	"AVAX": "AVAXUSDT",
	"DOT":  "DOTUSDT",
	"LINK": "LINKUSDT",
}

// indexSymbols is the default ticker-strip lineup
var indexSymbols = []string{"SPX", "DOW", "BTC", "ETH", "GOLD"}

// HTTPConfig configures the live provider
type HTTPConfig struct {
	// BaseURL of the stock quote API; crypto symbols bypass it and go to
	// Binance directly
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// HTTPProvider fetches live market data over HTTP
type HTTPProvider struct {
	cfg    HTTPConfig
	client *http.Client
	logger *logging.Logger
}

// NewHTTPProvider creates a live provider
func NewHTTPProvider(cfg HTTPConfig) *HTTPProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &HTTPProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logging.New("market-provider"),
	}
}

// Name implements Provider
func (p *HTTPProvider) Name() string {
	return "http"
}

// Quote implements Provider
func (p *HTTPProvider) Quote(ctx context.Context, symbol string) (*Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	if pair, ok := cryptoAliases[symbol]; ok {
		return p.binanceQuote(ctx, symbol, pair)
	}
	return p.stockQuote(ctx, symbol)
}

// binanceTicker is the subset of the Binance 24hr ticker payload we use
type binanceTicker struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChange        string `json:"priceChange"`
	PriceChangePercent string `json:"priceChangePercent"`
	HighPrice          string `json:"highPrice"`
	LowPrice           string `json:"lowPrice"`
	Volume             string `json:"volume"`
}

func (p *HTTPProvider) binanceQuote(ctx context.Context, symbol, pair string) (*Quote, error) {
	var ticker binanceTicker
	if err := p.getJSON(ctx, binanceTickerURL+"?symbol="+url.QueryEscape(pair), &ticker); err != nil {
		return nil, fmt.Errorf("binance ticker for %s: %w", pair, err)
	}

	high := parseFloat(ticker.HighPrice)
	low := parseFloat(ticker.LowPrice)
	return &Quote{
		Symbol:        symbol,
		Name:          symbol,
		Price:         parseFloat(ticker.LastPrice),
		Change:        parseFloat(ticker.PriceChange),
		ChangePercent: parseFloat(ticker.PriceChangePercent),
		Volume:        int64(parseFloat(ticker.Volume)),
		DayHigh:       &high,
		DayLow:        &low,
	}, nil
}

// stockQuotePayload is the generic quote API response shape
type stockQuotePayload struct {
	Symbol        string   `json:"symbol"`
	Name          string   `json:"name"`
	Price         float64  `json:"price"`
	Change        float64  `json:"change"`
	ChangePercent float64  `json:"change_percent"`
	Volume        int64    `json:"volume"`
	DayHigh       *float64 `json:"day_high"`
	DayLow        *float64 `json:"day_low"`
}

func (p *HTTPProvider) stockQuote(ctx context.Context, symbol string) (*Quote, error) {
	if p.cfg.BaseURL == "" {
		return nil, fmt.Errorf("no quote API configured for symbol %s", symbol)
	}

	endpoint := fmt.Sprintf("%s/quote?symbol=%s", strings.TrimSuffix(p.cfg.BaseURL, "/"), url.QueryEscape(symbol))
	var payload stockQuotePayload
	if err := p.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("quote for %s: %w", symbol, err)
	}

	name := payload.Name
	if name == "" {
		name = symbol
	}
	return &Quote{
		Symbol:        symbol,
		Name:          name,
		Price:         payload.Price,
		Change:        payload.Change,
		ChangePercent: payload.ChangePercent,
		Volume:        payload.Volume,
		DayHigh:       payload.DayHigh,
		DayLow:        payload.DayLow,
	}, nil
}

// Indices implements Provider. Symbols that fail to resolve are skipped
// so one dead feed does not empty the ticker strip.
func (p *HTTPProvider) Indices(ctx context.Context) ([]Index, error) {
	indices := make([]Index, 0, len(indexSymbols))
	for _, sym := range indexSymbols {
		q, err := p.Quote(ctx, sym)
		if err != nil {
			p.logger.Debug("Index quote failed", "symbol", sym, "error", err)
			continue
		}
		indices = append(indices, Index{
			Symbol:        sym,
			Name:          q.Name,
			Value:         q.Price,
			Change:        q.Change,
			ChangePercent: q.ChangePercent,
		})
	}
	return indices, nil
}

// History implements Provider. Crypto history is derived from daily candles.
func (p *HTTPProvider) History(ctx context.Context, symbol string, days int) ([]HistoryPoint, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	if _, ok := cryptoAliases[symbol]; ok {
		series, err := p.Candles(ctx, symbol, "1d", days)
		if err != nil {
			return nil, err
		}
		points := make([]HistoryPoint, 0, len(series.Candles))
		for _, c := range series.Candles {
			points = append(points, HistoryPoint{
				Date:   c.Time.Format("2006-01-02"),
				Close:  c.Close,
				Volume: int64(c.Volume),
			})
		}
		return points, nil
	}

	if p.cfg.BaseURL == "" {
		return nil, fmt.Errorf("no quote API configured for symbol %s", symbol)
	}
	endpoint := fmt.Sprintf("%s/history?symbol=%s&days=%d",
		strings.TrimSuffix(p.cfg.BaseURL, "/"), url.QueryEscape(symbol), days)
	var points []HistoryPoint
	if err := p.getJSON(ctx, endpoint, &points); err != nil {
		return nil, fmt.Errorf("history for %s: %w", symbol, err)
	}
	return points, nil
}

// Candles implements Provider
func (p *HTTPProvider) Candles(ctx context.Context, symbol, interval string, limit int) (*CandleSeries, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	if pair, ok := cryptoAliases[symbol]; ok {
		return p.binanceCandles(ctx, symbol, pair, interval, limit)
	}

	if p.cfg.BaseURL == "" {
		return nil, fmt.Errorf("no quote API configured for symbol %s", symbol)
	}
	endpoint := fmt.Sprintf("%s/candles?symbol=%s&interval=%s&limit=%d",
		strings.TrimSuffix(p.cfg.BaseURL, "/"), url.QueryEscape(symbol), url.QueryEscape(interval), limit)
	var series CandleSeries
	if err := p.getJSON(ctx, endpoint, &series); err != nil {
		return nil, fmt.Errorf("candles for %s: %w", symbol, err)
	}
	if series.Symbol == "" {
		series.Symbol = symbol
	}
	if series.Interval == "" {
		series.Interval = interval
	}
	if series.Source == "" {
		series.Source = "quote-api"
	}
	return &series, nil
}

func (p *HTTPProvider) binanceCandles(ctx context.Context, symbol, pair, interval string, limit int) (*CandleSeries, error) {
	endpoint := fmt.Sprintf("%s?symbol=%s&interval=%s&limit=%d",
		binanceKlinesURL, url.QueryEscape(pair), url.QueryEscape(interval), limit)

	// Binance klines come as arrays of mixed-type values
	var raw [][]interface{}
	if err := p.getJSON(ctx, endpoint, &raw); err != nil {
		return nil, fmt.Errorf("binance klines for %s: %w", pair, err)
	}

	candles := make([]Candle, 0, len(raw))
	for _, row := range raw {
		if len(row) < 6 {
			continue
		}
		openTime, _ := row[0].(float64)
		candles = append(candles, Candle{
			Time:   time.UnixMilli(int64(openTime)).UTC(),
			Open:   parseFloat(fmt.Sprint(row[1])),
			High:   parseFloat(fmt.Sprint(row[2])),
			Low:    parseFloat(fmt.Sprint(row[3])),
			Close:  parseFloat(fmt.Sprint(row[4])),
			Volume: parseFloat(fmt.Sprint(row[5])),
		})
	}

	return &CandleSeries{
		Symbol:   symbol,
		Interval: interval,
		Source:   "binance",
		Candles:  candles,
	}, nil
}

// FiatUSDRate implements Provider
func (p *HTTPProvider) FiatUSDRate(ctx context.Context, code string) (float64, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "USD" {
		return 1.0, nil
	}

	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := p.getJSON(ctx, fmt.Sprintf(openERAPIURL, url.PathEscape(code)), &payload); err != nil {
		return 0, fmt.Errorf("fx rate for %s: %w", code, err)
	}
	rate := payload.Rates["USD"]
	if rate <= 0 {
		return 0, fmt.Errorf("USD rate unavailable for %s", code)
	}
	return rate, nil
}

// CryptoUSDRate implements Provider
func (p *HTTPProvider) CryptoUSDRate(ctx context.Context, code string) (float64, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "USDT" {
		return 1.0, nil
	}

	q, err := p.Quote(ctx, code)
	if err != nil {
		return 0, err
	}
	if q.Price <= 0 {
		return 0, fmt.Errorf("no USD price for %s", code)
	}
	return q.Price, nil
}

// getJSON performs a GET request and decodes the JSON response
func (p *HTTPProvider) getJSON(ctx context.Context, endpoint string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if p.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
