// ============================================================================
// Nexus Finance Platform
// ============================================================================
//
// Package:     engine
// Description: Market data orchestration with TTL caching and batch fetch
// ============================================================================

package engine

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/nexus-finance/platform/internal/market/provider"
	"github.com/nexus-finance/platform/pkg/core/cache"
	"github.com/nexus-finance/platform/pkg/core/logging"
)

// SupportedFiat lists the fiat currencies the convert endpoint accepts
var SupportedFiat = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true, "VND": true,
	"AUD": true, "CAD": true, "SGD": true, "CNY": true, "HKD": true,
	"KRW": true, "THB": true, "MYR": true, "PHP": true, "IDR": true,
	"INR": true, "CHF": true, "SEK": true, "NOK": true, "DKK": true,
	"NZD": true, "AED": true, "SAR": true, "TRY": true, "BRL": true,
	"MXN": true,
}

// SupportedCrypto lists the crypto assets the convert endpoint accepts
var SupportedCrypto = map[string]bool{
	"BTC": true, "ETH": true, "BNB": true, "SOL": true, "XRP": true,
	"ADA": true, "DOGE": true, "LTC": true, "TRX": true, "AVAX": true,
	"DOT": true, "LINK": true, "USDT": true,
}

// Config holds engine tuning knobs
type Config struct {
	QuoteTTL         time.Duration
	PriceTTL         time.Duration
	IndicesTTL       time.Duration
	CandlesTTL       time.Duration
	CandlesShortTTL  time.Duration
	FXTTL            time.Duration
	BatchConcurrency int
}

// DefaultConfig returns the engine defaults
func DefaultConfig() Config {
	return Config{
		QuoteTTL:         25 * time.Second,
		PriceTTL:         60 * time.Second,
		IndicesTTL:       30 * time.Second,
		CandlesTTL:       25 * time.Second,
		CandlesShortTTL:  8 * time.Second,
		FXTTL:            10 * time.Minute,
		BatchConcurrency: 6,
	}
}

// Engine is the high-level facade for market operations
type Engine struct {
	provider provider.Provider
	cache    *cache.Cache
	cfg      Config
	logger   *logging.Logger

	mu          sync.Mutex
	fetchLocks  map[string]*fetchLock
	initialized bool
}

// fetchLock serializes provider calls for one cache key. Entries are
// reference-counted so the lock map cannot grow with the key space.
type fetchLock struct {
	mu   sync.Mutex
	refs int
}

// New creates a market engine. The cache may be nil, disabling caching.
func New(p provider.Provider, c *cache.Cache, cfg Config) *Engine {
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = 6
	}
	return &Engine{
		provider:   p,
		cache:      c,
		cfg:        cfg,
		logger:     logging.New("market-engine"),
		fetchLocks: make(map[string]*fetchLock),
	}
}

// Initialize marks the engine ready
func (e *Engine) Initialize() {
	e.mu.Lock()
	e.initialized = true
	e.mu.Unlock()
	e.logger.Info("Market engine initialized", "provider", e.provider.Name())
}

// Shutdown releases engine resources
func (e *Engine) Shutdown() {
	e.mu.Lock()
	e.initialized = false
	e.mu.Unlock()
	e.logger.Info("Market engine shut down")
}

// Initialized reports whether Initialize has been called
func (e *Engine) Initialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initialized
}

// Provider returns the active data provider
func (e *Engine) Provider() provider.Provider {
	return e.provider
}

// CacheStats returns cache statistics, or nil without a cache
func (e *Engine) CacheStats() map[string]interface{} {
	if e.cache == nil {
		return nil
	}
	return e.cache.Stats()
}

// acquireLock takes the fetch lock for a cache key, creating it on demand
func (e *Engine) acquireLock(key string) *fetchLock {
	e.mu.Lock()
	l, ok := e.fetchLocks[key]
	if !ok {
		l = &fetchLock{}
		e.fetchLocks[key] = l
	}
	l.refs++
	e.mu.Unlock()

	l.mu.Lock()
	return l
}

// releaseLock unlocks and drops the map entry once no caller holds it
func (e *Engine) releaseLock(key string, l *fetchLock) {
	l.mu.Unlock()

	e.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(e.fetchLocks, key)
	}
	e.mu.Unlock()
}

// GetPrice returns the latest price for a symbol
func (e *Engine) GetPrice(ctx context.Context, symbol string) (float64, error) {
	symbol = normalizeSymbol(symbol)
	key := "price:" + symbol

	if e.cache != nil {
		if v, ok := e.cache.Get(key); ok {
			if price, ok := v.(float64); ok {
				return price, nil
			}
		}
	}

	q, err := e.GetQuote(ctx, symbol)
	if err != nil {
		return 0, err
	}
	if e.cache != nil && q.Price > 0 {
		e.cache.SetWithTTL(key, q.Price, e.cfg.PriceTTL)
	}
	return q.Price, nil
}

// GetQuote returns a full quote snapshot for one symbol. Concurrent
// requests for the same symbol share a single provider call.
func (e *Engine) GetQuote(ctx context.Context, symbol string) (*provider.Quote, error) {
	symbol = normalizeSymbol(symbol)
	key := "quote:" + symbol

	if q := e.cachedQuote(key); q != nil {
		return q, nil
	}

	lock := e.acquireLock(key)
	defer e.releaseLock(key, lock)

	// Another request may have filled the cache while we waited
	if q := e.cachedQuote(key); q != nil {
		return q, nil
	}

	q, err := e.provider.Quote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if e.cache != nil && q.Price > 0 {
		e.cache.SetWithTTL(key, q, e.cfg.QuoteTTL)
	}
	return q, nil
}

func (e *Engine) cachedQuote(key string) *provider.Quote {
	if e.cache == nil {
		return nil
	}
	if v, ok := e.cache.Get(key); ok {
		if q, ok := v.(*provider.Quote); ok {
			return q
		}
	}
	return nil
}

// GetQuotes fetches quotes for a batch of symbols. Cached entries are
// served directly; the rest are fetched with bounded concurrency.
// Symbols whose fetch fails are omitted from the result.
func (e *Engine) GetQuotes(ctx context.Context, symbols []string) []*provider.Quote {
	normalized := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s = normalizeSymbol(s); s != "" {
			normalized = append(normalized, s)
		}
	}
	if len(normalized) == 0 {
		return nil
	}

	bySymbol := make(map[string]*provider.Quote, len(normalized))
	var missed []string
	for _, sym := range normalized {
		if q := e.cachedQuote("quote:" + sym); q != nil {
			bySymbol[sym] = q
		} else {
			missed = append(missed, sym)
		}
	}

	if len(missed) > 0 {
		var mu sync.Mutex
		var wg sync.WaitGroup
		sem := make(chan struct{}, e.cfg.BatchConcurrency)

		for _, sym := range missed {
			wg.Add(1)
			go func(sym string) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()

				q, err := e.GetQuote(ctx, sym)
				if err != nil {
					e.logger.Warn("Batch quote fetch failed", "symbol", sym, "error", err)
					return
				}
				mu.Lock()
				bySymbol[sym] = q
				mu.Unlock()
			}(sym)
		}
		wg.Wait()
	}

	result := make([]*provider.Quote, 0, len(normalized))
	seen := make(map[string]bool, len(normalized))
	for _, sym := range normalized {
		if seen[sym] {
			continue
		}
		seen[sym] = true
		if q, ok := bySymbol[sym]; ok {
			result = append(result, q)
		}
	}
	return result
}

// GetIndices returns the ticker-strip market overview
func (e *Engine) GetIndices(ctx context.Context) ([]provider.Index, error) {
	key := "indices:overview"

	if e.cache != nil {
		if v, ok := e.cache.Get(key); ok {
			if indices, ok := v.([]provider.Index); ok {
				return indices, nil
			}
		}
	}

	indices, err := e.provider.Indices(ctx)
	if err != nil {
		return nil, err
	}
	if e.cache != nil && len(indices) > 0 {
		e.cache.SetWithTTL(key, indices, e.cfg.IndicesTTL)
	}
	return indices, nil
}

// GetHistory returns daily historical data for a symbol
func (e *Engine) GetHistory(ctx context.Context, symbol string, days int) ([]provider.HistoryPoint, error) {
	return e.provider.History(ctx, normalizeSymbol(symbol), days)
}

// GetCandles returns OHLCV bars with a short-lived cache for charting.
// Intraday intervals get the shorter TTL.
func (e *Engine) GetCandles(ctx context.Context, symbol, interval string, limit int) (*provider.CandleSeries, error) {
	symbol = normalizeSymbol(symbol)
	key := fmt.Sprintf("candles:%s:%s:%d", symbol, interval, limit)

	if series := e.cachedCandles(key); series != nil {
		return series, nil
	}

	lock := e.acquireLock(key)
	defer e.releaseLock(key, lock)

	if series := e.cachedCandles(key); series != nil {
		return series, nil
	}

	series, err := e.provider.Candles(ctx, symbol, interval, limit)
	if err != nil {
		return nil, err
	}
	if e.cache != nil && len(series.Candles) > 0 {
		ttl := e.cfg.CandlesTTL
		if interval == "1m" || interval == "5m" {
			ttl = e.cfg.CandlesShortTTL
		}
		e.cache.SetWithTTL(key, series, ttl)
	}
	return series, nil
}

func (e *Engine) cachedCandles(key string) *provider.CandleSeries {
	if e.cache == nil {
		return nil
	}
	if v, ok := e.cache.Get(key); ok {
		if series, ok := v.(*provider.CandleSeries); ok {
			return series
		}
	}
	return nil
}

// Conversion is the result of a currency conversion
type Conversion struct {
	Amount       float64   `json:"amount"`
	FromCurrency string    `json:"from_currency"`
	ToCurrency   string    `json:"to_currency"`
	Rate         float64   `json:"rate"`
	Converted    float64   `json:"converted"`
	Source       string    `json:"source"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Convert converts an amount between supported fiat and crypto
// currencies by routing both legs through USD
func (e *Engine) Convert(ctx context.Context, amount float64, from, to string) (*Conversion, error) {
	source := strings.ToUpper(strings.TrimSpace(from))
	target := strings.ToUpper(strings.TrimSpace(to))

	if source == target {
		return &Conversion{
			Amount:       amount,
			FromCurrency: source,
			ToCurrency:   target,
			Rate:         1.0,
			Converted:    amount,
			Source:       "identity",
			UpdatedAt:    time.Now().UTC(),
		}, nil
	}

	sourceRate, sourceFeed, err := e.usdRate(ctx, source)
	if err != nil {
		return nil, err
	}
	targetRate, targetFeed, err := e.usdRate(ctx, target)
	if err != nil {
		return nil, err
	}
	if sourceRate <= 0 || targetRate <= 0 {
		return nil, fmt.Errorf("rate provider returned invalid conversion data")
	}

	rate := sourceRate / targetRate
	return &Conversion{
		Amount:       amount,
		FromCurrency: source,
		ToCurrency:   target,
		Rate:         round10(rate),
		Converted:    round10(amount * rate),
		Source:       sourceFeed + "+" + targetFeed,
		UpdatedAt:    time.Now().UTC(),
	}, nil
}

// usdRate resolves a currency's USD rate, caching successful lookups
func (e *Engine) usdRate(ctx context.Context, code string) (float64, string, error) {
	var (
		key  string
		feed string
		fn   func(context.Context, string) (float64, error)
	)
	switch {
	case SupportedCrypto[code]:
		key = "fx:crypto-usd:" + code
		feed = "crypto:" + e.provider.Name()
		fn = e.provider.CryptoUSDRate
	case SupportedFiat[code]:
		key = "fx:fiat-usd:" + code
		feed = "fiat:" + e.provider.Name()
		fn = e.provider.FiatUSDRate
	default:
		return 0, "", &UnsupportedCurrencyError{Code: code}
	}

	if e.cache != nil {
		if v, ok := e.cache.Get(key); ok {
			if rate, ok := v.(float64); ok && rate > 0 {
				return rate, feed, nil
			}
		}
	}

	rate, err := fn(ctx, code)
	if err != nil {
		return 0, "", err
	}
	if e.cache != nil && rate > 0 {
		e.cache.SetWithTTL(key, rate, e.cfg.FXTTL)
	}
	return rate, feed, nil
}

// UnsupportedCurrencyError marks a currency outside the supported sets
type UnsupportedCurrencyError struct {
	Code string
}

func (e *UnsupportedCurrencyError) Error() string {
	return fmt.Sprintf("unsupported currency: %s", e.Code)
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func round10(f float64) float64 {
	return math.Round(f*1e10) / 1e10
}
