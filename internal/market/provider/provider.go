// ============================================================================
// Nexus Finance Platform
// ============================================================================
//
// Package:     provider
// Description: Market data provider interface and shared types
// ============================================================================

package provider

import (
	"context"
	"time"
)

// Quote is a real-time price snapshot for a single symbol
type Quote struct {
	Symbol        string   `json:"symbol"`
	Name          string   `json:"name"`
	Price         float64  `json:"price"`
	Change        float64  `json:"change"`
	ChangePercent float64  `json:"change_percent"`
	Volume        int64    `json:"volume"`
	DayHigh       *float64 `json:"day_high,omitempty"`
	DayLow        *float64 `json:"day_low,omitempty"`
}

// Index is a single entry of the market ticker strip
type Index struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Value         float64 `json:"value"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
}

// HistoryPoint is one day of historical closing data
type HistoryPoint struct {
	Date   string  `json:"date"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// Candle is a single OHLCV bar
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// CandleSeries is a chart payload for one symbol and interval
type CandleSeries struct {
	Symbol   string   `json:"symbol"`
	Interval string   `json:"interval"`
	Source   string   `json:"source"`
	Candles  []Candle `json:"candles"`
}

// Provider supplies market data. Implementations must be safe for
// concurrent use.
type Provider interface {
	Name() string
	Quote(ctx context.Context, symbol string) (*Quote, error)
	Indices(ctx context.Context) ([]Index, error)
	History(ctx context.Context, symbol string, days int) ([]HistoryPoint, error)
	Candles(ctx context.Context, symbol, interval string, limit int) (*CandleSeries, error)

	// FiatUSDRate returns how many USD one unit of the fiat currency buys
	FiatUSDRate(ctx context.Context, code string) (float64, error)
	// CryptoUSDRate returns the USD price of one unit of the crypto asset
	CryptoUSDRate(ctx context.Context, code string) (float64, error)
}
