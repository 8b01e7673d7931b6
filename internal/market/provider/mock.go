// ============================================================================
// Nexus Finance Platform
// ============================================================================
//
// Package:     provider
// Description: Deterministic mock provider for development and tests
// ============================================================================

package provider

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"strings"
	"time"
)

// MockProvider serves deterministic synthetic data. Prices are derived
// from a hash of the symbol so repeated runs stay stable.
type MockProvider struct{}

// NewMockProvider creates a mock provider
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// Name implements Provider
func (p *MockProvider) Name() string {
	return "mock"
}

// basePrice derives a stable pseudo-price in [10, 1010) from the symbol
func basePrice(symbol string) float64 {
	sum := sha1.Sum([]byte(strings.ToUpper(symbol)))
	n := binary.BigEndian.Uint32(sum[:4])
	return 10 + float64(n%100000)/100
}

// Quote implements Provider
func (p *MockProvider) Quote(ctx context.Context, symbol string) (*Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	price := basePrice(symbol)
	change := price * 0.011
	high := price * 1.02
	low := price * 0.98

	return &Quote{
		Symbol:        symbol,
		Name:          fmt.Sprintf("%s (Mock)", symbol),
		Price:         price,
		Change:        change,
		ChangePercent: 1.1,
		Volume:        1_000_000,
		DayHigh:       &high,
		DayLow:        &low,
	}, nil
}

// Indices implements Provider
func (p *MockProvider) Indices(ctx context.Context) ([]Index, error) {
	indices := make([]Index, 0, len(indexSymbols))
	for _, sym := range indexSymbols {
		q, _ := p.Quote(ctx, sym)
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

// History implements Provider
func (p *MockProvider) History(ctx context.Context, symbol string, days int) ([]HistoryPoint, error) {
	price := basePrice(symbol)
	points := make([]HistoryPoint, 0, days)
	now := time.Now().UTC()
	for i := days - 1; i >= 0; i-- {
		// Gentle deterministic drift around the base price
		drift := float64((i*7)%11-5) / 100
		points = append(points, HistoryPoint{
			Date:   now.AddDate(0, 0, -i).Format("2006-01-02"),
			Close:  price * (1 + drift),
			Volume: 500_000,
		})
	}
	return points, nil
}

// Candles implements Provider
func (p *MockProvider) Candles(ctx context.Context, symbol, interval string, limit int) (*CandleSeries, error) {
	price := basePrice(symbol)
	step := intervalDuration(interval)
	now := time.Now().UTC().Truncate(step)

	candles := make([]Candle, 0, limit)
	for i := limit - 1; i >= 0; i-- {
		drift := float64((i*13)%9-4) / 200
		close := price * (1 + drift)
		candles = append(candles, Candle{
			Time:   now.Add(-time.Duration(i) * step),
			Open:   close * 0.999,
			High:   close * 1.002,
			Low:    close * 0.998,
			Close:  close,
			Volume: 10_000,
		})
	}

	return &CandleSeries{
		Symbol:   strings.ToUpper(symbol),
		Interval: interval,
		Source:   "mock",
		Candles:  candles,
	}, nil
}

// FiatUSDRate implements Provider
func (p *MockProvider) FiatUSDRate(ctx context.Context, code string) (float64, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "USD" {
		return 1.0, nil
	}
	// Stable synthetic rate in (0, 2]
	sum := sha1.Sum([]byte("fx:" + code))
	n := binary.BigEndian.Uint32(sum[:4])
	return float64(n%2000+1) / 1000, nil
}

// CryptoUSDRate implements Provider
func (p *MockProvider) CryptoUSDRate(ctx context.Context, code string) (float64, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "USDT" {
		return 1.0, nil
	}
	return basePrice(code), nil
}

func intervalDuration(interval string) time.Duration {
	switch interval {
	case "1m":
		return time.Minute
	case "2m":
		return 2 * time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "1h", "60m":
		return time.Hour
	case "4h":
		return 4 * time.Hour
	case "1w":
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}
