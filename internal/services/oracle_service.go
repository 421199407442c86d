package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"options-market/internal/fixedpoint"
)

// Oracle supplies the single finalization price for a market. The engine
// consumes whatever price it is given at call time; staleness policy beyond
// the cache window below belongs to a wrapping layer.
type Oracle interface {
	FinalPrice(ctx context.Context, symbol string) (price int64, observedAt time.Time, err error)
}

// coinGeckoIDs maps market price-pair labels to CoinGecko asset ids.
var coinGeckoIDs = map[string]string{
	"SOL/USD": "solana",
	"BTC/USD": "bitcoin",
	"ETH/USD": "ethereum",
}

// cryptoCompareSymbols maps labels to CryptoCompare fsym values.
var cryptoCompareSymbols = map[string]string{
	"SOL/USD": "SOL",
	"BTC/USD": "BTC",
	"ETH/USD": "ETH",
}

type cachedPrice struct {
	price      int64
	observedAt time.Time
}

// OracleService fetches spot prices from CoinGecko with a CryptoCompare
// fallback. CoinGecko is not geo-blocked from common hosting providers, which
// is why it comes first. Prices are converted to 1e6 fixed point and cached
// for a few seconds to keep the resolver job polite.
type OracleService struct {
	pricesMux sync.RWMutex
	prices    map[string]cachedPrice

	client   *http.Client
	cacheTTL time.Duration
}

// NewOracleService creates a new oracle service
func NewOracleService() *OracleService {
	return &OracleService{
		prices:   make(map[string]cachedPrice),
		client:   &http.Client{Timeout: 10 * time.Second},
		cacheTTL: 5 * time.Second,
	}
}

// FinalPrice returns the latest price for a price pair (e.g. "SOL/USD") at
// 1e6 fixed-point scale, with the time it was observed. Fails with
// ErrPriceUnavailable when neither source can produce a price.
func (s *OracleService) FinalPrice(ctx context.Context, symbol string) (int64, time.Time, error) {
	geckoID, ok := coinGeckoIDs[symbol]
	if !ok {
		return 0, time.Time{}, fmt.Errorf("unsupported price pair %q: %w", symbol, ErrPriceUnavailable)
	}

	s.pricesMux.RLock()
	cached, hasCached := s.prices[symbol]
	s.pricesMux.RUnlock()

	if hasCached && time.Since(cached.observedAt) < s.cacheTTL {
		return cached.price, cached.observedAt, nil
	}

	price, err := s.fetchCoinGecko(ctx, geckoID)
	if err != nil {
		log.Printf("[Oracle] CoinGecko failed for %s, trying CryptoCompare: %v", symbol, err)
		price, err = s.fetchCryptoCompare(ctx, cryptoCompareSymbols[symbol])
		if err != nil {
			if hasCached {
				// Serve the stale cache rather than nothing; the caller sees
				// the real observation time and can decide.
				return cached.price, cached.observedAt, nil
			}
			return 0, time.Time{}, fmt.Errorf("no price for %s: %w", symbol, ErrPriceUnavailable)
		}
	}

	now := time.Now()
	s.pricesMux.Lock()
	s.prices[symbol] = cachedPrice{price: price, observedAt: now}
	s.pricesMux.Unlock()

	return price, now, nil
}

// fetchCoinGecko fetches one asset's USD price.
// GET https://api.coingecko.com/api/v3/simple/price?ids=<id>&vs_currencies=usd
// Response: {"solana":{"usd":195.83}}
func (s *OracleService) fetchCoinGecko(ctx context.Context, geckoID string) (int64, error) {
	url := fmt.Sprintf("https://api.coingecko.com/api/v3/simple/price?ids=%s&vs_currencies=usd", geckoID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("CoinGecko request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("CoinGecko returned %d: %s", resp.StatusCode, string(body))
	}

	var result map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("CoinGecko parse error: %w", err)
	}

	usd, ok := result[geckoID]["usd"]
	if !ok || usd <= 0 {
		return 0, fmt.Errorf("CoinGecko returned no usd price for %s", geckoID)
	}

	return int64(usd * float64(fixedpoint.Scale)), nil
}

// fetchCryptoCompare fetches one asset's USD price as fallback.
// Response: {"USD": 195.83}
func (s *OracleService) fetchCryptoCompare(ctx context.Context, fsym string) (int64, error) {
	if fsym == "" {
		return 0, fmt.Errorf("no CryptoCompare symbol")
	}

	url := fmt.Sprintf("https://min-api.cryptocompare.com/data/price?fsym=%s&tsyms=USD", fsym)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("CryptoCompare request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("CryptoCompare returned %d: %s", resp.StatusCode, string(body))
	}

	var result map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("CryptoCompare parse error: %w", err)
	}

	usd, ok := result["USD"]
	if !ok || usd <= 0 {
		return 0, fmt.Errorf("CryptoCompare returned no USD price for %s", fsym)
	}

	return int64(usd * float64(fixedpoint.Scale)), nil
}
