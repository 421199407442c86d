package jobs

import (
	"context"
	"log"
	"time"

	"options-market/internal/services"
)

// MarketResolver automatically resolves markets whose end time has passed,
// using the oracle price for the market's label. Markets whose label the
// oracle does not recognize are left for manual resolution.
type MarketResolver struct {
	markets    *services.MarketService
	settlement *services.SettlementService
	oracle     services.Oracle
	interval   time.Duration
	stopChan   chan struct{}
}

// NewMarketResolver creates a new market resolver job
func NewMarketResolver(markets *services.MarketService, settlement *services.SettlementService, oracle services.Oracle, interval time.Duration) *MarketResolver {
	return &MarketResolver{
		markets:    markets,
		settlement: settlement,
		oracle:     oracle,
		interval:   interval,
		stopChan:   make(chan struct{}),
	}
}

// Start begins the market resolution loop
func (mr *MarketResolver) Start() {
	log.Printf("[MarketResolver] Starting market resolution job (interval: %v)", mr.interval)

	ticker := time.NewTicker(mr.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			mr.resolveExpiredMarkets()
		case <-mr.stopChan:
			log.Println("[MarketResolver] Stopping market resolution job")
			return
		}
	}
}

// Stop stops the market resolution loop
func (mr *MarketResolver) Stop() {
	close(mr.stopChan)
}

// resolveExpiredMarkets finds expired active markets and resolves each
// against its oracle price. One market failing never blocks the rest.
func (mr *MarketResolver) resolveExpiredMarkets() {
	ctx := context.Background()

	markets, err := mr.markets.ListExpiredActive(ctx, 100)
	if err != nil {
		log.Printf("[MarketResolver] Error fetching expired markets: %v", err)
		return
	}
	if len(markets) == 0 {
		return
	}

	log.Printf("[MarketResolver] Resolving %d expired markets", len(markets))

	resolvedCount := 0
	for _, market := range markets {
		finalPrice, observedAt, err := mr.oracle.FinalPrice(ctx, market.Label)
		if err != nil {
			log.Printf("[MarketResolver] No price for market %d (%s): %v", market.ID, market.Label, err)
			continue
		}

		if _, err := mr.settlement.AutoResolve(ctx, market.ID, finalPrice); err != nil {
			log.Printf("[MarketResolver] Error resolving market %d: %v", market.ID, err)
			continue
		}

		log.Printf("[MarketResolver] Resolved market %d (%s) at %d (price observed %v)",
			market.ID, market.Label, finalPrice, observedAt)
		resolvedCount++
	}

	if resolvedCount > 0 {
		log.Printf("[MarketResolver] Resolved %d/%d expired markets", resolvedCount, len(markets))
	}
}
