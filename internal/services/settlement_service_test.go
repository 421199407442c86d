package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"options-market/internal/models"
)

func TestResolveRequiresOperator(t *testing.T) {
	env := newTestEnv(t, 200)
	env.setNow(testBase)
	operator := env.createUser(t, 0, true)
	user := env.createUser(t, 0, false)
	market := env.createMarket(t, operator, 1_000_000)

	env.setNow(testBase.Add(11 * time.Minute))
	if _, err := env.settlement.Resolve(context.Background(), user.ID, market.ID, 1_100_000); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestResolveBeforeEndTime(t *testing.T) {
	env := newTestEnv(t, 200)
	env.setNow(testBase)
	operator := env.createUser(t, 0, true)
	market := env.createMarket(t, operator, 1_000_000)

	env.setNow(testBase.Add(9 * time.Minute))
	if _, err := env.settlement.Resolve(context.Background(), operator.ID, market.ID, 1_100_000); !errors.Is(err, ErrTooEarly) {
		t.Fatalf("expected ErrTooEarly, got %v", err)
	}

	// Exactly at end time is allowed.
	env.setNow(testBase.Add(10 * time.Minute))
	if _, err := env.settlement.Resolve(context.Background(), operator.ID, market.ID, 1_100_000); err != nil {
		t.Fatalf("resolve at end time failed: %v", err)
	}
}

func TestResolveOutcomes(t *testing.T) {
	cases := []struct {
		name       string
		finalPrice int64
		winner     models.Side
	}{
		{"above strike", 1_200_000, models.SideYes},
		{"below strike", 800_000, models.SideNo},
		{"tie goes to yes", 1_000_000, models.SideYes},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, 200)
			env.setNow(testBase)
			operator := env.createUser(t, 0, true)
			market := env.createMarket(t, operator, 1_000_000)

			env.setNow(testBase.Add(11 * time.Minute))
			resolved, err := env.settlement.Resolve(context.Background(), operator.ID, market.ID, tc.finalPrice)
			if err != nil {
				t.Fatalf("resolve failed: %v", err)
			}
			if resolved.Status != models.MarketStatusResolved {
				t.Fatalf("status %s", resolved.Status)
			}
			if resolved.WinningSide == nil || *resolved.WinningSide != tc.winner {
				t.Fatalf("winner %v, want %s", resolved.WinningSide, tc.winner)
			}
			if resolved.FinalPrice == nil || *resolved.FinalPrice != tc.finalPrice {
				t.Fatalf("final price %v", resolved.FinalPrice)
			}
			if resolved.ResolvedAt == nil {
				t.Fatal("resolved_at not set")
			}
		})
	}
}

func TestResolveTerminalStatesAreFinal(t *testing.T) {
	env := newTestEnv(t, 200)
	env.setNow(testBase)
	operator := env.createUser(t, 0, true)
	market := env.createMarket(t, operator, 1_000_000)

	env.setNow(testBase.Add(11 * time.Minute))
	if _, err := env.settlement.Resolve(context.Background(), operator.ID, market.ID, 1_100_000); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if _, err := env.settlement.Resolve(context.Background(), operator.ID, market.ID, 900_000); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("second resolve: expected ErrAlreadyResolved, got %v", err)
	}
	if _, err := env.settlement.Cancel(context.Background(), operator.ID, market.ID, "oops"); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("cancel after resolve: expected ErrAlreadyResolved, got %v", err)
	}
}

func TestAutoResolveSkipsOperatorCheck(t *testing.T) {
	env := newTestEnv(t, 200)
	env.setNow(testBase)
	operator := env.createUser(t, 0, true)
	market := env.createMarket(t, operator, 1_000_000)

	env.setNow(testBase.Add(11 * time.Minute))
	resolved, err := env.settlement.AutoResolve(context.Background(), market.ID, 1_300_000)
	if err != nil {
		t.Fatalf("auto resolve failed: %v", err)
	}
	if *resolved.WinningSide != models.SideYes {
		t.Fatalf("winner %s", *resolved.WinningSide)
	}
}

func TestBatchResolvePerItemIsolation(t *testing.T) {
	env := newTestEnv(t, 200)
	env.setNow(testBase)
	operator := env.createUser(t, 0, true)

	expired := env.createMarket(t, operator, 1_000_000)

	env.setNow(testBase.Add(5 * time.Minute))
	young := env.createMarket(t, operator, 1_000_000)

	env.setNow(testBase.Add(11 * time.Minute))
	results, err := env.settlement.BatchResolve(context.Background(), operator.ID, []models.BatchResolveItem{
		{MarketID: expired.ID, FinalPrice: 1_100_000},
		{MarketID: young.ID, FinalPrice: 1_100_000}, // still inside its window
		{MarketID: 9999, FinalPrice: 1_100_000},     // does not exist
	})
	if err != nil {
		t.Fatalf("batch resolve failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	if !results[0].Resolved || results[0].Error != "" {
		t.Errorf("expired market should resolve: %+v", results[0])
	}
	if results[1].Resolved || results[1].Error == "" {
		t.Errorf("young market should fail: %+v", results[1])
	}
	if results[2].Resolved || results[2].Error == "" {
		t.Errorf("missing market should fail: %+v", results[2])
	}

	// The failing items must not block the good one.
	if got := env.reloadMarket(t, expired.ID); got.Status != models.MarketStatusResolved {
		t.Errorf("expired market status %s", got.Status)
	}
	if got := env.reloadMarket(t, young.ID); got.Status != models.MarketStatusActive {
		t.Errorf("young market status %s", got.Status)
	}
}

func TestCancelRefundsOpenPositions(t *testing.T) {
	env := newTestEnv(t, 500)
	env.setNow(testBase)
	operator := env.createUser(t, 0, true)
	a := env.createUser(t, 1_000, false)
	b := env.createUser(t, 1_000, false)
	c := env.createUser(t, 1_000, false)
	market := env.createMarket(t, operator, 1_000_000)

	if _, err := env.stakes.PlaceStake(context.Background(), a.ID, market.ID, models.SideYes, 300); err != nil {
		t.Fatalf("stake failed: %v", err)
	}
	if _, err := env.stakes.PlaceStake(context.Background(), b.ID, market.ID, models.SideNo, 200); err != nil {
		t.Fatalf("stake failed: %v", err)
	}
	if _, err := env.stakes.PlaceStake(context.Background(), c.ID, market.ID, models.SideYes, 100); err != nil {
		t.Fatalf("stake failed: %v", err)
	}

	// C settles early and must not be refunded again.
	if _, _, _, err := env.stakes.EarlyExit(context.Background(), c.ID, market.ID); err != nil {
		t.Fatalf("early exit failed: %v", err)
	}
	cBalanceAfterExit := env.balanceOf(t, c.ID)

	cancelled, err := env.settlement.Cancel(context.Background(), operator.ID, market.ID, "oracle outage")
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != models.MarketStatusCancelled {
		t.Fatalf("status %s", cancelled.Status)
	}
	if cancelled.CancelReason == nil || *cancelled.CancelReason != "oracle outage" {
		t.Fatalf("cancel reason %v", cancelled.CancelReason)
	}
	if cancelled.YesPool != 0 || cancelled.NoPool != 0 {
		t.Fatalf("pools not zeroed: yes=%d no=%d", cancelled.YesPool, cancelled.NoPool)
	}

	// Full principal back, no fee.
	if got := env.balanceOf(t, a.ID); got != 1_000 {
		t.Errorf("A balance %d, want 1000", got)
	}
	if got := env.balanceOf(t, b.ID); got != 1_000 {
		t.Errorf("B balance %d, want 1000", got)
	}
	if got := env.balanceOf(t, c.ID); got != cBalanceAfterExit {
		t.Errorf("C balance moved by cancel: %d vs %d", got, cBalanceAfterExit)
	}

	var refunds []models.SettlementTransaction
	if err := env.db.Where("market_id = ? AND type = ?", market.ID, models.SettlementTypeRefund).Find(&refunds).Error; err != nil {
		t.Fatalf("failed to load refunds: %v", err)
	}
	if len(refunds) != 2 {
		t.Fatalf("expected 2 refund rows, got %d", len(refunds))
	}

	// Cancelled is terminal.
	if _, err := env.settlement.Cancel(context.Background(), operator.ID, market.ID, "again"); !errors.Is(err, ErrAlreadyCancelled) {
		t.Fatalf("second cancel: expected ErrAlreadyCancelled, got %v", err)
	}
	if _, _, _, err := env.stakes.Claim(context.Background(), a.ID, market.ID); !errors.Is(err, ErrAlreadyCancelled) {
		t.Fatalf("claim on cancelled: expected ErrAlreadyCancelled, got %v", err)
	}
	if _, err := env.stakes.PlaceStake(context.Background(), a.ID, market.ID, models.SideYes, 10); !errors.Is(err, ErrAlreadyCancelled) {
		t.Fatalf("stake on cancelled: expected ErrAlreadyCancelled, got %v", err)
	}
}

func TestCancelRequiresReasonAndOperator(t *testing.T) {
	env := newTestEnv(t, 200)
	env.setNow(testBase)
	operator := env.createUser(t, 0, true)
	user := env.createUser(t, 0, false)
	market := env.createMarket(t, operator, 1_000_000)

	if _, err := env.settlement.Cancel(context.Background(), user.ID, market.ID, "nope"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := env.settlement.Cancel(context.Background(), operator.ID, market.ID, ""); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}
