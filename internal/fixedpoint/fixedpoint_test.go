package fixedpoint

import (
	"errors"
	"math"
	"testing"
)

func TestShareForDepositFirstDeposit(t *testing.T) {
	shares, err := ShareForDeposit(1_000_000, 0, 0)
	if err != nil {
		t.Fatalf("ShareForDeposit failed: %v", err)
	}
	if shares != 1_000_000 {
		t.Errorf("expected first deposit to mint shares 1:1, got %d", shares)
	}

	// First deposit on an empty side still mints 1:1 even when the other
	// side already holds stake.
	shares, err = ShareForDeposit(500, 0, 2_000)
	if err != nil {
		t.Fatalf("ShareForDeposit failed: %v", err)
	}
	if shares != 500 {
		t.Errorf("expected 500 shares, got %d", shares)
	}
}

func TestShareForDepositDilution(t *testing.T) {
	// yes=100, no=10: a 50 deposit into the deeper side is diluted.
	// shares = 50 * 110 / (100 + 50) = 36 (truncated from 36.66)
	shares, err := ShareForDeposit(50, 100, 110)
	if err != nil {
		t.Fatalf("ShareForDeposit failed: %v", err)
	}
	if shares != 36 {
		t.Errorf("expected 36 shares, got %d", shares)
	}
	if shares > 50 {
		t.Errorf("deposit into the deeper side must not mint more shares than amount")
	}
}

func TestShareForDepositTruncationIsDeterministic(t *testing.T) {
	// 100 * 2000 / (1000 + 100) = 200000 / 1100 = 181.81.. -> 181
	for i := 0; i < 10; i++ {
		shares, err := ShareForDeposit(100, 1000, 2000)
		if err != nil {
			t.Fatalf("ShareForDeposit failed: %v", err)
		}
		if shares != 181 {
			t.Errorf("expected truncated 181, got %d", shares)
		}
	}
}

func TestPayoutForShares(t *testing.T) {
	// 1:1 pools, full shares: payout doubles the principal.
	payout, err := PayoutForShares(1_000_000, 1_000_000, 1_000_000, 1_000_000)
	if err != nil {
		t.Fatalf("PayoutForShares failed: %v", err)
	}
	if payout != 2_000_000 {
		t.Errorf("expected 2_000_000, got %d", payout)
	}
}

func TestPayoutForSharesPrincipalOnly(t *testing.T) {
	// Empty opposing pool: principal back exactly, no profit.
	payout, err := PayoutForShares(700, 700, 700, 0)
	if err != nil {
		t.Fatalf("PayoutForShares failed: %v", err)
	}
	if payout != 700 {
		t.Errorf("expected principal-only payout 700, got %d", payout)
	}

	// Empty winning pool guard: principal back, no division by zero.
	payout, err = PayoutForShares(700, 700, 0, 500)
	if err != nil {
		t.Fatalf("PayoutForShares failed: %v", err)
	}
	if payout != 700 {
		t.Errorf("expected principal-only payout 700, got %d", payout)
	}

	// Zero shares: principal back.
	payout, err = PayoutForShares(700, 0, 900, 500)
	if err != nil {
		t.Fatalf("PayoutForShares failed: %v", err)
	}
	if payout != 700 {
		t.Errorf("expected principal-only payout 700, got %d", payout)
	}
}

func TestFeeOnProfitOnly(t *testing.T) {
	fee, err := FeeOn(0, 200)
	if err != nil {
		t.Fatalf("FeeOn failed: %v", err)
	}
	if fee != 0 {
		t.Errorf("expected zero fee on zero profit, got %d", fee)
	}

	// 200 bps on 1_000_000 profit = 20_000
	fee, err = FeeOn(1_000_000, 200)
	if err != nil {
		t.Fatalf("FeeOn failed: %v", err)
	}
	if fee != 20_000 {
		t.Errorf("expected 20_000, got %d", fee)
	}

	// Truncation: 500 bps on 40 = 2
	fee, err = FeeOn(40, 500)
	if err != nil {
		t.Fatalf("FeeOn failed: %v", err)
	}
	if fee != 2 {
		t.Errorf("expected 2, got %d", fee)
	}
}

func TestOverflowIsCaught(t *testing.T) {
	cases := []struct {
		name string
		fn   func() (int64, error)
	}{
		{"share mul overflow", func() (int64, error) {
			return ShareForDeposit(math.MaxInt64, 1, math.MaxInt64)
		}},
		{"share denom overflow", func() (int64, error) {
			return ShareForDeposit(math.MaxInt64, math.MaxInt64, 10)
		}},
		{"payout overflow", func() (int64, error) {
			return PayoutForShares(math.MaxInt64, math.MaxInt64, 1, math.MaxInt64)
		}},
		{"negative amount", func() (int64, error) {
			return ShareForDeposit(-1, 10, 10)
		}},
		{"negative pool", func() (int64, error) {
			return PayoutForShares(10, 10, -5, 10)
		}},
	}

	for _, tc := range cases {
		if _, err := tc.fn(); !errors.Is(err, ErrArithmetic) {
			t.Errorf("%s: expected ErrArithmetic, got %v", tc.name, err)
		}
	}
}
