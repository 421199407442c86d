package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"options-market/internal/database"
	"options-market/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testEnv wires the full service graph against an in-memory database.
type testEnv struct {
	db         *gorm.DB
	users      *UserService
	ledger     *LedgerService
	locks      *MarketLocks
	markets    *MarketService
	stakes     *StakeService
	settlement *SettlementService
}

func newTestEnv(t *testing.T, feeRateBps int64) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	users := NewUserService(db)
	ledger := NewLedgerService(db)
	locks := NewMarketLocks()

	return &testEnv{
		db:         db,
		users:      users,
		ledger:     ledger,
		locks:      locks,
		markets:    NewMarketService(db, users),
		stakes:     NewStakeService(db, ledger, locks, feeRateBps),
		settlement: NewSettlementService(db, users, ledger, locks),
	}
}

// setNow pins every service clock to the same instant.
func (e *testEnv) setNow(now time.Time) {
	e.markets.now = func() time.Time { return now }
	e.stakes.now = func() time.Time { return now }
	e.settlement.now = func() time.Time { return now }
}

var testUserSeq int

func (e *testEnv) createUser(t *testing.T, balance int64, operator bool) *models.User {
	t.Helper()
	testUserSeq++
	user := &models.User{
		WalletAddress: fmt.Sprintf("TestWallet%d", testUserSeq),
		Balance:       balance,
		IsOperator:    operator,
	}
	if err := e.db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

// createMarket makes an active SOL/USD market ending 10 minutes after the
// current pinned clock.
func (e *testEnv) createMarket(t *testing.T, operator *models.User, basePrice int64) *models.Market {
	t.Helper()
	market, err := e.markets.CreateMarket(context.Background(), operator.ID, &models.CreateMarketRequest{
		Label:           "SOL/USD",
		BasePrice:       basePrice,
		DurationSeconds: 600,
	})
	if err != nil {
		t.Fatalf("failed to create market: %v", err)
	}
	return market
}

func (e *testEnv) reloadMarket(t *testing.T, id uint) *models.Market {
	t.Helper()
	var market models.Market
	if err := e.db.First(&market, id).Error; err != nil {
		t.Fatalf("failed to reload market %d: %v", id, err)
	}
	return &market
}

func (e *testEnv) balanceOf(t *testing.T, userID uint) int64 {
	t.Helper()
	balance, err := e.ledger.Balance(context.Background(), userID)
	if err != nil {
		t.Fatalf("failed to read balance of user %d: %v", userID, err)
	}
	return balance
}
