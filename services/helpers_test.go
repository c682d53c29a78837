package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"stock_alert_backend/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a throwaway sqlite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "alerts.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := models.MigrateUserModels(db); err != nil {
		t.Fatalf("user migration failed: %v", err)
	}
	if err := models.MigrateAlertModels(db); err != nil {
		t.Fatalf("alert migration failed: %v", err)
	}

	return db
}

// fakeProvider is a scripted PriceProvider counting its calls.
type fakeProvider struct {
	name   string
	prices map[string]decimal.Decimal
	err    error
	calls  int32
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) FetchQuote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return decimal.Zero, f.err
	}
	price, ok := f.prices[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("unknown symbol %s", symbol)
	}
	return price, nil
}

func (f *fakeProvider) callCount() int {
	return int(atomic.LoadInt32(&f.calls))
}

// fakeNotifier is a scripted AlertNotifier recording deliveries.
type fakeNotifier struct {
	failSends  bool
	sent       []string // recipients in send order
	sendErr    error
	sendCalled int
}

func (f *fakeNotifier) SendAlert(recipient string, n AlertNotification) (int, error) {
	f.sendCalled++
	if f.failSends {
		if f.sendErr == nil {
			f.sendErr = fmt.Errorf("smtp unavailable")
		}
		return 3, f.sendErr
	}
	f.sent = append(f.sent, recipient)
	return 1, nil
}

// seedUser inserts a user and returns it.
func seedUser(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()
	user := models.User{Email: email, FullName: "Test User", EmailVerified: true, IsActive: true}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

// seedAlert inserts an untriggered alert and returns it.
func seedAlert(t *testing.T, db *gorm.DB, userID uint, symbol, alertType string, target string) models.Alert {
	t.Helper()
	alert := models.Alert{
		UserID:      userID,
		Symbol:      symbol,
		StockName:   symbol + " Inc.",
		AlertType:   alertType,
		TargetPrice: decimal.RequireFromString(target),
	}
	if err := db.Create(&alert).Error; err != nil {
		t.Fatalf("failed to seed alert: %v", err)
	}
	return alert
}
