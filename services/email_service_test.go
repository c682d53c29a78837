package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"stock_alert_backend/config"

	"github.com/shopspring/decimal"
)

func testNotification() AlertNotification {
	return AlertNotification{
		Symbol:       "AAPL",
		StockName:    "Apple Inc.",
		AlertType:    "below",
		TargetPrice:  decimal.RequireFromString("180"),
		CurrentPrice: decimal.RequireFromString("179.55"),
		TriggeredAt:  time.Date(2025, time.March, 4, 10, 15, 0, 0, time.UTC),
	}
}

func newTestEmailService() *EmailService {
	svc := NewEmailService(&config.Config{
		SMTPHost: "smtp.example.com",
		SMTPPort: 587,
		SMTPFrom: "alerts@example.com",
	})
	svc.retryPause = 0
	return svc
}

func TestSendAlert_FirstAttemptSucceeds(t *testing.T) {
	svc := newTestEmailService()

	var sends int
	svc.send = func(recipient string, msg []byte) error {
		sends++
		return nil
	}

	attempts, err := svc.SendAlert("user@example.com", testNotification())
	if err != nil {
		t.Fatalf("SendAlert failed: %v", err)
	}
	if attempts != 1 || sends != 1 {
		t.Errorf("attempts = %d, sends = %d, want 1 each", attempts, sends)
	}
}

func TestSendAlert_RetriesThenSucceeds(t *testing.T) {
	svc := newTestEmailService()

	var sends int
	svc.send = func(recipient string, msg []byte) error {
		sends++
		if sends < 3 {
			return errors.New("temporary failure")
		}
		return nil
	}

	attempts, err := svc.SendAlert("user@example.com", testNotification())
	if err != nil {
		t.Fatalf("SendAlert failed after retries: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestSendAlert_AllAttemptsFail(t *testing.T) {
	svc := newTestEmailService()

	var sends int
	svc.send = func(recipient string, msg []byte) error {
		sends++
		return errors.New("mailbox unavailable")
	}

	attempts, err := svc.SendAlert("user@example.com", testNotification())
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if attempts != 3 || sends != 3 {
		t.Errorf("attempts = %d, sends = %d, want 3 each", attempts, sends)
	}
	if !strings.Contains(err.Error(), "mailbox unavailable") {
		t.Errorf("error should carry the last failure: %v", err)
	}
}

func TestSendAlert_DisabledService(t *testing.T) {
	svc := NewEmailService(&config.Config{}) // no SMTP configured

	attempts, err := svc.SendAlert("user@example.com", testNotification())
	if err == nil {
		t.Fatal("expected error from disabled service")
	}
	if attempts != 0 {
		t.Errorf("attempts = %d, want 0", attempts)
	}
}

func TestBuildMessage_Content(t *testing.T) {
	svc := newTestEmailService()

	msg := string(svc.buildMessage("user@example.com", testNotification()))

	for _, want := range []string{"AAPL", "Apple Inc.", "below", "180.00", "179.55", "To: user@example.com"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q", want)
		}
	}
}
