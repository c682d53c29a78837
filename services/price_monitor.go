package services

import (
	"context"
	"log"
	"sync"
	"time"

	"stock_alert_backend/models"

	"github.com/shopspring/decimal"
)

// MonitorConfig holds the tunables for one monitor instance. Passed in at
// construction so nothing lives in process-wide state.
type MonitorConfig struct {
	BatchSize  int           // symbols fetched concurrently per batch
	BatchPause time.Duration // pause between batches to respect rate limits
}

// DefaultMonitorConfig returns the standard production settings.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		BatchSize:  10,
		BatchPause: 500 * time.Millisecond,
	}
}

// MonitorStatus summarizes the most recent cycle for the status endpoint.
type MonitorStatus struct {
	LastRunAt     time.Time `json:"last_run_at"`
	LastTriggered int       `json:"last_triggered"`
	LastSkipped   int       `json:"last_skipped"`
	LastErrors    int       `json:"last_errors"`
	CyclesRun     int64     `json:"cycles_run"`
}

// PriceMonitor runs the check cycle: load active alerts, fetch distinct
// symbol prices in rate-limited batches, evaluate trigger conditions, and
// commit each newly triggered alert (log, email, mark triggered). Nothing
// inside a cycle is fatal; errors are logged and the cycle makes forward
// progress on the remaining work.
type PriceMonitor struct {
	repo     *AlertRepository
	quotes   *QuoteService
	notifier AlertNotifier
	calendar *MarketCalendar
	cfg      MonitorConfig

	now func() time.Time

	mu     sync.Mutex
	status MonitorStatus
}

// NewPriceMonitor creates a new price monitor.
func NewPriceMonitor(repo *AlertRepository, quotes *QuoteService, notifier AlertNotifier, calendar *MarketCalendar, cfg MonitorConfig) *PriceMonitor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultMonitorConfig().BatchSize
	}
	return &PriceMonitor{
		repo:     repo,
		quotes:   quotes,
		notifier: notifier,
		calendar: calendar,
		cfg:      cfg,
		now:      time.Now,
	}
}

// MarketOpen reports whether the market is currently open.
func (m *PriceMonitor) MarketOpen() bool {
	return m.calendar.IsOpen(m.now())
}

// Status returns a snapshot of the most recent cycle stats.
func (m *PriceMonitor) Status() MonitorStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// RunCycle performs one full check pass. Safe to call from the scheduler
// and from the manual trigger endpoint; a second back-to-back run simply
// re-observes untriggered alerts.
func (m *PriceMonitor) RunCycle() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic recovered in price monitor cycle: %v", r)
		}
	}()

	if !m.MarketOpen() {
		log.Println("Market closed, skipping price check")
		return
	}

	log.Println("Starting price check...")

	alerts, err := m.repo.ActiveAlerts()
	if err != nil {
		log.Printf("Error loading alerts: %v", err)
		m.record(0, 0, 1)
		return
	}
	if len(alerts) == 0 {
		log.Println("No active alerts to check")
		m.record(0, 0, 0)
		return
	}

	symbols := distinctSymbols(alerts)
	log.Printf("Checking %d symbols for %d alerts", len(symbols), len(alerts))

	prices := m.fetchPrices(symbols)

	triggered, skipped, errs := 0, 0, 0
	for i := range alerts {
		alert := &alerts[i]

		quote, ok := prices[alert.Symbol]
		if !ok {
			// No price this cycle; the alert is re-evaluated next cycle
			log.Printf("Skipping alert %d (%s): no price data available", alert.ID, alert.Symbol)
			skipped++
			continue
		}

		if !shouldTrigger(alert, quote.Price) {
			continue
		}

		log.Printf("Alert triggered: %s %s $%s (current: $%s)",
			alert.Symbol, alert.AlertType, alert.TargetPrice.StringFixed(2), quote.Price.StringFixed(2))

		if m.commit(alert, quote) {
			triggered++
		} else {
			errs++
		}
	}

	m.record(triggered, skipped, errs)
	log.Printf("Price check completed: triggered=%d skipped=%d errors=%d", triggered, skipped, errs)
}

// fetchPrices fetches quotes for the given symbols in fixed-size batches.
// Within a batch all symbols are fetched concurrently; between batches the
// monitor pauses to stay inside provider rate limits. Symbols whose fetch
// failed are absent from the returned map.
func (m *PriceMonitor) fetchPrices(symbols []string) map[string]*Quote {
	prices := make(map[string]*Quote, len(symbols))
	var mu sync.Mutex

	for i := 0; i < len(symbols); i += m.cfg.BatchSize {
		end := i + m.cfg.BatchSize
		if end > len(symbols) {
			end = len(symbols)
		}
		batch := symbols[i:end]

		var wg sync.WaitGroup
		for _, symbol := range batch {
			wg.Add(1)
			go func(symbol string) {
				defer wg.Done()

				quote, err := m.quotes.GetPrice(context.Background(), symbol)
				if err != nil {
					log.Printf("Failed to fetch price for %s: %v", symbol, err)
					return
				}

				mu.Lock()
				prices[symbol] = quote
				mu.Unlock()
			}(symbol)
		}
		wg.Wait()

		if end < len(symbols) && m.cfg.BatchPause > 0 {
			time.Sleep(m.cfg.BatchPause)
		}
	}

	return prices
}

// commit drives the per-alert trigger protocol: pending email log, send,
// then mark triggered. The email goes out before the alert is marked so a
// trigger is only made terminal once the user was plausibly notified; the
// reverse failure (send succeeded, mark failed) re-fires next cycle and may
// duplicate the email, which is the accepted trade-off.
func (m *PriceMonitor) commit(alert *models.Alert, quote *Quote) bool {
	var logID uint
	haveLog := false

	entry, err := m.repo.CreateEmailLog(alert.ID, alert.UserID)
	if err != nil {
		// Delivery is not blocked on logging
		log.Printf("Failed to create email log for alert %d: %v", alert.ID, err)
	} else {
		logID = entry.ID
		haveLog = true
	}

	triggeredAt := m.now()
	attempts, sendErr := m.notifier.SendAlert(alert.User.Email, AlertNotification{
		Symbol:       alert.Symbol,
		StockName:    alert.StockName,
		AlertType:    alert.AlertType,
		TargetPrice:  alert.TargetPrice,
		CurrentPrice: quote.Price,
		TriggeredAt:  triggeredAt,
	})

	if sendErr != nil {
		log.Printf("Failed to send email for alert %d: %v", alert.ID, sendErr)
		if haveLog {
			if err := m.repo.MarkEmailLogFailed(logID, attempts, sendErr.Error()); err != nil {
				log.Printf("Failed to update email log %d: %v", logID, err)
			}
		}
		log.Printf("Alert %d NOT marked as triggered - email failed, will retry next check", alert.ID)
		return false
	}

	if haveLog {
		// Best-effort telemetry: a failed status update does not undo the send
		if err := m.repo.MarkEmailLogSent(logID, attempts); err != nil {
			log.Printf("Failed to update email log %d: %v", logID, err)
		}
	}

	won, err := m.repo.MarkTriggered(alert.ID, quote.Price, triggeredAt)
	if err != nil {
		log.Printf("ERROR: failed to mark alert %d as triggered, it will re-fire next cycle: %v", alert.ID, err)
		return false
	}
	if !won {
		log.Printf("Alert %d was already triggered by a concurrent commit", alert.ID)
		return true
	}

	log.Printf("Alert %d marked as triggered", alert.ID)
	return true
}

// record updates the status snapshot after a cycle.
func (m *PriceMonitor) record(triggered, skipped, errs int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status.LastRunAt = m.now()
	m.status.LastTriggered = triggered
	m.status.LastSkipped = skipped
	m.status.LastErrors = errs
	m.status.CyclesRun++
}

// shouldTrigger evaluates the alert condition against a quote price using
// decimal comparison. Both boundaries are inclusive.
func shouldTrigger(alert *models.Alert, price decimal.Decimal) bool {
	switch alert.AlertType {
	case models.AlertTypeBelow:
		return price.LessThanOrEqual(alert.TargetPrice)
	case models.AlertTypeAbove:
		return price.GreaterThanOrEqual(alert.TargetPrice)
	default:
		log.Printf("Unknown alert type %q for alert %d", alert.AlertType, alert.ID)
		return false
	}
}

// distinctSymbols returns the unique symbols across the loaded alerts.
func distinctSymbols(alerts []models.Alert) []string {
	seen := make(map[string]bool, len(alerts))
	symbols := make([]string, 0, len(alerts))
	for _, alert := range alerts {
		if !seen[alert.Symbol] {
			seen[alert.Symbol] = true
			symbols = append(symbols, alert.Symbol)
		}
	}
	return symbols
}
