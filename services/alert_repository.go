package services

import (
	"fmt"
	"time"

	"stock_alert_backend/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AlertRepository wraps the datastore access the monitor needs: reading
// active alerts with their owners, committing trigger state, and the
// append-only price check and email delivery logs.
type AlertRepository struct {
	db *gorm.DB
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// ActiveAlerts loads all untriggered alerts with their owning user so the
// notification address is available without a second query.
func (r *AlertRepository) ActiveAlerts() ([]models.Alert, error) {
	var alerts []models.Alert
	if err := r.db.Where("is_triggered = ?", false).
		Preload("User").Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("failed to load active alerts: %w", err)
	}
	return alerts, nil
}

// MarkTriggered moves an alert to its terminal triggered state. The update
// is guarded on is_triggered = false so that only one concurrent commit can
// win the row; it reports whether this call won.
func (r *AlertRepository) MarkTriggered(alertID uint, price decimal.Decimal, at time.Time) (bool, error) {
	result := r.db.Model(&models.Alert{}).
		Where("id = ? AND is_triggered = ?", alertID, false).
		Updates(map[string]interface{}{
			"is_triggered":    true,
			"triggered_at":    at,
			"triggered_price": price,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark alert %d triggered: %w", alertID, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// CreateEmailLog inserts a pending email log row before a send attempt.
func (r *AlertRepository) CreateEmailLog(alertID, userID uint) (*models.EmailLog, error) {
	entry := &models.EmailLog{
		AlertID:   &alertID,
		UserID:    userID,
		EmailType: models.EmailTypeAlert,
		Status:    models.EmailStatusPending,
		Attempts:  0,
	}
	if err := r.db.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("failed to create email log: %w", err)
	}
	return entry, nil
}

// MarkEmailLogSent records a successful delivery.
func (r *AlertRepository) MarkEmailLogSent(logID uint, attempts int) error {
	now := time.Now()
	err := r.db.Model(&models.EmailLog{}).Where("id = ?", logID).
		Updates(map[string]interface{}{
			"status":          models.EmailStatusSent,
			"attempts":        attempts,
			"last_attempt_at": now,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update email log %d: %w", logID, err)
	}
	return nil
}

// MarkEmailLogFailed records an exhausted delivery attempt sequence.
func (r *AlertRepository) MarkEmailLogFailed(logID uint, attempts int, errMsg string) error {
	now := time.Now()
	err := r.db.Model(&models.EmailLog{}).Where("id = ?", logID).
		Updates(map[string]interface{}{
			"status":          models.EmailStatusFailed,
			"attempts":        attempts,
			"last_attempt_at": now,
			"error_message":   errMsg,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update email log %d: %w", logID, err)
	}
	return nil
}

// LogPriceCheckSuccess appends a successful price check record.
func (r *AlertRepository) LogPriceCheckSuccess(symbol string, price decimal.Decimal, source string) error {
	entry := &models.PriceCheckLog{
		Symbol: symbol,
		Status: models.PriceCheckSuccess,
		Price:  decimal.NewNullDecimal(price),
		Source: source,
	}
	if err := r.db.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to log price check for %s: %w", symbol, err)
	}
	return nil
}

// LogPriceCheckFailure appends a failed price check record.
func (r *AlertRepository) LogPriceCheckFailure(symbol, errMsg string) error {
	entry := &models.PriceCheckLog{
		Symbol:       symbol,
		Status:       models.PriceCheckFailed,
		ErrorMessage: errMsg,
	}
	if err := r.db.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to log price check for %s: %w", symbol, err)
	}
	return nil
}
