package services

import (
	"crypto/tls"
	"fmt"
	"log"
	"net/smtp"
	"strings"
	"time"

	"stock_alert_backend/config"

	"github.com/shopspring/decimal"
)

// Delivery retry policy: low-volume path, fixed linear retry is enough.
const (
	emailMaxAttempts = 3
	emailRetryPause  = 1 * time.Second
)

// AlertNotification carries everything needed to render a trigger email.
type AlertNotification struct {
	Symbol       string
	StockName    string
	AlertType    string
	TargetPrice  decimal.Decimal
	CurrentPrice decimal.Decimal
	TriggeredAt  time.Time
}

// AlertNotifier delivers a trigger notification to a recipient. It reports
// how many attempts were used so the caller can record them.
type AlertNotifier interface {
	SendAlert(recipient string, n AlertNotification) (attempts int, err error)
}

// EmailService sends alert emails over SMTP with bounded retries.
type EmailService struct {
	smtpHost string
	smtpPort int
	username string
	password string
	from     string
	enabled  bool

	retryPause time.Duration

	// send performs one raw delivery attempt; swapped out in tests
	send func(recipient string, msg []byte) error
}

// NewEmailService creates an email service from SMTP configuration. With
// incomplete configuration the service is disabled and every send fails
// immediately, leaving alerts active for the next cycle.
func NewEmailService(cfg *config.Config) *EmailService {
	s := &EmailService{
		smtpHost: cfg.SMTPHost,
		smtpPort: cfg.SMTPPort,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     cfg.SMTPFrom,
		enabled:  cfg.SMTPHost != "" && cfg.SMTPFrom != "",

		retryPause: emailRetryPause,
	}
	s.send = s.smtpSend
	if !s.enabled {
		log.Println("SMTP not configured, alert emails disabled")
	}
	return s
}

// SendAlert sends a trigger notification email with up to 3 attempts and a
// fixed pause between attempts.
func (s *EmailService) SendAlert(recipient string, n AlertNotification) (int, error) {
	if !s.enabled {
		return 0, fmt.Errorf("email delivery disabled: SMTP not configured")
	}

	msg := s.buildMessage(recipient, n)

	var lastErr error
	for attempt := 1; attempt <= emailMaxAttempts; attempt++ {
		if err := s.send(recipient, msg); err != nil {
			lastErr = err
			log.Printf("Email attempt %d/%d to %s failed: %v", attempt, emailMaxAttempts, recipient, err)
			if attempt < emailMaxAttempts {
				time.Sleep(s.retryPause)
			}
			continue
		}
		return attempt, nil
	}

	return emailMaxAttempts, fmt.Errorf("email delivery failed after %d attempts: %w", emailMaxAttempts, lastErr)
}

// buildMessage renders the plain-text alert email.
func (s *EmailService) buildMessage(recipient string, n AlertNotification) []byte {
	direction := "dropped below"
	if n.AlertType == "above" {
		direction = "risen above"
	}

	subject := fmt.Sprintf("Price Alert: %s has %s $%s", n.Symbol, direction, n.TargetPrice.StringFixed(2))

	var body strings.Builder
	body.WriteString(fmt.Sprintf("Your price alert for %s (%s) has been triggered.\n\n", n.StockName, n.Symbol))
	body.WriteString(fmt.Sprintf("Alert condition: price %s $%s\n", n.AlertType, n.TargetPrice.StringFixed(2)))
	body.WriteString(fmt.Sprintf("Current price: $%s\n", n.CurrentPrice.StringFixed(2)))
	body.WriteString(fmt.Sprintf("Triggered at: %s\n\n", n.TriggeredAt.Format("Jan 2, 2006 15:04:05 MST")))
	body.WriteString("This alert will not fire again.\n")

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		s.from, recipient, subject, body.String())
	return []byte(msg)
}

// smtpSend performs one delivery over SMTP. Port 465 uses implicit TLS,
// other ports go through smtp.SendMail (STARTTLS when offered).
func (s *EmailService) smtpSend(recipient string, msg []byte) error {
	addr := fmt.Sprintf("%s:%d", s.smtpHost, s.smtpPort)

	var auth smtp.Auth
	if s.username != "" && s.password != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.smtpHost)
	}

	if s.smtpPort == 465 {
		return s.sendWithTLS(addr, auth, recipient, msg)
	}

	return smtp.SendMail(addr, auth, s.from, []string{recipient}, msg)
}

// sendWithTLS sends email using implicit TLS (port 465).
func (s *EmailService) sendWithTLS(addr string, auth smtp.Auth, recipient string, msg []byte) error {
	tlsConfig := &tls.Config{
		ServerName: s.smtpHost,
	}

	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return fmt.Errorf("TLS dial failed: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.smtpHost)
	if err != nil {
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP auth failed: %w", err)
		}
	}

	if err := client.Mail(s.from); err != nil {
		return fmt.Errorf("SMTP MAIL command failed: %w", err)
	}
	if err := client.Rcpt(recipient); err != nil {
		return fmt.Errorf("SMTP RCPT command failed: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA command failed: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("writing email body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing email body: %w", err)
	}

	return client.Quit()
}
