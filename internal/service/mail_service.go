package service

import (
	"crypto/tls"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/FileGate/FileGate/internal/config"
	"github.com/FileGate/FileGate/internal/models"
	"github.com/FileGate/FileGate/internal/repository"
	"github.com/FileGate/FileGate/pkg/logger"
)

var ErrNoSMTPConfig = errors.New("no active SMTP configuration")

// sendFunc delivers one message through the given relay. Overridable in
// tests to avoid a live SMTP connection.
type sendFunc func(cfg *models.SMTPConfig, to, subject, htmlBody string, timeout time.Duration) error

type MailService struct {
	smtpRepo *repository.SMTPRepository
	logRepo  *repository.EmailLogRepository
	config   *config.Config
	send     sendFunc
}

func NewMailService(
	smtpRepo *repository.SMTPRepository,
	logRepo *repository.EmailLogRepository,
	cfg *config.Config,
) *MailService {
	return &MailService{
		smtpRepo: smtpRepo,
		logRepo:  logRepo,
		config:   cfg,
		send:     sendSMTPMail,
	}
}

// ActiveConfig returns the active relay settings, or ErrNoSMTPConfig.
func (s *MailService) ActiveConfig() (*models.SMTPConfig, error) {
	cfg, err := s.smtpRepo.GetActive()
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoSMTPConfig
		}
		return nil, err
	}
	return cfg, nil
}

// ReplaceConfig swaps the active SMTP configuration; activation is exclusive.
func (s *MailService) ReplaceConfig(cfg *models.SMTPConfig) error {
	return s.smtpRepo.ReplaceActive(cfg)
}

// Send delivers one message through the active relay and writes an email_logs
// row with the outcome. A missing configuration and a transport error are
// both logged as failed.
func (s *MailService) Send(to, subject, htmlBody string) error {
	relay, err := s.ActiveConfig()
	if err != nil {
		if logErr := s.logRepo.LogFailed(to, subject, err.Error()); logErr != nil {
			logger.Warn().Err(logErr).Str("recipient", to).Msg("Failed to log email failure")
		}
		return err
	}

	if err := s.send(relay, to, subject, htmlBody, s.config.Mail.SendTimeout); err != nil {
		if logErr := s.logRepo.LogFailed(to, subject, err.Error()); logErr != nil {
			logger.Warn().Err(logErr).Str("recipient", to).Msg("Failed to log email failure")
		}
		return err
	}

	if err := s.logRepo.LogSent(to, subject, htmlBody); err != nil {
		logger.Warn().Err(err).Str("recipient", to).Msg("Failed to log sent email")
	}
	return nil
}

// SendBulk delivers the same message to every recipient sequentially with a
// configurable pause between messages, so the batch stays under the relay's
// outbound rate limit. One failed recipient never aborts the rest; the batch
// fails fast only when no relay is configured at all.
func (s *MailService) SendBulk(recipients []string, subject, message string) (*models.BulkEmailStats, error) {
	if _, err := s.ActiveConfig(); err != nil {
		return nil, err
	}

	htmlBody := "<html><body>" + message + "</body></html>"
	stats := &models.BulkEmailStats{TotalCount: len(recipients)}

	for i, recipient := range recipients {
		if err := s.Send(recipient, subject, htmlBody); err != nil {
			stats.FailedCount++
			logger.Warn().Err(err).Str("recipient", recipient).Msg("Bulk email send failed")
		} else {
			stats.SuccessCount++
		}

		if i < len(recipients)-1 {
			time.Sleep(s.config.Mail.BulkSendDelay)
		}
	}

	logger.Info().
		Int("success", stats.SuccessCount).
		Int("failed", stats.FailedCount).
		Int("total", stats.TotalCount).
		Msg("Bulk email batch completed")

	return stats, nil
}

// SendDownloadConfirmation notifies a registered visitor that their download
// was recorded.
func (s *MailService) SendDownloadConfirmation(email, fileName string) error {
	return s.Send(email, "Download confirmation", downloadConfirmationBody(email, fileName))
}

func downloadConfirmationBody(email, fileName string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h1>Your download was registered</h1>
    <p>Thank you for downloading <strong>%s</strong>.</p>
    <p>The email address <strong>%s</strong> has been recorded with this download.</p>
    <p>Time: %s</p>
  </div>
</body>
</html>`, fileName, email, time.Now().Format(time.RFC1123))
}

// sendSMTPMail dials the relay with a bounded timeout, upgrades to TLS
// (implicit on port 465, STARTTLS elsewhere when offered) and submits one
// message.
func sendSMTPMail(relay *models.SMTPConfig, to, subject, htmlBody string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	addr := net.JoinHostPort(relay.Host, strconv.Itoa(relay.Port))
	deadline := time.Now().Add(timeout)

	var (
		conn net.Conn
		err  error
	)
	if relay.Port == 465 {
		dialer := &net.Dialer{Timeout: timeout}
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{ServerName: relay.Host})
	} else {
		conn, err = net.DialTimeout("tcp", addr, timeout)
	}
	if err != nil {
		return fmt.Errorf("dial smtp relay: %w", err)
	}

	if err := conn.SetDeadline(deadline); err != nil {
		_ = conn.Close()
		return err
	}

	c, err := smtp.NewClient(conn, relay.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()

	if relay.Port != 465 {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: relay.Host}); err != nil {
				return err
			}
		}
	}

	if relay.Username != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", relay.Username, relay.Password, relay.Host)
			if err := c.Auth(auth); err != nil {
				return err
			}
		}
	}

	if err := c.Mail(relay.FromEmail); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}

	msg := []byte("From: " + relay.FromEmail + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=UTF-8\r\n" +
		"\r\n" + htmlBody + "\r\n")

	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	return c.Quit()
}
