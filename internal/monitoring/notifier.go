// Package monitoring delivers failure notifications, exposes run metrics and
// watches the run failure rate.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/smtp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/energy-etl/internal/config"
)

// Notifier sends a failure message for a pipeline stage.
type Notifier interface {
	Notify(ctx context.Context, stage, message string) error
}

// Alert is the JSON payload posted to the webhook.
type Alert struct {
	Type      AlertType      `json:"type"`
	Stage     string         `json:"stage,omitempty"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertStageFailure AlertType = "stage_failure"
	AlertFailureRate  AlertType = "failure_rate"
)

// Subject returns the alert email subject for a failed stage.
func Subject(stage string) string {
	return fmt.Sprintf("ETL %s Failure", stage)
}

// WebhookNotifier posts alerts as JSON to a webhook URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a WebhookNotifier.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify posts a stage failure alert.
func (w *WebhookNotifier) Notify(ctx context.Context, stage, message string) error {
	return w.Send(ctx, Alert{
		Type:      AlertStageFailure,
		Stage:     stage,
		Severity:  "high",
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

// Send posts a single alert to the webhook URL.
func (w *WebhookNotifier) Send(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	zap.L().Info("monitoring: alert sent",
		zap.String("type", string(alert.Type)),
		zap.String("stage", alert.Stage),
	)
	return nil
}

// sendMailFunc matches smtp.SendMail.
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier emails alerts. smtp.SendMail upgrades to STARTTLS when the
// server offers it.
type SMTPNotifier struct {
	cfg      config.SMTPConfig
	sendMail sendMailFunc
}

// NewSMTPNotifier creates an SMTPNotifier.
func NewSMTPNotifier(cfg config.SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg, sendMail: smtp.SendMail}
}

// Notify emails "ETL <stage> Failure". Missing SMTP settings are logged as a
// warning and are not an error.
func (s *SMTPNotifier) Notify(_ context.Context, stage, message string) error {
	if !s.cfg.Configured() {
		zap.L().Warn("monitoring: smtp not configured, alert email not sent",
			zap.String("stage", stage),
		)
		return nil
	}

	to := recipients(s.cfg.To)
	port := s.cfg.Port
	if port == 0 {
		port = 587
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(port))

	var auth smtp.Auth
	if s.cfg.User != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
	}

	msg := buildMessage(s.cfg.From, to, Subject(stage), message)
	if err := s.sendMail(addr, auth, s.cfg.From, to, msg); err != nil {
		return eris.Wrap(err, "monitoring: send alert email")
	}
	zap.L().Info("monitoring: alert email sent",
		zap.String("subject", Subject(stage)),
		zap.Int("recipients", len(to)),
	)
	return nil
}

func recipients(s string) []string {
	var out []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

func buildMessage(from string, to []string, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

// LogNotifier logs alerts at error level.
type LogNotifier struct{}

// Notify logs the failure.
func (LogNotifier) Notify(_ context.Context, stage, message string) error {
	zap.L().Error("monitoring: stage failure", zap.String("stage", stage), zap.String("message", message))
	return nil
}

// Multi fans a notification out to every notifier. All notifiers are tried;
// their errors are joined.
type Multi []Notifier

// Notify calls every notifier in order.
func (m Multi) Notify(ctx context.Context, stage, message string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, stage, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Once forwards only the first notification it receives. Create one per run.
type Once struct {
	next Notifier
	once sync.Once
	sent atomic.Bool
}

// NewOnce wraps next so that it is notified at most once.
func NewOnce(next Notifier) *Once {
	return &Once{next: next}
}

// Notify forwards the first call and drops the rest.
func (o *Once) Notify(ctx context.Context, stage, message string) error {
	var err error
	fired := false
	o.once.Do(func() {
		fired = true
		o.sent.Store(true)
		err = o.next.Notify(ctx, stage, message)
	})
	if !fired {
		zap.L().Debug("monitoring: duplicate notification suppressed", zap.String("stage", stage))
	}
	return err
}

// Sent reports whether a notification has been forwarded.
func (o *Once) Sent() bool {
	return o.sent.Load()
}

// SafeNotify calls n.Notify and turns a panic inside the notifier into an
// error, so a broken alert channel cannot take the caller down.
func SafeNotify(ctx context.Context, n Notifier, stage, message string) (err error) {
	if n == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("monitoring: notifier panicked: %v", r)
		}
	}()
	return n.Notify(ctx, stage, message)
}

// FromConfig builds the notifier chain for cfg: always a log notifier, plus
// webhook and SMTP notifiers when configured. The SMTP notifier is always
// included so that a missing configuration is reported as a warning.
func FromConfig(cfg config.AlertConfig) Notifier {
	m := Multi{LogNotifier{}}
	if cfg.WebhookURL != "" {
		m = append(m, NewWebhookNotifier(cfg.WebhookURL))
	}
	m = append(m, NewSMTPNotifier(cfg.SMTP))
	return m
}
