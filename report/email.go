package report

import (
	"fmt"
	"log"
	"net/smtp"
	"strings"

	"github.com/stocksense/stocksense-go/core"
)

// SMTPConfig carries the mail settings read from the configuration file.
type SMTPConfig struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

// Alerter emails the rendered report when the alert condition holds. A zero
// Threshold means alert on every delivered run.
type Alerter struct {
	cfg       SMTPConfig
	threshold float64

	// send is swappable for tests; defaults to smtp.SendMail.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewAlerter builds an alerter. threshold <= 0 disables the price gate.
func NewAlerter(cfg SMTPConfig, threshold float64) *Alerter {
	return &Alerter{cfg: cfg, threshold: threshold, send: smtp.SendMail}
}

// ShouldAlert reports whether the run crosses the alert threshold. Without a
// threshold every run alerts; with one, the run must carry a parseable price
// at or above it.
func (a *Alerter) ShouldAlert(result *core.RunResult) bool {
	if a.threshold <= 0 {
		return true
	}
	price, ok := LatestPrice(result)
	return ok && price >= a.threshold
}

// Deliver renders and emails the report if the alert condition holds.
// Returns whether a mail was sent.
func (a *Alerter) Deliver(result *core.RunResult) (bool, error) {
	if !a.ShouldAlert(result) {
		log.Printf("[ALERT] %s below threshold %.2f, not sending", result.Subject.Symbol, a.threshold)
		return false, nil
	}
	if a.cfg.Host == "" || len(a.cfg.To) == 0 {
		return false, fmt.Errorf("smtp host and recipients required")
	}

	subject := fmt.Sprintf("Stock analysis: %s", result.Subject.Symbol)
	msg := buildMessage(a.cfg.From, a.cfg.To, subject, Render(result))

	addr := fmt.Sprintf("%s:%d", a.cfg.Host, a.cfg.Port)
	var auth smtp.Auth
	if a.cfg.Username != "" {
		auth = smtp.PlainAuth("", a.cfg.Username, a.cfg.Password, a.cfg.Host)
	}
	if err := a.send(addr, auth, a.cfg.From, a.cfg.To, msg); err != nil {
		return false, fmt.Errorf("send mail: %w", err)
	}
	log.Printf("[ALERT] Sent %s report to %d recipients", result.Subject.Symbol, len(a.cfg.To))
	return true, nil
}

// buildMessage assembles a minimal RFC 5322 text mail.
func buildMessage(from string, to []string, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}
