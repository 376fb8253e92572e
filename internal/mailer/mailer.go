// Package mailer renders notification templates and delivers them over SMTP.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"text/template"
	"time"

	"github.com/volontulo/go-volontulo/internal/config"
	"github.com/wneessen/go-mail"
)

// Notification templates
const (
	TmplOfferCreated            = "offer_created"
	TmplOfferCreatedAdmin       = "offer_created_admin"
	TmplOfferApplication        = "offer_application"
	TmplOfferApplicationConfirm = "offer_application_confirm"
)

const (
	queueSize   = 256
	sendTimeout = 30 * time.Second
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Message is a rendered notification
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// Mailer queues rendered messages and sends them from a background worker.
// With an outbox channel set messages are handed to the channel instead.
type Mailer struct {
	cfg    config.MailConfig
	tmpl   *template.Template
	outbox chan<- Message

	queue chan *Message
	stop  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once

	sent   atomic.Int64
	failed atomic.Int64
}

// New parses the templates and starts the delivery worker when SMTP is enabled.
// outbox may be nil.
func New(cfg config.MailConfig, outbox chan<- Message) (*Mailer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse mail templates: %w", err)
	}
	m := &Mailer{
		cfg:    cfg,
		tmpl:   tmpl,
		outbox: outbox,
		queue:  make(chan *Message, queueSize),
		stop:   make(chan struct{}),
	}
	if cfg.Enabled && outbox == nil {
		m.wg.Add(1)
		go m.worker()
		log.Printf("[MAIL] SMTP delivery via %s:%d enabled", cfg.Host, cfg.Port)
	} else if outbox == nil {
		log.Printf("[MAIL] SMTP disabled, notifications are only logged")
	}
	return m, nil
}

// Render executes the subject and body of a template
func (m *Mailer) Render(name string, to []string, data interface{}) (*Message, error) {
	var subject, body bytes.Buffer
	if err := m.tmpl.ExecuteTemplate(&subject, name+".subject", data); err != nil {
		return nil, fmt.Errorf("failed to render subject of %s: %w", name, err)
	}
	if err := m.tmpl.ExecuteTemplate(&body, name+".body", data); err != nil {
		return nil, fmt.Errorf("failed to render body of %s: %w", name, err)
	}
	return &Message{
		From:    m.cfg.From,
		To:      to,
		Subject: strings.TrimSpace(subject.String()),
		Body:    body.String(),
	}, nil
}

// Notify renders a template and schedules its delivery
func (m *Mailer) Notify(ctx context.Context, name string, to []string, data interface{}) error {
	if len(to) == 0 {
		return nil
	}
	msg, err := m.Render(name, to, data)
	if err != nil {
		return err
	}

	switch {
	case m.outbox != nil:
		select {
		case m.outbox <- *msg:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	case !m.cfg.Enabled:
		log.Printf("[MAIL] (disabled) %s to %v: %q", name, to, msg.Subject)
		return nil
	}

	select {
	case m.queue <- msg:
		return nil
	case <-m.stop:
		return fmt.Errorf("mailer stopped")
	case <-ctx.Done():
		return ctx.Err()
	default:
		m.failed.Add(1)
		return fmt.Errorf("mail queue full, dropped %s to %v", name, to)
	}
}

func (m *Mailer) worker() {
	defer m.wg.Done()
	for {
		select {
		case msg := <-m.queue:
			m.deliver(msg)
		case <-m.stop:
			// drain what is already queued
			for {
				select {
				case msg := <-m.queue:
					m.deliver(msg)
				default:
					return
				}
			}
		}
	}
}

func (m *Mailer) deliver(msg *Message) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := m.send(ctx, msg); err != nil {
		m.failed.Add(1)
		log.Printf("[MAIL] failed to send %q to %v: %v", msg.Subject, msg.To, err)
		return
	}
	m.sent.Add(1)
	log.Printf("[MAIL] sent %q to %v", msg.Subject, msg.To)
}

func (m *Mailer) send(ctx context.Context, msg *Message) error {
	mm := mail.NewMsg()
	if err := mm.From(msg.From); err != nil {
		return err
	}
	if err := mm.To(msg.To...); err != nil {
		return err
	}
	mm.Subject(msg.Subject)
	mm.SetCharset(mail.CharsetUTF8)
	mm.SetBodyString(mail.TypeTextPlain, msg.Body)

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	if m.cfg.NoTLS {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	c, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return err
	}
	return c.DialAndSendWithContext(ctx, mm)
}

// Stop flushes queued messages and stops the worker
func (m *Mailer) Stop() {
	m.once.Do(func() {
		close(m.stop)
		m.wg.Wait()
		log.Printf("[MAIL] stopped: sent=%d failed=%d", m.sent.Load(), m.failed.Load())
	})
}

// Stats returns delivery counters
func (m *Mailer) Stats() (sent, failed int64) {
	return m.sent.Load(), m.failed.Load()
}
