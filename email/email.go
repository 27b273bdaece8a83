// Package email delivers submission reports.
package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"net/smtp"
	"net/textproto"
	"time"

	"github.com/jordan-wright/email"
	"github.com/nikhilsahni7/SurveyMap/config"
	"github.com/nikhilsahni7/SurveyMap/log"
)

const sendTimeout = 30 * time.Second

type Attachment struct {
	FileName    string
	ContentType string
	Data        []byte
}

type Message struct {
	To          []string
	Subject     string
	Text        string
	Attachments []Attachment
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer sends mail through a pool of SMTP connections.
type SMTPMailer struct {
	from string
	pool *email.Pool
}

func NewSMTPMailer(cfg config.SMTPConfig) (*SMTPMailer, error) {
	var auth smtp.Auth
	if cfg.Username != "" || cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	tlsOpts := &tls.Config{ServerName: cfg.Host}

	pool, err := email.NewPool(cfg.Address(), cfg.Connections, auth, tlsOpts)
	if err != nil {
		return nil, err
	}
	return &SMTPMailer{from: cfg.From, pool: pool}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return errors.New("email: no recipients")
	}
	e, err := buildEmail(m.from, msg)
	if err != nil {
		return err
	}

	timeout := sendTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if err := m.pool.Send(e, timeout); err != nil {
		log.WithFields(log.Fields{"to": msg.To, "error": err}).Error("error when trying to send email")
		return err
	}
	return nil
}

func buildEmail(from string, msg Message) (*email.Email, error) {
	e := &email.Email{
		To:      msg.To,
		From:    from,
		Subject: msg.Subject,
		Text:    []byte(msg.Text),
		Headers: textproto.MIMEHeader{},
	}
	for _, a := range msg.Attachments {
		if _, err := e.Attach(bytes.NewReader(a.Data), a.FileName, a.ContentType); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (m *SMTPMailer) Close() {
	m.pool.Close()
}

// NoopMailer drops every message. It is used when SMTP is not configured.
type NoopMailer struct{}

func (NoopMailer) Send(_ context.Context, msg Message) error {
	log.Debugf("email disabled, dropping %q to %v", msg.Subject, msg.To)
	return nil
}
