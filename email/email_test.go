package email

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildEmail(t *testing.T) {
	msg := Message{
		To:      []string{"reports@example.com"},
		Subject: "Uusi vastaus",
		Text:    "Vastaus liitteenä.",
		Attachments: []Attachment{{
			FileName:    "kysely-1.pdf",
			ContentType: "application/pdf",
			Data:        []byte("%PDF-1.3"),
		}},
	}
	e, err := buildEmail("noreply@example.com", msg)
	require.NoError(t, err)
	assert.Equal(t, "noreply@example.com", e.From)
	require.Len(t, e.Attachments, 1)
	assert.Equal(t, "kysely-1.pdf", e.Attachments[0].Filename)

	raw, err := e.Bytes()
	require.NoError(t, err)
	assert.Contains(t, string(raw), "kysely-1.pdf")
}

func TestSMTPMailerRequiresRecipients(t *testing.T) {
	m := &SMTPMailer{from: "noreply@example.com"}
	assert.Error(t, m.Send(context.Background(), Message{Subject: "x"}))
}

func TestNoopMailer(t *testing.T) {
	assert.NoError(t, NoopMailer{}.Send(context.Background(), Message{To: []string{"a@example.com"}}))
}
