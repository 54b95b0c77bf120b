package mailer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessage(t *testing.T) {
	raw := string(buildMessage(Message{
		Subject: "Your Signup OTP",
		Body:    "Your OTP for signup is 123456",
		From:    "noreply@alumni.test",
		To:      []string{"a@alumni.test", "b@alumni.test"},
	}))

	assert.Contains(t, raw, "From: noreply@alumni.test\r\n")
	assert.Contains(t, raw, "To: a@alumni.test, b@alumni.test\r\n")
	assert.Contains(t, raw, "Subject: Your Signup OTP\r\n")
	assert.Contains(t, raw, "\r\n\r\nYour OTP for signup is 123456")
}

func TestSMTPSenderWithoutHostLogs(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{From: "noreply@alumni.test"})

	err := s.Send(context.Background(), Message{Subject: "hi", Body: "body", To: []string{"x@alumni.test"}})
	require.NoError(t, err)
}

func TestSMTPSenderRequiresRecipients(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{})

	err := s.Send(context.Background(), Message{Subject: "hi"})
	assert.Error(t, err)
}

func TestSMTPSenderCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewSMTPSender(SMTPConfig{}).Send(ctx, Message{Subject: "hi", To: []string{"x@alumni.test"}})
	assert.ErrorIs(t, err, context.Canceled)
}
