package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therealutkarshpriyadarshi/vidsum/internal/config"
	"github.com/therealutkarshpriyadarshi/vidsum/pkg/models"
)

type capture struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	msg  string
	err  error
}

func (c *capture) send(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	c.addr, c.auth, c.from, c.to, c.msg = addr, a, from, to, string(msg)
	return c.err
}

func testConfig() config.MailConfig {
	return config.MailConfig{
		Host:              "smtp.example.com",
		Port:              587,
		Username:          "bot@example.com",
		Password:          "pw",
		FeedbackRecipient: "team@example.com",
	}
}

func TestSendFeedback(t *testing.T) {
	c := &capture{}
	m := New(testConfig(), nil)
	m.send = c.send

	err := m.SendFeedback(context.Background(), &models.Feedback{Username: "alice", Text: "Love it"})
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", c.addr)
	assert.NotNil(t, c.auth)
	assert.Equal(t, "bot@example.com", c.from)
	assert.Equal(t, []string{"team@example.com"}, c.to)
	assert.Contains(t, c.msg, "Subject: Feedback\r\n")
	assert.Contains(t, c.msg, "To: team@example.com\r\n")
	assert.True(t, strings.HasSuffix(c.msg, "\r\n\r\nFeedback from alice: Love it\r\n"))
}

func TestFeedbackBody(t *testing.T) {
	body := FeedbackBody(&models.Feedback{Username: "bob", Text: "Add Tamil please"})
	assert.Equal(t, "Feedback from bob: Add Tamil please", body)
}

func TestSendErrors(t *testing.T) {
	c := &capture{err: errors.New("535 auth failed")}
	m := New(testConfig(), nil)
	m.send = c.send

	err := m.Send(context.Background(), "x@example.com", "s", "b")
	assert.Error(t, err)

	unconfigured := New(config.MailConfig{}, nil)
	unconfigured.send = c.send
	assert.ErrorIs(t, unconfigured.SendFeedback(context.Background(), &models.Feedback{}), ErrNotConfigured)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Send(ctx, "x@example.com", "s", "b"), context.Canceled)
}

func TestHeaderInjection(t *testing.T) {
	c := &capture{}
	m := New(testConfig(), nil)
	m.send = c.send

	require.NoError(t, m.Send(context.Background(), "x@example.com", "Hi\r\nBcc: evil@example.com", "b"))
	assert.NotContains(t, c.msg, "\r\nBcc:")
}

func TestNoAuthWithoutUsername(t *testing.T) {
	cfg := testConfig()
	cfg.Username = ""
	cfg.From = "noreply@example.com"
	m := New(cfg, nil)

	assert.Nil(t, m.auth)
	assert.Equal(t, "noreply@example.com", m.from)
}
