package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aa-analytics/funnelreport/config"
)

func TestSend_NotConfigured(t *testing.T) {
	m := NewMailer(config.SMTPConfig{Host: "smtp.example.com", Port: 587})
	err := m.Send(context.Background(), Notice{
		Entity:  "fiu@bank",
		To:      []string{"team@bank.example"},
		Subject: "funnel",
	})
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestSend_CancelledContext(t *testing.T) {
	m := NewMailer(config.SMTPConfig{User: "u", Password: "p", Host: "smtp.example.com", Port: 587})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := m.Send(ctx, Notice{To: []string{"team@bank.example"}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestPlainText(t *testing.T) {
	got := plainText("Dear team,<br>Please find the <b>funnel</b>.")
	require.Equal(t, "Dear team,\nPlease find the funnel.", got)
}
