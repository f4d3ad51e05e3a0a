package email_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavsocial/wavscan/pkg/email"
	"github.com/wavsocial/wavscan/pkg/logger"
)

func TestSendParams_Validate(t *testing.T) {
	t.Parallel()

	valid := email.SendParams{To: "a@b.com", Subject: "Hi", BodyHTML: "<p>hi</p>"}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*email.SendParams)
	}{
		{name: "bad recipient", mutate: func(p *email.SendParams) { p.To = "nope" }},
		{name: "empty subject", mutate: func(p *email.SendParams) { p.Subject = "" }},
		{name: "empty body", mutate: func(p *email.SendParams) { p.BodyHTML = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := valid
			tt.mutate(&p)
			assert.ErrorIs(t, p.Validate(), email.ErrInvalidParams)
		})
	}
}

func TestNewPostmarkSender_ConfigValidation(t *testing.T) {
	t.Parallel()

	base := email.Config{
		PostmarkServerToken: "token",
		SenderEmail:         "noreply@wavscan.app",
		SupportEmail:        "support@wavscan.app",
	}

	t.Run("valid config", func(t *testing.T) {
		sender, err := email.NewPostmarkSender(base)
		require.NoError(t, err)
		require.NotNil(t, sender)
	})

	t.Run("missing token", func(t *testing.T) {
		cfg := base
		cfg.PostmarkServerToken = ""
		_, err := email.NewPostmarkSender(cfg)
		require.ErrorIs(t, err, email.ErrInvalidConfig)
	})

	t.Run("invalid sender address", func(t *testing.T) {
		cfg := base
		cfg.SenderEmail = "not-an-email"
		_, err := email.NewPostmarkSender(cfg)
		require.ErrorIs(t, err, email.ErrInvalidConfig)
	})
}

func TestDevSender(t *testing.T) {
	t.Parallel()

	sender := email.NewDevSender(logger.NewDiscard())

	err := sender.Send(context.Background(), email.SendParams{
		To:       "a@b.com",
		Subject:  "Verify your email",
		BodyHTML: "<p>link</p>",
	})
	require.NoError(t, err)

	err = sender.Send(context.Background(), email.SendParams{To: "broken"})
	require.ErrorIs(t, err, email.ErrInvalidParams)
}
