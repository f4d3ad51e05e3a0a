// Package email abstracts outbound transactional mail. Production uses
// Postmark; development logs the message instead of sending it.
package email

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

var (
	ErrInvalidConfig = errors.New("email: invalid configuration")
	ErrInvalidParams = errors.New("email: invalid send parameters")
	ErrFailedToSend  = errors.New("email: failed to send")
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Config is populated from the environment via config.Load. The Postmark
// token is optional so local runs can fall back to the dev sender.
type Config struct {
	PostmarkServerToken string `env:"POSTMARK_SERVER_TOKEN"`
	SenderEmail         string `env:"SENDER_EMAIL,required"`
	SupportEmail        string `env:"SUPPORT_EMAIL,required"`
}

// Sender sends a single transactional email.
type Sender interface {
	Send(ctx context.Context, params SendParams) error
}

// SendParams describes one outbound message.
type SendParams struct {
	To       string
	Subject  string
	BodyHTML string
	Tag      string
}

// Validate checks the parameters before handing them to a transport.
func (p SendParams) Validate() error {
	if !emailRegex.MatchString(p.To) {
		return fmt.Errorf("%w: recipient %q is not a valid address", ErrInvalidParams, p.To)
	}
	if p.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidParams)
	}
	if p.BodyHTML == "" {
		return fmt.Errorf("%w: body is required", ErrInvalidParams)
	}
	return nil
}
