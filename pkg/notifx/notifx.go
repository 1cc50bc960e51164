package notifx

import (
	"context"
	"fmt"
	"net/mail"
)

// EmailMessage represents an email to be sent.
type EmailMessage struct {
	From     string   `json:"from"`
	To       []string `json:"to"`
	ReplyTo  string   `json:"reply_to,omitempty"`
	Subject  string   `json:"subject"`
	TextBody string   `json:"text_body,omitempty"`
	HTMLBody string   `json:"html_body,omitempty"`
}

// EmailSender sends a single email.
type EmailSender interface {
	SendEmail(ctx context.Context, msg EmailMessage, opts ...Option) error
}

// Client is the main entry point for sending notifications.
type Client struct {
	provider  EmailSender
	from      string
	templates *TemplateRegistry
}

// NewClient creates a notification client that sends as fromName <fromAddress>
// unless a message sets its own From.
func NewClient(provider EmailSender, fromAddress, fromName string) *Client {
	from := fromAddress
	if fromName != "" {
		from = (&mail.Address{Name: fromName, Address: fromAddress}).String()
	}
	return &Client{
		provider:  provider,
		from:      from,
		templates: NewTemplateRegistry(),
	}
}

// SendEmail validates msg and hands it to the provider.
func (c *Client) SendEmail(ctx context.Context, msg EmailMessage, opts ...Option) error {
	if len(msg.To) == 0 {
		return notifxErrors.New(ErrInvalidMessage).WithDetail("reason", "no recipients")
	}
	for _, to := range msg.To {
		if _, err := mail.ParseAddress(to); err != nil {
			return notifxErrors.NewWithCause(ErrInvalidMessage, err).WithDetail("to", to)
		}
	}
	if msg.Subject == "" {
		return notifxErrors.New(ErrInvalidMessage).WithDetail("reason", "empty subject")
	}
	if msg.From == "" {
		msg.From = c.from
	}
	return c.provider.SendEmail(ctx, msg, opts...)
}

// RegisterTemplate parses and stores a named template for later use.
func (c *Client) RegisterTemplate(name string, tmpl Template) error {
	return c.templates.Register(name, tmpl)
}

// SendTemplatedEmail renders the named template with data and sends it to.
func (c *Client) SendTemplatedEmail(ctx context.Context, templateName string, to string, data any, opts ...Option) error {
	rendered, err := c.templates.Render(templateName, data)
	if err != nil {
		return err
	}

	msg := EmailMessage{
		To:       []string{to},
		Subject:  rendered.Subject,
		TextBody: rendered.Text,
		HTMLBody: rendered.HTML,
	}
	opts = append([]Option{WithTags(map[string]string{"template": templateName})}, opts...)
	if err := c.SendEmail(ctx, msg, opts...); err != nil {
		return fmt.Errorf("send %s email: %w", templateName, err)
	}
	return nil
}
