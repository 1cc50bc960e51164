package otpinfra

import (
	"context"
	"time"

	"github.com/Abraxas-365/lingua/pkg/notifx"
)

// TemplateOTPCode is the notifx template used for one-time codes.
const TemplateOTPCode = "otp_code"

var otpTemplate = notifx.Template{
	Subject: "Your Lingua verification code",
	Text: `Your verification code is {{.Code}}.

It expires in {{.ValidFor}}. If you did not request it, ignore this email.
`,
	HTML: `<p>Your verification code is <strong>{{.Code}}</strong>.</p>
<p>It expires in {{.ValidFor}}. If you did not request it, ignore this email.</p>`,
}

// EmailNotifier sends codes through notifx.
type EmailNotifier struct {
	client   *notifx.Client
	validFor time.Duration
}

func NewEmailNotifier(client *notifx.Client, validFor time.Duration) (*EmailNotifier, error) {
	if err := client.RegisterTemplate(TemplateOTPCode, otpTemplate); err != nil {
		return nil, err
	}
	return &EmailNotifier{client: client, validFor: validFor}, nil
}

func (n *EmailNotifier) SendOTP(ctx context.Context, contact string, code string) error {
	return n.client.SendTemplatedEmail(ctx, TemplateOTPCode, contact, map[string]any{
		"Code":     code,
		"ValidFor": n.validFor.String(),
	})
}
