package invitationinfra

import (
	"context"
	"net/url"
	"strings"

	"github.com/Abraxas-365/lingua/pkg/iam/invitation"
	"github.com/Abraxas-365/lingua/pkg/notifx"
)

// TemplateInvitation is the notifx template used for invitation emails.
const TemplateInvitation = "invitation"

var invitationTemplate = notifx.Template{
	Subject: "{{.Inviter}} invited you to Lingua",
	Text: `{{.Inviter}} invited you to join Lingua.

Accept the invitation: {{.Link}}

The link expires on {{.ExpiresAt}}.
`,
	HTML: `<p>{{.Inviter}} invited you to join Lingua.</p>
<p><a href="{{.Link}}">Accept the invitation</a></p>
<p>The link expires on {{.ExpiresAt}}.</p>`,
}

// EmailMailer sends invitation links through notifx.
type EmailMailer struct {
	client      *notifx.Client
	frontendURL string
}

func NewEmailMailer(client *notifx.Client, frontendURL string) (*EmailMailer, error) {
	if err := client.RegisterTemplate(TemplateInvitation, invitationTemplate); err != nil {
		return nil, err
	}
	return &EmailMailer{client: client, frontendURL: strings.TrimSuffix(frontendURL, "/")}, nil
}

// AcceptLink is the frontend page that stores the code and signs the user in.
func (m *EmailMailer) AcceptLink(code string) string {
	return m.frontendURL + "/accept_invitation/" + url.PathEscape(code)
}

func (m *EmailMailer) SendInvitation(ctx context.Context, inv *invitation.Invitation, inviterName string) error {
	if inviterName == "" {
		inviterName = "A teammate"
	}
	return m.client.SendTemplatedEmail(ctx, TemplateInvitation, inv.Email, map[string]any{
		"Inviter":   inviterName,
		"Link":      m.AcceptLink(inv.Code),
		"ExpiresAt": inv.ExpiresAt.UTC().Format("2006-01-02 15:04 MST"),
	}, notifx.WithTags(map[string]string{"invitation_id": inv.ID}))
}
