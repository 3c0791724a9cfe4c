package email

import (
	"bytes"
	"fmt"
	"html/template"
)

var welcomeTemplate = template.Must(template.New("welcome").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Welcome to {{.AppName}}</title>
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; margin: 0; padding: 0; background-color: #f5f5f5;">
<table role="presentation" style="width: 100%; border: 0; cellpadding: 0; cellspacing: 0;">
<tr><td style="padding: 40px 0; text-align: center;">
<table role="presentation" style="max-width: 480px; margin: 0 auto; background: #ffffff; border-radius: 8px; overflow: hidden; box-shadow: 0 1px 3px rgba(0,0,0,0.1);">
<tr><td style="padding: 32px 40px; text-align: center;">
<h1 style="margin: 0 0 16px; font-size: 24px; color: #1a1a1a;">Welcome to {{.AppName}}</h1>
<p style="margin: 0 0 24px; color: #666; font-size: 15px; line-height: 1.5;">
Your team <strong>{{.TeamName}}</strong> is ready. Open your dashboard to invite
teammates and get started.
</p>
<a href="{{.DashboardURL}}" style="display: inline-block; padding: 12px 32px; background: #2563eb; color: #ffffff; text-decoration: none; border-radius: 6px; font-size: 15px; font-weight: 500;">
Open Dashboard
</a>
</td></tr>
</table>
</td></tr>
</table>
</body>
</html>`))

// WelcomeData holds template data for the welcome email.
type WelcomeData struct {
	AppName      string
	TeamName     string
	DashboardURL string
}

// RenderWelcomeEmail renders the welcome HTML email with a plain-text
// fallback.
func RenderWelcomeEmail(data WelcomeData) (html, text string, err error) {
	var buf bytes.Buffer
	if err := welcomeTemplate.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render welcome template: %w", err)
	}

	textBody := fmt.Sprintf("Welcome to %s\n\nYour team %s is ready. Open your dashboard to invite teammates and get started: %s",
		data.AppName, data.TeamName, data.DashboardURL)

	return buf.String(), textBody, nil
}

var invitationTemplate = template.Must(template.New("invitation").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>You're invited to {{.TeamName}}</title>
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; margin: 0; padding: 0; background-color: #f5f5f5;">
<table role="presentation" style="width: 100%; border: 0; cellpadding: 0; cellspacing: 0;">
<tr><td style="padding: 40px 0; text-align: center;">
<table role="presentation" style="max-width: 480px; margin: 0 auto; background: #ffffff; border-radius: 8px; overflow: hidden; box-shadow: 0 1px 3px rgba(0,0,0,0.1);">
<tr><td style="padding: 32px 40px; text-align: center;">
<h1 style="margin: 0 0 16px; font-size: 24px; color: #1a1a1a;">Join {{.TeamName}}</h1>
<p style="margin: 0 0 24px; color: #666; font-size: 15px; line-height: 1.5;">
{{.InviterName}} invited you to join <strong>{{.TeamName}}</strong> as a {{.Role}}.
</p>
<a href="{{.AcceptURL}}" style="display: inline-block; padding: 12px 32px; background: #2563eb; color: #ffffff; text-decoration: none; border-radius: 6px; font-size: 15px; font-weight: 500;">
Accept Invitation
</a>
<p style="margin: 24px 0 0; color: #999; font-size: 13px; line-height: 1.5;">
If you weren't expecting this invitation, you can safely ignore this email.
</p>
</td></tr>
</table>
</td></tr>
</table>
</body>
</html>`))

// InvitationData holds template data for the invitation email.
type InvitationData struct {
	TeamName    string
	InviterName string
	Role        string
	AcceptURL   string
}

// RenderInvitationEmail renders the invitation HTML email with a plain-text
// fallback.
func RenderInvitationEmail(data InvitationData) (html, text string, err error) {
	var buf bytes.Buffer
	if err := invitationTemplate.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render invitation template: %w", err)
	}

	textBody := fmt.Sprintf("Join %s\n\n%s invited you to join %s as a %s. Accept here: %s",
		data.TeamName, data.InviterName, data.TeamName, data.Role, data.AcceptURL)

	return buf.String(), textBody, nil
}
