package email

import (
	"fmt"
	"html/template"
	"strings"

	"gopkg.in/gomail.v2"
)

type Sender struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailSender(host string, port int, username, password, from string) *Sender {
	dialer := gomail.NewDialer(host, port, username, password)
	return &Sender{
		dialer: dialer,
		from:   from,
	}
}

func (s *Sender) sendEmail(to, subject, text, html string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", text)
	m.AddAlternative("text/html", html)

	return s.dialer.DialAndSend(m)
}

// SendVerificationCode mails the 6-digit registration code. The caller blocks
// on this: without the code the user cannot finish signing up.
func (s *Sender) SendVerificationCode(to, code string) error {
	subject := "Your verification code"
	text := fmt.Sprintf("Use this code to finish setting up your account: %s\n\nThe code expires in 15 minutes.", code)
	html, err := buildHTMLTemplate(templateData{
		Title:       "Confirm your email",
		Intro:       "Let's finish setting up your account.",
		ContentHTML: template.HTML(fmt.Sprintf(`<p>Your verification code is:</p>
			<p style="font-size:32px;font-weight:700;letter-spacing:6px;margin:12px 0;color:#8d7b8d;">%s</p>
			<p>This code expires in 15 minutes.</p>`, template.HTMLEscapeString(code))),
	})
	if err != nil {
		return fmt.Errorf("failed to build email body: %w", err)
	}
	return s.sendEmail(to, subject, text, html)
}

// SendResetLink mails the password-reset link with the plaintext token as a
// query parameter. Also blocking, for the same reason.
func (s *Sender) SendResetLink(to, name, link string) error {
	subject := "Reset your password"
	text := fmt.Sprintf("Hi %s,\n\nUse the following link to reset your password (valid for 30 minutes):\n%s\n\nIf you did not request this, you can ignore this email.", displayName(name), link)
	html, err := buildHTMLTemplate(templateData{
		Title:       "Reset your password",
		Intro:       fmt.Sprintf("Hi %s,", displayName(name)),
		ContentHTML: `<p>We received a request to reset your password. Use the button below to create a new one (the link stays active for 30 minutes).</p>`,
		CTA:         &callToAction{Href: link, Label: "Reset password"},
		Footer:      "If you didn't request this change, you can safely ignore this email.",
	})
	if err != nil {
		return fmt.Errorf("failed to build email body: %w", err)
	}
	return s.sendEmail(to, subject, text, html)
}

// SendWelcome mails the post-registration greeting. Best effort only.
func (s *Sender) SendWelcome(to, name string) error {
	subject := "Welcome to TheSweetBaker Co."
	text := fmt.Sprintf("Hi %s,\n\nYour account is ready. You can now place orders and manage your profile.\n\nSweet regards,\nTheSweetBaker Co.", displayName(name))
	html, err := buildHTMLTemplate(templateData{
		Title:       "Welcome aboard!",
		Intro:       fmt.Sprintf("Hi %s,", displayName(name)),
		ContentHTML: `<p>Your account is ready. You can now place orders, save your favourite treats, and keep your profile up to date.</p>`,
	})
	if err != nil {
		return fmt.Errorf("failed to build email body: %w", err)
	}
	return s.sendEmail(to, subject, text, html)
}

func displayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "there"
	}
	return name
}
