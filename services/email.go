package services

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"legal_marketplace_go/config"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// EmailTemplateDir is where email templates are loaded from
var EmailTemplateDir = "templates/emails"

// Email represents an email message
type Email struct {
	To       []string
	Subject  string
	HTMLBody string
	TextBody string
}

// loadTemplate renders templateName.html and templateName.txt from EmailTemplateDir
func loadTemplate(templateName string, data interface{}) (html string, text string, err error) {
	loadAndExec := func(ext string) (string, error) {
		path := filepath.Join(EmailTemplateDir, templateName+ext)
		content, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read template %s: %w", path, err)
		}

		tmpl, err := template.New(filepath.Base(path)).Parse(string(content))
		if err != nil {
			return "", fmt.Errorf("failed to parse template %s: %w", path, err)
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return "", fmt.Errorf("failed to execute template %s: %w", path, err)
		}
		return buf.String(), nil
	}

	htmlContent, err := loadAndExec(".html")
	if err != nil {
		return "", "", err
	}

	textContent, err := loadAndExec(".txt")
	if err != nil {
		return "", "", err
	}

	return htmlContent, textContent, nil
}

// SendEmail sends an email using Resend API
func SendEmail(cfg *config.Config, email *Email) error {
	// In test mode, log the email instead of sending
	if cfg.EmailTestMode {
		logEmail(email)
		return nil
	}

	if cfg.ResendAPIKey == "" {
		return fmt.Errorf("RESEND_API_KEY not configured")
	}
	if len(email.To) == 0 {
		return fmt.Errorf("email has no recipients")
	}

	client := resend.NewClient(cfg.ResendAPIKey)

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", cfg.EmailFromName, cfg.EmailFrom),
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTMLBody,
		Text:    email.TextBody,
	}

	if params.Html == "" && params.Text == "" {
		return fmt.Errorf("email must have either HTMLBody or TextBody")
	}

	sent, err := client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email via Resend: %w", err)
	}

	zap.L().Info("email sent", zap.String("resend_id", sent.Id), zap.Strings("to", email.To))
	return nil
}

func logEmail(email *Email) {
	zap.L().Info("email logged (test mode, not sent)",
		zap.Strings("to", email.To),
		zap.String("subject", email.Subject),
		zap.String("text", email.TextBody),
		zap.String("html", truncate(email.HTMLBody, 500)),
	)
}

// truncate truncates a string to a maximum length
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

// CaseAvailableEmailData contains data for the case available email template
type CaseAvailableEmailData struct {
	CaseID     string
	Title      string
	Specialty  string
	LeadTier   string
	ClientCity string
	CaseURL    string
}

// BuildCaseAvailableEmail creates the notice sent when a case is published to lawyers
func BuildCaseAvailableEmail(toEmail string, data CaseAvailableEmailData) *Email {
	htmlBody, textBody, err := loadTemplate("case_available", data)
	if err != nil {
		zap.L().Warn("case available template unavailable, using plain text", zap.Error(err))
		htmlBody = ""
		textBody = fmt.Sprintf("Nuevo caso disponible: %s\nEspecialidad: %s\nTipo de lead: %s\n%s",
			data.Title, data.Specialty, data.LeadTier, data.CaseURL)
	}

	return &Email{
		To:       []string{toEmail},
		Subject:  "Nuevo caso disponible: " + strings.TrimSpace(data.Title),
		HTMLBody: htmlBody,
		TextBody: textBody,
	}
}
