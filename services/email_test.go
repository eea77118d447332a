package services

import (
	"os"
	"path/filepath"
	"testing"

	"legal_marketplace_go/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useTemplateDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	prev := EmailTemplateDir
	EmailTemplateDir = dir
	t.Cleanup(func() { EmailTemplateDir = prev })
	return dir
}

func TestLoadTemplate(t *testing.T) {
	dir := useTemplateDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greeting.html"), []byte("<p>Hola {{.Name}}</p>"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greeting.txt"), []byte("Hola {{.Name}}"), 0644))

	html, text, err := loadTemplate("greeting", map[string]string{"Name": "<Ana>"})
	require.NoError(t, err)
	assert.Equal(t, "<p>Hola &lt;Ana&gt;</p>", html)
	assert.Equal(t, "Hola &lt;Ana&gt;", text)

	_, _, err = loadTemplate("missing", nil)
	assert.Error(t, err)
}

func TestBuildCaseAvailableEmail(t *testing.T) {
	dir := useTemplateDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "case_available.html"), []byte("<h1>{{.Title}}</h1>"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "case_available.txt"), []byte("{{.Title}} - {{.Specialty}}"), 0644))

	email := BuildCaseAvailableEmail("ops@example.com", CaseAvailableEmailData{Title: "Despido", Specialty: "Derecho Laboral"})
	assert.Equal(t, []string{"ops@example.com"}, email.To)
	assert.Equal(t, "Nuevo caso disponible: Despido", email.Subject)
	assert.Equal(t, "<h1>Despido</h1>", email.HTMLBody)
	assert.Equal(t, "Despido - Derecho Laboral", email.TextBody)
}

func TestBuildCaseAvailableEmail_FallbackWithoutTemplate(t *testing.T) {
	useTemplateDir(t)

	email := BuildCaseAvailableEmail("ops@example.com", CaseAvailableEmailData{Title: "Herencia", CaseURL: "http://x/casos/1"})
	assert.Empty(t, email.HTMLBody)
	assert.Contains(t, email.TextBody, "Herencia")
	assert.Contains(t, email.TextBody, "http://x/casos/1")
}

func TestSendEmail_TestMode(t *testing.T) {
	cfg := &config.Config{EmailTestMode: true}
	err := SendEmail(cfg, &Email{To: []string{"a@example.com"}, Subject: "s", TextBody: "t"})
	assert.NoError(t, err)
}

func TestSendEmail_Validation(t *testing.T) {
	err := SendEmail(&config.Config{}, &Email{To: []string{"a@example.com"}, TextBody: "t"})
	assert.ErrorContains(t, err, "RESEND_API_KEY")

	cfg := &config.Config{ResendAPIKey: "re_test"}
	assert.ErrorContains(t, SendEmail(cfg, &Email{TextBody: "t"}), "no recipients")
	assert.ErrorContains(t, SendEmail(cfg, &Email{To: []string{"a@example.com"}}), "HTMLBody or TextBody")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abc", 2))
}
