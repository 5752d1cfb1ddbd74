package mail

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, m...)
	return nil
}

func rendered(t *testing.T, m *gomail.Message) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

func TestSendTransactional_DefaultTemplates(t *testing.T) {
	d := &fakeDialer{}
	s := NewSMTPSenderWithDialer(d, "no-reply@test.io", nil, nil)

	err := s.SendTransactional(context.Background(), "ana@x.io", "sprint0-checklist-delivery",
		map[string]any{"download_link": "https://app.test/api/downloads/secure/a.md?token=abc"})

	require.NoError(t, err)
	require.Len(t, d.sent, 1)
	m := d.sent[0]
	assert.Equal(t, []string{"ana@x.io"}, m.GetHeader("To"))
	assert.Equal(t, []string{"no-reply@test.io"}, m.GetHeader("From"))
	assert.Equal(t, []string{"Your Sprint 0 setup checklist"}, m.GetHeader("Subject"))

	_, body, err := s.render("sprint0-checklist-delivery", templateData{
		Email: "ana@x.io",
		Data:  map[string]any{"download_link": "https://app.test/x?token=abc"},
	})
	require.NoError(t, err)
	assert.Contains(t, body, `href="https://app.test/x?token=abc"`)
}

func TestSendTransactional_EveryDefaultTemplateRenders(t *testing.T) {
	names := []string{
		"sprint0-checklist-delivery", "newsletter-welcome", "core-welcome", "community-welcome",
		"coaching-welcome", "consulting-welcome", "exit-survey", "payment-failed", "sprint0-complete",
		"daily-progress",
	}
	s := NewSMTPSenderWithDialer(&fakeDialer{}, "no-reply@test.io", nil, nil)
	for _, name := range names {
		subject, body, err := s.render(name, templateData{Email: "ana@x.io", Data: map[string]any{}})
		require.NoError(t, err, name)
		assert.NotEmpty(t, subject, name)
		assert.NotEmpty(t, body, name)
	}
}

func TestSendTransactional_DailyProgress(t *testing.T) {
	s := NewSMTPSenderWithDialer(&fakeDialer{}, "no-reply@test.io", nil, nil)

	subject, body, err := s.render("daily-progress", templateData{
		Email: "ana@x.io",
		Data: map[string]any{
			"day":              3,
			"title":            "Talk to customers",
			"customerName":     "Ana",
			"unsubscribe_link": "https://app.test/unsubscribe?email=ana%40x.io&token=abc",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Day 3: Talk to customers", subject)
	assert.Contains(t, body, "Hi Ana,")
	assert.Contains(t, body, `href="https://app.test/unsubscribe?email=ana%40x.io`)
}

func TestSendTransactional_CustomTemplates(t *testing.T) {
	fsys := fstest.MapFS{
		"payment-failed.html": {Data: []byte(`{{define "subject"}}Falhou{{end}}{{define "body"}}Valor {{index .Data "failed_amount"}}{{end}}`)},
	}
	d := &fakeDialer{}
	s := NewSMTPSenderWithDialer(d, "no-reply@test.io", fsys, nil)

	require.NoError(t, s.SendTransactional(context.Background(), "ana@x.io", "payment-failed", map[string]any{"failed_amount": "19.99"}))
	assert.Equal(t, []string{"Falhou"}, d.sent[0].GetHeader("Subject"))
	assert.Contains(t, rendered(t, d.sent[0]), "Valor 19.99")
}

func TestSendTransactional_UnknownTemplate(t *testing.T) {
	d := &fakeDialer{}
	s := NewSMTPSenderWithDialer(d, "no-reply@test.io", nil, nil)

	err := s.SendTransactional(context.Background(), "ana@x.io", "nope", nil)
	assert.ErrorIs(t, err, ErrUnknownTemplate)

	err = s.SendTransactional(context.Background(), "ana@x.io", "../secret", nil)
	assert.ErrorIs(t, err, ErrUnknownTemplate)
	assert.Empty(t, d.sent)
}

func TestSendTransactional_DialError(t *testing.T) {
	d := &fakeDialer{err: errors.New("connection refused")}
	s := NewSMTPSenderWithDialer(d, "no-reply@test.io", nil, nil)

	err := s.SendTransactional(context.Background(), "ana@x.io", "exit-survey", nil)
	assert.ErrorContains(t, err, "connection refused")
}

type fakeContacts struct {
	upserts []string
	enrolls []string
}

func (f *fakeContacts) UpsertContact(_ context.Context, id entity.Identity, _ map[string]any) error {
	f.upserts = append(f.upserts, id.String())
	return nil
}

func (f *fakeContacts) EnrollInSequence(_ context.Context, id entity.Identity, seq string) error {
	f.enrolls = append(f.enrolls, seq)
	return nil
}

func TestHybrid_RoutesByOperation(t *testing.T) {
	contacts := &fakeContacts{}
	d := &fakeDialer{}
	h := NewHybrid(contacts, NewSMTPSenderWithDialer(d, "no-reply@test.io", nil, nil))
	ctx := context.Background()

	require.NoError(t, h.UpsertContact(ctx, "ana@x.io", nil))
	require.NoError(t, h.EnrollInSequence(ctx, "ana@x.io", "core-onboarding"))
	require.NoError(t, h.SendTransactional(ctx, "ana@x.io", "core-welcome", nil))

	assert.Equal(t, []string{"ana@x.io"}, contacts.upserts)
	assert.Equal(t, []string{"core-onboarding"}, contacts.enrolls)
	assert.Len(t, d.sent, 1)
}
