package token

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
)

func TestIssuer_RoundTrip(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	issuer := NewIssuer("s3cret", time.Hour, "https://app.test/").WithClock(func() time.Time { return now })

	link, err := issuer.DownloadLink("a@b.com", "sprint0-setup-checklist.md")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "https://app.test/api/downloads/secure/sprint0-setup-checklist.md?token="))

	u, err := url.Parse(link)
	require.NoError(t, err)
	tok := u.Query().Get("token")

	id, err := issuer.Verify(tok, "sprint0-setup-checklist.md")
	require.NoError(t, err)
	assert.Equal(t, entity.Identity("a@b.com"), id)
}

func TestIssuer_Rejects(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	issuer := NewIssuer("s3cret", time.Hour, "https://app.test").WithClock(func() time.Time { return now })
	tok, err := issuer.Sign("a@b.com", "guide.pdf")
	require.NoError(t, err)

	t.Run("other asset", func(t *testing.T) {
		_, err := issuer.Verify(tok, "other.pdf")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other secret", func(t *testing.T) {
		other := NewIssuer("different", time.Hour, "").WithClock(func() time.Time { return now })
		_, err := other.Verify(tok, "guide.pdf")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		later := NewIssuer("s3cret", time.Hour, "").WithClock(func() time.Time { return now.Add(2 * time.Hour) })
		_, err := later.Verify(tok, "guide.pdf")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.Verify("not-a-token", "guide.pdf")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestIssuer_WithoutSecret(t *testing.T) {
	issuer := NewIssuer("", time.Hour, "")
	_, err := issuer.DownloadLink("a@b.com", "guide.pdf")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestIssuer_UnsubscribeLink(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	issuer := NewIssuer("s3cret", time.Hour, "https://app.test").WithClock(func() time.Time { return now })

	link, err := issuer.UnsubscribeLink("a@b.com")
	require.NoError(t, err)
	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "/unsubscribe", u.Path)
	assert.Equal(t, "a@b.com", u.Query().Get("email"))
	tok := u.Query().Get("token")

	// outlives the download ttl
	later := NewIssuer("s3cret", time.Hour, "").WithClock(func() time.Time { return now.Add(30 * 24 * time.Hour) })
	id, err := later.Verify(tok, entity.UnsubscribeScope)
	require.NoError(t, err)
	assert.Equal(t, entity.Identity("a@b.com"), id)

	// not usable as a download reference
	_, err = issuer.Verify(tok, "guide.pdf")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
