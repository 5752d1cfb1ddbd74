package token

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
)

const issuerName = "ligue-lifecycle"

var (
	ErrInvalidToken  = errors.New("invalid download token")
	ErrNotConfigured = errors.New("download token secret not configured")
)

type downloadClaims struct {
	jwt.RegisteredClaims
	Asset string `json:"asset"`
}

// unsubscribeTTL keeps links in old emails working.
const unsubscribeTTL = 365 * 24 * time.Hour

// Issuer signs and verifies short-lived download references (HS256). The
// same keys sign unsubscribe links, scoped by entity.UnsubscribeScope.
type Issuer struct {
	secret  []byte
	ttl     time.Duration
	baseURL string
	now     func() time.Time
}

func NewIssuer(secret string, ttl time.Duration, baseURL string) *Issuer {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &Issuer{
		secret:  []byte(secret),
		ttl:     ttl,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// DownloadLink returns the public URL that serves asset to id.
func (i *Issuer) DownloadLink(id entity.Identity, asset string) (string, error) {
	tok, err := i.Sign(id, asset)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/api/downloads/secure/%s?token=%s",
		i.baseURL, url.PathEscape(asset), url.QueryEscape(tok)), nil
}

// UnsubscribeLink returns the page URL an email footer points to.
func (i *Issuer) UnsubscribeLink(id entity.Identity) (string, error) {
	tok, err := i.sign(id, entity.UnsubscribeScope, unsubscribeTTL)
	if err != nil {
		return "", err
	}
	q := url.Values{"email": {id.String()}, "token": {tok}}
	return i.baseURL + "/unsubscribe?" + q.Encode(), nil
}

func (i *Issuer) Sign(id entity.Identity, asset string) (string, error) {
	return i.sign(id, asset, i.ttl)
}

func (i *Issuer) sign(id entity.Identity, asset string, ttl time.Duration) (string, error) {
	if len(i.secret) == 0 {
		return "", ErrNotConfigured
	}
	now := i.now()
	claims := downloadClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuerName,
			Subject:   id.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Asset: asset,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign download token: %w", err)
	}
	return signed, nil
}

// Verify checks the token and that it was issued for asset. It returns the
// identity the link was issued to.
func (i *Issuer) Verify(raw, asset string) (entity.Identity, error) {
	if len(i.secret) == 0 {
		return "", ErrNotConfigured
	}

	var claims downloadClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuerName),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Asset != asset {
		return "", fmt.Errorf("%w: issued for another file", ErrInvalidToken)
	}

	id, err := entity.ParseIdentity(claims.Subject)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return id, nil
}
