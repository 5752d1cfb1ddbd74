package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
)

// TokenVerifier checks a download reference minted for asset and returns
// the identity it was issued to.
type TokenVerifier interface {
	Verify(raw, asset string) (entity.Identity, error)
}

// AssetLocator turns an asset name into a URL the browser can fetch.
type AssetLocator interface {
	Locate(ctx context.Context, asset string) (string, error)
}

// Downloads serve os materiais prometidos pelos lead magnets.
type Downloads struct {
	verifier TokenVerifier
	locator  AssetLocator
	assets   map[string]struct{}
	logger   *zap.Logger
}

// NewDownloads only serves assets named by the lead magnet policy.
func NewDownloads(verifier TokenVerifier, locator AssetLocator, policy PolicyConfig, logger *zap.Logger) *Downloads {
	if logger == nil {
		logger = zap.NewNop()
	}
	assets := make(map[string]struct{})
	for _, lm := range policy.LeadMagnets {
		if lm.Asset != "" {
			assets[lm.Asset] = struct{}{}
		}
	}
	return &Downloads{verifier: verifier, locator: locator, assets: assets, logger: logger}
}

// Resolve verifies the reference and returns where to redirect.
func (d *Downloads) Resolve(ctx context.Context, asset, token string) (string, error) {
	if _, ok := d.assets[asset]; !ok {
		return "", &DomainError{Code: CodeNotFound, Message: "file not found"}
	}
	if token == "" {
		return "", &DomainError{Code: CodeInvalidToken, Message: "download token is required"}
	}

	id, err := d.verifier.Verify(token, asset)
	if err != nil {
		return "", &DomainError{Code: CodeInvalidToken, Message: "invalid or expired download link", Err: err}
	}

	target, err := d.locator.Locate(ctx, asset)
	if err != nil {
		return "", unavailable("asset storage", err)
	}

	d.logger.Info("download served", zap.String("asset", asset), zap.String("email", id.String()))
	return target, nil
}
