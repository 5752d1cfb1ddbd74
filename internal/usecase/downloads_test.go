package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
	"github.com/xavierca1/ligue-lifecycle/internal/usecase"
)

const checklist = "sprint0-setup-checklist.md"

func TestDownloads_Resolve(t *testing.T) {
	ctx := context.Background()
	policy := usecase.DefaultPolicyConfig()

	t.Run("valid reference redirects to the located asset", func(t *testing.T) {
		verifier := new(MockTokenVerifier)
		locator := new(MockAssetLocator)
		verifier.On("Verify", "tok", checklist).Return(entity.Identity("ana@x.io"), nil)
		locator.On("Locate", mock.Anything, checklist).Return("https://cdn.test/"+checklist, nil)

		target, err := usecase.NewDownloads(verifier, locator, policy, nil).Resolve(ctx, checklist, "tok")

		require.NoError(t, err)
		assert.Equal(t, "https://cdn.test/"+checklist, target)
	})

	t.Run("unknown asset is not found before the token is checked", func(t *testing.T) {
		verifier := new(MockTokenVerifier)
		locator := new(MockAssetLocator)

		_, err := usecase.NewDownloads(verifier, locator, policy, nil).Resolve(ctx, "../etc/passwd", "tok")

		assert.Equal(t, usecase.CodeNotFound, usecase.ErrorCode(err))
		verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := usecase.NewDownloads(new(MockTokenVerifier), new(MockAssetLocator), policy, nil).Resolve(ctx, checklist, "")
		assert.Equal(t, usecase.CodeInvalidToken, usecase.ErrorCode(err))
	})

	t.Run("rejected token never reaches storage", func(t *testing.T) {
		verifier := new(MockTokenVerifier)
		locator := new(MockAssetLocator)
		verifier.On("Verify", "bad", checklist).Return(entity.Identity(""), errors.New("expired"))

		_, err := usecase.NewDownloads(verifier, locator, policy, nil).Resolve(ctx, checklist, "bad")

		assert.Equal(t, usecase.CodeInvalidToken, usecase.ErrorCode(err))
		locator.AssertNotCalled(t, "Locate", mock.Anything, mock.Anything)
	})

	t.Run("storage failure", func(t *testing.T) {
		verifier := new(MockTokenVerifier)
		locator := new(MockAssetLocator)
		verifier.On("Verify", "tok", checklist).Return(entity.Identity("ana@x.io"), nil)
		locator.On("Locate", mock.Anything, checklist).Return("", errors.New("s3 down"))

		_, err := usecase.NewDownloads(verifier, locator, policy, nil).Resolve(ctx, checklist, "tok")

		assert.Equal(t, usecase.CodeCollaboratorUnavailable, usecase.ErrorCode(err))
	})
}
