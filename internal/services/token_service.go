package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hwainwright/gatefold/internal/models"
	"github.com/hwainwright/gatefold/internal/repositories"
	pkglogger "github.com/hwainwright/gatefold/pkg/logger"
	qrcode "github.com/skip2/go-qrcode"
)

// IssuedToken is the issuance result handed back to the publishing workflow:
// the token row plus the reader-facing access link.
type IssuedToken struct {
	Token      *models.AccessToken `json:"token"`
	AccessLink string              `json:"access_link"`
}

// TokenService handles issuance and operator-side token management. Validation
// lives in AccessService; issuance is driven by the external publishing
// workflow, once per subscriber per edition.
type TokenService struct {
	repo     repositories.TokenRepository
	docs     repositories.DocumentRepository
	baseURL  string
	logger   *slog.Logger
}

// NewTokenService creates a new TokenService
func NewTokenService(repo repositories.TokenRepository, docs repositories.DocumentRepository, baseURL string, logger *slog.Logger) *TokenService {
	return &TokenService{
		repo:    repo,
		docs:    docs,
		baseURL: baseURL,
		logger:  logger,
	}
}

// generateTokenString returns an opaque 64-hex-char token string
func generateTokenString() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Issue creates a token granting one subscriber access to one document.
// A second issuance for the same subscriber and document returns ErrConflict.
func (s *TokenService) Issue(ctx context.Context, documentID, subscriberID, subscriberName, subscriberNumber string, ttl time.Duration, maxAccess int) (*IssuedToken, error) {
	if documentID == "" || subscriberID == "" {
		return nil, models.ErrBadRequest
	}

	// The document projection must exist before a link can be issued for it
	if _, err := s.docs.GetByID(ctx, documentID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to check document: %w", err)
	}

	tokenString, err := generateTokenString()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	token := &models.AccessToken{
		Token:            tokenString,
		DocumentID:       documentID,
		SubscriberID:     subscriberID,
		SubscriberName:   subscriberName,
		SubscriberNumber: subscriberNumber,
		IssuedAt:         now,
		ExpiresAt:        now.Add(ttl),
		MaxAccessCount:   maxAccess,
	}

	if err := s.repo.Create(ctx, token); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.ErrorContext(ctx, "failed to create token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.InfoContext(ctx, "token issued",
		slog.String("token", pkglogger.TruncatedToken(tokenString)),
		slog.String("document_id", documentID),
		slog.String("subscriber_id", subscriberID),
		slog.Time("expires_at", token.ExpiresAt),
	)

	return &IssuedToken{
		Token:      token,
		AccessLink: s.AccessLink(tokenString),
	}, nil
}

// AccessLink builds the reader-facing link delivered through the messaging channel
func (s *TokenService) AccessLink(tokenString string) string {
	return fmt.Sprintf("%s/read?token=%s", s.baseURL, tokenString)
}

// AccessLinkQR renders the access link as a QR code PNG
func (s *TokenService) AccessLinkQR(ctx context.Context, tokenString string, size int) ([]byte, error) {
	if _, err := s.repo.GetByToken(ctx, tokenString); err != nil {
		return nil, err
	}

	if size <= 0 || size > 1024 {
		size = 256
	}

	png, err := qrcode.Encode(s.AccessLink(tokenString), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}

	return png, nil
}

// Revoke terminates a token on operator request
func (s *TokenService) Revoke(ctx context.Context, tokenString, reason string) error {
	if reason == "" {
		reason = models.RevocationReasonManual
	}

	if err := s.repo.Revoke(ctx, tokenString, reason); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "token revoked",
		slog.String("token", pkglogger.TruncatedToken(tokenString)),
		slog.String("reason", reason),
	)

	return nil
}

// ListBySubscriber retrieves a subscriber's tokens for operator tooling
func (s *TokenService) ListBySubscriber(ctx context.Context, subscriberID string, limit, offset int) ([]*models.AccessToken, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	tokens, err := s.repo.ListBySubscriber(ctx, subscriberID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}

	return tokens, nil
}
