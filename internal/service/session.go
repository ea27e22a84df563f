// Package service contains the business logic of the RSVP backend.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → orchestrates OAuth, provisioning, submission
//	Repository (Data layer)  → reads/writes the configuration table
//
// THE DEPENDENCY CHAIN:
//
//	server.New creates: DB → SessionService → Provisioner → RSVPService → Handlers
//	At runtime:         RSVPHandler → RSVPService → SessionService (token)
//	                                              → Provisioner (sheet id)
//	                                              → sheets.Client (append)
//
// Services take interfaces (repository.ConfigRepository, OAuthProvider,
// sheets.Factory), so tests run against in-memory fakes.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/sakif/wedding-rsvp/internal/apperror"
	"github.com/sakif/wedding-rsvp/internal/metrics"
	"github.com/sakif/wedding-rsvp/internal/model"
	"github.com/sakif/wedding-rsvp/internal/repository"
)

// OAuthProvider is the slice of the OAuth2 provider the session needs.
// *auth.GoogleProvider implements it.
type OAuthProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource
}

// RecordCodec turns the serialized credential record into the stored text
// and back. *auth.Sealer implements it.
type RecordCodec interface {
	Encode(plaintext []byte) (string, error)
	Decode(value string) ([]byte, error)
}

// plainCodec stores the record as-is.
type plainCodec struct{}

func (plainCodec) Encode(plaintext []byte) (string, error) { return string(plaintext), nil }
func (plainCodec) Decode(value string) ([]byte, error)     { return []byte(value), nil }

// SessionService links the operator's Google account and hands out
// authenticated HTTP clients built from the stored credential record.
//
// DEPENDENCIES (injected via NewSessionService):
//   - provider  OAuthProvider                  → consent URL, code exchange, refresh
//   - store     repository.ConfigRepository    → the credential record under google_tokens
//   - metrics   metrics.Recorder               → exchange counters
type SessionService struct {
	provider OAuthProvider
	store    repository.ConfigRepository
	codec    RecordCodec
	metrics  metrics.Recorder
	timeout  time.Duration
	logger   *slog.Logger
}

// SessionOption customizes a SessionService.
type SessionOption func(*SessionService)

// WithRecordCodec seals the stored credential record (see auth.Sealer).
func WithRecordCodec(c RecordCodec) SessionOption {
	return func(s *SessionService) { s.codec = c }
}

// WithExchangeTimeout bounds the code-for-token round trip.
func WithExchangeTimeout(d time.Duration) SessionOption {
	return func(s *SessionService) { s.timeout = d }
}

// NewSessionService creates a SessionService.
func NewSessionService(
	provider OAuthProvider,
	store repository.ConfigRepository,
	rec metrics.Recorder,
	logger *slog.Logger,
	opts ...SessionOption,
) *SessionService {
	s := &SessionService{
		provider: provider,
		store:    store,
		codec:    plainCodec{},
		metrics:  rec,
		timeout:  DefaultRemoteTimeout,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AuthorizationURL returns the provider's consent URL carrying state.
// Offline access and a forced consent prompt are always requested.
func (s *SessionService) AuthorizationURL(state string) string {
	return s.provider.AuthURL(state)
}

// ExchangeCode trades a one-time authorization code for a credential record
// and stores it, replacing any previous record.
//
// On any failure (bad or expired code, provider unreachable, timeout, or the
// record could not be written) it returns apperror.ErrAuthExchange. Nothing
// is written unless the exchange itself succeeded.
func (s *SessionService) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		s.metrics.RecordAuthExchange(metrics.ResultInvalid)
		return nil, apperror.AuthExchangeFailed(errors.New("authorization code is empty"))
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	tok, err := s.provider.Exchange(exchangeCtx, code)
	s.metrics.RecordRemoteCall("exchange", time.Since(start))
	if err != nil {
		s.metrics.RecordAuthExchange(metrics.ResultFailure)
		return nil, apperror.AuthExchangeFailed(err)
	}

	if err := s.saveToken(ctx, tok); err != nil {
		s.metrics.RecordAuthExchange(metrics.ResultFailure)
		return nil, apperror.AuthExchangeFailed(err)
	}

	s.metrics.RecordAuthExchange(metrics.ResultSuccess)
	s.logger.Info("google account linked",
		slog.Bool("refreshToken", tok.RefreshToken != ""),
		slog.Time("expiry", tok.Expiry),
	)
	return tok, nil
}

// ConnectionStatus reports whether a credential record is stored.
//
// This is a presence check only: a stored but expired token still reports
// true, because the refresh token inside it renews access on the next call.
func (s *SessionService) ConnectionStatus(ctx context.Context) (bool, error) {
	_, err := s.store.Get(ctx, model.ConfigKeyGoogleTokens)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, apperror.ErrNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("service/session: reading credentials: %w", err)
}

// Token loads the stored credential record.
// Returns apperror.ErrNotConfigured when no account has been linked.
func (s *SessionService) Token(ctx context.Context) (*oauth2.Token, error) {
	raw, err := s.store.Get(ctx, model.ConfigKeyGoogleTokens)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotConfigured()
		}
		return nil, fmt.Errorf("service/session: reading credentials: %w", err)
	}

	plaintext, err := s.codec.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("service/session: decoding credentials: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(plaintext, &tok); err != nil {
		return nil, fmt.Errorf("service/session: parsing credentials: %w", err)
	}
	return &tok, nil
}

// HTTPClient returns an *http.Client that authenticates as the linked
// account. When the access token has expired the client refreshes it and
// writes the new record back to the store.
//
// ctx governs refresh calls as well, so pass the request-scoped context.
func (s *SessionService) HTTPClient(ctx context.Context) (*http.Client, error) {
	tok, err := s.Token(ctx)
	if err != nil {
		return nil, err
	}

	src := &persistingTokenSource{
		base:   s.provider.TokenSource(ctx, tok),
		last:   tok.AccessToken,
		save:   func(t *oauth2.Token) error { return s.saveToken(context.WithoutCancel(ctx), t) },
		logger: s.logger,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src)), nil
}

// saveToken serializes tok and upserts it under google_tokens.
func (s *SessionService) saveToken(ctx context.Context, tok *oauth2.Token) error {
	plaintext, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("service/session: serializing credentials: %w", err)
	}
	value, err := s.codec.Encode(plaintext)
	if err != nil {
		return fmt.Errorf("service/session: encoding credentials: %w", err)
	}
	if err := s.store.Put(ctx, model.ConfigKeyGoogleTokens, value); err != nil {
		return fmt.Errorf("service/session: storing credentials: %w", err)
	}
	return nil
}

// persistingTokenSource writes refreshed tokens back to the store, so a
// restart does not fall back to the expired access token.
type persistingTokenSource struct {
	base   oauth2.TokenSource
	save   func(*oauth2.Token) error
	logger *slog.Logger

	mu   sync.Mutex
	last string
}

// Token implements oauth2.TokenSource.
func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if tok.AccessToken != p.last {
		// A failed write only costs an extra refresh later.
		if err := p.save(tok); err != nil {
			p.logger.Warn("failed to persist refreshed token", slog.String("error", err.Error()))
		} else {
			p.last = tok.AccessToken
			p.logger.Info("refreshed google access token", slog.Time("expiry", tok.Expiry))
		}
	}
	return tok, nil
}
