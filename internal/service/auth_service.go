package service

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/zzenonn/partyphoto/internal/domain"
	perrors "github.com/zzenonn/partyphoto/internal/errors"
	"github.com/zzenonn/partyphoto/internal/mail"
)

const (
	DefaultLoginTokenTTL = 15 * time.Minute
	DefaultAssertionTTL  = 24 * time.Hour

	loginEmailSubject = "Your login link"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type TokenRepository interface {
	CreateToken(ctx context.Context, token domain.LoginToken) error
	ConsumeToken(ctx context.Context, token string, now time.Time) (domain.LoginToken, error)
}

type PartyRepository interface {
	ListPartiesByEmail(ctx context.Context, email string) ([]domain.PartyMembership, error)
}

type AuthSettings struct {
	LoginURLBase string
	Secret       []byte
	TokenTTL     time.Duration
	AssertionTTL time.Duration
}

// AuthService implements passwordless login: a login link is mailed, its
// token is redeemed once for a signed assertion, and the assertion is
// verified into an identity with its party memberships.
type AuthService struct {
	tokens   TokenRepository
	parties  PartyRepository
	mailer   mail.Sender
	settings AuthSettings
	now      func() time.Time
}

type AuthServiceOption func(*AuthService)

// WithAuthClock overrides the clock used for token and assertion lifetimes.
func WithAuthClock(now func() time.Time) AuthServiceOption {
	return func(s *AuthService) { s.now = now }
}

func NewAuthService(tokens TokenRepository, parties PartyRepository, mailer mail.Sender, settings AuthSettings, opts ...AuthServiceOption) (*AuthService, error) {
	if settings.LoginURLBase == "" {
		return nil, perrors.ConfigNotSetError("login_url_base")
	}
	if len(settings.Secret) == 0 {
		return nil, perrors.ConfigNotSetError("jwt_secret")
	}
	if _, err := url.Parse(settings.LoginURLBase); err != nil {
		return nil, fmt.Errorf("invalid login_url_base: %w", err)
	}
	if settings.TokenTTL <= 0 {
		settings.TokenTTL = DefaultLoginTokenTTL
	}
	if settings.AssertionTTL <= 0 {
		settings.AssertionTTL = DefaultAssertionTTL
	}

	s := &AuthService{
		tokens:   tokens,
		parties:  parties,
		mailer:   mailer,
		settings: settings,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RequestLogin mails a one-time login link to email. The outcome is the same
// whether or not the address belongs to any party.
func (s *AuthService) RequestLogin(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if email == "" || !emailPattern.MatchString(email) {
		return perrors.InvalidInputError("invalid or missing email")
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return perrors.InfrastructureError("generate login token", err)
	}

	now := s.now().UTC()
	token := domain.LoginToken{
		Token:     id.String(),
		Email:     email,
		CreatedAt: now,
		TTL:       now.Add(s.settings.TokenTTL).Unix(),
	}
	if err := s.tokens.CreateToken(ctx, token); err != nil {
		return asInfrastructure("store login token", err)
	}

	link, err := buildLoginLink(s.settings.LoginURLBase, token.Token)
	if err != nil {
		return perrors.InfrastructureError("build login link", err)
	}

	msg := mail.Message{
		To:      email,
		Subject: loginEmailSubject,
		Text: fmt.Sprintf("Click the following link to log in:\n\n%s\n\nThis link will expire in %d minutes.",
			link, int(s.settings.TokenTTL/time.Minute)),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return asInfrastructure("send login link", err)
	}

	log.Infof("Login link sent to %s", email)
	return nil
}

// Redeem consumes a login token and returns a signed assertion for its
// email. Unknown, expired and already-used tokens are all unauthorized.
func (s *AuthService) Redeem(ctx context.Context, token string) (domain.Assertion, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Assertion{}, perrors.InvalidInputError("missing token")
	}

	now := s.now().UTC()
	loginToken, err := s.tokens.ConsumeToken(ctx, token, now)
	if err != nil {
		if perrors.Is(err, perrors.ErrNotFound) {
			return domain.Assertion{}, perrors.ErrUnauthorized
		}
		return domain.Assertion{}, asInfrastructure("consume login token", err)
	}

	signed, expiresAt, err := signAssertion(loginToken.Email, s.settings.Secret, now, s.settings.AssertionTTL)
	if err != nil {
		return domain.Assertion{}, perrors.InfrastructureError("issue assertion", err)
	}

	log.Infof("Login token redeemed for %s", loginToken.Email)
	return domain.Assertion{Assertion: signed, ExpiresAt: expiresAt}, nil
}

// Verify checks a signed assertion and resolves the parties its email may
// access. Having no memberships is not an error.
func (s *AuthService) Verify(ctx context.Context, assertion string) (domain.Identity, error) {
	assertion = strings.TrimSpace(assertion)
	if assertion == "" {
		return domain.Identity{}, perrors.InvalidInputError("missing token")
	}

	claims, err := parseAssertion(assertion, s.settings.Secret, s.now)
	if err != nil {
		log.Debugf("Assertion verification failed: %v", err)
		return domain.Identity{}, perrors.ErrUnauthorized
	}

	if claims.Email == "" {
		return domain.Identity{}, perrors.InvalidInputError("invalid token payload")
	}

	parties, err := s.parties.ListPartiesByEmail(ctx, claims.Email)
	if err != nil {
		return domain.Identity{}, asInfrastructure("list parties", err)
	}
	if parties == nil {
		parties = []domain.PartyMembership{}
	}

	return domain.Identity{Email: claims.Email, Parties: parties}, nil
}

func buildLoginLink(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
