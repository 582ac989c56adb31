package google

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	auth "github.com/medistream/go-identity"
	"github.com/medistream/go-identity/social"
)

const defaultJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

var defaultIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

// Config holds Google ID-token verification options. ClientID is the
// application's registered OAuth client identifier; every assertion must
// carry it as audience or verification fails.
type Config struct {
	ClientID string

	JWKSURL string
	Issuers []string

	HTTPClient      *http.Client
	RefreshInterval time.Duration
	RefreshTimeout  time.Duration

	Logger auth.Logger
}

// Verifier validates Google-issued ID tokens against Google's published
// JWKS and extracts the federated profile.
type Verifier struct {
	config Config
	jwks   *keyfunc.JWKS
	logger auth.Logger
}

// New creates a Google assertion verifier. It fetches the JWKS eagerly so a
// misconfigured or unreachable key endpoint fails at startup, not per
// request.
func New(cfg Config) (*Verifier, error) {
	if cfg.ClientID == "" {
		return nil, stderrors.New("google: client ID is required")
	}
	if cfg.JWKSURL == "" {
		cfg.JWKSURL = defaultJWKSURL
	}
	if len(cfg.Issuers) == 0 {
		cfg.Issuers = defaultIssuers
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.RefreshInterval == 0 {
		cfg.RefreshInterval = time.Hour
	}
	if cfg.RefreshTimeout == 0 {
		cfg.RefreshTimeout = 10 * time.Second
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{
		Client:            cfg.HTTPClient,
		RefreshInterval:   cfg.RefreshInterval,
		RefreshTimeout:    cfg.RefreshTimeout,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.Warn("Google verifier failed to refresh JWKS: %s", err)
		},
	})
	if err != nil {
		return nil, auth.ErrVerifierUnavailable.Clone().WithMetadata(map[string]any{
			"jwks_url": cfg.JWKSURL,
		})
	}

	return &Verifier{
		config: cfg,
		jwks:   jwks,
		logger: logger,
	}, nil
}

// Provider implements social.AssertionVerifier.
func (v *Verifier) Provider() string {
	return auth.ProviderGoogle
}

// Close stops the background JWKS refresh.
func (v *Verifier) Close() {
	v.jwks.EndBackground()
}

type idTokenClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Verify implements social.AssertionVerifier. Signature, audience, and
// expiry are all enforced; a token minted for a different client ID is
// rejected even when its signature is valid.
func (v *Verifier) Verify(ctx context.Context, assertion string) (*social.Profile, error) {
	var oracleErr error
	lookupKey := func(t *jwt.Token) (any, error) {
		key, err := v.jwks.Keyfunc(t)
		if err != nil {
			oracleErr = err
		}
		return key, err
	}

	claims := &idTokenClaims{}
	_, err := jwt.ParseWithClaims(assertion, claims, lookupKey,
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.config.ClientID),
		jwt.WithExpirationRequired(),
	)

	if err != nil {
		if oracleErr != nil && isUnreachable(oracleErr) {
			v.logger.Error("Google verifier key endpoint unreachable: %s", oracleErr)
			return nil, auth.ErrVerifierUnavailable.Clone().WithMetadata(map[string]any{
				"cause": oracleErr.Error(),
			})
		}

		v.logger.Info("Google assertion rejected: %s", err)
		return nil, auth.ErrFederatedTokenInvalid.Clone().WithMetadata(map[string]any{
			"cause": err.Error(),
		})
	}

	if !v.allowedIssuer(claims.Issuer) {
		v.logger.Info("Google assertion rejected, unexpected issuer: %s", claims.Issuer)
		return nil, auth.ErrFederatedTokenInvalid.Clone().WithMetadata(map[string]any{
			"cause": "unexpected issuer",
		})
	}

	if claims.Subject == "" || claims.Email == "" {
		return nil, auth.ErrFederatedTokenInvalid.Clone().WithMetadata(map[string]any{
			"cause": "missing subject or email claim",
		})
	}

	return &social.Profile{
		Provider:      auth.ProviderGoogle,
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
		Avatar:        claims.Picture,
	}, nil
}

func (v *Verifier) allowedIssuer(issuer string) bool {
	for _, allowed := range v.config.Issuers {
		if issuer == allowed {
			return true
		}
	}
	return false
}

func isUnreachable(err error) bool {
	return stderrors.Is(err, context.DeadlineExceeded) ||
		stderrors.Is(err, context.Canceled)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

var _ social.AssertionVerifier = (*Verifier)(nil)
