package tokenguard

import (
	"context"
	"errors"
	"strings"

	"github.com/goliatone/go-router"
	auth "github.com/medistream/go-identity"
)

var (
	defaultTokenLookup         = "header:" + router.HeaderAuthorization
	ErrMissingOrMalformedToken = errors.New("missing or malformed token")
)

// UserResolver maps validated claims to the current user view. Wire
// Auther.CurrentUser through this to re-check the subject against the store
// on every request.
type UserResolver func(ctx context.Context, claims auth.AuthClaims) (*auth.PublicUser, error)

type Config struct {
	// Filter defines a function to skip the middleware
	Filter func(router.Context) bool

	SuccessHandler router.HandlerFunc
	ErrorHandler   router.ErrorHandler

	// Validator is required, it checks signature and registered claims
	Validator auth.TokenValidator

	// UserResolver is optional. When set, the resolved user is stored in the
	// request context so handlers can use auth.FromContext.
	UserResolver UserResolver

	// ContextKey is the router-locals key the claims are stored under
	ContextKey string

	// TokenLookup is a comma separated list of "<source>:<name>" entries,
	// e.g. "header:Authorization,query:access_token,cookie:jwt"
	TokenLookup string
	AuthScheme  string

	// MinimumRole rejects sessions below the given role level
	MinimumRole string
}

// NewFromConfig derives a guard Config from the core auth configuration,
// sharing the context key and auth scheme the rest of the stack uses.
func NewFromConfig(cfg auth.Config, validator auth.TokenValidator) Config {
	return Config{
		Validator:  validator,
		ContextKey: cfg.GetContextKey(),
		AuthScheme: cfg.GetAuthScheme(),
	}
}

// New builds the session guard middleware: extract the bearer credential,
// validate it, then expose the session to downstream handlers.
func New(config ...Config) router.MiddlewareFunc {
	cfg := setDefaults(config...)
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			raw, err := extractToken(ctx, cfg)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			claims, err := cfg.Validator.Validate(raw)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			if cfg.MinimumRole != "" && !auth.RoleIsAtLeast(claims.Role(), cfg.MinimumRole) {
				return cfg.ErrorHandler(ctx, auth.ErrInvalidCredentials)
			}

			ctx.Locals(cfg.ContextKey, claims)

			stdCtx := auth.WithClaimsContext(ctx.Context(), claims)

			if cfg.UserResolver != nil {
				user, err := cfg.UserResolver(stdCtx, claims)
				if err != nil {
					return cfg.ErrorHandler(ctx, err)
				}
				stdCtx = auth.WithContext(stdCtx, user)
			}

			ctx.SetContext(stdCtx)

			return cfg.SuccessHandler(ctx)
		}
	}
}

func setDefaults(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Validator == nil {
		panic("AUTH: token guard configuration: Validator is required.")
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	return cfg
}

func defaultErrorHandler(c router.Context, err error) error {
	if errors.Is(err, ErrMissingOrMalformedToken) {
		return c.Status(router.StatusBadRequest).SendString(ErrMissingOrMalformedToken.Error())
	}
	return c.Status(router.StatusUnauthorized).SendString("Invalid or expired token")
}

func extractToken(ctx router.Context, cfg Config) (string, error) {
	var raw string
	var err error

	for _, part := range strings.Split(cfg.TokenLookup, ",") {
		source, name, found := strings.Cut(strings.TrimSpace(part), ":")
		if !found {
			continue
		}
		name = strings.TrimSpace(name)

		switch source {
		case "header":
			raw, err = tokenFromHeader(ctx, name, cfg.AuthScheme)
		case "query":
			raw, err = tokenFromQuery(ctx, name)
		case "cookie":
			raw, err = tokenFromCookie(ctx, name)
		}

		if raw != "" && err == nil {
			return raw, nil
		}
	}

	if err == nil {
		err = ErrMissingOrMalformedToken
	}

	return "", err
}

func tokenFromHeader(c router.Context, header, authScheme string) (string, error) {
	a := c.GetString(header, "")
	scheme := strings.TrimSpace(authScheme)
	l := len(scheme)
	if l == 0 || len(a) <= l+1 || !strings.EqualFold(a[:l], scheme) {
		return "", ErrMissingOrMalformedToken
	}
	return strings.TrimSpace(a[l:]), nil
}

func tokenFromQuery(c router.Context, param string) (string, error) {
	token := c.Query(param, "")
	if token == "" {
		return "", ErrMissingOrMalformedToken
	}
	return token, nil
}

func tokenFromCookie(c router.Context, name string) (string, error) {
	token := c.Cookies(name)
	if token == "" {
		return "", ErrMissingOrMalformedToken
	}
	return token, nil
}
