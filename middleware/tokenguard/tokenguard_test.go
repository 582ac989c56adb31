package tokenguard_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-router"
	auth "github.com/medistream/go-identity"
	"github.com/medistream/go-identity/middleware/tokenguard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// guardContext implements the slice of router.Context the guard touches.
type guardContext struct {
	router.Context
	stdctx  context.Context
	headers map[string]string
	query   map[string]string
	cookies map[string]string
	locals  map[any]any

	nextCalled bool
	status     int
	sent       string
}

func newGuardContext() *guardContext {
	return &guardContext{
		stdctx:  context.Background(),
		headers: map[string]string{},
		query:   map[string]string{},
		cookies: map[string]string{},
		locals:  map[any]any{},
	}
}

func (c *guardContext) Next() error {
	c.nextCalled = true
	return nil
}

func (c *guardContext) Context() context.Context {
	return c.stdctx
}

func (c *guardContext) SetContext(ctx context.Context) {
	c.stdctx = ctx
}

func (c *guardContext) GetString(key string, def string) string {
	if v, ok := c.headers[key]; ok {
		return v
	}
	return def
}

func (c *guardContext) Query(key string, def string) string {
	if v, ok := c.query[key]; ok {
		return v
	}
	return def
}

func (c *guardContext) Cookies(key string, def ...string) string {
	if v, ok := c.cookies[key]; ok {
		return v
	}
	if len(def) > 0 {
		return def[0]
	}
	return ""
}

func (c *guardContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		c.locals[key] = value[0]
		return nil
	}
	return c.locals[key]
}

func (c *guardContext) Status(code int) router.Context {
	c.status = code
	return c
}

func (c *guardContext) SendString(s string) error {
	c.sent = s
	return nil
}

func passthrough(ctx router.Context) error {
	return ctx.Next()
}

func newValidator(t *testing.T) (auth.TokenService, string) {
	t.Helper()

	service := auth.NewTokenService([]byte("guard-test-key"), 1, "test-issuer", nil, nil)

	token, err := service.Generate(auth.NewIdentityFromUser(&auth.User{
		Email:    "jane@example.com",
		Username: "jane",
		Role:     auth.RoleDoctor,
	}))
	require.NoError(t, err)

	return service, token
}

func TestGuardAcceptsValidToken(t *testing.T) {
	service, token := newValidator(t)

	guard := tokenguard.New(tokenguard.Config{Validator: service})

	ctx := newGuardContext()
	ctx.headers[router.HeaderAuthorization] = "Bearer " + token

	err := guard(passthrough)(ctx)
	require.NoError(t, err)
	assert.True(t, ctx.nextCalled)

	claims, ok := ctx.locals["user"].(auth.AuthClaims)
	require.True(t, ok)
	assert.Equal(t, auth.RoleDoctor, claims.Role())

	// claims are also mirrored into the standard context
	fromCtx, ok := auth.GetClaims(ctx.stdctx)
	require.True(t, ok)
	assert.Equal(t, claims.UserID(), fromCtx.UserID())
}

func TestGuardRejectsMissingToken(t *testing.T) {
	service, _ := newValidator(t)

	guard := tokenguard.New(tokenguard.Config{Validator: service})

	ctx := newGuardContext()

	err := guard(passthrough)(ctx)
	require.NoError(t, err)
	assert.False(t, ctx.nextCalled)
	assert.Equal(t, router.StatusBadRequest, ctx.status)
}

func TestGuardRejectsBadToken(t *testing.T) {
	service, _ := newValidator(t)

	guard := tokenguard.New(tokenguard.Config{Validator: service})

	ctx := newGuardContext()
	ctx.headers[router.HeaderAuthorization] = "Bearer not-a-real-token"

	err := guard(passthrough)(ctx)
	require.NoError(t, err)
	assert.False(t, ctx.nextCalled)
	assert.Equal(t, router.StatusUnauthorized, ctx.status)
}

func TestGuardRejectsTokenSignedElsewhere(t *testing.T) {
	service, _ := newValidator(t)

	other := auth.NewTokenService([]byte("different-key"), 1, "test-issuer", nil, nil)
	token, err := other.Generate(auth.NewIdentityFromUser(&auth.User{Email: "jane@example.com"}))
	require.NoError(t, err)

	guard := tokenguard.New(tokenguard.Config{Validator: service})

	ctx := newGuardContext()
	ctx.headers[router.HeaderAuthorization] = "Bearer " + token

	err = guard(passthrough)(ctx)
	require.NoError(t, err)
	assert.False(t, ctx.nextCalled)
	assert.Equal(t, router.StatusUnauthorized, ctx.status)
}

func TestGuardMinimumRole(t *testing.T) {
	service, token := newValidator(t) // doctor token

	t.Run("doctor clears a patient floor", func(t *testing.T) {
		guard := tokenguard.New(tokenguard.Config{
			Validator:   service,
			MinimumRole: auth.RolePatient,
		})

		ctx := newGuardContext()
		ctx.headers[router.HeaderAuthorization] = "Bearer " + token

		require.NoError(t, guard(passthrough)(ctx))
		assert.True(t, ctx.nextCalled)
	})

	t.Run("doctor stops at an admin floor", func(t *testing.T) {
		guard := tokenguard.New(tokenguard.Config{
			Validator:   service,
			MinimumRole: auth.RoleAdmin,
		})

		ctx := newGuardContext()
		ctx.headers[router.HeaderAuthorization] = "Bearer " + token

		require.NoError(t, guard(passthrough)(ctx))
		assert.False(t, ctx.nextCalled)
		assert.Equal(t, router.StatusUnauthorized, ctx.status)
	})
}

func TestGuardUserResolver(t *testing.T) {
	service, token := newValidator(t)

	user := &auth.PublicUser{ID: "user-1", Email: "jane@example.com"}

	guard := tokenguard.New(tokenguard.Config{
		Validator: service,
		UserResolver: func(ctx context.Context, claims auth.AuthClaims) (*auth.PublicUser, error) {
			return user, nil
		},
	})

	ctx := newGuardContext()
	ctx.headers[router.HeaderAuthorization] = "Bearer " + token

	require.NoError(t, guard(passthrough)(ctx))
	require.True(t, ctx.nextCalled)

	resolved, ok := auth.FromContext(ctx.stdctx)
	require.True(t, ok)
	assert.Equal(t, user, resolved)
}

func TestGuardUserResolverFailureBlocks(t *testing.T) {
	service, token := newValidator(t)

	guard := tokenguard.New(tokenguard.Config{
		Validator: service,
		UserResolver: func(ctx context.Context, claims auth.AuthClaims) (*auth.PublicUser, error) {
			return nil, auth.ErrIdentityNotFound
		},
	})

	ctx := newGuardContext()
	ctx.headers[router.HeaderAuthorization] = "Bearer " + token

	require.NoError(t, guard(passthrough)(ctx))
	assert.False(t, ctx.nextCalled)
	assert.Equal(t, router.StatusUnauthorized, ctx.status)
}

func TestNewFromConfig(t *testing.T) {
	service, token := newValidator(t)

	cfg := tokenguard.NewFromConfig(auth.StaticConfig{
		ContextKey: "session",
		AuthScheme: "Token",
	}, service)

	guard := tokenguard.New(cfg)

	ctx := newGuardContext()
	ctx.headers[router.HeaderAuthorization] = "Token " + token

	require.NoError(t, guard(passthrough)(ctx))
	require.True(t, ctx.nextCalled)

	_, ok := ctx.locals["session"].(auth.AuthClaims)
	assert.True(t, ok)
}

func TestGuardFilterSkips(t *testing.T) {
	service, _ := newValidator(t)

	guard := tokenguard.New(tokenguard.Config{
		Validator: service,
		Filter: func(router.Context) bool {
			return true
		},
	})

	ctx := newGuardContext()

	require.NoError(t, guard(passthrough)(ctx))
	assert.True(t, ctx.nextCalled)
}

func TestGuardAlternateLookups(t *testing.T) {
	service, token := newValidator(t)

	t.Run("query parameter", func(t *testing.T) {
		guard := tokenguard.New(tokenguard.Config{
			Validator:   service,
			TokenLookup: "query:access_token",
		})

		ctx := newGuardContext()
		ctx.query["access_token"] = token

		require.NoError(t, guard(passthrough)(ctx))
		assert.True(t, ctx.nextCalled)
	})

	t.Run("cookie", func(t *testing.T) {
		guard := tokenguard.New(tokenguard.Config{
			Validator:   service,
			TokenLookup: "cookie:session_token",
		})

		ctx := newGuardContext()
		ctx.cookies["session_token"] = token

		require.NoError(t, guard(passthrough)(ctx))
		assert.True(t, ctx.nextCalled)
	})

	t.Run("header fallback after empty query", func(t *testing.T) {
		guard := tokenguard.New(tokenguard.Config{
			Validator:   service,
			TokenLookup: "query:access_token,header:" + router.HeaderAuthorization,
		})

		ctx := newGuardContext()
		ctx.headers[router.HeaderAuthorization] = "Bearer " + token

		require.NoError(t, guard(passthrough)(ctx))
		assert.True(t, ctx.nextCalled)
	})
}
