package auth

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// FederatedAuthenticator is the federated login workflow as seen by the
// transport layer. The social package provides the implementation.
type FederatedAuthenticator interface {
	Login(ctx context.Context, assertion string) (*LoginResult, error)
}

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// HTTPControllerRoutes are the mounted paths for the four operations.
type HTTPControllerRoutes struct {
	Register    string
	Login       string
	GoogleLogin string
	Me          string
}

// HTTPController maps the JSON transport onto the typed workflows. It owns
// no auth semantics: deserialization, shape validation, and status-code
// mapping only.
type HTTPController struct {
	Logger    Logger
	Auther    Authenticator
	Registrar *RegisterUserHandler
	Federated FederatedAuthenticator
	Routes    *HTTPControllerRoutes
	scheme    string
}

type HTTPControllerOption func(*HTTPController) *HTTPController

func WithControllerLogger(l Logger) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

func WithAuthScheme(scheme string) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		if scheme != "" {
			c.scheme = scheme
		}
		return c
	}
}

func NewHTTPController(auther Authenticator, registrar *RegisterUserHandler, federated FederatedAuthenticator, opts ...HTTPControllerOption) *HTTPController {
	c := &HTTPController{
		Logger:    defLogger{},
		Auther:    auther,
		Registrar: registrar,
		Federated: federated,
		scheme:    "Bearer",
		Routes: &HTTPControllerRoutes{
			Register:    "/auth/register",
			Login:       "/auth/login",
			GoogleLogin: "/auth/google/login",
			Me:          "/auth/me",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.Registrar == nil {
		panic("Missing RegisterUserHandler in auth controller...")
	}

	return c
}

// RegisterRoutes mounts the four operations. Middleware passed here is
// applied to the current-user route only.
func (a *HTTPController) RegisterRoutes(app RouteRegistrar, meMiddleware ...router.MiddlewareFunc) {
	app.Post(a.Routes.Register, a.RegisterPost)
	app.Post(a.Routes.Login, a.LoginPost)
	if a.Federated != nil {
		app.Post(a.Routes.GoogleLogin, a.GoogleLoginPost)
	}
	app.Get(a.Routes.Me, a.MeGet, meMiddleware...)
}

// RegisterPayload is the registration request body.
type RegisterPayload struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r RegisterPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Username, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

func (a *HTTPController) RegisterPost(ctx router.Context) error {
	payload := new(RegisterPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("Error parsing register payload: %s", err)
		return badRequest(ctx, "failed to parse request body")
	}

	if err := payload.Validate(); err != nil {
		return validationFailed(ctx, err)
	}

	result, err := a.Registrar.Execute(ctx.Context(), RegisterUserMessage{
		Email:    payload.Email,
		Username: payload.Username,
		Name:     payload.Name,
		Password: payload.Password,
	})
	if err != nil {
		a.Logger.Error("Error registering user: %s", err)
		return a.renderError(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, result)
}

// LoginPayload is the local login request body.
type LoginPayload struct {
	EmailOrUsername string `json:"email_or_username"`
	Password        string `json:"password"`
}

// Validate will run validation rules
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.EmailOrUsername, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *HTTPController) LoginPost(ctx router.Context) error {
	payload := new(LoginPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("Error parsing login payload: %s", err)
		return badRequest(ctx, "failed to parse request body")
	}

	if err := payload.Validate(); err != nil {
		return validationFailed(ctx, err)
	}

	result, err := a.Auther.Login(ctx.Context(), payload.EmailOrUsername, payload.Password)
	if err != nil {
		return a.renderError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, result)
}

// GoogleLoginPayload carries the opaque identity assertion.
type GoogleLoginPayload struct {
	Token string `json:"token"`
}

// Validate will run validation rules
func (r GoogleLoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
	)
}

func (a *HTTPController) GoogleLoginPost(ctx router.Context) error {
	payload := new(GoogleLoginPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("Error parsing google login payload: %s", err)
		return badRequest(ctx, "failed to parse request body")
	}

	if err := payload.Validate(); err != nil {
		return validationFailed(ctx, err)
	}

	result, err := a.Federated.Login(ctx.Context(), payload.Token)
	if err != nil {
		return a.renderError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, result)
}

func (a *HTTPController) MeGet(ctx router.Context) error {
	if user, ok := FromContext(ctx.Context()); ok {
		return ctx.JSON(router.StatusOK, user)
	}

	token, err := ExtractBearerToken(ctx, a.scheme)
	if err != nil {
		return a.renderError(ctx, err)
	}

	user, err := a.Auther.CurrentUser(ctx.Context(), token)
	if err != nil {
		return a.renderError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, user)
}

// ExtractBearerToken pulls the bearer credential out of the Authorization
// header. A missing or misshapen header reads as a malformed token.
func ExtractBearerToken(ctx router.Context, scheme string) (string, error) {
	if scheme == "" {
		scheme = "Bearer"
	}

	header := ctx.Header("Authorization")
	if header == "" {
		return "", ErrTokenMalformed
	}

	prefix := scheme + " "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", ErrTokenMalformed
	}

	return strings.TrimSpace(header[len(prefix):]), nil
}

func (a *HTTPController) renderError(ctx router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred")
	}

	return ctx.JSON(statusFromError(richErr), map[string]string{
		"error": richErr.Message,
		"code":  richErr.TextCode,
	})
}

func statusFromError(err *goerrors.Error) int {
	switch err.Category {
	case goerrors.CategoryConflict:
		return router.StatusConflict
	case goerrors.CategoryAuth:
		return router.StatusUnauthorized
	case goerrors.CategoryNotFound:
		return router.StatusNotFound
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return router.StatusBadRequest
	case goerrors.CategoryOperation:
		return router.StatusServiceUnavailable
	default:
		return router.StatusInternalServerError
	}
}

func badRequest(ctx router.Context, msg string) error {
	return ctx.JSON(router.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

func validationFailed(ctx router.Context, err error) error {
	return ctx.JSON(router.StatusBadRequest, map[string]any{
		"error":      "invalid request payload",
		"validation": err.Error(),
	})
}
