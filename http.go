package accounts

import (
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// SessionContextKey is where the bearer middleware stores validated claims
// in the router context
const SessionContextKey = "session"

// RouteAuthenticator glues the Auther to go-router: it exposes a bearer
// token middleware and the JSON error handler used by the controller.
type RouteAuthenticator struct {
	auth         *Auther
	cfg          Config
	Logger       Logger
	ErrorHandler func(c router.Context, err error) error
}

func NewHTTPAuthenticator(auther *Auther, cfg Config) (*RouteAuthenticator, error) {
	if auther == nil {
		return nil, errors.New("http authenticator requires an auther", errors.CategoryBadInput)
	}

	a := &RouteAuthenticator{
		auth:   auther,
		cfg:    cfg,
		Logger: defLogger{},
	}

	a.ErrorHandler = a.defaultErrHandler

	return a, nil
}

// ProtectedRoute rejects requests without a valid bearer access token. On
// success the claims land in Locals under SessionContextKey and in the
// request's standard context.
func (a *RouteAuthenticator) ProtectedRoute(errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	if errorHandler == nil {
		errorHandler = a.defaultErrHandler
	}

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			raw, err := bearerFromHeader(ctx)
			if err != nil {
				return errorHandler(ctx, err)
			}

			claims, err := a.auth.validateAccess(raw)
			if err != nil {
				return errorHandler(ctx, a.normalizeTokenError(err))
			}

			ctx.Locals(SessionContextKey, claims)
			ctx.SetContext(WithClaimsContext(ctx.Context(), claims))

			return hf(ctx)
		}
	}
}

func (a *RouteAuthenticator) normalizeTokenError(err error) error {
	if IsTokenExpiredError(err) || IsMalformedError(err) {
		return err
	}
	return errors.Wrap(err, errors.CategoryAuth, "invalid authentication token").
		WithCode(errors.CodeUnauthorized)
}

func bearerFromHeader(c router.Context) (string, error) {
	a := c.GetString(router.HeaderAuthorization, "")
	scheme := "Bearer"
	l := len(scheme)
	if len(a) > l+1 && strings.EqualFold(a[:l], scheme) {
		return strings.TrimSpace(a[l:]), nil
	}
	return "", withErrMetadata(ErrTokenMalformed, map[string]any{
		"reason": "missing or malformed bearer token",
	})
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"request error handler: %s category=%s details=%s",
		richErr.Message,
		richErr.Category,
		print.MaybePrettyJSON(richErr.Metadata),
	)

	code := richErr.Code
	if code == 0 {
		code = router.StatusInternalServerError
	}

	return c.JSON(code, map[string]any{
		"error": map[string]any{
			"message":   richErr.Message,
			"text_code": richErr.TextCode,
			"category":  richErr.Category,
		},
	})
}
