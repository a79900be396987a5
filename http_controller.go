package accounts

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Put(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// AccountsController handles the JSON auth and profile routes.
type AccountsController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Auther       *Auther
	Routes       *RouteAuthenticator
	Hasher       *Hasher
	Config       Config
	Notifier     Notifier
	Activity     ActivitySink
	ErrorHandler func(ctx router.Context, err error) error
}

type AccountsControllerOption func(*AccountsController) *AccountsController

func WithControllerLogger(logger Logger) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerNotifier(n Notifier) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		c.Notifier = normalizeNotifier(n)
		return c
	}
}

func WithControllerActivitySink(sink ActivitySink) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		c.Activity = normalizeActivitySink(sink)
		return c
	}
}

func WithControllerDebug(debug bool) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		c.Debug = debug
		return c
	}
}

// NewAccountsController wires the controller. Repo, Auther, Hasher, and
// Config are required, the rest default to no-ops.
func NewAccountsController(repo RepositoryManager, auther *Auther, hasher *Hasher, cfg Config, opts ...AccountsControllerOption) *AccountsController {
	c := &AccountsController{
		Logger:   defLogger{},
		Repo:     repo,
		Auther:   auther,
		Hasher:   hasher,
		Config:   cfg,
		Notifier: noopNotifier{},
		Activity: noopActivitySink{},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in accounts controller...")
	}

	if c.Auther == nil {
		panic("Missing Auther in accounts controller...")
	}

	routes, err := NewHTTPAuthenticator(c.Auther, c.Config)
	if err != nil {
		panic("Failed to build HTTP authenticator: " + err.Error())
	}
	c.Routes = routes
	c.ErrorHandler = routes.defaultErrHandler

	return c
}

// RegisterRoutes registers the auth and profile routes. The profile group
// sits behind the bearer middleware.
func (c *AccountsController) RegisterRoutes(auth RouteRegistrar, profile RouteRegistrar) {
	auth.Post("/register", c.Register)
	auth.Post("/login", c.Login)
	auth.Post("/refresh", c.Refresh)
	auth.Post("/verify-email", c.VerifyEmail)
	auth.Post("/forgot-password", c.ForgotPassword)
	auth.Post("/reset-password", c.ResetPassword)

	protected := c.Routes.ProtectedRoute(c.ErrorHandler)
	profile.Get("/profile", c.ProfileShow, protected)
	profile.Put("/profile", c.ProfileUpdate, protected)
	profile.Delete("/profile", c.ProfileDelete, protected)
}

// Register creates a new account and returns its sanitized representation
func (c *AccountsController) Register(ctx router.Context) error {
	payload := new(RegisterAccountMessage)
	if err := ctx.Bind(payload); err != nil {
		return c.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse registration payload").
			WithCode(errors.CodeBadRequest))
	}

	if c.Debug {
		fmt.Println("======= ACCOUNT REGISTER ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("===============================")
	}

	var account *Account
	payload.OnResponse = func(a *Account) {
		account = a
	}

	handler := NewRegisterAccountHandler(c.Repo, c.Hasher).
		WithNotifier(c.Notifier).
		WithActivitySink(c.Activity).
		WithLogger(c.Logger)

	if err := handler.Execute(ctx.Context(), *payload); err != nil {
		c.Logger.Error("register account error: %v", err)
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, map[string]any{
		"account": account,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Identifier, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// Login exchanges credentials for a token pair
func (c *AccountsController) Login(ctx router.Context) error {
	payload := new(LoginRequest)
	if err := ctx.Bind(payload); err != nil {
		return c.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse login payload").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return c.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryValidation, "invalid login payload").
			WithCode(errors.CodeBadRequest))
	}

	pair, err := c.Auther.Login(ctx.Context(), payload.Identifier, payload.Password)
	if err != nil {
		c.Logger.Error("login error: %v", err)
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, pair)
}

// RefreshRequest payload
type RefreshRequest struct {
	RefreshToken string `form:"refresh_token" json:"refresh_token"`
}

func (r RefreshRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

// Refresh exchanges a refresh token for a new pair
func (c *AccountsController) Refresh(ctx router.Context) error {
	payload := new(RefreshRequest)
	if err := ctx.Bind(payload); err != nil {
		return c.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse refresh payload").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return c.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryValidation, "invalid refresh payload").
			WithCode(errors.CodeBadRequest))
	}

	pair, err := c.Auther.Refresh(ctx.Context(), payload.RefreshToken)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, pair)
}

// VerifyEmail redeems an emailed verification token
func (c *AccountsController) VerifyEmail(ctx router.Context) error {
	payload := new(VerifyEmailMessage)
	if err := ctx.Bind(payload); err != nil {
		return c.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse verification payload").
			WithCode(errors.CodeBadRequest))
	}

	var account *Account
	payload.OnResponse = func(a *Account) {
		account = a
	}

	handler := NewVerifyEmailHandler(c.Repo, c.Config).
		WithActivitySink(c.Activity).
		WithLogger(c.Logger)

	if err := handler.Execute(ctx.Context(), *payload); err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"account": account,
	})
}

// ForgotPassword starts the reset flow. The response is identical whether
// or not the email exists.
func (c *AccountsController) ForgotPassword(ctx router.Context) error {
	payload := new(InitializePasswordResetMessage)
	if err := ctx.Bind(payload); err != nil {
		return c.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse forgot password payload").
			WithCode(errors.CodeBadRequest))
	}

	var res *InitializePasswordResetResponse
	payload.OnResponse = func(resp *InitializePasswordResetResponse) {
		res = resp
	}

	handler := NewInitializePasswordResetHandler(c.Repo).
		WithNotifier(c.Notifier).
		WithActivitySink(c.Activity).
		WithLogger(c.Logger)

	if err := handler.Execute(ctx.Context(), *payload); err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, res)
}

// ResetPassword redeems a reset token with a new password
func (c *AccountsController) ResetPassword(ctx router.Context) error {
	payload := new(FinalizePasswordResetMessage)
	if err := ctx.Bind(payload); err != nil {
		return c.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse reset password payload").
			WithCode(errors.CodeBadRequest))
	}

	handler := NewFinalizePasswordResetHandler(c.Repo, c.Hasher).
		WithActivitySink(c.Activity).
		WithLogger(c.Logger)

	if err := handler.Execute(ctx.Context(), *payload); err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"message": "Password has been reset",
	})
}

// ProfileShow returns the authenticated account's profile
func (c *AccountsController) ProfileShow(ctx router.Context) error {
	accountID, ok := AccountIDFromRouter(ctx, SessionContextKey)
	if !ok {
		return c.ErrorHandler(ctx, ErrInvalidOrExpiredToken)
	}

	profile := NewProfileService(c.Repo).WithLogger(c.Logger)
	account, err := profile.Get(ctx.Context(), accountID)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"account": account,
	})
}

// ProfileUpdate applies a partial profile update
func (c *AccountsController) ProfileUpdate(ctx router.Context) error {
	accountID, ok := AccountIDFromRouter(ctx, SessionContextKey)
	if !ok {
		return c.ErrorHandler(ctx, ErrInvalidOrExpiredToken)
	}

	payload := new(ProfileUpdate)
	if err := ctx.Bind(payload); err != nil {
		return c.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse profile payload").
			WithCode(errors.CodeBadRequest))
	}

	profile := NewProfileService(c.Repo).WithLogger(c.Logger)
	account, err := profile.Update(ctx.Context(), accountID, *payload)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"account": account,
	})
}

// ProfileDelete soft deletes the authenticated account
func (c *AccountsController) ProfileDelete(ctx router.Context) error {
	accountID, ok := AccountIDFromRouter(ctx, SessionContextKey)
	if !ok {
		return c.ErrorHandler(ctx, ErrInvalidOrExpiredToken)
	}

	profile := NewProfileService(c.Repo).WithLogger(c.Logger)
	if err := profile.Delete(ctx.Context(), accountID); err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"message": "Account deleted",
	})
}
