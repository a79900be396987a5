package accounts_test

import (
	"context"
	"testing"
	"time"

	accounts "github.com/castlefield/go-accounts"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockContext mocks router.Context for middleware tests
type MockContext struct {
	mock.Mock
}

func (m *MockContext) Next() error {
	return m.Called().Error(0)
}

func (m *MockContext) Context() context.Context {
	args := m.Called()
	c, ok := args.Get(0).(context.Context)
	if !ok {
		panic("arg needs to be context.Context")
	}
	return c
}

func (m *MockContext) SetContext(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockContext) Path() string {
	return m.Called().String(0)
}

func (m *MockContext) Method() string {
	return m.Called().String(0)
}

func (m *MockContext) Body() []byte {
	return m.Called().Get(0).([]byte)
}

func (m *MockContext) Status(code int) router.Context {
	m.Called(code)
	return m
}

func (m *MockContext) SendString(s string) error {
	return m.Called(s).Error(0)
}

func (m *MockContext) Send(b []byte) error {
	return m.Called(b).Error(0)
}

func (m *MockContext) JSON(code int, val any) error {
	return m.Called(code, val).Error(0)
}

func (m *MockContext) NoContent(code int) error {
	return m.Called(code).Error(0)
}

func (m *MockContext) Render(name string, bind any, layout ...string) error {
	if len(layout) > 0 {
		return m.Called(name, bind, layout[0]).Error(0)
	}
	return m.Called(name, bind).Error(0)
}

func (m *MockContext) Redirect(path string, status ...int) error {
	if len(status) > 0 {
		return m.Called(path, status).Error(0)
	}
	return m.Called(path).Error(0)
}

func (m *MockContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	if len(status) > 0 {
		return m.Called(name, data, status[0]).Error(0)
	}
	return m.Called(name, data).Error(0)
}

func (m *MockContext) RedirectBack(fallback string, status ...int) error {
	if len(status) > 0 {
		return m.Called(fallback, status).Error(0)
	}
	return m.Called(fallback).Error(0)
}

func (m *MockContext) SetHeader(key, val string) router.Context {
	m.Called(key, val)
	return m
}

func (m *MockContext) Header(key string) string {
	return m.Called(key).String(0)
}

func (m *MockContext) Get(key string, defaultValue any) any {
	return m.Called(key, defaultValue).Get(0)
}

func (m *MockContext) GetBool(key string, defaultValue bool) bool {
	return m.Called(key, defaultValue).Bool(0)
}

func (m *MockContext) GetInt(key string, def int) int {
	return m.Called(key, def).Int(0)
}

func (m *MockContext) Set(key string, val any) {
	m.Called(key, val)
}

func (m *MockContext) Bind(i any) error {
	return m.Called(i).Error(0)
}

func (m *MockContext) BindJSON(i any) error {
	return m.Called(i).Error(0)
}

func (m *MockContext) BindXML(i any) error {
	return m.Called(i).Error(0)
}

func (m *MockContext) BindQuery(i any) error {
	return m.Called(i).Error(0)
}

func (m *MockContext) CookieParser(i any) error {
	return m.Called(i).Error(0)
}

func (m *MockContext) Cookie(cookie *router.Cookie) {
	m.Called(cookie)
}

func (m *MockContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		return m.Called(key, defaultValue[0]).String(0)
	}
	return m.Called(key).String(0)
}

func (m *MockContext) Param(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		return m.Called(key, defaultValue[0]).String(0)
	}
	return m.Called(key).String(0)
}

func (m *MockContext) ParamsInt(key string, defaultValue int) int {
	return m.Called(key, defaultValue).Int(0)
}

func (m *MockContext) Query(key string, defaultValue string) string {
	return m.Called(key, defaultValue).String(0)
}

func (m *MockContext) QueryInt(key string, defaultValue int) int {
	return m.Called(key, defaultValue).Int(0)
}

func (m *MockContext) Queries() map[string]string {
	return m.Called().Get(0).(map[string]string)
}

func (m *MockContext) GetString(key string, defaultValue string) string {
	return m.Called(key, defaultValue).String(0)
}

func (m *MockContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		m.Called(key, value[0])
		return nil
	}
	return m.Called(key).Get(0)
}

func (m *MockContext) OriginalURL() string {
	return m.Called().String(0)
}

func (m *MockContext) OnNext(callback func() error) {
	m.Called(callback)
}

func (m *MockContext) Referer() string {
	return m.Called().String(0)
}

func newRouteAuthenticator(t *testing.T, cfg accounts.Config) *accounts.RouteAuthenticator {
	t.Helper()

	auther, err := accounts.NewAuthenticator(&MockIdentityProvider{}, cfg)
	require.NoError(t, err)
	auther.WithLogger(testLogger{})

	routes, err := accounts.NewHTTPAuthenticator(auther, cfg)
	require.NoError(t, err)
	routes.Logger = testLogger{}

	return routes
}

func TestProtectedRouteAllowsValidToken(t *testing.T) {
	cfg := newTokenConfig()
	routes := newRouteAuthenticator(t, cfg)

	auther, err := accounts.NewAuthenticator(&MockIdentityProvider{}, cfg)
	require.NoError(t, err)
	token, _, err := auther.TokenService().Mint(activeIdentity(), accounts.TokenUseAccess)
	require.NoError(t, err)

	ctx := &MockContext{}
	ctx.On("GetString", router.HeaderAuthorization, "").Return("Bearer " + token)
	ctx.On("Locals", accounts.SessionContextKey, mock.Anything).Return(nil)
	ctx.On("Context").Return(context.Background())

	var derived context.Context
	ctx.On("SetContext", mock.Anything).Run(func(args mock.Arguments) {
		derived = args.Get(0).(context.Context)
	})

	handlerCalled := false
	middleware := routes.ProtectedRoute(nil)
	err = middleware(func(c router.Context) error {
		handlerCalled = true
		return nil
	})(ctx)

	require.NoError(t, err)
	assert.True(t, handlerCalled)

	require.NotNil(t, derived)
	claims, ok := accounts.GetClaims(derived)
	require.True(t, ok)
	assert.Equal(t, accounts.TokenUseAccess, claims.TokenUse())

	ctx.AssertExpectations(t)
}

func TestProtectedRouteRejectsMissingHeader(t *testing.T) {
	routes := newRouteAuthenticator(t, newTokenConfig())

	ctx := &MockContext{}
	ctx.On("GetString", router.HeaderAuthorization, "").Return("")

	var captured error
	middleware := routes.ProtectedRoute(func(c router.Context, err error) error {
		captured = err
		return nil
	})

	handlerCalled := false
	err := middleware(func(c router.Context) error {
		handlerCalled = true
		return nil
	})(ctx)

	require.NoError(t, err)
	assert.False(t, handlerCalled)
	assert.ErrorIs(t, captured, accounts.ErrTokenMalformed)
}

func TestProtectedRouteRejectsNonBearerScheme(t *testing.T) {
	routes := newRouteAuthenticator(t, newTokenConfig())

	ctx := &MockContext{}
	ctx.On("GetString", router.HeaderAuthorization, "").Return("Basic dXNlcjpwYXNz")

	var captured error
	middleware := routes.ProtectedRoute(func(c router.Context, err error) error {
		captured = err
		return nil
	})

	_ = middleware(func(c router.Context) error { return nil })(ctx)
	assert.ErrorIs(t, captured, accounts.ErrTokenMalformed)
}

func TestProtectedRouteRejectsExpiredToken(t *testing.T) {
	cfg := newTokenConfig()
	cfg.AccessTokenTTL = -time.Minute
	routes := newRouteAuthenticator(t, cfg)

	auther, err := accounts.NewAuthenticator(&MockIdentityProvider{}, cfg)
	require.NoError(t, err)
	token, _, err := auther.TokenService().Mint(activeIdentity(), accounts.TokenUseAccess)
	require.NoError(t, err)

	ctx := &MockContext{}
	ctx.On("GetString", router.HeaderAuthorization, "").Return("Bearer " + token)

	var captured error
	middleware := routes.ProtectedRoute(func(c router.Context, err error) error {
		captured = err
		return nil
	})

	handlerCalled := false
	_ = middleware(func(c router.Context) error {
		handlerCalled = true
		return nil
	})(ctx)

	assert.False(t, handlerCalled)
	assert.ErrorIs(t, captured, accounts.ErrTokenExpired)
}

func TestProtectedRouteDefaultErrorHandlerWritesJSON(t *testing.T) {
	routes := newRouteAuthenticator(t, newTokenConfig())

	ctx := &MockContext{}
	ctx.On("GetString", router.HeaderAuthorization, "").Return("Bearer garbage")
	ctx.On("JSON", mock.Anything, mock.MatchedBy(func(v any) bool {
		payload, ok := v.(map[string]any)
		if !ok {
			return false
		}
		errBody, ok := payload["error"].(map[string]any)
		if !ok {
			return false
		}
		return errBody["text_code"] == "TOKEN_MALFORMED"
	})).Return(nil).Once()

	middleware := routes.ProtectedRoute(nil)
	err := middleware(func(c router.Context) error { return nil })(ctx)
	require.NoError(t, err)

	ctx.AssertExpectations(t)
}
