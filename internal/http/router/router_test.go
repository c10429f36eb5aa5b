package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ctrl "github.com/dropDatabas3/studytrack/internal/http/controllers/auth"
	"github.com/dropDatabas3/studytrack/internal/http/router"
	authsvc "github.com/dropDatabas3/studytrack/internal/http/services/auth"
	jwtx "github.com/dropDatabas3/studytrack/internal/jwt"
	"github.com/dropDatabas3/studytrack/internal/rate"
	"github.com/dropDatabas3/studytrack/internal/security/password"
	"github.com/dropDatabas3/studytrack/internal/store/memory"
)

type captureNotifier struct {
	mu     sync.Mutex
	verify []string
	reset  []string
}

func (n *captureNotifier) SendVerificationLink(_ context.Context, _, _, token string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verify = append(n.verify, token)
	return true
}

func (n *captureNotifier) SendResetLink(_ context.Context, _, _, token string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reset = append(n.reset, token)
	return true
}

func (n *captureNotifier) lastVerify() (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.verify) == 0 {
		return "", false
	}
	return n.verify[len(n.verify)-1], true
}

type testAPI struct {
	srv      *httptest.Server
	notifier *captureNotifier
}

func newTestAPI(t *testing.T, loginLimiter rate.Limiter) *testAPI {
	t.Helper()

	store := memory.New()
	notifier := &captureNotifier{}
	issuer := jwtx.NewIssuer("studytrack-test", []byte("access"), []byte("refresh"))

	service := authsvc.NewService(authsvc.Deps{
		Accounts: store,
		Issuer:   issuer,
		Hasher:   password.Params{Cost: password.MinCost},
		Notifier: notifier,
	})

	handler := router.New(router.Deps{
		Auth:         ctrl.NewController(service),
		Issuer:       issuer,
		Store:        store,
		LoginLimiter: loginLimiter,
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &testAPI{srv: srv, notifier: notifier}
}

func (a *testAPI) post(t *testing.T, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(a.srv.URL+path, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestFullAuthFlowOverHTTP(t *testing.T) {
	api := newTestAPI(t, nil)

	// registro
	resp, body := api.post(t, "/v1/auth/register", map[string]string{
		"name": "Ann", "email": "ann@x.com", "password": "P@ssw0rd1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	account := body["account"].(map[string]any)
	assert.Equal(t, "ann@x.com", account["email"])
	assert.Equal(t, false, account["email_verified"])
	assert.NotContains(t, body, "access_token")

	// login sin verificar ⇒ 403
	resp, body = api.post(t, "/v1/auth/login", map[string]string{
		"email": "ann@x.com", "password": "P@ssw0rd1",
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "ACCOUNT_NOT_VERIFIED", body["code"])

	// verificación
	var token string
	require.Eventually(t, func() bool {
		var ok bool
		token, ok = api.notifier.lastVerify()
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	resp, _ = api.post(t, "/v1/auth/verify-email", map[string]string{"token": token})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// login ⇒ par de tokens, Cache-Control: no-store
	resp, body = api.post(t, "/v1/auth/login", map[string]string{
		"email": "ann@x.com", "password": "P@ssw0rd1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "Bearer", body["token_type"])
	access := body["access_token"].(string)
	refresh := body["refresh_token"].(string)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)

	// refresh rota el token
	resp, body = api.post(t, "/v1/auth/refresh", map[string]string{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	newRefresh := body["refresh_token"].(string)
	assert.NotEqual(t, refresh, newRefresh)

	// el refresh viejo quedó revocado ⇒ 401
	resp, body = api.post(t, "/v1/auth/refresh", map[string]string{"refresh_token": refresh})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "INVALID_REFRESH_TOKEN", body["code"])

	// logout con el nuevo; idempotente
	resp, _ = api.post(t, "/v1/auth/logout", map[string]string{"refresh_token": newRefresh})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = api.post(t, "/v1/auth/logout", map[string]string{"refresh_token": newRefresh})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogoutAllRequiresBearer(t *testing.T) {
	api := newTestAPI(t, nil)

	// sin token ⇒ 401
	resp, body := api.post(t, "/v1/auth/logout-all", map[string]string{})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "TOKEN_MISSING", body["code"])

	// flujo completo para conseguir un access token
	_, _ = api.post(t, "/v1/auth/register", map[string]string{
		"name": "Ann", "email": "ann@x.com", "password": "P@ssw0rd1",
	})
	var token string
	require.Eventually(t, func() bool {
		var ok bool
		token, ok = api.notifier.lastVerify()
		return ok
	}, 2*time.Second, 10*time.Millisecond)
	_, _ = api.post(t, "/v1/auth/verify-email", map[string]string{"token": token})
	_, loginBody := api.post(t, "/v1/auth/login", map[string]string{
		"email": "ann@x.com", "password": "P@ssw0rd1",
	})
	access := loginBody["access_token"].(string)

	req, err := http.NewRequest(http.MethodPost, api.srv.URL+"/v1/auth/logout-all", bytes.NewReader([]byte("{}")))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+access)

	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestErrorMapping(t *testing.T) {
	api := newTestAPI(t, nil)

	_, _ = api.post(t, "/v1/auth/register", map[string]string{
		"name": "Ann", "email": "ann@x.com", "password": "P@ssw0rd1",
	})

	// email duplicado ⇒ 409
	resp, body := api.post(t, "/v1/auth/register", map[string]string{
		"name": "Ann2", "email": "ann@x.com", "password": "Other123!",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "EMAIL_ALREADY_IN_USE", body["code"])

	// campos faltantes ⇒ 400
	resp, body = api.post(t, "/v1/auth/register", map[string]string{"email": "x@x.com"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "MISSING_FIELDS", body["code"])

	// credenciales malas ⇒ 401 con error genérico
	resp, body = api.post(t, "/v1/auth/login", map[string]string{
		"email": "ghost@x.com", "password": "nope",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "INVALID_CREDENTIALS", body["code"])

	// token de verificación inválido ⇒ 422
	resp, body = api.post(t, "/v1/auth/verify-email", map[string]string{"token": "garbage"})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "INVALID_OR_EXPIRED_TOKEN", body["code"])

	// forgot-password de email inexistente ⇒ 202 genérico
	resp, _ = api.post(t, "/v1/auth/forgot-password", map[string]string{"email": "ghost@x.com"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestLoginRateLimit(t *testing.T) {
	api := newTestAPI(t, rate.NewMemoryLimiter(2, time.Minute))

	creds := map[string]string{"email": "ann@x.com", "password": "bad"}
	for i := 0; i < 2; i++ {
		resp, _ := api.post(t, "/v1/auth/login", creds)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	resp, body := api.post(t, "/v1/auth/login", creds)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", body["code"])
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestHealthAndHeaders(t *testing.T) {
	api := newTestAPI(t, nil)

	resp, err := http.Get(api.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	resp2, err := http.Get(api.srv.URL + "/readyz")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)

	resp3, err := http.Get(api.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp3.Body.Close()
	assert.Equal(t, http.StatusOK, resp3.StatusCode)
}
