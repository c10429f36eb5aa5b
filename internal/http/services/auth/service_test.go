package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/studytrack/internal/domain"
	jwtx "github.com/dropDatabas3/studytrack/internal/jwt"
	"github.com/dropDatabas3/studytrack/internal/security/password"
	tokens "github.com/dropDatabas3/studytrack/internal/security/token"
	"github.com/dropDatabas3/studytrack/internal/store/memory"
)

// fakeNotifier captura los envíos best-effort para inspección en tests.
type fakeNotifier struct {
	mu     sync.Mutex
	fail   bool
	verify []sentMail
	reset  []sentMail
}

type sentMail struct {
	email, name, token string
}

func (f *fakeNotifier) SendVerificationLink(_ context.Context, email, name, token string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return false
	}
	f.verify = append(f.verify, sentMail{email, name, token})
	return true
}

func (f *fakeNotifier) SendResetLink(_ context.Context, email, name, token string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return false
	}
	f.reset = append(f.reset, sentMail{email, name, token})
	return true
}

func (f *fakeNotifier) lastVerifyToken() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.verify) == 0 {
		return "", false
	}
	return f.verify[len(f.verify)-1].token, true
}

func (f *fakeNotifier) lastResetToken() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.reset) == 0 {
		return "", false
	}
	return f.reset[len(f.reset)-1].token, true
}

func (f *fakeNotifier) resetCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reset)
}

func newTestService(t *testing.T) (*Service, *memory.Store, *fakeNotifier) {
	t.Helper()
	store := memory.New()
	notifier := &fakeNotifier{}
	svc := NewService(Deps{
		Accounts: store,
		Issuer:   jwtx.NewIssuer("studytrack-test", []byte("access-secret"), []byte("refresh-secret")),
		Hasher:   password.Params{Cost: password.MinCost}, // cost mínimo para tests
		Notifier: notifier,
	})
	return svc, store, notifier
}

// registerAndVerify deja una cuenta lista para loguearse.
func registerAndVerify(t *testing.T, svc *Service, notifier *fakeNotifier, name, email, pass string) AccountSummary {
	t.Helper()
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterInput{Name: name, Email: email, Password: pass})
	require.NoError(t, err)

	var token string
	require.Eventually(t, func() bool {
		var ok bool
		token, ok = notifier.lastVerifyToken()
		return ok
	}, 2*time.Second, 10*time.Millisecond, "verification email never dispatched")

	sum, err := svc.VerifyEmail(ctx, token)
	require.NoError(t, err)
	require.True(t, sum.EmailVerified)
	return res.Account
}

func TestRegisterThenVerifyThenLogin(t *testing.T) {
	ctx := context.Background()
	svc, store, notifier := newTestService(t)

	// Registro: cuenta sin verificar, sin tokens de sesión
	res, err := svc.Register(ctx, RegisterInput{Name: "Ann", Email: "Ann@X.com", Password: "P@ssw0rd1"})
	require.NoError(t, err)
	assert.Equal(t, "ann@x.com", res.Account.Email)
	assert.False(t, res.Account.EmailVerified)
	assert.Nil(t, res.Account.LastLoginAt)

	// Login antes de verificar ⇒ denegado
	_, err = svc.Login(ctx, LoginInput{Email: "ann@x.com", Password: "P@ssw0rd1"})
	assert.ErrorIs(t, err, ErrVerificationRequired)

	// Verificación con el token del mail
	var token string
	require.Eventually(t, func() bool {
		var ok bool
		token, ok = notifier.lastVerifyToken()
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	// el digest persistido nunca es el plaintext
	stored, err := store.FindByEmail(ctx, "ann@x.com")
	require.NoError(t, err)
	require.NotNil(t, stored.VerificationDigest)
	assert.NotEqual(t, token, *stored.VerificationDigest)
	assert.True(t, tokens.Matches(token, *stored.VerificationDigest))

	sum, err := svc.VerifyEmail(ctx, token)
	require.NoError(t, err)
	assert.True(t, sum.EmailVerified)

	// Login post-verificación ⇒ par de tokens y lastLoginAt seteado
	login, err := svc.Login(ctx, LoginInput{Email: "ann@x.com", Password: "P@ssw0rd1"})
	require.NoError(t, err)
	assert.NotEmpty(t, login.Tokens.AccessToken)
	assert.NotEmpty(t, login.Tokens.RefreshToken)
	require.NotNil(t, login.Account.LastLoginAt)

	// el refresh token se persiste como digest, no en claro
	stored, err = store.FindByEmail(ctx, "ann@x.com")
	require.NoError(t, err)
	require.Len(t, stored.RefreshTokens, 1)
	assert.Equal(t, tokens.Digest(login.Tokens.RefreshToken), stored.RefreshTokens[0])
	assert.NotContains(t, stored.RefreshTokens, login.Tokens.RefreshToken)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.Register(ctx, RegisterInput{Name: "Ann", Email: "ann@x.com", Password: "P@ssw0rd1"})
	require.NoError(t, err)

	// mismo email con distinta capitalización ⇒ Conflict
	_, err = svc.Register(ctx, RegisterInput{Name: "Ann2", Email: "ANN@x.com", Password: "Other123!"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestRegisterMissingFields(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{"no name", RegisterInput{Email: "a@x.com", Password: "pw"}},
		{"no email", RegisterInput{Name: "A", Password: "pw"}},
		{"no password", RegisterInput{Name: "A", Email: "a@x.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.in)
			assert.ErrorIs(t, err, ErrMissingFields)
		})
	}
}

func TestRegisterSucceedsWhenNotifierFails(t *testing.T) {
	ctx := context.Background()
	svc, store, notifier := newTestService(t)
	notifier.fail = true

	res, err := svc.Register(ctx, RegisterInput{Name: "Ann", Email: "ann@x.com", Password: "P@ssw0rd1"})
	require.NoError(t, err, "notifier failure must not abort registration")
	require.NotNil(t, res)

	// la cuenta quedó persistida con su token de verificación pendiente
	stored, err := store.FindByEmail(ctx, "ann@x.com")
	require.NoError(t, err)
	assert.NotNil(t, stored.VerificationDigest)
	assert.NotNil(t, stored.VerificationExpiry)
}

func TestVerifyEmailTokenSingleUse(t *testing.T) {
	ctx := context.Background()
	svc, _, notifier := newTestService(t)

	_, err := svc.Register(ctx, RegisterInput{Name: "Ann", Email: "ann@x.com", Password: "P@ssw0rd1"})
	require.NoError(t, err)

	var token string
	require.Eventually(t, func() bool {
		var ok bool
		token, ok = notifier.lastVerifyToken()
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	_, err = svc.VerifyEmail(ctx, token)
	require.NoError(t, err)

	// segundo uso del token ya consumido ⇒ genérico
	_, err = svc.VerifyEmail(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)
}

func TestVerifyEmailExpiredToken(t *testing.T) {
	ctx := context.Background()
	svc, store, notifier := newTestService(t)

	_, err := svc.Register(ctx, RegisterInput{Name: "Ann", Email: "ann@x.com", Password: "P@ssw0rd1"})
	require.NoError(t, err)

	var token string
	require.Eventually(t, func() bool {
		var ok bool
		token, ok = notifier.lastVerifyToken()
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	// vencer el token a mano
	acc, err := store.FindByEmail(ctx, "ann@x.com")
	require.NoError(t, err)
	past := time.Now().UTC().Add(-time.Minute)
	acc.VerificationExpiry = &past
	require.NoError(t, store.Update(ctx, acc))

	_, err = svc.VerifyEmail(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)
}

func TestLoginInvalidCredentials(t *testing.T) {
	ctx := context.Background()
	svc, _, notifier := newTestService(t)
	registerAndVerify(t, svc, notifier, "Ann", "ann@x.com", "P@ssw0rd1")

	// email inexistente y password incorrecto devuelven el MISMO error
	_, errUnknown := svc.Login(ctx, LoginInput{Email: "ghost@x.com", Password: "P@ssw0rd1"})
	_, errWrongPw := svc.Login(ctx, LoginInput{Email: "ann@x.com", Password: "wrong"})

	assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	assert.ErrorIs(t, errWrongPw, ErrInvalidCredentials)
	assert.Equal(t, errUnknown, errWrongPw)
}

func TestLoginFederatedAccountHasNoPassword(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t)

	require.NoError(t, store.Create(ctx, &domain.Account{
		ID:            "fed-1",
		Name:          "Fede",
		Email:         "fede@x.com",
		Role:          "user",
		Provider:      domain.ProviderFederated,
		EmailVerified: true,
		RefreshTokens: []string{},
	}))

	_, err := svc.Login(ctx, LoginInput{Email: "fede@x.com", Password: "anything"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRefreshTokenBound(t *testing.T) {
	ctx := context.Background()
	svc, store, notifier := newTestService(t)
	acc := registerAndVerify(t, svc, notifier, "Ann", "ann@x.com", "P@ssw0rd1")

	var issued []string
	for i := 0; i < 7; i++ {
		res, err := svc.Login(ctx, LoginInput{Email: "ann@x.com", Password: "P@ssw0rd1"})
		require.NoError(t, err)
		issued = append(issued, tokens.Digest(res.Tokens.RefreshToken))
	}

	stored, err := store.FindByID(ctx, acc.ID)
	require.NoError(t, err)
	// quedan exactamente los 5 más recientes, los 2 más viejos desalojados
	require.Len(t, stored.RefreshTokens, domain.MaxRefreshTokens)
	assert.Equal(t, issued[2:], stored.RefreshTokens)
}

func TestRefreshRotatesInPlace(t *testing.T) {
	ctx := context.Background()
	svc, store, notifier := newTestService(t)
	acc := registerAndVerify(t, svc, notifier, "Ann", "ann@x.com", "P@ssw0rd1")

	login, err := svc.Login(ctx, LoginInput{Email: "ann@x.com", Password: "P@ssw0rd1"})
	require.NoError(t, err)

	res, err := svc.Refresh(ctx, login.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.Tokens.RefreshToken, res.Tokens.RefreshToken)

	// reemplazo, no append: el largo no cambia
	stored, err := store.FindByID(ctx, acc.ID)
	require.NoError(t, err)
	require.Len(t, stored.RefreshTokens, 1)
	assert.Equal(t, tokens.Digest(res.Tokens.RefreshToken), stored.RefreshTokens[0])

	// el token viejo quedó revocado
	_, err = svc.Refresh(ctx, login.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	// el nuevo sigue sirviendo
	_, err = svc.Refresh(ctx, res.Tokens.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshRejectsGarbage(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	for _, tok := range []string{"", "not.a.jwt", "aaa.bbb.ccc"} {
		_, err := svc.Refresh(ctx, tok)
		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	}
}

func TestRefreshRejectsForeignSignature(t *testing.T) {
	ctx := context.Background()
	svc, _, notifier := newTestService(t)
	acc := registerAndVerify(t, svc, notifier, "Ann", "ann@x.com", "P@ssw0rd1")

	// token firmado con otro secreto, mismo subject
	evil := jwtx.NewIssuer("studytrack-test", []byte("evil"), []byte("evil"))
	forged, _, err := evil.IssueRefresh(acc.ID)
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, forged)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestLogoutSingleToken(t *testing.T) {
	ctx := context.Background()
	svc, store, notifier := newTestService(t)
	acc := registerAndVerify(t, svc, notifier, "Ann", "ann@x.com", "P@ssw0rd1")

	a, err := svc.Login(ctx, LoginInput{Email: "ann@x.com", Password: "P@ssw0rd1"})
	require.NoError(t, err)
	b, err := svc.Login(ctx, LoginInput{Email: "ann@x.com", Password: "P@ssw0rd1"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, a.Tokens.RefreshToken))

	// solo se revocó el token presentado
	stored, err := store.FindByID(ctx, acc.ID)
	require.NoError(t, err)
	require.Len(t, stored.RefreshTokens, 1)
	assert.Equal(t, tokens.Digest(b.Tokens.RefreshToken), stored.RefreshTokens[0])

	// idempotente: repetir el logout no es error
	require.NoError(t, svc.Logout(ctx, a.Tokens.RefreshToken))
	// token basura tampoco
	require.NoError(t, svc.Logout(ctx, "garbage"))
}

func TestLogoutAll(t *testing.T) {
	ctx := context.Background()
	svc, store, notifier := newTestService(t)
	acc := registerAndVerify(t, svc, notifier, "Ann", "ann@x.com", "P@ssw0rd1")

	for i := 0; i < 3; i++ {
		_, err := svc.Login(ctx, LoginInput{Email: "ann@x.com", Password: "P@ssw0rd1"})
		require.NoError(t, err)
	}

	require.NoError(t, svc.LogoutAll(ctx, acc.ID))

	stored, err := store.FindByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.RefreshTokens)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	ctx := context.Background()
	svc, store, notifier := newTestService(t)

	// respuesta genérica: sin error, sin cuenta creada, sin mail de reset
	require.NoError(t, svc.ForgotPassword(ctx, "missing@x.com"))

	_, err := store.FindByEmail(ctx, "missing@x.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, notifier.resetCount())
}

func TestResetPasswordFlow(t *testing.T) {
	ctx := context.Background()
	svc, store, notifier := newTestService(t)
	acc := registerAndVerify(t, svc, notifier, "Ann", "ann@x.com", "P@ssw0rd1")

	// tres sesiones vivas
	for i := 0; i < 3; i++ {
		_, err := svc.Login(ctx, LoginInput{Email: "ann@x.com", Password: "P@ssw0rd1"})
		require.NoError(t, err)
	}

	require.NoError(t, svc.ForgotPassword(ctx, "ann@x.com"))

	var token string
	require.Eventually(t, func() bool {
		var ok bool
		token, ok = notifier.lastResetToken()
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, svc.ResetPassword(ctx, token, "NewP@ss1"))

	// todas las sesiones quedaron invalidadas
	stored, err := store.FindByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.RefreshTokens)
	assert.Nil(t, stored.ResetDigest)
	assert.Nil(t, stored.ResetExpiry)

	// password viejo no sirve, el nuevo sí
	_, err = svc.Login(ctx, LoginInput{Email: "ann@x.com", Password: "P@ssw0rd1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, LoginInput{Email: "ann@x.com", Password: "NewP@ss1"})
	require.NoError(t, err)

	// el token de reset es de un solo uso
	err = svc.ResetPassword(ctx, token, "Another1!")
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)
}

func TestResetPasswordStaleToken(t *testing.T) {
	ctx := context.Background()
	svc, store, notifier := newTestService(t)
	registerAndVerify(t, svc, notifier, "Ann", "ann@x.com", "P@ssw0rd1")

	require.NoError(t, svc.ForgotPassword(ctx, "ann@x.com"))

	var token string
	require.Eventually(t, func() bool {
		var ok bool
		token, ok = notifier.lastResetToken()
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	// vencer el token (ventana de 10 minutos ya pasada)
	acc, err := store.FindByEmail(ctx, "ann@x.com")
	require.NoError(t, err)
	past := time.Now().UTC().Add(-time.Minute)
	acc.ResetExpiry = &past
	require.NoError(t, store.Update(ctx, acc))

	err = svc.ResetPassword(ctx, token, "NewP@ss1")
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)

	// el password original sigue vigente
	_, err = svc.Login(ctx, LoginInput{Email: "ann@x.com", Password: "P@ssw0rd1"})
	require.NoError(t, err)
}

func TestForgotPasswordOverwritesPriorToken(t *testing.T) {
	ctx := context.Background()
	svc, _, notifier := newTestService(t)
	registerAndVerify(t, svc, notifier, "Ann", "ann@x.com", "P@ssw0rd1")

	require.NoError(t, svc.ForgotPassword(ctx, "ann@x.com"))
	require.Eventually(t, func() bool { return notifier.resetCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	first, _ := notifier.lastResetToken()

	require.NoError(t, svc.ForgotPassword(ctx, "ann@x.com"))
	require.Eventually(t, func() bool { return notifier.resetCount() == 2 }, 2*time.Second, 10*time.Millisecond)
	second, _ := notifier.lastResetToken()

	require.NotEqual(t, first, second)

	// el primero quedó pisado: solo el segundo sirve
	err := svc.ResetPassword(ctx, first, "NewP@ss1")
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)
	require.NoError(t, svc.ResetPassword(ctx, second, "NewP@ss1"))
}

func TestResendVerification(t *testing.T) {
	ctx := context.Background()
	svc, _, notifier := newTestService(t)

	_, err := svc.Register(ctx, RegisterInput{Name: "Ann", Email: "ann@x.com", Password: "P@ssw0rd1"})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, ok := notifier.lastVerifyToken()
		return ok
	}, 2*time.Second, 10*time.Millisecond)
	first, _ := notifier.lastVerifyToken()

	require.NoError(t, svc.ResendVerification(ctx, "ann@x.com"))
	var second string
	require.Eventually(t, func() bool {
		second, _ = notifier.lastVerifyToken()
		return second != first
	}, 2*time.Second, 10*time.Millisecond)

	// el token original quedó pisado
	_, err = svc.VerifyEmail(ctx, first)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)
	_, err = svc.VerifyEmail(ctx, second)
	require.NoError(t, err)

	// para emails desconocidos o cuentas ya verificadas: éxito genérico
	require.NoError(t, svc.ResendVerification(ctx, "ghost@x.com"))
	require.NoError(t, svc.ResendVerification(ctx, "ann@x.com"))
}

func TestUnverifiedLoginWhenExplicitlyAllowed(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	notifier := &fakeNotifier{}
	svc := NewService(Deps{
		Accounts:             store,
		Issuer:               jwtx.NewIssuer("studytrack-test", []byte("a"), []byte("r")),
		Hasher:               password.Params{Cost: password.MinCost},
		Notifier:             notifier,
		AllowUnverifiedLogin: true,
	})

	_, err := svc.Register(ctx, RegisterInput{Name: "Ann", Email: "ann@x.com", Password: "P@ssw0rd1"})
	require.NoError(t, err)

	res, err := svc.Login(ctx, LoginInput{Email: "ann@x.com", Password: "P@ssw0rd1"})
	require.NoError(t, err)
	assert.False(t, res.Account.EmailVerified)
	assert.NotEmpty(t, res.Tokens.RefreshToken)
}
